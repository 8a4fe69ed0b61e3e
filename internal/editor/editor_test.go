package editor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/nhath/ezmongo/internal/db"
)

func script(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-editor")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0700))
	return path
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temporary buffers left behind")
}

func TestResolve(t *testing.T) {
	env := func(vals map[string]string) func(string) string {
		return func(k string) string { return vals[k] }
	}

	argv, err := resolve("sh -e", env(nil))
	require.NoError(t, err)
	assert.Equal(t, []string{"sh", "-e"}, argv)

	argv, err = resolve("", env(map[string]string{"VISUAL": "sh", "EDITOR": "vi"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"sh"}, argv)

	argv, err = resolve("  ", env(map[string]string{"EDITOR": "sh"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"sh"}, argv)

	var ee *Error
	_, err = resolve("", env(nil))
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, Unavailable, ee.Kind)

	_, err = resolve("/no/such/editor-binary", env(nil))
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, Unavailable, ee.Kind)
}

func TestEditRoundTrip(t *testing.T) {
	tmp := t.TempDir()
	b := New(script(t, `case "$1" in *.js) ;; *) exit 9 ;; esac
printf 'db.users.find({})' > "$1"`), WithTempDir(tmp))

	out, err := b.Edit(context.Background(), "// start\n", Query)
	require.NoError(t, err)
	assert.Equal(t, "db.users.find({})", out)
	assertEmptyDir(t, tmp)
}

func TestEditUnchanged(t *testing.T) {
	tmp := t.TempDir()
	b := New(script(t, "exit 0"), WithTempDir(tmp))

	before := "{\n  \"_id\": 1\n}\n"
	out, err := b.Edit(context.Background(), before, Document)
	require.NoError(t, err)
	assert.Equal(t, before, out)

	_, err = ParseEdit(db.Document{{Key: "_id", Value: int32(1)}}, before, out)
	assert.ErrorIs(t, err, ErrUnchanged)
	assertEmptyDir(t, tmp)
}

func TestEditNonZeroExit(t *testing.T) {
	tmp := t.TempDir()
	b := New(script(t, "exit 2"), WithTempDir(tmp))

	_, err := b.Edit(context.Background(), "x", Query)
	var ee *Error
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, NonZeroExit, ee.Kind)
	assertEmptyDir(t, tmp)
}

func TestEditReadbackFailed(t *testing.T) {
	tmp := t.TempDir()
	b := New(script(t, `rm -f "$1"`), WithTempDir(tmp))

	_, err := b.Edit(context.Background(), "x", Query)
	var ee *Error
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, ReadbackFailed, ee.Kind)
}

func TestEditCancelled(t *testing.T) {
	tmp := t.TempDir()
	b := New(script(t, "sleep 10"), WithTempDir(tmp))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := b.Edit(ctx, "x", Query)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
	assertEmptyDir(t, tmp)
}

func TestPrepareWithoutEditor(t *testing.T) {
	b := &Bridge{err: &Error{Kind: Unavailable}}
	_, err := b.Prepare("x", Query)
	var ee *Error
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, Unavailable, ee.Kind)
	assert.Error(t, b.Available())
}

func TestBufferCommand(t *testing.T) {
	tmp := t.TempDir()
	b := New("sh -e", WithTempDir(tmp))
	buf, err := b.Prepare("{}", Document)
	require.NoError(t, err)
	assert.Equal(t, ".json", filepath.Ext(buf.Path))
	assert.Equal(t, "{}", buf.Original())

	cmd := buf.Command(context.Background())
	assert.Equal(t, []string{"sh", "-e", buf.Path}, cmd.Args)

	_, err = buf.Finish(nil)
	require.NoError(t, err)
	assertEmptyDir(t, tmp)
}

func TestParseEdit(t *testing.T) {
	oid := primitive.NewObjectID()
	original := db.Document{{Key: "_id", Value: oid}, {Key: "n", Value: int32(1)}}
	before, err := EditDocument(original)
	require.NoError(t, err)

	var ee *Error
	_, err = ParseEdit(original, before, `{"_id": `)
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, InvalidDocument, ee.Kind)

	_, err = ParseEdit(original, before, `{"_id": 5, "n": 2}`)
	assert.ErrorIs(t, err, db.ErrIDChanged)

	after := `{"_id": {"$oid": "` + oid.Hex() + `"}, "n": 2}`
	doc, err := ParseEdit(original, before, after)
	require.NoError(t, err)
	assert.Equal(t, int32(2), doc[1].Value)
}

func TestDraft(t *testing.T) {
	d := NewDraft(filepath.Join(t.TempDir(), "state", "query.js"))
	text, err := d.Load()
	require.NoError(t, err)
	assert.Empty(t, text)

	require.NoError(t, d.Save("db.a.find()"))
	text, err = d.Load()
	require.NoError(t, err)
	assert.Equal(t, "db.a.find()", text)
}
