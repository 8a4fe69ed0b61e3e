package history

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScore(t *testing.T) {
	tests := []struct {
		query, candidate string
		ok               bool
	}{
		{"", "anything", true},
		{"uf", "db.users.find()", true},
		{"dbuf", "db.users.find()", true},
		{"fu", "db.users.find()", false},
		{"xyz", "db.users.find()", false},
		{"USE", "use test", false},
		{"use", "USE test", true},
		{"toolong", "short", false},
	}
	for _, tt := range tests {
		_, ok := Score(tt.query, tt.candidate)
		assert.Equal(t, tt.ok, ok, "%q in %q", tt.query, tt.candidate)
	}
}

func TestScorePrefersContiguousMatches(t *testing.T) {
	tight, ok := Score("find", "db.users.find()")
	require.True(t, ok)
	loose, ok := Score("find", "db.f.i.n.d.count()")
	require.True(t, ok)
	assert.Greater(t, tight, loose)
}

func TestScoreIsSubsequenceOnly(t *testing.T) {
	// every hit must contain the query as a subsequence
	candidates := []string{"use admin", "connect !(pass db)", "db.a.find()", "show dbs"}
	for _, q := range []string{"us", "cd", "dbs", "a()", "sh"} {
		for _, c := range candidates {
			if _, ok := Score(q, c); ok {
				assert.True(t, isSubsequence(q, c), "%q / %q", q, c)
			}
		}
	}
}

func isSubsequence(q, c string) bool {
	qr := []rune(q)
	i := 0
	for _, r := range c {
		if i < len(qr) && r == qr[i] {
			i++
		}
	}
	return i == len(qr)
}

func TestIndexSearch(t *testing.T) {
	x := NewIndex(nil, nil)
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	x.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	for _, cmd := range []string{"use admin", "db.users.find()", "use test", "db.users.find()", "show dbs"} {
		require.NoError(t, x.Append(cmd))
	}
	require.NoError(t, x.Append("   "))
	assert.Equal(t, 5, x.Len())

	all := x.Search("", 0)
	require.Len(t, all, 4)
	assert.Equal(t, "show dbs", all[0].Text)
	assert.Equal(t, "db.users.find()", all[1].Text)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 4, 0, time.UTC), all[1].Timestamp)

	uses := x.Search("use", 0)
	require.Len(t, uses, 3)
	assert.Equal(t, "use test", uses[0].Text)
	assert.Equal(t, "use admin", uses[1].Text)

	assert.Len(t, x.Search("use", 1), 1)
	assert.Empty(t, x.Search("zzz", 0))
}

func TestIndexSnapshotIsStable(t *testing.T) {
	x := NewIndex(nil, nil)
	require.NoError(t, x.Append("one"))
	snap := x.Entries()
	require.NoError(t, x.Append("two"))
	assert.Len(t, snap, 1)
	assert.Len(t, x.Entries(), 2)
}

func TestIndexConcurrentAppend(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "h.jsonl"))
	x := NewIndex(store, nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = x.Append("db.c.find()")
			_ = x.Search("find", 0)
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, x.Len())
	loaded, err := store.Load(0)
	require.NoError(t, err)
	assert.Len(t, loaded, 20)
}

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.jsonl")
	store := NewStore(path)

	x := NewIndex(store, nil)
	require.NoError(t, x.Append("use admin"))
	require.NoError(t, x.Append("db.users.find({\n  a: 1\n})"))

	y := NewIndex(store, nil)
	require.NoError(t, y.Load(0))
	entries := y.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "db.users.find({\n  a: 1\n})", entries[1].Text)
	assert.Equal(t, x.Session(), entries[0].Session)
	assert.NotEqual(t, x.Session(), y.Session())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestStoreLoadToleratesOddLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")
	content := `use legacy
{"text":"show dbs","ts":"2026-01-01T00:00:00Z","extra":{"ignored":true}}
{"text": broken
{"ts":"2026-01-01T00:00:00Z"}

{"text":"db.a.find()"}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	entries, err := NewStore(path).Load(0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "use legacy", entries[0].Text)
	assert.Equal(t, "show dbs", entries[1].Text)
	assert.Equal(t, "db.a.find()", entries[2].Text)

	last, err := NewStore(path).Load(2)
	require.NoError(t, err)
	assert.Equal(t, []string{"show dbs", "db.a.find()"}, []string{last[0].Text, last[1].Text})
}

func TestStoreSkipsOverlongLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")
	huge := `{"text":"` + strings.Repeat("x", maxLine) + `"}`
	content := "use first\n" + huge + "\nuse last\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	entries, err := NewStore(path).Load(0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "use first", entries[0].Text)
	assert.Equal(t, "use last", entries[1].Text)
}

func TestAppendRefusesOverlongEntry(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "history.jsonl"))
	x := NewIndex(store, nil)
	require.NoError(t, x.Append("use shop"))

	err := x.Append("db.items.find(" + strings.Repeat("1", maxLine) + ")")
	assert.ErrorIs(t, err, ErrEntryTooLong)
	assert.Equal(t, 2, x.Len())

	entries, err := store.Load(0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "use shop", entries[0].Text)
}

func TestStoreMissingFile(t *testing.T) {
	entries, err := NewStore(filepath.Join(t.TempDir(), "none.jsonl")).Load(0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAppendPersistFailureKeepsEntry(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0600))

	x := NewIndex(NewStore(filepath.Join(blocker, "history.jsonl")), nil)
	err := x.Append("use admin")

	var pe *PersistError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 1, x.Len())
}

func TestDisabledHistory(t *testing.T) {
	x := NewIndex(nil, nil)
	require.NoError(t, x.Load(100))
	assert.Zero(t, x.Len())
}

func TestEntryPreview(t *testing.T) {
	e := Entry{Text: "db.users.find({\n  name: 'a'\n})"}
	assert.Equal(t, "db.users.find({ name: 'a' })", e.Preview(80))
	assert.Equal(t, "db.use...", e.Preview(9))
}
