package lsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhath/ezmongo/internal/schema"
)

func snapshot() *schema.Snapshot {
	return &schema.Snapshot{
		Host:      "localhost:27017",
		Database:  "shop",
		Databases: []string{"admin", "shop"},
		Collections: map[string][]string{
			"admin": {"system.version"},
			"shop":  {"orders", "users"},
		},
	}
}

func labels(items []CompletionItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Label
	}
	return out
}

func complete(a *Analyzer, text string) []CompletionItem {
	return a.Complete(text, len(text))
}

func TestCompleteVerbs(t *testing.T) {
	a := NewAnalyzer()
	assert.Equal(t, []string{"use", "connect", "show", "db"}, labels(complete(a, "")))

	items := complete(a, "  con")
	require.NotEmpty(t, items)
	assert.Equal(t, "connect", items[0].Label)
	assert.Equal(t, 2, items[0].Start)
	assert.Equal(t, 5, items[0].End)
}

func TestCompleteArguments(t *testing.T) {
	a := NewAnalyzer("staging")
	assert.Empty(t, complete(a, "use s"), "no snapshot means no database names")

	a.SetSnapshot(snapshot())
	items := complete(a, "use sh")
	require.NotEmpty(t, items)
	assert.Equal(t, "shop", items[0].Label)
	assert.Equal(t, 4, items[0].Start)

	assert.Equal(t, []string{"staging", "!("}, labels(complete(a, "connect ")))
	assert.Empty(t, complete(a, "connect !(pass show"))
	assert.Contains(t, labels(complete(a, "show co")), "collections")
}

func TestCompleteQuery(t *testing.T) {
	a := NewAnalyzer()
	assert.Equal(t, []string{"getCollection"}, labels(complete(a, "db.")))

	a.SetSnapshot(snapshot())
	items := complete(a, "db.us")
	require.NotEmpty(t, items)
	assert.Equal(t, "users", items[0].Label)
	assert.Equal(t, 3, items[0].Start)

	assert.Subset(t, labels(complete(a, "db.users.fi")), []string{"find", "findOne"})
	assert.Subset(t, labels(complete(a, `db.getCollection("users").`)), []string{"find", "aggregate"})
	assert.Contains(t, labels(complete(a, "db.users.find({}).li")), "limit")
	assert.Contains(t, labels(complete(a, "db.users.aggregate([]).")), "allowDiskUse")
	assert.Subset(t, labels(complete(a, "db.users.find({ age: { $g")), []string{"$gt", "$gte"})
	assert.Contains(t, labels(complete(a, "db.users.find({ _id: Obj")), "ObjectId")
	assert.Empty(t, complete(a, "db.users.find({})"))
}

func TestDiagnose(t *testing.T) {
	a := NewAnalyzer()

	diags := a.Diagnose("usee shop")
	require.Len(t, diags, 1)
	assert.Equal(t, DiagError, diags[0].Severity)
	assert.Contains(t, diags[0].Message, "unknown command")
	assert.Equal(t, 0, diags[0].Start)
	assert.Equal(t, 4, diags[0].End)

	diags = a.Diagnose("connect !(echo x")
	require.NotEmpty(t, diags)
	assert.Equal(t, DiagError, diags[0].Severity)

	assert.Empty(t, a.Diagnose("db.users.find({})"))

	a.SetSnapshot(snapshot())
	diags = a.Diagnose("db.people.find({})")
	require.Len(t, diags, 1)
	assert.Equal(t, DiagWarning, diags[0].Severity)
	assert.Equal(t, "people", "db.people.find({})"[diags[0].Start:diags[0].End])

	diags = a.Diagnose("use analytics")
	require.Len(t, diags, 1)
	assert.Equal(t, DiagInformation, diags[0].Severity)

	assert.Empty(t, a.Diagnose("use shop"))
}

func TestHover(t *testing.T) {
	a := NewAnalyzer()
	assert.Equal(t, "find(filter, projection)", a.Hover("db.users.find({})", 10))
	assert.Equal(t, "use <database>", a.Hover("use shop", 1))
	assert.Empty(t, a.Hover("db.users.find({})", 0))
}

func TestPositions(t *testing.T) {
	text := "a\n\U0001F600b"
	off := len("a\n\U0001F600")
	pos := positionOf(text, off)
	assert.Equal(t, Position{Line: 1, Character: 2}, pos)
	assert.Equal(t, off, offsetOf(text, pos))
	assert.Equal(t, len(text), offsetOf(text, Position{Line: 5}))
	assert.Equal(t, 1, offsetOf(text, Position{Line: 0, Character: 9}))
}
