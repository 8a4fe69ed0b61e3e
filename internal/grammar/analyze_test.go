package grammar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeUse(t *testing.T) {
	a := Analyze("use sales")
	require.Nil(t, a.Err)
	assert.Equal(t, Use{Database: "sales"}, a.Command)
	require.Len(t, a.Nodes, 2)
	assert.Equal(t, Node{Kind: NodeVerb, Start: 0, End: 3, Text: "use"}, a.Nodes[0])
	assert.Equal(t, Node{Kind: NodeDatabase, Start: 4, End: 9, Text: "sales"}, a.Nodes[1])

	n, ok := a.NodeAt(9)
	require.True(t, ok)
	assert.Equal(t, NodeDatabase, n.Kind)
}

func TestAnalyzeIncompleteInput(t *testing.T) {
	a := Analyze("connect !(echo")
	require.NotNil(t, a.Err)
	assert.Nil(t, a.Command)
	require.Len(t, a.Nodes, 1)
	assert.Equal(t, NodeVerb, a.Nodes[0].Kind)
}

func TestAnalyzeQuery(t *testing.T) {
	a := Analyze("db.users.")
	assert.Equal(t, RawQuery{Text: "db.users."}, a.Command)
	require.NotNil(t, a.Err)
	assert.Nil(t, a.Query)
	assert.NotEmpty(t, a.Tokens)
	assert.Equal(t, "expected property name after '.'", a.Err.Message)

	a = Analyze("db.users.find()")
	require.Nil(t, a.Err)
	require.NotNil(t, a.Query)
	assert.Equal(t, "users", a.Query.Collection)
}

func TestAnalyzeUnknown(t *testing.T) {
	a := Analyze("  frob x")
	assert.Nil(t, a.Err)
	require.Len(t, a.Nodes, 1)
	assert.Equal(t, Node{Kind: NodeUnknown, Start: 2, End: 6, Text: "frob"}, a.Nodes[0])
}

func TestParseErrorSpan(t *testing.T) {
	e := &ParseError{Input: "use", Pos: 3}
	start, end := e.Span()
	assert.Equal(t, 3, start)
	assert.Equal(t, 3, end)

	e = &ParseError{Input: "db.x.fnd()", Pos: 5, End: 8}
	start, end = e.Span()
	assert.Equal(t, 5, start)
	assert.Equal(t, 8, end)
}
