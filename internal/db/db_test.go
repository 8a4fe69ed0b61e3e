package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/nhath/ezmongo/internal/grammar"
)

func literal(t *testing.T, text string) grammar.Expr {
	t.Helper()
	q, err := grammar.ParseQuery(text)
	require.NoError(t, err)
	require.Equal(t, grammar.QueryLiteral, q.Kind)
	return q.Literal
}

func TestLiteralDocuments(t *testing.T) {
	docs, err := literalDocuments(literal(t, "{}"))
	require.NoError(t, err)
	assert.Equal(t, []Document{{}}, docs)

	docs, err = literalDocuments(literal(t, `[{a: 1}, 2.5, "x"]`))
	require.NoError(t, err)
	assert.Equal(t, []Document{
		{{Key: "a", Value: int32(1)}},
		{{Key: "value", Value: 2.5}},
		{{Key: "value", Value: "x"}},
	}, docs)

	docs, err = literalDocuments(literal(t, "true"))
	require.NoError(t, err)
	assert.Equal(t, []Document{{{Key: "value", Value: true}}}, docs)
}

func TestToValueHelpers(t *testing.T) {
	v, err := toValue(literal(t, `{id: ObjectId("5f1d7f3e9b1e8a3b4c5d6e7f"), at: ISODate("2026-03-01T10:00:00Z"), big: NumberLong("9000000000"), n: NumberInt(7), re: /^a/i, nil: null, arr: [1, 3000000000]}`))
	require.NoError(t, err)
	doc := v.(bson.D)

	oid, _ := primitive.ObjectIDFromHex("5f1d7f3e9b1e8a3b4c5d6e7f")
	assert.Equal(t, oid, doc[0].Value)
	assert.Equal(t, primitive.NewDateTimeFromTime(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)), doc[1].Value)
	assert.Equal(t, int64(9000000000), doc[2].Value)
	assert.Equal(t, int32(7), doc[3].Value)
	assert.Equal(t, primitive.Regex{Pattern: "^a", Options: "i"}, doc[4].Value)
	assert.Nil(t, doc[5].Value)
	assert.Equal(t, bson.A{int32(1), int64(3000000000)}, doc[6].Value)
}

func TestToValueErrors(t *testing.T) {
	for _, text := range []string{
		`ObjectId("nothex")`,
		`ISODate("yesterday")`,
		`NumberDecimal(1)`,
	} {
		_, err := toValue(literal(t, text))
		assert.Error(t, err, text)
	}
}

func TestRenderAndParseDocument(t *testing.T) {
	oid := primitive.NewObjectID()
	doc := Document{
		{Key: "_id", Value: oid},
		{Key: "name", Value: "ann"},
		{Key: "tags", Value: bson.A{"a", "b"}},
	}
	out, err := RenderDocument(doc)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"$oid"`)
	assert.Contains(t, string(out), "\n  ")

	back, err := ParseDocument(out)
	require.NoError(t, err)
	assert.True(t, SameID(doc, back))
	assert.Equal(t, "ann", back[1].Value)

	_, err = ParseDocument([]byte(`{"name": `))
	assert.Error(t, err)
}

func TestSameID(t *testing.T) {
	a := Document{{Key: "_id", Value: int32(1)}, {Key: "x", Value: 1}}
	b := Document{{Key: "x", Value: 2}, {Key: "_id", Value: int32(1)}}
	c := Document{{Key: "_id", Value: int32(2)}}
	assert.True(t, SameID(a, b))
	assert.False(t, SameID(a, c))
	assert.False(t, SameID(a, Document{{Key: "x", Value: 1}}))
}

func TestRedactURI(t *testing.T) {
	assert.Equal(t, "mongodb://root:xxxxx@db:27017/admin", RedactURI("mongodb://root:hunter2@db:27017/admin"))
	assert.Equal(t, "mongodb://db:27017", RedactURI("mongodb://db:27017"))
	assert.Equal(t, "admin", DatabaseFromURI("mongodb://root:pw@db:27017/admin?authSource=admin"))
	assert.Equal(t, "", DatabaseFromURI("mongodb://db:27017"))
}

func TestRenderValue(t *testing.T) {
	assert.Equal(t, "null", RenderValue(nil))
	assert.Equal(t, "plain", RenderValue("plain"))
	assert.Equal(t, "42", RenderValue(int32(42)))
	assert.Equal(t, `{"a":1}`, RenderValue(bson.D{{Key: "a", Value: int32(1)}}))
}

func TestSliceCursor(t *testing.T) {
	ns := Namespace{Database: "app", Collection: "users"}
	c := NewSliceCursor([]Document{{{Key: "a", Value: 1}}, {{Key: "a", Value: 2}}}, ns)
	assert.True(t, c.Namespace().Editable())

	ctx := context.Background()
	var got []interface{}
	for c.Next(ctx) {
		got = append(got, c.Current()[0].Value)
	}
	assert.Equal(t, []interface{}{1, 2}, got)
	assert.NoError(t, c.Err())

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	c = NewSliceCursor([]Document{{}}, Namespace{Database: "app"})
	assert.False(t, c.Next(cancelled))
	assert.ErrorIs(t, c.Err(), context.Canceled)
	assert.False(t, c.Namespace().Editable())
}

func TestWrapConnectionError(t *testing.T) {
	err := WrapConnectionError(mongo.CommandError{Code: 18, Message: "Authentication failed."})
	var ce *ConnectionError
	require.True(t, errors.As(err, &ce))
	assert.True(t, ce.Auth)

	err = WrapConnectionError(errors.New("server selection error: context deadline exceeded"))
	require.True(t, errors.As(err, &ce))
	assert.False(t, ce.Auth)
	assert.Contains(t, err.Error(), "connection failed")
}
