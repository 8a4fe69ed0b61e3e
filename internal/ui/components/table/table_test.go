package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/nhath/ezmongo/internal/db"
)

func TestColumnsUnionWithIDFirst(t *testing.T) {
	docs := []db.Document{
		{{Key: "name", Value: "a"}, {Key: "_id", Value: int32(1)}},
		{{Key: "_id", Value: int32(2)}, {Key: "age", Value: int32(3)}},
	}
	assert.Equal(t, []string{"_id", "name", "age"}, Columns(docs))
	assert.Empty(t, Columns(nil))
}

func TestFromDocumentsRowIndex(t *testing.T) {
	docs := []db.Document{
		{{Key: "_id", Value: primitive.NewObjectID()}},
		{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "note", Value: "line\nbreak"}},
	}
	tbl := FromDocuments(docs, 10)
	assert.Equal(t, 2, tbl.TotalRows())
	assert.Equal(t, 0, RowIndex(tbl.HighlightedRow()))
}

func TestValueStyleByType(t *testing.T) {
	assert.Equal(t, GetValueStyle("null").GetForeground(), ValueStyle(nil).GetForeground())
	assert.Equal(t, GetValueStyle("1").GetForeground(), ValueStyle(int64(1)).GetForeground())
	assert.Equal(t, GetValueStyle("true").GetForeground(), ValueStyle(true).GetForeground())
}
