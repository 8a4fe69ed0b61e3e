package highlight

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJSONKeepsText(t *testing.T) {
	in := "{\n  \"name\": \"ada\",\n  \"age\": 36\n}"
	out := JSON(in)
	assert.NotEqual(t, in, out)
	assert.Equal(t, in, Strip(out))
}

func TestQueryKeepsText(t *testing.T) {
	in := `db.users.find({ "age": { "$gt": 30 } }).limit(5)`
	assert.Equal(t, in, Strip(Query(in)))
}

func TestEmpty(t *testing.T) {
	assert.Empty(t, JSON(""))
}
