package suggestions

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCycleWraps(t *testing.T) {
	m := New().SetItems([]Item{{Text: "a"}, {Text: "b"}, {Text: "c"}})
	_, ok := m.SelectedItem()
	assert.False(t, ok)

	m = m.Cycle(1)
	it, _ := m.SelectedItem()
	assert.Equal(t, "a", it.Text)

	m = m.Cycle(1).Cycle(1).Cycle(1)
	it, _ = m.SelectedItem()
	assert.Equal(t, "a", it.Text)

	m = m.Cycle(-1)
	it, _ = m.SelectedItem()
	assert.Equal(t, "c", it.Text)
}

func TestCycleUpFromNothingSelectsLast(t *testing.T) {
	m := New().SetItems([]Item{{Text: "a"}, {Text: "b"}}).Cycle(-1)
	assert.Equal(t, 1, m.Selected())
}

func TestHideAndView(t *testing.T) {
	m := New()
	assert.Empty(t, m.View())
	m = m.SetItems([]Item{{Text: "db.users.find()", Detail: "2m ago"}})
	assert.True(t, m.Visible())
	assert.Contains(t, m.View(), "db.users.find()")
	m = m.Hide()
	assert.False(t, m.Visible())
	assert.Zero(t, m.Len())
}
