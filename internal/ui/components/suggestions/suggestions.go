// Package suggestions provides the dropdown of ranked history matches shown
// under the command prompt.
package suggestions

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Styles for the suggestions dropdown
type Styles struct {
	Box      lipgloss.Style
	Item     lipgloss.Style
	Selected lipgloss.Style
	Detail   lipgloss.Style
}

// DefaultStyles returns default styling
func DefaultStyles() Styles {
	return Styles{
		Box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4C566A")).
			Padding(0, 1),
		Item: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#D8DEE9")),
		Selected: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#2E3440")).
			Background(lipgloss.Color("#8FBCBB")).
			Bold(true),
		Detail: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4C566A")).
			Italic(true),
	}
}

// Item is one suggestion.
type Item struct {
	Text   string
	Detail string
}

// Model holds the items and the cursor. The cursor is -1 until the first
// Cycle so the prompt keeps what the operator typed.
type Model struct {
	items    []Item
	selected int
	visible  bool
	maxShow  int
	width    int
	styles   Styles
}

// New creates a new suggestions model
func New() Model {
	return Model{selected: -1, maxShow: 5, width: 60, styles: DefaultStyles()}
}

// SetItems replaces the items and resets the cursor.
func (m Model) SetItems(items []Item) Model {
	m.items = items
	m.selected = -1
	m.visible = len(items) > 0
	return m
}

// SetStyles sets custom styles
func (m Model) SetStyles(s Styles) Model {
	m.styles = s
	return m
}

// SetWidth bounds the rendered item text.
func (m Model) SetWidth(w int) Model {
	m.width = w
	return m
}

// Hide hides the dropdown and drops its items.
func (m Model) Hide() Model {
	m.items = nil
	m.visible = false
	m.selected = -1
	return m
}

// Visible returns visibility state
func (m Model) Visible() bool {
	return m.visible
}

// Selected returns the selected index, or -1.
func (m Model) Selected() int {
	return m.selected
}

// SelectedItem returns the selected item, if any.
func (m Model) SelectedItem() (Item, bool) {
	if m.selected >= 0 && m.selected < len(m.items) {
		return m.items[m.selected], true
	}
	return Item{}, false
}

// Len returns number of items
func (m Model) Len() int {
	return len(m.items)
}

// Cycle moves the cursor by delta, wrapping around the ends.
func (m Model) Cycle(delta int) Model {
	n := len(m.items)
	if n == 0 {
		return m
	}
	if m.selected < 0 {
		if delta > 0 {
			m.selected = 0
		} else {
			m.selected = n - 1
		}
		return m
	}
	m.selected = ((m.selected+delta)%n + n) % n
	return m
}

// View renders the suggestions dropdown
func (m Model) View() string {
	if !m.visible || len(m.items) == 0 {
		return ""
	}

	// Calculate visible window
	start := 0
	if m.selected > m.maxShow/2 {
		start = m.selected - m.maxShow/2
	}
	end := start + m.maxShow
	if end > len(m.items) {
		end = len(m.items)
		start = end - m.maxShow
		if start < 0 {
			start = 0
		}
	}

	var views []string
	for i := start; i < end; i++ {
		item := m.items[i]
		text := truncate(strings.Join(strings.Fields(item.Text), " "), m.width)
		line := "  " + m.styles.Item.Render(text)
		if i == m.selected {
			line = m.styles.Selected.Render("> " + text)
		}
		if item.Detail != "" {
			line += " " + m.styles.Detail.Render(item.Detail)
		}
		views = append(views, line)
	}

	return m.styles.Box.Render(strings.Join(views, "\n"))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 3 || len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
