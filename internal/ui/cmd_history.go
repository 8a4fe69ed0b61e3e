package ui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhath/ezmongo/internal/history"
	"github.com/nhath/ezmongo/internal/lsp"
	"github.com/nhath/ezmongo/internal/ui/components/suggestions"
)

const (
	historyMatchLimit = 50
	debounceDelay     = 150 * time.Millisecond
)

// debounce schedules a dropdown refresh once typing pauses.
func (m *Model) debounce() tea.Cmd {
	m.debounceID++
	id := m.debounceID
	return tea.Tick(debounceDelay, func(time.Time) tea.Msg {
		return DebounceMsg{ID: id}
	})
}

// refreshHistorySuggestions lists the history matches for the prompt text
// without selecting any, so the typed text is kept.
func (m Model) refreshHistorySuggestions() Model {
	if m.session.History == nil || m.suggestSource == suggestCompletion {
		return m
	}
	text := m.prompt.Value()
	matches := m.session.History.Search(text, historyMatchLimit)
	if len(matches) == 0 {
		return m.hideSuggestions()
	}
	m.suggestions = m.suggestions.SetItems(historyItems(matches))
	m.suggestSource = suggestHistory
	m.suggestBase = text
	return m
}

// cycleHistory replaces the prompt with the next ranked history match for
// the text typed before cycling began.
func (m Model) cycleHistory(delta int) Model {
	if m.session.History == nil {
		return m
	}
	if m.suggestSource != suggestHistory || m.prompt.Value() != m.selectedSuggestionText() {
		base := m.prompt.Value()
		if m.suggestSource == suggestHistory && m.suggestions.Selected() < 0 {
			base = m.suggestBase
		}
		matches := m.session.History.Search(base, historyMatchLimit)
		if len(matches) == 0 {
			m = m.hideSuggestions()
			m.statusMsg = "no matching history"
			return m
		}
		m.suggestions = m.suggestions.SetItems(historyItems(matches))
		m.suggestSource = suggestHistory
		m.suggestBase = base
	}

	m.suggestions = m.suggestions.Cycle(delta)
	if it, ok := m.suggestions.SelectedItem(); ok {
		m.prompt.SetValue(it.Text)
		m.prompt.CursorEnd()
	}
	return m
}

func (m Model) selectedSuggestionText() string {
	if it, ok := m.suggestions.SelectedItem(); ok {
		return it.Text
	}
	return ""
}

// appendHistory records an operator command after it succeeded. A failed
// write is logged by the index and keeps the entry in memory.
func (m Model) appendHistory(input string, o origin) {
	if m.session.History == nil || !o.recorded() {
		return
	}
	if err := m.session.History.Append(input); err != nil {
		m.log.Debug("history append", zap.Error(err))
	}
}

func historyItems(matches []history.Match) []suggestions.Item {
	items := make([]suggestions.Item, len(matches))
	for i, match := range matches {
		items[i] = suggestions.Item{Text: match.Entry.Text, Detail: since(match.Entry.Timestamp)}
	}
	return items
}

func completionItems(items []lsp.CompletionItem) []suggestions.Item {
	out := make([]suggestions.Item, len(items))
	for i, it := range items {
		out[i] = suggestions.Item{Text: it.Label, Detail: it.Detail}
	}
	return out
}

// since renders a timestamp as a short age.
func since(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	}
	return t.Format("2006-01-02")
}
