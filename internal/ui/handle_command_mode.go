package ui

import (
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhath/ezmongo/internal/grammar"
	"github.com/nhath/ezmongo/internal/session"
)

func (m Model) handleCommandMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	keys := m.config.Keys

	switch {
	case matchKey(msg, keys.Submit):
		return m.submitPrompt()

	case matchKey(msg, keys.Cancel):
		if m.suggestions.Visible() {
			m = m.hideSuggestions()
			return m, nil
		}
		m = m.leaveToNormal()
		return m, nil

	case matchKey(msg, keys.HistoryPrev):
		m = m.cycleHistory(1)
		return m, nil

	case matchKey(msg, keys.HistoryNext):
		m = m.cycleHistory(-1)
		return m, nil

	case matchKey(msg, keys.Complete):
		m = m.complete()
		return m, nil
	}

	before := m.prompt.Value()
	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	if m.prompt.Value() == before {
		return m, cmd
	}

	// The text changed: whatever the dropdown showed no longer applies.
	m = m.hideSuggestions()
	if strings.TrimSpace(m.prompt.Value()) == "" {
		return m, cmd
	}
	tick := m.debounce()
	return m, tea.Batch(cmd, tick)
}

// submitPrompt parses the prompt and dispatches it. Input that does not
// parse stays in the prompt for correction.
func (m Model) submitPrompt() (tea.Model, tea.Cmd) {
	input := m.prompt.Value()
	if strings.TrimSpace(input) == "" {
		m = m.leaveToNormal()
		return m, nil
	}

	cmd, err := grammar.Parse(input)
	if err != nil {
		var perr *grammar.ParseError
		if errors.As(err, &perr) {
			m.prompt.SetCursor(perr.Pos)
		}
		m.log.Debug("parse error", zap.String("input", input), zap.Error(err))
		m.errorMsg = err.Error()
		return m, nil
	}
	if u, ok := cmd.(grammar.Unknown); ok {
		m.errorMsg = "unknown command: " + limitString(u.Text, 40)
		return m, nil
	}

	m = m.leaveToNormal()
	return m.dispatch(cmd, input, fromPrompt)
}

// complete runs the language analyzer at the cursor. The first press picks
// the best candidate; further presses cycle through the rest.
func (m Model) complete() Model {
	if m.suggestSource == suggestCompletion && m.suggestions.Len() > 1 {
		m.suggestions = m.suggestions.Cycle(1)
		return m.applySelectedCompletion()
	}

	text := m.prompt.Value()
	items := m.analyzer.Complete(text, m.prompt.Position())
	if len(items) == 0 {
		return m
	}
	m.suggestBase = text
	m.completions = items
	if len(items) == 1 {
		m = m.hideSuggestions()
		value, pos := applyCompletion(text, items[0].Start, items[0].End, items[0].Label)
		m.prompt.SetValue(value)
		m.prompt.SetCursor(pos)
		return m
	}

	m.suggestions = m.suggestions.SetItems(completionItems(items)).Cycle(1)
	m.suggestSource = suggestCompletion
	return m.applySelectedCompletion()
}

func (m Model) applySelectedCompletion() Model {
	i := m.suggestions.Selected()
	if i < 0 || i >= len(m.completions) {
		return m
	}
	it := m.completions[i]
	value, pos := applyCompletion(m.suggestBase, it.Start, it.End, it.Label)
	m.prompt.SetValue(value)
	m.prompt.SetCursor(pos)
	return m
}

func (m Model) hideSuggestions() Model {
	m.suggestions = m.suggestions.Hide()
	m.suggestSource = suggestNone
	m.suggestBase = ""
	m.completions = nil
	return m
}

// enterCommandMode opens the prompt from Viewer or Normal.
func (m Model) enterCommandMode() (Model, tea.Cmd) {
	var err error
	if m, err = m.switchMode(session.ModeCommand); err != nil {
		m.errorMsg = err.Error()
		return m, nil
	}
	m.prompt.Reset()
	return m, nil
}
