package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhath/ezmongo/internal/grammar"
	"github.com/nhath/ezmongo/internal/session"
)

const (
	popupHelp   = "help"
	popupSchema = "schema"
)

func (m Model) handleNormalMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	keys := m.config.Keys

	switch {
	case matchKey(msg, keys.Command):
		return m.enterCommandMode()

	case matchKey(msg, keys.EditQuery):
		return m.openQueryEditor()

	case matchKey(msg, keys.Rerun):
		return m.rerun()

	case matchKey(msg, keys.Results):
		if m.results == nil {
			m.statusMsg = "no results yet"
			return m, nil
		}
		m, _ = m.switchMode(session.ModeViewer)
		return m, nil

	case matchKey(msg, keys.Browser):
		return m.openSchemaBrowser()

	case matchKey(msg, keys.Help):
		m = m.openHelp()
		return m, nil

	case matchKey(msg, keys.Quit):
		return m, tea.Quit
	}
	return m, nil
}

// rerun executes the last successful query again.
func (m Model) rerun() (tea.Model, tea.Cmd) {
	last := m.session.LastQuery()
	if last == "" {
		m.errorMsg = "no query to rerun"
		return m, nil
	}
	return m.dispatch(grammar.RawQuery{Text: last}, last, fromRerun)
}

func (m Model) openHelp() Model {
	m.showHelpPopup = true
	m.popupStack.Push(popupHelp, func(m *Model) bool {
		if !m.showHelpPopup {
			return false
		}
		m.showHelpPopup = false
		return true
	})
	return m
}

func (m Model) openSchemaBrowser() (tea.Model, tea.Cmd) {
	conn := m.session.Connection()
	if conn == nil {
		m.errorMsg = "not connected"
		return m, nil
	}
	m.schemaBrowser = m.schemaBrowser.Toggle()
	if !m.schemaBrowser.IsVisible() {
		m.popupStack.Remove(popupSchema)
		return m, nil
	}
	m.popupStack.Push(popupSchema, func(m *Model) bool {
		if !m.schemaBrowser.IsVisible() {
			return false
		}
		m.schemaBrowser = m.schemaBrowser.Hide()
		return true
	})
	if m.snapshot == nil {
		return m.refreshSchema(conn)
	}
	return m, nil
}
