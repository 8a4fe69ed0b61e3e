// internal/ui/app.go
package ui

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhath/ezmongo/internal/grammar"
	"github.com/nhath/ezmongo/internal/session"
	"github.com/nhath/ezmongo/internal/ui/components/schemabrowser"
)

// Update handles messages and updates model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.prompt.Width = msg.Width - 4
		m.suggestions = m.suggestions.SetWidth(msg.Width - 12)
		m.schemaBrowser = m.schemaBrowser.SetSize(msg.Width, msg.Height)
		m = m.rebuildTable()
		return m, nil

	case spinner.TickMsg:
		var cmds []tea.Cmd
		var cmd tea.Cmd
		if m.session.Tasks().Busy() {
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
		m.schemaBrowser, cmd = m.schemaBrowser.Update(msg)
		cmds = append(cmds, cmd)
		return m, tea.Batch(cmds...)

	case startupMsg:
		return m.dispatch(grammar.Connect{Source: msg.Source}, "", fromStartup)

	case ConnectedMsg:
		return m.handleConnected(msg)

	case QueryResultMsg:
		return m.handleQueryResult(msg)

	case FetchResultMsg:
		return m.handleFetchResult(msg)

	case EditorFinishedMsg:
		return m.handleEditorFinished(msg)

	case DocumentSavedMsg:
		return m.handleDocumentSaved(msg)

	case SchemaLoadedMsg:
		return m.handleSchemaLoaded(msg)

	case DebounceMsg:
		if msg.ID == m.debounceID && m.session.Mode() == session.ModeCommand {
			m = m.refreshHistorySuggestions()
		}
		return m, nil

	case schemabrowser.DatabaseSelectedMsg:
		return m.useDatabase(msg.Database, "", fromBrowser)

	case schemabrowser.CollectionSelectedMsg:
		m.popupStack.Remove(popupSchema)
		return m.browseCollection(msg.Database, msg.Collection)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	keys := m.config.Keys

	// Interrupt works everywhere, popups included
	if matchKey(msg, keys.Interrupt) {
		return m.interrupt()
	}

	if m.showHelpPopup {
		if matchKey(msg, keys.Back) || matchKey(msg, keys.Help) || matchKey(msg, keys.Cancel) {
			m.popupStack.CloseTop(&m)
		}
		return m, nil
	}

	if m.schemaBrowser.IsVisible() {
		if matchKey(msg, keys.Cancel) && m.popupStack.TopName() == popupSchema {
			m.popupStack.CloseTop(&m)
			return m, nil
		}
		var cmd tea.Cmd
		m.schemaBrowser, cmd = m.schemaBrowser.Update(msg)
		if !m.schemaBrowser.IsVisible() {
			m.popupStack.Remove(popupSchema)
		}
		return m, cmd
	}

	m.errorMsg = ""
	switch m.session.Mode() {
	case session.ModeCommand:
		return m.handleCommandMode(msg)
	case session.ModeViewer:
		return m.handleViewerMode(msg)
	case session.ModeEditor:
		// The editor owns the terminal; nothing to do until it exits.
		return m, nil
	}
	return m.handleNormalMode(msg)
}

// interrupt cancels the pending task and returns to Normal. With nothing to
// cancel in Normal mode it quits.
func (m Model) interrupt() (tea.Model, tea.Cmd) {
	if task := m.session.Tasks().Pending(); task != nil {
		m.log.Info("task cancelled", zap.Uint64("task", task.ID), zap.Stringer("kind", task.Kind))
		m.session.Tasks().Cancel()
		m.statusMsg = task.Kind.String() + " cancelled"
		m = m.leaveToNormal()
		return m, nil
	}
	if m.session.Mode() == session.ModeNormal && m.popupStack.IsEmpty() {
		return m, tea.Quit
	}
	for !m.popupStack.IsEmpty() {
		m.popupStack.CloseTop(&m)
	}
	m = m.leaveToNormal()
	return m, nil
}

// switchMode moves to mode in response to the operator. Leaving the current
// mode cancels any pending task.
func (m Model) switchMode(to session.Mode) (Model, error) {
	from := m.session.Mode()
	if err := m.session.Transition(to); err != nil {
		return m, err
	}
	if from != to {
		if task := m.session.Tasks().Pending(); task != nil {
			m.log.Debug("mode switch cancels task", zap.Uint64("task", task.ID), zap.Stringer("from", from), zap.Stringer("to", to))
			m.session.Tasks().Cancel()
		}
	}
	if to == session.ModeCommand {
		m.prompt.Focus()
	} else {
		m.prompt.Blur()
	}
	return m, nil
}

// leaveToNormal returns to Normal without touching tasks, clearing the prompt.
func (m Model) leaveToNormal() Model {
	m.session.Transition(session.ModeNormal)
	m.prompt.Reset()
	m.prompt.Blur()
	m = m.hideSuggestions()
	return m
}
