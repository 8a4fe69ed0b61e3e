// internal/ui/cmd_editor.go
// External editor round trips for queries and documents
package ui

import (
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhath/ezmongo/internal/editor"
	"github.com/nhath/ezmongo/internal/grammar"
	"github.com/nhath/ezmongo/internal/session"
)

// openQueryEditor hands the query draft to the external editor. The query
// is dispatched when the editor exits.
func (m Model) openQueryEditor() (tea.Model, tea.Cmd) {
	content := m.session.LastQuery()
	if m.deps.Draft != nil {
		draft, err := m.deps.Draft.Load()
		if err != nil {
			m.log.Warn("loading query draft", zap.Error(err))
		} else if strings.TrimSpace(draft) != "" {
			content = draft
		}
	}
	return m.runEditor(content, editor.Query, nil)
}

// openDocumentEditor hands the highlighted document to the external editor.
// Only documents of a find on the connection still active can be saved.
func (m Model) openDocumentEditor() (tea.Model, tea.Cmd) {
	doc, index := m.selectedDocument()
	if doc == nil {
		return m, nil
	}
	ns := m.results.Namespace
	if !ns.Editable() {
		m.errorMsg = "these results are read-only"
		return m, nil
	}
	conn := m.session.Connection()
	if conn == nil || m.resultsConn == nil || conn.Client != m.resultsConn.Client {
		m.errorMsg = "connection changed since the query ran; rerun it to edit"
		return m, nil
	}

	text, err := editor.EditDocument(doc)
	if err != nil {
		m.errorMsg = err.Error()
		return m, nil
	}
	edit := &documentEdit{Index: index, Original: doc, Namespace: ns, Conn: m.resultsConn, Result: m.results}
	return m.runEditor(text, editor.Document, edit)
}

// runEditor suspends the program while the editor owns the terminal. The
// buffer file is removed when the editor exits, whatever the outcome.
func (m Model) runEditor(content string, kind editor.Kind, edit *documentEdit) (tea.Model, tea.Cmd) {
	if m.deps.Editor == nil {
		m.errorMsg = (&editor.Error{Kind: editor.Unavailable}).Error()
		return m, nil
	}
	if !session.CanTransition(m.session.Mode(), session.ModeEditor) {
		return m, nil
	}
	buf, err := m.deps.Editor.Prepare(content, kind)
	if err != nil {
		m.errorMsg = err.Error()
		return m, nil
	}

	m, _ = m.switchMode(session.ModeEditor)
	task := m.session.Tasks().Start(m.ctx, session.TaskEdit)
	m.log.Debug("editor opened", zap.Uint64("task", task.ID), zap.Stringer("kind", kind), zap.String("path", buf.Path))

	c := buf.Command(task.Ctx)
	return m, tea.ExecProcess(c, func(err error) tea.Msg {
		if task.Ctx.Err() != nil {
			err = task.Ctx.Err()
		}
		text, err := buf.Finish(err)
		return EditorFinishedMsg{TaskID: task.ID, Kind: kind, Before: buf.Original(), Text: text, Err: err, Edit: edit}
	})
}

func (m Model) handleEditorFinished(msg EditorFinishedMsg) (Model, tea.Cmd) {
	if !m.session.Tasks().Finish(msg.TaskID) {
		m.log.Debug("discarding stale editor result", zap.Uint64("task", msg.TaskID))
		if m.session.Mode() == session.ModeEditor {
			m = m.leaveToNormal()
		}
		return m, nil
	}

	if msg.Kind == editor.Document {
		return m.finishDocumentEdit(msg)
	}

	m = m.leaveToNormal()
	if msg.Err != nil {
		m.errorMsg = msg.Err.Error()
		return m, nil
	}
	text := strings.TrimSpace(msg.Text)
	if m.deps.Draft != nil {
		if err := m.deps.Draft.Save(msg.Text); err != nil {
			m.log.Warn("saving query draft", zap.Error(err))
		}
	}
	if text == "" {
		m.statusMsg = "empty query"
		return m, nil
	}

	cmd, err := grammar.Parse(text)
	if err != nil {
		m.errorMsg = err.Error()
		return m, nil
	}
	return m.dispatch(cmd, text, fromEditor)
}

func (m Model) finishDocumentEdit(msg EditorFinishedMsg) (Model, tea.Cmd) {
	if err := m.session.Transition(session.ModeViewer); err != nil {
		m.log.Debug("returning to viewer", zap.Error(err))
	}
	if msg.Err != nil {
		m.errorMsg = msg.Err.Error()
		return m, nil
	}

	edit := msg.Edit
	doc, err := editor.ParseEdit(edit.Original, msg.Before, msg.Text)
	if errors.Is(err, editor.ErrUnchanged) {
		m.statusMsg = "no changes"
		return m, nil
	}
	if err != nil {
		m.errorMsg = err.Error()
		return m, nil
	}

	task := m.session.Tasks().Start(m.ctx, session.TaskSave)
	m.log.Debug("saving document", zap.Uint64("task", task.ID), zap.Stringer("namespace", edit.Namespace))
	client := edit.Conn.Client
	return m, tea.Batch(func() tea.Msg {
		err := client.ReplaceDocument(task.Ctx, edit.Namespace, doc)
		return DocumentSavedMsg{TaskID: task.ID, Edit: edit, Doc: doc, Err: err}
	}, m.spinner.Tick)
}

func (m Model) handleDocumentSaved(msg DocumentSavedMsg) (Model, tea.Cmd) {
	if !m.session.Tasks().Finish(msg.TaskID) {
		return m, nil
	}
	if msg.Err != nil {
		m.errorMsg = describeError(msg.Err)
		return m, nil
	}
	m.statusMsg = "document saved"
	if msg.Edit.Result == m.results && msg.Edit.Index < len(m.docs) {
		m.docs[msg.Edit.Index] = msg.Doc
		m = m.rebuildTable()
		m = m.refreshPreview()
	}
	return m, nil
}
