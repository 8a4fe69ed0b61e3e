package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhath/ezmongo/internal/db"
	"github.com/nhath/ezmongo/internal/grammar"
	"github.com/nhath/ezmongo/internal/session"
	eztable "github.com/nhath/ezmongo/internal/ui/components/table"
	"github.com/nhath/ezmongo/internal/ui/highlight"
)

func (m Model) handleViewerMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	keys := m.config.Keys

	switch {
	case matchKey(msg, keys.RowUp):
		m.table, _ = m.table.Update(tea.KeyMsg{Type: tea.KeyUp})
		m = m.refreshPreview()

	case matchKey(msg, keys.RowDown):
		m.table, _ = m.table.Update(tea.KeyMsg{Type: tea.KeyDown})
		m = m.refreshPreview()

	case matchKey(msg, keys.ScrollLeft):
		m.table = m.table.ScrollLeft()

	case matchKey(msg, keys.ScrollRight):
		m.table = m.table.ScrollRight()

	case matchKey(msg, keys.NextPage):
		return m.fetchNextPage()

	case matchKey(msg, keys.RowAction):
		return m.openDocumentEditor()

	case matchKey(msg, keys.Refresh):
		if m.results == nil {
			return m, nil
		}
		q := m.results.Query
		return m.dispatch(grammar.RawQuery{Text: q}, q, fromRerun)

	case matchKey(msg, keys.Command):
		return m.enterCommandMode()

	case matchKey(msg, keys.EditQuery):
		return m.openQueryEditor()

	case matchKey(msg, keys.Browser):
		return m.openSchemaBrowser()

	case matchKey(msg, keys.Help):
		m = m.openHelp()

	case matchKey(msg, keys.Back):
		m, _ = m.switchMode(session.ModeNormal)
	}
	return m, nil
}

func (m Model) fetchNextPage() (tea.Model, tea.Cmd) {
	if m.results == nil || m.results.Exhausted() {
		m.statusMsg = "no more documents"
		return m, nil
	}
	if m.session.Tasks().Busy() || m.fetching {
		return m, nil
	}
	m.fetching = true
	task := m.session.Tasks().Start(m.ctx, session.TaskFetch)
	m.log.Debug("fetching next page", zap.Uint64("task", task.ID))
	return m, tea.Batch(m.fetchCmd(task, m.results), m.spinner.Tick)
}

// selectedDocument returns the highlighted document and its position.
func (m Model) selectedDocument() (db.Document, int) {
	i := eztable.RowIndex(m.table.HighlightedRow())
	if i < 0 || i >= len(m.docs) {
		return nil, -1
	}
	return m.docs[i], i
}

// rebuildTable renders m.docs into the table, keeping the highlighted row.
func (m Model) rebuildTable() Model {
	highlighted := m.table.GetHighlightedRowIndex()
	tableHeight, previewHeight := m.viewerLayout()

	m.table = eztable.FromDocuments(m.docs, max(tableHeight-6, 1))
	if m.width > 0 {
		m.table = m.table.WithMaxTotalWidth(m.width)
	}
	if highlighted > 0 && highlighted < len(m.docs) {
		m.table = m.table.WithHighlightedRow(highlighted)
	}

	m.preview.Width = max(m.width-4, 0)
	m.preview.Height = max(previewHeight-2, 0)
	return m
}

// refreshPreview shows the highlighted document as highlighted JSON.
func (m Model) refreshPreview() Model {
	doc, _ := m.selectedDocument()
	if doc == nil {
		m.preview.SetContent("")
		return m
	}
	out, err := db.RenderDocument(doc)
	if err != nil {
		m.preview.SetContent(ErrorStyle.Render(err.Error()))
		return m
	}
	m.preview.SetContent(highlight.JSON(string(out)))
	m.preview.GotoTop()
	return m
}

// viewerLayout splits the body between the table and the preview.
func (m Model) viewerLayout() (tableHeight, previewHeight int) {
	body := m.height - chromeHeight
	if body < 8 {
		return max(body, 1), 0
	}
	previewHeight = body / 3
	return body - previewHeight, previewHeight
}

// resetTable drops the highlighted row before new results are shown.
func (m Model) resetTable() Model {
	m.table = eztable.FromDocuments(nil, 1)
	return m
}
