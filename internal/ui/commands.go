// internal/ui/commands.go
// Command dispatch: every parsed command enters the session here
package ui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhath/ezmongo/internal/connection"
	"github.com/nhath/ezmongo/internal/executor"
	"github.com/nhath/ezmongo/internal/grammar"
	"github.com/nhath/ezmongo/internal/session"
)

// dispatch applies cmd. Dispatch is sequential: a pending task is cancelled
// first and its eventual result discarded. Session state only changes once
// the command succeeded.
func (m Model) dispatch(cmd grammar.Command, input string, o origin) (Model, tea.Cmd) {
	if task := m.session.Tasks().Pending(); task != nil {
		m.log.Debug("superseding task", zap.Uint64("task", task.ID), zap.Stringer("kind", task.Kind))
		m.session.Tasks().Cancel()
	}
	m.statusMsg = ""
	m.errorMsg = ""

	switch c := cmd.(type) {
	case grammar.Use:
		return m.useDatabase(c.Database, input, o)

	case grammar.Connect:
		task := m.session.Tasks().Start(m.ctx, session.TaskConnect)
		m.log.Debug("dispatch connect", zap.Uint64("task", task.ID))
		m.statusMsg = "connecting"
		return m, tea.Batch(m.connectCmd(task, c.Source, input, o), m.spinner.Tick)

	case grammar.RawQuery:
		conn := m.session.Connection()
		if conn == nil {
			m.errorMsg = (&connection.Error{Kind: connection.NotConnected}).Error()
			return m, nil
		}
		return m.startQuery(c, conn, input, o)

	case grammar.Unknown:
		m.errorMsg = "unknown command: " + limitString(c.Text, 40)
		return m, nil
	}
	m.errorMsg = fmt.Sprintf("unsupported command %T", cmd)
	return m, nil
}

// startQuery runs q against conn, which may name another database than the
// active connection. That database becomes active once the query succeeds.
func (m Model) startQuery(q grammar.RawQuery, conn *connection.Connection, input string, o origin) (Model, tea.Cmd) {
	task := m.session.Tasks().Start(m.ctx, session.TaskQuery)
	m.log.Debug("dispatch query", zap.Uint64("task", task.ID), zap.String("database", conn.Database))
	return m, tea.Batch(m.executeQueryCmd(task, q, conn, input, o), m.spinner.Tick)
}

// useDatabase switches the active database. It runs inline: only the
// connection record changes.
func (m Model) useDatabase(name, input string, o origin) (Model, tea.Cmd) {
	conn, err := m.session.Connections.SwitchDatabase(name)
	if err != nil {
		m.errorMsg = err.Error()
		return m, nil
	}
	m.log.Info("database switched", zap.String("database", name))
	m.statusMsg = "switched to db " + name
	m.appendHistory(input, o)
	return m.refreshSchema(conn)
}

func (m Model) handleConnected(msg ConnectedMsg) (Model, tea.Cmd) {
	if !m.session.Tasks().Finish(msg.TaskID) {
		m.log.Debug("discarding stale connect", zap.Uint64("task", msg.TaskID))
		return m, m.releaseCmd(msg.Conn)
	}
	if msg.Err != nil {
		// The previous connection stays active.
		m.statusMsg = ""
		m.errorMsg = describeError(msg.Err)
		return m, nil
	}

	prev := m.session.Connections.Activate(msg.Conn)
	m.log.Info("connected", zap.String("uri", msg.Conn.Redacted()), zap.String("database", msg.Conn.Database))
	m.statusMsg = fmt.Sprintf("connected to %s/%s", hostOf(msg.Conn.URI), msg.Conn.Database)
	m.appendHistory(msg.Input, msg.Origin)

	var cmds []tea.Cmd
	if prev != nil && prev.Client != msg.Conn.Client {
		// Results of the old server can no longer page.
		if m.results != nil && m.resultsConn != nil && m.resultsConn.Client == prev.Client {
			cmds = append(cmds, closeResultCmd(m.results))
		}
		cmds = append(cmds, m.releaseCmd(prev))
	}
	m.snapshot = nil
	m, cmd := m.refreshSchema(msg.Conn)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) handleQueryResult(msg QueryResultMsg) (Model, tea.Cmd) {
	if !m.session.Tasks().Finish(msg.TaskID) {
		m.log.Debug("discarding stale result", zap.Uint64("task", msg.TaskID))
		return m, closeResultCmd(msg.Result)
	}
	if msg.Err != nil {
		m.errorMsg = describeError(msg.Err)
		return m, nil
	}

	res := msg.Result
	m.session.RecordQuery(res.Query)
	m.appendHistory(msg.Input, msg.Origin)

	var cmds []tea.Cmd
	if active := m.session.Connection(); active != nil && active.Client == msg.Conn.Client && active.Database != msg.Conn.Database {
		if conn, err := m.session.Connections.SwitchDatabase(msg.Conn.Database); err == nil {
			m.log.Info("database switched", zap.String("database", conn.Database))
			var cmd tea.Cmd
			m, cmd = m.refreshSchema(conn)
			cmds = append(cmds, cmd)
		}
	}

	prev := m.results
	m.results = res
	m.resultsConn = msg.Conn
	m.fetching = false
	m.docs = append(m.docs[:0:0], res.First...)
	m = m.resetTable().rebuildTable()
	m = m.refreshPreview()

	if err := m.session.Transition(session.ModeViewer); err != nil {
		m.log.Debug("showing results", zap.Error(err))
	}
	m.prompt.Blur()
	m.statusMsg = resultSummary(len(res.First), res)

	if prev != nil && prev != res {
		cmds = append(cmds, closeResultCmd(prev))
	}
	return m, tea.Batch(cmds...)
}

func (m Model) handleFetchResult(msg FetchResultMsg) (Model, tea.Cmd) {
	current := m.session.Tasks().Finish(msg.TaskID)
	if msg.Result != m.results {
		return m, nil
	}
	m.fetching = false

	// Documents already pulled from the cursor are kept even when the fetch
	// was superseded: they cannot be fetched again.
	if len(msg.Docs) > 0 {
		m.docs = append(m.docs, msg.Docs...)
		m = m.rebuildTable()
		m = m.refreshPreview()
	}
	if msg.Err != nil && current {
		m.errorMsg = describeError(msg.Err)
		return m, nil
	}
	if current || m.results.Truncated() {
		m.statusMsg = resultSummary(len(m.docs), m.results)
	}
	return m, nil
}

// browseCollection runs a find on a collection picked in the schema
// browser. A database other than the active one is switched to only when
// the find succeeds.
func (m Model) browseCollection(database, collection string) (Model, tea.Cmd) {
	conn := m.session.Connection()
	if conn == nil {
		m.errorMsg = "not connected"
		return m, nil
	}
	if database != "" && database != conn.Database {
		if err := connection.ValidateDatabaseName(database); err != nil {
			m.errorMsg = (&connection.Error{Kind: connection.InvalidDatabase, Err: err}).Error()
			return m, nil
		}
		conn = conn.WithDatabase(database)
	}
	text := fmt.Sprintf("db.getCollection(%q).find({})", collection)
	m.statusMsg = ""
	m.errorMsg = ""
	return m.startQuery(grammar.RawQuery{Text: text}, conn, text, fromBrowser)
}

func resultSummary(n int, res *executor.Result) string {
	noun := "documents"
	if n == 1 {
		noun = "document"
	}
	if res.Truncated() {
		return fmt.Sprintf("%d %s, fetch cancelled before the end", n, noun)
	}
	if res.Exhausted() {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %s, more available", n, noun)
}
