package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhath/ezmongo/internal/connection"
	"github.com/nhath/ezmongo/internal/executor"
	"github.com/nhath/ezmongo/internal/grammar"
	"github.com/nhath/ezmongo/internal/schema"
	"github.com/nhath/ezmongo/internal/session"
)

// cleanupTimeout bounds closing cursors and clients in the background.
const cleanupTimeout = 5 * time.Second

// executeQueryCmd runs q on a snapshot of conn. The task context cancels it.
func (m Model) executeQueryCmd(task session.Task, q grammar.RawQuery, conn *connection.Connection, input string, o origin) tea.Cmd {
	exec := m.deps.Executor
	return func() tea.Msg {
		res, err := exec.Execute(task.Ctx, q, conn)
		return QueryResultMsg{TaskID: task.ID, Input: input, Origin: o, Conn: conn, Result: res, Err: err}
	}
}

// fetchCmd pulls the next page of res.
func (m Model) fetchCmd(task session.Task, res *executor.Result) tea.Cmd {
	n := m.deps.Executor.PageSize()
	return func() tea.Msg {
		docs, err := res.Fetch(task.Ctx, n)
		return FetchResultMsg{TaskID: task.ID, Result: res, Docs: docs, Err: err}
	}
}

// connectCmd opens src without activating it.
func (m Model) connectCmd(task session.Task, src grammar.URISource, input string, o origin) tea.Cmd {
	mgr := m.session.Connections
	return func() tea.Msg {
		conn, err := mgr.Open(task.Ctx, src)
		return ConnectedMsg{TaskID: task.ID, Input: input, Origin: o, Conn: conn, Err: err}
	}
}

// releaseCmd closes a connection that is no longer wanted.
func (m Model) releaseCmd(conn *connection.Connection) tea.Cmd {
	if conn == nil {
		return nil
	}
	mgr := m.session.Connections
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
		defer cancel()
		mgr.Release(ctx, conn)
		return nil
	}
}

func closeResultCmd(res *executor.Result) tea.Cmd {
	if res == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
		defer cancel()
		res.Close(ctx)
		return nil
	}
}

// refreshSchema reloads the databases and collections of conn for the
// browser and the language service. Older loads are dropped by generation.
func (m Model) refreshSchema(conn *connection.Connection) (Model, tea.Cmd) {
	if conn == nil || conn.Client == nil {
		return m, nil
	}
	m.schemaGen++
	gen := m.schemaGen
	var spin tea.Cmd
	m.schemaBrowser, spin = m.schemaBrowser.StartLoading()

	parent := m.ctx
	timeout := m.config.ConnectTimeout()
	path := m.deps.SchemaPath
	log := m.log
	host := hostOf(conn.URI)
	load := func() tea.Msg {
		ctx := parent
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(parent, timeout)
			defer cancel()
		}
		snap, err := schema.Load(ctx, conn.Client, host, conn.Database)
		if err != nil {
			return SchemaLoadedMsg{Gen: gen, Err: err}
		}
		if path != "" {
			if err := snap.Write(path); err != nil {
				log.Warn("writing schema snapshot", zap.String("path", path), zap.Error(err))
			}
		}
		return SchemaLoadedMsg{Gen: gen, Snapshot: snap}
	}
	return m, tea.Batch(load, spin)
}

func (m Model) handleSchemaLoaded(msg SchemaLoadedMsg) (Model, tea.Cmd) {
	if msg.Gen != m.schemaGen {
		return m, nil
	}
	if msg.Err != nil {
		m.log.Warn("loading schema", zap.Error(msg.Err))
		m.schemaBrowser = m.schemaBrowser.StopLoading()
		return m, nil
	}
	m.snapshot = msg.Snapshot
	m.analyzer.SetSnapshot(msg.Snapshot)
	m.schemaBrowser = m.schemaBrowser.SetSnapshot(msg.Snapshot)
	return m, nil
}
