package lsp

import (
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sourcegraph/jsonrpc2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type client struct {
	conn  *jsonrpc2.Conn
	diags chan PublishDiagnosticsParams
	done  chan error
}

func startServer(t *testing.T, a *Analyzer) *client {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	serverSide, clientSide := net.Pipe()

	c := &client{diags: make(chan PublishDiagnosticsParams, 16), done: make(chan error, 1)}
	go func() { c.done <- NewServer(a, "test", nil).Serve(ctx, serverSide) }()

	handler := jsonrpc2.HandlerWithError(func(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
		if req.Method == "textDocument/publishDiagnostics" && req.Params != nil {
			var p PublishDiagnosticsParams
			if err := json.Unmarshal(*req.Params, &p); err == nil {
				c.diags <- p
			}
		}
		return nil, nil
	})
	c.conn = jsonrpc2.NewConn(ctx, jsonrpc2.NewBufferedStream(clientSide, jsonrpc2.VSCodeObjectCodec{}), handler)

	t.Cleanup(func() {
		cancel()
		c.conn.Close()
		select {
		case <-c.done:
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
	})
	return c
}

func (c *client) nextDiagnostics(t *testing.T) PublishDiagnosticsParams {
	t.Helper()
	select {
	case p := <-c.diags:
		return p
	case <-time.After(5 * time.Second):
		t.Fatal("no diagnostics published")
		return PublishDiagnosticsParams{}
	}
}

func TestServerSession(t *testing.T) {
	a := NewAnalyzer()
	a.SetSnapshot(snapshot())
	c := startServer(t, a)
	ctx := context.Background()

	var init InitializeResult
	require.NoError(t, c.conn.Call(ctx, "initialize", map[string]interface{}{}, &init))
	assert.Equal(t, syncFull, init.Capabilities.TextDocumentSync)
	assert.True(t, init.Capabilities.HoverProvider)
	require.NoError(t, c.conn.Notify(ctx, "initialized", map[string]interface{}{}))

	uri := "file:///tmp/query.js"
	require.NoError(t, c.conn.Notify(ctx, "textDocument/didOpen", DidOpenTextDocumentParams{
		TextDocument: TextDocumentItem{URI: uri, LanguageID: "javascript", Version: 1, Text: "usee shop"},
	}))
	p := c.nextDiagnostics(t)
	assert.Equal(t, uri, p.URI)
	require.Len(t, p.Diagnostics, 1)
	assert.Equal(t, Range{Start: Position{0, 0}, End: Position{0, 4}}, p.Diagnostics[0].Range)

	require.NoError(t, c.conn.Notify(ctx, "textDocument/didChange", DidChangeTextDocumentParams{
		TextDocument:   VersionedTextDocumentIdentifier{URI: uri, Version: 2},
		ContentChanges: []TextDocumentContentChangeEvent{{Text: "// orders\ndb.us"}},
	}))
	p = c.nextDiagnostics(t)
	assert.Equal(t, 2, p.Version)

	var list CompletionList
	require.NoError(t, c.conn.Call(ctx, "textDocument/completion", TextDocumentPositionParams{
		TextDocument: TextDocumentIdentifier{URI: uri},
		Position:     Position{Line: 1, Character: 5},
	}, &list))
	require.NotEmpty(t, list.Items)
	assert.Equal(t, "users", list.Items[0].Label)
	require.NotNil(t, list.Items[0].TextEdit)
	assert.Equal(t, Range{Start: Position{1, 3}, End: Position{1, 5}}, list.Items[0].TextEdit.Range)

	var hover *Hover
	require.NoError(t, c.conn.Call(ctx, "textDocument/hover", TextDocumentPositionParams{
		TextDocument: TextDocumentIdentifier{URI: uri},
		Position:     Position{Line: 1, Character: 0},
	}, &hover))
	assert.Nil(t, hover)

	require.NoError(t, c.conn.Notify(ctx, "textDocument/didClose", DidCloseTextDocumentParams{
		TextDocument: TextDocumentIdentifier{URI: uri},
	}))
	p = c.nextDiagnostics(t)
	assert.Empty(t, p.Diagnostics)

	err := c.conn.Call(ctx, "workspace/symbol", map[string]interface{}{}, nil)
	var rpcErr *jsonrpc2.Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, int64(jsonrpc2.CodeMethodNotFound), rpcErr.Code)

	require.NoError(t, c.conn.Call(ctx, "shutdown", nil, nil))
	require.NoError(t, c.conn.Notify(ctx, "exit", nil))
	select {
	case err := <-c.done:
		assert.NoError(t, err)
		c.done <- err
	case <-time.After(5 * time.Second):
		t.Fatal("server did not exit")
	}
}

func TestExitWithoutShutdown(t *testing.T) {
	c := startServer(t, NewAnalyzer())
	require.NoError(t, c.conn.Notify(context.Background(), "exit", nil))
	select {
	case err := <-c.done:
		assert.ErrorIs(t, err, ErrExitWithoutShutdown)
		c.done <- err
	case <-time.After(5 * time.Second):
		t.Fatal("server did not exit")
	}
}

func TestSnapshotWatcher(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "schema.json")
	a := NewAnalyzer()
	w, err := NewSnapshotWatcher(path, a, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()
	assert.Nil(t, a.Snapshot())

	require.NoError(t, snapshot().Write(path))
	require.Eventually(t, func() bool {
		s := a.Snapshot()
		return s != nil && s.Database == "shop"
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, os.Remove(path))
	require.Eventually(t, func() bool { return a.Snapshot() == nil }, 5*time.Second, 20*time.Millisecond)
}
