// Package lsp serves completion and diagnostics for the command and query
// grammar over JSON-RPC, so editors opened on query buffers get the same
// checks the prompt applies.
package lsp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"

	"github.com/sourcegraph/jsonrpc2"
	"go.uber.org/zap"
)

// ErrExitWithoutShutdown is returned by Serve when the client sent exit
// before shutdown.
var ErrExitWithoutShutdown = errors.New("exit received before shutdown")

const source = "ezmongo"

// Server holds the open documents of one client connection.
type Server struct {
	analyzer *Analyzer
	log      *zap.Logger
	version  string

	mu       sync.Mutex
	docs     map[string]string
	shutdown bool

	exitOnce sync.Once
	exited   chan struct{}
}

// NewServer creates a server answering from analyzer.
func NewServer(analyzer *Analyzer, version string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		analyzer: analyzer,
		log:      log,
		version:  version,
		docs:     make(map[string]string),
		exited:   make(chan struct{}),
	}
}

// Serve speaks the protocol on rwc until the client exits, the stream
// closes or ctx is cancelled. Requests are handled in arrival order.
func (s *Server) Serve(ctx context.Context, rwc io.ReadWriteCloser) error {
	stream := jsonrpc2.NewBufferedStream(rwc, jsonrpc2.VSCodeObjectCodec{})
	conn := jsonrpc2.NewConn(ctx, stream, jsonrpc2.HandlerWithError(s.handle))
	defer conn.Close()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-conn.DisconnectNotify():
		return nil
	case <-s.exited:
		s.mu.Lock()
		clean := s.shutdown
		s.mu.Unlock()
		if !clean {
			return ErrExitWithoutShutdown
		}
		return nil
	}
}

func (s *Server) handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
	s.log.Debug("request", zap.String("method", req.Method), zap.Bool("notification", req.Notif))

	switch req.Method {
	case "initialize":
		return InitializeResult{
			Capabilities: ServerCapabilities{
				TextDocumentSync:   syncFull,
				CompletionProvider: &CompletionOptions{TriggerCharacters: []string{".", " ", "$"}},
				HoverProvider:      true,
			},
			ServerInfo: ServerInfo{Name: source, Version: s.version},
		}, nil

	case "initialized":
		return nil, nil

	case "shutdown":
		s.mu.Lock()
		s.shutdown = true
		s.mu.Unlock()
		return nil, nil

	case "exit":
		s.exitOnce.Do(func() { close(s.exited) })
		return nil, nil

	case "textDocument/didOpen":
		var params DidOpenTextDocumentParams
		if err := decode(req, &params); err != nil {
			return nil, err
		}
		s.setDocument(params.TextDocument.URI, params.TextDocument.Text)
		return nil, s.publish(ctx, conn, params.TextDocument.URI, params.TextDocument.Version, params.TextDocument.Text)

	case "textDocument/didChange":
		var params DidChangeTextDocumentParams
		if err := decode(req, &params); err != nil {
			return nil, err
		}
		if len(params.ContentChanges) == 0 {
			return nil, nil
		}
		// Full sync: the last change carries the whole text.
		text := params.ContentChanges[len(params.ContentChanges)-1].Text
		s.setDocument(params.TextDocument.URI, text)
		return nil, s.publish(ctx, conn, params.TextDocument.URI, params.TextDocument.Version, text)

	case "textDocument/didClose":
		var params DidCloseTextDocumentParams
		if err := decode(req, &params); err != nil {
			return nil, err
		}
		s.mu.Lock()
		delete(s.docs, params.TextDocument.URI)
		s.mu.Unlock()
		return nil, conn.Notify(ctx, "textDocument/publishDiagnostics", PublishDiagnosticsParams{
			URI:         params.TextDocument.URI,
			Diagnostics: []LSPDiagnostic{},
		})

	case "textDocument/completion":
		var params TextDocumentPositionParams
		if err := decode(req, &params); err != nil {
			return nil, err
		}
		return s.completion(params), nil

	case "textDocument/hover":
		var params TextDocumentPositionParams
		if err := decode(req, &params); err != nil {
			return nil, err
		}
		text, ok := s.document(params.TextDocument.URI)
		if !ok {
			return nil, nil
		}
		value := s.analyzer.Hover(text, offsetOf(text, params.Position))
		if value == "" {
			return nil, nil
		}
		return Hover{Contents: MarkupContent{Kind: "plaintext", Value: value}}, nil
	}

	if req.Notif {
		return nil, nil
	}
	return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: "method not supported: " + req.Method}
}

func (s *Server) completion(params TextDocumentPositionParams) CompletionList {
	list := CompletionList{Items: []LSPCompletionItem{}}
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return list
	}
	for _, it := range s.analyzer.Complete(text, offsetOf(text, params.Position)) {
		list.Items = append(list.Items, LSPCompletionItem{
			Label:  it.Label,
			Kind:   it.Kind,
			Detail: it.Detail,
			TextEdit: &TextEdit{
				Range:   rangeOf(text, it.Start, it.End),
				NewText: it.Label,
			},
		})
	}
	return list
}

func (s *Server) publish(ctx context.Context, conn *jsonrpc2.Conn, uri string, version int, text string) error {
	diags := []LSPDiagnostic{}
	for _, d := range s.analyzer.Diagnose(text) {
		diags = append(diags, LSPDiagnostic{
			Range:    rangeOf(text, d.Start, d.End),
			Severity: d.Severity,
			Source:   source,
			Message:  d.Message,
		})
	}
	return conn.Notify(ctx, "textDocument/publishDiagnostics", PublishDiagnosticsParams{
		URI:         uri,
		Version:     version,
		Diagnostics: diags,
	})
}

func (s *Server) setDocument(uri, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[uri] = text
}

func (s *Server) document(uri string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.docs[uri]
	return text, ok
}

func decode(req *jsonrpc2.Request, v interface{}) error {
	if req.Params == nil {
		return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: "missing params"}
	}
	if err := json.Unmarshal(*req.Params, v); err != nil {
		return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: err.Error()}
	}
	return nil
}

// stdio joins stdin and stdout into one stream.
type stdio struct {
	io.Reader
	io.Writer
	closers []io.Closer
}

func (s stdio) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// NewStdio wraps in and out for Serve.
func NewStdio(in io.ReadCloser, out io.WriteCloser) io.ReadWriteCloser {
	return stdio{Reader: in, Writer: out, closers: []io.Closer{in, out}}
}
