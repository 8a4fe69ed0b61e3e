// internal/ui/model_messages.go
// Consolidated message types for Bubble Tea Update cycle
package ui

import (
	"github.com/nhath/ezmongo/internal/connection"
	"github.com/nhath/ezmongo/internal/db"
	"github.com/nhath/ezmongo/internal/editor"
	"github.com/nhath/ezmongo/internal/executor"
	"github.com/nhath/ezmongo/internal/schema"
)

// DebounceMsg triggers the history dropdown refresh after typing pauses
type DebounceMsg struct {
	ID int
}

// QueryResultMsg is sent when a query task completes
type QueryResultMsg struct {
	TaskID uint64
	Input  string
	Origin origin
	Conn   *connection.Connection
	Result *executor.Result
	Err    error
}

// FetchResultMsg carries the next page of the current result
type FetchResultMsg struct {
	TaskID uint64
	Result *executor.Result
	Docs   []db.Document
	Err    error
}

// ConnectedMsg is sent when a connect task has opened (or failed to open)
// a connection. The connection is not active yet.
type ConnectedMsg struct {
	TaskID uint64
	Input  string
	Origin origin
	Conn   *connection.Connection
	Err    error
}

// EditorFinishedMsg is sent when the external editor exits
type EditorFinishedMsg struct {
	TaskID uint64
	Kind   editor.Kind
	Before string
	Text   string
	Err    error
	Edit   *documentEdit
}

// DocumentSavedMsg is sent when an edited document was written back
type DocumentSavedMsg struct {
	TaskID uint64
	Edit   *documentEdit
	Doc    db.Document
	Err    error
}

// SchemaLoadedMsg carries a fresh schema snapshot
type SchemaLoadedMsg struct {
	Gen      int
	Snapshot *schema.Snapshot
	Err      error
}
