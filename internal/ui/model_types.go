// internal/ui/model_types.go
// Type definitions for the UI layer
package ui

import (
	"context"

	"go.uber.org/zap"

	"github.com/nhath/ezmongo/internal/config"
	"github.com/nhath/ezmongo/internal/connection"
	"github.com/nhath/ezmongo/internal/db"
	"github.com/nhath/ezmongo/internal/editor"
	"github.com/nhath/ezmongo/internal/executor"
	"github.com/nhath/ezmongo/internal/lsp"
	"github.com/nhath/ezmongo/internal/session"
)

// Deps are the collaborators the UI drives. Session and Executor are
// required; the rest may be nil.
type Deps struct {
	Config   *config.Config
	Session  *session.Session
	Executor *executor.Executor
	Editor   *editor.Bridge
	Draft    *editor.Draft
	Analyzer *lsp.Analyzer

	// SchemaPath is where the schema snapshot is written after a connect
	// or database switch. Empty disables writing.
	SchemaPath string
	// InitialURI is connected to on start. It may name a profile.
	InitialURI string

	Log     *zap.Logger
	Context context.Context
}

// origin records where a dispatched command came from. Only commands the
// operator authored are appended to history.
type origin int

const (
	fromPrompt origin = iota
	fromEditor
	fromRerun
	fromBrowser
	fromStartup
)

func (o origin) recorded() bool {
	return o == fromPrompt || o == fromEditor
}

// suggestSource says what the dropdown under the prompt is showing.
type suggestSource int

const (
	suggestNone suggestSource = iota
	suggestHistory
	suggestCompletion
)

// documentEdit is a document handed to the editor from the viewer.
type documentEdit struct {
	Index     int
	Original  db.Document
	Namespace db.Namespace
	Conn      *connection.Connection
	Result    *executor.Result
}

// HelpContext represents the current UI context for help display
type HelpContext int

const (
	HelpContextNormal HelpContext = iota
	HelpContextCommand
	HelpContextViewer
	HelpContextBrowser
)
