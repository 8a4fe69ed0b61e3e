// internal/ui/model.go
// Root Model struct, constructor, and Init
package ui

import (
	"context"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	bbtable "github.com/evertras/bubble-table/table"
	"go.uber.org/zap"

	"github.com/nhath/ezmongo/internal/config"
	"github.com/nhath/ezmongo/internal/connection"
	"github.com/nhath/ezmongo/internal/db"
	"github.com/nhath/ezmongo/internal/executor"
	"github.com/nhath/ezmongo/internal/grammar"
	"github.com/nhath/ezmongo/internal/lsp"
	"github.com/nhath/ezmongo/internal/schema"
	"github.com/nhath/ezmongo/internal/session"
	"github.com/nhath/ezmongo/internal/ui/components/schemabrowser"
	"github.com/nhath/ezmongo/internal/ui/components/suggestions"
	eztable "github.com/nhath/ezmongo/internal/ui/components/table"
)

// Model is the root Bubble Tea model. It owns the session: every session
// mutation happens in Update.
type Model struct {
	deps     Deps
	session  *session.Session
	config   *config.Config
	analyzer *lsp.Analyzer
	log      *zap.Logger
	ctx      context.Context

	width, height int

	// Command prompt
	prompt        textinput.Model
	suggestions   suggestions.Model
	suggestSource suggestSource
	suggestBase   string // prompt text the dropdown items were computed for
	completions   []lsp.CompletionItem
	debounceID    int

	// Results
	results     *executor.Result
	resultsConn *connection.Connection
	fetching    bool // a page of results is in flight
	docs        []db.Document
	table       bbtable.Model
	preview     viewport.Model

	// Schema
	schemaBrowser schemabrowser.Model
	snapshot      *schema.Snapshot
	schemaGen     int

	spinner spinner.Model

	// Popups
	popupStack    *PopupStack
	showHelpPopup bool

	// Status
	statusMsg string
	errorMsg  string
}

// NewModel creates the root model. The session starts in Normal mode.
func NewModel(deps Deps) Model {
	if deps.Config == nil {
		deps.Config = config.DefaultConfig()
	}
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if deps.Context == nil {
		deps.Context = context.Background()
	}
	if deps.Analyzer == nil {
		deps.Analyzer = lsp.NewAnalyzer()
	}
	InitStyles(deps.Config.Theme)

	ti := textinput.New()
	ti.Prompt = ":"
	ti.Placeholder = "use <db> | connect <uri> | db.<collection>.find({})"
	ti.CharLimit = 4096
	ti.PromptStyle = PromptStyle
	ti.TextStyle = QueryStyle

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = SpinnerStyle

	browser := schemabrowser.New().SetStyles(BrowserStyles())

	return Model{
		deps:          deps,
		session:       deps.Session,
		config:        deps.Config,
		analyzer:      deps.Analyzer,
		log:           deps.Log,
		ctx:           deps.Context,
		prompt:        ti,
		suggestions:   suggestions.New().SetStyles(SuggestionStyles()),
		table:         eztable.FromDocuments(nil, 1),
		preview:       viewport.New(0, 0),
		schemaBrowser: browser,
		spinner:       sp,
		popupStack:    NewPopupStack(),
	}
}

// Init connects to the initial URI, if any
func (m Model) Init() tea.Cmd {
	if m.deps.InitialURI == "" {
		return nil
	}
	// Init cannot return the updated model, so the task is started from the
	// first message instead.
	uri := m.deps.InitialURI
	return func() tea.Msg { return startupMsg{Source: grammar.Literal{URI: uri}} }
}

// startupMsg asks the model to connect to the URI given on the command line
type startupMsg struct {
	Source grammar.URISource
}

// Close releases the cursor of the displayed result. The caller closes the
// connection manager.
func (m Model) Close(ctx context.Context) {
	if m.results != nil {
		if err := m.results.Close(ctx); err != nil {
			m.log.Debug("closing result", zap.Error(err))
		}
	}
}

// Session returns the session the model drives.
func (m Model) Session() *session.Session { return m.session }
