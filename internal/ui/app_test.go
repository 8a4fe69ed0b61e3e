package ui

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/nhath/ezmongo/internal/connection"
	"github.com/nhath/ezmongo/internal/db"
	"github.com/nhath/ezmongo/internal/db/dbtest"
	"github.com/nhath/ezmongo/internal/editor"
	"github.com/nhath/ezmongo/internal/executor"
	"github.com/nhath/ezmongo/internal/history"
	"github.com/nhath/ezmongo/internal/session"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const testURI = "mongodb://localhost:27017"

type harness struct {
	t      *testing.T
	m      Model
	client *dbtest.Client
	hist   *history.Index
}

func newHarness(t *testing.T, client *dbtest.Client, hist *history.Index, opts ...func(*Deps)) *harness {
	t.Helper()
	dialer := &dbtest.Dialer{Clients: map[string]*dbtest.Client{testURI: client}}
	mgr := connection.NewManager(dialer)
	deps := Deps{
		Session:  session.New(mgr, hist),
		Executor: executor.New(executor.WithPageSize(10)),
		Editor:   editor.New("true", editor.WithTempDir(t.TempDir())),
	}
	for _, opt := range opts {
		opt(&deps)
	}
	h := &harness{t: t, m: NewModel(deps), client: client, hist: hist}
	h.send(tea.WindowSizeMsg{Width: 120, Height: 40})
	t.Cleanup(func() {
		ctx := context.Background()
		h.m.Close(ctx)
		mgr.Close(ctx)
	})
	return h
}

// send delivers msg and runs every command it produces to completion.
func (h *harness) send(msg tea.Msg) tea.Cmd {
	model, cmd := h.m.Update(msg)
	h.m = model.(Model)
	return cmd
}

func (h *harness) do(msg tea.Msg) {
	h.run(h.send(msg))
}

func (h *harness) run(cmd tea.Cmd) {
	for _, msg := range collect(cmd) {
		h.do(msg)
	}
}

// collect executes cmd and its batches, dropping timer messages.
func collect(cmd tea.Cmd) []tea.Msg {
	var out []tea.Msg
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		switch msg := c().(type) {
		case nil, spinner.TickMsg, DebounceMsg, tea.QuitMsg:
		case tea.BatchMsg:
			queue = append(queue, msg...)
		default:
			out = append(out, msg)
		}
	}
	return out
}

func (h *harness) key(k tea.KeyType) tea.Cmd {
	return h.send(tea.KeyMsg{Type: k})
}

func (h *harness) runes(s string) tea.Cmd {
	return h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

// prompt types line at a fresh prompt and submits it, returning the
// submission's command unexecuted.
func (h *harness) prompt(line string) tea.Cmd {
	h.t.Helper()
	if h.m.Session().Mode() != session.ModeCommand {
		h.runes(":")
	}
	require.Equal(h.t, session.ModeCommand, h.m.Session().Mode())
	h.runes(line)
	return h.key(tea.KeyEnter)
}

func (h *harness) submit(line string) {
	h.run(h.prompt(line))
}

func idDocs(n int) []db.Document {
	out := make([]db.Document, n)
	for i := range out {
		out[i] = db.Document{{Key: "_id", Value: int32(i + 1)}, {Key: "name", Value: "item"}}
	}
	return out
}

func blockingQueries(results map[string][]db.Document) func(context.Context, string, string) (db.Cursor, error) {
	return func(ctx context.Context, database, text string) (db.Cursor, error) {
		if strings.Contains(text, "slow") {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return db.NewSliceCursor(results[text], db.Namespace{Database: database, Collection: "items"}), nil
	}
}

func TestConnectUseAndQuery(t *testing.T) {
	client := &dbtest.Client{
		Collections: map[string][]string{"mydb": {"items"}},
		Results:     map[string][]db.Document{"{}": idDocs(3)},
	}
	hist := history.NewIndex(nil, nil)
	h := newHarness(t, client, hist)

	h.submit("connect " + testURI)
	conn := h.m.Session().Connection()
	require.NotNil(t, conn)
	assert.Equal(t, connection.DefaultDatabase, conn.Database)
	assert.Equal(t, session.ModeNormal, h.m.Session().Mode())
	assert.Contains(t, h.m.statusMsg, "connected to localhost:27017")

	h.submit("use mydb")
	assert.Equal(t, "mydb", h.m.Session().Connection().Database)
	require.NotNil(t, h.m.snapshot)
	assert.Equal(t, []string{"items"}, h.m.snapshot.CollectionsOf("mydb"))

	h.submit("{}")
	assert.Equal(t, session.ModeViewer, h.m.Session().Mode())
	assert.Len(t, h.m.docs, 3)
	assert.Equal(t, "{}", h.m.Session().LastQuery())
	assert.Equal(t, "3 documents", h.m.statusMsg)
	assert.Equal(t, []dbtest.QueryCall{{Database: "mydb", Text: "{}"}}, client.Queries())

	var texts []string
	for _, e := range hist.Entries() {
		texts = append(texts, e.Text)
	}
	assert.Equal(t, []string{"connect " + testURI, "use mydb", "{}"}, texts)

	view := h.m.View()
	assert.Contains(t, view, "VIEWER")
	assert.Contains(t, view, "mydb")
}

func TestQueryWithoutConnection(t *testing.T) {
	h := newHarness(t, &dbtest.Client{}, history.NewIndex(nil, nil))
	h.submit("db.items.find({})")
	assert.Equal(t, session.ModeNormal, h.m.Session().Mode())
	assert.Contains(t, h.m.errorMsg, "not connected")
	assert.Empty(t, h.m.Session().LastQuery())
	assert.Zero(t, h.hist.Len())
}

func TestFailedConnectKeepsPrevious(t *testing.T) {
	client := &dbtest.Client{}
	h := newHarness(t, client, history.NewIndex(nil, nil))
	h.submit("connect " + testURI)
	require.NotNil(t, h.m.Session().Connection())

	h.submit("connect !(exit 3)")
	assert.NotEmpty(t, h.m.errorMsg)
	conn := h.m.Session().Connection()
	require.NotNil(t, conn)
	assert.Equal(t, testURI, conn.URI)
	assert.False(t, client.Closed())
}

func TestSecondQuerySupersedesFirst(t *testing.T) {
	results := map[string][]db.Document{"db.items.find({})": idDocs(2)}
	client := &dbtest.Client{QueryFunc: blockingQueries(results)}
	h := newHarness(t, client, history.NewIndex(nil, nil))
	h.submit("connect " + testURI)

	slow := h.prompt(`db.slow.find({})`)
	require.True(t, h.m.Session().Tasks().Busy())
	done := make(chan []tea.Msg, 1)
	go func() { done <- collect(slow) }()

	h.submit("db.items.find({})")

	var stale []tea.Msg
	select {
	case stale = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("superseded query was not cancelled")
	}
	for _, msg := range stale {
		h.do(msg)
	}

	assert.Equal(t, "db.items.find({})", h.m.Session().LastQuery())
	assert.Equal(t, session.ModeViewer, h.m.Session().Mode())
	assert.Empty(t, h.m.errorMsg)
	assert.Len(t, h.m.docs, 2)
	assert.False(t, h.m.Session().Tasks().Busy())
}

func TestInterruptCancelsQuery(t *testing.T) {
	client := &dbtest.Client{QueryFunc: blockingQueries(nil)}
	h := newHarness(t, client, history.NewIndex(nil, nil))
	h.submit("connect " + testURI)

	slow := h.prompt(`db.slow.find({})`)
	done := make(chan []tea.Msg, 1)
	go func() { done <- collect(slow) }()

	cmd := h.key(tea.KeyCtrlC)
	assert.Nil(t, cmd)
	assert.Equal(t, "query cancelled", h.m.statusMsg)
	assert.Equal(t, session.ModeNormal, h.m.Session().Mode())

	select {
	case msgs := <-done:
		for _, msg := range msgs {
			h.do(msg)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("interrupt did not cancel the query")
	}
	assert.Empty(t, h.m.Session().LastQuery())
	assert.Nil(t, h.m.results)

	// Nothing left to cancel: interrupt quits.
	cmd = h.key(tea.KeyCtrlC)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestHistoryCycling(t *testing.T) {
	hist := history.NewIndex(nil, nil)
	require.NoError(t, hist.Append("db.a.find({})"))
	require.NoError(t, hist.Append("db.b.find({})"))
	h := newHarness(t, &dbtest.Client{}, hist)

	h.runes(":")
	h.key(tea.KeyUp)
	assert.Equal(t, "db.b.find({})", h.m.prompt.Value())
	h.key(tea.KeyUp)
	assert.Equal(t, "db.a.find({})", h.m.prompt.Value())
	h.key(tea.KeyDown)
	assert.Equal(t, "db.b.find({})", h.m.prompt.Value())

	h.key(tea.KeyEsc)
	h.key(tea.KeyEsc)
	assert.Equal(t, session.ModeNormal, h.m.Session().Mode())
	assert.Empty(t, h.m.prompt.Value())
}

func TestHistoryCyclingFiltersByTypedText(t *testing.T) {
	hist := history.NewIndex(nil, nil)
	require.NoError(t, hist.Append("use shop"))
	require.NoError(t, hist.Append("db.orders.find({})"))
	h := newHarness(t, &dbtest.Client{}, hist)

	h.runes(":")
	h.runes("shop")
	h.key(tea.KeyUp)
	assert.Equal(t, "use shop", h.m.prompt.Value())

	h.m.prompt.SetValue("zzz")
	h.key(tea.KeyUp)
	assert.Equal(t, "no matching history", h.m.statusMsg)
}

func TestDisabledHistory(t *testing.T) {
	client := &dbtest.Client{Results: map[string][]db.Document{"{}": idDocs(1)}}
	h := newHarness(t, client, nil)

	h.submit("connect " + testURI)
	h.submit("{}")
	assert.Equal(t, "{}", h.m.Session().LastQuery())

	h.runes(":")
	h.key(tea.KeyUp)
	assert.Empty(t, h.m.prompt.Value())
}

func TestUnknownCommandKeepsInput(t *testing.T) {
	h := newHarness(t, &dbtest.Client{}, history.NewIndex(nil, nil))
	h.run(h.prompt("frobnicate now"))
	assert.Equal(t, session.ModeCommand, h.m.Session().Mode())
	assert.Equal(t, "frobnicate now", h.m.prompt.Value())
	assert.Contains(t, h.m.errorMsg, "unknown command")
	assert.Zero(t, h.hist.Len())
}

func TestParseErrorKeepsInput(t *testing.T) {
	h := newHarness(t, &dbtest.Client{}, history.NewIndex(nil, nil))
	h.run(h.prompt("use a b"))
	assert.Equal(t, session.ModeCommand, h.m.Session().Mode())
	assert.Equal(t, "use a b", h.m.prompt.Value())
	assert.Contains(t, h.m.errorMsg, "single word")
	assert.Equal(t, 5, h.m.prompt.Position())
}

func TestRerunLastQuery(t *testing.T) {
	client := &dbtest.Client{Results: map[string][]db.Document{"db.items.find({})": idDocs(1)}}
	hist := history.NewIndex(nil, nil)
	h := newHarness(t, client, hist)

	h.do(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	assert.Equal(t, "no query to rerun", h.m.errorMsg)

	h.submit("connect " + testURI)
	h.submit("db.items.find({})")
	h.key(tea.KeyEsc)
	require.Equal(t, session.ModeNormal, h.m.Session().Mode())

	h.do(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	assert.Equal(t, session.ModeViewer, h.m.Session().Mode())
	assert.Len(t, client.Queries(), 2)
	// Reruns are not operator input.
	assert.Equal(t, 2, hist.Len())
}

func TestHelpPopup(t *testing.T) {
	h := newHarness(t, &dbtest.Client{}, nil)
	h.runes("?")
	assert.True(t, h.m.showHelpPopup)
	assert.Contains(t, h.m.View(), "Keyboard Shortcuts")
	h.key(tea.KeyEsc)
	assert.False(t, h.m.showHelpPopup)
	assert.True(t, h.m.popupStack.IsEmpty())
}

// openEditedDocument runs a query and opens its first document in the
// editor, returning the text the editor was given.
func openEditedDocument(t *testing.T, h *harness) (session.Task, string) {
	t.Helper()
	h.submit("connect " + testURI)
	h.submit("db.items.find({})")
	require.Equal(t, session.ModeViewer, h.m.Session().Mode())

	cmd := h.key(tea.KeyEnter)
	require.NotNil(t, cmd)
	require.Equal(t, session.ModeEditor, h.m.Session().Mode())
	task := h.m.Session().Tasks().Pending()
	require.NotNil(t, task)
	require.Equal(t, session.TaskEdit, task.Kind)

	before, err := editor.EditDocument(h.m.docs[0])
	require.NoError(t, err)
	return *task, before
}

func TestDocumentEditUnchanged(t *testing.T) {
	client := &dbtest.Client{Results: map[string][]db.Document{"db.items.find({})": idDocs(2)}}
	h := newHarness(t, client, nil)
	task, before := openEditedDocument(t, h)

	edit := &documentEdit{Index: 0, Original: h.m.docs[0], Namespace: h.m.results.Namespace, Conn: h.m.resultsConn, Result: h.m.results}
	h.do(EditorFinishedMsg{TaskID: task.ID, Kind: editor.Document, Before: before, Text: before, Edit: edit})

	assert.Equal(t, session.ModeViewer, h.m.Session().Mode())
	assert.Equal(t, "no changes", h.m.statusMsg)
	assert.Empty(t, client.Replaced())
}

func TestDocumentEditSaves(t *testing.T) {
	client := &dbtest.Client{Results: map[string][]db.Document{"db.items.find({})": idDocs(2)}}
	h := newHarness(t, client, nil)
	task, before := openEditedDocument(t, h)

	edit := &documentEdit{Index: 0, Original: h.m.docs[0], Namespace: h.m.results.Namespace, Conn: h.m.resultsConn, Result: h.m.results}
	after := `{"_id": 1, "name": "renamed"}`
	h.do(EditorFinishedMsg{TaskID: task.ID, Kind: editor.Document, Before: before, Text: after, Edit: edit})

	assert.Equal(t, session.ModeViewer, h.m.Session().Mode())
	assert.Equal(t, "document saved", h.m.statusMsg)
	replaced := client.Replaced()
	require.Len(t, replaced, 1)
	assert.Equal(t, db.Namespace{Database: connection.DefaultDatabase, Collection: "items"}, replaced[0].Namespace)
	assert.Equal(t, "renamed", h.m.docs[0].Map()["name"])
}

func TestDocumentEditRejectsChangedID(t *testing.T) {
	client := &dbtest.Client{Results: map[string][]db.Document{"db.items.find({})": idDocs(1)}}
	h := newHarness(t, client, nil)
	task, before := openEditedDocument(t, h)

	edit := &documentEdit{Index: 0, Original: h.m.docs[0], Namespace: h.m.results.Namespace, Conn: h.m.resultsConn, Result: h.m.results}
	h.do(EditorFinishedMsg{TaskID: task.ID, Kind: editor.Document, Before: before, Text: `{"_id": 99}`, Edit: edit})

	assert.NotEmpty(t, h.m.errorMsg)
	assert.Empty(t, client.Replaced())
}

func TestQueryEditorDispatches(t *testing.T) {
	client := &dbtest.Client{Results: map[string][]db.Document{"db.items.find({})": idDocs(1)}}
	hist := history.NewIndex(nil, nil)
	draft := editor.NewDraft(t.TempDir() + "/query.js")
	h := newHarness(t, client, hist, func(d *Deps) { d.Draft = draft })
	h.submit("connect " + testURI)

	cmd := h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("e")})
	require.NotNil(t, cmd)
	require.Equal(t, session.ModeEditor, h.m.Session().Mode())
	task := h.m.Session().Tasks().Pending()
	require.NotNil(t, task)

	h.do(EditorFinishedMsg{TaskID: task.ID, Kind: editor.Query, Text: "db.items.find({})\n"})
	assert.Equal(t, session.ModeViewer, h.m.Session().Mode())
	assert.Equal(t, "db.items.find({})", h.m.Session().LastQuery())

	saved, err := draft.Load()
	require.NoError(t, err)
	assert.Equal(t, "db.items.find({})\n", saved)
}

func TestStaleEditorResultReturnsToNormal(t *testing.T) {
	h := newHarness(t, &dbtest.Client{}, nil)
	cmd := h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("e")})
	require.NotNil(t, cmd)
	task := h.m.Session().Tasks().Pending()
	require.NotNil(t, task)
	h.m.Session().Tasks().Cancel()

	h.do(EditorFinishedMsg{TaskID: task.ID, Kind: editor.Query, Text: "{}"})
	assert.Equal(t, session.ModeNormal, h.m.Session().Mode())
	assert.Empty(t, h.m.Session().LastQuery())
}

func TestViewerFetchesNextPage(t *testing.T) {
	client := &dbtest.Client{Results: map[string][]db.Document{"db.items.find({})": idDocs(25)}}
	h := newHarness(t, client, nil)
	h.submit("connect " + testURI)
	h.submit("db.items.find({})")
	require.Len(t, h.m.docs, 10)
	assert.Equal(t, "10 documents, more available", h.m.statusMsg)

	h.run(h.runes("n"))
	assert.Len(t, h.m.docs, 20)
	assert.Equal(t, "20 documents, more available", h.m.statusMsg)

	h.run(h.runes("n"))
	assert.Len(t, h.m.docs, 25)
	assert.Equal(t, "25 documents", h.m.statusMsg)
	assert.Equal(t, int32(25), h.m.docs[24].Map()["_id"])
	assert.False(t, h.m.Session().Tasks().Busy())

	h.run(h.runes("n"))
	assert.Len(t, h.m.docs, 25)
	assert.Equal(t, "no more documents", h.m.statusMsg)
	assert.Len(t, client.Queries(), 1)
}

// stallingCursor blocks on the document at index stallAt until the context
// passed to Next is done.
type stallingCursor struct {
	*db.SliceCursor
	served  int
	stallAt int
	stalled chan struct{}
}

func (c *stallingCursor) Next(ctx context.Context) bool {
	if c.served == c.stallAt {
		c.stallAt = -1
		close(c.stalled)
		<-ctx.Done()
		return false
	}
	if !c.SliceCursor.Next(ctx) {
		return false
	}
	c.served++
	return true
}

func TestLeavingViewerDuringFetchKeepsPulledDocuments(t *testing.T) {
	cur := &stallingCursor{
		SliceCursor: db.NewSliceCursor(idDocs(25), db.Namespace{Database: "admin", Collection: "items"}),
		stallAt:     13,
		stalled:     make(chan struct{}),
	}
	client := &dbtest.Client{QueryFunc: func(ctx context.Context, database, text string) (db.Cursor, error) {
		return cur, nil
	}}
	h := newHarness(t, client, nil)
	h.submit("connect " + testURI)
	h.submit("db.items.find({})")
	require.Len(t, h.m.docs, 10)

	fetch := h.runes("n")
	require.True(t, h.m.Session().Tasks().Busy())
	done := make(chan []tea.Msg, 1)
	go func() { done <- collect(fetch) }()

	select {
	case <-cur.stalled:
	case <-time.After(5 * time.Second):
		t.Fatal("fetch never reached the cursor")
	}
	h.key(tea.KeyEsc)
	require.Equal(t, session.ModeNormal, h.m.Session().Mode())

	select {
	case msgs := <-done:
		for _, msg := range msgs {
			h.do(msg)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("leaving the viewer did not cancel the fetch")
	}

	assert.Len(t, h.m.docs, 13)
	assert.Equal(t, int32(13), h.m.docs[12].Map()["_id"])
	assert.True(t, h.m.results.Truncated())
	assert.Equal(t, "13 documents, fetch cancelled before the end", h.m.statusMsg)
	assert.Empty(t, h.m.errorMsg)

	h.runes("v")
	require.Equal(t, session.ModeViewer, h.m.Session().Mode())
	h.run(h.runes("n"))
	assert.Len(t, h.m.docs, 13)
	assert.Equal(t, "no more documents", h.m.statusMsg)
}

func TestViewerRefreshRerunsQuery(t *testing.T) {
	client := &dbtest.Client{Results: map[string][]db.Document{"db.items.find({})": idDocs(3)}}
	hist := history.NewIndex(nil, nil)
	h := newHarness(t, client, hist)
	h.submit("connect " + testURI)
	h.submit("db.items.find({})")
	first := h.m.results

	h.run(h.runes("r"))
	assert.Equal(t, session.ModeViewer, h.m.Session().Mode())
	assert.NotSame(t, first, h.m.results)
	assert.Equal(t, "db.items.find({})", h.m.results.Query)
	assert.Len(t, h.m.docs, 3)
	assert.Equal(t, []dbtest.QueryCall{
		{Database: connection.DefaultDatabase, Text: "db.items.find({})"},
		{Database: connection.DefaultDatabase, Text: "db.items.find({})"},
	}, client.Queries())
	assert.Equal(t, 2, hist.Len())
}

func TestBrowseCollectionSwitchesDatabaseOnSuccess(t *testing.T) {
	client := &dbtest.Client{
		Collections: map[string][]string{"shop": {"orders"}},
		Results:     map[string][]db.Document{`db.getCollection("orders").find({})`: idDocs(2)},
	}
	h := newHarness(t, client, nil)
	h.submit("connect " + testURI)

	m, cmd := h.m.browseCollection("shop", "orders")
	h.m = m
	assert.Equal(t, connection.DefaultDatabase, h.m.Session().Connection().Database)
	h.run(cmd)

	assert.Equal(t, "shop", h.m.Session().Connection().Database)
	assert.Equal(t, session.ModeViewer, h.m.Session().Mode())
	assert.Equal(t, db.Namespace{Database: "shop", Collection: "orders"}, h.m.results.Namespace)
	assert.Equal(t, []dbtest.QueryCall{{Database: "shop", Text: `db.getCollection("orders").find({})`}}, client.Queries())
}

func TestBrowseCollectionFailureKeepsDatabase(t *testing.T) {
	h := newHarness(t, &dbtest.Client{}, nil)
	h.submit("connect " + testURI)

	m, cmd := h.m.browseCollection("shop", "missing")
	h.m = m
	h.run(cmd)

	assert.NotEmpty(t, h.m.errorMsg)
	assert.Equal(t, connection.DefaultDatabase, h.m.Session().Connection().Database)
	assert.Nil(t, h.m.results)
}
