// Package dbtest provides in-memory implementations of the db interfaces
// for tests.
package dbtest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/nhath/ezmongo/internal/db"
	"github.com/nhath/ezmongo/internal/grammar"
)

// QueryCall records one Query invocation.
type QueryCall struct {
	Database string
	Text     string
}

// Replace records one ReplaceDocument invocation.
type Replace struct {
	Namespace db.Namespace
	Doc       db.Document
}

// Client is a scripted db.Client.
type Client struct {
	// Collections maps database names to their collections.
	Collections map[string][]string
	// Results maps query text to the documents it returns.
	Results map[string][]db.Document
	// QueryFunc, when set, answers every query.
	QueryFunc  func(ctx context.Context, database, text string) (db.Cursor, error)
	PingErr    error
	ReplaceErr error

	mu       sync.Mutex
	queries  []QueryCall
	replaced []Replace
	closed   bool
}

func (c *Client) Ping(ctx context.Context) error { return c.PingErr }

func (c *Client) Query(ctx context.Context, database, text string) (db.Cursor, error) {
	c.mu.Lock()
	c.queries = append(c.queries, QueryCall{Database: database, Text: text})
	fn := c.QueryFunc
	docs, ok := c.Results[text]
	c.mu.Unlock()

	if fn != nil {
		return fn(ctx, database, text)
	}
	if !ok {
		return nil, db.WrapQueryError(fmt.Errorf("no scripted result for %q", text))
	}
	return db.NewSliceCursor(docs, NamespaceOf(database, text)), nil
}

// NamespaceOf names the collection text queries, or "scripted" when the
// text is not a collection query.
func NamespaceOf(database, text string) db.Namespace {
	ns := db.Namespace{Database: database, Collection: "scripted"}
	if q, err := grammar.ParseQuery(text); err == nil && q.Kind == grammar.QueryCollection {
		ns.Collection = q.Collection
	}
	return ns
}

func (c *Client) ListDatabases(ctx context.Context) ([]string, error) {
	names := make([]string, 0, len(c.Collections))
	for name := range c.Collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (c *Client) ListCollections(ctx context.Context, database string) ([]string, error) {
	return append([]string(nil), c.Collections[database]...), nil
}

func (c *Client) ReplaceDocument(ctx context.Context, ns db.Namespace, doc db.Document) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ReplaceErr != nil {
		return c.ReplaceErr
	}
	c.replaced = append(c.replaced, Replace{Namespace: ns, Doc: doc})
	return nil
}

func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// Closed reports whether Close was called.
func (c *Client) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Queries returns the queries received so far.
func (c *Client) Queries() []QueryCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]QueryCall(nil), c.queries...)
}

// Replaced returns the documents replaced so far.
func (c *Client) Replaced() []Replace {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Replace(nil), c.replaced...)
}

// Dialer hands out scripted clients by URI.
type Dialer struct {
	// Clients maps a URI to the client dialing it returns. Unknown URIs get
	// a fresh empty client.
	Clients map[string]*Client
	// Errs maps a URI to the error dialing it returns.
	Errs map[string]error

	mu     sync.Mutex
	dialed []string
	opts   []db.DialOptions
}

func (d *Dialer) Dial(ctx context.Context, uri string, opts db.DialOptions) (db.Client, error) {
	d.mu.Lock()
	d.dialed = append(d.dialed, uri)
	d.opts = append(d.opts, opts)
	err := d.Errs[uri]
	c, ok := d.Clients[uri]
	if !ok && err == nil {
		c = &Client{}
		if d.Clients == nil {
			d.Clients = make(map[string]*Client)
		}
		d.Clients[uri] = c
	}
	d.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, db.WrapConnectionError(err)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Dialed returns the URIs dialed so far.
func (d *Dialer) Dialed() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.dialed...)
}

// LastOptions returns the options of the most recent dial.
func (d *Dialer) LastOptions() (db.DialOptions, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.opts) == 0 {
		return db.DialOptions{}, errors.New("nothing dialed")
	}
	return d.opts[len(d.opts)-1], nil
}
