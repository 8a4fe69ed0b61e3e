// internal/db/client.go
package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// Document is one ordered database document
type Document = bson.D

// Namespace identifies the collection a result came from. Results with an
// empty Collection do not map back to stored documents and cannot be edited.
type Namespace struct {
	Database   string
	Collection string
}

// Editable reports whether documents of this namespace can be replaced
func (n Namespace) Editable() bool { return n.Database != "" && n.Collection != "" }

func (n Namespace) String() string {
	if n.Collection == "" {
		return n.Database
	}
	return fmt.Sprintf("%s.%s", n.Database, n.Collection)
}

// Cursor iterates query results lazily
type Cursor interface {
	Next(ctx context.Context) bool
	Current() Document
	Err() error
	Close(ctx context.Context) error
	Namespace() Namespace
}

// Client is an open database connection
type Client interface {
	Ping(ctx context.Context) error
	Query(ctx context.Context, database, text string) (Cursor, error)
	ListDatabases(ctx context.Context) ([]string, error)
	ListCollections(ctx context.Context, database string) ([]string, error)
	ReplaceDocument(ctx context.Context, ns Namespace, doc Document) error
	Close(ctx context.Context) error
}

// DialOptions holds connection details that are not part of the URI
type DialOptions struct {
	Timeout   time.Duration
	PageSize  int
	SSHConfig *SSHConfig // Optional SSH tunnel config
	Log       *zap.Logger
}

// Dialer opens clients
type Dialer interface {
	Dial(ctx context.Context, uri string, opts DialOptions) (Client, error)
}

// DialerFunc adapts a function to Dialer
type DialerFunc func(ctx context.Context, uri string, opts DialOptions) (Client, error)

func (f DialerFunc) Dial(ctx context.Context, uri string, opts DialOptions) (Client, error) {
	return f(ctx, uri, opts)
}

// SliceCursor serves documents already held in memory
type SliceCursor struct {
	docs []Document
	ns   Namespace
	i    int
	err  error
}

// NewSliceCursor returns a cursor over docs
func NewSliceCursor(docs []Document, ns Namespace) *SliceCursor {
	return &SliceCursor{docs: docs, ns: ns, i: -1}
}

func (c *SliceCursor) Next(ctx context.Context) bool {
	if err := ctx.Err(); err != nil {
		c.err = err
		return false
	}
	if c.i+1 >= len(c.docs) {
		return false
	}
	c.i++
	return true
}

func (c *SliceCursor) Current() Document {
	if c.i < 0 || c.i >= len(c.docs) {
		return nil
	}
	return c.docs[c.i]
}

func (c *SliceCursor) Err() error { return c.err }

func (c *SliceCursor) Close(context.Context) error {
	c.i = len(c.docs)
	return nil
}

func (c *SliceCursor) Namespace() Namespace { return c.ns }
