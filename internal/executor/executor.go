// Package executor runs raw queries against the active connection and pages
// through their results.
package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/nhath/ezmongo/internal/connection"
	"github.com/nhath/ezmongo/internal/db"
	"github.com/nhath/ezmongo/internal/grammar"
)

// DefaultPageSize is how many documents are fetched at a time.
const DefaultPageSize = 100

// closeTimeout bounds closing a cursor whose fetch was cancelled.
const closeTimeout = 5 * time.Second

// ErrNotAQuery is returned for commands other than raw queries.
var ErrNotAQuery = errors.New("not a query")

// ExecutionError wraps a failure reported by the database or by query
// evaluation.
type ExecutionError struct {
	Query string
	Err   error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution failed: %v", e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// Executor runs queries. It is stateless and safe for concurrent use.
type Executor struct {
	pageSize int
	timeout  time.Duration
	log      *zap.Logger
}

// Option configures an Executor.
type Option func(*Executor)

func WithPageSize(n int) Option { return func(e *Executor) { e.pageSize = n } }

// WithTimeout bounds how long the initial query may take.
func WithTimeout(d time.Duration) Option { return func(e *Executor) { e.timeout = d } }

func WithLogger(log *zap.Logger) Option { return func(e *Executor) { e.log = log } }

func New(opts ...Option) *Executor {
	e := &Executor{pageSize: DefaultPageSize, log: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	if e.pageSize <= 0 {
		e.pageSize = DefaultPageSize
	}
	return e
}

// PageSize returns the page size results are fetched with.
func (e *Executor) PageSize() int { return e.pageSize }

// Result is an executed query with its first page. Later pages are pulled
// with Fetch; fetches and Close are serialized.
type Result struct {
	Query     string
	Namespace db.Namespace
	Started   time.Time
	Elapsed   time.Duration
	First     []db.Document

	mu        sync.Mutex
	cursor    db.Cursor
	exhausted atomic.Bool
	truncated atomic.Bool
}

// Execute runs cmd, which must be a RawQuery, against the active database of
// conn and fetches the first page. conn is only borrowed for the call.
func (e *Executor) Execute(ctx context.Context, cmd grammar.Command, conn *connection.Connection) (*Result, error) {
	q, ok := cmd.(grammar.RawQuery)
	if !ok {
		return nil, &ExecutionError{Err: ErrNotAQuery}
	}
	if conn == nil || conn.Client == nil {
		return nil, &connection.Error{Kind: connection.NotConnected}
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()
	cur, err := conn.Client.Query(ctx, conn.Database, q.Text)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &ExecutionError{Query: q.Text, Err: err}
	}

	r := &Result{Query: q.Text, Namespace: cur.Namespace(), Started: start, cursor: cur}
	first, err := r.Fetch(ctx, e.pageSize)
	if err != nil {
		r.Close(context.Background())
		return nil, err
	}
	r.First = first
	r.Elapsed = time.Since(start)
	e.log.Debug("query executed",
		zap.String("database", conn.Database),
		zap.Int("documents", len(first)),
		zap.Bool("exhausted", r.Exhausted()),
		zap.Duration("took", r.Elapsed),
	)
	return r, nil
}

// Fetch pulls up to n more documents. Once the cursor is drained it is closed
// and Exhausted reports true.
//
// Documents pulled before a failure are returned along with the error. A
// cancelled fetch leaves the cursor at an unknown position, so the result is
// closed and Truncated reports true.
func (r *Result) Fetch(ctx context.Context, n int) ([]db.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.exhausted.Load() {
		return nil, nil
	}
	docs := make([]db.Document, 0, n)
	for len(docs) < n {
		if !r.cursor.Next(ctx) {
			if err := ctx.Err(); err != nil {
				r.truncated.Store(true)
				closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
				defer cancel()
				r.close(closeCtx)
				return docs, err
			}
			if err := r.cursor.Err(); err != nil {
				return docs, &ExecutionError{Query: r.Query, Err: err}
			}
			r.close(ctx)
			break
		}
		docs = append(docs, r.cursor.Current())
	}
	return docs, nil
}

// Exhausted reports whether no more documents can be fetched.
func (r *Result) Exhausted() bool { return r.exhausted.Load() }

// Truncated reports whether a cancelled fetch ended the result early.
func (r *Result) Truncated() bool { return r.truncated.Load() }

// Close releases the cursor. It is safe to call more than once.
func (r *Result) Close(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.close(ctx)
}

func (r *Result) close(ctx context.Context) error {
	if r.exhausted.Swap(true) {
		return nil
	}
	return r.cursor.Close(ctx)
}
