// Package connection owns the active database connection: resolving URIs
// (including !( ) shell substitution), opening clients and switching the
// active database.
package connection

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/nhath/ezmongo/internal/db"
	"github.com/nhath/ezmongo/internal/grammar"
)

// DefaultDatabase is used when the URI names none.
const DefaultDatabase = "test"

// Status of the manager's connection.
type Status int

const (
	Disconnected Status = iota
	Connecting
	Connected
)

func (s Status) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	}
	return "disconnected"
}

// Connection is an immutable snapshot of an open connection. Switching the
// database produces a new snapshot sharing the same client.
type Connection struct {
	URI      string
	Database string
	Profile  string
	Client   db.Client
}

// Redacted returns the URI with its password hidden.
func (c *Connection) Redacted() string { return db.RedactURI(c.URI) }

// WithDatabase returns a copy using database name.
func (c *Connection) WithDatabase(name string) *Connection {
	next := *c
	next.Database = name
	return &next
}

// Profile is a named connection target from the configuration.
type Profile struct {
	Name string
	URI  string
	SSH  *db.SSHConfig
}

// Manager resolves, opens and activates connections. Open may run on any
// goroutine; Activate, SwitchDatabase and Close are meant for the single
// event loop that owns the session.
type Manager struct {
	dialer   db.Dialer
	runner   Runner
	shell    string
	timeout  time.Duration
	pageSize int
	profiles map[string]Profile
	log      *zap.Logger

	mu      sync.RWMutex
	current *Connection
	opening atomic.Int32
}

// Option configures a Manager.
type Option func(*Manager)

func WithRunner(r Runner) Option { return func(m *Manager) { m.runner = r } }

func WithShell(shell string) Option { return func(m *Manager) { m.shell = shell } }

func WithTimeout(d time.Duration) Option { return func(m *Manager) { m.timeout = d } }

func WithPageSize(n int) Option { return func(m *Manager) { m.pageSize = n } }

func WithLogger(log *zap.Logger) Option { return func(m *Manager) { m.log = log } }

func WithProfiles(profiles []Profile) Option {
	return func(m *Manager) {
		for _, p := range profiles {
			m.profiles[p.Name] = p
		}
	}
}

// NewManager returns a disconnected manager.
func NewManager(dialer db.Dialer, opts ...Option) *Manager {
	m := &Manager{
		dialer:   dialer,
		runner:   ShellRunner{},
		shell:    "sh",
		profiles: make(map[string]Profile),
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ResolveURI returns the URI a source denotes. A literal is returned as is;
// a substitution runs through the shell and its trimmed stdout is the URI.
// Non-zero exit or empty output is a SubstitutionFailed error.
func (m *Manager) ResolveURI(ctx context.Context, src grammar.URISource) (string, error) {
	switch s := src.(type) {
	case grammar.Literal:
		return s.URI, nil
	case grammar.ShellSubstitution:
		out, err := m.runner.Run(ctx, m.shell, s.Command)
		if err != nil {
			m.log.Debug("substitution failed", zap.String("command", s.Command), zap.Error(err))
			return "", &Error{Kind: SubstitutionFailed, Err: err}
		}
		uri := strings.TrimSpace(string(out))
		if uri == "" {
			return "", &Error{Kind: SubstitutionFailed, Err: errors.New("command produced no output")}
		}
		return uri, nil
	}
	return "", &Error{Kind: SubstitutionFailed, Err: errors.New("unknown URI source")}
}

// Open resolves src and dials it without touching the active connection.
func (m *Manager) Open(ctx context.Context, src grammar.URISource) (*Connection, error) {
	m.opening.Add(1)
	defer m.opening.Add(-1)

	uri, err := m.ResolveURI(ctx, src)
	if err != nil {
		return nil, err
	}

	opts := db.DialOptions{Timeout: m.timeout, PageSize: m.pageSize, Log: m.log}
	var profile string
	if p, ok := m.profiles[uri]; ok && !strings.Contains(uri, "://") {
		profile = p.Name
		uri = p.URI
		opts.SSHConfig = p.SSH
	}

	dialCtx := ctx
	if m.timeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	m.log.Info("connecting", zap.String("uri", db.RedactURI(uri)), zap.String("profile", profile))
	client, err := m.dialer.Dial(dialCtx, uri, opts)
	if err != nil {
		return nil, dialError(uri, err)
	}

	database := db.DatabaseFromURI(uri)
	if database == "" {
		database = DefaultDatabase
	}
	return &Connection{URI: uri, Database: database, Profile: profile, Client: client}, nil
}

// Activate makes c the active connection and returns the one it replaced,
// which the caller must close.
func (m *Manager) Activate(c *Connection) *Connection {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev := m.current
	m.current = c
	return prev
}

// Connect opens src and activates it, closing the previous connection. On
// failure the active connection is left untouched.
func (m *Manager) Connect(ctx context.Context, src grammar.URISource) (*Connection, error) {
	c, err := m.Open(ctx, src)
	if err != nil {
		return nil, err
	}
	if prev := m.Activate(c); prev != nil {
		m.Release(ctx, prev)
	}
	return c, nil
}

// Release closes a connection that is no longer active.
func (m *Manager) Release(ctx context.Context, c *Connection) {
	if c == nil || c.Client == nil {
		return
	}
	if err := c.Client.Close(ctx); err != nil {
		m.log.Warn("closing connection", zap.String("uri", c.Redacted()), zap.Error(err))
	}
}

// SwitchDatabase changes the active database. Only the database changes.
func (m *Manager) SwitchDatabase(name string) (*Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil, &Error{Kind: NotConnected}
	}
	if err := ValidateDatabaseName(name); err != nil {
		return nil, &Error{Kind: InvalidDatabase, Err: err}
	}
	m.current = m.current.WithDatabase(name)
	return m.current, nil
}

// Current returns the active connection, or nil.
func (m *Manager) Current() *Connection {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Status reports whether a connection is active or being opened.
func (m *Manager) Status() Status {
	if m.opening.Load() > 0 {
		return Connecting
	}
	if m.Current() != nil {
		return Connected
	}
	return Disconnected
}

// Close closes the active connection.
func (m *Manager) Close(ctx context.Context) {
	m.Release(ctx, m.Activate(nil))
}

// ValidateDatabaseName applies the server's naming rules.
func ValidateDatabaseName(name string) error {
	switch {
	case name == "":
		return errors.New("database name is empty")
	case len(name) >= 64:
		return errors.New("database name is too long")
	case strings.ContainsAny(name, "/\\. \"$\x00"):
		return errors.New(`database name must not contain any of /\. "$`)
	}
	return nil
}
