package session

import (
	"github.com/nhath/ezmongo/internal/connection"
	"github.com/nhath/ezmongo/internal/history"
)

// Session is the live state of one run. It is owned by the event loop and
// never shared across goroutines; background tasks receive copies of what
// they need.
type Session struct {
	Connections *connection.Manager
	History     *history.Index

	mode      Mode
	lastQuery string
	tasks     Tasks
}

func New(connections *connection.Manager, hist *history.Index) *Session {
	return &Session{Connections: connections, History: hist}
}

// Mode returns the current mode.
func (s *Session) Mode() Mode { return s.mode }

// Transition moves to mode to. The mode is unchanged on error.
func (s *Session) Transition(to Mode) error {
	if !CanTransition(s.mode, to) {
		return &TransitionError{From: s.mode, To: to}
	}
	s.mode = to
	return nil
}

// Connection returns the active connection snapshot, or nil.
func (s *Session) Connection() *connection.Connection {
	if s.Connections == nil {
		return nil
	}
	return s.Connections.Current()
}

// LastQuery returns the most recent query that executed successfully.
func (s *Session) LastQuery() string { return s.lastQuery }

// RecordQuery marks text as successfully executed. Failed and cancelled
// executions must not be recorded.
func (s *Session) RecordQuery(text string) { s.lastQuery = text }

// Tasks returns the background task tracker.
func (s *Session) Tasks() *Tasks { return &s.tasks }
