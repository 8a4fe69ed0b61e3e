package connection

import (
	"errors"
	"fmt"

	"github.com/nhath/ezmongo/internal/db"
)

// Kind classifies connection failures.
type Kind int

const (
	Unreachable Kind = iota
	AuthFailed
	SubstitutionFailed
	NotConnected
	InvalidDatabase
)

func (k Kind) String() string {
	switch k {
	case Unreachable:
		return "unreachable"
	case AuthFailed:
		return "authentication failed"
	case SubstitutionFailed:
		return "substitution failed"
	case NotConnected:
		return "not connected"
	case InvalidDatabase:
		return "invalid database"
	}
	return "connection error"
}

// Error is a connection failure. URI is always redacted.
type Error struct {
	Kind Kind
	URI  string
	Err  error
}

// Sentinels for errors.Is.
var (
	ErrUnreachable        = &Error{Kind: Unreachable}
	ErrAuthFailed         = &Error{Kind: AuthFailed}
	ErrSubstitutionFailed = &Error{Kind: SubstitutionFailed}
	ErrNotConnected       = &Error{Kind: NotConnected}
	ErrInvalidDatabase    = &Error{Kind: InvalidDatabase}
)

func (e *Error) Error() string {
	switch {
	case e.URI != "" && e.Err != nil:
		return fmt.Sprintf("%s (%s): %v", e.Kind, e.URI, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.URI != "":
		return fmt.Sprintf("%s (%s)", e.Kind, e.URI)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinels by kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Err == nil && t.URI == "" && t.Kind == e.Kind
}

func dialError(uri string, err error) *Error {
	kind := Unreachable
	var ce *db.ConnectionError
	if errors.As(err, &ce) && ce.Auth {
		kind = AuthFailed
	}
	return &Error{Kind: kind, URI: db.RedactURI(uri), Err: err}
}
