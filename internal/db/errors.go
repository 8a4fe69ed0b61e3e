// internal/db/errors.go
package db

import (
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
)

// ErrDocumentNotFound is returned when a replace matched no document
var ErrDocumentNotFound = errors.New("document not found")

// ConnectionError wraps database connection failures
type ConnectionError struct {
	Underlying error
	// Auth is set when the server rejected the credentials
	Auth bool
}

func (e *ConnectionError) Error() string {
	if e.Auth {
		return fmt.Sprintf("authentication failed: %v", e.Underlying)
	}
	return fmt.Sprintf("connection failed: %v", e.Underlying)
}

func (e *ConnectionError) Unwrap() error { return e.Underlying }

// QueryError wraps query execution failures
type QueryError struct {
	Underlying error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query failed: %v", e.Underlying)
}

func (e *QueryError) Unwrap() error { return e.Underlying }

// WrapConnectionError creates a ConnectionError from underlying error
func WrapConnectionError(err error) error {
	return &ConnectionError{Underlying: err, Auth: isAuthError(err)}
}

// WrapQueryError creates a QueryError from underlying error
func WrapQueryError(err error) error {
	return &QueryError{Underlying: err}
}

// authenticationFailed is the server error code for bad credentials
const authenticationFailed = 18

func isAuthError(err error) bool {
	if err == nil {
		return false
	}
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.Code == authenticationFailed {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "authentication failed") || strings.Contains(msg, "auth error")
}
