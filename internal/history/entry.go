// internal/history/entry.go
package history

import (
	"fmt"
	"time"
)

// Entry is one successfully dispatched command
type Entry struct {
	Text      string    `json:"text"`
	Timestamp time.Time `json:"ts"`
	Session   string    `json:"session,omitempty"`
}

// Preview returns a truncated single-line version of the command
func (e Entry) Preview(maxLen int) string {
	q := []rune(flatten(e.Text))
	if len(q) > maxLen && maxLen > 3 {
		return string(q[:maxLen-3]) + "..."
	}
	return string(q)
}

func flatten(s string) string {
	out := make([]rune, 0, len(s))
	space := false
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' || r == ' ' {
			if !space && len(out) > 0 {
				out = append(out, ' ')
			}
			space = true
			continue
		}
		space = false
		out = append(out, r)
	}
	if n := len(out); n > 0 && out[n-1] == ' ' {
		out = out[:n-1]
	}
	return string(out)
}

// PersistError is returned when an entry could not be written to disk.
// The entry is still kept in memory.
type PersistError struct {
	Path string
	Err  error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist history to %s: %v", e.Path, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }
