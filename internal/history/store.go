// internal/history/store.go
package history

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/adrg/xdg"
)

// maxLine caps a stored entry. Longer lines are not written and are skipped
// when loading.
const maxLine = 1 << 20

// ErrEntryTooLong is returned by Append for entries over maxLine bytes.
var ErrEntryTooLong = errors.New("history entry too long")

// Store persists history as JSON lines, one entry per line
type Store struct {
	path string
	mu   sync.Mutex
}

// DefaultPath returns the XDG-compliant history file path
func DefaultPath() (string, error) {
	return xdg.DataFile("ezmongo/command_history.jsonl")
}

// NewStore creates a store backed by path. The file is created on first append.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file
func (s *Store) Path() string { return s.path }

// Load returns the last limit entries (all when limit <= 0). A missing file
// is an empty history. Lines that are not JSON objects are taken as plain
// command text; malformed and over-long lines are skipped.
func (s *Store) Load(limit int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &PersistError{Path: s.path, Err: err}
	}
	defer f.Close()

	var out []Entry
	r := bufio.NewReader(f)
	for {
		raw, err := r.ReadBytes('\n')
		if len(raw) <= maxLine {
			if e, ok := parseLine(string(raw)); ok {
				out = append(out, e)
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &PersistError{Path: s.path, Err: err}
		}
	}

	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func parseLine(line string) (Entry, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Entry{}, false
	}
	if !strings.HasPrefix(line, "{") {
		return Entry{Text: line}, true
	}
	var e Entry
	if err := json.Unmarshal([]byte(line), &e); err != nil || e.Text == "" {
		return Entry{}, false
	}
	return e, true
}

// Append writes e as one line at the end of the file
func (s *Store) Append(e Entry) error {
	line, err := json.Marshal(e)
	if err != nil {
		return &PersistError{Path: s.path, Err: err}
	}
	if len(line) >= maxLine {
		return &PersistError{Path: s.path, Err: ErrEntryTooLong}
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return &PersistError{Path: s.path, Err: err}
	}
	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		return &PersistError{Path: s.path, Err: err}
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return &PersistError{Path: s.path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &PersistError{Path: s.path, Err: err}
	}
	return nil
}
