package editor

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// Draft keeps the last authored query between runs.
type Draft struct {
	path string
}

// DefaultDraftPath returns the XDG state path of the query draft.
func DefaultDraftPath() (string, error) {
	return xdg.StateFile("ezmongo/query.js")
}

func NewDraft(path string) *Draft { return &Draft{path: path} }

// Load returns the saved draft, or "" when there is none.
func (d *Draft) Load() (string, error) {
	data, err := os.ReadFile(d.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	return string(data), err
}

// Save replaces the draft.
func (d *Draft) Save(text string) error {
	if err := os.MkdirAll(filepath.Dir(d.path), 0700); err != nil {
		return err
	}
	return os.WriteFile(d.path, []byte(text), 0600)
}
