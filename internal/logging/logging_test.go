package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDisabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debug.log")
	log, err := New(false, path, "tui")
	require.NoError(t, err)
	log.Info("dropped")
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestNewWritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "debug.log")
	log, err := New(true, path, "lsp")
	require.NoError(t, err)
	log.Debug("hello")
	log.Info("world")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "hello", rec["msg"])
	assert.Equal(t, "lsp", rec["component"])
}
