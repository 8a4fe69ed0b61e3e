// Package logging builds the debug logger. Without --debug nothing is logged
// since the terminal belongs to the UI (or, for the language service, to the
// protocol).
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultPath returns the per-operator debug log path.
func DefaultPath() (string, error) {
	return xdg.StateFile("ezmongo/debug.log")
}

// New returns a JSON-lines logger appending to path when debug is set, and a
// no-op logger otherwise. component is attached to every record.
func New(debug bool, path, component string) (*zap.Logger, error) {
	if !debug {
		return zap.NewNop(), nil
	}
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, fmt.Errorf("resolving log path: %w", err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	config.OutputPaths = []string{path}
	config.ErrorOutputPaths = []string{path}
	config.Sampling = nil
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger.With(zap.String("component", component), zap.Int("pid", os.Getpid())), nil
}
