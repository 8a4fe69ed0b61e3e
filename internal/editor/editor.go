// Package editor hands text to the operator's external editor through a
// temporary file and reads it back.
package editor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// Kind selects the buffer flavour, which decides the file suffix so editors
// pick the right syntax (and language server).
type Kind int

const (
	Query Kind = iota
	Document
)

func (k Kind) suffix() string {
	if k == Document {
		return ".json"
	}
	return ".js"
}

func (k Kind) String() string {
	if k == Document {
		return "document"
	}
	return "query"
}

// ErrorKind classifies editor failures.
type ErrorKind int

const (
	Unavailable ErrorKind = iota
	NonZeroExit
	ReadbackFailed
	InvalidDocument
)

func (k ErrorKind) String() string {
	switch k {
	case Unavailable:
		return "editor unavailable"
	case NonZeroExit:
		return "editor failed"
	case ReadbackFailed:
		return "cannot read edited buffer"
	case InvalidDocument:
		return "invalid document"
	}
	return "editor error"
}

// Error is an editor failure.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrUnchanged is returned when the operator saved without modifying the buffer.
var ErrUnchanged = errors.New("no changes")

// Bridge launches the configured editor.
type Bridge struct {
	argv   []string
	err    error
	tmpDir string
	log    *zap.Logger
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithTempDir places buffers in dir instead of the system temp directory.
func WithTempDir(dir string) Option { return func(b *Bridge) { b.tmpDir = dir } }

func WithLogger(log *zap.Logger) Option { return func(b *Bridge) { b.log = log } }

// New returns a bridge for the editor named by override, or else $VISUAL,
// or else $EDITOR. The value may carry arguments ("code --wait").
func New(override string, opts ...Option) *Bridge {
	b := &Bridge{log: zap.NewNop()}
	for _, opt := range opts {
		opt(b)
	}
	b.argv, b.err = resolve(override, os.Getenv)
	return b
}

func resolve(override string, getenv func(string) string) ([]string, error) {
	for _, candidate := range []string{override, getenv("VISUAL"), getenv("EDITOR")} {
		if argv := strings.Fields(candidate); len(argv) > 0 {
			if _, err := exec.LookPath(argv[0]); err != nil {
				return nil, &Error{Kind: Unavailable, Err: err}
			}
			return argv, nil
		}
	}
	return nil, &Error{Kind: Unavailable, Err: errors.New("set $EDITOR or editor in the config file")}
}

// Available reports whether an editor was found.
func (b *Bridge) Available() error { return b.err }

// Buffer is one pending round trip. Finish must be called exactly once.
type Buffer struct {
	Path     string
	Kind     Kind
	original string
	argv     []string
	log      *zap.Logger
}

// Prepare writes content to a fresh temporary file.
func (b *Bridge) Prepare(content string, kind Kind) (*Buffer, error) {
	if b.err != nil {
		return nil, b.err
	}
	f, err := os.CreateTemp(b.tmpDir, "ezmongo-*"+kind.suffix())
	if err != nil {
		return nil, &Error{Kind: ReadbackFailed, Err: err}
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, &Error{Kind: ReadbackFailed, Err: err}
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return nil, &Error{Kind: ReadbackFailed, Err: err}
	}
	return &Buffer{Path: f.Name(), Kind: kind, original: content, argv: b.argv, log: b.log}, nil
}

// Command returns the editor process for this buffer. Its stdio is left for
// the caller (or the terminal program) to attach.
func (buf *Buffer) Command(ctx context.Context) *exec.Cmd {
	args := append(append([]string(nil), buf.argv[1:]...), buf.Path)
	return exec.CommandContext(ctx, buf.argv[0], args...)
}

// Finish reads the buffer back after the editor exited with runErr and
// removes the temporary file in every case.
func (buf *Buffer) Finish(runErr error) (string, error) {
	defer func() {
		if err := os.Remove(buf.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			buf.log.Warn("removing editor buffer", zap.String("path", buf.Path), zap.Error(err))
		}
	}()
	if runErr != nil {
		return "", &Error{Kind: NonZeroExit, Err: runErr}
	}
	data, err := os.ReadFile(buf.Path)
	if err != nil {
		return "", &Error{Kind: ReadbackFailed, Err: err}
	}
	return string(data), nil
}

// Original returns the content the buffer was prepared with.
func (buf *Buffer) Original() string { return buf.original }

// Edit runs a full round trip on the current terminal and returns the
// edited text. Cancelling ctx kills the editor.
func (b *Bridge) Edit(ctx context.Context, content string, kind Kind) (string, error) {
	buf, err := b.Prepare(content, kind)
	if err != nil {
		return "", err
	}
	cmd := buf.Command(ctx)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
	runErr := cmd.Run()
	if ctx.Err() != nil {
		runErr = ctx.Err()
	}
	return buf.Finish(runErr)
}
