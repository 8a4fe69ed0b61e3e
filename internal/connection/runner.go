package connection

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const waitDelay = 2 * time.Second

// Runner runs a command line through a shell and returns its stdout.
type Runner interface {
	Run(ctx context.Context, shell, command string) ([]byte, error)
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, shell, command string) ([]byte, error)

func (f RunnerFunc) Run(ctx context.Context, shell, command string) ([]byte, error) {
	return f(ctx, shell, command)
}

// ShellRunner runs `<shell> -c <command>`. The subprocess is killed when ctx
// is done.
type ShellRunner struct{}

func (ShellRunner) Run(ctx context.Context, shell, command string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, shell, "-c", command)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// a grandchild holding stdout open must not outlive cancellation
	cmd.WaitDelay = waitDelay
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if msg := lastLine(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
