package exec

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	osexec "os/exec"
)

// Streams carries the process wiring for one invocation. Nil writers fall
// back to the calling process's own streams.
type Streams struct {
	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader
	// Dir is the working directory; empty inherits the caller's.
	Dir string
	// Env is the full environment; nil inherits the caller's.
	Env []string
}

func (s Streams) stdout() io.Writer {
	if s.Stdout != nil {
		return s.Stdout
	}
	return os.Stdout
}

func (s Streams) stderr() io.Writer {
	if s.Stderr != nil {
		return s.Stderr
	}
	return os.Stderr
}

// Runner spawns a process and waits for it. Run streams output; Output
// captures stdout in memory. Both return the exit status; the error is
// non-nil only when the process could not be started or was torn down
// before exiting on its own.
type Runner interface {
	Run(ctx context.Context, name string, args []string, s Streams) (int, error)
	Output(ctx context.Context, name string, args []string, s Streams) ([]byte, int, error)
}

// LocalRunner executes on the current host.
type LocalRunner struct{}

func (LocalRunner) Run(ctx context.Context, name string, args []string, s Streams) (int, error) {
	cmd := osexec.CommandContext(ctx, name, args...)
	cmd.Dir = s.Dir
	cmd.Env = s.Env
	cmd.Stdin = s.Stdin
	cmd.Stdout = s.stdout()
	cmd.Stderr = s.stderr()
	return waitLocal(ctx, cmd)
}

func (LocalRunner) Output(ctx context.Context, name string, args []string, s Streams) ([]byte, int, error) {
	var buf bytes.Buffer
	cmd := osexec.CommandContext(ctx, name, args...)
	cmd.Dir = s.Dir
	cmd.Env = s.Env
	cmd.Stdin = s.Stdin
	cmd.Stdout = &buf
	cmd.Stderr = s.stderr()
	code, err := waitLocal(ctx, cmd)
	return buf.Bytes(), code, err
}

func waitLocal(ctx context.Context, cmd *osexec.Cmd) (int, error) {
	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	var exitErr *osexec.ExitError
	if errors.As(err, &exitErr) {
		if ctx.Err() != nil {
			return exitErr.ExitCode(), ctx.Err()
		}
		return exitErr.ExitCode(), nil
	}
	return -1, err
}
