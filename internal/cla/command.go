package cla

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/seqforge/taskkit/internal/exec"
	"github.com/seqforge/taskkit/internal/logging"
)

// ExitError reports a command that ran and exited non-zero. Whether the tool
// failed or the script drove it wrong is not distinguished here.
type ExitError struct {
	Tool string
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("command %q returned non-zero exit status %d", e.Tool, e.Code)
}

// RunOptions controls a foreground run.
type RunOptions struct {
	// StdoutPath redirects the process's stdout into a file at this path.
	// Empty inherits the task's stdout.
	StdoutPath string
	// Stderr overrides the stderr destination; nil inherits the task's.
	Stderr io.Writer
	// Quiet suppresses the start/finish markers. Set it when running from
	// several goroutines, since the marker stream is not synchronized.
	Quiet bool
}

// Command is an argument list bound to a resolved executable, immutable once
// built.
type Command struct {
	tool *Tool
	args []string
}

// Args returns a copy of the bound argument list.
func (c *Command) Args() []string {
	return append([]string(nil), c.args...)
}

// String renders the command the way the start marker shows it.
func (c *Command) String() string {
	if len(c.args) == 0 {
		return c.tool.name
	}
	return c.tool.name + " " + strings.Join(c.args, " ")
}

// Run executes the command and waits for it. Start and finish markers go to
// both task streams around the run. A non-zero exit surfaces as *ExitError.
func (c *Command) Run(ctx context.Context, opts RunOptions) error {
	stdout := io.Writer(nil)
	if opts.StdoutPath != "" {
		f, err := os.Create(opts.StdoutPath)
		if err != nil {
			return fmt.Errorf("redirect stdout: %w", err)
		}
		defer f.Close()
		stdout = f
	}

	finish := c.markStart(opts.Quiet)
	defer finish()

	code, err := c.runner().Run(ctx, c.tool.path, c.args, exec.Streams{
		Stdout: stdout,
		Stderr: opts.Stderr,
		Env:    environWithPath(c.tool.toolset.pathExtras),
	})
	if err != nil {
		return fmt.Errorf("run %q: %w", c.tool.name, err)
	}
	if code != 0 {
		return &ExitError{Tool: c.tool.name, Code: code}
	}
	return nil
}

// Output executes the command and returns its complete stdout as text. The
// whole output is buffered in memory, so this is unsuitable for commands
// producing large volumes; redirect those to a file with Run instead.
func (c *Command) Output(ctx context.Context) (string, error) {
	finish := c.markStart(false)
	defer finish()

	out, code, err := c.runner().Output(ctx, c.tool.path, c.args, exec.Streams{
		Env: environWithPath(c.tool.toolset.pathExtras),
	})
	if err != nil {
		return "", fmt.Errorf("run %q: %w", c.tool.name, err)
	}
	if code != 0 {
		if len(out) > 0 {
			c.log().Info(string(out))
		}
		return "", &ExitError{Tool: c.tool.name, Code: code}
	}
	return string(out), nil
}

func (c *Command) runner() exec.Runner {
	return c.tool.toolset.ctx.runner
}

func (c *Command) log() *logging.TaskLog {
	return c.tool.toolset.ctx.log
}

func (c *Command) markStart(quiet bool) func() {
	if quiet {
		return func() {}
	}
	ts := c.tool.toolset
	c.log().Markf("Start %s(%s): %s", ts.name, ts.version, c.String())
	started := time.Now()
	return func() {
		c.log().Markf("Running %q finished, %s elapsed", c.tool.name, logging.FormatElapsed(time.Since(started)))
	}
}

// environWithPath copies the process environment with PATH prefixed by the
// given directories.
func environWithPath(extras []string) []string {
	env := os.Environ()
	if len(extras) == 0 {
		return env
	}
	prefix := strings.Join(extras, string(os.PathListSeparator))
	for i, kv := range env {
		if strings.HasPrefix(kv, "PATH=") {
			env[i] = "PATH=" + prefix + string(os.PathListSeparator) + kv[len("PATH="):]
			return env
		}
	}
	return append(env, "PATH="+prefix)
}
