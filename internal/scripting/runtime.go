package scripting

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dop251/goja"

	"github.com/seqforge/taskkit/internal/cla"
	"github.com/seqforge/taskkit/internal/files"
	"github.com/seqforge/taskkit/internal/logging"
	"github.com/seqforge/taskkit/internal/task"
)

// interpreterName must appear on the script's shebang line; it is how the
// platform tells task scripts from data files.
const interpreterName = "taskrun"

var (
	// ErrBadHeader reports a script without the interpreter shebang.
	ErrBadHeader = errors.New(`task script must start with "#!" naming ` + interpreterName)
	// ErrInterrupted reports a script stopped by context cancellation.
	ErrInterrupted = errors.New("script interrupted")
)

// Env is everything a script may touch.
type Env struct {
	Log     *logging.TaskLog
	File    *files.File
	Tools   *cla.Context
	WorkDir *task.WorkDir
}

// Runtime wraps one engine instance bound to a task environment. A Runtime
// runs one script at a time.
type Runtime struct {
	vm  *goja.Runtime
	env Env
	ctx context.Context
}

// New builds a runtime with the host bindings installed.
func New(env Env) (*Runtime, error) {
	if env.Log == nil {
		env.Log = logging.New()
	}
	r := &Runtime{vm: goja.New(), env: env, ctx: context.Background()}
	if err := r.bind(); err != nil {
		return nil, fmt.Errorf("install script bindings: %w", err)
	}
	return r, nil
}

// StripHeader validates the shebang line and returns the script body. The
// line is replaced with a blank one so engine line numbers still match the
// file.
func StripHeader(src string) (string, error) {
	line, rest, found := strings.Cut(src, "\n")
	if !strings.HasPrefix(line, "#!") || !strings.Contains(line, interpreterName) {
		return "", ErrBadHeader
	}
	if !found {
		return "", nil
	}
	return "\n" + rest, nil
}

// Run executes a script source, shebang included.
func (r *Runtime) Run(ctx context.Context, src string) error {
	body, err := StripHeader(src)
	if err != nil {
		return err
	}
	r.ctx = ctx
	defer func() { r.ctx = context.Background() }()

	watch := make(chan struct{})
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			r.vm.Interrupt(ErrInterrupted)
		case <-watch:
		}
		close(done)
	}()
	_, err = r.vm.RunString(body)
	close(watch)
	<-done
	// The watcher may have fired after RunString returned; clear any pending
	// interrupt so the runtime stays usable for the next Run.
	r.vm.ClearInterrupt()

	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		return fmt.Errorf("%w: %v", ErrInterrupted, ctx.Err())
	}
	return err
}

// RunFile executes the script at path.
func (r *Runtime) RunFile(ctx context.Context, path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read script: %w", err)
	}
	if err := r.Run(ctx, string(src)); err != nil {
		return fmt.Errorf("script %s: %w", path, err)
	}
	return nil
}

// throw converts a Go error into a script exception.
func (r *Runtime) throw(err error) {
	panic(r.vm.NewGoError(err))
}

func argString(call goja.FunctionCall, i int) string {
	if i >= len(call.Arguments) {
		return ""
	}
	return call.Arguments[i].String()
}

func argStrings(call goja.FunctionCall, from int) []string {
	var out []string
	for _, a := range call.Arguments[from:] {
		out = append(out, a.String())
	}
	return out
}
