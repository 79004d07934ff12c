package scripting

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/seqforge/taskkit/internal/cla"
	"github.com/seqforge/taskkit/internal/logging"
	"github.com/seqforge/taskkit/internal/metainfo"
	"github.com/seqforge/taskkit/internal/task"
	"github.com/seqforge/taskkit/internal/testutil/testlog"
)

func installTool(t *testing.T, programs, toolset, version, name, body string) {
	t.Helper()
	dir := filepath.Join(programs, toolset, version)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("install toolset: %v", err)
	}
	script := "#!/bin/sh\n" + body
	if err := os.WriteFile(filepath.Join(dir, name), []byte(script), 0o755); err != nil {
		t.Fatalf("install %s: %v", name, err)
	}
}

func newToolEnv(t *testing.T, meta metainfo.Metainfo, programs string) Env {
	t.Helper()
	wd, err := task.New(t.TempDir())
	if err != nil {
		t.Fatalf("work dir: %v", err)
	}
	log := testlog.New(t)
	return Env{
		Log:     log,
		Tools:   cla.NewContext(meta, programs, log, nil),
		WorkDir: wd,
	}
}

func TestStripHeader(t *testing.T) {
	tests := []struct {
		name string
		src  string
		ok   bool
	}{
		{"env shebang", "#!/usr/bin/env taskrun\nlog.info('x');\n", true},
		{"direct shebang", "#!/usr/local/bin/taskrun\n1;\n", true},
		{"shebang only", "#!/usr/bin/env taskrun", true},
		{"no shebang", "log.info('x');\n", false},
		{"wrong interpreter", "#!/bin/sh\necho x\n", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := StripHeader(tt.src)
			if tt.ok != (err == nil) {
				t.Fatalf("err = %v, want ok=%v", err, tt.ok)
			}
			if err == nil && strings.Contains(body, "#!") {
				t.Fatalf("shebang survived: %q", body)
			}
			if err != nil && !errors.Is(err, ErrBadHeader) {
				t.Fatalf("err = %v, want ErrBadHeader", err)
			}
		})
	}
}

func TestScriptRunsResolvedTool(t *testing.T) {
	programs := t.TempDir()
	installTool(t, programs, "coreutils", "8.30", "shout", `echo "$@"`+"\n")

	meta := metainfo.New()
	meta.Add(metainfo.ToolVersionKey("coreutils"), metainfo.StringValue{Value: "8.30"})

	r, err := New(newToolEnv(t, meta, programs))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	script := `#!/usr/bin/env taskrun
var out = tools.tool("coreutils", "shout").output("hello", "world");
if (out.indexOf("hello world") === -1) {
    throw new Error("unexpected output: " + out);
}
log.info("tool finished");
`
	if err := r.Run(context.Background(), script); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestScriptSeesToolPathAndVersion(t *testing.T) {
	programs := t.TempDir()
	installTool(t, programs, "samtools", "1.9", "samtools", "exit 0\n")

	meta := metainfo.New()
	meta.Add(metainfo.ToolVersionKey("samtools"), metainfo.StringValue{Value: "1.9"})

	r, err := New(newToolEnv(t, meta, programs))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	script := `#!/usr/bin/env taskrun
var st = tools.tool("samtools", "samtools");
if (st.version() !== "1.9") { throw new Error("version: " + st.version()); }
if (st.path().indexOf("samtools") === -1) { throw new Error("path: " + st.path()); }
`
	if err := r.Run(context.Background(), script); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestUndeclaredToolsetRaisesInScript(t *testing.T) {
	r, err := New(newToolEnv(t, metainfo.New(), t.TempDir()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	script := `#!/usr/bin/env taskrun
tools.tool("bwa", "bwa");
`
	err = r.Run(context.Background(), script)
	if err == nil {
		t.Fatal("undeclared toolset did not fail the script")
	}
	if !strings.Contains(err.Error(), "version") {
		t.Fatalf("err = %v, want version declaration failure", err)
	}
}

func TestScriptCanCatchHostErrors(t *testing.T) {
	r, err := New(newToolEnv(t, metainfo.New(), t.TempDir()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	script := `#!/usr/bin/env taskrun
var caught = false;
try {
    tools.tool("bwa", "bwa");
} catch (e) {
    caught = true;
    log.warning("resolution failed: " + e);
}
if (!caught) { throw new Error("expected an exception"); }
`
	if err := r.Run(context.Background(), script); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestRunInterruptsOnCancel(t *testing.T) {
	r, err := New(newToolEnv(t, metainfo.New(), t.TempDir()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	script := "#!/usr/bin/env taskrun\nwhile (true) {}\n"
	err = r.Run(ctx, script)
	if !errors.Is(err, ErrInterrupted) {
		t.Fatalf("err = %v, want ErrInterrupted", err)
	}
}

func TestRunUsableAfterInterrupt(t *testing.T) {
	r, err := New(newToolEnv(t, metainfo.New(), t.TempDir()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := r.Run(ctx, "#!/usr/bin/env taskrun\nwhile (true) {}\n"); !errors.Is(err, ErrInterrupted) {
		t.Fatalf("err = %v, want ErrInterrupted", err)
	}

	// A later script on the same runtime must not see the stale interrupt.
	if err := r.Run(context.Background(), "#!/usr/bin/env taskrun\nlog.info('back');\n"); err != nil {
		t.Fatalf("run after interrupt: %v", err)
	}
}

func TestFsBindings(t *testing.T) {
	programs := t.TempDir()
	env := newToolEnv(t, metainfo.New(), programs)
	r, err := New(env)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	present := filepath.Join(env.WorkDir.Root(), "reads.fq")
	if err := os.WriteFile(present, []byte("@r1\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	script := `#!/usr/bin/env taskrun
if (!fs.exists(fs.workdir() + "/reads.fq")) { throw new Error("missing reads.fq"); }
if (fs.exists(fs.workdir() + "/absent")) { throw new Error("phantom file"); }
var name = fs.unique("reads.fq");
if (name === fs.workdir() + "/reads.fq") { throw new Error("unique returned the taken path"); }
if (name.indexOf("reads.fq") === -1) { throw new Error("unique lost the base name: " + name); }
fs.ensure("reads.fq");
var missed = false;
try { fs.ensure("absent.bam"); } catch (e) { missed = true; }
if (!missed) { throw new Error("ensure accepted a missing artifact"); }
`
	if err := r.Run(context.Background(), script); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestRunRejectsMissingShebang(t *testing.T) {
	r, err := New(Env{Log: logging.NewWithWriters(bytes.NewBuffer(nil), bytes.NewBuffer(nil))})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := r.Run(context.Background(), "log.info('x');"); !errors.Is(err, ErrBadHeader) {
		t.Fatalf("err = %v, want ErrBadHeader", err)
	}
}
