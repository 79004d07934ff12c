package cla

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/seqforge/taskkit/internal/exec"
	"github.com/seqforge/taskkit/internal/logging"
	"github.com/seqforge/taskkit/internal/metainfo"
)

const bamHeader = "@HD\tVN:1.0\tSO:coordinate\n@SQ\tSN:chr1\tLN:248956422\n"

// countingRunner records spawn attempts without running anything.
type countingRunner struct {
	calls int
}

func (r *countingRunner) Run(context.Context, string, []string, exec.Streams) (int, error) {
	r.calls++
	return 0, nil
}

func (r *countingRunner) Output(context.Context, string, []string, exec.Streams) ([]byte, int, error) {
	r.calls++
	return nil, 0, nil
}

func installToolset(t *testing.T, programs, name, version string, withBin bool, scripts map[string]string) {
	t.Helper()
	dir := filepath.Join(programs, name, version)
	if withBin {
		dir = filepath.Join(dir, "bin")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("install toolset: %v", err)
	}
	for exe, body := range scripts {
		script := "#!/bin/sh\n" + body
		if err := os.WriteFile(filepath.Join(dir, exe), []byte(script), 0o755); err != nil {
			t.Fatalf("install %s: %v", exe, err)
		}
	}
}

func testContext(t *testing.T, programs string, meta metainfo.Metainfo, runner exec.Runner) (*Context, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var out, errw bytes.Buffer
	log := logging.NewWithWriters(&out, &errw)
	return NewContext(meta, programs, log, runner), &out, &errw
}

func TestResolveWithoutDeclaredVersionFails(t *testing.T) {
	programs := t.TempDir()
	installToolset(t, programs, "seqtk", "1.2", false, map[string]string{"seqtk": "echo unused\n"})

	runner := &countingRunner{}
	ctx, _, _ := testContext(t, programs, metainfo.New(), runner)

	_, err := ctx.Tool("seqtk", "seqtk")
	if !errors.Is(err, ErrVersionNotDeclared) {
		t.Fatalf("expected ErrVersionNotDeclared, got %v", err)
	}
	if runner.calls != 0 {
		t.Fatalf("no process may be spawned on declaration error, got %d spawns", runner.calls)
	}
}

func TestOneVersionPerToolsetInvariant(t *testing.T) {
	programs := t.TempDir()
	installToolset(t, programs, "samtools", "0.1.19", true, map[string]string{"samtools": "exit 0\n"})
	installToolset(t, programs, "samtools", "1.9", true, map[string]string{"samtools": "exit 0\n"})

	ctx, _, _ := testContext(t, programs, metainfo.New(), nil)

	if _, err := ctx.ToolsetAt("samtools", "0.1.19"); err != nil {
		t.Fatalf("first resolution: %v", err)
	}
	if _, err := ctx.ToolsetAt("samtools", "0.1.19"); err != nil {
		t.Fatalf("same version again must be allowed: %v", err)
	}
	if _, err := ctx.ToolsetAt("samtools", "1.9"); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}
}

func TestToolsetNotInstalled(t *testing.T) {
	meta := metainfo.New()
	meta.Add(metainfo.ToolVersionKey("bwa"), metainfo.StringValue{Value: "0.7.17"})
	ctx, _, _ := testContext(t, t.TempDir(), meta, nil)

	if _, err := ctx.Toolset("bwa"); !errors.Is(err, ErrNotInstalled) {
		t.Fatalf("expected ErrNotInstalled, got %v", err)
	}
}

func TestExecutableNotFound(t *testing.T) {
	programs := t.TempDir()
	installToolset(t, programs, "samtools", "0.1.19", true, map[string]string{"samtools": "exit 0\n"})
	meta := metainfo.New()
	meta.Add(metainfo.ToolVersionKey("samtools"), metainfo.StringValue{Value: "0.1.19"})
	ctx, _, _ := testContext(t, programs, meta, nil)

	if _, err := ctx.Tool("samtools", "bcftools"); !errors.Is(err, ErrExecutableNotFound) {
		t.Fatalf("expected ErrExecutableNotFound, got %v", err)
	}
}

func TestRunRedirectsStdoutExactly(t *testing.T) {
	programs := t.TempDir()
	installToolset(t, programs, "samtools", "0.1.19", true, map[string]string{
		"samtools": "printf '@HD\\tVN:1.0\\tSO:coordinate\\n@SQ\\tSN:chr1\\tLN:248956422\\n'\n",
	})
	meta := metainfo.New()
	meta.Add(metainfo.ToolVersionKey("samtools"), metainfo.StringValue{Value: "0.1.19"})
	ctx, _, _ := testContext(t, programs, meta, nil)

	tool, err := ctx.Tool("samtools", "samtools")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	target := filepath.Join(t.TempDir(), "header.sam")
	if err := tool.Command("view", "-H", "x.bam").Run(context.Background(), RunOptions{StdoutPath: target}); err != nil {
		t.Fatalf("run: %v", err)
	}

	got, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read redirected output: %v", err)
	}
	if string(got) != bamHeader {
		t.Fatalf("redirected bytes differ\nwant %q\ngot  %q", bamHeader, got)
	}
}

func TestOutputCapturesHeader(t *testing.T) {
	programs := t.TempDir()
	installToolset(t, programs, "samtools", "0.1.19", true, map[string]string{
		"samtools": `if [ "$1" = "view" ] && [ "$2" = "-H" ]; then
  printf '@HD\tVN:1.0\tSO:coordinate\n@SQ\tSN:chr1\tLN:248956422\n'
  exit 0
fi
exit 2
`,
	})
	meta := metainfo.New()
	meta.Add(metainfo.ToolVersionKey("samtools"), metainfo.StringValue{Value: "0.1.19"})
	ctx, out, errw := testContext(t, programs, meta, nil)

	tool, err := ctx.Tool("samtools", "samtools")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	text, err := tool.Command("view", "-H", "x.bam").Output(context.Background())
	if err != nil {
		t.Fatalf("output: %v", err)
	}
	if text != bamHeader {
		t.Fatalf("captured text differs\nwant %q\ngot  %q", bamHeader, text)
	}

	for name, buf := range map[string]*bytes.Buffer{"info": out, "warning": errw} {
		s := buf.String()
		if !bytes.Contains([]byte(s), []byte("Start samtools(0.1.19): samtools view -H x.bam")) {
			t.Fatalf("%s stream missing start marker: %q", name, s)
		}
		if !bytes.Contains([]byte(s), []byte("finished")) {
			t.Fatalf("%s stream missing finish marker: %q", name, s)
		}
	}
}

func TestNonZeroExitSurfacesAsExitError(t *testing.T) {
	programs := t.TempDir()
	installToolset(t, programs, "seqtk", "1.2", false, map[string]string{"seqtk": "exit 4\n"})
	meta := metainfo.New()
	meta.Add(metainfo.ToolVersionKey("seqtk"), metainfo.StringValue{Value: "1.2"})
	ctx, _, _ := testContext(t, programs, meta, nil)

	tool, err := ctx.Tool("seqtk", "seqtk")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	err = tool.Command("seq").Run(context.Background(), RunOptions{Quiet: true, Stderr: &bytes.Buffer{}})
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected *ExitError, got %v", err)
	}
	if exitErr.Code != 4 || exitErr.Tool != "seqtk" {
		t.Fatalf("unexpected exit error: %+v", exitErr)
	}
}

func TestUsesExtendsSearchPath(t *testing.T) {
	programs := t.TempDir()
	installToolset(t, programs, "pipeline", "2.0", true, map[string]string{"align": "helper\n"})
	installToolset(t, programs, "helpers", "1.0", true, map[string]string{"helper": "echo helped\n"})

	meta := metainfo.New()
	meta.Add(metainfo.ToolVersionKey("pipeline"), metainfo.StringValue{Value: "2.0"})
	meta.Add(metainfo.ToolVersionKey("helpers"), metainfo.StringValue{Value: "1.0"})
	ctx, _, _ := testContext(t, programs, meta, nil)

	tool, err := ctx.Tool("pipeline", "align", "helpers")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	text, err := tool.Command().Output(context.Background())
	if err != nil {
		t.Fatalf("output: %v", err)
	}
	if text != "helped\n" {
		t.Fatalf("auxiliary toolset not on PATH, output %q", text)
	}
}

func TestUsesWithoutDeclaredVersionFails(t *testing.T) {
	programs := t.TempDir()
	installToolset(t, programs, "pipeline", "2.0", true, map[string]string{"align": "exit 0\n"})

	meta := metainfo.New()
	meta.Add(metainfo.ToolVersionKey("pipeline"), metainfo.StringValue{Value: "2.0"})
	ctx, _, _ := testContext(t, programs, meta, nil)

	if _, err := ctx.Tool("pipeline", "align", "helpers"); !errors.Is(err, ErrVersionNotDeclared) {
		t.Fatalf("expected ErrVersionNotDeclared for auxiliary toolset, got %v", err)
	}
}

func TestManifestClosesExecutableSet(t *testing.T) {
	programs := t.TempDir()
	installToolset(t, programs, "samtools", "0.1.19", false, map[string]string{
		"samtools": "exit 0\n",
		"stray":    "exit 0\n",
	})
	manifest := "executables:\n  - samtools\n"
	if err := os.WriteFile(filepath.Join(programs, "samtools", "0.1.19", "toolset.yaml"), []byte(manifest), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	meta := metainfo.New()
	meta.Add(metainfo.ToolVersionKey("samtools"), metainfo.StringValue{Value: "0.1.19"})
	ctx, _, _ := testContext(t, programs, meta, nil)

	if _, err := ctx.Tool("samtools", "samtools"); err != nil {
		t.Fatalf("declared executable must resolve: %v", err)
	}
	if _, err := ctx.Tool("samtools", "stray"); !errors.Is(err, ErrExecutableNotFound) {
		t.Fatalf("undeclared executable must not resolve, got %v", err)
	}
}

func TestBinSubdirectoryPreferred(t *testing.T) {
	programs := t.TempDir()
	installToolset(t, programs, "plain", "1.0", false, map[string]string{"tool": "exit 0\n"})
	installToolset(t, programs, "nested", "1.0", true, map[string]string{"tool": "exit 0\n"})

	meta := metainfo.New()
	meta.Add(metainfo.ToolVersionKey("plain"), metainfo.StringValue{Value: "1.0"})
	meta.Add(metainfo.ToolVersionKey("nested"), metainfo.StringValue{Value: "1.0"})
	ctx, _, _ := testContext(t, programs, meta, nil)

	plain, err := ctx.Toolset("plain")
	if err != nil {
		t.Fatalf("resolve plain: %v", err)
	}
	if plain.Dir() != filepath.Join(programs, "plain", "1.0") {
		t.Fatalf("plain dir = %s", plain.Dir())
	}

	nested, err := ctx.Toolset("nested")
	if err != nil {
		t.Fatalf("resolve nested: %v", err)
	}
	if nested.Dir() != filepath.Join(programs, "nested", "1.0", "bin") {
		t.Fatalf("nested dir = %s", nested.Dir())
	}
}

func TestArgumentString(t *testing.T) {
	meta := metainfo.New()
	meta.Add(metainfo.KeyToolArguments,
		metainfo.StringValue{Value: "-q 20"},
		metainfo.StringValue{Value: "--no-clip"})
	ctx, _, _ := testContext(t, t.TempDir(), meta, nil)

	if got := ctx.ArgumentString(); got != "-q 20" {
		t.Fatalf("ArgumentString = %q", got)
	}
	if got := ctx.ArgumentList(); len(got) != 2 || got[1] != "--no-clip" {
		t.Fatalf("ArgumentList = %v", got)
	}
}
