package exec

import (
	"bytes"
	"context"
	"testing"
)

func TestLocalRunnerStreamsStdout(t *testing.T) {
	var out bytes.Buffer
	code, err := LocalRunner{}.Run(context.Background(), "/bin/sh", []string{"-c", "echo streamed"}, Streams{Stdout: &out})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if out.String() != "streamed\n" {
		t.Fatalf("stdout = %q", out.String())
	}
}

func TestLocalRunnerOutputCaptures(t *testing.T) {
	var errw bytes.Buffer
	out, code, err := LocalRunner{}.Output(context.Background(), "/bin/sh", []string{"-c", "echo captured; echo noise >&2"}, Streams{Stderr: &errw})
	if err != nil {
		t.Fatalf("output: %v", err)
	}
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if string(out) != "captured\n" {
		t.Fatalf("stdout = %q", out)
	}
	if errw.String() != "noise\n" {
		t.Fatalf("stderr = %q", errw.String())
	}
}

func TestLocalRunnerReportsExitStatus(t *testing.T) {
	code, err := LocalRunner{}.Run(context.Background(), "/bin/sh", []string{"-c", "exit 3"}, Streams{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}})
	if err != nil {
		t.Fatalf("non-zero exit must not surface as error: %v", err)
	}
	if code != 3 {
		t.Fatalf("exit code = %d, want 3", code)
	}
}

func TestLocalRunnerSpawnFailure(t *testing.T) {
	code, err := LocalRunner{}.Run(context.Background(), "/nonexistent/tool-binary", nil, Streams{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}})
	if err == nil {
		t.Fatalf("expected spawn error")
	}
	if code != -1 {
		t.Fatalf("exit code = %d, want -1", code)
	}
}

func TestLocalRunnerEnvAndDir(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer
	_, err := LocalRunner{}.Run(context.Background(), "/bin/sh", []string{"-c", "echo $TK_PROBE; pwd"},
		Streams{Stdout: &out, Dir: dir, Env: []string{"TK_PROBE=alive", "PATH=/usr/bin:/bin"}})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	want := "alive\n" + dir + "\n"
	if out.String() != want {
		t.Fatalf("output = %q, want %q", out.String(), want)
	}
}

func TestRemoteCommandEscaping(t *testing.T) {
	got := remoteCommand("echo", []string{"a b", "quote'v"}, Streams{Env: []string{"PATH=/a:/b"}, Dir: "/work"})
	want := "export 'PATH=/a:/b'; cd '/work' && 'echo' 'a b' 'quote'\"'\"'v'"
	if got != want {
		t.Fatalf("unexpected remote command\nwant: %s\ngot:  %s", want, got)
	}
}

func TestSSHRunnerAddressValidation(t *testing.T) {
	r := SSHRunner{}
	if _, err := r.address(); err == nil {
		t.Fatalf("expected host validation error")
	}

	r.Host = "worker-3"
	addr, err := r.address()
	if err != nil {
		t.Fatalf("unexpected address error: %v", err)
	}
	if addr != "worker-3:22" {
		t.Fatalf("expected default ssh port, got %q", addr)
	}
}

func TestSSHRunnerClientConfigValidation(t *testing.T) {
	r := SSHRunner{Host: "worker-3"}
	if _, err := r.clientConfig(); err == nil {
		t.Fatalf("expected missing user validation error")
	}
	r.User = "tasks"
	if _, err := r.clientConfig(); err == nil {
		t.Fatalf("expected missing key path validation error")
	}
}
