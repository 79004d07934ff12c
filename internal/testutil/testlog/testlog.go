// Package testlog routes task log output through the test runner so it only
// shows up for failing or verbose runs.
package testlog

import (
	"strings"
	"testing"

	"github.com/seqforge/taskkit/internal/logging"
)

type writer struct{ t *testing.T }

func (w writer) Write(p []byte) (int, error) {
	w.t.Log(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

// New returns a task log captured by t.
func New(t *testing.T) *logging.TaskLog {
	t.Helper()
	w := writer{t}
	return logging.NewWithWriters(w, w)
}
