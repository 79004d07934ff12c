package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

const timeFormat = "2006-01-02 15:04:05 MST"

// TaskLog is the log of one task execution. Informational messages go to the
// task's stdout stream, warnings to its stderr stream; the platform collects
// the two streams separately. Both are stamped in UTC.
type TaskLog struct {
	info zerolog.Logger
	warn zerolog.Logger
}

// New returns a task log bound to the process streams.
func New() *TaskLog {
	return NewWithWriters(os.Stdout, os.Stderr)
}

// NewWithWriters returns a task log bound to the given streams.
func NewWithWriters(out, errw io.Writer) *TaskLog {
	return &TaskLog{
		info: newStream(out),
		warn: newStream(errw),
	}
}

func newStream(w io.Writer) zerolog.Logger {
	cw := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: timeFormat,
		NoColor:    noColor(),
	}
	logger := zerolog.New(cw).With().Timestamp().Logger()
	return logger.Level(level())
}

// Info writes a message to the info stream.
func (l *TaskLog) Info(msg string) {
	l.info.Info().Msg(msg)
}

// Infof writes a formatted message to the info stream.
func (l *TaskLog) Infof(format string, args ...any) {
	l.info.Info().Msgf(format, args...)
}

// Warning writes a message to the warning stream.
func (l *TaskLog) Warning(msg string) {
	l.warn.Warn().Msg(msg)
}

// Warningf writes a formatted message to the warning stream.
func (l *TaskLog) Warningf(format string, args ...any) {
	l.warn.Warn().Msgf(format, args...)
}

// Mark writes the same message to both streams. Used for the start and
// finish markers around external tool runs so either stream alone carries
// the full execution trace.
func (l *TaskLog) Mark(msg string) {
	l.Info(msg)
	l.Warning(msg)
}

// Markf is Mark with formatting.
func (l *TaskLog) Markf(format string, args ...any) {
	l.Mark(fmt.Sprintf(format, args...))
}

// FormatElapsed renders a duration for the finish marker: sub-minute runs
// with centisecond precision, longer runs as h:mm:ss.
func FormatElapsed(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.2f sec", d.Seconds())
	}
	d = d.Round(time.Second)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	return fmt.Sprintf("%d:%02d:%02d", h, m, s)
}

func init() {
	zerolog.TimestampFunc = func() time.Time { return time.Now().UTC() }
}
