package logging

import (
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

const (
	EnvLogLevel   = "TASKKIT_LOG_LEVEL"
	EnvLogNoColor = "TASKKIT_LOG_NOCOLOR"
)

func level() zerolog.Level {
	if lvl, ok := parseLevel(os.Getenv(EnvLogLevel)); ok {
		return lvl
	}
	return zerolog.InfoLevel
}

func noColor() bool {
	if v, ok := parseBool(os.Getenv(EnvLogNoColor)); ok {
		return v
	}
	return true
}

func parseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
