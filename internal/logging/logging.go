// Package logging builds the slog loggers used by icqdump. Records are
// encoded by [slog.JSONHandler] and, unless JSON output is requested,
// rendered for humans by a zerolog console writer.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/soypat/dissect/internal"
)

// Config configures a logger.
type Config struct {
	// Level is one of trace, debug, info, warn, error or off.
	Level string
	// JSON writes JSON lines instead of console output.
	JSON bool
	// NoColor disables colored console output.
	NoColor bool
}

// ParseLevel parses a level name. ok is false for "off", which disables logging.
func ParseLevel(s string) (lvl slog.Level, ok bool, err error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return internal.LevelTrace, true, nil
	case "debug":
		return slog.LevelDebug, true, nil
	case "", "info":
		return slog.LevelInfo, true, nil
	case "warn", "warning":
		return slog.LevelWarn, true, nil
	case "error":
		return slog.LevelError, true, nil
	case "off", "none", "disabled":
		return 0, false, nil
	}
	return 0, false, fmt.Errorf("unknown log level %q", s)
}

// New returns a logger writing to w. It returns a nil logger if the level is
// "off"; the library packages treat a nil logger as disabled.
func New(w io.Writer, cfg Config) (*slog.Logger, error) {
	lvl, ok, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	} else if !ok {
		return nil, nil
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if cfg.JSON {
		opts.ReplaceAttr = replaceLevel
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	cw := zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    cfg.NoColor,
		TimeFormat: time.TimeOnly,
	}
	opts.ReplaceAttr = replaceConsole
	return slog.New(slog.NewJSONHandler(cw, opts)), nil
}

// replaceConsole renames attributes to the field names zerolog expects.
func replaceConsole(groups []string, a slog.Attr) slog.Attr {
	if len(groups) != 0 {
		return a
	}
	switch a.Key {
	case slog.MessageKey:
		a.Key = zerolog.MessageFieldName
	case slog.TimeKey:
		a.Key = zerolog.TimestampFieldName
		if t, ok := a.Value.Any().(time.Time); ok {
			a.Value = slog.StringValue(t.Format(time.RFC3339))
		}
	}
	return replaceLevel(groups, a)
}

func replaceLevel(groups []string, a slog.Attr) slog.Attr {
	if len(groups) != 0 || a.Key != slog.LevelKey {
		return a
	}
	lvl, _ := a.Value.Any().(slog.Level)
	a.Key = zerolog.LevelFieldName
	a.Value = slog.StringValue(levelName(lvl))
	return a
}

func levelName(lvl slog.Level) string {
	switch {
	case lvl < slog.LevelDebug:
		return zerolog.LevelTraceValue
	case lvl < slog.LevelInfo:
		return zerolog.LevelDebugValue
	case lvl < slog.LevelWarn:
		return zerolog.LevelInfoValue
	case lvl < slog.LevelError:
		return zerolog.LevelWarnValue
	}
	return zerolog.LevelErrorValue
}
