package auth

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ZerologLogger adapts zerolog to the Logger interface. Messages may be
// printf style or followed by key/value pairs, both forms are supported:
//
//	logger.Error("login failed: %s", err)
//	logger.Error("login failed", "error", err)
type ZerologLogger struct {
	zl zerolog.Logger
}

// NewZerologLogger wraps the given zerolog logger
func NewZerologLogger(zl zerolog.Logger) *ZerologLogger {
	return &ZerologLogger{zl: zl}
}

// NewDefaultLogger writes info and above as JSON lines to stderr tagged with
// the component name
func NewDefaultLogger(component string) *ZerologLogger {
	zl := zerolog.New(os.Stderr).Level(zerolog.InfoLevel).With().
		Timestamp().
		Str("component", component).
		Logger()
	return NewZerologLogger(zl)
}

// Zerolog exposes the underlying logger
func (l *ZerologLogger) Zerolog() zerolog.Logger {
	return l.zl
}

func (l *ZerologLogger) Debug(format string, args ...any) {
	l.log(l.zl.Debug(), format, args...)
}

func (l *ZerologLogger) Info(format string, args ...any) {
	l.log(l.zl.Info(), format, args...)
}

func (l *ZerologLogger) Warn(format string, args ...any) {
	l.log(l.zl.Warn(), format, args...)
}

func (l *ZerologLogger) Error(format string, args ...any) {
	l.log(l.zl.Error(), format, args...)
}

func (l *ZerologLogger) log(evt *zerolog.Event, format string, args ...any) {
	if evt == nil {
		return
	}

	if strings.Contains(format, "%") {
		evt.Msg(fmt.Sprintf(format, args...))
		return
	}

	for i := 0; i < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprint(args[i])
		}
		if i+1 >= len(args) {
			evt = evt.Interface("extra", args[i])
			break
		}
		switch v := args[i+1].(type) {
		case error:
			evt = evt.AnErr(key, v)
		case string:
			evt = evt.Str(key, v)
		default:
			evt = evt.Interface(key, v)
		}
	}
	evt.Msg(format)
}

var defLogger Logger = NewDefaultLogger("auth")

func normalizeLogger(l Logger) Logger {
	if l == nil {
		return defLogger
	}
	return l
}

// NewLevelLogger builds a zerolog backed logger from a level name and an
// output format, json or console.
func NewLevelLogger(component, level, format string) *ZerologLogger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	var zl zerolog.Logger
	if format == "console" {
		zl = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		zl = zerolog.New(os.Stderr)
	}

	return NewZerologLogger(zl.Level(lvl).With().
		Timestamp().
		Str("component", component).
		Logger())
}

