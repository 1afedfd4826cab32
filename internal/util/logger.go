package util

import (
	"io"
	"os"
	"strings"
	"time"

	stdlog "log"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Logger = zerolog.Logger

// LogLevel represents available log levels
type LogLevel = int

// Log levels
const (
	TraceLevel LogLevel = iota
	DebugLevel
	InfoLevel
	WarnLevel
	ErrorLevel
)

// ZerologLevel converts a LogLevel to the matching zerolog level.
// Unknown values map to info.
func ZerologLevel(level LogLevel) zerolog.Level {
	switch level {
	case TraceLevel:
		return zerolog.TraceLevel
	case DebugLevel:
		return zerolog.DebugLevel
	case InfoLevel:
		return zerolog.InfoLevel
	case WarnLevel:
		return zerolog.WarnLevel
	case ErrorLevel:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// InitializeLogger sets up the global console logger at the given level
func InitializeLogger(level LogLevel) {
	InitializeLoggerWriter(level, os.Stdout)
}

// InitializeLoggerWriter sets up the global logger writing console formatted
// output to w.
func InitializeLoggerWriter(level LogLevel, w io.Writer) {
	// Set time format to ISO8601
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(ZerologLevel(level))

	// Only colorize when writing to a terminal
	output := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: w != os.Stdout}

	ctx := zerolog.New(output).With().Timestamp()
	if level == TraceLevel {
		ctx = ctx.Caller()
	}
	log.Logger = ctx.Logger()
	log.Debug().Msg("Logger initialized")
}

// GetLogger returns a configured logger for a specific component
func GetLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// zerologWriter wraps zerolog to implement io.Writer for stdlog
type zerologWriter struct {
	logger zerolog.Logger
	level  zerolog.Level
}

func (w zerologWriter) Write(p []byte) (n int, err error) {
	msg := strings.TrimSpace(string(p))
	w.logger.WithLevel(w.level).Msg(msg)
	return len(p), nil
}

// NewLogLogger returns a stdlog.Logger that routes every line to zerolog at
// lvl. Used for libraries that only accept a *log.Logger (go-fuse).
func NewLogLogger(component string, lvl LogLevel) *stdlog.Logger {
	logger := GetLogger(component)
	writer := zerologWriter{logger: logger, level: ZerologLevel(lvl)}

	return stdlog.New(writer, "", 0)
}
