package log

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

var (
	mu     sync.RWMutex
	logger = newLogger(os.Stderr, FormatConsole).Level(zerolog.InfoLevel)
)

func newLogger(w io.Writer, format string) zerolog.Logger {
	if format != FormatJSON {
		w = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
		}
	}
	return zerolog.New(w).With().Timestamp().Logger()
}

// Setup replaces the global logger. Unknown levels fall back to INFO and
// any format other than "json" produces human-readable console output.
func Setup(level, format string) {
	SetOutput(os.Stderr, format)
	SetLevel(ParseLevel(level))
}

// SetOutput redirects log output, keeping the current level.
func SetOutput(w io.Writer, format string) {
	mu.Lock()
	defer mu.Unlock()
	logger = newLogger(w, format).Level(logger.GetLevel())
}

func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	logger = logger.Level(toZerolog(l))
}

// ParseLevel accepts debug/info/warn/error in any case.
func ParseLevel(s string) Level {
	switch Level(strings.ToUpper(strings.TrimSpace(s))) {
	case LevelDebug:
		return LevelDebug
	case LevelWarn, "WARNING":
		return LevelWarn
	case LevelError:
		return LevelError
	default:
		return LevelInfo
	}
}

func toZerolog(l Level) zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func current() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

func Debug(msg string, kv ...any) {
	l := current()
	l.Debug().Fields(kv).Msg(msg)
}

func Info(msg string, kv ...any) {
	l := current()
	l.Info().Fields(kv).Msg(msg)
}

func Warn(msg string, kv ...any) {
	l := current()
	l.Warn().Fields(kv).Msg(msg)
}

func Error(msg string, err error, kv ...any) {
	l := current()
	l.Error().Err(err).Fields(kv).Msg(msg)
}
