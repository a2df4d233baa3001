package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New returns a console logger at the given level ("debug", "info", "warn",
// "error"; anything else means info). When logFile is set, output is also
// written there with rotation.
func New(level, logFile string) zerolog.Logger {
	return NewWithWriter(os.Stdout, level, logFile)
}

func NewWithWriter(out io.Writer, level, logFile string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	var w io.Writer = zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.DateTime,
		NoColor:    out != os.Stdout,
	}
	if logFile != "" {
		fileLogger := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    10,
			MaxAge:     7,
			MaxBackups: 3,
		}
		w = zerolog.MultiLevelWriter(w, fileLogger)
	}

	return zerolog.New(w).
		Level(ParseLevel(level)).
		With().
		Timestamp().
		Logger()
}

func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
