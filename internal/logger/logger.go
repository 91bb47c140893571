// Package logger
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"cpumon/internal/config"
)

type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type zeroLogger struct {
	z zerolog.Logger
}

// New builds the process logger. Console output always goes to stderr,
// a rotating file is added when LOG_FILE is set.
func New(cfg *config.Config) Logger {
	writers := []io.Writer{consoleWriter(cfg.LogFormat, os.Stderr)}

	if cfg.LogFile != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.LogMaxSizeMB,
			MaxBackups: 3,
			Compress:   true,
		})
	}

	return NewWithWriter(zerolog.MultiLevelWriter(writers...), cfg.LogLevel)
}

func NewWithWriter(w io.Writer, level string) Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	z := zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	return &zeroLogger{z: z}
}

func NewNop() Logger {
	return &zeroLogger{z: zerolog.Nop()}
}

func consoleWriter(format string, out io.Writer) io.Writer {
	switch format {
	case "json":
		return out
	case "console":
		return zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	default:
		return zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: true}
	}
}

func (l *zeroLogger) Debug(msg string, args ...any) {
	l.z.Debug().Fields(pairs(args)).Msg(msg)
}

func (l *zeroLogger) Info(msg string, args ...any) {
	l.z.Info().Fields(pairs(args)).Msg(msg)
}

func (l *zeroLogger) Warn(msg string, args ...any) {
	l.z.Warn().Fields(pairs(args)).Msg(msg)
}

func (l *zeroLogger) Error(msg string, args ...any) {
	l.z.Error().Fields(pairs(args)).Msg(msg)
}

// pairs turns alternating key/value args into a zerolog field list.
// A dangling value is kept under "!BADKEY".
func pairs(args []any) []any {
	if len(args)%2 == 0 {
		return args
	}

	fixed := make([]any, 0, len(args)+1)
	fixed = append(fixed, args[:len(args)-1]...)
	return append(fixed, "!BADKEY", args[len(args)-1])
}
