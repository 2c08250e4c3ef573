// Package logging builds the process logger: structured slog output to
// stderr and, optionally, a size-rotated log file.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/abhisek/intervue/internal/config"
)

type ctxKey string

const ctxKeySession ctxKey = "session_id"

// Logger is a configured logger and the resources behind it.
type Logger struct {
	*slog.Logger
	file *lumberjack.Logger
}

// New builds a logger from cfg. Console output goes to stderr; pass
// quiet to write only to the log file, as the interactive console does.
func New(cfg config.LogConfig, quiet bool) (*Logger, error) {
	level, err := config.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	var writers []io.Writer
	if !quiet {
		writers = append(writers, os.Stderr)
	}
	var file *lumberjack.Logger
	if cfg.File != "" {
		file = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		writers = append(writers, file)
	}

	var out io.Writer
	switch len(writers) {
	case 0:
		out = io.Discard
	case 1:
		out = writers[0]
	default:
		out = io.MultiWriter(writers...)
	}
	return &Logger{Logger: slog.New(newHandler(out, cfg.Format, level)), file: file}, nil
}

func newHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "json") {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// Close flushes and closes the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// WithSession stores a session id in the context.
func WithSession(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, ctxKeySession, sessionID)
}

// FromContext returns logger annotated with the context's session id.
func FromContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	if id, _ := ctx.Value(ctxKeySession).(string); id != "" {
		return logger.With("session_id", id)
	}
	return logger
}
