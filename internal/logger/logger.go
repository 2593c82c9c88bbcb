// Package logger builds the process-wide slog.Logger from configuration.
package logger

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/goliatone/go-scriptform/internal/config"
)

// ErrInvalidLevel is returned for level strings outside debug/info/warn/error.
var ErrInvalidLevel = errors.New("logger: invalid log level")

// ParseLevel maps a level name to its slog level. The empty string is info.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, errors.Join(ErrInvalidLevel, errors.New(level))
	}
}

// New creates a logger writing to stdout, or to a rotating file when
// cfg.File is set. The returned closer releases the file and is never nil.
func New(cfg config.Log) (*slog.Logger, io.Closer, error) {
	if cfg.File == "" {
		logger, err := NewWithWriter(cfg, os.Stdout)
		return logger, nopCloser{}, err
	}

	rotator := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}
	logger, err := NewWithWriter(cfg, rotator)
	if err != nil {
		_ = rotator.Close()
		return nil, nopCloser{}, err
	}
	return logger, rotator, nil
}

// NewWithWriter creates a logger writing to w. The prod environment uses a
// JSON handler; every other environment uses text.
func NewWithWriter(cfg config.Log, w io.Writer) (*slog.Logger, error) {
	lvl, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: lvl, AddSource: cfg.WithSource}
	var handler slog.Handler
	if strings.EqualFold(cfg.Environment, "prod") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler), nil
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
