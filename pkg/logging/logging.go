// Package logging configures log/slog for the service.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"

	FormatJSON = "json"
	FormatText = "text"
)

// Opts holds logging configuration options.
type Opts struct {
	Fields   []string `long:"field" env:"FIELD" env-delim:"," description:"Inject fields at the topline level, using k:v"`
	Level    string   `long:"level" env:"LEVEL" description:"Log level: debug, info, warn, error" default:"info"`
	Format   string   `long:"format" env:"FORMAT" description:"Log format: json, text" default:"json"`
	FilePath string   `long:"file" env:"FILE" description:"Log to file instead of stderr"`
}

// Init builds a logger from opts and installs it as the slog default.
func Init(opts *Opts) error {
	logger, err := NewLogger(opts)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	return nil
}

// NewLogger builds a logger writing to stderr, or to opts.FilePath when set.
func NewLogger(opts *Opts) (*slog.Logger, error) {
	writer := io.Writer(os.Stderr)
	if opts.FilePath != "" {
		file, err := os.OpenFile(opts.FilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		writer = file
	}
	return newLogger(writer, opts)
}

func newLogger(w io.Writer, opts *Opts) (*slog.Logger, error) {
	handler, err := newHandler(w, opts)
	if err != nil {
		return nil, err
	}

	logger := slog.New(NewContextHandler(handler, RequestFields))
	for _, field := range opts.Fields {
		k, v, ok := strings.Cut(field, ":")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid field format: %s", field)
		}
		logger = logger.With(k, v)
	}
	return logger, nil
}

func newHandler(w io.Writer, opts *Opts) (slog.Handler, error) {
	handlerOpts := &slog.HandlerOptions{Level: parseLevel(opts.Level)}

	switch opts.Format {
	case FormatJSON, "":
		return slog.NewJSONHandler(w, handlerOpts), nil
	case FormatText:
		return slog.NewTextHandler(w, handlerOpts), nil
	default:
		return nil, fmt.Errorf("unrecognized format: %s", opts.Format)
	}
}

var levelToSlogLevel = map[string]slog.Level{
	LevelDebug: slog.LevelDebug,
	LevelInfo:  slog.LevelInfo,
	LevelWarn:  slog.LevelWarn,
	LevelError: slog.LevelError,
}

func parseLevel(level string) slog.Level {
	if l, ok := levelToSlogLevel[strings.ToLower(level)]; ok {
		return l
	}
	return slog.LevelInfo
}
