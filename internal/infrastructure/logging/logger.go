package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nerrad567/sensor-registry/internal/infrastructure/config"
)

// ServiceName is attached to every log entry as the "service" field.
const ServiceName = "sensord"

// streams maps logging.output values to writers. Unknown values use stdout.
var streams = map[string]io.Writer{
	"stdout": os.Stdout,
	"stderr": os.Stderr,
}

// Logger is a slog.Logger carrying sensord's default fields.
//
// It satisfies sensor.Logger and mqtt.Logger, so components take it
// directly. Safe for concurrent use.
type Logger struct {
	*slog.Logger
}

// New builds a Logger writing to the stream named by cfg.Output.
func New(cfg config.LoggingConfig, version string) *Logger {
	w, ok := streams[strings.ToLower(cfg.Output)]
	if !ok {
		w = os.Stdout
	}
	return NewWithWriter(cfg, version, w)
}

// NewWithWriter builds a Logger writing to w; cfg.Output is ignored.
//
// Format "text" selects slog's key=value handler, anything else JSON.
// At debug level entries also carry their source location.
func NewWithWriter(cfg config.LoggingConfig, version string, w io.Writer) *Logger {
	level := parseLevel(cfg.Level)
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelDebug,
	}

	var h slog.Handler = slog.NewJSONHandler(w, opts)
	if strings.EqualFold(cfg.Format, "text") {
		h = slog.NewTextHandler(w, opts)
	}

	return &Logger{Logger: slog.New(h).With(
		"service", ServiceName,
		"version", version,
	)}
}

// parseLevel accepts slog's level names (debug, info, warn, error, with
// optional offsets such as "info+2") plus "warning". Anything else is info.
func parseLevel(s string) slog.Level {
	if strings.EqualFold(s, "warning") {
		return slog.LevelWarn
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// With returns a child Logger that adds args to every entry.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Component returns a child Logger tagged component=name.
//
//	logger.Component("mqtt").Info("connected") // ... component=mqtt
func (l *Logger) Component(name string) *Logger {
	return l.With("component", name)
}

// Default is an info-level JSON logger on stdout for use before the
// configuration has been loaded.
func Default() *Logger {
	return New(config.LoggingConfig{Level: "info", Format: "json", Output: "stdout"}, "dev")
}

// Discard returns a logger that drops every entry. Intended for tests.
func Discard() *Logger {
	return &Logger{Logger: slog.New(slog.DiscardHandler)}
}
