package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nerrad567/voicebridge/internal/infrastructure/config"
)

// Logger is the structured logger handed to every component. It embeds
// *slog.Logger, so call sites use the slog API directly; the wrapper
// exists so With returns the same type and default fields stay attached.
type Logger struct {
	*slog.Logger
}

// New builds a logger from the logging section of config.yaml. Every
// record carries service and version fields so aggregated output from
// an add-on host attributes lines to this process.
func New(cfg config.LoggingConfig, version string) *Logger {
	return build(cfg, version, pickWriter(cfg.Output))
}

// Default is the bootstrap logger used before configuration loads,
// when failures still need somewhere to go. JSON on stdout at info.
func Default() *Logger {
	return build(config.LoggingConfig{Format: "json"}, "dev", os.Stdout)
}

// With returns a child logger whose records carry the given key-value
// pairs in addition to the parent's fields.
//
//	bridge := logger.With("component", "homekit")
//	bridge.Info("push complete", "added", 3)
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// build is the shared constructor; tests inject a buffer here.
func build(cfg config.LoggingConfig, version string, w io.Writer) *Logger {
	opts := &slog.HandlerOptions{Level: levelFromName(cfg.Level)}

	var h slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}

	h = h.WithAttrs([]slog.Attr{
		slog.String("service", "voicebridge"),
		slog.String("version", version),
	})
	return &Logger{Logger: slog.New(h)}
}

var levelNames = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// levelFromName maps a configured level name to its slog level,
// falling back to info for anything unrecognised.
func levelFromName(name string) slog.Level {
	if lvl, ok := levelNames[strings.ToLower(name)]; ok {
		return lvl
	}
	return slog.LevelInfo
}

func pickWriter(output string) io.Writer {
	if strings.EqualFold(output, "stderr") {
		return os.Stderr
	}
	return os.Stdout
}
