package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/phrazzld/scry-bulkgen/internal/config"
)

// Supported log formats
const (
	FormatJSON = "json"
	FormatText = "text"
)

// ParseLevel converts a configured level name into a slog.Level.
// Unknown names map to info and report ok=false.
func ParseLevel(name string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// Setup initializes the application's logging system from the server
// configuration, installs the logger as the slog default and returns it.
//
// The json format writes structured records to stdout; inside CI the
// CIHandler decorates them with build metadata. The text format writes
// colorized records to stderr for local development.
func Setup(cfg config.ServerConfig) (*slog.Logger, error) {
	return setup(cfg, os.Stdout, os.Stderr)
}

func setup(cfg config.ServerConfig, stdout, stderr io.Writer) (*slog.Logger, error) {
	level, ok := ParseLevel(cfg.LogLevel)

	var handler slog.Handler
	switch strings.ToLower(cfg.LogFormat) {
	case FormatJSON, "":
		opts := &slog.HandlerOptions{Level: level}
		if IsCI() {
			handler = NewCIHandler(stdout, opts)
		} else {
			handler = slog.NewJSONHandler(stdout, opts)
		}
	case FormatText:
		handler = tint.NewHandler(stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.RFC3339,
		})
	default:
		return nil, fmt.Errorf("unsupported log format %q", cfg.LogFormat)
	}

	l := slog.New(handler)
	slog.SetDefault(l)

	if !ok {
		l.Warn("invalid log level configured, using default level",
			"configured_level", cfg.LogLevel,
			"default_level", "info")
	}

	return l, nil
}
