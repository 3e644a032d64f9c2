package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime"
	"time"
)

// ciEnvVars maps CI environment variables to the attribute names attached to
// every record.
var ciEnvVars = map[string]string{
	"GITHUB_RUN_ID":     "ci_run_id",
	"GITHUB_WORKFLOW":   "ci_workflow",
	"GITHUB_JOB":        "ci_job",
	"GITHUB_SHA":        "ci_commit",
	"GITHUB_REF_NAME":   "ci_ref",
	"GITHUB_REPOSITORY": "ci_repository",
}

// IsCI reports whether the process runs inside a CI environment.
func IsCI() bool {
	return os.Getenv("CI") != "" || os.Getenv("GITHUB_ACTIONS") != ""
}

func getCIMetadata() map[string]string {
	metadata := make(map[string]string)
	if IsCI() {
		metadata["ci"] = "true"
	}
	for env, attr := range ciEnvVars {
		if v := os.Getenv(env); v != "" {
			metadata[attr] = v
		}
	}
	return metadata
}

// CIHandler is a slog.Handler that adds CI environment metadata
// and source code location to log records.
type CIHandler struct {
	handler   slog.Handler
	metadata  map[string]string
	addSource bool
}

// NewCIHandler creates a CIHandler writing JSON records to out.
func NewCIHandler(out io.Writer, opts *slog.HandlerOptions) *CIHandler {
	handlerOpts := &slog.HandlerOptions{}
	if opts != nil {
		copied := *opts
		handlerOpts = &copied
	}

	return &CIHandler{
		handler:   slog.NewJSONHandler(out, handlerOpts),
		metadata:  getCIMetadata(),
		addSource: handlerOpts.AddSource,
	}
}

// Enabled implements the slog.Handler interface.
func (h *CIHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// WithAttrs implements the slog.Handler interface.
func (h *CIHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &CIHandler{handler: h.handler.WithAttrs(attrs), metadata: h.metadata, addSource: h.addSource}
}

// WithGroup implements the slog.Handler interface.
func (h *CIHandler) WithGroup(name string) slog.Handler {
	return &CIHandler{handler: h.handler.WithGroup(name), metadata: h.metadata, addSource: h.addSource}
}

// Handle implements the slog.Handler interface.
func (h *CIHandler) Handle(ctx context.Context, record slog.Record) error {
	enhanced := record.Clone()

	if h.addSource && record.PC != 0 {
		frames := runtime.CallersFrames([]uintptr{record.PC})
		frame, _ := frames.Next()
		enhanced.AddAttrs(
			slog.String("source_file", frame.File),
			slog.Int("source_line", frame.Line),
			slog.String("source_func", frame.Function),
		)
	}

	for key, value := range h.metadata {
		enhanced.AddAttrs(slog.String(key, value))
	}

	enhanced.AddAttrs(slog.Int64("timestamp_nano", enhanced.Time.UnixNano()%int64(time.Second)))

	return h.handler.Handle(ctx, enhanced)
}
