package task

import (
	"context"
	"io"
	"log/slog"

	"github.com/google/uuid"
)

type executorFunc func(ctx context.Context, jobID uuid.UUID) error

func (f executorFunc) Run(ctx context.Context, jobID uuid.UUID) error { return f(ctx, jobID) }

type funcTask struct {
	id uuid.UUID
	fn func(ctx context.Context) error
}

func (t *funcTask) ID() uuid.UUID { return t.id }
func (t *funcTask) Type() string   { return "test" }
func (t *funcTask) Execute(ctx context.Context) error {
	if t.fn == nil {
		return nil
	}
	return t.fn(ctx)
}

func newFuncTask(fn func(ctx context.Context) error) *funcTask {
	return &funcTask{id: uuid.New(), fn: fn}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
