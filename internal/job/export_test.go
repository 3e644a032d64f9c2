package job

import (
	"context"
	"time"
)

// SetPersistSleep replaces the backoff sleep of w.
func SetPersistSleep(w *PersistenceWorker, fn func(ctx context.Context, d time.Duration) error) {
	w.sleep = fn
}

// SetPollerSleep replaces the pause wait of p.
func SetPollerSleep(p *ControlPoller, fn func(ctx context.Context, d time.Duration) error) {
	p.sleep = fn
}
