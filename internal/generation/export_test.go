package generation

import (
	"context"
	"time"
)

// SetSleep replaces the delay function used between escalations.
func SetSleep(g *BatchGenerator, fn func(ctx context.Context, d time.Duration) error) {
	g.sleep = fn
}
