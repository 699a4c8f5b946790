// Package pause holds the fixed, context-aware waits used to stay under third-party rate limits.
package pause

import (
	"context"
	"time"
)

// Sleep blocks for d or until ctx is done, whichever comes first
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
