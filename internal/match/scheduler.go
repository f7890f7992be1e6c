package match

import (
	"context"
	"log"
	"time"
)

// StartScheduler runs the match lifecycle scheduler until ctx is cancelled.
// Each tick is idempotent, so a tick landing well past a start time still
// settles every due match exactly once.
func StartScheduler(ctx context.Context, reg *Registry, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("[SCHEDULER] Starting match scheduler (poll every %v)", interval)

	for {
		select {
		case <-ctx.Done():
			log.Printf("[SCHEDULER] Scheduler stopped")
			return
		case <-ticker.C:
			reg.Tick(ctx, time.Now())
		}
	}
}
