package pipeline

import (
	"context"
	"time"

	"github.com/banshee-data/equipment.report/internal/timeutil"
)

// Sweep applies the retention policy every interval until ctx is done.
// It complements the prune that follows each ingestion, catching up after
// a failed prune or a lowered retention count. A non-positive interval
// returns immediately.
func (in *Ingester) Sweep(ctx context.Context, clock timeutil.Clock, interval time.Duration) {
	if interval <= 0 {
		return
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	ticker := clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			// errors are logged and counted by Prune
			_, _ = in.Prune(ctx)
		}
	}
}
