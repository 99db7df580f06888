package importer

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/trievops/fleet-cli/internal/store"
)

// NotificationBatcher accumulates per-owner affected-record counts
// during a run. A 300-row import touching one team leader's fleet
// produces one notification with a count of 300, never 300
// notifications. State is per-run; concurrent runs each carry their
// own batcher.
type NotificationBatcher struct {
	counts map[string]int
	order  []string
}

// NewNotificationBatcher returns an empty batcher.
func NewNotificationBatcher() *NotificationBatcher {
	return &NotificationBatcher{counts: make(map[string]int)}
}

// Add records one affected record for ownerID.
func (b *NotificationBatcher) Add(ownerID string) {
	if ownerID == "" {
		return
	}
	if _, seen := b.counts[ownerID]; !seen {
		b.order = append(b.order, ownerID)
	}
	b.counts[ownerID]++
}

// Counts returns a copy of the accumulated per-owner counts.
func (b *NotificationBatcher) Counts() map[string]int {
	out := make(map[string]int, len(b.counts))
	for k, v := range b.counts {
		out[k] = v
	}
	return out
}

// Flush emits one notification per owner in first-seen order and
// returns how many were delivered. Sink failures are logged and
// skipped; they never fail the run.
func (b *NotificationBatcher) Flush(ctx context.Context, sink store.NotificationSink, limiter *rate.Limiter) int {
	sent := 0
	for _, owner := range b.order {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				zap.L().Warn("notification flush interrupted", zap.Error(err))
				break
			}
		}
		if err := sink.EmitBatch(ctx, owner, b.counts[owner]); err != nil {
			zap.L().Warn("notification emit failed",
				zap.String("owner_id", owner),
				zap.Int("affected", b.counts[owner]),
				zap.Error(err),
			)
			continue
		}
		sent++
	}
	return sent
}
