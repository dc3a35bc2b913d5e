package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/efreitasn/tradefeed/internal/message"
	"github.com/efreitasn/tradefeed/internal/store"
)

// NotificationDispatcher periodically delivers pending position updates
// once they are at least grace old.
type NotificationDispatcher struct {
	interval time.Duration
	grace    time.Duration
	pending  *store.PendingStore
	bus      Bus
	logger   *slog.Logger
}

// NewNotificationDispatcher creates a new NotificationDispatcher.
func NewNotificationDispatcher(
	interval time.Duration,
	grace time.Duration,
	pending *store.PendingStore,
	bus Bus,
	logger *slog.Logger,
) *NotificationDispatcher {
	return &NotificationDispatcher{
		interval: interval,
		grace:    grace,
		pending:  pending,
		bus:      bus,
		logger:   logger,
	}
}

// Start launches a background goroutine that sweeps at the configured
// interval. It stops when ctx is cancelled.
func (d *NotificationDispatcher) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case t := <-ticker.C:
				d.tick(ctx, t)
			}
		}
	}()
}

// tick delivers every notification created at or before now−grace, oldest
// first. When a delivery fails the notification is put back, and the
// same user's later notifications wait for the next sweep so they are
// never delivered ahead of it.
func (d *NotificationDispatcher) tick(ctx context.Context, now time.Time) {
	due := d.pending.TakeDue(now.Add(-d.grace))
	if len(due) == 0 {
		return
	}

	blocked := make(map[string]bool)
	for _, n := range due {
		if blocked[n.User] {
			d.pending.Requeue(n)
			continue
		}

		msg, err := message.NewPositionUpdate(n.Position)
		if err != nil {
			d.logger.Error("position update not encodable, dropping",
				"user", n.User,
				"ticker", n.Position.Ticker,
				"error", err,
			)
			continue
		}

		if err := d.bus.SendToUser(ctx, n.User, msg); err != nil {
			d.pending.Requeue(n)
			blocked[n.User] = true
			d.logger.Warn("position update not delivered, will retry",
				"user", n.User,
				"ticker", n.Position.Ticker,
				"error", err,
			)
			continue
		}

		d.logger.Debug("position update delivered",
			"user", n.User,
			"ticker", n.Position.Ticker,
			"shares", n.Position.Shares,
		)
	}
}
