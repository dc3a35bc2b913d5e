package engine

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/efreitasn/tradefeed/internal/domain"
	"github.com/efreitasn/tradefeed/internal/message"
)

// QuoteSource yields a full set of quotes per call.
type QuoteSource interface {
	Generate() []domain.Quote
}

// Broadcaster publishes a fresh quote set on every tick while the bus is
// available. Quotes generated while it is not are dropped.
type Broadcaster struct {
	interval time.Duration
	quotes   QuoteSource
	bus      Bus
	logger   *slog.Logger

	available atomic.Bool
}

// NewBroadcaster creates a Broadcaster. It starts out treating the bus as
// unavailable until told otherwise via SetBusAvailable.
func NewBroadcaster(interval time.Duration, quotes QuoteSource, bus Bus, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		interval: interval,
		quotes:   quotes,
		bus:      bus,
		logger:   logger,
	}
}

// SetBusAvailable records the latest availability edge reported by the bus.
func (b *Broadcaster) SetBusAvailable(available bool) {
	b.available.Store(available)
}

// BusAvailable reports the cached availability flag.
func (b *Broadcaster) BusAvailable() bool {
	return b.available.Load()
}

// Start launches the broadcast loop. It stops when ctx is cancelled.
func (b *Broadcaster) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(b.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				b.tick(ctx)
			}
		}
	}()
}

// tick publishes one quote per ticker and returns how many were sent.
func (b *Broadcaster) tick(ctx context.Context) int {
	quotes := b.quotes.Generate()

	sent := 0
	for _, q := range quotes {
		if !b.available.Load() {
			b.logger.Debug("bus unavailable, dropping quote", "ticker", q.Ticker)
			continue
		}

		msg, err := message.NewQuote(q)
		if err != nil {
			b.logger.Error("quote not encodable", "ticker", q.Ticker, "error", err)
			continue
		}
		if err := b.bus.Publish(ctx, msg); err != nil {
			b.logger.Debug("quote not published", "ticker", q.Ticker, "error", err)
			continue
		}

		b.logger.Debug("quote published", "ticker", q.Ticker, "price", q.Price.String())
		sent++
	}
	return sent
}
