package engine

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/efreitasn/tradefeed/internal/domain"
	"github.com/efreitasn/tradefeed/internal/message"
	"github.com/efreitasn/tradefeed/internal/store"
)

// sentMessage is one message captured by mockBus.
type sentMessage struct {
	User string // empty for topic publishes
	Msg  message.Message
}

// mockBus records every send. Sends fail with ErrBusUnavailable while
// down is set, or for users listed in failUsers.
type mockBus struct {
	mu        sync.Mutex
	sent      []sentMessage
	down      bool
	failUsers map[string]bool
}

func newMockBus() *mockBus {
	return &mockBus{failUsers: make(map[string]bool)}
}

func (b *mockBus) Publish(_ context.Context, msg message.Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.down {
		return domain.ErrBusUnavailable
	}
	b.sent = append(b.sent, sentMessage{Msg: msg})
	return nil
}

func (b *mockBus) SendToUser(_ context.Context, user string, msg message.Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.down || b.failUsers[user] {
		return domain.ErrBusUnavailable
	}
	b.sent = append(b.sent, sentMessage{User: user, Msg: msg})
	return nil
}

func (b *mockBus) setDown(v bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.down = v
}

func (b *mockBus) setUserFailing(user string, v bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failUsers[user] = v
}

func (b *mockBus) messages() []sentMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	result := make([]sentMessage, len(b.sent))
	copy(result, b.sent)
	return result
}

// toUser returns the messages sent to user on channel.
func (b *mockBus) toUser(user, channel string) []message.Message {
	var result []message.Message
	for _, s := range b.messages() {
		if s.User == user && s.Msg.Destination == channel {
			result = append(result, s.Msg)
		}
	}
	return result
}

// fixedRand returns its values in turn, repeating the last one.
type fixedRand struct {
	values []float64
	i      int
}

func (r *fixedRand) Float64() float64 {
	v := r.values[r.i]
	if r.i < len(r.values)-1 {
		r.i++
	}
	return v
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testEngine wires a TradeEngine and NotificationDispatcher over the seeded
// ledger and a shared mock bus.
type testEngine struct {
	ledger     *store.Ledger
	pending    *store.PendingStore
	bus        *mockBus
	trades     *TradeEngine
	dispatcher *NotificationDispatcher
}

func newTestEngine(grace time.Duration) *testEngine {
	ledger := store.NewSeededLedger()
	pending := store.NewPendingStore()
	bus := newMockBus()
	logger := discardLogger()
	return &testEngine{
		ledger:     ledger,
		pending:    pending,
		bus:        bus,
		trades:     NewTradeEngine(ledger, pending, bus, logger),
		dispatcher: NewNotificationDispatcher(time.Second, grace, pending, bus, logger),
	}
}
