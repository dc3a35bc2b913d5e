package engine

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/tradefeed/internal/message"
)

func newTestBroadcaster(bus *mockBus) *Broadcaster {
	seeds, _ := ParseSeedPrices(map[string]string{"DELL": "13.03", "GOOG": "893.49"})
	g := NewQuoteGenerator(seeds, decimal.RequireFromString("0.02"), &fixedRand{values: []float64{0.5}})
	return NewBroadcaster(time.Second, g, bus, discardLogger())
}

func TestBroadcaster_PublishesWhenAvailable(t *testing.T) {
	bus := newMockBus()
	b := newTestBroadcaster(bus)
	b.SetBusAvailable(true)

	if sent := b.tick(context.Background()); sent != 2 {
		t.Fatalf("expected 2 quotes sent, got %d", sent)
	}

	topics := make(map[string]message.QuotePayload)
	for _, s := range bus.messages() {
		if s.User != "" {
			t.Errorf("quote sent to user %s", s.User)
		}
		var q message.QuotePayload
		if err := json.Unmarshal(s.Msg.Body, &q); err != nil {
			t.Fatalf("decode quote: %v", err)
		}
		topics[s.Msg.Destination] = q
	}
	for _, ticker := range []string{"DELL", "GOOG"} {
		q, ok := topics[message.QuoteTopic(ticker)]
		if !ok {
			t.Errorf("no quote published on %s", message.QuoteTopic(ticker))
			continue
		}
		if q.Ticker != ticker {
			t.Errorf("topic %s carried ticker %s", message.QuoteTopic(ticker), q.Ticker)
		}
	}
}

func TestBroadcaster_DropsWhenUnavailable(t *testing.T) {
	bus := newMockBus()
	b := newTestBroadcaster(bus)

	if b.BusAvailable() {
		t.Fatal("broadcaster should start with the bus unavailable")
	}
	if sent := b.tick(context.Background()); sent != 0 {
		t.Fatalf("expected nothing sent, got %d", sent)
	}
	if n := len(bus.messages()); n != 0 {
		t.Fatalf("expected no messages, got %d", n)
	}

	// No buffering: the next available tick sends only its own quotes.
	b.SetBusAvailable(true)
	if sent := b.tick(context.Background()); sent != 2 {
		t.Fatalf("expected 2 quotes sent, got %d", sent)
	}
	if n := len(bus.messages()); n != 2 {
		t.Fatalf("expected 2 messages, got %d", n)
	}
}

func TestBroadcaster_PublishErrorIsNotFatal(t *testing.T) {
	bus := newMockBus()
	bus.setDown(true)
	b := newTestBroadcaster(bus)
	b.SetBusAvailable(true)

	if sent := b.tick(context.Background()); sent != 0 {
		t.Fatalf("expected nothing sent, got %d", sent)
	}
}

func TestBroadcaster_AvailabilityEdges(t *testing.T) {
	b := newTestBroadcaster(newMockBus())

	for _, v := range []bool{true, false, true} {
		b.SetBusAvailable(v)
		if b.BusAvailable() != v {
			t.Fatalf("expected availability %v", v)
		}
	}
}

func TestBroadcaster_StartPublishesOnInterval(t *testing.T) {
	bus := newMockBus()
	b := newTestBroadcaster(bus)
	b.interval = 10 * time.Millisecond
	b.SetBusAvailable(true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b.Start(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for len(bus.messages()) < 4 {
		if time.Now().After(deadline) {
			t.Fatalf("expected at least two ticks, got %d messages", len(bus.messages()))
		}
		time.Sleep(5 * time.Millisecond)
	}
}
