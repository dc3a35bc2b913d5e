package bus

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/efreitasn/tradefeed/internal/domain"
	"github.com/efreitasn/tradefeed/internal/message"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := NewRedis(client, time.Hour, logger)
	t.Cleanup(func() { _ = r.Close() })
	return r, mr
}

func TestParseUserChannel(t *testing.T) {
	tests := []struct {
		in      string
		user    string
		channel string
		ok      bool
	}{
		{"user.fabrice.errors", "fabrice", "errors", true},
		{"user.fabrice.position-updates", "fabrice", "position-updates", true},
		{"user.first.last.errors", "first.last", "errors", true},
		{"user.fabrice", "", "", false},
		{"user.fabrice.", "", "", false},
		{"price.stock.DELL", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			user, channel, ok := parseUserChannel(tt.in)
			if ok != tt.ok || user != tt.user || channel != tt.channel {
				t.Errorf("parseUserChannel(%q) = (%q, %q, %v), want (%q, %q, %v)",
					tt.in, user, channel, ok, tt.user, tt.channel, tt.ok)
			}
		})
	}
}

func TestRedis_Probe(t *testing.T) {
	r, mr := newTestRedis(t)
	ctx := context.Background()

	var edges []bool
	r.OnAvailability(func(v bool) { edges = append(edges, v) })

	if !r.Probe(ctx) {
		t.Fatal("expected probe to succeed against running redis")
	}
	if !r.Available() {
		t.Fatal("expected bus available after successful probe")
	}

	mr.Close()
	if r.Probe(ctx) {
		t.Fatal("expected probe to fail after redis closed")
	}
	if r.Available() {
		t.Fatal("expected bus unavailable after failed probe")
	}

	want := []bool{false, true, false}
	if len(edges) != len(want) {
		t.Fatalf("expected edges %v, got %v", want, edges)
	}
	for i := range want {
		if edges[i] != want[i] {
			t.Fatalf("expected edges %v, got %v", want, edges)
		}
	}
}

func TestRedis_PublishUsesDestinationChannels(t *testing.T) {
	r, mr := newTestRedis(t)
	ctx := context.Background()

	sub := redis.NewClient(&redis.Options{Addr: mr.Addr()}).Subscribe(ctx, "price.stock.DELL", "user.fabrice.errors")
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	ch := sub.Channel()

	if err := r.Publish(ctx, message.Message{Destination: "price.stock.DELL"}); !errors.Is(err, domain.ErrBusUnavailable) {
		t.Fatalf("expected ErrBusUnavailable before the first probe, got %v", err)
	}
	r.Probe(ctx)

	quote := message.Message{ID: "q1", Destination: "price.stock.DELL", ContentType: message.ContentTypeJSON, Body: []byte(`{}`)}
	if err := r.Publish(ctx, quote); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := r.SendToUser(ctx, "fabrice", message.NewError("nope")); err != nil {
		t.Fatalf("send to user: %v", err)
	}

	got := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case m := <-ch:
			got[m.Channel] = true
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for message %d", i)
		}
	}
	if !got["price.stock.DELL"] || !got["user.fabrice.errors"] {
		t.Fatalf("unexpected channels: %v", got)
	}
}

func TestRedis_RelayForwardsIntoHub(t *testing.T) {
	r, _ := newTestRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := newAvailableMemory()
	quoteSub := newFakeSession("q", "paulson")
	userSess := newFakeSession("u", "fabrice")
	hub.Register(quoteSub)
	hub.Register(userSess)
	hub.Subscribe(quoteSub, "price.stock.DELL")

	r.Probe(ctx)

	done := make(chan error, 1)
	go func() { done <- r.Relay(ctx, hub) }()

	// Wait until the relay's pattern subscriptions are live.
	deadline := time.Now().Add(2 * time.Second)
	for r.client.PubSubNumPat(ctx).Val() < 2 {
		if time.Now().After(deadline) {
			t.Fatal("relay never subscribed")
		}
		time.Sleep(10 * time.Millisecond)
	}

	quote := message.Message{ID: "q1", Destination: "price.stock.DELL", ContentType: message.ContentTypeJSON, Body: []byte(`{}`)}
	if err := r.Publish(ctx, quote); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := r.SendToUser(ctx, "fabrice", message.NewError("nope")); err != nil {
		t.Fatalf("send to user: %v", err)
	}

	deadline = time.Now().Add(2 * time.Second)
	for len(quoteSub.received()) < 1 || len(userSess.received()) < 1 {
		if time.Now().After(deadline) {
			t.Fatalf("relay did not deliver: quotes=%d user=%d", len(quoteSub.received()), len(userSess.received()))
		}
		time.Sleep(10 * time.Millisecond)
	}

	if got := quoteSub.received()[0]; got.ID != "q1" {
		t.Errorf("expected quote q1, got %+v", got)
	}
	text, _ := userSess.received()[0].Text()
	if text != "nope" {
		t.Errorf("expected user message 'nope', got %q", text)
	}
	if len(quoteSub.received()) != 1 {
		t.Errorf("paulson should not receive fabrice's message")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("relay returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not stop on cancel")
	}
}
