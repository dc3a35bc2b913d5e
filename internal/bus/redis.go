package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/efreitasn/tradefeed/internal/domain"
	"github.com/efreitasn/tradefeed/internal/message"
	"github.com/redis/go-redis/v9"
)

const userChannelPrefix = "user."

// userChannel is the Redis channel carrying channel messages for user,
// e.g. "user.fabrice.position-updates".
func userChannel(user, channel string) string {
	return userChannelPrefix + user + "." + channel
}

// parseUserChannel splits a Redis user channel back into user and channel.
// Channel names never contain a dot, so the user is everything before the
// last one.
func parseUserChannel(redisChannel string) (user, channel string, ok bool) {
	rest, found := strings.CutPrefix(redisChannel, userChannelPrefix)
	if !found {
		return "", "", false
	}
	i := strings.LastIndex(rest, ".")
	if i <= 0 || i == len(rest)-1 {
		return "", "", false
	}
	return rest[:i], rest[i+1:], true
}

// Redis publishes bus messages over Redis pub/sub so several gateway
// processes can share one feed. Availability follows a periodic PING.
type Redis struct {
	availability

	client        *redis.Client
	probeInterval time.Duration
	logger        *slog.Logger
}

// NewRedis creates a Redis-backed bus. It reports unavailable until the
// first successful probe.
func NewRedis(client *redis.Client, probeInterval time.Duration, logger *slog.Logger) *Redis {
	return &Redis{
		client:        client,
		probeInterval: probeInterval,
		logger:        logger,
	}
}

// Publish sends msg on the Redis channel named by its destination.
func (r *Redis) Publish(ctx context.Context, msg message.Message) error {
	return r.publish(ctx, msg.Destination, msg)
}

// SendToUser sends msg on the user's Redis channel for msg.Destination.
func (r *Redis) SendToUser(ctx context.Context, user string, msg message.Message) error {
	return r.publish(ctx, userChannel(user, msg.Destination), msg)
}

func (r *Redis) publish(ctx context.Context, channel string, msg message.Message) error {
	if !r.Available() {
		return domain.ErrBusUnavailable
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	if err := r.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	return nil
}

// Probe pings Redis once and updates availability.
func (r *Redis) Probe(ctx context.Context) bool {
	err := r.client.Ping(ctx).Err()
	if r.set(err == nil) {
		if err != nil {
			r.logger.Warn("message bus unavailable", slog.String("error", err.Error()))
		} else {
			r.logger.Info("message bus available")
		}
	}
	return err == nil
}

// Watch probes Redis immediately and then every probe interval until ctx
// is cancelled.
func (r *Redis) Watch(ctx context.Context) {
	r.Probe(ctx)

	ticker := time.NewTicker(r.probeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Probe(ctx)
		}
	}
}

// Relay forwards every quote and user message seen on Redis into hub so
// locally connected sessions receive them. It blocks until ctx is done.
func (r *Redis) Relay(ctx context.Context, hub *Memory) error {
	pubsub := r.client.PSubscribe(ctx, message.QuoteTopicPrefix+"*", userChannelPrefix+"*")
	defer pubsub.Close()

	// Wait for the subscription to be confirmed before reading.
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe relay: %w", err)
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			r.forward(ctx, hub, m)
		}
	}
}

func (r *Redis) forward(ctx context.Context, hub *Memory, m *redis.Message) {
	var msg message.Message
	if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
		r.logger.Warn("dropping malformed bus message",
			slog.String("channel", m.Channel),
			slog.String("error", err.Error()),
		)
		return
	}

	var err error
	if user, _, ok := parseUserChannel(m.Channel); ok {
		err = hub.SendToUser(ctx, user, msg)
	} else {
		err = hub.Publish(ctx, msg)
	}
	if err != nil {
		r.logger.Debug("relay dropped message",
			slog.String("channel", m.Channel),
			slog.String("error", err.Error()),
		)
	}
}

// Close releases the Redis client.
func (r *Redis) Close() error {
	return r.client.Close()
}
