package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// RedisNotifier publishes envelopes on Redis pub/sub channels and exposes
// the matching Subscriber. Channel name is "<prefix>:<topic>".
type RedisNotifier struct {
	client redis.UniversalClient
	prefix string
	logger *slog.Logger
}

func NewRedisNotifier(client redis.UniversalClient, prefix string, logger *slog.Logger) *RedisNotifier {
	if prefix == "" {
		prefix = "identity_events"
	}
	return &RedisNotifier{client: client, prefix: prefix, logger: logger}
}

func (n *RedisNotifier) channel(topic string) string {
	return fmt.Sprintf("%s:%s", n.prefix, topic)
}

func (n *RedisNotifier) Publish(ctx context.Context, topic, event string, payload any) error {
	if n.client == nil {
		return fmt.Errorf("publish %s: redis not configured", event)
	}
	env, err := NewEnvelope(topic, event, payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	if err := n.client.Publish(ctx, n.channel(topic), data).Err(); err != nil {
		return fmt.Errorf("publish %s to %s: %w", event, topic, err)
	}
	return nil
}

func (n *RedisNotifier) Subscribe(ctx context.Context, topic string) (<-chan Envelope, func(), error) {
	if n.client == nil {
		return nil, nil, fmt.Errorf("subscribe %s: redis not configured", topic)
	}
	sub := n.client.Subscribe(ctx, n.channel(topic))
	// Wait for the subscription to be active so events published right
	// after Subscribe returns are not lost.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	out := make(chan Envelope, 16)
	go func() {
		defer close(out)
		for msg := range sub.Channel() {
			var env Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				if n.logger != nil {
					n.logger.Warn("dropping malformed event", "topic", topic, "error", err)
				}
				continue
			}
			select {
			case out <- env:
			case <-ctx.Done():
				return
			}
		}
	}()

	cancel := func() { _ = sub.Close() }
	return out, cancel, nil
}
