package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/boxmeout/poolengine/internal/domain"
)

// streamMaxLen caps each event stream with approximate trimming.
const streamMaxLen = 10000

// SignalBus implements domain.SignalBus using Redis pub/sub for live fan-out
// and streams for a replayable event log.
type SignalBus struct {
	rdb *redis.Client
}

// NewSignalBus creates a SignalBus backed by the given Client.
func NewSignalBus(c *Client) *SignalBus {
	return &SignalBus{rdb: c.Underlying()}
}

// Publish sends a payload to a pub/sub channel.
func (sb *SignalBus) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := sb.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish to %s: %w", channel, err)
	}
	return nil
}

// Subscribe subscribes to channel patterns and returns a receive channel plus
// a close function. Messages arrive as raw payload bytes.
func (sb *SignalBus) Subscribe(ctx context.Context, patterns ...string) (<-chan []byte, func(), error) {
	pubsub := sb.rdb.PSubscribe(ctx, patterns...)

	// Force the subscription to be established before returning.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("redis: subscribe %v: %w", patterns, err)
	}

	out := make(chan []byte, 64)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			select {
			case out <- []byte(msg.Payload):
			case <-ctx.Done():
				return
			}
		}
	}()

	closeFn := func() { _ = pubsub.Close() }
	return out, closeFn, nil
}

// StreamAppend appends an entry to a capped Redis stream.
func (sb *SignalBus) StreamAppend(ctx context.Context, stream string, payload []byte) error {
	err := sb.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]any{"payload": payload},
	}).Err()
	if err != nil {
		return fmt.Errorf("redis: xadd to %s: %w", stream, err)
	}
	return nil
}

// StreamRead reads up to count entries after lastID ("0" for the beginning,
// "$" for only new entries).
func (sb *SignalBus) StreamRead(ctx context.Context, stream, lastID string, count int64) ([]domain.StreamMessage, error) {
	res, err := sb.rdb.XRead(ctx, &redis.XReadArgs{
		Streams: []string{stream, lastID},
		Count:   count,
		Block:   -1,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis: xread %s: %w", stream, err)
	}

	var msgs []domain.StreamMessage
	for _, str := range res {
		for _, m := range str.Messages {
			msg := domain.StreamMessage{ID: m.ID}
			if p, ok := m.Values["payload"].(string); ok {
				msg.Payload = []byte(p)
			}
			msgs = append(msgs, msg)
		}
	}
	return msgs, nil
}

// Compile-time interface check.
var _ domain.SignalBus = (*SignalBus)(nil)
