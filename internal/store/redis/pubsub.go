package redis

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// BoardChannelPattern matches every board's event channel; server
// instances bridge it into their local room routers.
const BoardChannelPattern = "board:*"

// PubSub is the cross-instance event bus for board rooms.
type PubSub struct {
	client *redis.Client
}

func (ps *PubSub) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := ps.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis.PubSub.Publish: %w", err)
	}
	return nil
}

// Subscribe delivers messages published to a single channel. The returned
// cleanup must be called to release the subscription.
func (ps *PubSub) Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error) {
	sub := ps.client.Subscribe(ctx, channel)
	return ps.drain(ctx, sub)
}

// PSubscribe delivers messages published to every channel matching the
// pattern.
func (ps *PubSub) PSubscribe(ctx context.Context, pattern string) (<-chan []byte, func(), error) {
	sub := ps.client.PSubscribe(ctx, pattern)
	return ps.drain(ctx, sub)
}

func (ps *PubSub) drain(ctx context.Context, sub *redis.PubSub) (<-chan []byte, func(), error) {
	// Wait for subscription confirmation.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("redis.PubSub: receive confirmation: %w", err)
	}

	out := make(chan []byte, 64)
	redisCh := sub.Channel()

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-redisCh:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	cleanup := func() {
		_ = sub.Close()
	}

	return out, cleanup, nil
}

// BoardChannel returns the event channel name for a board room.
func BoardChannel(boardID uuid.UUID) string {
	return "board:" + boardID.String()
}
