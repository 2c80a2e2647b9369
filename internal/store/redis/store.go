package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Store wraps the shared Redis connection and exposes the presence set and
// the pub/sub bus built on top of it.
type Store struct {
	client   *redis.Client
	presence *Presence
	pubsub   *PubSub
}

func New(ctx context.Context, addr, password string, db int) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis.New: ping: %w", err)
	}

	return &Store{
		client:   client,
		presence: &Presence{client: client},
		pubsub:   &PubSub{client: client},
	}, nil
}

func (s *Store) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("redis.Store.Close: %w", err)
	}
	return nil
}

func (s *Store) Presence() *Presence { return s.presence }

func (s *Store) PubSub() *PubSub { return s.pubsub }
