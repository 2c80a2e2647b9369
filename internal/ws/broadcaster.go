package ws

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	redisstore "github.com/sujitmemane/bites/internal/store/redis"
)

// EventBus is the cross-instance transport for room events. The Redis
// pub/sub client satisfies it.
type EventBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	PSubscribe(ctx context.Context, pattern string) (<-chan []byte, func(), error)
}

// DeliveryPolicy maps an event name to whether the originating connection
// is excluded from its delivery. Events absent from the map are delivered
// to everyone, originator included.
type DeliveryPolicy map[string]bool

// DefaultDeliveryPolicy delivers every event to the whole room, the
// originator included: clients reconcile their own optimistic updates, and
// board:joined must reach the joiner's other tabs because it carries
// profile fields they may not have cached.
func DefaultDeliveryPolicy() DeliveryPolicy {
	return DeliveryPolicy{
		EventBoardUsers:    false,
		EventBoardJoined:   false,
		EventColumnCreated: false,
		EventTaskCreated:   false,
		EventTaskUpdated:   false,
		EventTaskDeleted:   false,
	}
}

// envelope is the pub/sub wire format between server instances.
type envelope struct {
	Event  string          `json:"event"`
	Board  uuid.UUID       `json:"board"`
	Origin uuid.UUID       `json:"origin,omitzero"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// Broadcaster fans mutation and presence events out to every viewer of a
// board. Events travel through the shared pub/sub bus so viewers connected
// to other server instances receive them too; each instance bridges bus
// messages back into its local Router. Fan-out is best-effort, at-most-once
// per connection, no retry.
type Broadcaster struct {
	router *Router
	bus    EventBus
	policy DeliveryPolicy
}

func NewBroadcaster(router *Router, bus EventBus, policy DeliveryPolicy) *Broadcaster {
	if policy == nil {
		policy = DefaultDeliveryPolicy()
	}
	return &Broadcaster{router: router, bus: bus, policy: policy}
}

// Notify publishes a board event with no originating connection. REST
// mutation handlers call it after, and only after, the store mutation
// succeeded, so speculative state is never broadcast.
func (b *Broadcaster) Notify(ctx context.Context, boardID uuid.UUID, event string, payload any) error {
	return b.NotifyFrom(ctx, uuid.Nil, boardID, event, payload)
}

// NotifyFrom publishes a board event on behalf of the origin connection.
func (b *Broadcaster) NotifyFrom(ctx context.Context, origin, boardID uuid.UUID, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("ws.Broadcaster.NotifyFrom: marshal payload: %w", err)
	}

	env := envelope{Event: event, Board: boardID, Origin: origin, Data: data}
	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("ws.Broadcaster.NotifyFrom: marshal envelope: %w", err)
	}

	if err := b.bus.Publish(ctx, redisstore.BoardChannel(boardID), raw); err != nil {
		// Degraded mode: the bus is down but this instance's own viewers
		// still get the event through the local router.
		log.Warn().Err(err).
			Str("event", event).
			Str("board_id", boardID.String()).
			Msg("ws: publish failed, falling back to local fan-out")
		b.deliver(ctx, env)
	}

	return nil
}

// Run bridges bus messages into the local room router. It blocks until ctx
// is done or the subscription closes.
func (b *Broadcaster) Run(ctx context.Context) error {
	messages, cleanup, err := b.bus.PSubscribe(ctx, redisstore.BoardChannelPattern)
	if err != nil {
		return fmt.Errorf("ws.Broadcaster.Run: %w", err)
	}
	defer cleanup()

	for {
		select {
		case <-ctx.Done():
			return nil
		case raw, ok := <-messages:
			if !ok {
				return nil
			}
			var env envelope
			if err := json.Unmarshal(raw, &env); err != nil {
				log.Warn().Err(err).Msg("ws: dropping malformed broadcast envelope")
				continue
			}
			b.deliver(ctx, env)
		}
	}
}

func (b *Broadcaster) deliver(ctx context.Context, env envelope) {
	var opts BroadcastOptions
	if b.policy[env.Event] {
		opts.ExcludeID = env.Origin
	}
	b.router.Broadcast(ctx, env.Board, env.Event, env.Data, opts)
}
