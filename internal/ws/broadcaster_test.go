package ws_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisstore "github.com/sujitmemane/bites/internal/store/redis"
	"github.com/sujitmemane/bites/internal/ws"
)

// busEnvelope mirrors the pub/sub wire format for assertions.
type busEnvelope struct {
	Event  string          `json:"event"`
	Board  uuid.UUID       `json:"board"`
	Origin uuid.UUID       `json:"origin"`
	Data   json.RawMessage `json:"data"`
}

func TestBroadcasterNotify(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	router := ws.NewRouter()
	bus := newFakeBus()
	b := ws.NewBroadcaster(router, bus, nil)

	boardID := uuid.New()
	payload := map[string]string{"text": "ship it"}

	require.NoError(t, b.Notify(ctx, boardID, ws.EventTaskCreated, payload))

	pub, ok := bus.lastPublished()
	require.True(t, ok)
	assert.Equal(t, redisstore.BoardChannel(boardID), pub.channel)

	var env busEnvelope
	require.NoError(t, json.Unmarshal(pub.payload, &env))
	assert.Equal(t, ws.EventTaskCreated, env.Event)
	assert.Equal(t, boardID, env.Board)
	assert.Equal(t, uuid.Nil, env.Origin, "REST mutations have no originating connection")
	assert.JSONEq(t, `{"text":"ship it"}`, string(env.Data))
}

func TestBroadcasterPublishFallback(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	router := ws.NewRouter()
	bus := newFakeBus()
	bus.publishErr = errors.New("redis: connection refused")
	b := ws.NewBroadcaster(router, bus, nil)

	boardID := uuid.New()
	s := newFakeSession(testUser("alice"))
	router.Join(boardID, s)

	// The bus is down but local viewers still get the event.
	require.NoError(t, b.Notify(ctx, boardID, ws.EventTaskDeleted, map[string]string{"taskId": uuid.New().String()}))

	frames := s.frames()
	require.Len(t, frames, 1)
	assert.Equal(t, ws.EventTaskDeleted, frames[0].event)
}

func TestBroadcasterRun(t *testing.T) {
	t.Parallel()

	router := ws.NewRouter()
	bus := newFakeBus()
	b := ws.NewBroadcaster(router, bus, nil)

	boardID := uuid.New()
	s := newFakeSession(testUser("alice"))
	router.Join(boardID, s)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- b.Run(ctx)
	}()

	// A malformed frame is dropped without killing the bridge.
	bus.messages <- []byte("{not json")

	bus.messages <- mustJSON(map[string]any{
		"event": ws.EventTaskUpdated,
		"board": boardID,
		"data":  map[string]string{"text": "updated"},
	})

	require.Eventually(t, func() bool {
		return len(s.frames()) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, ws.EventTaskUpdated, s.frames()[0].event)

	cancel()
	require.NoError(t, <-done)
}

func TestBroadcasterDeliveryPolicy(t *testing.T) {
	t.Parallel()

	router := ws.NewRouter()
	bus := newFakeBus()
	policy := ws.DeliveryPolicy{ws.EventBoardJoined: true}
	b := ws.NewBroadcaster(router, bus, policy)

	boardID := uuid.New()
	origin := newFakeSession(testUser("alice"))
	other := newFakeSession(testUser("bob"))
	router.Join(boardID, origin)
	router.Join(boardID, other)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- b.Run(ctx)
	}()

	bus.messages <- mustJSON(map[string]any{
		"event":  ws.EventBoardJoined,
		"board":  boardID,
		"origin": origin.ID(),
		"data":   map[string]string{"boardId": boardID.String()},
	})

	require.Eventually(t, func() bool {
		return len(other.frames()) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Empty(t, origin.frames(), "policy excludes the originating connection")

	cancel()
	require.NoError(t, <-done)
}

func TestDefaultDeliveryPolicyIncludesOriginator(t *testing.T) {
	t.Parallel()

	policy := ws.DefaultDeliveryPolicy()
	for _, event := range []string{
		ws.EventBoardUsers,
		ws.EventBoardJoined,
		ws.EventColumnCreated,
		ws.EventTaskCreated,
		ws.EventTaskUpdated,
		ws.EventTaskDeleted,
	} {
		assert.False(t, policy[event], "%s must reach the originator's own tabs", event)
	}
}
