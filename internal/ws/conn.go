package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/sujitmemane/bites/internal/domain"
)

const (
	// handshakeTimeout bounds the wait for the client's auth frame.
	handshakeTimeout = 10 * time.Second

	// writeTimeout bounds a single frame delivery so one stalled socket
	// cannot hold up a broadcast.
	writeTimeout = 5 * time.Second

	// teardownTimeout bounds the leave settlement after a disconnect.
	teardownTimeout = 10 * time.Second
)

// session wraps a live websocket connection with its identity. Writes are
// serialized; concurrent broadcasts to the same connection never interleave
// frames.
type session struct {
	id   uuid.UUID
	user *domain.User
	conn *websocket.Conn

	mu sync.Mutex
}

func newSession(conn *websocket.Conn, user *domain.User) *session {
	return &session{
		id:   uuid.New(),
		user: user,
		conn: conn,
	}
}

func (s *session) ID() uuid.UUID { return s.id }

func (s *session) User() *domain.User { return s.user }

func (s *session) Send(ctx context.Context, event string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("ws.session.Send: marshal data: %w", err)
	}

	frame, err := json.Marshal(Message{Event: event, Data: raw})
	if err != nil {
		return fmt.Errorf("ws.session.Send: marshal frame: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.conn.Write(ctx, websocket.MessageText, frame); err != nil {
		return fmt.Errorf("ws.session.Send: %w", err)
	}
	return nil
}
