package ws

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sujitmemane/bites/internal/domain"
)

// Session is a single realtime connection as the fan-out layer sees it.
// *session (the live websocket wrapper) satisfies it; tests substitute
// recording fakes.
type Session interface {
	ID() uuid.UUID
	User() *domain.User
	Send(ctx context.Context, event string, data any) error
}

// BroadcastOptions controls delivery of a single broadcast.
type BroadcastOptions struct {
	// ExcludeID skips the named connection during fan-out. The zero value
	// delivers to every room member.
	ExcludeID uuid.UUID
}

// Router maps board ids to in-process fan-out groups. Join and Leave are
// idempotent: joining a room twice never causes duplicate delivery, and
// leaving a room the connection is not in is a no-op.
type Router struct {
	mu     sync.RWMutex
	rooms  map[uuid.UUID]map[uuid.UUID]Session // board id -> connection id -> session
	joined map[uuid.UUID]map[uuid.UUID]struct{} // connection id -> board ids
}

func NewRouter() *Router {
	return &Router{
		rooms:  make(map[uuid.UUID]map[uuid.UUID]Session),
		joined: make(map[uuid.UUID]map[uuid.UUID]struct{}),
	}
}

// Join adds the session to the fan-out group for boardID.
func (r *Router) Join(boardID uuid.UUID, s Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room := r.rooms[boardID]
	if room == nil {
		room = make(map[uuid.UUID]Session)
		r.rooms[boardID] = room
	}
	room[s.ID()] = s

	boards := r.joined[s.ID()]
	if boards == nil {
		boards = make(map[uuid.UUID]struct{})
		r.joined[s.ID()] = boards
	}
	boards[boardID] = struct{}{}
}

// Leave removes the session from the fan-out group for boardID.
func (r *Router) Leave(boardID uuid.UUID, s Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.remove(boardID, s.ID())
}

// Drop removes the session from every room it joined and returns the board
// ids it was in, exactly once each. Called during connection teardown so no
// membership leaks past the connection's lifetime.
func (r *Router) Drop(s Session) []uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()

	boards := make([]uuid.UUID, 0, len(r.joined[s.ID()]))
	for boardID := range r.joined[s.ID()] {
		boards = append(boards, boardID)
	}
	for _, boardID := range boards {
		r.remove(boardID, s.ID())
	}
	return boards
}

// remove deletes a single membership. Caller holds the write lock.
func (r *Router) remove(boardID, connID uuid.UUID) {
	room := r.rooms[boardID]
	delete(room, connID)
	if len(room) == 0 {
		delete(r.rooms, boardID)
	}

	boards := r.joined[connID]
	delete(boards, boardID)
	if len(boards) == 0 {
		delete(r.joined, connID)
	}
}

// RoomSize reports how many connections are in the fan-out group for
// boardID.
func (r *Router) RoomSize(boardID uuid.UUID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.rooms[boardID])
}

// Broadcast delivers an event to every connection in the boardID group.
// Per-connection send failures are logged and isolated: a dead socket never
// aborts delivery to the rest of the room. No ordering guarantee beyond the
// order the broadcasts were issued.
func (r *Router) Broadcast(ctx context.Context, boardID uuid.UUID, event string, data any, opts BroadcastOptions) {
	r.mu.RLock()
	targets := make([]Session, 0, len(r.rooms[boardID]))
	for connID, s := range r.rooms[boardID] {
		if opts.ExcludeID != uuid.Nil && connID == opts.ExcludeID {
			continue
		}
		targets = append(targets, s)
	}
	r.mu.RUnlock()

	for _, s := range targets {
		if err := s.Send(ctx, event, data); err != nil {
			log.Debug().Err(err).
				Str("event", event).
				Str("board_id", boardID.String()).
				Str("conn_id", s.ID().String()).
				Msg("ws: delivery failed, skipping connection")
		}
	}
}
