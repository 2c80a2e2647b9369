package ws

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Events accepted from clients.
const (
	EventAuth       = "auth"
	EventBoardJoin  = "board:join"
	EventBoardLeave = "board:leave"
)

// Events emitted to clients, scoped to a board room.
const (
	EventBoardUsers    = "board:users"
	EventBoardJoined   = "board:joined"
	EventColumnCreated = "column:created"
	EventTaskCreated   = "task:created"
	EventTaskUpdated   = "task:updated"
	EventTaskDeleted   = "task:deleted"
)

// Message is the wire envelope for every websocket frame, in both
// directions.
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// BoardUser is the presence projection of a user: the fields every viewer
// of a board needs to render the "who is here" strip.
type BoardUser struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Avatar   string    `json:"avatar"`
}

// JoinAnnouncement is the payload of a board:joined event. It carries the
// joiner's denormalized profile so receivers don't need a profile fetch,
// plus the originating connection id.
type JoinAnnouncement struct {
	SocketID uuid.UUID `json:"socketId"`
	BoardID  uuid.UUID `json:"boardId"`
	User     BoardUser `json:"user"`
}
