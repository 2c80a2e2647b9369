package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sujitmemane/bites/internal/auth"
	"github.com/sujitmemane/bites/internal/domain"
)

// UserGetter loads a user profile by id. domain.UserRepository satisfies it.
type UserGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// Gateway accepts realtime connections, authenticates them, and feeds
// client events into the Coordinator. A connection that never completes
// the auth handshake is closed before any room state exists for it.
type Gateway struct {
	coord  *Coordinator
	users  UserGetter
	secret string
}

func NewGateway(coord *Coordinator, users UserGetter, jwtSecret string) *Gateway {
	return &Gateway{coord: coord, users: users, secret: jwtSecret}
}

type authPayload struct {
	Token string `json:"token"`
}

type boardRef struct {
	BoardID uuid.UUID `json:"boardId"`
}

// ServeBoards handles websocket connections for realtime board
// collaboration. The first frame must be an auth frame carrying a bearer
// token; afterwards the client may join and leave board rooms at will.
func (g *Gateway) ServeBoards(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket accept")
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()

	user, err := g.handshake(ctx, conn)
	if err != nil {
		log.Debug().Err(err).Msg("websocket handshake rejected")
		reason := "unauthenticated"
		if errors.Is(err, ErrInvalidCredential) {
			reason = "invalid credential"
		}
		_ = conn.Close(websocket.StatusPolicyViolation, reason)
		return
	}

	s := newSession(conn, user)

	// Teardown runs on a fresh context: a disconnect that interrupts an
	// in-flight operation must not cancel the leave settlement.
	defer func() {
		teardownCtx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
		defer cancel()
		g.coord.Disconnect(teardownCtx, s)
	}()

	// Dispatch table keyed by event kind. Registered once per connection;
	// room membership itself is cleaned up in the deferred Disconnect, so
	// nothing leaks across reconnects.
	handlers := map[string]func(context.Context, json.RawMessage){
		EventBoardJoin: func(ctx context.Context, data json.RawMessage) {
			boardID, refErr := parseBoardRef(data)
			if refErr != nil {
				log.Debug().Err(refErr).Msg("ws: bad board:join payload")
				return
			}
			if joinErr := g.coord.Join(ctx, s, boardID); joinErr != nil {
				log.Warn().Err(joinErr).Str("board_id", boardID.String()).Msg("ws: join rejected")
			}
		},
		EventBoardLeave: func(ctx context.Context, data json.RawMessage) {
			boardID, refErr := parseBoardRef(data)
			if refErr != nil {
				log.Debug().Err(refErr).Msg("ws: bad board:leave payload")
				return
			}
			g.coord.Leave(ctx, s, boardID)
		},
	}

	for {
		_, raw, readErr := conn.Read(ctx)
		if readErr != nil {
			// Normal closure or transport failure; the deferred teardown
			// reconciles room membership either way.
			return
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.Debug().Err(err).Msg("ws: malformed frame")
			continue
		}

		handler, ok := handlers[msg.Event]
		if !ok {
			log.Debug().Str("event", msg.Event).Msg("ws: unknown event")
			continue
		}
		handler(ctx, msg.Data)
	}
}

// handshake reads the auth frame and resolves the connection's identity.
// No presence changes happen here; presence changes only on explicit join.
func (g *Gateway) handshake(ctx context.Context, conn *websocket.Conn) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, handshakeTimeout)
	defer cancel()

	_, raw, err := conn.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ws.Gateway.handshake: %w", ErrUnauthenticated)
	}

	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil || msg.Event != EventAuth {
		return nil, fmt.Errorf("ws.Gateway.handshake: %w", ErrUnauthenticated)
	}

	var payload authPayload
	if err := json.Unmarshal(msg.Data, &payload); err != nil || payload.Token == "" {
		return nil, fmt.Errorf("ws.Gateway.handshake: %w", ErrUnauthenticated)
	}

	claims, err := auth.ValidateToken(g.secret, payload.Token)
	if err != nil {
		return nil, fmt.Errorf("ws.Gateway.handshake: %w", ErrInvalidCredential)
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("ws.Gateway.handshake: %w", ErrInvalidCredential)
	}

	user, err := g.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ws.Gateway.handshake: %w", ErrInvalidCredential)
	}

	return user, nil
}

func parseBoardRef(data json.RawMessage) (uuid.UUID, error) {
	var ref boardRef
	if err := json.Unmarshal(data, &ref); err != nil {
		return uuid.Nil, err
	}
	if ref.BoardID == uuid.Nil {
		return uuid.Nil, errors.New("missing boardId")
	}
	return ref.BoardID, nil
}
