package ws

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sujitmemane/bites/internal/domain"
)

// PresenceStore is the shared "user is present on board" capability. It is
// backed by an external store usable from multiple server processes, never
// by in-process memory; *redis.Presence satisfies it.
type PresenceStore interface {
	Add(ctx context.Context, boardID, userID uuid.UUID) error
	Remove(ctx context.Context, boardID, userID uuid.UUID) error
	Members(ctx context.Context, boardID uuid.UUID) ([]uuid.UUID, error)
}

// UserDirectory resolves presence member ids to user profiles.
// domain.UserRepository satisfies it.
type UserDirectory interface {
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.User, error)
}

// RoomNotifier publishes a room-scoped event on behalf of an originating
// connection. *Broadcaster satisfies it.
type RoomNotifier interface {
	NotifyFrom(ctx context.Context, origin, boardID uuid.UUID, event string, payload any) error
}

// Coordinator orchestrates join/leave transitions: it keeps the Router's
// in-process groups, the shared PresenceStore, and the clients' view of
// "who is here" consistent with each other. Presence is best-effort: a
// store failure degrades the member list, never the connection or the
// mutation fan-out.
type Coordinator struct {
	router   *Router
	presence PresenceStore
	users    UserDirectory
	notifier RoomNotifier
}

func NewCoordinator(router *Router, presence PresenceStore, users UserDirectory, notifier RoomNotifier) *Coordinator {
	return &Coordinator{
		router:   router,
		presence: presence,
		users:    users,
		notifier: notifier,
	}
}

// Join subscribes the connection to the board's room and marks its user
// present. The joiner privately receives the full board:users list; the
// whole room, the joiner's other tabs included, gets a board:joined
// announcement carrying the joiner's profile.
func (c *Coordinator) Join(ctx context.Context, s Session, boardID uuid.UUID) error {
	user := s.User()
	if user == nil {
		return fmt.Errorf("ws.Coordinator.Join: %w", ErrUnauthenticated)
	}

	c.router.Join(boardID, s)

	if err := c.presence.Add(ctx, boardID, user.ID); err != nil {
		log.Warn().Err(err).
			Str("board_id", boardID.String()).
			Str("user_id", user.ID.String()).
			Msg("ws: presence add failed, continuing degraded")
	}

	users, err := c.boardUsers(ctx, boardID)
	if err != nil {
		log.Warn().Err(err).Str("board_id", boardID.String()).Msg("ws: presence list unavailable on join")
	} else if sendErr := s.Send(ctx, EventBoardUsers, users); sendErr != nil {
		log.Debug().Err(sendErr).Str("conn_id", s.ID().String()).Msg("ws: board:users delivery failed")
	}

	announcement := JoinAnnouncement{
		SocketID: s.ID(),
		BoardID:  boardID,
		User: BoardUser{
			ID:       user.ID,
			Username: user.Username,
			Avatar:   user.Avatar,
		},
	}
	if err := c.notifier.NotifyFrom(ctx, s.ID(), boardID, EventBoardJoined, announcement); err != nil {
		log.Warn().Err(err).Str("board_id", boardID.String()).Msg("ws: join announcement failed")
	}

	return nil
}

// Leave unsubscribes the connection from the board's room, releases its
// user's presence reference, and pushes the updated board:users list to
// the remaining members.
func (c *Coordinator) Leave(ctx context.Context, s Session, boardID uuid.UUID) {
	c.router.Leave(boardID, s)
	c.settleLeave(ctx, s, boardID)
}

// Disconnect reconciles a closed connection: every room it joined gets the
// leave side effects exactly once. Safe to call with a fresh context after
// the connection's own context is gone.
func (c *Coordinator) Disconnect(ctx context.Context, s Session) {
	for _, boardID := range c.router.Drop(s) {
		c.settleLeave(ctx, s, boardID)
	}
}

func (c *Coordinator) settleLeave(ctx context.Context, s Session, boardID uuid.UUID) {
	if user := s.User(); user != nil {
		if err := c.presence.Remove(ctx, boardID, user.ID); err != nil {
			log.Warn().Err(err).
				Str("board_id", boardID.String()).
				Str("user_id", user.ID.String()).
				Msg("ws: presence remove failed, continuing degraded")
		}
	}

	users, err := c.boardUsers(ctx, boardID)
	if err != nil {
		log.Warn().Err(err).Str("board_id", boardID.String()).Msg("ws: presence list unavailable on leave")
		return
	}

	// No exclusion: every remaining member must converge to the same view.
	if err := c.notifier.NotifyFrom(ctx, uuid.Nil, boardID, EventBoardUsers, users); err != nil {
		log.Warn().Err(err).Str("board_id", boardID.String()).Msg("ws: presence broadcast failed")
	}
}

// boardUsers recomputes the present-user list. It always re-reads current
// membership: between a store write and this read the room may have changed
// again, so a list captured before the suspension point must never be
// reused.
func (c *Coordinator) boardUsers(ctx context.Context, boardID uuid.UUID) ([]BoardUser, error) {
	ids, err := c.presence.Members(ctx, boardID)
	if err != nil {
		return nil, fmt.Errorf("ws.Coordinator.boardUsers: %w", err)
	}
	if len(ids) == 0 {
		return []BoardUser{}, nil
	}

	profiles, err := c.users.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("ws.Coordinator.boardUsers: %w", err)
	}

	users := make([]BoardUser, 0, len(profiles))
	for _, u := range profiles {
		users = append(users, BoardUser{ID: u.ID, Username: u.Username, Avatar: u.Avatar})
	}
	return users, nil
}
