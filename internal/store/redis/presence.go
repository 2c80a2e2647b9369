package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrUnavailable reports that the shared presence store could not be
// reached. Presence is best-effort: callers log and continue, they never
// fail the connection over it.
var ErrUnavailable = errors.New("redis: presence store unavailable")

// Presence is the shared set of users currently viewing each board, safe
// for concurrent use from multiple server processes. Membership is
// reference-counted per connection inside a hash keyed by board: a user
// with several tabs open stays present until the last one leaves, and the
// member list still reports them exactly once.
type Presence struct {
	client *redis.Client
}

// releaseScript decrements a member's connection count and deletes the
// field once no connections remain. Runs atomically server-side so
// concurrent joins and leaves from different instances cannot race the
// count.
var releaseScript = redis.NewScript(`
local n = redis.call('HINCRBY', KEYS[1], ARGV[1], -1)
if n <= 0 then
	redis.call('HDEL', KEYS[1], ARGV[1])
end
return n
`)

// Add marks one more connection of userID as viewing boardID.
func (p *Presence) Add(ctx context.Context, boardID, userID uuid.UUID) error {
	if err := p.client.HIncrBy(ctx, PresenceKey(boardID), userID.String(), 1).Err(); err != nil {
		return fmt.Errorf("redis.Presence.Add: %w: %w", ErrUnavailable, err)
	}
	return nil
}

// Remove releases one connection of userID from boardID. The user stays a
// member while other connections of theirs remain; removing an absent
// member leaves no residue.
func (p *Presence) Remove(ctx context.Context, boardID, userID uuid.UUID) error {
	if err := releaseScript.Run(ctx, p.client, []string{PresenceKey(boardID)}, userID.String()).Err(); err != nil {
		return fmt.Errorf("redis.Presence.Remove: %w: %w", ErrUnavailable, err)
	}
	return nil
}

// Members returns the distinct user ids currently present on boardID,
// unordered. An empty or missing set reads as an empty slice.
func (p *Presence) Members(ctx context.Context, boardID uuid.UUID) ([]uuid.UUID, error) {
	fields, err := p.client.HKeys(ctx, PresenceKey(boardID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis.Presence.Members: %w: %w", ErrUnavailable, err)
	}

	ids := make([]uuid.UUID, 0, len(fields))
	for _, f := range fields {
		id, parseErr := uuid.Parse(f)
		if parseErr != nil {
			// Foreign writer or corrupted field; skip it.
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// PresenceKey returns the shared membership key for a board.
func PresenceKey(boardID uuid.UUID) string {
	return "bites:boards:" + boardID.String() + ":users"
}
