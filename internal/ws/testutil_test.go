package ws_test

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"github.com/sujitmemane/bites/internal/domain"
	"github.com/sujitmemane/bites/internal/ws"
)

// ---------------------------------------------------------------------------
// Recording fake Session
// ---------------------------------------------------------------------------

type sentFrame struct {
	event string
	data  any
}

type fakeSession struct {
	id   uuid.UUID
	user *domain.User

	mu      sync.Mutex
	sent    []sentFrame
	sendErr error
}

func newFakeSession(user *domain.User) *fakeSession {
	return &fakeSession{id: uuid.New(), user: user}
}

func (s *fakeSession) ID() uuid.UUID { return s.id }

func (s *fakeSession) User() *domain.User { return s.user }

func (s *fakeSession) Send(_ context.Context, event string, data any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return s.sendErr
	}
	s.sent = append(s.sent, sentFrame{event: event, data: data})
	return nil
}

func (s *fakeSession) frames() []sentFrame {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]sentFrame, len(s.sent))
	copy(out, s.sent)
	return out
}

func (s *fakeSession) events() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.sent))
	for _, f := range s.sent {
		out = append(out, f.event)
	}
	return out
}

// ---------------------------------------------------------------------------
// In-memory reference-counted PresenceStore
// ---------------------------------------------------------------------------

type fakePresence struct {
	mu     sync.Mutex
	counts map[uuid.UUID]map[uuid.UUID]int // board -> user -> connection count

	addErr     error
	removeErr  error
	membersErr error
}

func newFakePresence() *fakePresence {
	return &fakePresence{counts: make(map[uuid.UUID]map[uuid.UUID]int)}
}

func (p *fakePresence) Add(_ context.Context, boardID, userID uuid.UUID) error {
	if p.addErr != nil {
		return p.addErr
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	board := p.counts[boardID]
	if board == nil {
		board = make(map[uuid.UUID]int)
		p.counts[boardID] = board
	}
	board[userID]++
	return nil
}

func (p *fakePresence) Remove(_ context.Context, boardID, userID uuid.UUID) error {
	if p.removeErr != nil {
		return p.removeErr
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	board := p.counts[boardID]
	board[userID]--
	if board[userID] <= 0 {
		delete(board, userID)
	}
	return nil
}

func (p *fakePresence) Members(_ context.Context, boardID uuid.UUID) ([]uuid.UUID, error) {
	if p.membersErr != nil {
		return nil, p.membersErr
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]uuid.UUID, 0, len(p.counts[boardID]))
	for id := range p.counts[boardID] {
		ids = append(ids, id)
	}
	return ids, nil
}

func (p *fakePresence) count(boardID, userID uuid.UUID) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.counts[boardID][userID]
}

// ---------------------------------------------------------------------------
// Fake UserDirectory backed by a map
// ---------------------------------------------------------------------------

type fakeDirectory struct {
	users map[uuid.UUID]*domain.User
}

func newFakeDirectory(users ...*domain.User) *fakeDirectory {
	d := &fakeDirectory{users: make(map[uuid.UUID]*domain.User)}
	for _, u := range users {
		d.users[u.ID] = u
	}
	return d
}

func (d *fakeDirectory) ListByIDs(_ context.Context, ids []uuid.UUID) ([]*domain.User, error) {
	out := make([]*domain.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := d.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (d *fakeDirectory) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	if u, ok := d.users[id]; ok {
		return u, nil
	}
	return nil, domain.ErrNotFound
}

// ---------------------------------------------------------------------------
// Recording RoomNotifier, optionally bridged to a local router
// ---------------------------------------------------------------------------

type notification struct {
	origin  uuid.UUID
	boardID uuid.UUID
	event   string
	payload any
}

type recordingNotifier struct {
	mu     sync.Mutex
	calls  []notification
	router *ws.Router // when set, notifications are fanned out locally
}

func (n *recordingNotifier) NotifyFrom(ctx context.Context, origin, boardID uuid.UUID, event string, payload any) error {
	n.mu.Lock()
	n.calls = append(n.calls, notification{origin: origin, boardID: boardID, event: event, payload: payload})
	router := n.router
	n.mu.Unlock()

	if router != nil {
		router.Broadcast(ctx, boardID, event, payload, ws.BroadcastOptions{})
	}
	return nil
}

func (n *recordingNotifier) notifications() []notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notification, len(n.calls))
	copy(out, n.calls)
	return out
}

// ---------------------------------------------------------------------------
// Fake EventBus
// ---------------------------------------------------------------------------

type published struct {
	channel string
	payload []byte
}

type fakeBus struct {
	mu         sync.Mutex
	publishes  []published
	publishErr error

	messages chan []byte
}

func newFakeBus() *fakeBus {
	return &fakeBus{messages: make(chan []byte, 16)}
}

func (b *fakeBus) Publish(_ context.Context, channel string, payload []byte) error {
	if b.publishErr != nil {
		return b.publishErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.publishes = append(b.publishes, published{channel: channel, payload: payload})
	return nil
}

func (b *fakeBus) PSubscribe(context.Context, string) (<-chan []byte, func(), error) {
	return b.messages, func() {}, nil
}

func (b *fakeBus) lastPublished() (published, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.publishes) == 0 {
		return published{}, false
	}
	return b.publishes[len(b.publishes)-1], true
}

// mustJSON marshals v for hand-built bus frames.
func mustJSON(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return raw
}

// testUser builds a user with a deterministic profile.
func testUser(name string) *domain.User {
	return &domain.User{
		ID:       uuid.New(),
		Email:    name + "@example.com",
		Username: name,
		Avatar:   "https://api.dicebear.com/7.x/pixel-art/svg?seed=" + name,
	}
}
