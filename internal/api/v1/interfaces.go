package v1

import (
	"context"

	"github.com/google/uuid"

	"github.com/sujitmemane/bites/internal/domain"
)

// DataStore abstracts the repository accessor pattern for handler testing.
// *postgres.Store satisfies this interface.
type DataStore interface {
	Users() domain.UserRepository
	Boards() domain.BoardRepository
	Columns() domain.ColumnRepository
	Tasks() domain.TaskRepository
}

// AuthService abstracts authentication operations for handler testing.
// *auth.Service satisfies this interface.
type AuthService interface {
	Register(ctx context.Context, email, password, username string) (*domain.User, string, error)
	Login(ctx context.Context, email, password string) (*domain.User, string, error)
}

// Notifier fans a board event out to every viewer of the board. Mutation
// handlers call it only after the store mutation succeeded. *ws.Broadcaster
// satisfies this interface.
type Notifier interface {
	Notify(ctx context.Context, boardID uuid.UUID, event string, payload any) error
}
