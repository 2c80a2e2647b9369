package domain

import (
	"context"

	"github.com/google/uuid"
)

// Column is a vertical lane on a board. Tasks inside a column are ordered
// by their own position field.
type Column struct {
	ID       uuid.UUID `json:"id"`
	BoardID  uuid.UUID `json:"boardId"`
	Name     string    `json:"name"`
	Position int       `json:"position"`
}

type ColumnRepository interface {
	Create(ctx context.Context, column *Column) error
	GetByID(ctx context.Context, id uuid.UUID) (*Column, error)
	ListByBoard(ctx context.Context, boardID uuid.UUID) ([]*Column, error)
}
