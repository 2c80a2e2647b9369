package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sujitmemane/bites/internal/domain"
	"github.com/sujitmemane/bites/internal/ws"
)

type CreateColumnInput struct {
	BoardID uuid.UUID `path:"boardID" doc:"Board ID"`
	Body    struct {
		Name     string `json:"name" minLength:"1" maxLength:"255" doc:"Column name"`
		Position int    `json:"position,omitempty" doc:"Column position"`
	}
}

type CreateColumnOutput struct {
	Status int
	Body   *domain.Column
}

func RegisterColumnRoutes(api huma.API, store DataStore, notifier Notifier) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-column",
		Method:        http.MethodPost,
		Path:          "/boards/{boardID}/columns",
		Summary:       "Create a column on a board",
		Tags:          []string{"Columns"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateColumnInput) (*CreateColumnOutput, error) {
		if _, err := store.Boards().GetByID(ctx, input.BoardID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("board not found")
			}
			return nil, huma.Error500InternalServerError("failed to validate board", err)
		}

		column := &domain.Column{
			ID:       uuid.New(),
			BoardID:  input.BoardID,
			Name:     input.Body.Name,
			Position: input.Body.Position,
		}

		if err := store.Columns().Create(ctx, column); err != nil {
			return nil, huma.Error500InternalServerError("failed to create column", err)
		}

		// New columns start empty; the event payload mirrors the board
		// detail shape so clients can splice it in directly.
		payload := &ColumnWithTasks{Column: *column, Tasks: []*domain.Task{}}
		if err := notifier.Notify(ctx, input.BoardID, ws.EventColumnCreated, payload); err != nil {
			log.Warn().Err(err).Str("board_id", input.BoardID.String()).Msg("column:created broadcast failed")
		}

		return &CreateColumnOutput{Status: http.StatusCreated, Body: column}, nil
	})
}
