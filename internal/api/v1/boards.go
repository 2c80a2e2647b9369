package v1

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/sujitmemane/bites/internal/domain"
	"github.com/sujitmemane/bites/internal/server/middleware"
)

type ListBoardsInput struct{}

type ListBoardsOutput struct {
	Body []*domain.Board
}

type CreateBoardInput struct {
	Body struct {
		Title string `json:"title" minLength:"1" maxLength:"255" doc:"Board title"`
	}
}

type CreateBoardOutput struct {
	Body *domain.Board
}

type GetBoardInput struct {
	BoardID uuid.UUID `path:"boardID" doc:"Board ID"`
}

// ColumnWithTasks is a column carrying its tasks, ordered by position.
type ColumnWithTasks struct {
	domain.Column
	Tasks []*domain.Task `json:"tasks"`
}

type BoardDetail struct {
	Board   *domain.Board      `json:"board"`
	Columns []*ColumnWithTasks `json:"columns"`
}

type GetBoardOutput struct {
	Body *BoardDetail
}

func RegisterBoardRoutes(api huma.API, store DataStore) {
	huma.Register(api, huma.Operation{
		OperationID: "list-boards",
		Method:      http.MethodGet,
		Path:        "/boards",
		Summary:     "List boards",
		Tags:        []string{"Boards"},
	}, func(ctx context.Context, _ *ListBoardsInput) (*ListBoardsOutput, error) {
		boards, err := store.Boards().List(ctx)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list boards", err)
		}
		if boards == nil {
			boards = []*domain.Board{}
		}
		return &ListBoardsOutput{Body: boards}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "create-board",
		Method:      http.MethodPost,
		Path:        "/boards",
		Summary:     "Create a new board",
		Tags:        []string{"Boards"},
	}, func(ctx context.Context, input *CreateBoardInput) (*CreateBoardOutput, error) {
		userID, ok := middleware.UserIDFromContext(ctx)
		if !ok {
			return nil, huma.Error401Unauthorized("missing user context")
		}

		now := time.Now()
		board := &domain.Board{
			ID:        uuid.New(),
			Title:     input.Body.Title,
			OwnerID:   userID,
			CreatedAt: now,
			UpdatedAt: now,
		}

		if err := store.Boards().Create(ctx, board); err != nil {
			return nil, huma.Error500InternalServerError("failed to create board", err)
		}

		return &CreateBoardOutput{Body: board}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-board",
		Method:      http.MethodGet,
		Path:        "/boards/{boardID}",
		Summary:     "Get a board with its columns and tasks",
		Tags:        []string{"Boards"},
	}, func(ctx context.Context, input *GetBoardInput) (*GetBoardOutput, error) {
		board, err := store.Boards().GetByID(ctx, input.BoardID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("board not found")
			}
			return nil, huma.Error500InternalServerError("failed to load board", err)
		}

		columns, err := store.Columns().ListByBoard(ctx, input.BoardID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list columns", err)
		}

		tasks, err := store.Tasks().ListByBoard(ctx, input.BoardID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list tasks", err)
		}

		detail := &BoardDetail{
			Board:   board,
			Columns: make([]*ColumnWithTasks, 0, len(columns)),
		}
		for _, col := range columns {
			cwt := &ColumnWithTasks{Column: *col, Tasks: []*domain.Task{}}
			for _, t := range tasks {
				if t.ColumnID == col.ID {
					cwt.Tasks = append(cwt.Tasks, t)
				}
			}
			detail.Columns = append(detail.Columns, cwt)
		}

		return &GetBoardOutput{Body: detail}, nil
	})
}
