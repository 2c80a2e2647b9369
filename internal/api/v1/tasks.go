package v1

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sujitmemane/bites/internal/domain"
	"github.com/sujitmemane/bites/internal/ws"
)

type CreateTaskInput struct {
	BoardID  uuid.UUID `path:"boardID" doc:"Board ID"`
	ColumnID uuid.UUID `path:"columnID" doc:"Column ID"`
	Body     struct {
		Text     string `json:"text" minLength:"1" maxLength:"2000" doc:"Task text"`
		Position int    `json:"position,omitempty" doc:"Task position"`
	}
}

type CreateTaskOutput struct {
	Status int
	Body   *domain.Task
}

type UpdateTaskInput struct {
	BoardID  uuid.UUID `path:"boardID" doc:"Board ID"`
	ColumnID uuid.UUID `path:"columnID" doc:"Column ID"`
	TaskID   uuid.UUID `path:"taskID" doc:"Task ID"`
	Body     struct {
		Text     string `json:"text" minLength:"1" maxLength:"2000" doc:"Task text"`
		Position int    `json:"position,omitempty" doc:"Task position"`
	}
}

type UpdateTaskOutput struct {
	Body *domain.Task
}

type DeleteTaskInput struct {
	BoardID  uuid.UUID `path:"boardID" doc:"Board ID"`
	ColumnID uuid.UUID `path:"columnID" doc:"Column ID"`
	TaskID   uuid.UUID `path:"taskID" doc:"Task ID"`
}

// TaskRemoval is the payload of a task:deleted event; the ids are all a
// client needs to drop the task from its column.
type TaskRemoval struct {
	TaskID   uuid.UUID `json:"taskId"`
	ColumnID uuid.UUID `json:"columnId"`
}

type DeleteTaskOutput struct {
	Body *TaskRemoval
}

func RegisterTaskRoutes(api huma.API, store DataStore, notifier Notifier) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/boards/{boardID}/columns/{columnID}/tasks",
		Summary:       "Create a task in a column",
		Tags:          []string{"Tasks"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateTaskInput) (*CreateTaskOutput, error) {
		column, err := store.Columns().GetByID(ctx, input.ColumnID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("column not found")
			}
			return nil, huma.Error500InternalServerError("failed to validate column", err)
		}
		if column.BoardID != input.BoardID {
			return nil, huma.Error404NotFound("column not found on this board")
		}

		now := time.Now()
		task := &domain.Task{
			ID:        uuid.New(),
			BoardID:   input.BoardID,
			ColumnID:  input.ColumnID,
			Text:      input.Body.Text,
			Position:  input.Body.Position,
			CreatedAt: now,
			UpdatedAt: now,
		}

		if err := store.Tasks().Create(ctx, task); err != nil {
			return nil, huma.Error500InternalServerError("failed to create task", err)
		}

		if err := notifier.Notify(ctx, input.BoardID, ws.EventTaskCreated, task); err != nil {
			log.Warn().Err(err).Str("board_id", input.BoardID.String()).Msg("task:created broadcast failed")
		}

		return &CreateTaskOutput{Status: http.StatusCreated, Body: task}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task",
		Method:      http.MethodPut,
		Path:        "/boards/{boardID}/columns/{columnID}/tasks/{taskID}",
		Summary:     "Update a task",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *UpdateTaskInput) (*UpdateTaskOutput, error) {
		task, err := store.Tasks().GetByID(ctx, input.TaskID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("task not found")
			}
			return nil, huma.Error500InternalServerError("failed to load task", err)
		}

		task.Text = input.Body.Text
		task.Position = input.Body.Position
		task.ColumnID = input.ColumnID
		task.UpdatedAt = time.Now()

		if err := store.Tasks().Update(ctx, task); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("task not found")
			}
			return nil, huma.Error500InternalServerError("failed to update task", err)
		}

		// The payload denormalizes columnId (it is part of the task) so
		// clients can relocate the card without a second lookup.
		if err := notifier.Notify(ctx, input.BoardID, ws.EventTaskUpdated, task); err != nil {
			log.Warn().Err(err).Str("board_id", input.BoardID.String()).Msg("task:updated broadcast failed")
		}

		return &UpdateTaskOutput{Body: task}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-task",
		Method:      http.MethodDelete,
		Path:        "/boards/{boardID}/columns/{columnID}/tasks/{taskID}",
		Summary:     "Delete a task",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *DeleteTaskInput) (*DeleteTaskOutput, error) {
		if err := store.Tasks().Delete(ctx, input.TaskID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("task not found")
			}
			return nil, huma.Error500InternalServerError("failed to delete task", err)
		}

		removal := &TaskRemoval{TaskID: input.TaskID, ColumnID: input.ColumnID}
		if err := notifier.Notify(ctx, input.BoardID, ws.EventTaskDeleted, removal); err != nil {
			log.Warn().Err(err).Str("board_id", input.BoardID.String()).Msg("task:deleted broadcast failed")
		}

		return &DeleteTaskOutput{Body: removal}, nil
	})
}
