package board

import (
	"context"

	"tablero-api/domain"
)

// Realtime handlers. Each performs the same persistence operation as its
// REST counterpart, then emits the room-scoped event carrying the canonical
// record, the acting user and a server timestamp, skipping the origin
// session. Persistence errors are returned to the caller so the session can
// report them to the sender alone; nothing is broadcast on failure.

func actor(userID string) string {
	if userID == "" {
		return "anonymous"
	}
	return userID
}

// HandleTaskCreated persists a client-announced task and fans out task-added.
func (c *Coordinator) HandleTaskCreated(ctx context.Context, in domain.TaskCreatedInput, origin string) (domain.Task, error) {
	task, err := c.CreateTask(ctx, in.Task)
	if err != nil {
		return domain.Task{}, err
	}
	c.publish(ctx, domain.EventTaskAdded, domain.TaskAddedEvent{
		Task:      task,
		CreatedBy: actor(in.UserID),
		Timestamp: c.now().UTC(),
	}, origin)
	return task, nil
}

// HandleTaskMoved applies a drag-and-drop move and fans out task-updated.
func (c *Coordinator) HandleTaskMoved(ctx context.Context, in domain.TaskMovedInput, origin string) (domain.Task, error) {
	task, err := c.MoveTask(ctx, in.TaskID, in.NewColumn, in.NewOrder, in.UserID)
	if err != nil {
		return domain.Task{}, err
	}
	c.publish(ctx, domain.EventTaskUpdated, domain.TaskUpdatedEvent{
		Task:      task,
		MovedBy:   actor(in.UserID),
		Timestamp: c.now().UTC(),
	}, origin)
	return task, nil
}

// HandleTaskUpdated applies a field edit and fans out task-modified.
func (c *Coordinator) HandleTaskUpdated(ctx context.Context, in domain.TaskUpdatedInput, origin string) (domain.Task, error) {
	patch := in.Updates
	patch.EditedBy = in.UserID
	task, err := c.UpdateTask(ctx, in.TaskID, patch)
	if err != nil {
		return domain.Task{}, err
	}
	c.publish(ctx, domain.EventTaskModified, domain.TaskModifiedEvent{
		Task:      task,
		UpdatedBy: actor(in.UserID),
		Timestamp: c.now().UTC(),
	}, origin)
	return task, nil
}

// HandleTaskDeleted removes the task and fans out task-removed.
func (c *Coordinator) HandleTaskDeleted(ctx context.Context, in domain.TaskDeletedInput, origin string) (domain.Task, error) {
	task, err := c.DeleteTask(ctx, in.TaskID)
	if err != nil {
		return domain.Task{}, err
	}
	c.publish(ctx, domain.EventTaskRemoved, domain.TaskRemovedEvent{
		TaskID:    in.TaskID,
		DeletedBy: actor(in.UserID),
		Timestamp: c.now().UTC(),
	}, origin)
	return task, nil
}

// HandleColumnsReordered applies a client-announced column ordering and
// fans out column-reordered with the resulting set.
func (c *Coordinator) HandleColumnsReordered(ctx context.Context, in domain.ColumnsReorderedInput, origin string) ([]domain.Column, error) {
	ids := make([]string, 0, len(in.Columns))
	for _, col := range in.Columns {
		ids = append(ids, col.ID)
	}
	return c.reorderColumns(ctx, ids, origin)
}
