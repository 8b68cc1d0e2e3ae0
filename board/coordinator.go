// Package board holds the sync coordinator: every task and column mutation,
// whether it arrives over REST or the realtime channel, is applied to
// durable storage here exactly once and then fanned out to the other
// connected clients.
package board

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"tablero-api/domain"
)

// Storage abstracts board persistence for the coordinator.
type Storage interface {
	ListTasks(ctx context.Context) ([]domain.Task, error)
	GetTask(ctx context.Context, id string) (domain.Task, error)
	InsertTask(ctx context.Context, t domain.Task) error
	UpdateTask(ctx context.Context, t domain.Task) error
	DeleteTask(ctx context.Context, id string) error
	ListColumns(ctx context.Context) ([]domain.Column, error)
	GetColumn(ctx context.Context, id string) (domain.Column, error)
	InsertColumn(ctx context.Context, c domain.Column) error
	UpdateColumn(ctx context.Context, c domain.Column) error
	DeleteColumn(ctx context.Context, id string) error
}

// Publisher fans a board event out to the room, skipping the origin session.
type Publisher interface {
	Publish(ctx context.Context, event string, payload any, origin string) error
}

// ValidationError rejects input before it reaches persistence.
type ValidationError string

func (e ValidationError) Error() string { return string(e) }

// Coordinator applies mutations in arrival order with no cross-mutation
// locking; overlapping writes resolve last-write-wins.
type Coordinator struct {
	store Storage
	pub   Publisher
	log   *log.Logger
	now   func() time.Time
}

// New creates a Coordinator over the given storage and publisher.
func New(store Storage, pub Publisher, logger *log.Logger) *Coordinator {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Coordinator{store: store, pub: pub, log: logger, now: time.Now}
}

// ListTasks returns every task on the board.
func (c *Coordinator) ListTasks(ctx context.Context) ([]domain.Task, error) {
	return c.store.ListTasks(ctx)
}

// CreateTask persists a new task. Any client-supplied durable id is
// discarded; the clientTempId is echoed back unchanged so the invoking
// client can reconcile its optimistic placeholder. This path does not
// broadcast: the response is for the invoker only.
func (c *Coordinator) CreateTask(ctx context.Context, t domain.Task) (domain.Task, error) {
	if t.Title == "" {
		return domain.Task{}, ValidationError("titulo is required")
	}
	tempID := t.ClientTempID
	t.ID = uuid.NewString()
	t.ClientTempID = ""
	t.Priority = domain.NormalizePriority(t.Priority)
	if t.Column == "" {
		t.Column = domain.FallbackColumnName
	}
	t.CreatedAt = c.now().UTC()
	t.LastEditedBy = ""
	t.LastEditedAt = nil
	if err := c.store.InsertTask(ctx, t); err != nil {
		return domain.Task{}, fmt.Errorf("insert task: %w", err)
	}
	t.ClientTempID = tempID
	return t, nil
}

// UpdateTask merges the patch into the stored task and stamps edit
// attribution. Missing tasks yield storage.ErrNotFound.
func (c *Coordinator) UpdateTask(ctx context.Context, id string, patch domain.TaskPatch) (domain.Task, error) {
	existing, err := c.store.GetTask(ctx, id)
	if err != nil {
		return domain.Task{}, err
	}
	updated := patch.Apply(existing)
	edited := c.now().UTC()
	updated.LastEditedAt = &edited
	if patch.EditedBy != "" {
		updated.LastEditedBy = patch.EditedBy
	}
	if err := c.store.UpdateTask(ctx, updated); err != nil {
		return domain.Task{}, err
	}
	return updated, nil
}

// MoveTask is an update restricted to the column and order fields, used by
// drag-and-drop.
func (c *Coordinator) MoveTask(ctx context.Context, id, newColumn string, newOrder *int, movedBy string) (domain.Task, error) {
	patch := domain.TaskPatch{Column: &newColumn, Order: newOrder, EditedBy: movedBy}
	return c.UpdateTask(ctx, id, patch)
}

// DeleteTask removes a task and returns the removed record.
func (c *Coordinator) DeleteTask(ctx context.Context, id string) (domain.Task, error) {
	removed, err := c.store.GetTask(ctx, id)
	if err != nil {
		return domain.Task{}, err
	}
	if err := c.store.DeleteTask(ctx, id); err != nil {
		return domain.Task{}, err
	}
	return removed, nil
}

// ListColumns returns the board columns in display order. An empty store is
// a transient state: the well-known defaults are seeded before returning,
// so the seeding is invisible and idempotent to callers.
func (c *Coordinator) ListColumns(ctx context.Context) ([]domain.Column, error) {
	cols, err := c.store.ListColumns(ctx)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		for _, col := range domain.DefaultColumns() {
			col.ID = uuid.NewString()
			if err := c.store.InsertColumn(ctx, col); err != nil {
				return nil, fmt.Errorf("seed column %q: %w", col.Name, err)
			}
			cols = append(cols, col)
		}
		c.log.WithField("count", len(cols)).Info("seeded default columns")
	}
	domain.SortColumns(cols)
	return cols, nil
}

// CreateColumn appends a column after the current rightmost one and
// broadcasts column-created to the room.
func (c *Coordinator) CreateColumn(ctx context.Context, name, creator string) (domain.Column, error) {
	if name == "" {
		return domain.Column{}, ValidationError("name is required")
	}
	cols, err := c.store.ListColumns(ctx)
	if err != nil {
		return domain.Column{}, err
	}
	order := 0
	for _, col := range cols {
		if col.Name == name {
			return domain.Column{}, ValidationError("column name already exists")
		}
		if col.Order >= order {
			order = col.Order + 1
		}
	}
	col := domain.Column{ID: uuid.NewString(), Name: name, Order: order, CreatedBy: creator}
	if err := c.store.InsertColumn(ctx, col); err != nil {
		return domain.Column{}, fmt.Errorf("insert column: %w", err)
	}
	c.publish(ctx, domain.EventColumnCreated, domain.ColumnCreatedEvent{Column: col, Timestamp: c.now().UTC()}, "")
	return col, nil
}

// UpdateColumn applies the patch and broadcasts column-updated carrying the
// new state plus the prior name, so clients can fix any name-keyed lookups.
// Tasks referencing the old name are not rewritten: id references make the
// rename cosmetic, and stale name references stay matchable through the
// fallback lookup in ColumnRef.
func (c *Coordinator) UpdateColumn(ctx context.Context, id string, patch domain.ColumnPatch) (domain.Column, error) {
	col, err := c.store.GetColumn(ctx, id)
	if err != nil {
		return domain.Column{}, err
	}
	previousName := ""
	if patch.Name != nil && *patch.Name != col.Name {
		previousName = col.Name
		col.Name = *patch.Name
	}
	if patch.Order != nil {
		col.Order = *patch.Order
	}
	if err := c.store.UpdateColumn(ctx, col); err != nil {
		return domain.Column{}, err
	}
	c.publish(ctx, domain.EventColumnUpdated, domain.ColumnUpdatedEvent{
		Column:       col,
		PreviousName: previousName,
		Timestamp:    c.now().UTC(),
	}, "")
	return col, nil
}

// RemoveColumn deletes the column and broadcasts column-removed. Tasks
// still assigned to it are left untouched: their reference goes stale and
// resolves to the fallback column at read time.
func (c *Coordinator) RemoveColumn(ctx context.Context, id string) (domain.Column, error) {
	col, err := c.store.GetColumn(ctx, id)
	if err != nil {
		return domain.Column{}, err
	}
	if err := c.store.DeleteColumn(ctx, id); err != nil {
		return domain.Column{}, err
	}
	c.publish(ctx, domain.EventColumnRemoved, domain.ColumnRemovedEvent{ColumnID: id, Timestamp: c.now().UTC()}, "")
	return col, nil
}

// ReorderColumns sets each named column's order to its positional index in
// the input. Updates are persisted independently, not atomically.
func (c *Coordinator) ReorderColumns(ctx context.Context, orderedIDs []string) ([]domain.Column, error) {
	return c.reorderColumns(ctx, orderedIDs, "")
}

func (c *Coordinator) reorderColumns(ctx context.Context, orderedIDs []string, origin string) ([]domain.Column, error) {
	for i, id := range orderedIDs {
		col, err := c.store.GetColumn(ctx, id)
		if err != nil {
			return nil, err
		}
		col.Order = i
		if err := c.store.UpdateColumn(ctx, col); err != nil {
			return nil, err
		}
	}
	cols, err := c.store.ListColumns(ctx)
	if err != nil {
		return nil, err
	}
	domain.SortColumns(cols)
	c.publish(ctx, domain.EventColumnReordered, domain.ColumnsReorderedEvent{Columns: cols, Timestamp: c.now().UTC()}, origin)
	return cols, nil
}

// publish fans an event out after a successful persistence. Failures are
// logged, never propagated: the mutation itself already succeeded.
func (c *Coordinator) publish(ctx context.Context, event string, payload any, origin string) {
	if c.pub == nil {
		return
	}
	if err := c.pub.Publish(ctx, event, payload, origin); err != nil {
		c.log.WithFields(log.Fields{"event": event, "error": err}).Error("broadcast failed")
	}
}
