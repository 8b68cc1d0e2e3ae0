package domain

import (
	"sort"
	"time"
)

// Priority levels accepted on the wire.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Task represents a single card on the board. The wire contract keeps the
// Spanish field names used by the web client.
type Task struct {
	ID           string     `json:"_id,omitempty"`
	ClientTempID string     `json:"clientTempId,omitempty"`
	Title        string     `json:"titulo"`
	Description  string     `json:"descripcion,omitempty"`
	Column       string     `json:"columna,omitempty"`
	Priority     string     `json:"prioridad,omitempty"`
	Order        int        `json:"order"`
	CreatedAt    time.Time  `json:"createdAt,omitempty"`
	LastEditedBy string     `json:"lastEditedBy,omitempty"`
	LastEditedAt *time.Time `json:"lastEditedAt,omitempty"`
}

// TaskPatch carries a partial task update. Nil fields are left untouched.
type TaskPatch struct {
	Title       *string `json:"titulo,omitempty"`
	Description *string `json:"descripcion,omitempty"`
	Column      *string `json:"columna,omitempty"`
	Priority    *string `json:"prioridad,omitempty"`
	Order       *int    `json:"order,omitempty"`
	EditedBy    string  `json:"-"`
}

// Empty reports whether the patch carries no field changes.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Column == nil &&
		p.Priority == nil && p.Order == nil
}

// NormalizePriority maps unknown or empty priority values to the default.
func NormalizePriority(p string) string {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return p
	default:
		return PriorityMedium
	}
}

// SortTasks orders tasks by their order hint, keeping arrival order for
// ties. A task without a hint carries 0 and sorts first.
func SortTasks(tasks []Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].Order < tasks[j].Order
	})
}

// Apply merges the patch into a copy of the task and returns it.
func (p TaskPatch) Apply(t Task) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Column != nil {
		t.Column = *p.Column
	}
	if p.Priority != nil {
		t.Priority = NormalizePriority(*p.Priority)
	}
	if p.Order != nil {
		t.Order = *p.Order
	}
	return t
}
