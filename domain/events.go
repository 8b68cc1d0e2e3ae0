package domain

import (
	"time"

	"github.com/bytedance/sonic"
)

// BoardRoom is the single shared room all connected clients join.
const BoardRoom = "kanban-board"

// Client to server events.
const (
	EventJoinKanban      = "join-kanban"
	EventLeaveKanban     = "leave-kanban"
	EventTaskMoved       = "task-moved"
	EventTaskCreated     = "task-created"
	EventTaskUpdated     = "task-updated"
	EventTaskDeleted     = "task-deleted"
	EventColumnReordered = "column-reordered"
)

// Server to client events. Note the asymmetry inherited from the web
// client: an inbound task-updated fans out as task-modified, and an
// inbound task-moved fans out as task-updated.
const (
	EventConnected     = "connected"
	EventJoinedKanban  = "joined-kanban"
	EventTaskAdded     = "task-added"
	EventTaskModified  = "task-modified"
	EventTaskRemoved   = "task-removed"
	EventColumnCreated = "column-created"
	EventColumnUpdated = "column-updated"
	EventColumnRemoved = "column-removed"
	EventError         = "error"
)

// Envelope frames every message on the realtime channel.
type Envelope struct {
	Event string                 `json:"event"`
	Data  sonic.NoCopyRawMessage `json:"data,omitempty"`
}

// NewEnvelope marshals the payload into a framed channel message.
func NewEnvelope(event string, data any) (Envelope, error) {
	raw, err := sonic.Marshal(data)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Event: event, Data: raw}, nil
}

// Broadcast is the fan-out frame carried between server instances. Origin
// names the realtime session that caused the mutation so it can be skipped
// when the event is delivered back to the room.
type Broadcast struct {
	Room   string                 `json:"room"`
	Event  string                 `json:"event"`
	Data   sonic.NoCopyRawMessage `json:"data,omitempty"`
	Origin string                 `json:"origin,omitempty"`
}

// Inbound payloads.

type TaskMovedInput struct {
	TaskID    string `json:"taskId"`
	NewColumn string `json:"newColumna"`
	NewOrder  *int   `json:"newOrder,omitempty"`
	UserID    string `json:"userId,omitempty"`
}

type TaskCreatedInput struct {
	Task   Task   `json:"task"`
	UserID string `json:"userId,omitempty"`
}

type TaskUpdatedInput struct {
	TaskID  string    `json:"taskId"`
	Updates TaskPatch `json:"updates"`
	UserID  string    `json:"userId,omitempty"`
}

type TaskDeletedInput struct {
	TaskID string `json:"taskId"`
	UserID string `json:"userId,omitempty"`
}

type ColumnsReorderedInput struct {
	Columns []Column `json:"columns"`
	UserID  string   `json:"userId,omitempty"`
}

// Outbound payloads. Every mutation broadcast carries the canonical
// persisted record, the acting user and a server timestamp.

type TaskAddedEvent struct {
	Task      Task      `json:"task"`
	CreatedBy string    `json:"createdBy"`
	Timestamp time.Time `json:"timestamp"`
}

type TaskUpdatedEvent struct {
	Task      Task      `json:"task"`
	MovedBy   string    `json:"movedBy"`
	Timestamp time.Time `json:"timestamp"`
}

type TaskModifiedEvent struct {
	Task      Task      `json:"task"`
	UpdatedBy string    `json:"updatedBy"`
	Timestamp time.Time `json:"timestamp"`
}

type TaskRemovedEvent struct {
	TaskID    string    `json:"taskId"`
	DeletedBy string    `json:"deletedBy"`
	Timestamp time.Time `json:"timestamp"`
}

type ColumnCreatedEvent struct {
	Column    Column    `json:"column"`
	Timestamp time.Time `json:"timestamp"`
}

type ColumnUpdatedEvent struct {
	Column       Column    `json:"column"`
	PreviousName string    `json:"previousName,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

type ColumnRemovedEvent struct {
	ColumnID  string    `json:"columnId"`
	Timestamp time.Time `json:"timestamp"`
}

type ColumnsReorderedEvent struct {
	Columns   []Column  `json:"columns"`
	Timestamp time.Time `json:"timestamp"`
}

type ConnectedEvent struct {
	Message string `json:"message"`
}

type ErrorEvent struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}
