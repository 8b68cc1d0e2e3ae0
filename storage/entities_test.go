package storage

import (
	"encoding/json"
	"testing"
	"time"

	"tablero-api/domain"
)

func TestTaskEntityRoundTrip(t *testing.T) {
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	edited := created.Add(2 * time.Hour)
	task := domain.Task{
		ID:           "a1",
		Title:        "Revisar PR",
		Description:  "detalle",
		Column:       "En progreso",
		Priority:     domain.PriorityHigh,
		Order:        3,
		CreatedAt:    created,
		LastEditedBy: "Ana",
		LastEditedAt: &edited,
	}

	ent := newTaskEntity(task)
	if ent.PartitionKey != taskPartition || ent.RowKey != "a1" {
		t.Fatalf("unexpected keys: %s/%s", ent.PartitionKey, ent.RowKey)
	}
	if ent.CreatedAtType != edmInt64 || ent.LastEditedAtType != edmInt64 {
		t.Fatalf("timestamp columns missing odata type: %q/%q", ent.CreatedAtType, ent.LastEditedAtType)
	}

	got := ent.toDomain()
	if got.ID != task.ID || got.Title != task.Title || got.Column != task.Column ||
		got.Priority != task.Priority || got.Order != task.Order {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if !got.CreatedAt.Equal(created) {
		t.Fatalf("createdAt = %v, want %v", got.CreatedAt, created)
	}
	if got.LastEditedAt == nil || !got.LastEditedAt.Equal(edited) {
		t.Fatalf("lastEditedAt = %v, want %v", got.LastEditedAt, edited)
	}
	if got.LastEditedBy != "Ana" {
		t.Fatalf("lastEditedBy = %q", got.LastEditedBy)
	}
}

func TestTaskEntityWithoutEditStampOmitsEditColumns(t *testing.T) {
	task := domain.Task{ID: "a1", Title: "X", CreatedAt: time.Now()}

	ent := newTaskEntity(task)
	if ent.LastEditedAt != 0 || ent.LastEditedAtType != "" || ent.LastEditedBy != "" {
		t.Fatalf("edit columns must stay empty: %+v", ent)
	}

	got := ent.toDomain()
	if got.LastEditedAt != nil {
		t.Fatalf("lastEditedAt should be nil, got %v", got.LastEditedAt)
	}
}

func TestTaskEntityInt64ColumnsMarshalAsStrings(t *testing.T) {
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	ent := newTaskEntity(domain.Task{ID: "a1", Title: "X", CreatedAt: created})

	raw, err := json.Marshal(ent)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var wire map[string]any
	if err := json.Unmarshal(raw, &wire); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	// Table storage needs Int64 columns as annotated strings.
	if _, ok := wire["CreatedAt"].(string); !ok {
		t.Fatalf("CreatedAt not serialized as string: %#v", wire["CreatedAt"])
	}
	if wire["CreatedAt@odata.type"] != edmInt64 {
		t.Fatalf("missing odata annotation: %#v", wire["CreatedAt@odata.type"])
	}
}

func TestColumnEntityRoundTrip(t *testing.T) {
	col := domain.Column{ID: "c1", Name: "Por hacer", Order: 0, CreatedBy: "System"}

	ent := newColumnEntity(col)
	if ent.PartitionKey != columnPartition || ent.RowKey != "c1" {
		t.Fatalf("unexpected keys: %s/%s", ent.PartitionKey, ent.RowKey)
	}

	if got := ent.toDomain(); got != col {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestUserEntityRoundTrip(t *testing.T) {
	user := domain.User{ID: "u1", Email: "ana@example.com", Name: "Ana", Role: "user", PasswordHash: "$2a$hash"}

	ent := newUserEntity(user)
	if ent.PartitionKey != userPartition || ent.RowKey != "u1" {
		t.Fatalf("unexpected keys: %s/%s", ent.PartitionKey, ent.RowKey)
	}

	if got := ent.toDomain(); got != user {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}
