package storage

import (
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"

	"tablero-api/domain"
)

// Single shared board: fixed partitions, entity id as RowKey.
const (
	taskPartition   = "task"
	columnPartition = "column"
	userPartition   = "user"
)

const edmInt64 = "Edm.Int64"

type taskEntity struct {
	aztables.Entity
	Title            string `json:"Title"`
	Description      string `json:"Description,omitempty"`
	Column           string `json:"Column,omitempty"`
	Priority         string `json:"Priority"`
	Order            int    `json:"Order"`
	CreatedAt        int64  `json:"CreatedAt,string"`
	CreatedAtType    string `json:"CreatedAt@odata.type"`
	LastEditedBy     string `json:"LastEditedBy,omitempty"`
	LastEditedAt     int64  `json:"LastEditedAt,omitempty,string"`
	LastEditedAtType string `json:"LastEditedAt@odata.type,omitempty"`
}

func newTaskEntity(t domain.Task) taskEntity {
	ent := taskEntity{
		Entity:        aztables.Entity{PartitionKey: taskPartition, RowKey: t.ID},
		Title:         t.Title,
		Description:   t.Description,
		Column:        t.Column,
		Priority:      t.Priority,
		Order:         t.Order,
		CreatedAt:     t.CreatedAt.UnixMilli(),
		CreatedAtType: edmInt64,
	}
	if t.LastEditedAt != nil {
		ent.LastEditedBy = t.LastEditedBy
		ent.LastEditedAt = t.LastEditedAt.UnixMilli()
		ent.LastEditedAtType = edmInt64
	}
	return ent
}

func (e taskEntity) toDomain() domain.Task {
	t := domain.Task{
		ID:          e.RowKey,
		Title:       e.Title,
		Description: e.Description,
		Column:      e.Column,
		Priority:    e.Priority,
		Order:       e.Order,
	}
	if e.CreatedAt != 0 {
		t.CreatedAt = time.UnixMilli(e.CreatedAt).UTC()
	}
	if e.LastEditedAt != 0 {
		edited := time.UnixMilli(e.LastEditedAt).UTC()
		t.LastEditedAt = &edited
		t.LastEditedBy = e.LastEditedBy
	}
	return t
}

type columnEntity struct {
	aztables.Entity
	Name      string `json:"Name"`
	Order     int    `json:"Order"`
	CreatedBy string `json:"CreatedBy,omitempty"`
}

func newColumnEntity(c domain.Column) columnEntity {
	return columnEntity{
		Entity:    aztables.Entity{PartitionKey: columnPartition, RowKey: c.ID},
		Name:      c.Name,
		Order:     c.Order,
		CreatedBy: c.CreatedBy,
	}
}

func (e columnEntity) toDomain() domain.Column {
	return domain.Column{ID: e.RowKey, Name: e.Name, Order: e.Order, CreatedBy: e.CreatedBy}
}

type userEntity struct {
	aztables.Entity
	Email        string `json:"Email"`
	Name         string `json:"Name"`
	Role         string `json:"Role"`
	PasswordHash string `json:"PasswordHash"`
}

func newUserEntity(u domain.User) userEntity {
	return userEntity{
		Entity:       aztables.Entity{PartitionKey: userPartition, RowKey: u.ID},
		Email:        u.Email,
		Name:         u.Name,
		Role:         u.Role,
		PasswordHash: u.PasswordHash,
	}
}

func (e userEntity) toDomain() domain.User {
	return domain.User{ID: e.RowKey, Email: e.Email, Name: e.Name, Role: e.Role, PasswordHash: e.PasswordHash}
}
