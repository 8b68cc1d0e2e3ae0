package api

import (
	"context"

	"tablero-api/domain"
	"tablero-api/storage"
)

// BoardService is implemented by the sync coordinator.
type BoardService interface {
	ListTasks(ctx context.Context) ([]domain.Task, error)
	CreateTask(ctx context.Context, t domain.Task) (domain.Task, error)
	UpdateTask(ctx context.Context, id string, patch domain.TaskPatch) (domain.Task, error)
	DeleteTask(ctx context.Context, id string) (domain.Task, error)
	ListColumns(ctx context.Context) ([]domain.Column, error)
	CreateColumn(ctx context.Context, name, creator string) (domain.Column, error)
	UpdateColumn(ctx context.Context, id string, patch domain.ColumnPatch) (domain.Column, error)
	RemoveColumn(ctx context.Context, id string) (domain.Column, error)
	ReorderColumns(ctx context.Context, orderedIDs []string) ([]domain.Column, error)
}

// Identity is the caller extracted from a validated bearer token.
type Identity struct {
	UserID string
	Email  string
	Name   string
	Role   string
}

// Authenticator validates bearer tokens and, in local mode, issues them.
type Authenticator interface {
	IdentityFromAuthHeader(string) (Identity, error)
	IssueToken(u domain.User) (string, error)
}

// UserStore abstracts account persistence for the auth handlers.
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)
	InsertUser(ctx context.Context, u domain.User) error
}

// Notifier hands mail jobs to the external workflow engine.
type Notifier interface {
	EnqueueNotification(ctx context.Context, n storage.Notification) error
}

// Forwarder posts payloads to the external automation webhook.
type Forwarder interface {
	Forward(ctx context.Context, payload any) (int, []byte, error)
}
