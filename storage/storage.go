package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"

	"tablero-api/domain"
)

// Storage provides access to underlying persistence mechanisms: the board
// tables and the notification queue consumed by the external workflow engine.
type Storage struct {
	taskTable   *aztables.Client
	columnTable *aztables.Client
	userTable   *aztables.Client
	notifQueue  *azqueue.QueueClient
}

// New creates a Storage instance from the given connection string.
func New(connStr, tasksTable, columnsTable, usersTable, notificationsQueue string) (*Storage, error) {
	tablesClientOptions := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &tablesClientOptions)
	if err != nil {
		return nil, err
	}
	queueClientOptions := azqueue.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    5,
				TryTimeout:    time.Minute * 5,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 60,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	nq, err := azqueue.NewQueueClientFromConnectionString(connStr, notificationsQueue, &queueClientOptions)
	if err != nil {
		return nil, err
	}
	return &Storage{
		taskTable:   svc.NewClient(tasksTable),
		columnTable: svc.NewClient(columnsTable),
		userTable:   svc.NewClient(usersTable),
		notifQueue:  nq,
	}, nil
}

// ListTasks retrieves every task on the board.
func (s *Storage) ListTasks(ctx context.Context) ([]domain.Task, error) {
	filter := "PartitionKey eq '" + taskPartition + "'"
	pager := s.taskTable.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	tasks := []domain.Task{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, raw := range resp.Entities {
			var ent taskEntity
			if err := json.Unmarshal(raw, &ent); err != nil {
				return nil, err
			}
			tasks = append(tasks, ent.toDomain())
		}
	}
	return tasks, nil
}

// GetTask fetches a single task by id. Missing tasks yield ErrNotFound.
func (s *Storage) GetTask(ctx context.Context, id string) (domain.Task, error) {
	resp, err := s.taskTable.GetEntity(ctx, taskPartition, id, nil)
	if err != nil {
		if isNotFound(err) {
			return domain.Task{}, ErrNotFound
		}
		return domain.Task{}, err
	}
	var ent taskEntity
	if err := json.Unmarshal(resp.Value, &ent); err != nil {
		return domain.Task{}, err
	}
	return ent.toDomain(), nil
}

// InsertTask persists a new task.
func (s *Storage) InsertTask(ctx context.Context, t domain.Task) error {
	data, err := json.Marshal(newTaskEntity(t))
	if err != nil {
		return err
	}
	_, err = s.taskTable.AddEntity(ctx, data, nil)
	return err
}

// UpdateTask replaces a persisted task. Last write wins.
func (s *Storage) UpdateTask(ctx context.Context, t domain.Task) error {
	data, err := json.Marshal(newTaskEntity(t))
	if err != nil {
		return err
	}
	_, err = s.taskTable.UpdateEntity(ctx, data, &aztables.UpdateEntityOptions{UpdateMode: aztables.UpdateModeReplace})
	if isNotFound(err) {
		return ErrNotFound
	}
	return err
}

// DeleteTask removes a task by id.
func (s *Storage) DeleteTask(ctx context.Context, id string) error {
	_, err := s.taskTable.DeleteEntity(ctx, taskPartition, id, nil)
	if isNotFound(err) {
		return ErrNotFound
	}
	return err
}

// ListColumns retrieves every board column, unsorted.
func (s *Storage) ListColumns(ctx context.Context) ([]domain.Column, error) {
	filter := "PartitionKey eq '" + columnPartition + "'"
	pager := s.columnTable.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	cols := []domain.Column{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, raw := range resp.Entities {
			var ent columnEntity
			if err := json.Unmarshal(raw, &ent); err != nil {
				return nil, err
			}
			cols = append(cols, ent.toDomain())
		}
	}
	return cols, nil
}

// GetColumn fetches a single column by id. Missing columns yield ErrNotFound.
func (s *Storage) GetColumn(ctx context.Context, id string) (domain.Column, error) {
	resp, err := s.columnTable.GetEntity(ctx, columnPartition, id, nil)
	if err != nil {
		if isNotFound(err) {
			return domain.Column{}, ErrNotFound
		}
		return domain.Column{}, err
	}
	var ent columnEntity
	if err := json.Unmarshal(resp.Value, &ent); err != nil {
		return domain.Column{}, err
	}
	return ent.toDomain(), nil
}

// InsertColumn persists a new column.
func (s *Storage) InsertColumn(ctx context.Context, c domain.Column) error {
	data, err := json.Marshal(newColumnEntity(c))
	if err != nil {
		return err
	}
	_, err = s.columnTable.AddEntity(ctx, data, nil)
	return err
}

// UpdateColumn replaces a persisted column.
func (s *Storage) UpdateColumn(ctx context.Context, c domain.Column) error {
	data, err := json.Marshal(newColumnEntity(c))
	if err != nil {
		return err
	}
	_, err = s.columnTable.UpdateEntity(ctx, data, &aztables.UpdateEntityOptions{UpdateMode: aztables.UpdateModeReplace})
	if isNotFound(err) {
		return ErrNotFound
	}
	return err
}

// DeleteColumn removes a column by id.
func (s *Storage) DeleteColumn(ctx context.Context, id string) error {
	_, err := s.columnTable.DeleteEntity(ctx, columnPartition, id, nil)
	if isNotFound(err) {
		return ErrNotFound
	}
	return err
}

// GetUser fetches a user by id.
func (s *Storage) GetUser(ctx context.Context, id string) (domain.User, error) {
	resp, err := s.userTable.GetEntity(ctx, userPartition, id, nil)
	if err != nil {
		if isNotFound(err) {
			return domain.User{}, ErrNotFound
		}
		return domain.User{}, err
	}
	var ent userEntity
	if err := json.Unmarshal(resp.Value, &ent); err != nil {
		return domain.User{}, err
	}
	return ent.toDomain(), nil
}

// GetUserByEmail looks a user up by unique email address.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	escaped := strings.ReplaceAll(email, "'", "''")
	filter := fmt.Sprintf("PartitionKey eq '%s' and Email eq '%s'", userPartition, escaped)
	pager := s.userTable.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return domain.User{}, err
		}
		for _, raw := range resp.Entities {
			var ent userEntity
			if err := json.Unmarshal(raw, &ent); err != nil {
				return domain.User{}, err
			}
			return ent.toDomain(), nil
		}
	}
	return domain.User{}, ErrNotFound
}

// InsertUser persists a new user.
func (s *Storage) InsertUser(ctx context.Context, u domain.User) error {
	data, err := json.Marshal(newUserEntity(u))
	if err != nil {
		return err
	}
	_, err = s.userTable.AddEntity(ctx, data, nil)
	return err
}

// Notification is a mail job handed to the external workflow engine.
type Notification struct {
	Type    string `json:"type"`
	To      string `json:"to"`
	Name    string `json:"name,omitempty"`
	Message string `json:"message,omitempty"`
}

// EnqueueNotification sends a mail job to the notification queue.
func (s *Storage) EnqueueNotification(ctx context.Context, n Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return err
	}
	_, err = s.notifQueue.EnqueueMessage(ctx, string(data), nil)
	return err
}
