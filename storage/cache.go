package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"tablero-api/domain"
)

type backend interface {
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

// Cache wraps board storage with Redis-backed caching for the board
// listings. Mutations pass through and evict. Redis failures fall back to
// the backing storage without surfacing errors.
type Cache struct {
	base  backend
	redis *redis.Client
	ttl   time.Duration
}

var _ backend = (*Cache)(nil)

// NewCache creates a caching wrapper using the provided Redis client and TTL.
func NewCache(base backend, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base storage is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{
		base:  base,
		redis: client,
		ttl:   ttl,
	}
}

func (c *Cache) ListTasks(ctx context.Context) ([]domain.Task, error) {
	if tasks, ok := loadCached[[]domain.Task](ctx, c, tasksCacheKey); ok {
		return tasks, nil
	}
	tasks, err := c.base.ListTasks(ctx)
	if err != nil {
		return nil, err
	}
	c.storeCached(ctx, tasksCacheKey, tasks)
	return tasks, nil
}

func (c *Cache) ListColumns(ctx context.Context) ([]domain.Column, error) {
	if cols, ok := loadCached[[]domain.Column](ctx, c, columnsCacheKey); ok {
		return cols, nil
	}
	cols, err := c.base.ListColumns(ctx)
	if err != nil {
		return nil, err
	}
	c.storeCached(ctx, columnsCacheKey, cols)
	return cols, nil
}

func (c *Cache) GetTask(ctx context.Context, id string) (domain.Task, error) {
	return c.base.GetTask(ctx, id)
}

func (c *Cache) GetColumn(ctx context.Context, id string) (domain.Column, error) {
	return c.base.GetColumn(ctx, id)
}

func (c *Cache) InsertTask(ctx context.Context, t domain.Task) error {
	if err := c.base.InsertTask(ctx, t); err != nil {
		return err
	}
	c.evict(ctx, tasksCacheKey)
	return nil
}

func (c *Cache) UpdateTask(ctx context.Context, t domain.Task) error {
	if err := c.base.UpdateTask(ctx, t); err != nil {
		return err
	}
	c.evict(ctx, tasksCacheKey)
	return nil
}

func (c *Cache) DeleteTask(ctx context.Context, id string) error {
	if err := c.base.DeleteTask(ctx, id); err != nil {
		return err
	}
	c.evict(ctx, tasksCacheKey)
	return nil
}

func (c *Cache) InsertColumn(ctx context.Context, col domain.Column) error {
	if err := c.base.InsertColumn(ctx, col); err != nil {
		return err
	}
	c.evict(ctx, columnsCacheKey)
	return nil
}

func (c *Cache) UpdateColumn(ctx context.Context, col domain.Column) error {
	if err := c.base.UpdateColumn(ctx, col); err != nil {
		return err
	}
	c.evict(ctx, columnsCacheKey)
	return nil
}

func (c *Cache) DeleteColumn(ctx context.Context, id string) error {
	if err := c.base.DeleteColumn(ctx, id); err != nil {
		return err
	}
	c.evict(ctx, columnsCacheKey)
	return nil
}

func loadCached[T any](ctx context.Context, c *Cache, key string) (T, bool) {
	var zero T
	if c.redis == nil {
		return zero, false
	}
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing storage without failing.
			_ = c.redis.Del(ctx, key).Err()
		}
		return zero, false
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		_ = c.redis.Del(ctx, key).Err()
		return zero, false
	}
	return out, true
}

func (c *Cache) storeCached(ctx context.Context, key string, value any) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.ttl).Err()
}

func (c *Cache) evict(ctx context.Context, key string) {
	if c.redis == nil {
		return
	}
	_ = c.redis.Del(ctx, key).Err()
}

const (
	tasksCacheKey   = "board:tasks"
	columnsCacheKey = "board:columns"
)
