package client

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/coder/websocket"
	log "github.com/sirupsen/logrus"

	"tablero-api/domain"
)

type wsConn interface {
	Read(ctx context.Context) (websocket.MessageType, []byte, error)
	Write(ctx context.Context, typ websocket.MessageType, p []byte) error
	Close(code websocket.StatusCode, reason string) error
}

// Fetcher loads the full board state over REST, used on connect and after
// every reconnect: the channel itself performs no state replay.
type Fetcher func(ctx context.Context) ([]domain.Task, []domain.Column, error)

// Conn maintains the realtime subscription for a Store, reconnecting after
// a fixed retry interval when the transport drops and resyncing the full
// state each time.
type Conn struct {
	url           string
	store         *Store
	fetch         Fetcher
	log           *log.Logger
	retryInterval time.Duration

	dial func(ctx context.Context, url string) (wsConn, error)
}

// NewConn creates a connection manager for the given channel URL.
func NewConn(url string, store *Store, fetch Fetcher, logger *log.Logger) *Conn {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Conn{
		url:           url,
		store:         store,
		fetch:         fetch,
		log:           logger,
		retryInterval: time.Second,
		dial: func(ctx context.Context, url string) (wsConn, error) {
			c, _, err := websocket.Dial(ctx, url, nil)
			return c, err
		},
	}
}

// Run connects, joins the board room and applies inbound events until ctx
// is cancelled. Each (re)connect starts with a full state fetch so the
// in-memory view never depends on events missed while disconnected.
func (c *Conn) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if err := c.session(ctx); err != nil {
			c.log.WithField("error", err).Warn("board connection lost")
			c.store.NotifyFailure("connection lost, retrying")
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(c.retryInterval):
		}
	}
}

func (c *Conn) session(ctx context.Context) error {
	conn, err := c.dial(ctx, c.url)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	if c.fetch != nil {
		tasks, cols, err := c.fetch(ctx)
		if err != nil {
			return fmt.Errorf("resync: %w", err)
		}
		c.store.ReplaceAll(tasks, cols)
	}

	join, err := sonic.Marshal(domain.Envelope{Event: domain.EventJoinKanban})
	if err != nil {
		return err
	}
	if err := conn.Write(ctx, websocket.MessageText, join); err != nil {
		return fmt.Errorf("join: %w", err)
	}

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		var env domain.Envelope
		if err := sonic.Unmarshal(data, &env); err != nil {
			c.log.WithField("error", err).Warn("unparseable frame")
			continue
		}
		if err := Apply(c.store, env); err != nil {
			c.log.WithFields(log.Fields{"event": env.Event, "error": err}).Warn("event not applied")
		}
	}
}

// Apply reconciles one inbound channel event into the store.
func Apply(s *Store, env domain.Envelope) error {
	switch env.Event {
	case domain.EventConnected, domain.EventJoinedKanban:
		return nil

	case domain.EventTaskAdded:
		var ev domain.TaskAddedEvent
		if err := sonic.Unmarshal(env.Data, &ev); err != nil {
			return err
		}
		s.ReconcileCreate(ev.Task)

	case domain.EventTaskUpdated:
		var ev domain.TaskUpdatedEvent
		if err := sonic.Unmarshal(env.Data, &ev); err != nil {
			return err
		}
		s.Upsert(ev.Task)

	case domain.EventTaskModified:
		var ev domain.TaskModifiedEvent
		if err := sonic.Unmarshal(env.Data, &ev); err != nil {
			return err
		}
		s.Upsert(ev.Task)

	case domain.EventTaskRemoved:
		var ev domain.TaskRemovedEvent
		if err := sonic.Unmarshal(env.Data, &ev); err != nil {
			return err
		}
		s.Remove(ev.TaskID)

	case domain.EventColumnCreated:
		var ev domain.ColumnCreatedEvent
		if err := sonic.Unmarshal(env.Data, &ev); err != nil {
			return err
		}
		s.UpsertColumn(ev.Column)

	case domain.EventColumnUpdated:
		var ev domain.ColumnUpdatedEvent
		if err := sonic.Unmarshal(env.Data, &ev); err != nil {
			return err
		}
		s.UpsertColumn(ev.Column)

	case domain.EventColumnRemoved:
		var ev domain.ColumnRemovedEvent
		if err := sonic.Unmarshal(env.Data, &ev); err != nil {
			return err
		}
		s.RemoveColumn(ev.ColumnID)

	case domain.EventColumnReordered:
		var ev domain.ColumnsReorderedEvent
		if err := sonic.Unmarshal(env.Data, &ev); err != nil {
			return err
		}
		s.ReplaceColumns(ev.Columns)

	case domain.EventError:
		var ev domain.ErrorEvent
		if err := sonic.Unmarshal(env.Data, &ev); err != nil {
			return err
		}
		s.NotifyFailure(ev.Message)
	}
	return nil
}
