package realtime

import (
	"context"

	"github.com/bytedance/sonic"
	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"tablero-api/domain"
)

// Coordinator applies channel mutations to durable storage and fans the
// resulting events out to the rest of the room.
type Coordinator interface {
	HandleTaskCreated(ctx context.Context, in domain.TaskCreatedInput, origin string) (domain.Task, error)
	HandleTaskMoved(ctx context.Context, in domain.TaskMovedInput, origin string) (domain.Task, error)
	HandleTaskUpdated(ctx context.Context, in domain.TaskUpdatedInput, origin string) (domain.Task, error)
	HandleTaskDeleted(ctx context.Context, in domain.TaskDeletedInput, origin string) (domain.Task, error)
	HandleColumnsReordered(ctx context.Context, in domain.ColumnsReorderedInput, origin string) ([]domain.Column, error)
}

// Handler upgrades the connection and runs the session until the client
// disconnects. The channel performs no per-event authentication.
func Handler(hub *Hub, coord Coordinator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		conn, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			logger.WithField("error", err).Warn("websocket upgrade failed")
			return nil
		}

		s := &Session{ID: uuid.NewString(), conn: conn}
		if err := s.send(domain.EventConnected, domain.ConnectedEvent{Message: "connected to board"}); err != nil {
			_ = conn.Close(websocket.StatusInternalError, "welcome failed")
			return nil
		}

		ctx := c.Request().Context()
		defer func() {
			hub.Remove(s)
			_ = conn.Close(websocket.StatusNormalClosure, "")
		}()
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return nil
			}
			dispatch(ctx, hub, coord, logger, s, data)
		}
	}
}

// dispatch routes one inbound frame. Failures are reported to the sender
// only, as an error event; they never crash the session loop and nothing is
// broadcast for a mutation that did not persist.
func dispatch(ctx context.Context, hub *Hub, coord Coordinator, logger *log.Logger, s *Session, data []byte) {
	var env domain.Envelope
	if err := sonic.Unmarshal(data, &env); err != nil {
		sendError(logger, s, "invalid message", err)
		return
	}

	switch env.Event {
	case domain.EventJoinKanban:
		hub.Join(domain.BoardRoom, s)
		if err := s.send(domain.EventJoinedKanban, domain.ConnectedEvent{Message: "joined " + domain.BoardRoom}); err != nil {
			logger.WithField("session", s.ID).Warn("joined-kanban ack failed")
		}

	case domain.EventLeaveKanban:
		hub.Leave(domain.BoardRoom, s)

	case domain.EventTaskCreated:
		var in domain.TaskCreatedInput
		if err := sonic.Unmarshal(env.Data, &in); err != nil {
			sendError(logger, s, "invalid task-created payload", err)
			return
		}
		if _, err := coord.HandleTaskCreated(ctx, in, s.ID); err != nil {
			sendError(logger, s, "could not create task", err)
		}

	case domain.EventTaskMoved:
		var in domain.TaskMovedInput
		if err := sonic.Unmarshal(env.Data, &in); err != nil {
			sendError(logger, s, "invalid task-moved payload", err)
			return
		}
		if _, err := coord.HandleTaskMoved(ctx, in, s.ID); err != nil {
			sendError(logger, s, "could not move task", err)
		}

	case domain.EventTaskUpdated:
		var in domain.TaskUpdatedInput
		if err := sonic.Unmarshal(env.Data, &in); err != nil {
			sendError(logger, s, "invalid task-updated payload", err)
			return
		}
		if _, err := coord.HandleTaskUpdated(ctx, in, s.ID); err != nil {
			sendError(logger, s, "could not update task", err)
		}

	case domain.EventTaskDeleted:
		var in domain.TaskDeletedInput
		if err := sonic.Unmarshal(env.Data, &in); err != nil {
			sendError(logger, s, "invalid task-deleted payload", err)
			return
		}
		if _, err := coord.HandleTaskDeleted(ctx, in, s.ID); err != nil {
			sendError(logger, s, "could not delete task", err)
		}

	case domain.EventColumnReordered:
		var in domain.ColumnsReorderedInput
		if err := sonic.Unmarshal(env.Data, &in); err != nil {
			sendError(logger, s, "invalid column-reordered payload", err)
			return
		}
		if _, err := coord.HandleColumnsReordered(ctx, in, s.ID); err != nil {
			sendError(logger, s, "could not reorder columns", err)
		}

	default:
		logger.WithFields(log.Fields{"event": env.Event, "session": s.ID}).Debug("ignoring unknown event")
	}
}

func sendError(logger *log.Logger, s *Session, msg string, cause error) {
	logger.WithFields(log.Fields{"session": s.ID, "error": cause}).Warn(msg)
	if err := s.send(domain.EventError, domain.ErrorEvent{Message: msg, Error: cause.Error()}); err != nil {
		logger.WithField("session", s.ID).Warn("error event delivery failed")
	}
}
