// Package realtime implements the board's notification channel: a
// room-scoped WebSocket hub connecting the server to every active client
// viewing the board.
package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/coder/websocket"
	log "github.com/sirupsen/logrus"

	"tablero-api/domain"
)

const writeTimeout = 5 * time.Second

type wsConn interface {
	Write(ctx context.Context, typ websocket.MessageType, p []byte) error
	Close(code websocket.StatusCode, reason string) error
}

// Session is one connected client. A session owns its subscription
// lifecycle: it joins rooms explicitly and is removed from all of them when
// its connection drops.
type Session struct {
	ID   string
	conn wsConn
}

func (s *Session) send(event string, payload any) error {
	env, err := domain.NewEnvelope(event, payload)
	if err != nil {
		return err
	}
	data, err := sonic.Marshal(env)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	return s.conn.Write(ctx, websocket.MessageText, data)
}

// Hub tracks room membership and delivers framed events to members.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Session]bool
	log   *log.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Hub{rooms: make(map[string]map[*Session]bool), log: logger}
}

// Join adds the session to a room.
func (h *Hub) Join(room string, s *Session) {
	h.mu.Lock()
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Session]bool)
		h.rooms[room] = members
	}
	members[s] = true
	count := len(members)
	h.mu.Unlock()
	h.log.WithFields(log.Fields{"room": room, "session": s.ID, "members": count}).Debug("session joined")
}

// Leave removes the session from a room.
func (h *Hub) Leave(room string, s *Session) {
	h.mu.Lock()
	if members, ok := h.rooms[room]; ok {
		delete(members, s)
	}
	h.mu.Unlock()
}

// Remove drops the session from every room, used on disconnect.
func (h *Hub) Remove(s *Session) {
	h.mu.Lock()
	for _, members := range h.rooms {
		delete(members, s)
	}
	h.mu.Unlock()
}

// Broadcast delivers a framed event to every room member except the origin
// session. Members that fail the write are dropped from the hub.
func (h *Hub) Broadcast(room, origin, event string, data []byte) {
	env := domain.Envelope{Event: event, Data: data}
	payload, err := sonic.Marshal(env)
	if err != nil {
		h.log.WithFields(log.Fields{"event": event, "error": err}).Error("marshal broadcast")
		return
	}

	h.mu.RLock()
	members := make([]*Session, 0, len(h.rooms[room]))
	for s := range h.rooms[room] {
		if s.ID == origin {
			continue
		}
		members = append(members, s)
	}
	h.mu.RUnlock()

	// Writes happen outside the lock so a slow client cannot stall the room.
	for _, s := range members {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := s.conn.Write(ctx, websocket.MessageText, payload)
		cancel()
		if err != nil {
			h.log.WithFields(log.Fields{"session": s.ID, "error": err}).Warn("dropping unreachable session")
			h.Remove(s)
			_ = s.conn.Close(websocket.StatusNormalClosure, "")
		}
	}
}
