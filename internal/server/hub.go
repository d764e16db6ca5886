// ABOUTME: In-memory registry of live WebSocket connections and room subscriptions
// ABOUTME: Fans room broadcasts out to subscribers and routes direct frames by user ID

package server

import (
	"log/slog"
	"sync"
)

// conn is the write side of one client connection. The WebSocket handler
// provides an implementation backed by gorilla/websocket.
type conn interface {
	WriteJSON(v interface{}) error
}

// subscriber tracks a single user's connection and its room subscriptions.
type subscriber struct {
	userID string
	conn   conn

	mu    sync.Mutex
	rooms map[string]struct{}
}

func (s *subscriber) join(room string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[room] = struct{}{}
}

func (s *subscriber) subscribed(room string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.rooms[room]
	return ok
}

// Hub is the registry of live connections. A user has at most one
// connection; a reconnect replaces the previous one.
type Hub struct {
	logger *slog.Logger

	mu   sync.RWMutex
	subs map[string]*subscriber
}

// NewHub creates an empty hub. Pass nil logger for default.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger: logger.With("component", "hub"),
		subs:   make(map[string]*subscriber),
	}
}

// Register adds a user's connection, replacing any previous one.
func (h *Hub) Register(userID string, c conn) *subscriber {
	sub := &subscriber{
		userID: userID,
		conn:   c,
		rooms:  make(map[string]struct{}),
	}

	h.mu.Lock()
	h.subs[userID] = sub
	h.mu.Unlock()

	h.logger.Debug("connection registered", "user_id", userID)
	return sub
}

// Unregister removes a user's connection if it is still the registered one.
// A stale connection replaced by a reconnect is left alone.
func (h *Hub) Unregister(userID string, sub *subscriber) {
	h.mu.Lock()
	if h.subs[userID] == sub {
		delete(h.subs, userID)
	}
	h.mu.Unlock()

	h.logger.Debug("connection unregistered", "user_id", userID)
}

// BroadcastRoom sends a frame to every connection subscribed to the room,
// excluding the originating user.
func (h *Hub) BroadcastRoom(room string, excludeUserID string, f frame) {
	h.mu.RLock()
	var targets []*subscriber
	for _, sub := range h.subs {
		if sub.userID == excludeUserID {
			continue
		}
		if sub.subscribed(room) {
			targets = append(targets, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range targets {
		if err := sub.conn.WriteJSON(f); err != nil {
			h.logger.Warn("room broadcast write failed", "room", room, "user_id", sub.userID, "error", err)
		}
	}
}

// SendDirect delivers a frame to the addressed user's connection, if any.
func (h *Hub) SendDirect(userID string, f frame) {
	h.mu.RLock()
	sub, ok := h.subs[userID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	if err := sub.conn.WriteJSON(f); err != nil {
		h.logger.Warn("direct write failed", "user_id", userID, "error", err)
	}
}

// Connected reports whether a user currently has a live connection.
func (h *Hub) Connected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.subs[userID]
	return ok
}
