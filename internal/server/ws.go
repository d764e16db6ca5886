// ABOUTME: WebSocket endpoint for the live message channel
// ABOUTME: Authenticates the upgrade, registers the connection, and dispatches frames

package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/patterhq/patter/internal/auth"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsReadLimit    = 64 * 1024
)

// Frame types exchanged over the channel.
const (
	frameJoin          = "join"
	frameRoomMessage   = "room_message"
	frameDirectMessage = "direct_message"
)

// frame is the wire shape of every channel event.
type frame struct {
	Type       string    `json:"type"`
	Room       string    `json:"room,omitempty"`
	To         string    `json:"to,omitempty"`
	SenderID   string    `json:"sender_id,omitempty"`
	SenderName string    `json:"sender_name,omitempty"`
	Message    string    `json:"message,omitempty"`
	Timestamp  time.Time `json:"timestamp,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Browser origins are enforced by the CORS layer on the API; the
	// channel accepts any origin and relies on the bearer token.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsConn wraps a gorilla connection with a write lock so the hub can fan
// out from multiple goroutines.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.conn.WriteJSON(v)
}

// handleWS upgrades the connection and runs its read loop until the client
// disconnects. Token is accepted from the Authorization header or, for
// browser clients that cannot set headers on WebSocket upgrades, a token
// query parameter.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token, _ = auth.ExtractBearerToken(r.Header.Get("Authorization"))
	}
	if token == "" {
		writeError(w, http.StatusUnauthorized, "missing token")
		return
	}

	userID, err := s.tokens.Verify(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer ws.Close()

	ws.SetReadLimit(wsReadLimit)

	c := &wsConn{conn: ws}
	sub := s.hub.Register(userID, c)
	defer s.hub.Unregister(userID, sub)

	s.logger.Info("channel connected", "user_id", userID)

	for {
		var f frame
		if err := ws.ReadJSON(&f); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("channel read failed", "user_id", userID, "error", err)
			}
			s.logger.Info("channel disconnected", "user_id", userID)
			return
		}

		s.dispatchFrame(userID, sub, f)
	}
}

// dispatchFrame applies one inbound frame. The sender identity is always
// the authenticated user, regardless of what the frame claims.
func (s *Server) dispatchFrame(userID string, sub *subscriber, f frame) {
	f.SenderID = userID
	if f.Timestamp.IsZero() {
		f.Timestamp = time.Now().UTC()
	}

	switch f.Type {
	case frameJoin:
		if f.Room == "" {
			return
		}
		sub.join(f.Room)
		s.logger.Debug("room joined", "user_id", userID, "room", f.Room)

	case frameRoomMessage:
		if f.Room == "" {
			return
		}
		s.hub.BroadcastRoom(f.Room, userID, f)

	case frameDirectMessage:
		if f.To == "" {
			return
		}
		s.hub.SendDirect(f.To, f)

	default:
		s.logger.Debug("ignoring unknown frame", "user_id", userID, "type", f.Type)
	}
}
