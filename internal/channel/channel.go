// ABOUTME: WebSocket implementation of the live event channel
// ABOUTME: Dials the backend, dispatches inbound frames, and publishes joins and messages

package channel

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/patterhq/patter/internal/chat"
)

const (
	writeTimeout = 10 * time.Second
	readLimit    = 64 * 1024
)

// Frame types exchanged over the channel.
const (
	frameJoin          = "join"
	frameRoomMessage   = "room_message"
	frameDirectMessage = "direct_message"
)

// frame is the wire shape of every channel event, client- and
// server-emitted alike.
type frame struct {
	Type       string    `json:"type"`
	Room       string    `json:"room,omitempty"`
	To         string    `json:"to,omitempty"`
	SenderID   string    `json:"sender_id,omitempty"`
	SenderName string    `json:"sender_name,omitempty"`
	Message    string    `json:"message,omitempty"`
	Timestamp  time.Time `json:"timestamp,omitempty"`
}

// Dialer establishes WebSocket channels against a fixed URL. It implements
// chat.Dialer.
type Dialer struct {
	url    string
	logger *slog.Logger
}

// NewDialer creates a dialer for the given ws:// or wss:// URL. Pass nil
// logger for default.
func NewDialer(url string, logger *slog.Logger) *Dialer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dialer{
		url:    url,
		logger: logger.With("component", "channel"),
	}
}

// Dial connects, fires OnConnect, and starts the read loop. The returned
// channel is live until Close or a read failure.
func (d *Dialer) Dial(ctx context.Context, token string, h chat.Handlers) (chat.LiveChannel, error) {
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, d.url, header)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, err
	}
	if resp != nil {
		resp.Body.Close()
	}

	ch := &Channel{
		conn:      conn,
		handlers:  h,
		logger:    d.logger,
		connected: true,
		done:      make(chan struct{}),
	}

	if h.OnConnect != nil {
		h.OnConnect()
	}
	go ch.readLoop()

	return ch, nil
}

// Channel is an open WebSocket subscription. Handlers are dispatched from a
// single reader goroutine; Close does not return until that goroutine has
// exited, so no callback can be delivered after Close.
type Channel struct {
	conn     *websocket.Conn
	handlers chat.Handlers
	logger   *slog.Logger

	writeMu sync.Mutex
	once    sync.Once
	done    chan struct{}

	mu        sync.Mutex
	connected bool
}

// Join subscribes this connection to a room (or a personal identity).
func (c *Channel) Join(room string) error {
	return c.write(frame{Type: frameJoin, Room: room})
}

// PublishRoom broadcasts a message to the derived conversation room.
func (c *Channel) PublishRoom(out chat.Outbound) error {
	return c.write(frame{
		Type:       frameRoomMessage,
		Room:       out.Room,
		SenderID:   string(out.SenderID),
		SenderName: out.SenderName,
		Message:    out.Body,
		Timestamp:  out.SentAt,
	})
}

// PublishDirect sends a message addressed to the partner's identity.
func (c *Channel) PublishDirect(out chat.Outbound) error {
	return c.write(frame{
		Type:       frameDirectMessage,
		To:         string(out.To),
		SenderID:   string(out.SenderID),
		SenderName: out.SenderName,
		Message:    out.Body,
		Timestamp:  out.SentAt,
	})
}

// Connected reports whether the underlying connection is still up.
func (c *Channel) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Close tears the connection down and waits for the read loop to exit.
func (c *Channel) Close() error {
	var err error
	c.once.Do(func() {
		err = c.conn.Close()
	})
	<-c.done
	return err
}

func (c *Channel) write(f frame) error {
	c.mu.Lock()
	connected := c.connected
	c.mu.Unlock()
	if !connected {
		return errors.New("channel closed")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(f)
}

func (c *Channel) readLoop() {
	defer close(c.done)
	c.conn.SetReadLimit(readLimit)

	for {
		var f frame
		if err := c.conn.ReadJSON(&f); err != nil {
			c.mu.Lock()
			c.connected = false
			c.mu.Unlock()
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Debug("channel read failed", "error", err)
			}
			if c.handlers.OnDisconnect != nil {
				c.handlers.OnDisconnect()
			}
			return
		}

		ev := chat.Event{
			Room:       f.Room,
			SenderID:   chat.Identity(f.SenderID),
			SenderName: f.SenderName,
			Body:       f.Message,
			SentAt:     f.Timestamp,
		}

		switch f.Type {
		case frameRoomMessage:
			if c.handlers.OnRoomMessage != nil {
				c.handlers.OnRoomMessage(ev)
			}
		case frameDirectMessage:
			if c.handlers.OnDirectMessage != nil {
				c.handlers.OnDirectMessage(ev)
			}
		default:
			c.logger.Debug("ignoring unknown frame", "type", f.Type)
		}
	}
}
