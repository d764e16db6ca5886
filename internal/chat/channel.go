// ABOUTME: Live-channel contract consumed by the chat client
// ABOUTME: Defines the event types, handler set, and dialer/channel interfaces

package chat

import (
	"context"
	"time"
)

// Event is an inbound live-channel message event, either a room broadcast
// or a direct delivery.
type Event struct {
	Room       string
	SenderID   Identity
	SenderName string
	Body       string
	SentAt     time.Time
}

// Outbound carries a just-sent message for publication over the live
// channel. Room is used for room publishes, To for direct publishes; both
// carry the sender's identity and display name.
type Outbound struct {
	Room       string
	To         Identity
	SenderID   Identity
	SenderName string
	Body       string
	SentAt     time.Time
}

// Handlers receives live-channel callbacks. All fields are optional.
type Handlers struct {
	OnConnect       func()
	OnDisconnect    func()
	OnRoomMessage   func(Event)
	OnDirectMessage func(Event)
}

// LiveChannel is an established bidirectional event stream. Close must not
// return until no further handler callbacks can be delivered.
type LiveChannel interface {
	Join(room string) error
	PublishRoom(out Outbound) error
	PublishDirect(out Outbound) error
	Connected() bool
	Close() error
}

// Dialer establishes a live channel for an authenticated session.
type Dialer interface {
	Dial(ctx context.Context, token string, h Handlers) (LiveChannel, error)
}
