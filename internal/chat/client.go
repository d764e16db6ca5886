// ABOUTME: Session manager and conversation synchronizer for the chat client
// ABOUTME: Owns auth state, the user directory, the active conversation log, and the live channel

package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// Validation errors, rejected before any request is made.
var (
	ErrInvalidMobileNumber = errors.New("mobile number must be non-empty digits")
	ErrInvalidCode         = errors.New("verification code must not be empty")
	ErrNotAuthenticated    = errors.New("not authenticated")
)

// API defines the request/response surface the client needs from the
// backend. All calls after verification carry the session's bearer token.
type API interface {
	Login(ctx context.Context, mobileNumber string) error
	VerifyOTP(ctx context.Context, mobileNumber, code string) (*User, string, error)
	ListUsers(ctx context.Context, token string) ([]User, error)
	FetchHistory(ctx context.Context, token string, partnerID Identity) ([]Message, error)
	SendMessage(ctx context.Context, token string, receiverID Identity, body string) error
}

// Client owns the session, the user directory cache, the active
// conversation selection and its ordered message log, and the live channel
// subscription that keeps the log current. It is an explicitly constructed
// object; nothing here is package-level state.
type Client struct {
	api    API
	dialer Dialer
	logger *slog.Logger

	mu         sync.Mutex
	session    Session
	users      []User
	selected   *User
	messages   []Message
	channel    LiveChannel
	connected  bool
	historyGen uint64
	onMessage  func(Message)
}

// New creates a chat client. Pass nil logger for default.
func New(api API, dialer Dialer, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		api:    api,
		dialer: dialer,
		logger: logger.With("component", "chat"),
	}
}

// OnMessage registers a callback invoked after an inbound event is appended
// to the conversation log. Interactive frontends use it to repaint.
func (c *Client) OnMessage(fn func(Message)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onMessage = fn
}

// validMobileNumber applies the loose format check: non-empty, digits only.
func validMobileNumber(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Login requests a verification code for the given mobile number. The
// session is never mutated here; a second factor is still required.
func (c *Client) Login(ctx context.Context, mobileNumber string) error {
	if !validMobileNumber(mobileNumber) {
		return ErrInvalidMobileNumber
	}
	return c.api.Login(ctx, mobileNumber)
}

// VerifyCode exchanges the mobile number and verification code for a
// session. On success the session is populated atomically and the live
// channel is dialed; on failure the session is left untouched.
func (c *Client) VerifyCode(ctx context.Context, mobileNumber, code string) error {
	if !validMobileNumber(mobileNumber) {
		return ErrInvalidMobileNumber
	}
	if code == "" {
		return ErrInvalidCode
	}

	user, token, err := c.api.VerifyOTP(ctx, mobileNumber, code)
	if err != nil {
		return err
	}

	// Re-verifying without an intervening logout replaces the session; the
	// old channel must be closed first or its reader would keep feeding
	// handleInbound alongside the new one.
	c.mu.Lock()
	prev := c.channel
	c.channel = nil
	c.session = Session{User: user, Token: token, Authenticated: true}
	c.mu.Unlock()

	if prev != nil {
		if err := prev.Close(); err != nil {
			c.logger.Warn("closing previous live channel failed", "error", err)
		}
	}

	c.connect(ctx)
	return nil
}

// connect dials the live channel and joins the personal identity room so
// direct messages reach this session. Dial failure leaves the session
// authenticated but disconnected; the transport's own retry behavior (if
// any) is not supplemented here.
func (c *Client) connect(ctx context.Context) {
	c.mu.Lock()
	token := c.session.Token
	self := c.session.User
	c.mu.Unlock()

	ch, err := c.dialer.Dial(ctx, token, Handlers{
		OnConnect:       func() { c.setConnected(true) },
		OnDisconnect:    func() { c.setConnected(false) },
		OnRoomMessage:   c.handleInbound,
		OnDirectMessage: c.handleInbound,
	})
	if err != nil {
		c.logger.Warn("live channel dial failed", "error", err)
		return
	}

	c.mu.Lock()
	c.channel = ch
	c.connected = true
	c.mu.Unlock()

	if err := ch.Join(string(self.ID)); err != nil {
		c.logger.Warn("joining personal room failed", "identity", self.ID, "error", err)
	}
}

func (c *Client) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}

// Logout tears down the live channel before any state is cleared, so a
// queued inbound event for the just-closed session can never mutate the
// log afterwards. Session, directory, log and selection all reset together.
func (c *Client) Logout() {
	c.mu.Lock()
	ch := c.channel
	c.channel = nil
	c.mu.Unlock()

	if ch != nil {
		if err := ch.Close(); err != nil {
			c.logger.Warn("closing live channel failed", "error", err)
		}
	}

	c.mu.Lock()
	c.session = Session{}
	c.users = nil
	c.selected = nil
	c.messages = nil
	c.connected = false
	// Invalidate any history fetch still in flight; its response must not
	// repopulate the log after the session is gone.
	c.historyGen++
	c.mu.Unlock()
}

// ListUsers refreshes the user directory, excluding the current user's own
// identity. A fetch failure keeps the previous directory and is only
// logged; read paths degrade gracefully.
func (c *Client) ListUsers(ctx context.Context) []User {
	c.mu.Lock()
	if !c.session.Authenticated {
		c.mu.Unlock()
		return nil
	}
	token := c.session.Token
	self := normalizeIdentity(c.session.User.ID)
	c.mu.Unlock()

	fetched, err := c.api.ListUsers(ctx, token)
	if err != nil {
		c.logger.Warn("fetching user directory failed", "error", err)
		c.mu.Lock()
		defer c.mu.Unlock()
		return slices.Clone(c.users)
	}

	filtered := make([]User, 0, len(fetched))
	for _, u := range fetched {
		if normalizeIdentity(u.ID) == self {
			continue
		}
		filtered = append(filtered, u)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.users = filtered
	return slices.Clone(filtered)
}

// SelectConversation sets the active partner, clearing the log first. With
// a partner it joins the derived room and loads the message history; a nil
// partner just clears the selection. The history response is applied only
// if the selection has not changed while the request was in flight.
func (c *Client) SelectConversation(ctx context.Context, partner *User) {
	c.mu.Lock()
	if !c.session.Authenticated {
		c.mu.Unlock()
		return
	}
	c.messages = nil
	c.historyGen++
	if partner == nil {
		c.selected = nil
		c.mu.Unlock()
		return
	}
	p := *partner
	c.selected = &p
	gen := c.historyGen
	token := c.session.Token
	self := c.session.User.ID
	ch := c.channel
	c.mu.Unlock()

	room := RoomID(self, p.ID)
	if ch != nil {
		if err := ch.Join(room); err != nil {
			c.logger.Warn("joining conversation room failed", "room", room, "error", err)
		}
	}

	history, err := c.api.FetchHistory(ctx, token, p.ID)
	if err != nil {
		c.logger.Warn("fetching history failed", "partner", p.ID, "error", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// A response for an earlier selection must not overwrite the log.
	if c.historyGen != gen {
		return
	}
	c.messages = history
}

// SendMessage posts the message to the backend and, on success, appends an
// optimistic local echo before publishing it over the live channel twice:
// once to the derived room and once directly to the partner. Channel
// publish failures are logged but do not fail the send.
func (c *Client) SendMessage(ctx context.Context, receiverID Identity, body string) error {
	c.mu.Lock()
	if !c.session.Authenticated {
		c.mu.Unlock()
		return ErrNotAuthenticated
	}
	token := c.session.Token
	self := *c.session.User
	ch := c.channel
	c.mu.Unlock()

	if err := c.api.SendMessage(ctx, token, receiverID, body); err != nil {
		return fmt.Errorf("sending message: %w", err)
	}

	msg := Message{
		Sender:     SenderByUser(self),
		ReceiverID: receiverID,
		Body:       body,
		SentAt:     time.Now(),
	}

	// Local echo goes in immediately; channel delivery latency never holds
	// up the sender's own view.
	c.mu.Lock()
	c.messages = append(c.messages, msg)
	c.mu.Unlock()

	if ch != nil {
		out := Outbound{
			Room:       RoomID(self.ID, receiverID),
			To:         receiverID,
			SenderID:   self.ID,
			SenderName: self.DisplayName(),
			Body:       body,
			SentAt:     msg.SentAt,
		}
		if err := ch.PublishRoom(out); err != nil {
			c.logger.Warn("room publish failed", "room", out.Room, "error", err)
		}
		if err := ch.PublishDirect(out); err != nil {
			c.logger.Warn("direct publish failed", "to", out.To, "error", err)
		}
	}
	return nil
}

// handleInbound appends an inbound event to the log if and only if its
// sender is the currently selected partner, read fresh at handling time.
// Events for any other conversation are discarded, which also excludes
// looped-back echoes of our own sends: the sender is compared against the
// partner, never the current user.
func (c *Client) handleInbound(ev Event) {
	c.mu.Lock()
	if !c.session.Authenticated || c.selected == nil {
		c.mu.Unlock()
		return
	}
	if normalizeIdentity(ev.SenderID) != normalizeIdentity(c.selected.ID) {
		c.mu.Unlock()
		return
	}

	sender := SenderByID(ev.SenderID)
	if ev.SenderName != "" {
		sender = SenderByUser(User{ID: ev.SenderID, Name: ev.SenderName})
	}
	sentAt := ev.SentAt
	if sentAt.IsZero() {
		sentAt = time.Now()
	}
	msg := Message{
		Sender:     sender,
		ReceiverID: c.session.User.ID,
		Body:       ev.Body,
		SentAt:     sentAt,
	}
	c.messages = append(c.messages, msg)
	notify := c.onMessage
	c.mu.Unlock()

	if notify != nil {
		notify(msg)
	}
}

// Session returns a copy of the current session.
func (c *Client) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.session
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

// Users returns the cached user directory.
func (c *Client) Users() []User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.users)
}

// Selected returns the currently selected conversation partner, or nil.
func (c *Client) Selected() *User {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selected == nil {
		return nil
	}
	p := *c.selected
	return &p
}

// Messages returns the conversation log for the active selection.
func (c *Client) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.messages)
}

// Connected reports whether the live channel is currently up. It only
// reflects status for display; reconnection is left to the transport.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}
