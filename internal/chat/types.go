// ABOUTME: Core data types for the chat client: identities, users, messages, sessions
// ABOUTME: SenderRef normalizes the two wire shapes a message sender can take

package chat

import (
	"strings"
	"time"
)

// Identity is an opaque, stable identifier for a user.
type Identity string

// normalizeIdentity prepares an identity for comparison.
func normalizeIdentity(id Identity) Identity {
	return Identity(strings.TrimSpace(string(id)))
}

// User is a directory entry and conversation participant.
type User struct {
	ID           Identity `json:"id"`
	Name         string   `json:"name,omitempty"`
	MobileNumber string   `json:"mobile_number"`
}

// DisplayName returns the user's name, falling back to the mobile number.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.MobileNumber
}

// SenderRef identifies a message sender. The backend sends either a bare
// identity or an embedded user record depending on the endpoint, so both
// shapes collapse into this one type.
type SenderRef struct {
	id   Identity
	user *User
}

// SenderByID creates a SenderRef from a bare identity.
func SenderByID(id Identity) SenderRef {
	return SenderRef{id: id}
}

// SenderByUser creates a SenderRef from an embedded user record.
func SenderByUser(u User) SenderRef {
	return SenderRef{user: &u}
}

// Identity returns the sender's normalized identity regardless of shape.
func (s SenderRef) Identity() Identity {
	if s.user != nil {
		return normalizeIdentity(s.user.ID)
	}
	return normalizeIdentity(s.id)
}

// User returns the embedded user record, if the sender carried one.
func (s SenderRef) User() (User, bool) {
	if s.user == nil {
		return User{}, false
	}
	return *s.user, true
}

// DisplayName returns the best available name for the sender. A bare
// identity has nothing better than the identity itself.
func (s SenderRef) DisplayName() string {
	if s.user != nil {
		return s.user.DisplayName()
	}
	return string(s.id)
}

// Message is a single entry in a conversation log. Sender and receiver are
// fixed once the message is stored.
type Message struct {
	ID         string
	Sender     SenderRef
	ReceiverID Identity
	Body       string
	SentAt     time.Time
}

// Session holds authentication state. Authenticated is true only when User
// and Token were set together by a successful verification.
type Session struct {
	User          *User
	Token         string
	Authenticated bool
}
