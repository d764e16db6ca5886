// ABOUTME: Store interface and data types for the chat backend's persistence
// ABOUTME: Defines User, Message structs and the Store interface for database operations

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicateUser is returned when a mobile number is already registered
var ErrDuplicateUser = errors.New("user already exists")

// User is a registered account, keyed by a stable opaque ID. The mobile
// number is unique across users.
type User struct {
	ID           string
	Name         string
	MobileNumber string
	CreatedAt    time.Time
}

// Message is a stored direct message between two users.
type Message struct {
	ID         string
	SenderID   string
	ReceiverID string
	Body       string
	CreatedAt  time.Time
}

// Store defines the interface for user, message, and verification code
// persistence.
type Store interface {
	// Users
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByMobileNumber(ctx context.Context, mobileNumber string) (*User, error)
	ListUsers(ctx context.Context) ([]*User, error)

	// Messages
	SaveMessage(ctx context.Context, msg *Message) error
	GetConversation(ctx context.Context, userID, partnerID string) ([]*Message, error)

	// Verification codes
	SaveOTP(ctx context.Context, mobileNumber, codeHash string, expiresAt time.Time) error
	GetOTP(ctx context.Context, mobileNumber string) (codeHash string, expiresAt time.Time, err error)
	DeleteOTP(ctx context.Context, mobileNumber string) error

	Close() error
}
