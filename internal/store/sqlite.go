// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Provides user/message/OTP persistence with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			mobile_number TEXT NOT NULL,
			created_at DATETIME NOT NULL
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_users_mobile_number
			ON users(mobile_number);

		CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			sender_id TEXT NOT NULL,
			receiver_id TEXT NOT NULL,
			body TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (sender_id) REFERENCES users(id),
			FOREIGN KEY (receiver_id) REFERENCES users(id)
		);

		CREATE INDEX IF NOT EXISTS idx_messages_pair_created
			ON messages(sender_id, receiver_id, created_at);

		CREATE TABLE IF NOT EXISTS verification_codes (
			mobile_number TEXT PRIMARY KEY,
			code_hash TEXT NOT NULL,
			expires_at DATETIME NOT NULL
		);
	`

	_, err := s.db.Exec(schema)
	return err
}

// CreateUser inserts a new user. Returns ErrDuplicateUser if the mobile
// number is already registered.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, mobile_number, created_at)
		VALUES (?, ?, ?, ?)`,
		user.ID, user.Name, user.MobileNumber, user.CreatedAt.UTC())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrDuplicateUser
		}
		return fmt.Errorf("inserting user: %w", err)
	}

	s.logger.Debug("user created", "user_id", user.ID, "mobile_number", user.MobileNumber)
	return nil
}

// GetUser retrieves a user by ID
func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, mobile_number, created_at
		FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// GetUserByMobileNumber retrieves a user by their mobile number
func (s *SQLiteStore) GetUserByMobileNumber(ctx context.Context, mobileNumber string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, mobile_number, created_at
		FROM users WHERE mobile_number = ?`, mobileNumber)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.MobileNumber, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning user: %w", err)
	}
	return &u, nil
}

// ListUsers returns all registered users ordered by creation time
func (s *SQLiteStore) ListUsers(ctx context.Context) ([]*User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, mobile_number, created_at
		FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name, &u.MobileNumber, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, &u)
	}
	return users, rows.Err()
}

// SaveMessage persists a direct message
func (s *SQLiteStore) SaveMessage(ctx context.Context, msg *Message) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, sender_id, receiver_id, body, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		msg.ID, msg.SenderID, msg.ReceiverID, msg.Body, msg.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}
	return nil
}

// GetConversation returns every message exchanged between the two users,
// in both directions, ordered by creation time.
func (s *SQLiteStore) GetConversation(ctx context.Context, userID, partnerID string) ([]*Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sender_id, receiver_id, body, created_at
		FROM messages
		WHERE (sender_id = ? AND receiver_id = ?)
		   OR (sender_id = ? AND receiver_id = ?)
		ORDER BY created_at, id`,
		userID, partnerID, partnerID, userID)
	if err != nil {
		return nil, fmt.Errorf("querying conversation: %w", err)
	}
	defer rows.Close()

	var msgs []*Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Body, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		msgs = append(msgs, &m)
	}
	return msgs, rows.Err()
}

// SaveOTP stores the verification code hash for a mobile number, replacing
// any previous code.
func (s *SQLiteStore) SaveOTP(ctx context.Context, mobileNumber, codeHash string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO verification_codes (mobile_number, code_hash, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT(mobile_number) DO UPDATE SET
			code_hash = excluded.code_hash,
			expires_at = excluded.expires_at`,
		mobileNumber, codeHash, expiresAt.UTC())
	if err != nil {
		return fmt.Errorf("saving verification code: %w", err)
	}
	return nil
}

// GetOTP retrieves the verification code hash for a mobile number
func (s *SQLiteStore) GetOTP(ctx context.Context, mobileNumber string) (string, time.Time, error) {
	var codeHash string
	var expiresAt time.Time
	err := s.db.QueryRowContext(ctx, `
		SELECT code_hash, expires_at
		FROM verification_codes WHERE mobile_number = ?`, mobileNumber).
		Scan(&codeHash, &expiresAt)
	if err == sql.ErrNoRows {
		return "", time.Time{}, ErrNotFound
	}
	if err != nil {
		return "", time.Time{}, fmt.Errorf("querying verification code: %w", err)
	}
	return codeHash, expiresAt, nil
}

// DeleteOTP removes the verification code for a mobile number
func (s *SQLiteStore) DeleteOTP(ctx context.Context, mobileNumber string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM verification_codes WHERE mobile_number = ?`, mobileNumber)
	if err != nil {
		return fmt.Errorf("deleting verification code: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
