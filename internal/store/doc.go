// Package store provides persistence for users, direct messages, and
// one-time verification codes.
//
// # Overview
//
// The package defines a [Store] interface and a SQLite implementation
// backed by modernc.org/sqlite. The schema is created automatically on
// first open, and the database runs in WAL mode.
//
// # Collaborators
//
// The server's HTTP handlers use the store for the user directory and
// conversation history. The auth package's OTPManager uses the
// verification code methods through its own narrower OTPStore interface.
package store
