// ABOUTME: Tests for one-time code issue and verification
// ABOUTME: Covers mismatch, expiry, single use, and the fixed dev code

package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memOTPStore is an in-memory OTPStore for tests.
type memOTPStore struct {
	mu      sync.Mutex
	entries map[string]memOTPEntry
}

type memOTPEntry struct {
	hash      string
	expiresAt time.Time
}

func newMemOTPStore() *memOTPStore {
	return &memOTPStore{entries: make(map[string]memOTPEntry)}
}

func (s *memOTPStore) SaveOTP(_ context.Context, mobileNumber, codeHash string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[mobileNumber] = memOTPEntry{hash: codeHash, expiresAt: expiresAt}
	return nil
}

func (s *memOTPStore) GetOTP(_ context.Context, mobileNumber string) (string, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[mobileNumber]
	if !ok {
		return "", time.Time{}, ErrNoCode
	}
	return e.hash, e.expiresAt, nil
}

func (s *memOTPStore) DeleteOTP(_ context.Context, mobileNumber string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, mobileNumber)
	return nil
}

func TestOTP_IssueAndVerify(t *testing.T) {
	m := NewOTPManager(newMemOTPStore(), time.Minute, "", nil)
	ctx := context.Background()

	code, err := m.Issue(ctx, "9999999999")
	require.NoError(t, err)
	require.Len(t, code, 4)

	require.NoError(t, m.Verify(ctx, "9999999999", code))
}

func TestOTP_WrongCodeRejected(t *testing.T) {
	m := NewOTPManager(newMemOTPStore(), time.Minute, "", nil)
	ctx := context.Background()

	code, err := m.Issue(ctx, "9999999999")
	require.NoError(t, err)

	wrong := "0000"
	if wrong == code {
		wrong = "0001"
	}
	assert.ErrorIs(t, m.Verify(ctx, "9999999999", wrong), ErrCodeMismatch)
}

func TestOTP_SingleUse(t *testing.T) {
	m := NewOTPManager(newMemOTPStore(), time.Minute, "", nil)
	ctx := context.Background()

	code, err := m.Issue(ctx, "9999999999")
	require.NoError(t, err)

	require.NoError(t, m.Verify(ctx, "9999999999", code))
	assert.ErrorIs(t, m.Verify(ctx, "9999999999", code), ErrNoCode)
}

func TestOTP_ExpiredCodeRejected(t *testing.T) {
	store := newMemOTPStore()
	m := NewOTPManager(store, time.Minute, "", nil)
	ctx := context.Background()

	code, err := m.Issue(ctx, "9999999999")
	require.NoError(t, err)

	// Age the stored entry past its expiry.
	store.mu.Lock()
	e := store.entries["9999999999"]
	e.expiresAt = time.Now().Add(-time.Second)
	store.entries["9999999999"] = e
	store.mu.Unlock()

	assert.ErrorIs(t, m.Verify(ctx, "9999999999", code), ErrCodeExpired)
}

func TestOTP_NoCodeIssued(t *testing.T) {
	m := NewOTPManager(newMemOTPStore(), time.Minute, "", nil)
	assert.ErrorIs(t, m.Verify(context.Background(), "8888888888", "1234"), ErrNoCode)
}

func TestOTP_FixedDevCode(t *testing.T) {
	m := NewOTPManager(newMemOTPStore(), time.Minute, "1234", nil)
	ctx := context.Background()

	code, err := m.Issue(ctx, "9999999999")
	require.NoError(t, err)
	assert.Equal(t, "1234", code)

	require.NoError(t, m.Verify(ctx, "9999999999", "1234"))
}

func TestHashCode_RoundTrip(t *testing.T) {
	hash, err := hashCode("4321")
	require.NoError(t, err)

	ok, err := verifyCode("4321", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = verifyCode("1234", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}
