// ABOUTME: One-time verification code lifecycle: issue, hash at rest, verify once
// ABOUTME: Codes are argon2id-hashed; a fixed dev code can be configured for local use

package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"golang.org/x/crypto/argon2"
)

// OTP errors
var (
	ErrCodeMismatch = errors.New("verification code does not match")
	ErrCodeExpired  = errors.New("verification code expired")
	ErrNoCode       = errors.New("no verification code issued")
)

const (
	otpSaltLength  = 16
	otpKeyLength   = 32
	otpTimeCost    = 3
	otpMemoryCost  = 64 * 1024
	otpParallelism = 2
)

// OTPStore persists issued codes keyed by mobile number.
type OTPStore interface {
	SaveOTP(ctx context.Context, mobileNumber, codeHash string, expiresAt time.Time) error
	GetOTP(ctx context.Context, mobileNumber string) (codeHash string, expiresAt time.Time, err error)
	DeleteOTP(ctx context.Context, mobileNumber string) error
}

// OTPManager issues and verifies one-time login codes. Codes are single
// use: a successful verification consumes the stored code.
type OTPManager struct {
	store     OTPStore
	ttl       time.Duration
	fixedCode string
	logger    *slog.Logger
}

// NewOTPManager creates an OTP manager. When fixedCode is non-empty it is
// issued instead of a random code; this exists for local development and
// tests only. Pass nil logger for default.
func NewOTPManager(store OTPStore, ttl time.Duration, fixedCode string, logger *slog.Logger) *OTPManager {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &OTPManager{
		store:     store,
		ttl:       ttl,
		fixedCode: fixedCode,
		logger:    logger.With("component", "otp"),
	}
}

// Issue generates a code for the mobile number, stores its hash with an
// expiry, and returns the plaintext code for delivery.
func (m *OTPManager) Issue(ctx context.Context, mobileNumber string) (string, error) {
	code := m.fixedCode
	if code == "" {
		n, err := rand.Int(rand.Reader, big.NewInt(10000))
		if err != nil {
			return "", fmt.Errorf("generating code: %w", err)
		}
		code = fmt.Sprintf("%04d", n.Int64())
	}

	hash, err := hashCode(code)
	if err != nil {
		return "", fmt.Errorf("hashing code: %w", err)
	}

	expiresAt := time.Now().Add(m.ttl)
	if err := m.store.SaveOTP(ctx, mobileNumber, hash, expiresAt); err != nil {
		return "", fmt.Errorf("storing code: %w", err)
	}

	m.logger.Debug("verification code issued", "mobile_number", mobileNumber, "expires_at", expiresAt)
	return code, nil
}

// Verify checks the code against the stored hash. The stored code is
// consumed on success.
func (m *OTPManager) Verify(ctx context.Context, mobileNumber, code string) error {
	hash, expiresAt, err := m.store.GetOTP(ctx, mobileNumber)
	if err != nil {
		return ErrNoCode
	}

	if time.Now().After(expiresAt) {
		// Expired codes are dead either way; drop them.
		if delErr := m.store.DeleteOTP(ctx, mobileNumber); delErr != nil {
			m.logger.Warn("deleting expired code failed", "mobile_number", mobileNumber, "error", delErr)
		}
		return ErrCodeExpired
	}

	ok, err := verifyCode(code, hash)
	if err != nil {
		return fmt.Errorf("verifying code: %w", err)
	}
	if !ok {
		return ErrCodeMismatch
	}

	if err := m.store.DeleteOTP(ctx, mobileNumber); err != nil {
		m.logger.Warn("consuming code failed", "mobile_number", mobileNumber, "error", err)
	}
	return nil
}

// hashCode hashes a code using argon2id, encoding salt and hash together.
func hashCode(code string) (string, error) {
	salt := make([]byte, otpSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(code), salt, otpTimeCost, otpMemoryCost, otpParallelism, otpKeyLength)

	saltB64 := base64.RawStdEncoding.EncodeToString(salt)
	hashB64 := base64.RawStdEncoding.EncodeToString(hash)
	return "$argon2id$" + saltB64 + "$" + hashB64, nil
}

// verifyCode checks a code against an encoded hash in constant time.
func verifyCode(code, encoded string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 4 || parts[1] != "argon2id" {
		return false, errors.New("malformed code hash")
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[2])
	if err != nil {
		return false, fmt.Errorf("decoding salt: %w", err)
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[3])
	if err != nil {
		return false, fmt.Errorf("decoding hash: %w", err)
	}

	got := argon2.IDKey([]byte(code), salt, otpTimeCost, otpMemoryCost, otpParallelism, otpKeyLength)
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}
