// Package auth provides backend authentication: one-time verification
// codes for the OTP login flow, HS256 JWT session tokens, and the HTTP
// bearer middleware that guards authenticated endpoints.
package auth
