package auth

import "errors"

var (
	// ErrInvalidToken indicates a malformed token, a bad signature, or
	// an issuer mismatch.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired indicates the token's expiry has passed.
	ErrTokenExpired = errors.New("token expired")

	// ErrSecretTooShort indicates the signing secret is under 32 bytes.
	ErrSecretTooShort = errors.New("JWT secret must be at least 32 bytes")
)
