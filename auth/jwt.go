package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	nanoid "github.com/matoous/go-nanoid/v2"
)

// DefaultTokenTTL is the lifetime of delivery tokens when the config
// does not set one. Webhook receivers should treat tokens as
// short-lived proof of origin, not sessions.
const DefaultTokenTTL = 5 * time.Minute

// JWTConfig holds the signing parameters for delivery tokens.
type JWTConfig struct {
	// Secret is the HMAC signing key, shared with the receiver.
	// Must be at least 32 bytes.
	Secret []byte

	// Issuer identifies the sending system, e.g. "ticketflow".
	// Receivers validating with a non-empty issuer reject mismatches.
	Issuer string

	// TokenTTL overrides DefaultTokenTTL when non-zero.
	TokenTTL time.Duration
}

func (c JWTConfig) ttl() time.Duration {
	if c.TokenTTL == 0 {
		return DefaultTokenTTL
	}
	return c.TokenTTL
}

// Claims are the registered claims carried by a delivery token. The
// subject names the notifier that produced the delivery.
type Claims struct {
	jwt.RegisteredClaims
}

// GenerateToken signs a short-lived token identifying the given
// subject. Each token carries a unique ID so receivers can deduplicate
// replayed deliveries.
func GenerateToken(cfg JWTConfig, subject string) (string, error) {
	if len(cfg.Secret) < 32 {
		return "", ErrSecretTooShort
	}

	tokenID, err := nanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate token ID: %w", err)
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.ttl())),
			ID:        tokenID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(cfg.Secret)
}

// ValidateToken parses and verifies a delivery token. The signature,
// expiry, and (when configured) issuer are all checked.
func ValidateToken(cfg JWTConfig, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return cfg.Secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	if cfg.Issuer != "" && claims.Issuer != cfg.Issuer {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
