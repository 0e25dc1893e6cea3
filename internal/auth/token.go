// Package auth issues and verifies the bearer tokens that guard the miner
// daemon's mutating routes.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	defaultIssuer = "minerd"
	tokenType     = "device"
)

// DeviceClaims are the JWT claims of a device token.
type DeviceClaims struct {
	jwt.RegisteredClaims
	DeviceID string `json:"device_id"`
	Type     string `json:"type"`
}

// TokenIssuer issues and verifies HS256 device tokens.
type TokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewTokenIssuer creates a TokenIssuer. A zero ttl defaults to 30 days.
func NewTokenIssuer(secret string, ttl time.Duration) (*TokenIssuer, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth secret must be at least 16 bytes")
	}
	if ttl == 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &TokenIssuer{secret: []byte(secret), issuer: defaultIssuer, ttl: ttl}, nil
}

// Issue creates a signed token for deviceID.
func (t *TokenIssuer) Issue(deviceID string) (string, error) {
	if deviceID == "" {
		return "", errors.New("device id is required")
	}
	now := time.Now().UTC()
	claims := DeviceClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   deviceID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
			ID:        uuid.New().String(),
		},
		DeviceID: deviceID,
		Type:     tokenType,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign device token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a device token, returning its claims.
func (t *TokenIssuer) Verify(tokenStr string) (*DeviceClaims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&DeviceClaims{},
		func(tok *jwt.Token) (any, error) {
			if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
			}
			return t.secret, nil
		},
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("verify device token: %w", err)
	}
	claims, ok := token.Claims.(*DeviceClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid device token claims")
	}
	if claims.Type != tokenType {
		return nil, errors.New("not a device token")
	}
	return claims, nil
}
