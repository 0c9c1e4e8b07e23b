package utils // package utils provides helper functions for token creation and hashing

import (
	"crypto/sha256" // SHA‑256 hashing for stored session ids
	"encoding/hex"  // hex encoding of digests
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// SessionToken is a signed JWT that carries a session id (jti) together
// with the subject and role it was issued for. The session id is what the
// server-side store keys on; the signature only proves the token was minted
// here.
type SessionToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// SessionClaims are the claims embedded in a session token.
type SessionClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

var ErrInvalidToken = errors.New("invalid session token")

// NewSessionToken builds and signs an HS256 JWT. The subject is the user
// or admin id as a decimal string and the jti is the session id.
func NewSessionToken(secret, sessionID string, subject uint64, role string, ttl time.Duration, now time.Time) (SessionToken, error) {
	exp := now.UTC().Add(ttl)
	claims := SessionClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			Subject:   fmt.Sprintf("%d", subject),
			IssuedAt:  jwt.NewNumericDate(now.UTC()),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return SessionToken{}, err
	}
	return SessionToken{Token: signed, Exp: exp}, nil
}

// ParseSessionToken verifies the signature and expiry of raw and returns
// its claims. Tokens signed with anything other than HMAC are rejected.
func ParseSessionToken(secret, raw string, now time.Time) (*SessionClaims, error) {
	claims := &SessionClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	}, jwt.WithTimeFunc(func() time.Time { return now }))
	if err != nil || !tok.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.ID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// HashToken returns the SHA‑256 hex digest of a session id. Only the digest
// is persisted so a leaked table cannot be replayed as live sessions.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
