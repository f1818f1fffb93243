// Package btpauth issues and validates bearer tokens peers exchange during
// BTP connection bootstrap, carried as the data of a protocolData entry
// named "auth" (content type 2, application/json). This is a peering-layer
// concern only: it gates who may open a session, not what the session's ILP
// or claim payloads contain.
package btpauth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrSessionExpired is returned when a presented token's lease has elapsed.
var ErrSessionExpired = errors.New("peer session lease expired")

// Claims is the JWT payload identifying a peer's BTP session lease.
type Claims struct {
	jwt.RegisteredClaims
	// SessionID is a server-generated identifier for this peering session.
	SessionID string `json:"sid"`
}

// TokenManager issues and validates peer-auth JWTs.
type TokenManager struct {
	secret []byte
	lease  time.Duration
}

// NewTokenManager creates a TokenManager with the given HMAC secret and
// session lease duration.
func NewTokenManager(secret []byte, lease time.Duration) *TokenManager {
	return &TokenManager{secret: secret, lease: lease}
}

// IssueToken signs a new auth token identifying peerID for one session
// lease, returning the signed token string to embed as BTP auth
// protocol-data.
func (m *TokenManager) IssueToken(peerID, sessionID string) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   peerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.lease)),
		},
		SessionID: sessionID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("signing peer auth token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and verifies the JWT signature and lease expiry,
// returning the embedded claims.
func (m *TokenManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrSessionExpired
		}
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid peer auth token claims")
	}
	return claims, nil
}
