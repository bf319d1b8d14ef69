// Package token issues and verifies the signed session tokens handed out on
// signup and login.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ContextKey is the gin context key the auth middleware stores the Identity under.
const ContextKey = "identity"

var ErrInvalidToken = errors.New("invalid or expired token")

// Identity is the caller resolved from a verified token.
type Identity struct {
	UserID uuid.UUID
}

type userClaim struct {
	ID string `json:"id"`
}

type claims struct {
	User userClaim `json:"user"`
	jwt.RegisteredClaims
}

type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewManager(secret string, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Manager{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue signs a token embedding {"user": {"id": userID}}.
func (m *Manager) Issue(userID uuid.UUID) (string, error) {
	issuedAt := m.now()

	c := claims{
		User: userClaim{ID: userID.String()},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(m.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry and returns the embedded identity.
func (m *Manager) Verify(tokenString string) (Identity, error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return Identity{}, ErrInvalidToken
	}

	userID, err := uuid.Parse(c.User.ID)
	if err != nil || userID == uuid.Nil {
		return Identity{}, ErrInvalidToken
	}

	return Identity{UserID: userID}, nil
}
