// Package auth carries the session context attached to every request and
// the token machinery behind it. The backend is the authority of record for
// permissions; a session is only the claim set the engine checks against.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/jobpal/jobpal-server/internal/domain/workflow"
)

var (
	ErrNoSession      = errors.New("no session")
	ErrSessionExpired = errors.New("session expired")
	ErrInvalidToken   = errors.New("invalid session token")
)

// Session is the authenticated context passed to the engine's entry points.
// It replaces the portal's ambient getAuthority()/getUserId() lookups.
type Session struct {
	UserID    string
	Role      workflow.Role
	ExpiresAt time.Time
}

// Valid reports whether the session may drive transitions at the given
// instant. A nil or expired session permits no actions.
func (s *Session) Valid(now time.Time) bool {
	return s != nil && s.UserID != "" && s.Role.IsValid() && now.Before(s.ExpiresAt)
}

// claims is the JWT payload: user ID as subject, the legacy role claim, and
// the registered expiry.
type claims struct {
	RoleID string `json:"role_id"`
	jwt.RegisteredClaims
}

// TokenManager issues and parses session tokens.
type TokenManager struct {
	secret   []byte
	tokenTTL time.Duration
}

// NewTokenManager creates a TokenManager signing with the given secret.
func NewTokenManager(secret string, tokenTTL time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), tokenTTL: tokenTTL}
}

// Issue creates a signed bearer token for the user.
func (m *TokenManager) Issue(userID string, role workflow.Role, now time.Time) (string, error) {
	c := claims{
		RoleID: role.ClaimID(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies a bearer token and returns its session. Expired tokens
// yield ErrSessionExpired so callers can force a logout rather than retry.
func (m *TokenManager) Parse(tokenString string) (*Session, error) {
	if tokenString == "" {
		return nil, ErrNoSession
	}

	var c claims
	_, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrSessionExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	role, err := workflow.ParseRoleClaim(c.RoleID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if c.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: missing expiry", ErrInvalidToken)
	}

	return &Session{
		UserID:    c.Subject,
		Role:      role,
		ExpiresAt: c.ExpiresAt.Time,
	}, nil
}
