package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// ErrInvalidSession is returned for missing, expired or tampered session tokens.
var ErrInvalidSession = errors.New("invalid session token")

// SessionClaims is the signed admin/visitor session.
type SessionClaims struct {
	Provider string `json:"provider"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// Session is the identity carried by a session token.
type Session struct {
	UserID   string
	Provider string
	Name     string
	Email    string
	Username string
}

// IssueSession signs a HS256 token for s valid for ttl from now.
func IssueSession(s Session, secret string, now time.Time, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("empty session secret")
	}
	claims := SessionClaims{
		Provider: s.Provider,
		Name:     s.Name,
		Email:    s.Email,
		Username: s.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.UserID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign session: %w", err)
	}
	return signed, nil
}

// ParseSession validates a token against secret at now.
func ParseSession(tokenString, secret string, now time.Time) (Session, error) {
	// Time claims are checked below against the injected clock instead of the wall clock.
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	claims := &SessionClaims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return Session{}, ErrInvalidSession
	}
	if claims.ExpiresAt == nil || !now.Before(claims.ExpiresAt.Time) || claims.Subject == "" {
		return Session{}, ErrInvalidSession
	}
	return Session{
		UserID:   claims.Subject,
		Provider: claims.Provider,
		Name:     claims.Name,
		Email:    claims.Email,
		Username: claims.Username,
	}, nil
}
