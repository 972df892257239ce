package auth

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// ErrUnauthenticated is returned when a session token is missing, unknown,
// or expired.
var ErrUnauthenticated = errors.New("unauthenticated")

// Session is an authenticated account session resolved from a bearer token.
type Session struct {
	TokenHash string
	AccountID int64
	ExpiresAt time.Time
}

// Expired reports whether the session is past its expiry at the given time.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Repository provides lookup of sessions by their HMAC token hash.
type Repository interface {
	FindByTokenHash(ctx context.Context, hash string) (*Session, error)
}
