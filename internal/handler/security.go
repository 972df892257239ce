package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/xenking/storefront-api/internal/domain/auth"
)

// sessionKey is the context key for the authenticated session.
type sessionKey struct{}

// SessionFromContext extracts the authenticated session from the context.
func SessionFromContext(ctx context.Context) (*auth.Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(*auth.Session)
	return s, ok
}

// HashToken computes the HMAC-SHA256 hex digest of a session token with the
// given pepper. The database stores only these digests.
func HashToken(token string, pepper []byte) string {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}

// Security authenticates requests from bearer session tokens. It is a
// guard-clause boundary: unauthenticated requests get a typed 401 body and
// never reach the wrapped handler.
type Security struct {
	sessions auth.Repository
	pepper   []byte
	now      func() time.Time
}

// NewSecurity creates the session middleware with the given repository and
// HMAC pepper.
func NewSecurity(sessions auth.Repository, pepper []byte) *Security {
	return &Security{sessions: sessions, pepper: pepper, now: time.Now}
}

// RequireSession wraps next, resolving the bearer token into a session and
// storing it in the request context. Missing, unknown, and expired tokens all
// produce the same 401 response.
func (s *Security) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		sess, err := s.sessions.FindByTokenHash(r.Context(), HashToken(token, s.pepper))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		if sess.Expired(s.now()) {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		ctx := context.WithValue(r.Context(), sessionKey{}, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// bearerToken extracts the token from the Authorization header, falling back
// to the session_token header used by non-browser clients.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if tok, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(tok)
		}
	}
	return strings.TrimSpace(r.Header.Get("session_token"))
}

// session returns the request's session. The middleware guarantees presence;
// the fallback 401 covers misconfigured routes wired without RequireSession.
func session(w http.ResponseWriter, r *http.Request) (*auth.Session, bool) {
	sess, ok := SessionFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
	}
	return sess, ok
}
