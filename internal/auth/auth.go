// Package auth issues and validates opaque session tokens and rate-limits
// login attempts. Sessions are persisted so a server restart does not log
// everyone out.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// CookieName is the session cookie the web layer reads and writes.
const CookieName = "revue_session"

// ErrNoSession is returned for missing, expired or revoked tokens.
var ErrNoSession = errors.New("no valid session")

// Sessions persists login sessions keyed by opaque UUID tokens.
type Sessions struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

func NewSessions(db *sql.DB, ttl time.Duration) *Sessions {
	return &Sessions{db: db, ttl: ttl, now: time.Now}
}

// Create opens a session for the user and returns its token.
func (s *Sessions) Create(ctx context.Context, userID int64) (string, error) {
	token := uuid.NewString()
	expires := s.now().Add(s.ttl).UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (token, user_id, expires_at) VALUES (?, ?, ?)`,
		token, userID, expires.Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("insert session: %w", err)
	}
	return token, nil
}

// UserID resolves a token to its user, rejecting expired sessions.
func (s *Sessions) UserID(ctx context.Context, token string) (int64, error) {
	var userID int64
	var expires string
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, expires_at FROM sessions WHERE token = ?`, token,
	).Scan(&userID, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNoSession
	}
	if err != nil {
		return 0, err
	}
	deadline, err := time.Parse(time.RFC3339Nano, expires)
	if err != nil {
		return 0, fmt.Errorf("decode session expiry: %w", err)
	}
	if s.now().After(deadline) {
		_ = s.Revoke(ctx, token)
		return 0, ErrNoSession
	}
	return userID, nil
}

// Revoke ends a session. Revoking an unknown token is not an error.
func (s *Sessions) Revoke(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token)
	return err
}

// LoginLimiter throttles login attempts per client address to slow down
// credential stuffing. Limiters are kept per address and created lazily.
type LoginLimiter struct {
	mu      sync.Mutex
	perAddr map[string]*rate.Limiter
	limit   rate.Limit
	burst   int
}

// NewLoginLimiter allows perMinute attempts per address with the given
// burst.
func NewLoginLimiter(perMinute, burst int) *LoginLimiter {
	if perMinute <= 0 {
		perMinute = 10
	}
	if burst <= 0 {
		burst = 5
	}
	return &LoginLimiter{
		perAddr: make(map[string]*rate.Limiter),
		limit:   rate.Limit(float64(perMinute) / 60.0),
		burst:   burst,
	}
}

// Allow reports whether another attempt from addr may proceed now.
func (l *LoginLimiter) Allow(addr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.perAddr[addr]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.perAddr[addr] = lim
	}
	return lim.Allow()
}
