// Package web exposes the HTTP surface: session auth, catalog browsing,
// review submission and voting, moderation, administration and the CSV
// review-import endpoints.
package web

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"revue/internal/auth"
	"revue/internal/catalog"
	"revue/internal/config"
	"revue/internal/eventlog"
	"revue/internal/review"
	"revue/internal/user"
)

// Server bundles the stores behind the HTTP handlers.
type Server struct {
	cfg      config.Config
	log      *zap.Logger
	products *catalog.Store
	reviews  *review.Store
	users    *user.Store
	events   *eventlog.Store
	sessions *auth.Sessions
	limiter  *auth.LoginLimiter
}

func NewServer(
	cfg config.Config,
	log *zap.Logger,
	products *catalog.Store,
	reviews *review.Store,
	users *user.Store,
	events *eventlog.Store,
	sessions *auth.Sessions,
	limiter *auth.LoginLimiter,
) *Server {
	return &Server{
		cfg:      cfg,
		log:      log,
		products: products,
		reviews:  reviews,
		users:    users,
		events:   events,
		sessions: sessions,
		limiter:  limiter,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/login", s.handleLogin)
	mux.HandleFunc("/logout", s.handleLogout)
	mux.HandleFunc("/register", s.handleRegister)

	mux.HandleFunc("/products", s.handleProducts)
	mux.HandleFunc("/products/", s.handleProductSubtree)
	mux.HandleFunc("/reviews/", s.handleReviewVotes)
	mux.HandleFunc("/my-reviews", s.handleMyReviews)

	mux.HandleFunc("/moderator/reviews", s.handleModeratorQueue)
	mux.HandleFunc("/moderator/reviews/", s.handleModerateReview)

	mux.HandleFunc("/admin/reviews", s.handleAdminReviews)
	mux.HandleFunc("/admin/products", s.handleAdminProducts)
	mux.HandleFunc("/admin/products/", s.handleAdminProductSubtree)
	mux.HandleFunc("/admin/new-products", s.handleNewProducts)
	mux.HandleFunc("/admin/users", s.handleUsers)
	mux.HandleFunc("/admin/users/", s.handleUserChange)
	mux.HandleFunc("/admin/logs", s.handleLogs)

	return mux
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// currentUser resolves the session cookie to an account, or nil when the
// request is anonymous.
func (s *Server) currentUser(r *http.Request) *user.User {
	cookie, err := r.Cookie(auth.CookieName)
	if err != nil {
		return nil
	}
	userID, err := s.sessions.UserID(r.Context(), cookie.Value)
	if err != nil {
		return nil
	}
	u, err := s.users.GetByID(r.Context(), userID)
	if err != nil {
		if !errors.Is(err, user.ErrNotFound) {
			s.log.Error("load session user", zap.Error(err))
		}
		return nil
	}
	return u
}

// requireUser rejects anonymous requests with 401.
func (s *Server) requireUser(w http.ResponseWriter, r *http.Request) *user.User {
	u := s.currentUser(r)
	if u == nil {
		s.writeError(w, http.StatusUnauthorized, "Unauthorized")
		return nil
	}
	return u
}

// requireType rejects requests whose user has none of the given roles.
func (s *Server) requireType(w http.ResponseWriter, r *http.Request, types ...user.Type) *user.User {
	u := s.requireUser(w, r)
	if u == nil {
		return nil
	}
	for _, t := range types {
		if u.UserType == t {
			return u
		}
	}
	s.writeError(w, http.StatusForbidden, "Forbidden")
	return nil
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// pathID extracts the trailing numeric id from paths like /prefix/123.
func pathID(path, prefix string) (int64, bool) {
	raw := strings.TrimPrefix(path, prefix)
	if raw == "" || raw == path {
		return 0, false
	}
	raw = strings.TrimSuffix(raw, "/")
	if strings.Contains(raw, "/") {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (s *Server) logEvent(r *http.Request, t eventlog.Type, userID int64, description string) {
	if err := s.events.Add(r.Context(), eventlog.Entry{
		UserID:      userID,
		Type:        t,
		Description: description,
	}); err != nil {
		s.log.Error("write event log", zap.Error(err))
	}
}

// actorTag renders "email(role)" the way audit descriptions spell it.
func actorTag(u *user.User) string {
	return u.Email + "(" + strings.ToLower(string(u.UserType)) + ")"
}
