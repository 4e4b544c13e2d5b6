package web

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"revue/internal/auth"
	"revue/internal/eventlog"
	"revue/internal/user"
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	addr := clientAddr(r)
	if !s.limiter.Allow(addr) {
		s.writeError(w, http.StatusTooManyRequests, "Too many login attempts")
		return
	}
	email := r.FormValue("email")
	password := r.FormValue("password")
	if email == "" || password == "" {
		s.writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	u, err := s.users.Authenticate(r.Context(), email, password)
	if errors.Is(err, user.ErrBadCredentials) {
		s.log.Info("login rejected", zap.String("email", email), zap.String("addr", addr))
		s.writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if err != nil {
		s.log.Error("authenticate", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}

	token, err := s.sessions.Create(r.Context(), u.UserID)
	if err != nil {
		s.log.Error("create session", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(time.Duration(s.cfg.SessionTTLHours) * time.Hour),
	})
	s.writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if cookie, err := r.Cookie(auth.CookieName); err == nil {
		if err := s.sessions.Revoke(r.Context(), cookie.Value); err != nil {
			s.log.Error("revoke session", zap.Error(err))
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	email := r.FormValue("email")
	password := r.FormValue("password")
	if email == "" || password == "" {
		s.writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	u, err := s.users.Create(r.Context(), email, password, user.TypeUser, user.AccountEmail)
	if errors.Is(err, user.ErrEmailTaken) {
		s.writeError(w, http.StatusConflict, "Email already registered")
		return
	}
	if err != nil {
		s.log.Error("create user", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	s.logEvent(r, eventlog.CreateUser, u.UserID,
		fmt.Sprintf("User %s registered a new account", u.Email))

	token, err := s.sessions.Create(r.Context(), u.UserID)
	if err != nil {
		s.log.Error("create session", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(time.Duration(s.cfg.SessionTTLHours) * time.Hour),
	})
	s.writeJSON(w, http.StatusCreated, u)
}
