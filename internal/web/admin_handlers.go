package web

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"revue/internal/eventlog"
	"revue/internal/user"
)

// handleUsers lists accounts for the admin screen. Seeded demo accounts are
// filtered out by the store.
func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.requireType(w, r, user.TypeAdmin, user.TypeModerator) == nil {
		return
	}
	users, err := s.users.List(r.Context())
	if err != nil {
		s.log.Error("list users", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

// handleUserChange updates or deletes one account. Only admins may change
// roles or remove accounts.
func (s *Server) handleUserChange(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	admin := s.requireType(w, r, user.TypeAdmin)
	if admin == nil {
		return
	}
	userID, ok := pathID(r.URL.Path, "/admin/users/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	target, err := s.users.GetByID(r.Context(), userID)
	if errors.Is(err, user.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		s.log.Error("load user", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}

	intent := r.FormValue("intent")
	switch intent {
	case "change-type":
		newType := user.Type(r.FormValue("userType"))
		if !user.ValidType(newType) {
			s.writeError(w, http.StatusBadRequest, "Unknown user type")
			return
		}
		if err := s.users.ChangeType(r.Context(), userID, newType); err != nil {
			s.log.Error("change user type", zap.Error(err))
			s.writeError(w, http.StatusInternalServerError, "Internal error")
			return
		}
		s.logEvent(r, eventlog.UpdateUser, admin.UserID,
			fmt.Sprintf("User %s changed %s to %s", actorTag(admin), target.Email, newType))
	case "delete":
		if err := s.users.Delete(r.Context(), userID); err != nil {
			s.log.Error("delete user", zap.Error(err))
			s.writeError(w, http.StatusInternalServerError, "Internal error")
			return
		}
		s.logEvent(r, eventlog.DeleteUser, admin.UserID,
			fmt.Sprintf("User %s deleted account %s", actorTag(admin), target.Email))
	default:
		s.writeError(w, http.StatusBadRequest, "Invalid intent")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"responseTo": intent})
}

// handleLogs serves the audit trail with optional from/to bounds, free-text
// search terms and event type filters.
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.requireType(w, r, user.TypeAdmin, user.TypeModerator) == nil {
		return
	}

	var f eventlog.Filter
	if raw := r.URL.Query().Get("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "Malformed from bound")
			return
		}
		f.From = t
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "Malformed to bound")
			return
		}
		f.To = t
	}
	if raw := r.URL.Query().Get("search"); raw != "" {
		f.Search = strings.Fields(raw)
	}
	for _, raw := range r.URL.Query()["type"] {
		f.Types = append(f.Types, eventlog.Type(strings.ToUpper(raw)))
	}

	entries, err := s.events.Find(r.Context(), f)
	if err != nil {
		s.log.Error("search event logs", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"logs": entries})
}
