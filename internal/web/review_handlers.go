package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"revue/internal/catalog"
	"revue/internal/eventlog"
	"revue/internal/review"
	"revue/internal/user"
)

// handleReviewVotes dispatches POST /reviews/{id}/vote. The intent form
// value picks the action: helpful, unhelpful, or the clear- variants that
// withdraw a vote.
func (s *Server) handleReviewVotes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/reviews/")
	if !strings.HasSuffix(rest, "/vote") {
		http.NotFound(w, r)
		return
	}
	reviewID, err := strconv.ParseInt(strings.TrimSuffix(rest, "/vote"), 10, 64)
	if err != nil || reviewID <= 0 {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	u := s.requireUser(w, r)
	if u == nil {
		return
	}
	if _, err := s.reviews.GetByID(r.Context(), reviewID); err != nil {
		if errors.Is(err, review.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "Review not found")
			return
		}
		s.log.Error("load review", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}

	intent := r.FormValue("intent")
	switch intent {
	case "helpful":
		err = s.reviews.MarkHelpful(r.Context(), reviewID, u.UserID)
	case "unhelpful":
		err = s.reviews.MarkUnhelpful(r.Context(), reviewID, u.UserID)
	case "clear-helpful":
		err = s.reviews.UnmarkHelpful(r.Context(), reviewID, u.UserID)
	case "clear-unhelpful":
		err = s.reviews.UnmarkUnhelpful(r.Context(), reviewID, u.UserID)
	default:
		s.writeError(w, http.StatusBadRequest, "Invalid intent")
		return
	}
	if err != nil {
		s.log.Error("record review vote", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}

	helpful, err := s.reviews.HelpfulCount(r.Context(), reviewID)
	if err != nil {
		s.log.Error("count helpful votes", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	unhelpful, err := s.reviews.UnhelpfulCount(r.Context(), reviewID)
	if err != nil {
		s.log.Error("count unhelpful votes", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"responseTo": intent,
		"helpful":    helpful,
		"unhelpful":  unhelpful,
	})
}

// handleMyReviews lists the reviews the logged-in user has submitted.
func (s *Server) handleMyReviews(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	u := s.requireUser(w, r)
	if u == nil {
		return
	}
	reviews, err := s.reviews.ByUser(r.Context(), u.UserID)
	if err != nil {
		s.log.Error("list user reviews", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"reviews": reviews})
}

// handleModeratorQueue lists reviews awaiting moderation. The page is
// reserved for moderators; admins use the admin surface instead.
func (s *Server) handleModeratorQueue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.requireType(w, r, user.TypeModerator) == nil {
		return
	}
	reviews, err := s.reviews.ByStatus(r.Context(), review.StatusNew)
	if err != nil {
		s.log.Error("list moderation queue", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"reviews": reviews})
}

// handleModerateReview accepts or rejects one queued review.
func (s *Server) handleModerateReview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	u := s.requireType(w, r, user.TypeModerator)
	if u == nil {
		return
	}
	reviewID, ok := pathID(r.URL.Path, "/moderator/reviews/")
	if !ok {
		http.NotFound(w, r)
		return
	}

	intent := r.FormValue("intent")
	var err error
	switch intent {
	case "accept":
		err = s.reviews.Accept(r.Context(), reviewID)
	case "reject":
		err = s.reviews.Reject(r.Context(), reviewID)
	default:
		s.writeError(w, http.StatusBadRequest, "Invalid intent")
		return
	}
	if errors.Is(err, review.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "Review not found")
		return
	}
	if err != nil {
		s.log.Error("moderate review", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	s.logEvent(r, eventlog.UpdateReview, u.UserID,
		fmt.Sprintf("User %s set review %d to %sED", actorTag(u), reviewID, strings.ToUpper(intent)))
	s.writeJSON(w, http.StatusOK, map[string]string{"responseTo": intent})
}

// importReviewRequest is one pre-matched review posted by the import screen.
// The client has already fanned the scalar rating out over the product's
// features; the server stores the content verbatim under the session user.
type importReviewRequest struct {
	Review struct {
		ProductID int64         `json:"productId"`
		Status    review.Status `json:"status"`
	} `json:"review"`
	ReviewContent reviewContentPayload `json:"reviewContent"`
}

type reviewContentPayload struct {
	Grade         float64         `json:"grade"`
	Source        string          `json:"source,omitempty"`
	Category      review.Category `json:"category,omitempty"`
	Language      string          `json:"language,omitempty"`
	Description   string          `json:"description,omitempty"`
	Advantages    string          `json:"advantages,omitempty"`
	Disadvantages string          `json:"disadvantages,omitempty"`
	DoubleQuality bool            `json:"doubleQuality"`
	Verified      *bool           `json:"verified,omitempty"`
	RatingsList   []float64       `json:"ratingsList"`
}

// handleAdminReviews is the CSV import endpoint. The intent form value picks
// the action: checkProductAvailability resolves (name, countries) pairs
// against the catalog, importReviews persists the prepared reviews one by
// one. Any logged-in user may call it.
func (s *Server) handleAdminReviews(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	u := s.requireUser(w, r)
	if u == nil {
		return
	}

	intent := r.FormValue("intent")
	switch intent {
	case "checkProductAvailability":
		s.checkProductAvailability(w, r)
	case "importReviews":
		s.importReviews(w, r, u)
	default:
		s.writeError(w, http.StatusBadRequest, "Invalid intent")
	}
}

func (s *Server) checkProductAvailability(w http.ResponseWriter, r *http.Request) {
	var pairs []catalog.ExistenceQuery
	if err := json.Unmarshal([]byte(r.FormValue("products")), &pairs); err != nil {
		s.writeError(w, http.StatusBadRequest, "Malformed products payload")
		return
	}
	products, err := s.products.CheckExistence(r.Context(), pairs)
	if err != nil {
		s.log.Error("check product existence", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"responseTo": "checkProductAvailability",
		"products":   products,
	})
}

// importReviews persists the posted reviews sequentially. There is no
// cross-review transaction: a failure part way through leaves the earlier
// reviews committed and reports an error for the rest.
func (s *Server) importReviews(w http.ResponseWriter, r *http.Request, u *user.User) {
	var requests []importReviewRequest
	if err := json.Unmarshal([]byte(r.FormValue("reviews")), &requests); err != nil {
		s.writeError(w, http.StatusBadRequest, "Malformed reviews payload")
		return
	}

	reviewIDs := make([]int64, 0, len(requests))
	for i, req := range requests {
		source := req.ReviewContent.Source
		if source == "" {
			source = review.SourceOpinionCollector
		}
		id, err := s.reviews.AddFromCSV(r.Context(), review.CSVReview{
			ProductID: req.Review.ProductID,
			UserID:    u.UserID,
			Status:    req.Review.Status,
			Content: review.Content{
				Grade:         req.ReviewContent.Grade,
				Source:        source,
				Category:      req.ReviewContent.Category,
				Language:      req.ReviewContent.Language,
				Description:   req.ReviewContent.Description,
				Advantages:    req.ReviewContent.Advantages,
				Disadvantages: req.ReviewContent.Disadvantages,
				DoubleQuality: req.ReviewContent.DoubleQuality,
				Verified:      req.ReviewContent.Verified,
				FeatureGrades: req.ReviewContent.RatingsList,
			},
		})
		if err != nil {
			s.log.Error("import review",
				zap.Int("index", i),
				zap.Int64("productId", req.Review.ProductID),
				zap.Error(err))
			s.writeError(w, http.StatusInternalServerError, "Import failed part way through")
			return
		}
		reviewIDs = append(reviewIDs, id)
	}

	s.logEvent(r, eventlog.CreateReview, u.UserID,
		fmt.Sprintf("User %s imported %d reviews", actorTag(u), len(reviewIDs)))
	s.writeJSON(w, http.StatusOK, map[string]any{
		"responseTo": "importReviews",
		"reviewIds":  reviewIDs,
	})
}
