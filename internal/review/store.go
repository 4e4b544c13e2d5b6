package review

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrNotFound is returned when a review id does not exist.
var ErrNotFound = errors.New("review not found")

// Store persists reviews and helpful/unhelpful votes.
type Store struct {
	db  *sql.DB
	log *zap.Logger
}

func NewStore(db *sql.DB, log *zap.Logger) *Store {
	return &Store{db: db, log: log}
}

// AddParams describes a review submitted through the site form. The store
// fills in the derived fields: status NEW, sentiment category from the
// grade, helpful counter zeroed and the opinioncollector source tag.
type AddParams struct {
	ProductID     int64
	UserID        int64
	Grade         float64
	Language      string
	Description   string
	Advantages    string
	Disadvantages string
	DoubleQuality bool
	FeatureGrades []float64
}

// Add creates a review in the NEW state awaiting moderation.
func (s *Store) Add(ctx context.Context, p AddParams) (int64, error) {
	content := Content{
		Grade:         p.Grade,
		Source:        SourceOpinionCollector,
		Helpful:       0,
		Category:      CategoryForGrade(p.Grade),
		Language:      p.Language,
		Description:   p.Description,
		Advantages:    p.Advantages,
		Disadvantages: p.Disadvantages,
		DoubleQuality: p.DoubleQuality,
		FeatureGrades: p.FeatureGrades,
	}
	return s.insert(ctx, p.ProductID, p.UserID, StatusNew, content)
}

// CSVReview is a fully-formed review produced by the bulk import executor.
// Content is stored verbatim and the caller chooses the status.
type CSVReview struct {
	ProductID int64
	UserID    int64
	Status    Status
	Content   Content
}

// AddFromCSV persists an imported review without touching its content.
func (s *Store) AddFromCSV(ctx context.Context, r CSVReview) (int64, error) {
	return s.insert(ctx, r.ProductID, r.UserID, r.Status, r.Content)
}

func (s *Store) insert(ctx context.Context, productID, userID int64, status Status, content Content) (int64, error) {
	body, err := json.Marshal(content)
	if err != nil {
		return 0, fmt.Errorf("marshal review content: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO reviews (product_id, user_id, status, content) VALUES (?, ?, ?, ?)`,
		productID, userID, string(status), string(body),
	)
	if err != nil {
		return 0, fmt.Errorf("insert review: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	s.log.Debug("review stored",
		zap.Int64("reviewId", id),
		zap.Int64("productId", productID),
		zap.String("status", string(status)))
	return id, nil
}

// GetByID loads a single review.
func (s *Store) GetByID(ctx context.Context, reviewID int64) (*Review, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT review_id, product_id, user_id, status, content FROM reviews WHERE review_id = ?`,
		reviewID,
	)
	r, err := scanReview(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// AcceptedByProduct lists the accepted reviews shown on a product page.
func (s *Store) AcceptedByProduct(ctx context.Context, productID int64) ([]Review, error) {
	return s.list(ctx,
		`SELECT review_id, product_id, user_id, status, content FROM reviews
		 WHERE product_id = ? AND status = ? ORDER BY review_id`,
		productID, string(StatusAccepted))
}

// ByUser lists all reviews a user has submitted, regardless of status.
func (s *Store) ByUser(ctx context.Context, userID int64) ([]Review, error) {
	return s.list(ctx,
		`SELECT review_id, product_id, user_id, status, content FROM reviews
		 WHERE user_id = ? ORDER BY review_id`,
		userID)
}

// ByUserAndProduct lists a user's reviews of one product.
func (s *Store) ByUserAndProduct(ctx context.Context, userID, productID int64) ([]Review, error) {
	return s.list(ctx,
		`SELECT review_id, product_id, user_id, status, content FROM reviews
		 WHERE user_id = ? AND product_id = ? ORDER BY review_id`,
		userID, productID)
}

// ByStatus lists reviews in a given moderation state, oldest first. The
// moderator queue is ByStatus(StatusNew).
func (s *Store) ByStatus(ctx context.Context, status Status) ([]Review, error) {
	return s.list(ctx,
		`SELECT review_id, product_id, user_id, status, content FROM reviews
		 WHERE status = ? ORDER BY review_id`,
		string(status))
}

// SetStatus moves a review to the given moderation state.
func (s *Store) SetStatus(ctx context.Context, reviewID int64, status Status) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE reviews SET status = ? WHERE review_id = ?`,
		string(status), reviewID,
	)
	if err != nil {
		return fmt.Errorf("update review status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Accept marks the review as accepted.
func (s *Store) Accept(ctx context.Context, reviewID int64) error {
	return s.SetStatus(ctx, reviewID, StatusAccepted)
}

// Reject marks the review as rejected.
func (s *Store) Reject(ctx context.Context, reviewID int64) error {
	return s.SetStatus(ctx, reviewID, StatusRejected)
}

// ResetToNew puts the review back into the moderation queue.
func (s *Store) ResetToNew(ctx context.Context, reviewID int64) error {
	return s.SetStatus(ctx, reviewID, StatusNew)
}

// MarkHelpful records that a user found the review helpful. Re-marking is
// a no-op.
func (s *Store) MarkHelpful(ctx context.Context, reviewID, userID int64) error {
	return s.mark(ctx, "review_helpful_users", reviewID, userID)
}

// UnmarkHelpful withdraws a helpful vote.
func (s *Store) UnmarkHelpful(ctx context.Context, reviewID, userID int64) error {
	return s.unmark(ctx, "review_helpful_users", reviewID, userID)
}

// MarkUnhelpful records that a user found the review unhelpful.
func (s *Store) MarkUnhelpful(ctx context.Context, reviewID, userID int64) error {
	return s.mark(ctx, "review_unhelpful_users", reviewID, userID)
}

// UnmarkUnhelpful withdraws an unhelpful vote.
func (s *Store) UnmarkUnhelpful(ctx context.Context, reviewID, userID int64) error {
	return s.unmark(ctx, "review_unhelpful_users", reviewID, userID)
}

func (s *Store) mark(ctx context.Context, table string, reviewID, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT OR IGNORE INTO %s (review_id, user_id) VALUES (?, ?)`, table),
		reviewID, userID,
	)
	return err
}

func (s *Store) unmark(ctx context.Context, table string, reviewID, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE review_id = ? AND user_id = ?`, table),
		reviewID, userID,
	)
	return err
}

// HelpfulCount returns how many users marked the review helpful.
func (s *Store) HelpfulCount(ctx context.Context, reviewID int64) (int, error) {
	return s.voteCount(ctx, "review_helpful_users", reviewID)
}

// UnhelpfulCount returns how many users marked the review unhelpful.
func (s *Store) UnhelpfulCount(ctx context.Context, reviewID int64) (int, error) {
	return s.voteCount(ctx, "review_unhelpful_users", reviewID)
}

func (s *Store) voteCount(ctx context.Context, table string, reviewID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE review_id = ?`, table),
		reviewID,
	).Scan(&n)
	return n, err
}

// HasUserMarkedHelpful reports whether the user already voted helpful.
func (s *Store) HasUserMarkedHelpful(ctx context.Context, reviewID, userID int64) (bool, error) {
	return s.hasVote(ctx, "review_helpful_users", reviewID, userID)
}

// HasUserMarkedUnhelpful reports whether the user already voted unhelpful.
func (s *Store) HasUserMarkedUnhelpful(ctx context.Context, reviewID, userID int64) (bool, error) {
	return s.hasVote(ctx, "review_unhelpful_users", reviewID, userID)
}

func (s *Store) hasVote(ctx context.Context, table string, reviewID, userID int64) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE review_id = ? AND user_id = ?`, table),
		reviewID, userID,
	).Scan(&n)
	return n > 0, err
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]Review, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Review
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReview(row rowScanner) (*Review, error) {
	var r Review
	var status, body string
	if err := row.Scan(&r.ReviewID, &r.ProductID, &r.UserID, &status, &body); err != nil {
		return nil, err
	}
	r.Status = Status(status)
	if err := json.Unmarshal([]byte(body), &r.Content); err != nil {
		return nil, fmt.Errorf("decode review content: %w", err)
	}
	return &r, nil
}
