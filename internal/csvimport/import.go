package csvimport

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"revue/internal/review"
)

// ReviewCreator is the review-store boundary the executor commits through.
type ReviewCreator interface {
	AddFromCSV(ctx context.Context, r review.CSVReview) (int64, error)
}

// ImportResult reports what a commit run achieved.
type ImportResult struct {
	ImportedCount int     `json:"importedCount"`
	ReviewIDs     []int64 `json:"reviewIds"`
}

// Executor commits grouped candidates as stored reviews.
type Executor struct {
	Reviews ReviewCreator
	Log     *zap.Logger
}

// Run walks the groups in key order and commits every candidate with a
// resolved product as an ACCEPTED review owned by userID. The unmatched
// bucket is skipped silently.
//
// Each review is its own create; there is no cross-row transaction. A
// failure partway through leaves the earlier rows committed, and the
// partial result is returned alongside the error.
func (e *Executor) Run(ctx context.Context, g Grouping, userID int64) (ImportResult, error) {
	result := ImportResult{ReviewIDs: []int64{}}
	for _, key := range g.Keys {
		if key == UnmatchedKey {
			continue
		}
		for _, link := range g.Groups[key] {
			id, err := e.Reviews.AddFromCSV(ctx, buildReview(link, userID))
			if err != nil {
				return result, fmt.Errorf("import review for product %s: %w", key, err)
			}
			result.ReviewIDs = append(result.ReviewIDs, id)
			result.ImportedCount++
		}
	}
	if e.Log != nil {
		e.Log.Info("csv import committed",
			zap.Int("imported", result.ImportedCount),
			zap.Int("skippedUnmatched", g.UnmatchedCount()))
	}
	return result, nil
}

// buildReview turns a matched candidate into a persistable review. The
// candidate's single overall rating is fanned out across every product
// feature; per-feature ratings are not collected during CSV import.
func buildReview(link Link, userID int64) review.CSVReview {
	cand := link.Candidate
	features := link.Product.Content.FeaturesList
	grades := make([]float64, len(features))
	for i := range grades {
		grades[i] = cand.Rating
	}
	return review.CSVReview{
		ProductID: link.Product.ProductID,
		UserID:    userID,
		Status:    review.StatusAccepted,
		Content: review.Content{
			Grade:         cand.Rating,
			Source:        cand.Source,
			Category:      cand.Category,
			Language:      cand.Language,
			Verified:      cand.Verified,
			Description:   cand.Description,
			Advantages:    cand.Advantages,
			Disadvantages: cand.Disadvantages,
			DoubleQuality: cand.DoubleQuality,
			FeatureGrades: grades,
		},
	}
}
