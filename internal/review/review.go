// Package review holds the review model and its sqlite-backed store.
// Review bodies live in a JSON content column next to the relational
// columns, matching the catalog layout.
package review

// Status is the moderation state of a review.
type Status string

const (
	StatusNew      Status = "NEW"
	StatusAccepted Status = "ACCEPTED"
	StatusRejected Status = "REJECTED"
)

// Category is the reviewer sentiment bucket.
type Category string

const (
	CategoryPositive Category = "positive"
	CategoryNegative Category = "negative"
	CategoryNeutral  Category = "neutral"
)

// ValidCategory reports whether token is one of the recognized category
// values. Tokens are matched exactly, not case-folded.
func ValidCategory(token string) bool {
	switch Category(token) {
	case CategoryPositive, CategoryNegative, CategoryNeutral:
		return true
	}
	return false
}

// SourceOpinionCollector marks reviews created through the site's own
// submission form, as opposed to bulk CSV imports that carry their own
// source tag.
const SourceOpinionCollector = "opinioncollector"

// Content is the JSON body of a review.
type Content struct {
	Grade         float64   `json:"grade"`
	Source        string    `json:"source,omitempty"`
	Helpful       int       `json:"helpful"`
	Category      Category  `json:"category,omitempty"`
	Language      string    `json:"language,omitempty"`
	Verified      *bool     `json:"verified,omitempty"`
	Description   string    `json:"description,omitempty"`
	Advantages    string    `json:"advantages,omitempty"`
	Disadvantages string    `json:"disadvantages,omitempty"`
	DoubleQuality bool      `json:"double_quality"`
	FeatureGrades []float64 `json:"feature_grades"`
}

// Review is one stored review row.
type Review struct {
	ReviewID  int64
	ProductID int64
	UserID    int64
	Status    Status
	Content   Content
}

// CategoryForGrade derives the sentiment bucket from the overall grade:
// 7 and above is positive, 3 and below is negative, everything else
// (including a missing grade) is neutral.
func CategoryForGrade(grade float64) Category {
	if grade == 0 {
		return CategoryNeutral
	}
	if grade >= 7 {
		return CategoryPositive
	}
	if grade <= 3 {
		return CategoryNegative
	}
	return CategoryNeutral
}
