package csvimport

import (
	"fmt"
	"sort"
	"strings"

	"revue/internal/country"
	"revue/internal/review"
)

// RawRow is a row as it came off the wire, before validation. A row is
// either keyed by the header or positional when its shape does not line up
// with the header. Handlers type-switch on the two variants.
type RawRow interface {
	fmt.Stringer
	isRawRow()
}

// KeyedRow maps header column names to cell values.
type KeyedRow map[string]string

func (KeyedRow) isRawRow() {}

func (r KeyedRow) String() string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%q", k, r[k]))
	}
	return "{" + strings.Join(parts, " ") + "}"
}

// PositionalRow is a row whose cells could not be keyed by the header.
type PositionalRow []string

func (PositionalRow) isRawRow() {}

func (r PositionalRow) String() string {
	quoted := make([]string, len(r))
	for i, v := range r {
		quoted[i] = fmt.Sprintf("%q", v)
	}
	return "[" + strings.Join(quoted, " ") + "]"
}

// Candidate is one review successfully parsed from an uploaded file. It is
// immutable once built and never persisted itself; the import executor
// turns it into a stored review after the operator confirms.
type Candidate struct {
	ProductName     string
	OriginCountries []country.Code
	Rating          float64
	Description     string
	Advantages      string
	Disadvantages   string
	Category        review.Category
	Language        string
	DoubleQuality   bool
	Verified        *bool
	Source          string
}
