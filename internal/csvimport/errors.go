package csvimport

import "fmt"

// ErrorKind classifies why a file or row was rejected by the parser.
type ErrorKind string

const (
	// ErrNoHeader is file-level: parsing produced zero candidates, which
	// means the file had no recognizable header row (or nothing under it
	// survived validation). Reported once per file.
	ErrNoHeader ErrorKind = "NO_HEADER"
	// ErrDamagedRow marks a row that is positional rather than key/value.
	ErrDamagedRow ErrorKind = "DAMAGED_ROW"
	// ErrNoProductName marks a row with a missing or empty product name.
	ErrNoProductName ErrorKind = "NO_PRODUCT_NAME"
	// ErrNoCountry marks a row with a missing or empty origin field.
	ErrNoCountry ErrorKind = "NO_COUNTRY"
	// ErrNoRating marks a row with a missing, empty or non-numeric rating.
	ErrNoRating ErrorKind = "NO_RATING"
)

// RowError pairs an error kind with the raw row it rejected. The row is nil
// for the file-level NO_HEADER error.
type RowError struct {
	Kind ErrorKind
	Row  RawRow
}

func (e *RowError) Error() string {
	if e.Row == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Row)
}
