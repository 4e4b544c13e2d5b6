// Package eventlog records the audit trail of catalog, review and user
// mutations. Entries carry a short type code and a human-readable
// description, stored as a JSON content column.
package eventlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Type is the two-letter event code: C/U/D for create/update/delete crossed
// with P/R/U for product/review/user.
type Type string

const (
	CreateProduct Type = "CP"
	UpdateProduct Type = "UP"
	DeleteProduct Type = "DP"

	CreateReview Type = "CR"
	UpdateReview Type = "UR"
	DeleteReview Type = "DR"

	CreateUser Type = "CU"
	UpdateUser Type = "UU"
	DeleteUser Type = "DU"
)

// Entry is one audit record.
type Entry struct {
	EventLogID  int64     `json:"eventLogId"`
	UserID      int64     `json:"userId"`
	Date        time.Time `json:"eventLogDate"`
	Type        Type      `json:"type"`
	Description string    `json:"description"`
}

type content struct {
	Type        Type   `json:"type"`
	Description string `json:"description"`
}

// Store persists audit entries.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Add appends one entry. A zero date is filled with the current time.
func (s *Store) Add(ctx context.Context, e Entry) error {
	if e.Date.IsZero() {
		e.Date = time.Now().UTC()
	}
	body, err := json.Marshal(content{Type: e.Type, Description: e.Description})
	if err != nil {
		return fmt.Errorf("marshal event content: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO event_logs (user_id, event_log_date, content) VALUES (?, ?, ?)`,
		e.UserID, e.Date.UTC().Format(time.RFC3339Nano), string(body),
	)
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}
	return nil
}

// All lists every entry in insertion order.
func (s *Store) All(ctx context.Context) ([]Entry, error) {
	return s.query(ctx, Filter{})
}

// Filter narrows an audit search. Zero time bounds are open-ended; Search
// terms match the description as case-insensitive substrings (any term);
// Types keeps only the listed event codes (any of them).
type Filter struct {
	From   time.Time
	To     time.Time
	Search []string
	Types  []Type
}

// Find lists entries matching the filter, oldest first.
func (s *Store) Find(ctx context.Context, f Filter) ([]Entry, error) {
	return s.query(ctx, f)
}

func (s *Store) query(ctx context.Context, f Filter) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT event_log_id, user_id, event_log_date, content FROM event_logs ORDER BY event_log_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var date, body string
		if err := rows.Scan(&e.EventLogID, &e.UserID, &date, &body); err != nil {
			return nil, err
		}
		e.Date, err = time.Parse(time.RFC3339Nano, date)
		if err != nil {
			return nil, fmt.Errorf("decode event date: %w", err)
		}
		var c content
		if err := json.Unmarshal([]byte(body), &c); err != nil {
			return nil, fmt.Errorf("decode event content: %w", err)
		}
		e.Type = c.Type
		e.Description = c.Description
		if matches(e, f) {
			out = append(out, e)
		}
	}
	return out, rows.Err()
}

func matches(e Entry, f Filter) bool {
	if !f.From.IsZero() && e.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && e.Date.After(f.To) {
		return false
	}
	if len(f.Search) > 0 {
		found := false
		desc := strings.ToLower(e.Description)
		for _, term := range f.Search {
			if term == "" || strings.Contains(desc, strings.ToLower(term)) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(f.Types) > 0 {
		found := false
		for _, t := range f.Types {
			if e.Type == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
