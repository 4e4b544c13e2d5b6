// Package store opens the sqlite database and bootstraps the schema.
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS products (
	product_id INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT NOT NULL,
	category   TEXT NOT NULL,
	status     TEXT NOT NULL,
	content    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_products_name ON products(name);

CREATE TABLE IF NOT EXISTS reviews (
	review_id  INTEGER PRIMARY KEY AUTOINCREMENT,
	product_id INTEGER NOT NULL,
	user_id    INTEGER NOT NULL,
	status     TEXT NOT NULL,
	content    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reviews_product ON reviews(product_id, status);
CREATE INDEX IF NOT EXISTS idx_reviews_user ON reviews(user_id);

CREATE TABLE IF NOT EXISTS review_helpful_users (
	review_id INTEGER NOT NULL,
	user_id   INTEGER NOT NULL,
	PRIMARY KEY (review_id, user_id)
);

CREATE TABLE IF NOT EXISTS review_unhelpful_users (
	review_id INTEGER NOT NULL,
	user_id   INTEGER NOT NULL,
	PRIMARY KEY (review_id, user_id)
);

CREATE TABLE IF NOT EXISTS users (
	user_id       INTEGER PRIMARY KEY AUTOINCREMENT,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL DEFAULT '',
	user_type     TEXT NOT NULL,
	account_type  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS event_logs (
	event_log_id   INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id        INTEGER NOT NULL,
	event_log_date TEXT NOT NULL,
	content        TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
	token      TEXT PRIMARY KEY,
	user_id    INTEGER NOT NULL,
	expires_at TEXT NOT NULL
);
`

// Open opens (creating if needed) the sqlite database at path and applies
// the schema.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// modernc sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent handlers.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return db, nil
}
