// Package user holds accounts: email identity, bcrypt password hash, and
// the role that gates moderation and administration.
package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Type is the role of an account.
type Type string

const (
	TypeUser      Type = "USER"
	TypeModerator Type = "MODERATOR"
	TypeAdmin     Type = "ADMIN"
)

// ValidType reports whether t is a known role.
func ValidType(t Type) bool {
	switch t {
	case TypeUser, TypeModerator, TypeAdmin:
		return true
	}
	return false
}

// AccountType records how the account was created. Social accounts carry no
// usable password hash; only EMAIL accounts can log in with a password.
type AccountType string

const (
	AccountEmail    AccountType = "EMAIL"
	AccountGoogle   AccountType = "GOOGLE"
	AccountFacebook AccountType = "FACEBOOK"
)

// User is one stored account. PasswordHash never leaves the package.
type User struct {
	UserID      int64       `json:"userId"`
	Email       string      `json:"email"`
	UserType    Type        `json:"userType"`
	AccountType AccountType `json:"accountType"`

	passwordHash string
}

var (
	// ErrNotFound is returned when a user id or email does not exist.
	ErrNotFound = errors.New("user not found")
	// ErrEmailTaken is returned when creating a duplicate email account.
	ErrEmailTaken = errors.New("email already registered")
	// ErrBadCredentials is returned for a wrong email/password pair.
	ErrBadCredentials = errors.New("invalid email or password")
)

// Store persists accounts.
type Store struct {
	db         *sql.DB
	bcryptCost int
	// testSuffix excludes seeded demo accounts from listings.
	testSuffix string
}

func NewStore(db *sql.DB, bcryptCost int, testSuffix string) *Store {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Store{db: db, bcryptCost: bcryptCost, testSuffix: testSuffix}
}

// Create registers an account, hashing the password. Social accounts may
// pass an empty password; they can never authenticate with one.
func (s *Store) Create(ctx context.Context, email, password string, userType Type, accountType AccountType) (*User, error) {
	if existing, err := s.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, ErrEmailTaken
	} else if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	hash := ""
	if password != "" {
		h, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		hash = string(h)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (email, password_hash, user_type, account_type) VALUES (?, ?, ?, ?)`,
		email, hash, string(userType), string(accountType),
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &User{
		UserID:       id,
		Email:        email,
		UserType:     userType,
		AccountType:  accountType,
		passwordHash: hash,
	}, nil
}

// Authenticate verifies an email/password pair against the EMAIL account
// with that address.
func (s *Store) Authenticate(ctx context.Context, email, password string) (*User, error) {
	u, err := s.GetByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrBadCredentials
	}
	if err != nil {
		return nil, err
	}
	if u.AccountType != AccountEmail || u.passwordHash == "" {
		return nil, ErrBadCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(u.passwordHash), []byte(password)) != nil {
		return nil, ErrBadCredentials
	}
	return u, nil
}

// GetByID loads one account.
func (s *Store) GetByID(ctx context.Context, userID int64) (*User, error) {
	return s.get(ctx,
		`SELECT user_id, email, password_hash, user_type, account_type FROM users WHERE user_id = ?`,
		userID)
}

// GetByEmail loads one account by address.
func (s *Store) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.get(ctx,
		`SELECT user_id, email, password_hash, user_type, account_type FROM users WHERE email = ?`,
		email)
}

func (s *Store) get(ctx context.Context, query string, arg any) (*User, error) {
	var u User
	var userType, accountType string
	err := s.db.QueryRowContext(ctx, query, arg).
		Scan(&u.UserID, &u.Email, &u.passwordHash, &userType, &accountType)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.UserType = Type(userType)
	u.AccountType = AccountType(accountType)
	return &u, nil
}

// List returns all accounts except the seeded demo ones, in id order.
func (s *Store) List(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, email, password_hash, user_type, account_type FROM users ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		var u User
		var userType, accountType string
		if err := rows.Scan(&u.UserID, &u.Email, &u.passwordHash, &userType, &accountType); err != nil {
			return nil, err
		}
		if s.testSuffix != "" && strings.HasSuffix(u.Email, s.testSuffix) {
			continue
		}
		u.UserType = Type(userType)
		u.AccountType = AccountType(accountType)
		out = append(out, u)
	}
	return out, rows.Err()
}

// ChangeType updates an account's role.
func (s *Store) ChangeType(ctx context.Context, userID int64, userType Type) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET user_type = ? WHERE user_id = ?`,
		string(userType), userID)
	if err != nil {
		return fmt.Errorf("update user type: %w", err)
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

// Delete removes an account.
func (s *Store) Delete(ctx context.Context, userID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
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
