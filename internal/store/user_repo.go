package store

import (
	"database/sql"
	"fmt"
)

// UserRepository handles user database operations
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create adds a new user with an already-hashed password
func (r *UserRepository) Create(user *User) error {
	err := r.db.QueryRow(
		`INSERT INTO users (name, password_hash) VALUES ($1, $2) RETURNING id, created_at`,
		user.Name, user.PasswordHash,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateName, user.Name)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByName retrieves a user by name, nil when absent
func (r *UserRepository) GetByName(name string) (*User, error) {
	user := &User{}
	err := r.db.QueryRow(
		`SELECT id, name, password_hash, created_at FROM users WHERE name = $1`,
		name,
	).Scan(&user.ID, &user.Name, &user.PasswordHash, &user.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}
