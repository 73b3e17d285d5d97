// Package repository provides persistence implementations for authentication services.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/atinyakov/authkeeper/internal/models"
)

var (
	// ErrNotFound is returned when no user matches the lookup key.
	ErrNotFound = errors.New("user not found")
	// ErrConflict is returned when a user with the same username already exists.
	ErrConflict = errors.New("username already exists")
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = "23505"

const userColumns = `id, username, password_hash, mfa_secret, mfa_enabled, created_at, updated_at`

// PostgresAuthRepository implements user persistence using a PostgreSQL database.
type PostgresAuthRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresAuthRepository creates a new PostgresAuthRepository with the given database connection.
// db must be a valid *sql.DB connected to a PostgreSQL instance.
func NewPostgresAuthRepository(db *sql.DB) *PostgresAuthRepository {
	return &PostgresAuthRepository{DB: db}
}

// FindByUsername returns the user registered under username, or ErrNotFound.
func (s *PostgresAuthRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1`,
		username,
	)
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("find user by username: %w", err)
	}
	return u, nil
}

// FindByID returns the user with the given id, or ErrNotFound.
func (s *PostgresAuthRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`,
		id,
	)
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return u, nil
}

// Create inserts a new user. The ON CONFLICT clause turns a duplicate
// username into zero affected rows, which is reported as ErrConflict.
func (s *PostgresAuthRepository) Create(ctx context.Context, u *models.User) error {
	res, err := s.DB.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (username) DO NOTHING`,
		u.ID, u.Username, u.PasswordHash, u.MFASecret, u.MFAEnabled, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// Save writes the mutable fields of u in a single UPDATE, so the
// mfa_secret/mfa_enabled pair is never observed half-written.
func (s *PostgresAuthRepository) Save(ctx context.Context, u *models.User) error {
	u.UpdatedAt = time.Now().UTC()
	res, err := s.DB.ExecContext(ctx,
		`UPDATE users
		    SET password_hash = $1, mfa_secret = $2, mfa_enabled = $3, updated_at = $4
		  WHERE id = $5`,
		u.PasswordHash, u.MFASecret, u.MFAEnabled, u.UpdatedAt, u.ID,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanUser(row *sql.Row) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.PasswordHash,
		&u.MFASecret,
		&u.MFAEnabled,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}
