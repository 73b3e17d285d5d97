package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/atinyakov/authkeeper/internal/models"
)

const (
	selectByUsername = `SELECT id, username, password_hash, mfa_secret, mfa_enabled, created_at, updated_at FROM users WHERE username = $1`
	selectByID       = `SELECT id, username, password_hash, mfa_secret, mfa_enabled, created_at, updated_at FROM users WHERE id = $1`
	insertUser       = `INSERT INTO users (id, username, password_hash, mfa_secret, mfa_enabled, created_at, updated_at)`
	updateUser       = `UPDATE users`
)

var userCols = []string{"id", "username", "password_hash", "mfa_secret", "mfa_enabled", "created_at", "updated_at"}

func setupAuthMock(t *testing.T) (*PostgresAuthRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	repo := NewPostgresAuthRepository(db)
	cleanup := func() { db.Close() }
	return repo, mock, cleanup
}

func TestFindByUsername_Found(t *testing.T) {
	repo, mock, cleanup := setupAuthMock(t)
	defer cleanup()

	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta(selectByUsername)).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow("id-1", "alice", "hash", "JBSWY3DPEHPK3PXP", true, now, now))

	u, err := repo.FindByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.ID != "id-1" || u.Username != "alice" || u.PasswordHash != "hash" {
		t.Errorf("unexpected user: %+v", u)
	}
	if u.MFASecret == nil || *u.MFASecret != "JBSWY3DPEHPK3PXP" {
		t.Errorf("MFASecret = %v; want JBSWY3DPEHPK3PXP", u.MFASecret)
	}
	if !u.MFAEnabled {
		t.Error("expected MFAEnabled = true")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestFindByUsername_NullSecret(t *testing.T) {
	repo, mock, cleanup := setupAuthMock(t)
	defer cleanup()

	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta(selectByUsername)).
		WithArgs("bob").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow("id-2", "bob", "hash", nil, false, now, now))

	u, err := repo.FindByUsername(context.Background(), "bob")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.MFASecret != nil {
		t.Errorf("MFASecret = %q; want nil", *u.MFASecret)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestFindByUsername_NotFound(t *testing.T) {
	repo, mock, cleanup := setupAuthMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(selectByUsername)).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows(userCols))

	_, err := repo.FindByUsername(context.Background(), "ghost")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestFindByID_Error(t *testing.T) {
	repo, mock, cleanup := setupAuthMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(selectByID)).
		WithArgs("id-3").
		WillReturnError(errors.New("query failed"))

	_, err := repo.FindByID(context.Background(), "id-3")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("expected query error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestCreate_Success(t *testing.T) {
	repo, mock, cleanup := setupAuthMock(t)
	defer cleanup()

	u := &models.User{ID: "id-4", Username: "carol", PasswordHash: "hash"}
	mock.ExpectExec(regexp.QuoteMeta(insertUser)).
		WithArgs("id-4", "carol", "hash", nil, false, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), u); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestCreate_Conflict(t *testing.T) {
	tests := []struct {
		name  string
		setup func(mock sqlmock.Sqlmock)
	}{
		{
			name: "on conflict do nothing",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta(insertUser)).
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
		},
		{
			name: "unique violation",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta(insertUser)).
					WillReturnError(&pq.Error{Code: "23505"})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, cleanup := setupAuthMock(t)
			defer cleanup()
			tt.setup(mock)

			err := repo.Create(context.Background(), &models.User{ID: "id-5", Username: "dup", PasswordHash: "h"})
			if !errors.Is(err, ErrConflict) {
				t.Errorf("expected ErrConflict, got %v", err)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unfulfilled expectations: %v", err)
			}
		})
	}
}

func TestCreate_Error(t *testing.T) {
	repo, mock, cleanup := setupAuthMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(insertUser)).
		WillReturnError(errors.New("insert failed"))

	err := repo.Create(context.Background(), &models.User{ID: "id-6", Username: "erin", PasswordHash: "h"})
	if err == nil || errors.Is(err, ErrConflict) {
		t.Errorf("expected insert error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestSave_Success(t *testing.T) {
	repo, mock, cleanup := setupAuthMock(t)
	defer cleanup()

	secret := "JBSWY3DPEHPK3PXP"
	u := &models.User{ID: "id-7", Username: "frank", PasswordHash: "hash", MFASecret: &secret, MFAEnabled: true}
	mock.ExpectExec(regexp.QuoteMeta(updateUser)).
		WithArgs("hash", secret, true, sqlmock.AnyArg(), "id-7").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Save(context.Background(), u); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.UpdatedAt.IsZero() {
		t.Error("expected UpdatedAt to be stamped")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestSave_ClearsSecret(t *testing.T) {
	repo, mock, cleanup := setupAuthMock(t)
	defer cleanup()

	u := &models.User{ID: "id-8", Username: "gina", PasswordHash: "hash"}
	mock.ExpectExec(regexp.QuoteMeta(updateUser)).
		WithArgs("hash", nil, false, sqlmock.AnyArg(), "id-8").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Save(context.Background(), u); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestSave_NotFound(t *testing.T) {
	repo, mock, cleanup := setupAuthMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(updateUser)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Save(context.Background(), &models.User{ID: "missing"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
