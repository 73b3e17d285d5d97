package repository

import (
	"context"
	"sync"
	"time"

	"github.com/atinyakov/authkeeper/internal/models"
)

// MemoryAuthRepository keeps users in process memory. It is used when no
// database DSN is configured and in tests.
type MemoryAuthRepository struct {
	mu         sync.RWMutex
	byID       map[string]*models.User
	byUsername map[string]string
}

// NewMemoryAuthRepository returns an empty in-memory repository.
func NewMemoryAuthRepository() *MemoryAuthRepository {
	return &MemoryAuthRepository{
		byID:       make(map[string]*models.User),
		byUsername: make(map[string]string),
	}
}

// FindByUsername returns a copy of the user registered under username, or ErrNotFound.
func (m *MemoryAuthRepository) FindByUsername(_ context.Context, username string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byUsername[username]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(m.byID[id]), nil
}

// FindByID returns a copy of the user with the given id, or ErrNotFound.
func (m *MemoryAuthRepository) FindByID(_ context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(u), nil
}

// Create stores a copy of u, or returns ErrConflict if the username is taken.
func (m *MemoryAuthRepository) Create(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byUsername[u.Username]; ok {
		return ErrConflict
	}
	m.byID[u.ID] = clone(u)
	m.byUsername[u.Username] = u.ID
	return nil
}

// Save replaces the stored record with a copy of u.
func (m *MemoryAuthRepository) Save(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[u.ID]; !ok {
		return ErrNotFound
	}
	u.UpdatedAt = time.Now().UTC()
	m.byID[u.ID] = clone(u)
	return nil
}

func clone(u *models.User) *models.User {
	c := *u
	if u.MFASecret != nil {
		secret := *u.MFASecret
		c.MFASecret = &secret
	}
	return &c
}
