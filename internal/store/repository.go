package store

import (
	"context"
	"errors"
	"sync"

	"github.com/AnshRaj112/civicquest-backend/internal/models"
)

// ErrNotFound is returned by a Repository when no profile exists for the ID.
var ErrNotFound = errors.New("profile not found")

// ErrInvalid wraps input a store operation refused to apply.
var ErrInvalid = errors.New("invalid input")

// Repository persists whole profile documents.
type Repository interface {
	Get(ctx context.Context, userID string) (*models.UserProfile, error)
	Save(ctx context.Context, p *models.UserProfile) error
	Delete(ctx context.Context, userID string) error
}

// MemoryRepository keeps profiles in process. Used in tests and when no
// MongoDB URI is configured.
type MemoryRepository struct {
	mu       sync.RWMutex
	profiles map[string]*models.UserProfile
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{profiles: make(map[string]*models.UserProfile)}
}

func (m *MemoryRepository) Get(_ context.Context, userID string) (*models.UserProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return p.Clone(), nil
}

func (m *MemoryRepository) Save(_ context.Context, p *models.UserProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.ID] = p.Clone()
	return nil
}

func (m *MemoryRepository) Delete(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.profiles, userID)
	return nil
}
