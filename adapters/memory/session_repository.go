package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/onewhat/server/domain"
	"github.com/onewhat/server/domain/entities"
	"github.com/onewhat/server/domain/repositories"
)

var _ repositories.SessionRepository = (*SessionRepository)(nil)

// SessionRepository is an in-memory SessionRepository used when no database is configured
type SessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]*entities.StreamingSession
}

// NewSessionRepository creates an empty in-memory session repository
func NewSessionRepository() *SessionRepository {
	return &SessionRepository{
		sessions: make(map[string]*entities.StreamingSession),
	}
}

// Create implements repositories.SessionRepository
func (m *SessionRepository) Create(ctx context.Context, session *entities.StreamingSession) error {
	if session == nil {
		return errors.New("session cannot be nil")
	}
	if err := session.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[session.ID]; exists {
		return fmt.Errorf("session %s already exists", session.ID)
	}

	// Store a copy so callers can keep mutating their own value
	sessionCopy := *session
	m.sessions[session.ID] = &sessionCopy
	return nil
}

// Update implements repositories.SessionRepository
func (m *SessionRepository) Update(ctx context.Context, session *entities.StreamingSession) error {
	if session == nil {
		return errors.New("session cannot be nil")
	}
	if session.ID == "" {
		return errors.New("session ID cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	existing, exists := m.sessions[session.ID]
	if !exists {
		return fmt.Errorf("session %s: %w", session.ID, domain.ErrSessionNotFound)
	}

	sessionCopy := *session
	sessionCopy.CreatedAt = existing.CreatedAt
	m.sessions[session.ID] = &sessionCopy
	return nil
}

// GetByID implements repositories.SessionRepository
func (m *SessionRepository) GetByID(ctx context.Context, id string) (*entities.StreamingSession, error) {
	if id == "" {
		return nil, errors.New("session ID cannot be empty")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[id]
	if !exists {
		return nil, fmt.Errorf("session %s: %w", id, domain.ErrSessionNotFound)
	}

	sessionCopy := *session
	return &sessionCopy, nil
}

// List returns the most recently created sessions first
func (m *SessionRepository) List(ctx context.Context, limit int) ([]*entities.StreamingSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*entities.StreamingSession, 0, len(m.sessions))
	for _, session := range m.sessions {
		sessionCopy := *session
		result = append(result, &sessionCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// ExpireStale implements repositories.SessionRepository
func (m *SessionRepository) ExpireStale(ctx context.Context, ttl time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	expired := 0
	for _, session := range m.sessions {
		if session.IsIdle(now, ttl) {
			session.Status = entities.SessionStatusExpired
			endedAt := now
			session.EndedAt = &endedAt
			expired++
		}
	}
	return expired, nil
}
