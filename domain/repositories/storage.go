package repositories

import (
	"context"
	"time"

	"github.com/onewhat/server/domain/entities"
)

// SessionRepository defines data access methods for streaming sessions
type SessionRepository interface {
	Create(ctx context.Context, session *entities.StreamingSession) error
	Update(ctx context.Context, session *entities.StreamingSession) error
	GetByID(ctx context.Context, id string) (*entities.StreamingSession, error)
	List(ctx context.Context, limit int) ([]*entities.StreamingSession, error)
	// ExpireStale marks active sessions idle for longer than ttl as expired and
	// returns how many were changed.
	ExpireStale(ctx context.Context, ttl time.Duration) (int, error)
}

// TranslationLogRepository persists one record per completed pipeline pass
type TranslationLogRepository interface {
	Record(ctx context.Context, log *entities.TranslationLog) error
}
