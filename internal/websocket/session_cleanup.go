package websocket

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/onewhat/server/domain/repositories"
)

// SessionCleanupService periodically marks idle streaming sessions as expired
type SessionCleanupService struct {
	sessionRepo repositories.SessionRepository
	ttl         time.Duration
	interval    time.Duration
	logger      *zap.Logger
	stopChan    chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

// NewSessionCleanupService creates a new session cleanup service
func NewSessionCleanupService(sessionRepo repositories.SessionRepository, ttl, interval time.Duration, logger *zap.Logger) *SessionCleanupService {
	return &SessionCleanupService{
		sessionRepo: sessionRepo,
		ttl:         ttl,
		interval:    interval,
		logger:      logger,
		stopChan:    make(chan struct{}),
	}
}

// Start begins the background cleanup process
func (s *SessionCleanupService) Start() {
	s.wg.Add(1)
	go s.cleanupLoop()
	s.logger.Info("Session cleanup service started",
		zap.Duration("ttl", s.ttl),
		zap.Duration("interval", s.interval))
}

// Stop gracefully stops the cleanup service
func (s *SessionCleanupService) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
		s.logger.Info("Session cleanup service stopped")
	})
}

func (s *SessionCleanupService) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.RunOnce(context.Background())
		}
	}
}

// RunOnce expires idle sessions and returns how many were changed
func (s *SessionCleanupService) RunOnce(ctx context.Context) int {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	expired, err := s.sessionRepo.ExpireStale(ctx, s.ttl)
	if err != nil {
		s.logger.Error("Failed to expire sessions", zap.Error(err))
		return 0
	}
	if expired > 0 {
		s.logger.Info("Expired idle sessions", zap.Int("count", expired))
	}
	return expired
}
