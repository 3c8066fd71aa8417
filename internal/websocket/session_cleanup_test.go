package websocket

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/onewhat/server/adapters/memory"
	"github.com/onewhat/server/domain/entities"
)

func TestSessionCleanupService_RunOnce(t *testing.T) {
	repo := memory.NewSessionRepository()
	ctx := context.Background()

	idle := entities.NewStreamingSession("idle", "c", "en", "es", 16000)
	idle.LastActiveAt = time.Now().UTC().Add(-2 * time.Hour)
	busy := entities.NewStreamingSession("busy", "c", "en", "es", 16000)
	for _, s := range []*entities.StreamingSession{idle, busy} {
		if err := repo.Create(ctx, s); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	service := NewSessionCleanupService(repo, time.Hour, time.Minute, zaptest.NewLogger(t))
	if n := service.RunOnce(ctx); n != 1 {
		t.Fatalf("expected 1 expired session, got %d", n)
	}
	if n := service.RunOnce(ctx); n != 0 {
		t.Errorf("expected second run to be a no-op, got %d", n)
	}

	got, _ := repo.GetByID(ctx, "busy")
	if got.Status != entities.SessionStatusActive {
		t.Errorf("busy session should stay active, got %s", got.Status)
	}
}

func TestSessionCleanupService_Loop(t *testing.T) {
	repo := memory.NewSessionRepository()
	ctx := context.Background()

	idle := entities.NewStreamingSession("idle", "c", "en", "es", 16000)
	idle.LastActiveAt = time.Now().UTC().Add(-time.Minute)
	if err := repo.Create(ctx, idle); err != nil {
		t.Fatalf("Create: %v", err)
	}

	service := NewSessionCleanupService(repo, time.Second, 10*time.Millisecond, zaptest.NewLogger(t))
	service.Start()

	deadline := time.Now().Add(5 * time.Second)
	for {
		got, _ := repo.GetByID(ctx, "idle")
		if got.Status == entities.SessionStatusExpired {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("cleanup loop never expired the idle session")
		}
		time.Sleep(10 * time.Millisecond)
	}

	service.Stop()
	service.Stop()
}
