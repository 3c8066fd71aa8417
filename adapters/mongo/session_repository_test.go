package mongo

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap/zaptest"

	"github.com/onewhat/server/domain"
	"github.com/onewhat/server/domain/entities"
)

// Requires a running MongoDB instance (skipped if MONGODB_URI is not set)
func TestSessionRepository_Integration(t *testing.T) {
	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		t.Skip("Skipping MongoDB integration test - MONGODB_URI not set")
	}

	ctx := context.Background()
	client, err := NewClient(ctx, uri, "speech_translation_test", zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		_ = client.Database.Drop(ctx)
		_ = client.Close(ctx)
	}()

	repo := NewSessionRepository(client.Database)
	if err := repo.EnsureIndexes(ctx); err != nil {
		t.Fatalf("EnsureIndexes: %v", err)
	}

	t.Run("CreateAndGet", func(t *testing.T) {
		session := entities.NewStreamingSession(uuid.NewString(), "client-1", "en", "es", 16000)
		if err := repo.Create(ctx, session); err != nil {
			t.Fatalf("Create: %v", err)
		}

		got, err := repo.GetByID(ctx, session.ID)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if got.TargetLang != "es" || got.Status != entities.SessionStatusActive {
			t.Errorf("unexpected session: %+v", got)
		}
	})

	t.Run("UpdateCounters", func(t *testing.T) {
		session := entities.NewStreamingSession(uuid.NewString(), "client-1", "en", "fr", 16000)
		if err := repo.Create(ctx, session); err != nil {
			t.Fatalf("Create: %v", err)
		}
		session.RecordChunk(false)
		session.RecordChunk(true)
		session.End(entities.SessionStatusCompleted, nil)
		if err := repo.Update(ctx, session); err != nil {
			t.Fatalf("Update: %v", err)
		}

		got, err := repo.GetByID(ctx, session.ID)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if got.Chunks != 2 || got.FailedChunks != 1 || got.Status != entities.SessionStatusCompleted {
			t.Errorf("unexpected session after update: %+v", got)
		}
		if got.EndedAt == nil {
			t.Error("expected ended_at to be set")
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := repo.GetByID(ctx, uuid.NewString())
		if !errors.Is(err, domain.ErrSessionNotFound) {
			t.Errorf("expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("ExpireStale", func(t *testing.T) {
		stale := entities.NewStreamingSession(uuid.NewString(), "client-2", "", "de", 16000)
		stale.LastActiveAt = time.Now().UTC().Add(-time.Hour)
		if err := repo.Create(ctx, stale); err != nil {
			t.Fatalf("Create: %v", err)
		}

		n, err := repo.ExpireStale(ctx, 30*time.Minute)
		if err != nil {
			t.Fatalf("ExpireStale: %v", err)
		}
		if n < 1 {
			t.Errorf("expected at least one expired session, got %d", n)
		}

		got, err := repo.GetByID(ctx, stale.ID)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if got.Status != entities.SessionStatusExpired {
			t.Errorf("expected expired, got %s", got.Status)
		}
	})

	t.Run("List", func(t *testing.T) {
		sessions, err := repo.List(ctx, 2)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(sessions) != 2 {
			t.Errorf("expected 2 sessions, got %d", len(sessions))
		}
	})
}
