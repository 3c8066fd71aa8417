package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/onewhat/server/domain"
	"github.com/onewhat/server/domain/entities"
	"github.com/onewhat/server/domain/repositories"
)

const sessionCollection = "streaming_sessions"

var _ repositories.SessionRepository = (*SessionRepository)(nil)

type SessionRepository struct {
	collection *mongo.Collection
}

// NewSessionRepository creates a new MongoDB session repository
func NewSessionRepository(db *mongo.Database) *SessionRepository {
	return &SessionRepository{
		collection: db.Collection(sessionCollection),
	}
}

// EnsureIndexes creates the indexes used by List and ExpireStale
func (r *SessionRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "last_active_at", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create session indexes: %w", err)
	}
	return nil
}

// Create implements repositories.SessionRepository
func (r *SessionRepository) Create(ctx context.Context, session *entities.StreamingSession) error {
	if session == nil {
		return errors.New("session cannot be nil")
	}
	if err := session.Validate(); err != nil {
		return err
	}

	if _, err := r.collection.InsertOne(ctx, session); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// Update implements repositories.SessionRepository
func (r *SessionRepository) Update(ctx context.Context, session *entities.StreamingSession) error {
	if session == nil {
		return errors.New("session cannot be nil")
	}
	if session.ID == "" {
		return errors.New("session ID cannot be empty")
	}

	set := bson.M{
		"status":         session.Status,
		"chunks":         session.Chunks,
		"failed_chunks":  session.FailedChunks,
		"last_active_at": session.LastActiveAt,
	}
	if session.Error != "" {
		set["error"] = session.Error
	}
	if session.EndedAt != nil {
		set["ended_at"] = *session.EndedAt
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": session.ID}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("session %s: %w", session.ID, domain.ErrSessionNotFound)
	}
	return nil
}

// GetByID implements repositories.SessionRepository
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*entities.StreamingSession, error) {
	if id == "" {
		return nil, errors.New("session ID cannot be empty")
	}

	var session entities.StreamingSession
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("session %s: %w", id, domain.ErrSessionNotFound)
		}
		return nil, fmt.Errorf("failed to get session %s: %w", id, err)
	}
	return &session, nil
}

// List returns the most recently created sessions first
func (r *SessionRepository) List(ctx context.Context, limit int) ([]*entities.StreamingSession, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer cursor.Close(ctx)

	sessions := []*entities.StreamingSession{}
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("failed to decode sessions: %w", err)
	}
	return sessions, nil
}

// ExpireStale implements repositories.SessionRepository
func (r *SessionRepository) ExpireStale(ctx context.Context, ttl time.Duration) (int, error) {
	now := time.Now().UTC()
	filter := bson.M{
		"status":         entities.SessionStatusActive,
		"last_active_at": bson.M{"$lt": now.Add(-ttl)},
	}
	update := bson.M{"$set": bson.M{
		"status":   entities.SessionStatusExpired,
		"ended_at": now,
	}}

	result, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to expire sessions: %w", err)
	}
	return int(result.ModifiedCount), nil
}
