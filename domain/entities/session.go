package entities

import (
	"errors"
	"time"
)

// SessionStatus represents the lifecycle state of a streaming session
type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusFailed    SessionStatus = "failed"
	SessionStatusExpired   SessionStatus = "expired"
)

// StreamingSession is the persisted record of one streaming translation session.
// Languages and sample rate are fixed for the session's lifetime.
type StreamingSession struct {
	ID           string        `json:"id" bson:"_id"`
	ClientID     string        `json:"client_id" bson:"client_id"`
	SourceLang   string        `json:"source_lang" bson:"source_lang"`
	TargetLang   string        `json:"target_lang" bson:"target_lang"`
	SampleRate   int           `json:"sample_rate" bson:"sample_rate"`
	Status       SessionStatus `json:"status" bson:"status"`
	Chunks       int           `json:"chunks" bson:"chunks"`
	FailedChunks int           `json:"failed_chunks" bson:"failed_chunks"`
	Error        string        `json:"error,omitempty" bson:"error,omitempty"`
	CreatedAt    time.Time     `json:"created_at" bson:"created_at"`
	LastActiveAt time.Time     `json:"last_active_at" bson:"last_active_at"`
	EndedAt      *time.Time    `json:"ended_at,omitempty" bson:"ended_at,omitempty"`
}

// NewStreamingSession creates an active session record
func NewStreamingSession(id, clientID, sourceLang, targetLang string, sampleRate int) *StreamingSession {
	now := time.Now().UTC()
	return &StreamingSession{
		ID:           id,
		ClientID:     clientID,
		SourceLang:   sourceLang,
		TargetLang:   targetLang,
		SampleRate:   sampleRate,
		Status:       SessionStatusActive,
		CreatedAt:    now,
		LastActiveAt: now,
	}
}

// RecordChunk counts one processed chunk and refreshes the activity timestamp
func (s *StreamingSession) RecordChunk(failed bool) {
	s.Chunks++
	if failed {
		s.FailedChunks++
	}
	s.LastActiveAt = time.Now().UTC()
}

// End closes the session with a terminal status
func (s *StreamingSession) End(status SessionStatus, cause error) {
	now := time.Now().UTC()
	s.Status = status
	s.LastActiveAt = now
	s.EndedAt = &now
	if cause != nil {
		s.Error = cause.Error()
	}
}

// IsActive reports whether the session has not reached a terminal status
func (s *StreamingSession) IsActive() bool {
	return s.Status == SessionStatusActive
}

// IsIdle reports whether an active session has seen no activity within ttl
func (s *StreamingSession) IsIdle(now time.Time, ttl time.Duration) bool {
	return s.IsActive() && now.Sub(s.LastActiveAt) > ttl
}

// Validate checks required fields
func (s *StreamingSession) Validate() error {
	if s.ID == "" {
		return errors.New("session ID is required")
	}
	if s.SampleRate <= 0 {
		return errors.New("sample rate must be positive")
	}
	if s.TargetLang == "" {
		return errors.New("target language is required")
	}
	return nil
}
