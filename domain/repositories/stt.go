package repositories

import (
	"context"

	"github.com/onewhat/server/domain/entities"
)

// SpeechToText abstracts speech recognition services
type SpeechToText interface {
	// Transcribe converts mono float32 samples to text. An empty language asks the
	// engine to detect it.
	Transcribe(ctx context.Context, audio []float32, sampleRate int, language string) (entities.TranscriptionResult, error)
}
