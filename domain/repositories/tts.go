package repositories

import (
	"context"

	"github.com/onewhat/server/domain/entities"
)

// TextToSpeech abstracts speech synthesis providers
type TextToSpeech interface {
	// Synthesize renders text as mono float32 audio. referenceVoice may be nil.
	Synthesize(ctx context.Context, text, language string, referenceVoice []float32) (entities.SynthesisResult, error)
}
