package tts

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/onewhat/server/domain/entities"
)

// StubConfig configures the stub synthesizer behavior.
type StubConfig struct {
	// ProcessingDelay simulates synthesis time per call.
	ProcessingDelay time.Duration
	// SampleRate of the generated audio.
	SampleRate int
	// SamplesPerChar controls output length.
	SamplesPerChar int
	// SupportedLanguages, when non-empty, rejects any other language.
	SupportedLanguages map[string]bool
	// Err, when set, is returned by every call.
	Err error
}

// DefaultStubConfig returns sensible defaults for local runs and tests.
func DefaultStubConfig() StubConfig {
	return StubConfig{
		SampleRate:     24000,
		SamplesPerChar: 240,
	}
}

// StubTextToSpeech produces a deterministic tone without calling a service
type StubTextToSpeech struct {
	config StubConfig
}

func NewStubTextToSpeech(config StubConfig) *StubTextToSpeech {
	if config.SampleRate <= 0 {
		config.SampleRate = 24000
	}
	if config.SamplesPerChar <= 0 {
		config.SamplesPerChar = 240
	}
	return &StubTextToSpeech{config: config}
}

// Synthesize returns a 440 Hz tone proportional to the text length.
func (s *StubTextToSpeech) Synthesize(ctx context.Context, text, language string, referenceVoice []float32) (entities.SynthesisResult, error) {
	if s.config.ProcessingDelay > 0 {
		select {
		case <-time.After(s.config.ProcessingDelay):
		case <-ctx.Done():
			return entities.SynthesisResult{}, ctx.Err()
		}
	}
	if s.config.Err != nil {
		return entities.SynthesisResult{}, s.config.Err
	}
	if len(s.config.SupportedLanguages) > 0 && !s.config.SupportedLanguages[language] {
		return entities.SynthesisResult{}, fmt.Errorf("unsupported synthesis language %q", language)
	}

	speaker := "stub-default"
	if len(referenceVoice) > 0 {
		speaker = "stub-cloned"
	}

	n := len([]rune(text)) * s.config.SamplesPerChar
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = float32(0.2 * math.Sin(2*math.Pi*440*float64(i)/float64(s.config.SampleRate)))
	}

	return entities.SynthesisResult{
		Audio:      samples,
		SampleRate: s.config.SampleRate,
		Text:       text,
		Language:   language,
		Speaker:    speaker,
	}, nil
}
