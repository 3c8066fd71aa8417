package stt

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/onewhat/server/domain/entities"
)

// StubConfig configures the stub recognizer behavior.
type StubConfig struct {
	// ProcessingDelay simulates recognition time per call.
	ProcessingDelay time.Duration
	// DefaultLanguage is reported when the caller asks for detection.
	DefaultLanguage string
	// Transcripts maps call indices to predetermined text. If nil, "Chunk N" is used.
	Transcripts map[int]string
	// SilenceThreshold is the RMS below which audio transcribes to "".
	SilenceThreshold float64
	// FailOn lists call indices that return an error.
	FailOn map[int]bool
}

// DefaultStubConfig returns sensible defaults for local runs and tests.
func DefaultStubConfig() StubConfig {
	return StubConfig{
		DefaultLanguage:  "en-US",
		SilenceThreshold: 1e-4,
	}
}

// StubSpeechToText returns deterministic transcripts without calling a service
type StubSpeechToText struct {
	config StubConfig
	calls  atomic.Int64
	logger *zap.Logger
}

func NewStubSpeechToText(config StubConfig, logger *zap.Logger) *StubSpeechToText {
	return &StubSpeechToText{config: config, logger: logger}
}

// Transcribe simulates recognition. Silent audio yields an empty transcript.
func (s *StubSpeechToText) Transcribe(ctx context.Context, samples []float32, sampleRate int, language string) (entities.TranscriptionResult, error) {
	index := int(s.calls.Add(1) - 1)
	start := time.Now()

	if s.config.ProcessingDelay > 0 {
		select {
		case <-time.After(s.config.ProcessingDelay):
		case <-ctx.Done():
			return entities.TranscriptionResult{}, ctx.Err()
		}
	}
	if s.config.FailOn[index] {
		return entities.TranscriptionResult{}, fmt.Errorf("stub recognizer failure on call %d", index)
	}
	if len(samples) == 0 || sampleRate <= 0 {
		return entities.TranscriptionResult{}, fmt.Errorf("malformed audio: %d samples at %d Hz", len(samples), sampleRate)
	}

	if language == "" {
		language = s.config.DefaultLanguage
	}
	duration := float64(len(samples)) / float64(sampleRate)
	result := entities.TranscriptionResult{
		Language: language,
		Segments: []entities.Segment{},
	}

	if rms(samples) >= s.config.SilenceThreshold {
		text, ok := s.config.Transcripts[index]
		if !ok {
			text = fmt.Sprintf("Chunk %d", index)
		}
		result.Text = text
		result.Confidence = 0.9
		result.Segments = append(result.Segments, entities.Segment{
			Start: 0, End: duration, Text: text, Confidence: 0.9,
		})
	}
	result.ProcessingTimeMs = float64(time.Since(start).Microseconds()) / 1000

	s.logger.Debug("Stub transcription",
		zap.Int("call", index),
		zap.Int("samples", len(samples)),
		zap.String("text", result.Text))
	return result, nil
}

func rms(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}
