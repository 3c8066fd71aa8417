package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/onewhat/server/domain/entities"
)

// valueRecognizer transcribes a chunk by its first sample so concurrent calls
// stay identifiable. Delays and failures are keyed the same way.
type valueRecognizer struct {
	delays   map[float32]time.Duration
	failures map[float32]error
	language string
}

func (r *valueRecognizer) Transcribe(ctx context.Context, samples []float32, sampleRate int, lang string) (entities.TranscriptionResult, error) {
	key := samples[0]
	if d := r.delays[key]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return entities.TranscriptionResult{}, ctx.Err()
		}
	}
	if err := r.failures[key]; err != nil {
		return entities.TranscriptionResult{}, err
	}
	if lang == "" {
		lang = r.language
	}
	return entities.TranscriptionResult{
		Text:       fmt.Sprintf("value %.1f x%d", key, len(samples)),
		Language:   lang,
		Confidence: 0.75,
	}, nil
}

// recordingTranslator remembers the codes it was called with.
type recordingTranslator struct {
	mu         sync.Mutex
	sourceLang string
	targetLang string
	confidence *float64
}

func (t *recordingTranslator) Translate(ctx context.Context, text, sourceLang, targetLang string) (entities.TranslationResult, error) {
	t.mu.Lock()
	t.sourceLang, t.targetLang = sourceLang, targetLang
	t.mu.Unlock()
	return entities.TranslationResult{
		Text:       "translated: " + text,
		SourceLang: sourceLang,
		TargetLang: targetLang,
		Confidence: t.confidence,
		Engine:     "recording",
	}, nil
}

func (t *recordingTranslator) TranslateBatch(ctx context.Context, texts []string, sourceLang, targetLang string) ([]entities.TranslationResult, error) {
	results := make([]entities.TranslationResult, len(texts))
	for i, text := range texts {
		r, _ := t.Translate(ctx, text, sourceLang, targetLang)
		results[i] = r
	}
	return results, nil
}

type fixedDetector string

func (d fixedDetector) DetectISO6391(string) string { return string(d) }

type memoryLog struct {
	mu      sync.Mutex
	entries []*entities.TranslationLog
	err     error
}

func (m *memoryLog) Record(ctx context.Context, log *entities.TranslationLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, log)
	return m.err
}

func (m *memoryLog) all() []*entities.TranslationLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*entities.TranslationLog(nil), m.entries...)
}

// sliceSource replays fragments, then ends with err (io.EOF when nil).
type sliceSource struct {
	fragments [][]float32
	err       error
	pos       int
}

func (s *sliceSource) Next(ctx context.Context) ([]float32, error) {
	if s.pos < len(s.fragments) {
		f := s.fragments[s.pos]
		s.pos++
		return f, nil
	}
	if s.err != nil {
		return nil, s.err
	}
	return nil, io.EOF
}

// chanSource blocks until a fragment arrives or ctx ends.
type chanSource chan []float32

func (c chanSource) Next(ctx context.Context) ([]float32, error) {
	select {
	case f, ok := <-c:
		if !ok {
			return nil, io.EOF
		}
		return f, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func filled(n int, value float32) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = value
	}
	return out
}

var errSourceBroken = errors.New("connection reset")

func collect(results <-chan StreamResult) []StreamResult {
	var all []StreamResult
	for r := range results {
		all = append(all, r)
	}
	return all
}
