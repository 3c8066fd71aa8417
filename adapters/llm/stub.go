package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/onewhat/server/domain/entities"
)

// StubConfig configures the stub translator behavior.
type StubConfig struct {
	// ProcessingDelay simulates translation time per call.
	ProcessingDelay time.Duration
	// Dictionary maps target language and source text to a translation. Misses
	// are returned as "[target] text".
	Dictionary map[string]map[string]string
	// Confidence is reported on every result; nil reports none.
	Confidence *float64
	// Err, when set, is returned by every call.
	Err error
	// RejectTargets lists target codes the stub treats as unsupported.
	RejectTargets map[string]bool
}

// DefaultStubConfig returns sensible defaults for local runs and tests.
func DefaultStubConfig() StubConfig {
	return StubConfig{
		Dictionary: map[string]map[string]string{
			"spa_Latn": {
				"Hello world.":    "Hola mundo.",
				"This is a test.": "Esto es una prueba.",
			},
			"fra_Latn": {
				"Hello world.":    "Bonjour le monde.",
				"This is a test.": "Ceci est un test.",
			},
		},
	}
}

// StubTranslator returns deterministic translations without calling a service
type StubTranslator struct {
	config StubConfig
}

func NewStubTranslator(config StubConfig) *StubTranslator {
	return &StubTranslator{config: config}
}

// Translate converts a single text segment.
func (s *StubTranslator) Translate(ctx context.Context, text, sourceLang, targetLang string) (entities.TranslationResult, error) {
	if err := s.wait(ctx, targetLang); err != nil {
		return entities.TranslationResult{}, err
	}
	return s.translate(text, sourceLang, targetLang), nil
}

// TranslateBatch converts several segments sharing one language pair.
func (s *StubTranslator) TranslateBatch(ctx context.Context, texts []string, sourceLang, targetLang string) ([]entities.TranslationResult, error) {
	if err := s.wait(ctx, targetLang); err != nil {
		return nil, err
	}
	results := make([]entities.TranslationResult, len(texts))
	for i, text := range texts {
		results[i] = s.translate(text, sourceLang, targetLang)
	}
	return results, nil
}

func (s *StubTranslator) wait(ctx context.Context, targetLang string) error {
	if s.config.ProcessingDelay > 0 {
		select {
		case <-time.After(s.config.ProcessingDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if s.config.Err != nil {
		return s.config.Err
	}
	if s.config.RejectTargets[targetLang] {
		return fmt.Errorf("unsupported target language %q", targetLang)
	}
	return nil
}

func (s *StubTranslator) translate(text, sourceLang, targetLang string) entities.TranslationResult {
	result := entities.TranslationResult{
		SourceLang: sourceLang,
		TargetLang: targetLang,
		Confidence: s.config.Confidence,
		Engine:     "stub",
	}
	if text == "" {
		return result
	}
	if dict, ok := s.config.Dictionary[targetLang]; ok {
		if translated, ok := dict[text]; ok {
			result.Text = translated
			return result
		}
	}
	result.Text = "[" + targetLang + "] " + text
	return result
}
