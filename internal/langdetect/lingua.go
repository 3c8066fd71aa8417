// Package langdetect guesses the language of recognized text when neither the
// caller nor the recognizer supplied one.
package langdetect

import (
	"strings"
	"sync"
	"unicode"

	lingua "github.com/pemistahl/lingua-go"
)

// minLetters is the least evidence worth asking the detector about.
const minLetters = 6

var (
	detectorOnce sync.Once
	detector     lingua.LanguageDetector
)

// Detector adapts the shared lingua detector for the orchestrator.
type Detector struct{}

// DetectISO6391 returns the lowercase ISO 639-1 code for text, or "".
func (Detector) DetectISO6391(text string) string {
	return DetectISO6391(text)
}

func DetectISO6391(text string) string {
	sample := strings.TrimSpace(text)
	if sample == "" {
		return ""
	}

	letterCount := 0
	for _, r := range sample {
		if unicode.IsLetter(r) {
			letterCount++
		}
	}
	if letterCount < minLetters {
		return ""
	}

	language, exists := getDetector().DetectLanguageOf(sample)
	if !exists {
		return ""
	}

	code := strings.ToLower(language.IsoCode639_1().String())
	if len(code) != 2 {
		return ""
	}
	return code
}

func getDetector() lingua.LanguageDetector {
	detectorOnce.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(
				lingua.English, lingua.Spanish, lingua.French, lingua.German,
				lingua.Chinese, lingua.Japanese, lingua.Korean, lingua.Arabic,
				lingua.Hindi, lingua.Portuguese, lingua.Russian, lingua.Italian,
			).
			WithMinimumRelativeDistance(0.1).
			Build()
	})
	return detector
}
