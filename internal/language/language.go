// Package language maps caller-facing two-letter codes to and from the code
// vocabularies used by each pipeline stage.
package language

import (
	"regexp"
	"strings"
)

// Vocabulary is a set of language-code strings one stage's engine accepts.
type Vocabulary int

const (
	// Simple is the caller-facing ISO 639-1 vocabulary ("en").
	Simple Vocabulary = iota
	// Recognition is the BCP-47 vocabulary of the speech recognizer ("en-US").
	Recognition
	// Translation is the NLLB-200 vocabulary ("eng_Latn").
	Translation
	// Synthesis is the two-letter vocabulary of the synthesizer, with "zh-cn" for Chinese.
	Synthesis
)

func (v Vocabulary) String() string {
	switch v {
	case Simple:
		return "simple"
	case Recognition:
		return "recognition"
	case Translation:
		return "translation"
	case Synthesis:
		return "synthesis"
	default:
		return "unknown"
	}
}

type entry struct {
	simple      string
	name        string
	recognition string
	translation string
	synthesis   string
}

func (e entry) code(v Vocabulary) string {
	switch v {
	case Recognition:
		return e.recognition
	case Translation:
		return e.translation
	case Synthesis:
		return e.synthesis
	default:
		return e.simple
	}
}

var table = []entry{
	{"en", "English", "en-US", "eng_Latn", "en"},
	{"es", "Spanish", "es-ES", "spa_Latn", "es"},
	{"fr", "French", "fr-FR", "fra_Latn", "fr"},
	{"de", "German", "de-DE", "deu_Latn", "de"},
	{"zh", "Chinese", "zh-CN", "zho_Hans", "zh-cn"},
	{"ja", "Japanese", "ja-JP", "jpn_Jpan", "ja"},
	{"ko", "Korean", "ko-KR", "kor_Hang", "ko"},
	{"ar", "Arabic", "ar-SA", "arb_Arab", "ar"},
	{"hi", "Hindi", "hi-IN", "hin_Deva", "hi"},
	{"pt", "Portuguese", "pt-BR", "por_Latn", "pt"},
	{"ru", "Russian", "ru-RU", "rus_Cyrl", "ru"},
	{"it", "Italian", "it-IT", "ita_Latn", "it"},
}

// index maps every code of every vocabulary, lowercased, to its table row.
var index = func() map[string]int {
	m := make(map[string]int, len(table)*4)
	for i, e := range table {
		for _, v := range []Vocabulary{Simple, Recognition, Translation, Synthesis} {
			m[strings.ToLower(e.code(v))] = i
		}
	}
	return m
}()

var (
	simplePattern      = regexp.MustCompile(`^[a-z]{2}$`)
	recognitionPattern = regexp.MustCompile(`^[a-z]{2,3}(-[A-Za-z0-9]{2,8})*$`)
	translationPattern = regexp.MustCompile(`^[a-z]{3}_[A-Z][a-z]{3}$`)
	synthesisPattern   = regexp.MustCompile(`^[a-z]{2}(-[a-z]{2})?$`)
)

// WellFormed reports whether code has the shape vocabulary v expects.
func WellFormed(code string, v Vocabulary) bool {
	switch v {
	case Simple:
		return simplePattern.MatchString(code)
	case Recognition:
		return recognitionPattern.MatchString(code)
	case Translation:
		return translationPattern.MatchString(code)
	case Synthesis:
		return synthesisPattern.MatchString(code)
	default:
		return false
	}
}

// codeLength is the length of the bare language subtag in vocabulary v.
func codeLength(v Vocabulary) int {
	if v == Translation {
		return 3
	}
	return 2
}

// ToEngineCode converts a code from any vocabulary into vocabulary v. It never
// fails: unknown codes that are already well-formed for v pass through, anything
// else is reduced to its leading language subtag, truncated to v's code length.
// Shorter subtags are not padded. An empty code stays empty, which stages read
// as "detect automatically".
func ToEngineCode(code string, v Vocabulary) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}
	if i, ok := index[strings.ToLower(code)]; ok {
		return table[i].code(v)
	}
	if WellFormed(code, v) {
		return code
	}
	base := leadingSubtag(code)
	if i, ok := index[base]; ok {
		return table[i].code(v)
	}
	return truncate(base, codeLength(v))
}

// ToSimpleCode converts a code from vocabulary v back to the caller-facing
// two-letter form. It never fails.
func ToSimpleCode(code string, v Vocabulary) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}
	if i, ok := index[strings.ToLower(code)]; ok {
		return table[i].simple
	}
	lower := strings.ToLower(code)
	if WellFormed(lower, Simple) {
		return lower
	}
	base := leadingSubtag(code)
	if i, ok := index[base]; ok {
		return table[i].simple
	}
	return truncate(base, codeLength(Simple))
}

// SupportedCodes lists the simple codes that map into every stage vocabulary.
func SupportedCodes() []string {
	codes := make([]string, len(table))
	for i, e := range table {
		codes[i] = e.simple
	}
	return codes
}

// IsSupported reports whether code, in any vocabulary, is in the table.
func IsSupported(code string) bool {
	_, ok := index[strings.ToLower(strings.TrimSpace(code))]
	return ok
}

// Name returns the English name of a supported language, or the code itself.
func Name(code string) string {
	if i, ok := index[strings.ToLower(strings.TrimSpace(code))]; ok {
		return table[i].name
	}
	return code
}

func leadingSubtag(code string) string {
	if i := strings.IndexAny(code, "-_"); i >= 0 {
		code = code[:i]
	}
	return strings.ToLower(code)
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
