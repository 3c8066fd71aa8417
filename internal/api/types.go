package api

import "github.com/onewhat/server/domain/entities"

// HealthResponse is returned by / and /health
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// LanguagesResponse lists the codes every pipeline stage accepts
type LanguagesResponse struct {
	SupportedLanguages []string `json:"supported_languages"`
	Total              int      `json:"total"`
}

// TranscribeRequest represents the request payload for recognition only
type TranscribeRequest struct {
	Audio      []float32 `json:"audio"`
	SampleRate int       `json:"sample_rate"`
	SourceLang string    `json:"source_lang"`
}

// TranslateTextRequest represents the request payload for batch text translation
type TranslateTextRequest struct {
	Texts      []string `json:"texts"`
	SourceLang string   `json:"source_lang"`
	TargetLang string   `json:"target_lang"`
}

// TranslateTextResponse carries one result per input text, in order
type TranslateTextResponse struct {
	Translations []entities.TranslationResult `json:"translations"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Stage   string `json:"stage,omitempty"`
}
