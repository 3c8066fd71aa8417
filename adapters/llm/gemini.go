package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/onewhat/server/domain/entities"
	"github.com/onewhat/server/internal/language"
)

const (
	defaultModel       = "gemini-2.0-flash"
	defaultTemperature = 0.1
	defaultMaxAttempts = 3
	engineName         = "gemini"
)

// GeminiConfig configures the Gemini translator
type GeminiConfig struct {
	APIKey      string
	Model       string
	Temperature float32
	MaxAttempts int
	// RetryBackoff is multiplied by the attempt number between retries.
	RetryBackoff time.Duration
}

// contentGenerator is the subset of genai.Models the translator calls
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiTranslator implements Translator on top of the Gemini API
type GeminiTranslator struct {
	models contentGenerator
	config GeminiConfig
	logger *zap.Logger
}

// NewGeminiTranslator creates the Gemini client once for the process
func NewGeminiTranslator(ctx context.Context, config GeminiConfig, logger *zap.Logger) (*GeminiTranslator, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return newGeminiTranslator(client.Models, config, logger), nil
}

func newGeminiTranslator(models contentGenerator, config GeminiConfig, logger *zap.Logger) *GeminiTranslator {
	if config.Model == "" {
		config.Model = defaultModel
	}
	if config.Temperature == 0 {
		config.Temperature = defaultTemperature
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = defaultMaxAttempts
	}
	if config.RetryBackoff == 0 {
		config.RetryBackoff = time.Second
	}
	return &GeminiTranslator{models: models, config: config, logger: logger}
}

// Translate translates one text. Empty text is returned as-is without a call.
func (g *GeminiTranslator) Translate(ctx context.Context, text, sourceLang, targetLang string) (entities.TranslationResult, error) {
	result := entities.TranslationResult{
		SourceLang: sourceLang,
		TargetLang: targetLang,
		Engine:     engineName,
		Metadata:   map[string]any{"model": g.config.Model},
	}
	if strings.TrimSpace(text) == "" {
		return result, nil
	}

	prompt := fmt.Sprintf("%s\n\n%s", instruction(sourceLang, targetLang, false), text)
	response, err := g.generate(ctx, prompt, nil)
	if err != nil {
		return entities.TranslationResult{}, err
	}

	translated, err := responseText(response)
	if err != nil {
		return entities.TranslationResult{}, err
	}
	result.Text = strings.TrimSpace(translated)
	result.Confidence = confidence(response)
	return result, nil
}

// TranslateBatch translates texts sharing one language pair in a single call.
// Every result carries the call's overall confidence.
func (g *GeminiTranslator) TranslateBatch(ctx context.Context, texts []string, sourceLang, targetLang string) ([]entities.TranslationResult, error) {
	if len(texts) == 0 {
		return []entities.TranslationResult{}, nil
	}

	payload, err := json.Marshal(texts)
	if err != nil {
		return nil, fmt.Errorf("failed to encode batch: %w", err)
	}
	schema := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type:  genai.TypeArray,
			Items: &genai.Schema{Type: genai.TypeString},
		},
	}

	prompt := fmt.Sprintf("%s\n\n%s", instruction(sourceLang, targetLang, true), payload)
	response, err := g.generate(ctx, prompt, schema)
	if err != nil {
		return nil, err
	}

	raw, err := responseText(response)
	if err != nil {
		return nil, err
	}
	var translated []string
	if err := json.Unmarshal([]byte(raw), &translated); err != nil {
		return nil, fmt.Errorf("failed to decode batch response: %w", err)
	}
	if len(translated) != len(texts) {
		return nil, fmt.Errorf("batch response has %d translations for %d texts", len(translated), len(texts))
	}

	conf := confidence(response)
	results := make([]entities.TranslationResult, len(texts))
	for i, text := range translated {
		results[i] = entities.TranslationResult{
			Text:       strings.TrimSpace(text),
			SourceLang: sourceLang,
			TargetLang: targetLang,
			Confidence: conf,
			Engine:     engineName,
			Metadata:   map[string]any{"model": g.config.Model, "batch_index": i},
		}
	}
	return results, nil
}

func (g *GeminiTranslator) generate(ctx context.Context, prompt string, extra *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(g.config.Temperature),
		ResponseLogprobs: true,
	}
	if extra != nil {
		config.ResponseMIMEType = extra.ResponseMIMEType
		config.ResponseSchema = extra.ResponseSchema
	}
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	var response *genai.GenerateContentResponse
	var err error
	for attempt := 0; attempt < g.config.MaxAttempts; attempt++ {
		response, err = g.models.GenerateContent(ctx, g.config.Model, contents, config)
		if err == nil {
			return response, nil
		}

		g.logger.Warn("Failed to generate translation, retrying",
			zap.Int("attempt", attempt+1),
			zap.Error(err))

		if attempt < g.config.MaxAttempts-1 {
			select {
			case <-time.After(time.Duration(attempt+1) * g.config.RetryBackoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, fmt.Errorf("failed to generate translation: %w", err)
}

func instruction(sourceLang, targetLang string, batch bool) string {
	from := "the detected source language"
	if sourceLang != "" {
		from = language.Name(sourceLang)
	}
	to := language.Name(targetLang)

	if batch {
		return fmt.Sprintf("Translate each string of the JSON array below from %s to %s. "+
			"Reply with a JSON array of the translations in the same order.", from, to)
	}
	return fmt.Sprintf("Translate the following text from %s to %s. "+
		"Reply with the translation only, without quotes or commentary.", from, to)
}

func responseText(response *genai.GenerateContentResponse) (string, error) {
	if response == nil || len(response.Candidates) == 0 || response.Candidates[0].Content == nil {
		return "", fmt.Errorf("no content generated")
	}

	var text string
	for _, part := range response.Candidates[0].Content.Parts {
		if part.Text != "" {
			text += part.Text
		}
	}
	if text == "" {
		return "", fmt.Errorf("empty translation generated")
	}
	return text, nil
}

// confidence converts the candidate's mean token log probability into a
// probability. It is nil when the API did not return log probabilities.
func confidence(response *genai.GenerateContentResponse) *float64 {
	candidate := response.Candidates[0]
	if candidate.LogprobsResult == nil && candidate.AvgLogprobs == 0 {
		return nil
	}
	p := math.Exp(candidate.AvgLogprobs)
	if p > 1 {
		p = 1
	}
	return &p
}
