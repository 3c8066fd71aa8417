package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/onewhat/server/domain/entities"
	"github.com/onewhat/server/internal/audio"
)

const (
	defaultAPIBaseURL   = "https://api.elevenlabs.io/v1"
	defaultVoiceID      = "21m00Tcm4TlvDq8ikWAM" // Rachel voice
	defaultChunkSize    = 4096
	defaultOutputFormat = "pcm_24000"
	defaultModelID      = "eleven_flash_v2_5"
	defaultStability    = 0.5
	defaultClarity      = 0.75
	defaultTimeout      = 60 * time.Second
)

// ElevenLabsConfig holds configuration for the ElevenLabs synthesizer.
// Only APIKey is required; OutputFormat must be one of the pcm_<rate> formats.
type ElevenLabsConfig struct {
	APIKey       string
	APIBaseURL   string
	VoiceID      string
	ModelID      string
	OutputFormat string
	ChunkSize    int
	Stability    float64
	Clarity      float64
	Timeout      time.Duration
}

// ElevenLabsTTS implements TextToSpeech using the ElevenLabs streaming endpoint
type ElevenLabsTTS struct {
	apiKey       string
	apiBaseURL   string
	voiceID      string
	modelID      string
	outputFormat string
	sampleRate   int
	chunkSize    int
	stability    float64
	clarity      float64
	client       *http.Client
	logger       *zap.Logger
}

// ElevenLabsVoiceSettings represents voice settings for Eleven Labs API
type ElevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style,omitempty"`
	UseSpeakerBoost bool    `json:"use_speaker_boost,omitempty"`
}

// ElevenLabsRequest represents the request payload for Eleven Labs TTS API
type ElevenLabsRequest struct {
	Text                   string                  `json:"text"`
	ModelID                string                  `json:"model_id"`
	LanguageCode           string                  `json:"language_code,omitempty"`
	VoiceSettings          ElevenLabsVoiceSettings `json:"voice_settings"`
	ApplyTextNormalization string                  `json:"apply_text_normalization,omitempty"`
}

// ValidateElevenLabsConfig validates the ElevenLabsConfig
func ValidateElevenLabsConfig(config ElevenLabsConfig) error {
	if config.APIKey == "" {
		return fmt.Errorf("eleven labs API key is required")
	}
	if config.Stability != 0 && (config.Stability < 0 || config.Stability > 1) {
		return fmt.Errorf("stability must be between 0 and 1, got %f", config.Stability)
	}
	if config.Clarity != 0 && (config.Clarity < 0 || config.Clarity > 1) {
		return fmt.Errorf("clarity must be between 0 and 1, got %f", config.Clarity)
	}
	if config.ChunkSize < 0 {
		return fmt.Errorf("chunk size must be positive, got %d", config.ChunkSize)
	}
	if config.OutputFormat != "" {
		if _, err := pcmSampleRate(config.OutputFormat); err != nil {
			return err
		}
	}
	return nil
}

// NewElevenLabsTTS creates a new Eleven Labs TTS instance
func NewElevenLabsTTS(config ElevenLabsConfig, logger *zap.Logger) (*ElevenLabsTTS, error) {
	if err := ValidateElevenLabsConfig(config); err != nil {
		return nil, err
	}

	e := &ElevenLabsTTS{
		apiKey:       config.APIKey,
		apiBaseURL:   strings.TrimRight(orDefault(config.APIBaseURL, defaultAPIBaseURL), "/"),
		voiceID:      orDefault(config.VoiceID, defaultVoiceID),
		modelID:      orDefault(config.ModelID, defaultModelID),
		outputFormat: orDefault(config.OutputFormat, defaultOutputFormat),
		chunkSize:    config.ChunkSize,
		stability:    config.Stability,
		clarity:      config.Clarity,
		logger:       logger,
	}
	if e.chunkSize == 0 {
		e.chunkSize = defaultChunkSize
	}
	if e.stability == 0 {
		e.stability = defaultStability
	}
	if e.clarity == 0 {
		e.clarity = defaultClarity
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	e.client = &http.Client{Timeout: timeout}
	e.sampleRate, _ = pcmSampleRate(e.outputFormat)

	logger.Info("ElevenLabs synthesizer configured",
		zap.String("voiceID", e.voiceID),
		zap.String("modelID", e.modelID),
		zap.String("outputFormat", e.outputFormat))
	return e, nil
}

// Synthesize renders text through the streaming endpoint and decodes the PCM
// body. Empty text yields empty audio without a request.
func (e *ElevenLabsTTS) Synthesize(ctx context.Context, text, language string, referenceVoice []float32) (entities.SynthesisResult, error) {
	result := entities.SynthesisResult{
		SampleRate: e.sampleRate,
		Text:       text,
		Language:   language,
		Speaker:    e.voiceID,
		Audio:      []float32{},
	}
	if strings.TrimSpace(text) == "" {
		return result, nil
	}
	if len(referenceVoice) > 0 {
		e.logger.Debug("Reference voice ignored; ElevenLabs uses the configured voice",
			zap.Int("referenceSamples", len(referenceVoice)))
	}

	request := ElevenLabsRequest{
		Text:                   text,
		ModelID:                e.modelID,
		LanguageCode:           isoLanguage(language),
		ApplyTextNormalization: "auto",
		VoiceSettings: ElevenLabsVoiceSettings{
			Stability:       e.stability,
			SimilarityBoost: e.clarity,
			UseSpeakerBoost: true,
		},
	}
	requestBody, err := json.Marshal(request)
	if err != nil {
		return entities.SynthesisResult{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/text-to-speech/%s/stream?output_format=%s&enable_logging=false",
		e.apiBaseURL, e.voiceID, e.outputFormat)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(requestBody))
	if err != nil {
		return entities.SynthesisResult{}, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Accept", "audio/pcm")
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("xi-api-key", e.apiKey)

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return entities.SynthesisResult{}, fmt.Errorf("failed to execute HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return entities.SynthesisResult{}, fmt.Errorf("ElevenLabs API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(errorBody)))
	}

	pcm, err := e.readStream(ctx, resp.Body)
	if err != nil {
		return entities.SynthesisResult{}, err
	}
	result.Audio = audio.Linear16ToFloat32(pcm)

	e.logger.Debug("ElevenLabs synthesis complete",
		zap.Int("bytes", len(pcm)),
		zap.Int("samples", len(result.Audio)))
	return result, nil
}

func (e *ElevenLabsTTS) readStream(ctx context.Context, body io.Reader) ([]byte, error) {
	var pcm bytes.Buffer
	buffer := make([]byte, e.chunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := body.Read(buffer)
		if n > 0 {
			pcm.Write(buffer[:n])
		}
		if err == io.EOF {
			return pcm.Bytes(), nil
		}
		if err != nil {
			return nil, fmt.Errorf("error reading response body: %w", err)
		}
	}
}

// pcmSampleRate extracts the rate from an output format such as "pcm_24000"
func pcmSampleRate(format string) (int, error) {
	rate, ok := strings.CutPrefix(format, "pcm_")
	if !ok {
		return 0, fmt.Errorf("output format %q is not PCM", format)
	}
	n, err := strconv.Atoi(rate)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("output format %q has no sample rate", format)
	}
	return n, nil
}

// isoLanguage reduces a synthesis code such as "zh-cn" to ISO 639-1
func isoLanguage(code string) string {
	if i := strings.IndexAny(code, "-_"); i >= 0 {
		code = code[:i]
	}
	return strings.ToLower(code)
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
