package stt

import (
	"context"
	"fmt"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	gax "github.com/googleapis/gax-go/v2"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/onewhat/server/domain/entities"
	"github.com/onewhat/server/internal/audio"
)

// Google Speech-to-Text v1 accepts at most three alternative languages.
const maxAlternativeLanguages = 3

// GoogleConfig configures the Google Cloud recognizer
type GoogleConfig struct {
	CredentialsFile string
	// DefaultLanguage is sent when the caller asks for auto-detection.
	DefaultLanguage string
	// AlternativeLanguages are offered to the detector alongside DefaultLanguage.
	AlternativeLanguages []string
	Model                string
}

// recognizeClient is the subset of the speech client this adapter calls
type recognizeClient interface {
	Recognize(ctx context.Context, req *speechpb.RecognizeRequest, opts ...gax.CallOption) (*speechpb.RecognizeResponse, error)
	Close() error
}

// GoogleSpeechToText implements SpeechToText for Google Cloud
type GoogleSpeechToText struct {
	client recognizeClient
	config GoogleConfig
	logger *zap.Logger
}

// NewGoogleSpeechToText dials the Speech API once; the client is shared by all requests.
func NewGoogleSpeechToText(ctx context.Context, config GoogleConfig, logger *zap.Logger) (*GoogleSpeechToText, error) {
	var opts []option.ClientOption
	if config.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(config.CredentialsFile))
	}

	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}
	return newGoogleSpeechToText(client, config, logger), nil
}

func newGoogleSpeechToText(client recognizeClient, config GoogleConfig, logger *zap.Logger) *GoogleSpeechToText {
	if config.DefaultLanguage == "" {
		config.DefaultLanguage = "en-US"
	}
	if len(config.AlternativeLanguages) > maxAlternativeLanguages {
		config.AlternativeLanguages = config.AlternativeLanguages[:maxAlternativeLanguages]
	}
	return &GoogleSpeechToText{client: client, config: config, logger: logger}
}

// Transcribe sends the samples as LINEAR16 in one synchronous request
func (g *GoogleSpeechToText) Transcribe(ctx context.Context, samples []float32, sampleRate int, language string) (entities.TranscriptionResult, error) {
	start := time.Now()

	recognitionConfig := &speechpb.RecognitionConfig{
		Encoding:                   speechpb.RecognitionConfig_LINEAR16,
		SampleRateHertz:            int32(sampleRate),
		AudioChannelCount:          1,
		LanguageCode:               language,
		EnableAutomaticPunctuation: true,
		Model:                      g.config.Model,
	}
	if language == "" {
		recognitionConfig.LanguageCode = g.config.DefaultLanguage
		recognitionConfig.AlternativeLanguageCodes = g.config.AlternativeLanguages
	}

	resp, err := g.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: recognitionConfig,
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio.Float32ToLinear16(samples)},
		},
	})
	if err != nil {
		return entities.TranscriptionResult{}, fmt.Errorf("failed to recognize audio: %w", err)
	}

	result := buildTranscription(resp, language)
	result.ProcessingTimeMs = float64(time.Since(start).Microseconds()) / 1000

	g.logger.Debug("Google transcription complete",
		zap.Int("segments", len(result.Segments)),
		zap.String("language", result.Language),
		zap.Float64("confidence", result.Confidence))
	return result, nil
}

// Close releases the underlying gRPC connection
func (g *GoogleSpeechToText) Close() error {
	return g.client.Close()
}

// buildTranscription joins the best alternative of every result. An empty
// response is silence, not an error. Language is left empty on auto-detect
// unless a result reports one.
func buildTranscription(resp *speechpb.RecognizeResponse, requestedLanguage string) entities.TranscriptionResult {
	result := entities.TranscriptionResult{
		Language: requestedLanguage,
		Segments: []entities.Segment{},
	}

	var (
		text       string
		confidence float64
		previous   float64
	)
	for _, r := range resp.GetResults() {
		if len(r.GetAlternatives()) == 0 {
			continue
		}
		best := r.GetAlternatives()[0]

		end := previous
		if r.GetResultEndTime() != nil {
			end = r.GetResultEndTime().AsDuration().Seconds()
		}
		result.Segments = append(result.Segments, entities.Segment{
			Start:      previous,
			End:        end,
			Text:       best.GetTranscript(),
			Confidence: float64(best.GetConfidence()),
		})
		previous = end

		if text != "" {
			text += " "
		}
		text += best.GetTranscript()
		confidence += float64(best.GetConfidence())

		if r.GetLanguageCode() != "" {
			result.Language = r.GetLanguageCode()
		}
	}

	result.Text = text
	if n := len(result.Segments); n > 0 {
		result.Confidence = confidence / float64(n)
	}
	return result
}
