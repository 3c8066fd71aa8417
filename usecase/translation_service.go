package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/onewhat/server/domain"
	"github.com/onewhat/server/domain/entities"
	"github.com/onewhat/server/domain/repositories"
	"github.com/onewhat/server/internal/language"
	"github.com/onewhat/server/internal/metrics"
	"github.com/onewhat/server/internal/workerpool"
)

const logWriteTimeout = 5 * time.Second

// PipelineConfig holds the orchestration settings
type PipelineConfig struct {
	ChunkDuration           time.Duration
	ChunkOverlap            time.Duration
	StageTimeout            time.Duration
	MaxConcurrentStageCalls int64
	MaxInFlightChunks       int
	FlushTimeout            time.Duration
}

// DefaultPipelineConfig mirrors the configuration defaults
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		ChunkDuration:           2 * time.Second,
		StageTimeout:            30 * time.Second,
		MaxConcurrentStageCalls: 4,
		MaxInFlightChunks:       4,
		FlushTimeout:            30 * time.Second,
	}
}

// LanguageDetector guesses an ISO 639-1 code from text, or returns ""
type LanguageDetector interface {
	DetectISO6391(text string) string
}

// Option customizes a TranslationService
type Option func(*TranslationService)

// WithLanguageDetector sets the fallback used when no source language is known
func WithLanguageDetector(d LanguageDetector) Option {
	return func(s *TranslationService) { s.detector = d }
}

// WithTranslationLog records every pipeline pass
func WithTranslationLog(r repositories.TranslationLogRepository) Option {
	return func(s *TranslationService) { s.logs = r }
}

// TranslationService drives recognition, translation and synthesis for single
// requests and streaming sessions. Engines are shared across all requests.
type TranslationService struct {
	recognizer  repositories.SpeechToText
	translator  repositories.Translator
	synthesizer repositories.TextToSpeech
	detector    LanguageDetector
	logs        repositories.TranslationLogRepository
	pool        *workerpool.Pool
	config      PipelineConfig
	logger      *zap.Logger
}

// NewTranslationService creates a new translation service. Any engine may be nil;
// calls needing it fail with UninitializedPipelineError.
func NewTranslationService(
	stt repositories.SpeechToText,
	translator repositories.Translator,
	tts repositories.TextToSpeech,
	config PipelineConfig,
	logger *zap.Logger,
	opts ...Option,
) *TranslationService {
	defaults := DefaultPipelineConfig()
	if config.ChunkDuration <= 0 {
		config.ChunkDuration = defaults.ChunkDuration
	}
	if config.StageTimeout <= 0 {
		config.StageTimeout = defaults.StageTimeout
	}
	if config.MaxConcurrentStageCalls <= 0 {
		config.MaxConcurrentStageCalls = defaults.MaxConcurrentStageCalls
	}
	if config.MaxInFlightChunks <= 0 {
		config.MaxInFlightChunks = defaults.MaxInFlightChunks
	}
	if config.FlushTimeout <= 0 {
		config.FlushTimeout = defaults.FlushTimeout
	}

	s := &TranslationService{
		recognizer:  stt,
		translator:  translator,
		synthesizer: tts,
		pool:        workerpool.New(config.MaxConcurrentStageCalls),
		config:      config,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the pipeline settings in effect
func (s *TranslationService) Config() PipelineConfig {
	return s.config
}

// Close stops accepting stage calls and waits for running ones up to ctx
func (s *TranslationService) Close(ctx context.Context) error {
	return s.pool.Close(ctx)
}

// Translate runs one request through recognition, translation and synthesis.
// Any stage failure aborts the rest and is returned as a *domain.StageError; no
// partial response is produced.
func (s *TranslationService) Translate(ctx context.Context, req entities.TranslationRequest) (entities.TranslationResponse, error) {
	start := time.Now()

	if err := validateRequest(req); err != nil {
		return entities.TranslationResponse{}, err
	}
	if err := s.ready(entities.StageASR, entities.StageNMT, entities.StageTTS); err != nil {
		return entities.TranslationResponse{}, err
	}

	requestID := uuid.NewString()
	logger := s.logger.With(
		zap.String("requestID", requestID),
		zap.String("sessionID", req.SessionID),
		zap.Int("sequence", req.Sequence))
	rec := metrics.NewRecorder()
	entry := entities.NewTranslationLog(requestID, req)

	fail := func(stage entities.Stage, err error) (entities.TranslationResponse, error) {
		summary := rec.Summary(time.Since(start))
		entry.Fail(stage, err, summary.TotalMs, summary.StageLatencyMs, summary.Confidences)
		s.writeLog(ctx, entry)
		logger.Warn("Pipeline stage failed", zap.String("stage", string(stage)), zap.Error(err))
		return entities.TranslationResponse{}, err
	}

	recognitionLang := language.ToEngineCode(req.SourceLang, language.Recognition)
	transcription, err := runStage(ctx, s, entities.StageASR, rec,
		func(ctx context.Context) (entities.TranscriptionResult, error) {
			return s.recognizer.Transcribe(ctx, req.Audio, req.SampleRate, recognitionLang)
		},
		func(r entities.TranscriptionResult) *float64 { return &r.Confidence })
	if err != nil {
		return fail(entities.StageASR, err)
	}

	sourceLang := s.resolveSource(req.SourceLang, transcription)
	targetLang := language.ToSimpleCode(req.TargetLang, language.Simple)

	translation, err := runStage(ctx, s, entities.StageNMT, rec,
		func(ctx context.Context) (entities.TranslationResult, error) {
			return s.translator.Translate(ctx, transcription.Text,
				language.ToEngineCode(sourceLang, language.Translation),
				language.ToEngineCode(req.TargetLang, language.Translation))
		},
		func(r entities.TranslationResult) *float64 { return r.Confidence })
	if err != nil {
		return fail(entities.StageNMT, err)
	}

	synthesis, err := runStage(ctx, s, entities.StageTTS, rec,
		func(ctx context.Context) (entities.SynthesisResult, error) {
			return s.synthesizer.Synthesize(ctx, translation.Text,
				language.ToEngineCode(req.TargetLang, language.Synthesis), req.ReferenceVoice)
		},
		nil)
	if err != nil {
		return fail(entities.StageTTS, err)
	}

	summary := rec.Summary(time.Since(start))
	resp := entities.TranslationResponse{
		RequestID:     requestID,
		Audio:         synthesis.Audio,
		SampleRate:    synthesis.SampleRate,
		Transcription: transcription.Text,
		Translation:   translation.Text,
		SourceLang:    sourceLang,
		TargetLang:    targetLang,
		LatencyMs:     summary.TotalMs,
		StageSumMs:    summary.StageSumMs,
		StageLatency:  summary.StageLatencyMs,
		Confidences:   summary.Confidences,
	}

	entry.Succeed(resp)
	s.writeLog(ctx, entry)

	logger.Info("Translation completed",
		zap.String("sourceLang", sourceLang),
		zap.String("targetLang", targetLang),
		zap.Float64("latencyMs", resp.LatencyMs),
		zap.Float64("stageSumMs", resp.StageSumMs))
	return resp, nil
}

// Transcribe runs recognition only
func (s *TranslationService) Transcribe(ctx context.Context, audio []float32, sampleRate int, sourceLang string) (entities.TranscriptionResult, error) {
	if len(audio) == 0 {
		return entities.TranscriptionResult{}, domain.InvalidRequest("audio is empty")
	}
	if sampleRate <= 0 {
		return entities.TranscriptionResult{}, domain.InvalidRequest("sample rate must be positive")
	}
	if err := s.ready(entities.StageASR); err != nil {
		return entities.TranscriptionResult{}, err
	}

	code := language.ToEngineCode(sourceLang, language.Recognition)
	return runStage(ctx, s, entities.StageASR, metrics.NewRecorder(),
		func(ctx context.Context) (entities.TranscriptionResult, error) {
			return s.recognizer.Transcribe(ctx, audio, sampleRate, code)
		}, nil)
}

// TranslateText translates texts sharing one language pair in a single batch
func (s *TranslationService) TranslateText(ctx context.Context, texts []string, sourceLang, targetLang string) ([]entities.TranslationResult, error) {
	if len(texts) == 0 {
		return nil, domain.InvalidRequest("texts are empty")
	}
	if targetLang == "" {
		return nil, domain.InvalidRequest("target language is required")
	}
	if err := s.ready(entities.StageNMT); err != nil {
		return nil, err
	}

	src := language.ToEngineCode(sourceLang, language.Translation)
	tgt := language.ToEngineCode(targetLang, language.Translation)
	return runStage(ctx, s, entities.StageNMT, metrics.NewRecorder(),
		func(ctx context.Context) ([]entities.TranslationResult, error) {
			return s.translator.TranslateBatch(ctx, texts, src, tgt)
		}, nil)
}

// runStage dispatches one engine call to the worker pool under the stage timeout
// and records its wall-clock duration, including time spent waiting for a slot.
func runStage[T any](
	ctx context.Context,
	s *TranslationService,
	stage entities.Stage,
	rec *metrics.Recorder,
	call func(context.Context) (T, error),
	confidence func(T) *float64,
) (T, error) {
	stageCtx, cancel := context.WithTimeout(ctx, s.config.StageTimeout)
	defer cancel()

	began := time.Now()
	result, err := workerpool.Do(stageCtx, s.pool, call)
	elapsed := time.Since(began)
	if err != nil {
		var zero T
		return zero, &domain.StageError{Stage: stage, Err: err}
	}

	var conf *float64
	if confidence != nil {
		conf = confidence(result)
	}
	if err := rec.Record(string(stage), elapsed, conf); err != nil {
		var zero T
		return zero, &domain.StageError{Stage: stage, Err: err}
	}
	return result, nil
}

// resolveSource picks the caller-facing source code: declared, then recognized,
// then detected from the transcript.
func (s *TranslationService) resolveSource(declared string, transcription entities.TranscriptionResult) string {
	if declared != "" {
		return language.ToSimpleCode(declared, language.Simple)
	}
	if transcription.Language != "" {
		return language.ToSimpleCode(transcription.Language, language.Recognition)
	}
	if s.detector != nil {
		return s.detector.DetectISO6391(transcription.Text)
	}
	return ""
}

func (s *TranslationService) ready(stages ...entities.Stage) error {
	for _, stage := range stages {
		var missing bool
		switch stage {
		case entities.StageASR:
			missing = s.recognizer == nil
		case entities.StageNMT:
			missing = s.translator == nil
		case entities.StageTTS:
			missing = s.synthesizer == nil
		}
		if missing {
			return &domain.UninitializedPipelineError{Stage: stage}
		}
	}
	return nil
}

// writeLog persists the pass outside the request's cancellation. Failures are
// logged and never change the outcome.
func (s *TranslationService) writeLog(ctx context.Context, entry *entities.TranslationLog) {
	if s.logs == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), logWriteTimeout)
	defer cancel()
	if err := s.logs.Record(ctx, entry); err != nil {
		s.logger.Warn("Failed to record translation log",
			zap.String("requestID", entry.RequestID),
			zap.Error(err))
	}
}

func validateRequest(req entities.TranslationRequest) error {
	if len(req.Audio) == 0 {
		return domain.InvalidRequest("audio is empty")
	}
	if req.SampleRate <= 0 {
		return domain.InvalidRequest("sample rate must be positive")
	}
	if req.TargetLang == "" {
		return domain.InvalidRequest("target language is required")
	}
	return nil
}
