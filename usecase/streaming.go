package usecase

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/onewhat/server/domain"
	"github.com/onewhat/server/domain/entities"
	"github.com/onewhat/server/internal/audio"
)

// AudioSource yields audio fragments for one streaming session. Next returns
// io.EOF when the stream ends gracefully; any other error is session-fatal.
type AudioSource interface {
	Next(ctx context.Context) ([]float32, error)
}

// StreamConfig is fixed for a session's lifetime
type StreamConfig struct {
	SessionID      string
	SourceLang     string
	TargetLang     string
	SampleRate     int
	ReferenceVoice []float32
}

// StreamResult is one item of a session's output sequence. Exactly one of
// Response or Err is meaningful.
type StreamResult struct {
	Sequence int
	Response entities.TranslationResponse
	Err      error
	// Final marks the result derived from the end-of-stream flush.
	Final bool
	// Fatal marks a source failure; it is always the last item.
	Fatal bool
}

type chunkJob struct {
	sequence int
	final    bool
	done     chan StreamResult
}

// TranslateStreaming chunks audio pulled from source and runs each chunk through
// Translate. Results arrive on the returned channel strictly in chunk order,
// then the channel closes; the caller must drain it.
//
// When ctx is cancelled the service stops pulling from source, flushes what is
// buffered and finishes the chunks already dispatched, giving up after
// FlushTimeout. When source fails, chunks still in flight are abandoned, their
// results discarded, and a single Fatal result ends the sequence.
func (s *TranslationService) TranslateStreaming(ctx context.Context, source AudioSource, cfg StreamConfig) (<-chan StreamResult, error) {
	if cfg.SampleRate <= 0 {
		return nil, domain.InvalidRequest("sample rate must be positive")
	}
	if cfg.TargetLang == "" {
		return nil, domain.InvalidRequest("target language is required")
	}
	if err := s.ready(entities.StageASR, entities.StageNMT, entities.StageTTS); err != nil {
		return nil, err
	}
	chunker, err := audio.NewChunker(cfg.SampleRate, s.config.ChunkDuration, s.config.ChunkOverlap)
	if err != nil {
		return nil, domain.InvalidRequest("%v", err)
	}

	logger := s.logger.With(zap.String("sessionID", cfg.SessionID))
	workCtx, cancelWork := context.WithCancel(context.WithoutCancel(ctx))
	stopFlushTimer := context.AfterFunc(ctx, func() {
		time.AfterFunc(s.config.FlushTimeout, cancelWork)
	})

	out := make(chan StreamResult)
	pending := make(chan *chunkJob, s.config.MaxInFlightChunks)
	var abandoned atomic.Bool

	go func() {
		defer close(pending)

		sequence := 0
		dispatch := func(samples []float32, final bool) {
			job := &chunkJob{sequence: sequence, final: final, done: make(chan StreamResult, 1)}
			sequence++

			select {
			case pending <- job:
			case <-workCtx.Done():
				return
			}

			req := entities.TranslationRequest{
				Audio:          samples,
				SampleRate:     cfg.SampleRate,
				SourceLang:     cfg.SourceLang,
				TargetLang:     cfg.TargetLang,
				ReferenceVoice: cfg.ReferenceVoice,
				SessionID:      cfg.SessionID,
				Sequence:       job.sequence,
			}
			go func() {
				resp, err := s.Translate(workCtx, req)
				job.done <- StreamResult{Sequence: job.sequence, Response: resp, Err: err, Final: job.final}
			}()
		}

		for ctx.Err() == nil {
			samples, err := source.Next(ctx)
			if err != nil {
				if errors.Is(err, io.EOF) || ctx.Err() != nil {
					break
				}

				logger.Warn("Audio source failed, abandoning session", zap.Error(err))
				abandoned.Store(true)
				cancelWork()
				chunker.Reset()
				fatal := &chunkJob{sequence: sequence, done: make(chan StreamResult, 1)}
				fatal.done <- StreamResult{Sequence: sequence, Err: err, Fatal: true}
				pending <- fatal
				return
			}
			for _, chunk := range chunker.Absorb(samples) {
				dispatch(chunk, false)
			}
		}

		if rest := chunker.Flush(); rest != nil {
			logger.Debug("Flushing buffered audio", zap.Int("samples", len(rest)))
			dispatch(rest, true)
		}
	}()

	go func() {
		defer close(out)
		defer cancelWork()
		defer stopFlushTimer()

		for job := range pending {
			result := <-job.done
			if abandoned.Load() && !result.Fatal {
				continue
			}
			select {
			case out <- result:
			case <-workCtx.Done():
				if !result.Fatal {
					logger.Warn("Dropping result after flush timeout", zap.Int("sequence", result.Sequence))
					continue
				}
				out <- result
			}
		}
	}()

	return out, nil
}
