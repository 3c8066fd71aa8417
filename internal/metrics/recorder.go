// Package metrics records per-stage latency and confidence for one pipeline pass.
package metrics

import (
	"fmt"
	"sync"
	"time"
)

// Recorder accumulates stage measurements for a single request. A stage may be
// recorded once; the recorder is discarded once its Summary is taken.
type Recorder struct {
	mu          sync.Mutex
	durations   map[string]time.Duration
	confidences map[string]float64
	order       []string
}

// Summary is an immutable copy of what a Recorder collected.
type Summary struct {
	StageLatencyMs map[string]float64
	Confidences    map[string]float64
	StageSumMs     float64
	TotalMs        float64
}

func NewRecorder() *Recorder {
	return &Recorder{
		durations:   make(map[string]time.Duration, 3),
		confidences: make(map[string]float64, 3),
	}
}

// Record stores a stage's duration and, when non-nil, its confidence.
func (r *Recorder) Record(stage string, d time.Duration, confidence *float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.durations[stage]; exists {
		return fmt.Errorf("stage %q already recorded", stage)
	}
	r.durations[stage] = d
	r.order = append(r.order, stage)
	if confidence != nil {
		r.confidences[stage] = *confidence
	}
	return nil
}

// Stages returns recorded stage names in recording order.
func (r *Recorder) Stages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}

// Summary converts durations to milliseconds alongside the wall-clock total.
// The stage sum is accumulated in recording order and TotalMs is never reported
// below it.
func (r *Recorder) Summary(total time.Duration) Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Summary{
		StageLatencyMs: make(map[string]float64, len(r.durations)),
		Confidences:    make(map[string]float64, len(r.confidences)),
		TotalMs:        Milliseconds(total),
	}
	for _, stage := range r.order {
		ms := Milliseconds(r.durations[stage])
		s.StageLatencyMs[stage] = ms
		s.StageSumMs += ms
	}
	for stage, c := range r.confidences {
		s.Confidences[stage] = c
	}
	if s.TotalMs < s.StageSumMs {
		s.TotalMs = s.StageSumMs
	}
	return s
}

// Milliseconds converts a duration to fractional milliseconds.
func Milliseconds(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
