package stt

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func tone(n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = 0.5
	}
	return out
}

func TestStubTranscribe(t *testing.T) {
	config := DefaultStubConfig()
	config.Transcripts = map[int]string{0: "Hello world."}
	s := NewStubSpeechToText(config, zaptest.NewLogger(t))

	first, err := s.Transcribe(context.Background(), tone(1600), 16000, "")
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if first.Text != "Hello world." || first.Language != "en-US" {
		t.Errorf("Unexpected result %+v", first)
	}

	second, _ := s.Transcribe(context.Background(), tone(1600), 16000, "es-ES")
	if second.Text != "Chunk 1" || second.Language != "es-ES" {
		t.Errorf("Unexpected result %+v", second)
	}
}

func TestStubSilence(t *testing.T) {
	s := NewStubSpeechToText(DefaultStubConfig(), zaptest.NewLogger(t))
	result, err := s.Transcribe(context.Background(), make([]float32, 16000), 16000, "en-US")
	if err != nil {
		t.Fatalf("Silence should not be an error, got %v", err)
	}
	if result.Text != "" || result.Confidence != 0 {
		t.Errorf("Expected empty transcript, got %+v", result)
	}
}

func TestStubFailures(t *testing.T) {
	config := DefaultStubConfig()
	config.FailOn = map[int]bool{1: true}
	s := NewStubSpeechToText(config, zaptest.NewLogger(t))

	if _, err := s.Transcribe(context.Background(), tone(10), 16000, ""); err != nil {
		t.Errorf("Call 0 should succeed, got %v", err)
	}
	if _, err := s.Transcribe(context.Background(), tone(10), 16000, ""); err == nil {
		t.Error("Call 1 should fail")
	}
	if _, err := s.Transcribe(context.Background(), nil, 16000, ""); err == nil {
		t.Error("Empty audio should fail")
	}
}

func TestStubHonorsContext(t *testing.T) {
	config := DefaultStubConfig()
	config.ProcessingDelay = time.Second
	s := NewStubSpeechToText(config, zaptest.NewLogger(t))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := s.Transcribe(ctx, tone(10), 16000, ""); err == nil {
		t.Error("Expected context error")
	}
}
