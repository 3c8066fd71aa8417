package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ChunkDuration != 2*time.Second {
		t.Errorf("Expected 2s chunk duration, got %s", cfg.ChunkDuration)
	}
	if cfg.ChunkOverlap != 0 {
		t.Errorf("Expected zero overlap, got %s", cfg.ChunkOverlap)
	}
	if cfg.ASRProvider != ProviderStub || cfg.NMTProvider != ProviderStub || cfg.TTSProvider != ProviderStub {
		t.Error("Expected stub providers by default")
	}
	if !cfg.IsLocal() {
		t.Error("Default environment should be local")
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("CHUNK_DURATION", "500ms")
	t.Setenv("MAX_IN_FLIGHT_CHUNKS", "2")
	t.Setenv("ENVIRONMENT", "production")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ChunkDuration != 500*time.Millisecond {
		t.Errorf("Expected 500ms, got %s", cfg.ChunkDuration)
	}
	if cfg.MaxInFlightChunks != 2 {
		t.Errorf("Expected 2, got %d", cfg.MaxInFlightChunks)
	}
	if cfg.IsLocal() {
		t.Error("Production should not be local")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "overlap not shorter than chunk", env: map[string]string{"CHUNK_DURATION": "1s", "CHUNK_OVERLAP": "1s"}},
		{name: "negative overlap", env: map[string]string{"CHUNK_OVERLAP": "-1s"}},
		{name: "zero in-flight", env: map[string]string{"MAX_IN_FLIGHT_CHUNKS": "0"}},
		{name: "unknown asr provider", env: map[string]string{"ASR_PROVIDER": "whisper"}},
		{name: "gemini without key", env: map[string]string{"NMT_PROVIDER": "gemini"}},
		{name: "elevenlabs without key", env: map[string]string{"TTS_PROVIDER": "elevenlabs"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestCORSAllowedOriginsList(t *testing.T) {
	cfg := &Config{CORSAllowedOrigins: " http://a.test ,http://b.test,,http://a.test"}
	got := cfg.CORSAllowedOriginsList()
	if len(got) != 2 || got[0] != "http://a.test" || got[1] != "http://b.test" {
		t.Errorf("Unexpected origins %v", got)
	}
}

func TestEnvLoader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	if err := os.WriteFile(path, []byte("SPEECH_TEST_VALUE=loaded\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SPEECH_TEST_VALUE", "")
	os.Unsetenv("SPEECH_TEST_VALUE")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	loader := AddEnvFlag(fs, filepath.Join(dir, "missing.env"))
	if err := fs.Parse([]string{"--env", path}); err != nil {
		t.Fatal(err)
	}

	loaded, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded != path {
		t.Errorf("Expected %s, got %s", path, loaded)
	}
	if os.Getenv("SPEECH_TEST_VALUE") != "loaded" {
		t.Error("Expected variable from env file")
	}
}

func TestEnvLoaderMissingDefault(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	loader := AddEnvFlag(fs, filepath.Join(t.TempDir(), ".env"))
	if err := fs.Parse(nil); err != nil {
		t.Fatal(err)
	}
	if _, err := loader.Load(); err != nil {
		t.Errorf("Missing default env file should not fail, got %v", err)
	}
}
