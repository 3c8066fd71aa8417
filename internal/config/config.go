package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Provider names accepted by the *_PROVIDER settings
const (
	ProviderStub       = "stub"
	ProviderGoogle     = "google"
	ProviderGemini     = "gemini"
	ProviderElevenLabs = "elevenlabs"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	Port        string `envconfig:"PORT" default:"8080"`

	CORSAllowedOrigins string        `envconfig:"CORS_ALLOWED_ORIGINS" default:""`
	JWTSecret          string        `envconfig:"JWT_SECRET" default:""`
	TokenTTL           time.Duration `envconfig:"TOKEN_TTL" default:"24h"`

	ChunkDuration           time.Duration `envconfig:"CHUNK_DURATION" default:"2s"`
	ChunkOverlap            time.Duration `envconfig:"CHUNK_OVERLAP" default:"0s"`
	StageTimeout            time.Duration `envconfig:"STAGE_TIMEOUT" default:"30s"`
	MaxConcurrentStageCalls int64         `envconfig:"MAX_CONCURRENT_STAGE_CALLS" default:"4"`
	MaxInFlightChunks       int           `envconfig:"MAX_IN_FLIGHT_CHUNKS" default:"4"`
	FlushTimeout            time.Duration `envconfig:"FLUSH_TIMEOUT" default:"30s"`
	MaxConcurrentSessions   int           `envconfig:"MAX_CONCURRENT_SESSIONS" default:"64"`

	ASRProvider string `envconfig:"ASR_PROVIDER" default:"stub"`
	NMTProvider string `envconfig:"NMT_PROVIDER" default:"stub"`
	TTSProvider string `envconfig:"TTS_PROVIDER" default:"stub"`

	GoogleCredentialsFile string `envconfig:"GOOGLE_APPLICATION_CREDENTIALS" default:""`
	GeminiAPIKey          string `envconfig:"GEMINI_API_KEY" default:""`
	GeminiModel           string `envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash"`
	ElevenLabsAPIKey      string `envconfig:"ELEVENLABS_API_KEY" default:""`
	ElevenLabsVoiceID     string `envconfig:"ELEVENLABS_VOICE_ID" default:"21m00Tcm4TlvDq8ikWAM"`
	ElevenLabsModelID     string `envconfig:"ELEVENLABS_MODEL_ID" default:"eleven_flash_v2_5"`

	MongoURI      string `envconfig:"MONGODB_URI" default:""`
	MongoDatabase string `envconfig:"MONGODB_DATABASE" default:"speech_translation"`
	DatabaseURL   string `envconfig:"DATABASE_URL" default:""`

	SessionTTL             time.Duration `envconfig:"SESSION_TTL" default:"30m"`
	SessionCleanupInterval time.Duration `envconfig:"SESSION_CLEANUP_INTERVAL" default:"5m"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Port) == "" {
		return fmt.Errorf("PORT is required")
	}
	if c.ChunkDuration <= 0 {
		return fmt.Errorf("CHUNK_DURATION must be > 0")
	}
	if c.ChunkOverlap < 0 {
		return fmt.Errorf("CHUNK_OVERLAP must be >= 0")
	}
	if c.ChunkOverlap >= c.ChunkDuration {
		return fmt.Errorf("CHUNK_OVERLAP (%s) must be shorter than CHUNK_DURATION (%s)", c.ChunkOverlap, c.ChunkDuration)
	}
	if c.StageTimeout <= 0 {
		return fmt.Errorf("STAGE_TIMEOUT must be > 0")
	}
	if c.MaxConcurrentStageCalls < 1 {
		return fmt.Errorf("MAX_CONCURRENT_STAGE_CALLS must be >= 1")
	}
	if c.MaxInFlightChunks < 1 {
		return fmt.Errorf("MAX_IN_FLIGHT_CHUNKS must be >= 1")
	}
	if c.FlushTimeout <= 0 {
		return fmt.Errorf("FLUSH_TIMEOUT must be > 0")
	}
	if c.MaxConcurrentSessions < 1 {
		return fmt.Errorf("MAX_CONCURRENT_SESSIONS must be >= 1")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be > 0")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be > 0")
	}
	if c.SessionCleanupInterval <= 0 {
		return fmt.Errorf("SESSION_CLEANUP_INTERVAL must be > 0")
	}

	switch c.ASRProvider {
	case ProviderStub:
	case ProviderGoogle:
	default:
		return fmt.Errorf("ASR_PROVIDER must be one of: stub, google")
	}
	switch c.NMTProvider {
	case ProviderStub:
	case ProviderGemini:
		if strings.TrimSpace(c.GeminiAPIKey) == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when NMT_PROVIDER=gemini")
		}
	default:
		return fmt.Errorf("NMT_PROVIDER must be one of: stub, gemini")
	}
	switch c.TTSProvider {
	case ProviderStub:
	case ProviderElevenLabs:
		if strings.TrimSpace(c.ElevenLabsAPIKey) == "" {
			return fmt.Errorf("ELEVENLABS_API_KEY is required when TTS_PROVIDER=elevenlabs")
		}
	default:
		return fmt.Errorf("TTS_PROVIDER must be one of: stub, elevenlabs")
	}
	return nil
}

// IsLocal reports whether the service runs in a developer environment
func (c *Config) IsLocal() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "" || env == "local" || env == "development"
}

func (c *Config) CORSAllowedOriginsList() []string {
	if c == nil {
		return nil
	}

	parts := strings.Split(c.CORSAllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		if _, exists := seen[origin]; exists {
			continue
		}
		seen[origin] = struct{}{}
		origins = append(origins, origin)
	}
	return origins
}
