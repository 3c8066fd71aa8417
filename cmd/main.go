package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/onewhat/server/adapters/llm"
	"github.com/onewhat/server/adapters/memory"
	"github.com/onewhat/server/adapters/mongo"
	"github.com/onewhat/server/adapters/postgres"
	"github.com/onewhat/server/adapters/stt"
	"github.com/onewhat/server/adapters/tts"
	"github.com/onewhat/server/domain/repositories"
	"github.com/onewhat/server/internal/api"
	"github.com/onewhat/server/internal/auth"
	"github.com/onewhat/server/internal/config"
	"github.com/onewhat/server/internal/langdetect"
	"github.com/onewhat/server/internal/logging"
	"github.com/onewhat/server/internal/websocket"
	"github.com/onewhat/server/usecase"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

const maxRequestBody = "32M"

func main() {
	envLoader := config.AddEnvFlag(flag.CommandLine, ".env")
	flag.Parse()

	envFile, err := envLoader.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	if envFile != "" {
		logger.Info("Loaded env file", zap.String("path", envFile))
	}

	ctx := context.Background()
	var closers []func(context.Context) error

	// Initialize adapters
	recognizer, translator, synthesizer, engineClosers, err := buildEngines(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize engines", zap.Error(err))
	}
	closers = append(closers, engineClosers...)

	sessionRepo, closer, err := buildSessionRepository(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize session storage", zap.Error(err))
	}
	if closer != nil {
		closers = append(closers, closer)
	}

	opts := []usecase.Option{usecase.WithLanguageDetector(langdetect.Detector{})}
	if cfg.DatabaseURL != "" {
		logRepo, err := postgres.NewTranslationLogRepository(ctx, cfg.DatabaseURL, postgres.Options{LogLevel: cfg.LogLevel}, logger)
		if err != nil {
			logger.Fatal("Failed to initialize translation log", zap.Error(err))
		}
		opts = append(opts, usecase.WithTranslationLog(logRepo))
		closers = append(closers, func(context.Context) error { return logRepo.Close() })
	} else {
		logger.Info("DATABASE_URL not set, translation log disabled")
	}

	var issuer *auth.Issuer
	if cfg.JWTSecret != "" {
		issuer, err = auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
		if err != nil {
			logger.Fatal("Failed to initialize token issuer", zap.Error(err))
		}
	} else {
		logger.Warn("JWT_SECRET not set, API authentication disabled")
	}

	// Initialize usecase services
	service := usecase.NewTranslationService(recognizer, translator, synthesizer, usecase.PipelineConfig{
		ChunkDuration:           cfg.ChunkDuration,
		ChunkOverlap:            cfg.ChunkOverlap,
		StageTimeout:            cfg.StageTimeout,
		MaxConcurrentStageCalls: cfg.MaxConcurrentStageCalls,
		MaxInFlightChunks:       cfg.MaxInFlightChunks,
		FlushTimeout:            cfg.FlushTimeout,
	}, logger, opts...)

	hub := websocket.NewHub(service, sessionRepo, cfg.MaxConcurrentSessions, logger)
	if origins := cfg.CORSAllowedOriginsList(); len(origins) > 0 {
		hub.SetCheckOrigin(originChecker(origins))
	}
	go hub.Run()

	cleanup := websocket.NewSessionCleanupService(sessionRepo, cfg.SessionTTL, cfg.SessionCleanupInterval, logger)
	cleanup.Start()

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.BodyLimit(maxRequestBody))
	e.Use(requestLogger(logger))
	if origins := cfg.CORSAllowedOriginsList(); len(origins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{AllowOrigins: origins}))
	} else {
		e.Use(middleware.CORS())
	}

	api.InitRoutes(e, api.Deps{
		Service:  service,
		Hub:      hub,
		Sessions: sessionRepo,
		Issuer:   issuer,
		Version:  version,
		Logger:   logger,
	})

	// Graceful shutdown
	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Server started",
		zap.String("port", cfg.Port),
		zap.String("version", version),
		zap.String("asr", cfg.ASRProvider),
		zap.String("nmt", cfg.NMTProvider),
		zap.String("tts", cfg.TTSProvider))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.FlushTimeout+10*time.Second)
	defer cancel()

	if err := hub.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Streaming sessions did not finish in time", zap.Error(err))
	}
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	cleanup.Stop()
	if err := service.Close(shutdownCtx); err != nil {
		logger.Warn("Pipeline calls still running at exit", zap.Error(err))
	}
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](shutdownCtx); err != nil {
			logger.Warn("Failed to release resource", zap.Error(err))
		}
	}

	logger.Info("Server exited")
}

func buildEngines(ctx context.Context, cfg *config.Config, logger *zap.Logger) (
	repositories.SpeechToText,
	repositories.Translator,
	repositories.TextToSpeech,
	[]func(context.Context) error,
	error,
) {
	var (
		recognizer  repositories.SpeechToText
		translator  repositories.Translator
		synthesizer repositories.TextToSpeech
		closers     []func(context.Context) error
	)

	switch cfg.ASRProvider {
	case config.ProviderGoogle:
		google, err := stt.NewGoogleSpeechToText(ctx, stt.GoogleConfig{
			CredentialsFile:      cfg.GoogleCredentialsFile,
			AlternativeLanguages: []string{"es-ES", "fr-FR", "de-DE"},
		}, logger)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		recognizer = google
		closers = append(closers, func(context.Context) error { return google.Close() })
	default:
		recognizer = stt.NewStubSpeechToText(stt.DefaultStubConfig(), logger)
	}

	switch cfg.NMTProvider {
	case config.ProviderGemini:
		gemini, err := llm.NewGeminiTranslator(ctx, llm.GeminiConfig{
			APIKey: cfg.GeminiAPIKey,
			Model:  cfg.GeminiModel,
		}, logger)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		translator = gemini
	default:
		translator = llm.NewStubTranslator(llm.DefaultStubConfig())
	}

	switch cfg.TTSProvider {
	case config.ProviderElevenLabs:
		elevenLabs, err := tts.NewElevenLabsTTS(tts.ElevenLabsConfig{
			APIKey:  cfg.ElevenLabsAPIKey,
			VoiceID: cfg.ElevenLabsVoiceID,
			ModelID: cfg.ElevenLabsModelID,
		}, logger)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		synthesizer = elevenLabs
	default:
		synthesizer = tts.NewStubTextToSpeech(tts.DefaultStubConfig())
	}

	return recognizer, translator, synthesizer, closers, nil
}

func buildSessionRepository(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repositories.SessionRepository, func(context.Context) error, error) {
	if cfg.MongoURI == "" {
		logger.Info("MONGODB_URI not set, storing sessions in memory")
		return memory.NewSessionRepository(), nil, nil
	}

	client, err := mongo.NewClient(ctx, cfg.MongoURI, cfg.MongoDatabase, logger)
	if err != nil {
		return nil, nil, err
	}
	repo := mongo.NewSessionRepository(client.Database)
	if err := repo.EnsureIndexes(ctx); err != nil {
		logger.Warn("Failed to ensure session indexes", zap.Error(err))
	}
	return repo, client.Close, nil
}

func originChecker(origins []string) func(r *http.Request) bool {
	allowed := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		allowed[origin] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
}

func requestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("requestID", v.RequestID),
			}
			if v.Error != nil {
				logger.Warn("request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			logger.Info("request", fields...)
			return nil
		},
	})
}
