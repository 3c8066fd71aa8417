package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/onewhat/server/domain"
	"github.com/onewhat/server/domain/entities"
	"github.com/onewhat/server/domain/repositories"
	"github.com/onewhat/server/internal/auth"
	"github.com/onewhat/server/internal/language"
	"github.com/onewhat/server/internal/websocket"
)

const defaultSessionListLimit = 50

// PipelineService is the orchestrator surface the HTTP API exposes
type PipelineService interface {
	Translate(ctx context.Context, req entities.TranslationRequest) (entities.TranslationResponse, error)
	Transcribe(ctx context.Context, audio []float32, sampleRate int, sourceLang string) (entities.TranscriptionResult, error)
	TranslateText(ctx context.Context, texts []string, sourceLang, targetLang string) ([]entities.TranslationResult, error)
}

// Deps are the collaborators the routes need. Issuer may be nil to disable auth.
type Deps struct {
	Service  PipelineService
	Hub      *websocket.Hub
	Sessions repositories.SessionRepository
	Issuer   *auth.Issuer
	Version  string
	Logger   *zap.Logger
}

type handler struct {
	Deps
}

// InitRoutes initializes all API routes
func InitRoutes(e *echo.Echo, deps Deps) {
	h := &handler{Deps: deps}
	requireToken := auth.Middleware(deps.Issuer, deps.Logger)

	e.GET("/", h.health)
	e.GET("/health", h.health)

	v1 := e.Group("/api/v1", requireToken)
	v1.GET("/languages", h.languages)
	v1.POST("/translate", h.translate)
	v1.POST("/transcribe", h.transcribe)
	v1.POST("/translate/text", h.translateText)
	v1.GET("/sessions", h.activeSessions)
	v1.GET("/sessions/history", h.sessionHistory)
	v1.GET("/sessions/:id", h.session)

	e.GET("/ws/translate", h.streamSession, requireToken)
}

func (h *handler) health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok", Version: h.Version})
}

func (h *handler) languages(c echo.Context) error {
	codes := language.SupportedCodes()
	return c.JSON(http.StatusOK, LanguagesResponse{
		SupportedLanguages: codes,
		Total:              len(codes),
	})
}

func (h *handler) translate(c echo.Context) error {
	var req entities.TranslationRequest
	if err := c.Bind(&req); err != nil {
		return h.badRequest(c, err)
	}

	resp, err := h.Service.Translate(c.Request().Context(), req)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *handler) transcribe(c echo.Context) error {
	var req TranscribeRequest
	if err := c.Bind(&req); err != nil {
		return h.badRequest(c, err)
	}

	result, err := h.Service.Transcribe(c.Request().Context(), req.Audio, req.SampleRate, req.SourceLang)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *handler) translateText(c echo.Context) error {
	var req TranslateTextRequest
	if err := c.Bind(&req); err != nil {
		return h.badRequest(c, err)
	}

	results, err := h.Service.TranslateText(c.Request().Context(), req.Texts, req.SourceLang, req.TargetLang)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, TranslateTextResponse{Translations: results})
}

func (h *handler) activeSessions(c echo.Context) error {
	sessions := []websocket.SessionInfo{}
	if h.Hub != nil {
		sessions = h.Hub.ActiveSessions()
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"sessions": sessions,
		"total":    len(sessions),
	})
}

func (h *handler) sessionHistory(c echo.Context) error {
	limit := defaultSessionListLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_request",
				Message: "limit must be a positive integer",
			})
		}
		limit = n
	}

	sessions, err := h.Sessions.List(c.Request().Context(), limit)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"sessions": sessions,
		"total":    len(sessions),
	})
}

func (h *handler) session(c echo.Context) error {
	session, err := h.Sessions.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, session)
}

func (h *handler) streamSession(c echo.Context) error {
	err := h.Hub.ServeSession(c.Response(), c.Request(), auth.ClientID(c))
	if errors.Is(err, websocket.ErrHubFull) {
		h.Logger.Warn("WebSocket connection rejected: hub full")
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error:   "too_many_sessions",
			Message: err.Error(),
		})
	}
	// Upgrade failures have already been answered by the upgrader
	return nil
}

func (h *handler) badRequest(c echo.Context, err error) error {
	h.Logger.Warn("Failed to bind request", zap.String("path", c.Path()), zap.Error(err))
	return c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   "invalid_request",
		Message: "Invalid request format",
	})
}

// writeError maps pipeline errors onto HTTP statuses
func (h *handler) writeError(c echo.Context, err error) error {
	var stageErr *domain.StageError
	var uninitErr *domain.UninitializedPipelineError

	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
	case errors.Is(err, domain.ErrSessionNotFound):
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: err.Error(),
		})
	case errors.As(err, &uninitErr):
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error:   domain.ErrorCodeUninitialized,
			Message: err.Error(),
			Stage:   string(uninitErr.Stage),
		})
	case errors.As(err, &stageErr):
		return c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   domain.ErrorCodeStage,
			Message: err.Error(),
			Stage:   string(stageErr.Stage),
		})
	default:
		h.Logger.Error("Request failed", zap.String("path", c.Path()), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   domain.ErrorCodeInternal,
			Message: "internal server error",
		})
	}
}
