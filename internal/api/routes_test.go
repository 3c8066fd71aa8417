package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/onewhat/server/adapters/llm"
	"github.com/onewhat/server/adapters/memory"
	"github.com/onewhat/server/adapters/stt"
	"github.com/onewhat/server/adapters/tts"
	"github.com/onewhat/server/domain/entities"
	"github.com/onewhat/server/internal/auth"
	"github.com/onewhat/server/internal/language"
	"github.com/onewhat/server/internal/websocket"
	"github.com/onewhat/server/usecase"
)

type testAPI struct {
	echo     *echo.Echo
	sessions *memory.SessionRepository
	issuer   *auth.Issuer
}

func setupAPI(t *testing.T, service *usecase.TranslationService, withAuth bool) *testAPI {
	t.Helper()
	logger := zap.NewNop()
	if service == nil {
		service = usecase.NewTranslationService(
			stt.NewStubSpeechToText(stt.DefaultStubConfig(), logger),
			llm.NewStubTranslator(llm.DefaultStubConfig()),
			tts.NewStubTextToSpeech(tts.DefaultStubConfig()),
			usecase.DefaultPipelineConfig(),
			logger,
		)
	}

	var issuer *auth.Issuer
	if withAuth {
		var err error
		issuer, err = auth.NewIssuer("test-secret", time.Hour)
		if err != nil {
			t.Fatalf("NewIssuer: %v", err)
		}
	}

	sessions := memory.NewSessionRepository()
	hub := websocket.NewHub(service, sessions, 2, logger)
	go hub.Run()
	t.Cleanup(func() { _ = hub.Shutdown(context.Background()) })

	e := echo.New()
	InitRoutes(e, Deps{
		Service:  service,
		Hub:      hub,
		Sessions: sessions,
		Issuer:   issuer,
		Version:  "test",
		Logger:   logger,
	})
	return &testAPI{echo: e, sessions: sessions, issuer: issuer}
}

func (a *testAPI) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	a.echo.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return v
}

func speechJSON(n int) string {
	values := make([]string, n)
	for i := range values {
		values[i] = "0.5"
	}
	return "[" + strings.Join(values, ",") + "]"
}

func TestHealth(t *testing.T) {
	api := setupAPI(t, nil, true)

	for _, path := range []string{"/", "/health"} {
		rec := api.do(t, http.MethodGet, path, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rec.Code)
		}
		resp := decode[HealthResponse](t, rec)
		if resp.Status != "ok" || resp.Version != "test" {
			t.Errorf("%s: unexpected body %+v", path, resp)
		}
	}
}

func TestLanguages(t *testing.T) {
	api := setupAPI(t, nil, false)

	rec := api.do(t, http.MethodGet, "/api/v1/languages", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decode[LanguagesResponse](t, rec)
	if resp.Total != len(resp.SupportedLanguages) || resp.Total != len(language.SupportedCodes()) {
		t.Errorf("total %d does not match codes %v", resp.Total, resp.SupportedLanguages)
	}
}

func TestTranslate(t *testing.T) {
	api := setupAPI(t, nil, false)

	body := `{"audio":` + speechJSON(1600) + `,"sample_rate":16000,"source_lang":"en","target_lang":"es"}`
	rec := api.do(t, http.MethodPost, "/api/v1/translate", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	resp := decode[entities.TranslationResponse](t, rec)
	if resp.Transcription == "" || !strings.HasPrefix(resp.Translation, "[spa_Latn]") {
		t.Errorf("unexpected response: %+v", resp)
	}
	if resp.SourceLang != "en" || resp.TargetLang != "es" {
		t.Errorf("unexpected languages %s -> %s", resp.SourceLang, resp.TargetLang)
	}
	for _, stage := range entities.Stages {
		if _, ok := resp.StageLatency[string(stage)]; !ok {
			t.Errorf("missing latency for stage %s", stage)
		}
	}
	if resp.LatencyMs < resp.StageSumMs {
		t.Errorf("total latency %f below stage sum %f", resp.LatencyMs, resp.StageSumMs)
	}
}

func TestTranslate_Errors(t *testing.T) {
	logger := zap.NewNop()
	failing := usecase.NewTranslationService(
		stt.NewStubSpeechToText(stt.DefaultStubConfig(), logger),
		llm.NewStubTranslator(llm.StubConfig{Err: errors.New("quota exceeded")}),
		tts.NewStubTextToSpeech(tts.DefaultStubConfig()),
		usecase.DefaultPipelineConfig(),
		logger,
	)
	noSynth := usecase.NewTranslationService(
		stt.NewStubSpeechToText(stt.DefaultStubConfig(), logger),
		llm.NewStubTranslator(llm.DefaultStubConfig()),
		nil,
		usecase.DefaultPipelineConfig(),
		logger,
	)

	valid := `{"audio":` + speechJSON(160) + `,"sample_rate":16000,"target_lang":"es"}`

	tests := []struct {
		name      string
		service   *usecase.TranslationService
		body      string
		wantCode  int
		wantError string
		wantStage string
	}{
		{"malformed body", nil, `{"audio":`, http.StatusBadRequest, "invalid_request", ""},
		{"empty audio", nil, `{"audio":[],"sample_rate":16000,"target_lang":"es"}`, http.StatusBadRequest, "invalid_request", ""},
		{"zero sample rate", nil, `{"audio":[0.5],"sample_rate":0,"target_lang":"es"}`, http.StatusBadRequest, "invalid_request", ""},
		{"stage failure", failing, valid, http.StatusBadGateway, "stage_failed", "nmt"},
		{"uninitialized", noSynth, valid, http.StatusServiceUnavailable, "pipeline_uninitialized", "tts"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := setupAPI(t, tt.service, false)
			rec := api.do(t, http.MethodPost, "/api/v1/translate", tt.body)
			if rec.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d: %s", tt.wantCode, rec.Code, rec.Body.String())
			}
			resp := decode[ErrorResponse](t, rec)
			if resp.Error != tt.wantError || resp.Stage != tt.wantStage {
				t.Errorf("unexpected error body: %+v", resp)
			}
		})
	}
}

func TestTranscribe(t *testing.T) {
	api := setupAPI(t, nil, false)

	rec := api.do(t, http.MethodPost, "/api/v1/transcribe",
		`{"audio":`+speechJSON(160)+`,"sample_rate":16000,"source_lang":"en"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	result := decode[entities.TranscriptionResult](t, rec)
	if result.Text == "" || result.Language != "en-US" {
		t.Errorf("unexpected transcription: %+v", result)
	}
}

func TestTranslateText(t *testing.T) {
	api := setupAPI(t, nil, false)

	rec := api.do(t, http.MethodPost, "/api/v1/translate/text",
		`{"texts":["Hello world.","This is a test."],"source_lang":"en","target_lang":"fr"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decode[TranslateTextResponse](t, rec)
	if len(resp.Translations) != 2 {
		t.Fatalf("expected 2 translations, got %d", len(resp.Translations))
	}
	if resp.Translations[0].Text != "Bonjour le monde." || resp.Translations[1].Text != "Ceci est un test." {
		t.Errorf("unexpected translations: %+v", resp.Translations)
	}

	rec = api.do(t, http.MethodPost, "/api/v1/translate/text", `{"texts":[],"target_lang":"fr"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty texts, got %d", rec.Code)
	}
}

func TestSessions(t *testing.T) {
	api := setupAPI(t, nil, false)

	rec := api.do(t, http.MethodGet, "/api/v1/sessions", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	active := decode[map[string]any](t, rec)
	if active["total"] != float64(0) {
		t.Errorf("expected no active sessions, got %v", active)
	}

	session := entities.NewStreamingSession("s-1", "client", "en", "es", 16000)
	if err := api.sessions.Create(context.Background(), session); err != nil {
		t.Fatalf("Create: %v", err)
	}

	rec = api.do(t, http.MethodGet, "/api/v1/sessions/s-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := decode[entities.StreamingSession](t, rec); got.ID != "s-1" || got.TargetLang != "es" {
		t.Errorf("unexpected session: %+v", got)
	}

	rec = api.do(t, http.MethodGet, "/api/v1/sessions/missing", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}

	rec = api.do(t, http.MethodGet, "/api/v1/sessions/history?limit=5", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if history := decode[map[string]any](t, rec); history["total"] != float64(1) {
		t.Errorf("expected 1 session in history, got %v", history)
	}

	rec = api.do(t, http.MethodGet, "/api/v1/sessions/history?limit=zero", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad limit, got %d", rec.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	api := setupAPI(t, nil, true)

	if rec := api.do(t, http.MethodGet, "/api/v1/languages", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rec.Code)
	}
	if rec := api.do(t, http.MethodGet, "/ws/translate", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 on websocket without token, got %d", rec.Code)
	}

	token, _, err := api.issuer.Issue("client-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	rec := api.do(t, http.MethodGet, "/api/v1/languages", "", "Authorization", "Bearer "+token)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 with token, got %d", rec.Code)
	}
}
