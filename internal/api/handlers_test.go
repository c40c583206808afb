package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/voxpipe/voxpipe/internal/services"
)

// ffmpegUnused never runs; handler tests stay single-chunk.
type ffmpegUnused struct{}

func (ffmpegUnused) Available() bool { return false }
func (ffmpegUnused) Concatenate(ctx context.Context, inputPaths []string, outputPath string) error {
	return nil
}

func newTestHandler(t *testing.T, tts http.HandlerFunc) (*Handler, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(tts)
	t.Cleanup(server.Close)

	profile := services.OpenAIProfile(server.URL)
	speech := services.NewSpeechService(profile, "test-key")
	assembler := services.NewAssembler(ffmpegUnused{}, t.TempDir())
	pipeline := services.NewPipeline(profile, speech, assembler, nil)

	return NewHandler(pipeline, nil, nil), server
}

func TestGenerateSpeechSuccess(t *testing.T) {
	h, _ := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("mp3-bytes"))
	})

	req := httptest.NewRequest("POST", "/v1/speech",
		strings.NewReader(`{"text": "Hello there.", "voice_id": "nova"}`))
	rec := httptest.NewRecorder()

	h.GenerateSpeech(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "audio/mpeg" {
		t.Errorf("expected audio/mpeg, got %q", ct)
	}
	if rec.Body.String() != "mp3-bytes" {
		t.Errorf("unexpected body: %q", rec.Body.String())
	}
}

func TestGenerateSpeechInvalidBody(t *testing.T) {
	h, _ := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no provider request expected")
	})

	req := httptest.NewRequest("POST", "/v1/speech", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()

	h.GenerateSpeech(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestGenerateSpeechValidationError(t *testing.T) {
	h, _ := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no provider request expected")
	})

	req := httptest.NewRequest("POST", "/v1/speech", strings.NewReader(`{"text": "  "}`))
	rec := httptest.NewRecorder()

	h.GenerateSpeech(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty text, got %d", rec.Code)
	}
}

func TestGenerateSpeechRateLimitMapping(t *testing.T) {
	h, _ := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "15")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	req := httptest.NewRequest("POST", "/v1/speech", strings.NewReader(`{"text": "Hello."}`))
	rec := httptest.NewRecorder()

	h.GenerateSpeech(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "15" {
		t.Errorf("expected Retry-After forwarded, got %q", got)
	}
}

func TestGenerateSpeechAuthErrorMapsToBadGateway(t *testing.T) {
	h, _ := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	req := httptest.NewRequest("POST", "/v1/speech", strings.NewReader(`{"text": "Hello."}`))
	rec := httptest.NewRecorder()

	h.GenerateSpeech(rec, req)

	// The broken provider credential is the server's problem, not the caller's.
	if rec.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", rec.Code)
	}
}

func TestEnqueueSpeechWithoutQueue(t *testing.T) {
	h, _ := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {})

	req := httptest.NewRequest("POST", "/v1/speech/async", strings.NewReader(`{"text": "Hello."}`))
	rec := httptest.NewRecorder()

	h.EnqueueSpeech(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 without a queue, got %d", rec.Code)
	}
}

func TestGetUsageStatsWithoutLedger(t *testing.T) {
	h, _ := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {})

	req := httptest.NewRequest("GET", "/v1/usage/stats", nil)
	rec := httptest.NewRecorder()

	h.GetUsageStats(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 without a ledger, got %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	h, _ := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {})

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()

	h.Health(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("unexpected health body: %v", body)
	}
}

func TestRouterProtectsV1Routes(t *testing.T) {
	h, _ := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {})
	router := NewRouter(h, RouterConfig{BackendAPIKey: "secret"})

	// No key: rejected.
	req := httptest.NewRequest("GET", "/v1/usage/history", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without key, got %d", rec.Code)
	}

	// Wrong key: rejected.
	req = httptest.NewRequest("GET", "/v1/usage/history", nil)
	req.Header.Set("X-API-Key", "wrong")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 with wrong key, got %d", rec.Code)
	}

	// Health stays public.
	req = httptest.NewRequest("GET", "/health", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected public health endpoint, got %d", rec.Code)
	}

	// Bearer fallback works.
	req = httptest.NewRequest("GET", "/v1/usage/history", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code == http.StatusUnauthorized || rec.Code == http.StatusForbidden {
		t.Errorf("expected bearer key accepted, got %d", rec.Code)
	}
}
