package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/voxpipe/voxpipe/internal/models"
	"github.com/voxpipe/voxpipe/internal/queue"
	"github.com/voxpipe/voxpipe/internal/services"
)

type Handler struct {
	pipeline *services.Pipeline
	account  *services.AccountService
	queue    *queue.Queue // nil = async path disabled
}

func NewHandler(pipeline *services.Pipeline, account *services.AccountService, q *queue.Queue) *Handler {
	return &Handler{
		pipeline: pipeline,
		account:  account,
		queue:    q,
	}
}

type speechRequest struct {
	Text    string `json:"text"`
	VoiceID string `json:"voice_id,omitempty"`
	ModelID string `json:"model_id,omitempty"` // empty = profile default model
}

// GenerateSpeech handles POST /v1/speech: runs the full pipeline and
// returns the combined audio stream. Never returns partial audio alongside
// an error.
func (h *Handler) GenerateSpeech(w http.ResponseWriter, r *http.Request) {
	var req speechRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	audio, err := h.pipeline.GenerateWithModel(r.Context(), req.Text, req.VoiceID, req.ModelID)
	if err != nil {
		respondTTSError(w, err)
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(audio)))
	w.WriteHeader(http.StatusOK)
	w.Write(audio)
}

// EnqueueSpeech handles POST /v1/speech/async: validates up front, queues
// the job and returns its id. The worker writes <id>.mp3 when done.
func (h *Handler) EnqueueSpeech(w http.ResponseWriter, r *http.Request) {
	if h.queue == nil {
		respondError(w, http.StatusServiceUnavailable, "Async generation is not configured")
		return
	}

	var req speechRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	profile := h.pipeline.Profile()
	if err := profile.ValidateText(req.Text); err != nil {
		respondTTSError(w, err)
		return
	}
	if req.VoiceID != "" && !profile.IsValidVoice(req.VoiceID) {
		respondError(w, http.StatusBadRequest, "Unsupported voice")
		return
	}

	id, err := h.queue.EnqueueSynthesize(r.Context(), req.Text, req.VoiceID, req.ModelID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to enqueue job")
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]string{"job_id": id.String()})
}

// GetAccountInfo handles GET /v1/account.
func (h *Handler) GetAccountInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.account.GetAccountInfo(r.Context())
	if err != nil {
		respondTTSError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, info)
}

// GetUsageStats handles GET /v1/usage/stats?days=30.
func (h *Handler) GetUsageStats(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", 30)
	stats, err := h.pipeline.GetUsageStats(r.Context(), days)
	if err != nil {
		respondTTSError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// GetUsageHistory handles GET /v1/usage/history?limit=50&days=.
func (h *Handler) GetUsageHistory(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	days := queryInt(r, "days", 0) // 0 = no trailing window

	records, err := h.pipeline.GetUsageHistory(r.Context(), limit, days)
	if err != nil {
		respondTTSError(w, err)
		return
	}
	if records == nil {
		records = []models.UsageRecord{}
	}
	respondJSON(w, http.StatusOK, records)
}

func queryInt(r *http.Request, key string, defaultValue int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

// respondTTSError maps the error taxonomy onto HTTP statuses. Provider
// authentication failures surface as 502: the broken credential is ours,
// not the caller's.
func respondTTSError(w http.ResponseWriter, err error) {
	e := services.AsError(err)
	status := http.StatusBadGateway
	switch e.Kind {
	case services.ErrValidation:
		status = http.StatusBadRequest
	case services.ErrRateLimit:
		status = http.StatusTooManyRequests
		if e.RetryAfter != nil {
			w.Header().Set("Retry-After", strconv.Itoa(*e.RetryAfter))
		}
	case services.ErrStorage:
		status = http.StatusServiceUnavailable
	}
	respondError(w, status, e.Error())
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// Health check
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
