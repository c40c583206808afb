package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"
)

// ---------------------------------------------------------------------------
// Speech client
// Issues one synthesis request per call against the configured provider
// profile and classifies every response into the TTS error taxonomy.
// Batching of chunks is the pipeline's job, never the client's.
// ---------------------------------------------------------------------------

const (
	maxSynthesisAttempts = 3
	baseRetryDelay       = 1 * time.Second
)

// SpeechService converts one piece of text into audio bytes.
type SpeechService struct {
	profile Profile
	apiKey  string
	client  *http.Client

	// sleep is swapped out in tests so retry timing is observable
	// without waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewSpeechService(profile Profile, apiKey string) *SpeechService {
	return &SpeechService{
		profile: profile,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: profile.RequestTimeout},
		sleep:   sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// openAISpeechRequest is the body for voice-in-body providers.
type openAISpeechRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	ResponseFormat string `json:"response_format"`
}

// pathVoiceSpeechRequest is the body for voice-in-path providers.
type pathVoiceSpeechRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id"`
}

// Synthesize sends a single synthesis request. Empty voice or model fall
// back to the profile defaults. The response is classified into the error
// taxonomy; the audio bytes are returned untouched.
func (s *SpeechService) Synthesize(ctx context.Context, text, voiceID, modelID string) ([]byte, error) {
	if voiceID == "" {
		voiceID = s.profile.DefaultVoice
	}
	if modelID == "" {
		modelID = s.profile.DefaultModel
	}

	var url string
	var body interface{}
	if s.profile.VoiceInPath {
		url = fmt.Sprintf("%s%s/%s?output_format=%s",
			s.profile.BaseURL, s.profile.SpeechPath, voiceID, s.profile.OutputFormat)
		body = pathVoiceSpeechRequest{Text: text, ModelID: modelID}
	} else {
		url = s.profile.BaseURL + s.profile.SpeechPath
		body = openAISpeechRequest{
			Model:          modelID,
			Input:          text,
			Voice:          voiceID,
			ResponseFormat: s.profile.OutputFormat,
		}
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, wrapError(ErrUnknown, err, "failed to marshal synthesis request")
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, wrapError(ErrNetwork, err, "failed to create synthesis request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(s.profile.AuthHeader, s.profile.AuthScheme+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, wrapError(ErrNetwork, err, "synthesis request failed")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, wrapError(ErrNetwork, err, "failed to read synthesis response")
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		if len(respBody) == 0 {
			return nil, newError(ErrUnknown, "%s returned empty audio", s.profile.Name)
		}
		return respBody, nil

	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		e := newError(ErrAuthentication, "%s", string(respBody))
		e.StatusCode = resp.StatusCode
		return nil, e

	case resp.StatusCode == http.StatusTooManyRequests:
		e := newError(ErrRateLimit, "%s", string(respBody))
		e.StatusCode = resp.StatusCode
		if v := resp.Header.Get("Retry-After"); v != "" {
			if seconds, perr := strconv.Atoi(v); perr == nil {
				e.RetryAfter = &seconds
			}
		}
		return nil, e

	case resp.StatusCode >= http.StatusInternalServerError:
		e := newError(ErrNetwork, "%s returned status %d: %s", s.profile.Name, resp.StatusCode, string(respBody))
		e.StatusCode = resp.StatusCode
		return nil, e

	default:
		e := newError(ErrUnknown, "HTTP %d: %s", resp.StatusCode, string(respBody))
		e.StatusCode = resp.StatusCode
		return nil, e
	}
}

// SynthesizeWithRetry wraps Synthesize with bounded exponential backoff:
// at most 3 attempts, delays doubling from 1s. Authentication and
// rate-limit failures are returned on first occurrence; once attempts are
// exhausted the last error comes back verbatim.
func (s *SpeechService) SynthesizeWithRetry(ctx context.Context, text, voiceID, modelID string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < maxSynthesisAttempts; attempt++ {
		audio, err := s.Synthesize(ctx, text, voiceID, modelID)
		if err == nil {
			return audio, nil
		}
		lastErr = err

		if !AsError(err).Retryable() || attempt == maxSynthesisAttempts-1 {
			return nil, err
		}

		delay := baseRetryDelay << uint(attempt)
		log.Printf("[TTS] Attempt %d/%d failed (%v), retrying in %v", attempt+1, maxSynthesisAttempts, err, delay)
		if serr := s.sleep(ctx, delay); serr != nil {
			return nil, wrapError(ErrNetwork, serr, "synthesis cancelled")
		}
	}
	return nil, lastErr
}
