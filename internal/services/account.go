package services

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/voxpipe/voxpipe/internal/models"
)

// ---------------------------------------------------------------------------
// Account service
// Pay-per-use providers expose no subscription endpoint, so the snapshot is
// built from the local ledger's trailing 30-day character usage. The openai
// profile additionally verifies credentials against the provider's models
// endpoint; other providers have no OpenAI-compatible endpoint to check, so
// their snapshot is ledger-only. Each fetch fully overwrites the single-row
// cache.
// ---------------------------------------------------------------------------

const accountUsageWindowDays = 30

type AccountService struct {
	profile Profile
	client  *openai.Client // only used by the openai profile
	ledger  Ledger         // may be nil
}

func NewAccountService(profile Profile, apiKey string, ledger Ledger) *AccountService {
	cfg := openai.DefaultConfig(apiKey)
	if profile.BaseURL != "" && profile.BaseURL != openAIBaseURL {
		cfg.BaseURL = strings.TrimSuffix(profile.BaseURL, "/") + "/v1"
	}
	return &AccountService{
		profile: profile,
		client:  openai.NewClientWithConfig(cfg),
		ledger:  ledger,
	}
}

// GetAccountInfo builds the account snapshot, verifying credentials first
// when the profile supports it, and caches the result through the ledger.
// When the provider is unreachable the last cached snapshot is served
// instead; credential rejections always propagate.
func (s *AccountService) GetAccountInfo(ctx context.Context) (*models.AccountInfo, error) {
	if s.profile.Name == "openai" {
		if err := s.verifyCredentials(ctx); err != nil {
			if AsError(err).Kind == ErrAuthentication {
				return nil, err
			}
			// Provider unreachable: serve the last cached snapshot when one exists.
			if s.ledger != nil {
				if cached, cerr := s.ledger.GetCachedAccountInfo(ctx); cerr == nil && cached != nil {
					log.Printf("[Account] Provider unreachable (%v), serving snapshot cached at %s",
						err, cached.LastUpdated.Format(time.RFC3339))
					return cached, nil
				}
			}
			return nil, err
		}
	}

	var used int64
	if s.ledger != nil {
		stats, err := s.ledger.GetUsageStats(ctx, accountUsageWindowDays)
		if err != nil {
			log.Printf("[Account] Failed to load local usage: %v", err)
		} else {
			used = stats.TotalCharacters
		}
	}

	now := time.Now().UTC()
	info := &models.AccountInfo{
		SubscriptionTier:    "pay-per-use",
		CharacterLimit:      -1, // no provider-side cap
		CharactersUsed:      used,
		CharactersRemaining: -1,
		ResetDate:           now, // not applicable for pay-per-use
		LastUpdated:         now,
	}

	if s.ledger != nil {
		if err := s.ledger.CacheAccountInfo(ctx, info); err != nil {
			log.Printf("[Account] Failed to cache account info: %v", err)
		}
	}

	return info, nil
}

// verifyCredentials lists the provider's models through the OpenAI-shaped
// API, classifying a rejection as an authentication error.
func (s *AccountService) verifyCredentials(ctx context.Context) error {
	list, err := s.client.ListModels(ctx)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) &&
			(apiErr.HTTPStatusCode == http.StatusUnauthorized || apiErr.HTTPStatusCode == http.StatusForbidden) {
			return wrapError(ErrAuthentication, err, "provider rejected credentials")
		}
		return wrapError(ErrNetwork, err, "failed to query provider models")
	}

	ttsModels := 0
	for _, m := range list.Models {
		if strings.Contains(m.ID, "tts") {
			ttsModels++
		}
	}
	log.Printf("[Account] Credentials OK (%d models, %d speech-capable)", len(list.Models), ttsModels)
	return nil
}

// CachedAccountInfo returns the last stored snapshot without touching the
// network. Nil when nothing has been cached yet.
func (s *AccountService) CachedAccountInfo(ctx context.Context) (*models.AccountInfo, error) {
	if s.ledger == nil {
		return nil, newError(ErrStorage, "usage ledger is not configured")
	}
	info, err := s.ledger.GetCachedAccountInfo(ctx)
	if err != nil {
		return nil, wrapError(ErrStorage, err, "failed to load cached account info")
	}
	return info, nil
}
