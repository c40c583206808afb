package services

import (
	"context"
	"log"
	"time"

	"github.com/voxpipe/voxpipe/internal/models"
)

// ---------------------------------------------------------------------------
// Pipeline
// Composes validator, chunker, speech client, assembler and ledger:
// validate -> chunk -> (per chunk: synthesize with retry -> record) ->
// assemble. Chunks are synthesized sequentially, in order, so the output
// can be assembled without re-sorting and the provider is never hammered
// by parallel requests from one call.
// ---------------------------------------------------------------------------

// Ledger is the usage-store contract the pipeline needs. It is an optional
// capability: a nil ledger turns recording into a no-op and makes query
// operations return an explicit storage error.
type Ledger interface {
	RecordUsage(ctx context.Context, record *models.UsageRecord) (int64, error)
	GetUsageRecords(ctx context.Context, limit, days int) ([]models.UsageRecord, error)
	GetUsageStats(ctx context.Context, days int) (*models.UsageStats, error)
	CacheAccountInfo(ctx context.Context, info *models.AccountInfo) error
	GetCachedAccountInfo(ctx context.Context) (*models.AccountInfo, error)
	PurgeOlderThan(ctx context.Context, days int) (int64, error)
}

const (
	// chunkPacingDelay spaces out per-chunk requests to reduce provider-side
	// throttling. Not needed for correctness.
	chunkPacingDelay = 200 * time.Millisecond

	// storedTextLimit bounds the text prefix kept in usage records.
	storedTextLimit = 100
)

type Pipeline struct {
	profile   Profile
	speech    *SpeechService
	assembler *Assembler
	ledger    Ledger // may be nil

	pacing time.Duration
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewPipeline(profile Profile, speech *SpeechService, assembler *Assembler, ledger Ledger) *Pipeline {
	return &Pipeline{
		profile:   profile,
		speech:    speech,
		assembler: assembler,
		ledger:    ledger,
		pacing:    chunkPacingDelay,
		sleep:     sleepContext,
	}
}

// Profile returns the provider profile the pipeline runs against.
func (p *Pipeline) Profile() Profile {
	return p.profile
}

// Generate converts text to speech with the profile's default model.
func (p *Pipeline) Generate(ctx context.Context, text, voiceID string) ([]byte, error) {
	return p.GenerateWithModel(ctx, text, voiceID, "")
}

// GenerateWithModel runs one full generation call. Every chunk's attempt,
// success or failure, is recorded in the ledger before the next chunk
// starts, so partial progress stays observable. A chunk whose retried
// synthesis ultimately fails aborts the call with that chunk's error;
// earlier segments and their ledger rows are retained (no rollback).
func (p *Pipeline) GenerateWithModel(ctx context.Context, text, voiceID, modelID string) ([]byte, error) {
	if voiceID == "" {
		voiceID = p.profile.DefaultVoice
	}
	if modelID == "" {
		modelID = p.profile.DefaultModel
	}

	if err := p.profile.ValidateText(text); err != nil {
		return nil, err
	}
	if !p.profile.IsValidVoice(voiceID) {
		return nil, newError(ErrValidation, "unsupported voice %q", voiceID)
	}

	working := text
	if len([]rune(text)) > p.profile.ChunkSize && !p.assembler.Available() {
		// Concatenation tool missing: degrade to the first chunk's worth of
		// text instead of failing the whole call. The truncation is the
		// documented availability-over-completeness tradeoff, never silent.
		first := SplitText(text, p.profile.ChunkSize)[0]
		log.Printf("[Pipeline] WARNING: concat tool unavailable, truncating %d chars to first %d",
			len([]rune(text)), len([]rune(first.Text)))
		working = first.Text
	}

	chunks := SplitText(working, p.profile.ChunkSize)
	if len(chunks) == 0 {
		return nil, newError(ErrValidation, "no valid text chunks found")
	}

	if len(chunks) > 1 {
		log.Printf("[Pipeline] Split %d chars into %d chunks", len([]rune(working)), len(chunks))
	}

	segments := make([][]byte, 0, len(chunks))
	for _, chunk := range chunks {
		if chunk.Index > 0 {
			if err := p.sleep(ctx, p.pacing); err != nil {
				return nil, wrapError(ErrNetwork, err, "generation cancelled")
			}
		}

		log.Printf("[Pipeline] Synthesizing chunk %d of %d (%d chars)",
			chunk.Index+1, len(chunks), len([]rune(chunk.Text)))

		audio, err := p.speech.SynthesizeWithRetry(ctx, chunk.Text, voiceID, modelID)
		p.recordAttempt(ctx, chunk.Text, voiceID, modelID, err)
		if err != nil {
			return nil, err
		}
		segments = append(segments, audio)
	}

	return p.assembler.Assemble(ctx, segments)
}

// recordAttempt appends one ledger row for a chunk's synthesis attempt.
// Ledger failures are logged, never returned: a missing usage row must not
// discard generated audio or mask the synthesis error being recorded.
func (p *Pipeline) recordAttempt(ctx context.Context, text, voiceID, modelID string, synthErr error) {
	if p.ledger == nil {
		return
	}

	record := &models.UsageRecord{
		Text:           truncateForStorage(text),
		CharacterCount: CountCharacters(text),
		VoiceID:        voiceID,
		ModelID:        modelID,
		Success:        synthErr == nil,
	}
	if synthErr != nil {
		msg := synthErr.Error()
		record.ErrorMessage = &msg
	}

	if _, err := p.ledger.RecordUsage(ctx, record); err != nil {
		log.Printf("[Pipeline] Failed to record usage: %v", err)
	}
}

// truncateForStorage bounds the request text kept per record, marking the
// cut with a trailing ellipsis. The record's character count still refers
// to the original text.
func truncateForStorage(text string) string {
	runes := []rune(text)
	if len(runes) <= storedTextLimit {
		return text
	}
	return string(runes[:storedTextLimit-3]) + "..."
}

// GetUsageStats aggregates the trailing window, pricing each model's
// characters separately. With no usage yet, the most-used voice defaults
// to the profile's primary voice.
func (p *Pipeline) GetUsageStats(ctx context.Context, days int) (*models.UsageStats, error) {
	if p.ledger == nil {
		return nil, newError(ErrStorage, "usage ledger is not configured")
	}
	stats, err := p.ledger.GetUsageStats(ctx, days)
	if err != nil {
		return nil, wrapError(ErrStorage, err, "failed to load usage stats")
	}
	if stats.MostUsedVoice == "" {
		stats.MostUsedVoice = p.profile.DefaultVoice
	}
	for _, m := range stats.ModelUsage {
		stats.EstimatedCost += EstimateCost(m.CharacterCount, m.ModelID)
	}
	return stats, nil
}

// GetUsageHistory returns the newest records first, optionally limited to
// a trailing window of days (days <= 0 means no window).
func (p *Pipeline) GetUsageHistory(ctx context.Context, limit, days int) ([]models.UsageRecord, error) {
	if p.ledger == nil {
		return nil, newError(ErrStorage, "usage ledger is not configured")
	}
	records, err := p.ledger.GetUsageRecords(ctx, limit, days)
	if err != nil {
		return nil, wrapError(ErrStorage, err, "failed to load usage history")
	}
	return records, nil
}

// PurgeUsage removes records older than the retention window and reports
// how many were deleted.
func (p *Pipeline) PurgeUsage(ctx context.Context, days int) (int64, error) {
	if p.ledger == nil {
		return 0, newError(ErrStorage, "usage ledger is not configured")
	}
	removed, err := p.ledger.PurgeOlderThan(ctx, days)
	if err != nil {
		return 0, wrapError(ErrStorage, err, "failed to purge usage records")
	}
	return removed, nil
}
