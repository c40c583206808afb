package models

import "time"

// UsageRecord is one row of the append-only generation log. Records are
// inserted once and never updated; retention cleanup bulk-deletes them.
type UsageRecord struct {
	ID             int64     `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	Text           string    `json:"text"`            // bounded prefix of the request text
	CharacterCount int       `json:"character_count"` // length of the original, untruncated text
	VoiceID        string    `json:"voice_id"`
	ModelID        string    `json:"model_id"`
	Success        bool      `json:"success"`
	ErrorMessage   *string   `json:"error_message,omitempty"`
}

// UsageStats is a derived aggregate over a trailing window of days.
// Never persisted; recomputed from usage_records on demand.
type UsageStats struct {
	TotalRequests      int64        `json:"total_requests"`
	TotalCharacters    int64        `json:"total_characters"`
	SuccessfulRequests int64        `json:"successful_requests"`
	FailedRequests     int64        `json:"failed_requests"`
	MostUsedVoice      string       `json:"most_used_voice"`
	EstimatedCost      float64      `json:"estimated_cost"` // USD, per-model pricing
	DailyUsage         []DailyUsage `json:"daily_usage"`    // newest first
	ModelUsage         []ModelUsage `json:"model_usage"`    // heaviest first
}

// DailyUsage is one day's rollup inside UsageStats.
type DailyUsage struct {
	Date           string `json:"date"` // YYYY-MM-DD
	CharacterCount int64  `json:"character_count"`
	RequestCount   int64  `json:"request_count"`
}

// ModelUsage is one model's rollup inside UsageStats.
type ModelUsage struct {
	ModelID        string `json:"model_id"`
	CharacterCount int64  `json:"character_count"`
	RequestCount   int64  `json:"request_count"`
}

// AccountInfo is the cached single-row snapshot of account/usage status.
// A fresh fetch overwrites the previous snapshot entirely (upsert).
type AccountInfo struct {
	SubscriptionTier    string    `json:"subscription_tier"`
	CharacterLimit      int64     `json:"character_limit"` // -1 = unlimited (pay-per-use)
	CharactersUsed      int64     `json:"characters_used"`
	CharactersRemaining int64     `json:"characters_remaining"` // -1 = unlimited
	ResetDate           time.Time `json:"reset_date"`
	LastUpdated         time.Time `json:"last_updated"`
}
