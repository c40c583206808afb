package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/voxpipe/voxpipe/internal/models"
)

// RecordUsage appends one generation attempt and returns the assigned id.
// A zero timestamp is replaced with the insert time. Records are immutable
// once written.
func (db *DB) RecordUsage(ctx context.Context, record *models.UsageRecord) (int64, error) {
	timestamp := record.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}

	query := db.rebind(`
		INSERT INTO usage_records (timestamp, text, character_count, voice_id, model_id, success, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)

	var id int64
	err := db.QueryRowContext(ctx, query,
		db.bindTime(timestamp),
		record.Text,
		record.CharacterCount,
		record.VoiceID,
		record.ModelID,
		record.Success,
		record.ErrorMessage,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert usage record: %w", err)
	}

	record.ID = id
	record.Timestamp = timestamp
	return id, nil
}

// GetUsageRecords returns records newest-first, optionally restricted to a
// trailing window of days (days <= 0 disables the window).
func (db *DB) GetUsageRecords(ctx context.Context, limit, days int) ([]models.UsageRecord, error) {
	query := `
		SELECT id, timestamp, text, character_count, voice_id, model_id, success, error_message
		FROM usage_records
	`
	var args []interface{}
	if days > 0 {
		query += ` WHERE timestamp > ?`
		args = append(args, db.bindTime(time.Now().UTC().AddDate(0, 0, -days)))
	}
	query += ` ORDER BY timestamp DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.QueryContext(ctx, db.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage records: %w", err)
	}
	defer rows.Close()

	var records []models.UsageRecord
	for rows.Next() {
		var record models.UsageRecord
		var ts sql.NullString
		var errMsg sql.NullString

		err := rows.Scan(
			&record.ID, &ts, &record.Text, &record.CharacterCount,
			&record.VoiceID, &record.ModelID, &record.Success, &errMsg,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan usage record: %w", err)
		}

		if ts.Valid {
			if t, ok := parseTimeString(ts.String); ok {
				record.Timestamp = t
			}
		}
		if errMsg.Valid {
			msg := errMsg.String
			record.ErrorMessage = &msg
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// GetUsageStats aggregates the trailing window: totals, success/failure
// counts, most-used voice and per-day rollups (newest first). The
// most-used-voice tie-break is deterministic: higher count wins, then the
// voice that reached the ledger first. Empty string when no rows exist;
// callers substitute their provider's default voice.
func (db *DB) GetUsageStats(ctx context.Context, days int) (*models.UsageStats, error) {
	cutoff := db.bindTime(time.Now().UTC().AddDate(0, 0, -days))

	stats := &models.UsageStats{}

	totalsQuery := db.rebind(`
		SELECT
			COUNT(*),
			COALESCE(SUM(character_count), 0),
			COALESCE(SUM(CASE WHEN success THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN NOT success THEN 1 ELSE 0 END), 0)
		FROM usage_records
		WHERE timestamp > ?
	`)
	err := db.QueryRowContext(ctx, totalsQuery, cutoff).Scan(
		&stats.TotalRequests,
		&stats.TotalCharacters,
		&stats.SuccessfulRequests,
		&stats.FailedRequests,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage totals: %w", err)
	}

	voiceQuery := db.rebind(`
		SELECT voice_id
		FROM usage_records
		WHERE timestamp > ?
		GROUP BY voice_id
		ORDER BY COUNT(*) DESC, MIN(id) ASC
		LIMIT 1
	`)
	err = db.QueryRowContext(ctx, voiceQuery, cutoff).Scan(&stats.MostUsedVoice)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to query most used voice: %w", err)
	}

	modelQuery := db.rebind(`
		SELECT
			model_id,
			COALESCE(SUM(character_count), 0),
			COUNT(*)
		FROM usage_records
		WHERE timestamp > ?
		GROUP BY model_id
		ORDER BY SUM(character_count) DESC, model_id ASC
	`)

	modelRows, err := db.QueryContext(ctx, modelQuery, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query model usage: %w", err)
	}
	defer modelRows.Close()

	for modelRows.Next() {
		var m models.ModelUsage
		if err := modelRows.Scan(&m.ModelID, &m.CharacterCount, &m.RequestCount); err != nil {
			return nil, fmt.Errorf("failed to scan model usage: %w", err)
		}
		stats.ModelUsage = append(stats.ModelUsage, m)
	}
	if err := modelRows.Err(); err != nil {
		return nil, err
	}

	dailyQuery := db.rebind(fmt.Sprintf(`
		SELECT
			%s AS day,
			COALESCE(SUM(character_count), 0),
			COUNT(*)
		FROM usage_records
		WHERE timestamp > ?
		GROUP BY day
		ORDER BY day DESC
	`, db.dayExpr()))

	rows, err := db.QueryContext(ctx, dailyQuery, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily usage: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var day models.DailyUsage
		if err := rows.Scan(&day.Date, &day.CharacterCount, &day.RequestCount); err != nil {
			return nil, fmt.Errorf("failed to scan daily usage: %w", err)
		}
		stats.DailyUsage = append(stats.DailyUsage, day)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}

// CacheAccountInfo upserts the single-row account snapshot. A new fetch
// overwrites the previous one entirely.
func (db *DB) CacheAccountInfo(ctx context.Context, info *models.AccountInfo) error {
	query := db.rebind(`
		INSERT INTO account_info_cache
			(id, subscription_tier, character_limit, characters_used, characters_remaining, reset_date, last_updated)
		VALUES (1, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			subscription_tier = excluded.subscription_tier,
			character_limit = excluded.character_limit,
			characters_used = excluded.characters_used,
			characters_remaining = excluded.characters_remaining,
			reset_date = excluded.reset_date,
			last_updated = excluded.last_updated
	`)

	_, err := db.ExecContext(ctx, query,
		info.SubscriptionTier,
		info.CharacterLimit,
		info.CharactersUsed,
		info.CharactersRemaining,
		db.bindTime(info.ResetDate),
		db.bindTime(info.LastUpdated),
	)
	if err != nil {
		return fmt.Errorf("failed to cache account info: %w", err)
	}
	return nil
}

// GetCachedAccountInfo returns the stored snapshot, or nil when none has
// been cached yet.
func (db *DB) GetCachedAccountInfo(ctx context.Context) (*models.AccountInfo, error) {
	query := db.rebind(`
		SELECT subscription_tier, character_limit, characters_used, characters_remaining, reset_date, last_updated
		FROM account_info_cache
		WHERE id = 1
	`)

	var info models.AccountInfo
	var resetDate, lastUpdated sql.NullString

	err := db.QueryRowContext(ctx, query).Scan(
		&info.SubscriptionTier,
		&info.CharacterLimit,
		&info.CharactersUsed,
		&info.CharactersRemaining,
		&resetDate,
		&lastUpdated,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached account info: %w", err)
	}

	if resetDate.Valid {
		if t, ok := parseTimeString(resetDate.String); ok {
			info.ResetDate = t
		}
	}
	if lastUpdated.Valid {
		if t, ok := parseTimeString(lastUpdated.String); ok {
			info.LastUpdated = t
		}
	}

	return &info, nil
}

// PurgeOlderThan bulk-deletes records older than the retention window and
// returns how many were removed.
func (db *DB) PurgeOlderThan(ctx context.Context, days int) (int64, error) {
	query := db.rebind(`DELETE FROM usage_records WHERE timestamp < ?`)

	result, err := db.ExecContext(ctx, query, db.bindTime(time.Now().UTC().AddDate(0, 0, -days)))
	if err != nil {
		return 0, fmt.Errorf("failed to purge usage records: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count purged records: %w", err)
	}
	return removed, nil
}
