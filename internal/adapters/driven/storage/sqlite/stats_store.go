package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/arcanum-labs/grimoire/internal/core/domain"
	"github.com/arcanum-labs/grimoire/internal/core/ports/driven"
)

// statsStore implements driven.ModelStatsStore.
type statsStore struct {
	store *Store
}

var _ driven.ModelStatsStore = (*statsStore)(nil)

// LoadStats returns all persisted stats keyed by model name.
// An empty map means nothing has been persisted yet.
func (s *statsStore) LoadStats(ctx context.Context) (map[string]domain.ModelStats, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT model, success_count, failure_count, latency_ewma_ms, last_invoked_at
		FROM model_stats
	`)
	if err != nil {
		return nil, fmt.Errorf("querying model stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]domain.ModelStats)
	for rows.Next() {
		var model string
		var st domain.ModelStats
		var lastInvoked sql.NullString
		if err := rows.Scan(&model, &st.SuccessCount, &st.FailureCount,
			&st.LatencyEWMAMs, &lastInvoked); err != nil {
			return nil, fmt.Errorf("scanning model stats: %w", err)
		}
		st.LastInvokedAt = parseNullableTime(lastInvoked)
		stats[model] = st
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating model stats: %w", err)
	}

	return stats, nil
}

// SaveStats persists a stats snapshot, replacing any prior state for
// the named models. Rows for models not in the snapshot are untouched.
func (s *statsStore) SaveStats(ctx context.Context, stats map[string]domain.ModelStats) error {
	if len(stats) == 0 {
		return nil
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO model_stats (model, success_count, failure_count, latency_ewma_ms, last_invoked_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(model) DO UPDATE SET
			success_count = excluded.success_count,
			failure_count = excluded.failure_count,
			latency_ewma_ms = excluded.latency_ewma_ms,
			last_invoked_at = excluded.last_invoked_at
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for model, st := range stats {
		if _, err := stmt.ExecContext(ctx, model, st.SuccessCount, st.FailureCount,
			st.LatencyEWMAMs, formatNullableTime(st.LastInvokedAt)); err != nil {
			return fmt.Errorf("saving model stats: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// ==================== Helper Functions ====================

// formatNullableTime formats a time to RFC3339 string, or returns nil for zero time.
func formatNullableTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.Format(time.RFC3339)
}

// parseNullableTime parses a nullable RFC3339 string to time.Time.
// Returns zero time if the string is empty or invalid.
func parseNullableTime(s sql.NullString) time.Time {
	if !s.Valid || s.String == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s.String)
	if err != nil {
		return time.Time{} // Return zero time on parse error
	}
	return t
}
