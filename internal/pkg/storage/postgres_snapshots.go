package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Vodeneev/adnbet/internal/pkg/models"
)

// Ensure PostgresSnapshotStore implements SnapshotStore
var _ SnapshotStore = (*PostgresSnapshotStore)(nil)

// PostgresSnapshotStore persists decision snapshots as a JSONB payload plus the
// columns needed for reporting.
type PostgresSnapshotStore struct {
	db      *sqlx.DB
	timeout time.Duration
	retry   *Retrier
}

func NewPostgresSnapshotStore(db *sqlx.DB, timeout time.Duration, retry *Retrier) *PostgresSnapshotStore {
	return &PostgresSnapshotStore{db: db, timeout: timeout, retry: retry}
}

// Upsert writes snap unless the stored row carries the same or a newer source_data_version
func (s *PostgresSnapshotStore) Upsert(ctx context.Context, snap *models.DecisionSnapshot) (bool, error) {
	payload, err := json.Marshal(snap)
	if err != nil {
		return false, fmt.Errorf("failed to marshal snapshot %s: %w", snap.MatchID, err)
	}

	query := `
		INSERT INTO decision_snapshots
		(snapshot_id, match_id, source_data_version, decision, reason, final_market,
		 final_odds, final_stake, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (match_id) DO UPDATE SET
			snapshot_id = EXCLUDED.snapshot_id,
			source_data_version = EXCLUDED.source_data_version,
			decision = EXCLUDED.decision,
			reason = EXCLUDED.reason,
			final_market = EXCLUDED.final_market,
			final_odds = EXCLUDED.final_odds,
			final_stake = EXCLUDED.final_stake,
			payload = EXCLUDED.payload,
			created_at = EXCLUDED.created_at
		WHERE decision_snapshots.source_data_version < EXCLUDED.source_data_version
		RETURNING snapshot_id`

	var written bool
	err = s.retry.Do(ctx, "UpsertSnapshot", func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		var id string
		err := s.db.QueryRowxContext(ctx, query,
			snap.SnapshotID, snap.MatchID, snap.SourceDataVersion, string(snap.Decision),
			string(snap.Reason), string(snap.FinalMarket), nullFloat(snap.FinalOdds), nullFloat(snap.FinalStake),
			jsonb(payload), snap.CreatedAt.UTC()).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			written = false
			return nil
		}
		if err != nil {
			return err
		}
		written = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to upsert snapshot %s: %w", snap.MatchID, err)
	}
	return written, nil
}

// Get returns the snapshot recorded for a match, or nil
func (s *PostgresSnapshotStore) Get(ctx context.Context, matchID string) (*models.DecisionSnapshot, error) {
	query := `SELECT payload FROM decision_snapshots WHERE match_id = $1`

	var payload jsonb
	err := s.retry.Do(ctx, "GetSnapshot", func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		payload = nil
		err := s.db.QueryRowxContext(ctx, query, matchID).Scan(&payload)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot %s: %w", matchID, err)
	}
	if len(payload) == 0 {
		return nil, nil
	}

	var snap models.DecisionSnapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", matchID, err)
	}
	return &snap, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
