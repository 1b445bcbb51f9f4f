package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Vodeneev/adnbet/internal/pkg/models"
)

var (
	_ MatchHistory = (*PostgresMatchHistory)(nil)
	_ OddsSource   = (*PostgresOddsSource)(nil)
)

// PostgresMatchHistory reads match_results.
type PostgresMatchHistory struct {
	db      *sqlx.DB
	timeout time.Duration
	retry   *Retrier
}

func NewPostgresMatchHistory(db *sqlx.DB, timeout time.Duration, retry *Retrier) *PostgresMatchHistory {
	return &PostgresMatchHistory{db: db, timeout: timeout, retry: retry}
}

// LastFinishedBefore returns the most recent finished match of team in [since, before).
// Team names are compared after lowercasing and collapsing whitespace.
func (h *PostgresMatchHistory) LastFinishedBefore(ctx context.Context, team string, before, since time.Time) (*models.MatchResult, error) {
	query := `
		SELECT match_id, commence_time, home_team, away_team, home_goals, away_goals, league, is_finished
		FROM match_results
		WHERE is_finished
		  AND commence_time < $2
		  AND commence_time >= $3
		  AND ($1 = lower(regexp_replace(trim(home_team), '\s+', ' ', 'g'))
		       OR $1 = lower(regexp_replace(trim(away_team), '\s+', ' ', 'g')))
		ORDER BY commence_time DESC, match_id ASC
		LIMIT 1`

	var result *models.MatchResult
	err := h.retry.Do(ctx, "LastFinishedBefore", func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, h.timeout)
		defer cancel()

		var row models.MatchResult
		err := h.db.QueryRowxContext(ctx, query, models.NormalizeName(team), before.UTC(), since.UTC()).StructScan(&row)
		if errors.Is(err, sql.ErrNoRows) {
			result = nil
			return nil
		}
		if err != nil {
			return err
		}
		result = &row
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query last match of %s: %w", team, err)
	}
	return result, nil
}

// PostgresOddsSource reads odds_history. The latest row per (match, market) wins.
type PostgresOddsSource struct {
	db      *sqlx.DB
	timeout time.Duration
	retry   *Retrier
}

func NewPostgresOddsSource(db *sqlx.DB, timeout time.Duration, retry *Retrier) *PostgresOddsSource {
	return &PostgresOddsSource{db: db, timeout: timeout, retry: retry}
}

// ScheduledMatches lists fixtures announced with from <= commence_time < to, using the
// most recently recorded schedule of each source match.
func (o *PostgresOddsSource) ScheduledMatches(ctx context.Context, from, to time.Time) ([]models.ScheduledMatch, error) {
	query := `
		SELECT match_id, home_team, away_team, commence_time
		FROM (
			SELECT DISTINCT ON (match_id) match_id, home_team, away_team, commence_time
			FROM odds_history
			ORDER BY match_id, recorded_at DESC
		) latest
		WHERE commence_time >= $1 AND commence_time < $2
		ORDER BY commence_time, match_id`

	var matches []models.ScheduledMatch
	err := o.retry.Do(ctx, "ScheduledMatches", func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, o.timeout)
		defer cancel()
		matches = nil
		return o.db.SelectContext(ctx, &matches, query, from.UTC(), to.UTC())
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list scheduled matches: %w", err)
	}
	return matches, nil
}

// LatestOdds returns the latest quote per market for one source match
func (o *PostgresOddsSource) LatestOdds(ctx context.Context, sourceMatchID string) (map[string]float64, error) {
	query := `
		SELECT DISTINCT ON (market) market, odds
		FROM odds_history
		WHERE match_id = $1
		ORDER BY market, recorded_at DESC`

	var rows []struct {
		Market string  `db:"market"`
		Odds   float64 `db:"odds"`
	}
	err := o.retry.Do(ctx, "LatestOdds", func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, o.timeout)
		defer cancel()
		rows = nil
		return o.db.SelectContext(ctx, &rows, query, sourceMatchID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load odds for %s: %w", sourceMatchID, err)
	}

	out := make(map[string]float64, len(rows))
	for _, r := range rows {
		out[r.Market] = r.Odds
	}
	return out, nil
}
