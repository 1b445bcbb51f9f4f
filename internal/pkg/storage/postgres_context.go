package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Vodeneev/adnbet/internal/pkg/failure"
	"github.com/Vodeneev/adnbet/internal/pkg/models"
)

var (
	_ ContextStore = (*PostgresContextStore)(nil)
	_ ContextTx    = (*postgresContextTx)(nil)
)

// PostgresContextStore persists match_context rows. Team names are stored normalized.
type PostgresContextStore struct {
	db      *sqlx.DB
	timeout time.Duration
	retry   *Retrier
}

func NewPostgresContextStore(db *sqlx.DB, timeout time.Duration, retry *Retrier) *PostgresContextStore {
	return &PostgresContextStore{db: db, timeout: timeout, retry: retry}
}

type contextRow struct {
	MatchID           string       `db:"match_id"`
	HomeTeam          string       `db:"home_team"`
	AwayTeam          string       `db:"away_team"`
	CommenceTime      time.Time    `db:"commence_time"`
	Referee           string       `db:"referee"`
	HomeRest          jsonb        `db:"home_rest"`
	AwayRest          jsonb        `db:"away_rest"`
	CalculationStatus string       `db:"calculation_status"`
	SourceID          string       `db:"source_id"`
	LastCalculatedAt  sql.NullTime `db:"last_calculated_at"`
}

const contextColumns = `match_id, home_team, away_team, commence_time, referee, home_rest, away_rest,
		calculation_status, source_id, last_calculated_at`

func (r contextRow) toModel() (models.MatchContext, error) {
	mc := models.MatchContext{
		MatchID:           r.MatchID,
		HomeTeam:          r.HomeTeam,
		AwayTeam:          r.AwayTeam,
		CommenceTime:      r.CommenceTime.UTC(),
		Referee:           r.Referee,
		CalculationStatus: models.CalculationStatus(r.CalculationStatus),
		SourceID:          r.SourceID,
	}
	if r.LastCalculatedAt.Valid {
		t := r.LastCalculatedAt.Time.UTC()
		mc.LastCalculatedAt = &t
	}
	if len(r.HomeRest) > 0 {
		mc.HomeRest = &models.RestAnalysis{}
		if err := r.HomeRest.decodeInto(mc.HomeRest); err != nil {
			return mc, fmt.Errorf("match_context %s: decode home_rest: %w", r.MatchID, err)
		}
	}
	if len(r.AwayRest) > 0 {
		mc.AwayRest = &models.RestAnalysis{}
		if err := r.AwayRest.decodeInto(mc.AwayRest); err != nil {
			return mc, fmt.Errorf("match_context %s: decode away_rest: %w", r.MatchID, err)
		}
	}
	return mc, nil
}

func rowsToContexts(rows []contextRow) ([]models.MatchContext, error) {
	out := make([]models.MatchContext, 0, len(rows))
	for _, r := range rows {
		mc, err := r.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, mc)
	}
	return out, nil
}

// WithinTx runs fn in one transaction. The populator relies on it to commit a batch atomically.
func (s *PostgresContextStore) WithinTx(ctx context.Context, fn func(tx ContextTx) error) error {
	return s.retry.Do(ctx, "match_context.tx", func(ctx context.Context) error {
		tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
		if err != nil {
			return fmt.Errorf("begin: %w", err)
		}
		if err := fn(&postgresContextTx{tx: tx, timeout: s.timeout}); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				slog.Warn("match_context rollback failed", "error", rbErr)
			}
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
		return nil
	})
}

// Pending returns up to limit rows awaiting rest calculation
func (s *PostgresContextStore) Pending(ctx context.Context, limit int) ([]models.MatchContext, error) {
	query := `SELECT ` + contextColumns + `
		FROM match_context
		WHERE calculation_status = 'PENDING'
		ORDER BY commence_time, match_id
		LIMIT $1`
	var rows []contextRow
	err := s.retry.Do(ctx, "match_context.pending", func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		rows = nil
		return s.db.SelectContext(ctx, &rows, query, limit)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list pending match_context: %w", err)
	}
	return rowsToContexts(rows)
}

// Upcoming lists rows with from <= commence_time < to
func (s *PostgresContextStore) Upcoming(ctx context.Context, from, to time.Time) ([]models.MatchContext, error) {
	query := `SELECT ` + contextColumns + `
		FROM match_context
		WHERE commence_time >= $1 AND commence_time < $2
		ORDER BY commence_time, match_id`
	var rows []contextRow
	err := s.retry.Do(ctx, "match_context.upcoming", func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		rows = nil
		return s.db.SelectContext(ctx, &rows, query, from.UTC(), to.UTC())
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list upcoming match_context: %w", err)
	}
	return rowsToContexts(rows)
}

// Get returns one row, or nil
func (s *PostgresContextStore) Get(ctx context.Context, matchID string) (*models.MatchContext, error) {
	query := `SELECT ` + contextColumns + ` FROM match_context WHERE match_id = $1`
	var row *contextRow
	err := s.retry.Do(ctx, "match_context.get", func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		var r contextRow
		err := s.db.QueryRowxContext(ctx, query, matchID).StructScan(&r)
		if errors.Is(err, sql.ErrNoRows) {
			row = nil
			return nil
		}
		if err != nil {
			return err
		}
		row = &r
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get match_context %s: %w", matchID, err)
	}
	if row == nil {
		return nil, nil
	}
	mc, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &mc, nil
}

// SaveRest stores the rest analyses of one row
func (s *PostgresContextStore) SaveRest(ctx context.Context, matchID string, home, away *models.RestAnalysis, status models.CalculationStatus, at time.Time) error {
	homeJSON, err := toJSONB(home)
	if err != nil {
		return fmt.Errorf("failed to marshal home rest: %w", err)
	}
	awayJSON, err := toJSONB(away)
	if err != nil {
		return fmt.Errorf("failed to marshal away rest: %w", err)
	}

	query := `
		UPDATE match_context
		SET home_rest = $2, away_rest = $3, calculation_status = $4, last_calculated_at = $5
		WHERE match_id = $1`
	return s.retry.Do(ctx, "match_context.save_rest", func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		res, err := s.db.ExecContext(ctx, query, matchID, homeJSON, awayJSON, string(status), at.UTC())
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return failure.Errorf(failure.KindMissingInput, "SaveRest", "match_context %s not found", matchID)
		}
		return nil
	})
}

type postgresContextTx struct {
	tx      *sqlx.Tx
	timeout time.Duration
}

// FindNear returns the closest row for (home, away) within tolerance of around
func (t *postgresContextTx) FindNear(ctx context.Context, home, away string, around time.Time, tolerance time.Duration) (*models.MatchContext, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	query := `SELECT ` + contextColumns + `
		FROM match_context
		WHERE home_team = $1 AND away_team = $2
		  AND commence_time BETWEEN $3 AND $4
		ORDER BY abs(extract(epoch FROM (commence_time - $5))), match_id
		LIMIT 1
		FOR UPDATE`

	var r contextRow
	err := t.tx.QueryRowxContext(ctx, query,
		models.NormalizeName(home), models.NormalizeName(away),
		around.Add(-tolerance).UTC(), around.Add(tolerance).UTC(), around.UTC()).StructScan(&r)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	mc, err := r.toModel()
	if err != nil {
		return nil, err
	}
	return &mc, nil
}

// Insert adds a new PENDING row; an existing match_id is left untouched
func (t *postgresContextTx) Insert(ctx context.Context, mc *models.MatchContext) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	query := `
		INSERT INTO match_context (match_id, home_team, away_team, commence_time, referee, calculation_status, source_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (match_id) DO NOTHING`
	_, err := t.tx.ExecContext(ctx, query,
		mc.MatchID, models.NormalizeName(mc.HomeTeam), models.NormalizeName(mc.AwayTeam),
		mc.CommenceTime.UTC(), mc.Referee, string(models.CalculationPending), mc.SourceID)
	return err
}

// Reschedule moves a row to a new commence time; its rest must be recomputed
func (t *postgresContextTx) Reschedule(ctx context.Context, matchID string, commence time.Time, sourceID string) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	query := `
		UPDATE match_context
		SET commence_time = $2, source_id = $3, calculation_status = $4,
		    home_rest = NULL, away_rest = NULL, last_calculated_at = NULL
		WHERE match_id = $1`
	_, err := t.tx.ExecContext(ctx, query, matchID, commence.UTC(), sourceID, string(models.CalculationPending))
	return err
}
