package storage

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/Vodeneev/adnbet/internal/pkg/config"
)

// OpenPostgres opens the pool, applies pool limits and pings the server.
func OpenPostgres(ctx context.Context, cfg config.PostgresConfig) (*sqlx.DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}

	db, err := sqlx.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.QueryTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	slog.Info("PostgreSQL connection established", "max_open_conns", cfg.MaxOpenConns)
	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS team_adn (
	team_name TEXT PRIMARY KEY,
	tier TEXT NOT NULL DEFAULT 'EXPERIMENTAL',
	roi DOUBLE PRECISION,
	win_rate DOUBLE PRECISION,
	psyche JSONB,
	temporal JSONB,
	luck JSONB,
	context JSONB,
	tactical JSONB,
	roster JSONB
);

CREATE TABLE IF NOT EXISTS team_name_mapping (
	alias TEXT PRIMARY KEY,
	canonical TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS team_strategies (
	team TEXT NOT NULL,
	strategy_name TEXT NOT NULL,
	market TEXT NOT NULL DEFAULT '',
	bets INTEGER NOT NULL DEFAULT 0,
	wins INTEGER NOT NULL DEFAULT 0,
	losses INTEGER NOT NULL DEFAULT 0,
	win_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
	roi DOUBLE PRECISION NOT NULL DEFAULT 0,
	profit DOUBLE PRECISION NOT NULL DEFAULT 0,
	unlucky_count INTEGER NOT NULL DEFAULT 0,
	bad_analysis_count INTEGER NOT NULL DEFAULT 0,
	is_best_strategy BOOLEAN NOT NULL DEFAULT FALSE,
	PRIMARY KEY (team, strategy_name)
);

CREATE TABLE IF NOT EXISTS v7_strategy (
	team TEXT PRIMARY KEY,
	markets_focus TEXT[] NOT NULL DEFAULT '{}',
	markets_avoid TEXT[] NOT NULL DEFAULT '{}',
	pepites TEXT[] NOT NULL DEFAULT '{}',
	error_rate DOUBLE PRECISION NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS matchup_friction (
	team_a TEXT NOT NULL,
	team_b TEXT NOT NULL,
	friction_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	chaos_potential DOUBLE PRECISION NOT NULL DEFAULT 0,
	predicted_goals DOUBLE PRECISION NOT NULL DEFAULT 0,
	predicted_btts_prob DOUBLE PRECISION NOT NULL DEFAULT 0,
	predicted_over25_prob DOUBLE PRECISION NOT NULL DEFAULT 0,
	style_clash DOUBLE PRECISION NOT NULL DEFAULT 0,
	mental_clash DOUBLE PRECISION NOT NULL DEFAULT 0,
	PRIMARY KEY (team_a, team_b)
);

CREATE TABLE IF NOT EXISTS referee_profile (
	name TEXT PRIMARY KEY,
	card_impact DOUBLE PRECISION NOT NULL DEFAULT 0,
	trigger_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
	strictness TEXT NOT NULL DEFAULT 'NEUTRAL',
	confidence DOUBLE PRECISION NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS match_results (
	match_id TEXT PRIMARY KEY,
	commence_time TIMESTAMPTZ NOT NULL,
	home_team TEXT NOT NULL,
	away_team TEXT NOT NULL,
	home_goals INTEGER NOT NULL DEFAULT 0,
	away_goals INTEGER NOT NULL DEFAULT 0,
	league TEXT NOT NULL DEFAULT '',
	is_finished BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS idx_match_results_commence_time ON match_results(commence_time DESC);

CREATE TABLE IF NOT EXISTS odds_history (
	id BIGSERIAL PRIMARY KEY,
	match_id TEXT NOT NULL,
	market TEXT NOT NULL,
	odds DOUBLE PRECISION NOT NULL,
	home_team TEXT NOT NULL,
	away_team TEXT NOT NULL,
	commence_time TIMESTAMPTZ NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_odds_history_match ON odds_history(match_id, market, recorded_at DESC);
CREATE INDEX IF NOT EXISTS idx_odds_history_commence_time ON odds_history(commence_time);

CREATE TABLE IF NOT EXISTS match_context (
	match_id TEXT PRIMARY KEY,
	home_team TEXT NOT NULL,
	away_team TEXT NOT NULL,
	commence_time TIMESTAMPTZ NOT NULL,
	referee TEXT NOT NULL DEFAULT '',
	home_rest JSONB,
	away_rest JSONB,
	calculation_status TEXT NOT NULL DEFAULT 'PENDING',
	source_id TEXT NOT NULL DEFAULT '',
	last_calculated_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_match_context_teams ON match_context(home_team, away_team, commence_time);
CREATE INDEX IF NOT EXISTS idx_match_context_status ON match_context(calculation_status, commence_time);

CREATE TABLE IF NOT EXISTS decision_snapshots (
	snapshot_id UUID PRIMARY KEY,
	match_id TEXT NOT NULL UNIQUE,
	source_data_version BIGINT NOT NULL,
	decision TEXT NOT NULL,
	reason TEXT NOT NULL DEFAULT '',
	final_market TEXT NOT NULL DEFAULT '',
	final_odds DOUBLE PRECISION,
	final_stake DOUBLE PRECISION,
	payload JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_decision_snapshots_created_at ON decision_snapshots(created_at DESC);
`

// InitSchema creates the tables the engine reads and writes.
func InitSchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// jsonb is a nullable JSONB column.
type jsonb []byte

func (j *jsonb) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*j = nil
	case []byte:
		*j = append((*j)[:0], v...)
	case string:
		*j = jsonb(v)
	default:
		return fmt.Errorf("jsonb: unsupported source type %T", src)
	}
	return nil
}

func (j jsonb) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	return []byte(j), nil
}

// decodeInto unmarshals over dst, so fields missing from the document keep dst's values.
func (j jsonb) decodeInto(dst any) error {
	if len(j) == 0 || string(j) == "null" {
		return nil
	}
	return json.Unmarshal(j, dst)
}

func toJSONB(v any) (jsonb, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(data) == "null" {
		return nil, nil
	}
	return data, nil
}
