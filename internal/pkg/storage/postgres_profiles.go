package storage

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Vodeneev/adnbet/internal/pkg/models"
)

// Ensure PostgresProfileSource implements ProfileSource
var _ ProfileSource = (*PostgresProfileSource)(nil)

// PostgresProfileSource reads the profile tables.
type PostgresProfileSource struct {
	db      *sqlx.DB
	timeout time.Duration
	retry   *Retrier
}

func NewPostgresProfileSource(db *sqlx.DB, timeout time.Duration, retry *Retrier) *PostgresProfileSource {
	return &PostgresProfileSource{db: db, timeout: timeout, retry: retry}
}

func (s *PostgresProfileSource) selectAll(ctx context.Context, op string, dest any, query string) error {
	return s.retry.Do(ctx, op, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		// a retried attempt must not append to rows of the failed one
		v := reflect.ValueOf(dest).Elem()
		v.Set(reflect.Zero(v.Type()))
		return s.db.SelectContext(ctx, dest, query)
	})
}

type adnRow struct {
	TeamName string          `db:"team_name"`
	Tier     string          `db:"tier"`
	ROI      sql.NullFloat64 `db:"roi"`
	WinRate  sql.NullFloat64 `db:"win_rate"`
	Psyche   jsonb           `db:"psyche"`
	Temporal jsonb           `db:"temporal"`
	Luck     jsonb           `db:"luck"`
	Context  jsonb           `db:"context"`
	Tactical jsonb           `db:"tactical"`
	Roster   jsonb           `db:"roster"`
}

// toModel overlays the stored sub-records on neutral defaults.
func (r adnRow) toModel() (models.TeamADN, error) {
	adn := models.DefaultTeamADN(r.TeamName)
	if r.Tier != "" {
		adn.Tier = models.Tier(r.Tier)
	}
	adn.ROI = r.ROI.Float64
	adn.WinRate = r.WinRate.Float64

	parts := []struct {
		name string
		raw  jsonb
		dst  any
	}{
		{"psyche", r.Psyche, &adn.Psyche},
		{"temporal", r.Temporal, &adn.Temporal},
		{"luck", r.Luck, &adn.Luck},
		{"context", r.Context, &adn.Context},
		{"tactical", r.Tactical, &adn.Tactical},
		{"roster", r.Roster, &adn.Roster},
	}
	for _, p := range parts {
		if err := p.raw.decodeInto(p.dst); err != nil {
			return adn, fmt.Errorf("team_adn %s: decode %s: %w", r.TeamName, p.name, err)
		}
	}
	return adn, nil
}

// LoadTeamADN returns every team profile
func (s *PostgresProfileSource) LoadTeamADN(ctx context.Context) ([]models.TeamADN, error) {
	var rows []adnRow
	query := `
		SELECT team_name, tier, roi, win_rate, psyche, temporal, luck, context, tactical, roster
		FROM team_adn
		ORDER BY team_name`
	if err := s.selectAll(ctx, "LoadTeamADN", &rows, query); err != nil {
		return nil, fmt.Errorf("failed to load team_adn: %w", err)
	}

	out := make([]models.TeamADN, 0, len(rows))
	for _, r := range rows {
		adn, err := r.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, adn)
	}
	return out, nil
}

// LoadNameMappings returns alias -> canonical pairs
func (s *PostgresProfileSource) LoadNameMappings(ctx context.Context) (map[string]string, error) {
	var rows []struct {
		Alias     string `db:"alias"`
		Canonical string `db:"canonical"`
	}
	if err := s.selectAll(ctx, "LoadNameMappings", &rows, `SELECT alias, canonical FROM team_name_mapping`); err != nil {
		return nil, fmt.Errorf("failed to load team_name_mapping: %w", err)
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.Alias] = r.Canonical
	}
	return out, nil
}

// LoadStrategies returns every (team, strategy) record
func (s *PostgresProfileSource) LoadStrategies(ctx context.Context) ([]models.StrategyProfile, error) {
	var rows []models.StrategyProfile
	query := `
		SELECT team, strategy_name, market, bets, wins, losses, win_rate, roi, profit,
		       unlucky_count, bad_analysis_count, is_best_strategy
		FROM team_strategies
		ORDER BY team, strategy_name`
	if err := s.selectAll(ctx, "LoadStrategies", &rows, query); err != nil {
		return nil, fmt.Errorf("failed to load team_strategies: %w", err)
	}
	return rows, nil
}

type v7Row struct {
	Team         string         `db:"team"`
	MarketsFocus pq.StringArray `db:"markets_focus"`
	MarketsAvoid pq.StringArray `db:"markets_avoid"`
	Pepites      pq.StringArray `db:"pepites"`
	ErrorRate    float64        `db:"error_rate"`
}

// LoadV7Strategies returns the per-team overrides. Unknown market identifiers are dropped.
func (s *PostgresProfileSource) LoadV7Strategies(ctx context.Context) ([]models.V7Strategy, error) {
	var rows []v7Row
	query := `
		SELECT team, markets_focus, markets_avoid, pepites, error_rate
		FROM v7_strategy
		ORDER BY team`
	if err := s.selectAll(ctx, "LoadV7Strategies", &rows, query); err != nil {
		return nil, fmt.Errorf("failed to load v7_strategy: %w", err)
	}

	out := make([]models.V7Strategy, 0, len(rows))
	for _, r := range rows {
		focus, _ := models.NewMarketSet(r.MarketsFocus)
		avoid, _ := models.NewMarketSet(r.MarketsAvoid)
		pepites, _ := models.NewMarketSet(r.Pepites)
		out = append(out, models.V7Strategy{
			Team:         r.Team,
			MarketsFocus: focus,
			MarketsAvoid: avoid,
			Pepites:      pepites,
			ErrorRate:    r.ErrorRate,
		})
	}
	return out, nil
}

// LoadFrictions returns every stored friction row
func (s *PostgresProfileSource) LoadFrictions(ctx context.Context) ([]models.MatchupFriction, error) {
	var rows []models.MatchupFriction
	query := `
		SELECT team_a, team_b, friction_score, chaos_potential, predicted_goals,
		       predicted_btts_prob, predicted_over25_prob, style_clash, mental_clash
		FROM matchup_friction
		ORDER BY team_a, team_b`
	if err := s.selectAll(ctx, "LoadFrictions", &rows, query); err != nil {
		return nil, fmt.Errorf("failed to load matchup_friction: %w", err)
	}
	return rows, nil
}

// LoadReferees returns every referee profile
func (s *PostgresProfileSource) LoadReferees(ctx context.Context) ([]models.RefereeProfile, error) {
	var rows []models.RefereeProfile
	query := `
		SELECT name, card_impact, trigger_rate, strictness, confidence
		FROM referee_profile
		ORDER BY name`
	if err := s.selectAll(ctx, "LoadReferees", &rows, query); err != nil {
		return nil, fmt.Errorf("failed to load referee_profile: %w", err)
	}
	return rows, nil
}
