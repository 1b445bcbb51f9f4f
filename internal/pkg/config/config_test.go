package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vodeneev/adnbet/internal/pkg/models"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoad_OverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
postgres:
  dsn: postgres://u:p@db:5432/bets?sslmode=disable
engine:
  workers: 8
  match_timeout: 3s
stake:
  elite_liquidity_tax: 0.2
monte_carlo:
  trials: 2000
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://u:p@db:5432/bets?sslmode=disable", cfg.Postgres.DSN)
	assert.Equal(t, 8, cfg.Engine.Workers)
	assert.Equal(t, 3*time.Second, cfg.Engine.MatchTimeout)
	assert.InDelta(t, 0.2, cfg.Stake.EliteLiquidityTax, 1e-9)
	assert.Equal(t, 2000, cfg.MonteCarlo.Trials)

	// untouched sections keep their defaults
	assert.InDelta(t, 1.20, cfg.Odds.Floor, 1e-9)
	assert.InDelta(t, 1.25, cfg.Consensus.Weights.TeamStrategy, 1e-9)
	assert.Equal(t, 40.0, cfg.MonteCarlo.Blend.Probability)
}

func TestLoad_RejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown log level", "logging:\n  level: verbose\n"},
		{"zero workers", "engine:\n  workers: 0\n"},
		{"floor at even money", "odds:\n  floor: 1.0\n"},
		{"telegram without token", "telegram:\n  enabled: true\n  chat_id: 42\n"},
		{"unknown default market", "scorers:\n  team_strategy:\n    default_market: corners_9.5\n"},
		{"inverted grades", "stake:\n  grades:\n    cautious: 1.3\n    strong: 1.2\n"},
		{"unordered robustness", "monte_carlo:\n  robustness:\n    robust_rate: 0.8\n"},
		{"broken yaml", "engine: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestModelWeights_For(t *testing.T) {
	w := Default().Consensus.Weights
	expected := map[models.ModelName]float64{
		models.ModelTeamStrategy: 1.25,
		models.ModelQuantum:      1.15,
		models.ModelMatchup:      1.10,
		models.ModelDixonColes:   1.00,
		models.ModelScenarios:    0.85,
		models.ModelDNAFeatures:  1.05,
	}
	for name, want := range expected {
		if got := w.For(name); got != want {
			t.Errorf("For(%s) = %v, want %v", name, got, want)
		}
	}
	if got := w.For("unknown"); got != 0 {
		t.Errorf("For(unknown) = %v, want 0", got)
	}
	assert.Len(t, w.Map(), 6)
}

func TestDecisionParams_RoundTripThroughSnapshot(t *testing.T) {
	cfg := Default()
	cfg.Stake.EliteLiquidityTax = 0.1

	raw, err := cfg.DecisionParams().Snapshot()
	require.NoError(t, err)

	restored, err := ParseDecisionParams(raw)
	require.NoError(t, err)
	assert.Equal(t, cfg.DecisionParams(), restored)

	_, err = ParseDecisionParams(nil)
	assert.Error(t, err)
}

func TestLoad_ShippedConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "..", "configs", "production.yaml"))
	require.NoError(t, err)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 30*time.Minute, cfg.Postgres.ConnMaxLifetime)
	assert.Equal(t, 168*time.Hour, cfg.Populator.Horizon)
	// keys absent from the file keep their defaults
	assert.Equal(t, Default().Consensus.Weights, cfg.Consensus.Weights)
}
