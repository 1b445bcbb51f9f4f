package rest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vodeneev/adnbet/internal/pkg/config"
	"github.com/Vodeneev/adnbet/internal/pkg/failure"
	"github.com/Vodeneev/adnbet/internal/pkg/models"
	"github.com/Vodeneev/adnbet/internal/pkg/storage"
)

var kickoff = time.Date(2025, 4, 12, 18, 0, 0, 0, time.UTC)

func finished(id, home, away, league string, at time.Time) models.MatchResult {
	return models.MatchResult{
		MatchID: id, HomeTeam: home, AwayTeam: away, League: league,
		CommenceTime: at, IsFinished: true, HomeGoals: 1, AwayGoals: 1,
	}
}

func newCalc(results ...models.MatchResult) *Calculator {
	return NewCalculator(&storage.MemoryMatchHistory{Results: results}, nil, config.Default().Rest, 3)
}

func TestAnalyze_VenueCompetitionAndStatus(t *testing.T) {
	tests := []struct {
		name       string
		prev       models.MatchResult
		rawDays    int
		venue      models.Venue
		effective  float64
		status     models.RestStatus
		cupApplied bool
	}{
		{
			name:      "home league match",
			prev:      finished("m1", "Arsenal", "Leeds", "Premier League", kickoff.AddDate(0, 0, -5)),
			rawDays:   5,
			venue:     models.VenueHome,
			effective: 5.5,
			status:    models.RestNormal,
		},
		{
			name:      "away in europe",
			prev:      finished("m2", "Inter", "Arsenal", "UEFA Champions League", kickoff.Add(-66*time.Hour)),
			rawDays:   2,
			venue:     models.VenueAway,
			effective: 1.0,
			status:    models.RestCritical,
		},
		{
			name:       "away domestic cup",
			prev:       finished("m3", "Leeds", "Arsenal", "FA Cup", kickoff.AddDate(0, 0, -6)),
			rawDays:    6,
			venue:      models.VenueAway,
			effective:  6.5,
			status:     models.RestNormal,
			cupApplied: true,
		},
		{
			name:       "home cup after long break",
			prev:       finished("m4", "Arsenal", "Leeds", "League Cup", kickoff.AddDate(0, 0, -9)),
			rawDays:    9,
			venue:      models.VenueHome,
			effective:  10.5,
			status:     models.RestRusty,
			cupApplied: true,
		},
		{
			name:      "fresh",
			prev:      finished("m5", "Arsenal", "Leeds", "Premier League", kickoff.AddDate(0, 0, -8)),
			rawDays:   8,
			venue:     models.VenueHome,
			effective: 8.5,
			status:    models.RestFresh,
		},
		{
			name:      "tired, partial days are floored",
			prev:      finished("m6", "Arsenal", "Leeds", "Premier League", kickoff.Add(-(3*24+20)*time.Hour)),
			rawDays:   3,
			venue:     models.VenueHome,
			effective: 3.5,
			status:    models.RestTired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := newCalc(tt.prev).Analyze(context.Background(), "ARSENAL", kickoff)
			require.NoError(t, err)

			assert.Equal(t, "arsenal", a.Team)
			assert.Equal(t, tt.prev.MatchID, a.PrevMatchID)
			assert.Equal(t, tt.rawDays, a.RawDays)
			assert.Equal(t, tt.venue, a.PrevVenue)
			assert.InDelta(t, tt.effective, a.EffectiveRestIndex, 1e-9)
			assert.Equal(t, tt.status, a.Status)
			assert.Equal(t, int64(3), a.SourceDataVersion)
			if tt.cupApplied {
				assert.InDelta(t, 1.0, a.CompetitionAdjustment, 1e-9)
			} else {
				assert.Zero(t, a.CompetitionAdjustment)
			}
		})
	}
}

func TestAnalyze_UsesMostRecentMatchOnly(t *testing.T) {
	calc := newCalc(
		finished("old", "Arsenal", "Leeds", "Premier League", kickoff.AddDate(0, 0, -10)),
		finished("recent", "Spurs", "Arsenal", "Premier League", kickoff.AddDate(0, 0, -4)),
		finished("other", "Spurs", "Leeds", "Premier League", kickoff.AddDate(0, 0, -1)),
	)

	a, err := calc.Analyze(context.Background(), "arsenal", kickoff)
	require.NoError(t, err)
	assert.Equal(t, "recent", a.PrevMatchID)
	assert.Equal(t, models.VenueAway, a.PrevVenue)
	assert.InDelta(t, 3.5, a.EffectiveRestIndex, 1e-9)
}

func TestAnalyze_MissingHistory(t *testing.T) {
	calc := newCalc(finished("ancient", "Arsenal", "Leeds", "Premier League", kickoff.AddDate(-1, 0, 0)))

	_, err := calc.Analyze(context.Background(), "arsenal", kickoff)
	require.Error(t, err)
	assert.True(t, failure.Is(err, failure.KindMissingInput))

	_, err = calc.Analyze(context.Background(), "nobody", kickoff)
	assert.True(t, failure.Is(err, failure.KindMissingInput))
}

func TestAnalyze_Deterministic(t *testing.T) {
	calc := newCalc(finished("m1", "Arsenal", "Leeds", "Premier League", kickoff.AddDate(0, 0, -5)))

	first, err := calc.Analyze(context.Background(), "arsenal", kickoff)
	require.NoError(t, err)
	second, err := calc.Analyze(context.Background(), "arsenal", kickoff)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAnalyze_CacheHit(t *testing.T) {
	history := &storage.MemoryMatchHistory{Results: []models.MatchResult{
		finished("m1", "Arsenal", "Leeds", "Premier League", kickoff.AddDate(0, 0, -5)),
	}}
	cache := storage.NewMemoryRestCache()
	calc := NewCalculator(history, cache, config.Default().Rest, 3)

	first, err := calc.Analyze(context.Background(), "arsenal", kickoff)
	require.NoError(t, err)

	// history changes are invisible until the source data version moves
	history.Results = nil
	cached, err := calc.Analyze(context.Background(), "arsenal", kickoff)
	require.NoError(t, err)
	assert.Equal(t, first, cached)

	bumped := NewCalculator(history, cache, config.Default().Rest, 4)
	_, err = bumped.Analyze(context.Background(), "arsenal", kickoff)
	assert.True(t, failure.Is(err, failure.KindMissingInput))
}

type brokenCache struct{}

func (brokenCache) Get(context.Context, string, time.Time, int64) (*models.RestAnalysis, bool, error) {
	return nil, false, errors.New("redis down")
}

func (brokenCache) Set(context.Context, *models.RestAnalysis) error {
	return errors.New("redis down")
}

func TestAnalyze_CacheErrorsAreNotFatal(t *testing.T) {
	history := &storage.MemoryMatchHistory{Results: []models.MatchResult{
		finished("m1", "Arsenal", "Leeds", "Premier League", kickoff.AddDate(0, 0, -5)),
	}}
	calc := NewCalculator(history, brokenCache{}, config.Default().Rest, 1)

	a, err := calc.Analyze(context.Background(), "arsenal", kickoff)
	require.NoError(t, err)
	assert.Equal(t, models.RestNormal, a.Status)
}

func TestCompare(t *testing.T) {
	cfg := config.Default().Rest.Comparison
	rest := func(v float64) *models.RestAnalysis { return &models.RestAnalysis{EffectiveRestIndex: v} }

	tests := []struct {
		name         string
		home, away   float64
		advantage    models.RestAdvantage
		significance models.RestSignificance
	}{
		{"home well rested", 7.5, 5.0, models.AdvantageHome, models.SignificanceMajor},
		{"away slightly better", 4.0, 5.5, models.AdvantageAway, models.SignificanceModerate},
		{"even", 5.5, 5.0, models.AdvantageNeutral, models.SignificanceMinor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Compare(rest(tt.home), rest(tt.away), cfg)
			require.NotNil(t, c)
			assert.InDelta(t, tt.home-tt.away, c.Delta, 1e-9)
			assert.Equal(t, tt.advantage, c.Advantage)
			assert.Equal(t, tt.significance, c.Significance)
		})
	}

	assert.Nil(t, Compare(nil, rest(5), cfg))
	assert.Nil(t, Compare(rest(5), nil, cfg))
}
