package validation

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vodeneev/adnbet/internal/pkg/failure"
	"github.com/Vodeneev/adnbet/internal/pkg/models"
)

func TestSanitizeADN_CoercesNonFinite(t *testing.T) {
	adn := models.DefaultTeamADN("arsenal")
	adn.Tier = "PLATINUM"
	adn.ROI = math.NaN()
	adn.WinRate = 140
	adn.Psyche.KillerInstinct = math.Inf(1)
	adn.Temporal.DieselFactor = math.NaN()
	adn.Luck.Profile = "CURSED"
	adn.Context.BTTSTendency = -3

	notes := NewSanitizer().SanitizeADN(&adn)

	assert.Equal(t, models.TierExperimental, adn.Tier)
	assert.Equal(t, 0.0, adn.ROI)
	assert.Equal(t, 100.0, adn.WinRate)
	assert.Equal(t, models.DefaultKillerInstinct, adn.Psyche.KillerInstinct)
	assert.Equal(t, models.DefaultDieselFactor, adn.Temporal.DieselFactor)
	assert.Equal(t, models.LuckNeutral, adn.Luck.Profile)
	assert.Equal(t, 0.0, adn.Context.BTTSTendency)
	assert.Len(t, notes, 7)
	assert.Contains(t, notes[0], "adn[arsenal].tier")
}

func TestSanitizeADN_CleanProfileHasNoNotes(t *testing.T) {
	adn := models.DefaultTeamADN("chelsea")
	assert.Empty(t, NewSanitizer().SanitizeADN(&adn))
	assert.Empty(t, NewSanitizer().SanitizeADN(nil))
}

func TestSanitizeFriction(t *testing.T) {
	fr := &models.MatchupFriction{
		TeamA:               "arsenal",
		TeamB:               "chelsea",
		FrictionScore:       math.NaN(),
		PredictedGoals:      -1,
		PredictedOver25Prob: 1.3,
		PredictedBTTSProb:   0.55,
	}
	notes := NewSanitizer().SanitizeFriction(fr)

	assert.Equal(t, 0.0, fr.FrictionScore)
	assert.Equal(t, 0.0, fr.PredictedGoals)
	assert.Equal(t, 1.0, fr.PredictedOver25Prob)
	assert.Equal(t, 0.55, fr.PredictedBTTSProb)
	assert.Len(t, notes, 3)
}

func TestSanitizeReferee(t *testing.T) {
	r := &models.RefereeProfile{Name: "m oliver", CardImpact: math.Inf(-1), TriggerRate: -0.2, Confidence: 2, Strictness: "HARSH"}
	notes := NewSanitizer().SanitizeReferee(r)

	assert.Equal(t, 0.0, r.CardImpact)
	assert.Equal(t, 0.0, r.TriggerRate)
	assert.Equal(t, 1.0, r.Confidence)
	assert.Equal(t, models.StrictnessNeutral, r.Strictness)
	assert.Len(t, notes, 4)
}

func TestSanitizeOdds(t *testing.T) {
	quotes := map[models.Market]float64{
		models.MarketOver25:  1.8,
		models.MarketBTTSYes: math.NaN(),
		models.MarketHome:    1.0,
		models.MarketAway:    math.Inf(1),
		"corners_9.5":        1.9,
	}
	notes := NewSanitizer().SanitizeOdds(quotes)

	assert.Equal(t, map[models.Market]float64{models.MarketOver25: 1.8}, quotes)
	assert.Len(t, notes, 4)
}

func TestValidator_Strategy(t *testing.T) {
	v := NewValidator()
	ok := &models.StrategyProfile{Team: "a", StrategyName: "over_specialist", Bets: 10, Wins: 6, Losses: 4}
	require.NoError(t, v.ValidateStrategy(ok))

	broken := ok.Clone()
	broken.Wins = 9
	assert.True(t, failure.Is(v.ValidateStrategy(broken), failure.KindInconsistent))

	unnamed := ok.Clone()
	unnamed.StrategyName = ""
	assert.True(t, failure.Is(v.ValidateStrategy(unnamed), failure.KindBadInput))
}

func TestValidator_FrictionPair(t *testing.T) {
	v := NewValidator()
	a := &models.MatchupFriction{TeamA: "arsenal", TeamB: "chelsea", FrictionScore: 70}
	b := &models.MatchupFriction{TeamA: "chelsea", TeamB: "arsenal", FrictionScore: 70}
	require.NoError(t, v.ValidateFrictionPair(a, b))

	b.FrictionScore = 40
	assert.True(t, failure.Is(v.ValidateFrictionPair(a, b), failure.KindInconsistent))
}

func TestValidator_ScheduledMatch(t *testing.T) {
	v := NewValidator()
	kick := time.Date(2025, 4, 12, 18, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		m       *models.ScheduledMatch
		wantErr bool
	}{
		{"valid", &models.ScheduledMatch{HomeTeam: "A", AwayTeam: "B", CommenceTime: kick}, false},
		{"missing home", &models.ScheduledMatch{AwayTeam: "B", CommenceTime: kick}, true},
		{"same team", &models.ScheduledMatch{HomeTeam: "A", AwayTeam: " a ", CommenceTime: kick}, true},
		{"no time", &models.ScheduledMatch{HomeTeam: "A", AwayTeam: "B"}, true},
		{"nil", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateScheduledMatch(tt.m)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateScheduledMatch() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSanitizeV7_AddsPepiteToFocus(t *testing.T) {
	v := &models.V7Strategy{
		Team:         "arsenal",
		MarketsFocus: models.MarketSet{models.MarketOver25},
		Pepites:      models.MarketSet{models.MarketBTTSYes},
		ErrorRate:    math.NaN(),
	}
	notes := NewSanitizer().SanitizeV7(v)

	assert.Equal(t, models.MarketSet{models.MarketOver25, models.MarketBTTSYes}, v.MarketsFocus)
	assert.Equal(t, 0.0, v.ErrorRate)
	assert.Equal(t, []string{
		"v7[arsenal].error_rate: NaN coerced to 0",
		"v7[arsenal].markets_focus: pepite btts_yes added",
	}, notes)
	assert.NoError(t, NewValidator().ValidateV7(v))

	// a pepite the team also avoids still breaks focus ∩ avoid = ∅
	avoided := &models.V7Strategy{
		Team:         "arsenal",
		MarketsAvoid: models.MarketSet{models.MarketBTTSYes},
		Pepites:      models.MarketSet{models.MarketBTTSYes},
	}
	NewSanitizer().SanitizeV7(avoided)
	assert.True(t, failure.Is(NewValidator().ValidateV7(avoided), failure.KindInconsistent))
}
