package stake

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Vodeneev/adnbet/internal/pkg/config"
	"github.com/Vodeneev/adnbet/internal/pkg/models"
)

func newPolicy(base float64) *Policy {
	cfg := config.Default()
	return NewPolicy(cfg.Stake, cfg.Odds.Floor, base)
}

func hasAdjustment(v models.StakeVerdict, prefix string) bool {
	for _, a := range v.Adjustments {
		if strings.HasPrefix(a, prefix) {
			return true
		}
	}
	return false
}

func TestEvaluate_EliteLiquidityTax(t *testing.T) {
	v := newPolicy(1).Evaluate(Input{
		Market:     models.MarketOver25,
		Odds:       1.80,
		Conviction: models.ConvictionStrong,
		HomeElite:  true,
	})

	assert.Equal(t, models.DecisionBetNormal, v.Decision)
	assert.InDelta(t, 1.0285, v.StakeMultiplier, 1e-9)
	assert.InDelta(t, 1.0285, v.AdjustedStake, 1e-9)
	assert.True(t, v.IsEliteTeam)
	assert.True(t, v.SweetSpot)
	assert.False(t, v.IsPepite)
	assert.True(t, hasAdjustment(v, "ELITE liquidity tax"))
	assert.Len(t, v.Adjustments, 3)
}

func TestEvaluate_AllBonuses(t *testing.T) {
	v7 := &models.V7Strategy{
		MarketsFocus: models.MarketSet{models.MarketBTTSYes},
		Pepites:      models.MarketSet{models.MarketBTTSYes},
	}
	v := newPolicy(2).Evaluate(Input{
		Market:       models.MarketBTTSYes,
		Odds:         1.85,
		Conviction:   models.ConvictionMaximum,
		HomeStrategy: &models.StrategyProfile{Profit: 4, ROI: 10},
		AwayStrategy: &models.StrategyProfile{Profit: 9, ROI: 35},
		AwayV7:       v7,
	})

	assert.Equal(t, models.DecisionBetStrong, v.Decision)
	assert.InDelta(t, 2.3265, v.StakeMultiplier, 1e-9)
	assert.InDelta(t, 4.653, v.AdjustedStake, 1e-9)
	assert.True(t, v.IsPepite)
	assert.Equal(t, []string{
		"ROI boost (roi 35.0%) x1.175",
		"V7 FOCUS bonus x1.200",
		"PEPITE bonus x1.250",
		"SWEET_SPOT bonus (odds 1.85) x1.100",
		"MAXIMUM conviction x1.200",
	}, v.Adjustments)
}

func TestEvaluate_Penalties(t *testing.T) {
	p := newPolicy(1)

	v := p.Evaluate(Input{
		Market: models.MarketHome,
		Odds:   2.50,
		HomeV7: &models.V7Strategy{MarketsAvoid: models.MarketSet{models.MarketHome}, ErrorRate: 60},
	})
	assert.InDelta(t, 0.56, v.StakeMultiplier, 1e-9)
	assert.Equal(t, models.DecisionBetCautious, v.Decision)
	assert.True(t, hasAdjustment(v, "V7 AVOID penalty"))
	assert.True(t, hasAdjustment(v, "ERROR_RATE penalty (error rate 60.0%)"))

	capped := p.Evaluate(Input{Market: models.MarketHome, Odds: 2.50, AwayV7: &models.V7Strategy{ErrorRate: 100}})
	assert.InDelta(t, 0.5, capped.StakeMultiplier, 1e-9)

	atThreshold := p.Evaluate(Input{Market: models.MarketHome, Odds: 2.50, AwayV7: &models.V7Strategy{ErrorRate: 40}})
	assert.Equal(t, 1.0, atThreshold.StakeMultiplier)
	assert.Empty(t, atThreshold.Adjustments)
}

func TestEvaluate_ROIBoostCapped(t *testing.T) {
	v := newPolicy(1).Evaluate(Input{
		Market:       models.MarketHome,
		Odds:         2.50,
		HomeStrategy: &models.StrategyProfile{Profit: 20, ROI: 80},
	})
	assert.InDelta(t, 1.25, v.StakeMultiplier, 1e-9)
	assert.Equal(t, models.DecisionBetStrong, v.Decision)

	negative := newPolicy(1).Evaluate(Input{
		Market:       models.MarketHome,
		Odds:         2.50,
		HomeStrategy: &models.StrategyProfile{Profit: -3, ROI: -12},
	})
	assert.Equal(t, 1.0, negative.StakeMultiplier)
}

func TestEvaluate_GradeBoundaries(t *testing.T) {
	p := newPolicy(1)
	tests := []struct {
		mult float64
		want models.Decision
	}{
		{0.7999, models.DecisionBetCautious},
		{0.8, models.DecisionBetNormal},
		{1.2, models.DecisionBetNormal},
		{1.2001, models.DecisionBetStrong},
	}
	for _, tt := range tests {
		if got := p.grade(tt.mult); got != tt.want {
			t.Errorf("grade(%v) = %s, want %s", tt.mult, got, tt.want)
		}
	}
}

// Below the floor nothing else matters.
func TestEvaluate_OddsFloorVeto(t *testing.T) {
	p := newPolicy(1)
	for _, odds := range []float64{1.01, 1.10, 1.15, 1.1999} {
		for _, conviction := range []models.Conviction{models.ConvictionWeak, models.ConvictionMaximum} {
			v := p.Evaluate(Input{
				Market:       models.MarketOver25,
				Odds:         odds,
				Conviction:   conviction,
				HomeStrategy: &models.StrategyProfile{Profit: 50, ROI: 60},
				HomeV7: &models.V7Strategy{
					MarketsFocus: models.MarketSet{models.MarketOver25},
					Pepites:      models.MarketSet{models.MarketOver25},
				},
			})
			assert.Equal(t, models.DecisionSkip, v.Decision, "odds %v", odds)
			assert.Zero(t, v.AdjustedStake)
			assert.True(t, hasAdjustment(v, "VETO"))
		}
	}

	atFloor := p.Evaluate(Input{Market: models.MarketOver25, Odds: 1.20})
	assert.True(t, atFloor.Decision.IsBet())
}

// Bonuses never lower the multiplier and penalties never raise it.
func TestEvaluate_Monotone(t *testing.T) {
	p := newPolicy(1)

	type toggles struct {
		pepite, focus, sweet, strong, avoid, elite, errRate bool
	}
	build := func(tg toggles) Input {
		home := &models.V7Strategy{}
		away := &models.V7Strategy{}
		in := Input{Market: models.MarketUnder25, Odds: 2.30, Conviction: models.ConvictionModerate, HomeV7: home, AwayV7: away}
		if tg.focus {
			home.MarketsFocus = models.MarketSet{models.MarketUnder25}
		}
		if tg.pepite {
			away.MarketsFocus = models.MarketSet{models.MarketUnder25}
			away.Pepites = models.MarketSet{models.MarketUnder25}
		}
		if tg.sweet {
			in.Odds = 1.90
		}
		if tg.strong {
			in.Conviction = models.ConvictionStrong
		}
		if tg.avoid {
			home.MarketsAvoid = models.MarketSet{models.MarketUnder25}
		}
		if tg.elite {
			in.AwayElite = true
		}
		if tg.errRate {
			home.ErrorRate = 65
		}
		return in
	}

	for mask := 0; mask < 1<<7; mask++ {
		bit := func(i int) bool { return mask&(1<<i) != 0 }
		base := toggles{bit(0), bit(1), bit(2), bit(3), bit(4), bit(5), bit(6)}
		m := p.Evaluate(build(base)).StakeMultiplier

		bonuses := []func(tg *toggles){
			func(tg *toggles) { tg.pepite = true },
			func(tg *toggles) { tg.focus = true },
			func(tg *toggles) { tg.sweet = true },
			func(tg *toggles) { tg.strong = true },
		}
		for i, add := range bonuses {
			tg := base
			add(&tg)
			if got := p.Evaluate(build(tg)).StakeMultiplier; got < m {
				t.Fatalf("mask %07b: bonus %d lowered multiplier %v -> %v", mask, i, m, got)
			}
		}
		penalties := []func(tg *toggles){
			func(tg *toggles) { tg.avoid = true },
			func(tg *toggles) { tg.elite = true },
			func(tg *toggles) { tg.errRate = true },
		}
		for i, add := range penalties {
			tg := base
			add(&tg)
			if got := p.Evaluate(build(tg)).StakeMultiplier; got > m {
				t.Fatalf("mask %07b: penalty %d raised multiplier %v -> %v", mask, i, m, got)
			}
		}
	}
}
