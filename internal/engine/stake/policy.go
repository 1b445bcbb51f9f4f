// Package stake sizes a bet from the team strategies and market context.
package stake

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/Vodeneev/adnbet/internal/pkg/config"
	"github.com/Vodeneev/adnbet/internal/pkg/models"
)

// Input is everything the policy reads about one selected market.
type Input struct {
	Market     models.Market
	Odds       float64
	Conviction models.Conviction

	HomeStrategy *models.StrategyProfile
	AwayStrategy *models.StrategyProfile
	HomeV7       *models.V7Strategy
	AwayV7       *models.V7Strategy
	HomeElite    bool
	AwayElite    bool
}

// Policy applies multiplicative stake adjustments. The odds floor is its only veto.
type Policy struct {
	cfg       config.StakeConfig
	floor     float64
	baseStake decimal.Decimal
}

func NewPolicy(cfg config.StakeConfig, floor, baseStake float64) *Policy {
	return &Policy{cfg: cfg, floor: floor, baseStake: decimal.NewFromFloat(baseStake)}
}

// Evaluate returns the stake verdict. Adjustments are applied in a fixed order and
// each one is recorded in the audit trail.
func (p *Policy) Evaluate(in Input) models.StakeVerdict {
	c := p.cfg
	v := models.StakeVerdict{
		IsPepite:    in.HomeV7.IsPepite(in.Market) || in.AwayV7.IsPepite(in.Market),
		IsEliteTeam: in.HomeElite || in.AwayElite,
		SweetSpot:   in.Odds >= c.SweetSpot.Min && in.Odds <= c.SweetSpot.Max,
	}

	if in.Odds < p.floor {
		v.Decision = models.DecisionSkip
		v.StakeMultiplier = 1
		v.Adjustments = []string{fmt.Sprintf("VETO odds %.2f below floor %.2f", in.Odds, p.floor)}
		return v
	}

	mult := 1.0
	apply := func(factor float64, format string, args ...any) {
		mult *= factor
		v.Adjustments = append(v.Adjustments, fmt.Sprintf("%s x%.3f", fmt.Sprintf(format, args...), factor))
	}

	if roi := bestROI(in.HomeStrategy, in.AwayStrategy); roi > 0 {
		apply(1+math.Min(roi, c.ROIBoostCap)/100*c.ROIBoostScale, "ROI boost (roi %.1f%%)", roi)
	}
	if in.HomeV7.IsFocus(in.Market) || in.AwayV7.IsFocus(in.Market) {
		apply(1+c.FocusBonus, "V7 FOCUS bonus")
	}
	if in.HomeV7.IsAvoid(in.Market) || in.AwayV7.IsAvoid(in.Market) {
		apply(1-c.AvoidPenalty, "V7 AVOID penalty")
	}
	if v.IsPepite {
		apply(1+c.PepiteBonus, "PEPITE bonus")
	}
	if v.IsEliteTeam {
		apply(1-c.EliteLiquidityTax, "ELITE liquidity tax")
	}
	if rate := errorRate(in.HomeV7, in.AwayV7); rate > c.ErrorRateThreshold {
		cut := math.Min(c.ErrorRateMaxCut, (rate-c.ErrorRateThreshold)*c.ErrorRateSlope)
		apply(1-cut, "ERROR_RATE penalty (error rate %.1f%%)", rate)
	}
	if v.SweetSpot {
		apply(1+c.SweetSpot.Bonus, "SWEET_SPOT bonus (odds %.2f)", in.Odds)
	}
	switch in.Conviction {
	case models.ConvictionMaximum:
		apply(c.Conviction.Maximum, "MAXIMUM conviction")
	case models.ConvictionStrong:
		apply(c.Conviction.Strong, "STRONG conviction")
	}

	m := decimal.NewFromFloat(mult).Round(4)
	v.StakeMultiplier = m.InexactFloat64()
	v.AdjustedStake = p.baseStake.Mul(m).Round(4).InexactFloat64()
	v.Decision = p.grade(v.StakeMultiplier)
	return v
}

func (p *Policy) grade(mult float64) models.Decision {
	switch {
	case mult < p.cfg.Grades.Cautious:
		return models.DecisionBetCautious
	case mult > p.cfg.Grades.Strong:
		return models.DecisionBetStrong
	default:
		return models.DecisionBetNormal
	}
}

// bestROI is the ROI of the more profitable strategy; ties go to home.
func bestROI(home, away *models.StrategyProfile) float64 {
	switch {
	case home == nil && away == nil:
		return 0
	case away == nil || (home != nil && home.Profit >= away.Profit):
		return home.ROI
	default:
		return away.ROI
	}
}

func errorRate(home, away *models.V7Strategy) float64 {
	rate := 0.0
	for _, v := range []*models.V7Strategy{home, away} {
		if v != nil && v.ErrorRate > rate {
			rate = v.ErrorRate
		}
	}
	return rate
}
