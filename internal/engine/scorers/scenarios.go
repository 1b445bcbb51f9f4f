package scorers

import (
	"fmt"
	"strings"

	"github.com/Vodeneev/adnbet/internal/pkg/config"
	"github.com/Vodeneev/adnbet/internal/pkg/models"
)

// Scenario identifiers, in evaluation order.
const (
	ScenarioHighFriction    = "HIGH_FRICTION"
	ScenarioChaosPotential  = "CHAOS_POTENTIAL"
	ScenarioRegressionUp    = "REGRESSION_UP"
	ScenarioDieselLateGoals = "DIESEL_LATE_GOALS"
	ScenarioFastStart       = "FAST_START"
	ScenarioBTTSTendency    = "BTTS_TENDENCY"
	ScenarioGoalsFestival   = "GOALS_FESTIVAL"
	ScenarioFatigueMismatch = "FATIGUE_MISMATCH"
	ScenarioRefereeTrigger  = "REFEREE_TRIGGER"
)

// Scenarios counts triggered match scenarios from a closed set.
type Scenarios struct {
	cfg config.ScenariosConfig
}

func NewScenarios(cfg config.ScenariosConfig) *Scenarios {
	return &Scenarios{cfg: cfg}
}

func (s *Scenarios) Name() models.ModelName { return models.ModelScenarios }

func (s *Scenarios) Score(in *Input) models.ModelVote {
	triggered := s.Triggered(in)
	n := len(triggered)

	signal := models.SignalSkip
	switch {
	case n >= s.cfg.BuyCount:
		signal = models.SignalBuy
	case n >= s.cfg.HoldCount:
		signal = models.SignalHold
	}

	conf := 0.0
	if n > 0 {
		conf = clamp(0, s.cfg.MaxConfidence, s.cfg.BaseConfidence+s.cfg.PerScenario*float64(n))
	}
	reason := "no scenario triggered"
	if n > 0 {
		reason = fmt.Sprintf("%d scenarios: %s", n, strings.Join(triggered, ", "))
	}
	return models.ModelVote{
		Model:      s.Name(),
		Signal:     signal,
		Confidence: conf,
		Reasoning:  reason,
		RawData:    map[string]float64{"scenarios": float64(n)},
	}
}

// Triggered returns the scenarios that apply to the match, in evaluation order.
func (s *Scenarios) Triggered(in *Input) []string {
	c := s.cfg
	var out []string
	add := func(ok bool, name string) {
		if ok {
			out = append(out, name)
		}
	}

	f := in.Friction
	add(f != nil && f.FrictionScore >= c.HighFriction, ScenarioHighFriction)
	add(f != nil && f.ChaosPotential >= c.ChaosPotential, ScenarioChaosPotential)
	add(eitherTeam(in, func(a *models.TeamADN) bool { return a.Luck.Profile.IsUnlucky() }), ScenarioRegressionUp)
	add(eitherTeam(in, func(a *models.TeamADN) bool { return a.Temporal.DieselFactor >= c.DieselFactor }), ScenarioDieselLateGoals)
	add(eitherTeam(in, func(a *models.TeamADN) bool { return a.Temporal.FastStarter >= c.FastStarter }), ScenarioFastStart)
	add(in.HomeADN != nil && in.AwayADN != nil &&
		in.HomeADN.Context.BTTSTendency >= c.BTTSTendency &&
		in.AwayADN.Context.BTTSTendency >= c.BTTSTendency, ScenarioBTTSTendency)
	add(f != nil && c.PredictedGoals > 0 && f.PredictedGoals >= c.PredictedGoals, ScenarioGoalsFestival)
	add(in.Rest != nil && in.Rest.Significance == models.SignificanceMajor, ScenarioFatigueMismatch)
	add(in.Referee != nil &&
		in.Referee.CardImpact >= c.RefereeCardImpact &&
		in.Referee.TriggerRate >= c.RefereeTriggerRate, ScenarioRefereeTrigger)
	return out
}

func eitherTeam(in *Input, pred func(*models.TeamADN) bool) bool {
	return (in.HomeADN != nil && pred(in.HomeADN)) || (in.AwayADN != nil && pred(in.AwayADN))
}
