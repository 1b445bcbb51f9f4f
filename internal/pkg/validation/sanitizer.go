package validation

import (
	"fmt"
	"math"
	"strings"

	"github.com/Vodeneev/adnbet/internal/pkg/interfaces"
	"github.com/Vodeneev/adnbet/internal/pkg/models"
)

// Sanitizer implements data sanitization
type Sanitizer struct{}

// NewSanitizer creates a new sanitizer
func NewSanitizer() interfaces.DataSanitizer {
	return &Sanitizer{}
}

// fixer accumulates coercion notes for one record.
type fixer struct {
	prefix string
	notes  []string
}

func (f *fixer) note(field string, from, to any) {
	f.notes = append(f.notes, fmt.Sprintf("%s.%s: %v coerced to %v", f.prefix, field, from, to))
}

func (f *fixer) finite(field string, v *float64, def float64) {
	if math.IsNaN(*v) || math.IsInf(*v, 0) {
		f.note(field, *v, def)
		*v = def
	}
}

func (f *fixer) clamp(field string, v *float64, lo, hi, def float64) {
	f.finite(field, v, def)
	switch {
	case *v < lo:
		f.note(field, *v, lo)
		*v = lo
	case *v > hi:
		f.note(field, *v, hi)
		*v = hi
	}
}

func (f *fixer) nonNegative(field string, v *float64, def float64) {
	f.clamp(field, v, 0, math.MaxFloat64, def)
}

// SanitizeADN coerces every numeric sub-vector field of a team profile.
// Neutral defaults: killer_instinct 1.0, diesel/fast_starter 0.5, half xG split 50,
// strengths and tendencies 50, everything else 0.
func (s *Sanitizer) SanitizeADN(adn *models.TeamADN) []string {
	if adn == nil {
		return nil
	}
	f := &fixer{prefix: "adn[" + adn.TeamName + "]"}

	if !adn.Tier.Valid() {
		f.note("tier", quoted(string(adn.Tier)), models.TierExperimental)
		adn.Tier = models.TierExperimental
	}
	f.finite("roi", &adn.ROI, 0)
	f.clamp("win_rate", &adn.WinRate, 0, 100, 0)

	f.nonNegative("psyche.killer_instinct", &adn.Psyche.KillerInstinct, models.DefaultKillerInstinct)
	f.nonNegative("psyche.panic_factor", &adn.Psyche.PanicFactor, 0)
	f.nonNegative("psyche.comeback_mentality", &adn.Psyche.ComebackMentality, 0)
	f.nonNegative("psyche.lead_protection", &adn.Psyche.LeadProtection, 0)
	adn.Psyche.Profile = strings.ToUpper(strings.TrimSpace(adn.Psyche.Profile))

	f.clamp("temporal.diesel_factor", &adn.Temporal.DieselFactor, 0, 1, models.DefaultDieselFactor)
	f.clamp("temporal.fast_starter", &adn.Temporal.FastStarter, 0, 1, models.DefaultFastStarter)
	f.clamp("temporal.first_half_xg_pct", &adn.Temporal.FirstHalfXGPct, 0, 100, models.DefaultHalfXGPct)
	f.clamp("temporal.second_half_xg_pct", &adn.Temporal.SecondHalfXGPct, 0, 100, models.DefaultHalfXGPct)

	if adn.Luck.Profile == "" {
		adn.Luck.Profile = models.LuckNeutral
	} else if !adn.Luck.Profile.Valid() {
		f.note("luck.profile", quoted(string(adn.Luck.Profile)), models.LuckNeutral)
		adn.Luck.Profile = models.LuckNeutral
	}
	f.finite("luck.total", &adn.Luck.Total, 0)
	f.finite("luck.finishing", &adn.Luck.Finishing, 0)
	f.finite("luck.defensive", &adn.Luck.Defensive, 0)

	f.clamp("context.home_strength", &adn.Context.HomeStrength, 0, 100, models.DefaultStrength)
	f.clamp("context.away_strength", &adn.Context.AwayStrength, 0, 100, models.DefaultStrength)
	f.clamp("context.btts_tendency", &adn.Context.BTTSTendency, 0, 100, models.DefaultTendency)
	f.clamp("context.goals_tendency", &adn.Context.GoalsTendency, 0, 100, models.DefaultTendency)

	f.finite("tactical.set_piece_threat", &adn.Tactical.SetPieceThreat, 0)
	f.finite("tactical.open_play_reliance", &adn.Tactical.OpenPlayReliance, 0)

	f.clamp("roster.mvp_dependency", &adn.Roster.MVPDependency, 0, 100, 0)

	return f.notes
}

// SanitizeStrategy coerces the ratio fields; counters are checked by the validator.
func (s *Sanitizer) SanitizeStrategy(st *models.StrategyProfile) []string {
	if st == nil {
		return nil
	}
	f := &fixer{prefix: "strategy[" + st.Team + "/" + st.StrategyName + "]"}
	f.clamp("win_rate", &st.WinRate, 0, 100, 0)
	f.finite("roi", &st.ROI, 0)
	f.finite("profit", &st.Profit, 0)
	return f.notes
}

// SanitizeV7 clamps error_rate and adds every pepite missing from the focus list.
func (s *Sanitizer) SanitizeV7(v *models.V7Strategy) []string {
	if v == nil {
		return nil
	}
	f := &fixer{prefix: "v7[" + v.Team + "]"}
	f.clamp("error_rate", &v.ErrorRate, 0, 100, 0)
	// a pepite is a focus market by definition
	for _, p := range v.Pepites {
		if !v.MarketsFocus.Contains(p) {
			v.MarketsFocus = v.MarketsFocus.With(p)
			f.notes = append(f.notes, fmt.Sprintf("%s.markets_focus: pepite %s added", f.prefix, p))
		}
	}
	return f.notes
}

// SanitizeFriction clamps the pair scores to [0,100] and the probabilities to [0,1].
// A probability of 0 means "not provided".
func (s *Sanitizer) SanitizeFriction(fr *models.MatchupFriction) []string {
	if fr == nil {
		return nil
	}
	f := &fixer{prefix: "friction[" + fr.Key() + "]"}
	f.clamp("friction_score", &fr.FrictionScore, 0, 100, 0)
	f.clamp("chaos_potential", &fr.ChaosPotential, 0, 100, 0)
	f.clamp("style_clash", &fr.StyleClash, 0, 100, 0)
	f.clamp("mental_clash", &fr.MentalClash, 0, 100, 0)
	f.nonNegative("predicted_goals", &fr.PredictedGoals, 0)
	f.clamp("predicted_btts_prob", &fr.PredictedBTTSProb, 0, 1, 0)
	f.clamp("predicted_over25_prob", &fr.PredictedOver25Prob, 0, 1, 0)
	return f.notes
}

func (s *Sanitizer) SanitizeReferee(r *models.RefereeProfile) []string {
	if r == nil {
		return nil
	}
	f := &fixer{prefix: "referee[" + r.Name + "]"}
	f.finite("card_impact", &r.CardImpact, 0)
	f.nonNegative("trigger_rate", &r.TriggerRate, 0)
	f.clamp("confidence", &r.Confidence, 0, 1, 0)
	switch r.Strictness {
	case models.StrictnessStrict, models.StrictnessNeutral, models.StrictnessLenient:
	default:
		if r.Strictness != "" {
			f.note("strictness", quoted(string(r.Strictness)), models.StrictnessNeutral)
		}
		r.Strictness = models.StrictnessNeutral
	}
	return f.notes
}

// SanitizeOdds drops quotes that are not finite decimal odds above 1.0.
func (s *Sanitizer) SanitizeOdds(quotes map[models.Market]float64) []string {
	var notes []string
	for _, m := range models.AllMarkets {
		v, ok := quotes[m]
		if !ok {
			continue
		}
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 1.0 {
			notes = append(notes, fmt.Sprintf("odds.%s: %v dropped", m, v))
			delete(quotes, m)
		}
	}
	for m := range quotes {
		if !m.IsKnown() {
			notes = append(notes, fmt.Sprintf("odds.%s: unknown market dropped", m))
			delete(quotes, m)
		}
	}
	return notes
}

func quoted(s string) string {
	return fmt.Sprintf("%q", s)
}
