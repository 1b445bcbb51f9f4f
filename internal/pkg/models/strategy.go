package models

import "fmt"

// StrategyProfile is the historical track record of one strategy on one team.
type StrategyProfile struct {
	Team             string  `json:"team" db:"team"`
	StrategyName     string  `json:"strategy_name" db:"strategy_name"`
	Market           Market  `json:"market,omitempty" db:"market"`
	Bets             int     `json:"bets" db:"bets"`
	Wins             int     `json:"wins" db:"wins"`
	Losses           int     `json:"losses" db:"losses"`
	WinRate          float64 `json:"win_rate" db:"win_rate"`
	ROI              float64 `json:"roi" db:"roi"`
	Profit           float64 `json:"profit" db:"profit"`
	UnluckyCount     int     `json:"unlucky_count" db:"unlucky_count"`
	BadAnalysisCount int     `json:"bad_analysis_count" db:"bad_analysis_count"`
	IsBestStrategy   bool    `json:"is_best_strategy" db:"is_best_strategy"`
}

// Check verifies the counting invariants of the record.
func (s *StrategyProfile) Check() error {
	if s.Bets < 0 || s.Wins < 0 || s.Losses < 0 || s.UnluckyCount < 0 || s.BadAnalysisCount < 0 {
		return fmt.Errorf("strategy %s/%s: negative counters", s.Team, s.StrategyName)
	}
	if s.Wins+s.Losses > s.Bets {
		return fmt.Errorf("strategy %s/%s: wins+losses (%d) exceed bets (%d)", s.Team, s.StrategyName, s.Wins+s.Losses, s.Bets)
	}
	if s.UnluckyCount+s.BadAnalysisCount > s.Losses {
		return fmt.Errorf("strategy %s/%s: unlucky+bad_analysis (%d) exceed losses (%d)", s.Team, s.StrategyName, s.UnluckyCount+s.BadAnalysisCount, s.Losses)
	}
	return nil
}

// Clone returns a copy.
func (s *StrategyProfile) Clone() *StrategyProfile {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// V7Strategy is a per-team market preference override.
type V7Strategy struct {
	Team         string    `json:"team"`
	MarketsFocus MarketSet `json:"markets_focus"`
	MarketsAvoid MarketSet `json:"markets_avoid"`
	Pepites      MarketSet `json:"pepites"`
	ErrorRate    float64   `json:"error_rate"`
}

// Check verifies pepites ⊆ focus and focus ∩ avoid = ∅.
func (v *V7Strategy) Check() error {
	for _, p := range v.Pepites {
		if !v.MarketsFocus.Contains(p) {
			return fmt.Errorf("v7 %s: pepite %s is not a focus market", v.Team, p)
		}
	}
	for _, f := range v.MarketsFocus {
		if v.MarketsAvoid.Contains(f) {
			return fmt.Errorf("v7 %s: market %s is both focus and avoid", v.Team, f)
		}
	}
	return nil
}

func (v *V7Strategy) IsFocus(m Market) bool {
	return v != nil && v.MarketsFocus.Contains(m)
}

func (v *V7Strategy) IsAvoid(m Market) bool {
	return v != nil && v.MarketsAvoid.Contains(m)
}

func (v *V7Strategy) IsPepite(m Market) bool {
	return v != nil && v.Pepites.Contains(m)
}

// HasPepites reports whether the team has at least one pepite market.
func (v *V7Strategy) HasPepites() bool {
	return v != nil && len(v.Pepites) > 0
}

// HasFocus reports whether the team has at least one focus market.
func (v *V7Strategy) HasFocus() bool {
	return v != nil && len(v.MarketsFocus) > 0
}

// Clone returns a deep copy.
func (v *V7Strategy) Clone() *V7Strategy {
	if v == nil {
		return nil
	}
	c := *v
	c.MarketsFocus = append(MarketSet(nil), v.MarketsFocus...)
	c.MarketsAvoid = append(MarketSet(nil), v.MarketsAvoid...)
	c.Pepites = append(MarketSet(nil), v.Pepites...)
	return &c
}
