package models

// MatchupFriction is the pair-level profile of two teams. TeamA/TeamB are stored in
// canonical (sorted, normalized) order; the record is symmetric.
type MatchupFriction struct {
	TeamA               string  `json:"team_a" db:"team_a"`
	TeamB               string  `json:"team_b" db:"team_b"`
	FrictionScore       float64 `json:"friction_score" db:"friction_score"`
	ChaosPotential      float64 `json:"chaos_potential" db:"chaos_potential"`
	PredictedGoals      float64 `json:"predicted_goals" db:"predicted_goals"`
	PredictedBTTSProb   float64 `json:"predicted_btts_prob" db:"predicted_btts_prob"`
	PredictedOver25Prob float64 `json:"predicted_over25_prob" db:"predicted_over25_prob"`
	StyleClash          float64 `json:"style_clash" db:"style_clash"`
	MentalClash         float64 `json:"mental_clash" db:"mental_clash"`
}

// Key returns the canonical pair key.
func (f *MatchupFriction) Key() string {
	return FrictionKey(f.TeamA, f.TeamB)
}

// SameValues compares every numeric field.
func (f *MatchupFriction) SameValues(o *MatchupFriction) bool {
	return f.FrictionScore == o.FrictionScore &&
		f.ChaosPotential == o.ChaosPotential &&
		f.PredictedGoals == o.PredictedGoals &&
		f.PredictedBTTSProb == o.PredictedBTTSProb &&
		f.PredictedOver25Prob == o.PredictedOver25Prob &&
		f.StyleClash == o.StyleClash &&
		f.MentalClash == o.MentalClash
}

// Clone returns a copy.
func (f *MatchupFriction) Clone() *MatchupFriction {
	if f == nil {
		return nil
	}
	c := *f
	return &c
}
