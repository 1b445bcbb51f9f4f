package models

type Strictness string

const (
	StrictnessStrict  Strictness = "STRICT"
	StrictnessNeutral Strictness = "NEUTRAL"
	StrictnessLenient Strictness = "LENIENT"
)

// RefereeProfile carries referee tendencies. Only CardImpact and TriggerRate feed decisions;
// Strictness and Confidence are kept for the audit trail.
type RefereeProfile struct {
	Name        string     `json:"name" db:"name"`
	CardImpact  float64    `json:"card_impact" db:"card_impact"`
	TriggerRate float64    `json:"trigger_rate" db:"trigger_rate"`
	Strictness  Strictness `json:"strictness" db:"strictness"`
	Confidence  float64    `json:"confidence" db:"confidence"`
}

// Clone returns a copy.
func (r *RefereeProfile) Clone() *RefereeProfile {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}
