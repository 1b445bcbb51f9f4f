package models

// ModelName identifies one of the six scorers.
type ModelName string

const (
	ModelTeamStrategy ModelName = "team_strategy"
	ModelQuantum      ModelName = "quantum_scorer"
	ModelMatchup      ModelName = "matchup_scorer"
	ModelDixonColes   ModelName = "dixon_coles"
	ModelScenarios    ModelName = "scenarios"
	ModelDNAFeatures  ModelName = "dna_features"
)

// ModelOrder is the fixed order in which votes are stored and combined.
var ModelOrder = []ModelName{
	ModelTeamStrategy,
	ModelQuantum,
	ModelMatchup,
	ModelDixonColes,
	ModelScenarios,
	ModelDNAFeatures,
}

type Signal string

const (
	SignalStrongBuy Signal = "STRONG_BUY"
	SignalBuy       Signal = "BUY"
	SignalHold      Signal = "HOLD"
	SignalSell      Signal = "SELL"
	SignalSkip      Signal = "SKIP"
)

// ModelVote is the opinion of one scorer on one match.
type ModelVote struct {
	Model       ModelName          `json:"model_name"`
	Signal      Signal             `json:"signal"`
	Confidence  float64            `json:"confidence"`
	Market      Market             `json:"market,omitempty"`
	Probability *float64           `json:"probability,omitempty"`
	Reasoning   string             `json:"reasoning"`
	RawData     map[string]float64 `json:"raw_data,omitempty"`
}

// IsPositive is true for BUY and STRONG_BUY.
func (v ModelVote) IsPositive() bool {
	return v.Signal == SignalStrongBuy || v.Signal == SignalBuy
}

// Float returns a pointer to f, for optional fields.
func Float(f float64) *float64 {
	return &f
}
