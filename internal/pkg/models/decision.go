package models

import (
	"encoding/json"
	"time"
)

type Conviction string

const (
	ConvictionMaximum  Conviction = "MAXIMUM"
	ConvictionStrong   Conviction = "STRONG"
	ConvictionModerate Conviction = "MODERATE"
	ConvictionWeak     Conviction = "WEAK"
)

// ConsensusResult is the weighted combination of the six votes.
type ConsensusResult struct {
	PositiveWeight  float64    `json:"positive_weight"`
	TotalWeight     float64    `json:"total_weight"`
	ConsensusScore  float64    `json:"consensus_score"`
	ConsensusCount  int        `json:"consensus_count"`
	Conviction      Conviction `json:"conviction"`
	Reached         bool       `json:"reached"`
	CandidateMarket Market     `json:"candidate_market,omitempty"`
}

type Robustness string

const (
	RobustnessRockSolid  Robustness = "ROCK_SOLID"
	RobustnessRobust     Robustness = "ROBUST"
	RobustnessUnreliable Robustness = "UNRELIABLE"
	RobustnessFragile    Robustness = "FRAGILE"
)

// MonteCarloResult is the robustness verdict of the noisy re-scoring.
type MonteCarloResult struct {
	ValidationScore float64    `json:"validation_score"`
	SuccessRate     float64    `json:"success_rate"`
	StdDev          float64    `json:"std_dev"`
	Robustness      Robustness `json:"robustness"`
	KellyFraction   float64    `json:"kelly_fraction"`
	Trials          int        `json:"trials"`
	Seed            uint64     `json:"seed"`
}

// IsValid is false only for FRAGILE.
func (r MonteCarloResult) IsValid() bool {
	switch r.Robustness {
	case RobustnessRockSolid, RobustnessRobust, RobustnessUnreliable:
		return true
	}
	return false
}

type Decision string

const (
	DecisionBetStrong   Decision = "BET_STRONG"
	DecisionBetNormal   Decision = "BET_NORMAL"
	DecisionBetCautious Decision = "BET_CAUTIOUS"
	DecisionSkip        Decision = "SKIP"
)

// IsBet is true for every BET_* grade.
func (d Decision) IsBet() bool {
	return d == DecisionBetStrong || d == DecisionBetNormal || d == DecisionBetCautious
}

// SkipReason explains a SKIP decision.
type SkipReason string

const (
	ReasonNone                SkipReason = ""
	ReasonConsensusNotReached SkipReason = "consensus_not_reached"
	ReasonFragile             SkipReason = "fragile"
	ReasonOddsFloor           SkipReason = "odds_floor"
	ReasonNoADN               SkipReason = "no_adn"
	ReasonNoMarket            SkipReason = "no_market"
	ReasonInconsistent        SkipReason = "inconsistent"
	ReasonTimeout             SkipReason = "timeout"
	ReasonIOError             SkipReason = "io_error"
	ReasonError               SkipReason = "error"
)

// IsFailure reports whether the SKIP came from an error rather than from the
// pipeline. Such snapshots may lack the inputs the pipeline needs.
func (r SkipReason) IsFailure() bool {
	switch r {
	case ReasonInconsistent, ReasonTimeout, ReasonIOError, ReasonError:
		return true
	}
	return false
}

// StakeVerdict is the outcome of the adaptive stake policy.
type StakeVerdict struct {
	Decision        Decision `json:"decision"`
	AdjustedStake   float64  `json:"adjusted_stake"`
	StakeMultiplier float64  `json:"stake_multiplier"`
	Adjustments     []string `json:"adjustments"`
	IsPepite        bool     `json:"is_pepite"`
	IsEliteTeam     bool     `json:"is_elite_team"`
	SweetSpot       bool     `json:"sweet_spot"`
}

// DecisionSnapshot is the write-once record of one analyzed match. It holds every input
// needed to re-derive the decision offline.
type DecisionSnapshot struct {
	SnapshotID        string    `json:"snapshot_id"`
	MatchID           string    `json:"match_id"`
	HomeTeam          string    `json:"home_team"`
	AwayTeam          string    `json:"away_team"`
	CommenceTime      time.Time `json:"commence_time"`
	Referee           string    `json:"referee,omitempty"`
	SourceDataVersion int64     `json:"source_data_version"`
	Seed              uint64    `json:"seed"`

	HomeADN       *TeamADN         `json:"home_adn_snapshot"`
	AwayADN       *TeamADN         `json:"away_adn_snapshot"`
	HomeStrategy  *StrategyProfile `json:"home_strategy_snapshot,omitempty"`
	AwayStrategy  *StrategyProfile `json:"away_strategy_snapshot,omitempty"`
	HomeV7        *V7Strategy      `json:"home_v7_snapshot,omitempty"`
	AwayV7        *V7Strategy      `json:"away_v7_snapshot,omitempty"`
	HomeIsElite   bool             `json:"home_is_elite"`
	AwayIsElite   bool             `json:"away_is_elite"`
	Friction      *MatchupFriction `json:"friction_snapshot"`
	RefereeDetail *RefereeProfile  `json:"referee_snapshot,omitempty"`
	Odds          OddsSnapshot     `json:"odds_snapshot"`
	Rest          RestSnapshot     `json:"rest_snapshot"`

	Votes        []ModelVote           `json:"votes"`
	ModelWeights map[ModelName]float64 `json:"model_weights"`
	Consensus    ConsensusResult       `json:"consensus"`
	MonteCarlo   *MonteCarloResult     `json:"monte_carlo,omitempty"`
	StakeVerdict StakeVerdict          `json:"stake_verdict"`

	Probability float64    `json:"probability"`
	Edge        float64    `json:"edge"`
	Decision    Decision   `json:"decision"`
	Reason      SkipReason `json:"reason,omitempty"`
	FinalMarket Market     `json:"final_market,omitempty"`
	FinalOdds   *float64   `json:"final_odds,omitempty"`
	FinalStake  *float64   `json:"final_stake,omitempty"`

	// Notes are written while the inputs are loaded, DecisionNotes by the pipeline.
	Notes         []string `json:"notes,omitempty"`
	DecisionNotes []string `json:"decision_notes,omitempty"`

	ConfigSnapshot json.RawMessage `json:"config_snapshot,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}
