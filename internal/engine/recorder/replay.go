package recorder

import (
	"context"
	"fmt"

	"github.com/Vodeneev/adnbet/internal/pkg/models"
)

// Decider fills the decision fields of a snapshot from its input fields.
type Decider interface {
	Decide(ctx context.Context, snap *models.DecisionSnapshot) error
}

// Outcome is the part of a decision that replay must reproduce.
type Outcome struct {
	Market   models.Market     `json:"final_market"`
	Stake    float64           `json:"final_stake"`
	Decision models.Decision   `json:"decision"`
	Reason   models.SkipReason `json:"reason,omitempty"`
}

func OutcomeOf(snap *models.DecisionSnapshot) Outcome {
	o := Outcome{Market: snap.FinalMarket, Decision: snap.Decision, Reason: snap.Reason}
	if snap.FinalStake != nil {
		o.Stake = *snap.FinalStake
	}
	return o
}

// Diff compares a stored outcome with its replay.
type Diff struct {
	Stored   Outcome `json:"stored"`
	Replayed Outcome `json:"replayed"`
	// Failed is set for snapshots skipped on error; they are not re-run.
	Failed bool `json:"failed,omitempty"`
}

func (d Diff) Equal() bool {
	return d.Stored == d.Replayed
}

func (d Diff) String() string {
	if d.Failed {
		return fmt.Sprintf("skipped on %s, not replayed", d.Stored.Reason)
	}
	if d.Equal() {
		return "identical"
	}
	return fmt.Sprintf("stored %s %s %.4f (%s), replayed %s %s %.4f (%s)",
		d.Stored.Decision, d.Stored.Market, d.Stored.Stake, d.Stored.Reason,
		d.Replayed.Decision, d.Replayed.Market, d.Replayed.Stake, d.Replayed.Reason)
}

// Replay re-runs d on the frozen inputs of stored and compares the outcomes.
// A snapshot skipped on error froze no complete inputs; its stored outcome is
// returned as the replayed one. stored is not modified.
func Replay(ctx context.Context, d Decider, stored *models.DecisionSnapshot) (Diff, error) {
	if stored == nil {
		return Diff{}, fmt.Errorf("snapshot cannot be nil")
	}
	if stored.Decision == models.DecisionSkip && stored.Reason.IsFailure() {
		out := OutcomeOf(stored)
		return Diff{Stored: out, Replayed: out, Failed: true}, nil
	}
	fresh := FrozenInputs(stored)
	if err := d.Decide(ctx, fresh); err != nil {
		return Diff{}, fmt.Errorf("failed to replay %s: %w", stored.MatchID, err)
	}
	return Diff{Stored: OutcomeOf(stored), Replayed: OutcomeOf(fresh)}, nil
}

// FrozenInputs copies the input side of a snapshot: identity, profiles, odds, rest
// and the recorded configuration. Every decision field is left empty.
func FrozenInputs(s *models.DecisionSnapshot) *models.DecisionSnapshot {
	out := &models.DecisionSnapshot{
		MatchID:           s.MatchID,
		HomeTeam:          s.HomeTeam,
		AwayTeam:          s.AwayTeam,
		CommenceTime:      s.CommenceTime,
		Referee:           s.Referee,
		SourceDataVersion: s.SourceDataVersion,

		HomeADN:       s.HomeADN.Clone(),
		AwayADN:       s.AwayADN.Clone(),
		HomeStrategy:  s.HomeStrategy.Clone(),
		AwayStrategy:  s.AwayStrategy.Clone(),
		HomeV7:        s.HomeV7.Clone(),
		AwayV7:        s.AwayV7.Clone(),
		HomeIsElite:   s.HomeIsElite,
		AwayIsElite:   s.AwayIsElite,
		Friction:      s.Friction.Clone(),
		RefereeDetail: s.RefereeDetail.Clone(),
		Odds:          s.Odds.Clone(),
		Rest:          cloneRest(s.Rest),
	}
	if len(s.ConfigSnapshot) > 0 {
		out.ConfigSnapshot = append([]byte(nil), s.ConfigSnapshot...)
	}
	return out
}

func cloneRest(r models.RestSnapshot) models.RestSnapshot {
	var out models.RestSnapshot
	if r.Home != nil {
		h := *r.Home
		out.Home = &h
	}
	if r.Away != nil {
		a := *r.Away
		out.Away = &a
	}
	if r.Comparison != nil {
		c := *r.Comparison
		out.Comparison = &c
	}
	return out
}
