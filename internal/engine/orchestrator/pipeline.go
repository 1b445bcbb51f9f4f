// Package orchestrator runs the per-match decision pipeline over upcoming matches.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/Vodeneev/adnbet/internal/engine/consensus"
	"github.com/Vodeneev/adnbet/internal/engine/market"
	"github.com/Vodeneev/adnbet/internal/engine/montecarlo"
	"github.com/Vodeneev/adnbet/internal/engine/recorder"
	"github.com/Vodeneev/adnbet/internal/engine/scorers"
	"github.com/Vodeneev/adnbet/internal/engine/stake"
	"github.com/Vodeneev/adnbet/internal/pkg/config"
	"github.com/Vodeneev/adnbet/internal/pkg/models"
)

var _ recorder.Decider = (*Pipeline)(nil)

// Pipeline derives a decision from the frozen inputs of a snapshot. It does no I/O
// and is safe for concurrent use.
type Pipeline struct {
	scorers   []scorers.Scorer
	consensus *consensus.Engine
	selector  *market.Selector
	mc        *montecarlo.Validator
	stake     *stake.Policy

	dixonColes config.DixonColesConfig
	floor      float64
	seed       uint64
	weights    map[models.ModelName]float64
	params     json.RawMessage
}

// NewPipeline builds every stage from one set of decision parameters. The same
// parameters restored from a snapshot rebuild an identical pipeline.
func NewPipeline(p config.DecisionParams) (*Pipeline, error) {
	raw, err := p.Snapshot()
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		scorers:    scorers.NewAll(p.Scorers),
		consensus:  consensus.NewEngine(p.Consensus),
		selector:   market.NewSelector(p.Odds.Floor),
		mc:         montecarlo.NewValidator(p.MonteCarlo),
		stake:      stake.NewPolicy(p.Stake, p.Odds.Floor, p.Engine.BaseStake),
		dixonColes: p.Scorers.DixonColes,
		floor:      p.Odds.Floor,
		seed:       p.Engine.Seed,
		weights:    p.Consensus.Weights.Map(),
		params:     raw,
	}, nil
}

// Decide fills the decision fields of snap. Input fields are only read. A returned
// error means the pipeline was interrupted (context done); every other outcome is a
// decision, SKIP included.
func (p *Pipeline) Decide(ctx context.Context, snap *models.DecisionSnapshot) error {
	resetDecision(snap)
	p.Stamp(snap)

	if snap.HomeADN == nil && snap.AwayADN == nil {
		skip(snap, models.ReasonNoADN)
		return nil
	}

	votes, err := scorers.RunAll(ctx, p.scorers, scorerInput(snap))
	if err != nil {
		return err
	}
	snap.Votes = votes

	cons := p.consensus.Combine(votes)
	snap.Consensus = cons
	if !cons.Reached {
		skip(snap, models.ReasonConsensusNotReached)
		return nil
	}

	sel := p.selector.Select(snap.Odds, snap.HomeV7, snap.AwayV7, p.consensus.RankMarkets(votes))
	if !sel.Found() {
		skip(snap, models.ReasonNoMarket)
		return nil
	}
	snap.DecisionNotes = append(snap.DecisionNotes, fmt.Sprintf("market %s from %s at %.2f", sel.Market, sel.Source, sel.Odds))

	in := stake.Input{
		Market:       sel.Market,
		Odds:         sel.Odds,
		Conviction:   cons.Conviction,
		HomeStrategy: snap.HomeStrategy,
		AwayStrategy: snap.AwayStrategy,
		HomeV7:       snap.HomeV7,
		AwayV7:       snap.AwayV7,
		HomeElite:    snap.HomeIsElite,
		AwayElite:    snap.AwayIsElite,
	}
	if sel.Odds < p.floor {
		snap.StakeVerdict = p.stake.Evaluate(in)
		skip(snap, models.ReasonOddsFloor)
		return nil
	}

	prob, source := p.probability(sel.Market, snap, votes)
	snap.Probability = round4(prob)
	snap.Edge = round4(prob - models.ImpliedProbability(sel.Odds))
	snap.DecisionNotes = append(snap.DecisionNotes, fmt.Sprintf("probability %.4f from %s", snap.Probability, source))

	mc := p.mc.Validate(prob, prob-models.ImpliedProbability(sel.Odds), cons.ConsensusScore, snap.Seed)
	snap.MonteCarlo = &mc
	if !mc.IsValid() {
		skip(snap, models.ReasonFragile)
		return nil
	}

	verdict := p.stake.Evaluate(in)
	snap.StakeVerdict = verdict
	if !verdict.Decision.IsBet() {
		skip(snap, models.ReasonOddsFloor)
		return nil
	}

	snap.Decision = verdict.Decision
	snap.FinalMarket = sel.Market
	snap.FinalOdds = models.Float(sel.Odds)
	snap.FinalStake = models.Float(verdict.AdjustedStake)
	return nil
}

// Stamp records the seed, weights and configuration the pipeline decides snap with.
func (p *Pipeline) Stamp(snap *models.DecisionSnapshot) {
	snap.Seed = montecarlo.Seed(p.seed, snap.MatchID)
	snap.ModelWeights = p.weights
	snap.ConfigSnapshot = p.params
}

// probability returns the model probability of m: the friction estimate for the
// goals markets, else the Dixon-Coles vote when it priced m, else the implied
// probability (no edge).
func (p *Pipeline) probability(m models.Market, snap *models.DecisionSnapshot, votes []models.ModelVote) (float64, string) {
	over, btts := scorers.FrictionProbabilities(snap.Friction, p.dixonColes)
	switch {
	case m == models.MarketOver25 && over > 0:
		return over, "friction"
	case m == models.MarketUnder25 && over > 0:
		return 1 - over, "friction"
	case m == models.MarketBTTSYes && btts > 0:
		return btts, "friction"
	case m == models.MarketBTTSNo && btts > 0:
		return 1 - btts, "friction"
	}
	for _, v := range votes {
		if v.Model == models.ModelDixonColes && v.Market == m && v.Probability != nil {
			return *v.Probability, "dixon_coles"
		}
	}
	o, _ := snap.Odds.Get(m)
	return models.ImpliedProbability(o), "implied"
}

func scorerInput(snap *models.DecisionSnapshot) *scorers.Input {
	return &scorers.Input{
		MatchID:      snap.MatchID,
		HomeTeam:     snap.HomeTeam,
		AwayTeam:     snap.AwayTeam,
		HomeADN:      snap.HomeADN,
		AwayADN:      snap.AwayADN,
		HomeStrategy: snap.HomeStrategy,
		AwayStrategy: snap.AwayStrategy,
		HomeV7:       snap.HomeV7,
		AwayV7:       snap.AwayV7,
		Friction:     snap.Friction,
		Referee:      snap.RefereeDetail,
		Odds:         snap.Odds,
		Rest:         snap.Rest.Comparison,
	}
}

func resetDecision(snap *models.DecisionSnapshot) {
	snap.Votes = nil
	snap.Consensus = models.ConsensusResult{}
	snap.MonteCarlo = nil
	snap.StakeVerdict = models.StakeVerdict{}
	snap.Probability = 0
	snap.Edge = 0
	snap.Decision = ""
	snap.Reason = models.ReasonNone
	snap.FinalMarket = models.MarketNone
	snap.FinalOdds = nil
	snap.FinalStake = nil
	snap.DecisionNotes = nil
}

func skip(snap *models.DecisionSnapshot, reason models.SkipReason) {
	snap.Decision = models.DecisionSkip
	snap.Reason = reason
	snap.FinalMarket = models.MarketNone
	snap.FinalOdds = nil
	snap.FinalStake = nil
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
