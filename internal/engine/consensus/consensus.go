// Package consensus combines the six model votes into one weighted verdict.
package consensus

import (
	"math"
	"sort"

	"github.com/Vodeneev/adnbet/internal/pkg/config"
	"github.com/Vodeneev/adnbet/internal/pkg/models"
)

type Engine struct {
	cfg config.ConsensusConfig
}

func NewEngine(cfg config.ConsensusConfig) *Engine {
	return &Engine{cfg: cfg}
}

// Weight returns the effective weight of one vote: base weight times the
// confidence multiplier.
func (e *Engine) Weight(v models.ModelVote) float64 {
	return e.cfg.Weights.For(v.Model) * e.multiplier(v.Confidence)
}

func (e *Engine) multiplier(confidence float64) float64 {
	switch {
	case confidence >= e.cfg.HighConfidence:
		return e.cfg.HighMultiplier
	case confidence >= e.cfg.MidConfidence:
		return e.cfg.MidMultiplier
	default:
		return e.cfg.LowMultiplier
	}
}

// Combine weighs every vote, SKIP included, and decides whether consensus is reached.
func (e *Engine) Combine(votes []models.ModelVote) models.ConsensusResult {
	var res models.ConsensusResult
	for _, v := range votes {
		w := e.Weight(v)
		res.TotalWeight += w
		if v.IsPositive() {
			res.PositiveWeight += w
			res.ConsensusCount++
		}
	}
	if res.TotalWeight > 0 {
		res.ConsensusScore = res.PositiveWeight / res.TotalWeight
	}
	res.PositiveWeight = round4(res.PositiveWeight)
	res.TotalWeight = round4(res.TotalWeight)
	res.ConsensusScore = round4(res.ConsensusScore)

	res.Conviction = e.conviction(res.ConsensusCount)
	res.Reached = res.ConsensusScore >= e.cfg.MinScore && res.ConsensusCount >= e.cfg.MinCount
	if ranked := e.RankMarkets(votes); len(ranked) > 0 {
		res.CandidateMarket = ranked[0]
	}
	return res
}

func (e *Engine) conviction(count int) models.Conviction {
	switch {
	case count >= e.cfg.MaximumCount:
		return models.ConvictionMaximum
	case count >= e.cfg.StrongCount:
		return models.ConvictionStrong
	case count >= e.cfg.ModerateCount:
		return models.ConvictionModerate
	default:
		return models.ConvictionWeak
	}
}

// RankMarkets orders the markets named by positive votes: most votes first, then
// the larger summed weight, then canonical market order.
func (e *Engine) RankMarkets(votes []models.ModelVote) []models.Market {
	type tally struct {
		market models.Market
		count  int
		weight float64
	}
	byMarket := map[models.Market]*tally{}
	for _, v := range votes {
		if !v.IsPositive() || !v.Market.IsKnown() {
			continue
		}
		t, ok := byMarket[v.Market]
		if !ok {
			t = &tally{market: v.Market}
			byMarket[v.Market] = t
		}
		t.count++
		t.weight += e.Weight(v)
	}

	tallies := make([]*tally, 0, len(byMarket))
	for _, t := range byMarket {
		tallies = append(tallies, t)
	}
	sort.Slice(tallies, func(i, j int) bool {
		a, b := tallies[i], tallies[j]
		if a.count != b.count {
			return a.count > b.count
		}
		if wa, wb := round4(a.weight), round4(b.weight); wa != wb {
			return wa > wb
		}
		return a.market.Rank() < b.market.Rank()
	})

	out := make([]models.Market, len(tallies))
	for i, t := range tallies {
		out[i] = t.market
	}
	return out
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
