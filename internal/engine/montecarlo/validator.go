// Package montecarlo checks that a decision survives bounded noise on its inputs.
package montecarlo

import (
	"hash/fnv"
	"math"
	"math/rand/v2"

	"github.com/Vodeneev/adnbet/internal/pkg/config"
	"github.com/Vodeneev/adnbet/internal/pkg/models"
)

// pcgStream is the fixed PCG increment; only the seed varies between matches.
const pcgStream = 0x9e3779b97f4a7c15

// Validator runs the noisy re-scoring. The result is a pure function of
// (probability, edge, confidence, seed, trials).
type Validator struct {
	cfg config.MonteCarloConfig
}

func NewValidator(cfg config.MonteCarloConfig) *Validator {
	return &Validator{cfg: cfg}
}

// Seed derives the per-match seed from the run seed and the match id.
func Seed(base uint64, matchID string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(matchID))
	return base ^ h.Sum64()
}

// Score is the blended decision score of one (p, edge, confidence) triple.
func (v *Validator) Score(p, edge, confidence float64) float64 {
	b := v.cfg.Blend
	return b.Probability*p + b.Edge*edge + b.Confidence*confidence
}

// Validate scores noisy copies of (p, edge, confidence). Each component is scaled by
// its own factor (1+eta), eta uniform in [-noise, +noise]; inputs are clamped to [0,1].
// A trial succeeds when its score reaches ScoreThreshold and its edge stays above
// EdgeThreshold.
func (v *Validator) Validate(p, edge, confidence float64, seed uint64) models.MonteCarloResult {
	c := v.cfg
	trials := max(c.Trials, 1)

	cp, ce, cc := clamp01(p), clamp01(edge), clamp01(confidence)
	rng := rand.New(rand.NewPCG(seed, pcgStream))
	eta := func() float64 { return (rng.Float64()*2 - 1) * c.Noise }

	var sum, sumSq float64
	successes := 0
	for i := 0; i < trials; i++ {
		np := cp * (1 + eta())
		ne := ce * (1 + eta())
		nc := cc * (1 + eta())

		score := v.Score(np, ne, nc)
		sum += score
		sumSq += score * score
		if score >= c.ScoreThreshold && ne > c.EdgeThreshold {
			successes++
		}
	}

	n := float64(trials)
	mean := sum / n
	std := math.Sqrt(math.Max(0, sumSq/n-mean*mean))
	rate := float64(successes) / n

	return models.MonteCarloResult{
		ValidationScore: round4(mean),
		SuccessRate:     round4(rate),
		StdDev:          round4(std),
		Robustness:      v.robustness(rate, std),
		KellyFraction:   round4(v.Kelly(cp, edge)),
		Trials:          trials,
		Seed:            seed,
	}
}

func (v *Validator) robustness(rate, std float64) models.Robustness {
	r := v.cfg.Robustness
	switch {
	case rate >= r.RockSolidRate && std < r.RockSolidStd:
		return models.RobustnessRockSolid
	case rate >= r.RobustRate && std < r.RobustStd:
		return models.RobustnessRobust
	case rate >= r.UnreliableRate:
		return models.RobustnessUnreliable
	default:
		return models.RobustnessFragile
	}
}

// Kelly returns clamp(0, KellyCap, edge*p/(1-p)).
func (v *Validator) Kelly(p, edge float64) float64 {
	if edge <= 0 || p <= 0 || math.IsNaN(edge) {
		return 0
	}
	if p >= 1 {
		return v.cfg.KellyCap
	}
	return math.Max(0, math.Min(v.cfg.KellyCap, edge*p/(1-p)))
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
