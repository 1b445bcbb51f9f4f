package scorers

import (
	"fmt"
	"math"

	"github.com/Vodeneev/adnbet/internal/pkg/config"
	"github.com/Vodeneev/adnbet/internal/pkg/models"
)

// DixonColes prices over_2.5 and btts_yes from the friction profile and votes on the
// larger edge against the quoted odds.
type DixonColes struct {
	cfg config.DixonColesConfig
}

func NewDixonColes(cfg config.DixonColesConfig) *DixonColes {
	return &DixonColes{cfg: cfg}
}

func (d *DixonColes) Name() models.ModelName { return models.ModelDixonColes }

func (d *DixonColes) Score(in *Input) models.ModelVote {
	if in.Friction == nil {
		return skip(d.Name(), "no friction profile for the pair")
	}
	pOver, pBTTS := FrictionProbabilities(in.Friction, d.cfg)

	best := models.MarketNone
	var bestEdge, bestProb float64
	raw := map[string]float64{}
	for _, c := range []struct {
		market models.Market
		prob   float64
		key    string
	}{
		{models.MarketOver25, pOver, "over25"},
		{models.MarketBTTSYes, pBTTS, "btts"},
	} {
		odds, ok := in.Odds.Get(c.market)
		if !ok || c.prob <= 0 {
			continue
		}
		edge := c.prob - models.ImpliedProbability(odds)
		raw["p_"+c.key] = round4(c.prob)
		raw["edge_"+c.key] = round4(edge)
		// strict comparison keeps over_2.5 on ties
		if best == models.MarketNone || edge > bestEdge {
			best, bestEdge, bestProb = c.market, edge, c.prob
		}
	}
	if best == models.MarketNone {
		return skip(d.Name(), "no priced goals market")
	}

	signal := models.SignalHold
	switch {
	case bestEdge >= d.cfg.StrongEdge:
		signal = models.SignalStrongBuy
	case bestEdge >= d.cfg.BuyEdge:
		signal = models.SignalBuy
	}

	return models.ModelVote{
		Model:       d.Name(),
		Signal:      signal,
		Confidence:  round4(clamp(0, d.cfg.MaxConfidence, d.cfg.BaseConfidence+d.cfg.EdgeConfidenceScale*bestEdge)),
		Market:      best,
		Probability: models.Float(bestProb),
		Reasoning:   fmt.Sprintf("%s edge %+.4f (p %.3f)", best, bestEdge, bestProb),
		RawData:     raw,
	}
}

// FrictionProbabilities returns P(over 2.5) and P(btts). Direct predictions from the
// friction record win; a missing one is derived from predicted_goals through a
// Dixon-Coles score matrix. Zero means unknown.
func FrictionProbabilities(f *models.MatchupFriction, cfg config.DixonColesConfig) (over25, btts float64) {
	if f == nil {
		return 0, 0
	}
	over25, btts = f.PredictedOver25Prob, f.PredictedBTTSProb
	if (over25 <= 0 || btts <= 0) && f.PredictedGoals > 0 {
		dcOver, dcBTTS := DixonColesProbabilities(f.PredictedGoals, cfg.Rho, cfg.MaxGoals)
		if over25 <= 0 {
			over25 = dcOver
		}
		if btts <= 0 {
			btts = dcBTTS
		}
	}
	return over25, btts
}

// DixonColesProbabilities splits the expected total evenly between both sides and
// applies the low-score correction tau to a Poisson score matrix truncated at maxGoals.
func DixonColesProbabilities(goals, rho float64, maxGoals int) (over25, btts float64) {
	if goals <= 0 || maxGoals < 2 {
		return 0, 0
	}
	lambda := goals / 2
	mu := goals / 2

	home := poissonPMF(lambda, maxGoals)
	away := poissonPMF(mu, maxGoals)

	var total float64
	for i := 0; i <= maxGoals; i++ {
		for j := 0; j <= maxGoals; j++ {
			p := home[i] * away[j] * tau(i, j, lambda, mu, rho)
			if p < 0 {
				p = 0
			}
			total += p
			if i+j >= 3 {
				over25 += p
			}
			if i >= 1 && j >= 1 {
				btts += p
			}
		}
	}
	if total == 0 {
		return 0, 0
	}
	return over25 / total, btts / total
}

func tau(i, j int, lambda, mu, rho float64) float64 {
	switch {
	case i == 0 && j == 0:
		return 1 - lambda*mu*rho
	case i == 0 && j == 1:
		return 1 + lambda*rho
	case i == 1 && j == 0:
		return 1 + mu*rho
	case i == 1 && j == 1:
		return 1 - rho
	}
	return 1
}

func poissonPMF(lambda float64, max int) []float64 {
	out := make([]float64, max+1)
	out[0] = math.Exp(-lambda)
	for k := 1; k <= max; k++ {
		out[k] = out[k-1] * lambda / float64(k)
	}
	return out
}
