package scorers

import (
	"fmt"
	"math"

	"github.com/Vodeneev/adnbet/internal/pkg/config"
	"github.com/Vodeneev/adnbet/internal/pkg/models"
)

// Quantum compares a per-team value score built from ADN features. It backs the
// stronger side and never names a market.
type Quantum struct {
	cfg config.QuantumConfig
}

func NewQuantum(cfg config.QuantumConfig) *Quantum {
	return &Quantum{cfg: cfg}
}

func (q *Quantum) Name() models.ModelName { return models.ModelQuantum }

func (q *Quantum) Score(in *Input) models.ModelVote {
	if in.HomeADN == nil && in.AwayADN == nil {
		return skip(q.Name(), "no ADN for either team")
	}

	home := q.teamScore(in.HomeADN)
	away := q.teamScore(in.AwayADN)
	z := home - away

	side := "home"
	if z < 0 {
		side = "away"
	}
	abs := math.Abs(z)

	signal := models.SignalHold
	switch {
	case abs >= q.cfg.StrongEdge:
		signal = models.SignalStrongBuy
	case abs >= q.cfg.BuyEdge:
		signal = models.SignalBuy
	}

	return models.ModelVote{
		Model:      q.Name(),
		Signal:     signal,
		Confidence: round4(clamp(0, q.cfg.MaxConfidence, q.cfg.BaseConfidence+q.cfg.EdgeConfidenceScale*abs)),
		Reasoning:  fmt.Sprintf("z_edge %.2f favours %s (home %.2f, away %.2f)", z, side, home, away),
		RawData: map[string]float64{
			"home_score": round4(home),
			"away_score": round4(away),
			"z_edge":     round4(z),
		},
	}
}

// teamScore is the weighted feature sum clamped to [-ScoreCap, ScoreCap]. A missing
// profile scores zero.
func (q *Quantum) teamScore(adn *models.TeamADN) float64 {
	if adn == nil {
		return 0
	}
	c := q.cfg
	s := 0.0

	if adn.Psyche.Profile == models.PsycheDefensive {
		s += c.DefensiveBonus
	}
	s += clamp(0, c.KillerInstinctMax, (models.DefaultKillerInstinct-adn.Psyche.KillerInstinct)*c.KillerInstinctScale)

	switch adn.Luck.Profile {
	case models.LuckVeryUnlucky:
		s += c.VeryUnluckyBonus
	case models.LuckUnlucky:
		s += c.UnluckyBonus
	case models.LuckLucky:
		s -= c.LuckyPenalty
	case models.LuckVeryLucky:
		s -= c.VeryLuckyPenalty
	}
	if adn.Luck.Total < 0 {
		s += c.NegativeXPointsBonus
	}

	switch {
	case adn.ROI > c.HighROI:
		s += c.HighROIBonus
	case adn.ROI > c.MidROI:
		s += c.MidROIBonus
	}
	if adn.WinRate > c.WinRateThreshold {
		s += c.WinRateBonus
	}

	switch adn.Tier {
	case models.TierElite:
		s += c.EliteBonus
	case models.TierGold:
		s += c.GoldBonus
	case models.TierSilver:
		s += c.SilverBonus
	}
	return clamp(-c.ScoreCap, c.ScoreCap, s)
}
