package scorers

import (
	"fmt"

	"github.com/Vodeneev/adnbet/internal/pkg/config"
	"github.com/Vodeneev/adnbet/internal/pkg/models"
)

// Matchup scores the pair's friction profile alone.
type Matchup struct {
	cfg config.MatchupConfig
}

func NewMatchup(cfg config.MatchupConfig) *Matchup {
	return &Matchup{cfg: cfg}
}

func (m *Matchup) Name() models.ModelName { return models.ModelMatchup }

func (m *Matchup) Score(in *Input) models.ModelVote {
	f := in.Friction
	if f == nil {
		return skip(m.Name(), "no friction profile for the pair")
	}

	score := (f.FrictionScore + f.ChaosPotential + f.StyleClash) / 3
	signal := models.SignalHold
	switch {
	case score >= m.cfg.StrongBuyScore:
		signal = models.SignalStrongBuy
	case score >= m.cfg.BuyScore:
		signal = models.SignalBuy
	}

	return models.ModelVote{
		Model:      m.Name(),
		Signal:     signal,
		Confidence: round4(clamp(0, 100, score)),
		Reasoning: fmt.Sprintf("matchup %.1f (friction %.0f, chaos %.0f, style %.0f)",
			score, f.FrictionScore, f.ChaosPotential, f.StyleClash),
		RawData: map[string]float64{"matchup_score": round4(score)},
	}
}
