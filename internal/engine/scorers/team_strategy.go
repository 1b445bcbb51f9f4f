package scorers

import (
	"fmt"
	"strings"

	"github.com/Vodeneev/adnbet/internal/pkg/config"
	"github.com/Vodeneev/adnbet/internal/pkg/models"
)

// TeamStrategy votes on the historical profit of the better of both teams' strategies.
type TeamStrategy struct {
	cfg config.TeamStrategyConfig
}

func NewTeamStrategy(cfg config.TeamStrategyConfig) *TeamStrategy {
	return &TeamStrategy{cfg: cfg}
}

func (s *TeamStrategy) Name() models.ModelName { return models.ModelTeamStrategy }

func (s *TeamStrategy) Score(in *Input) models.ModelVote {
	strategy, v7, side := pickStrategy(in)
	if strategy == nil {
		return skip(s.Name(), "no strategy profile for either team")
	}

	raw := map[string]float64{"profit": strategy.Profit, "roi": strategy.ROI}
	if strategy.Profit <= s.cfg.MinProfit {
		return models.ModelVote{
			Model:      s.Name(),
			Signal:     models.SignalHold,
			Confidence: s.cfg.HoldConfidence,
			Reasoning:  fmt.Sprintf("%s %s profit %.2f not above %.2f", side, strategy.StrategyName, strategy.Profit, s.cfg.MinProfit),
			RawData:    raw,
		}
	}

	signal := models.SignalBuy
	if strategy.ROI >= s.cfg.StrongROI {
		signal = models.SignalStrongBuy
	}

	conf := clamp(0, s.cfg.MaxConfidence, s.cfg.BaseConfidence+strategy.ROI*s.cfg.ROIConfidenceScale)
	var bonuses []string
	if v7.HasPepites() {
		conf += s.cfg.PepiteBonus
		bonuses = append(bonuses, "pepite")
	}
	if v7.HasFocus() {
		conf += s.cfg.FocusBonus
		bonuses = append(bonuses, "focus")
	}
	conf = clamp(0, 100, conf)

	reason := fmt.Sprintf("%s %s profit %.2f roi %.1f%%", side, strategy.StrategyName, strategy.Profit, strategy.ROI)
	if len(bonuses) > 0 {
		reason += " (+" + strings.Join(bonuses, ", +") + ")"
	}
	return models.ModelVote{
		Model:      s.Name(),
		Signal:     signal,
		Confidence: round4(conf),
		Market:     s.marketOf(strategy),
		Reasoning:  reason,
		RawData:    raw,
	}
}

// pickStrategy returns the strategy with the higher profit; ties go to home.
func pickStrategy(in *Input) (*models.StrategyProfile, *models.V7Strategy, string) {
	home, away := in.HomeStrategy, in.AwayStrategy
	switch {
	case home == nil && away == nil:
		return nil, nil, ""
	case away == nil || (home != nil && home.Profit >= away.Profit):
		return home, in.HomeV7, "home"
	default:
		return away, in.AwayV7, "away"
	}
}

// strategy names carry their market, e.g. "btts_value" or "under_specialist"
var strategyKeywords = []struct {
	keyword string
	market  models.Market
}{
	{"btts", models.MarketBTTSYes},
	{"under", models.MarketUnder25},
	{"over", models.MarketOver25},
	{"goals", models.MarketOver25},
	{"draw", models.MarketDraw},
	{"home", models.MarketHome},
	{"away", models.MarketAway},
}

func (s *TeamStrategy) marketOf(st *models.StrategyProfile) models.Market {
	if st.Market.IsKnown() {
		return st.Market
	}
	name := strings.ToLower(st.StrategyName)
	for _, k := range strategyKeywords {
		if strings.Contains(name, k.keyword) {
			return k.market
		}
	}
	m, _ := models.ParseMarket(s.cfg.DefaultMarket)
	return m
}
