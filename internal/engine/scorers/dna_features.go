package scorers

import (
	"fmt"

	"github.com/Vodeneev/adnbet/internal/pkg/config"
	"github.com/Vodeneev/adnbet/internal/pkg/models"
)

// DNAFeatures adds fixed per-team bonuses for value-signalling ADN traits.
type DNAFeatures struct {
	cfg config.DNAFeaturesConfig
}

func NewDNAFeatures(cfg config.DNAFeaturesConfig) *DNAFeatures {
	return &DNAFeatures{cfg: cfg}
}

func (d *DNAFeatures) Name() models.ModelName { return models.ModelDNAFeatures }

func (d *DNAFeatures) Score(in *Input) models.ModelVote {
	if in.HomeADN == nil && in.AwayADN == nil {
		return skip(d.Name(), "no ADN for either team")
	}

	home := d.bonus(in.HomeADN, in.HomeV7)
	away := d.bonus(in.AwayADN, in.AwayV7)
	total := home + away

	signal := models.SignalHold
	switch {
	case total >= d.cfg.StrongBuyTotal:
		signal = models.SignalStrongBuy
	case total >= d.cfg.BuyTotal:
		signal = models.SignalBuy
	}

	return models.ModelVote{
		Model:      d.Name(),
		Signal:     signal,
		Confidence: round4(clamp(0, d.cfg.MaxConfidence, d.cfg.BaseConfidence+d.cfg.PerPoint*total)),
		Reasoning:  fmt.Sprintf("dna total %.0f (home %.0f, away %.0f)", total, home, away),
		RawData: map[string]float64{
			"home_bonus": home,
			"away_bonus": away,
			"total":      total,
		},
	}
}

func (d *DNAFeatures) bonus(adn *models.TeamADN, v7 *models.V7Strategy) float64 {
	if adn == nil {
		return 0
	}
	c := d.cfg
	b := 0.0
	if adn.Psyche.Profile == models.PsycheDefensive {
		b += c.DefensiveBonus
	}
	if adn.Luck.Profile.IsUnlucky() {
		b += c.UnluckyBonus
	}
	if adn.Psyche.KillerInstinct < c.LowKillerInstinct {
		b += c.KillerInstinctBonus
	}
	if adn.ROI > c.HighROI {
		b += c.HighROIBonus
	}
	if v7.HasPepites() {
		b += c.PepiteBonus
	}
	return b
}
