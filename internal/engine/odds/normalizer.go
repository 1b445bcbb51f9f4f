// Package odds builds the normalized OddsSnapshot of a match from raw feed quotes.
package odds

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/Vodeneev/adnbet/internal/pkg/config"
	"github.com/Vodeneev/adnbet/internal/pkg/interfaces"
	"github.com/Vodeneev/adnbet/internal/pkg/models"
)

// Feed outcome names seen in odds_history, mapped to canonical markets.
// Canonical identifiers are accepted as-is by models.ParseMarket.
var feedAliases = map[string]models.Market{
	"1":               models.MarketHome,
	"home_win":        models.MarketHome,
	"x":               models.MarketDraw,
	"2":               models.MarketAway,
	"away_win":        models.MarketAway,
	"total_over_1.5":  models.MarketOver15,
	"total_over_2.5":  models.MarketOver25,
	"total_over_3.5":  models.MarketOver35,
	"total_under_1.5": models.MarketUnder15,
	"total_under_2.5": models.MarketUnder25,
	"total_under_3.5": models.MarketUnder35,
	"over 2.5":        models.MarketOver25,
	"under 2.5":       models.MarketUnder25,
	"btts":            models.MarketBTTSYes,
	"btts yes":        models.MarketBTTSYes,
	"btts no":         models.MarketBTTSNo,
	"1x":              models.MarketDoubleChance1X,
	"x2":              models.MarketDoubleChanceX2,
	"12":              models.MarketDoubleChance12,
	"dnb_home":        models.MarketDrawNoBetHome,
	"dnb_away":        models.MarketDrawNoBetAway,
}

// ResolveMarket maps a raw feed identifier to a canonical market.
func ResolveMarket(raw string) (models.Market, bool) {
	if m, ok := models.ParseMarket(raw); ok {
		return m, true
	}
	key := strings.Join(strings.Fields(strings.ToLower(raw)), " ")
	m, ok := feedAliases[key]
	return m, ok
}

// Normalizer turns raw quotes into an OddsSnapshot.
type Normalizer struct {
	cfg       config.OddsConfig
	sanitizer interfaces.DataSanitizer
}

func NewNormalizer(cfg config.OddsConfig, sanitizer interfaces.DataSanitizer) *Normalizer {
	return &Normalizer{cfg: cfg, sanitizer: sanitizer}
}

// Normalize resolves market identifiers, drops unusable quotes and derives btts quotes
// from over_2.5 when the feed has none. Unknown identifiers are noted, never fatal.
func (n *Normalizer) Normalize(raw map[string]float64) models.OddsSnapshot {
	snap := models.OddsSnapshot{Quotes: make(map[models.Market]float64, len(raw))}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	// deterministic notes and collision handling
	sort.Strings(keys)

	for _, k := range keys {
		m, ok := ResolveMarket(k)
		if !ok {
			snap.Notes = append(snap.Notes, fmt.Sprintf("odds.%s: unknown market ignored", k))
			continue
		}
		if _, dup := snap.Quotes[m]; dup {
			snap.Notes = append(snap.Notes, fmt.Sprintf("odds.%s: duplicate quote for %s ignored", k, m))
			continue
		}
		snap.Quotes[m] = raw[k]
	}
	snap.Notes = append(snap.Notes, n.sanitizer.SanitizeOdds(snap.Quotes)...)

	if _, ok := snap.Quotes[models.MarketBTTSYes]; !ok {
		if over, ok := snap.Quotes[models.MarketOver25]; ok && over > 1.0 {
			yes, no := ApproximateBTTS(over, n.cfg.BTTSApprox)
			snap.Quotes[models.MarketBTTSYes] = yes
			if _, ok := snap.Quotes[models.MarketBTTSNo]; !ok {
				snap.Quotes[models.MarketBTTSNo] = no
			}
			snap.Approximated = true
		}
	}
	return snap
}

// ApproximateBTTS derives btts_yes and btts_no decimal odds from over_2.5:
// p = clamp(MinProb, MaxProb, Intercept + Slope/over25), quotes rounded to 2 decimals.
func ApproximateBTTS(over25 float64, cfg config.BTTSApproxConfig) (yes, no float64) {
	p := cfg.Intercept + cfg.Slope/over25
	p = math.Max(cfg.MinProb, math.Min(cfg.MaxProb, p))
	return round2(1 / p), round2(1 / (1 - p))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
