// Package market picks the final market of a match.
package market

import (
	"github.com/Vodeneev/adnbet/internal/pkg/models"
)

// Source names the selection step that produced a market.
type Source string

const (
	SourceNone      Source = ""
	SourcePepite    Source = "pepite"
	SourceFocus     Source = "focus"
	SourceConsensus Source = "consensus"
	SourceDefault   Source = "default"
)

type Selection struct {
	Market models.Market
	Source Source
	Odds   float64
}

// Found reports whether a market was selected.
func (s Selection) Found() bool {
	return s.Market != models.MarketNone
}

// Selector applies the market priority: pepites, then focus markets, then the ranked
// consensus candidates, then defaults. The first three steps require odds above floor.
type Selector struct {
	floor float64
}

func NewSelector(floor float64) *Selector {
	return &Selector{floor: floor}
}

// Select returns the chosen market, or a zero Selection when none qualifies. Within a
// step the home team's lists come first.
func (s *Selector) Select(odds models.OddsSnapshot, home, away *models.V7Strategy, candidates []models.Market) Selection {
	blocked := func(m models.Market) bool {
		// a pepite of one team lifts the other team's avoid
		return (home.IsAvoid(m) && !away.IsPepite(m)) || (away.IsAvoid(m) && !home.IsPepite(m))
	}
	pick := func(markets []models.Market, src Source) (Selection, bool) {
		for _, m := range markets {
			if blocked(m) {
				continue
			}
			if o, ok := odds.Get(m); ok && o > s.floor {
				return Selection{Market: m, Source: src, Odds: o}, true
			}
		}
		return Selection{}, false
	}

	if sel, ok := pick(concat(pepites(home), pepites(away)), SourcePepite); ok {
		return sel
	}
	if sel, ok := pick(concat(focus(home), focus(away)), SourceFocus); ok {
		return sel
	}
	if sel, ok := pick(candidates, SourceConsensus); ok {
		return sel
	}

	// over_2.5 and btts_yes are taken when quoted off the floor; the stake policy
	// vetoes them below it. A quote exactly at the floor is never selected.
	for _, m := range []models.Market{models.MarketOver25, models.MarketBTTSYes} {
		if blocked(m) {
			continue
		}
		if o, ok := odds.Get(m); ok && o != s.floor {
			return Selection{Market: m, Source: SourceDefault, Odds: o}
		}
	}
	if sel, ok := pick(odds.Above(s.floor), SourceDefault); ok {
		return sel
	}
	return Selection{}
}

func pepites(v *models.V7Strategy) models.MarketSet {
	if v == nil {
		return nil
	}
	return v.Pepites
}

func focus(v *models.V7Strategy) models.MarketSet {
	if v == nil {
		return nil
	}
	return v.MarketsFocus
}

func concat(a, b models.MarketSet) []models.Market {
	out := make([]models.Market, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}
