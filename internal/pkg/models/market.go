package models

import "strings"

// Market is a canonical betting market identifier.
type Market string

const (
	MarketNone Market = ""

	MarketHome Market = "home"
	MarketDraw Market = "draw"
	MarketAway Market = "away"

	MarketOver15  Market = "over_1.5"
	MarketOver25  Market = "over_2.5"
	MarketOver35  Market = "over_3.5"
	MarketUnder15 Market = "under_1.5"
	MarketUnder25 Market = "under_2.5"
	MarketUnder35 Market = "under_3.5"

	MarketBTTSYes Market = "btts_yes"
	MarketBTTSNo  Market = "btts_no"

	MarketDoubleChance1X Market = "double_chance_1X"
	MarketDoubleChanceX2 Market = "double_chance_X2"
	MarketDoubleChance12 Market = "double_chance_12"

	MarketDrawNoBetHome Market = "draw_no_bet_home"
	MarketDrawNoBetAway Market = "draw_no_bet_away"
)

// AllMarkets lists recognized markets in canonical order. Every "first available"
// rule in the engine iterates this slice.
var AllMarkets = []Market{
	MarketHome, MarketDraw, MarketAway,
	MarketOver15, MarketOver25, MarketOver35,
	MarketUnder15, MarketUnder25, MarketUnder35,
	MarketBTTSYes, MarketBTTSNo,
	MarketDoubleChance1X, MarketDoubleChanceX2, MarketDoubleChance12,
	MarketDrawNoBetHome, MarketDrawNoBetAway,
}

var marketsByLower = func() map[string]Market {
	m := make(map[string]Market, len(AllMarkets))
	for _, mk := range AllMarkets {
		m[strings.ToLower(string(mk))] = mk
	}
	return m
}()

// ParseMarket resolves a market identifier case-insensitively.
func ParseMarket(s string) (Market, bool) {
	m, ok := marketsByLower[strings.ToLower(strings.TrimSpace(s))]
	return m, ok
}

// IsKnown reports whether m is one of the recognized markets.
func (m Market) IsKnown() bool {
	_, ok := marketsByLower[strings.ToLower(string(m))]
	return ok
}

// Rank returns the position of m in canonical order, or len(AllMarkets) for unknown markets.
func (m Market) Rank() int {
	for i, mk := range AllMarkets {
		if mk == m {
			return i
		}
	}
	return len(AllMarkets)
}

func (m Market) String() string {
	return string(m)
}

// MarketSet is a small ordered set of markets. It is kept sorted in canonical
// order so that serialized snapshots are stable.
type MarketSet []Market

// NewMarketSet parses raw identifiers, drops unknown ones and duplicates and
// returns the set in canonical order. Unknown identifiers are returned separately.
func NewMarketSet(raw []string) (MarketSet, []string) {
	seen := make(map[Market]bool, len(raw))
	var unknown []string
	for _, r := range raw {
		m, ok := ParseMarket(r)
		if !ok {
			unknown = append(unknown, r)
			continue
		}
		seen[m] = true
	}
	set := make(MarketSet, 0, len(seen))
	for _, m := range AllMarkets {
		if seen[m] {
			set = append(set, m)
		}
	}
	return set, unknown
}

// Contains reports whether m belongs to the set.
func (s MarketSet) Contains(m Market) bool {
	for _, x := range s {
		if x == m {
			return true
		}
	}
	return false
}

// Strings returns the identifiers as plain strings.
// With returns a copy of s that also holds m, in canonical order.
func (s MarketSet) With(m Market) MarketSet {
	set, _ := NewMarketSet(append(s.Strings(), string(m)))
	return set
}

func (s MarketSet) Strings() []string {
	out := make([]string, len(s))
	for i, m := range s {
		out[i] = string(m)
	}
	return out
}
