package models

// OddsSnapshot is the normalized set of decimal quotes for one upcoming match.
type OddsSnapshot struct {
	Quotes       map[Market]float64 `json:"quotes"`
	Approximated bool               `json:"approximated"` // btts quotes were derived from over_2.5
	Notes        []string           `json:"notes,omitempty"`
}

// Get returns the decimal odds for m.
func (o OddsSnapshot) Get(m Market) (float64, bool) {
	if o.Quotes == nil || m == MarketNone {
		return 0, false
	}
	v, ok := o.Quotes[m]
	return v, ok
}

// Has reports whether m is quoted.
func (o OddsSnapshot) Has(m Market) bool {
	_, ok := o.Get(m)
	return ok
}

// Above returns quoted markets with odds strictly above floor, in canonical order.
func (o OddsSnapshot) Above(floor float64) []Market {
	var out []Market
	for _, m := range AllMarkets {
		if v, ok := o.Get(m); ok && v > floor {
			out = append(out, m)
		}
	}
	return out
}

// Clone returns a deep copy.
func (o OddsSnapshot) Clone() OddsSnapshot {
	c := OddsSnapshot{Approximated: o.Approximated}
	if o.Quotes != nil {
		c.Quotes = make(map[Market]float64, len(o.Quotes))
		for k, v := range o.Quotes {
			c.Quotes[k] = v
		}
	}
	if len(o.Notes) > 0 {
		c.Notes = append([]string(nil), o.Notes...)
	}
	return c
}

// ImpliedProbability converts decimal odds to the bookmaker's implied probability.
func ImpliedProbability(odds float64) float64 {
	if odds <= 0 {
		return 0
	}
	return 1.0 / odds
}
