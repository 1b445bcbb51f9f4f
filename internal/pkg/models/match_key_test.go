package models

import (
	"testing"
	"time"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Bayern Munich", "bayern munich"},
		{"  rc   Hades  ", "rc hades"},
		{"PARIS\tSaint-Germain", "paris saint-germain"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		result := NormalizeName(tt.input)
		if result != tt.expected {
			t.Errorf("NormalizeName(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}

func TestNameMapper_ConsultsTableFirst(t *testing.T) {
	m := NewNameMapper(map[string]string{
		"Man United":  "Manchester United",
		"  PSG ":      "Paris Saint-Germain",
		"":            "ignored",
		"Empty value": "",
	})

	tests := []struct {
		input    string
		expected string
	}{
		{"man   united", "manchester united"},
		{"PSG", "paris saint-germain"},
		{"Liverpool", "liverpool"},
		{"empty value", "empty value"},
	}
	for _, tt := range tests {
		if got := m.Resolve(tt.input); got != tt.expected {
			t.Errorf("Resolve(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestFrictionKey_Symmetric(t *testing.T) {
	pairs := [][2]string{
		{"Arsenal", "Chelsea"},
		{"chelsea", "ARSENAL"},
		{"Real  Madrid", "Atletico Madrid"},
	}
	for _, p := range pairs {
		if FrictionKey(p[0], p[1]) != FrictionKey(p[1], p[0]) {
			t.Errorf("FrictionKey(%q,%q) != FrictionKey(%q,%q)", p[0], p[1], p[1], p[0])
		}
	}
	if got := FrictionKey("Chelsea", "Arsenal"); got != "arsenal|chelsea" {
		t.Errorf("FrictionKey = %q, want %q", got, "arsenal|chelsea")
	}
}

func TestCanonicalMatchID(t *testing.T) {
	t1 := time.Date(2025, 4, 10, 19, 45, 0, 0, time.UTC)
	t2 := time.Date(2025, 4, 10, 21, 0, 0, 0, time.FixedZone("CEST", 2*3600))

	id1 := CanonicalMatchID("Arsenal", "Chelsea", t1)
	id2 := CanonicalMatchID("  arsenal ", "CHELSEA", t2)
	if id1 != id2 {
		t.Errorf("same fixture should share an id: %q vs %q", id1, id2)
	}
	if id1 != "arsenal|chelsea|2025-04-10" {
		t.Errorf("CanonicalMatchID = %q", id1)
	}
	if got := CanonicalMatchID("A/B", "C|D", time.Time{}); got != "a b|c d|unknown-date" {
		t.Errorf("CanonicalMatchID with separators = %q", got)
	}
}

func TestNewMarketSet_CanonicalOrder(t *testing.T) {
	set, unknown := NewMarketSet([]string{"btts_yes", "OVER_2.5", "double_chance_1x", "nonsense", "btts_yes"})
	want := MarketSet{MarketOver25, MarketBTTSYes, MarketDoubleChance1X}
	if len(set) != len(want) {
		t.Fatalf("NewMarketSet len = %d, want %d (%v)", len(set), len(want), set)
	}
	for i := range want {
		if set[i] != want[i] {
			t.Errorf("set[%d] = %s, want %s", i, set[i], want[i])
		}
	}
	if len(unknown) != 1 || unknown[0] != "nonsense" {
		t.Errorf("unknown = %v, want [nonsense]", unknown)
	}
}

func TestV7Strategy_Check(t *testing.T) {
	ok := &V7Strategy{
		Team:         "a",
		MarketsFocus: MarketSet{MarketOver25, MarketBTTSYes},
		MarketsAvoid: MarketSet{MarketUnder25},
		Pepites:      MarketSet{MarketBTTSYes},
	}
	if err := ok.Check(); err != nil {
		t.Errorf("valid v7 rejected: %v", err)
	}

	notSubset := ok.Clone()
	notSubset.Pepites = MarketSet{MarketHome}
	if err := notSubset.Check(); err == nil {
		t.Error("pepite outside focus should be rejected")
	}

	overlap := ok.Clone()
	overlap.MarketsAvoid = MarketSet{MarketOver25}
	if err := overlap.Check(); err == nil {
		t.Error("focus/avoid overlap should be rejected")
	}
}

func TestStrategyProfile_Check(t *testing.T) {
	tests := []struct {
		name    string
		s       StrategyProfile
		wantErr bool
	}{
		{"valid", StrategyProfile{Bets: 10, Wins: 6, Losses: 4, UnluckyCount: 1, BadAnalysisCount: 2}, false},
		{"pushes allowed", StrategyProfile{Bets: 10, Wins: 5, Losses: 3}, false},
		{"too many results", StrategyProfile{Bets: 5, Wins: 4, Losses: 3}, true},
		{"too many excuses", StrategyProfile{Bets: 10, Wins: 6, Losses: 2, UnluckyCount: 2, BadAnalysisCount: 1}, true},
		{"negative", StrategyProfile{Bets: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.s.Check()
			if (err != nil) != tt.wantErr {
				t.Errorf("Check() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
