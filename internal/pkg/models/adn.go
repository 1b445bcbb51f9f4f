package models

// Tier is the team's quality bucket in the strategy catalog.
type Tier string

const (
	TierElite        Tier = "ELITE"
	TierGold         Tier = "GOLD"
	TierSilver       Tier = "SILVER"
	TierBronze       Tier = "BRONZE"
	TierWatch        Tier = "WATCH"
	TierExperimental Tier = "EXPERIMENTAL"
)

// Valid reports whether t is a recognized tier.
func (t Tier) Valid() bool {
	switch t {
	case TierElite, TierGold, TierSilver, TierBronze, TierWatch, TierExperimental:
		return true
	}
	return false
}

// LuckProfile buckets the gap between actual and expected results.
type LuckProfile string

const (
	LuckVeryUnlucky LuckProfile = "VERY_UNLUCKY"
	LuckUnlucky     LuckProfile = "UNLUCKY"
	LuckNeutral     LuckProfile = "NEUTRAL"
	LuckLucky       LuckProfile = "LUCKY"
	LuckVeryLucky   LuckProfile = "VERY_LUCKY"
)

// Valid reports whether p is a recognized luck profile.
func (p LuckProfile) Valid() bool {
	switch p {
	case LuckVeryUnlucky, LuckUnlucky, LuckNeutral, LuckLucky, LuckVeryLucky:
		return true
	}
	return false
}

// IsUnlucky is true for UNLUCKY and VERY_UNLUCKY.
func (p LuckProfile) IsUnlucky() bool {
	return p == LuckUnlucky || p == LuckVeryUnlucky
}

// PsycheDefensive is the psyche profile the scorers reward.
const PsycheDefensive = "DEFENSIVE"

type Psyche struct {
	Profile           string  `json:"profile"`
	KillerInstinct    float64 `json:"killer_instinct"`
	PanicFactor       float64 `json:"panic_factor"`
	ComebackMentality float64 `json:"comeback_mentality"`
	LeadProtection    float64 `json:"lead_protection"`
}

type Temporal struct {
	DieselFactor    float64 `json:"diesel_factor"`
	FastStarter     float64 `json:"fast_starter"`
	FirstHalfXGPct  float64 `json:"first_half_xg_pct"`
	SecondHalfXGPct float64 `json:"second_half_xg_pct"`
}

// Luck.Total is the xPoints delta (points won minus expected points); negative means the
// team under-performed its underlying numbers.
type Luck struct {
	Total     float64     `json:"total"`
	Finishing float64     `json:"finishing"`
	Defensive float64     `json:"defensive"`
	Profile   LuckProfile `json:"profile"`
}

type TeamContext struct {
	Style         string  `json:"style"`
	HomeStrength  float64 `json:"home_strength"`
	AwayStrength  float64 `json:"away_strength"`
	BTTSTendency  float64 `json:"btts_tendency"`
	GoalsTendency float64 `json:"goals_tendency"`
}

type Tactical struct {
	Formation        string  `json:"formation"`
	SetPieceThreat   float64 `json:"set_piece_threat"`
	OpenPlayReliance float64 `json:"open_play_reliance"`
}

type Roster struct {
	MVPName       string  `json:"mvp_name"`
	MVPDependency float64 `json:"mvp_dependency"`
}

// TeamADN is the behavioral profile of one team. It is immutable for the duration of a run:
// the profile store hands out copies.
type TeamADN struct {
	TeamName string      `json:"team_name"`
	Tier     Tier        `json:"tier"`
	ROI      float64     `json:"roi"`
	WinRate  float64     `json:"win_rate"`
	Psyche   Psyche      `json:"psyche"`
	Temporal Temporal    `json:"temporal"`
	Luck     Luck        `json:"luck"`
	Context  TeamContext `json:"context"`
	Tactical Tactical    `json:"tactical"`
	Roster   Roster      `json:"roster"`
}

// Neutral defaults for absent or unusable ADN fields.
const (
	DefaultKillerInstinct = 1.0
	DefaultDieselFactor   = 0.5
	DefaultFastStarter    = 0.5
	DefaultHalfXGPct      = 50.0
	DefaultStrength       = 50.0
	DefaultTendency       = 50.0
)

// DefaultTeamADN returns a profile holding only neutral values.
func DefaultTeamADN(team string) TeamADN {
	return TeamADN{
		TeamName: team,
		Tier:     TierExperimental,
		Psyche: Psyche{
			Profile:        "BALANCED",
			KillerInstinct: DefaultKillerInstinct,
		},
		Temporal: Temporal{
			DieselFactor:    DefaultDieselFactor,
			FastStarter:     DefaultFastStarter,
			FirstHalfXGPct:  DefaultHalfXGPct,
			SecondHalfXGPct: DefaultHalfXGPct,
		},
		Luck: Luck{Profile: LuckNeutral},
		Context: TeamContext{
			HomeStrength:  DefaultStrength,
			AwayStrength:  DefaultStrength,
			BTTSTendency:  DefaultTendency,
			GoalsTendency: DefaultTendency,
		},
	}
}

// Clone returns a copy; TeamADN holds no reference types so a value copy suffices.
func (a *TeamADN) Clone() *TeamADN {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}
