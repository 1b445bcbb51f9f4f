package models

import "time"

type Venue string

const (
	VenueHome Venue = "Home"
	VenueAway Venue = "Away"
)

type RestStatus string

const (
	RestCritical RestStatus = "CRITICAL"
	RestTired    RestStatus = "TIRED"
	RestNormal   RestStatus = "NORMAL"
	RestFresh    RestStatus = "FRESH"
	RestRusty    RestStatus = "RUSTY"
)

// RestAnalysis is the EffectiveRestIndex of one team for one target date. It is a pure
// function of the team, the target date and finished matches before that date.
type RestAnalysis struct {
	Team                  string     `json:"team"`
	TargetDate            time.Time  `json:"target_date"`
	PrevMatchID           string     `json:"prev_match_id"`
	PrevMatchDate         time.Time  `json:"prev_match_date"`
	RawDays               int        `json:"raw_days"`
	PrevVenue             Venue      `json:"prev_venue"`
	PrevCompetition       string     `json:"prev_competition"`
	VenueAdjustment       float64    `json:"venue_adjustment"`
	CompetitionAdjustment float64    `json:"competition_adjustment"`
	EffectiveRestIndex    float64    `json:"effective_rest_index"`
	Status                RestStatus `json:"status"`
	SourceDataVersion     int64      `json:"source_data_version"`
}

type RestAdvantage string

const (
	AdvantageHome    RestAdvantage = "home"
	AdvantageAway    RestAdvantage = "away"
	AdvantageNeutral RestAdvantage = "neutral"
)

type RestSignificance string

const (
	SignificanceMinor    RestSignificance = "minor"
	SignificanceModerate RestSignificance = "moderate"
	SignificanceMajor    RestSignificance = "major"
)

// RestComparison is the match-level view of both teams' rest.
type RestComparison struct {
	Delta        float64          `json:"delta"`
	Advantage    RestAdvantage    `json:"advantage"`
	Significance RestSignificance `json:"significance"`
}

// RestSnapshot is what a decision snapshot records about rest.
type RestSnapshot struct {
	Home       *RestAnalysis   `json:"home,omitempty"`
	Away       *RestAnalysis   `json:"away,omitempty"`
	Comparison *RestComparison `json:"comparison,omitempty"`
}
