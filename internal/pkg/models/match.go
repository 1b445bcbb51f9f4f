package models

import "time"

// MatchResult is one row of match history.
type MatchResult struct {
	MatchID      string    `json:"match_id" db:"match_id"`
	CommenceTime time.Time `json:"commence_time" db:"commence_time"`
	HomeTeam     string    `json:"home_team" db:"home_team"`
	AwayTeam     string    `json:"away_team" db:"away_team"`
	HomeGoals    int       `json:"home_goals" db:"home_goals"`
	AwayGoals    int       `json:"away_goals" db:"away_goals"`
	League       string    `json:"league" db:"league"`
	IsFinished   bool      `json:"is_finished" db:"is_finished"`
}

// ScheduledMatch is an upcoming fixture announced by the odds feed.
type ScheduledMatch struct {
	SourceID     string    `json:"source_id" db:"match_id"`
	HomeTeam     string    `json:"home_team" db:"home_team"`
	AwayTeam     string    `json:"away_team" db:"away_team"`
	CommenceTime time.Time `json:"commence_time" db:"commence_time"`
}

type CalculationStatus string

const (
	CalculationPending CalculationStatus = "PENDING"
	CalculationDone    CalculationStatus = "DONE"
	CalculationError   CalculationStatus = "ERROR"
)

// MatchContext is the per-match row carrying rest analyses for an upcoming fixture.
type MatchContext struct {
	MatchID           string            `json:"match_id"`
	HomeTeam          string            `json:"home_team"`
	AwayTeam          string            `json:"away_team"`
	CommenceTime      time.Time         `json:"commence_time"`
	Referee           string            `json:"referee,omitempty"`
	HomeRest          *RestAnalysis     `json:"home_rest,omitempty"`
	AwayRest          *RestAnalysis     `json:"away_rest,omitempty"`
	CalculationStatus CalculationStatus `json:"calculation_status"`
	SourceID          string            `json:"source_id"`
	LastCalculatedAt  *time.Time        `json:"last_calculated_at,omitempty"`
}

// PopulateSummary is the result of one populator transaction.
type PopulateSummary struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
}
