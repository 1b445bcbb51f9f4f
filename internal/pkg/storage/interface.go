package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/Vodeneev/adnbet/internal/pkg/models"
)

// ProfileSource reads the precomputed profiles consumed by the engine. Every method
// returns the full table; the profile store loads them once per run.
type ProfileSource interface {
	// LoadTeamADN returns every team profile
	LoadTeamADN(ctx context.Context) ([]models.TeamADN, error)

	// LoadNameMappings returns alias -> canonical team name pairs
	LoadNameMappings(ctx context.Context) (map[string]string, error)

	// LoadStrategies returns every (team, strategy) record
	LoadStrategies(ctx context.Context) ([]models.StrategyProfile, error)

	// LoadV7Strategies returns the per-team market overrides
	LoadV7Strategies(ctx context.Context) ([]models.V7Strategy, error)

	// LoadFrictions returns every stored friction row, possibly in both orientations
	LoadFrictions(ctx context.Context) ([]models.MatchupFriction, error)

	// LoadReferees returns every referee profile
	LoadReferees(ctx context.Context) ([]models.RefereeProfile, error)
}

// MatchHistory answers rest queries over finished matches.
type MatchHistory interface {
	// LastFinishedBefore returns the most recent finished match of team with
	// since <= commence_time < before, or nil when there is none.
	LastFinishedBefore(ctx context.Context, team string, before, since time.Time) (*models.MatchResult, error)
}

// OddsSource exposes the current market quotes recorded by the odds feed.
type OddsSource interface {
	// ScheduledMatches lists fixtures announced with from <= commence_time < to
	ScheduledMatches(ctx context.Context, from, to time.Time) ([]models.ScheduledMatch, error)

	// LatestOdds returns the latest quote per raw market identifier for one source match
	LatestOdds(ctx context.Context, sourceMatchID string) (map[string]float64, error)
}

// ContextTx is the view of match_context inside one populator transaction.
type ContextTx interface {
	// FindNear returns the row for (home, away) whose commence time lies within
	// tolerance of around, or nil
	FindNear(ctx context.Context, home, away string, around time.Time, tolerance time.Duration) (*models.MatchContext, error)

	// Insert adds a new PENDING row
	Insert(ctx context.Context, mc *models.MatchContext) error

	// Reschedule moves an existing row to a new commence time and marks it PENDING
	Reschedule(ctx context.Context, matchID string, commence time.Time, sourceID string) error
}

// ContextStore persists match_context rows.
type ContextStore interface {
	// WithinTx runs fn in one transaction; fn's error rolls everything back
	WithinTx(ctx context.Context, fn func(tx ContextTx) error) error

	// Pending returns up to limit rows awaiting rest calculation, earliest first
	Pending(ctx context.Context, limit int) ([]models.MatchContext, error)

	// SaveRest stores the rest analyses of one row and its calculation status
	SaveRest(ctx context.Context, matchID string, home, away *models.RestAnalysis, status models.CalculationStatus, at time.Time) error

	// Upcoming lists rows with from <= commence_time < to, earliest first
	Upcoming(ctx context.Context, from, to time.Time) ([]models.MatchContext, error)

	// Get returns one row, or nil
	Get(ctx context.Context, matchID string) (*models.MatchContext, error)
}

// SnapshotStore persists decision snapshots.
type SnapshotStore interface {
	// Upsert writes snap keyed by match_id. An existing row wins unless snap carries a
	// strictly greater source_data_version. Returns whether snap was written.
	Upsert(ctx context.Context, snap *models.DecisionSnapshot) (bool, error)

	// Get returns the snapshot recorded for a match, or nil
	Get(ctx context.Context, matchID string) (*models.DecisionSnapshot, error)
}

// RestCache memoizes rest analyses by (team, target date, source data version).
type RestCache interface {
	Get(ctx context.Context, team string, target time.Time, version int64) (*models.RestAnalysis, bool, error)
	Set(ctx context.Context, analysis *models.RestAnalysis) error
}

// RestCacheKey is the key layout shared by every RestCache implementation.
func RestCacheKey(team string, target time.Time, version int64) string {
	return fmt.Sprintf("rest:%s:%s:v%d", models.NormalizeName(team), target.UTC().Format(time.RFC3339), version)
}
