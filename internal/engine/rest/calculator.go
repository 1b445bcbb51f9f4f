// Package rest computes the EffectiveRestIndex of teams and keeps match_context populated.
package rest

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/Vodeneev/adnbet/internal/pkg/config"
	"github.com/Vodeneev/adnbet/internal/pkg/failure"
	"github.com/Vodeneev/adnbet/internal/pkg/models"
	"github.com/Vodeneev/adnbet/internal/pkg/storage"
)

// Calculator derives rest analyses from finished matches. The output depends only on
// the team, the target date and matches played before it, so results are cached by
// (team, target date, source data version).
type Calculator struct {
	history storage.MatchHistory
	cache   storage.RestCache
	cfg     config.RestConfig
	version int64
}

// NewCalculator creates a calculator. cache may be nil.
func NewCalculator(history storage.MatchHistory, cache storage.RestCache, cfg config.RestConfig, version int64) *Calculator {
	return &Calculator{history: history, cache: cache, cfg: cfg, version: version}
}

// Analyze returns the rest analysis of team for a match starting at target.
// A team without a finished match in the lookback window is MissingInput.
func (c *Calculator) Analyze(ctx context.Context, team string, target time.Time) (*models.RestAnalysis, error) {
	team = models.NormalizeName(team)
	target = target.UTC()

	if c.cache != nil {
		cached, ok, err := c.cache.Get(ctx, team, target, c.version)
		if err != nil {
			slog.Warn("Rest cache read failed", "team", team, "error", err)
		} else if ok {
			return cached, nil
		}
	}

	prev, err := c.history.LastFinishedBefore(ctx, team, target, target.Add(-c.cfg.Lookback))
	if err != nil {
		return nil, err
	}
	if prev == nil {
		return nil, failure.Errorf(failure.KindMissingInput, "rest.Analyze", "no finished match of %s before %s", team, target.Format(time.DateOnly))
	}

	analysis := c.build(team, target, prev)

	if c.cache != nil {
		if err := c.cache.Set(ctx, analysis); err != nil {
			slog.Warn("Rest cache write failed", "team", team, "error", err)
		}
	}
	return analysis, nil
}

func (c *Calculator) build(team string, target time.Time, prev *models.MatchResult) *models.RestAnalysis {
	a := &models.RestAnalysis{
		Team:              team,
		TargetDate:        target,
		PrevMatchID:       prev.MatchID,
		PrevMatchDate:     prev.CommenceTime.UTC(),
		RawDays:           int(math.Floor(target.Sub(prev.CommenceTime).Hours() / 24)),
		PrevCompetition:   prev.League,
		SourceDataVersion: c.version,
	}

	european := matchesAny(prev.League, c.cfg.EuropeanCompetitions)
	if models.NormalizeName(prev.HomeTeam) == team {
		a.PrevVenue = models.VenueHome
		a.VenueAdjustment = c.cfg.Venue.Home
	} else {
		a.PrevVenue = models.VenueAway
		a.VenueAdjustment = c.cfg.Venue.Away
		if european {
			a.VenueAdjustment = c.cfg.Venue.AwayEuropean
		}
	}
	// continental competitions are never treated as domestic cups
	if !european && matchesAny(prev.League, c.cfg.CupCompetitions) {
		a.CompetitionAdjustment = c.cfg.CupAdjustment
	}

	a.EffectiveRestIndex = float64(a.RawDays) + a.VenueAdjustment + a.CompetitionAdjustment
	a.Status = c.status(a.EffectiveRestIndex)
	return a
}

func (c *Calculator) status(effective float64) models.RestStatus {
	t := c.cfg.Thresholds
	switch {
	case effective < t.Critical:
		return models.RestCritical
	case effective < t.Tired:
		return models.RestTired
	case effective > t.Rusty:
		return models.RestRusty
	case effective > t.Fresh:
		return models.RestFresh
	default:
		return models.RestNormal
	}
}

func matchesAny(competition string, keywords []string) bool {
	name := models.NormalizeName(competition)
	if name == "" {
		return false
	}
	for _, k := range keywords {
		if k = models.NormalizeName(k); k != "" && strings.Contains(name, k) {
			return true
		}
	}
	return false
}

// Compare builds the match-level view of both analyses. Nil when either is missing.
func Compare(home, away *models.RestAnalysis, cfg config.ComparisonThresholds) *models.RestComparison {
	if home == nil || away == nil {
		return nil
	}
	delta := home.EffectiveRestIndex - away.EffectiveRestIndex
	abs := math.Abs(delta)

	cmp := &models.RestComparison{Delta: delta, Advantage: models.AdvantageNeutral}
	if abs >= cfg.Moderate {
		if delta > 0 {
			cmp.Advantage = models.AdvantageHome
		} else {
			cmp.Advantage = models.AdvantageAway
		}
	}
	switch {
	case abs < cfg.Moderate:
		cmp.Significance = models.SignificanceMinor
	case abs < cfg.Major:
		cmp.Significance = models.SignificanceModerate
	default:
		cmp.Significance = models.SignificanceMajor
	}
	return cmp
}
