// Package scorers holds the six independent models that vote on a match.
package scorers

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/Vodeneev/adnbet/internal/pkg/config"
	"github.com/Vodeneev/adnbet/internal/pkg/models"
)

// Input is the frozen view of one match handed to every scorer. Scorers only read it.
type Input struct {
	MatchID  string
	HomeTeam string
	AwayTeam string

	HomeADN      *models.TeamADN
	AwayADN      *models.TeamADN
	HomeStrategy *models.StrategyProfile
	AwayStrategy *models.StrategyProfile
	HomeV7       *models.V7Strategy
	AwayV7       *models.V7Strategy
	Friction     *models.MatchupFriction
	Referee      *models.RefereeProfile
	Odds         models.OddsSnapshot
	Rest         *models.RestComparison
}

// Scorer produces exactly one vote per match. Implementations are stateless and
// deterministic.
type Scorer interface {
	Name() models.ModelName
	Score(in *Input) models.ModelVote
}

// NewAll returns the six scorers in models.ModelOrder.
func NewAll(cfg config.ScorersConfig) []Scorer {
	return []Scorer{
		NewTeamStrategy(cfg.TeamStrategy),
		NewQuantum(cfg.Quantum),
		NewMatchup(cfg.Matchup),
		NewDixonColes(cfg.DixonColes),
		NewScenarios(cfg.Scenarios),
		NewDNAFeatures(cfg.DNAFeatures),
	}
}

// RunAll runs every scorer concurrently. Votes come back in the order of scorers
// regardless of completion order.
func RunAll(ctx context.Context, scorers []Scorer, in *Input) ([]models.ModelVote, error) {
	votes := make([]models.ModelVote, len(scorers))
	g, ctx := errgroup.WithContext(ctx)
	for i, s := range scorers {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			v := s.Score(in)
			v.Model = s.Name()
			votes[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("scorers: %w", err)
	}
	return votes, nil
}

func skip(name models.ModelName, reason string) models.ModelVote {
	return models.ModelVote{Model: name, Signal: models.SignalSkip, Reasoning: reason}
}

func clamp(lo, hi, v float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
