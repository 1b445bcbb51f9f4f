package validation

import (
	"fmt"
	"strings"

	"github.com/Vodeneev/adnbet/internal/pkg/failure"
	"github.com/Vodeneev/adnbet/internal/pkg/interfaces"
	"github.com/Vodeneev/adnbet/internal/pkg/models"
)

// Validator implements data validation
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() interfaces.Validator {
	return &Validator{}
}

// ValidateStrategy validates the counting invariants of a strategy record
func (v *Validator) ValidateStrategy(s *models.StrategyProfile) error {
	if s == nil {
		return nil
	}
	if strings.TrimSpace(s.Team) == "" || strings.TrimSpace(s.StrategyName) == "" {
		return failure.Errorf(failure.KindBadInput, "ValidateStrategy", "strategy without team or name")
	}
	if err := s.Check(); err != nil {
		return failure.New(failure.KindInconsistent, "ValidateStrategy", err)
	}
	return nil
}

// ValidateV7 validates the set relations of a v7 override
func (v *Validator) ValidateV7(s *models.V7Strategy) error {
	if s == nil {
		return nil
	}
	if err := s.Check(); err != nil {
		return failure.New(failure.KindInconsistent, "ValidateV7", err)
	}
	return nil
}

// ValidateFrictionPair fails when (A,B) and (B,A) were stored with different values
func (v *Validator) ValidateFrictionPair(a, b *models.MatchupFriction) error {
	if a == nil || b == nil {
		return nil
	}
	if a.Key() != b.Key() {
		return failure.Errorf(failure.KindInconsistent, "ValidateFrictionPair", "rows %s and %s are different pairs", a.Key(), b.Key())
	}
	if !a.SameValues(b) {
		return failure.Errorf(failure.KindInconsistent, "ValidateFrictionPair", "friction %s stored twice with different values", a.Key())
	}
	return nil
}

// ValidateScheduledMatch validates a fixture announced by the odds feed
func (v *Validator) ValidateScheduledMatch(m *models.ScheduledMatch) error {
	if m == nil {
		return fmt.Errorf("match cannot be nil")
	}
	if models.NormalizeName(m.HomeTeam) == "" {
		return failure.Errorf(failure.KindBadInput, "ValidateScheduledMatch", "home team cannot be empty")
	}
	if models.NormalizeName(m.AwayTeam) == "" {
		return failure.Errorf(failure.KindBadInput, "ValidateScheduledMatch", "away team cannot be empty")
	}
	if models.NormalizeName(m.HomeTeam) == models.NormalizeName(m.AwayTeam) {
		return failure.Errorf(failure.KindInconsistent, "ValidateScheduledMatch", "team %q plays itself", m.HomeTeam)
	}
	if m.CommenceTime.IsZero() {
		return failure.Errorf(failure.KindBadInput, "ValidateScheduledMatch", "commence time missing for %s vs %s", m.HomeTeam, m.AwayTeam)
	}
	return nil
}

// ValidateMatchResult validates one row of match history
func (v *Validator) ValidateMatchResult(r *models.MatchResult) error {
	if r == nil {
		return fmt.Errorf("result cannot be nil")
	}
	if r.MatchID == "" {
		return failure.Errorf(failure.KindBadInput, "ValidateMatchResult", "match ID cannot be empty")
	}
	if r.CommenceTime.IsZero() {
		return failure.Errorf(failure.KindBadInput, "ValidateMatchResult", "match %s has no commence time", r.MatchID)
	}
	if r.IsFinished && (r.HomeGoals < 0 || r.AwayGoals < 0) {
		return failure.Errorf(failure.KindBadInput, "ValidateMatchResult", "match %s has negative goals", r.MatchID)
	}
	return nil
}
