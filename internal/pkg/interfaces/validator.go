package interfaces

import "github.com/Vodeneev/adnbet/internal/pkg/models"

// Validator rejects records that break an invariant.
type Validator interface {
	// ValidateStrategy checks the counting invariants of a strategy record
	ValidateStrategy(s *models.StrategyProfile) error

	// ValidateV7 checks pepites ⊆ focus and focus ∩ avoid = ∅
	ValidateV7(v *models.V7Strategy) error

	// ValidateFrictionPair checks that two rows stored for the same pair agree
	ValidateFrictionPair(a, b *models.MatchupFriction) error

	// ValidateScheduledMatch checks a fixture announced by the odds feed
	ValidateScheduledMatch(m *models.ScheduledMatch) error

	// ValidateMatchResult checks one row of match history
	ValidateMatchResult(r *models.MatchResult) error
}

// DataSanitizer coerces unusable fields to neutral defaults. Every method
// returns one note per coerced field.
type DataSanitizer interface {
	SanitizeADN(adn *models.TeamADN) []string
	SanitizeStrategy(s *models.StrategyProfile) []string
	SanitizeV7(v *models.V7Strategy) []string
	SanitizeFriction(f *models.MatchupFriction) []string
	SanitizeReferee(r *models.RefereeProfile) []string
	SanitizeOdds(quotes map[models.Market]float64) []string
}
