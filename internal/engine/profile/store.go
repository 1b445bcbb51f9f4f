// Package profile holds the read-only profile store shared by every match of a run.
package profile

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/Vodeneev/adnbet/internal/pkg/failure"
	"github.com/Vodeneev/adnbet/internal/pkg/interfaces"
	"github.com/Vodeneev/adnbet/internal/pkg/models"
	"github.com/Vodeneev/adnbet/internal/pkg/storage"
)

// Data is the raw content of the profile tables.
type Data struct {
	ADN        []models.TeamADN
	Mappings   map[string]string
	Strategies []models.StrategyProfile
	V7         []models.V7Strategy
	Frictions  []models.MatchupFriction
	Referees   []models.RefereeProfile
}

// Store is an immutable, lock-free view of the profile tables frozen at one
// source data version. Lookups normalize names and consult the alias table first.
// Every getter returns a copy.
type Store struct {
	version int64
	mapper  models.NameMapper

	adn        map[string]models.TeamADN
	strategies map[string][]models.StrategyProfile
	v7         map[string]models.V7Strategy
	frictions  map[string]models.MatchupFriction
	referees   map[string]models.RefereeProfile
	elite      []string

	// coercion notes and invariant violations found while loading, keyed by team
	// name or friction key
	notes        map[string][]string
	inconsistent map[string]error
}

// Load reads every profile table once and builds the store.
func Load(ctx context.Context, src storage.ProfileSource, version int64, validator interfaces.Validator, sanitizer interfaces.DataSanitizer) (*Store, error) {
	var d Data
	var err error

	if d.ADN, err = src.LoadTeamADN(ctx); err != nil {
		return nil, err
	}
	if d.Mappings, err = src.LoadNameMappings(ctx); err != nil {
		return nil, err
	}
	if d.Strategies, err = src.LoadStrategies(ctx); err != nil {
		return nil, err
	}
	if d.V7, err = src.LoadV7Strategies(ctx); err != nil {
		return nil, err
	}
	if d.Frictions, err = src.LoadFrictions(ctx); err != nil {
		return nil, err
	}
	if d.Referees, err = src.LoadReferees(ctx); err != nil {
		return nil, err
	}

	s := New(version, d, validator, sanitizer)
	slog.Info("Profile store loaded",
		"version", version,
		"teams", len(s.adn),
		"strategies", len(d.Strategies),
		"v7", len(s.v7),
		"frictions", len(s.frictions),
		"referees", len(s.referees),
		"elite_teams", len(s.elite),
		"inconsistent", len(s.inconsistent))
	return s, nil
}

// New builds a store from already loaded data. Records are sanitized; records
// that break an invariant mark their team (or pair) as inconsistent.
func New(version int64, d Data, validator interfaces.Validator, sanitizer interfaces.DataSanitizer) *Store {
	s := &Store{
		version:      version,
		mapper:       models.NewNameMapper(d.Mappings),
		adn:          make(map[string]models.TeamADN, len(d.ADN)),
		strategies:   make(map[string][]models.StrategyProfile),
		v7:           make(map[string]models.V7Strategy, len(d.V7)),
		frictions:    make(map[string]models.MatchupFriction, len(d.Frictions)),
		referees:     make(map[string]models.RefereeProfile, len(d.Referees)),
		notes:        make(map[string][]string),
		inconsistent: make(map[string]error),
	}

	for _, adn := range d.ADN {
		name := s.mapper.Resolve(adn.TeamName)
		if name == "" {
			continue
		}
		adn.TeamName = name
		s.addNotes(name, sanitizer.SanitizeADN(&adn))
		s.adn[name] = adn
		if adn.Tier == models.TierElite {
			s.elite = append(s.elite, name)
		}
	}
	sort.Strings(s.elite)

	for _, st := range d.Strategies {
		team := s.mapper.Resolve(st.Team)
		st.Team = team
		s.addNotes(team, sanitizer.SanitizeStrategy(&st))
		if err := validator.ValidateStrategy(&st); err != nil {
			s.markInconsistent(team, err)
			continue
		}
		s.strategies[team] = append(s.strategies[team], st)
	}
	for team, list := range s.strategies {
		best := 0
		for _, st := range list {
			if st.IsBestStrategy {
				best++
			}
		}
		if best > 1 {
			s.markInconsistent(team, failure.Errorf(failure.KindInconsistent, "profile.New", "team %s has %d best strategies", team, best))
		}
	}

	for _, v := range d.V7 {
		team := s.mapper.Resolve(v.Team)
		v.Team = team
		s.addNotes(team, sanitizer.SanitizeV7(&v))
		if err := validator.ValidateV7(&v); err != nil {
			s.markInconsistent(team, err)
			continue
		}
		s.v7[team] = v
	}

	for _, f := range d.Frictions {
		f = canonicalFriction(f, s.mapper)
		key := f.Key()
		s.addNotes(key, sanitizer.SanitizeFriction(&f))
		if prev, ok := s.frictions[key]; ok {
			if err := validator.ValidateFrictionPair(&prev, &f); err != nil {
				s.markInconsistent(key, err)
			}
			continue
		}
		s.frictions[key] = f
	}

	for _, r := range d.Referees {
		name := models.NormalizeName(r.Name)
		if name == "" {
			continue
		}
		r.Name = name
		sanitizer.SanitizeReferee(&r)
		s.referees[name] = r
	}

	return s
}

// canonicalFriction orders the pair so (A,B) and (B,A) are stored identically.
func canonicalFriction(f models.MatchupFriction, mapper models.NameMapper) models.MatchupFriction {
	a, b := mapper.Resolve(f.TeamA), mapper.Resolve(f.TeamB)
	if a > b {
		a, b = b, a
	}
	f.TeamA, f.TeamB = a, b
	return f
}

func (s *Store) addNotes(key string, notes []string) {
	if len(notes) > 0 {
		s.notes[key] = append(s.notes[key], notes...)
	}
}

func (s *Store) markInconsistent(key string, err error) {
	if _, ok := s.inconsistent[key]; !ok {
		slog.Warn("Inconsistent profile record", "key", key, "error", err)
		s.inconsistent[key] = err
	}
}

// Version is the source data version the store was frozen at.
func (s *Store) Version() int64 {
	return s.version
}

// Resolve maps a vendor name to the canonical team name.
func (s *Store) Resolve(name string) string {
	return s.mapper.Resolve(name)
}

// TeamADN returns the profile of a team, or nil.
func (s *Store) TeamADN(name string) *models.TeamADN {
	adn, ok := s.adn[s.mapper.Resolve(name)]
	if !ok {
		return nil
	}
	return &adn
}

// Strategy returns the best strategy of a team: the record flagged is_best_strategy,
// else the most profitable one (ties by name). Nil when the team has none.
func (s *Store) Strategy(team string) *models.StrategyProfile {
	list := s.strategies[s.mapper.Resolve(team)]
	if len(list) == 0 {
		return nil
	}
	best := -1
	for i, st := range list {
		if st.IsBestStrategy {
			best = i
			break
		}
	}
	if best < 0 {
		best = 0
		for i := 1; i < len(list); i++ {
			if list[i].Profit > list[best].Profit ||
				(list[i].Profit == list[best].Profit && list[i].StrategyName < list[best].StrategyName) {
				best = i
			}
		}
	}
	return list[best].Clone()
}

// V7Strategy returns the market override of a team, or nil.
func (s *Store) V7Strategy(team string) *models.V7Strategy {
	v, ok := s.v7[s.mapper.Resolve(team)]
	if !ok {
		return nil
	}
	return v.Clone()
}

// Friction returns the pair record regardless of argument order, or nil.
func (s *Store) Friction(a, b string) *models.MatchupFriction {
	f, ok := s.frictions[models.FrictionKey(s.mapper.Resolve(a), s.mapper.Resolve(b))]
	if !ok {
		return nil
	}
	return &f
}

// Referee returns a referee profile, or nil. Names are normalized but not mapped.
func (s *Store) Referee(name string) *models.RefereeProfile {
	r, ok := s.referees[models.NormalizeName(name)]
	if !ok {
		return nil
	}
	return &r
}

// EliteTeams lists ELITE teams in name order.
func (s *Store) EliteTeams() []string {
	return append([]string(nil), s.elite...)
}

// IsElite reports whether a team is in the ELITE tier.
func (s *Store) IsElite(team string) bool {
	name := s.mapper.Resolve(team)
	i := sort.SearchStrings(s.elite, name)
	return i < len(s.elite) && s.elite[i] == name
}

// Notes returns the coercions applied to the records of a match.
func (s *Store) Notes(home, away string) []string {
	h, a := s.mapper.Resolve(home), s.mapper.Resolve(away)
	var out []string
	for _, key := range []string{h, a, models.FrictionKey(h, a)} {
		out = append(out, s.notes[key]...)
	}
	return out
}

// CheckMatch returns an Inconsistent error when a record needed by the match
// broke an invariant at load time.
func (s *Store) CheckMatch(home, away string) error {
	h, a := s.mapper.Resolve(home), s.mapper.Resolve(away)
	var bad []string
	for _, key := range []string{h, a, models.FrictionKey(h, a)} {
		if err, ok := s.inconsistent[key]; ok {
			bad = append(bad, err.Error())
		}
	}
	if len(bad) == 0 {
		return nil
	}
	return failure.New(failure.KindInconsistent, "profile.CheckMatch", fmt.Errorf("%s", strings.Join(bad, "; ")))
}
