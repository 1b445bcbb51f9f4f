package storage

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/Vodeneev/adnbet/internal/pkg/failure"
	"github.com/Vodeneev/adnbet/internal/pkg/models"
)

var (
	_ ProfileSource = (*MemoryProfileSource)(nil)
	_ MatchHistory  = (*MemoryMatchHistory)(nil)
	_ OddsSource    = (*MemoryOddsSource)(nil)
	_ ContextStore  = (*MemoryContextStore)(nil)
	_ SnapshotStore = (*MemorySnapshotStore)(nil)
	_ RestCache     = (*MemoryRestCache)(nil)
)

// MemoryProfileSource serves profiles held in memory.
type MemoryProfileSource struct {
	ADN        []models.TeamADN
	Mappings   map[string]string
	Strategies []models.StrategyProfile
	V7         []models.V7Strategy
	Frictions  []models.MatchupFriction
	Referees   []models.RefereeProfile
}

func (m *MemoryProfileSource) LoadTeamADN(context.Context) ([]models.TeamADN, error) {
	return append([]models.TeamADN(nil), m.ADN...), nil
}

func (m *MemoryProfileSource) LoadNameMappings(context.Context) (map[string]string, error) {
	out := make(map[string]string, len(m.Mappings))
	for k, v := range m.Mappings {
		out[k] = v
	}
	return out, nil
}

func (m *MemoryProfileSource) LoadStrategies(context.Context) ([]models.StrategyProfile, error) {
	return append([]models.StrategyProfile(nil), m.Strategies...), nil
}

func (m *MemoryProfileSource) LoadV7Strategies(context.Context) ([]models.V7Strategy, error) {
	out := make([]models.V7Strategy, 0, len(m.V7))
	for i := range m.V7 {
		out = append(out, *m.V7[i].Clone())
	}
	return out, nil
}

func (m *MemoryProfileSource) LoadFrictions(context.Context) ([]models.MatchupFriction, error) {
	return append([]models.MatchupFriction(nil), m.Frictions...), nil
}

func (m *MemoryProfileSource) LoadReferees(context.Context) ([]models.RefereeProfile, error) {
	return append([]models.RefereeProfile(nil), m.Referees...), nil
}

// MemoryMatchHistory answers rest queries over a fixed list of results.
type MemoryMatchHistory struct {
	Results []models.MatchResult
}

func (h *MemoryMatchHistory) LastFinishedBefore(_ context.Context, team string, before, since time.Time) (*models.MatchResult, error) {
	name := models.NormalizeName(team)
	var best *models.MatchResult
	for i := range h.Results {
		r := h.Results[i]
		if !r.IsFinished || !r.CommenceTime.Before(before) || r.CommenceTime.Before(since) {
			continue
		}
		if models.NormalizeName(r.HomeTeam) != name && models.NormalizeName(r.AwayTeam) != name {
			continue
		}
		if best == nil || r.CommenceTime.After(best.CommenceTime) ||
			(r.CommenceTime.Equal(best.CommenceTime) && r.MatchID < best.MatchID) {
			best = &r
		}
	}
	return best, nil
}

// MemoryOddsSource serves fixed fixtures and quotes.
type MemoryOddsSource struct {
	Matches []models.ScheduledMatch
	Odds    map[string]map[string]float64
}

func (o *MemoryOddsSource) ScheduledMatches(_ context.Context, from, to time.Time) ([]models.ScheduledMatch, error) {
	var out []models.ScheduledMatch
	for _, m := range o.Matches {
		if !m.CommenceTime.Before(from) && m.CommenceTime.Before(to) {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CommenceTime.Equal(out[j].CommenceTime) {
			return out[i].CommenceTime.Before(out[j].CommenceTime)
		}
		return out[i].SourceID < out[j].SourceID
	})
	return out, nil
}

func (o *MemoryOddsSource) LatestOdds(_ context.Context, sourceMatchID string) (map[string]float64, error) {
	out := make(map[string]float64, len(o.Odds[sourceMatchID]))
	for k, v := range o.Odds[sourceMatchID] {
		out[k] = v
	}
	return out, nil
}

// MemoryContextStore keeps match_context rows in a map. Transactions run on a copy
// that replaces the map only when fn succeeds.
type MemoryContextStore struct {
	mu   sync.Mutex
	rows map[string]models.MatchContext
}

func NewMemoryContextStore(rows ...models.MatchContext) *MemoryContextStore {
	s := &MemoryContextStore{rows: make(map[string]models.MatchContext, len(rows))}
	for _, r := range rows {
		r.HomeTeam = models.NormalizeName(r.HomeTeam)
		r.AwayTeam = models.NormalizeName(r.AwayTeam)
		s.rows[r.MatchID] = r
	}
	return s
}

func (s *MemoryContextStore) WithinTx(ctx context.Context, fn func(tx ContextTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := make(map[string]models.MatchContext, len(s.rows))
	for k, v := range s.rows {
		work[k] = v
	}
	if err := fn(&memoryContextTx{rows: work}); err != nil {
		return err
	}
	s.rows = work
	return nil
}

func (s *MemoryContextStore) sorted(keep func(models.MatchContext) bool) []models.MatchContext {
	var out []models.MatchContext
	for _, r := range s.rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CommenceTime.Equal(out[j].CommenceTime) {
			return out[i].CommenceTime.Before(out[j].CommenceTime)
		}
		return out[i].MatchID < out[j].MatchID
	})
	return out
}

func (s *MemoryContextStore) Pending(_ context.Context, limit int) ([]models.MatchContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.sorted(func(r models.MatchContext) bool { return r.CalculationStatus == models.CalculationPending })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryContextStore) Upcoming(_ context.Context, from, to time.Time) ([]models.MatchContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sorted(func(r models.MatchContext) bool {
		return !r.CommenceTime.Before(from) && r.CommenceTime.Before(to)
	}), nil
}

func (s *MemoryContextStore) Get(_ context.Context, matchID string) (*models.MatchContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[matchID]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (s *MemoryContextStore) SaveRest(_ context.Context, matchID string, home, away *models.RestAnalysis, status models.CalculationStatus, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[matchID]
	if !ok {
		return failure.Errorf(failure.KindMissingInput, "SaveRest", "match_context %s not found", matchID)
	}
	r.HomeRest, r.AwayRest = home, away
	r.CalculationStatus = status
	t := at.UTC()
	r.LastCalculatedAt = &t
	s.rows[matchID] = r
	return nil
}

// Len returns the number of rows.
func (s *MemoryContextStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

type memoryContextTx struct {
	rows map[string]models.MatchContext
}

func (t *memoryContextTx) FindNear(_ context.Context, home, away string, around time.Time, tolerance time.Duration) (*models.MatchContext, error) {
	h, a := models.NormalizeName(home), models.NormalizeName(away)
	var best *models.MatchContext
	var bestGap time.Duration
	for _, r := range t.rows {
		if r.HomeTeam != h || r.AwayTeam != a {
			continue
		}
		gap := r.CommenceTime.Sub(around)
		if gap < 0 {
			gap = -gap
		}
		if gap > tolerance {
			continue
		}
		if best == nil || gap < bestGap || (gap == bestGap && r.MatchID < best.MatchID) {
			r := r
			best, bestGap = &r, gap
		}
	}
	return best, nil
}

func (t *memoryContextTx) Insert(_ context.Context, mc *models.MatchContext) error {
	if _, exists := t.rows[mc.MatchID]; exists {
		return nil
	}
	row := *mc
	row.HomeTeam = models.NormalizeName(row.HomeTeam)
	row.AwayTeam = models.NormalizeName(row.AwayTeam)
	row.CommenceTime = row.CommenceTime.UTC()
	row.CalculationStatus = models.CalculationPending
	t.rows[row.MatchID] = row
	return nil
}

func (t *memoryContextTx) Reschedule(_ context.Context, matchID string, commence time.Time, sourceID string) error {
	r, ok := t.rows[matchID]
	if !ok {
		return failure.Errorf(failure.KindInconsistent, "Reschedule", "match_context %s vanished inside transaction", matchID)
	}
	r.CommenceTime = commence.UTC()
	r.SourceID = sourceID
	r.CalculationStatus = models.CalculationPending
	r.HomeRest, r.AwayRest, r.LastCalculatedAt = nil, nil, nil
	t.rows[matchID] = r
	return nil
}

// MemorySnapshotStore keeps snapshots as JSON so readers get an independent copy.
type MemorySnapshotStore struct {
	mu   sync.Mutex
	rows map[string]memorySnapshot
}

type memorySnapshot struct {
	version int64
	payload []byte
}

func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{rows: make(map[string]memorySnapshot)}
}

func (s *MemorySnapshotStore) Upsert(_ context.Context, snap *models.DecisionSnapshot) (bool, error) {
	payload, err := json.Marshal(snap)
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.rows[snap.MatchID]; ok && existing.version >= snap.SourceDataVersion {
		return false, nil
	}
	s.rows[snap.MatchID] = memorySnapshot{version: snap.SourceDataVersion, payload: payload}
	return true, nil
}

func (s *MemorySnapshotStore) Get(_ context.Context, matchID string) (*models.DecisionSnapshot, error) {
	s.mu.Lock()
	row, ok := s.rows[matchID]
	s.mu.Unlock()
	if !ok {
		return nil, nil
	}
	var snap models.DecisionSnapshot
	if err := json.Unmarshal(row.payload, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// MatchIDs lists stored match ids in order.
func (s *MemorySnapshotStore) MatchIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.rows))
	for id := range s.rows {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// MemoryRestCache is a process-local RestCache.
type MemoryRestCache struct {
	mu      sync.Mutex
	entries map[string]models.RestAnalysis
}

func NewMemoryRestCache() *MemoryRestCache {
	return &MemoryRestCache{entries: make(map[string]models.RestAnalysis)}
}

func (c *MemoryRestCache) Get(_ context.Context, team string, target time.Time, version int64) (*models.RestAnalysis, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.entries[RestCacheKey(team, target, version)]
	if !ok {
		return nil, false, nil
	}
	return &a, true, nil
}

func (c *MemoryRestCache) Set(_ context.Context, analysis *models.RestAnalysis) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[RestCacheKey(analysis.Team, analysis.TargetDate, analysis.SourceDataVersion)] = *analysis
	return nil
}
