package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vodeneev/adnbet/internal/engine/montecarlo"
	"github.com/Vodeneev/adnbet/internal/engine/odds"
	"github.com/Vodeneev/adnbet/internal/engine/profile"
	"github.com/Vodeneev/adnbet/internal/engine/recorder"
	"github.com/Vodeneev/adnbet/internal/engine/rest"
	"github.com/Vodeneev/adnbet/internal/pkg/config"
	"github.com/Vodeneev/adnbet/internal/pkg/metrics"
	"github.com/Vodeneev/adnbet/internal/pkg/models"
	"github.com/Vodeneev/adnbet/internal/pkg/performance"
	"github.com/Vodeneev/adnbet/internal/pkg/storage"
	"github.com/Vodeneev/adnbet/internal/pkg/validation"
)

var (
	runAt    = time.Date(2025, 4, 11, 12, 0, 0, 0, time.UTC)
	kickoff  = time.Date(2025, 4, 12, 15, 0, 0, 0, time.UTC)
	mainGame = "arsenal|everton|2025-04-12"
)

func profileData() profile.Data {
	home := models.DefaultTeamADN("Arsenal")
	home.Tier = models.TierElite
	home.ROI = 35
	home.Psyche.Profile = models.PsycheDefensive

	away := models.DefaultTeamADN("Everton")
	away.Tier = models.TierSilver
	away.Luck.Profile = models.LuckUnlucky

	return profile.Data{
		ADN: []models.TeamADN{home, away},
		Frictions: []models.MatchupFriction{{
			TeamA: "everton", TeamB: "arsenal",
			FrictionScore: 70, ChaosPotential: 65, StyleClash: 60, PredictedOver25Prob: 0.62,
		}},
	}
}

func contextRow(id, home, away, source string) models.MatchContext {
	return models.MatchContext{
		MatchID:           id,
		HomeTeam:          home,
		AwayTeam:          away,
		CommenceTime:      kickoff,
		CalculationStatus: models.CalculationDone,
		SourceID:          source,
	}
}

type recordingNotifier struct {
	mu        sync.Mutex
	decisions []string
	summaries []performance.Summary
}

func (n *recordingNotifier) NotifyDecision(_ context.Context, snap *models.DecisionSnapshot) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.decisions = append(n.decisions, snap.MatchID)
	return nil
}

func (n *recordingNotifier) NotifySummary(_ context.Context, s performance.Summary) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.summaries = append(n.summaries, s)
	return nil
}

func (n *recordingNotifier) Stop() {}

type fixture struct {
	orch     *Orchestrator
	snaps    *storage.MemorySnapshotStore
	metrics  *metrics.EngineMetrics
	notifier *recordingNotifier
}

type fixtureOpts struct {
	data    profile.Data
	rows    []models.MatchContext
	odds    storage.OddsSource
	history storage.MatchHistory
	snaps   storage.SnapshotStore
	mutate  func(cfg *config.Config)
}

func newFixture(t *testing.T, o fixtureOpts) *fixture {
	t.Helper()
	cfg := config.Default()
	if o.mutate != nil {
		o.mutate(cfg)
	}
	if o.odds == nil {
		o.odds = &storage.MemoryOddsSource{Odds: map[string]map[string]float64{
			"src-1": {"over_2.5": 1.80, "btts_yes": 1.90},
		}}
	}
	if o.history == nil {
		o.history = &storage.MemoryMatchHistory{}
	}

	f := &fixture{
		snaps:    storage.NewMemorySnapshotStore(),
		metrics:  metrics.NewEngineMetrics(),
		notifier: &recordingNotifier{},
	}
	snaps := o.snaps
	if snaps == nil {
		snaps = f.snaps
	}

	store := profile.New(cfg.Engine.SourceDataVersion, o.data, validation.NewValidator(), validation.NewSanitizer())
	orch, err := New(cfg, Deps{
		Profiles:   store,
		Contexts:   storage.NewMemoryContextStore(o.rows...),
		Odds:       o.odds,
		Rest:       rest.NewCalculator(o.history, storage.NewMemoryRestCache(), cfg.Rest, cfg.Engine.SourceDataVersion),
		Normalizer: odds.NewNormalizer(cfg.Odds, validation.NewSanitizer()),
		Recorder:   recorder.New(snaps),
		Metrics:    f.metrics,
		Tracker:    performance.NewTracker(runAt),
		Notifier:   f.notifier,
	})
	require.NoError(t, err)
	f.orch = orch
	return f
}

func TestRunUpcoming(t *testing.T) {
	f := newFixture(t, fixtureOpts{
		data: profileData(),
		rows: []models.MatchContext{
			contextRow(mainGame, "arsenal", "everton", "src-1"),
			contextRow("nowhere|unknown fc|2025-04-12", "nowhere", "unknown fc", "src-2"),
		},
	})

	summary, err := f.orch.RunUpcoming(context.Background(), runAt)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.TotalMatches)
	assert.Equal(t, 1, summary.Bets)
	assert.Equal(t, 1, summary.ByDecision[models.DecisionBetNormal])
	assert.Equal(t, 1, summary.BySkipReason[models.ReasonNoADN])
	assert.Equal(t, "1.03", summary.TotalStaked)

	assert.Equal(t, []string{mainGame, "nowhere|unknown fc|2025-04-12"}, f.snaps.MatchIDs())
	snap, err := f.snaps.Get(context.Background(), mainGame)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.NotEmpty(t, snap.SnapshotID)
	assert.Equal(t, models.DecisionBetNormal, snap.Decision)
	assert.Equal(t, models.MarketOver25, snap.FinalMarket)
	assert.True(t, snap.HomeIsElite)
	assert.Equal(t, "arsenal", snap.Friction.TeamA)

	assert.Equal(t, []string{mainGame}, f.notifier.decisions)
	assert.Len(t, f.notifier.summaries, 1)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.DecisionsTotal.WithLabelValues("BET_NORMAL", "")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.DecisionsTotal.WithLabelValues("SKIP", "no_adn")))
}

func TestRunUpcoming_OutsideLookaheadIgnored(t *testing.T) {
	row := contextRow(mainGame, "arsenal", "everton", "src-1")
	row.CommenceTime = runAt.Add(72 * time.Hour)
	f := newFixture(t, fixtureOpts{data: profileData(), rows: []models.MatchContext{row}})

	summary, err := f.orch.RunUpcoming(context.Background(), runAt)
	require.NoError(t, err)
	assert.Zero(t, summary.TotalMatches)
	assert.Empty(t, f.snaps.MatchIDs())
}

func TestProcessMatch_RerunKeepsStoredSnapshot(t *testing.T) {
	f := newFixture(t, fixtureOpts{data: profileData()})
	ctx := context.Background()
	row := contextRow(mainGame, "arsenal", "everton", "src-1")

	first, err := f.orch.ProcessMatch(ctx, row)
	require.NoError(t, err)
	second, err := f.orch.ProcessMatch(ctx, row)
	require.NoError(t, err)
	assert.NotEqual(t, first.SnapshotID, second.SnapshotID)

	stored, err := f.snaps.Get(ctx, mainGame)
	require.NoError(t, err)
	assert.Equal(t, first.SnapshotID, stored.SnapshotID)
}

func TestProcessMatch_ComputesMissingRest(t *testing.T) {
	history := &storage.MemoryMatchHistory{Results: []models.MatchResult{{
		MatchID: "arsenal|chelsea|2025-04-06", HomeTeam: "arsenal", AwayTeam: "chelsea",
		CommenceTime: kickoff.Add(-6 * 24 * time.Hour), League: "Premier League", IsFinished: true,
	}}}
	row := contextRow(mainGame, "arsenal", "everton", "src-1")
	row.CalculationStatus = models.CalculationPending
	f := newFixture(t, fixtureOpts{data: profileData(), history: history})

	snap, err := f.orch.ProcessMatch(context.Background(), row)
	require.NoError(t, err)

	require.NotNil(t, snap.Rest.Home)
	assert.Equal(t, 6, snap.Rest.Home.RawDays)
	assert.Nil(t, snap.Rest.Away)
	assert.Nil(t, snap.Rest.Comparison)
	assert.Contains(t, snap.Notes, "no rest history for everton")
	assert.Equal(t, 6, len(snap.Votes))
}

func TestProcessMatch_ProfileInconsistent(t *testing.T) {
	data := profileData()
	// the pepite joins focus and then overlaps avoid
	data.V7 = []models.V7Strategy{{
		Team:         "arsenal",
		MarketsAvoid: models.MarketSet{models.MarketBTTSYes},
		Pepites:      models.MarketSet{models.MarketBTTSYes},
	}}
	f := newFixture(t, fixtureOpts{data: data})
	ctx := context.Background()

	snap, err := f.orch.ProcessMatch(ctx, contextRow(mainGame, "arsenal", "everton", "src-1"))
	require.NoError(t, err)
	assert.Equal(t, models.DecisionSkip, snap.Decision)
	assert.Equal(t, models.ReasonInconsistent, snap.Reason)
	assert.Empty(t, snap.Votes)

	stored, err := f.snaps.Get(ctx, mainGame)
	require.NoError(t, err)
	diff, err := recorder.Replay(ctx, f.orch.Pipeline(), stored)
	require.NoError(t, err)
	assert.True(t, diff.Equal(), diff.String())
	assert.True(t, diff.Failed)
	assert.Equal(t, models.ReasonInconsistent, diff.Replayed.Reason)
}

func TestProcessMatch_PepiteOutsideFocus(t *testing.T) {
	data := profileData()
	data.Frictions[0].PredictedBTTSProb = 0.62
	data.V7 = []models.V7Strategy{{
		Team:         "arsenal",
		MarketsFocus: models.MarketSet{models.MarketOver25},
		Pepites:      models.MarketSet{models.MarketBTTSYes},
	}}
	f := newFixture(t, fixtureOpts{
		data: data,
		odds: &storage.MemoryOddsSource{Odds: map[string]map[string]float64{
			"src-1": {"over_2.5": 1.75, "btts_yes": 1.85},
		}},
	})

	snap, err := f.orch.ProcessMatch(context.Background(), contextRow(mainGame, "arsenal", "everton", "src-1"))
	require.NoError(t, err)

	assert.Equal(t, models.MarketBTTSYes, snap.FinalMarket)
	assert.Equal(t, models.DecisionBetStrong, snap.Decision)
	assert.True(t, snap.StakeVerdict.IsPepite)
	require.NotNil(t, snap.HomeV7)
	assert.True(t, snap.HomeV7.IsFocus(models.MarketBTTSYes))
	assert.Contains(t, snap.Notes, "v7[arsenal].markets_focus: pepite btts_yes added")
	assert.Contains(t, snap.DecisionNotes, "market btts_yes from pepite at 1.85")
}

type brokenOdds struct {
	storage.MemoryOddsSource
	err error
}

func (b *brokenOdds) LatestOdds(context.Context, string) (map[string]float64, error) {
	return nil, b.err
}

type slowOdds struct {
	storage.MemoryOddsSource
}

func (s *slowOdds) LatestOdds(ctx context.Context, _ string) (map[string]float64, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestProcessMatch_ErrorsBecomeSkips(t *testing.T) {
	tests := []struct {
		name   string
		odds   storage.OddsSource
		reason models.SkipReason
	}{
		{"permanent io", &brokenOdds{err: errors.New(`relation "odds_history" does not exist`)}, models.ReasonIOError},
		{"timeout", &slowOdds{}, models.ReasonTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, fixtureOpts{
				data:   profileData(),
				odds:   tt.odds,
				mutate: func(cfg *config.Config) { cfg.Engine.MatchTimeout = 20 * time.Millisecond },
			})
			snap, err := f.orch.ProcessMatch(context.Background(), contextRow(mainGame, "arsenal", "everton", "src-1"))
			require.NoError(t, err)
			assert.Equal(t, models.DecisionSkip, snap.Decision)
			assert.Equal(t, tt.reason, snap.Reason)
			assert.Nil(t, snap.FinalStake)

			stored, err := f.snaps.Get(context.Background(), mainGame)
			require.NoError(t, err)
			assert.Equal(t, tt.reason, stored.Reason)

			// a failed match still records how it would have been decided
			assert.Equal(t, montecarlo.Seed(config.Default().Engine.Seed, mainGame), stored.Seed)
			assert.Equal(t, config.Default().Consensus.Weights.Map(), stored.ModelWeights)
			params, err := config.ParseDecisionParams(stored.ConfigSnapshot)
			require.NoError(t, err)
			assert.Equal(t, config.Default().Stake, params.Stake)
		})
	}
}

type rejectingSnapshots struct {
	storage.SnapshotStore
}

func (rejectingSnapshots) Upsert(context.Context, *models.DecisionSnapshot) (bool, error) {
	return false, errors.New("disk full")
}

func TestProcessBatch_RecordFailures(t *testing.T) {
	f := newFixture(t, fixtureOpts{data: profileData(), snaps: rejectingSnapshots{}})
	rows := []models.MatchContext{
		contextRow(mainGame, "arsenal", "everton", "src-1"),
		contextRow("everton|arsenal|2025-04-12", "everton", "arsenal", "src-1"),
	}

	err := f.orch.ProcessBatch(context.Background(), rows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 of 2 matches not recorded")
	assert.Contains(t, err.Error(), "disk full")
	assert.Empty(t, f.notifier.decisions)
}

func TestProcessBatch_Parallel(t *testing.T) {
	var rows []models.MatchContext
	teams := []string{"arsenal", "everton"}
	for i := 0; i < 12; i++ {
		home, away := teams[i%2], teams[(i+1)%2]
		id := home + "|" + away + "|" + kickoff.Add(time.Duration(i)*time.Hour).Format(time.RFC3339)
		rows = append(rows, contextRow(id, home, away, "src-1"))
	}
	f := newFixture(t, fixtureOpts{
		data:   profileData(),
		mutate: func(cfg *config.Config) { cfg.Engine.Workers = 3 },
	})

	require.NoError(t, f.orch.ProcessBatch(context.Background(), rows))
	assert.Len(t, f.snaps.MatchIDs(), 12)

	// the same inputs give the same decision whatever the scheduling
	ctx := context.Background()
	for _, r := range rows {
		snap, err := f.snaps.Get(ctx, r.MatchID)
		require.NoError(t, err)
		assert.NotEmpty(t, snap.Decision, r.MatchID)
		assert.Len(t, snap.Votes, 6, r.MatchID)
	}
}
