package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Vodeneev/adnbet/internal/engine/odds"
	"github.com/Vodeneev/adnbet/internal/engine/profile"
	"github.com/Vodeneev/adnbet/internal/engine/recorder"
	"github.com/Vodeneev/adnbet/internal/engine/rest"
	"github.com/Vodeneev/adnbet/internal/pkg/config"
	"github.com/Vodeneev/adnbet/internal/pkg/failure"
	"github.com/Vodeneev/adnbet/internal/pkg/metrics"
	"github.com/Vodeneev/adnbet/internal/pkg/models"
	"github.com/Vodeneev/adnbet/internal/pkg/notify"
	"github.com/Vodeneev/adnbet/internal/pkg/performance"
	"github.com/Vodeneev/adnbet/internal/pkg/storage"
)

// Deps are the collaborators of an orchestrator. Metrics, Tracker, Notifier and
// Rest may be nil.
type Deps struct {
	Profiles   *profile.Store
	Contexts   storage.ContextStore
	Odds       storage.OddsSource
	Rest       *rest.Calculator
	Normalizer *odds.Normalizer
	Recorder   *recorder.Recorder
	Metrics    *metrics.EngineMetrics
	Tracker    *performance.Tracker
	Notifier   notify.Notifier
}

// Orchestrator loads the inputs of each upcoming match, runs the pipeline and
// records one snapshot per match.
type Orchestrator struct {
	deps       Deps
	pipeline   *Pipeline
	engine     config.EngineConfig
	comparison config.ComparisonThresholds
	now        func() time.Time
}

func New(cfg *config.Config, deps Deps) (*Orchestrator, error) {
	pipeline, err := NewPipeline(cfg.DecisionParams())
	if err != nil {
		return nil, err
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.Nop{}
	}
	if deps.Tracker == nil {
		deps.Tracker = performance.NewTracker(time.Now())
	}
	return &Orchestrator{
		deps:       deps,
		pipeline:   pipeline,
		engine:     cfg.Engine,
		comparison: cfg.Rest.Comparison,
		now:        time.Now,
	}, nil
}

// Pipeline exposes the decision pipeline, e.g. for replaying stored snapshots.
func (o *Orchestrator) Pipeline() *Pipeline {
	return o.pipeline
}

// RunUpcoming decides every match starting within the lookahead window and returns
// the session summary.
func (o *Orchestrator) RunUpcoming(ctx context.Context, now time.Time) (performance.Summary, error) {
	matches, err := o.deps.Contexts.Upcoming(ctx, now, now.Add(o.engine.Lookahead))
	if err != nil {
		return performance.Summary{}, fmt.Errorf("failed to list upcoming matches: %w", err)
	}
	slog.Info("Starting decision run",
		"matches", len(matches),
		"workers", o.engine.Workers,
		"source_data_version", o.engine.SourceDataVersion)

	runErr := o.ProcessBatch(ctx, matches)

	end := o.now()
	summary := o.deps.Tracker.Summary(end)
	o.deps.Tracker.PrintSummary(end)
	if err := o.deps.Notifier.NotifySummary(ctx, summary); err != nil {
		slog.Warn("Failed to send session summary", "error", err)
	}
	return summary, runErr
}

// ProcessBatch decides matches with at most Workers in flight. A match that fails
// to be recorded is logged and does not stop the batch; the joined record errors
// are returned once every match is done.
func (o *Orchestrator) ProcessBatch(ctx context.Context, matches []models.MatchContext) error {
	g := new(errgroup.Group)
	g.SetLimit(max(o.engine.Workers, 1))

	var failed atomic.Int64
	errs := make([]error, len(matches))
	for i := range matches {
		if ctx.Err() != nil {
			break
		}
		mc := matches[i]
		g.Go(func() error {
			if _, err := o.ProcessMatch(ctx, mc); err != nil {
				failed.Add(1)
				errs[i] = err
				slog.Error("Failed to process match", "match_id", mc.MatchID, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	if n := failed.Load(); n > 0 {
		return fmt.Errorf("%d of %d matches not recorded: %w", n, len(matches), errors.Join(errs...))
	}
	return ctx.Err()
}

// ProcessMatch loads the inputs of one match, decides it and records the snapshot.
// Failures while loading or deciding become SKIP snapshots; only a failed write is
// returned as an error.
func (o *Orchestrator) ProcessMatch(ctx context.Context, mc models.MatchContext) (*models.DecisionSnapshot, error) {
	start := o.now()
	snap := &models.DecisionSnapshot{
		MatchID:           mc.MatchID,
		HomeTeam:          mc.HomeTeam,
		AwayTeam:          mc.AwayTeam,
		CommenceTime:      mc.CommenceTime,
		Referee:           mc.Referee,
		SourceDataVersion: o.engine.SourceDataVersion,
	}
	o.pipeline.Stamp(snap)

	mctx, cancel := context.WithTimeout(ctx, o.engine.MatchTimeout)
	err := o.load(mctx, mc, snap)
	if err == nil {
		err = o.pipeline.Decide(mctx, snap)
	}
	if err != nil {
		o.fail(mctx, snap, err)
	}
	cancel()

	if _, err := o.deps.Recorder.Record(ctx, snap); err != nil {
		return snap, err
	}

	elapsed := o.now().Sub(start)
	o.deps.Metrics.RecordDecision(snap, elapsed.Seconds())
	o.deps.Tracker.RecordMatch(snap, elapsed)
	if snap.Decision.IsBet() {
		if err := o.deps.Notifier.NotifyDecision(ctx, snap); err != nil {
			slog.Warn("Failed to notify decision", "match_id", snap.MatchID, "error", err)
		}
	}

	slog.Info("Match decided",
		"match_id", snap.MatchID,
		"decision", snap.Decision,
		"reason", snap.Reason,
		"market", snap.FinalMarket,
		"stake", snap.StakeVerdict.AdjustedStake,
		"duration", elapsed)
	return snap, nil
}

// load freezes every input of the match into snap.
func (o *Orchestrator) load(ctx context.Context, mc models.MatchContext, snap *models.DecisionSnapshot) error {
	p := o.deps.Profiles
	if err := p.CheckMatch(mc.HomeTeam, mc.AwayTeam); err != nil {
		return err
	}

	snap.HomeADN = p.TeamADN(mc.HomeTeam)
	snap.AwayADN = p.TeamADN(mc.AwayTeam)
	snap.HomeStrategy = p.Strategy(mc.HomeTeam)
	snap.AwayStrategy = p.Strategy(mc.AwayTeam)
	snap.HomeV7 = p.V7Strategy(mc.HomeTeam)
	snap.AwayV7 = p.V7Strategy(mc.AwayTeam)
	snap.HomeIsElite = p.IsElite(mc.HomeTeam)
	snap.AwayIsElite = p.IsElite(mc.AwayTeam)
	snap.Friction = p.Friction(mc.HomeTeam, mc.AwayTeam)
	if mc.Referee != "" {
		snap.RefereeDetail = p.Referee(mc.Referee)
	}
	snap.Notes = append(snap.Notes, p.Notes(mc.HomeTeam, mc.AwayTeam)...)
	if snap.HomeADN == nil {
		snap.Notes = append(snap.Notes, "home ADN missing")
	}
	if snap.AwayADN == nil {
		snap.Notes = append(snap.Notes, "away ADN missing")
	}
	if snap.Friction == nil {
		snap.Notes = append(snap.Notes, "friction missing")
	}

	home, away := mc.HomeRest, mc.AwayRest
	if mc.CalculationStatus != models.CalculationDone {
		var err error
		if home, err = o.rest(ctx, mc.HomeTeam, mc.CommenceTime, snap); err != nil {
			return err
		}
		if away, err = o.rest(ctx, mc.AwayTeam, mc.CommenceTime, snap); err != nil {
			return err
		}
	}
	snap.Rest = models.RestSnapshot{Home: home, Away: away, Comparison: rest.Compare(home, away, o.comparison)}

	raw, err := o.deps.Odds.LatestOdds(ctx, mc.SourceID)
	if err != nil {
		return failure.ClassifyIO("LatestOdds", err)
	}
	snap.Odds = o.deps.Normalizer.Normalize(raw)
	snap.Notes = append(snap.Notes, snap.Odds.Notes...)
	return nil
}

// rest computes a missing rest analysis on the fly. A team without history has no
// analysis; that is not an error.
func (o *Orchestrator) rest(ctx context.Context, team string, target time.Time, snap *models.DecisionSnapshot) (*models.RestAnalysis, error) {
	if o.deps.Rest == nil {
		return nil, nil
	}
	a, err := o.deps.Rest.Analyze(ctx, team, target)
	if failure.Is(err, failure.KindMissingInput) {
		snap.Notes = append(snap.Notes, fmt.Sprintf("no rest history for %s", team))
		return nil, nil
	}
	return a, err
}

// fail turns an error into a SKIP decision.
func (o *Orchestrator) fail(ctx context.Context, snap *models.DecisionSnapshot, err error) {
	kind := failure.KindOf(err)
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		kind = failure.KindTimeout
	}
	reason := models.ReasonError
	if failure.Policy(kind) == failure.Skip || kind == failure.KindTransientIO {
		reason = failure.Reason(kind)
	}

	skip(snap, reason)
	snap.Notes = append(snap.Notes, err.Error())
	slog.Warn("Match skipped on error",
		"match_id", snap.MatchID,
		"kind", kind,
		"reason", reason,
		"error", err)
}
