package performance

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Vodeneev/adnbet/internal/pkg/models"
)

// Tracker aggregates the statistics of one decision run
type Tracker struct {
	mu sync.RWMutex

	startedAt time.Time

	// Overall metrics
	TotalMatches int
	ByDecision   map[models.Decision]int
	BySkipReason map[models.SkipReason]int
	TotalStaked  decimal.Decimal

	// Monte Carlo metrics
	monteCarloRuns    int
	successRateSum    float64
	TotalMatchTime    time.Duration
	SlowestMatchTimes []MatchTiming
}

// MatchTiming tracks timing for a single match
type MatchTiming struct {
	MatchID  string
	Decision models.Decision
	Duration time.Duration
}

const slowestKept = 5

// NewTracker creates a tracker for one run
func NewTracker(now time.Time) *Tracker {
	return &Tracker{
		startedAt:    now,
		ByDecision:   make(map[models.Decision]int),
		BySkipReason: make(map[models.SkipReason]int),
		TotalStaked:  decimal.Zero,
	}
}

// RecordMatch records the decision of a single match. Safe for concurrent use.
func (t *Tracker) RecordMatch(snap *models.DecisionSnapshot, duration time.Duration) {
	if t == nil || snap == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	t.TotalMatches++
	t.ByDecision[snap.Decision]++
	if snap.Decision == models.DecisionSkip {
		t.BySkipReason[snap.Reason]++
	}
	if snap.Decision.IsBet() && snap.FinalStake != nil {
		t.TotalStaked = t.TotalStaked.Add(decimal.NewFromFloat(*snap.FinalStake))
	}
	if snap.MonteCarlo != nil {
		t.monteCarloRuns++
		t.successRateSum += snap.MonteCarlo.SuccessRate
	}

	t.TotalMatchTime += duration
	t.SlowestMatchTimes = append(t.SlowestMatchTimes, MatchTiming{MatchID: snap.MatchID, Decision: snap.Decision, Duration: duration})
	sort.SliceStable(t.SlowestMatchTimes, func(i, j int) bool {
		return t.SlowestMatchTimes[i].Duration > t.SlowestMatchTimes[j].Duration
	})
	if len(t.SlowestMatchTimes) > slowestKept {
		t.SlowestMatchTimes = t.SlowestMatchTimes[:slowestKept]
	}
}

// Summary is the end-of-run view of a tracker
type Summary struct {
	TotalMatches         int                       `json:"total_matches"`
	ByDecision           map[models.Decision]int   `json:"by_decision"`
	BySkipReason         map[models.SkipReason]int `json:"by_skip_reason"`
	Bets                 int                       `json:"bets"`
	TotalStaked          string                    `json:"total_staked"`
	AverageMCSuccessRate float64                   `json:"average_mc_success_rate"`
	MonteCarloRuns       int                       `json:"monte_carlo_runs"`
	AverageMatchTime     string                    `json:"average_match_time"`
	Elapsed              string                    `json:"elapsed"`
	SlowestMatches       []MatchTiming             `json:"slowest_matches"`
}

// Summary returns a copy of the aggregated statistics
func (t *Tracker) Summary(now time.Time) Summary {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var resp Summary
	resp.TotalMatches = t.TotalMatches
	resp.ByDecision = make(map[models.Decision]int, len(t.ByDecision))
	for k, v := range t.ByDecision {
		resp.ByDecision[k] = v
		if k.IsBet() {
			resp.Bets += v
		}
	}
	resp.BySkipReason = make(map[models.SkipReason]int, len(t.BySkipReason))
	for k, v := range t.BySkipReason {
		resp.BySkipReason[k] = v
	}
	resp.TotalStaked = t.TotalStaked.StringFixed(2)
	resp.MonteCarloRuns = t.monteCarloRuns
	if t.monteCarloRuns > 0 {
		resp.AverageMCSuccessRate = t.successRateSum / float64(t.monteCarloRuns)
	}
	if t.TotalMatches > 0 {
		resp.AverageMatchTime = (t.TotalMatchTime / time.Duration(t.TotalMatches)).String()
	}
	resp.Elapsed = now.Sub(t.startedAt).Round(time.Millisecond).String()
	resp.SlowestMatches = append([]MatchTiming(nil), t.SlowestMatchTimes...)
	return resp
}

// PrintSummary logs the run statistics
func (t *Tracker) PrintSummary(now time.Time) {
	s := t.Summary(now)
	if s.TotalMatches == 0 {
		slog.Info("No matches analyzed in this run")
		return
	}

	slog.Info("SESSION SUMMARY",
		"total_matches", s.TotalMatches,
		"bets", s.Bets,
		"bet_strong", s.ByDecision[models.DecisionBetStrong],
		"bet_normal", s.ByDecision[models.DecisionBetNormal],
		"bet_cautious", s.ByDecision[models.DecisionBetCautious],
		"skip", s.ByDecision[models.DecisionSkip],
		"total_staked", s.TotalStaked,
		"avg_mc_success_rate", s.AverageMCSuccessRate,
		"avg_match_time", s.AverageMatchTime,
		"elapsed", s.Elapsed)

	reasons := make([]string, 0, len(s.BySkipReason))
	for r := range s.BySkipReason {
		reasons = append(reasons, string(r))
	}
	sort.Strings(reasons)
	for _, r := range reasons {
		slog.Info("Skip reason", "reason", r, "count", s.BySkipReason[models.SkipReason(r)])
	}

	for _, mt := range s.SlowestMatches {
		slog.Debug("Slowest match", "match_id", mt.MatchID, "decision", mt.Decision, "duration", mt.Duration)
	}
}
