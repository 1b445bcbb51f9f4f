// Package metrics exposes Prometheus metrics for the decision engine and the populator.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/Vodeneev/adnbet/internal/pkg/models"
)

// EngineMetrics collects run metrics on a private registry. Every method is a no-op
// on a nil receiver so callers never check whether metrics are enabled.
type EngineMetrics struct {
	registry *prometheus.Registry

	// Decision metrics
	DecisionsTotal  *prometheus.CounterVec
	MatchDuration   *prometheus.HistogramVec
	StakeMultiplier *prometheus.HistogramVec
	StakedUnits     prometheus.Counter

	// Scorer metrics
	VotesTotal     *prometheus.CounterVec
	ConsensusScore prometheus.Histogram

	// Monte Carlo metrics
	RobustnessTotal *prometheus.CounterVec
	SuccessRate     prometheus.Histogram

	// Store metrics
	StoreRetries *prometheus.CounterVec

	// Populator metrics
	ContextRows     *prometheus.CounterVec
	RestCalculation *prometheus.CounterVec
}

// NewEngineMetrics creates a new collector.
func NewEngineMetrics() *EngineMetrics {
	m := &EngineMetrics{
		registry: prometheus.NewRegistry(),

		DecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adnbet_decisions_total",
				Help: "Decisions produced, by grade and skip reason",
			},
			[]string{"decision", "reason"},
		),
		MatchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "adnbet_match_duration_seconds",
				Help:    "Time spent deciding one match",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
			},
			[]string{"decision"},
		),
		StakeMultiplier: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "adnbet_stake_multiplier",
				Help:    "Stake multiplier of BET decisions",
				Buckets: []float64{0.5, 0.7, 0.8, 0.9, 1.0, 1.1, 1.2, 1.4, 1.6, 2.0},
			},
			[]string{"decision"},
		),
		StakedUnits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "adnbet_staked_units_total",
				Help: "Sum of adjusted stakes of BET decisions",
			},
		),

		VotesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adnbet_votes_total",
				Help: "Scorer votes, by model and signal",
			},
			[]string{"model", "signal"},
		),
		ConsensusScore: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "adnbet_consensus_score",
				Help:    "Weighted consensus score per match",
				Buckets: prometheus.LinearBuckets(0, 0.1, 11),
			},
		),

		RobustnessTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adnbet_monte_carlo_total",
				Help: "Monte Carlo verdicts, by robustness",
			},
			[]string{"robustness"},
		),
		SuccessRate: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "adnbet_monte_carlo_success_rate",
				Help:    "Share of successful Monte Carlo trials",
				Buckets: prometheus.LinearBuckets(0, 0.1, 11),
			},
		),

		StoreRetries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adnbet_store_retries_total",
				Help: "Retried store operations",
			},
			[]string{"op"},
		),

		ContextRows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adnbet_match_context_rows_total",
				Help: "match_context rows touched by the populator, by outcome",
			},
			[]string{"outcome"},
		),
		RestCalculation: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adnbet_rest_calculations_total",
				Help: "Rest calculations of pending rows, by status",
			},
			[]string{"status"},
		),
	}

	m.registerAll()
	return m
}

func (m *EngineMetrics) registerAll() {
	m.registry.MustRegister(
		m.DecisionsTotal,
		m.MatchDuration,
		m.StakeMultiplier,
		m.StakedUnits,
		m.VotesTotal,
		m.ConsensusScore,
		m.RobustnessTotal,
		m.SuccessRate,
		m.StoreRetries,
		m.ContextRows,
		m.RestCalculation,
	)
}

// Registry returns the registry served on /metrics.
func (m *EngineMetrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordDecision records the outcome of one match.
func (m *EngineMetrics) RecordDecision(snap *models.DecisionSnapshot, durationSec float64) {
	if m == nil || snap == nil {
		return
	}
	decision := string(snap.Decision)
	m.DecisionsTotal.WithLabelValues(decision, string(snap.Reason)).Inc()
	m.MatchDuration.WithLabelValues(decision).Observe(durationSec)

	for _, v := range snap.Votes {
		m.VotesTotal.WithLabelValues(string(v.Model), string(v.Signal)).Inc()
	}
	if len(snap.Votes) > 0 {
		m.ConsensusScore.Observe(snap.Consensus.ConsensusScore)
	}
	if snap.MonteCarlo != nil {
		m.RobustnessTotal.WithLabelValues(string(snap.MonteCarlo.Robustness)).Inc()
		m.SuccessRate.Observe(snap.MonteCarlo.SuccessRate)
	}
	if snap.Decision.IsBet() {
		m.StakeMultiplier.WithLabelValues(decision).Observe(snap.StakeVerdict.StakeMultiplier)
		if snap.FinalStake != nil {
			m.StakedUnits.Add(DecimalToFloat64(decimal.NewFromFloat(*snap.FinalStake).Round(4)))
		}
	}
}

// ObserveRetry implements storage.RetryObserver.
func (m *EngineMetrics) ObserveRetry(op string, _ int, _ error) {
	if m == nil {
		return
	}
	m.StoreRetries.WithLabelValues(op).Inc()
}

// RecordPopulate records one committed populator transaction.
func (m *EngineMetrics) RecordPopulate(summary models.PopulateSummary) {
	if m == nil {
		return
	}
	m.ContextRows.WithLabelValues("inserted").Add(float64(summary.Inserted))
	m.ContextRows.WithLabelValues("updated").Add(float64(summary.Updated))
	m.ContextRows.WithLabelValues("skipped").Add(float64(summary.Skipped))
}

// RecordRestCalculation records the status a pending row ended in.
func (m *EngineMetrics) RecordRestCalculation(status models.CalculationStatus) {
	if m == nil {
		return
	}
	m.RestCalculation.WithLabelValues(string(status)).Inc()
}

// DecimalToFloat64 converts a decimal to float64 for Prometheus.
func DecimalToFloat64(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
