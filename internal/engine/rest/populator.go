package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Vodeneev/adnbet/internal/pkg/config"
	"github.com/Vodeneev/adnbet/internal/pkg/failure"
	"github.com/Vodeneev/adnbet/internal/pkg/interfaces"
	"github.com/Vodeneev/adnbet/internal/pkg/metrics"
	"github.com/Vodeneev/adnbet/internal/pkg/models"
	"github.com/Vodeneev/adnbet/internal/pkg/storage"
)

// Populator upserts fixtures announced by the odds feed into match_context and
// computes the rest analyses of pending rows.
type Populator struct {
	odds      storage.OddsSource
	contexts  storage.ContextStore
	calc      *Calculator
	validator interfaces.Validator
	cfg       config.PopulatorConfig
	metrics   *metrics.EngineMetrics
}

// NewPopulator creates a populator. m may be nil.
func NewPopulator(odds storage.OddsSource, contexts storage.ContextStore, calc *Calculator,
	validator interfaces.Validator, cfg config.PopulatorConfig, m *metrics.EngineMetrics) *Populator {
	return &Populator{
		odds:      odds,
		contexts:  contexts,
		calc:      calc,
		validator: validator,
		cfg:       cfg,
		metrics:   m,
	}
}

// Populate reads fixtures kicking off within the horizon and upserts them in one
// transaction. A fixture matching an existing row within the reschedule tolerance
// updates that row; an identical fixture is skipped.
func (p *Populator) Populate(ctx context.Context, now time.Time) (models.PopulateSummary, error) {
	now = now.UTC()
	fixtures, err := p.odds.ScheduledMatches(ctx, now, now.Add(p.cfg.Horizon))
	if err != nil {
		return models.PopulateSummary{}, fmt.Errorf("failed to list scheduled matches: %w", err)
	}

	var valid []models.ScheduledMatch
	for i := range fixtures {
		if err := p.validator.ValidateScheduledMatch(&fixtures[i]); err != nil {
			slog.Warn("Skipping invalid fixture", "source_id", fixtures[i].SourceID, "error", err)
			continue
		}
		valid = append(valid, fixtures[i])
	}

	var summary models.PopulateSummary
	err = p.contexts.WithinTx(ctx, func(tx storage.ContextTx) error {
		// a retried transaction starts from scratch
		summary = models.PopulateSummary{}
		for _, f := range valid {
			if err := ctx.Err(); err != nil {
				return err
			}
			existing, err := tx.FindNear(ctx, f.HomeTeam, f.AwayTeam, f.CommenceTime, p.cfg.RescheduleTolerance)
			if err != nil {
				return fmt.Errorf("find %s vs %s: %w", f.HomeTeam, f.AwayTeam, err)
			}
			switch {
			case existing == nil:
				row := &models.MatchContext{
					MatchID:           models.CanonicalMatchID(f.HomeTeam, f.AwayTeam, f.CommenceTime),
					HomeTeam:          f.HomeTeam,
					AwayTeam:          f.AwayTeam,
					CommenceTime:      f.CommenceTime.UTC(),
					CalculationStatus: models.CalculationPending,
					SourceID:          f.SourceID,
				}
				if err := tx.Insert(ctx, row); err != nil {
					return fmt.Errorf("insert %s: %w", row.MatchID, err)
				}
				summary.Inserted++
			case existing.CommenceTime.Equal(f.CommenceTime):
				summary.Skipped++
			default:
				if err := tx.Reschedule(ctx, existing.MatchID, f.CommenceTime, f.SourceID); err != nil {
					return fmt.Errorf("reschedule %s: %w", existing.MatchID, err)
				}
				slog.Info("Match rescheduled",
					"match_id", existing.MatchID,
					"from", existing.CommenceTime.Format(time.RFC3339),
					"to", f.CommenceTime.UTC().Format(time.RFC3339))
				summary.Updated++
			}
		}
		return nil
	})
	if err != nil {
		return models.PopulateSummary{}, fmt.Errorf("failed to populate match_context: %w", err)
	}

	p.metrics.RecordPopulate(summary)
	slog.Info("match_context populated",
		"fixtures", len(fixtures),
		"inserted", summary.Inserted,
		"updated", summary.Updated,
		"skipped", summary.Skipped)
	return summary, nil
}

// CalculatePending computes rest analyses for up to BatchSize pending rows. A team
// without history leaves its side empty; any other failure marks the row ERROR.
// Returns the number of rows processed.
func (p *Populator) CalculatePending(ctx context.Context, now time.Time) (int, error) {
	rows, err := p.contexts.Pending(ctx, p.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return processed, err
		}

		status := models.CalculationDone
		home, herr := p.analyze(ctx, row.HomeTeam, row.CommenceTime)
		away, aerr := p.analyze(ctx, row.AwayTeam, row.CommenceTime)
		if herr != nil || aerr != nil {
			status = models.CalculationError
			slog.Warn("Rest calculation failed", "match_id", row.MatchID, "error", errors.Join(herr, aerr))
		}

		if err := p.contexts.SaveRest(ctx, row.MatchID, home, away, status, now); err != nil {
			return processed, fmt.Errorf("failed to save rest of %s: %w", row.MatchID, err)
		}
		p.metrics.RecordRestCalculation(status)
		processed++
	}

	if processed > 0 {
		slog.Info("Pending rest calculated", "rows", processed)
	}
	return processed, nil
}

func (p *Populator) analyze(ctx context.Context, team string, target time.Time) (*models.RestAnalysis, error) {
	a, err := p.calc.Analyze(ctx, team, target)
	if failure.Is(err, failure.KindMissingInput) {
		slog.Debug("No rest history", "team", team, "target", target.Format(time.DateOnly))
		return nil, nil
	}
	return a, err
}

// Run populates match_context, then computes pending rest analyses.
func (p *Populator) Run(ctx context.Context, now time.Time) error {
	if _, err := p.Populate(ctx, now); err != nil {
		return err
	}
	_, err := p.CalculatePending(ctx, now)
	return err
}
