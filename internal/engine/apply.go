// Package engine applies rule collections to stored events.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/fintally/tally/internal/common"
	"github.com/fintally/tally/internal/model"
	"github.com/fintally/tally/internal/rules"
	"github.com/fintally/tally/internal/service"
)

// Engine runs first-match categorization over uncategorized events and
// records the resulting actions in storage.
type Engine struct {
	storage service.Storage
	runner  *rules.Runner
}

// New creates a categorization engine.
func New(storage service.Storage) *Engine {
	return &Engine{
		storage: storage,
		runner:  rules.NewRunner(),
	}
}

// Options configures an Apply run.
type Options struct {
	// ShowProgress renders a progress bar over the event batch.
	ShowProgress bool
	// DryRun evaluates without writing categories or flags.
	DryRun bool
}

// Apply evaluates the collection against all uncategorized events in
// first-match mode and applies each matched rule's action. Events no
// rule matches are left untouched for manual review.
func (e *Engine) Apply(ctx context.Context, collectionID int, opts Options) (*service.ApplyStats, error) {
	start := time.Now()

	collection, err := e.storage.GetRuleCollection(ctx, collectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load rule collection: %w", err)
	}

	events, err := e.storage.GetEvents(ctx, service.EventFilter{Uncategorized: true})
	if err != nil {
		return nil, fmt.Errorf("failed to load events: %w", err)
	}

	stats := &service.ApplyStats{TotalEvents: len(events)}
	if len(events) == 0 {
		stats.Duration = time.Since(start)
		return stats, nil
	}

	results := e.runner.Run(*collection, events, model.FirstMatch)

	var bar *progressbar.ProgressBar
	if opts.ShowProgress {
		bar = progressbar.Default(int64(len(results)), "categorizing")
	}

	for _, result := range results {
		if bar != nil {
			_ = bar.Add(1)
		}

		if !result.Matches || result.Action == nil {
			stats.Unmatched++
			continue
		}

		if err := e.applyAction(ctx, result, opts.DryRun, stats); err != nil {
			return nil, err
		}
	}

	stats.Duration = time.Since(start)
	slog.Info("Categorization run complete",
		"collection", collection.Name,
		"total", stats.TotalEvents,
		"categorized", stats.Categorized,
		"flagged", stats.Flagged,
		"unmatched", stats.Unmatched,
		"dry_run", opts.DryRun)

	return stats, nil
}

func (e *Engine) applyAction(ctx context.Context, result model.EventMatchResult, dryRun bool, stats *service.ApplyStats) error {
	// Writes retry on lock contention; another process may hold the
	// database while an import runs.
	switch result.Action.Kind {
	case model.ActionAssignCategory:
		if !dryRun {
			err := common.WithRetry(ctx, func() error {
				return e.storage.SetEventCategory(ctx, result.EventID, result.Action.Category)
			}, service.RetryOptions{})
			if err != nil {
				return fmt.Errorf("failed to categorize event %s: %w", result.EventID, err)
			}
		}
		stats.Categorized++
	case model.ActionFlagForReview:
		if !dryRun {
			err := common.WithRetry(ctx, func() error {
				return e.storage.FlagEventForReview(ctx, result.EventID)
			}, service.RetryOptions{})
			if err != nil {
				return fmt.Errorf("failed to flag event %s: %w", result.EventID, err)
			}
		}
		stats.Flagged++
	default:
		slog.Debug("Skipping unknown action kind",
			"event", result.EventID, "kind", result.Action.Kind)
		stats.Unmatched++
	}

	return nil
}
