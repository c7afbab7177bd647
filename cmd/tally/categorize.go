package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fintally/tally/internal/cli"
	"github.com/fintally/tally/internal/engine"
)

func categorizeCmd() *cobra.Command {
	var (
		collectionID int
		dryRun       bool
		noProgress   bool
	)

	cmd := &cobra.Command{
		Use:   "categorize",
		Short: "Apply a rule collection to uncategorized events",
		Long: `Run a rule collection over every uncategorized event. The first
matching rule wins per event; its action assigns a category or flags
the event for manual review. Unmatched events are left untouched.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			stats, err := engine.New(store).Apply(ctx, collectionID, engine.Options{
				ShowProgress: !noProgress,
				DryRun:       dryRun,
			})
			if err != nil {
				return err
			}

			fmt.Println(cli.TitleStyle.Render("Categorization complete"))
			fmt.Printf("  Events:      %d\n", stats.TotalEvents)
			fmt.Printf("  Categorized: %s\n", cli.SuccessStyle.Render(fmt.Sprintf("%d", stats.Categorized)))
			fmt.Printf("  Flagged:     %s\n", cli.WarningStyle.Render(fmt.Sprintf("%d", stats.Flagged)))
			fmt.Printf("  Unmatched:   %d\n", stats.Unmatched)
			fmt.Printf("  Duration:    %s\n", stats.Duration.Round(time.Millisecond))

			if dryRun {
				fmt.Println(cli.SubtleStyle.Render("Dry run: no changes were saved."))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&collectionID, "collection", 0, "Rule collection ID (required)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Evaluate without saving changes")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable the progress bar")
	_ = cmd.MarkFlagRequired("collection")

	return cmd
}
