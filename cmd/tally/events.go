package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fintally/tally/internal/cli"
	"github.com/fintally/tally/internal/common"
	"github.com/fintally/tally/internal/model"
	"github.com/fintally/tally/internal/ofx"
	"github.com/fintally/tally/internal/service"
)

func eventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Import and inspect financial events",
	}

	cmd.AddCommand(importEventsCmd())
	cmd.AddCommand(listEventsCmd())

	return cmd
}

func importEventsCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "import [files...]",
		Short: "Import events from OFX/QFX files",
		Long: `Import financial events from OFX or QFX files exported from your bank.

Examples:
  # Import a single file
  tally events import ~/Downloads/statement_jan.ofx

  # Import everything in a directory
  tally events import ~/Downloads/*.qfx`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var allFiles []string
			for _, pattern := range args {
				matches, err := filepath.Glob(pattern)
				if err != nil {
					return fmt.Errorf("invalid pattern %s: %w", pattern, err)
				}
				if len(matches) == 0 {
					// If no glob matches, check if it's a direct file
					if _, err := os.Stat(pattern); err == nil {
						allFiles = append(allFiles, pattern)
					} else {
						slog.Warn("No files found matching pattern", "pattern", pattern)
					}
				} else {
					allFiles = append(allFiles, matches...)
				}
			}

			if len(allFiles) == 0 {
				return fmt.Errorf("no files found to import")
			}

			parser := ofx.NewParser()
			seen := make(map[string]bool)
			var allEvents []model.Event

			for _, filePath := range allFiles {
				f, err := os.Open(filePath)
				if err != nil {
					common.LogError(err, "Failed to open file", common.Fields{"file": filePath})
					continue
				}

				events, err := parser.ParseFile(ctx, f)
				f.Close()
				if err != nil {
					common.LogError(err, "Failed to parse OFX file", common.Fields{"file": filePath})
					continue
				}

				added := 0
				for _, event := range events {
					if !seen[event.EventID()] {
						seen[event.EventID()] = true
						allEvents = append(allEvents, event)
						added++
					}
				}

				slog.Info("Processed file",
					"file", filepath.Base(filePath),
					"events_found", len(events),
					"added", added,
					"duplicates", len(events)-added)
			}

			if len(allEvents) == 0 {
				slog.Warn("No events found in any file")
				return nil
			}

			if dryRun {
				fmt.Println(cli.SubtleStyle.Render(fmt.Sprintf("Dry run: %d events parsed, nothing saved", len(allEvents))))
				return nil
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.SaveEvents(ctx, allEvents); err != nil {
				return fmt.Errorf("failed to save events: %w", err)
			}

			fmt.Println(cli.SuccessStyle.Render(fmt.Sprintf("Imported %d events", len(allEvents))))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&dryRun, "dry-run", "d", false, "Preview import without saving")

	return cmd
}

func listEventsCmd() *cobra.Command {
	var (
		kind          string
		limit         int
		uncategorized bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored events",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			filter := service.EventFilter{
				Uncategorized: uncategorized,
				Limit:         limit,
			}
			if kind != "" {
				k := model.EventKind(kind)
				filter.Kind = &k
			}

			events, err := store.GetEvents(ctx, filter)
			if err != nil {
				return fmt.Errorf("failed to get events: %w", err)
			}

			if len(events) == 0 {
				fmt.Println(cli.SubtleStyle.Render("No events found. Use 'tally events import' to load some."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer w.Flush()

			fmt.Fprintf(w, "ID\tDate\tKind\tAmount\tDescription\n")
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				strings.Repeat("-", 12),
				strings.Repeat("-", 10),
				strings.Repeat("-", 16),
				strings.Repeat("-", 10),
				strings.Repeat("-", 30))

			for _, event := range events {
				printEventRow(w, event)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "Filter by event kind (payment, card_transaction, ...)")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of events to show")
	cmd.Flags().BoolVar(&uncategorized, "uncategorized", false, "Show only uncategorized events")

	return cmd
}

func printEventRow(w *tabwriter.Writer, event model.Event) {
	var (
		date        string
		amount      model.Money
		description string
	)

	switch e := event.(type) {
	case model.Payment:
		date, amount, description = e.Date.Format("2006-01-02"), e.Amount, e.Description
	case model.CardTransaction:
		date, amount, description = e.Date.Format("2006-01-02"), e.Amount, e.Description
	case model.RequestInquiry:
		date, amount, description = e.Date.Format("2006-01-02"), e.Amount, e.Description
	case model.RequestResponse:
		date, amount, description = e.Date.Format("2006-01-02"), e.Amount, e.Description
	case model.BunqMeTab:
		date, amount, description = e.Date.Format("2006-01-02"), e.Amount, e.Description
	}

	fmt.Fprintf(w, "%s\t%s\t%s\t%.2f %s\t%s\n",
		event.EventID(), date, event.Kind(), amount.Value, amount.Currency, description)
}
