package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fintally/tally/internal/cli"
	"github.com/fintally/tally/internal/model"
	"github.com/fintally/tally/internal/rules"
	"github.com/fintally/tally/internal/service"
	"github.com/fintally/tally/internal/tui"
	"github.com/fintally/tally/internal/worker"
)

func collectionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collections",
		Short: "Manage rule collections",
		Long:  `Create, list, share, and preview rule collections.`,
	}

	cmd.AddCommand(listCollectionsCmd())
	cmd.AddCommand(createCollectionCmd())
	cmd.AddCommand(deleteCollectionCmd())
	cmd.AddCommand(exportCollectionCmd())
	cmd.AddCommand(importCollectionCmd())
	cmd.AddCommand(previewCollectionCmd())

	return cmd
}

func listCollectionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all rule collections",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			collections, err := store.GetRuleCollections(ctx)
			if err != nil {
				return fmt.Errorf("failed to get rule collections: %w", err)
			}

			if len(collections) == 0 {
				fmt.Println(cli.SubtleStyle.Render("No rule collections found. Use 'tally collections create' to add one."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer w.Flush()

			fmt.Fprintf(w, "ID\tName\tRules\tEnabled\n")
			for _, collection := range collections {
				fmt.Fprintf(w, "%d\t%s\t%d\t%v\n",
					collection.ID, collection.Name, len(collection.Rules), collection.Enabled)
			}

			return nil
		},
	}
}

func createCollectionCmd() *cobra.Command {
	var disabled bool

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create an empty rule collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			collection := &model.RuleCollection{Name: args[0], Enabled: !disabled}
			if err := store.CreateRuleCollection(ctx, collection); err != nil {
				return fmt.Errorf("failed to create rule collection: %w", err)
			}

			fmt.Println(cli.SuccessStyle.Render(fmt.Sprintf("Created collection %q (ID: %d)", collection.Name, collection.ID)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&disabled, "disabled", false, "Create the collection disabled")

	return cmd
}

func deleteCollectionCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a rule collection and all its rules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := parseID(args[0], "collection")
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			collection, err := store.GetRuleCollection(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to get rule collection: %w", err)
			}

			if !force {
				question := fmt.Sprintf("Delete collection %q and its %d rules?", collection.Name, len(collection.Rules))
				ok, err := cli.Confirm(os.Stdout, os.Stdin, question)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Println("Deletion cancelled.")
					return nil
				}
			}

			if err := store.DeleteRuleCollection(ctx, id); err != nil {
				return fmt.Errorf("failed to delete rule collection: %w", err)
			}

			fmt.Println(cli.SuccessStyle.Render(fmt.Sprintf("Deleted collection %d", id)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Skip confirmation prompt")

	return cmd
}

func exportCollectionCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Export a rule collection to JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := parseID(args[0], "collection")
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			collection, err := store.GetRuleCollection(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to get rule collection: %w", err)
			}

			out := os.Stdout
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create output file: %w", err)
				}
				defer f.Close()
				out = f
			}

			if err := rules.ExportCollection(out, *collection); err != nil {
				return err
			}

			if output != "" {
				fmt.Println(cli.SuccessStyle.Render(fmt.Sprintf("Exported collection %q to %s", collection.Name, output)))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to file instead of stdout")

	return cmd
}

func importCollectionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import a rule collection from JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open file: %w", err)
			}
			defer f.Close()

			collection, err := rules.ImportCollection(f)
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			// CreateRuleCollection persists the nested rules too.
			if err := store.CreateRuleCollection(ctx, collection); err != nil {
				return fmt.Errorf("failed to save rule collection: %w", err)
			}

			fmt.Println(cli.SuccessStyle.Render(fmt.Sprintf(
				"Imported collection %q with %d rules (ID: %d)",
				collection.Name, len(collection.Rules), collection.ID)))
			return nil
		},
	}
}

func previewCollectionCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "preview <id>",
		Short: "Interactively preview which rules match which events",
		Long: `Open an interactive view of the collection evaluated against recent
events. Evaluation runs on a background worker; press r to re-run.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := parseID(args[0], "collection")
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			collection, err := store.GetRuleCollection(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to get rule collection: %w", err)
			}

			events, err := store.GetEvents(ctx, service.EventFilter{Limit: limit})
			if err != nil {
				return fmt.Errorf("failed to get events: %w", err)
			}
			if len(events) == 0 {
				fmt.Println(cli.SubtleStyle.Render("No events to preview against. Use 'tally events import' first."))
				return nil
			}

			host := worker.NewHost(4)
			defer host.Close()

			return tui.Run(host, *collection, events)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 200, "Maximum number of events to preview against")

	return cmd
}
