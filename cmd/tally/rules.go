package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fintally/tally/internal/cli"
	"github.com/fintally/tally/internal/model"
	"github.com/fintally/tally/internal/rules"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage categorization rules",
		Long:  `Add, list, and delete the rules inside a rule collection.`,
	}

	cmd.AddCommand(listRulesCmd())
	cmd.AddCommand(addRuleCmd())
	cmd.AddCommand(deleteRuleCmd())

	return cmd
}

func listRulesCmd() *cobra.Command {
	var collectionID int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List rules in a collection",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			collection, err := store.GetRuleCollection(ctx, collectionID)
			if err != nil {
				return fmt.Errorf("failed to get rule collection: %w", err)
			}

			fmt.Println(cli.TitleStyle.Render(fmt.Sprintf("Rules in %q", collection.Name)))

			if len(collection.Rules) == 0 {
				fmt.Println(cli.SubtleStyle.Render("No rules yet. Use 'tally rules add' to create one."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer w.Flush()

			fmt.Fprintf(w, "ID\tPriority\tName\tMatch\tConditions\tAction\tEnabled\n")

			for _, rule := range collection.Rules {
				fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\t%s\t%v\n",
					rule.ID, rule.Priority, rule.Name, rule.Combinator,
					describeConditions(rule.Conditions), describeAction(rule.Action), rule.Enabled)
			}

			return nil
		},
	}

	cmd.Flags().IntVar(&collectionID, "collection", 0, "Rule collection ID (required)")
	_ = cmd.MarkFlagRequired("collection")

	return cmd
}

func addRuleCmd() *cobra.Command {
	var (
		collectionID int
		name         string
		priority     int
		anyMatch     bool
		disabled     bool
		category     string
		flag         bool
		amountConds  []string
		textConds    []string
		kindConds    []string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a rule to a collection",
		Long: `Create a rule from condition flags. Each condition flag takes
"<op>:<operand>" (amount, kind) or "<field>:<op>:<operand>" (text).

Examples:
  # Flag large outgoing payments for review
  tally rules add --collection 1 --name "big spend" --amount "lt:-250" --flag

  # Categorize streaming subscriptions, matching any condition
  tally rules add --collection 1 --name streaming --any \
    --text "description:contains_fold:netflix" \
    --text "description:contains_fold:spotify" \
    --category streaming

  # Only card transactions
  tally rules add --collection 1 --name "card only" \
    --kind "in:card_transaction" --category plastic`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			rule := model.Rule{
				Name:       name,
				Priority:   priority,
				Enabled:    !disabled,
				Combinator: model.CombinatorAll,
			}
			if anyMatch {
				rule.Combinator = model.CombinatorAny
			}

			if flag {
				rule.Action = model.Action{Kind: model.ActionFlagForReview}
			} else {
				rule.Action = model.Action{Kind: model.ActionAssignCategory, Category: category}
			}

			conditions, err := buildConditions(amountConds, textConds, kindConds)
			if err != nil {
				return err
			}
			rule.Conditions = conditions

			if err := rules.ValidateRule(rule); err != nil {
				return fmt.Errorf("invalid rule: %w", err)
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.CreateRule(ctx, collectionID, &rule); err != nil {
				return fmt.Errorf("failed to create rule: %w", err)
			}

			fmt.Println(cli.SuccessStyle.Render(fmt.Sprintf("Created rule %q (ID: %d)", rule.Name, rule.ID)))
			return nil
		},
	}

	cmd.Flags().IntVar(&collectionID, "collection", 0, "Rule collection ID (required)")
	cmd.Flags().StringVar(&name, "name", "", "Rule name (required)")
	cmd.Flags().IntVar(&priority, "priority", 0, "Evaluation priority, lower runs first")
	cmd.Flags().BoolVar(&anyMatch, "any", false, "Match if any condition holds (default: all)")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "Create the rule disabled")
	cmd.Flags().StringVar(&category, "category", "", "Category to assign on match")
	cmd.Flags().BoolVar(&flag, "flag", false, "Flag matching events for review instead of categorizing")
	cmd.Flags().StringArrayVar(&amountConds, "amount", nil, `Amount condition, "<op>:<number>" (eq, neq, gt, gte, lt, lte)`)
	cmd.Flags().StringArrayVar(&textConds, "text", nil, `Text condition, "<field>:<op>:<operand>"`)
	cmd.Flags().StringArrayVar(&kindConds, "kind", nil, `Event kind condition, "<op>:<kind,...>" (in, not_in)`)
	_ = cmd.MarkFlagRequired("collection")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func deleteRuleCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := parseID(args[0], "rule")
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			rule, err := store.GetRule(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to get rule: %w", err)
			}

			if !force {
				ok, err := cli.Confirm(os.Stdout, os.Stdin, fmt.Sprintf("Delete rule %q (ID: %d)?", rule.Name, rule.ID))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Println("Deletion cancelled.")
					return nil
				}
			}

			if err := store.DeleteRule(ctx, id); err != nil {
				return fmt.Errorf("failed to delete rule: %w", err)
			}

			fmt.Println(cli.SuccessStyle.Render(fmt.Sprintf("Deleted rule %d", id)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Skip confirmation prompt")

	return cmd
}

func buildConditions(amountConds, textConds, kindConds []string) ([]model.Condition, error) {
	var conditions []model.Condition

	for _, spec := range amountConds {
		op, operand, ok := strings.Cut(spec, ":")
		if !ok {
			return nil, fmt.Errorf("amount condition %q must be <op>:<number>", spec)
		}
		var number float64
		if _, err := fmt.Sscanf(operand, "%f", &number); err != nil {
			return nil, fmt.Errorf("invalid number %q in amount condition", operand)
		}
		cond, err := rules.AmountCondition(model.Operator(op), number)
		if err != nil {
			return nil, err
		}
		conditions = append(conditions, cond)
	}

	for _, spec := range textConds {
		parts := strings.SplitN(spec, ":", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("text condition %q must be <field>:<op>:<operand>", spec)
		}
		cond, err := rules.TextCondition(model.FieldSelector(parts[0]), model.Operator(parts[1]), parts[2])
		if err != nil {
			return nil, err
		}
		conditions = append(conditions, cond)
	}

	for _, spec := range kindConds {
		op, operand, ok := strings.Cut(spec, ":")
		if !ok {
			return nil, fmt.Errorf("kind condition %q must be <op>:<kind,...>", spec)
		}
		var kinds []model.EventKind
		for _, kind := range strings.Split(operand, ",") {
			kinds = append(kinds, model.EventKind(strings.TrimSpace(kind)))
		}
		cond, err := rules.EventTypeCondition(model.Operator(op), kinds...)
		if err != nil {
			return nil, err
		}
		conditions = append(conditions, cond)
	}

	return conditions, nil
}

func describeConditions(conditions []model.Condition) string {
	if len(conditions) == 0 {
		return cli.SubtleStyle.Render("(none)")
	}

	parts := make([]string, 0, len(conditions))
	for _, cond := range conditions {
		switch {
		case cond.Number != nil:
			parts = append(parts, fmt.Sprintf("%s %s %g", cond.Field, cond.Op, *cond.Number))
		case len(cond.Set) > 0:
			parts = append(parts, fmt.Sprintf("%s %s [%s]", cond.Field, cond.Op, strings.Join(cond.Set, ",")))
		default:
			parts = append(parts, fmt.Sprintf("%s %s %q", cond.Field, cond.Op, cond.Text))
		}
	}
	return strings.Join(parts, "; ")
}

func describeAction(action model.Action) string {
	switch action.Kind {
	case model.ActionAssignCategory:
		return fmt.Sprintf("assign %q", action.Category)
	case model.ActionFlagForReview:
		return "flag for review"
	}
	return string(action.Kind)
}
