package rules

import (
	"fmt"
	"regexp"

	"github.com/fintally/tally/internal/common"
	"github.com/fintally/tally/internal/model"
)

// Operator families, used to enforce field/operator/operand
// compatibility at construction time so the evaluator's defensive
// false-paths only ever see malformed persisted data.
var (
	numericOps = map[model.Operator]bool{
		model.OpEQ: true, model.OpNEQ: true,
		model.OpGT: true, model.OpGTE: true,
		model.OpLT: true, model.OpLTE: true,
	}
	textOps = map[model.Operator]bool{
		model.OpEquals: true, model.OpEqualsFold: true,
		model.OpContains: true, model.OpContainsFold: true,
		model.OpStartsWith: true, model.OpEndsWith: true,
		model.OpRegex: true,
	}
	setOps = map[model.Operator]bool{
		model.OpIn: true, model.OpNotIn: true,
	}
)

// ValidateCondition checks that the condition's operator fits its field
// and that the matching operand is present and well-formed. Failures
// wrap common.ErrInvalidCondition.
func ValidateCondition(cond model.Condition) error {
	if err := checkCondition(cond); err != nil {
		return fmt.Errorf("%w: %w", common.ErrInvalidCondition, err)
	}
	return nil
}

func checkCondition(cond model.Condition) error {
	switch cond.Field {
	case model.FieldAmount:
		if !numericOps[cond.Op] {
			return fmt.Errorf("operator %q is not valid for amount fields", cond.Op)
		}
		if cond.Number == nil {
			return fmt.Errorf("numeric operand required for operator %q", cond.Op)
		}
	case model.FieldDescription, model.FieldCounterpartyName, model.FieldCounterpartyIBAN:
		if !textOps[cond.Op] {
			return fmt.Errorf("operator %q is not valid for text field %q", cond.Op, cond.Field)
		}
		if cond.Op == model.OpRegex {
			if _, err := regexp.Compile(cond.Text); err != nil {
				return fmt.Errorf("invalid regex pattern %q: %w", cond.Text, err)
			}
		}
	case model.FieldEventType:
		if !setOps[cond.Op] && !textOps[cond.Op] {
			return fmt.Errorf("operator %q is not valid for event type", cond.Op)
		}
		if setOps[cond.Op] {
			if len(cond.Set) == 0 {
				return fmt.Errorf("set operand required for operator %q", cond.Op)
			}
			for _, member := range cond.Set {
				if !validEventKind(member) {
					return fmt.Errorf("unknown event kind %q in set operand", member)
				}
			}
		}
	default:
		return fmt.Errorf("unknown field selector %q", cond.Field)
	}

	return nil
}

// ValidateRule checks rule-level invariants and every condition. Rules
// with no conditions are allowed to exist (a freshly created rule) but
// will never match. Failures wrap common.ErrInvalidRule.
func ValidateRule(rule model.Rule) error {
	if rule.Name == "" {
		return fmt.Errorf("%w: rule name is required", common.ErrInvalidRule)
	}

	switch rule.Combinator {
	case model.CombinatorAll, model.CombinatorAny:
	default:
		return fmt.Errorf("%w: invalid combinator %q", common.ErrInvalidRule, rule.Combinator)
	}

	switch rule.Action.Kind {
	case model.ActionAssignCategory:
		if rule.Action.Category == "" {
			return fmt.Errorf("%w: category is required for assign_category action", common.ErrInvalidRule)
		}
	case model.ActionFlagForReview:
		if rule.Action.Category != "" {
			return fmt.Errorf("%w: flag_for_review action takes no category", common.ErrInvalidRule)
		}
	default:
		return fmt.Errorf("%w: invalid action kind %q", common.ErrInvalidRule, rule.Action.Kind)
	}

	for i, cond := range rule.Conditions {
		if err := ValidateCondition(cond); err != nil {
			return fmt.Errorf("condition %d: %w", i, err)
		}
	}

	return nil
}

// AmountCondition builds a validated numeric condition on the event
// amount.
func AmountCondition(op model.Operator, operand float64) (model.Condition, error) {
	cond := model.Condition{Field: model.FieldAmount, Op: op, Number: &operand}
	if err := ValidateCondition(cond); err != nil {
		return model.Condition{}, err
	}
	return cond, nil
}

// TextCondition builds a validated string condition on a text field.
func TextCondition(field model.FieldSelector, op model.Operator, operand string) (model.Condition, error) {
	cond := model.Condition{Field: field, Op: op, Text: operand}
	if err := ValidateCondition(cond); err != nil {
		return model.Condition{}, err
	}
	return cond, nil
}

// EventTypeCondition builds a validated set-membership condition on the
// event kind.
func EventTypeCondition(op model.Operator, kinds ...model.EventKind) (model.Condition, error) {
	set := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		set = append(set, string(kind))
	}
	cond := model.Condition{Field: model.FieldEventType, Op: op, Set: set}
	if err := ValidateCondition(cond); err != nil {
		return model.Condition{}, err
	}
	return cond, nil
}

func validEventKind(s string) bool {
	switch model.EventKind(s) {
	case model.KindPayment, model.KindCardTransaction, model.KindRequestInquiry,
		model.KindRequestResponse, model.KindBunqMeTab:
		return true
	}
	return false
}
