package rules

import (
	"errors"
	"log/slog"
	"regexp"
	"strings"

	"github.com/fintally/tally/internal/model"
)

// Evaluator evaluates conditions and rules against events. Regex
// operands are compiled once and cached; a pattern that fails to
// compile is cached as nil so it is not recompiled per event.
type Evaluator struct {
	compiledRegex map[string]*regexp.Regexp
}

// NewEvaluator creates an evaluator with an empty regex cache.
func NewEvaluator() *Evaluator {
	return &Evaluator{
		compiledRegex: make(map[string]*regexp.Regexp),
	}
}

// EvaluateCondition checks a single condition against an event. It is
// total: extraction misses, operator/field type mismatches, missing
// operands and invalid regex patterns all resolve to false rather than
// an error. The rule editor is expected to only construct valid
// conditions; these fallbacks guard against malformed persisted data.
func (e *Evaluator) EvaluateCondition(cond model.Condition, event model.Event) bool {
	value, err := Extract(event, cond.Field)
	if err != nil {
		if !errors.Is(err, ErrFieldNotApplicable) {
			slog.Debug("Field extraction failed", "field", cond.Field, "error", err)
		}
		return false
	}

	switch cond.Op {
	case model.OpEQ, model.OpNEQ, model.OpGT, model.OpGTE, model.OpLT, model.OpLTE:
		return e.evaluateNumeric(cond, value)
	case model.OpEquals, model.OpEqualsFold, model.OpContains, model.OpContainsFold,
		model.OpStartsWith, model.OpEndsWith, model.OpRegex:
		return e.evaluateText(cond, value)
	case model.OpIn, model.OpNotIn:
		return e.evaluateSet(cond, value)
	}

	slog.Debug("Unknown operator", "op", cond.Op)
	return false
}

// EvaluateRule checks a rule against an event. Disabled rules and rules
// with no conditions never match. ALL short-circuits on the first false
// condition, ANY on the first true one. On match the rule's action is
// returned; otherwise the action is nil.
func (e *Evaluator) EvaluateRule(rule model.Rule, event model.Event) (bool, *model.Action) {
	if !rule.Enabled || len(rule.Conditions) == 0 {
		return false, nil
	}

	matched := false
	switch rule.Combinator {
	case model.CombinatorAny:
		for _, cond := range rule.Conditions {
			if e.EvaluateCondition(cond, event) {
				matched = true
				break
			}
		}
	case model.CombinatorAll:
		matched = true
		for _, cond := range rule.Conditions {
			if !e.EvaluateCondition(cond, event) {
				matched = false
				break
			}
		}
	default:
		slog.Debug("Unknown combinator", "combinator", rule.Combinator, "rule_id", rule.ID)
		return false, nil
	}

	if !matched {
		return false, nil
	}

	action := rule.Action
	return true, &action
}

func (e *Evaluator) evaluateNumeric(cond model.Condition, value Value) bool {
	if value.Kind != NumberValue || cond.Number == nil {
		return false
	}

	operand := *cond.Number
	switch cond.Op {
	case model.OpEQ:
		return value.Number == operand
	case model.OpNEQ:
		return value.Number != operand
	case model.OpGT:
		return value.Number > operand
	case model.OpGTE:
		return value.Number >= operand
	case model.OpLT:
		return value.Number < operand
	case model.OpLTE:
		return value.Number <= operand
	}
	return false
}

func (e *Evaluator) evaluateText(cond model.Condition, value Value) bool {
	if value.Kind != TextValue {
		return false
	}

	text := value.Text
	operand := strings.TrimSpace(cond.Text)

	switch cond.Op {
	case model.OpEquals:
		return text == operand
	case model.OpEqualsFold:
		return strings.EqualFold(text, operand)
	case model.OpContains:
		return strings.Contains(text, operand)
	case model.OpContainsFold:
		return strings.Contains(strings.ToLower(text), strings.ToLower(operand))
	case model.OpStartsWith:
		return strings.HasPrefix(text, operand)
	case model.OpEndsWith:
		return strings.HasSuffix(text, operand)
	case model.OpRegex:
		re := e.compile(cond.Text)
		if re == nil {
			return false
		}
		return re.MatchString(text)
	}
	return false
}

func (e *Evaluator) evaluateSet(cond model.Condition, value Value) bool {
	if value.Kind != TextValue {
		return false
	}

	member := false
	for _, allowed := range cond.Set {
		if strings.TrimSpace(allowed) == value.Text {
			member = true
			break
		}
	}

	if cond.Op == model.OpNotIn {
		return !member
	}
	return member
}

// compile returns the cached compiled pattern, or nil if the pattern is
// invalid. Invalid patterns are logged once at debug level for rule
// authors and never abort evaluation.
func (e *Evaluator) compile(pattern string) *regexp.Regexp {
	if re, ok := e.compiledRegex[pattern]; ok {
		return re
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		slog.Debug("Invalid regex pattern in condition", "pattern", pattern, "error", err)
		re = nil
	}
	e.compiledRegex[pattern] = re
	return re
}
