package rules

import (
	"github.com/fintally/tally/internal/model"
)

// Runner evaluates a rule collection against a batch of events.
type Runner struct {
	eval *Evaluator
}

// NewRunner creates a runner with a fresh evaluator.
func NewRunner() *Runner {
	return &Runner{eval: NewEvaluator()}
}

// Run evaluates every event against the collection's rules in slice
// order (evaluation priority). It returns exactly one result per input
// event, in input order. In FirstMatch mode iteration stops at the
// first matching rule; in AllMatches mode every enabled rule is
// evaluated and all matching rule ids are recorded. A disabled
// collection produces all non-matching results.
func (r *Runner) Run(collection model.RuleCollection, events []model.Event, mode model.RunMode) []model.EventMatchResult {
	results := make([]model.EventMatchResult, 0, len(events))

	for _, event := range events {
		result := model.EventMatchResult{EventID: event.EventID()}

		if collection.Enabled {
			switch mode {
			case model.AllMatches:
				result = r.runAllMatches(collection, event)
			default:
				result = r.runFirstMatch(collection, event)
			}
		}

		results = append(results, result)
	}

	return results
}

func (r *Runner) runFirstMatch(collection model.RuleCollection, event model.Event) model.EventMatchResult {
	result := model.EventMatchResult{EventID: event.EventID()}

	for _, rule := range collection.Rules {
		if !rule.Enabled {
			continue
		}

		matched, action := r.eval.EvaluateRule(rule, event)
		if matched {
			ruleID := rule.ID
			result.Matches = true
			result.MatchedRuleID = &ruleID
			result.Action = action
			break
		}
	}

	return result
}

func (r *Runner) runAllMatches(collection model.RuleCollection, event model.Event) model.EventMatchResult {
	result := model.EventMatchResult{EventID: event.EventID()}

	for _, rule := range collection.Rules {
		if !rule.Enabled {
			continue
		}

		matched, action := r.eval.EvaluateRule(rule, event)
		if !matched {
			continue
		}

		result.Matches = true
		result.MatchedRuleIDs = append(result.MatchedRuleIDs, rule.ID)
		if result.MatchedRuleID == nil {
			ruleID := rule.ID
			result.MatchedRuleID = &ruleID
			result.Action = action
		}
	}

	return result
}
