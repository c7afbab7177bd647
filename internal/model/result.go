package model

// RunMode selects how the collection runner aggregates per-rule results.
type RunMode string

// Run mode constants.
const (
	// FirstMatch stops at the first matching rule per event. Used when
	// applying categorization.
	FirstMatch RunMode = "first_match"
	// AllMatches records every matching rule per event. Used for
	// preview display.
	AllMatches RunMode = "all_matches"
)

// EventMatchResult is the per-event outcome of a collection run. It is
// a derived projection for display and apply steps; it is never
// persisted.
type EventMatchResult struct {
	EventID        string  `json:"event_id"`
	MatchedRuleIDs []int   `json:"matched_rule_ids,omitempty"`
	MatchedRuleID  *int    `json:"matched_rule_id,omitempty"`
	Action         *Action `json:"action,omitempty"`
	Matches        bool    `json:"matches"`
}
