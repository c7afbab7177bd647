package model

import (
	"fmt"
	"time"
)

// RuleCollection is an ordered, prioritized set of rules. Slice order is
// evaluation order: earlier rules win in first-match mode.
type RuleCollection struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Name      string    `json:"name"`
	Rules     []Rule    `json:"rules"`
	ID        int       `json:"id"`
	Enabled   bool      `json:"enabled"`
}

// Validate checks collection-level invariants: a name is present and
// rule ids are unique within the collection.
func (c *RuleCollection) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("collection name is required")
	}

	// Unpersisted rules all carry id 0; only stored ids must be unique.
	seen := make(map[int]bool, len(c.Rules))
	for _, rule := range c.Rules {
		if rule.ID == 0 {
			continue
		}
		if seen[rule.ID] {
			return fmt.Errorf("duplicate rule id %d in collection %q", rule.ID, c.Name)
		}
		seen[rule.ID] = true
	}

	return nil
}
