package model

import (
	"time"
)

// FieldSelector identifies which queryable attribute of an event a
// condition reads. Closed set; the extractor matches exhaustively.
type FieldSelector string

// Field selector constants.
const (
	FieldAmount           FieldSelector = "amount"
	FieldDescription      FieldSelector = "description"
	FieldCounterpartyName FieldSelector = "counterparty_name"
	FieldCounterpartyIBAN FieldSelector = "counterparty_iban"
	FieldEventType        FieldSelector = "event_type"
)

// Operator is a comparison applied to an extracted field value.
type Operator string

// Numeric operators, valid for amount fields.
const (
	OpEQ  Operator = "eq"
	OpNEQ Operator = "neq"
	OpGT  Operator = "gt"
	OpGTE Operator = "gte"
	OpLT  Operator = "lt"
	OpLTE Operator = "lte"
)

// String operators, valid for text fields. The _fold variants compare
// case-insensitively; everything else is case-sensitive.
const (
	OpEquals       Operator = "equals"
	OpEqualsFold   Operator = "equals_fold"
	OpContains     Operator = "contains"
	OpContainsFold Operator = "contains_fold"
	OpStartsWith   Operator = "starts_with"
	OpEndsWith     Operator = "ends_with"
	OpRegex        Operator = "regex"
)

// Set-membership operators, valid for enum-like fields (event type).
const (
	OpIn    Operator = "in"
	OpNotIn Operator = "not_in"
)

// Condition is a single field/operator/operand test within a rule.
// Exactly one operand is set depending on the operator family: Number
// for numeric operators, Text for string operators, Set for membership
// operators.
type Condition struct {
	Field  FieldSelector `json:"field"`
	Op     Operator      `json:"op"`
	Text   string        `json:"text,omitempty"`
	Set    []string      `json:"set,omitempty"`
	Number *float64      `json:"number,omitempty"`
}

// Combinator determines how a rule's conditions combine.
type Combinator string

// Combinator constants.
const (
	CombinatorAll Combinator = "all" // logical AND
	CombinatorAny Combinator = "any" // logical OR
)

// ActionKind identifies the effect a matching rule applies.
type ActionKind string

// Action kind constants.
const (
	ActionAssignCategory ActionKind = "assign_category"
	ActionFlagForReview  ActionKind = "flag_for_review"
)

// Action is the single effect applied when a rule matches. Category is
// set only for ActionAssignCategory.
type Action struct {
	Kind     ActionKind `json:"kind"`
	Category string     `json:"category,omitempty"`
}

// Rule is a user-authored condition set plus an action. A rule with no
// conditions never matches.
type Rule struct {
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
	Name       string      `json:"name"`
	Combinator Combinator  `json:"combinator"`
	Conditions []Condition `json:"conditions"`
	Action     Action      `json:"action"`
	ID         int         `json:"id"`
	Priority   int         `json:"priority"`
	Enabled    bool        `json:"enabled"`
}
