package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fintally/tally/internal/model"
)

func floatPtr(f float64) *float64 { return &f }

func TestEvaluateCondition(t *testing.T) {
	payment := model.Payment{
		ID:               "p-1",
		Description:      "Netflix Subscription",
		CounterpartyName: "Netflix International BV",
		CounterpartyIBAN: "NL32INGB0000012345",
		Amount:           model.Money{Value: 75.00, Currency: "EUR"},
	}

	tests := []struct {
		name  string
		event model.Event
		cond  model.Condition
		want  bool
	}{
		{
			name:  "amount greater than",
			event: payment,
			cond:  model.Condition{Field: model.FieldAmount, Op: model.OpGT, Number: floatPtr(50)},
			want:  true,
		},
		{
			name:  "gt with equal values is false",
			event: payment,
			cond:  model.Condition{Field: model.FieldAmount, Op: model.OpGT, Number: floatPtr(75)},
			want:  false,
		},
		{
			name:  "gte with equal values is true",
			event: payment,
			cond:  model.Condition{Field: model.FieldAmount, Op: model.OpGTE, Number: floatPtr(75)},
			want:  true,
		},
		{
			name:  "contains is case sensitive",
			event: payment,
			cond:  model.Condition{Field: model.FieldDescription, Op: model.OpContains, Text: "netflix"},
			want:  false,
		},
		{
			name:  "contains_fold ignores case",
			event: payment,
			cond:  model.Condition{Field: model.FieldDescription, Op: model.OpContainsFold, Text: "netflix"},
			want:  true,
		},
		{
			name:  "starts_with on counterparty",
			event: payment,
			cond:  model.Condition{Field: model.FieldCounterpartyName, Op: model.OpStartsWith, Text: "Netflix"},
			want:  true,
		},
		{
			name:  "ends_with on iban",
			event: payment,
			cond:  model.Condition{Field: model.FieldCounterpartyIBAN, Op: model.OpEndsWith, Text: "12345"},
			want:  true,
		},
		{
			name:  "regex match",
			event: payment,
			cond:  model.Condition{Field: model.FieldDescription, Op: model.OpRegex, Text: `(?i)netflix|spotify`},
			want:  true,
		},
		{
			name:  "invalid regex resolves to false",
			event: payment,
			cond:  model.Condition{Field: model.FieldDescription, Op: model.OpRegex, Text: `(unclosed`},
			want:  false,
		},
		{
			name:  "event type membership",
			event: payment,
			cond:  model.Condition{Field: model.FieldEventType, Op: model.OpIn, Set: []string{"payment", "card_transaction"}},
			want:  true,
		},
		{
			name:  "event type not_in",
			event: payment,
			cond:  model.Condition{Field: model.FieldEventType, Op: model.OpNotIn, Set: []string{"bunqme_tab"}},
			want:  true,
		},
		{
			name:  "numeric operator on text field is false",
			event: payment,
			cond:  model.Condition{Field: model.FieldDescription, Op: model.OpGT, Number: floatPtr(1)},
			want:  false,
		},
		{
			name:  "text operator on amount field is false",
			event: payment,
			cond:  model.Condition{Field: model.FieldAmount, Op: model.OpContains, Text: "75"},
			want:  false,
		},
		{
			name:  "missing numeric operand is false",
			event: payment,
			cond:  model.Condition{Field: model.FieldAmount, Op: model.OpGT},
			want:  false,
		},
		{
			name:  "extraction miss is false",
			event: model.BunqMeTab{ID: "t-1", Description: "split"},
			cond:  model.Condition{Field: model.FieldCounterpartyName, Op: model.OpEquals, Text: "anyone"},
			want:  false,
		},
		{
			name:  "unknown operator is false",
			event: payment,
			cond:  model.Condition{Field: model.FieldDescription, Op: model.Operator("sounds_like"), Text: "netflix"},
			want:  false,
		},
	}

	eval := NewEvaluator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, eval.EvaluateCondition(tt.cond, tt.event))
		})
	}
}

func TestEvaluateRule(t *testing.T) {
	event := model.Payment{
		ID:               "p-1",
		Description:      "Groceries",
		CounterpartyName: "Albert Heijn",
		CounterpartyIBAN: "NL91ABNA0417164300",
		Amount:           model.Money{Value: 75.00, Currency: "EUR"},
	}

	matching := model.Condition{Field: model.FieldAmount, Op: model.OpGT, Number: floatPtr(50)}
	failing := model.Condition{Field: model.FieldDescription, Op: model.OpContains, Text: "rent"}
	action := model.Action{Kind: model.ActionAssignCategory, Category: "groceries"}

	tests := []struct {
		name       string
		rule       model.Rule
		wantMatch  bool
		wantAction bool
	}{
		{
			name: "all with every condition matching",
			rule: model.Rule{
				ID: 1, Enabled: true, Combinator: model.CombinatorAll,
				Conditions: []model.Condition{matching, matching},
				Action:     action,
			},
			wantMatch:  true,
			wantAction: true,
		},
		{
			name: "all with one failing condition",
			rule: model.Rule{
				ID: 1, Enabled: true, Combinator: model.CombinatorAll,
				Conditions: []model.Condition{matching, failing},
				Action:     action,
			},
			wantMatch: false,
		},
		{
			name: "any with one matching condition",
			rule: model.Rule{
				ID: 1, Enabled: true, Combinator: model.CombinatorAny,
				Conditions: []model.Condition{failing, matching},
				Action:     action,
			},
			wantMatch:  true,
			wantAction: true,
		},
		{
			name: "any with no matching conditions",
			rule: model.Rule{
				ID: 1, Enabled: true, Combinator: model.CombinatorAny,
				Conditions: []model.Condition{failing, failing},
				Action:     action,
			},
			wantMatch: false,
		},
		{
			name: "empty conditions never match",
			rule: model.Rule{
				ID: 1, Enabled: true, Combinator: model.CombinatorAll,
				Action: action,
			},
			wantMatch: false,
		},
		{
			name: "disabled rule never matches",
			rule: model.Rule{
				ID: 1, Enabled: false, Combinator: model.CombinatorAll,
				Conditions: []model.Condition{matching},
				Action:     action,
			},
			wantMatch: false,
		},
	}

	eval := NewEvaluator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matched, gotAction := eval.EvaluateRule(tt.rule, event)
			assert.Equal(t, tt.wantMatch, matched)
			if tt.wantAction {
				require.NotNil(t, gotAction)
				assert.Equal(t, "groceries", gotAction.Category)
			} else {
				assert.Nil(t, gotAction)
			}
		})
	}
}

// Scenario from the rule editor: amount > 50 assigns groceries, the
// boundary value itself does not match.
func TestEvaluateRuleAmountBoundary(t *testing.T) {
	rule := model.Rule{
		ID: 1, Enabled: true, Combinator: model.CombinatorAll,
		Conditions: []model.Condition{
			{Field: model.FieldAmount, Op: model.OpGT, Number: floatPtr(50)},
		},
		Action: model.Action{Kind: model.ActionAssignCategory, Category: "groceries"},
	}

	eval := NewEvaluator()

	matched, action := eval.EvaluateRule(rule, model.Payment{ID: "a", Amount: model.Money{Value: 75.00}})
	assert.True(t, matched)
	require.NotNil(t, action)
	assert.Equal(t, "groceries", action.Category)

	matched, action = eval.EvaluateRule(rule, model.Payment{ID: "b", Amount: model.Money{Value: 50.00}})
	assert.False(t, matched)
	assert.Nil(t, action)
}
