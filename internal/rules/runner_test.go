package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fintally/tally/internal/model"
)

func testCollection() model.RuleCollection {
	return model.RuleCollection{
		ID:      1,
		Name:    "Subscriptions",
		Enabled: true,
		Rules: []model.Rule{
			{
				ID: 10, Name: "big spend", Enabled: true, Combinator: model.CombinatorAll,
				Conditions: []model.Condition{
					{Field: model.FieldAmount, Op: model.OpGT, Number: floatPtr(50)},
				},
				Action: model.Action{Kind: model.ActionAssignCategory, Category: "large"},
			},
			{
				ID: 20, Name: "streaming", Enabled: true, Combinator: model.CombinatorAny,
				Conditions: []model.Condition{
					{Field: model.FieldDescription, Op: model.OpContainsFold, Text: "netflix"},
					{Field: model.FieldDescription, Op: model.OpContainsFold, Text: "spotify"},
				},
				Action: model.Action{Kind: model.ActionAssignCategory, Category: "streaming"},
			},
		},
	}
}

func TestRunnerFirstMatch(t *testing.T) {
	runner := NewRunner()
	events := []model.Event{
		// matches both rules; first in collection order wins
		model.Payment{ID: "e-1", Description: "Netflix", Amount: model.Money{Value: 60}},
		// matches only the streaming rule
		model.Payment{ID: "e-2", Description: "Spotify", Amount: model.Money{Value: 9.99}},
		// matches nothing
		model.Payment{ID: "e-3", Description: "Rent", Amount: model.Money{Value: 12}},
	}

	results := runner.Run(testCollection(), events, model.FirstMatch)
	require.Len(t, results, 3)

	assert.Equal(t, "e-1", results[0].EventID)
	assert.True(t, results[0].Matches)
	require.NotNil(t, results[0].MatchedRuleID)
	assert.Equal(t, 10, *results[0].MatchedRuleID)
	require.NotNil(t, results[0].Action)
	assert.Equal(t, "large", results[0].Action.Category)

	assert.True(t, results[1].Matches)
	require.NotNil(t, results[1].MatchedRuleID)
	assert.Equal(t, 20, *results[1].MatchedRuleID)

	assert.False(t, results[2].Matches)
	assert.Nil(t, results[2].MatchedRuleID)
	assert.Nil(t, results[2].Action)
}

func TestRunnerAllMatches(t *testing.T) {
	runner := NewRunner()
	events := []model.Event{
		model.Payment{ID: "e-1", Description: "Netflix", Amount: model.Money{Value: 60}},
		model.Payment{ID: "e-2", Description: "Rent", Amount: model.Money{Value: 12}},
	}

	results := runner.Run(testCollection(), events, model.AllMatches)
	require.Len(t, results, 2)

	assert.True(t, results[0].Matches)
	assert.ElementsMatch(t, []int{10, 20}, results[0].MatchedRuleIDs)

	assert.False(t, results[1].Matches)
	assert.Empty(t, results[1].MatchedRuleIDs)
}

func TestRunnerSkipsDisabledRules(t *testing.T) {
	collection := testCollection()
	collection.Rules[0].Enabled = false

	runner := NewRunner()
	events := []model.Event{
		model.Payment{ID: "e-1", Description: "Netflix", Amount: model.Money{Value: 60}},
	}

	results := runner.Run(collection, events, model.FirstMatch)
	require.Len(t, results, 1)
	require.NotNil(t, results[0].MatchedRuleID)
	assert.Equal(t, 20, *results[0].MatchedRuleID)
}

func TestRunnerDisabledCollection(t *testing.T) {
	collection := testCollection()
	collection.Enabled = false

	runner := NewRunner()
	events := []model.Event{
		model.Payment{ID: "e-1", Description: "Netflix", Amount: model.Money{Value: 60}},
	}

	for _, mode := range []model.RunMode{model.FirstMatch, model.AllMatches} {
		results := runner.Run(collection, events, mode)
		require.Len(t, results, 1)
		assert.False(t, results[0].Matches, "mode %s", mode)
		assert.Nil(t, results[0].MatchedRuleID, "mode %s", mode)
	}
}

func TestRunnerPreservesEventOrder(t *testing.T) {
	runner := NewRunner()
	events := []model.Event{
		model.BunqMeTab{ID: "tab-1", Description: "split"},
		model.CardTransaction{ID: "card-1", Description: "Netflix", Amount: model.Money{Value: 12}},
		model.RequestInquiry{ID: "req-1", Description: "lunch"},
	}

	results := runner.Run(testCollection(), events, model.AllMatches)
	require.Len(t, results, 3)
	assert.Equal(t, "tab-1", results[0].EventID)
	assert.Equal(t, "card-1", results[1].EventID)
	assert.Equal(t, "req-1", results[2].EventID)
}

func TestRunnerDeterministic(t *testing.T) {
	runner := NewRunner()
	events := []model.Event{
		model.Payment{ID: "e-1", Description: "Netflix", Amount: model.Money{Value: 60}},
		model.Payment{ID: "e-2", Description: "Spotify", Amount: model.Money{Value: 9.99}},
	}

	first := runner.Run(testCollection(), events, model.AllMatches)
	second := runner.Run(testCollection(), events, model.AllMatches)
	assert.Equal(t, first, second)
}
