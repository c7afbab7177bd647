package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fintally/tally/internal/model"
	"github.com/fintally/tally/internal/worker"
)

func previewFixture() (model.RuleCollection, []model.Event) {
	collection := model.RuleCollection{
		ID: 1, Name: "test", Enabled: true,
		Rules: []model.Rule{
			{
				ID: 1, Name: "streaming", Enabled: true, Combinator: model.CombinatorAll,
				Conditions: []model.Condition{
					{Field: model.FieldDescription, Op: model.OpContainsFold, Text: "netflix"},
				},
				Action: model.Action{Kind: model.ActionAssignCategory, Category: "streaming"},
			},
		},
	}
	events := []model.Event{
		model.Payment{ID: "e-1", Description: "Netflix", Amount: model.Money{Value: -12.99, Currency: "EUR"}},
		model.Payment{ID: "e-2", Description: "Rent", Amount: model.Money{Value: -900, Currency: "EUR"}},
	}
	return collection, events
}

func TestUpdateDropsStaleResults(t *testing.T) {
	host := worker.NewHost(1)
	defer host.Close()

	collection, events := previewFixture()
	m := NewModel(host, collection, events)
	m.latestRunID = 5

	stale := resultMsg{RunID: 3, Results: []model.EventMatchResult{
		{EventID: "e-1", Matches: true},
	}}
	updated, _ := m.Update(stale)
	got := updated.(Model)
	assert.Empty(t, got.results, "stale run result must be discarded")

	fresh := resultMsg{RunID: 5, Results: []model.EventMatchResult{
		{EventID: "e-1", Matches: true, MatchedRuleIDs: []int{1}},
		{EventID: "e-2", Matches: false},
	}}
	updated, _ = got.Update(fresh)
	got = updated.(Model)
	require.Len(t, got.results, 2)
	assert.False(t, got.waiting)
}

func TestUpdateTracksSubmittedRuns(t *testing.T) {
	host := worker.NewHost(1)
	defer host.Close()

	collection, events := previewFixture()
	m := NewModel(host, collection, events)

	updated, _ := m.Update(runSubmittedMsg{runID: 7})
	got := updated.(Model)
	assert.Equal(t, uint64(7), got.latestRunID)
	assert.True(t, got.waiting)

	// an older submission acknowledgment never rolls the id back
	updated, _ = got.Update(runSubmittedMsg{runID: 2})
	got = updated.(Model)
	assert.Equal(t, uint64(7), got.latestRunID)
}

// The submit and await commands run concurrently, so a fast worker can
// deliver a run's result before its submission acknowledgment. The late
// acknowledgment must not leave the view stuck on the waiting state.
func TestUpdateResultBeforeSubmissionAck(t *testing.T) {
	host := worker.NewHost(1)
	defer host.Close()

	collection, events := previewFixture()
	m := NewModel(host, collection, events)

	result := resultMsg{RunID: 1, Results: []model.EventMatchResult{
		{EventID: "e-1", Matches: true, MatchedRuleIDs: []int{1}},
	}}
	updated, _ := m.Update(result)
	got := updated.(Model)
	assert.False(t, got.waiting)

	updated, _ = got.Update(runSubmittedMsg{runID: 1})
	got = updated.(Model)
	assert.False(t, got.waiting, "no run is outstanding once its result has arrived")
	require.Len(t, got.results, 1)
}

func TestToggleMatchesOnly(t *testing.T) {
	host := worker.NewHost(1)
	defer host.Close()

	collection, events := previewFixture()
	m := NewModel(host, collection, events)
	m.results = []model.EventMatchResult{
		{EventID: "e-1", Matches: true, MatchedRuleIDs: []int{1}},
		{EventID: "e-2", Matches: false},
	}
	m.refreshRows()
	require.Len(t, m.table.Rows(), 2)

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("a")})
	got := updated.(Model)
	assert.False(t, got.showAll)
	assert.Len(t, got.table.Rows(), 1, "matches-only hides non-matching events")
}

func TestViewReportsHostFailure(t *testing.T) {
	host := worker.NewHost(1)
	host.Close()

	collection, events := previewFixture()
	m := NewModel(host, collection, events)

	updated, _ := m.Update(hostClosedMsg{})
	got := updated.(Model)
	assert.Contains(t, got.View(), "preview unavailable")
}
