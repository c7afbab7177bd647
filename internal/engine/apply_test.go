package engine

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fintally/tally/internal/model"
	"github.com/fintally/tally/internal/service"
	"github.com/fintally/tally/internal/storage"
)

func setupEngineTest(t *testing.T) (*Engine, *storage.SQLiteStorage) {
	t.Helper()

	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "tally.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(context.Background()))

	return New(store), store
}

func seedEvents(t *testing.T, store *storage.SQLiteStorage) {
	t.Helper()

	date := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveEvents(context.Background(), []model.Event{
		model.Payment{ID: "p-1", Date: date, Description: "Netflix subscription", Amount: model.Money{Value: -12.99, Currency: "EUR"}},
		model.Payment{ID: "p-2", Date: date, Description: "ATM withdrawal", Amount: model.Money{Value: -200, Currency: "EUR"}},
		model.CardTransaction{ID: "c-1", Date: date, Description: "Corner bakery", CardID: "card-1", Amount: model.Money{Value: -4.20, Currency: "EUR"}},
	}))
}

func seedCollection(t *testing.T, store *storage.SQLiteStorage) int {
	t.Helper()
	ctx := context.Background()

	collection := &model.RuleCollection{Name: "monthly", Enabled: true}
	require.NoError(t, store.CreateRuleCollection(ctx, collection))

	threshold := -100.0
	streaming := &model.Rule{
		Name: "streaming", Enabled: true, Combinator: model.CombinatorAll, Priority: 0,
		Conditions: []model.Condition{
			{Field: model.FieldDescription, Op: model.OpContainsFold, Text: "netflix"},
		},
		Action: model.Action{Kind: model.ActionAssignCategory, Category: "streaming"},
	}
	bigSpend := &model.Rule{
		Name: "big withdrawals", Enabled: true, Combinator: model.CombinatorAll, Priority: 1,
		Conditions: []model.Condition{
			{Field: model.FieldAmount, Op: model.OpLTE, Number: &threshold},
		},
		Action: model.Action{Kind: model.ActionFlagForReview},
	}
	require.NoError(t, store.CreateRule(ctx, collection.ID, streaming))
	require.NoError(t, store.CreateRule(ctx, collection.ID, bigSpend))

	return collection.ID
}

func TestApplyCategorizesAndFlags(t *testing.T) {
	engine, store := setupEngineTest(t)
	ctx := context.Background()

	seedEvents(t, store)
	collectionID := seedCollection(t, store)

	stats, err := engine.Apply(ctx, collectionID, Options{})
	require.NoError(t, err)

	assert.Equal(t, 3, stats.TotalEvents)
	assert.Equal(t, 1, stats.Categorized)
	assert.Equal(t, 1, stats.Flagged)
	assert.Equal(t, 1, stats.Unmatched)
	assert.Positive(t, stats.Duration)

	// the writes land in storage: only the unmatched bakery purchase
	// is still uncategorized
	uncategorized, err := store.GetEvents(ctx, service.EventFilter{Uncategorized: true})
	require.NoError(t, err)
	require.Len(t, uncategorized, 1)
	assert.Equal(t, "c-1", uncategorized[0].EventID())

	// categorized and flagged events drop out of the next run
	stats, err = engine.Apply(ctx, collectionID, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalEvents)
	assert.Zero(t, stats.Categorized)
}

func TestApplyDryRunWritesNothing(t *testing.T) {
	engine, store := setupEngineTest(t)
	ctx := context.Background()

	seedEvents(t, store)
	collectionID := seedCollection(t, store)

	stats, err := engine.Apply(ctx, collectionID, Options{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Categorized)
	assert.Equal(t, 1, stats.Flagged)

	uncategorized, err := store.GetEvents(ctx, service.EventFilter{Uncategorized: true})
	require.NoError(t, err)
	assert.Len(t, uncategorized, 3, "dry run must not persist anything")
}

func TestApplyNoEvents(t *testing.T) {
	engine, store := setupEngineTest(t)
	ctx := context.Background()

	collectionID := seedCollection(t, store)

	stats, err := engine.Apply(ctx, collectionID, Options{})
	require.NoError(t, err)
	assert.Zero(t, stats.TotalEvents)
	assert.Zero(t, stats.Categorized)
}

func TestApplyMissingCollection(t *testing.T) {
	engine, _ := setupEngineTest(t)

	_, err := engine.Apply(context.Background(), 999, Options{})
	assert.Error(t, err)
}
