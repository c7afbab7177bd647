package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fintally/tally/internal/common"
	"github.com/fintally/tally/internal/model"
	"github.com/fintally/tally/internal/rules"
)

// CreateRuleCollection creates a collection and any rules it carries.
func (s *SQLiteStorage) CreateRuleCollection(ctx context.Context, collection *model.RuleCollection) error {
	return createRuleCollection(ctx, s.db, collection)
}

// CreateRuleCollection creates a collection within a transaction.
func (t *sqliteTransaction) CreateRuleCollection(ctx context.Context, collection *model.RuleCollection) error {
	return createRuleCollection(ctx, t.tx, collection)
}

// GetRuleCollection retrieves a collection with its rules ordered by
// priority ASC, id ASC, the evaluation order the runner expects.
func (s *SQLiteStorage) GetRuleCollection(ctx context.Context, id int) (*model.RuleCollection, error) {
	return getRuleCollection(ctx, s.db, id)
}

// GetRuleCollection retrieves a collection within a transaction.
func (t *sqliteTransaction) GetRuleCollection(ctx context.Context, id int) (*model.RuleCollection, error) {
	return getRuleCollection(ctx, t.tx, id)
}

// GetRuleCollections retrieves all collections with their rules.
func (s *SQLiteStorage) GetRuleCollections(ctx context.Context) ([]model.RuleCollection, error) {
	return getRuleCollections(ctx, s.db)
}

// GetRuleCollections retrieves all collections within a transaction.
func (t *sqliteTransaction) GetRuleCollections(ctx context.Context) ([]model.RuleCollection, error) {
	return getRuleCollections(ctx, t.tx)
}

// UpdateRuleCollection updates collection metadata (name, enabled).
func (s *SQLiteStorage) UpdateRuleCollection(ctx context.Context, collection *model.RuleCollection) error {
	return updateRuleCollection(ctx, s.db, collection)
}

// UpdateRuleCollection updates a collection within a transaction.
func (t *sqliteTransaction) UpdateRuleCollection(ctx context.Context, collection *model.RuleCollection) error {
	return updateRuleCollection(ctx, t.tx, collection)
}

// DeleteRuleCollection deletes a collection; its rules cascade.
func (s *SQLiteStorage) DeleteRuleCollection(ctx context.Context, id int) error {
	return deleteRuleCollection(ctx, s.db, id)
}

// DeleteRuleCollection deletes a collection within a transaction.
func (t *sqliteTransaction) DeleteRuleCollection(ctx context.Context, id int) error {
	return deleteRuleCollection(ctx, t.tx, id)
}

// CreateRule adds a rule to a collection.
func (s *SQLiteStorage) CreateRule(ctx context.Context, collectionID int, rule *model.Rule) error {
	return createRule(ctx, s.db, collectionID, rule)
}

// CreateRule adds a rule within a transaction.
func (t *sqliteTransaction) CreateRule(ctx context.Context, collectionID int, rule *model.Rule) error {
	return createRule(ctx, t.tx, collectionID, rule)
}

// GetRule retrieves a rule by id.
func (s *SQLiteStorage) GetRule(ctx context.Context, id int) (*model.Rule, error) {
	return getRule(ctx, s.db, id)
}

// GetRule retrieves a rule within a transaction.
func (t *sqliteTransaction) GetRule(ctx context.Context, id int) (*model.Rule, error) {
	return getRule(ctx, t.tx, id)
}

// UpdateRule updates an existing rule.
func (s *SQLiteStorage) UpdateRule(ctx context.Context, rule *model.Rule) error {
	return updateRule(ctx, s.db, rule)
}

// UpdateRule updates a rule within a transaction.
func (t *sqliteTransaction) UpdateRule(ctx context.Context, rule *model.Rule) error {
	return updateRule(ctx, t.tx, rule)
}

// DeleteRule deletes a rule.
func (s *SQLiteStorage) DeleteRule(ctx context.Context, id int) error {
	return deleteRule(ctx, s.db, id)
}

// DeleteRule deletes a rule within a transaction.
func (t *sqliteTransaction) DeleteRule(ctx context.Context, id int) error {
	return deleteRule(ctx, t.tx, id)
}

func createRuleCollection(ctx context.Context, q querier, collection *model.RuleCollection) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if collection == nil {
		return fmt.Errorf("%w: collection", ErrNilParameter)
	}
	if err := collection.Validate(); err != nil {
		return err
	}

	result, err := q.ExecContext(ctx,
		"INSERT INTO rule_collections (name, enabled) VALUES (?, ?)",
		collection.Name, collection.Enabled)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("rule collection %q: %w", collection.Name, common.ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to create rule collection: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get collection ID: %w", err)
	}
	collection.ID = int(id)
	collection.CreatedAt = time.Now()
	collection.UpdatedAt = time.Now()

	for i := range collection.Rules {
		if err := createRule(ctx, q, collection.ID, &collection.Rules[i]); err != nil {
			return err
		}
	}

	return nil
}

func getRuleCollection(ctx context.Context, q querier, id int) (*model.RuleCollection, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var collection model.RuleCollection
	err := q.QueryRowContext(ctx, `
		SELECT id, name, enabled, created_at, updated_at
		FROM rule_collections
		WHERE id = ?
	`, id).Scan(
		&collection.ID, &collection.Name, &collection.Enabled,
		&collection.CreatedAt, &collection.UpdatedAt,
	)
	if err != nil {
		if errNoRows(err) {
			return nil, fmt.Errorf("rule collection %d: %w", id, common.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get rule collection: %w", err)
	}

	rulesForCollection, err := getRulesByCollection(ctx, q, collection.ID)
	if err != nil {
		return nil, err
	}
	collection.Rules = rulesForCollection

	return &collection, nil
}

func getRuleCollections(ctx context.Context, q querier) ([]model.RuleCollection, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := q.QueryContext(ctx, `
		SELECT id, name, enabled, created_at, updated_at
		FROM rule_collections
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get rule collections: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var collections []model.RuleCollection
	for rows.Next() {
		var collection model.RuleCollection
		if err := rows.Scan(
			&collection.ID, &collection.Name, &collection.Enabled,
			&collection.CreatedAt, &collection.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan rule collection: %w", err)
		}
		collections = append(collections, collection)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rule collections: %w", err)
	}

	for i := range collections {
		rulesForCollection, err := getRulesByCollection(ctx, q, collections[i].ID)
		if err != nil {
			return nil, err
		}
		collections[i].Rules = rulesForCollection
	}

	return collections, nil
}

func updateRuleCollection(ctx context.Context, q querier, collection *model.RuleCollection) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if collection == nil {
		return fmt.Errorf("%w: collection", ErrNilParameter)
	}
	if err := collection.Validate(); err != nil {
		return err
	}

	result, err := q.ExecContext(ctx, `
		UPDATE rule_collections
		SET name = ?, enabled = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, collection.Name, collection.Enabled, collection.ID)
	if err != nil {
		return fmt.Errorf("failed to update rule collection: %w", err)
	}

	return requireRowAffected(result, "rule collection")
}

func deleteRuleCollection(ctx context.Context, q querier, id int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	// rules table cascades on collection delete, but SQLite only
	// enforces that with foreign_keys on; delete explicitly.
	if _, err := q.ExecContext(ctx, "DELETE FROM rules WHERE collection_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete collection rules: %w", err)
	}

	result, err := q.ExecContext(ctx, "DELETE FROM rule_collections WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete rule collection: %w", err)
	}

	return requireRowAffected(result, "rule collection")
}

func createRule(ctx context.Context, q querier, collectionID int, rule *model.Rule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if rule == nil {
		return fmt.Errorf("%w: rule", ErrNilParameter)
	}
	if err := rules.ValidateRule(*rule); err != nil {
		return err
	}

	conditions, err := json.Marshal(rule.Conditions)
	if err != nil {
		return fmt.Errorf("failed to marshal conditions: %w", err)
	}

	result, err := q.ExecContext(ctx, `
		INSERT INTO rules (
			collection_id, name, combinator, conditions,
			action_kind, action_category, priority, enabled
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		collectionID, rule.Name, string(rule.Combinator), string(conditions),
		string(rule.Action.Kind), nullString(rule.Action.Category),
		rule.Priority, rule.Enabled,
	)
	if err != nil {
		return fmt.Errorf("failed to create rule: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get rule ID: %w", err)
	}

	rule.ID = int(id)
	rule.CreatedAt = time.Now()
	rule.UpdatedAt = time.Now()

	return nil
}

func getRule(ctx context.Context, q querier, id int) (*model.Rule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := q.QueryRowContext(ctx, `
		SELECT id, name, combinator, conditions, action_kind, action_category,
			priority, enabled, created_at, updated_at
		FROM rules
		WHERE id = ?
	`, id)

	rule, err := scanRuleRow(row.Scan)
	if err != nil {
		if errNoRows(err) {
			return nil, fmt.Errorf("rule %d: %w", id, common.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}

	return rule, nil
}

func getRulesByCollection(ctx context.Context, q querier, collectionID int) ([]model.Rule, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, name, combinator, conditions, action_kind, action_category,
			priority, enabled, created_at, updated_at
		FROM rules
		WHERE collection_id = ?
		ORDER BY priority ASC, id ASC
	`, collectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []model.Rule
	for rows.Next() {
		rule, err := scanRuleRow(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		result = append(result, *rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rules: %w", err)
	}

	return result, nil
}

func updateRule(ctx context.Context, q querier, rule *model.Rule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if rule == nil {
		return fmt.Errorf("%w: rule", ErrNilParameter)
	}
	if err := rules.ValidateRule(*rule); err != nil {
		return err
	}

	conditions, err := json.Marshal(rule.Conditions)
	if err != nil {
		return fmt.Errorf("failed to marshal conditions: %w", err)
	}

	result, err := q.ExecContext(ctx, `
		UPDATE rules SET
			name = ?, combinator = ?, conditions = ?,
			action_kind = ?, action_category = ?,
			priority = ?, enabled = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`,
		rule.Name, string(rule.Combinator), string(conditions),
		string(rule.Action.Kind), nullString(rule.Action.Category),
		rule.Priority, rule.Enabled, rule.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}

	return requireRowAffected(result, "rule")
}

func deleteRule(ctx context.Context, q querier, id int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := q.ExecContext(ctx, "DELETE FROM rules WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}

	return requireRowAffected(result, "rule")
}

// scanRuleRow hydrates a rule from the shared column list, decoding the
// conditions JSON column.
func scanRuleRow(scan func(dest ...any) error) (*model.Rule, error) {
	var rule model.Rule
	var combinator, conditionsJSON, actionKind string
	var actionCategory sql.NullString

	err := scan(
		&rule.ID, &rule.Name, &combinator, &conditionsJSON,
		&actionKind, &actionCategory,
		&rule.Priority, &rule.Enabled, &rule.CreatedAt, &rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rule.Combinator = model.Combinator(combinator)
	rule.Action = model.Action{
		Kind:     model.ActionKind(actionKind),
		Category: actionCategory.String,
	}

	if err := json.Unmarshal([]byte(conditionsJSON), &rule.Conditions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal conditions for rule %d: %w", rule.ID, err)
	}

	return &rule, nil
}
