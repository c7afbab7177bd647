package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/fintally/tally/internal/common"
	"github.com/fintally/tally/internal/model"
)

// GetCategories retrieves all active categories ordered by name.
func (s *SQLiteStorage) GetCategories(ctx context.Context) ([]model.Category, error) {
	return getCategories(ctx, s.db)
}

// GetCategories retrieves categories within a transaction.
func (t *sqliteTransaction) GetCategories(ctx context.Context) ([]model.Category, error) {
	return getCategories(ctx, t.tx)
}

// GetCategoryByName retrieves a category by its unique name.
func (s *SQLiteStorage) GetCategoryByName(ctx context.Context, name string) (*model.Category, error) {
	return getCategoryByName(ctx, s.db, name)
}

// GetCategoryByName retrieves a category within a transaction.
func (t *sqliteTransaction) GetCategoryByName(ctx context.Context, name string) (*model.Category, error) {
	return getCategoryByName(ctx, t.tx, name)
}

// CreateCategory creates a new category.
func (s *SQLiteStorage) CreateCategory(ctx context.Context, name, description string) (*model.Category, error) {
	return createCategory(ctx, s.db, name, description)
}

// CreateCategory creates a category within a transaction.
func (t *sqliteTransaction) CreateCategory(ctx context.Context, name, description string) (*model.Category, error) {
	return createCategory(ctx, t.tx, name, description)
}

func getCategories(ctx context.Context, q querier) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := q.QueryContext(ctx, `
		SELECT id, name, description, is_active, created_at
		FROM categories
		WHERE is_active = 1
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []model.Category
	for rows.Next() {
		var category model.Category
		if err := rows.Scan(
			&category.ID, &category.Name, &category.Description,
			&category.IsActive, &category.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, category)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	return categories, nil
}

func getCategoryByName(ctx context.Context, q querier, name string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}

	var category model.Category
	err := q.QueryRowContext(ctx, `
		SELECT id, name, description, is_active, created_at
		FROM categories
		WHERE name = ? AND is_active = 1
	`, name).Scan(
		&category.ID, &category.Name, &category.Description,
		&category.IsActive, &category.CreatedAt,
	)
	if err != nil {
		if errNoRows(err) {
			return nil, fmt.Errorf("category %q: %w", name, common.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}

	return &category, nil
}

func createCategory(ctx context.Context, q querier, name, description string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}

	result, err := q.ExecContext(ctx,
		"INSERT INTO categories (name, description) VALUES (?, ?)", name, description)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("category %q: %w", name, common.ErrDuplicateEntry)
		}
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get category ID: %w", err)
	}

	return &model.Category{
		ID:          int(id),
		Name:        name,
		Description: description,
		IsActive:    true,
		CreatedAt:   time.Now(),
	}, nil
}
