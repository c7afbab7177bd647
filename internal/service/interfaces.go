// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/fintally/tally/internal/model"
)

// EventFilter defines filtering options for event queries.
type EventFilter struct {
	StartDate     *time.Time
	EndDate       *time.Time
	Kind          *model.EventKind
	Uncategorized bool
	Limit         int
	Offset        int
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Event operations
	SaveEvents(ctx context.Context, events []model.Event) error
	GetEvents(ctx context.Context, filter EventFilter) ([]model.Event, error)
	GetEventByID(ctx context.Context, id string) (model.Event, error)
	SetEventCategory(ctx context.Context, eventID, category string) error
	FlagEventForReview(ctx context.Context, eventID string) error

	// Category operations
	GetCategories(ctx context.Context) ([]model.Category, error)
	GetCategoryByName(ctx context.Context, name string) (*model.Category, error)
	CreateCategory(ctx context.Context, name, description string) (*model.Category, error)

	// Rule collection operations
	CreateRuleCollection(ctx context.Context, collection *model.RuleCollection) error
	GetRuleCollection(ctx context.Context, id int) (*model.RuleCollection, error)
	GetRuleCollections(ctx context.Context) ([]model.RuleCollection, error)
	UpdateRuleCollection(ctx context.Context, collection *model.RuleCollection) error
	DeleteRuleCollection(ctx context.Context, id int) error

	// Rule operations
	CreateRule(ctx context.Context, collectionID int, rule *model.Rule) error
	GetRule(ctx context.Context, id int) (*model.Rule, error)
	UpdateRule(ctx context.Context, rule *model.Rule) error
	DeleteRule(ctx context.Context, id int) error

	// Database management
	Migrate(ctx context.Context) error
	BeginTx(ctx context.Context) (Transaction, error)
	Close() error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit() error
	Rollback() error
	// Include all Storage methods for use within transaction
	Storage
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// ApplyStats shows the results of a categorization run.
type ApplyStats struct {
	TotalEvents int
	Categorized int
	Flagged     int
	Unmatched   int
	Duration    time.Duration
}
