// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/rapmendoza/ai-side-panel/internal/model"
)

// PayeeFilter defines filtering options for payee queries. All fields are
// optional; empty values match everything.
type PayeeFilter struct {
	Name     string
	Category string
	Search   string
	Limit    int
}

// CategoryFilter defines filtering options for category queries.
type CategoryFilter struct {
	Name   string
	Type   model.CategoryType
	Search string
	Limit  int
}

// Storage defines the contract for our persistence layer. Every operation is
// scoped to the owner id carried on the record or passed explicitly; rows
// belonging to other owners are never visible.
type Storage interface {
	// Payee operations
	CreatePayee(ctx context.Context, payee *model.Payee) (*model.Payee, error)
	GetPayee(ctx context.Context, ownerID string, id int64) (*model.Payee, error)
	GetPayees(ctx context.Context, ownerID string, filter PayeeFilter) ([]model.Payee, error)
	UpdatePayee(ctx context.Context, payee *model.Payee) (*model.Payee, error)
	DeletePayee(ctx context.Context, ownerID string, id int64) error

	// Category operations
	CreateCategory(ctx context.Context, category *model.Category) (*model.Category, error)
	GetCategory(ctx context.Context, ownerID string, id int64) (*model.Category, error)
	GetCategories(ctx context.Context, ownerID string, filter CategoryFilter) ([]model.Category, error)
	UpdateCategory(ctx context.Context, category *model.Category) (*model.Category, error)
	DeleteCategory(ctx context.Context, ownerID string, id int64) error

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
