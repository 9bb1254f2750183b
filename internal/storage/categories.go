package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rapmendoza/ai-side-panel/internal/common"
	"github.com/rapmendoza/ai-side-panel/internal/model"
	"github.com/rapmendoza/ai-side-panel/internal/service"
)

const categoryColumns = `id, owner_id, name, type, description, is_active, created_at, updated_at`

// CreateCategory inserts a new category for the owner. Creating a category
// with the name of an inactive one reactivates it instead.
func (s *SQLiteStorage) CreateCategory(ctx context.Context, category *model.Category) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if category != nil && category.Type == "" {
		category.Type = model.CategoryTypeExpense
	}
	if err := validateCategory(category); err != nil {
		return nil, err
	}

	// Check for an existing row first, including inactive ones.
	existingQuery := fmt.Sprintf(`SELECT %s FROM categories WHERE owner_id = ? AND name = ?`, categoryColumns)

	var existing model.Category
	err := s.db.QueryRowContext(ctx, existingQuery, category.OwnerID, category.Name).Scan(
		&existing.ID, &existing.OwnerID, &existing.Name, &existing.Type,
		&existing.Description, &existing.IsActive, &existing.CreatedAt, &existing.UpdatedAt)

	if err == nil {
		if existing.IsActive {
			return nil, fmt.Errorf("category %q: %w", category.Name, common.ErrDuplicateEntry)
		}
		if _, err := s.db.ExecContext(ctx,
			`UPDATE categories SET is_active = 1, updated_at = ? WHERE id = ?`,
			time.Now(), existing.ID); err != nil {
			return nil, fmt.Errorf("failed to reactivate category: %w", err)
		}
		existing.IsActive = true
		slog.Info("reactivated existing category", "name", existing.Name, "id", existing.ID)
		return &existing, nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to check existing category: %w", err)
	}

	now := time.Now()
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (owner_id, name, type, description, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, 1, ?, ?)`,
		category.OwnerID, category.Name, category.Type, category.Description, now, now)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, fmt.Errorf("category %q: %w", category.Name, common.ErrDuplicateEntry)
		}
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get category ID: %w", err)
	}

	created := *category
	created.ID = id
	created.IsActive = true
	created.CreatedAt = now
	created.UpdatedAt = now

	slog.Info("created category", "name", created.Name, "id", id)
	return &created, nil
}

// GetCategory returns one category by id, scoped to the owner.
func (s *SQLiteStorage) GetCategory(ctx context.Context, ownerID string, id int64) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM categories WHERE owner_id = ? AND id = ?`, categoryColumns)

	var category model.Category
	err := s.db.QueryRowContext(ctx, query, ownerID, id).Scan(
		&category.ID, &category.OwnerID, &category.Name, &category.Type,
		&category.Description, &category.IsActive, &category.CreatedAt, &category.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("category %d: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query category: %w", err)
	}

	return &category, nil
}

// GetCategories returns the owner's active categories matching the filter,
// ordered by name.
func (s *SQLiteStorage) GetCategories(ctx context.Context, ownerID string, filter service.CategoryFilter) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM categories WHERE owner_id = ? AND is_active = 1`, categoryColumns)
	args := []any{ownerID}

	if filter.Name != "" {
		query += ` AND name = ? COLLATE NOCASE`
		args = append(args, filter.Name)
	}
	if filter.Type != "" {
		query += ` AND type = ?`
		args = append(args, filter.Type)
	}
	if filter.Search != "" {
		query += ` AND (name LIKE ? OR description LIKE ?)`
		pattern := "%" + filter.Search + "%"
		args = append(args, pattern, pattern)
	}

	query += ` ORDER BY name`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []model.Category
	for rows.Next() {
		var category model.Category
		if err := rows.Scan(
			&category.ID, &category.OwnerID, &category.Name, &category.Type,
			&category.Description, &category.IsActive, &category.CreatedAt, &category.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, category)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	return categories, nil
}

// UpdateCategory writes the category's mutable fields, scoped to its owner.
func (s *SQLiteStorage) UpdateCategory(ctx context.Context, category *model.Category) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateCategory(category); err != nil {
		return nil, err
	}

	now := time.Now()
	result, err := s.db.ExecContext(ctx, `
		UPDATE categories
		SET name = ?, type = ?, description = ?, updated_at = ?
		WHERE owner_id = ? AND id = ?`,
		category.Name, category.Type, category.Description, now,
		category.OwnerID, category.ID)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, fmt.Errorf("category %q: %w", category.Name, common.ErrDuplicateEntry)
		}
		return nil, fmt.Errorf("failed to update category: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("category %d: %w", category.ID, common.ErrNotFound)
	}

	updated := *category
	updated.UpdatedAt = now

	slog.Info("updated category", "name", updated.Name, "id", updated.ID)
	return &updated, nil
}

// DeleteCategory soft-deletes one category by id, scoped to the owner.
// Payees keep their category text; only the category record is deactivated.
func (s *SQLiteStorage) DeleteCategory(ctx context.Context, ownerID string, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE categories SET is_active = 0, updated_at = ? WHERE owner_id = ? AND id = ? AND is_active = 1`,
		time.Now(), ownerID, id)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("category %d: %w", id, common.ErrNotFound)
	}

	slog.Info("deleted category", "id", id)
	return nil
}
