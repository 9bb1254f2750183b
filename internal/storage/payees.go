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

const payeeColumns = `id, owner_id, name, email, phone, address, category, description, created_at, updated_at`

// CreatePayee inserts a new payee for the owner.
func (s *SQLiteStorage) CreatePayee(ctx context.Context, payee *model.Payee) (*model.Payee, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validatePayee(payee); err != nil {
		return nil, err
	}

	now := time.Now()
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO payees (owner_id, name, email, phone, address, category, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		payee.OwnerID, payee.Name, payee.Email, payee.Phone, payee.Address,
		payee.Category, payee.Description, now, now)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, fmt.Errorf("payee %q: %w", payee.Name, common.ErrDuplicateEntry)
		}
		return nil, fmt.Errorf("failed to create payee: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get payee ID: %w", err)
	}

	created := *payee
	created.ID = id
	created.CreatedAt = now
	created.UpdatedAt = now

	slog.Info("created payee", "name", created.Name, "id", id)
	return &created, nil
}

// GetPayee returns one payee by id, scoped to the owner.
func (s *SQLiteStorage) GetPayee(ctx context.Context, ownerID string, id int64) (*model.Payee, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM payees WHERE owner_id = ? AND id = ?`, payeeColumns)

	var payee model.Payee
	err := s.db.QueryRowContext(ctx, query, ownerID, id).Scan(
		&payee.ID, &payee.OwnerID, &payee.Name, &payee.Email, &payee.Phone,
		&payee.Address, &payee.Category, &payee.Description,
		&payee.CreatedAt, &payee.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("payee %d: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query payee: %w", err)
	}

	return &payee, nil
}

// GetPayees returns the owner's payees matching the filter, ordered by name.
func (s *SQLiteStorage) GetPayees(ctx context.Context, ownerID string, filter service.PayeeFilter) ([]model.Payee, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM payees WHERE owner_id = ?`, payeeColumns)
	args := []any{ownerID}

	if filter.Name != "" {
		query += ` AND name = ? COLLATE NOCASE`
		args = append(args, filter.Name)
	}
	if filter.Category != "" {
		query += ` AND category = ? COLLATE NOCASE`
		args = append(args, filter.Category)
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
		return nil, fmt.Errorf("failed to query payees: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var payees []model.Payee
	for rows.Next() {
		var payee model.Payee
		if err := rows.Scan(
			&payee.ID, &payee.OwnerID, &payee.Name, &payee.Email, &payee.Phone,
			&payee.Address, &payee.Category, &payee.Description,
			&payee.CreatedAt, &payee.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payee: %w", err)
		}
		payees = append(payees, payee)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payees: %w", err)
	}

	return payees, nil
}

// UpdatePayee writes the payee's mutable fields, scoped to its owner.
func (s *SQLiteStorage) UpdatePayee(ctx context.Context, payee *model.Payee) (*model.Payee, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validatePayee(payee); err != nil {
		return nil, err
	}

	now := time.Now()
	result, err := s.db.ExecContext(ctx, `
		UPDATE payees
		SET name = ?, email = ?, phone = ?, address = ?, category = ?, description = ?, updated_at = ?
		WHERE owner_id = ? AND id = ?`,
		payee.Name, payee.Email, payee.Phone, payee.Address, payee.Category,
		payee.Description, now, payee.OwnerID, payee.ID)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, fmt.Errorf("payee %q: %w", payee.Name, common.ErrDuplicateEntry)
		}
		return nil, fmt.Errorf("failed to update payee: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("payee %d: %w", payee.ID, common.ErrNotFound)
	}

	updated := *payee
	updated.UpdatedAt = now

	slog.Info("updated payee", "name", updated.Name, "id", updated.ID)
	return &updated, nil
}

// DeletePayee removes one payee by id, scoped to the owner.
func (s *SQLiteStorage) DeletePayee(ctx context.Context, ownerID string, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM payees WHERE owner_id = ? AND id = ?`, ownerID, id)
	if err != nil {
		return fmt.Errorf("failed to delete payee: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("payee %d: %w", id, common.ErrNotFound)
	}

	slog.Info("deleted payee", "id", id)
	return nil
}
