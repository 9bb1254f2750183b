package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rapmendoza/ai-side-panel/internal/model"
)

// Validation errors.
var (
	ErrNilContext     = errors.New("context cannot be nil")
	ErrEmptyString    = errors.New("string parameter cannot be empty")
	ErrNilParameter   = errors.New("parameter cannot be nil")
	ErrInvalidPayee   = errors.New("invalid payee")
	ErrInvalidCategory = errors.New("invalid category")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validatePayee validates a payee before writing it.
func validatePayee(payee *model.Payee) error {
	if payee == nil {
		return fmt.Errorf("%w: payee", ErrNilParameter)
	}
	if strings.TrimSpace(payee.OwnerID) == "" {
		return fmt.Errorf("%w: owner id is required", ErrInvalidPayee)
	}
	if strings.TrimSpace(payee.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidPayee)
	}
	return nil
}

// validateCategory validates a category before writing it.
func validateCategory(category *model.Category) error {
	if category == nil {
		return fmt.Errorf("%w: category", ErrNilParameter)
	}
	if strings.TrimSpace(category.OwnerID) == "" {
		return fmt.Errorf("%w: owner id is required", ErrInvalidCategory)
	}
	if strings.TrimSpace(category.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidCategory)
	}
	switch category.Type {
	case model.CategoryTypeIncome, model.CategoryTypeExpense:
	default:
		return fmt.Errorf("%w: type must be income or expense", ErrInvalidCategory)
	}
	return nil
}
