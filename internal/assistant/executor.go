package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rapmendoza/ai-side-panel/internal/common"
	"github.com/rapmendoza/ai-side-panel/internal/model"
	"github.com/rapmendoza/ai-side-panel/internal/service"
)

const errUnknownActionType = "unknown action type"

// defaultActionTimeout bounds each individual store call.
const defaultActionTimeout = 10 * time.Second

// Executor dispatches suggested actions to the store one at a time, in list
// order. Each action is isolated: a failure, including a panic, is recorded
// in that action's result and never aborts the rest of the batch.
type Executor struct {
	storage service.Storage
	logger  *slog.Logger
	timeout time.Duration
}

// NewExecutor creates an executor over the given store. timeout <= 0 selects
// the default per-action timeout.
func NewExecutor(storage service.Storage, logger *slog.Logger, timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = defaultActionTimeout
	}
	return &Executor{
		storage: storage,
		logger:  logger,
		timeout: timeout,
	}
}

// Execute runs every action and returns one result per action, order
// preserved.
func (e *Executor) Execute(ctx context.Context, ownerID string, actions []model.SuggestedAction) []model.ExecutedOperation {
	results := make([]model.ExecutedOperation, len(actions))
	for i, action := range actions {
		results[i] = e.executeOne(ctx, ownerID, action)
	}
	return results
}

// executeOne dispatches a single action, recovering from panics so one bad
// action cannot take down the batch.
func (e *Executor) executeOne(ctx context.Context, ownerID string, action model.SuggestedAction) (result model.ExecutedOperation) {
	result = model.ExecutedOperation{
		ActionID: action.ID,
		Type:     action.Type,
		Entity:   action.Entity,
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("action dispatch panicked",
				"action_id", action.ID,
				"type", action.Type,
				"entity", action.Entity,
				"panic", r)
			result.Success = false
			result.Error = fmt.Sprintf("internal error: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var err error
	switch action.Entity {
	case model.KindPayee:
		err = e.dispatchPayee(ctx, ownerID, action, &result)
	case model.KindCategory:
		err = e.dispatchCategory(ctx, ownerID, action, &result)
	default:
		err = errors.New(errUnknownActionType)
	}

	if err != nil {
		result.Success = false
		result.Error = err.Error()
		e.logger.Warn("action failed",
			"action_id", action.ID,
			"type", action.Type,
			"entity", action.Entity,
			"error", err)
		return result
	}

	result.Success = true
	e.logger.Info("action executed",
		"action_id", action.ID,
		"type", action.Type,
		"entity", action.Entity)
	return result
}

func (e *Executor) dispatchPayee(ctx context.Context, ownerID string, action model.SuggestedAction, result *model.ExecutedOperation) error {
	data := action.Payload
	switch action.Type {
	case model.ActionCreate:
		created, err := e.storage.CreatePayee(ctx, &model.Payee{
			OwnerID:     ownerID,
			Name:        data.Name,
			Email:       data.Email,
			Phone:       data.Phone,
			Address:     data.Address,
			Category:    data.Category,
			Description: data.Description,
		})
		if err != nil {
			return err
		}
		result.Payee = created
		return nil

	case model.ActionRead:
		payees, err := e.storage.GetPayees(ctx, ownerID, service.PayeeFilter{
			Name:     data.Name,
			Category: data.Category,
			Search:   data.Search,
		})
		if err != nil {
			return err
		}
		result.Count = len(payees)
		if len(payees) == 1 {
			result.Payee = &payees[0]
		}
		return nil

	case model.ActionUpdate:
		id, err := e.resolvePayeeID(ctx, ownerID, data)
		if err != nil {
			return err
		}
		existing, err := e.storage.GetPayee(ctx, ownerID, id)
		if err != nil {
			return err
		}
		applyPayeePatch(existing, data)
		updated, err := e.storage.UpdatePayee(ctx, existing)
		if err != nil {
			return err
		}
		result.Payee = updated
		return nil

	case model.ActionDelete:
		id, err := e.resolvePayeeID(ctx, ownerID, data)
		if err != nil {
			return err
		}
		return e.storage.DeletePayee(ctx, ownerID, id)

	default:
		return errors.New(errUnknownActionType)
	}
}

func (e *Executor) dispatchCategory(ctx context.Context, ownerID string, action model.SuggestedAction, result *model.ExecutedOperation) error {
	data := action.Payload
	switch action.Type {
	case model.ActionCreate:
		categoryType := data.Type
		if categoryType == "" {
			categoryType = model.CategoryTypeExpense
		}
		created, err := e.storage.CreateCategory(ctx, &model.Category{
			OwnerID:     ownerID,
			Name:        data.Name,
			Description: data.Description,
			Type:        categoryType,
			IsActive:    true,
		})
		if err != nil {
			return err
		}
		result.Category = created
		return nil

	case model.ActionRead:
		categories, err := e.storage.GetCategories(ctx, ownerID, service.CategoryFilter{
			Name:   data.Name,
			Type:   data.Type,
			Search: data.Search,
		})
		if err != nil {
			return err
		}
		result.Count = len(categories)
		if len(categories) == 1 {
			result.Category = &categories[0]
		}
		return nil

	case model.ActionUpdate:
		id, err := e.resolveCategoryID(ctx, ownerID, data)
		if err != nil {
			return err
		}
		existing, err := e.storage.GetCategory(ctx, ownerID, id)
		if err != nil {
			return err
		}
		applyCategoryPatch(existing, data)
		updated, err := e.storage.UpdateCategory(ctx, existing)
		if err != nil {
			return err
		}
		result.Category = updated
		return nil

	case model.ActionDelete:
		id, err := e.resolveCategoryID(ctx, ownerID, data)
		if err != nil {
			return err
		}
		return e.storage.DeleteCategory(ctx, ownerID, id)

	default:
		return errors.New(errUnknownActionType)
	}
}

// resolvePayeeID returns the payload id, or resolves the payload name to a
// single payee. An ambiguous or unknown name is an error, never a guess.
func (e *Executor) resolvePayeeID(ctx context.Context, ownerID string, data model.ActionPayload) (int64, error) {
	if data.ID > 0 {
		return data.ID, nil
	}
	if data.Name == "" {
		return 0, fmt.Errorf("payee id or name is required")
	}

	payees, err := e.storage.GetPayees(ctx, ownerID, service.PayeeFilter{Name: data.Name})
	if err != nil {
		return 0, err
	}
	switch len(payees) {
	case 0:
		return 0, fmt.Errorf("payee %q: %w", data.Name, common.ErrNotFound)
	case 1:
		return payees[0].ID, nil
	default:
		return 0, fmt.Errorf("payee name %q matches %d records", data.Name, len(payees))
	}
}

// resolveCategoryID mirrors resolvePayeeID for categories.
func (e *Executor) resolveCategoryID(ctx context.Context, ownerID string, data model.ActionPayload) (int64, error) {
	if data.ID > 0 {
		return data.ID, nil
	}
	if data.Name == "" {
		return 0, fmt.Errorf("category id or name is required")
	}

	categories, err := e.storage.GetCategories(ctx, ownerID, service.CategoryFilter{Name: data.Name})
	if err != nil {
		return 0, err
	}
	switch len(categories) {
	case 0:
		return 0, fmt.Errorf("category %q: %w", data.Name, common.ErrNotFound)
	case 1:
		return categories[0].ID, nil
	default:
		return 0, fmt.Errorf("category name %q matches %d records", data.Name, len(categories))
	}
}

// applyPayeePatch copies non-empty payload fields onto the record.
func applyPayeePatch(payee *model.Payee, data model.ActionPayload) {
	if data.Name != "" {
		payee.Name = data.Name
	}
	if data.Email != "" {
		payee.Email = data.Email
	}
	if data.Phone != "" {
		payee.Phone = data.Phone
	}
	if data.Address != "" {
		payee.Address = data.Address
	}
	if data.Category != "" {
		payee.Category = data.Category
	}
	if data.Description != "" {
		payee.Description = data.Description
	}
}

// applyCategoryPatch copies non-empty payload fields onto the record.
func applyCategoryPatch(category *model.Category, data model.ActionPayload) {
	if data.Name != "" {
		category.Name = data.Name
	}
	if data.Description != "" {
		category.Description = data.Description
	}
	if data.Type != "" {
		category.Type = data.Type
	}
}
