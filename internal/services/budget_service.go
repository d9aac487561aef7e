package services

import (
	"context"
	"errors"
	"fmt"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/store"
)

// BudgetInput is the raw request shape for a budget upsert. Month accepts
// both padded and unpadded forms ("3", "03").
type BudgetInput struct {
	Title       string
	Category    string
	Description string
	Amount      string
	Month       string
	Year        int
}

// BudgetPatchInput carries optional fields for a partial update.
type BudgetPatchInput struct {
	Title       *string
	Category    *string
	Description *string
	Amount      *string
	Month       *string
	Year        *int
}

// BudgetService orchestrates monthly budget operations.
type BudgetService struct {
	store  store.BudgetStore
	logger *log.Logger
}

func NewBudgetService(s store.BudgetStore, logger *log.Logger) *BudgetService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &BudgetService{
		store:  s,
		logger: logger.WithComponent(log.ComponentBudget),
	}
}

// Upsert inserts or updates the budget keyed by
// (owner, title, category, month, year). The second return reports whether a
// new row was created.
func (s *BudgetService) Upsert(ctx context.Context, ownerID int64, in BudgetInput) (core.MonthlyBudget, bool, error) {
	var missing []string
	if in.Title == "" {
		missing = append(missing, "title")
	}
	if in.Category == "" {
		missing = append(missing, "category")
	}
	if in.Amount == "" {
		missing = append(missing, "amount")
	}
	if in.Month == "" {
		missing = append(missing, "month")
	}
	if in.Year == 0 {
		missing = append(missing, "year")
	}
	if len(missing) > 0 {
		return core.MonthlyBudget{}, false, core.NewValidationError(missing...)
	}

	amount, err := core.ParseAmount(in.Amount)
	if err != nil {
		return core.MonthlyBudget{}, false, err
	}
	month, err := core.ParseMonth(in.Month)
	if err != nil {
		return core.MonthlyBudget{}, false, err
	}

	budget := core.MonthlyBudget{
		OwnerID:     ownerID,
		Title:       in.Title,
		Category:    in.Category,
		Description: in.Description,
		Amount:      amount,
		Month:       month,
		Year:        in.Year,
	}
	if err := budget.Validate(); err != nil {
		return core.MonthlyBudget{}, false, err
	}

	id, created, err := s.store.UpsertBudget(ctx, budget)
	if err != nil {
		return core.MonthlyBudget{}, false, fmt.Errorf("upsert budget: %w", err)
	}
	budget.ID = id
	return budget, created, nil
}

// Update applies only the provided fields to a budget owned by the caller.
func (s *BudgetService) Update(ctx context.Context, ownerID, id int64, in BudgetPatchInput) error {
	var patch core.BudgetPatch
	if in.Title != nil {
		patch.Title = core.Set(*in.Title)
	}
	if in.Category != nil {
		patch.Category = core.Set(*in.Category)
	}
	if in.Description != nil {
		patch.Description = core.Set(*in.Description)
	}
	if in.Amount != nil {
		amount, err := core.ParseAmount(*in.Amount)
		if err != nil {
			return err
		}
		patch.Amount = core.Set(amount)
	}
	if in.Month != nil {
		month, err := core.ParseMonth(*in.Month)
		if err != nil {
			return err
		}
		patch.Month = core.Set(month)
	}
	if in.Year != nil {
		if *in.Year <= 0 {
			return core.NewValidationError("year")
		}
		patch.Year = core.Set(*in.Year)
	}

	err := s.store.UpdateBudget(ctx, ownerID, id, patch)
	if errors.Is(err, store.ErrNotFound) {
		return &core.NotFoundError{Entity: "budget"}
	}
	if err != nil {
		return fmt.Errorf("update budget: %w", err)
	}
	return nil
}

// Delete removes a budget owned by the caller.
func (s *BudgetService) Delete(ctx context.Context, ownerID, id int64) error {
	err := s.store.DeleteBudget(ctx, ownerID, id)
	if errors.Is(err, store.ErrNotFound) {
		return &core.NotFoundError{Entity: "budget"}
	}
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return nil
}

// List returns the caller's budgets. monthYear is the optional "MM-YYYY"
// filter token; a malformed token drops the filter rather than failing the
// request.
func (s *BudgetService) List(ctx context.Context, ownerID int64, category, monthYear string) ([]core.MonthlyBudget, error) {
	filter := store.BudgetFilter{Category: category}
	if monthYear != "" {
		month, year, ok := core.ParseMonthYear(monthYear)
		if ok {
			filter.Month = month
			filter.Year = year
		} else {
			s.logger.WarnContext(ctx, "Ignoring malformed month_year filter",
				log.FieldMonth, monthYear)
		}
	}

	budgets, err := s.store.ListBudgets(ctx, ownerID, filter)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	return budgets, nil
}
