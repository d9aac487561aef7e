package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"fintrack/internal/core"
	"fintrack/internal/store/memory"
)

func newBudgetService() *BudgetService {
	return NewBudgetService(memory.New(), nil)
}

func validBudgetInput() BudgetInput {
	return BudgetInput{
		Title:    "food cap",
		Category: "food",
		Amount:   "120.00",
		Month:    "3",
		Year:     2025,
	}
}

func TestBudgetService_UpsertCreatesThenUpdates(t *testing.T) {
	s := newBudgetService()
	ctx := context.Background()

	budget, created, err := s.Upsert(ctx, 1, validBudgetInput())
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if !created {
		t.Error("first upsert: created = false, want true")
	}
	if budget.Month != "03" {
		t.Errorf("Month = %q, want unpadded input normalized to 03", budget.Month)
	}

	in := validBudgetInput()
	in.Amount = "150.00"
	second, created, err := s.Upsert(ctx, 1, in)
	if err != nil {
		t.Fatalf("Upsert() second error = %v", err)
	}
	if created {
		t.Error("second upsert: created = true, want false")
	}
	if second.ID != budget.ID {
		t.Errorf("second upsert id = %d, want %d", second.ID, budget.ID)
	}

	budgets, err := s.List(ctx, 1, "", "")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(budgets) != 1 {
		t.Fatalf("List() returned %d budgets, want the single upserted row", len(budgets))
	}
	if budgets[0].Amount.StringFixed(2) != "150.00" {
		t.Errorf("Amount = %s, want 150.00 after the second upsert", budgets[0].Amount)
	}
}

func TestBudgetService_UpsertMissingFields(t *testing.T) {
	s := newBudgetService()

	_, _, err := s.Upsert(context.Background(), 1, BudgetInput{Description: "only optional"})
	if !core.IsValidation(err) {
		t.Fatalf("Upsert() error = %v, want ValidationError", err)
	}

	var ve *core.ValidationError
	errors.As(err, &ve)
	got := strings.Join(ve.Missing, ",")
	if got != "title,category,amount,month,year" {
		t.Errorf("Missing = %q, want all five required fields", got)
	}
}

func TestBudgetService_UpsertBadMonth(t *testing.T) {
	s := newBudgetService()
	in := validBudgetInput()
	in.Month = "13"

	if _, _, err := s.Upsert(context.Background(), 1, in); !errors.Is(err, core.ErrInvalidMonth) {
		t.Errorf("Upsert(month=13) error = %v, want ErrInvalidMonth", err)
	}
}

func TestBudgetService_ListMonthYearFilter(t *testing.T) {
	s := newBudgetService()
	ctx := context.Background()

	for _, month := range []string{"3", "4"} {
		in := validBudgetInput()
		in.Month = month
		if _, _, err := s.Upsert(ctx, 1, in); err != nil {
			t.Fatalf("Upsert(month=%s) error = %v", month, err)
		}
	}

	got, err := s.List(ctx, 1, "", "3-2025")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 1 || got[0].Month != "03" {
		t.Fatalf("List(3-2025) = %+v, want only the march budget", got)
	}

	// Malformed token: filter dropped, everything returned.
	all, err := s.List(ctx, 1, "", "march-2025")
	if err != nil {
		t.Fatalf("List(malformed) error = %v", err)
	}
	if len(all) != 2 {
		t.Errorf("List(malformed token) returned %d budgets, want 2", len(all))
	}
}

func TestBudgetService_UpdateAndDelete(t *testing.T) {
	s := newBudgetService()
	ctx := context.Background()

	budget, _, err := s.Upsert(ctx, 1, validBudgetInput())
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	if err := s.Update(ctx, 1, budget.ID, BudgetPatchInput{Amount: ptr("99.99")}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	budgets, _ := s.List(ctx, 1, "", "")
	if budgets[0].Amount.StringFixed(2) != "99.99" {
		t.Errorf("Amount = %s, want 99.99", budgets[0].Amount)
	}

	if err := s.Update(ctx, 2, budget.ID, BudgetPatchInput{Amount: ptr("1")}); !core.IsNotFound(err) {
		t.Errorf("Update(other owner) error = %v, want NotFoundError", err)
	}

	if err := s.Delete(ctx, 1, budget.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := s.Delete(ctx, 1, budget.ID); !core.IsNotFound(err) {
		t.Errorf("Delete(gone) error = %v, want NotFoundError", err)
	}
}
