package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

func amt(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestEntryCRUDAndOwnership(t *testing.T) {
	s := New()
	ctx := context.Background()

	id, err := s.CreateEntry(ctx, core.Entry{
		OwnerID:  1,
		Kind:     core.Expense,
		Category: "food",
		Amount:   amt("12.34"),
		Date:     core.NewDate(2025, 3, 5),
	})
	if err != nil || id != 1 {
		t.Fatalf("create: id=%d err=%v", id, err)
	}

	// Another owner must not see, patch or delete the row.
	if _, err := s.GetEntry(ctx, core.Expense, 2, id); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("cross-owner get: expected ErrNotFound, got %v", err)
	}
	if err := s.UpdateEntry(ctx, core.Expense, 2, id, core.EntryPatch{Title: core.Set("x")}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("cross-owner update: expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteEntry(ctx, core.Expense, 2, id); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("cross-owner delete: expected ErrNotFound, got %v", err)
	}

	// Wrong kind behaves like a missing row too.
	if _, err := s.GetEntry(ctx, core.Income, 1, id); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("wrong kind: expected ErrNotFound, got %v", err)
	}

	if err := s.DeleteEntry(ctx, core.Expense, 1, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetEntry(ctx, core.Expense, 1, id); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("get after delete: expected ErrNotFound, got %v", err)
	}
}

func TestUpdateEntryPartialPatch(t *testing.T) {
	s := New()
	ctx := context.Background()

	id, _ := s.CreateEntry(ctx, core.Entry{
		OwnerID:     1,
		Kind:        core.Income,
		Title:       "salary",
		Description: "march pay",
		Category:    "income",
		Amount:      amt("1000"),
		Date:        core.NewDate(2025, 3, 1),
	})

	if err := s.UpdateEntry(ctx, core.Income, 1, id, core.EntryPatch{Category: core.Set("bonus")}); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := s.GetEntry(ctx, core.Income, 1, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Category != "bonus" {
		t.Fatalf("category not patched: %q", got.Category)
	}
	if got.Title != "salary" || got.Description != "march pay" ||
		!got.Amount.Equal(amt("1000")) || got.Date.ISO() != "2025-03-01" {
		t.Fatalf("unrelated fields changed: %+v", got)
	}
}

func TestListEntriesFiltersAndOrder(t *testing.T) {
	s := New()
	ctx := context.Background()

	dates := []core.Date{
		core.NewDate(2025, 3, 10),
		core.NewDate(2025, 3, 1),
		core.NewDate(2025, 3, 10), // same day as first, added later
	}
	for i, d := range dates {
		if _, err := s.CreateEntry(ctx, core.Entry{
			OwnerID: 1, Kind: core.Expense, Category: "food",
			Amount: decimal.NewFromInt(int64(i + 1)), Date: d,
		}); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}
	s.CreateEntry(ctx, core.Entry{
		OwnerID: 1, Kind: core.Income, Category: "income",
		Amount: amt("5"), Date: core.NewDate(2025, 3, 2),
	})

	got, err := s.ListEntries(ctx, 1, store.EntryFilter{Kind: core.Expense})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 expenses, got %d", len(got))
	}
	// Date ascending; ties keep insertion order.
	if got[0].Date.ISO() != "2025-03-01" || got[1].ID >= got[2].ID {
		t.Fatalf("unexpected order: %+v", got)
	}

	ranged, _ := s.ListEntries(ctx, 1, store.EntryFilter{
		From: core.NewDate(2025, 3, 1),
		To:   core.NewDate(2025, 3, 2),
	})
	if len(ranged) != 2 {
		t.Fatalf("inclusive range expected 2 rows, got %d", len(ranged))
	}
}

func TestSumEntriesEmptyRangeIsZero(t *testing.T) {
	s := New()
	total, err := s.SumEntries(context.Background(), core.Expense, 1, store.EntryFilter{
		From: core.NewDate(2030, 1, 1),
		To:   core.NewDate(2030, 1, 31),
	})
	if err != nil {
		t.Fatalf("sum: %v", err)
	}
	if !total.IsZero() {
		t.Fatalf("expected zero, got %s", total)
	}
}

func TestUpsertBudgetKeepsID(t *testing.T) {
	s := New()
	ctx := context.Background()

	b := core.MonthlyBudget{
		OwnerID: 1, Title: "groceries", Category: "food",
		Month: "03", Year: 2025, Amount: amt("120"),
	}
	id1, created, err := s.UpsertBudget(ctx, b)
	if err != nil || !created {
		t.Fatalf("first upsert: id=%d created=%v err=%v", id1, created, err)
	}

	b.Amount = amt("150")
	b.Description = "raised"
	id2, created, err := s.UpsertBudget(ctx, b)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if created || id2 != id1 {
		t.Fatalf("expected update of row %d, got id=%d created=%v", id1, id2, created)
	}

	rows, _ := s.ListBudgets(ctx, 1, store.BudgetFilter{})
	if len(rows) != 1 {
		t.Fatalf("upsert must never duplicate: %d rows", len(rows))
	}
	if !rows[0].Amount.Equal(amt("150")) || rows[0].Description != "raised" {
		t.Fatalf("row not updated in place: %+v", rows[0])
	}

	// A different month is a different key.
	b.Month = "04"
	_, created, _ = s.UpsertBudget(ctx, b)
	if !created {
		t.Fatalf("different month should insert")
	}
}

func TestBudgetCategoriesDistinctOrdered(t *testing.T) {
	s := New()
	ctx := context.Background()
	for _, cat := range []string{"transport", "food", "food"} {
		s.UpsertBudget(ctx, core.MonthlyBudget{
			OwnerID: 1, Title: "b-" + cat, Category: cat,
			Month: "03", Year: 2025, Amount: amt("10"),
		})
	}
	s.UpsertBudget(ctx, core.MonthlyBudget{
		OwnerID: 1, Title: "other month", Category: "rent",
		Month: "04", Year: 2025, Amount: amt("10"),
	})

	cats, err := s.BudgetCategories(ctx, 1, "03", 2025)
	if err != nil {
		t.Fatalf("categories: %v", err)
	}
	if len(cats) != 2 || cats[0] != "food" || cats[1] != "transport" {
		t.Fatalf("unexpected categories: %v", cats)
	}
}

func TestListBudgetsMonthYearFilter(t *testing.T) {
	s := New()
	ctx := context.Background()
	s.UpsertBudget(ctx, core.MonthlyBudget{OwnerID: 1, Title: "a", Category: "food", Month: "03", Year: 2025, Amount: amt("1")})
	s.UpsertBudget(ctx, core.MonthlyBudget{OwnerID: 1, Title: "b", Category: "food", Month: "04", Year: 2025, Amount: amt("1")})

	rows, _ := s.ListBudgets(ctx, 1, store.BudgetFilter{Month: "03", Year: 2025})
	if len(rows) != 1 || rows[0].Title != "a" {
		t.Fatalf("month-year filter failed: %+v", rows)
	}
}

func TestUsers(t *testing.T) {
	s := New()
	ctx := context.Background()

	id, err := s.CreateUser(ctx, core.User{Email: "a@b.c", Name: "A", PasswordHash: "h"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := s.CreateUser(ctx, core.User{Email: "A@B.C"}); !errors.Is(err, store.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
	u, err := s.UserByEmail(ctx, "a@b.c")
	if err != nil || u.ID != id {
		t.Fatalf("by email: %+v err=%v", u, err)
	}
	if _, err := s.UserByID(ctx, 999); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("missing user: expected ErrNotFound, got %v", err)
	}
}
