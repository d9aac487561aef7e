package core

import "github.com/shopspring/decimal"

// Field is an optional patch value distinguishing "not provided" from
// "explicitly set" (including set to the zero value). Updates apply only
// fields with Valid=true; everything else keeps its prior value.
type Field[T any] struct {
	Valid bool
	Value T
}

// Set wraps a value into a provided Field.
func Set[T any](v T) Field[T] {
	return Field[T]{Valid: true, Value: v}
}

// EntryPatch is a partial update for an income or expense entry.
type EntryPatch struct {
	Title       Field[string]
	Description Field[string]
	Category    Field[string]
	Amount      Field[decimal.Decimal]
	Date        Field[Date]
}

// Empty reports whether the patch carries no fields at all.
func (p EntryPatch) Empty() bool {
	return !p.Title.Valid && !p.Description.Valid && !p.Category.Valid &&
		!p.Amount.Valid && !p.Date.Valid
}

// BudgetPatch is a partial update for a monthly budget.
type BudgetPatch struct {
	Title       Field[string]
	Category    Field[string]
	Description Field[string]
	Amount      Field[decimal.Decimal]
	Month       Field[Month]
	Year        Field[int]
}

func (p BudgetPatch) Empty() bool {
	return !p.Title.Valid && !p.Category.Valid && !p.Description.Valid &&
		!p.Amount.Valid && !p.Month.Valid && !p.Year.Valid
}
