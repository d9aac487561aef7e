// Package store defines the record store contract consumed by the entry and
// budget services and by the aggregation engine. Two implementations exist:
// sqlite (production) and memory (tests, dev backend).
package store

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

var (
	// ErrNotFound is returned when a row is absent or not owned by the
	// caller. Implementations must not distinguish the two cases.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateEmail is returned by CreateUser for an email already taken.
	ErrDuplicateEmail = errors.New("email already registered")
)

// EntryFilter narrows entry queries. Zero dates mean unbounded; the range is
// inclusive on both ends. An empty category matches everything.
type EntryFilter struct {
	From     core.Date
	To       core.Date
	Category string
	// Kind restricts ListEntries to one entry type; empty lists both.
	Kind core.EntryKind
}

// BudgetFilter narrows budget listings. Month and Year only apply together.
type BudgetFilter struct {
	Category string
	Month    core.Month
	Year     int
}

type EntryStore interface {
	// CreateEntry persists a validated entry and returns its id.
	CreateEntry(ctx context.Context, e core.Entry) (int64, error)
	GetEntry(ctx context.Context, kind core.EntryKind, ownerID, id int64) (core.Entry, error)
	// UpdateEntry applies only the provided patch fields. ErrNotFound when no
	// row matches (kind, owner, id).
	UpdateEntry(ctx context.Context, kind core.EntryKind, ownerID, id int64, p core.EntryPatch) error
	DeleteEntry(ctx context.Context, kind core.EntryKind, ownerID, id int64) error
	// ListEntries returns rows ordered by date then insertion id.
	ListEntries(ctx context.Context, ownerID int64, f EntryFilter) ([]core.Entry, error)
	// SumEntries totals matching amounts; zero when nothing matches.
	SumEntries(ctx context.Context, kind core.EntryKind, ownerID int64, f EntryFilter) (decimal.Decimal, error)
}

type BudgetStore interface {
	// UpsertBudget inserts or updates the row keyed by
	// (owner, title, category, month, year) atomically. A matched row keeps
	// its id and reports created=false.
	UpsertBudget(ctx context.Context, b core.MonthlyBudget) (id int64, created bool, err error)
	UpdateBudget(ctx context.Context, ownerID, id int64, p core.BudgetPatch) error
	DeleteBudget(ctx context.Context, ownerID, id int64) error
	ListBudgets(ctx context.Context, ownerID int64, f BudgetFilter) ([]core.MonthlyBudget, error)
	// SumBudgets totals configured amounts for a category in a month.
	SumBudgets(ctx context.Context, ownerID int64, category string, month core.Month, year int) (decimal.Decimal, error)
	// BudgetCategories returns the distinct categories with a budget defined
	// for (owner, month, year), ordered by name.
	BudgetCategories(ctx context.Context, ownerID int64, month core.Month, year int) ([]string, error)
}

type UserStore interface {
	CreateUser(ctx context.Context, u core.User) (int64, error)
	UserByEmail(ctx context.Context, email string) (core.User, error)
	UserByID(ctx context.Context, id int64) (core.User, error)
}

// Store is the full record store: all three entity types plus lifecycle.
type Store interface {
	EntryStore
	BudgetStore
	UserStore
	Close() error
}
