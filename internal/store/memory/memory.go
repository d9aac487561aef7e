// Package memory implements the record store contract with mutex-guarded
// in-process state. It backs the test suites and the default dev backend and
// mirrors the sqlite store's semantics exactly, including atomic upserts.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

type Store struct {
	mu      sync.Mutex
	entries []core.Entry
	budgets []core.MonthlyBudget
	users   []core.User

	nextEntryID  int64
	nextBudgetID int64
	nextUserID   int64
}

func New() *Store {
	return &Store{nextEntryID: 1, nextBudgetID: 1, nextUserID: 1}
}

func (s *Store) Close() error { return nil }

func (s *Store) CreateEntry(_ context.Context, e core.Entry) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = s.nextEntryID
	s.nextEntryID++
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	s.entries = append(s.entries, e)
	return e.ID, nil
}

func (s *Store) GetEntry(_ context.Context, kind core.EntryKind, ownerID, id int64) (core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.ID == id && e.OwnerID == ownerID && e.Kind == kind {
			return e, nil
		}
	}
	return core.Entry{}, store.ErrNotFound
}

func (s *Store) UpdateEntry(_ context.Context, kind core.EntryKind, ownerID, id int64, p core.EntryPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entries {
		e := &s.entries[i]
		if e.ID != id || e.OwnerID != ownerID || e.Kind != kind {
			continue
		}
		if p.Title.Valid {
			e.Title = p.Title.Value
		}
		if p.Description.Valid {
			e.Description = p.Description.Value
		}
		if p.Category.Valid {
			e.Category = p.Category.Value
		}
		if p.Amount.Valid {
			e.Amount = p.Amount.Value
		}
		if p.Date.Valid {
			e.Date = p.Date.Value
		}
		return nil
	}
	return store.ErrNotFound
}

func (s *Store) DeleteEntry(_ context.Context, kind core.EntryKind, ownerID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.entries {
		if e.ID == id && e.OwnerID == ownerID && e.Kind == kind {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) ListEntries(_ context.Context, ownerID int64, f store.EntryFilter) ([]core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Entry
	for _, e := range s.entries {
		if e.OwnerID != ownerID {
			continue
		}
		if f.Kind != "" && e.Kind != f.Kind {
			continue
		}
		if !matchesFilter(e, f) {
			continue
		}
		out = append(out, e)
	}
	// Stable keeps insertion order within a date, matching sqlite's
	// ORDER BY entry_date, id.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.ISO() < out[j].Date.ISO()
	})
	return out, nil
}

func (s *Store) SumEntries(_ context.Context, kind core.EntryKind, ownerID int64, f store.EntryFilter) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := decimal.Zero
	for _, e := range s.entries {
		if e.OwnerID != ownerID || e.Kind != kind {
			continue
		}
		if !matchesFilter(e, f) {
			continue
		}
		total = total.Add(e.Amount)
	}
	return total, nil
}

func matchesFilter(e core.Entry, f store.EntryFilter) bool {
	if !f.From.IsZero() && e.Date.ISO() < f.From.ISO() {
		return false
	}
	if !f.To.IsZero() && e.Date.ISO() > f.To.ISO() {
		return false
	}
	if f.Category != "" && e.Category != f.Category {
		return false
	}
	return true
}

func (s *Store) UpsertBudget(_ context.Context, b core.MonthlyBudget) (int64, bool, error) {
	if err := b.Validate(); err != nil {
		return 0, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	for i := range s.budgets {
		existing := &s.budgets[i]
		if existing.OwnerID == b.OwnerID && existing.Title == b.Title &&
			existing.Category == b.Category && existing.Month == b.Month &&
			existing.Year == b.Year {
			existing.Amount = b.Amount
			existing.Description = b.Description
			existing.UpdatedAt = now
			return existing.ID, false, nil
		}
	}
	b.ID = s.nextBudgetID
	s.nextBudgetID++
	b.CreatedAt = now
	b.UpdatedAt = now
	s.budgets = append(s.budgets, b)
	return b.ID, true, nil
}

func (s *Store) UpdateBudget(_ context.Context, ownerID, id int64, p core.BudgetPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.budgets {
		b := &s.budgets[i]
		if b.ID != id || b.OwnerID != ownerID {
			continue
		}
		if p.Title.Valid {
			b.Title = p.Title.Value
		}
		if p.Category.Valid {
			b.Category = p.Category.Value
		}
		if p.Description.Valid {
			b.Description = p.Description.Value
		}
		if p.Amount.Valid {
			b.Amount = p.Amount.Value
		}
		if p.Month.Valid {
			b.Month = p.Month.Value
		}
		if p.Year.Valid {
			b.Year = p.Year.Value
		}
		b.UpdatedAt = time.Now().UTC()
		return nil
	}
	return store.ErrNotFound
}

func (s *Store) DeleteBudget(_ context.Context, ownerID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, b := range s.budgets {
		if b.ID == id && b.OwnerID == ownerID {
			s.budgets = append(s.budgets[:i], s.budgets[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) ListBudgets(_ context.Context, ownerID int64, f store.BudgetFilter) ([]core.MonthlyBudget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.MonthlyBudget
	for _, b := range s.budgets {
		if b.OwnerID != ownerID {
			continue
		}
		if f.Category != "" && b.Category != f.Category {
			continue
		}
		if f.Year != 0 && (b.Month != f.Month || b.Year != f.Year) {
			continue
		}
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Month < out[j].Month
	})
	return out, nil
}

func (s *Store) SumBudgets(_ context.Context, ownerID int64, category string, month core.Month, year int) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := decimal.Zero
	for _, b := range s.budgets {
		if b.OwnerID == ownerID && b.Category == category && b.Month == month && b.Year == year {
			total = total.Add(b.Amount)
		}
	}
	return total, nil
}

func (s *Store) BudgetCategories(_ context.Context, ownerID int64, month core.Month, year int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]struct{}{}
	var out []string
	for _, b := range s.budgets {
		if b.OwnerID != ownerID || b.Month != month || b.Year != year {
			continue
		}
		if _, ok := seen[b.Category]; ok {
			continue
		}
		seen[b.Category] = struct{}{}
		out = append(out, b.Category)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) CreateUser(_ context.Context, u core.User) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return 0, store.ErrDuplicateEmail
		}
	}
	u.ID = s.nextUserID
	s.nextUserID++
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	s.users = append(s.users, u)
	return u.ID, nil
}

func (s *Store) UserByEmail(_ context.Context, email string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return core.User{}, store.ErrNotFound
}

func (s *Store) UserByID(_ context.Context, id int64) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return core.User{}, store.ErrNotFound
}

// Compile-time check that the memory store satisfies the full contract.
var _ store.Store = (*Store)(nil)
