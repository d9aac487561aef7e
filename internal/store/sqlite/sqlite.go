// Package sqlite implements the record store contract on modernc.org/sqlite.
// Monetary amounts are persisted as integer cents; dates as ISO-8601 text so
// range filters compare lexicographically.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) CreateEntry(ctx context.Context, e core.Entry) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO entries (owner_id, kind, title, description, category, amount_cents, entry_date)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.OwnerID, string(e.Kind), e.Title, e.Description, e.Category,
		core.Cents(e.Amount), e.Date.ISO())
	if err != nil {
		return 0, fmt.Errorf("insert entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("entry id: %w", err)
	}
	return id, nil
}

func (s *Store) GetEntry(ctx context.Context, kind core.EntryKind, ownerID, id int64) (core.Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, kind, title, description, category, amount_cents, entry_date, created_at
		FROM entries
		WHERE id = ? AND owner_id = ? AND kind = ?`,
		id, ownerID, string(kind))
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Entry{}, store.ErrNotFound
	}
	if err != nil {
		return core.Entry{}, fmt.Errorf("get entry: %w", err)
	}
	return e, nil
}

func (s *Store) UpdateEntry(ctx context.Context, kind core.EntryKind, ownerID, id int64, p core.EntryPatch) error {
	if p.Empty() {
		// Nothing to write; still enforce the ownership check.
		_, err := s.GetEntry(ctx, kind, ownerID, id)
		return err
	}

	var sets []string
	var args []any
	if p.Title.Valid {
		sets = append(sets, "title = ?")
		args = append(args, p.Title.Value)
	}
	if p.Description.Valid {
		sets = append(sets, "description = ?")
		args = append(args, p.Description.Value)
	}
	if p.Category.Valid {
		sets = append(sets, "category = ?")
		args = append(args, p.Category.Value)
	}
	if p.Amount.Valid {
		sets = append(sets, "amount_cents = ?")
		args = append(args, core.Cents(p.Amount.Value))
	}
	if p.Date.Valid {
		sets = append(sets, "entry_date = ?")
		args = append(args, p.Date.Value.ISO())
	}
	args = append(args, id, ownerID, string(kind))

	res, err := s.db.ExecContext(ctx,
		"UPDATE entries SET "+strings.Join(sets, ", ")+" WHERE id = ? AND owner_id = ? AND kind = ?",
		args...)
	if err != nil {
		return fmt.Errorf("update entry: %w", err)
	}
	return notFoundIfZero(res)
}

func (s *Store) DeleteEntry(ctx context.Context, kind core.EntryKind, ownerID, id int64) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM entries WHERE id = ? AND owner_id = ? AND kind = ?",
		id, ownerID, string(kind))
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return notFoundIfZero(res)
}

func (s *Store) ListEntries(ctx context.Context, ownerID int64, f store.EntryFilter) ([]core.Entry, error) {
	query := `
		SELECT id, owner_id, kind, title, description, category, amount_cents, entry_date, created_at
		FROM entries
		WHERE owner_id = ?`
	args := []any{ownerID}
	query, args = applyEntryFilter(query, args, f)
	query += " ORDER BY entry_date, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var out []core.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return out, nil
}

func (s *Store) SumEntries(ctx context.Context, kind core.EntryKind, ownerID int64, f store.EntryFilter) (decimal.Decimal, error) {
	query := "SELECT COALESCE(SUM(amount_cents), 0) FROM entries WHERE owner_id = ? AND kind = ?"
	args := []any{ownerID, string(kind)}
	f.Kind = ""
	query, args = applyEntryFilter(query, args, f)

	var cents int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&cents); err != nil {
		return decimal.Zero, fmt.Errorf("sum entries: %w", err)
	}
	return core.FromCents(cents), nil
}

func applyEntryFilter(query string, args []any, f store.EntryFilter) (string, []any) {
	if f.Kind != "" {
		query += " AND kind = ?"
		args = append(args, string(f.Kind))
	}
	if !f.From.IsZero() {
		query += " AND entry_date >= ?"
		args = append(args, f.From.ISO())
	}
	if !f.To.IsZero() {
		query += " AND entry_date <= ?"
		args = append(args, f.To.ISO())
	}
	if f.Category != "" {
		query += " AND category = ?"
		args = append(args, f.Category)
	}
	return query, args
}

// UpsertBudget is a true atomic upsert: insert-or-ignore and fallback update
// run in one write transaction, so concurrent requests for the same key can
// never produce a duplicate row.
func (s *Store) UpsertBudget(ctx context.Context, b core.MonthlyBudget) (int64, bool, error) {
	if err := b.Validate(); err != nil {
		return 0, false, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO monthly_budgets (owner_id, title, category, month, year, amount_cents, description)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (owner_id, title, category, month, year) DO NOTHING`,
		b.OwnerID, b.Title, b.Category, string(b.Month), b.Year,
		core.Cents(b.Amount), b.Description)
	if err != nil {
		return 0, false, fmt.Errorf("insert budget: %w", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return 0, false, fmt.Errorf("insert budget: %w", err)
	}

	var id int64
	created := inserted == 1
	if created {
		if id, err = res.LastInsertId(); err != nil {
			return 0, false, fmt.Errorf("budget id: %w", err)
		}
	} else {
		_, err = tx.ExecContext(ctx, `
			UPDATE monthly_budgets
			SET amount_cents = ?, description = ?, updated_at = CURRENT_TIMESTAMP
			WHERE owner_id = ? AND title = ? AND category = ? AND month = ? AND year = ?`,
			core.Cents(b.Amount), b.Description,
			b.OwnerID, b.Title, b.Category, string(b.Month), b.Year)
		if err != nil {
			return 0, false, fmt.Errorf("update budget: %w", err)
		}
		err = tx.QueryRowContext(ctx, `
			SELECT id FROM monthly_budgets
			WHERE owner_id = ? AND title = ? AND category = ? AND month = ? AND year = ?`,
			b.OwnerID, b.Title, b.Category, string(b.Month), b.Year).Scan(&id)
		if err != nil {
			return 0, false, fmt.Errorf("budget id: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("commit upsert: %w", err)
	}
	return id, created, nil
}

func (s *Store) UpdateBudget(ctx context.Context, ownerID, id int64, p core.BudgetPatch) error {
	if p.Empty() {
		var exists int
		err := s.db.QueryRowContext(ctx,
			"SELECT 1 FROM monthly_budgets WHERE id = ? AND owner_id = ?",
			id, ownerID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		return err
	}

	var sets []string
	var args []any
	if p.Title.Valid {
		sets = append(sets, "title = ?")
		args = append(args, p.Title.Value)
	}
	if p.Category.Valid {
		sets = append(sets, "category = ?")
		args = append(args, p.Category.Value)
	}
	if p.Description.Valid {
		sets = append(sets, "description = ?")
		args = append(args, p.Description.Value)
	}
	if p.Amount.Valid {
		sets = append(sets, "amount_cents = ?")
		args = append(args, core.Cents(p.Amount.Value))
	}
	if p.Month.Valid {
		sets = append(sets, "month = ?")
		args = append(args, string(p.Month.Value))
	}
	if p.Year.Valid {
		sets = append(sets, "year = ?")
		args = append(args, p.Year.Value)
	}
	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
	args = append(args, id, ownerID)

	res, err := s.db.ExecContext(ctx,
		"UPDATE monthly_budgets SET "+strings.Join(sets, ", ")+" WHERE id = ? AND owner_id = ?",
		args...)
	if err != nil {
		return fmt.Errorf("update budget: %w", err)
	}
	return notFoundIfZero(res)
}

func (s *Store) DeleteBudget(ctx context.Context, ownerID, id int64) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM monthly_budgets WHERE id = ? AND owner_id = ?", id, ownerID)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return notFoundIfZero(res)
}

func (s *Store) ListBudgets(ctx context.Context, ownerID int64, f store.BudgetFilter) ([]core.MonthlyBudget, error) {
	query := `
		SELECT id, owner_id, title, category, month, year, amount_cents, description, created_at, updated_at
		FROM monthly_budgets
		WHERE owner_id = ?`
	args := []any{ownerID}
	if f.Category != "" {
		query += " AND category = ?"
		args = append(args, f.Category)
	}
	if f.Year != 0 {
		query += " AND month = ? AND year = ?"
		args = append(args, string(f.Month), f.Year)
	}
	query += " ORDER BY year, month, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var out []core.MonthlyBudget
	for rows.Next() {
		var (
			b                    core.MonthlyBudget
			month                string
			cents                int64
			createdAt, updatedAt sql.NullTime
		)
		if err := rows.Scan(&b.ID, &b.OwnerID, &b.Title, &b.Category, &month,
			&b.Year, &cents, &b.Description, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		b.Month = core.Month(month)
		b.Amount = core.FromCents(cents)
		b.CreatedAt = createdAt.Time
		b.UpdatedAt = updatedAt.Time
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	return out, nil
}

func (s *Store) SumBudgets(ctx context.Context, ownerID int64, category string, month core.Month, year int) (decimal.Decimal, error) {
	var cents int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0)
		FROM monthly_budgets
		WHERE owner_id = ? AND category = ? AND month = ? AND year = ?`,
		ownerID, category, string(month), year).Scan(&cents)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum budgets: %w", err)
	}
	return core.FromCents(cents), nil
}

func (s *Store) BudgetCategories(ctx context.Context, ownerID int64, month core.Month, year int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT category
		FROM monthly_budgets
		WHERE owner_id = ? AND month = ? AND year = ?
		ORDER BY category`,
		ownerID, string(month), year)
	if err != nil {
		return nil, fmt.Errorf("budget categories: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var cat string
		if err := rows.Scan(&cat); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, cat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("budget categories: %w", err)
	}
	return out, nil
}

func (s *Store) CreateUser(ctx context.Context, u core.User) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO users (email, name, password_hash) VALUES (?, ?, ?)",
		u.Email, u.Name, u.PasswordHash)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: users.email") {
			return 0, store.ErrDuplicateEmail
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("user id: %w", err)
	}
	return id, nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (core.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, email, name, password_hash, created_at
		FROM users WHERE email = ?`, email))
}

func (s *Store) UserByID(ctx context.Context, id int64) (core.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, email, name, password_hash, created_at
		FROM users WHERE id = ?`, id))
}

func (s *Store) scanUser(row *sql.Row) (core.User, error) {
	var (
		u         core.User
		createdAt sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, store.ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("scan user: %w", err)
	}
	u.CreatedAt = createdAt.Time
	return u, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (core.Entry, error) {
	var (
		e          core.Entry
		kind, date string
		cents      int64
		createdAt  sql.NullTime
	)
	err := row.Scan(&e.ID, &e.OwnerID, &kind, &e.Title, &e.Description,
		&e.Category, &cents, &date, &createdAt)
	if err != nil {
		return core.Entry{}, err
	}
	e.Kind = core.EntryKind(kind)
	e.Amount = core.FromCents(cents)
	e.CreatedAt = createdAt.Time
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Entry{}, fmt.Errorf("parse entry date %q: %w", date, err)
	}
	e.Date = d
	return e, nil
}

func notFoundIfZero(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

var _ store.Store = (*Store)(nil)
