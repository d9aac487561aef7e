package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  EntryKind = "income"
	Expense EntryKind = "expense"
)

type (
	// EntryKind discriminates the two entry entity types. Both share the same
	// shape; only the default category differs.
	EntryKind string

	Date struct {
		time.Time
	}

	// Entry is a single income or expense record owned by one user.
	Entry struct {
		ID          int64
		OwnerID     int64
		Kind        EntryKind
		Title       string
		Description string
		Category    string
		Amount      decimal.Decimal
		Date        Date
		CreatedAt   time.Time
	}

	// MonthlyBudget caps spending for (category, month, year). The store keeps
	// at most one row per (owner, title, category, month, year).
	MonthlyBudget struct {
		ID          int64
		OwnerID     int64
		Title       string
		Category    string
		Month       Month
		Year        int
		Amount      decimal.Decimal
		Description string
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}

	User struct {
		ID           int64
		Email        string
		Name         string
		PasswordHash string
		CreatedAt    time.Time
	}
)

// IsValid reports whether k names a known entry kind.
func (k EntryKind) IsValid() bool {
	return k == Income || k == Expense
}

// DefaultCategory is the category applied when a request omits one.
func (k EntryKind) DefaultCategory() string {
	if k == Income {
		return "income"
	}
	return "expenses"
}

// NewDate creates a civil date at midnight UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses an ISO-8601 calendar date (2006-01-02).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// ISO renders the date as an ISO-8601 string. Lexicographic order on the
// result matches chronological order, which the feed sort relies on.
func (d Date) ISO() string {
	return d.Format("2006-01-02")
}

// YearMonth returns the calendar bucket key, e.g. "2025-03".
func (d Date) YearMonth() string {
	return d.Format("2006-01")
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (e Entry) Validate() error {
	var missing []string
	if e.OwnerID <= 0 {
		missing = append(missing, "owner")
	}
	if e.Date.IsZero() {
		missing = append(missing, "date")
	}
	if len(missing) > 0 {
		return NewValidationError(missing...)
	}
	if !e.Kind.IsValid() {
		return ErrInvalidKind
	}
	if e.Amount.IsNegative() {
		return ErrNegativeAmount
	}
	if len(e.Title) > 200 {
		return ErrTitleTooLong
	}
	return nil
}

func (b MonthlyBudget) Validate() error {
	var missing []string
	if b.OwnerID <= 0 {
		missing = append(missing, "owner")
	}
	if strings.TrimSpace(b.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(b.Category) == "" {
		missing = append(missing, "category")
	}
	if b.Month == "" {
		missing = append(missing, "month")
	}
	if b.Year <= 0 {
		missing = append(missing, "year")
	}
	if len(missing) > 0 {
		return NewValidationError(missing...)
	}
	if err := b.Month.Validate(); err != nil {
		return err
	}
	if b.Amount.IsNegative() {
		return ErrNegativeAmount
	}
	return nil
}
