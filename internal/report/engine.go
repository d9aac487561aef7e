// Package report implements the aggregation engine: range totals, the
// budget-versus-actual overview with alerts, the unified sign-adjusted feed
// and the monthly report buckets.
//
// Every entry point shares one error policy: a failure anywhere inside a
// computation surfaces as a ComputationError with a generic message, never a
// partial result.
package report

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/events"
	"fintrack/internal/log"
	"fintrack/internal/store"
)

// DefaultReportWindow is the trailing window for reports requested without
// an explicit date range.
const DefaultReportWindow = 180 * 24 * time.Hour

// Alert statuses for the budget overview.
const (
	StatusWarning  = "warning"
	StatusExceeded = "exceeded"
)

// warningThreshold is the usage percentage at which a category starts
// warning.
var warningThreshold = decimal.NewFromInt(80)

var hundred = decimal.NewFromInt(100)

type Engine struct {
	store  store.Store
	events *events.Client
	logger *log.Logger
	// now is swappable for tests that exercise the default window.
	now func() time.Time
}

func NewEngine(s store.Store, eventsClient *events.Client, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Engine{
		store:  s,
		events: eventsClient,
		logger: logger.WithComponent(log.ComponentReport),
		now:    time.Now,
	}
}

// Totals is the income/expense/balance summary for a date range. Both totals
// are positive magnitudes; Budget is what remains of income after expenses.
type Totals struct {
	TotalIncome  decimal.Decimal `json:"total_income"`
	TotalExpense decimal.Decimal `json:"total_expense"`
	Budget       decimal.Decimal `json:"budget"`
}

// RangeTotals sums income and expenses over [from, to] inclusive.
func (e *Engine) RangeTotals(ctx context.Context, ownerID int64, from, to core.Date) (Totals, error) {
	totals, err := e.rangeTotals(ctx, ownerID, from, to)
	if err != nil {
		return Totals{}, &core.ComputationError{Op: "budget", Err: err}
	}
	return totals, nil
}

func (e *Engine) rangeTotals(ctx context.Context, ownerID int64, from, to core.Date) (Totals, error) {
	filter := store.EntryFilter{From: from, To: to}

	income, err := e.store.SumEntries(ctx, core.Income, ownerID, filter)
	if err != nil {
		return Totals{}, err
	}
	expense, err := e.store.SumEntries(ctx, core.Expense, ownerID, filter)
	if err != nil {
		return Totals{}, err
	}

	return Totals{
		TotalIncome:  income,
		TotalExpense: expense,
		Budget:       income.Sub(expense),
	}, nil
}

// Alert flags a category near or past its configured monthly cap.
type Alert struct {
	Status     string          `json:"status"`
	Percentage decimal.Decimal `json:"percentage"`
	Remaining  decimal.Decimal `json:"remaining"`
}

// Overview is the budget-versus-actual comparison for one month.
type Overview struct {
	Budgets map[string]decimal.Decimal `json:"budgets"`
	Actuals map[string]decimal.Decimal `json:"actuals"`
	Alerts  map[string]Alert           `json:"alerts"`
	Totals  Totals                     `json:"totals"`
}

// BudgetOverview compares configured budgets against actual spending. The
// budget month is taken from the range start; actuals are expense sums per
// category within [from, to]. Categories with a non-positive budget never
// alert.
func (e *Engine) BudgetOverview(ctx context.Context, ownerID int64, from, to core.Date) (Overview, error) {
	ov, err := e.budgetOverview(ctx, ownerID, from, to)
	if err != nil {
		return Overview{}, &core.ComputationError{Op: "budget overview", Err: err}
	}
	return ov, nil
}

func (e *Engine) budgetOverview(ctx context.Context, ownerID int64, from, to core.Date) (Overview, error) {
	month, err := core.NewMonth(int(from.Month()))
	if err != nil {
		return Overview{}, err
	}
	year := from.Year()

	categories, err := e.store.BudgetCategories(ctx, ownerID, month, year)
	if err != nil {
		return Overview{}, err
	}

	ov := Overview{
		Budgets: make(map[string]decimal.Decimal, len(categories)),
		Actuals: make(map[string]decimal.Decimal, len(categories)),
		Alerts:  make(map[string]Alert),
	}

	for _, category := range categories {
		budget, err := e.store.SumBudgets(ctx, ownerID, category, month, year)
		if err != nil {
			return Overview{}, err
		}
		actual, err := e.store.SumEntries(ctx, core.Expense, ownerID, store.EntryFilter{
			From:     from,
			To:       to,
			Category: category,
		})
		if err != nil {
			return Overview{}, err
		}

		ov.Budgets[category] = budget
		ov.Actuals[category] = actual

		if !budget.IsPositive() {
			continue
		}
		percentage := actual.Div(budget).Mul(hundred).Round(2)
		remaining := budget.Sub(actual)
		switch {
		case percentage.GreaterThanOrEqual(hundred):
			ov.Alerts[category] = Alert{Status: StatusExceeded, Percentage: percentage, Remaining: remaining}
			e.publishExceeded(ctx, ownerID, category, month, year, budget, actual)
		case percentage.GreaterThanOrEqual(warningThreshold):
			ov.Alerts[category] = Alert{Status: StatusWarning, Percentage: percentage, Remaining: remaining}
		}
	}

	totals, err := e.rangeTotals(ctx, ownerID, from, to)
	if err != nil {
		return Overview{}, err
	}
	ov.Totals = totals
	return ov, nil
}

func (e *Engine) publishExceeded(ctx context.Context, ownerID int64, category string, month core.Month, year int, budget, actual decimal.Decimal) {
	if e.events == nil {
		return
	}
	msg := events.NewBudgetExceededMessage(ownerID, category, string(month), year,
		budget.StringFixed(2), actual.StringFixed(2))
	if err := e.events.PublishBudgetExceeded(ctx, msg); err != nil {
		e.logger.WarnContext(ctx, "Failed to publish budget exceeded event",
			log.FieldCategory, category, log.FieldError, err)
	}
}

// FeedItem is one row of the unified entry feed. Expense amounts are
// negated so the column sums to net cash flow.
type FeedItem struct {
	ID          int64           `json:"id"`
	Type        core.EntryKind  `json:"type"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	Date        string          `json:"date"`
}

// FeedFilter narrows the feed. Zero dates mean unbounded; empty Kind lists
// both entry types.
type FeedFilter struct {
	From     core.Date
	To       core.Date
	Category string
	Kind     core.EntryKind
}

// Feed lists the caller's entries ascending by date, sign-adjusted.
func (e *Engine) Feed(ctx context.Context, ownerID int64, f FeedFilter) ([]FeedItem, error) {
	entries, err := e.store.ListEntries(ctx, ownerID, store.EntryFilter{
		From:     f.From,
		To:       f.To,
		Category: f.Category,
		Kind:     f.Kind,
	})
	if err != nil {
		return nil, &core.ComputationError{Op: "feed", Err: err}
	}

	items := make([]FeedItem, 0, len(entries))
	for _, entry := range entries {
		amount := entry.Amount
		if entry.Kind == core.Expense {
			amount = amount.Neg()
		}
		items = append(items, FeedItem{
			ID:          entry.ID,
			Type:        entry.Kind,
			Title:       entry.Title,
			Description: entry.Description,
			Category:    entry.Category,
			Amount:      amount,
			Date:        entry.Date.ISO(),
		})
	}
	return items, nil
}

// CategoryTotal is a category's expense total for a chart segment.
type CategoryTotal struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
}

// MonthBucket aggregates one calendar month of the report window. Month is
// keyed "2006-01" so string order is chronological order.
type MonthBucket struct {
	Month   string          `json:"month"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expenses"`
}

// ReportFilter narrows the report. When both dates are zero the windowed
// sections fall back to the trailing DefaultReportWindow.
type ReportFilter struct {
	From     core.Date
	To       core.Date
	Category string
}

// Result is the full report payload: windowed category breakdown and month
// buckets, plus whole-range totals for the overview chart.
type Result struct {
	ExpensesByCategory []CategoryTotal `json:"expenses_by_category"`
	MonthlyData        []MonthBucket   `json:"monthly_data"`
	Totals             Totals          `json:"totals"`
	OverviewByCategory []CategoryTotal `json:"overview_by_category"`
}

// Report builds the report payload for one owner.
func (e *Engine) Report(ctx context.Context, ownerID int64, f ReportFilter) (Result, error) {
	res, err := e.report(ctx, ownerID, f)
	if err != nil {
		return Result{}, &core.ComputationError{Op: "report", Err: err}
	}
	return res, nil
}

func (e *Engine) report(ctx context.Context, ownerID int64, f ReportFilter) (Result, error) {
	windowFrom, windowTo := f.From, f.To
	if windowFrom.IsZero() && windowTo.IsZero() {
		now := e.now().UTC()
		windowTo = core.NewDate(now.Year(), int(now.Month()), now.Day())
		start := now.Add(-DefaultReportWindow)
		windowFrom = core.NewDate(start.Year(), int(start.Month()), start.Day())
	}

	windowEntries, err := e.store.ListEntries(ctx, ownerID, store.EntryFilter{
		From:     windowFrom,
		To:       windowTo,
		Category: f.Category,
	})
	if err != nil {
		return Result{}, err
	}

	fullEntries := windowEntries
	if !f.From.Equal(windowFrom.Time) || !f.To.Equal(windowTo.Time) {
		fullEntries, err = e.store.ListEntries(ctx, ownerID, store.EntryFilter{
			From:     f.From,
			To:       f.To,
			Category: f.Category,
		})
		if err != nil {
			return Result{}, err
		}
	}

	totalIncome, totalExpense := decimal.Zero, decimal.Zero
	for _, entry := range fullEntries {
		if entry.Kind == core.Income {
			totalIncome = totalIncome.Add(entry.Amount)
		} else {
			totalExpense = totalExpense.Add(entry.Amount)
		}
	}

	return Result{
		ExpensesByCategory: expensesByCategory(windowEntries),
		MonthlyData:        monthlyData(windowEntries),
		Totals: Totals{
			TotalIncome:  totalIncome,
			TotalExpense: totalExpense,
			Budget:       totalIncome.Sub(totalExpense),
		},
		OverviewByCategory: expensesByCategory(fullEntries),
	}, nil
}

// expensesByCategory totals expenses per category, descending by total.
// Ties keep first-appearance order.
func expensesByCategory(entries []core.Entry) []CategoryTotal {
	totals := make(map[string]decimal.Decimal)
	var order []string
	for _, entry := range entries {
		if entry.Kind != core.Expense {
			continue
		}
		if _, ok := totals[entry.Category]; !ok {
			order = append(order, entry.Category)
		}
		totals[entry.Category] = totals[entry.Category].Add(entry.Amount)
	}

	out := make([]CategoryTotal, 0, len(order))
	for _, category := range order {
		out = append(out, CategoryTotal{Category: category, Total: totals[category]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Total.GreaterThan(out[j].Total)
	})
	return out
}

// monthlyData buckets entries by calendar month, chronological. A month with
// only one side present reports zero for the other.
func monthlyData(entries []core.Entry) []MonthBucket {
	buckets := make(map[string]*MonthBucket)
	for _, entry := range entries {
		key := entry.Date.YearMonth()
		bucket, ok := buckets[key]
		if !ok {
			bucket = &MonthBucket{Month: key, Income: decimal.Zero, Expense: decimal.Zero}
			buckets[key] = bucket
		}
		if entry.Kind == core.Income {
			bucket.Income = bucket.Income.Add(entry.Amount)
		} else {
			bucket.Expense = bucket.Expense.Add(entry.Amount)
		}
	}

	keys := make([]string, 0, len(buckets))
	for key := range buckets {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make([]MonthBucket, 0, len(keys))
	for _, key := range keys {
		out = append(out, *buckets[key])
	}
	return out
}
