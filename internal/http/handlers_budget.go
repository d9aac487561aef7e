package http

import (
	"encoding/json"
	"net/http"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

type budgetRequest struct {
	Title       string      `json:"title"`
	Category    string      `json:"category"`
	Description string      `json:"description"`
	Amount      json.Number `json:"amount"`
	Month       string      `json:"month"`
	Year        int         `json:"year"`
}

type budgetPatchRequest struct {
	Title       *string      `json:"title"`
	Category    *string      `json:"category"`
	Description *string      `json:"description"`
	Amount      *json.Number `json:"amount"`
	Month       *string      `json:"month"`
	Year        *int         `json:"year"`
}

type budgetPayload struct {
	ID          int64           `json:"id"`
	Title       string          `json:"title"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Amount      json.RawMessage `json:"amount"`
	Month       string          `json:"month"`
	Year        int             `json:"year"`
}

func toBudgetPayload(b core.MonthlyBudget) budgetPayload {
	return budgetPayload{
		ID:          b.ID,
		Title:       b.Title,
		Category:    b.Category,
		Description: b.Description,
		Amount:      json.RawMessage(b.Amount.StringFixed(2)),
		Month:       string(b.Month),
		Year:        b.Year,
	}
}

func (s *Server) handleUpsertBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	budget, created, err := s.budgets.Upsert(r.Context(), ownerFromContext(r.Context()), services.BudgetInput{
		Title:       req.Title,
		Category:    req.Category,
		Description: req.Description,
		Amount:      req.Amount.String(),
		Month:       req.Month,
		Year:        req.Year,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]any{
		"id":      budget.ID,
		"created": created,
	})
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	budgets, err := s.budgets.List(r.Context(), ownerFromContext(r.Context()),
		query.Get("category"), query.Get("month_year"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	payload := make([]budgetPayload, 0, len(budgets))
	for _, b := range budgets {
		payload = append(payload, toBudgetPayload(b))
	}
	writeJSON(w, http.StatusOK, map[string]any{"budgets": payload})
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req budgetPatchRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	patch := services.BudgetPatchInput{
		Title:       req.Title,
		Category:    req.Category,
		Description: req.Description,
		Month:       req.Month,
		Year:        req.Year,
	}
	if req.Amount != nil {
		amount := req.Amount.String()
		patch.Amount = &amount
	}

	if err := s.budgets.Update(r.Context(), ownerFromContext(r.Context()), id, patch); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.budgets.Delete(r.Context(), ownerFromContext(r.Context()), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleBudgetOverview compares budgets against actuals. Without an explicit
// range it covers the current calendar month.
func (s *Server) handleBudgetOverview(w http.ResponseWriter, r *http.Request) {
	from, to, err := rangeOrCurrentMonth(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	overview, err := s.engine.BudgetOverview(r.Context(), ownerFromContext(r.Context()), from, to)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

func rangeOrCurrentMonth(r *http.Request) (core.Date, core.Date, error) {
	query := r.URL.Query()
	start, end := query.Get("start"), query.Get("end")

	if start == "" && end == "" {
		now := time.Now().UTC()
		from := core.NewDate(now.Year(), int(now.Month()), 1)
		// Day zero of the next month is the last day of this one.
		to := core.NewDate(now.Year(), int(now.Month())+1, 0)
		return from, to, nil
	}
	if start == "" || end == "" {
		return core.Date{}, core.Date{}, core.NewValidationError("start and end")
	}

	from, err := core.ParseDate(start)
	if err != nil {
		return core.Date{}, core.Date{}, core.ErrInvalidDate
	}
	to, err := core.ParseDate(end)
	if err != nil {
		return core.Date{}, core.Date{}, core.ErrInvalidDate
	}
	return from, to, nil
}
