package http

import (
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/report"
)

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := report.ReportFilter{Category: query.Get("category")}

	if v := query.Get("start"); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			writeError(w, r, core.ErrInvalidDate)
			return
		}
		filter.From = d
	}
	if v := query.Get("end"); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			writeError(w, r, core.ErrInvalidDate)
			return
		}
		filter.To = d
	}

	result, err := s.engine.Report(r.Context(), ownerFromContext(r.Context()), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"expenses_by_category": result.ExpensesByCategory,
		"monthly_data":         result.MonthlyData,
		"total_income":         result.Totals.TotalIncome,
		"total_expenses":       result.Totals.TotalExpense,
		"budget":               result.Totals.Budget,
		"overview_by_category": result.OverviewByCategory,
	})
}
