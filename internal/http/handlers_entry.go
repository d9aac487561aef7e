package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"fintrack/internal/core"
	"fintrack/internal/report"
	"fintrack/internal/services"
)

type entryRequest struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Category    string      `json:"category"`
	Amount      json.Number `json:"amount"`
	Date        string      `json:"date"`
}

type entryPatchRequest struct {
	Title       *string      `json:"title"`
	Description *string      `json:"description"`
	Category    *string      `json:"category"`
	Amount      *json.Number `json:"amount"`
	Date        *string      `json:"date"`
}

type entryPayload struct {
	ID          int64           `json:"id"`
	Type        core.EntryKind  `json:"type"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Amount      json.RawMessage `json:"amount"`
	Date        string          `json:"date"`
}

func toEntryPayload(e core.Entry) entryPayload {
	return entryPayload{
		ID:          e.ID,
		Type:        e.Kind,
		Title:       e.Title,
		Description: e.Description,
		Category:    e.Category,
		Amount:      json.RawMessage(e.Amount.StringFixed(2)),
		Date:        e.Date.ISO(),
	}
}

func (s *Server) handleCreateEntry(kind core.EntryKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req entryRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, r, err)
			return
		}

		entry, err := s.entries.Create(r.Context(), kind, ownerFromContext(r.Context()), services.EntryInput{
			Title:       req.Title,
			Description: req.Description,
			Category:    req.Category,
			Amount:      req.Amount.String(),
			Date:        req.Date,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, toEntryPayload(entry))
	}
}

func (s *Server) handleUpdateEntry(kind core.EntryKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		var req entryPatchRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, r, err)
			return
		}

		patch := services.EntryPatchInput{
			Title:       req.Title,
			Description: req.Description,
			Category:    req.Category,
			Date:        req.Date,
		}
		if req.Amount != nil {
			amount := req.Amount.String()
			patch.Amount = &amount
		}

		entry, err := s.entries.Update(r.Context(), kind, ownerFromContext(r.Context()), id, patch)
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, toEntryPayload(entry))
	}
}

func (s *Server) handleDeleteEntry(kind core.EntryKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, r, err)
			return
		}

		if err := s.entries.Delete(r.Context(), kind, ownerFromContext(r.Context()), id); err != nil {
			writeError(w, r, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// handleFeed serves the unified sign-adjusted entry list.
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := report.FeedFilter{Category: query.Get("category")}

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
	// "both" and an absent type both mean the unfiltered feed.
	if v := query.Get("type"); v != "" && v != "both" {
		kind := core.EntryKind(v)
		if !kind.IsValid() {
			writeError(w, r, core.ErrInvalidKind)
			return
		}
		filter.Kind = kind
	}

	items, err := s.engine.Feed(r.Context(), ownerFromContext(r.Context()), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"entries": items})
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, &badRequestError{msg: "invalid id"}
	}
	return id, nil
}
