// Package services implements the application operations over the record
// store: entry and budget CRUD with boundary validation, plus event
// publishing after successful writes.
package services

import (
	"context"
	"errors"
	"fmt"

	"fintrack/internal/core"
	"fintrack/internal/events"
	"fintrack/internal/log"
	"fintrack/internal/store"
)

// EntryInput is the raw request shape for creating an entry. Amount and date
// arrive as strings and are parsed here, not in the HTTP layer.
type EntryInput struct {
	Title       string
	Description string
	Category    string
	Amount      string
	Date        string
}

// EntryPatchInput carries optional fields for a partial update. Nil means
// "leave unchanged".
type EntryPatchInput struct {
	Title       *string
	Description *string
	Category    *string
	Amount      *string
	Date        *string
}

// EntryService orchestrates income and expense operations.
type EntryService struct {
	store  store.EntryStore
	events *events.Client
	logger *log.Logger
}

func NewEntryService(s store.EntryStore, eventsClient *events.Client, logger *log.Logger) *EntryService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &EntryService{
		store:  s,
		events: eventsClient,
		logger: logger.WithComponent(log.ComponentEntry),
	}
}

// Create validates and persists a new entry. Missing required fields are
// collected into one ValidationError; an omitted category falls back to the
// kind's default.
func (s *EntryService) Create(ctx context.Context, kind core.EntryKind, ownerID int64, in EntryInput) (core.Entry, error) {
	if !kind.IsValid() {
		return core.Entry{}, core.ErrInvalidKind
	}

	var missing []string
	if in.Amount == "" {
		missing = append(missing, "amount")
	}
	if in.Date == "" {
		missing = append(missing, "date")
	}
	if len(missing) > 0 {
		return core.Entry{}, core.NewValidationError(missing...)
	}

	amount, err := core.ParseAmount(in.Amount)
	if err != nil {
		return core.Entry{}, err
	}
	date, err := core.ParseDate(in.Date)
	if err != nil {
		return core.Entry{}, core.ErrInvalidDate
	}

	category := in.Category
	if category == "" {
		category = kind.DefaultCategory()
	}

	entry := core.Entry{
		OwnerID:     ownerID,
		Kind:        kind,
		Title:       in.Title,
		Description: in.Description,
		Category:    category,
		Amount:      amount,
		Date:        date,
	}
	if err := entry.Validate(); err != nil {
		return core.Entry{}, err
	}

	id, err := s.store.CreateEntry(ctx, entry)
	if err != nil {
		return core.Entry{}, fmt.Errorf("save entry: %w", err)
	}
	entry.ID = id

	s.publishCreated(ctx, entry)
	return entry, nil
}

// Get fetches one entry scoped to its kind and owner.
func (s *EntryService) Get(ctx context.Context, kind core.EntryKind, ownerID, id int64) (core.Entry, error) {
	entry, err := s.store.GetEntry(ctx, kind, ownerID, id)
	if errors.Is(err, store.ErrNotFound) {
		return core.Entry{}, &core.NotFoundError{Entity: string(kind)}
	}
	if err != nil {
		return core.Entry{}, fmt.Errorf("get entry: %w", err)
	}
	return entry, nil
}

// Update applies only the provided fields and returns the updated entry.
func (s *EntryService) Update(ctx context.Context, kind core.EntryKind, ownerID, id int64, in EntryPatchInput) (core.Entry, error) {
	patch, err := s.buildPatch(in)
	if err != nil {
		return core.Entry{}, err
	}

	err = s.store.UpdateEntry(ctx, kind, ownerID, id, patch)
	if errors.Is(err, store.ErrNotFound) {
		return core.Entry{}, &core.NotFoundError{Entity: string(kind)}
	}
	if err != nil {
		return core.Entry{}, fmt.Errorf("update entry: %w", err)
	}

	return s.Get(ctx, kind, ownerID, id)
}

// Delete removes an entry owned by the caller.
func (s *EntryService) Delete(ctx context.Context, kind core.EntryKind, ownerID, id int64) error {
	err := s.store.DeleteEntry(ctx, kind, ownerID, id)
	if errors.Is(err, store.ErrNotFound) {
		return &core.NotFoundError{Entity: string(kind)}
	}
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return nil
}

// ListFilter narrows entry listings. From/To are optional ISO dates.
type ListFilter struct {
	From     string
	To       string
	Category string
	Kind     core.EntryKind
}

// List returns the caller's entries ordered by date then insertion id.
func (s *EntryService) List(ctx context.Context, ownerID int64, f ListFilter) ([]core.Entry, error) {
	filter := store.EntryFilter{Category: f.Category, Kind: f.Kind}
	if f.From != "" {
		d, err := core.ParseDate(f.From)
		if err != nil {
			return nil, core.ErrInvalidDate
		}
		filter.From = d
	}
	if f.To != "" {
		d, err := core.ParseDate(f.To)
		if err != nil {
			return nil, core.ErrInvalidDate
		}
		filter.To = d
	}

	entries, err := s.store.ListEntries(ctx, ownerID, filter)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return entries, nil
}

func (s *EntryService) buildPatch(in EntryPatchInput) (core.EntryPatch, error) {
	var patch core.EntryPatch
	if in.Title != nil {
		patch.Title = core.Set(*in.Title)
	}
	if in.Description != nil {
		patch.Description = core.Set(*in.Description)
	}
	if in.Category != nil {
		patch.Category = core.Set(*in.Category)
	}
	if in.Amount != nil {
		amount, err := core.ParseAmount(*in.Amount)
		if err != nil {
			return core.EntryPatch{}, err
		}
		patch.Amount = core.Set(amount)
	}
	if in.Date != nil {
		date, err := core.ParseDate(*in.Date)
		if err != nil {
			return core.EntryPatch{}, core.ErrInvalidDate
		}
		patch.Date = core.Set(date)
	}
	return patch, nil
}

// publishCreated is fire-and-forget: a missing or failing broker never fails
// the write.
func (s *EntryService) publishCreated(ctx context.Context, e core.Entry) {
	if s.events == nil {
		return
	}
	msg := events.NewEntryCreatedMessage(e.ID, e.OwnerID, string(e.Kind),
		e.Category, e.Amount.StringFixed(2), e.Date.ISO())
	if err := s.events.PublishEntryCreated(ctx, msg); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish entry created event",
			log.FieldEntryID, e.ID, log.FieldError, err)
	}
}
