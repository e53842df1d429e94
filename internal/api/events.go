/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/friendsincode/mimir_calendar/internal/auth"
	"github.com/friendsincode/mimir_calendar/internal/calendar"
	"github.com/friendsincode/mimir_calendar/internal/models"
	"github.com/friendsincode/mimir_calendar/internal/telemetry"
)

type eventCreateRequest struct {
	Title          string `json:"title"`
	Description    string `json:"description"`
	StartTime      string `json:"start_time"`
	EndTime        string `json:"end_time"`
	IsAllDay       bool   `json:"is_all_day"`
	RecurrenceRule string `json:"recurrence_rule"`
}

// eventUpdateRequest overlays onto the stored event; absent fields keep
// their current value. The merged result is revalidated as a whole.
type eventUpdateRequest struct {
	Title          *string `json:"title"`
	Description    *string `json:"description"`
	StartTime      *string `json:"start_time"`
	EndTime        *string `json:"end_time"`
	IsAllDay       *bool   `json:"is_all_day"`
	RecurrenceRule *string `json:"recurrence_rule"`
}

type occurrenceResponse struct {
	EventID     string  `json:"event_id"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	IsAllDay    bool    `json:"is_all_day"`
	Start       string  `json:"start"`
	End         *string `json:"end,omitempty"`
}

func (a *API) handleEventCreate(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req eventCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	validated, err := calendar.Validate(calendar.EventInput{
		Title:          req.Title,
		Description:    req.Description,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		IsAllDay:       req.IsAllDay,
		RecurrenceRule: req.RecurrenceRule,
	})
	if err != nil {
		if writeValidationError(w, err) {
			return
		}
		a.logger.Error().Err(err).Msg("event validation failed")
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	event := models.Event{
		ID:             uuid.NewString(),
		UserID:         claims.UserID,
		Title:          validated.Title,
		Description:    validated.Description,
		StartTime:      validated.StartTime,
		EndTime:        validated.EndTime,
		IsAllDay:       validated.IsAllDay,
		RecurrenceRule: validated.RecurrenceRule,
	}

	if err := a.db.WithContext(r.Context()).Create(&event).Error; err != nil {
		a.logger.Error().Err(err).Msg("create event failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	a.logger.Info().
		Str("event_id", event.ID).
		Str("user_id", claims.UserID).
		Bool("recurring", event.Recurs()).
		Msg("event created")

	writeJSON(w, http.StatusCreated, event)
}

func (a *API) handleEventsList(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var events []models.Event
	if err := a.db.WithContext(r.Context()).
		Where("user_id = ?", claims.UserID).
		Order("start_time ASC").
		Find(&events).Error; err != nil {
		a.logger.Error().Err(err).Msg("list events failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	writeJSON(w, http.StatusOK, events)
}

func (a *API) handleEventGet(w http.ResponseWriter, r *http.Request) {
	event, ok := a.ownedEvent(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (a *API) handleEventUpdate(w http.ResponseWriter, r *http.Request) {
	event, ok := a.ownedEvent(w, r)
	if !ok {
		return
	}

	var req eventUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	// Rebuild the full input from storage, then overlay the patch so the
	// validator always sees a complete event.
	input := calendar.EventInput{
		Title:          event.Title,
		Description:    event.Description,
		StartTime:      event.StartTime.Format(time.RFC3339),
		IsAllDay:       event.IsAllDay,
		RecurrenceRule: event.RecurrenceRule,
	}
	if event.EndTime != nil {
		input.EndTime = event.EndTime.Format(time.RFC3339)
	}

	if req.Title != nil {
		input.Title = *req.Title
	}
	if req.Description != nil {
		input.Description = *req.Description
	}
	if req.StartTime != nil {
		input.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		input.EndTime = *req.EndTime
	}
	if req.IsAllDay != nil {
		input.IsAllDay = *req.IsAllDay
		if *req.IsAllDay && req.EndTime == nil {
			input.EndTime = ""
		}
	}
	if req.RecurrenceRule != nil {
		input.RecurrenceRule = *req.RecurrenceRule
	}

	validated, err := calendar.Validate(input)
	if err != nil {
		if writeValidationError(w, err) {
			return
		}
		a.logger.Error().Err(err).Msg("event validation failed")
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	event.Title = validated.Title
	event.Description = validated.Description
	event.StartTime = validated.StartTime
	event.EndTime = validated.EndTime
	event.IsAllDay = validated.IsAllDay
	event.RecurrenceRule = validated.RecurrenceRule

	if err := a.db.WithContext(r.Context()).Save(&event).Error; err != nil {
		a.logger.Error().Err(err).Msg("update event failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	writeJSON(w, http.StatusOK, event)
}

func (a *API) handleEventDelete(w http.ResponseWriter, r *http.Request) {
	event, ok := a.ownedEvent(w, r)
	if !ok {
		return
	}

	if err := a.db.WithContext(r.Context()).Delete(&event).Error; err != nil {
		a.logger.Error().Err(err).Msg("delete event failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleOccurrencesList materializes the caller's upcoming occurrences from
// a required query start. The expansion bounds default from server config
// and are overridable per request.
func (a *API) handleOccurrencesList(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	startParam := r.URL.Query().Get("start")
	if startParam == "" {
		writeError(w, http.StatusBadRequest, "start_required")
		return
	}
	queryStart, err := time.Parse(time.RFC3339, startParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, "start_invalid")
		return
	}

	opts := calendar.ExpandOptions{
		// One sample shared across every event in the request, so all rules
		// see the same horizon.
		Now:            time.Now(),
		MaxOccurrences: a.cfg.MaxOccurrences,
		MaxFutureYears: a.cfg.MaxFutureYears,
	}
	if raw := r.URL.Query().Get("max_occurrences"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "max_occurrences_invalid")
			return
		}
		opts.MaxOccurrences = n
	}
	if raw := r.URL.Query().Get("max_future_years"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "max_future_years_invalid")
			return
		}
		opts.MaxFutureYears = n
	}

	var events []models.Event
	if err := a.db.WithContext(r.Context()).
		Where("user_id = ?", claims.UserID).
		Find(&events).Error; err != nil {
		a.logger.Error().Err(err).Msg("load events for expansion failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	occurrences, err := calendar.ExpandAll(events, queryStart, opts)
	if err != nil {
		a.logger.Error().Err(err).Msg("occurrence expansion failed")
		writeError(w, http.StatusInternalServerError, "expansion_failed")
		return
	}

	telemetry.OccurrencesExpanded.Add(float64(len(occurrences)))

	out := make([]occurrenceResponse, 0, len(occurrences))
	for _, occ := range occurrences {
		out = append(out, renderOccurrence(occ))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"occurrences": out,
		"count":       len(out),
	})
}

// renderOccurrence serializes one occurrence. All-day occurrences surface
// as bare calendar dates; timed ones as RFC 3339 instants.
func renderOccurrence(occ calendar.Occurrence) occurrenceResponse {
	resp := occurrenceResponse{
		EventID:     occ.EventID,
		Title:       occ.Title,
		Description: occ.Description,
		IsAllDay:    occ.IsAllDay,
	}
	if occ.IsAllDay {
		resp.Start = occ.Start.Format("2006-01-02")
		return resp
	}
	resp.Start = occ.Start.Format(time.RFC3339)
	if occ.End != nil {
		end := occ.End.Format(time.RFC3339)
		resp.End = &end
	}
	return resp
}

// ownedEvent loads the event named in the URL, enforcing ownership. Events
// are visible only to their creator, so a foreign ID reads as not found.
func (a *API) ownedEvent(w http.ResponseWriter, r *http.Request) (models.Event, bool) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return models.Event{}, false
	}

	eventID := chi.URLParam(r, "eventID")
	if eventID == "" {
		writeError(w, http.StatusBadRequest, "event_id_required")
		return models.Event{}, false
	}

	var event models.Event
	result := a.db.WithContext(r.Context()).
		First(&event, "id = ? AND user_id = ?", eventID, claims.UserID)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		writeError(w, http.StatusNotFound, "not_found")
		return models.Event{}, false
	}
	if result.Error != nil {
		a.logger.Error().Err(result.Error).Msg("get event failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return models.Event{}, false
	}

	return event, true
}
