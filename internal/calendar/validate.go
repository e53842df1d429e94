/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package calendar implements event validation/normalization and bounded
// recurrence expansion. It is purely computational: no I/O, no shared state.
package calendar

import (
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

// MaxTimedEventSpan is the longest span a non-all-day event may cover.
const MaxTimedEventSpan = 24 * time.Hour

// Layouts accepted for a well-formed timestamp that lacks a UTC offset.
// Input matching one of these is rejected as timezone-naive rather than as
// garbage, so the caller gets an actionable message.
var naiveLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// EventInput is the raw field set supplied by the request-decoding layer.
// Timestamps arrive as strings so the validator owns the aware/naive check.
type EventInput struct {
	Title          string
	Description    string
	StartTime      string
	EndTime        string
	IsAllDay       bool
	RecurrenceRule string
}

// ValidatedEvent is the normalized result of a successful validation.
// StartTime and EndTime are in UTC; for all-day events StartTime is
// truncated to the start of its calendar day before conversion.
type ValidatedEvent struct {
	Title          string
	Description    string
	StartTime      time.Time
	EndTime        *time.Time
	IsAllDay       bool
	RecurrenceRule string
}

// ValidationError reports the first violated rule with a field-attributable,
// human-readable message.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// Validate enforces the event invariants in a fixed order, short-circuiting
// on the first failure:
//
//  1. non-empty title
//  2. start time present
//  3. start/end timezone-aware (an explicit UTC offset in the input)
//  4. all-day events carry no end time and are truncated to day granularity;
//     timed events require an end strictly after the start, spanning at most
//     24 hours
//  5. a recurrence rule, if present, parses against the truncated start
//  6. instants converted to UTC
//
// The returned value is freshly built; the input is never mutated.
func Validate(input EventInput) (*ValidatedEvent, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, invalid("title", "Title is required and cannot be empty.")
	}

	if input.StartTime == "" {
		return nil, invalid("start_time", "Start time is required for all events.")
	}

	start, err := parseAware(input.StartTime)
	if err != nil {
		return nil, invalid("start_time", "Start time must be timezone-aware.")
	}

	var end *time.Time
	if input.EndTime != "" {
		parsed, err := parseAware(input.EndTime)
		if err != nil {
			return nil, invalid("end_time", "End time must be timezone-aware.")
		}
		end = &parsed
	}

	if input.IsAllDay {
		if end != nil {
			return nil, invalid("end_time", "Full-day events should not specify an end time.")
		}
		start = truncateToDay(start)
	} else {
		if end == nil {
			return nil, invalid("end_time", "Non-full-day events must specify an end time.")
		}
		if !end.After(start) {
			return nil, invalid("end_time", "End time must be after start time.")
		}
		if end.Sub(start) > MaxTimedEventSpan {
			return nil, invalid("end_time", "Non-full-day events cannot exceed 24 hours.")
		}
	}

	if input.RecurrenceRule != "" {
		rr, err := rrule.StrToRRule(input.RecurrenceRule)
		if err != nil {
			return nil, invalid("recurrence_rule", "Invalid recurrence rule format: "+err.Error())
		}
		rr.DTStart(start)
	}

	out := &ValidatedEvent{
		Title:          input.Title,
		Description:    input.Description,
		StartTime:      start.UTC(),
		IsAllDay:       input.IsAllDay,
		RecurrenceRule: input.RecurrenceRule,
	}
	if end != nil {
		utcEnd := end.UTC()
		out.EndTime = &utcEnd
	}
	return out, nil
}

// parseAware parses an RFC 3339 timestamp. A timestamp that is well formed
// but lacks a UTC offset is an error: naive instants are never coerced.
func parseAware(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err == nil {
		return t, nil
	}
	for _, layout := range naiveLayouts {
		if _, naiveErr := time.Parse(layout, value); naiveErr == nil {
			return time.Time{}, err
		}
	}
	return time.Time{}, err
}

// truncateToDay zeroes the time-of-day components in the instant's own zone.
func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
