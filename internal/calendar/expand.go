/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package calendar

import (
	"errors"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/friendsincode/mimir_calendar/internal/models"
)

// Defaults for the expansion safety valves. Both are caller-overridable per
// call; they exist to bound pathological or unbounded recurrence rules.
const (
	DefaultMaxOccurrences = 1000
	DefaultMaxFutureYears = 10
)

// ErrQueryStartRequired reports a caller bug: expansion was requested
// without a usable query start instant.
var ErrQueryStartRequired = errors.New("query start must be a timezone-aware instant")

// Occurrence is one concrete materialization of an event within a query
// window. It is computed per request and never persisted. Start is a UTC
// instant, truncated to the UTC calendar day for all-day events.
type Occurrence struct {
	EventID     string
	Title       string
	Description string
	IsAllDay    bool
	Start       time.Time
	End         *time.Time
}

// ExpandOptions tunes a single expansion call.
type ExpandOptions struct {
	// Now anchors the future horizon. Zero means time.Now(); callers
	// expanding several events in one request should sample it once and
	// share it so every event sees the same horizon.
	Now time.Time

	// MaxOccurrences caps accepted instants per event. <= 0 means
	// DefaultMaxOccurrences.
	MaxOccurrences int

	// MaxFutureYears bounds how far past Now occurrences materialize.
	// <= 0 means DefaultMaxFutureYears.
	MaxFutureYears int
}

func (o ExpandOptions) withDefaults() ExpandOptions {
	if o.Now.IsZero() {
		o.Now = time.Now()
	}
	if o.MaxOccurrences <= 0 {
		o.MaxOccurrences = DefaultMaxOccurrences
	}
	if o.MaxFutureYears <= 0 {
		o.MaxFutureYears = DefaultMaxFutureYears
	}
	return o
}

func (o ExpandOptions) horizon() time.Time {
	return o.Now.Add(time.Duration(o.MaxFutureYears) * 365 * 24 * time.Hour)
}

// Expand produces the time-ordered occurrences of one event that fall on or
// after queryStart and at or before the horizon.
//
// A non-recurring event yields zero or one occurrence. A recurring event's
// rule is walked lazily in its native ascending order under three bounds:
// instants past the horizon stop the walk, instants before queryStart are
// skipped without counting, and MaxOccurrences accepted instants stop the
// walk early. A stored rule that no longer parses degrades to an empty
// result rather than failing the caller's batch.
func Expand(event models.Event, queryStart time.Time, opts ExpandOptions) ([]Occurrence, error) {
	if queryStart.IsZero() {
		return nil, ErrQueryStartRequired
	}
	opts = opts.withDefaults()
	horizon := opts.horizon()

	if !event.Recurs() {
		if event.StartTime.Before(queryStart) || event.StartTime.After(horizon) {
			return nil, nil
		}
		return []Occurrence{makeOccurrence(event, event.StartTime)}, nil
	}

	rr, err := rrule.StrToRRule(event.RecurrenceRule)
	if err != nil {
		// Validated at write time; a rule that rotted in storage must not
		// break the whole listing.
		return nil, nil
	}
	rr.DTStart(event.StartTime)

	occurrences := make([]Occurrence, 0)
	next := rr.Iterator()
	for {
		instant, ok := next()
		if !ok || instant.After(horizon) {
			break
		}
		if instant.Before(queryStart) {
			continue
		}
		occurrences = append(occurrences, makeOccurrence(event, instant))
		if len(occurrences) >= opts.MaxOccurrences {
			break
		}
	}

	// The walk is already ascending; the sort makes ordering an explicit
	// post-condition instead of an assumption about the rule iterator.
	sort.SliceStable(occurrences, func(i, j int) bool {
		return occurrences[i].Start.Before(occurrences[j].Start)
	})
	return occurrences, nil
}

// ExpandAll expands every event against one shared horizon and returns the
// merged, globally ordered occurrence list. Ties on equal starts preserve
// the relative order of the input events.
func ExpandAll(events []models.Event, queryStart time.Time, opts ExpandOptions) ([]Occurrence, error) {
	if queryStart.IsZero() {
		return nil, ErrQueryStartRequired
	}
	opts = opts.withDefaults()

	merged := make([]Occurrence, 0)
	for _, event := range events {
		occurrences, err := Expand(event, queryStart, opts)
		if err != nil {
			return nil, err
		}
		merged = append(merged, occurrences...)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Start.Before(merged[j].Start)
	})
	return merged, nil
}

func makeOccurrence(event models.Event, start time.Time) Occurrence {
	occ := Occurrence{
		EventID:     event.ID,
		Title:       event.Title,
		Description: event.Description,
		IsAllDay:    event.IsAllDay,
		Start:       start.UTC(),
	}
	if event.IsAllDay {
		occ.Start = truncateToDay(occ.Start)
		return occ
	}
	if event.EndTime != nil {
		end := occ.Start.Add(event.Duration())
		occ.End = &end
	}
	return occ
}
