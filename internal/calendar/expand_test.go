/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package calendar

import (
	"errors"
	"testing"
	"time"

	"github.com/friendsincode/mimir_calendar/internal/models"
)

func timedEvent(id string, start, end time.Time, rule string) models.Event {
	return models.Event{
		ID:             id,
		Title:          "event " + id,
		StartTime:      start,
		EndTime:        &end,
		RecurrenceRule: rule,
	}
}

func TestExpandRejectsZeroQueryStart(t *testing.T) {
	event := models.Event{ID: "e1", StartTime: time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)}
	if _, err := Expand(event, time.Time{}, ExpandOptions{}); !errors.Is(err, ErrQueryStartRequired) {
		t.Fatalf("expected ErrQueryStartRequired, got %v", err)
	}
	if _, err := ExpandAll(nil, time.Time{}, ExpandOptions{}); !errors.Is(err, ErrQueryStartRequired) {
		t.Fatalf("expected ErrQueryStartRequired from ExpandAll, got %v", err)
	}
}

func TestExpandSingleTimedEvent(t *testing.T) {
	// Scenario: one non-recurring timed event inside the window.
	start := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 1, 11, 0, 0, 0, time.UTC)
	event := timedEvent("e1", start, end, "")

	queryStart := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	occurrences, err := Expand(event, queryStart, ExpandOptions{Now: queryStart})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(occurrences) != 1 {
		t.Fatalf("got %d occurrences, want 1", len(occurrences))
	}
	if !occurrences[0].Start.Equal(start) {
		t.Fatalf("start = %v, want %v", occurrences[0].Start, start)
	}
	if occurrences[0].End == nil || !occurrences[0].End.Equal(end) {
		t.Fatalf("end = %v, want %v", occurrences[0].End, end)
	}
}

func TestExpandNonRecurringInclusionWindow(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	eventStart := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	eventEnd := eventStart.Add(time.Hour)

	tests := []struct {
		name       string
		queryStart time.Time
		wantCount  int
	}{
		{"query before start", now, 1},
		{"query equals start", eventStart, 1},
		{"query after start", eventStart.Add(time.Second), 0},
		{"start beyond horizon", now.AddDate(20, 0, 0), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := timedEvent("e1", eventStart, eventEnd, "")
			occurrences, err := Expand(event, tt.queryStart, ExpandOptions{Now: now})
			if err != nil {
				t.Fatalf("Expand: %v", err)
			}
			if len(occurrences) != tt.wantCount {
				t.Fatalf("got %d occurrences, want %d", len(occurrences), tt.wantCount)
			}
		})
	}
}

func TestExpandDailyRuleSkipsBeforeQueryStart(t *testing.T) {
	// FREQ=DAILY;COUNT=5 anchored Jan 1 09:00Z queried from Jan 3 yields
	// Jan 3, 4, 5 at 09:00Z.
	anchor := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	event := timedEvent("e1", anchor, anchor.Add(time.Hour), "FREQ=DAILY;COUNT=5")

	queryStart := time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC)
	occurrences, err := Expand(event, queryStart, ExpandOptions{Now: queryStart})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(occurrences) != 3 {
		t.Fatalf("got %d occurrences, want 3", len(occurrences))
	}
	for i, occ := range occurrences {
		want := time.Date(2025, 1, 3+i, 9, 0, 0, 0, time.UTC)
		if !occ.Start.Equal(want) {
			t.Fatalf("occurrence %d start = %v, want %v", i, occ.Start, want)
		}
		wantEnd := want.Add(time.Hour)
		if occ.End == nil || !occ.End.Equal(wantEnd) {
			t.Fatalf("occurrence %d end = %v, want %v", i, occ.End, wantEnd)
		}
	}
}

func TestExpandAllDayOccurrencesAreCalendarDates(t *testing.T) {
	anchor := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	event := models.Event{
		ID:             "e1",
		Title:          "holiday",
		IsAllDay:       true,
		StartTime:      anchor,
		RecurrenceRule: "FREQ=DAILY;COUNT=3",
	}

	occurrences, err := Expand(event, anchor, ExpandOptions{Now: anchor})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(occurrences) != 3 {
		t.Fatalf("got %d occurrences, want 3", len(occurrences))
	}
	for i, occ := range occurrences {
		if occ.End != nil {
			t.Fatalf("all-day occurrence %d has an end", i)
		}
		if h, m, s := occ.Start.Clock(); h != 0 || m != 0 || s != 0 {
			t.Fatalf("all-day occurrence %d not day-truncated: %v", i, occ.Start)
		}
		if occ.Start.Location() != time.UTC {
			t.Fatalf("all-day occurrence %d not UTC: %v", i, occ.Start)
		}
	}
}

func TestExpandMalformedStoredRuleDegradesToEmpty(t *testing.T) {
	// A rule that bypassed (or postdates) write-time validation must not
	// break the listing.
	anchor := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	event := timedEvent("e1", anchor, anchor.Add(time.Hour), "INVALID;RULE")

	occurrences, err := Expand(event, anchor, ExpandOptions{Now: anchor})
	if err != nil {
		t.Fatalf("Expand returned error for malformed stored rule: %v", err)
	}
	if len(occurrences) != 0 {
		t.Fatalf("got %d occurrences, want 0", len(occurrences))
	}
}

func TestExpandCountBound(t *testing.T) {
	anchor := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	event := timedEvent("e1", anchor, anchor.Add(time.Hour), "FREQ=DAILY")

	occurrences, err := Expand(event, anchor, ExpandOptions{Now: anchor, MaxOccurrences: 7})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(occurrences) != 7 {
		t.Fatalf("got %d occurrences, want 7", len(occurrences))
	}
	// The earliest seven on-or-after the query start.
	for i, occ := range occurrences {
		want := anchor.AddDate(0, 0, i)
		if !occ.Start.Equal(want) {
			t.Fatalf("occurrence %d start = %v, want %v", i, occ.Start, want)
		}
	}
}

func TestExpandHorizonBound(t *testing.T) {
	anchor := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	event := timedEvent("e1", anchor, anchor.Add(time.Hour), "FREQ=YEARLY")

	opts := ExpandOptions{Now: anchor, MaxFutureYears: 2, MaxOccurrences: 100}
	occurrences, err := Expand(event, anchor, opts)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	horizon := opts.withDefaults().horizon()
	if len(occurrences) == 0 {
		t.Fatal("expected occurrences within horizon")
	}
	for i, occ := range occurrences {
		if occ.Start.After(horizon) {
			t.Fatalf("occurrence %d at %v is past horizon %v", i, occ.Start, horizon)
		}
	}
	// Two 365-day years land the horizon exactly on the Jan 1 2027 instant;
	// the bound is inclusive, so that one is kept and later ones cut off.
	if len(occurrences) != 3 {
		t.Fatalf("got %d occurrences, want 3", len(occurrences))
	}
}

func TestExpandAllMergesAndOrders(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	aStart := time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC)
	a := timedEvent("a", aStart, aStart.Add(time.Hour), "FREQ=DAILY;COUNT=3")

	bStart := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	b := timedEvent("b", bStart, bStart.Add(time.Hour), "FREQ=DAILY;COUNT=3")

	merged, err := ExpandAll([]models.Event{a, b}, now, ExpandOptions{Now: now})
	if err != nil {
		t.Fatalf("ExpandAll: %v", err)
	}
	if len(merged) != 6 {
		t.Fatalf("got %d occurrences, want 6", len(merged))
	}
	for i := 1; i < len(merged); i++ {
		if merged[i].Start.Before(merged[i-1].Start) {
			t.Fatalf("merged result not ordered at %d: %v < %v", i, merged[i].Start, merged[i-1].Start)
		}
	}
}

func TestExpandAllStableTieBreak(t *testing.T) {
	// Two events with identical instants keep their input order.
	start := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	first := timedEvent("first", start, start.Add(time.Hour), "FREQ=DAILY;COUNT=2")
	second := timedEvent("second", start, start.Add(time.Hour), "FREQ=DAILY;COUNT=2")

	merged, err := ExpandAll([]models.Event{first, second}, start, ExpandOptions{Now: start})
	if err != nil {
		t.Fatalf("ExpandAll: %v", err)
	}
	if len(merged) != 4 {
		t.Fatalf("got %d occurrences, want 4", len(merged))
	}
	wantIDs := []string{"first", "second", "first", "second"}
	for i, occ := range merged {
		if occ.EventID != wantIDs[i] {
			t.Fatalf("position %d = %q, want %q", i, occ.EventID, wantIDs[i])
		}
	}
}

func TestExpandAllDegradedRuleDoesNotAffectSiblings(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	goodStart := time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC)
	good := timedEvent("good", goodStart, goodStart.Add(time.Hour), "")
	bad := timedEvent("bad", goodStart, goodStart.Add(time.Hour), "NOT-A-RULE")

	merged, err := ExpandAll([]models.Event{bad, good}, now, ExpandOptions{Now: now})
	if err != nil {
		t.Fatalf("ExpandAll: %v", err)
	}
	if len(merged) != 1 || merged[0].EventID != "good" {
		t.Fatalf("expected only the good event's occurrence, got %+v", merged)
	}
}
