// Whisperbox - Anonymous Inbox, Polls and Message Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/whisperbox

package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/whisperbox/internal/config"
)

const day = 24 * time.Hour

// wednesdayNoon is Wednesday 2026-10-14 12:00 UTC.
var wednesdayNoon = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

func TestWeekStart(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		firstDay time.Weekday
		now      time.Time
		want     time.Time
	}{
		{"sunday week", time.Sunday, wednesdayNoon, time.Date(2026, 10, 11, 0, 0, 0, 0, time.UTC)},
		{"monday week", time.Monday, wednesdayNoon, time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)},
		{"on first day", time.Wednesday, wednesdayNoon, time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)},
		{"day after first day", time.Thursday, wednesdayNoon, time.Date(2026, 10, 8, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cal := Calendar{Location: time.UTC, FirstDay: tt.firstDay}
			if got := cal.WeekStart(tt.now); !got.Equal(tt.want) {
				t.Errorf("WeekStart = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWeekStart_LocalMidnightAcrossDST(t *testing.T) {
	t.Parallel()

	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	cal := Calendar{Location: ny, FirstDay: time.Sunday}

	// DST ends Sunday 2026-11-01 in New York.
	now := time.Date(2026, 11, 4, 12, 0, 0, 0, ny)
	start := cal.WeekStart(now)
	if start.Hour() != 0 || start.Weekday() != time.Sunday || start.Day() != 1 {
		t.Errorf("WeekStart = %v, want Sunday Nov 1 00:00 local", start)
	}

	prev := start.AddDate(0, 0, -7)
	if prev.Hour() != 0 || prev.Day() != 25 {
		t.Errorf("previous week start = %v, want Oct 25 00:00 local", prev)
	}
}

func TestSummarize_WeekBoundaryScenario(t *testing.T) {
	t.Parallel()

	cal := Calendar{Location: time.UTC, FirstDay: time.Sunday}
	now := wednesdayNoon
	ts := []time.Time{now.Add(-9 * day), now.Add(-8 * day), now.Add(-1 * day)}

	got := cal.Summarize(Input{RecipientID: "r", Now: now, TotalMessages: 3, Timestamps: ts})

	if got.MessagesThisWeek != 1 {
		t.Errorf("MessagesThisWeek = %d, want 1", got.MessagesThisWeek)
	}
	if got.MessagesLastWeek != 2 {
		t.Errorf("MessagesLastWeek = %d, want 2", got.MessagesLastWeek)
	}
	if got.GrowthPercent != -50 {
		t.Errorf("GrowthPercent = %d, want -50", got.GrowthPercent)
	}
	if got.EngagementRate != 33 {
		t.Errorf("EngagementRate = %d, want 33", got.EngagementRate)
	}

	// Only the Tuesday message falls in the trailing seven days.
	want := [7]int{0, 0, 1, 0, 0, 0, 0}
	if got.ByDayOfWeek != want {
		t.Errorf("ByDayOfWeek = %v, want %v", got.ByDayOfWeek, want)
	}
	if got.DayLabels[0] != "Sun" || got.DayLabels[6] != "Sat" {
		t.Errorf("DayLabels = %v", got.DayLabels)
	}
}

func TestWeeklyTotals_Boundaries(t *testing.T) {
	t.Parallel()

	cal := Calendar{Location: time.UTC, FirstDay: time.Sunday}
	start := cal.WeekStart(wednesdayNoon) // Sunday 2026-10-11 00:00

	tests := []struct {
		name     string
		at       time.Time
		wantThis int
		wantLast int
	}{
		{"this week start", start, 1, 0},
		{"now", wednesdayNoon, 1, 0},
		{"after now", wednesdayNoon.Add(time.Second), 0, 0},
		{"last week end", start.Add(-time.Second), 0, 1},
		{"between last week end and week start", start.Add(-500 * time.Millisecond), 0, 0},
		{"last week start", start.AddDate(0, 0, -7), 0, 1},
		{"before last week", start.AddDate(0, 0, -7).Add(-time.Second), 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			thisWeek, lastWeek := cal.WeeklyTotals([]time.Time{tt.at}, wednesdayNoon)
			if thisWeek != tt.wantThis || lastWeek != tt.wantLast {
				t.Errorf("WeeklyTotals(%v) = %d, %d; want %d, %d", tt.at, thisWeek, lastWeek, tt.wantThis, tt.wantLast)
			}
		})
	}
}

func TestSummarize_WindowsAreIndependent(t *testing.T) {
	t.Parallel()

	// Monday 2026-10-12 10:00 is this week (Sunday start) and in the
	// trailing seven days. Thursday 2026-10-08 is last week yet still in the
	// trailing seven days.
	cal := Calendar{Location: time.UTC, FirstDay: time.Sunday}
	ts := []time.Time{
		time.Date(2026, 10, 8, 15, 0, 0, 0, time.UTC),
		time.Date(2026, 10, 12, 10, 0, 0, 0, time.UTC),
	}
	got := cal.Summarize(Input{Now: wednesdayNoon, TotalMessages: 2, Timestamps: ts})

	histTotal := 0
	for _, n := range got.ByDayOfWeek {
		histTotal += n
	}
	if got.MessagesThisWeek != 1 || histTotal != 2 {
		t.Errorf("thisWeek=%d histogram=%d, want 1 and 2", got.MessagesThisWeek, histTotal)
	}
	if got.ByDayOfWeek[1] != 1 || got.ByDayOfWeek[4] != 1 {
		t.Errorf("ByDayOfWeek = %v", got.ByDayOfWeek)
	}
}

func TestSummarize_MondayFirstShiftsHistogram(t *testing.T) {
	t.Parallel()

	cal := Calendar{Location: time.UTC, FirstDay: time.Monday}
	ts := []time.Time{time.Date(2026, 10, 12, 10, 0, 0, 0, time.UTC)} // Monday
	got := cal.Summarize(Input{Now: wednesdayNoon, TotalMessages: 1, Timestamps: ts})

	if got.ByDayOfWeek[0] != 1 {
		t.Errorf("ByDayOfWeek = %v, want Monday at index 0", got.ByDayOfWeek)
	}
	if got.DayLabels[0] != "Mon" {
		t.Errorf("DayLabels[0] = %q", got.DayLabels[0])
	}
}

func TestGrowthPercent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		this, last int
		want       int
	}{
		{0, 0, 100},
		{7, 0, 100},
		{1, 2, -50},
		{3, 2, 50},
		{2, 2, 0},
		{0, 4, -100},
		{2, 3, -33},
		{1, 8, -87}, // -87.5 rounds toward +inf
	}
	for _, tt := range tests {
		if got := GrowthPercent(tt.this, tt.last); got != tt.want {
			t.Errorf("GrowthPercent(%d, %d) = %d, want %d", tt.this, tt.last, got, tt.want)
		}
	}
}

func TestAverageResponses(t *testing.T) {
	t.Parallel()

	if got := AverageResponses(0, 10); got != 0 {
		t.Errorf("no polls = %v", got)
	}
	if got := AverageResponses(3, 10); got != 3.3 {
		t.Errorf("AverageResponses(3, 10) = %v, want 3.3", got)
	}
	if got := AverageResponses(4, 10); got != 2.5 {
		t.Errorf("AverageResponses(4, 10) = %v, want 2.5", got)
	}
}

type fakeStore struct {
	ts        []time.Time
	total     int
	polls     int
	responses int
	err       error

	gotFrom, gotTo time.Time
}

func (f *fakeStore) CountMessages(context.Context, string) (int, error) {
	return f.total, f.err
}

func (f *fakeStore) MessageTimestamps(_ context.Context, _ string, from, to time.Time) ([]time.Time, error) {
	f.gotFrom, f.gotTo = from, to
	return f.ts, f.err
}

func (f *fakeStore) PollStats(context.Context, string) (int, int, error) {
	return f.polls, f.responses, f.err
}

func TestService_Summarize(t *testing.T) {
	t.Parallel()

	store := &fakeStore{
		ts:        []time.Time{wednesdayNoon.Add(-time.Hour), wednesdayNoon},
		total:     10,
		polls:     2,
		responses: 5,
	}
	svc := NewService(store, config.AnalyticsConfig{Timezone: "UTC", FirstDayOfWeek: "sunday"})

	got, err := svc.Summarize(context.Background(), "r1", wednesdayNoon)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}

	wantFrom := time.Date(2026, 10, 4, 0, 0, 0, 0, time.UTC)
	if !store.gotFrom.Equal(wantFrom) {
		t.Errorf("window from = %v, want %v", store.gotFrom, wantFrom)
	}
	if !store.gotTo.After(wednesdayNoon) {
		t.Errorf("window to = %v must include now", store.gotTo)
	}
	if got.MessagesThisWeek != 2 || got.TotalMessages != 10 || got.EngagementRate != 20 {
		t.Errorf("summary = %+v", got)
	}
	if got.AverageResponsesPerPoll != 2.5 {
		t.Errorf("AverageResponsesPerPoll = %v", got.AverageResponsesPerPoll)
	}

	store.err = errors.New("store down")
	if _, err := svc.Summarize(context.Background(), "r1", wednesdayNoon); !errors.Is(err, store.err) {
		t.Errorf("expected wrapped store error, got %v", err)
	}
}
