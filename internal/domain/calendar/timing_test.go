package calendar

import (
	"testing"
	"time"
)

func intPtr(v int) *int {
	return &v
}

func TestResolveTimingsOffsets(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	periods := []Period{{
		ID:        "p1",
		StartDate: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
	}}
	defaults := TimingDefaults{DaysToInitiate: 7, DaysToClose: 5, ReminderCount: 0}

	out := ResolveTimings(periods, defaults, nil, now)
	if len(out) != 1 {
		t.Fatalf("expected 1 timing, got %d", len(out))
	}
	wantInitiate := time.Date(2025, 2, 22, 0, 0, 0, 0, time.UTC)
	wantClose := time.Date(2025, 4, 5, 0, 0, 0, 0, time.UTC)
	if !out[0].InitiateAt.Equal(wantInitiate) {
		t.Fatalf("initiate: want %v, got %v", wantInitiate, out[0].InitiateAt)
	}
	if !out[0].CloseAt.Equal(wantClose) {
		t.Fatalf("close: want %v, got %v", wantClose, out[0].CloseAt)
	}
}

func TestResolveTimingsOverridesWin(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	periods := []Period{{
		ID:        "p1",
		StartDate: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
	}}
	defaults := TimingDefaults{DaysToInitiate: 7, DaysToClose: 5}
	overrides := []PeriodTimingOverride{{PeriodID: "p1", DaysToInitiate: intPtr(1)}}

	out := ResolveTimings(periods, defaults, overrides, now)
	wantInitiate := time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC)
	if !out[0].InitiateAt.Equal(wantInitiate) {
		t.Fatalf("override initiate: want %v, got %v", wantInitiate, out[0].InitiateAt)
	}
	wantClose := time.Date(2025, 4, 5, 0, 0, 0, 0, time.UTC)
	if !out[0].CloseAt.Equal(wantClose) {
		t.Fatalf("default close should survive partial override: want %v, got %v", wantClose, out[0].CloseAt)
	}
}

func TestResolveTimingsClampsPastDates(t *testing.T) {
	now := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	periods := []Period{{
		ID:        "p1",
		StartDate: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
	}}
	defaults := TimingDefaults{DaysToInitiate: 7, DaysToClose: 5}

	out := ResolveTimings(periods, defaults, nil, now)
	if !out[0].InitiateAt.Equal(now) {
		t.Fatalf("past initiate should clamp to now, got %v", out[0].InitiateAt)
	}
	if out[0].CloseAt.Before(now) {
		t.Fatalf("close should never be before now, got %v", out[0].CloseAt)
	}
}

func TestResolveTimingsReminderSpread(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	periods := []Period{{
		ID:        "p1",
		StartDate: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
	}}
	defaults := TimingDefaults{DaysToInitiate: 0, DaysToClose: 0, ReminderCount: 2}

	out := ResolveTimings(periods, defaults, nil, now)
	reminders := out[0].ReminderAts
	if len(reminders) != 2 {
		t.Fatalf("expected 2 reminders, got %d", len(reminders))
	}
	if !reminders[0].Before(reminders[1]) {
		t.Fatal("reminders should be in ascending order")
	}
	for i, at := range reminders {
		if !at.After(out[0].InitiateAt) || !at.Before(out[0].CloseAt) {
			t.Fatalf("reminder %d outside window: %v", i, at)
		}
	}
	gap1 := reminders[0].Sub(out[0].InitiateAt)
	gap2 := reminders[1].Sub(reminders[0])
	if gap1 != gap2 {
		t.Fatalf("expected even spacing, got %v and %v", gap1, gap2)
	}
}

func TestResolveTimingsCollapsedWindowHasNoReminders(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	periods := []Period{{
		ID:        "p1",
		StartDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
	}}
	defaults := TimingDefaults{ReminderCount: 3}

	out := ResolveTimings(periods, defaults, nil, now)
	if !out[0].InitiateAt.Equal(now) || !out[0].CloseAt.Equal(now) {
		t.Fatalf("expected both dates clamped to now, got %+v", out[0])
	}
	if len(out[0].ReminderAts) != 0 {
		t.Fatalf("collapsed window should carry no reminders, got %d", len(out[0].ReminderAts))
	}
}

func TestSyntheticTiming(t *testing.T) {
	now := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	defaults := TimingDefaults{DaysToInitiate: 2, DaysToClose: 10, ReminderCount: 1}

	timing := SyntheticTiming(defaults, now)
	if timing.PeriodID != "" {
		t.Fatalf("synthetic timing should have no period id, got %q", timing.PeriodID)
	}
	wantInitiate := time.Date(2025, 5, 3, 0, 0, 0, 0, time.UTC)
	wantClose := time.Date(2025, 5, 13, 0, 0, 0, 0, time.UTC)
	if !timing.InitiateAt.Equal(wantInitiate) {
		t.Fatalf("initiate: want %v, got %v", wantInitiate, timing.InitiateAt)
	}
	if !timing.CloseAt.Equal(wantClose) {
		t.Fatalf("close: want %v, got %v", wantClose, timing.CloseAt)
	}
	if len(timing.ReminderAts) != 1 {
		t.Fatalf("expected 1 reminder, got %d", len(timing.ReminderAts))
	}
}
