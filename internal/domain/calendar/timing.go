package calendar

import (
	"log/slog"
	"time"
)

// ResolveTimings turns bound periods plus day offsets into concrete
// schedules. Initiate runs daysToInitiate before the period starts, close
// runs daysToClose after it ends. Dates already in the past are clamped to
// now with a warning so publishing a campaign mid-period still works.
func ResolveTimings(periods []Period, defaults TimingDefaults, overrides []PeriodTimingOverride, now time.Time) []PeriodTiming {
	byPeriod := make(map[string]PeriodTimingOverride, len(overrides))
	for _, o := range overrides {
		byPeriod[o.PeriodID] = o
	}

	out := make([]PeriodTiming, 0, len(periods))
	for _, p := range periods {
		daysToInitiate := defaults.DaysToInitiate
		daysToClose := defaults.DaysToClose
		reminderCount := defaults.ReminderCount
		if o, ok := byPeriod[p.ID]; ok {
			if o.DaysToInitiate != nil {
				daysToInitiate = *o.DaysToInitiate
			}
			if o.DaysToClose != nil {
				daysToClose = *o.DaysToClose
			}
			if o.ReminderCount != nil {
				reminderCount = *o.ReminderCount
			}
		}

		initiateAt := clampToNow(p.StartDate.AddDate(0, 0, -daysToInitiate), now, "initiate", p.ID)
		closeAt := clampToNow(p.EndDate.AddDate(0, 0, daysToClose), now, "close", p.ID)
		out = append(out, PeriodTiming{
			PeriodID:    p.ID,
			InitiateAt:  initiateAt,
			CloseAt:     closeAt,
			ReminderAts: spreadReminders(initiateAt, closeAt, reminderCount),
		})
	}
	return out
}

// SyntheticTiming builds the single schedule for a campaign without a
// calendar, anchored on publish time instead of period dates.
func SyntheticTiming(defaults TimingDefaults, now time.Time) PeriodTiming {
	initiateAt := now.AddDate(0, 0, defaults.DaysToInitiate)
	closeAt := initiateAt.AddDate(0, 0, defaults.DaysToClose)
	return PeriodTiming{
		InitiateAt:  initiateAt,
		CloseAt:     closeAt,
		ReminderAts: spreadReminders(initiateAt, closeAt, defaults.ReminderCount),
	}
}

func clampToNow(at, now time.Time, kind, periodID string) time.Time {
	if at.Before(now) {
		slog.Warn("computed schedule date is in the past, clamping to now",
			"kind", kind, "periodId", periodID, "computed", at)
		return now
	}
	return at
}

// spreadReminders places count reminders evenly between initiate and close,
// walking back from close. Reminders that collapse onto the same instant
// after clamping are dropped rather than duplicated.
func spreadReminders(initiateAt, closeAt time.Time, count int) []time.Time {
	if count <= 0 || !closeAt.After(initiateAt) {
		return nil
	}
	interval := closeAt.Sub(initiateAt) / time.Duration(count+1)
	if interval <= 0 {
		return nil
	}
	out := make([]time.Time, 0, count)
	var last time.Time
	for k := count; k >= 1; k-- {
		at := closeAt.Add(-time.Duration(k) * interval)
		if !last.IsZero() && at.Equal(last) {
			continue
		}
		out = append(out, at)
		last = at
	}
	return out
}
