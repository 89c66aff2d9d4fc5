package calendar

import "time"

type Calendar struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Period struct {
	ID         string    `json:"id"`
	CalendarID string    `json:"calendarId"`
	Name       string    `json:"name"`
	StartDate  time.Time `json:"startDate"`
	EndDate    time.Time `json:"endDate"`
	CreatedAt  time.Time `json:"createdAt"`
}

// TimingDefaults are the campaign-level day offsets around a period. All
// values are day counts and must be zero or positive.
type TimingDefaults struct {
	DaysToInitiate int `json:"daysToInitiate"`
	DaysToClose    int `json:"daysToClose"`
	ReminderCount  int `json:"reminderCount"`
}

// PeriodTimingOverride replaces selected defaults for one bound period.
type PeriodTimingOverride struct {
	PeriodID       string `json:"periodId"`
	DaysToInitiate *int   `json:"daysToInitiate,omitempty"`
	DaysToClose    *int   `json:"daysToClose,omitempty"`
	ReminderCount  *int   `json:"reminderCount,omitempty"`
}

// PeriodTiming is the resolved schedule for one period: when evaluations
// spawn, when reminders go out and when the round closes. PeriodID is empty
// for the synthetic schedule of calendar-less campaigns.
type PeriodTiming struct {
	PeriodID    string      `json:"periodId,omitempty"`
	InitiateAt  time.Time   `json:"initiateAt"`
	CloseAt     time.Time   `json:"closeAt"`
	ReminderAts []time.Time `json:"reminderAts,omitempty"`
}
