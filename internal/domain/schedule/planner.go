package schedule

import "appraise/internal/domain/calendar"

// BuildTasks flattens resolved period timings into task rows. Campaigns
// published immediately skip the initiate task because their evaluations
// already exist; reminders and the close still run on schedule.
func BuildTasks(campaignID string, timings []calendar.PeriodTiming, includeInitiate bool) []Task {
	var out []Task
	for _, timing := range timings {
		if includeInitiate {
			out = append(out, Task{
				CampaignID:  campaignID,
				PeriodID:    timing.PeriodID,
				Type:        TaskInitiate,
				ScheduledAt: timing.InitiateAt,
			})
		}
		for _, at := range timing.ReminderAts {
			out = append(out, Task{
				CampaignID:  campaignID,
				PeriodID:    timing.PeriodID,
				Type:        TaskReminder,
				ScheduledAt: at,
			})
		}
		out = append(out, Task{
			CampaignID:  campaignID,
			PeriodID:    timing.PeriodID,
			Type:        TaskClose,
			ScheduledAt: timing.CloseAt,
		})
	}
	return out
}
