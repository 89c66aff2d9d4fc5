package reports

func EmployeeDashboard(pendingSelf, awaitingManager, completed int) map[string]any {
	return map[string]any{
		"pendingSelf":     pendingSelf,
		"awaitingManager": awaitingManager,
		"completed":       completed,
	}
}

func ManagerDashboard(reviewsWaiting, toFinalize, teamEvaluations int) map[string]any {
	return map[string]any{
		"reviewsWaiting":  reviewsWaiting,
		"toFinalize":      toFinalize,
		"teamEvaluations": teamEvaluations,
	}
}

func HRDashboard(activeCampaigns, openEvaluations, overdueTasks int) map[string]any {
	return map[string]any{
		"activeCampaigns": activeCampaigns,
		"openEvaluations": openEvaluations,
		"overdueTasks":    overdueTasks,
	}
}
