package notifications

const (
	TypeEvaluationAssigned   = "evaluation_assigned"
	TypeEvaluationReminder   = "evaluation_reminder"
	TypeSelfSubmitted        = "self_submitted"
	TypeManagerReviewed      = "manager_reviewed"
	TypeMeetingInvite        = "meeting_invite"
	TypeEvaluationCompleted  = "evaluation_completed"
	TypeEvaluationCalibrated = "evaluation_calibrated"
)
