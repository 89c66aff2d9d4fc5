package evaluation

const (
	StatusNotStarted      = "not_started"
	StatusDraft           = "draft"
	StatusSelfSubmitted   = "self_submitted"
	StatusManagerReviewed = "manager_reviewed"
	StatusCompleted       = "completed"
)

const (
	MeetingUnscheduled = "unscheduled"
	MeetingScheduled   = "scheduled"
	MeetingCompleted   = "completed"
)

// SupportedResponseVersion is the only response payload schema this build
// accepts. Bump together with a migration when the answer shape changes.
const SupportedResponseVersion = 1

type Action string

const (
	ActionSaveSelf        Action = "save_self"
	ActionSubmitSelf      Action = "submit_self"
	ActionSaveManager     Action = "save_manager"
	ActionSubmitManager   Action = "submit_manager"
	ActionScheduleMeeting Action = "schedule_meeting"
	ActionRecordMeeting   Action = "record_meeting"
	ActionFinalize        Action = "finalize"
	ActionCalibrate       Action = "calibrate"
)
