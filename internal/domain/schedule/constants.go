package schedule

const (
	TaskInitiate = "initiate"
	TaskReminder = "reminder"
	TaskClose    = "close"
)

const (
	StatusPending  = "pending"
	StatusExecuted = "executed"
	StatusError    = "error"
)
