package campaign

const (
	KindQuestionnaire = "questionnaire"
	KindKPI           = "kpi"
	KindMBO           = "mbo"
	KindOKR           = "okr"
)

const (
	PublishNow         = "now"
	PublishPerCalendar = "as_per_calendar"
)

const (
	StatusDraft  = "draft"
	StatusActive = "active"
	StatusClosed = "closed"
)

func ValidKind(kind string) bool {
	switch kind {
	case KindQuestionnaire, KindKPI, KindMBO, KindOKR:
		return true
	}
	return false
}

func ValidPublishMode(mode string) bool {
	return mode == PublishNow || mode == PublishPerCalendar
}
