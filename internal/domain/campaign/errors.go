package campaign

import "errors"

var (
	ErrCampaignNotFound      = errors.New("campaign not found")
	ErrQuestionnaireNotFound = errors.New("questionnaire not found")
	ErrQuestionnaireInUse    = errors.New("questionnaire is attached to a campaign")
	ErrInvalidCampaign       = errors.New("invalid campaign")
	ErrNotDraft              = errors.New("campaign is not in draft")
	ErrAlreadyClosed         = errors.New("campaign is closed")
	ErrGroupImmutable        = errors.New("group cannot change once evaluations exist")
	ErrPeriodNotInCalendar   = errors.New("period does not belong to the campaign calendar")
)
