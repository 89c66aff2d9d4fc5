package evaluation

import "errors"

var (
	ErrEvaluationNotFound    = errors.New("evaluation not found")
	ErrEvaluationStale       = errors.New("evaluation changed since it was read")
	ErrUnknownAction         = errors.New("unknown evaluation action")
	ErrInvalidTransition     = errors.New("action not allowed from current status")
	ErrActorNotAllowed       = errors.New("actor may not perform this action on this evaluation")
	ErrFieldNotAllowed       = errors.New("field outside the actor's write mask")
	ErrSelfNotSubmitted      = errors.New("self evaluation not submitted")
	ErrManagerNotSubmitted   = errors.New("manager evaluation not submitted")
	ErrMeetingNotScheduled   = errors.New("meeting has not been scheduled")
	ErrMeetingTimeRequired   = errors.New("meetingScheduledAt is required")
	ErrResponseMissing       = errors.New("response payload required")
	ErrUnsupportedVersion    = errors.New("unsupported response payload version")
	ErrNoAnswers             = errors.New("response payload has no answers")
	ErrAnswerCountMismatch   = errors.New("response payload does not answer every question")
	ErrCalibrationIncomplete = errors.New("calibration requires a calibrated rating")
)
