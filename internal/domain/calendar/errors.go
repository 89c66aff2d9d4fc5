package calendar

import "errors"

var (
	ErrCalendarNotFound = errors.New("calendar not found")
	ErrPeriodNotFound   = errors.New("period not found")
)
