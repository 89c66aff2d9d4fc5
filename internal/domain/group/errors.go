package group

import "errors"

var (
	ErrGroupNotFound = errors.New("group not found")
	ErrMemberExists  = errors.New("employee is already a group member")
	ErrGroupInUse    = errors.New("group is referenced by campaigns")
)
