package audit

import "errors"

var (
	ErrInvalidEvent = errors.New("invalid audit event")
	ErrStoreFailed  = errors.New("failed to store audit event")
	ErrListFailed   = errors.New("failed to list audit events")
)
