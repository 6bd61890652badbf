package conditions

import "errors"

var (
	// ErrInvalidSubject indicates a subject that cannot be evaluated.
	ErrInvalidSubject = errors.New("invalid evaluation subject")

	// ErrInvalidCondition indicates a condition payload that is not a scalar
	// or a list of scalars.
	ErrInvalidCondition = errors.New("invalid condition value")
)
