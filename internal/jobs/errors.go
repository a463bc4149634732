package jobs

// InputValidationError marks a caller-fixable problem with the job payload.
// It is returned before any network call is made.
type InputValidationError struct {
	Message string
	Details []string
}

func (e *InputValidationError) Error() string { return e.Message }

// ProcessingError is a hard failure after work has started, optionally
// carrying the error lines accrued along the way.
type ProcessingError struct {
	Message string
	Details []string
}

func (e *ProcessingError) Error() string { return e.Message }
