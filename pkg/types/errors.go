package types

import "fmt"

// ValidationError reports a malformed signal rejected at registration.
// It is an input error, never a crash.
type ValidationError struct {
	SignalID string
	Field    string
	Reason   string
}

func (e *ValidationError) Error() string {
	if e.SignalID != "" {
		return fmt.Sprintf("invalid signal %s: %s: %s", e.SignalID, e.Field, e.Reason)
	}

	return fmt.Sprintf("invalid signal: %s: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError for a signal field.
func NewValidationError(signalID, field, format string, args ...any) *ValidationError {
	return &ValidationError{
		SignalID: signalID,
		Field:    field,
		Reason:   fmt.Sprintf(format, args...),
	}
}
