package service

import (
	"errors"
	"fmt"
)

// ParseError signals a malformed or incomplete job payload. It fails fast and
// is never retried by this component.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed job payload: %s", e.Reason)
}

// CorrelationError signals a payload referencing a resource the console does
// not know. It is logged and surfaced to the caller; no event is written.
type CorrelationError struct {
	ResourceType string
	ResourceUUID string
	Err          error
}

func (e *CorrelationError) Error() string {
	return fmt.Sprintf("cannot correlate %s %s: %v", e.ResourceType, e.ResourceUUID, e.Err)
}

func (e *CorrelationError) Unwrap() error {
	return e.Err
}

// ErrQuotaExceeded is returned when a department is at or over its limit for
// a resource kind
var ErrQuotaExceeded = errors.New("resource quota exceeded")
