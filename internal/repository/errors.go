package repository

import "errors"

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("record not found")

// ErrDuplicateTerminalEvent is returned when a terminal event already exists
// for the job id. Callers treat it as a no-op, not a hard failure.
var ErrDuplicateTerminalEvent = errors.New("terminal event already recorded for job")
