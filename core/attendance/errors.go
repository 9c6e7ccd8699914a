package attendance

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// errors
	ErrNotFound       = errors.New("attendance record not found")
	ErrInvalidStatus  = errors.New("invalid attendance status")
	ErrMissingField   = errors.New("missing required field")
	ErrMalformedField = errors.New("malformed field")
	ErrActorRequired  = errors.New("an actor is required")
)

// BatchError reports the record that made an all-or-nothing batch fail.
// Nothing from the batch was persisted.
type BatchError struct {
	Index int
	Key   NaturalKey
	Err   error
}

func (err *BatchError) Error() string {
	return fmt.Sprintf("batch rejected at record %d (%s): %v", err.Index, err.Key, err.Err)
}

func (err *BatchError) Unwrap() error {
	return err.Err
}
