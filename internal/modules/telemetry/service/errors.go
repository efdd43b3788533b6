package service

import (
	"errors"
	"fmt"
)

// ErrInvalidTimestamp is returned by Downsample when a stored record's
// date+time cannot be parsed. Exports abort rather than silently skip.
var ErrInvalidTimestamp = errors.New("invalid timestamp")

// MissingFieldError reports the first required envelope field that is absent.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field: %s", e.Field)
}
