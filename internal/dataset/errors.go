package dataset

import (
	"errors"
	"fmt"
)

// DataUnavailableError means the source resource could not be fetched or
// parsed at all. No partial table is ever produced alongside it: either the
// whole table loads or the pipeline halts downstream.
type DataUnavailableError struct {
	Source string
	Err    error
}

func (e *DataUnavailableError) Error() string {
	return fmt.Sprintf("data unavailable from %s: %v", e.Source, e.Err)
}

func (e *DataUnavailableError) Unwrap() error { return e.Err }

// IsDataUnavailable reports whether err is (or wraps) a DataUnavailableError.
func IsDataUnavailable(err error) bool {
	var dua *DataUnavailableError
	return errors.As(err, &dua)
}
