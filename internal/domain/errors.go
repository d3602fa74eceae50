package domain

import "fmt"

// InvalidRangeError reports a year range whose bounds are reversed.
type InvalidRangeError struct {
	Range YearRange
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid year range: min %d > max %d", e.Range.Min, e.Range.Max)
}
