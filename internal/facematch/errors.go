package facematch

import (
	"errors"
	"fmt"
)

// ErrDimensionMismatch is returned when two descriptors of unequal length are compared.
var ErrDimensionMismatch = errors.New("descriptor dimension mismatch")

// DimensionError describes a comparison between descriptors of unequal length.
// IdentityID is set when the offending descriptor belongs to a gallery entry.
type DimensionError struct {
	Want       int
	Got        int
	IdentityID string
}

func (e *DimensionError) Error() string {
	if e.IdentityID != "" {
		return fmt.Sprintf("%s: gallery entry %q has %d values, want %d",
			ErrDimensionMismatch, e.IdentityID, e.Got, e.Want)
	}
	return fmt.Sprintf("%s: %d vs %d", ErrDimensionMismatch, e.Want, e.Got)
}

// Is reports ErrDimensionMismatch as the sentinel for every DimensionError.
func (e *DimensionError) Is(target error) bool {
	return target == ErrDimensionMismatch
}
