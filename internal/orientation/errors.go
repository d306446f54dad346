package orientation

import (
	"errors"
	"fmt"

	"github.com/On-Jun9/ShutterOrient/pkg/types"
)

var (
	// ErrMetadataUnavailable marks a file or stream that could not be opened or parsed as EXIF.
	// The resolver recovers from it locally and never returns it.
	ErrMetadataUnavailable = errors.New("metadata unavailable")
	// ErrLocatorFailure matches every *LocatorError.
	ErrLocatorFailure = errors.New("locator failure")
)

// LocatorError is returned when a reference cannot be classified at all.
type LocatorError struct {
	Ref types.ImageRef
	Err error
}

func (e *LocatorError) Error() string {
	return fmt.Sprintf("cannot resolve %q: %v", string(e.Ref), e.Err)
}

func (e *LocatorError) Unwrap() error {
	return e.Err
}

func (e *LocatorError) Is(target error) bool {
	return target == ErrLocatorFailure
}
