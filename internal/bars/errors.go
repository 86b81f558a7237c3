package bars

import (
	"errors"
	"fmt"
)

// Sentinel errors for the boundary error-kind taxonomy. Internal call
// sites wrap one of these with fmt.Errorf("...: %w", err); callers
// distinguish kinds with errors.Is, never by inspecting message text.
var (
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrInsufficientData     = errors.New("insufficient data")
	ErrDataIntegrity        = errors.New("data integrity error")
	ErrInternalInvariant    = errors.New("internal invariant violation")
)

// ProviderError wraps an error raised by a DataProvider implementation.
// The core never constructs one; it only receives and forwards it
// unchanged per the propagation policy.
type ProviderError struct {
	Kind string // NetworkError, AuthError, RateLimited, DataProcessingError, Unknown
	Err  error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error (%s): %v", e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
