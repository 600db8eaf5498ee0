package livelist

import (
	"errors"
	"fmt"
)

// Sentinel errors for the gateway taxonomy. Gateway failures never
// panic into the caller; they resolve to one of these so the
// reconciler can decide what to surface.
var (
	// ErrNetwork means the transport was unreachable. Retry is the
	// user's manual action, never automatic.
	ErrNetwork = errors.New("transport unreachable")

	// ErrMalformedResponse means no known envelope shape matched.
	// Distinct from an empty result so callers can warn instead of
	// silently rendering nothing.
	ErrMalformedResponse = errors.New("response envelope could not be normalized")

	// ErrUnsupportedOperation marks gateway operations a resource does
	// not offer (carts have no create/update path).
	ErrUnsupportedOperation = errors.New("operation not supported for this resource")
)

// ServerError is a non-2xx response with a parsed message. The message
// is propagated verbatim to the user.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.Status, e.Message)
}

// ValidationError carries field-level messages, surfaced next to the
// relevant form fields without closing the form.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %d field(s)", len(e.Fields))
}

// TransitionError is the server rejecting a status transition, e.g.
// changing a delivered order. The list view stays unchanged.
type TransitionError struct {
	ID      string
	Status  string
	Message string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal transition of %s to %q: %s", e.ID, e.Status, e.Message)
}
