package application

import "errors"

var (
	// ErrUnauthorized is returned when no authenticated principal is present
	// for an operation that requires one.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested room or session does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrRoomFull is returned when admission would exceed the room's capacity
	// cap, or when the bounded retry budget is exhausted under contention.
	ErrRoomFull = errors.New("application: room full")
	// ErrRoomExpired is returned when the target room is inactive or past its
	// expiry and no longer accepts joins.
	ErrRoomExpired = errors.New("application: room expired")
	// ErrLimitReached is returned when a device fingerprint has used up its
	// anonymous join allowance.
	ErrLimitReached = errors.New("application: anonymous join limit reached")
	// ErrStoreUnavailable wraps transient persistence failures that the
	// caller may retry at the allocation level.
	ErrStoreUnavailable = errors.New("application: store unavailable")
	// ErrGatewayUnavailable is returned when the payment gateway rejects or
	// fails an order request.
	ErrGatewayUnavailable = errors.New("application: payment gateway unavailable")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}
