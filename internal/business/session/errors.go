package session

import (
	"errors"
	"fmt"
)

// ErrPersistence is wrapped when a state change succeeded in memory but could
// not be written to the state store.
var ErrPersistence = errors.New("session state could not be persisted")

// ValidationError rejects user input before any state changes.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// LocationErrorKind classifies a failed device location request.
type LocationErrorKind string

const (
	PermissionDenied    LocationErrorKind = "permission_denied"
	PositionUnavailable LocationErrorKind = "position_unavailable"
	Timeout             LocationErrorKind = "timeout"
)

// LocationError is the tagged failure of AcquireDeviceLocation.
type LocationError struct {
	Kind LocationErrorKind
	Err  error
}

func (e *LocationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *LocationError) Unwrap() error { return e.Err }

// Message is the user-facing explanation for the failure.
func (e *LocationError) Message() string {
	switch e.Kind {
	case PermissionDenied:
		return "Location access denied. Please enable location permissions for this site."
	case Timeout:
		return "Location request timed out. Please try again."
	default:
		return "Location information unavailable. Check your GPS/network connection."
	}
}

// LocationErrorFromCode maps a W3C GeolocationPositionError code.
// Unknown codes are reported as unavailable.
func LocationErrorFromCode(code int) *LocationError {
	switch code {
	case 1:
		return &LocationError{Kind: PermissionDenied}
	case 3:
		return &LocationError{Kind: Timeout}
	default:
		return &LocationError{Kind: PositionUnavailable}
	}
}

func persistenceError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrPersistence, op, err)
}
