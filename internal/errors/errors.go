package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Common error types for the front-end
var (
	// Session errors
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrUnauthorized     = errors.New("unauthorized")

	// Backend transport errors
	ErrTimeout           = errors.New("backend timeout")
	ErrUnreachable       = errors.New("backend unreachable")
	ErrMalformedResponse = errors.New("malformed backend response")

	// Action errors
	ErrBusy = errors.New("another request is already in progress")

	// General errors
	ErrNotFound = errors.New("not found")
)

// ValidationError is raised locally before any network call is attempted.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Validation creates a ValidationError with the given user-facing text.
func Validation(message string) error {
	return &ValidationError{Message: message}
}

// RejectedError is a non-2xx response from the backend. Detail is the
// backend's {"detail": "..."} payload when one was present.
type RejectedError struct {
	Status int
	Detail string
}

func (e *RejectedError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("status %d: %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("status %d", e.Status)
}

// Is makes a 401 rejection match ErrUnauthorized.
func (e *RejectedError) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

// TransportError is a request that never produced a backend response.
// Kind is ErrTimeout or ErrUnreachable.
type TransportError struct {
	Kind  error
	Cause error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%v: %v", e.Kind, e.Cause)
}

func (e *TransportError) Is(target error) bool { return target == e.Kind }

func (e *TransportError) Unwrap() error { return e.Cause }

// PartialSuccessError reports a multi-step operation whose first step
// succeeded and a later step failed. ID identifies what was created.
type PartialSuccessError struct {
	ID    string
	Step  string
	Cause error
}

func (e *PartialSuccessError) Error() string {
	return fmt.Sprintf("%s created but %s failed: %v", e.ID, e.Step, e.Cause)
}

func (e *PartialSuccessError) Unwrap() error { return e.Cause }

// IsUnauthorized reports whether err should tear down the session.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsTimeout reports whether err is a timeout, either classified by the
// backend client or a raw context deadline.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded)
}

// Status returns the HTTP status carried by err, or 0 when the backend was
// never reached.
func Status(err error) int {
	var rejected *RejectedError
	if errors.As(err, &rejected) {
		return rejected.Status
	}
	return 0
}

// StatusMessage turns an action error into the text shown to the user.
// action is the verb phrase used in the message, e.g. "Login".
func StatusMessage(action string, err error) string {
	if err == nil {
		return ""
	}

	var validation *ValidationError
	if errors.As(err, &validation) {
		return validation.Message
	}

	if IsTimeout(err) {
		return "Backend timeout – please try again."
	}

	var rejected *RejectedError
	if errors.As(err, &rejected) {
		if rejected.Detail != "" {
			return fmt.Sprintf("%s failed: %s", action, rejected.Detail)
		}
		return fmt.Sprintf("%s failed (status %d)", action, rejected.Status)
	}

	var transport *TransportError
	if errors.As(err, &transport) {
		return fmt.Sprintf("Error contacting backend: %v", transport.Cause)
	}

	if errors.Is(err, ErrMalformedResponse) {
		return fmt.Sprintf("%s failed: unexpected response from backend", action)
	}

	return fmt.Sprintf("%s failed: %v", action, err)
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
