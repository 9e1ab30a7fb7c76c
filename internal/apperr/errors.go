// Package apperr defines the error taxonomy shared by gateways, the gallery
// store and the reconciliation controller. Every error surfaced to a user goes
// through UserMessage.
package apperr

import (
	"errors"
	"fmt"
)

// ValidationError reports bad user input detected before any network call.
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

// AuthError reports a missing, expired or rejected session.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	if e.Message == "" {
		return "authentication required"
	}
	return e.Message
}

// TransportError covers network failures and non-2xx responses.
type TransportError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = "request failed"
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e *TransportError) Unwrap() error { return e.Err }

// NotFoundError is returned for 404 and 409 responses. Callers deleting a
// resource treat it as success.
type NotFoundError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *NotFoundError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: not found", e.Op)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// SubmissionError is returned by the job submission gateway. It is never
// retried automatically.
type SubmissionError struct {
	Message string
	Err     error
}

func (e *SubmissionError) Error() string {
	return "failed to submit processing job: " + e.Message
}

func (e *SubmissionError) Unwrap() error { return e.Err }

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsAuth(err error) bool {
	var target *AuthError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsSubmission(err error) bool {
	var target *SubmissionError
	return errors.As(err, &target)
}

// UserMessage returns the text shown to a user for err. Backend messages are
// passed through verbatim; anything else gets a generic fallback.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}

	var validation *ValidationError
	if errors.As(err, &validation) {
		return validation.Message
	}
	var auth *AuthError
	if errors.As(err, &auth) {
		return auth.Error()
	}
	var submission *SubmissionError
	if errors.As(err, &submission) && submission.Message != "" {
		return submission.Message
	}
	var notFound *NotFoundError
	if errors.As(err, &notFound) && notFound.Message != "" {
		return notFound.Message
	}
	var transport *TransportError
	if errors.As(err, &transport) && transport.Message != "" {
		return transport.Message
	}
	return fallback
}
