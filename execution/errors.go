package execution

import (
	"errors"
	"fmt"

	"github.com/rustyeddy/livetrade/risk"
)

// RequestError is a malformed intent caught before any broker call.
// It is never alerted.
type RequestError struct {
	Field string
	Msg   string
}

func (e *RequestError) Error() string {
	if e.Field == "" {
		return "invalid order request: " + e.Msg
	}
	return fmt.Sprintf("invalid order request: %s: %s", e.Field, e.Msg)
}

func requestErr(field, format string, args ...any) *RequestError {
	return &RequestError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// RejectionError is a risk limit or short-sale guard refusal. The router
// alerts on every one before returning it.
type RejectionError struct {
	Violation risk.Violation
}

func (e *RejectionError) Error() string {
	return "order rejected: " + e.Violation.Msg
}

func (e *RejectionError) Unwrap() error { return e.Violation }

// Details is the alert payload for the rejection.
func (e *RejectionError) Details() map[string]any { return e.Violation.Details() }

// BrokerError wraps a failed broker call. The order may or may not have
// reached the venue when Op is "submit_order".
type BrokerError struct {
	Op  string
	Err error
}

func (e *BrokerError) Error() string {
	return fmt.Sprintf("broker %s: %v", e.Op, e.Err)
}

func (e *BrokerError) Unwrap() error { return e.Err }

func IsRequestError(err error) bool {
	var re *RequestError
	return errors.As(err, &re)
}

func IsRejection(err error) bool {
	var re *RejectionError
	return errors.As(err, &re)
}

func IsBrokerError(err error) bool {
	var be *BrokerError
	return errors.As(err, &be)
}

// Outcome names the class of an order result for logs, metrics and the
// journal.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "submitted"
	case IsRejection(err):
		return "rejected"
	case IsRequestError(err):
		return "invalid"
	default:
		return "failed"
	}
}
