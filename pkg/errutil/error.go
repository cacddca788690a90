package errutil

import (
	"errors"
	"fmt"
)

// BaseError is the error type every service returns across package
// boundaries. Reason carries the stable business code clients branch on
// (e.g. INSUFFICIENT_BALANCE); Message is human readable.
type BaseError struct {
	Code    CoreStatus `json:"code"`
	Reason  string     `json:"reason,omitempty"`
	Message string     `json:"message"`
	Details any        `json:"details,omitempty"`
	Err     error      `json:"-"`
}

func (e BaseError) Error() string {
	code := string(e.Code)
	if e.Reason != "" {
		code = e.Reason
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", code, e.Message)
}

func (e BaseError) Unwrap() error { return e.Err }

// Is matches on Code and, when both carry one, Reason. It lets callers use
// errors.Is against sentinel BaseError values.
func (e BaseError) Is(target error) bool {
	var t BaseError
	if !errors.As(target, &t) {
		return false
	}
	if t.Reason != "" && t.Reason != e.Reason {
		return false
	}
	return t.Code == e.Code
}

func (e BaseError) WithDetails(details any) BaseError {
	e.Details = details
	return e
}

func (e BaseError) WithErr(err error) BaseError {
	e.Err = err
	return e
}

func New(code CoreStatus, reason, message string) BaseError {
	return BaseError{Code: code, Reason: reason, Message: message}
}

func BadRequest(reason, message string) BaseError {
	return New(StatusBadRequest, reason, message)
}

func Unauthorized(message string) BaseError {
	return New(StatusUnauthorized, "", message)
}

func Forbidden(reason, message string) BaseError {
	return New(StatusForbidden, reason, message)
}

func NotFound(reason, message string) BaseError {
	return New(StatusNotFound, reason, message)
}

func Conflict(reason, message string) BaseError {
	return New(StatusConflict, reason, message)
}

func Internal(message string, err error) BaseError {
	return BaseError{Code: StatusInternal, Message: message, Err: err}
}

// Reason extracts the business code from err, or "" when err is not a
// BaseError.
func Reason(err error) string {
	var be BaseError
	if errors.As(err, &be) {
		return be.Reason
	}
	return ""
}
