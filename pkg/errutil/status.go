package errutil

import "net/http"

// CoreStatus classifies an error for transport mapping. Handlers never pick
// HTTP status codes themselves; they map through HTTPStatus.
type CoreStatus string

const (
	StatusBadRequest      CoreStatus = "BAD_REQUEST"
	StatusUnauthorized    CoreStatus = "UNAUTHORIZED"
	StatusForbidden       CoreStatus = "FORBIDDEN"
	StatusNotFound        CoreStatus = "NOT_FOUND"
	StatusConflict        CoreStatus = "CONFLICT"
	StatusTooManyRequest  CoreStatus = "TOO_MANY_REQUEST"
	StatusInternal        CoreStatus = "INTERNAL"
	StatusNotImplemented  CoreStatus = "NOT_IMPLEMENTED"
	StatusUnavailable     CoreStatus = "UNAVAILABLE"
	StatusDeadlineExceeed CoreStatus = "DEADLINE_EXCEEDED"
)

func (s CoreStatus) HTTPStatus() int {
	switch s {
	case StatusBadRequest:
		return http.StatusBadRequest
	case StatusUnauthorized:
		return http.StatusUnauthorized
	case StatusForbidden:
		return http.StatusForbidden
	case StatusNotFound:
		return http.StatusNotFound
	case StatusConflict:
		return http.StatusConflict
	case StatusTooManyRequest:
		return http.StatusTooManyRequests
	case StatusNotImplemented:
		return http.StatusNotImplemented
	case StatusUnavailable:
		return http.StatusServiceUnavailable
	case StatusDeadlineExceeed:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
