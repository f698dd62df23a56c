package http

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is an error together with the status and code it is reported
// with. Validation failures use the same shape with Field set.
type AppError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Field   string                 `json:"field,omitempty"`
	Params  map[string]interface{} `json:"params,omitempty"`
	Status  int                    `json:"-"`
	Err     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithError attaches the underlying cause. It is never serialized.
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

// WithParam sets one entry of Params.
func (e *AppError) WithParam(key string, value interface{}) *AppError {
	if e.Params == nil {
		e.Params = make(map[string]interface{})
	}
	e.Params[key] = value
	return e
}

func newAppError(status int, code, message string) *AppError {
	return &AppError{Code: code, Message: message, Status: status}
}

func BadRequestError(message string) *AppError {
	return newAppError(http.StatusBadRequest, "ERR_BAD_REQUEST", message)
}

func NotFoundError(message string) *AppError {
	return newAppError(http.StatusNotFound, "ERR_NOT_FOUND", message)
}

// UnprocessableError is for well-formed input that cannot be used, such as a
// series too short to decompose.
func UnprocessableError(message string) *AppError {
	return newAppError(http.StatusUnprocessableEntity, "ERR_UNPROCESSABLE", message)
}

func TooManyRequestsError(message string) *AppError {
	return newAppError(http.StatusTooManyRequests, "ERR_TOO_MANY_REQUESTS", message)
}

func ServiceUnavailableError(message string) *AppError {
	return newAppError(http.StatusServiceUnavailable, "ERR_UNAVAILABLE", message)
}

func InternalError(message string) *AppError {
	return newAppError(http.StatusInternalServerError, "ERR_INTERNAL", message)
}

// ErrorRule turns errors matching Target into an AppError. Build receives
// the full error text.
type ErrorRule struct {
	Target error
	Build  func(message string) *AppError
}

// ErrorMap resolves errors against its rules in order; the first rule whose
// Target matches by errors.Is wins.
type ErrorMap []ErrorRule

// Resolve returns err itself when it already is an AppError. Errors no rule
// matches become an opaque 500 so internals never reach the client.
func (m ErrorMap) Resolve(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	for _, r := range m {
		if errors.Is(err, r.Target) {
			return r.Build(err.Error()).WithError(err)
		}
	}
	return InternalError("internal error").WithError(err)
}
