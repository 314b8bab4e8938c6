package http

import (
	"fmt"
	"net/http"
)

// Error codes carried in AppError.Code.
const (
	CodeBadRequest  = "ERR_BAD_REQUEST"
	CodeNotFound    = "ERR_NOT_FOUND"
	CodeRateLimited = "ERR_RATE_LIMITED"
	CodeUpstream    = "ERR_PROVIDER_UNAVAILABLE"
	CodeInternal    = "ERR_INTERNAL"
	CodeUnknown     = "ERR_UNKNOWN"
)

// AppError is an error that knows its HTTP status and client-facing code.
type AppError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Field   string                 `json:"field,omitempty"`
	Params  map[string]interface{} `json:"params,omitempty"`
	Status  int                    `json:"-"`
	Err     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *AppError) Unwrap() error { return e.Err }

func NewAppError(code, field, message string, status int) *AppError {
	return &AppError{Code: code, Field: field, Message: message, Status: status}
}

func (e *AppError) WithParam(key string, value interface{}) *AppError {
	if e.Params == nil {
		e.Params = map[string]interface{}{}
	}
	e.Params[key] = value
	return e
}

// WithError attaches the cause. It is logged, never serialized.
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

func statusError(code string, status int, format string, a ...interface{}) *AppError {
	msg := format
	if len(a) > 0 {
		msg = fmt.Sprintf(format, a...)
	}
	return NewAppError(code, "", msg, status)
}

func BadRequestErrorf(format string, a ...interface{}) *AppError {
	return statusError(CodeBadRequest, http.StatusBadRequest, format, a...)
}

func NotFoundErrorf(format string, a ...interface{}) *AppError {
	return statusError(CodeNotFound, http.StatusNotFound, format, a...)
}

func RateLimitedError() *AppError {
	return statusError(CodeRateLimited, http.StatusTooManyRequests, "too many requests")
}

// UpstreamError reports a market data provider that could not be reached.
func UpstreamError(err error) *AppError {
	return statusError(CodeUpstream, http.StatusBadGateway, "upstream provider unavailable").WithError(err)
}

func InternalError(message string) *AppError {
	return statusError(CodeInternal, http.StatusInternalServerError, "%s", message)
}
