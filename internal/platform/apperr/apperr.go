// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package apperr defines the one error type the gateway shows to clients.

Low-level failures (the preference store, the tracking service, a closed
session) are classified into an [AppError] at the boundary where they happen.
The classification picks the HTTP status and the machine-readable code; the
original error travels in Cause for the logs only.

Codes:

	VALIDATION_ERROR     400  bad input, with per-field details
	UNAUTHORIZED         401  missing or rejected credentials
	NOT_FOUND            404
	CONFLICT             409  the session is busy with the same work
	UNPROCESSABLE        422  valid input the current state cannot accept
	RATE_LIMITED         429  RetryAfter says when to come back
	INTERNAL_ERROR       500
	UPSTREAM_ERROR       502  the tracking service failed
	SERVICE_UNAVAILABLE  503
	UPSTREAM_TIMEOUT     504
*/
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Machine-readable codes.
const (
	CodeValidation      = "VALIDATION_ERROR"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeNotFound        = "NOT_FOUND"
	CodeConflict        = "CONFLICT"
	CodeUnprocessable   = "UNPROCESSABLE"
	CodeRateLimited     = "RATE_LIMITED"
	CodeInternal        = "INTERNAL_ERROR"
	CodeUpstream        = "UPSTREAM_ERROR"
	CodeUnavailable     = "SERVICE_UNAVAILABLE"
	CodeUpstreamTimeout = "UPSTREAM_TIMEOUT"
)

// AppError is a classified, client-safe error.
type AppError struct {
	Code    string       `json:"code"`
	Message string       `json:"error"`
	Details []FieldError `json:"details,omitempty"`

	HTTPStatus int `json:"-"`

	// RetryAfter is the back-off in seconds of a RATE_LIMITED error.
	RetryAfter int `json:"-"`

	// Cause is logged server-side and never serialized.
	Cause error `json:"-"`
}

// FieldError names one input field that failed validation.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *AppError) Error() string { return e.Message }

func (e *AppError) Unwrap() error { return e.Cause }

// WithCause returns a copy of e carrying cause. Shared sentinel values stay untouched.
func (e *AppError) WithCause(cause error) *AppError {
	clone := *e
	clone.Cause = cause
	return &clone
}

func newError(status int, code, message string) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status}
}

// # Request Errors

// ValidationError reports bad input. details list the offending fields.
func ValidationError(msg string, details ...FieldError) *AppError {
	err := newError(http.StatusBadRequest, CodeValidation, msg)
	err.Details = details
	return err
}

func Unauthorized(msg string) *AppError {
	return newError(http.StatusUnauthorized, CodeUnauthorized, msg)
}

// NotFound names the missing resource: NotFound("Entry") reads "Entry not found".
func NotFound(resource string) *AppError {
	return newError(http.StatusNotFound, CodeNotFound, resource+" not found")
}

func Conflict(msg string) *AppError {
	return newError(http.StatusConflict, CodeConflict, msg)
}

func Unprocessable(msg string) *AppError {
	return newError(http.StatusUnprocessableEntity, CodeUnprocessable, msg)
}

// RateLimited asks the client to wait retryAfterSeconds.
func RateLimited(retryAfterSeconds int) *AppError {
	err := newError(http.StatusTooManyRequests, CodeRateLimited,
		fmt.Sprintf("Too many requests. Try again in %ds.", retryAfterSeconds))
	err.RetryAfter = retryAfterSeconds
	return err
}

// # Server Errors

// Internal hides an unexpected failure behind a generic message.
func Internal(cause error) *AppError {
	return newError(http.StatusInternalServerError, CodeInternal, "An unexpected error occurred").WithCause(cause)
}

// BadGateway reports a failed tracking-service call.
func BadGateway(msg string, cause error) *AppError {
	return newError(http.StatusBadGateway, CodeUpstream, msg).WithCause(cause)
}

func ServiceUnavailable(msg string) *AppError {
	return newError(http.StatusServiceUnavailable, CodeUnavailable, msg)
}

// GatewayTimeout reports a tracking-service call that ran out of time.
func GatewayTimeout(cause error) *AppError {
	return newError(http.StatusGatewayTimeout, CodeUpstreamTimeout,
		"The tracking service did not respond in time").WithCause(cause)
}

// As returns the first [*AppError] in err's chain, or nil.
func As(err error) *AppError {
	var appError *AppError
	if errors.As(err, &appError) {
		return appError
	}
	return nil
}
