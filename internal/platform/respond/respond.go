// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package respond writes the gateway's JSON bodies.

Every body is one of two envelopes:

	{"data": ...}                               success, including rejected mutations
	{"error": "...", "code": "...", "details"}  a request that could not run

Handlers never call [encoding/json] on the writer directly.
*/
package respond

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/taibuivan/ratesync/internal/platform/apperr"
	"github.com/taibuivan/ratesync/internal/platform/constants"
	"github.com/taibuivan/ratesync/internal/platform/ctxutil"
)

// SuccessEnvelope wraps every payload that carries state.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// ErrorEnvelope is the body of a failed request.
type ErrorEnvelope struct {
	Error   string              `json:"error"`
	Code    string              `json:"code"`
	Details []apperr.FieldError `json:"details,omitempty"`
}

// JSON writes payload with statusCode.
func JSON(writer http.ResponseWriter, statusCode int, payload any) {
	writer.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON+"; charset=utf-8")
	writer.WriteHeader(statusCode)
	_ = json.NewEncoder(writer).Encode(payload)
}

// OK writes data with 200.
func OK(writer http.ResponseWriter, data any) {
	JSON(writer, http.StatusOK, SuccessEnvelope{Data: data})
}

// Accepted writes data with 202, for changes whose effect arrives later on the stream.
func Accepted(writer http.ResponseWriter, data any) {
	JSON(writer, http.StatusAccepted, SuccessEnvelope{Data: data})
}

/*
Error renders err as an [ErrorEnvelope].

Description: Errors that are not an [apperr.AppError] are logged in full and
reported as a bare 500. Every 5xx is logged with its cause; the cause never
reaches the client.
*/
func Error(writer http.ResponseWriter, request *http.Request, err error) {
	logger := ctxutil.Logger(request.Context())

	appError := apperr.As(err)
	if appError == nil {
		logger.ErrorContext(request.Context(), "unclassified_error",
			slog.String("request_id", ctxutil.RequestID(request.Context())),
			slog.Any("error", err),
		)
		appError = apperr.Internal(err)
	}

	if appError.HTTPStatus >= http.StatusInternalServerError {
		logger.ErrorContext(request.Context(), "api_server_error",
			slog.String("code", appError.Code),
			slog.String("request_id", ctxutil.RequestID(request.Context())),
			slog.Any("cause", appError.Cause),
		)
	}

	if appError.RetryAfter > 0 {
		writer.Header().Set(constants.HeaderRetryAfter, strconv.Itoa(appError.RetryAfter))
	}

	JSON(writer, appError.HTTPStatus, ErrorEnvelope{
		Error:   appError.Message,
		Code:    appError.Code,
		Details: appError.Details,
	})
}
