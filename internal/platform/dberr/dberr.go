// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package dberr classifies preference-store failures.
package dberr

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/taibuivan/ratesync/internal/platform/apperr"
)

// ErrNotFound means the user has no stored row yet.
var ErrNotFound = apperr.NotFound("Preferences")

// queryCanceled is the SQLSTATE raised when statement_timeout fires.
const queryCanceled = "57014"

/*
Wrap classifies err from the statement named by action.

Returns:
  - nil for nil
  - ErrNotFound for a missing row
  - SERVICE_UNAVAILABLE for timeouts (the caller falls back to defaults)
  - INTERNAL_ERROR otherwise, with the action in the logged cause
*/
func Wrap(err error, action string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}

	cause := fmt.Errorf("%s: %w", action, err)

	var pgErr *pgconn.PgError
	timedOut := pgconn.Timeout(err) || errors.Is(err, context.DeadlineExceeded)
	if timedOut || (errors.As(err, &pgErr) && pgErr.Code == queryCanceled) {
		return apperr.ServiceUnavailable("The preference store timed out").WithCause(cause)
	}

	return apperr.Internal(cause)
}
