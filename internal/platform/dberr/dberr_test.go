// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package dberr_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/ratesync/internal/platform/apperr"
	"github.com/taibuivan/ratesync/internal/platform/dberr"
)

/*
TestWrap verifies the classification of driver errors.
*/
func TestWrap(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"No Rows", fmt.Errorf("scan: %w", pgx.ErrNoRows), apperr.CodeNotFound},
		{"Statement Timeout", &pgconn.PgError{Code: "57014"}, apperr.CodeUnavailable},
		{"Deadline", context.DeadlineExceeded, apperr.CodeUnavailable},
		{"Other", errors.New("connection reset"), apperr.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := dberr.Wrap(tt.err, "get preferences")

			assert.Equal(t, tt.wantCode, apperr.As(wrapped).Code)
		})
	}

	assert.NoError(t, dberr.Wrap(nil, "get preferences"))
	assert.ErrorIs(t, dberr.Wrap(pgx.ErrNoRows, "get preferences"), dberr.ErrNotFound)
}
