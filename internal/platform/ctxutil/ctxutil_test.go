// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ctxutil_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/ratesync/internal/platform/ctxutil"
	"github.com/taibuivan/ratesync/internal/platform/sec"
)

/*
TestContext_RequestID verifies the correlation id round-trips.
*/
func TestContext_RequestID(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, ctxutil.RequestID(ctx))

	ctx = ctxutil.WithRequestID(ctx, "0190f3a2-req")
	assert.Equal(t, "0190f3a2-req", ctxutil.RequestID(ctx))
}

/*
TestContext_Logger verifies the default fallback and the request logger.
*/
func TestContext_Logger(t *testing.T) {
	ctx := context.Background()
	assert.Same(t, slog.Default(), ctxutil.Logger(ctx))

	var missing *slog.Logger
	assert.Same(t, slog.Default(), ctxutil.Logger(ctxutil.WithLogger(ctx, missing)))

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	assert.Same(t, logger, ctxutil.Logger(ctxutil.WithLogger(ctx, logger)))
}

/*
TestContext_Claims verifies anonymous and signed-in contexts.
*/
func TestContext_Claims(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, ctxutil.Claims(ctx))

	ctx = ctxutil.WithClaims(ctx, &sec.AuthClaims{UserID: 123, UpstreamToken: "upstream"})

	claims := ctxutil.Claims(ctx)
	require.NotNil(t, claims)
	assert.Equal(t, int64(123), claims.UserID)
	assert.Equal(t, "upstream", claims.UpstreamToken)
}
