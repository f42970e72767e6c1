// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package ctxkey holds the typed keys of the per-request context values.
//
// The key type is unexported, so no other package can read or overwrite these
// values except through [ctxutil].
package ctxkey

type key int

const (
	// KeyRequestID carries the X-Request-ID correlation value.
	KeyRequestID key = iota

	// KeyClaims carries the verified session token ([sec.AuthClaims]).
	KeyClaims

	// KeyLogger carries the request-scoped [*log/slog.Logger].
	KeyLogger
)
