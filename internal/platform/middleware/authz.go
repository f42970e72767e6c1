// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/taibuivan/ratesync/internal/platform/apperr"
	"github.com/taibuivan/ratesync/internal/platform/constants"
	"github.com/taibuivan/ratesync/internal/platform/ctxutil"
	"github.com/taibuivan/ratesync/internal/platform/respond"
	"github.com/taibuivan/ratesync/internal/platform/sec"
)

// TokenVerifier defines the interface needed to verify tokens in middleware.
type TokenVerifier interface {
	VerifyToken(tokenStr string) (*sec.AuthClaims, error)
}

// Authenticate extracts and verifies the session token.
//
// # Flow
//  1. Read 'Authorization: Bearer <token>', or the 'access_token' query
//     parameter on WebSocket upgrades (browsers cannot set headers there).
//  2. If absent, request proceeds as anonymous.
//  3. If present, verify it via [TokenVerifier].
//  4. Inject [*sec.AuthClaims] into the request context and tag the request
//     logger with the user id.
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			tokenStr, present, valid := bearerToken(request)

			// ── 1. Anonymous Access ───────────────────────────────────────────
			if !present {
				next.ServeHTTP(writer, request)
				return
			}

			// ── 2. Format Validation ──────────────────────────────────────────
			if !valid {
				respond.Error(writer, request, apperr.Unauthorized("Invalid authorization format"))
				return
			}

			// ── 3. Token Verification ─────────────────────────────────────────
			claims, err := verifier.VerifyToken(tokenStr)
			if err != nil {
				respond.Error(writer, request, apperr.Unauthorized("Invalid or expired token"))
				return
			}

			// ── 4. Context Injection ──────────────────────────────────────────
			ctx := ctxutil.WithClaims(request.Context(), claims)
			ctx = ctxutil.WithLogger(ctx, ctxutil.Logger(ctx).With(slog.Int64("user_id", claims.UserID)))
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

func bearerToken(request *http.Request) (token string, present, valid bool) {
	authHeader := request.Header.Get(constants.HeaderAuthorization)
	if authHeader == "" {
		if strings.EqualFold(request.Header.Get("Upgrade"), "websocket") {
			if token = request.URL.Query().Get("access_token"); token != "" {
				return token, true, true
			}
		}
		return "", false, false
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
		return "", true, false
	}
	return parts[1], true, true
}

// RequireAuth blocks requests that are not authenticated.
//
// Must be registered in the router AFTER [Authenticate].
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if ctxutil.Claims(request.Context()) == nil {
			respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
			return
		}
		next.ServeHTTP(writer, request)
	})
}
