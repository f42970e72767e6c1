// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/ratesync/internal/platform/constants"
	"github.com/taibuivan/ratesync/internal/platform/ctxutil"
	"github.com/taibuivan/ratesync/internal/platform/middleware"
	"github.com/taibuivan/ratesync/internal/platform/sec"
)

var okHandler = http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
	writer.WriteHeader(http.StatusOK)
})

func errorCode(t *testing.T, recorder *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	return body.Code
}

/*
TestRequestID verifies a client id is kept and a missing one is generated.
*/
func TestRequestID(t *testing.T) {
	var seen string
	handler := middleware.RequestID()(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		seen = ctxutil.RequestID(request.Context())
	}))

	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.Header.Set(constants.HeaderXRequestID, "client-id")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	assert.Equal(t, "client-id", seen)
	assert.Equal(t, "client-id", recorder.Header().Get(constants.HeaderXRequestID))

	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, recorder.Header().Get(constants.HeaderXRequestID))
}

/*
TestIPRateLimiter verifies the burst is enforced per client.
*/
func TestIPRateLimiter(t *testing.T) {
	limiter := middleware.NewIPRateLimiter(0.001, 2)
	handler := limiter.Middleware(okHandler)

	serve := func(ip string) *httptest.ResponseRecorder {
		request := httptest.NewRequest(http.MethodGet, "/", nil)
		request.Header.Set(constants.HeaderXRealIP, ip)
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, request)
		return recorder
	}

	assert.Equal(t, http.StatusOK, serve("10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, serve("10.0.0.1").Code)

	limited := serve("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "1", limited.Header().Get(constants.HeaderRetryAfter))
	assert.Equal(t, "RATE_LIMITED", errorCode(t, limited))

	assert.Equal(t, http.StatusOK, serve("10.0.0.2").Code)

	limiter.Sweep(-time.Second)
	assert.Equal(t, http.StatusOK, serve("10.0.0.1").Code)
}

/*
TestPanicRecovery verifies a panic becomes an internal error body.
*/
func TestPanicRecovery(t *testing.T) {
	handler := middleware.PanicRecovery()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("list loop exploded")
	}))

	recorder := httptest.NewRecorder()
	assert.NotPanics(t, func() {
		handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
	})

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	assert.Equal(t, "INTERNAL_ERROR", errorCode(t, recorder))
}

type fakeVerifier struct{}

func (fakeVerifier) VerifyToken(token string) (*sec.AuthClaims, error) {
	if token != "good" {
		return nil, errors.New("bad token")
	}
	return &sec.AuthClaims{UserID: 9}, nil
}

/*
TestAuthenticate covers anonymous, malformed, rejected and accepted credentials.
*/
func TestAuthenticate(t *testing.T) {
	var claims *sec.AuthClaims
	handler := middleware.Authenticate(fakeVerifier{})(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		claims = ctxutil.Claims(request.Context())
	}))

	tests := []struct {
		name       string
		target     string
		header     map[string]string
		wantStatus int
		wantUser   int64
	}{
		{"Anonymous", "/", nil, http.StatusOK, 0},
		{"Malformed", "/", map[string]string{"Authorization": "Token good"}, http.StatusUnauthorized, 0},
		{"Rejected", "/", map[string]string{"Authorization": "Bearer bad"}, http.StatusUnauthorized, 0},
		{"Accepted", "/", map[string]string{"Authorization": "Bearer good"}, http.StatusOK, 9},
		{"Stream Query Token", "/stream?access_token=good", map[string]string{"Upgrade": "websocket"}, http.StatusOK, 9},
		{"Query Token Needs Upgrade", "/stream?access_token=good", nil, http.StatusOK, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims = nil
			request := httptest.NewRequest(http.MethodGet, tt.target, nil)
			for key, value := range tt.header {
				request.Header.Set(key, value)
			}
			recorder := httptest.NewRecorder()

			handler.ServeHTTP(recorder, request)

			assert.Equal(t, tt.wantStatus, recorder.Code)
			if tt.wantUser == 0 {
				assert.Nil(t, claims)
			} else {
				require.NotNil(t, claims)
				assert.Equal(t, tt.wantUser, claims.UserID)
			}
		})
	}
}

/*
TestRequireAuth verifies anonymous requests are refused.
*/
func TestRequireAuth(t *testing.T) {
	handler := middleware.RequireAuth(okHandler)

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request = request.WithContext(ctxutil.WithClaims(request.Context(), &sec.AuthClaims{UserID: 1}))
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusOK, recorder.Code)
}

type corsConfig struct {
	development bool
	origins     []string
}

func (config corsConfig) IsDevelopment() bool      { return config.development }
func (config corsConfig) AllowedOrigins() []string { return config.origins }

/*
TestCORS verifies allowed origins get headers and preflights short-circuit.
*/
func TestCORS(t *testing.T) {
	handler := middleware.CORS(corsConfig{origins: []string{"https://app.tracker.example"}})(okHandler)

	request := httptest.NewRequest(http.MethodOptions, "/api/v1/list/", nil)
	request.Header.Set(constants.HeaderOrigin, "https://app.tracker.example")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusNoContent, recorder.Code)
	assert.Equal(t, "https://app.tracker.example", recorder.Header().Get("Access-Control-Allow-Origin"))

	request = httptest.NewRequest(http.MethodGet, "/api/v1/list/", nil)
	request.Header.Set(constants.HeaderOrigin, "https://elsewhere.example")
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Empty(t, recorder.Header().Get("Access-Control-Allow-Origin"))
}

/*
TestOriginAllowed verifies origins are compared by scheme and host only.
*/
func TestOriginAllowed(t *testing.T) {
	allowed := []string{"https://app.tracker.example", "http://localhost:5173"}

	tests := []struct {
		name   string
		origin string
		want   bool
	}{
		{name: "exact", origin: "https://app.tracker.example", want: true},
		{name: "with path", origin: "https://app.tracker.example/list", want: true},
		{name: "with port", origin: "http://localhost:5173", want: true},
		{name: "other scheme", origin: "http://app.tracker.example", want: false},
		{name: "suffix only", origin: "https://evil-app.tracker.example", want: false},
		{name: "malformed", origin: "::not a url", want: false},
		{name: "bare host", origin: "app.tracker.example", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, middleware.OriginAllowed(allowed, tt.origin))
		})
	}
}
