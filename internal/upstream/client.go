// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package upstream talks to the Shikimori-compatible tracking service.

A single [Client] owns the HTTP transport and the request budget shared by every
session. [Client.ForSession] binds it to one user's credential and returns the
[rates.Remote] the list engine drives.

Responsibilities:
  - Wire format: translating between the service's JSON and rates entities.
  - Budget: one token-bucket limiter in front of every request.
  - Errors: HTTP statuses become [apperr.AppError] values the gateway can render.
*/
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/taibuivan/ratesync/internal/platform/apperr"
	"github.com/taibuivan/ratesync/internal/platform/constants"
)

// maxErrorBody caps how much of a failed response is kept for logging.
const maxErrorBody = 2 << 10

// Observer receives one call per finished request. statusCode is zero when no
// response arrived.
type Observer interface {
	Upstream(endpoint string, statusCode int, elapsed time.Duration)
}

// Options configure a [Client].
type Options struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration

	// RPS and Burst size the limiter shared by all sessions.
	RPS   float64
	Burst int
}

// Client is the session-independent part of the tracking service client.
type Client struct {
	baseURL    *url.URL
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
	observer   Observer
}

/*
NewClient builds a client for options.BaseURL.

Parameters:
  - options: Options
  - logger: *slog.Logger
  - observer: Observer (may be nil)

Returns:
  - *Client
  - error: when the base URL does not parse
*/
func NewClient(options Options, logger *slog.Logger, observer Observer) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(options.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("upstream: invalid base URL %q", options.BaseURL)
	}

	limit := rate.Inf
	if options.RPS > 0 {
		limit = rate.Limit(options.RPS)
	}
	burst := options.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		baseURL:    base,
		userAgent:  options.UserAgent,
		httpClient: &http.Client{Timeout: options.Timeout},
		limiter:    rate.NewLimiter(limit, burst),
		logger:     logger,
		observer:   observer,
	}, nil
}

// ForSession returns the remote of one user, authenticated with token.
func (client *Client) ForSession(userID int64, token string) *UserRates {
	return &UserRates{client: client, userID: userID, token: token}
}

// # Transport

// call describes one request. A nil out discards the response body.
type call struct {
	endpoint string
	method   string
	path     string
	query    url.Values
	token    string
	body     any
	out      any
}

func (client *Client) do(ctx context.Context, request call) error {
	if err := client.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("upstream: %s: %w", request.endpoint, err)
	}

	httpRequest, err := client.newRequest(ctx, request)
	if err != nil {
		return apperr.Internal(fmt.Errorf("upstream: build %s: %w", request.endpoint, err))
	}

	started := time.Now()
	response, err := client.httpClient.Do(httpRequest)
	if err != nil {
		client.observe(request.endpoint, 0, started)
		client.logger.Warn("upstream_request_failed",
			slog.String("endpoint", request.endpoint),
			slog.Any("error", err),
		)
		return transportError(ctx, request.endpoint, err)
	}
	defer response.Body.Close()

	client.observe(request.endpoint, response.StatusCode, started)

	if response.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(response.Body, maxErrorBody))
		client.logger.Warn("upstream_request_rejected",
			slog.String("endpoint", request.endpoint),
			slog.Int("status", response.StatusCode),
			slog.String("body", string(body)),
		)
		return statusError(request.endpoint, response)
	}

	client.logger.Debug("upstream_request_completed",
		slog.String("endpoint", request.endpoint),
		slog.Int("status", response.StatusCode),
		slog.Duration("elapsed", time.Since(started)),
	)

	if request.out == nil || response.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(response.Body).Decode(request.out); err != nil {
		return apperr.BadGateway("The tracking service sent an unreadable response",
			fmt.Errorf("upstream: decode %s: %w", request.endpoint, err))
	}
	return nil
}

func (client *Client) newRequest(ctx context.Context, request call) (*http.Request, error) {
	target := client.baseURL.JoinPath(request.path)
	if len(request.query) > 0 {
		target.RawQuery = request.query.Encode()
	}

	var body io.Reader
	if request.body != nil {
		payload, err := json.Marshal(request.body)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(payload)
	}

	httpRequest, err := http.NewRequestWithContext(ctx, request.method, target.String(), body)
	if err != nil {
		return nil, err
	}

	httpRequest.Header.Set(constants.HeaderAccept, constants.ContentTypeJSON)
	httpRequest.Header.Set(constants.HeaderUserAgent, client.userAgent)
	if request.body != nil {
		httpRequest.Header.Set(constants.HeaderContentType, constants.ContentTypeJSON)
	}
	if request.token != "" {
		httpRequest.Header.Set(constants.HeaderAuthorization, "Bearer "+request.token)
	}
	return httpRequest, nil
}

func (client *Client) observe(endpoint string, statusCode int, started time.Time) {
	if client.observer != nil {
		client.observer.Upstream(endpoint, statusCode, time.Since(started))
	}
}

// # Error Mapping

func transportError(ctx context.Context, endpoint string, err error) error {
	wrapped := fmt.Errorf("upstream: %s: %w", endpoint, err)

	// The caller gave up; that is not the service's fault.
	if ctx.Err() != nil {
		return wrapped
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return apperr.GatewayTimeout(wrapped)
	}
	return apperr.BadGateway("The tracking service is unreachable", wrapped)
}

func statusError(endpoint string, response *http.Response) error {
	cause := fmt.Errorf("upstream: %s: status %d", endpoint, response.StatusCode)

	switch response.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperr.Unauthorized("The tracking service rejected the session credential").WithCause(cause)
	case http.StatusNotFound:
		return apperr.NotFound("Rate").WithCause(cause)
	case http.StatusUnprocessableEntity:
		return apperr.Unprocessable("The tracking service rejected the change").WithCause(cause)
	case http.StatusTooManyRequests:
		retryAfter, err := strconv.Atoi(response.Header.Get(constants.HeaderRetryAfter))
		if err != nil || retryAfter <= 0 {
			retryAfter = 1
		}
		return apperr.RateLimited(retryAfter).WithCause(cause)
	case http.StatusGatewayTimeout:
		return apperr.GatewayTimeout(cause)
	}
	return apperr.BadGateway("The tracking service failed", cause)
}
