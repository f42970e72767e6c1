// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/taibuivan/ratesync/internal/platform/constants"
	"github.com/taibuivan/ratesync/internal/platform/respond"
)

// readinessTimeout bounds all dependency checks of one probe.
const readinessTimeout = 3 * time.Second

// Check probes one optional dependency.
type Check func(ctx context.Context) error

// HealthDependencies holds the dependency checks of the /ready endpoint.
// A nil check means the dependency is not configured and is skipped.
type HealthDependencies struct {
	// CheckDatabase pings the preference store.
	CheckDatabase Check

	// CheckCache pings the count cache.
	CheckCache Check

	// Sessions reports how many list sessions are live.
	Sessions func() int
}

type healthHandler struct {
	dependencies HealthDependencies
	logger       *slog.Logger
}

type checkResult struct {
	Name  string `json:"name"`
	IsOK  bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// NewHealthHandlers creates the /health and /ready http.HandlerFuncs.
func NewHealthHandlers(deps HealthDependencies, logger *slog.Logger) (liveness, readiness http.HandlerFunc) {
	handler := &healthHandler{dependencies: deps, logger: logger}
	return handler.liveness, handler.readiness
}

// liveness handles GET /health.
func (handler *healthHandler) liveness(writer http.ResponseWriter, request *http.Request) {
	respond.OK(writer, map[string]string{constants.FieldStatus: "ok"})
}

// readiness handles GET /ready. The gateway degrades gracefully without its
// stores, but an orchestrator should still hear about a configured store that
// stopped answering.
func (handler *healthHandler) readiness(writer http.ResponseWriter, request *http.Request) {
	ctx, cancel := context.WithTimeout(request.Context(), readinessTimeout)
	defer cancel()

	results := make([]checkResult, 0, 2)
	isReady := true

	for _, dependency := range []struct {
		name  string
		check Check
	}{
		{"postgres", handler.dependencies.CheckDatabase},
		{"redis", handler.dependencies.CheckCache},
	} {
		if dependency.check == nil {
			continue
		}

		result := checkResult{Name: dependency.name, IsOK: true}
		if err := dependency.check(ctx); err != nil {
			result.IsOK = false
			result.Error = err.Error()
			isReady = false
			handler.logger.Error("readiness_check_failed",
				slog.String("dependency", dependency.name),
				slog.Any("error", err),
			)
		}
		results = append(results, result)
	}

	payload := map[string]any{
		constants.FieldStatus: "ready",
		constants.FieldChecks: results,
	}
	if handler.dependencies.Sessions != nil {
		payload["sessions"] = handler.dependencies.Sessions()
	}

	if !isReady {
		payload[constants.FieldStatus] = "degraded"
		respond.JSON(writer, http.StatusServiceUnavailable, respond.SuccessEnvelope{Data: payload})
		return
	}
	respond.OK(writer, payload)
}
