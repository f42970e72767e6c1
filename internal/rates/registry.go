// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package rates

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/taibuivan/ratesync/internal/platform/sec"
)

// Session identifies the caller of the gateway.
type Session struct {
	UserID int64

	// Token is the credential forwarded to the tracking service.
	Token string
}

// RemoteFactory builds the tracking-service client of one session.
type RemoteFactory func(session Session) Remote

type registered struct {
	list        *List
	fingerprint string
}

// Registry keeps one [List] per user, created on first use and evicted once idle.
type Registry struct {
	factory RemoteFactory
	config  Config
	deps    Dependencies
	idleTTL time.Duration
	logger  *slog.Logger

	mu    sync.Mutex
	lists map[int64]*registered
}

// NewRegistry constructs a [Registry]. deps.Remote is ignored; factory supplies one per session.
func NewRegistry(factory RemoteFactory, config Config, deps Dependencies, idleTTL time.Duration) *Registry {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		factory: factory,
		config:  config,
		deps:    deps,
		idleTTL: idleTTL,
		logger:  logger,
		lists:   make(map[int64]*registered),
	}
}

/*
Acquire returns the running list of session.UserID, starting one if needed.

Description: A session presenting a different upstream token than the one the
list was built with replaces the list, so requests never run with a stale
credential. The list is started outside the registry lock: a slow preference
read holds up only the callers of that user.

Parameters:
  - context: context.Context
  - session: Session

Returns:
  - *List: a started list
*/
func (registry *Registry) Acquire(context context.Context, session Session) *List {
	list := registry.lookup(session)

	if err := list.Start(context); err != nil {
		registry.logger.Warn("rate_list_start_degraded",
			slog.Int64("user_id", session.UserID),
			slog.Any("error", err),
		)
	}
	return list
}

// lookup returns the registered list of the session's user, replacing it when
// the credential changed. The returned list may not be started yet.
func (registry *Registry) lookup(session Session) *List {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	fingerprint := sec.Fingerprint(session.Token)
	if current, ok := registry.lists[session.UserID]; ok {
		if current.fingerprint == fingerprint {
			current.list.touch()
			return current.list
		}
		registry.logger.Info("rate_session_credential_changed",
			slog.Int64("user_id", session.UserID),
			slog.String("token_fingerprint", fingerprint),
		)
		go current.list.Close()
		delete(registry.lists, session.UserID)
	}

	deps := registry.deps
	deps.Remote = registry.factory(session)

	list := NewList(session.UserID, registry.config, deps)
	registry.lists[session.UserID] = &registered{list: list, fingerprint: fingerprint}
	return list
}

// Len returns the number of live sessions.
func (registry *Registry) Len() int {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	return len(registry.lists)
}

// Run evicts idle sessions every interval until ctx is cancelled, then closes all of them.
func (registry *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	registry.logger.Info("rate_registry_started",
		slog.Duration("interval", interval),
		slog.Duration("idle_ttl", registry.idleTTL),
	)

	for {
		select {
		case <-ctx.Done():
			registry.Close()
			registry.logger.Info("rate_registry_stopped")
			return
		case now := <-ticker.C:
			registry.Evict(now)
		}
	}
}

// Evict closes every session idle since before now minus the idle TTL.
// It returns the number of sessions closed.
func (registry *Registry) Evict(now time.Time) int {
	registry.mu.Lock()
	var idle []*List
	for userID, current := range registry.lists {
		if now.Sub(current.list.LastActivity()) >= registry.idleTTL {
			idle = append(idle, current.list)
			delete(registry.lists, userID)
		}
	}
	registry.mu.Unlock()

	for _, list := range idle {
		list.Close()
	}
	if len(idle) > 0 {
		registry.logger.Info("rate_sessions_evicted", slog.Int("count", len(idle)))
	}
	return len(idle)
}

// Close closes every session.
func (registry *Registry) Close() {
	registry.mu.Lock()
	lists := make([]*List, 0, len(registry.lists))
	for userID, current := range registry.lists {
		lists = append(lists, current.list)
		delete(registry.lists, userID)
	}
	registry.mu.Unlock()

	for _, list := range lists {
		list.Close()
	}
}
