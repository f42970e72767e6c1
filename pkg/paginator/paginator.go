// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package paginator provides a generic, single-flight cursor pagination driver.

It knows nothing about what is being paged. The caller supplies the fetch
function, the rule that derives the next cursor from a page, and the callbacks
that receive pages and failures.

Guarantees:

  - Single-flight: at most one fetch is in flight; overlapping calls are dropped.
  - Resumable: a failed fetch leaves the cursor where it was.
  - No policy: retries, end-of-data handling and backoff belong to the caller.
*/
package paginator

import (
	"context"
	"sync"
)

// Config wires a [Paginator] to its data source and observers.
type Config[K any, T any] struct {
	// Initial is the cursor used for the first page and restored by [Paginator.Reset].
	Initial K

	// Fetch loads the page addressed by key.
	Fetch func(ctx context.Context, key K) ([]T, error)

	// NextKey derives the cursor that follows key once its page has arrived.
	NextKey func(key K, items []T) K

	// OnLoading reports busy transitions. Optional.
	OnLoading func(loading bool)

	// OnSuccess receives every fetched page together with the advanced cursor.
	OnSuccess func(items []T, next K)

	// OnError receives fetch failures. Optional.
	OnError func(err error)
}

// Paginator drives a cursor through a remote collection one page at a time.
type Paginator[K any, T any] struct {
	config Config[K, T]

	mu   sync.Mutex
	key  K
	busy bool
}

// New constructs a [Paginator] positioned at config.Initial.
func New[K any, T any](config Config[K, T]) *Paginator[K, T] {
	return &Paginator[K, T]{
		config: config,
		key:    config.Initial,
	}
}

/*
LoadNext fetches the page at the current cursor.

Description: When another load is already in flight the call returns false
immediately without touching the data source. Otherwise it blocks until the
fetch resolves and the matching callback has returned.

Parameters:
  - ctx: context.Context (passed to Fetch)

Returns:
  - bool: false when the call was dropped by the single-flight guard
*/
func (paginator *Paginator[K, T]) LoadNext(ctx context.Context) bool {

	// Single-flight guard
	paginator.mu.Lock()
	if paginator.busy {
		paginator.mu.Unlock()
		return false
	}
	paginator.busy = true
	key := paginator.key
	paginator.mu.Unlock()

	paginator.notifyLoading(true)

	items, err := paginator.config.Fetch(ctx, key)
	if err != nil {
		if paginator.config.OnError != nil {
			paginator.config.OnError(err)
		}
		paginator.finish()
		return true
	}

	next := paginator.config.NextKey(key, items)

	paginator.mu.Lock()
	paginator.key = next
	paginator.mu.Unlock()

	if paginator.config.OnSuccess != nil {
		paginator.config.OnSuccess(items, next)
	}
	paginator.finish()

	return true
}

// Reset moves the cursor back to its initial value. It does not clear the busy
// flag; resetting while a load is in flight is the caller's responsibility.
func (paginator *Paginator[K, T]) Reset() {
	paginator.mu.Lock()
	defer paginator.mu.Unlock()
	paginator.key = paginator.config.Initial
}

// Key returns the cursor the next load will use.
func (paginator *Paginator[K, T]) Key() K {
	paginator.mu.Lock()
	defer paginator.mu.Unlock()
	return paginator.key
}

// Busy reports whether a load is in flight.
func (paginator *Paginator[K, T]) Busy() bool {
	paginator.mu.Lock()
	defer paginator.mu.Unlock()
	return paginator.busy
}

func (paginator *Paginator[K, T]) finish() {
	paginator.mu.Lock()
	paginator.busy = false
	paginator.mu.Unlock()

	paginator.notifyLoading(false)
}

func (paginator *Paginator[K, T]) notifyLoading(loading bool) {
	if paginator.config.OnLoading != nil {
		paginator.config.OnLoading(loading)
	}
}
