// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package debounce turns a burst of inputs into a single, latest-wins handler call.

Pipeline:

  - Quiescence: every [Debouncer.Push] restarts the window timer.
  - Deduplication: a value equal to the last delivered one is dropped.
  - Single concurrency: delivering a new value cancels the context of the
    handler call still running for the previous one.
  - Containment: handler errors and panics are reported to OnError and never
    escape the pipeline.
*/
package debounce

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Handler processes one settled value. It should honour ctx cancellation.
type Handler[T comparable] func(ctx context.Context, value T) error

// Debouncer delays values until input has been quiet for the configured window.
type Debouncer[T comparable] struct {
	window  time.Duration
	handler Handler[T]
	onError func(error)

	mu        sync.Mutex
	timer     *time.Timer
	pending   T
	last      T
	delivered bool
	cancel    context.CancelFunc
	stopped   bool
}

// New constructs a [Debouncer]. onError may be nil.
func New[T comparable](window time.Duration, handler Handler[T], onError func(error)) *Debouncer[T] {
	return &Debouncer[T]{
		window:  window,
		handler: handler,
		onError: onError,
	}
}

// Push records value as the newest input and restarts the quiescence window.
func (debouncer *Debouncer[T]) Push(value T) {
	debouncer.mu.Lock()
	defer debouncer.mu.Unlock()

	if debouncer.stopped {
		return
	}

	debouncer.pending = value
	if debouncer.timer != nil {
		debouncer.timer.Stop()
	}
	debouncer.timer = time.AfterFunc(debouncer.window, debouncer.fire)
}

// Stop discards pending input and cancels a running handler call.
func (debouncer *Debouncer[T]) Stop() {
	debouncer.mu.Lock()
	defer debouncer.mu.Unlock()

	debouncer.stopped = true
	if debouncer.timer != nil {
		debouncer.timer.Stop()
	}
	if debouncer.cancel != nil {
		debouncer.cancel()
	}
}

func (debouncer *Debouncer[T]) fire() {
	debouncer.mu.Lock()

	value := debouncer.pending
	if debouncer.stopped || (debouncer.delivered && value == debouncer.last) {
		debouncer.mu.Unlock()
		return
	}

	// Latest wins: the previous call loses its context.
	if debouncer.cancel != nil {
		debouncer.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	debouncer.cancel = cancel
	debouncer.last = value
	debouncer.delivered = true

	debouncer.mu.Unlock()

	go debouncer.run(ctx, cancel, value)
}

func (debouncer *Debouncer[T]) run(ctx context.Context, cancel context.CancelFunc, value T) {
	defer cancel()
	defer func() {
		if recovered := recover(); recovered != nil && ctx.Err() == nil {
			debouncer.fail(fmt.Errorf("debounce: handler panic: %v", recovered))
		}
	}()

	if err := debouncer.handler(ctx, value); err != nil && ctx.Err() == nil {
		debouncer.fail(err)
	}
}

func (debouncer *Debouncer[T]) fail(err error) {
	// A failed value must be deliverable again.
	debouncer.mu.Lock()
	debouncer.delivered = false
	debouncer.mu.Unlock()

	if debouncer.onError != nil {
		debouncer.onError(err)
	}
}
