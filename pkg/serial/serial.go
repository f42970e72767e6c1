// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package serial provides a single-consumer task queue.

Every task posted to a [Queue] runs on the same goroutine, one after another, in
posting order. State that is only touched from queued tasks needs no locking.

Tasks must not call [Queue.Do] on their own queue: they already run on it.
*/
package serial

import (
	"context"
	"errors"
	"sync"
)

// ErrStopped is returned when work is submitted to a queue whose loop has exited.
var ErrStopped = errors.New("serial: queue stopped")

// defaultBuffer bounds the number of tasks waiting for the loop.
const defaultBuffer = 64

// Queue runs submitted tasks sequentially on a single goroutine.
type Queue struct {
	tasks chan func()
	done  chan struct{}
	once  sync.Once
}

// New constructs an idle [Queue]. Call [Queue.Run] to start consuming.
func New() *Queue {
	return &Queue{
		tasks: make(chan func(), defaultBuffer),
		done:  make(chan struct{}),
	}
}

// Run consumes tasks until ctx is cancelled. It blocks.
func (queue *Queue) Run(ctx context.Context) {
	defer queue.once.Do(func() { close(queue.done) })

	for {
		select {
		case <-ctx.Done():
			return
		case task := <-queue.tasks:
			task()
		}
	}
}

// Post enqueues task without waiting for it to run.
// It reports false when the queue has stopped.
func (queue *Queue) Post(task func()) bool {
	select {
	case <-queue.done:
		return false
	default:
	}

	select {
	case queue.tasks <- task:
		return true
	case <-queue.done:
		return false
	}
}

/*
Do enqueues task and waits for it to finish.

Parameters:
  - ctx: context.Context (abandons the wait, and the task if it has not started)
  - task: func()

Returns:
  - error: ErrStopped, ctx.Err() or nil
*/
func (queue *Queue) Do(ctx context.Context, task func()) error {
	finished := make(chan error, 1)

	wrapped := func() {
		if err := ctx.Err(); err != nil {
			finished <- err
			return
		}
		task()
		finished <- nil
	}

	select {
	case queue.tasks <- wrapped:
	case <-queue.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-finished:
		return err
	case <-queue.done:
		// The loop may have run the task right before exiting.
		select {
		case err := <-finished:
			return err
		default:
			return ErrStopped
		}
	}
}

// Done is closed once the loop has exited.
func (queue *Queue) Done() <-chan struct{} {
	return queue.done
}
