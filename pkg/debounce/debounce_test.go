// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package debounce_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/ratesync/pkg/debounce"
)

const window = 20 * time.Millisecond

type recorder struct {
	mu     sync.Mutex
	values []string
	errs   []error
}

func (r *recorder) handle(ctx context.Context, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, value)
	return nil
}

func (r *recorder) fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *recorder) snapshot() ([]string, []error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.values...), append([]error(nil), r.errs...)
}

/*
TestDebouncer_CoalescesBurst delivers only the last value of a burst.
*/
func TestDebouncer_CoalescesBurst(t *testing.T) {
	rec := &recorder{}
	debouncer := debounce.New(window, rec.handle, rec.fail)
	defer debouncer.Stop()

	for _, keystroke := range []string{"n", "na", "nar", "naru"} {
		debouncer.Push(keystroke)
	}

	require.Eventually(t, func() bool {
		values, _ := rec.snapshot()
		return len(values) == 1
	}, time.Second, 5*time.Millisecond)

	time.Sleep(3 * window)
	values, _ := rec.snapshot()
	assert.Equal(t, []string{"naru"}, values)
}

/*
TestDebouncer_DropsDuplicates ignores a settled value equal to the last delivered one.
*/
func TestDebouncer_DropsDuplicates(t *testing.T) {
	rec := &recorder{}
	debouncer := debounce.New(window, rec.handle, rec.fail)
	defer debouncer.Stop()

	debouncer.Push("bleach")
	require.Eventually(t, func() bool {
		values, _ := rec.snapshot()
		return len(values) == 1
	}, time.Second, 5*time.Millisecond)

	debouncer.Push("bleach")
	time.Sleep(4 * window)

	values, _ := rec.snapshot()
	assert.Equal(t, []string{"bleach"}, values)
}

/*
TestDebouncer_ContainsFailures routes handler errors and panics to onError.
*/
func TestDebouncer_ContainsFailures(t *testing.T) {
	rec := &recorder{}
	boom := errors.New("boom")

	handler := func(ctx context.Context, value string) error {
		if value == "panic" {
			panic("unexpected")
		}
		return boom
	}

	debouncer := debounce.New(window, handler, rec.fail)
	defer debouncer.Stop()

	debouncer.Push("error")
	require.Eventually(t, func() bool {
		_, errs := rec.snapshot()
		return len(errs) == 1
	}, time.Second, 5*time.Millisecond)

	debouncer.Push("panic")
	require.Eventually(t, func() bool {
		_, errs := rec.snapshot()
		return len(errs) == 2
	}, time.Second, 5*time.Millisecond)

	_, errs := rec.snapshot()
	assert.ErrorIs(t, errs[0], boom)
	assert.Contains(t, errs[1].Error(), "panic")
}

/*
TestDebouncer_NewValueCancelsRunningHandler enforces single concurrency.
*/
func TestDebouncer_NewValueCancelsRunningHandler(t *testing.T) {
	cancelled := make(chan string, 1)
	started := make(chan struct{}, 2)

	handler := func(ctx context.Context, value string) error {
		started <- struct{}{}
		if value == "slow" {
			<-ctx.Done()
			cancelled <- value
			return ctx.Err()
		}
		return nil
	}

	rec := &recorder{}
	debouncer := debounce.New(window, handler, rec.fail)
	defer debouncer.Stop()

	debouncer.Push("slow")
	<-started

	debouncer.Push("fast")

	select {
	case value := <-cancelled:
		assert.Equal(t, "slow", value)
	case <-time.After(time.Second):
		t.Fatal("running handler was not cancelled")
	}

	// Cancellation is not a pipeline failure.
	_, errs := rec.snapshot()
	assert.Empty(t, errs)
}

/*
TestDebouncer_SupersededPanicIsSilent verifies a cancelled handler that panics
does not report a failure over the newer value.
*/
func TestDebouncer_SupersededPanicIsSilent(t *testing.T) {
	started := make(chan struct{}, 2)
	panicked := make(chan struct{})
	rec := &recorder{}

	handler := func(ctx context.Context, value string) error {
		started <- struct{}{}
		if value == "slow" {
			<-ctx.Done()
			defer close(panicked)
			panic("lookup aborted")
		}
		return rec.handle(ctx, value)
	}

	debouncer := debounce.New(window, handler, rec.fail)
	defer debouncer.Stop()

	debouncer.Push("slow")
	<-started
	debouncer.Push("fast")

	select {
	case <-panicked:
	case <-time.After(time.Second):
		t.Fatal("superseded handler never returned")
	}
	require.Eventually(t, func() bool {
		values, _ := rec.snapshot()
		return len(values) == 1
	}, time.Second, 5*time.Millisecond)

	time.Sleep(2 * window)
	values, errs := rec.snapshot()
	assert.Equal(t, []string{"fast"}, values)
	assert.Empty(t, errs)
}
