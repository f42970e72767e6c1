// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package serial_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/ratesync/pkg/serial"
)

/*
TestQueue_RunsInPostingOrder verifies FIFO execution on a single goroutine.
*/
func TestQueue_RunsInPostingOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	queue := serial.New()
	go queue.Run(ctx)

	var order []int
	for i := 0; i < 10; i++ {
		i := i
		require.True(t, queue.Post(func() { order = append(order, i) }))
	}

	// Do is queued behind the posts, so the slice is complete once it returns.
	var snapshot []int
	require.NoError(t, queue.Do(ctx, func() { snapshot = append([]int(nil), order...) }))

	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, snapshot)
}

/*
TestQueue_Stopped rejects work after the loop exits.
*/
func TestQueue_Stopped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	queue := serial.New()
	go queue.Run(ctx)
	cancel()
	<-queue.Done()

	assert.False(t, queue.Post(func() {}))
	assert.ErrorIs(t, queue.Do(context.Background(), func() {}), serial.ErrStopped)
}

/*
TestQueue_DoCancelledContext skips the task when the caller already gave up.
*/
func TestQueue_DoCancelledContext(t *testing.T) {
	runCtx, stop := context.WithCancel(context.Background())
	defer stop()

	queue := serial.New()
	go queue.Run(runCtx)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := false
	err := queue.Do(ctx, func() { ran = true })

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ran)
}
