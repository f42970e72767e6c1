// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package rates

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

/*
TestRegistry_Acquire verifies sessions are reused per user and rebuilt on a new credential.
*/
func TestRegistry_Acquire(t *testing.T) {
	var (
		mu     sync.Mutex
		tokens []string
	)
	registry := NewRegistry(func(session Session) Remote {
		mu.Lock()
		defer mu.Unlock()
		tokens = append(tokens, session.Token)
		return newFakeRemote()
	}, testConfig(), Dependencies{Logger: discardLogger()}, time.Hour)
	t.Cleanup(registry.Close)

	first := registry.Acquire(context.Background(), Session{UserID: 1, Token: "a"})
	again := registry.Acquire(context.Background(), Session{UserID: 1, Token: "a"})
	other := registry.Acquire(context.Background(), Session{UserID: 2, Token: "a"})

	assert.Same(t, first, again)
	assert.NotSame(t, first, other)
	assert.Equal(t, 2, registry.Len())

	rotated := registry.Acquire(context.Background(), Session{UserID: 1, Token: "b"})
	require.NotNil(t, rotated)
	assert.NotSame(t, first, rotated)
	assert.Equal(t, 2, registry.Len())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a", "a", "b"}, tokens)
}

type gatedPreferences struct {
	userID  int64
	entered chan struct{}
	release chan struct{}
}

func (repository *gatedPreferences) GetPreferences(_ context.Context, userID int64) (Preferences, error) {
	if userID == repository.userID {
		close(repository.entered)
		<-repository.release
	}
	return DefaultPreferences(), nil
}

func (repository *gatedPreferences) SavePreferences(context.Context, int64, Preferences) error {
	return nil
}

/*
TestRegistry_AcquireSlowStart verifies a user whose preferences load slowly
does not hold up other users.
*/
func TestRegistry_AcquireSlowStart(t *testing.T) {
	preferences := &gatedPreferences{userID: 1, entered: make(chan struct{}), release: make(chan struct{})}
	registry := NewRegistry(func(Session) Remote { return newFakeRemote() },
		testConfig(), Dependencies{Logger: discardLogger(), Preferences: preferences}, time.Hour)
	t.Cleanup(registry.Close)

	slow := make(chan *List, 1)
	go func() { slow <- registry.Acquire(context.Background(), Session{UserID: 1}) }()

	select {
	case <-preferences.entered:
	case <-time.After(waitFor):
		t.Fatal("preferences were never read")
	}

	other := make(chan *List, 1)
	go func() { other <- registry.Acquire(context.Background(), Session{UserID: 2}) }()

	select {
	case list := <-other:
		require.NotNil(t, list)
	case <-time.After(waitFor):
		close(preferences.release)
		t.Fatal("second user waited on the first")
	}

	close(preferences.release)
	select {
	case list := <-slow:
		_, err := list.Snapshot(context.Background())
		assert.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("first user never started")
	}
	assert.Equal(t, 2, registry.Len())
}

/*
TestRegistry_Evict verifies only idle sessions are closed.
*/
func TestRegistry_Evict(t *testing.T) {
	registry := NewRegistry(func(Session) Remote { return newFakeRemote() },
		testConfig(), Dependencies{Logger: discardLogger()}, time.Minute)
	t.Cleanup(registry.Close)

	list := registry.Acquire(context.Background(), Session{UserID: 1})
	registry.Acquire(context.Background(), Session{UserID: 2})

	assert.Zero(t, registry.Evict(time.Now()))
	assert.Equal(t, 2, registry.Len())

	assert.Equal(t, 2, registry.Evict(time.Now().Add(time.Hour)))
	assert.Zero(t, registry.Len())

	_, err := list.Snapshot(context.Background())
	assert.Error(t, err)
}

/*
TestRegistry_Run verifies the sweeper closes every session when stopped.
*/
func TestRegistry_Run(t *testing.T) {
	registry := NewRegistry(func(Session) Remote { return newFakeRemote() },
		testConfig(), Dependencies{Logger: discardLogger()}, time.Hour)
	registry.Acquire(context.Background(), Session{UserID: 1})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		registry.Run(ctx, 10*time.Millisecond)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(waitFor):
		t.Fatal("registry did not stop")
	}
	assert.Zero(t, registry.Len())
}
