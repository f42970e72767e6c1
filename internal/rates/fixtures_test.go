// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package rates

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"
)

var errUpstream = errors.New("upstream unavailable")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func at(day int) *time.Time {
	moment := time.Date(2024, time.January, day, 12, 0, 0, 0, time.UTC)
	return &moment
}

func anime(id int64, status Status, name string) Entry {
	return Entry{
		ID:     id,
		UserID: 1,
		Status: status,
		Anime:  &Content{ID: id * 100, Name: name, Episodes: 12},
	}
}

func manga(id int64, status Status, name string) Entry {
	return Entry{
		ID:     id,
		UserID: 1,
		Status: status,
		Manga:  &Content{ID: id * 100, Name: name, Chapters: 40},
	}
}

func ids(entries []Entry) []int64 {
	result := make([]int64, len(entries))
	for i, entry := range entries {
		result[i] = entry.ID
	}
	return result
}

// fakeRemote serves list pages from memory and lets each test script mutations.
type fakeRemote struct {
	mu sync.Mutex

	pages      map[Kind][][]Entry
	pageErrors map[Kind]map[int][]error
	pageCalls  map[Kind][]int
	block      chan struct{}

	create    func(Creation) (Entry, error)
	update    func(int64, Patch) (Entry, error)
	increment func(int64) (Entry, error)
	delete    func(int64) error
	counts    func() (Counts, error)

	mutationCalls int
	countCalls    int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		pages:      make(map[Kind][][]Entry),
		pageErrors: make(map[Kind]map[int][]error),
		pageCalls:  make(map[Kind][]int),
	}
}

// failPage queues errors returned, in order, by the next fetches of page.
func (remote *fakeRemote) failPage(kind Kind, page int, errs ...error) {
	remote.mu.Lock()
	defer remote.mu.Unlock()
	if remote.pageErrors[kind] == nil {
		remote.pageErrors[kind] = make(map[int][]error)
	}
	remote.pageErrors[kind][page] = append(remote.pageErrors[kind][page], errs...)
}

func (remote *fakeRemote) calls(kind Kind) []int {
	remote.mu.Lock()
	defer remote.mu.Unlock()
	return append([]int{}, remote.pageCalls[kind]...)
}

func (remote *fakeRemote) mutations() int {
	remote.mu.Lock()
	defer remote.mu.Unlock()
	return remote.mutationCalls
}

func (remote *fakeRemote) FetchListPage(ctx context.Context, kind Kind, page, _ int) ([]Entry, error) {
	remote.mu.Lock()
	remote.pageCalls[kind] = append(remote.pageCalls[kind], page)
	block := remote.block
	var err error
	if queued := remote.pageErrors[kind][page]; len(queued) > 0 {
		err = queued[0]
		remote.pageErrors[kind][page] = queued[1:]
	}
	pages := remote.pages[kind]
	remote.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err != nil {
		return nil, err
	}
	if page > len(pages) {
		return nil, ErrNoMoreData
	}
	return append([]Entry{}, pages[page-1]...), nil
}

func (remote *fakeRemote) CreateEntry(_ context.Context, creation Creation) (Entry, error) {
	remote.mu.Lock()
	remote.mutationCalls++
	create := remote.create
	remote.mu.Unlock()
	return create(creation)
}

func (remote *fakeRemote) UpdateEntry(_ context.Context, id int64, patch Patch) (Entry, error) {
	remote.mu.Lock()
	remote.mutationCalls++
	update := remote.update
	remote.mu.Unlock()
	return update(id, patch)
}

func (remote *fakeRemote) IncrementEntry(_ context.Context, id int64) (Entry, error) {
	remote.mu.Lock()
	remote.mutationCalls++
	increment := remote.increment
	remote.mu.Unlock()
	return increment(id)
}

func (remote *fakeRemote) DeleteEntry(_ context.Context, id int64) error {
	remote.mu.Lock()
	remote.mutationCalls++
	remove := remote.delete
	remote.mu.Unlock()
	return remove(id)
}

func (remote *fakeRemote) FetchStatusCounts(context.Context, int64) (Counts, error) {
	remote.mu.Lock()
	remote.countCalls++
	counts := remote.counts
	remote.mu.Unlock()
	if counts == nil {
		return nil, errUpstream
	}
	return counts()
}

// memoryCountCache is a CountCache backed by a map.
type memoryCountCache struct {
	mu      sync.Mutex
	entries map[int64]Counts
	saveErr error
}

func (cache *memoryCountCache) Load(_ context.Context, userID int64) (Counts, bool, error) {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	counts, ok := cache.entries[userID]
	return counts, ok, nil
}

func (cache *memoryCountCache) Save(_ context.Context, userID int64, counts Counts) error {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	if cache.saveErr != nil {
		return cache.saveErr
	}
	if cache.entries == nil {
		cache.entries = make(map[int64]Counts)
	}
	cache.entries[userID] = counts
	return nil
}

// countingRecorder tallies engine events.
type countingRecorder struct {
	mu        sync.Mutex
	mutations map[Operation][2]int
	opened    int
	closed    int
	failures  int
}

func (recorder *countingRecorder) PageLoaded(Kind, int) {}

func (recorder *countingRecorder) PageFailed(Kind) {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	recorder.failures++
}

func (recorder *countingRecorder) Mutation(operation Operation, ok bool) {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	if recorder.mutations == nil {
		recorder.mutations = make(map[Operation][2]int)
	}
	tally := recorder.mutations[operation]
	if ok {
		tally[0]++
	} else {
		tally[1]++
	}
	recorder.mutations[operation] = tally
}

func (recorder *countingRecorder) CountSync(bool) {}

func (recorder *countingRecorder) SessionOpened() {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	recorder.opened++
}

func (recorder *countingRecorder) SessionClosed() {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	recorder.closed++
}
