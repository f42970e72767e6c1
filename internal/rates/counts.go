// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package rates

import (
	"context"
	"log/slog"
)

// Counts holds the per-status summary sizes of both kinds.
//
// Counts come from the profile summary and have their own lifecycle. They may
// disagree with the loaded buckets and are never used to decide membership.
type Counts map[Kind]map[Status]int

// NewCounts returns zeroed counts with every kind and status present.
func NewCounts() Counts {
	counts := make(Counts, len(Kinds))
	for _, kind := range Kinds {
		counts[kind] = make(map[Status]int, len(Statuses))
		for _, status := range Statuses {
			counts[kind][status] = 0
		}
	}
	return counts
}

// Normalized returns a copy of counts with missing keys filled with zero and
// unknown kinds or statuses dropped.
func (counts Counts) Normalized() Counts {
	normalized := NewCounts()
	for kind, sizes := range counts {
		if !kind.IsValid() {
			continue
		}
		for status, size := range sizes {
			if status.IsValid() {
				normalized[kind][status] = size
			}
		}
	}
	return normalized
}

// FirstNonEmpty returns the first status of kind, in vocabulary order, with a
// positive count.
func (counts Counts) FirstNonEmpty(kind Kind) (Status, bool) {
	for _, status := range Statuses {
		if counts[kind][status] > 0 {
			return status, true
		}
	}
	return StatusNone, false
}

// CountCache keeps the last good summary of a user.
type CountCache interface {
	Load(ctx context.Context, userID int64) (Counts, bool, error)
	Save(ctx context.Context, userID int64, counts Counts) error
}

// CountSync refreshes the badge counts of a user's lists.
type CountSync struct {
	remote   Remote
	cache    CountCache
	logger   *slog.Logger
	recorder Recorder
}

// NewCountSync constructs a [CountSync]. cache and recorder may be nil.
func NewCountSync(remote Remote, cache CountCache, logger *slog.Logger, recorder Recorder) *CountSync {
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &CountSync{
		remote:   remote,
		cache:    cache,
		logger:   logger,
		recorder: recorder,
	}
}

/*
Refresh fetches the per-status summary of userID once.

Description: Failures are swallowed and never retried. When a cache is
configured a failed fetch falls back to the last cached summary, so badges go
stale instead of blank.

Parameters:
  - ctx: context.Context
  - userID: int64

Returns:
  - Counts: the summary (nil when nothing is known)
  - bool: whether counts are available
*/
func (countSync *CountSync) Refresh(ctx context.Context, userID int64) (Counts, bool) {
	counts, err := countSync.remote.FetchStatusCounts(ctx, userID)
	if err == nil {
		counts = counts.Normalized()
		countSync.recorder.CountSync(true)

		if countSync.cache != nil {
			if err := countSync.cache.Save(ctx, userID, counts); err != nil {
				countSync.logger.Debug("rate_counts_cache_save_failed", slog.Any("error", err))
			}
		}
		return counts, true
	}

	countSync.recorder.CountSync(false)
	countSync.logger.Debug("rate_counts_refresh_failed",
		slog.Int64("user_id", userID),
		slog.Any("error", err),
	)

	if countSync.cache == nil {
		return nil, false
	}

	cached, found, cacheErr := countSync.cache.Load(ctx, userID)
	if cacheErr != nil || !found {
		return nil, false
	}
	return cached.Normalized(), true
}
