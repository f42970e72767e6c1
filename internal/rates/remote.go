// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package rates

import (
	"context"
	"errors"

	"github.com/taibuivan/ratesync/pkg/pointer"
)

// ErrNoMoreData is the end-of-data sentinel of a list fetch.
// It is terminal for that kind's pagination and is not a failure.
var ErrNoMoreData = errors.New("rates: no more data")

// Creation describes a rate to be persisted for the first time.
type Creation struct {
	UserID    int64
	Kind      Kind
	ContentID int64
	Draft     Draft
}

// Patch carries the fields of an update. Nil fields are left untouched remotely.
// Kind tells the remote whether Progress counts episodes or chapters.
type Patch struct {
	Kind     Kind    `json:"-"`
	Status   *Status `json:"status,omitempty"`
	Score    *int    `json:"score,omitempty"`
	Progress *int    `json:"progress,omitempty"`
	Repeats  *int    `json:"repeats,omitempty"`
	Note     *string `json:"note,omitempty"`
}

// FullPatch sets every field from draft.
func FullPatch(kind Kind, draft Draft) Patch {
	return Patch{
		Kind:     kind,
		Status:   pointer.To(draft.Status),
		Score:    pointer.To(draft.Score),
		Progress: pointer.To(draft.Progress),
		Repeats:  pointer.To(draft.Repeats),
		Note:     pointer.To(draft.Note),
	}
}

// StatusPatch only moves the rate to status.
func StatusPatch(kind Kind, status Status) Patch {
	return Patch{Kind: kind, Status: pointer.To(status)}
}

// Remote is the tracking service as seen by the list engine.
//
// Implementations return entries as the server confirmed them. Returned
// entries may carry a stub content reference (id only); the coordinator keeps
// the richer reference it already had.
type Remote interface {
	// FetchListPage loads one page (1-based) of the session user's list.
	// It returns [ErrNoMoreData] once the list is exhausted.
	FetchListPage(ctx context.Context, kind Kind, page, pageSize int) ([]Entry, error)

	CreateEntry(ctx context.Context, creation Creation) (Entry, error)
	UpdateEntry(ctx context.Context, id int64, patch Patch) (Entry, error)

	// IncrementEntry lets the server advance progress, possibly changing the status.
	IncrementEntry(ctx context.Context, id int64) (Entry, error)
	DeleteEntry(ctx context.Context, id int64) error

	// FetchStatusCounts loads the per-status summary of both kinds.
	FetchStatusCounts(ctx context.Context, userID int64) (Counts, error)
}
