// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package rates

import (
	"context"
	"log/slog"

	"github.com/taibuivan/ratesync/internal/platform/validate"
)

// MaxNoteLength bounds the free-text comment of a rate, in characters.
const MaxNoteLength = 4000

// # Outcome

// Operation names a mutation.
type Operation string

const (
	OpCreate    Operation = "create"
	OpUpdate    Operation = "update"
	OpTransfer  Operation = "transfer"
	OpIncrement Operation = "increment"
	OpDelete    Operation = "delete"
)

// Effect is what a confirmed mutation does to the store.
type Effect int

const (
	// EffectNone leaves the store untouched (guarded no-op or failure).
	EffectNone Effect = iota

	// EffectInsert adds a newly persisted entry.
	EffectInsert

	// EffectInPlace overwrites an entry inside its current bucket.
	EffectInPlace

	// EffectTransfer moves an entry to another bucket.
	EffectTransfer

	// EffectRemove drops an entry from its bucket.
	EffectRemove
)

// Outcome is the result of a mutation: either the confirmed state, or the
// original state tagged with the error that prevented the change.
type Outcome struct {
	Operation Operation
	Original  Entry
	Confirmed Entry
	Effect    Effect
	Notice    string
	Err       error
}

// Failed reports whether the mutation was rejected.
func (outcome Outcome) Failed() bool {
	return outcome.Err != nil
}

// Selection returns the entry the edit surface should show afterwards.
func (outcome Outcome) Selection() Entry {
	if outcome.Failed() || outcome.Effect == EffectNone {
		return outcome.Original
	}
	return outcome.Confirmed
}

// # Coordinator

// Coordinator sends user edits to the remote service.
//
// It never touches a store by itself: every operation returns an [Outcome] and
// the caller decides whether to [Coordinator.Commit] it. Nothing is retried.
type Coordinator struct {
	remote   Remote
	userID   int64
	logger   *slog.Logger
	recorder Recorder
}

// NewCoordinator constructs a [Coordinator] acting for userID.
func NewCoordinator(remote Remote, userID int64, logger *slog.Logger, recorder Recorder) *Coordinator {
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &Coordinator{
		remote:   remote,
		userID:   userID,
		logger:   logger,
		recorder: recorder,
	}
}

/*
Create persists a not-yet-saved entry with the staged fields.

Parameters:
  - ctx: context.Context
  - entry: Entry (must carry a content reference)
  - draft: Draft

Returns:
  - Outcome: EffectInsert on success
*/
func (coordinator *Coordinator) Create(ctx context.Context, entry Entry, draft Draft) Outcome {
	outcome := Outcome{Operation: OpCreate, Original: entry}

	content := entry.Content()
	validator := &validate.Validator{}
	validator.Custom(FieldContent, content == nil || content.ID == 0, "A content reference is required")
	validator.Custom(FieldEntryID, entry.Persisted(), "Entry is already in a list")
	if err := validator.Err(); err != nil {
		return coordinator.fail(outcome, NoticeUpdateFailed, err)
	}
	if err := validateDraft(draft); err != nil {
		return coordinator.fail(outcome, NoticeUpdateFailed, err)
	}

	created, err := coordinator.remote.CreateEntry(context.WithoutCancel(ctx), Creation{
		UserID:    coordinator.userID,
		Kind:      entry.Kind(),
		ContentID: content.ID,
		Draft:     draft,
	})
	if err != nil {
		return coordinator.fail(outcome, NoticeUpdateFailed, err)
	}

	outcome.Confirmed = merge(entry, created)
	outcome.Effect = EffectInsert
	outcome.Notice = noticeAdded(outcome.Confirmed.Status, entry.Kind())

	return coordinator.succeed(outcome)
}

/*
Update sends every staged field of a persisted entry.

Description: The server-confirmed status decides the effect. A status that
differs from the entry's current one turns the update into a transfer.

Parameters:
  - ctx: context.Context
  - entry: Entry (persisted)
  - draft: Draft

Returns:
  - Outcome: EffectInPlace or EffectTransfer on success
*/
func (coordinator *Coordinator) Update(ctx context.Context, entry Entry, draft Draft) Outcome {
	outcome := Outcome{Operation: OpUpdate, Original: entry}

	if err := requirePersisted(entry); err != nil {
		return coordinator.fail(outcome, NoticeUpdateFailed, err)
	}
	if err := validateDraft(draft); err != nil {
		return coordinator.fail(outcome, NoticeUpdateFailed, err)
	}

	updated, err := coordinator.remote.UpdateEntry(context.WithoutCancel(ctx), entry.ID, FullPatch(entry.Kind(), draft))
	if err != nil {
		return coordinator.fail(outcome, NoticeUpdateFailed, err)
	}

	outcome.Confirmed = merge(entry, updated)
	outcome.Effect = effectFor(entry, outcome.Confirmed)
	outcome.Notice = NoticeUpdated

	return coordinator.succeed(outcome)
}

/*
Transfer moves a persisted entry to status.

Description: Moving an entry to the bucket it is already in is refused locally
with a notice and no remote call.

Parameters:
  - ctx: context.Context
  - entry: Entry (persisted)
  - status: Status (destination)

Returns:
  - Outcome: EffectTransfer on success, EffectNone for the guarded case
*/
func (coordinator *Coordinator) Transfer(ctx context.Context, entry Entry, status Status) Outcome {
	outcome := Outcome{Operation: OpTransfer, Original: entry}

	if status == entry.Status {
		outcome.Notice = NoticeAlreadyThere
		return outcome
	}

	if err := requirePersisted(entry); err != nil {
		return coordinator.fail(outcome, NoticeUpdateFailed, err)
	}
	validator := &validate.Validator{}
	validator.OneOf(FieldStatus, string(status), statusValues()...)
	if err := validator.Err(); err != nil {
		return coordinator.fail(outcome, NoticeUpdateFailed, err)
	}

	updated, err := coordinator.remote.UpdateEntry(context.WithoutCancel(ctx), entry.ID, StatusPatch(entry.Kind(), status))
	if err != nil {
		return coordinator.fail(outcome, NoticeUpdateFailed, err)
	}

	outcome.Confirmed = merge(entry, updated)
	outcome.Effect = effectFor(entry, outcome.Confirmed)
	outcome.Notice = noticeMoved(outcome.Confirmed.Status, entry.Kind())

	return coordinator.succeed(outcome)
}

/*
Increment asks the server to advance progress by one unit.

Description: The server computes the new progress, repeat count and status. The
outcome branches on the status the server returned, never on local state: an
unchanged status is an in-place update, a different one is a transfer.

Parameters:
  - ctx: context.Context
  - entry: Entry (persisted)

Returns:
  - Outcome: EffectInPlace or EffectTransfer on success
*/
func (coordinator *Coordinator) Increment(ctx context.Context, entry Entry) Outcome {
	outcome := Outcome{Operation: OpIncrement, Original: entry}

	if err := requirePersisted(entry); err != nil {
		return coordinator.fail(outcome, NoticeUpdateFailed, err)
	}

	incremented, err := coordinator.remote.IncrementEntry(context.WithoutCancel(ctx), entry.ID)
	if err != nil {
		return coordinator.fail(outcome, NoticeUpdateFailed, err)
	}

	outcome.Confirmed = merge(entry, incremented)
	outcome.Effect = effectFor(entry, outcome.Confirmed)
	if outcome.Effect == EffectTransfer {
		outcome.Notice = noticeMoved(outcome.Confirmed.Status, entry.Kind())
	} else {
		outcome.Notice = NoticeIncremented
	}

	return coordinator.succeed(outcome)
}

/*
Delete removes a persisted entry from the user's list.

Description: On success the selection keeps the content reference but loses its
id and status, so the edit surface shows the "not in any list" state. On
failure the entry stays where it is.

Parameters:
  - ctx: context.Context
  - entry: Entry (persisted)

Returns:
  - Outcome: EffectRemove on success
*/
func (coordinator *Coordinator) Delete(ctx context.Context, entry Entry) Outcome {
	outcome := Outcome{Operation: OpDelete, Original: entry}

	if err := requirePersisted(entry); err != nil {
		return coordinator.fail(outcome, NoticeTryAgain, err)
	}

	if err := coordinator.remote.DeleteEntry(context.WithoutCancel(ctx), entry.ID); err != nil {
		return coordinator.fail(outcome, NoticeTryAgain, err)
	}

	detached := entry
	detached.ID = 0
	detached.Status = StatusNone
	detached.CreatedAt = nil
	detached.UpdatedAt = nil

	outcome.Confirmed = detached
	outcome.Effect = EffectRemove
	outcome.Notice = NoticeDeleted

	return coordinator.succeed(outcome)
}

// Commit applies a confirmed outcome to store. Failed and no-op outcomes are ignored.
func (coordinator *Coordinator) Commit(store *Store, outcome Outcome) {
	if outcome.Failed() {
		return
	}

	kind := outcome.Original.Kind()
	switch outcome.Effect {
	case EffectInsert, EffectInPlace, EffectTransfer:
		store.Apply(kind, outcome.Original, outcome.Confirmed)
	case EffectRemove:
		store.Remove(kind, outcome.Original)
	}
}

// # Helpers

func (coordinator *Coordinator) succeed(outcome Outcome) Outcome {
	coordinator.recorder.Mutation(outcome.Operation, true)
	coordinator.logger.Info("rate_mutation_confirmed",
		slog.String("operation", string(outcome.Operation)),
		slog.Int64("entry_id", outcome.Confirmed.ID),
		slog.String("status", string(outcome.Confirmed.Status)),
	)
	return outcome
}

func (coordinator *Coordinator) fail(outcome Outcome, notice string, err error) Outcome {
	outcome.Err = err
	outcome.Notice = notice
	outcome.Effect = EffectNone

	coordinator.recorder.Mutation(outcome.Operation, false)
	coordinator.logger.Warn("rate_mutation_failed",
		slog.String("operation", string(outcome.Operation)),
		slog.Int64("entry_id", outcome.Original.ID),
		slog.Any("error", err),
	)
	return outcome
}

func validateDraft(draft Draft) error {
	validator := &validate.Validator{}

	validator.OneOf(FieldStatus, string(draft.Status), statusValues()...)
	validator.Range(FieldScore, draft.Score, 0, 10)
	validator.NonNegative(FieldProgress, draft.Progress)
	validator.NonNegative(FieldRepeats, draft.Repeats)
	validator.MaxLen(FieldNote, draft.Note, MaxNoteLength)

	return validator.Err()
}

func requirePersisted(entry Entry) error {
	if entry.Persisted() {
		return nil
	}
	return validate.Invalid(FieldEntryID, "Entry is not in any list")
}

func effectFor(previous, confirmed Entry) Effect {
	if previous.Status != confirmed.Status {
		return EffectTransfer
	}
	return EffectInPlace
}

// merge overlays the server-owned fields of confirmed on local, keeping the
// content reference the server may have answered with a stub of.
func merge(local, confirmed Entry) Entry {
	merged := local
	merged.ID = confirmed.ID
	merged.Status = confirmed.Status
	merged.Score = confirmed.Score
	merged.Progress = confirmed.Progress
	merged.Repeats = confirmed.Repeats
	merged.Note = confirmed.Note
	merged.CreatedAt = confirmed.CreatedAt
	merged.UpdatedAt = confirmed.UpdatedAt
	if confirmed.UserID != 0 {
		merged.UserID = confirmed.UserID
	}

	if local.Content() == nil {
		merged.Anime = confirmed.Anime
		merged.Manga = confirmed.Manga
	}
	return merged
}
