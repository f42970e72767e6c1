// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package rates implements the categorized list synchronization engine.

A user's tracking lists (watched anime, read manga and light novels) are kept as
locally partitioned collections keyed by content kind and by the status the user
assigned. The package mutates those lists through the remote service and keeps
the local partitions, the remote state and the aggregate counters consistent
under partial failure.

Components:

  - Store: the partitioned cache (one partition set per content kind).
  - View: pure sort/search projection over one partition.
  - Coordinator: remote mutations applied only after server confirmation.
  - CountSync: per-status summary counts for badges.
  - List: one user's session, serializing all of the above on a single task loop.

The server is always the authority for a mutation's outcome. Partitions are
rebuilt every session and never persisted.
*/
package rates

import (
	"time"
)

// # Domain Enums

// Kind identifies which list an entry belongs to.
type Kind string

const (
	// KindAnime is the watched list.
	KindAnime Kind = "anime"

	// KindManga is the read list (manga and light novels).
	KindManga Kind = "manga"
)

// Kinds lists every content kind in display order.
var Kinds = [...]Kind{KindAnime, KindManga}

// IsValid reports whether k is a recognised [Kind].
func (k Kind) IsValid() bool {
	return k == KindAnime || k == KindManga
}

// Status is the user-assigned list a rate lives in.
type Status string

const (
	// StatusNone marks an entry that is not in any list (never saved or just deleted).
	StatusNone Status = ""

	StatusPlanned    Status = "planned"
	StatusWatching   Status = "watching"
	StatusRewatching Status = "rewatching"
	StatusCompleted  Status = "completed"
	StatusOnHold     Status = "on_hold"
	StatusDropped    Status = "dropped"
)

// Statuses is the fixed status vocabulary in its declared order.
//
// Partition sets hold a bucket for every value here, and "first non-empty"
// lookups walk it front to back.
var Statuses = [...]Status{
	StatusPlanned,
	StatusWatching,
	StatusRewatching,
	StatusCompleted,
	StatusOnHold,
	StatusDropped,
}

// IsValid reports whether s belongs to the status vocabulary.
// [StatusNone] is not a valid list.
func (s Status) IsValid() bool {
	switch s {
	case
		StatusPlanned,
		StatusWatching,
		StatusRewatching,
		StatusCompleted,
		StatusOnHold,
		StatusDropped:
		return true
	}
	return false
}

// Title returns the tab name of s for the given kind.
// Manga lists read where anime lists watch.
func (s Status) Title(kind Kind) string {
	switch s {
	case StatusPlanned:
		return "Planned"
	case StatusWatching:
		if kind == KindManga {
			return "Reading"
		}
		return "Watching"
	case StatusRewatching:
		if kind == KindManga {
			return "Rereading"
		}
		return "Rewatching"
	case StatusCompleted:
		return "Completed"
	case StatusOnHold:
		return "On hold"
	case StatusDropped:
		return "Dropped"
	}
	return "Not in list"
}

// statusValues is used by validation messages.
func statusValues() []string {
	values := make([]string, len(Statuses))
	for i, status := range Statuses {
		values[i] = string(status)
	}
	return values
}

// # Core Entities

// Content is the anime or manga title a rate points at.
type Content struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`              // Native/romanised title
	Russian       string     `json:"russian,omitempty"` // Localized title
	Kind          string     `json:"kind,omitempty"`    // tv, movie, manga, light_novel...
	Status        string     `json:"status,omitempty"`  // anons, ongoing, released
	ImageURL      string     `json:"image_url,omitempty"`
	Episodes      int        `json:"episodes,omitempty"`
	EpisodesAired int        `json:"episodes_aired,omitempty"`
	Chapters      int        `json:"chapters,omitempty"`
	Volumes       int        `json:"volumes,omitempty"`
	AiredOn       *time.Time `json:"aired_on,omitempty"`
	ReleasedOn    *time.Time `json:"released_on,omitempty"`
}

// ReleaseDate returns the completion date, falling back to the start date.
func (c *Content) ReleaseDate() *time.Time {
	if c == nil {
		return nil
	}
	if c.ReleasedOn != nil {
		return c.ReleasedOn
	}
	return c.AiredOn
}

// Entry is one line of a user's list.
//
// Exactly one of Anime and Manga is set; it decides the owning partition set.
// ID is zero for a locally constructed entry that has never been persisted.
type Entry struct {
	ID       int64    `json:"id,omitempty"`
	UserID   int64    `json:"user_id,omitempty"`
	Anime    *Content `json:"anime,omitempty"`
	Manga    *Content `json:"manga,omitempty"`
	Status   Status   `json:"status"`
	Score    int      `json:"score"`    // 0 means not scored
	Progress int      `json:"progress"` // Episodes for anime, chapters for manga
	Repeats  int      `json:"repeats"`  // Rewatches or rereads
	Note     string   `json:"note"`

	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// Kind returns the partition set that owns e.
func (e Entry) Kind() Kind {
	if e.Manga != nil {
		return KindManga
	}
	return KindAnime
}

// Content returns whichever content reference is set.
func (e Entry) Content() *Content {
	if e.Manga != nil {
		return e.Manga
	}
	return e.Anime
}

// Persisted reports whether the remote service has assigned an id.
func (e Entry) Persisted() bool {
	return e.ID != 0
}

// TotalUnits returns the episode (anime) or chapter (manga) count of the
// content, or zero when unknown.
func (e Entry) TotalUnits() int {
	content := e.Content()
	if content == nil {
		return 0
	}
	if e.Kind() == KindManga {
		return content.Chapters
	}
	return content.Episodes
}

// Finished reports whether progress has reached the known total.
func (e Entry) Finished() bool {
	total := e.TotalUnits()
	return total > 0 && e.Progress >= total
}

// # Edit Staging

// Draft holds the edit-form fields staged against the selected entry.
type Draft struct {
	Status   Status `json:"status"`
	Score    int    `json:"score"`
	Progress int    `json:"progress"`
	Repeats  int    `json:"repeats"`
	Note     string `json:"note"`
}

// DraftOf derives the staging record for e.
func DraftOf(e Entry) Draft {
	return Draft{
		Status:   e.Status,
		Score:    e.Score,
		Progress: e.Progress,
		Repeats:  e.Repeats,
		Note:     e.Note,
	}
}

// # Field Identifiers

// Field names used in validation errors.
const (
	FieldStatus   = "status"
	FieldScore    = "score"
	FieldProgress = "progress"
	FieldRepeats  = "repeats"
	FieldNote     = "note"
	FieldKind     = "kind"
	FieldSort     = "sort"
	FieldEntryID  = "entry_id"
	FieldContent  = "content"
)
