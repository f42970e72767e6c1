// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package rates

import (
	"cmp"
	"slices"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/taibuivan/ratesync/pkg/slice"
	"github.com/taibuivan/ratesync/pkg/textfold"
)

// # Sort Keys

// SortKey selects the comparator used by [View].
type SortKey string

const (
	SortTitle    SortKey = "title"
	SortProgress SortKey = "progress"
	SortReleased SortKey = "released"
	SortCreated  SortKey = "created"
	SortUpdated  SortKey = "updated"
	SortScore    SortKey = "score"

	// SortEpisodes and SortChapters are the kind-specific "by length" keys.
	SortEpisodes SortKey = "episodes"
	SortChapters SortKey = "chapters"
)

// DefaultSortKey is used when no preference has been stored.
const DefaultSortKey = SortUpdated

// SortKeys lists every accepted key.
var SortKeys = [...]SortKey{
	SortTitle,
	SortProgress,
	SortReleased,
	SortCreated,
	SortUpdated,
	SortScore,
	SortEpisodes,
	SortChapters,
}

// IsValid reports whether k is a recognised [SortKey].
func (k SortKey) IsValid() bool {
	return slices.Contains(SortKeys[:], k)
}

// For coerces k to the variant that makes sense for kind.
// "By chapters" becomes "by episodes" on the anime list and vice versa.
func (k SortKey) For(kind Kind) SortKey {
	switch {
	case k == SortChapters && kind == KindAnime:
		return SortEpisodes
	case k == SortEpisodes && kind == KindManga:
		return SortChapters
	}
	return k
}

func sortKeyValues() []string {
	return slice.Map(SortKeys[:], func(k SortKey) string { return string(k) })
}

// # Projection

// Query parameterises one [View] projection.
type Query struct {
	Key       SortKey
	Ascending bool
	Term      string
}

// Result is the display sequence produced by [View].
type Result struct {
	Entries []Entry `json:"entries"`

	// Matched is false when the search left nothing to show.
	Matched bool `json:"matched"`
}

/*
View projects a bucket into its display order.

Description: The search filter runs first and keeps entries whose native or
localized title contains the term (Unicode case-insensitive). The survivors are
then stably sorted by the query's key. Missing values sort lowest, and the
descending direction reverses the comparator, so entries with equal keys keep
their bucket order either way.

The bucket is never modified.

Parameters:
  - bucket: []Entry (one status bucket, in store order)
  - query: Query

Returns:
  - Result: the ordered sequence and the matched flag
*/
func View(bucket []Entry, query Query) Result {
	needle := textfold.Prepare(query.Term)

	var entries []Entry
	if needle.Empty() {
		entries = append(make([]Entry, 0, len(bucket)), bucket...)
	} else {
		entries = slice.Filter(bucket, func(entry Entry) bool {
			content := entry.Content()
			if content == nil {
				return false
			}
			return needle.In(content.Name, content.Russian)
		})
		if entries == nil {
			entries = []Entry{}
		}
	}

	compare := comparator(query.Key)
	if !query.Ascending {
		ascending := compare
		compare = func(a, b Entry) int { return -ascending(a, b) }
	}
	slices.SortStableFunc(entries, compare)

	return Result{Entries: entries, Matched: len(entries) > 0}
}

func comparator(key SortKey) func(a, b Entry) int {
	switch key {
	case SortTitle:
		// Collators keep scratch buffers; one per projection.
		collator := collate.New(language.Und, collate.IgnoreCase, collate.Loose)
		return func(a, b Entry) int {
			return collator.CompareString(title(a), title(b))
		}
	case SortProgress:
		return func(a, b Entry) int { return cmp.Compare(a.Progress, b.Progress) }
	case SortReleased:
		return func(a, b Entry) int {
			return compareTime(a.Content().ReleaseDate(), b.Content().ReleaseDate())
		}
	case SortCreated:
		return func(a, b Entry) int { return compareTime(a.CreatedAt, b.CreatedAt) }
	case SortScore:
		return func(a, b Entry) int { return cmp.Compare(a.Score, b.Score) }
	case SortEpisodes, SortChapters:
		return func(a, b Entry) int { return cmp.Compare(a.TotalUnits(), b.TotalUnits()) }
	default:
		return func(a, b Entry) int { return compareTime(a.UpdatedAt, b.UpdatedAt) }
	}
}

func title(entry Entry) string {
	content := entry.Content()
	if content == nil {
		return ""
	}
	if content.Name != "" {
		return content.Name
	}
	return content.Russian
}

// compareTime orders nil before any time.
func compareTime(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return a.Compare(*b)
}
