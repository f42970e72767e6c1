// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package rates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

/*
TestView_Search verifies case-insensitive matching on both titles.
*/
func TestView_Search(t *testing.T) {
	bucket := []Entry{
		anime(1, StatusWatching, "Mushishi"),
		anime(2, StatusWatching, "Natsume Yuujinchou"),
		anime(3, StatusWatching, "Ping Pong"),
	}
	bucket[1].Anime.Russian = "Тетрадь дружбы Нацумэ"

	tests := []struct {
		name    string
		term    string
		want    []int64
		matched bool
	}{
		{"Empty Term Keeps All", "", []int64{1, 2, 3}, true},
		{"Whitespace Term Keeps All", "   ", []int64{1, 2, 3}, true},
		{"Native Title Any Case", "MUSHI", []int64{1}, true},
		{"Localized Title Any Case", "НАЦУМЭ", []int64{2}, true},
		{"No Match", "berserk", []int64{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := View(bucket, Query{Key: SortCreated, Ascending: true, Term: tt.term})
			assert.Equal(t, tt.want, ids(result.Entries))
			assert.Equal(t, tt.matched, result.Matched)
		})
	}
}

/*
TestView_Sort verifies each key orders the bucket, and that descending reverses it.
*/
func TestView_Sort(t *testing.T) {
	a := anime(1, StatusWatching, "banana")
	a.Progress, a.Score, a.UpdatedAt, a.CreatedAt = 3, 7, at(5), at(1)
	a.Anime.Episodes = 24
	a.Anime.ReleasedOn = at(20)

	b := anime(2, StatusWatching, "Apple")
	b.Progress, b.Score, b.UpdatedAt, b.CreatedAt = 1, 9, at(9), at(2)
	b.Anime.Episodes = 12
	b.Anime.AiredOn = at(10)

	c := anime(3, StatusWatching, "cherry")
	c.Progress, c.Score, c.UpdatedAt, c.CreatedAt = 8, 5, nil, at(3)
	c.Anime.Episodes = 0

	bucket := []Entry{a, b, c}

	tests := []struct {
		key  SortKey
		want []int64
	}{
		{SortTitle, []int64{2, 1, 3}},
		{SortProgress, []int64{2, 1, 3}},
		{SortScore, []int64{3, 1, 2}},
		{SortCreated, []int64{1, 2, 3}},
		{SortUpdated, []int64{3, 1, 2}},
		{SortReleased, []int64{3, 2, 1}},
		{SortEpisodes, []int64{3, 2, 1}},
	}

	for _, tt := range tests {
		t.Run(string(tt.key), func(t *testing.T) {
			ascending := View(bucket, Query{Key: tt.key, Ascending: true})
			assert.Equal(t, tt.want, ids(ascending.Entries))

			descending := View(bucket, Query{Key: tt.key, Ascending: false})
			reversed := []int64{tt.want[2], tt.want[1], tt.want[0]}
			assert.Equal(t, reversed, ids(descending.Entries))
		})
	}
}

/*
TestView_StableTies verifies equal keys keep bucket order in both directions.
*/
func TestView_StableTies(t *testing.T) {
	bucket := []Entry{
		anime(1, StatusPlanned, "A"),
		anime(2, StatusPlanned, "B"),
		anime(3, StatusPlanned, "C"),
	}

	for _, ascending := range []bool{true, false} {
		result := View(bucket, Query{Key: SortScore, Ascending: ascending})
		assert.Equal(t, []int64{1, 2, 3}, ids(result.Entries))
	}
}

/*
TestView_DoesNotMutateBucket verifies the projection works on a copy.
*/
func TestView_DoesNotMutateBucket(t *testing.T) {
	bucket := []Entry{
		anime(1, StatusPlanned, "Zeta"),
		anime(2, StatusPlanned, "Alpha"),
	}

	result := View(bucket, Query{Key: SortTitle, Ascending: true})
	require.Equal(t, []int64{2, 1}, ids(result.Entries))
	assert.Equal(t, []int64{1, 2}, ids(bucket))
}

/*
TestSortKey_For verifies unit-count keys follow the kind.
*/
func TestSortKey_For(t *testing.T) {
	assert.Equal(t, SortEpisodes, SortChapters.For(KindAnime))
	assert.Equal(t, SortChapters, SortEpisodes.For(KindManga))
	assert.Equal(t, SortTitle, SortTitle.For(KindManga))
	assert.False(t, SortKey("popularity").IsValid())
}
