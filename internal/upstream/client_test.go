// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package upstream

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/ratesync/internal/platform/apperr"
	"github.com/taibuivan/ratesync/internal/rates"
)

type observed struct {
	endpoint string
	status   int
}

type fakeObserver struct {
	mu    sync.Mutex
	calls []observed
}

func (observer *fakeObserver) Upstream(endpoint string, statusCode int, _ time.Duration) {
	observer.mu.Lock()
	defer observer.mu.Unlock()
	observer.calls = append(observer.calls, observed{endpoint, statusCode})
}

func newTestRemote(t *testing.T, handler http.HandlerFunc) (*UserRates, *fakeObserver) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	observer := &fakeObserver{}
	client, err := NewClient(Options{
		BaseURL:   server.URL,
		UserAgent: "ratesync-test",
		Timeout:   2 * time.Second,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)), observer)
	require.NoError(t, err)

	return client.ForSession(42, "upstream-token"), observer
}

/*
TestNewClient_RejectsBadBaseURL verifies construction fails without scheme and host.
*/
func TestNewClient_RejectsBadBaseURL(t *testing.T) {
	_, err := NewClient(Options{BaseURL: "shikimori.one"}, slog.Default(), nil)
	assert.Error(t, err)
}

/*
TestFetchListPage_DecodesEntries verifies request shape and conversion of a list page.
*/
func TestFetchListPage_DecodesEntries(t *testing.T) {
	remote, observer := newTestRemote(t, func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, http.MethodGet, request.Method)
		assert.Equal(t, "/api/users/42/anime_rates", request.URL.Path)
		assert.Equal(t, "2", request.URL.Query().Get("page"))
		assert.Equal(t, "50", request.URL.Query().Get("limit"))
		assert.Equal(t, "Bearer upstream-token", request.Header.Get("Authorization"))
		assert.Equal(t, "ratesync-test", request.Header.Get("User-Agent"))

		_, _ = io.WriteString(writer, `[{
			"id": 7, "score": 8, "status": "watching", "text": "rewatch soon",
			"episodes": 5, "chapters": 0, "rewatches": 1,
			"created_at": "2024-01-02T10:00:00.000+03:00",
			"updated_at": "2024-02-03T10:00:00.000+03:00",
			"anime": {"id": 100, "name": "Mushishi", "russian": "Мастер Муси",
				"image": {"original": "/o.jpg", "preview": "/p.jpg"},
				"kind": "tv", "status": "released", "episodes": 26, "episodes_aired": 26,
				"aired_on": "2005-10-23", "released_on": null},
			"manga": null
		}]`)
	})

	entries, err := remote.FetchListPage(context.Background(), rates.KindAnime, 2, 50)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entry := entries[0]
	assert.Equal(t, int64(7), entry.ID)
	assert.Equal(t, int64(42), entry.UserID)
	assert.Equal(t, rates.StatusWatching, entry.Status)
	assert.Equal(t, 5, entry.Progress)
	assert.Equal(t, 1, entry.Repeats)
	assert.Equal(t, "rewatch soon", entry.Note)
	require.NotNil(t, entry.Anime)
	assert.Equal(t, "Мастер Муси", entry.Anime.Russian)
	assert.Equal(t, "/p.jpg", entry.Anime.ImageURL)
	assert.Equal(t, 26, entry.TotalUnits())
	require.NotNil(t, entry.Anime.ReleaseDate())
	assert.Equal(t, 2005, entry.Anime.ReleaseDate().Year())
	assert.Nil(t, entry.Anime.ReleasedOn)

	assert.Equal(t, []observed{{endpointListPage, http.StatusOK}}, observer.calls)
}

/*
TestFetchListPage_EmptyPageEndsList verifies an empty page yields the end-of-data sentinel.
*/
func TestFetchListPage_EmptyPageEndsList(t *testing.T) {
	remote, _ := newTestRemote(t, func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, "/api/users/42/manga_rates", request.URL.Path)
		_, _ = io.WriteString(writer, `[]`)
	})

	entries, err := remote.FetchListPage(context.Background(), rates.KindManga, 4, 50)
	assert.ErrorIs(t, err, rates.ErrNoMoreData)
	assert.Empty(t, entries)
}

/*
TestUpdateEntry_MangaProgressIsChapters verifies the patch body maps progress by kind
and leaves untouched fields out.
*/
func TestUpdateEntry_MangaProgressIsChapters(t *testing.T) {
	var body map[string]map[string]any
	remote, _ := newTestRemote(t, func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, http.MethodPatch, request.Method)
		assert.Equal(t, "/api/v2/user_rates/9", request.URL.Path)
		assert.Equal(t, "application/json", request.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(request.Body).Decode(&body))

		_, _ = io.WriteString(writer, `{"id": 9, "user_id": 42, "target_id": 300, "target_type": "Manga",
			"score": 0, "status": "completed", "rewatches": 0, "episodes": 0, "chapters": 120, "text": ""}`)
	})

	progress := 120
	entry, err := remote.UpdateEntry(context.Background(), 9, rates.Patch{Kind: rates.KindManga, Progress: &progress})
	require.NoError(t, err)

	fields := body["user_rate"]
	assert.Equal(t, float64(120), fields["chapters"])
	assert.NotContains(t, fields, "episodes")
	assert.NotContains(t, fields, "status")

	assert.Equal(t, rates.KindManga, entry.Kind())
	assert.Equal(t, int64(300), entry.Manga.ID)
	assert.Equal(t, 120, entry.Progress)
	assert.Equal(t, rates.StatusCompleted, entry.Status)
}

/*
TestCreateEntry_SendsTarget verifies creation carries the owner and target reference.
*/
func TestCreateEntry_SendsTarget(t *testing.T) {
	var body map[string]map[string]any
	remote, _ := newTestRemote(t, func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, http.MethodPost, request.Method)
		assert.Equal(t, "/api/v2/user_rates", request.URL.Path)
		assert.NoError(t, json.NewDecoder(request.Body).Decode(&body))

		writer.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(writer, `{"id": 55, "user_id": 42, "target_id": 100, "target_type": "Anime",
			"status": "planned", "episodes": 0}`)
	})

	entry, err := remote.CreateEntry(context.Background(), rates.Creation{
		UserID:    42,
		Kind:      rates.KindAnime,
		ContentID: 100,
		Draft:     rates.Draft{Status: rates.StatusPlanned},
	})
	require.NoError(t, err)

	fields := body["user_rate"]
	assert.Equal(t, float64(42), fields["user_id"])
	assert.Equal(t, float64(100), fields["target_id"])
	assert.Equal(t, "Anime", fields["target_type"])
	assert.Equal(t, "planned", fields["status"])
	assert.Equal(t, float64(0), fields["episodes"])

	assert.Equal(t, int64(55), entry.ID)
	assert.Equal(t, rates.StatusPlanned, entry.Status)
}

/*
TestIncrementEntry_ReturnsServerState verifies the confirmed status is passed through untouched.
*/
func TestIncrementEntry_ReturnsServerState(t *testing.T) {
	remote, _ := newTestRemote(t, func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, http.MethodPost, request.Method)
		assert.Equal(t, "/api/v2/user_rates/3/increment", request.URL.Path)
		_, _ = io.WriteString(writer, `{"id": 3, "target_id": 100, "target_type": "Anime",
			"status": "completed", "episodes": 12}`)
	})

	entry, err := remote.IncrementEntry(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, rates.StatusCompleted, entry.Status)
	assert.Equal(t, 12, entry.Progress)
}

/*
TestDeleteEntry_NoContent verifies an empty 204 response is a success.
*/
func TestDeleteEntry_NoContent(t *testing.T) {
	remote, _ := newTestRemote(t, func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, http.MethodDelete, request.Method)
		assert.Equal(t, "/api/v2/user_rates/3", request.URL.Path)
		writer.WriteHeader(http.StatusNoContent)
	})

	assert.NoError(t, remote.DeleteEntry(context.Background(), 3))
}

/*
TestFetchStatusCounts_ReadsProfileStats verifies stats are normalized into counts.
*/
func TestFetchStatusCounts_ReadsProfileStats(t *testing.T) {
	remote, _ := newTestRemote(t, func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, "/api/users/42", request.URL.Path)
		_, _ = io.WriteString(writer, `{"id": 42, "stats": {"statuses": {
			"anime": [{"name": "planned", "size": 3}, {"name": "completed", "size": 10}],
			"manga": [{"name": "watching", "size": 2}, {"name": "bogus", "size": 9}]
		}}}`)
	})

	counts, err := remote.FetchStatusCounts(context.Background(), 0)
	require.NoError(t, err)

	assert.Equal(t, 3, counts[rates.KindAnime][rates.StatusPlanned])
	assert.Equal(t, 10, counts[rates.KindAnime][rates.StatusCompleted])
	assert.Equal(t, 0, counts[rates.KindAnime][rates.StatusDropped])
	assert.Equal(t, 2, counts[rates.KindManga][rates.StatusWatching])
	assert.NotContains(t, counts[rates.KindManga], rates.Status("bogus"))
}

/*
TestErrorMapping verifies upstream statuses become gateway errors.
*/
func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   int
		code   string
	}{
		{"Unauthorized", http.StatusUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"Not Found", http.StatusNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"Unprocessable", http.StatusUnprocessableEntity, http.StatusUnprocessableEntity, "UNPROCESSABLE"},
		{"Rate Limited", http.StatusTooManyRequests, http.StatusTooManyRequests, "RATE_LIMITED"},
		{"Server Error", http.StatusInternalServerError, http.StatusBadGateway, "UPSTREAM_ERROR"},
		{"Timeout", http.StatusGatewayTimeout, http.StatusGatewayTimeout, "UPSTREAM_TIMEOUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remote, observer := newTestRemote(t, func(writer http.ResponseWriter, request *http.Request) {
				writer.Header().Set("Retry-After", "3")
				writer.WriteHeader(tt.status)
				_, _ = io.WriteString(writer, `{"message": "nope"}`)
			})

			err := remote.DeleteEntry(context.Background(), 1)
			require.Error(t, err)

			appErr := apperr.As(err)
			require.NotNil(t, appErr)
			assert.Equal(t, tt.want, appErr.HTTPStatus)
			assert.Equal(t, tt.code, appErr.Code)
			assert.Equal(t, []observed{{endpointDelete, tt.status}}, observer.calls)
		})
	}
}

/*
TestCancelledContext_IsNotAGatewayError verifies a caller that gives up gets its own error back.
*/
func TestCancelledContext_IsNotAGatewayError(t *testing.T) {
	remote, _ := newTestRemote(t, func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusNoContent)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := remote.DeleteEntry(ctx, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, apperr.As(err))
}
