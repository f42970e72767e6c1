// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package upstream

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/taibuivan/ratesync/internal/rates"
	"github.com/taibuivan/ratesync/pkg/slice"
)

// Endpoint labels used for logging and metrics.
const (
	endpointListPage  = "list_page"
	endpointCreate    = "rate_create"
	endpointUpdate    = "rate_update"
	endpointIncrement = "rate_increment"
	endpointDelete    = "rate_delete"
	endpointProfile   = "profile"
)

// UserRates is the tracking service as seen by one signed-in user.
type UserRates struct {
	client *Client
	userID int64
	token  string
}

var _ rates.Remote = (*UserRates)(nil)

// FetchListPage loads one page of the user's anime or manga rates.
// An empty page means the list is exhausted.
func (remote *UserRates) FetchListPage(ctx context.Context, kind rates.Kind, page, pageSize int) ([]rates.Entry, error) {
	var lines []listRateWire
	err := remote.client.do(ctx, call{
		endpoint: endpointListPage,
		method:   http.MethodGet,
		path:     fmt.Sprintf("/api/users/%d/%s_rates", remote.userID, kind),
		query: url.Values{
			"page":  {strconv.Itoa(page)},
			"limit": {strconv.Itoa(pageSize)},
		},
		token: remote.token,
		out:   &lines,
	})
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, rates.ErrNoMoreData
	}

	return slice.Map(lines, func(line listRateWire) rates.Entry {
		return line.toEntry(remote.userID, kind)
	}), nil
}

func (remote *UserRates) CreateEntry(ctx context.Context, creation rates.Creation) (rates.Entry, error) {
	fields := fieldsFromPatch(rates.FullPatch(creation.Kind, creation.Draft))
	fields.UserID = creation.UserID
	fields.TargetID = creation.ContentID
	fields.TargetType = targetType(creation.Kind)

	var created userRateWire
	err := remote.client.do(ctx, call{
		endpoint: endpointCreate,
		method:   http.MethodPost,
		path:     "/api/v2/user_rates",
		token:    remote.token,
		body:     userRateEnvelope{UserRate: fields},
		out:      &created,
	})
	if err != nil {
		return rates.Entry{}, err
	}
	return created.toEntry(), nil
}

func (remote *UserRates) UpdateEntry(ctx context.Context, id int64, patch rates.Patch) (rates.Entry, error) {
	var updated userRateWire
	err := remote.client.do(ctx, call{
		endpoint: endpointUpdate,
		method:   http.MethodPatch,
		path:     fmt.Sprintf("/api/v2/user_rates/%d", id),
		token:    remote.token,
		body:     userRateEnvelope{UserRate: fieldsFromPatch(patch)},
		out:      &updated,
	})
	if err != nil {
		return rates.Entry{}, err
	}
	return updated.toEntry(), nil
}

func (remote *UserRates) IncrementEntry(ctx context.Context, id int64) (rates.Entry, error) {
	var incremented userRateWire
	err := remote.client.do(ctx, call{
		endpoint: endpointIncrement,
		method:   http.MethodPost,
		path:     fmt.Sprintf("/api/v2/user_rates/%d/increment", id),
		token:    remote.token,
		out:      &incremented,
	})
	if err != nil {
		return rates.Entry{}, err
	}
	return incremented.toEntry(), nil
}

func (remote *UserRates) DeleteEntry(ctx context.Context, id int64) error {
	return remote.client.do(ctx, call{
		endpoint: endpointDelete,
		method:   http.MethodDelete,
		path:     fmt.Sprintf("/api/v2/user_rates/%d", id),
		token:    remote.token,
	})
}

// FetchStatusCounts reads the per-status sizes from the user's profile.
func (remote *UserRates) FetchStatusCounts(ctx context.Context, userID int64) (rates.Counts, error) {
	if userID == 0 {
		userID = remote.userID
	}

	var profile profileWire
	err := remote.client.do(ctx, call{
		endpoint: endpointProfile,
		method:   http.MethodGet,
		path:     fmt.Sprintf("/api/users/%d", userID),
		token:    remote.token,
		out:      &profile,
	})
	if err != nil {
		return nil, err
	}
	return profile.toCounts(), nil
}
