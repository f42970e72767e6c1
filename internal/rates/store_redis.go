// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCountCache implements [CountCache] using Redis.
type RedisCountCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCountCache creates a Redis-backed [CountCache] whose entries expire after ttl.
func NewRedisCountCache(client *redis.Client, ttl time.Duration) *RedisCountCache {
	return &RedisCountCache{client: client, ttl: ttl}
}

func countsKey(userID int64) string {
	return fmt.Sprintf("ratesync:counts:%d", userID)
}

/*
Load retrieves the last summary saved for userID.

Parameters:
  - context: context.Context
  - userID: int64

Returns:
  - Counts: cached summary
  - bool: false when absent or expired
  - error: connectivity or decoding errors
*/
func (cache *RedisCountCache) Load(context context.Context, userID int64) (Counts, bool, error) {
	payload, err := cache.client.Get(context, countsKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis_counts_get_failed: %w", err)
	}

	var counts Counts
	if err := json.Unmarshal(payload, &counts); err != nil {
		return nil, false, fmt.Errorf("redis_counts_decode_failed: %w", err)
	}

	return counts, true, nil
}

// Save stores counts for userID with the configured TTL.
func (cache *RedisCountCache) Save(context context.Context, userID int64, counts Counts) error {
	payload, err := json.Marshal(counts)
	if err != nil {
		return fmt.Errorf("redis_counts_encode_failed: %w", err)
	}

	if err := cache.client.Set(context, countsKey(userID), payload, cache.ttl).Err(); err != nil {
		return fmt.Errorf("redis_counts_set_failed: %w", err)
	}
	return nil
}
