// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package rates

import (
	"context"
	"errors"
	"sync"

	"github.com/taibuivan/ratesync/internal/platform/dberr"
)

// Preferences are the list settings that survive a session.
// The search term is not part of it.
type Preferences struct {
	Kind      Kind    `json:"kind"`
	SortKey   SortKey `json:"sort_key"`
	Ascending bool    `json:"ascending"`
}

// DefaultPreferences is used for users who never changed a setting.
func DefaultPreferences() Preferences {
	return Preferences{
		Kind:      KindAnime,
		SortKey:   DefaultSortKey,
		Ascending: false,
	}
}

// sanitized replaces unknown stored values with defaults.
func (preferences Preferences) sanitized() Preferences {
	defaults := DefaultPreferences()
	if !preferences.Kind.IsValid() {
		preferences.Kind = defaults.Kind
	}
	if !preferences.SortKey.IsValid() {
		preferences.SortKey = defaults.SortKey
	}
	preferences.SortKey = preferences.SortKey.For(preferences.Kind)
	return preferences
}

// PreferencesRepository persists [Preferences] per user.
type PreferencesRepository interface {
	// GetPreferences returns dberr.ErrNotFound when nothing was saved yet.
	GetPreferences(context context.Context, userID int64) (Preferences, error)
	SavePreferences(context context.Context, userID int64, preferences Preferences) error
}

// loadPreferences reads the stored preferences, falling back to defaults.
func loadPreferences(context context.Context, repository PreferencesRepository, userID int64) (Preferences, error) {
	if repository == nil {
		return DefaultPreferences(), nil
	}

	preferences, err := repository.GetPreferences(context, userID)
	if errors.Is(err, dberr.ErrNotFound) {
		return DefaultPreferences(), nil
	}
	if err != nil {
		return DefaultPreferences(), err
	}
	return preferences.sanitized(), nil
}

// MemoryPreferencesRepository keeps preferences in process memory.
// It backs deployments without a database and the tests.
type MemoryPreferencesRepository struct {
	mu    sync.RWMutex
	items map[int64]Preferences
}

// NewMemoryPreferencesRepository constructs an empty repository.
func NewMemoryPreferencesRepository() *MemoryPreferencesRepository {
	return &MemoryPreferencesRepository{items: make(map[int64]Preferences)}
}

func (repository *MemoryPreferencesRepository) GetPreferences(_ context.Context, userID int64) (Preferences, error) {
	repository.mu.RLock()
	defer repository.mu.RUnlock()

	preferences, ok := repository.items[userID]
	if !ok {
		return Preferences{}, dberr.ErrNotFound
	}
	return preferences, nil
}

func (repository *MemoryPreferencesRepository) SavePreferences(_ context.Context, userID int64, preferences Preferences) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	repository.items[userID] = preferences
	return nil
}
