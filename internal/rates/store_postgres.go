// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package rates

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/ratesync/internal/platform/database/schema"
	"github.com/taibuivan/ratesync/internal/platform/dberr"
)

// PostgresPreferencesRepository stores preferences in list.preference.
type PostgresPreferencesRepository struct {
	db *pgxpool.Pool
}

func NewPostgresPreferencesRepository(db *pgxpool.Pool) *PostgresPreferencesRepository {
	return &PostgresPreferencesRepository{db: db}
}

func (repository *PostgresPreferencesRepository) GetPreferences(context context.Context, userID int64) (Preferences, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s, %s
		FROM %s
		WHERE %s = $1
	`,
		schema.ListPreference.Kind, schema.ListPreference.SortKey, schema.ListPreference.Ascending,
		schema.ListPreference.Table, schema.ListPreference.UserID,
	)

	var preferences Preferences
	err := repository.db.QueryRow(context, query, userID).Scan(
		&preferences.Kind, &preferences.SortKey, &preferences.Ascending,
	)
	if err != nil {
		return Preferences{}, dberr.Wrap(err, "get_list_preference")
	}

	return preferences, nil
}

/*
SavePreferences upserts the preferences of userID.

Parameters:
  - context: context.Context
  - userID: int64
  - preferences: Preferences

Returns:
  - error: Storage failures
*/
func (repository *PostgresPreferencesRepository) SavePreferences(context context.Context, userID int64, preferences Preferences) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (%s) DO UPDATE
		SET %s = EXCLUDED.%s, %s = EXCLUDED.%s, %s = EXCLUDED.%s, %s = NOW()
	`,
		schema.ListPreference.Table,
		schema.ListPreference.UserID, schema.ListPreference.Kind, schema.ListPreference.SortKey,
		schema.ListPreference.Ascending, schema.ListPreference.UpdatedAt,
		schema.ListPreference.UserID,
		schema.ListPreference.Kind, schema.ListPreference.Kind,
		schema.ListPreference.SortKey, schema.ListPreference.SortKey,
		schema.ListPreference.Ascending, schema.ListPreference.Ascending,
		schema.ListPreference.UpdatedAt,
	)

	_, err := repository.db.Exec(context, query, userID, preferences.Kind, preferences.SortKey, preferences.Ascending)
	return dberr.Wrap(err, "save_list_preference")
}
