// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package migration

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

/*
TestPgx5DSN verifies scheme rewriting for the migrate driver.
*/
func TestPgx5DSN(t *testing.T) {
	tests := []struct {
		name string
		dsn  string
		want string
	}{
		{"postgres scheme", "postgres://u:p@db:5432/app", "pgx5://u:p@db:5432/app"},
		{"postgresql scheme", "postgresql://db/app?sslmode=disable", "pgx5://db/app?sslmode=disable"},
		{"already pgx5", "pgx5://db/app", "pgx5://db/app"},
		{"keyword form untouched", "host=db dbname=app", "host=db dbname=app"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, pgx5DSN(tt.dsn))
		})
	}
}
