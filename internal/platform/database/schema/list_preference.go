// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package schema names the tables and columns the repositories query.
package schema

// ListPreferenceTable represents the 'list.preference' table
type ListPreferenceTable struct {
	Table     string
	UserID    string
	Kind      string
	SortKey   string
	Ascending string
	UpdatedAt string
}

// ListPreference is the schema definition for list.preference
var ListPreference = ListPreferenceTable{
	Table:     "list.preference",
	UserID:    "userid",
	Kind:      "kind",
	SortKey:   "sortkey",
	Ascending: "ascending",
	UpdatedAt: "updatedat",
}

// Columns returns all standard column names
func (t ListPreferenceTable) Columns() []string {
	return []string{t.UserID, t.Kind, t.SortKey, t.Ascending, t.UpdatedAt}
}
