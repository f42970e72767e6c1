// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package textfold provides Unicode-aware, case-insensitive text matching.
//
// # Folding Pipeline
//
//  1. Normalizes to NFKC (full-width "ＮＡＲＵＴＯ" and "NARUTO" become identical).
//  2. Applies Unicode case folding ("Ё" matches "ё", "ß" matches "ss").
//
// Titles arrive in Latin, Cyrillic and Japanese scripts, so plain
// [strings.ToLower] is not enough.
package textfold

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Fold returns the comparison form of s.
//
// A new [cases.Caser] is built per call because casers keep internal state and
// are not safe for concurrent use.
func Fold(s string) string {
	if s == "" {
		return ""
	}
	return cases.Fold().String(norm.NFKC.String(s))
}

// Contains reports whether needle occurs in haystack, ignoring case.
// An empty needle matches everything.
func Contains(haystack, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(Fold(haystack), Fold(needle))
}

// Prepared holds a folded needle so that it is folded once per search.
type Prepared struct {
	folded string
}

// Prepare folds needle for repeated matching with [Prepared.In].
func Prepare(needle string) Prepared {
	return Prepared{folded: Fold(strings.TrimSpace(needle))}
}

// Empty reports whether the prepared needle matches everything.
func (p Prepared) Empty() bool {
	return p.folded == ""
}

// In reports whether the prepared needle occurs in any of the candidates.
func (p Prepared) In(candidates ...string) bool {
	if p.folded == "" {
		return true
	}
	for _, candidate := range candidates {
		if candidate != "" && strings.Contains(Fold(candidate), p.folded) {
			return true
		}
	}
	return false
}
