// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package pointer builds optional fields for partial updates.
package pointer

// To returns a pointer to a copy of v.
//
// Patch payloads use nil for "leave unchanged", so every field that is sent
// has to be addressable: Patch{Score: pointer.To(8)}.
func To[T any](v T) *T {
	return &v
}
