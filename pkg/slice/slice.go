// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package slice holds the generic transforms the standard [slices] package lacks.

Both functions keep nil as nil so an absent page stays distinguishable from an
empty one.
*/
package slice

// Map converts every element of input with transform, preserving order.
func Map[T any, U any](input []T, transform func(T) U) []U {
	if input == nil {
		return nil
	}

	result := make([]U, len(input))
	for i, v := range input {
		result[i] = transform(v)
	}
	return result
}

// Filter returns the elements of input that satisfy keep, preserving order.
// It returns nil when nothing matches.
func Filter[T any](input []T, keep func(T) bool) []T {
	var result []T
	for _, v := range input {
		if keep(v) {
			result = append(result, v)
		}
	}
	return result
}
