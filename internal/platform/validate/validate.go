// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package validate checks list input before it reaches the tracking service.
//
// Rules are chained on a [Validator] and every failure is kept, so a client
// fixing a rejected edit form sees all the bad fields at once.
package validate

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/taibuivan/ratesync/internal/platform/apperr"
)

// ErrInvalidJSON is returned for a body that is not the expected JSON object.
var ErrInvalidJSON = apperr.ValidationError("Invalid JSON payload")

// Validator accumulates field failures. Use one per operation.
type Validator struct {
	errs []apperr.FieldError
}

// MaxLen fails when value has more than max characters (not bytes).
func (v *Validator) MaxLen(field, value string, max int) *Validator {
	if utf8.RuneCountInString(value) > max {
		v.add(field, fmt.Sprintf("Maximum %d characters", max))
	}
	return v
}

// Range fails outside [min, max].
func (v *Validator) Range(field string, value, min, max int) *Validator {
	if value < min || value > max {
		v.add(field, fmt.Sprintf("Must be between %d and %d", min, max))
	}
	return v
}

func (v *Validator) NonNegative(field string, value int) *Validator {
	if value < 0 {
		v.add(field, "Must not be negative")
	}
	return v
}

// OneOf fails when value is not in allowed. The message lists the accepted values.
func (v *Validator) OneOf(field, value string, allowed ...string) *Validator {
	if !slices.Contains(allowed, value) {
		v.add(field, "Must be one of: "+strings.Join(allowed, ", "))
	}
	return v
}

// Custom records message for field when failed is true.
//
//	v.Custom("content", id <= 0, "A content id is required")
func (v *Validator) Custom(field string, failed bool, message string) *Validator {
	if failed {
		v.add(field, message)
	}
	return v
}

// Err ends the chain: nil when every rule passed, otherwise one VALIDATION_ERROR
// naming the failed fields in order.
func (v *Validator) Err() error {
	if len(v.errs) == 0 {
		return nil
	}
	return apperr.ValidationError(summary(v.errs), v.errs...)
}

func (v *Validator) HasErrors() bool {
	return len(v.errs) > 0
}

func (v *Validator) add(field, message string) {
	v.errs = append(v.errs, apperr.FieldError{Field: field, Message: message})
}

// Invalid builds a VALIDATION_ERROR for a single field.
func Invalid(field, message string) *apperr.AppError {
	errs := []apperr.FieldError{{Field: field, Message: message}}
	return apperr.ValidationError(summary(errs), errs...)
}

func summary(errs []apperr.FieldError) string {
	fields := make([]string, 0, len(errs))
	for _, fieldError := range errs {
		if !slices.Contains(fields, fieldError.Field) {
			fields = append(fields, fieldError.Field)
		}
	}
	return "Invalid " + strings.Join(fields, ", ")
}
