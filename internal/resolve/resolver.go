// Package resolve merges per-turn request input with stored conversation
// state. Request values always win; stored values fill the gaps; a field
// present in neither is a hard error the caller can surface as-is.
package resolve

import (
	"fmt"

	"github.com/wayfarer-ai/wayfarer/internal/travel"
)

// Source records where a resolved value came from.
type Source string

const (
	SourceRequest Source = "request"
	SourceContext Source = "context"
)

// MissingFieldError means a required field was absent from both the
// request and the stored session state. User-correctable; never retried.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field %q", e.Field)
}

// Resolve picks the value for one required field. The present predicate
// decides whether a candidate counts as supplied; empty slices and nil
// pointers are treated as absent by the predicates below.
func Resolve[T any](field string, request, context T, present func(T) bool) (T, Source, error) {
	if present(request) {
		return request, SourceRequest, nil
	}
	if present(context) {
		return context, SourceContext, nil
	}
	var zero T
	return zero, "", &MissingFieldError{Field: field}
}

// StringSet reports presence for list-valued fields (preferences, activities).
func StringSet(v []string) bool { return len(v) > 0 }

// LocationPtr reports presence for a location; a location with no city and
// no country is as good as absent.
func LocationPtr(v *travel.Location) bool {
	return v != nil && (v.City != "" || v.Country != "")
}

// DateRangePtr reports presence for a date range.
func DateRangePtr(v *travel.DateRange) bool {
	return v != nil && !v.Start.IsZero() && !v.End.IsZero()
}
