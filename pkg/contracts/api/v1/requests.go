// Package api contains the request and response contracts of the dashboard
// HTTP API. Version v1 represents the current stable API version.
package api

import (
	"fmt"
	"net/url"

	"loandash/pkg/contracts/domain"
)

// FilterSelection maps a filterable field to its selected values. A field
// that is absent is not filtered; a field with an empty list selects nothing.
type FilterSelection map[string][]string

// SummaryRequest is the body of POST /api/dashboard/summary.
type SummaryRequest struct {
	Filters FilterSelection `json:"filters" validate:"dive,keys,filterfield,endkeys,dive,max=256"`
}

// ExportRequest is the body of POST /api/dashboard/export. Filename
// overrides the attachment name; its extension always follows Format.
type ExportRequest struct {
	Format   string          `json:"format" validate:"required,oneof=csv xlsx"`
	Filters  FilterSelection `json:"filters" validate:"dive,keys,filterfield,endkeys,dive,max=256"`
	Filename string          `json:"filename,omitempty" validate:"omitempty,filename"`
}

// ToFilters converts the selection to domain filters.
func (s FilterSelection) ToFilters() (domain.Filters, error) {
	filters := make(domain.Filters, len(s))
	for name, values := range s {
		field, err := domain.ParseField(name)
		if err != nil {
			return nil, err
		}
		filters[field] = domain.NewValueSet(values...)
	}
	return filters, nil
}

// SelectionFromQuery collects filter parameters from a query string. Keys
// other than the reserved names must be filterable fields; anything else
// yields an error wrapping domain.ErrUnknownField. Empty values are dropped,
// so `score_class=` selects nothing.
func SelectionFromQuery(q url.Values, reserved ...string) (FilterSelection, error) {
	skip := make(map[string]struct{}, len(reserved))
	for _, r := range reserved {
		skip[r] = struct{}{}
	}

	sel := make(FilterSelection)
	for key, values := range q {
		if _, ok := skip[key]; ok {
			continue
		}
		if _, err := domain.ParseField(key); err != nil {
			return nil, fmt.Errorf("query parameter %q: %w", key, err)
		}
		kept := make([]string, 0, len(values))
		for _, v := range values {
			if v != "" {
				kept = append(kept, v)
			}
		}
		sel[key] = kept
	}
	return sel, nil
}
