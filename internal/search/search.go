// Package search filters and ranks spec records for the dashboard: a
// free-text query narrows the candidate pool, then the status, priority
// and category facets narrow it further.
package search

import "github.com/kangxh75/NextPM/internal/spec"

// All is the facet value that disables a facet.
const All = "all"

// MinQueryLength is the shortest trimmed query that filters anything.
const MinQueryLength = 2

// Filters holds the three facet selections.
type Filters struct {
	Status   string `json:"status"`
	Priority string `json:"priority"`
	Category string `json:"category"`
}

// NoFilters selects everything.
func NoFilters() Filters {
	return Filters{Status: All, Priority: All, Category: All}
}

// State is the whole search input: the query text and the facets. It is
// passed explicitly into the engine so every evaluation is reproducible.
type State struct {
	Query   string  `json:"query"`
	Filters Filters `json:"filters"`
}

// DefaultState is the cleared state.
func DefaultState() State {
	return State{Filters: NoFilters()}
}

// Clear resets the query and every facet.
func (s State) Clear() State {
	return DefaultState()
}

// Response is the envelope returned to the dashboard and the JSON API.
type Response struct {
	Results []spec.Record `json:"results"`
	Shown   int           `json:"shown"`
	Total   int           `json:"total"`
	Query   string        `json:"query"`
	Filters Filters       `json:"filters"`
	Stats   string        `json:"stats"`
}

// FacetOptions lists the distinct facet values of an index in order of
// first appearance.
type FacetOptions struct {
	Status   []string `json:"status"`
	Priority []string `json:"priority"`
	Category []string `json:"category"`
}
