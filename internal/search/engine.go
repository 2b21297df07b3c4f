package search

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kangxh75/NextPM/internal/spec"
)

const (
	titleScore   = 10
	contentScore = 5
)

// Engine evaluates search states against one loaded index. The index is
// never modified.
type Engine struct {
	records []spec.Record
	total   int
}

// NewEngine wraps an index snapshot.
func NewEngine(idx spec.Index) *Engine {
	return &Engine{records: idx.Records, total: idx.Total()}
}

// Total is the spec count used in the stats line.
func (e *Engine) Total() int {
	return e.total
}

// Records returns the full unfiltered index.
func (e *Engine) Records() []spec.Record {
	return e.records
}

// Search returns the records matching query, best matches first. Queries
// shorter than MinQueryLength after trimming pass the full set through in
// index order. Records with equal scores keep their index order.
func (e *Engine) Search(query string) []spec.Record {
	if !Ranks(query) {
		return e.records
	}
	term := strings.ToLower(strings.TrimSpace(query))

	type hit struct {
		record spec.Record
		score  int
	}
	hits := make([]hit, 0)
	for _, record := range e.records {
		if !Matches(record, term) {
			continue
		}
		hits = append(hits, hit{record: record, score: Score(record, term)})
	}

	// Stable: the secondary key is the original index position.
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].score > hits[j].score
	})

	results := make([]spec.Record, len(hits))
	for i, h := range hits {
		results[i] = h.record
	}
	return results
}

// Ranks reports whether query is long enough to filter and rank records.
func Ranks(query string) bool {
	return len([]rune(strings.TrimSpace(query))) >= MinQueryLength
}

// Matches reports whether a lower-cased term occurs in the record's title,
// content, category or any demonstrates tag.
func Matches(record spec.Record, term string) bool {
	if strings.Contains(strings.ToLower(record.Title), term) ||
		strings.Contains(strings.ToLower(record.Content), term) ||
		strings.Contains(strings.ToLower(record.Category), term) {
		return true
	}
	for _, tag := range record.Demonstrates {
		if strings.Contains(strings.ToLower(tag), term) {
			return true
		}
	}
	return false
}

// Score ranks a matching record: title hits outweigh content hits and
// both add up.
func Score(record spec.Record, term string) int {
	score := 0
	if strings.Contains(strings.ToLower(record.Title), term) {
		score += titleScore
	}
	if strings.Contains(strings.ToLower(record.Content), term) {
		score += contentScore
	}
	return score
}

// ApplyFilters keeps the records equal to every active facet. An "all" or
// empty facet keeps everything.
func ApplyFilters(records []spec.Record, filters Filters) []spec.Record {
	out := make([]spec.Record, 0, len(records))
	for _, record := range records {
		if !facetMatches(filters.Status, string(record.Status)) ||
			!facetMatches(filters.Priority, string(record.Priority)) ||
			!facetMatches(filters.Category, record.Category) {
			continue
		}
		out = append(out, record)
	}
	return out
}

func facetMatches(selected, value string) bool {
	return selected == "" || selected == All || selected == value
}

// Run evaluates a full state: search first, then facets.
func (e *Engine) Run(state State) Response {
	results := ApplyFilters(e.Search(state.Query), state.Filters)
	return Response{
		Results: results,
		Shown:   len(results),
		Total:   e.total,
		Query:   state.Query,
		Filters: state.Filters,
		Stats:   StatsLine(len(results), e.total),
	}
}

// Facets collects the distinct status, priority and category values in
// order of first appearance.
func (e *Engine) Facets() FacetOptions {
	return FacetOptions{
		Status:   distinct(e.records, func(r spec.Record) string { return string(r.Status) }),
		Priority: distinct(e.records, func(r spec.Record) string { return string(r.Priority) }),
		Category: distinct(e.records, func(r spec.Record) string { return r.Category }),
	}
}

func distinct(records []spec.Record, field func(spec.Record) string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, record := range records {
		value := field(record)
		if seen[value] {
			continue
		}
		seen[value] = true
		out = append(out, value)
	}
	return out
}

// StatsLine is the "Showing X of Y specifications" summary.
func StatsLine(shown, total int) string {
	return fmt.Sprintf("Showing %d of %d specifications", shown, total)
}
