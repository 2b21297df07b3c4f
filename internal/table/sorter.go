// Package table orders spec records for the dashboard table. Sorting
// always works on a copy so the index keeps its canonical order.
package table

import (
	"sort"
	"time"

	"github.com/kangxh75/NextPM/internal/spec"
)

// Column keys as carried by the data-sort attribute of sortable headers.
const (
	ColumnID             = "id"
	ColumnTitle          = "title"
	ColumnStatus         = "status"
	ColumnPriority       = "priority"
	ColumnEstimatedHours = "estimated_hours"
	ColumnActualHours    = "actual_hours"
	ColumnCommits        = "commits"
	ColumnPRs            = "prs"
	ColumnUpdated        = "updated"
	ColumnAssignee       = "assignee"
)

var priorityOrder = map[spec.Priority]int{
	spec.PriorityLow:      1,
	spec.PriorityMedium:   2,
	spec.PriorityHigh:     3,
	spec.PriorityCritical: 4,
}

// State is the single active sort column and its direction.
type State struct {
	Column    string `json:"column"`
	Ascending bool   `json:"ascending"`
}

// DefaultState sorts by last update, most recent first.
func DefaultState() State {
	return State{Column: ColumnUpdated, Ascending: false}
}

// Toggle handles a header click: the active column flips direction, any
// other column becomes active in ascending order.
func (s State) Toggle(column string) State {
	if s.Column == column {
		return State{Column: column, Ascending: !s.Ascending}
	}
	return State{Column: column, Ascending: true}
}

// Indicator is the CSS class for a header cell: sort-asc or sort-desc on
// the active column, empty elsewhere.
func (s State) Indicator(column string) string {
	if column != s.Column {
		return ""
	}
	if s.Ascending {
		return "sort-asc"
	}
	return "sort-desc"
}

// Sort returns a sorted copy of records. Records with equal keys keep
// their relative order; an unknown column leaves the order unchanged.
func Sort(records []spec.Record, state State) []spec.Record {
	out := make([]spec.Record, len(records))
	copy(out, records)

	cmp := comparator(state.Column)
	if cmp == nil {
		return out
	}
	sort.SliceStable(out, func(i, j int) bool {
		c := cmp(out[i], out[j])
		if state.Ascending {
			return c < 0
		}
		return c > 0
	})
	return out
}

// IsSortable reports whether column has a comparator.
func IsSortable(column string) bool {
	return comparator(column) != nil
}

func comparator(column string) func(a, b spec.Record) int {
	switch column {
	case ColumnID:
		return byString(func(r spec.Record) string { return r.ID })
	case ColumnTitle:
		return byString(func(r spec.Record) string { return r.Title })
	case ColumnStatus:
		return byString(func(r spec.Record) string { return string(r.Status) })
	case ColumnAssignee:
		return byString(func(r spec.Record) string { return r.Assignee })
	case ColumnPriority:
		return byNumber(func(r spec.Record) float64 { return float64(PriorityRank(r.Priority)) })
	case ColumnEstimatedHours:
		return byNumber(func(r spec.Record) float64 { return r.EstimatedHours })
	case ColumnActualHours:
		return byNumber(func(r spec.Record) float64 { return r.ActualHours })
	case ColumnCommits:
		return byNumber(func(r spec.Record) float64 { return float64(r.GitCommits) })
	case ColumnPRs:
		return byNumber(func(r spec.Record) float64 { return float64(r.PullRequests) })
	case ColumnUpdated:
		return byNumber(func(r spec.Record) float64 { return float64(UpdatedAt(r).UnixMilli()) })
	default:
		return nil
	}
}

// PriorityRank maps low..critical to 1..4; unknown priorities rank 0 and
// sort before low.
func PriorityRank(p spec.Priority) int {
	return priorityOrder[p]
}

// UpdatedAt parses last_updated; missing or unparseable dates count as the
// Unix epoch.
func UpdatedAt(r spec.Record) time.Time {
	if t, ok := spec.ParseDate(r.LastUpdated); ok {
		return t
	}
	return time.Unix(0, 0).UTC()
}

func byString(key func(spec.Record) string) func(a, b spec.Record) int {
	return func(a, b spec.Record) int {
		ka, kb := key(a), key(b)
		switch {
		case ka < kb:
			return -1
		case ka > kb:
			return 1
		default:
			return 0
		}
	}
}

func byNumber(key func(spec.Record) float64) func(a, b spec.Record) int {
	return func(a, b spec.Record) int {
		ka, kb := key(a), key(b)
		switch {
		case ka < kb:
			return -1
		case ka > kb:
			return 1
		default:
			return 0
		}
	}
}
