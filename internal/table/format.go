package table

import (
	"fmt"
	"math"
	"time"

	"github.com/kangxh75/NextPM/internal/spec"
)

// Badge is a rendered status or priority pill.
type Badge struct {
	Class string
	Text  string
}

var statusBadges = map[spec.Status]Badge{
	spec.StatusDraft:      {Class: "spec-state-badge spec-state-draft", Text: "📋 Draft"},
	spec.StatusInProgress: {Class: "spec-state-badge spec-state-in-progress", Text: "🚧 In Progress"},
	spec.StatusCompleted:  {Class: "spec-state-badge spec-state-completed", Text: "✅ Completed"},
	spec.StatusArchived:   {Class: "spec-state-badge spec-state-archived", Text: "📦 Archived"},
}

var priorityBadges = map[spec.Priority]Badge{
	spec.PriorityLow:      {Class: "priority-badge priority-low", Text: "▽ Low"},
	spec.PriorityMedium:   {Class: "priority-badge priority-medium", Text: "◇ Medium"},
	spec.PriorityHigh:     {Class: "priority-badge priority-high", Text: "△ High"},
	spec.PriorityCritical: {Class: "priority-badge priority-critical", Text: "⚠️ Critical"},
}

// StatusBadge falls back to the draft badge for statuses the table has no
// pill for.
func StatusBadge(status spec.Status) Badge {
	if badge, ok := statusBadges[status]; ok {
		return badge
	}
	return statusBadges[spec.StatusDraft]
}

// PriorityBadge falls back to the medium badge.
func PriorityBadge(priority spec.Priority) Badge {
	if badge, ok := priorityBadges[priority]; ok {
		return badge
	}
	return priorityBadges[spec.PriorityMedium]
}

// FormatDate renders last_updated relative to now: Today, Yesterday, N days
// ago within a week, otherwise "Jan 2, 2006". Missing dates render as "-"
// and unparseable ones verbatim.
func FormatDate(value string, now time.Time) string {
	if value == "" {
		return spec.Defaults.DateDisplay
	}
	date, ok := spec.ParseDate(value)
	if !ok {
		return value
	}

	diffDays := int(math.Floor(now.Sub(date).Hours() / 24))
	switch {
	case diffDays == 0:
		return "Today"
	case diffDays == 1:
		return "Yesterday"
	case diffDays > 1 && diffDays < 7:
		return fmt.Sprintf("%d days ago", diffDays)
	default:
		return date.Format("Jan 2, 2006")
	}
}

// Row is one rendered table row.
type Row struct {
	ID        string
	Href      string
	Status    Badge
	Priority  Badge
	Commits   int
	PRs       int
	Updated   string
	Assignee  string
	Title     string
	Estimated float64
}

// Rows sorts records and turns them into display rows.
func Rows(records []spec.Record, state State, now time.Time) []Row {
	sorted := Sort(records, state)
	rows := make([]Row, len(sorted))
	for i, r := range sorted {
		rows[i] = Row{
			ID:        r.ID,
			Href:      r.Href(),
			Status:    StatusBadge(r.Status),
			Priority:  PriorityBadge(r.Priority),
			Commits:   r.GitCommits,
			PRs:       r.PullRequests,
			Updated:   FormatDate(r.LastUpdated, now),
			Assignee:  r.Assignee,
			Title:     r.Title,
			Estimated: r.EstimatedHours,
		}
	}
	return rows
}
