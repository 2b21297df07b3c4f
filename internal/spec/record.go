// Package spec holds the read-only data model shared by the dashboard
// components: spec records from the search index and the events of the
// activity timeline.
package spec

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Status is the lifecycle state of a spec.
type Status string

const (
	StatusDraft      Status = "draft"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusArchived   Status = "archived"
	StatusReview     Status = "review"
	StatusApproved   Status = "approved"
)

// Priority is the urgency of a spec.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Record is one entry of the search index.
type Record struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Status         Status   `json:"status"`
	Priority       Priority `json:"priority"`
	Category       string   `json:"category"`
	EstimatedHours float64  `json:"estimated_hours"`
	ActualHours    float64  `json:"actual_hours"`
	GitCommits     int      `json:"git_commits"`
	PullRequests   int      `json:"pull_requests"`
	LastUpdated    string   `json:"last_updated"`
	Assignee       string   `json:"assignee"`
	Content        string   `json:"content"`
	Demonstrates   []string `json:"demonstrates"`
	URL            string   `json:"url"`
	Filename       string   `json:"filename,omitempty"`
}

// Index is the search index document.
type Index struct {
	GeneratedAt string   `json:"generated_at,omitempty"`
	TotalSpecs  int      `json:"total_specs"`
	Records     []Record `json:"index"`
}

// Total returns the advertised spec count, falling back to the number of
// records when the document does not carry one.
func (idx Index) Total() int {
	if idx.TotalSpecs > 0 {
		return idx.TotalSpecs
	}
	return len(idx.Records)
}

// DocumentURL is the page a spec record or timeline marker navigates to.
func DocumentURL(specID string) string {
	return "/engineering/specs/" + specID + ".html"
}

// Href returns the record's canonical URL, or the document URL derived
// from its file name when the index did not provide one.
func (r Record) Href() string {
	if strings.TrimSpace(r.URL) != "" {
		return r.URL
	}
	if r.Filename != "" {
		return "engineering/specs/" + r.Filename
	}
	return DocumentURL(r.ID)
}

// Label turns an enum-like value such as "in-progress" into "In progress".
func Label(value string) string {
	if value == "" {
		return ""
	}
	first, size := utf8.DecodeRuneInString(value)
	return string(unicode.ToUpper(first)) + strings.Replace(value[size:], "-", " ", 1)
}

var titleCaser = cases.Title(language.English)

// TitleCase turns "in-progress" into "In Progress" for badges and headings.
func TitleCase(value string) string {
	return titleCaser.String(strings.ReplaceAll(value, "-", " "))
}
