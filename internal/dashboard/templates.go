package dashboard

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/kangxh75/NextPM/internal/search"
	"github.com/kangxh75/NextPM/internal/spec"
)

//go:embed templates/*.html
var templateFS embed.FS

// DefaultHostPage is used when no host page is configured.
var DefaultHostPage string

var fragmentTemplates *template.Template

func init() {
	funcMap := template.FuncMap{
		"upper":         strings.ToUpper,
		"label":         spec.Label,
		"titleCase":     spec.TitleCase,
		"statusIcon":    func(s spec.Status) string { return search.StatusIcon(s) },
		"priorityColor": func(p spec.Priority) string { return search.PriorityColor(p) },
		"preview":       search.Preview,
		"dashes":        func(s string) string { return strings.Replace(s, "-", " ", 1) },
		"delay":         func(i int) string { return fmt.Sprintf("%.1fs", float64(i)*0.1) },
		"percent":       func(c spec.Count, total int) string { return fmt.Sprintf("%.1f%%", c.Percent(total)) },
		"hours":         func(h float64) string { return fmt.Sprintf("%g", h) },
	}
	fragmentTemplates = template.Must(template.New("fragments").Funcs(funcMap).Parse(fragmentsTemplate))

	host, err := templateFS.ReadFile("templates/host.html")
	if err != nil {
		// Fallback to the bare element contract if the page is not embedded
		DefaultHostPage = fallbackHostPage
		return
	}
	DefaultHostPage = string(host)
}

func execute(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := fragmentTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

const fragmentsTemplate = `
{{define "results"}}
{{- range $i, $r := .}}
<div class="search-result-item" style="animation-delay: {{delay $i}}">
  <div class="search-result-header">
    <h3 class="search-result-title"><a href="{{$r.Href}}">{{$r.Title}}</a></h3>
    <div class="search-result-badges">
      <span class="spec-state-badge spec-state-{{$r.Status}}">{{statusIcon $r.Status}} {{upper (dashes (printf "%s" $r.Status))}}</span>
      <span class="priority-badge priority-{{$r.Priority}}" style="border-left-color: {{priorityColor $r.Priority}}">{{upper (printf "%s" $r.Priority)}}</span>
    </div>
  </div>
  <div class="search-result-meta">
    <span class="result-meta-item">📂 {{dashes $r.Category}}</span>
    <span class="result-meta-item">⏱️ {{hours $r.EstimatedHours}}h estimated</span>
    <span class="result-meta-item">📝 {{$r.GitCommits}} commits</span>
    <span class="result-meta-item">👤 {{$r.Assignee}}</span>
  </div>
  <div class="search-result-preview">{{preview $r.Content}}</div>
  <div class="search-result-demonstrates">{{range $r.Demonstrates}}<span class="demo-tag">{{dashes .}}</span>{{end}}</div>
</div>
{{- end}}
{{end}}

{{define "no-results"}}
<div class="no-results">
  <div class="no-results-icon">🔍</div>
  <div class="no-results-text">No specifications found matching your criteria.</div>
  <div class="no-results-suggestion">Try adjusting your search terms or filters.</div>
</div>
{{end}}

{{define "options"}}
{{- range .Values}}<option value="{{.}}"{{if eq . $.Selected}} selected{{end}}>{{label .}}</option>{{end}}
{{end}}

{{define "rows"}}
{{- range .}}
<tr class="spec-row" data-spec-id="{{.ID}}">
  <td class="spec-id"><a href="{{.Href}}">{{.ID}}</a></td>
  <td class="spec-status"><span class="{{.Status.Class}}">{{.Status.Text}}</span></td>
  <td class="spec-commits">{{.Commits}}</td>
  <td class="spec-prs">{{.PRs}}</td>
  <td class="spec-updated">{{.Updated}}</td>
</tr>
{{- end}}
{{end}}

{{define "stats"}}
<div class="stats-grid">
  <div class="stat-card"><div class="stat-number">{{.Total}}</div><div class="stat-label">Total Specs</div></div>
  <div class="stat-card"><div class="stat-number">{{.Completed}}</div><div class="stat-label">Completed</div></div>
  <div class="stat-card"><div class="stat-number">{{.InProgress}}</div><div class="stat-label">In Progress</div></div>
  <div class="stat-card"><div class="stat-number">{{.Draft}}</div><div class="stat-label">Draft</div></div>
</div>
<div class="status-breakdown">
{{- $total := .Total}}
{{- range .ByStatus}}
  <div class="status-item">
    <span class="spec-state-badge spec-state-{{.Value}}">{{titleCase .Value}}</span>
    <div class="progress-bar"><div class="progress-fill" style="width: {{percent . $total}}"></div></div>
    <span class="count">{{.Count}}</span>
  </div>
{{- end}}
</div>
{{end}}
`

const (
	tableErrorHTML   = `<tr><td colspan="5" style="text-align:center;padding:2rem;">Failed to load specifications data</td></tr>`
	tableEmptyHTML   = `<tr><td colspan="5" style="text-align:center;padding:2rem;">No specifications published yet</td></tr>`
	resultsEmptyHTML = `<div class="no-results no-data"><div class="no-results-text">No specifications published yet.</div></div>`
	resultsErrorHTML = `<div class="search-error">Failed to load the search index. Please try refreshing the page.</div>`
	statsErrorHTML   = `<div class="stats-error">Statistics unavailable</div>`
)

const fallbackHostPage = `<!doctype html>
<html lang="en">
<head><meta charset="utf-8"><title>NextPM Spec Dashboard</title></head>
<body>
<div id="dashboard-stats"></div>
<form method="get">
<input id="spec-search" name="q" type="search">
<select id="status-filter" name="status"><option value="all">All</option></select>
<select id="priority-filter" name="priority"><option value="all">All</option></select>
<select id="category-filter" name="category"><option value="all">All</option></select>
<a id="clear-search" href="?">Clear</a>
</form>
<div id="search-stats"></div>
<div id="search-results"></div>
<table class="specs-table"><thead><tr>
<th class="sortable" data-sort="id">ID</th>
<th class="sortable" data-sort="status">Status</th>
<th class="sortable" data-sort="commits">Commits</th>
<th class="sortable" data-sort="prs">PRs</th>
<th class="sortable" data-sort="updated">Updated</th>
</tr></thead><tbody id="specs-table-body"></tbody></table>
<div id="activity-graph-container"></div>
</body>
</html>`
