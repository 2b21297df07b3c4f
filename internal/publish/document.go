package publish

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"html/template"
	"regexp"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/kangxh75/NextPM/internal/gitrepo"
	"github.com/kangxh75/NextPM/internal/spec"
)

// DefaultGitHubRepo is used for link rewriting when no repository is
// configured.
const DefaultGitHubRepo = "kangxh75/NextPM"

var (
	rootLinkPattern = regexp.MustCompile(`\]\(\.\./\.\./((?:AI-NATIVE\.md|GETTING-STARTED\.md|mkdocs\.yml|ai-context/[^)]+|project/[^)]+))\)`)
	adrLinkPattern  = regexp.MustCompile(`\]\((?:\.\./)+(meta/adr/[^)]+)\)`)
)

var priorityIcons = map[spec.Priority]string{
	spec.PriorityHigh:   "🔥",
	spec.PriorityMedium: "📋",
	spec.PriorityLow:    "📝",
}

// BlobBase is the GitHub URL repository files are linked to.
func BlobBase(githubRepo string) string {
	if githubRepo == "" {
		githubRepo = DefaultGitHubRepo
	}
	return "https://github.com/" + strings.Trim(githubRepo, "/") + "/blob/master"
}

// RewriteLinks points links to files outside the published tree at their
// GitHub blob URL.
func RewriteLinks(content, githubRepo string) string {
	base := BlobBase(githubRepo)
	content = rootLinkPattern.ReplaceAllString(content, "]("+base+"/$1)")
	return adrLinkPattern.ReplaceAllString(content, "]("+base+"/$1)")
}

// StateBadge renders the status badge shown under a spec's heading.
func StateBadge(status spec.Status, priority spec.Priority) string {
	icon, ok := priorityIcons[priority]
	if !ok {
		icon = priorityIcons[spec.PriorityMedium]
	}
	return fmt.Sprintf("<span class=\"spec-state-badge spec-state-%s\" data-status=\"%s\" data-priority=\"%s\">\n    %s %s\n</span>",
		html.EscapeString(string(status)), html.EscapeString(string(status)), html.EscapeString(string(priority)),
		icon, html.EscapeString(spec.TitleCase(string(status))))
}

// TimelineData is the per-spec payload carried by the spec-timeline
// element.
type TimelineData struct {
	SpecID         string        `json:"spec_id"`
	Status         spec.Status   `json:"status"`
	StateHistory   []StateChange `json:"state_history"`
	EstimatedHours float64       `json:"estimated_hours"`
	ActualHours    float64       `json:"actual_hours"`
	Priority       spec.Priority `json:"priority"`
	Category       string        `json:"category"`
	Demonstrates   []string      `json:"demonstrates"`
}

func timelineElement(data TimelineData) (string, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("encode timeline data: %w", err)
	}
	return `<div class="spec-timeline" data-timeline="` + html.EscapeString(string(raw)) + `"></div>`, nil
}

var commitTimelineTemplate = template.Must(template.New("commits").Parse(`<div class="commit-timeline">
    <h4>📝 Development Timeline</h4>
    <div class="timeline-container">
{{- range $i, $c := . }}
        <div class="timeline-item{{ if eq $i 0 }} latest{{ end }}">
            <div class="timeline-marker"></div>
            <div class="timeline-content">
                <div class="commit-header">
                    <span class="commit-hash">#{{ $c.Hash }}</span>
                    <span class="commit-date">{{ $c.Date.Format "2006-01-02" }}</span>
                </div>
                <div class="commit-message">{{ $c.Message }}</div>
                <div class="commit-meta">
                    <span class="commit-author">👤 {{ $c.Author }}</span>
                    <span class="files-changed">📁 {{ $c.FilesChanged }} files changed</span>
                </div>
            </div>
        </div>
{{- end }}
    </div>
</div>
`))

// CommitTimelineHTML lists commits newest first, the first one marked as
// latest.
func CommitTimelineHTML(commits []gitrepo.CommitInfo) (string, error) {
	if len(commits) == 0 {
		return `<div class="commit-timeline-empty">No commits linked to this spec yet.</div>`, nil
	}
	var buf bytes.Buffer
	if err := commitTimelineTemplate.Execute(&buf, commits); err != nil {
		return "", fmt.Errorf("render commit timeline: %w", err)
	}
	return buf.String(), nil
}

// Inject places the state badge, the timeline element and, when there are
// commits, the commit timeline right after the first H1. A body without an
// H1 is returned unchanged.
func Inject(body string, data TimelineData, commits []gitrepo.CommitInfo) (string, error) {
	lines := strings.Split(body, "\n")
	at := -1
	for i, line := range lines {
		if strings.HasPrefix(line, "# ") {
			at = i
			break
		}
	}
	if at == -1 {
		return body, nil
	}

	element, err := timelineElement(data)
	if err != nil {
		return "", err
	}
	inserted := []string{"", StateBadge(data.Status, data.Priority), "", element, ""}
	if len(commits) > 0 {
		timeline, err := CommitTimelineHTML(commits)
		if err != nil {
			return "", err
		}
		inserted = append(inserted, timeline, "")
	}

	out := make([]string, 0, len(lines)+len(inserted))
	out = append(out, lines[:at+1]...)
	out = append(out, inserted...)
	out = append(out, lines[at+1:]...)
	return strings.Join(out, "\n"), nil
}

var (
	markdownOnce     sync.Once
	markdownInstance goldmark.Markdown
)

func markdown() goldmark.Markdown {
	markdownOnce.Do(func() {
		markdownInstance = goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
			// injected badges and timelines are raw HTML
			goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
		)
	})
	return markdownInstance
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{ .Title }} · NextPM</title>
</head>
<body>
<nav class="spec-nav"><a href="/">Dashboard</a> · <a href="index.html">Specifications</a></nav>
<article class="spec-document" data-spec-id="{{ .ID }}">
{{ .Body }}
</article>
</body>
</html>
`))

// RenderPage converts a processed spec body to a standalone HTML page.
func RenderPage(id, title, body string) ([]byte, error) {
	var content bytes.Buffer
	if err := markdown().Convert([]byte(body), &content); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}
	var page bytes.Buffer
	err := pageTemplate.Execute(&page, struct {
		ID, Title string
		Body      template.HTML
	}{ID: id, Title: title, Body: template.HTML(content.String())})
	if err != nil {
		return nil, fmt.Errorf("render page: %w", err)
	}
	return page.Bytes(), nil
}
