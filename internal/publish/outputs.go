package publish

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kangxh75/NextPM/internal/spec"
)

var statusIcons = map[spec.Status]string{
	spec.StatusDraft:      "📝",
	spec.StatusReview:     "👀",
	spec.StatusApproved:   "✅",
	spec.StatusInProgress: "🚧",
	spec.StatusCompleted:  "🎉",
}

// StatusIcon is the navigation marker for a status; unknown statuses look
// like drafts.
func StatusIcon(status spec.Status) string {
	if icon, ok := statusIcons[status]; ok {
		return icon
	}
	return statusIcons[spec.StatusDraft]
}

// NavEntry is one line of the generated navigation.
type NavEntry struct {
	Title string
	Path  string
}

// MarshalYAML writes the entry as a single "title: path" mapping.
func (e NavEntry) MarshalYAML() (any, error) {
	return map[string]string{e.Title: e.Path}, nil
}

// Navigation is the nav.yml document.
type Navigation struct {
	Specs []NavEntry `yaml:"specs"`
}

// BuildNavigation lists the specs, already in sort-key order, with their
// status icon.
func BuildNavigation(specs []Spec) Navigation {
	nav := Navigation{Specs: make([]NavEntry, 0, len(specs))}
	for _, s := range specs {
		nav.Specs = append(nav.Specs, NavEntry{
			Title: StatusIcon(s.Record.Status) + " " + s.Record.Title,
			Path:  strings.TrimPrefix(spec.DocumentURL(s.Record.ID), "/"),
		})
	}
	return nav
}

var workflowTemplate = template.Must(template.New("workflow").Funcs(template.FuncMap{"join": strings.Join}).Parse(`# {{ .Record.ID }} Implementation Summary

**Spec**: [{{ .Record.Title }}](../specs/{{ .Record.ID }}.html)
**Status**: {{ .Status }}
**Last Updated**: {{ .Stamp }}

## Development Activity

{{ .Timeline }}
## Implementation Statistics

- **Total Commits**: {{ len .Activity.Commits }}
- **Contributors**: {{ join .Activity.Contributors ", " }}
- **Branches**: {{ len .Activity.Branches }}
- **Files Changed**: {{ .Activity.FilesChanged }}

## Recent Commits

{{ range .Recent }}- **{{ .Date.Format "2006-01-02" }}**: {{ .Message }}
{{ end }}
---

**Auto-generated**: {{ .Stamp }}
**Source**: Automated dev workflow generation from git commit data
`))

// WorkflowFilename is the dev-workflow summary name for a spec id.
func WorkflowFilename(specID string) string {
	return strings.ReplaceAll(specID, "-", "_") + "_implementation_summary.md"
}

// writeWorkflow writes the summary for a spec with commits. An existing
// summary is left alone; the bool reports whether a file was written.
func writeWorkflow(dir string, s Spec, now time.Time) (bool, error) {
	if len(s.Activity.Commits) == 0 {
		return false, nil
	}
	path := filepath.Join(dir, WorkflowFilename(s.Record.ID))
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("stat %s: %w", path, err)
	}

	timeline, err := CommitTimelineHTML(s.Activity.Commits)
	if err != nil {
		return false, err
	}
	recent := s.Activity.Commits
	if len(recent) > 5 {
		recent = recent[:5]
	}

	var buf bytes.Buffer
	err = workflowTemplate.Execute(&buf, map[string]any{
		"Record":   s.Record,
		"Activity": s.Activity,
		"Status":   spec.TitleCase(string(s.Record.Status)),
		"Stamp":    now.Format("2006-01-02 15:04"),
		"Timeline": timeline,
		"Recent":   recent,
	})
	if err != nil {
		return false, fmt.Errorf("render workflow %s: %w", s.Record.ID, err)
	}
	if err := writeFile(path, buf.Bytes()); err != nil {
		return false, err
	}
	return true, nil
}

const specsIndexBody = `# Specifications

This section contains the complete PM specifications for NextPM features. These are the single source of truth for all feature planning and requirements.

## About These Specs

- **Source**: Files are automatically published from the specs directory
- **Format**: Each spec follows the NextPM specification template
- **Navigation**: This page and navigation are auto-generated during build

## Spec Naming Convention

- **Format**: ` + "`YYYY-MM-DD-nn-descriptive-name.md`" + `
- **Exception**: ` + "`0.00-project-start.md`" + ` (grandfathered first spec)

## All Specifications

`

// specsIndex is the markdown of the specifications landing page.
func specsIndex(nav Navigation) string {
	var b strings.Builder
	b.WriteString(specsIndexBody)
	for _, entry := range nav.Specs {
		fmt.Fprintf(&b, "- [%s](%s)\n", entry.Title, filepath.Base(entry.Path))
	}
	return b.String()
}

func writeJSON(path string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	return writeFile(path, append(raw, '\n'))
}

func writeYAML(path string, v any) error {
	raw, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	return writeFile(path, raw)
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// cleanDir removes the generated pages of a previous build.
func cleanDir(dir string, exts ...string) error {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		for _, ext := range exts {
			if filepath.Ext(entry.Name()) == ext {
				if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
					return fmt.Errorf("remove %s: %w", entry.Name(), err)
				}
				break
			}
		}
	}
	return nil
}
