// Package publish turns the markdown specs of a repository into the static
// dashboard site: the search index and activity timeline documents,
// rendered spec pages, navigation and dev-workflow summaries.
package publish

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/kangxh75/NextPM/internal/spec"
)

// DefaultPattern matches the specs directly inside the specs directory.
const DefaultPattern = "*.md"

const projectStartStem = "0.00-project-start"

var (
	specIDPattern   = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}-\d{2})`)
	namedIDPattern  = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}-\d{2})-(.+)$`)
	headingPattern  = regexp.MustCompile(`(?m)^#\s+(.+)$`)
	datePrefixRegex = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})`)
)

// StateChange is one entry of a spec's state_history.
type StateChange struct {
	Status string `yaml:"status" json:"status"`
	Date   string `yaml:"date" json:"date"`
	Note   string `yaml:"note,omitempty" json:"note,omitempty"`
}

// PullRequestRef is a pull request listed in frontmatter.
type PullRequestRef struct {
	Number   int    `yaml:"number"`
	Title    string `yaml:"title"`
	Author   string `yaml:"author"`
	Branch   string `yaml:"branch"`
	URL      string `yaml:"url"`
	MergedAt string `yaml:"merged_at"`
}

// Frontmatter is the YAML header of a spec file.
type Frontmatter struct {
	Status         spec.Status      `yaml:"status"`
	Priority       spec.Priority    `yaml:"priority"`
	EstimatedHours float64          `yaml:"estimated_hours"`
	ActualHours    float64          `yaml:"actual_hours"`
	Assignee       string           `yaml:"assignee"`
	Category       string           `yaml:"category"`
	Demonstrates   []string         `yaml:"demonstrates"`
	StateHistory   []StateChange    `yaml:"state_history"`
	Created        string           `yaml:"created"`
	PullRequests   []PullRequestRef `yaml:"pull_requests"`
}

// withDefaults fills every field the spec file left out.
func (f Frontmatter) withDefaults() Frontmatter {
	if f.Status == "" {
		f.Status = spec.Defaults.Status
	}
	if f.Priority == "" {
		f.Priority = spec.Defaults.Priority
	}
	if f.Assignee == "" {
		f.Assignee = spec.Defaults.Assignee
	}
	if f.Category == "" {
		f.Category = spec.Defaults.Category
	}
	if f.Demonstrates == nil {
		f.Demonstrates = []string{}
	}
	if f.StateHistory == nil {
		f.StateHistory = []StateChange{}
	}
	return f
}

// Discover lists the spec files under specsDir matching pattern, skipping
// README.md, in spec sort-key order.
func Discover(specsDir, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	info, err := os.Stat(specsDir)
	if err != nil {
		return nil, fmt.Errorf("specs directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("specs directory %s is not a directory", specsDir)
	}

	matches, err := doublestar.FilepathGlob(filepath.Join(specsDir, pattern))
	if err != nil {
		return nil, fmt.Errorf("glob specs: %w", err)
	}

	files := make([]string, 0, len(matches))
	for _, match := range matches {
		if strings.EqualFold(filepath.Base(match), "readme.md") {
			continue
		}
		if st, err := os.Stat(match); err != nil || st.IsDir() {
			continue
		}
		files = append(files, match)
	}
	sort.SliceStable(files, func(i, j int) bool {
		return SortKey(filepath.Base(files[i])) < SortKey(filepath.Base(files[j]))
	})
	return files, nil
}

// ParseFrontmatter splits a "---" delimited YAML header from the body. A
// file without a header, or with one that does not parse, is all body.
func ParseFrontmatter(content string) (Frontmatter, string, error) {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	if !strings.HasPrefix(content, "---\n") {
		return Frontmatter{}, content, nil
	}
	end := strings.Index(content[4:], "\n---\n")
	if end == -1 {
		return Frontmatter{}, content, nil
	}
	header := content[4 : 4+end]
	body := content[4+end+5:]

	var fm Frontmatter
	if err := yaml.Unmarshal([]byte(header), &fm); err != nil {
		return Frontmatter{}, content, fmt.Errorf("parse YAML frontmatter: %w", err)
	}
	return fm, body, nil
}

func stem(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// SpecID is the YYYY-MM-DD-nn prefix of the file name, "0.00" for the
// project start spec, or the bare stem.
func SpecID(filename string) string {
	s := stem(filename)
	if s == projectStartStem {
		return "0.00"
	}
	if m := specIDPattern.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}

// SortKey orders specs chronologically with the project start first.
func SortKey(filename string) string {
	s := stem(filename)
	if s == projectStartStem {
		return "0000-00-00-00"
	}
	if m := specIDPattern.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}

// ExtractTitle returns the first H1 of body, or a title derived from the
// file name.
func ExtractTitle(body, filename string) string {
	if m := headingPattern.FindStringSubmatch(body); m != nil {
		return strings.TrimSpace(m[1])
	}
	s := stem(filename)
	if s == projectStartStem {
		return "0.00 Project Start"
	}
	if m := namedIDPattern.FindStringSubmatch(s); m != nil {
		return m[1] + " " + spec.TitleCase(m[2])
	}
	return spec.TitleCase(s)
}

// datePrefix returns the YYYY-MM-DD part of a spec id, if any.
func datePrefix(specID string) (string, bool) {
	m := datePrefixRegex.FindStringSubmatch(specID)
	if m == nil {
		return "", false
	}
	return m[1], true
}
