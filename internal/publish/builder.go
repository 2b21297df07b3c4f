package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kangxh75/NextPM/internal/dashboard"
	"github.com/kangxh75/NextPM/internal/gitrepo"
	"github.com/kangxh75/NextPM/internal/spec"
)

// Output locations, relative to the output directory.
const (
	IndexPath     = "assets/search-index.json"
	TimelinePath  = "assets/activity-timeline.json"
	StatsPath     = "assets/dashboard-stats.json"
	NavPath       = "nav.yml"
	SpecsDir      = "engineering/specs"
	WorkflowsDir  = "engineering/dev-workflows"
	DashboardPath = "index.html"
)

// Options configures a build.
type Options struct {
	SpecsDir     string
	OutDir       string
	WorkflowsDir string
	GitHubRepo   string
	Pattern      string
	// Now stamps the generated documents; zero means time.Now.
	Now func() time.Time
}

// Spec is one published spec with everything derived from it.
type Spec struct {
	Source      string
	Frontmatter Frontmatter
	Record      spec.Record
	Activity    gitrepo.Activity
	Events      []spec.Event
	Body        string
}

// Result is the outcome of a build.
type Result struct {
	Index     spec.Index
	Timeline  spec.Timeline
	Stats     spec.Stats
	Specs     []Spec
	Workflows []string
}

// Builder publishes a specs directory. It is not safe for concurrent
// Build calls.
type Builder struct {
	opts   Options
	git    *gitrepo.Service
	logger *zap.Logger
}

// New returns a builder. A nil git service disables git activity.
func New(opts Options, git *gitrepo.Service, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Pattern == "" {
		opts.Pattern = DefaultPattern
	}
	if opts.WorkflowsDir == "" {
		opts.WorkflowsDir = filepath.Join(opts.OutDir, WorkflowsDir)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Builder{opts: opts, git: git, logger: logger}
}

// Build reads every spec, writes the site and returns what it wrote.
func (b *Builder) Build(ctx context.Context) (Result, error) {
	now := b.opts.Now()
	files, err := Discover(b.opts.SpecsDir, b.opts.Pattern)
	if err != nil {
		return Result{}, err
	}
	if b.git != nil {
		b.git.Reset()
	}

	specsOut := filepath.Join(b.opts.OutDir, SpecsDir)
	if err := cleanDir(specsOut, ".md", ".html"); err != nil {
		return Result{}, err
	}

	result := Result{Specs: make([]Spec, 0, len(files)), Workflows: make([]string, 0)}
	gitEnabled := b.git != nil
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		s, err := b.load(file, &gitEnabled)
		if err != nil {
			return Result{}, err
		}
		if err := b.writeSpec(specsOut, s); err != nil {
			return Result{}, err
		}
		result.Specs = append(result.Specs, s)
	}

	records := make([]spec.Record, 0, len(result.Specs))
	events := make([]spec.Event, 0)
	for _, s := range result.Specs {
		records = append(records, s.Record)
		events = append(events, s.Events...)
	}
	stamp := now.UTC().Format(time.RFC3339)
	result.Index = spec.Index{GeneratedAt: stamp, TotalSpecs: len(records), Records: records}
	result.Timeline = spec.Timeline{GeneratedAt: stamp, Events: events}
	result.Stats = spec.Summarize(records)

	if err := b.writeSite(specsOut, result, now); err != nil {
		return Result{}, err
	}

	for _, s := range result.Specs {
		written, err := writeWorkflow(b.opts.WorkflowsDir, s, now)
		if err != nil {
			return Result{}, err
		}
		if written {
			name := WorkflowFilename(s.Record.ID)
			result.Workflows = append(result.Workflows, name)
			b.logger.Info("generated dev workflow", zap.String("file", name))
		}
	}

	b.logger.Info("specs published",
		zap.Int("specs", len(result.Specs)),
		zap.Int("events", len(events)),
		zap.Int("workflows", len(result.Workflows)),
		zap.String("out", b.opts.OutDir),
	)
	return result, nil
}

func (b *Builder) load(file string, gitEnabled *bool) (Spec, error) {
	raw, err := os.ReadFile(file)
	if err != nil {
		return Spec{}, fmt.Errorf("read spec %s: %w", file, err)
	}
	info, err := os.Stat(file)
	if err != nil {
		return Spec{}, fmt.Errorf("stat spec %s: %w", file, err)
	}

	fm, body, err := ParseFrontmatter(string(raw))
	if err != nil {
		b.logger.Warn("ignoring frontmatter", zap.String("file", file), zap.Error(err))
	}
	fm = fm.withDefaults()

	name := filepath.Base(file)
	id := SpecID(name)
	activity := b.activity(id, gitEnabled)

	lastUpdated := info.ModTime().UTC().Format(time.RFC3339)
	if last, ok := activity.LastCommit(); ok {
		lastUpdated = last.UTC().Format(time.RFC3339)
	}

	record := spec.Record{
		ID:             id,
		Title:          ExtractTitle(body, name),
		Status:         fm.Status,
		Priority:       fm.Priority,
		Category:       fm.Category,
		EstimatedHours: fm.EstimatedHours,
		ActualHours:    fm.ActualHours,
		GitCommits:     len(activity.Commits),
		LastUpdated:    lastUpdated,
		Assignee:       fm.Assignee,
		Content:        strings.ToLower(body),
		Demonstrates:   fm.Demonstrates,
		URL:            spec.DocumentURL(id),
		Filename:       name,
	}

	prs := b.pullRequests(fm, activity)
	record.PullRequests = len(prs)

	processed := RewriteLinks(body, b.opts.GitHubRepo)
	processed, err = Inject(processed, TimelineData{
		SpecID:         id,
		Status:         fm.Status,
		StateHistory:   fm.StateHistory,
		EstimatedHours: fm.EstimatedHours,
		ActualHours:    fm.ActualHours,
		Priority:       fm.Priority,
		Category:       fm.Category,
		Demonstrates:   fm.Demonstrates,
	}, activity.Commits)
	if err != nil {
		return Spec{}, fmt.Errorf("process spec %s: %w", name, err)
	}

	s := Spec{
		Source:      file,
		Frontmatter: fm,
		Record:      record,
		Activity:    activity,
		Body:        processed,
	}
	s.Events = events(s, prs, info.ModTime())
	return s, nil
}

// activity reads the spec's git activity. Git problems are logged and the
// spec is published without it; a missing repository turns git off for
// the rest of the build.
func (b *Builder) activity(id string, gitEnabled *bool) gitrepo.Activity {
	empty := gitrepo.Activity{
		SpecID:       id,
		Commits:      []gitrepo.CommitInfo{},
		Branches:     []string{},
		PullRequests: []gitrepo.PullRequest{},
		Contributors: []string{},
	}
	if !*gitEnabled {
		return empty
	}
	activity, err := b.git.Activity(id)
	if err != nil {
		if errors.Is(err, gitrepo.ErrNoRepository) {
			*gitEnabled = false
		}
		b.logger.Warn("could not collect git data", zap.String("spec_id", id), zap.Error(err))
		return empty
	}
	return activity
}

// pullRequests merges frontmatter pull requests with merged ones found in
// git, keyed by number. Frontmatter wins on conflicts.
func (b *Builder) pullRequests(fm Frontmatter, activity gitrepo.Activity) []PullRequestRef {
	seen := make(map[int]bool)
	prs := make([]PullRequestRef, 0, len(fm.PullRequests)+len(activity.PullRequests))
	for _, pr := range fm.PullRequests {
		if seen[pr.Number] {
			continue
		}
		seen[pr.Number] = true
		if pr.URL == "" && b.opts.GitHubRepo != "" && pr.Number > 0 {
			pr.URL = fmt.Sprintf("https://github.com/%s/pull/%d", strings.Trim(b.opts.GitHubRepo, "/"), pr.Number)
		}
		prs = append(prs, pr)
	}
	for _, pr := range activity.PullRequests {
		if seen[pr.Number] {
			continue
		}
		seen[pr.Number] = true
		prs = append(prs, PullRequestRef{
			Number:   pr.Number,
			Title:    pr.Title,
			Author:   pr.Author,
			Branch:   pr.Branch,
			URL:      pr.URL,
			MergedAt: pr.MergedAt.UTC().Format(time.RFC3339),
		})
	}
	return prs
}

// events is the spec's timeline: creation, commits oldest first, then
// merged pull requests by merge date.
func events(s Spec, prs []PullRequestRef, modTime time.Time) []spec.Event {
	out := make([]spec.Event, 0, 1+len(s.Activity.Commits)+len(prs))
	out = append(out, spec.Event{
		Type:   spec.EventSpecCreated,
		SpecID: s.Record.ID,
		Date:   createdDate(s, modTime),
		Title:  s.Record.Title,
		Status: s.Record.Status,
	})

	for i := len(s.Activity.Commits) - 1; i >= 0; i-- {
		c := s.Activity.Commits[i]
		out = append(out, spec.Event{
			Type:         spec.EventCommit,
			SpecID:       s.Record.ID,
			Date:         c.Date.UTC().Format(time.RFC3339),
			Hash:         c.Hash,
			Message:      c.Message,
			Author:       c.Author,
			FilesChanged: c.FilesChanged,
		})
	}

	merged := make([]spec.Event, 0, len(prs))
	for _, pr := range prs {
		merged = append(merged, spec.Event{
			Type:      spec.EventPRMerged,
			SpecID:    s.Record.ID,
			Date:      pr.MergedAt,
			Title:     pr.Title,
			Author:    pr.Author,
			PRNumber:  pr.Number,
			Branch:    pr.Branch,
			GitHubURL: pr.URL,
		})
	}
	sort.SliceStable(merged, func(i, j int) bool {
		a, _ := spec.ParseDate(merged[i].Date)
		b, _ := spec.ParseDate(merged[j].Date)
		return a.Before(b)
	})
	return append(out, merged...)
}

// createdDate prefers the frontmatter date, then the date in the spec id,
// then the first commit, then the file's modification time.
func createdDate(s Spec, modTime time.Time) string {
	if s.Frontmatter.Created != "" {
		return s.Frontmatter.Created
	}
	if day, ok := datePrefix(s.Record.ID); ok {
		return day
	}
	if n := len(s.Activity.Commits); n > 0 {
		return s.Activity.Commits[n-1].Date.UTC().Format(time.RFC3339)
	}
	return modTime.UTC().Format(time.RFC3339)
}

func (b *Builder) writeSpec(dir string, s Spec) error {
	if err := writeFile(filepath.Join(dir, s.Record.ID+".md"), []byte(s.Body)); err != nil {
		return err
	}
	page, err := RenderPage(s.Record.ID, s.Record.Title, s.Body)
	if err != nil {
		return fmt.Errorf("render %s: %w", s.Record.ID, err)
	}
	return writeFile(filepath.Join(dir, s.Record.ID+".html"), page)
}

func (b *Builder) writeSite(specsOut string, result Result, now time.Time) error {
	out := b.opts.OutDir
	if err := writeJSON(filepath.Join(out, IndexPath), result.Index); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(out, TimelinePath), result.Timeline); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(out, StatsPath), result.Stats); err != nil {
		return err
	}

	nav := BuildNavigation(result.Specs)
	if err := writeYAML(filepath.Join(out, NavPath), nav); err != nil {
		return err
	}
	page, err := RenderPage("index", "Specifications", specsIndex(nav))
	if err != nil {
		return err
	}
	if err := writeFile(filepath.Join(specsOut, "index.html"), page); err != nil {
		return err
	}

	frags := dashboard.NewRenderer(nil, b.logger).Render(dashboard.Data{
		Index:  result.Index,
		Events: result.Timeline.Events,
		View:   dashboard.DefaultView(),
		Now:    now,
	})
	home, err := dashboard.MountString("", frags)
	if err != nil {
		return fmt.Errorf("render dashboard: %w", err)
	}
	return writeFile(filepath.Join(out, DashboardPath), []byte(home))
}
