// Package dashboard renders the dashboard sections as HTML fragments and
// mounts them into a host page by element id. Each section renders on its
// own so one failing section never blanks the others.
package dashboard

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/kangxh75/NextPM/internal/search"
	"github.com/kangxh75/NextPM/internal/spec"
	"github.com/kangxh75/NextPM/internal/table"
	"github.com/kangxh75/NextPM/internal/timeline"
)

// Element ids of the host page contract.
const (
	IDSearchInput    = "spec-search"
	IDStatusFilter   = "status-filter"
	IDPriorityFilter = "priority-filter"
	IDCategoryFilter = "category-filter"
	IDClearSearch    = "clear-search"
	IDSearchResults  = "search-results"
	IDSearchStats    = "search-stats"
	IDTableBody      = "specs-table-body"
	IDActivityGraph  = "activity-graph-container"
	IDDashboardStats = "dashboard-stats"
	SortableSelector = "th.sortable[data-sort]"
	sortAttribute    = "data-sort"
)

// Data is what the sections are rendered from. A load error for either
// document switches the sections depending on it to their error
// placeholders.
type Data struct {
	Index       spec.Index
	IndexErr    error
	Events      []spec.Event
	TimelineErr error
	View        View
	Now         time.Time
}

// Fragments are the rendered sections keyed by the element they fill.
type Fragments struct {
	View     View
	Sections map[string]string
	Search   search.Response
}

// Renderer turns Data into Fragments.
type Renderer struct {
	timeline *timeline.Renderer
	logger   *zap.Logger
}

// NewRenderer returns a renderer; a nil logger discards diagnostics.
func NewRenderer(tl *timeline.Renderer, logger *zap.Logger) *Renderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if tl == nil {
		tl = timeline.NewRenderer(timeline.DefaultConfig(), logger)
	}
	return &Renderer{timeline: tl, logger: logger}
}

// Render produces every section. Load errors are logged once here and
// only replace the sections that depend on the failed document.
func (r *Renderer) Render(data Data) Fragments {
	if data.Now.IsZero() {
		data.Now = time.Now()
	}
	frags := Fragments{View: data.View, Sections: make(map[string]string)}

	if data.IndexErr != nil {
		r.logger.Error("search index unavailable", zap.Error(data.IndexErr))
		frags.Sections[IDSearchResults] = resultsErrorHTML
		frags.Sections[IDTableBody] = tableErrorHTML
		frags.Sections[IDDashboardStats] = statsErrorHTML
	} else {
		r.renderSearch(data, &frags)
		r.section(&frags, IDTableBody, tableErrorHTML, func() (string, error) { return r.tableBody(data) })
		r.section(&frags, IDDashboardStats, statsErrorHTML, func() (string, error) {
			return execute("stats", spec.Summarize(data.Index.Records))
		})
	}

	if data.TimelineErr != nil {
		r.logger.Error("activity timeline unavailable", zap.Error(data.TimelineErr))
		frags.Sections[IDActivityGraph] = timeline.ErrorHTML
	} else {
		r.section(&frags, IDActivityGraph, timeline.ErrorHTML, func() (string, error) { return r.activity(data) })
	}
	return frags
}

func (r *Renderer) section(frags *Fragments, id, fallback string, render func() (string, error)) {
	html, err := render()
	if err != nil {
		r.logger.Error("dashboard section failed", zap.String("section", id), zap.Error(err))
		html = fallback
	}
	frags.Sections[id] = html
}

func (r *Renderer) renderSearch(data Data, frags *Fragments) {
	engine := search.NewEngine(data.Index)
	resp := engine.Run(data.View.Search)
	frags.Search = resp
	frags.Sections[IDSearchStats] = resp.Stats

	r.section(frags, IDSearchResults, resultsErrorHTML, func() (string, error) {
		if len(data.Index.Records) == 0 {
			return resultsEmptyHTML, nil
		}
		if len(resp.Results) == 0 {
			return execute("no-results", nil)
		}
		return execute("results", resp.Results)
	})

	facets := engine.Facets()
	filters := data.View.Search.Filters
	options := []struct {
		id       string
		values   []string
		selected string
	}{
		{IDStatusFilter, facets.Status, filters.Status},
		{IDPriorityFilter, facets.Priority, filters.Priority},
		{IDCategoryFilter, facets.Category, filters.Category},
	}
	for _, opt := range options {
		r.section(frags, opt.id, "", func() (string, error) {
			return execute("options", struct {
				Values   []string
				Selected string
			}{opt.values, opt.selected})
		})
	}
}

func (r *Renderer) tableBody(data Data) (string, error) {
	if len(data.Index.Records) == 0 {
		return tableEmptyHTML, nil
	}
	return execute("rows", table.Rows(data.Index.Records, data.View.Sort, data.Now))
}

func (r *Renderer) activity(data Data) (string, error) {
	html, err := r.timeline.Fragment(data.Events, data.View.Zoom)
	if errors.Is(err, timeline.ErrNoValidDates) {
		// already logged by the timeline renderer; nothing to draw
		return "", nil
	}
	return html, err
}
