package dashboard

import (
	"net/url"
	"strings"

	"github.com/kangxh75/NextPM/internal/search"
	"github.com/kangxh75/NextPM/internal/table"
	"github.com/kangxh75/NextPM/internal/timeline"
)

const (
	dirAsc  = "asc"
	dirDesc = "desc"
)

// View is every piece of user-controlled state on the dashboard. It is
// carried in the query string so a page is reproducible from its URL.
type View struct {
	Search search.State
	Sort   table.State
	// SortExplicit is set when the sort came from the request rather than
	// the default. Without it a ranked search keeps its relevance order.
	SortExplicit bool
	Zoom         timeline.Zoom
}

// DefaultView is the cleared search, newest-first table and identity zoom.
func DefaultView() View {
	return View{
		Search: search.DefaultState(),
		Sort:   table.DefaultState(),
		Zoom:   timeline.Identity(),
	}
}

// ParseView reads q, status, priority, category, sort, dir, k, x and y.
// Missing parameters keep their defaults.
func ParseView(values url.Values) View {
	view := DefaultView()
	view.Search.Query = values.Get("q")
	view.Search.Filters.Status = facet(values.Get("status"))
	view.Search.Filters.Priority = facet(values.Get("priority"))
	view.Search.Filters.Category = facet(values.Get("category"))

	if column := strings.TrimSpace(values.Get("sort")); column != "" {
		view.Sort = table.State{Column: column, Ascending: values.Get("dir") != dirDesc}
		view.SortExplicit = true
	}
	view.Zoom = timeline.ZoomFromQuery(values)
	return view
}

func facet(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return search.All
	}
	return value
}

// Values encodes the view, omitting parameters at their default.
func (v View) Values() url.Values {
	values := url.Values{}
	if v.Search.Query != "" {
		values.Set("q", v.Search.Query)
	}
	setFacet(values, "status", v.Search.Filters.Status)
	setFacet(values, "priority", v.Search.Filters.Priority)
	setFacet(values, "category", v.Search.Filters.Category)

	if v.SortExplicit || v.Sort != table.DefaultState() {
		values.Set("sort", v.Sort.Column)
		if v.Sort.Ascending {
			values.Set("dir", dirAsc)
		} else {
			values.Set("dir", dirDesc)
		}
	}
	return values
}

// SortHref is the link a sortable header follows: the current view with
// the sort toggled on column.
func (v View) SortHref(column string) string {
	next := v
	next.Sort = v.Sort.Toggle(column)
	next.SortExplicit = true
	if encoded := next.Values().Encode(); encoded != "" {
		return "?" + encoded
	}
	return "?"
}

func setFacet(values url.Values, key, value string) {
	if value != "" && value != search.All {
		values.Set(key, value)
	}
}
