package dashboard

import (
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kangxh75/NextPM/internal/search"
	"github.com/kangxh75/NextPM/internal/spec"
	"github.com/kangxh75/NextPM/internal/table"
	"github.com/kangxh75/NextPM/internal/timeline"
)

func scenarioIndex() spec.Index {
	return spec.Index{TotalSpecs: 2, Records: spec.NormalizeAll([]spec.Record{
		{ID: "A", Title: "Alpha", Status: "completed", Priority: "high", Category: "nextpm-feature", LastUpdated: "2024-01-10", GitCommits: 3},
		{ID: "B", Title: "Beta", Status: "draft", Priority: "low", Category: "search", LastUpdated: "2024-02-01", GitCommits: 1},
	})}
}

func scenarioEvents() []spec.Event {
	return []spec.Event{
		{Type: spec.EventSpecCreated, SpecID: "A", Date: "2024-01-01", Title: "Alpha", Status: "completed"},
		{Type: spec.EventCommit, SpecID: "A", Date: "2024-01-05", Hash: "abc1234"},
	}
}

func parse(t *testing.T, page string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	require.NoError(t, err)
	return doc
}

func renderPage(t *testing.T, data Data) (*goquery.Document, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	r := NewRenderer(nil, zap.New(core))
	page, err := MountString("", r.Render(data))
	require.NoError(t, err)
	return parse(t, page), logs
}

func TestRenderMountsEverySection(t *testing.T) {
	doc, _ := renderPage(t, Data{
		Index:  scenarioIndex(),
		Events: scenarioEvents(),
		View:   DefaultView(),
		Now:    time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	})

	rows := doc.Find("#specs-table-body tr.spec-row")
	require.Equal(t, 2, rows.Length())
	assert.Equal(t, "B", rows.Eq(0).AttrOr("data-spec-id", ""))
	assert.Equal(t, "A", rows.Eq(1).AttrOr("data-spec-id", ""))

	assert.Equal(t, "Showing 2 of 2 specifications", doc.Find("#search-stats").Text())
	assert.Equal(t, 2, doc.Find("#search-results .search-result-item").Length())
	assert.Equal(t, 1, doc.Find("#activity-graph-container svg").Length())
	assert.Contains(t, doc.Find("#dashboard-stats").Text(), "Total Specs")

	status := doc.Find("#status-filter option")
	require.Equal(t, 3, status.Length())
	assert.Equal(t, "all", status.Eq(0).AttrOr("value", ""))
	assert.Equal(t, "completed", status.Eq(1).AttrOr("value", ""))
	assert.Equal(t, "Draft", status.Eq(2).Text())

	assert.True(t, doc.Find(`th[data-sort="updated"]`).HasClass("sort-desc"))
	assert.False(t, doc.Find(`th[data-sort="commits"]`).HasClass("sort-asc"))
}

func TestRenderAppliesViewState(t *testing.T) {
	view := ParseView(url.Values{"status": {"completed"}, "sort": {"commits"}, "dir": {"asc"}, "q": {"al"}})
	doc, _ := renderPage(t, Data{Index: scenarioIndex(), View: view})

	results := doc.Find("#search-results .search-result-item")
	require.Equal(t, 1, results.Length())
	assert.Contains(t, results.Text(), "Alpha")
	assert.Equal(t, "al", doc.Find("#spec-search").AttrOr("value", ""))

	_, selected := doc.Find(`#status-filter option[value="completed"]`).Attr("selected")
	assert.True(t, selected)

	th := doc.Find(`th[data-sort="commits"]`)
	assert.True(t, th.HasClass("sort-asc"))
	href := th.Find("a").AttrOr("href", "")
	next, err := url.ParseQuery(strings.TrimPrefix(href, "?"))
	require.NoError(t, err)
	assert.Equal(t, "desc", next.Get("dir"))
	assert.Equal(t, "completed", next.Get("status"))
}

func TestSectionsFailIndependently(t *testing.T) {
	doc, logs := renderPage(t, Data{
		IndexErr: errors.New("boom"),
		Events:   scenarioEvents(),
		View:     DefaultView(),
	})

	assert.Contains(t, doc.Find("#specs-table-body").Text(), "Failed to load specifications data")
	assert.Contains(t, doc.Find("#search-results").Text(), "Failed to load the search index")
	assert.Equal(t, 1, doc.Find("#activity-graph-container svg").Length())
	assert.Equal(t, 1, logs.FilterMessage("search index unavailable").Len())
}

func TestTimelineErrorAndEmptyPlaceholders(t *testing.T) {
	doc, _ := renderPage(t, Data{Index: scenarioIndex(), TimelineErr: errors.New("404"), View: DefaultView()})
	assert.Equal(t, 1, doc.Find("#activity-graph-container .activity-graph-error").Length())
	assert.Equal(t, 2, doc.Find("#specs-table-body tr.spec-row").Length())

	doc, _ = renderPage(t, Data{Index: scenarioIndex(), View: DefaultView()})
	assert.Equal(t, 1, doc.Find("#activity-graph-container .activity-graph-empty").Length())
}

func TestTimelineWithoutDatesRendersNothing(t *testing.T) {
	doc, logs := renderPage(t, Data{
		Index:  scenarioIndex(),
		Events: []spec.Event{{Type: spec.EventCommit, SpecID: "A", Date: "never"}},
		View:   DefaultView(),
	})
	container := doc.Find("#activity-graph-container")
	assert.Equal(t, 0, container.Children().Length())
	assert.Equal(t, 1, logs.FilterMessage("no valid dates found in timeline data").Len())
}

func TestEmptyIndexIsNotAnError(t *testing.T) {
	doc, logs := renderPage(t, Data{View: DefaultView()})
	assert.Contains(t, doc.Find("#specs-table-body").Text(), "No specifications published yet")
	assert.Contains(t, doc.Find("#search-results").Text(), "No specifications published yet")
	assert.NotContains(t, doc.Find("#search-results").Text(), "matching your criteria")
	assert.Zero(t, logs.FilterLevelExact(zap.ErrorLevel).Len())
}

func TestZeroHitSearchShowsNoResults(t *testing.T) {
	view := ParseView(url.Values{"q": {"nothing-matches-this"}})
	doc, _ := renderPage(t, Data{Index: scenarioIndex(), View: view})
	assert.Contains(t, doc.Find("#search-results").Text(), "No specifications found matching your criteria")
}

func TestMountSkipsMissingIDs(t *testing.T) {
	host := `<html><body><div id="search-stats"></div><p>static</p></body></html>`
	frags := Fragments{
		View: DefaultView(),
		Sections: map[string]string{
			IDSearchStats: "Showing 1 of 1 specifications",
			IDTableBody:   "<tr><td>x</td></tr>",
		},
	}

	page, err := Mount(strings.NewReader(host), frags)
	require.NoError(t, err)

	doc := parse(t, page)
	assert.Equal(t, "Showing 1 of 1 specifications", doc.Find("#search-stats").Text())
	assert.Equal(t, "static", doc.Find("p").Text())
	assert.Equal(t, 0, doc.Find("td").Length())
}

func TestParseViewDefaultsAndRoundTrip(t *testing.T) {
	view := ParseView(url.Values{})
	assert.Equal(t, DefaultView(), view)
	assert.Empty(t, view.Values().Encode())

	view = ParseView(url.Values{"sort": {"priority"}, "dir": {"desc"}, "category": {"ops"}, "k": {"9"}})
	assert.Equal(t, table.State{Column: "priority", Ascending: false}, view.Sort)
	assert.Equal(t, search.Filters{Status: search.All, Priority: search.All, Category: "ops"}, view.Search.Filters)
	assert.Equal(t, timeline.MaxZoom, view.Zoom.K)
	assert.Equal(t, view.Search, ParseView(view.Values()).Search)
	assert.Equal(t, view.Sort, ParseView(view.Values()).Sort)
	assert.True(t, view.SortExplicit)
}

func TestExplicitDefaultSortRoundTrips(t *testing.T) {
	view := ParseView(url.Values{"q": {"beta"}, "sort": {"updated"}, "dir": {"desc"}})
	require.True(t, view.SortExplicit)
	assert.Equal(t, table.DefaultState(), view.Sort)

	again := ParseView(view.Values())
	assert.True(t, again.SortExplicit)
	assert.Equal(t, "updated", view.Values().Get("sort"))

	assert.False(t, ParseView(url.Values{"q": {"beta"}}).SortExplicit)
}
