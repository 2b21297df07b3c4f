package search

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kangxh75/NextPM/internal/spec"
)

func fixtureIndex() spec.Index {
	return spec.Index{
		TotalSpecs: 5,
		Records: []spec.Record{
			{ID: "s1", Title: "Timeline rendering", Status: "completed", Priority: "high", Category: "dashboard", Content: "draws the activity graph", Demonstrates: []string{"d3-charts"}},
			{ID: "s2", Title: "Search index", Status: "draft", Priority: "low", Category: "search", Content: "builds the timeline json for search", Demonstrates: []string{}},
			{ID: "s3", Title: "Auth", Status: "in-progress", Priority: "medium", Category: "security", Content: "basic auth users", Demonstrates: []string{"Timeline-Export"}},
			{ID: "s4", Title: "Dashboard timeline", Status: "completed", Priority: "low", Category: "dashboard", Content: "timeline lanes", Demonstrates: []string{}},
			{ID: "s5", Title: "Metrics", Status: "draft", Priority: "critical", Category: "ops", Content: "prometheus counters", Demonstrates: []string{}},
		},
	}
}

func ids(records []spec.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestSearchShortQueryPassesFullSet(t *testing.T) {
	engine := NewEngine(fixtureIndex())
	want := ids(engine.Records())

	for _, q := range []string{"", " ", "t", " t ", "é"} {
		got := ids(engine.Search(q))
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("Search(%q) mismatch (-want +got):\n%s", q, diff)
		}
	}
}

func TestSearchMatchesExactlyTheMatchingRecords(t *testing.T) {
	engine := NewEngine(fixtureIndex())

	for _, q := range []string{"timeline", "TIME", "dash", "export", "zzz", "se"} {
		term := strings.ToLower(strings.TrimSpace(q))
		got := engine.Search(q)
		in := make(map[string]bool)
		for _, r := range got {
			in[r.ID] = true
			assert.True(t, Matches(r, term), "%s should match %q", r.ID, q)
		}
		for _, r := range engine.Records() {
			if !in[r.ID] {
				assert.False(t, Matches(r, term), "%s excluded but matches %q", r.ID, q)
			}
		}
	}
}

func TestSearchRanksTitleThenContentWithStableTies(t *testing.T) {
	engine := NewEngine(fixtureIndex())

	got := ids(engine.Search("timeline"))

	// s4 hits title and content (15), s1 title only (10), s2 content only
	// (5), s3 only a demonstrates tag (0).
	want := []string{"s4", "s1", "s2", "s3"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ranking mismatch (-want +got):\n%s", diff)
	}
}

func TestScore(t *testing.T) {
	r := spec.Record{Title: "Timeline", Content: "timeline body"}
	assert.Equal(t, 15, Score(r, "timeline"))
	assert.Equal(t, 5, Score(r, "body"))
	assert.Equal(t, 0, Score(r, "zzz"))
}

func TestApplyFiltersAllIsIdentity(t *testing.T) {
	records := fixtureIndex().Records

	got := ApplyFilters(records, NoFilters())
	assert.Equal(t, ids(records), ids(got))

	statusOnly := ApplyFilters(records, Filters{Status: "completed", Priority: All, Category: All})
	again := ApplyFilters(statusOnly, Filters{Status: "completed", Priority: All, Category: All})
	assert.Equal(t, ids(statusOnly), ids(again))
}

func TestApplyFiltersIntersectsFacets(t *testing.T) {
	records := fixtureIndex().Records

	got := ApplyFilters(records, Filters{Status: "completed", Priority: "low", Category: All})
	assert.Equal(t, []string{"s4"}, ids(got))

	got = ApplyFilters(records, Filters{Status: All, Priority: All, Category: "dashboard"})
	assert.Equal(t, []string{"s1", "s4"}, ids(got))
}

func TestRunComposesSearchAndFacets(t *testing.T) {
	engine := NewEngine(fixtureIndex())

	resp := engine.Run(State{Query: "timeline", Filters: Filters{Status: "completed", Priority: All, Category: All}})

	assert.Equal(t, []string{"s4", "s1"}, ids(resp.Results))
	assert.Equal(t, 2, resp.Shown)
	assert.Equal(t, 5, resp.Total)
	assert.Equal(t, "Showing 2 of 5 specifications", resp.Stats)
}

func TestClearRestoresEverything(t *testing.T) {
	engine := NewEngine(fixtureIndex())
	state := State{Query: "auth", Filters: Filters{Status: "draft", Priority: "low", Category: "search"}}

	cleared := state.Clear()
	resp := engine.Run(cleared)

	assert.Equal(t, "", cleared.Query)
	assert.Equal(t, NoFilters(), cleared.Filters)
	assert.Equal(t, engine.Total(), resp.Shown)
}

func TestConcreteScenarioStatusFilter(t *testing.T) {
	engine := NewEngine(spec.Index{Records: []spec.Record{
		{ID: "A", Status: "completed", Priority: "high", LastUpdated: "2024-01-10", GitCommits: 3},
		{ID: "B", Status: "draft", Priority: "low", LastUpdated: "2024-02-01", GitCommits: 1},
	}})

	resp := engine.Run(State{Filters: Filters{Status: "completed", Priority: All, Category: All}})
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "A", resp.Results[0].ID)
	assert.Equal(t, 2, resp.Total, "total falls back to record count")
}

func TestFacetsFirstAppearanceOrder(t *testing.T) {
	facets := NewEngine(fixtureIndex()).Facets()

	assert.Equal(t, []string{"completed", "draft", "in-progress"}, facets.Status)
	assert.Equal(t, []string{"high", "low", "medium", "critical"}, facets.Priority)
	assert.Equal(t, []string{"dashboard", "search", "security", "ops"}, facets.Category)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", Preview("short"))
	assert.Equal(t, " this sentence is long enough to show", Preview("Tiny. this sentence is long enough to show. more"))

	long := strings.Repeat("a", 200)
	got := Preview(long)
	assert.Len(t, got, 153)
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestStatusIconAndPriorityColorFallbacks(t *testing.T) {
	assert.Equal(t, "🎉", StatusIcon(spec.StatusCompleted))
	assert.Equal(t, "📝", StatusIcon("unknown"))
	assert.Equal(t, "#ff3b30", PriorityColor(spec.PriorityHigh))
	assert.Equal(t, "#6c757d", PriorityColor(spec.PriorityCritical))
}
