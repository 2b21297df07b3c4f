package table

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/kangxh75/NextPM/internal/spec"
)

func ids(records []spec.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func scenario() []spec.Record {
	return []spec.Record{
		{ID: "A", Status: "completed", Priority: "high", LastUpdated: "2024-01-10", GitCommits: 3},
		{ID: "B", Status: "draft", Priority: "low", LastUpdated: "2024-02-01", GitCommits: 1},
	}
}

func TestDefaultSortIsNewestFirst(t *testing.T) {
	got := ids(Sort(scenario(), DefaultState()))
	assert.Equal(t, []string{"B", "A"}, got)
}

func TestSortByCommitsAscending(t *testing.T) {
	state := DefaultState().Toggle(ColumnCommits)
	assert.Equal(t, State{Column: ColumnCommits, Ascending: true}, state)

	assert.Equal(t, []string{"B", "A"}, ids(Sort(scenario(), state)))
}

func TestToggleSameColumnTwiceRestoresDirection(t *testing.T) {
	start := State{Column: ColumnTitle, Ascending: true}
	once := start.Toggle(ColumnTitle)
	twice := once.Toggle(ColumnTitle)

	assert.False(t, once.Ascending)
	assert.Equal(t, start, twice)
}

func TestSortDoesNotMutateInput(t *testing.T) {
	records := scenario()
	_ = Sort(records, State{Column: ColumnID, Ascending: false})
	assert.Equal(t, []string{"A", "B"}, ids(records))
}

func TestNumericReverseIsExactReverseWithoutTies(t *testing.T) {
	records := []spec.Record{
		{ID: "a", EstimatedHours: 4}, {ID: "b", EstimatedHours: 1.5},
		{ID: "c", EstimatedHours: 9}, {ID: "d", EstimatedHours: 0},
	}
	asc := ids(Sort(records, State{Column: ColumnEstimatedHours, Ascending: true}))
	desc := ids(Sort(records, State{Column: ColumnEstimatedHours, Ascending: false}))

	reversed := make([]string, len(desc))
	for i := range desc {
		reversed[len(desc)-1-i] = desc[i]
	}
	if diff := cmp.Diff(asc, reversed); diff != "" {
		t.Fatalf("descending is not the reverse of ascending (-asc +reversed desc):\n%s", diff)
	}
}

func TestSortIsStableForEqualKeys(t *testing.T) {
	records := []spec.Record{
		{ID: "x", PullRequests: 2}, {ID: "y", PullRequests: 1},
		{ID: "z", PullRequests: 2}, {ID: "w", PullRequests: 1},
	}
	assert.Equal(t, []string{"y", "w", "x", "z"}, ids(Sort(records, State{Column: ColumnPRs, Ascending: true})))
	assert.Equal(t, []string{"x", "z", "y", "w"}, ids(Sort(records, State{Column: ColumnPRs, Ascending: false})))
}

func TestPriorityOrdinalWithUnknownFirst(t *testing.T) {
	records := []spec.Record{
		{ID: "crit", Priority: "critical"}, {ID: "low", Priority: "low"},
		{ID: "odd", Priority: "someday"}, {ID: "med", Priority: "medium"},
	}
	got := ids(Sort(records, State{Column: ColumnPriority, Ascending: true}))
	assert.Equal(t, []string{"odd", "low", "med", "crit"}, got)
}

func TestUpdatedMissingDateIsEpoch(t *testing.T) {
	records := []spec.Record{
		{ID: "dated", LastUpdated: "1999-12-31"},
		{ID: "missing"},
	}
	got := ids(Sort(records, State{Column: ColumnUpdated, Ascending: true}))
	assert.Equal(t, []string{"missing", "dated"}, got)
}

func TestStringColumnsAreCaseSensitive(t *testing.T) {
	records := []spec.Record{{ID: "b", Assignee: "bob"}, {ID: "a", Assignee: "Zed"}}
	got := ids(Sort(records, State{Column: ColumnAssignee, Ascending: true}))
	assert.Equal(t, []string{"a", "b"}, got, "uppercase sorts before lowercase")
}

func TestUnknownColumnKeepsOrder(t *testing.T) {
	records := scenario()
	assert.Equal(t, []string{"A", "B"}, ids(Sort(records, State{Column: "nope", Ascending: false})))
	assert.False(t, IsSortable("nope"))
	assert.True(t, IsSortable(ColumnUpdated))
}

func TestIndicator(t *testing.T) {
	state := State{Column: ColumnCommits, Ascending: true}
	assert.Equal(t, "sort-asc", state.Indicator(ColumnCommits))
	assert.Equal(t, "", state.Indicator(ColumnPRs))
	assert.Equal(t, "sort-desc", state.Toggle(ColumnCommits).Indicator(ColumnCommits))
}

func TestFormatDate(t *testing.T) {
	now := time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)
	cases := map[string]string{
		"":                    "-",
		"garbage":             "garbage",
		"2024-03-10T09:00:00": "Today",
		"2024-03-09T12:00:00": "Yesterday",
		"2024-03-06":          "4 days ago",
		"2024-01-10":          "Jan 10, 2024",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatDate(in, now), in)
	}
}

func TestRowsUseBadgesAndFallbacks(t *testing.T) {
	now := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	rows := Rows([]spec.Record{{ID: "A", Status: "review", Priority: "bogus", Filename: "a.md"}}, DefaultState(), now)

	assert.Len(t, rows, 1)
	assert.Equal(t, "📋 Draft", rows[0].Status.Text)
	assert.Equal(t, "◇ Medium", rows[0].Priority.Text)
	assert.Equal(t, "engineering/specs/a.md", rows[0].Href)
	assert.Equal(t, "-", rows[0].Updated)
}
