package timeline

import (
	"bytes"
	"errors"
	"math"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kangxh75/NextPM/internal/spec"
)

func laneEvents() []spec.Event {
	return []spec.Event{
		{Type: spec.EventSpecCreated, SpecID: "2024-01-01-01", Date: "2024-01-01T00:00:00", Title: "Search", Status: "draft"},
		{Type: spec.EventCommit, SpecID: "2024-01-01-01", Date: "2024-01-05T00:00:00", Hash: "abc1234", Message: "feat: search #2024-01-01-01", Author: "kang", FilesChanged: 3},
		{Type: spec.EventCommit, SpecID: "2024-01-01-01", Date: "2024-01-11T00:00:00", Hash: "def5678", Message: "fix: ranking", Author: "kang", FilesChanged: 1},
	}
}

func TestScalePadsDomainByTenPercent(t *testing.T) {
	lo := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	hi := lo.Add(100 * time.Hour)

	s, err := NewScale([]time.Time{hi, lo}, 1000)
	require.NoError(t, err)

	assert.Equal(t, lo.Add(-10*time.Hour), s.Min)
	assert.Equal(t, hi.Add(10*time.Hour), s.Max)
	assert.InDelta(t, 0, s.X(s.Min), 1e-9)
	assert.InDelta(t, 1000, s.X(s.Max), 1e-9)
	assert.InDelta(t, 500, s.X(lo.Add(50*time.Hour)), 1e-9)
}

func TestScaleZeroWidthDomainMapsToMiddle(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s, err := NewScale([]time.Time{at, at}, 1050)
	require.NoError(t, err)

	assert.Equal(t, 525.0, s.X(at))
	assert.Len(t, s.Ticks(8), 1)
}

func TestScaleTicks(t *testing.T) {
	lo := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := Scale{Min: lo, Max: lo.Add(70 * 24 * time.Hour), Width: 700}

	ticks := s.Ticks(8)
	require.Len(t, ticks, 8)
	assert.Equal(t, "Jan 01", ticks[0].Label)
	assert.InDelta(t, 100, ticks[1].X, 1e-9)
	assert.Equal(t, "Jan 11", ticks[1].Label)
	assert.InDelta(t, 700, ticks[7].X, 1e-9)
}

func TestBuildNoValidDates(t *testing.T) {
	events := []spec.Event{
		{Type: spec.EventSpecCreated, SpecID: "x", Date: "not a date"},
		{Type: spec.EventCommit, SpecID: "x", Date: ""},
	}
	_, err := Build(events, DefaultConfig())
	assert.True(t, errors.Is(err, ErrNoValidDates))
}

func TestLayoutWithoutEventsIsEmptyDiagram(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	r := NewRenderer(DefaultConfig(), zap.New(core))

	layout, err := r.Layout([]spec.Event{})
	require.NoError(t, err)
	assert.Empty(t, layout.Lanes)
	assert.Empty(t, layout.Ticks)
	assert.Len(t, layout.Legend, 3)
	assert.Equal(t, DefaultConfig().Width, layout.Width)
	assert.Zero(t, logs.Len())

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, nil, Identity()))
	assert.Contains(t, buf.String(), "master-branch")
	assert.NotContains(t, buf.String(), "spec-node")
}

func TestRenderNoValidDatesLogsAndWritesNothing(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	r := NewRenderer(DefaultConfig(), zap.New(core))

	var buf bytes.Buffer
	err := r.Render(&buf, []spec.Event{{Type: spec.EventCommit, SpecID: "x", Date: "garbage"}}, Identity())

	assert.ErrorIs(t, err, ErrNoValidDates)
	assert.Zero(t, buf.Len())
	assert.Equal(t, 1, logs.FilterMessage("no valid dates found in timeline data").Len())
}

func TestOneGroupProducesOneLaneOneDiamondTwoCircles(t *testing.T) {
	cfg := DefaultConfig()
	layout, err := Build(laneEvents(), cfg)
	require.NoError(t, err)

	require.Len(t, layout.Lanes, 1)
	lane := layout.Lanes[0]
	assert.Equal(t, spec.EventSpecCreated, lane.Created.Kind)
	require.Len(t, lane.Commits, 2)
	assert.Empty(t, lane.PRs)

	s := layout.Scale()
	first, _ := spec.ParseDate("2024-01-05T00:00:00")
	second, _ := spec.ParseDate("2024-01-11T00:00:00")
	assert.InDelta(t, s.X(first), lane.Commits[0].X, 1e-9)
	assert.InDelta(t, s.X(second), lane.Commits[1].X, 1e-9)
	assert.Equal(t, cfg.MasterY+cfg.LaneSpacing, lane.Y)
	assert.Equal(t, lane.Y, lane.Commits[0].Y)

	// Ten days with 10% padding: the domain is 12 days over 1050px.
	assert.InDelta(t, 1050.0/12, lane.Created.X, 1e-6)
	assert.Equal(t, Segment{X1: lane.Created.X, Y1: cfg.MasterY, X2: lane.Created.X, Y2: lane.Y}, lane.Connector)
	assert.Equal(t, "/engineering/specs/2024-01-01-01.html", lane.Created.Href)

	var buf bytes.Buffer
	NewRenderer(cfg, nil).Draw(&buf, layout, Identity())
	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, `class="spec-node"`))
	assert.Equal(t, 2, strings.Count(out, `class="commit-node"`))
	assert.Equal(t, 0, strings.Count(out, `class="pr-node"`))
}

func TestLanesFollowEncounterOrderAndReserveSkippedSlots(t *testing.T) {
	events := []spec.Event{
		{Type: spec.EventCommit, SpecID: "orphan", Date: "2024-02-01"},
		{Type: spec.EventSpecCreated, SpecID: "b", Date: "2024-02-02"},
		{Type: spec.EventSpecCreated, SpecID: "a", Date: "2024-02-03"},
	}
	cfg := DefaultConfig()
	layout, err := Build(events, cfg)
	require.NoError(t, err)

	require.Len(t, layout.Lanes, 2)
	assert.Equal(t, "b", layout.Lanes[0].SpecID)
	assert.Equal(t, 1, layout.Lanes[0].Slot)
	assert.Equal(t, cfg.MasterY+2*cfg.LaneSpacing, layout.Lanes[0].Y)
	assert.Equal(t, "a", layout.Lanes[1].SpecID)
	assert.Equal(t, cfg.MasterY+3*cfg.LaneSpacing, layout.Lanes[1].Y)
}

func TestUnparseableEventDatesAreDropped(t *testing.T) {
	events := append(laneEvents(), spec.Event{Type: spec.EventCommit, SpecID: "2024-01-01-01", Date: "soon"})
	layout, err := Build(events, DefaultConfig())
	require.NoError(t, err)
	assert.Len(t, layout.Lanes[0].Commits, 2)
}

func TestPRMarkersLinkOutAndMergeToMaster(t *testing.T) {
	events := append(laneEvents(),
		spec.Event{Type: spec.EventPRMerged, SpecID: "2024-01-01-01", Date: "2024-01-11", PRNumber: 7, Title: "Search", GitHubURL: "https://github.com/o/r/pull/7"},
		spec.Event{Type: spec.EventPRMerged, SpecID: "2024-01-01-01", Date: "2024-01-11", PRNumber: 8},
	)
	cfg := DefaultConfig()
	layout, err := Build(events, cfg)
	require.NoError(t, err)

	lane := layout.Lanes[0]
	require.Len(t, lane.PRs, 2)
	assert.True(t, lane.PRs[0].NewWindow)
	assert.False(t, lane.PRs[1].NewWindow)
	assert.Equal(t, "PR #7", lane.PRs[0].Label)

	x := lane.PRs[0].X
	want := MergePath(x, lane.Y, x, cfg.MasterY)
	assert.Equal(t, want, lane.Merges[0])
	assert.True(t, strings.HasPrefix(MergePath(10, 180, 10, 100), "M10,180 C10,140 10,140 10,100"))

	var buf bytes.Buffer
	NewRenderer(cfg, nil).Draw(&buf, layout, Identity())
	assert.Equal(t, 1, strings.Count(buf.String(), `target="_blank"`))
}

func TestLayoutGrowsForManyLanes(t *testing.T) {
	var events []spec.Event
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		events = append(events, spec.Event{Type: spec.EventSpecCreated, SpecID: id, Date: "2024-03-01"})
	}
	layout, err := Build(events, DefaultConfig())
	require.NoError(t, err)

	last := layout.Lanes[len(layout.Lanes)-1]
	assert.Greater(t, layout.AxisY, last.Y)
}

func TestZoomClampAndTransform(t *testing.T) {
	assert.Equal(t, MinZoom, Zoom{K: 0.1}.Clamp().K)
	assert.Equal(t, MaxZoom, Zoom{K: 10}.Clamp().K)
	assert.Equal(t, 1.0, Zoom{}.Clamp().K)

	m := DefaultConfig().Margin
	assert.Equal(t, "translate(100,50) translate(0,0) scale(1)", Identity().Transform(m))
	assert.Equal(t, "translate(100,50) translate(-20,5.5) scale(3)", Zoom{K: 9, X: -20, Y: 5.5}.Transform(m))
	assert.Equal(t, "6px", Zoom{K: 2}.FontSize())
}

func TestZoomFromQuery(t *testing.T) {
	z := ZoomFromQuery(url.Values{"k": {"2.5"}, "x": {"40"}, "y": {"bad"}})
	assert.Equal(t, Zoom{K: 2.5, X: 40, Y: 0}, z)

	assert.Equal(t, Zoom{K: 0.5}, ZoomFromQuery(url.Values{"k": {"0.01"}}))

	z = ZoomFromQuery(url.Values{"k": {"NaN"}, "x": {"Inf"}, "y": {"-Inf"}})
	assert.Equal(t, Identity(), z)
	assert.Equal(t, "translate(100,50) translate(0,0) scale(1)", z.Transform(Margin{Top: 50, Right: 50, Bottom: 50, Left: 100}))
	assert.Equal(t, "12px", z.FontSize())

	assert.Equal(t, MaxZoom, ZoomFromQuery(url.Values{"k": {"1e308"}}).K)
}

func TestClampNonFinite(t *testing.T) {
	z := Zoom{K: math.NaN(), X: math.Inf(1), Y: math.NaN()}.Clamp()
	assert.Equal(t, Identity(), z)
	assert.Equal(t, MaxZoom, Zoom{K: math.Inf(1)}.Clamp().K)
	assert.Equal(t, MinZoom, Zoom{K: math.Inf(-1)}.Clamp().K)
}

func TestFragment(t *testing.T) {
	r := NewRenderer(DefaultConfig(), zap.NewNop())

	empty, err := r.Fragment(nil, Identity())
	require.NoError(t, err)
	assert.Equal(t, EmptyHTML, empty)

	out, err := r.Fragment(laneEvents(), Zoom{K: 2})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "<svg"))
	assert.Contains(t, out, "scale(2)")
	assert.Contains(t, out, "non-scaling-stroke")
	assert.Contains(t, out, "<title>")
}
