package timeline

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/kangxh75/NextPM/internal/spec"
)

// Margin is the padding around the content group.
type Margin struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

// Colors of the diagram elements.
type Colors struct {
	Spec   string
	Commit string
	PR     string
	Branch string
	Master string
}

// Config holds the fixed geometry of the diagram.
type Config struct {
	Width       int
	Height      int
	Margin      Margin
	MasterY     float64
	LaneSpacing float64
	NodeRadius  float64
	PRWidth     float64
	PRHeight    float64
	TickCount   int
	Colors      Colors
}

// DefaultConfig matches the dashboard's 1200x600 activity graph.
func DefaultConfig() Config {
	return Config{
		Width:       1200,
		Height:      600,
		Margin:      Margin{Top: 50, Right: 50, Bottom: 50, Left: 100},
		MasterY:     100,
		LaneSpacing: 80,
		NodeRadius:  8,
		PRWidth:     120,
		PRHeight:    40,
		TickCount:   8,
		Colors: Colors{
			Spec:   "#667eea",
			Commit: "#6b7280",
			PR:     "#764ba2",
			Branch: "#9ca3af",
			Master: "#374151",
		},
	}
}

// Segment is a straight line in content coordinates.
type Segment struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Marker is one event glyph positioned on a lane.
type Marker struct {
	Kind      spec.EventType `json:"kind"`
	X         float64        `json:"x"`
	Y         float64        `json:"y"`
	Label     string         `json:"label,omitempty"`
	Tooltip   []string       `json:"tooltip"`
	Href      string         `json:"href,omitempty"`
	NewWindow bool           `json:"new_window,omitempty"`
}

// Lane is the drawn row of one spec group.
type Lane struct {
	SpecID    string   `json:"spec_id"`
	Slot      int      `json:"slot"`
	Y         float64  `json:"y"`
	Connector Segment  `json:"connector"`
	Branch    Segment  `json:"branch"`
	Created   Marker   `json:"created"`
	Commits   []Marker `json:"commits"`
	PRs       []Marker `json:"prs"`
	Merges    []string `json:"merges"`
}

// LegendItem is one entry of the legend box.
type LegendItem struct {
	Label string `json:"label"`
	Shape string `json:"shape"`
	Color string `json:"color"`
}

// Layout is the complete diagram in content coordinates, ready to render.
type Layout struct {
	Width       int          `json:"width"`
	Height      int          `json:"height"`
	Margin      Margin       `json:"margin"`
	InnerWidth  float64      `json:"inner_width"`
	InnerHeight float64      `json:"inner_height"`
	MasterY     float64      `json:"master_y"`
	AxisY       float64      `json:"axis_y"`
	Ticks       []Tick       `json:"ticks"`
	Lanes       []Lane       `json:"lanes"`
	Legend      []LegendItem `json:"legend"`
	LegendX     float64      `json:"legend_x"`
	LegendY     float64      `json:"legend_y"`

	scale Scale
}

// Scale returns the time scale the layout was computed with.
func (l Layout) Scale() Scale { return l.scale }

// Build computes the diagram for events. Groups become lanes in
// encounter order; a group without a dated spec_created event keeps its
// slot but draws nothing. Events with unparseable dates are dropped.
func Build(events []spec.Event, cfg Config) (Layout, error) {
	dates := make([]time.Time, 0, len(events))
	for _, event := range events {
		if t, ok := spec.ParseDate(event.Date); ok {
			dates = append(dates, t)
		}
	}

	layout := frame(cfg, 0)
	scale, err := NewScale(dates, layout.InnerWidth)
	if err != nil {
		return Layout{}, err
	}

	groups := spec.GroupBySpec(events)
	layout = frame(cfg, len(groups))
	layout.Ticks = scale.Ticks(cfg.TickCount)
	layout.scale = scale
	for slot, group := range groups {
		lane, ok := buildLane(group, slot, scale, cfg, layout.InnerWidth)
		if ok {
			layout.Lanes = append(layout.Lanes, lane)
		}
	}
	return layout, nil
}

// Empty is the diagram of an empty timeline: the master line, axis and
// legend without ticks or lanes.
func Empty(cfg Config) Layout {
	return frame(cfg, 0)
}

// frame sizes the canvas for a number of lanes.
func frame(cfg Config, lanes int) Layout {
	innerWidth := float64(cfg.Width) - cfg.Margin.Left - cfg.Margin.Right
	innerHeight := float64(cfg.Height) - cfg.Margin.Top - cfg.Margin.Bottom
	needed := cfg.MasterY + float64(lanes+1)*cfg.LaneSpacing + 50
	innerHeight = math.Max(innerHeight, needed)

	return Layout{
		Width:       cfg.Width,
		Height:      int(math.Ceil(innerHeight + cfg.Margin.Top + cfg.Margin.Bottom)),
		Margin:      cfg.Margin,
		InnerWidth:  innerWidth,
		InnerHeight: innerHeight,
		MasterY:     cfg.MasterY,
		AxisY:       innerHeight - 50,
		Ticks:       []Tick{},
		Lanes:       make([]Lane, 0, lanes),
		Legend: []LegendItem{
			{Label: "Spec", Shape: "diamond", Color: cfg.Colors.Spec},
			{Label: "Commit", Shape: "circle", Color: cfg.Colors.Commit},
			{Label: "Pull Request", Shape: "rect", Color: cfg.Colors.PR},
		},
		LegendX: innerWidth - 200,
		LegendY: 20,
	}
}

func buildLane(group spec.Group, slot int, scale Scale, cfg Config, innerWidth float64) (Lane, bool) {
	created, ok := group.Created()
	if !ok {
		return Lane{}, false
	}
	createdAt, ok := spec.ParseDate(created.Date)
	if !ok {
		return Lane{}, false
	}

	y := cfg.MasterY + float64(slot+1)*cfg.LaneSpacing
	startX := scale.X(createdAt)

	lane := Lane{
		SpecID:    group.SpecID,
		Slot:      slot,
		Y:         y,
		Connector: Segment{X1: startX, Y1: cfg.MasterY, X2: startX, Y2: y},
		Branch:    Segment{X1: startX, Y1: y, X2: innerWidth, Y2: y},
		Created: Marker{
			Kind: spec.EventSpecCreated,
			X:    startX,
			Y:    y,
			Href: spec.DocumentURL(created.SpecID),
			Tooltip: []string{
				"📋 Spec Created",
				created.Title,
				created.SpecID,
				"Status: " + string(created.Status),
			},
		},
		Commits: make([]Marker, 0),
		PRs:     make([]Marker, 0),
		Merges:  make([]string, 0),
	}

	for _, commit := range group.OfType(spec.EventCommit) {
		at, ok := spec.ParseDate(commit.Date)
		if !ok {
			continue
		}
		lane.Commits = append(lane.Commits, Marker{
			Kind: spec.EventCommit,
			X:    scale.X(at),
			Y:    y,
			Tooltip: []string{
				"📝 Commit " + commit.Hash,
				commit.Message,
				"👤 " + commit.Author,
				fmt.Sprintf("📁 %d files", commit.FilesChanged),
			},
		})
	}

	for _, pr := range group.OfType(spec.EventPRMerged) {
		at, ok := spec.ParseDate(pr.Date)
		if !ok {
			continue
		}
		x := scale.X(at)
		lane.PRs = append(lane.PRs, Marker{
			Kind:      spec.EventPRMerged,
			X:         x,
			Y:         y,
			Label:     fmt.Sprintf("PR #%d", pr.PRNumber),
			Href:      pr.GitHubURL,
			NewWindow: pr.GitHubURL != "",
			Tooltip: []string{
				fmt.Sprintf("🔀 Pull Request #%d", pr.PRNumber),
				pr.Title,
				"👤 " + pr.Author,
				"🌿 " + pr.Branch,
			},
		})
		lane.Merges = append(lane.Merges, MergePath(x, y, x, cfg.MasterY))
	}
	return lane, true
}

// MergePath is a vertical link curve from (x1,y1) to (x2,y2), bending at
// the vertical midpoint.
func MergePath(x1, y1, x2, y2 float64) string {
	mid := (y1 + y2) / 2
	return fmt.Sprintf("M%s,%s C%s,%s %s,%s %s,%s",
		num(x1), num(y1), num(x1), num(mid), num(x2), num(mid), num(x2), num(y2))
}

func num(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}
