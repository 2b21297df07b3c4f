package timeline

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"io"
	"math"
	"strings"

	svg "github.com/ajstarks/svgo"
	"go.uber.org/zap"

	"github.com/kangxh75/NextPM/internal/spec"
)

const (
	EmptyHTML = `<div class="activity-graph-empty" style="text-align:center;padding:3rem;color:#9ca3af;"><p>No activity data available yet. Start creating specs and making commits!</p></div>`
	ErrorHTML = `<div class="activity-graph-error" style="text-align:center;padding:3rem;color:#ef4444;"><p>Failed to load activity timeline. Please try refreshing the page.</p></div>`

	nonScaling = `vector-effect="non-scaling-stroke"`
)

// Renderer draws timelines as standalone SVG documents.
type Renderer struct {
	cfg    Config
	logger *zap.Logger
}

// NewRenderer returns a renderer; a nil logger discards diagnostics.
func NewRenderer(cfg Config, logger *zap.Logger) *Renderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Renderer{cfg: cfg, logger: logger}
}

// Config returns the renderer geometry.
func (r *Renderer) Config() Config { return r.cfg }

// Layout computes the diagram for events, logging when no date parses. No
// events at all is the empty diagram, not an error.
func (r *Renderer) Layout(events []spec.Event) (Layout, error) {
	if len(events) == 0 {
		return Empty(r.cfg), nil
	}
	layout, err := Build(events, r.cfg)
	if errors.Is(err, ErrNoValidDates) {
		r.logger.Error("no valid dates found in timeline data", zap.Int("events", len(events)))
	}
	return layout, err
}

// Render writes the SVG for events. With no parseable dates nothing is
// written and ErrNoValidDates is returned after logging.
func (r *Renderer) Render(w io.Writer, events []spec.Event, zoom Zoom) error {
	layout, err := r.Layout(events)
	if err != nil {
		return err
	}
	r.Draw(w, layout, zoom)
	return nil
}

// Fragment renders events for inline use in an HTML page: the empty
// placeholder for no events, "" when no date parses, the SVG otherwise.
func (r *Renderer) Fragment(events []spec.Event, zoom Zoom) (string, error) {
	if len(events) == 0 {
		return EmptyHTML, nil
	}
	var buf bytes.Buffer
	if err := r.Render(&buf, events, zoom); err != nil {
		return "", err
	}
	out := buf.String()
	if i := strings.Index(out, "<svg"); i > 0 {
		out = out[i:]
	}
	return out, nil
}

// Draw walks a finished layout.
func (r *Renderer) Draw(w io.Writer, layout Layout, zoom Zoom) {
	zoom = zoom.Clamp()
	colors := r.cfg.Colors
	font := zoom.FontSize()

	canvas := svg.New(w)
	canvas.Start(layout.Width, layout.Height, `class="activity-graph"`)

	canvas.Def()
	canvas.Marker("arrowhead", 5, 5, 6, 6, `viewBox="0 0 10 10"`, `orient="auto"`)
	canvas.Path("M 0 0 L 10 5 L 0 10 z", "fill:"+colors.PR)
	canvas.MarkerEnd()
	canvas.DefEnd()

	canvas.Group(`class="graph-content"`, attr("transform", zoom.Transform(layout.Margin)))

	// master branch
	canvas.Line(0, px(layout.MasterY), px(layout.InnerWidth), px(layout.MasterY),
		`class="master-branch"`, fmt.Sprintf("stroke:%s;stroke-width:3", colors.Master), nonScaling)
	canvas.Text(-10, px(layout.MasterY+5), "master", `class="branch-label"`, `text-anchor="end"`,
		fmt.Sprintf("fill:%s;font-size:%s;font-weight:bold", colors.Master, font))

	r.drawAxis(canvas, layout, font)
	for _, lane := range layout.Lanes {
		r.drawLane(canvas, lane, font)
	}
	r.drawLegend(canvas, layout, font)

	canvas.Gend()
	canvas.End()
}

func (r *Renderer) drawAxis(canvas *svg.SVG, layout Layout, font string) {
	canvas.Group(`class="time-axis"`, attr("transform", fmt.Sprintf("translate(0,%s)", num(layout.AxisY))))
	canvas.Line(0, 0, px(layout.InnerWidth), 0, "stroke:currentColor", nonScaling)
	for _, tick := range layout.Ticks {
		canvas.Gtransform(fmt.Sprintf("translate(%s,0)", num(tick.X)))
		canvas.Line(0, 0, 0, 6, "stroke:currentColor", nonScaling)
		canvas.Text(0, 18, tick.Label, `text-anchor="middle"`, "font-size:"+font)
		canvas.Gend()
	}
	canvas.Gend()
}

func (r *Renderer) drawLane(canvas *svg.SVG, lane Lane, font string) {
	cfg := r.cfg
	colors := cfg.Colors

	canvas.Line(px(lane.Connector.X1), px(lane.Connector.Y1), px(lane.Connector.X2), px(lane.Connector.Y2),
		`class="feature-branch"`, fmt.Sprintf("stroke:%s;stroke-width:2;stroke-dasharray:5,5", colors.Branch), nonScaling)
	canvas.Line(px(lane.Branch.X1), px(lane.Branch.Y1), px(lane.Branch.X2), px(lane.Branch.Y2),
		`class="feature-branch"`, fmt.Sprintf("stroke:%s;stroke-width:2", colors.Branch), nonScaling)

	created := lane.Created
	canvas.Link(html.EscapeString(created.Href), html.EscapeString(lane.SpecID))
	canvas.Group(`class="spec-node"`, attr("transform", translate(created.X, created.Y)), "cursor:pointer")
	canvas.Title(tooltip(created))
	canvas.Path("M 0,-12 L 12,0 L 0,12 L -12,0 Z", fmt.Sprintf("fill:%s;stroke:#fff;stroke-width:2", colors.Spec), nonScaling)
	canvas.Gend()
	canvas.LinkEnd()

	for _, commit := range lane.Commits {
		canvas.Group(`class="commit-node"`, attr("transform", translate(commit.X, commit.Y)), "cursor:pointer")
		canvas.Title(tooltip(commit))
		canvas.Circle(0, 0, px(cfg.NodeRadius), fmt.Sprintf("fill:%s;stroke:#fff;stroke-width:2", colors.Commit), nonScaling)
		canvas.Gend()
	}

	for i, pr := range lane.PRs {
		if pr.NewWindow {
			fmt.Fprintf(canvas.Writer, "<a xlink:href=\"%s\" target=\"_blank\" rel=\"noopener\">\n", html.EscapeString(pr.Href))
		}
		canvas.Group(`class="pr-node"`, attr("transform", translate(pr.X, pr.Y)), "cursor:pointer")
		canvas.Title(tooltip(pr))
		canvas.Roundrect(px(-cfg.PRWidth/2), px(-cfg.PRHeight/2), px(cfg.PRWidth), px(cfg.PRHeight), 8, 8,
			fmt.Sprintf("fill:%s;stroke:#fff;stroke-width:2", colors.PR), nonScaling)
		canvas.Text(0, 0, pr.Label, `text-anchor="middle"`, `dy="0.35em"`,
			fmt.Sprintf("fill:#fff;font-size:%s;font-weight:bold", font))
		canvas.Gend()
		if pr.NewWindow {
			canvas.LinkEnd()
		}
		if i < len(lane.Merges) {
			canvas.Path(lane.Merges[i], `class="merge-arrow"`, `marker-end="url(#arrowhead)"`,
				fmt.Sprintf("fill:none;stroke:%s;stroke-width:2;opacity:0.6", colors.PR), nonScaling)
		}
	}
}

func (r *Renderer) drawLegend(canvas *svg.SVG, layout Layout, font string) {
	canvas.Group(`class="legend"`, attr("transform", translate(layout.LegendX, layout.LegendY)))
	for i, item := range layout.Legend {
		canvas.Gtransform(fmt.Sprintf("translate(0,%d)", i*25))
		switch item.Shape {
		case "diamond":
			canvas.Path("M 0,-8 L 8,0 L 0,8 L -8,0 Z", "fill:"+item.Color)
		case "circle":
			canvas.Circle(0, 0, 6, "fill:"+item.Color)
		case "rect":
			canvas.Roundrect(-8, -6, 16, 12, 2, 2, "fill:"+item.Color)
		}
		canvas.Text(15, 5, item.Label, "font-size:"+font)
		canvas.Gend()
	}
	canvas.Gend()
}

func tooltip(m Marker) string {
	lines := make([]string, 0, len(m.Tooltip))
	for _, line := range m.Tooltip {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

func translate(x, y float64) string {
	return fmt.Sprintf("translate(%s,%s)", num(x), num(y))
}

func attr(name, value string) string {
	return fmt.Sprintf(`%s="%s"`, name, html.EscapeString(value))
}

func px(v float64) int {
	return int(math.Round(v))
}
