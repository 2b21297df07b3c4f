package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kangxh75/NextPM/internal/authpw"
	"github.com/kangxh75/NextPM/internal/config"
	"github.com/kangxh75/NextPM/internal/dashboard"
	"github.com/kangxh75/NextPM/internal/export"
	"github.com/kangxh75/NextPM/internal/loader"
	"github.com/kangxh75/NextPM/internal/publish"
	"github.com/kangxh75/NextPM/internal/search"
	"github.com/kangxh75/NextPM/internal/spec"
	"github.com/kangxh75/NextPM/internal/table"
	"github.com/kangxh75/NextPM/internal/timeline"
)

// Snapshot is one immutable load of the index and timeline documents.
// Either document may have failed independently.
type Snapshot struct {
	Index       spec.Index
	IndexErr    error
	Timeline    spec.Timeline
	TimelineErr error
	Engine      *search.Engine
	HostPage    string
	LoadedAt    time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithLoader replaces the default HTTP/file loader.
func WithLoader(l *loader.Loader) Option {
	return func(s *Service) { s.loader = l }
}

// WithPrinter replaces headless Chrome for PDF export.
func WithPrinter(p export.Printer) Option {
	return func(s *Service) { s.printer = p }
}

// WithClock fixes the time used for relative dates.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service answers dashboard queries from the current snapshot. Reload
// builds a new snapshot and swaps it in; readers never see a partial one.
type Service struct {
	cfg       config.Config
	loader    *loader.Loader
	users     *authpw.Service
	timeline  *timeline.Renderer
	dashboard *dashboard.Renderer
	printer   export.Printer
	exporter  *export.Service
	metrics   *Metrics
	logger    *zap.Logger
	now       func() time.Time

	mu   sync.RWMutex
	snap *Snapshot
}

// New wires a service. users may be nil for an open server.
func New(cfg config.Config, users *authpw.Service, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		cfg:     cfg,
		loader:  loader.New(nil),
		users:   users,
		metrics: NewMetrics(),
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.timeline = timeline.NewRenderer(timeline.DefaultConfig(), logger)
	s.dashboard = dashboard.NewRenderer(s.timeline, logger)
	s.exporter = export.NewService(s, s.printer, logger)
	return s
}

// IndexSource is where the search index is read from.
func (s *Service) IndexSource() string {
	if s.cfg.IndexSource != "" {
		return s.cfg.IndexSource
	}
	return filepath.Join(s.cfg.OutDir, publish.IndexPath)
}

// TimelineSource is where the activity timeline is read from.
func (s *Service) TimelineSource() string {
	if s.cfg.TimelineSource != "" {
		return s.cfg.TimelineSource
	}
	return filepath.Join(s.cfg.OutDir, publish.TimelinePath)
}

// Metrics exposes the service's collectors.
func (s *Service) Metrics() *Metrics { return s.metrics }

// Users returns the authentication service, nil when the server is open.
func (s *Service) Users() *authpw.Service { return s.users }

// Reload fetches both documents concurrently and swaps in the new
// snapshot, even when one of them failed. The returned error joins the
// per-document failures.
func (s *Service) Reload(ctx context.Context) error {
	snap := &Snapshot{LoadedAt: s.now()}

	// The group never fails fast: one document failing must not cancel
	// the other load, so each error stays on the snapshot and is joined
	// below instead of going through Wait.
	var g errgroup.Group
	g.Go(func() error {
		snap.Index, snap.IndexErr = s.loader.Index(ctx, s.IndexSource())
		return nil
	})
	g.Go(func() error {
		snap.Timeline, snap.TimelineErr = s.loader.Timeline(ctx, s.TimelineSource())
		return nil
	})
	_ = g.Wait()

	snap.Engine = search.NewEngine(snap.Index)
	snap.HostPage = s.hostPage()

	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
	s.metrics.observeReload(snap)

	err := errors.Join(snap.IndexErr, snap.TimelineErr)
	if err != nil {
		s.logger.Warn("snapshot loaded with errors", zap.Error(err))
	} else {
		s.logger.Info("snapshot loaded",
			zap.Int("specs", len(snap.Index.Records)),
			zap.Int("events", len(snap.Timeline.Events)),
		)
	}
	return err
}

func (s *Service) hostPage() string {
	if s.cfg.HostPage == "" {
		return ""
	}
	raw, err := os.ReadFile(s.cfg.HostPage)
	if err != nil {
		s.logger.Warn("host page unreadable, using the built-in page", zap.String("path", s.cfg.HostPage), zap.Error(err))
		return ""
	}
	return string(raw)
}

// Snapshot returns the current snapshot, or nil before the first Reload.
func (s *Service) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

func (s *Service) index() (*Snapshot, error) {
	snap := s.Snapshot()
	if snap == nil {
		return nil, errNotLoaded
	}
	if snap.IndexErr != nil {
		return nil, snap.IndexErr
	}
	return snap, nil
}

func (s *Service) events() ([]spec.Event, error) {
	snap := s.Snapshot()
	if snap == nil {
		return nil, errNotLoaded
	}
	if snap.TimelineErr != nil {
		return nil, snap.TimelineErr
	}
	return snap.Timeline.Events, nil
}

// Ready reports whether the index is loaded; the timeline is optional.
func (s *Service) Ready() error {
	_, err := s.index()
	return err
}

// Specs runs the view's search and filters. A ranked search keeps its
// relevance order unless the view asks for a sort explicitly.
func (s *Service) Specs(view dashboard.View) (search.Response, error) {
	snap, err := s.index()
	if err != nil {
		return search.Response{}, err
	}
	resp := snap.Engine.Run(view.Search)
	if view.SortExplicit || !search.Ranks(view.Search.Query) {
		resp.Results = table.Sort(resp.Results, view.Sort)
	}
	return resp, nil
}

// Facets lists the filter options of the loaded index.
func (s *Service) Facets() (search.FacetOptions, error) {
	snap, err := s.index()
	if err != nil {
		return search.FacetOptions{}, err
	}
	return snap.Engine.Facets(), nil
}

// Stats summarizes the loaded index.
func (s *Service) Stats() (spec.Stats, error) {
	snap, err := s.index()
	if err != nil {
		return spec.Stats{}, err
	}
	return spec.Summarize(snap.Index.Records), nil
}

// TimelineLayout computes the diagram of the loaded timeline.
func (s *Service) TimelineLayout() (timeline.Layout, error) {
	events, err := s.events()
	if err != nil {
		return timeline.Layout{}, err
	}
	return s.timeline.Layout(events)
}

// TimelineSVG draws the loaded timeline at a zoom level.
func (s *Service) TimelineSVG(w io.Writer, zoom timeline.Zoom) error {
	layout, err := s.TimelineLayout()
	if err != nil {
		return err
	}
	s.timeline.Draw(w, layout, zoom)
	return nil
}

// DashboardPage renders the host page for a view query. Section failures
// become placeholders; only an unparseable host page is an error.
func (s *Service) DashboardPage(_ context.Context, query string) (string, error) {
	values, err := url.ParseQuery(query)
	if err != nil {
		return "", domainError(http.StatusBadRequest, "INVALID_QUERY", "Invalid view query", nil)
	}
	data := dashboard.Data{View: dashboard.ParseView(values), Now: s.now()}
	host := ""
	if snap := s.Snapshot(); snap != nil {
		data.Index, data.IndexErr = snap.Index, snap.IndexErr
		data.Events, data.TimelineErr = snap.Timeline.Events, snap.TimelineErr
		host = snap.HostPage
	} else {
		data.IndexErr, data.TimelineErr = errNotLoaded, errNotLoaded
	}
	page, err := dashboard.MountString(host, s.dashboard.Render(data))
	if err != nil {
		return "", fmt.Errorf("mount dashboard: %w", err)
	}
	return page, nil
}

// Export renders the dashboard as a PDF or HTML download.
func (s *Service) Export(ctx context.Context, req export.Request) (*export.Result, error) {
	return s.exporter.Export(ctx, req)
}
