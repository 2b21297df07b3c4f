package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kangxh75/NextPM/internal/authpw"
	"github.com/kangxh75/NextPM/internal/dashboard"
	"github.com/kangxh75/NextPM/internal/export"
	"github.com/kangxh75/NextPM/internal/timeline"
	"github.com/kangxh75/NextPM/internal/util"
)

const authRealm = "NextPM"

// public paths skip basic auth.
var publicPaths = map[string]bool{
	"/api/health": true,
	"/api/ready":  true,
	"/metrics":    true,
}

type HTTPServer struct {
	service    *Service
	corsOrigin string
	static     http.Handler
	logger     *zap.Logger
}

// NewHTTPServer serves the dashboard, its JSON API and the build output
// in staticDir.
func NewHTTPServer(service *Service, corsOrigin, staticDir string, logger *zap.Logger) *HTTPServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	var static http.Handler = http.NotFoundHandler()
	if staticDir != "" {
		static = http.FileServer(http.Dir(staticDir))
	}
	return &HTTPServer{service: service, corsOrigin: corsOrigin, static: static, logger: logger}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		return
	}

	switch r.URL.Path {
	case "/api/health":
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	case "/api/ready":
		s.handleReady(w)
		return
	case "/metrics":
		s.service.Metrics().Handler().ServeHTTP(w, r)
		return
	}

	if !s.authorize(w, r) {
		return
	}

	switch r.URL.Path {
	case "/api/specs":
		view := dashboard.ParseView(r.URL.Query())
		resp, err := s.service.Specs(view)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"results": resp.Results,
			"shown":   resp.Shown,
			"total":   resp.Total,
			"query":   resp.Query,
			"filters": resp.Filters,
			"sort":    view.Sort,
			"stats":   resp.Stats,
		})
	case "/api/facets":
		facets, err := s.service.Facets()
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, facets)
	case "/api/stats":
		stats, err := s.service.Stats()
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	case "/api/timeline":
		layout, err := s.service.TimelineLayout()
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, layout)
	case "/timeline.svg":
		var buf bytes.Buffer
		if err := s.service.TimelineSVG(&buf, timeline.ZoomFromQuery(r.URL.Query())); err != nil {
			s.fail(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "image/svg+xml")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(buf.Bytes())
	case "/", "/dashboard":
		page, err := s.service.DashboardPage(r.Context(), r.URL.RawQuery)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(page))
	case "/export.pdf", "/export.html":
		s.handleExport(w, r)
	default:
		if strings.HasPrefix(r.URL.Path, "/api/") {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
			return
		}
		s.static.ServeHTTP(w, r)
	}
}

func (s *HTTPServer) handleReady(w http.ResponseWriter) {
	checks := map[string]any{}
	ok := true
	snap := s.service.Snapshot()
	check := func(name string, err error) {
		if err != nil {
			checks[name] = map[string]any{"status": "error", "error": err.Error()}
			return
		}
		checks[name] = map[string]any{"status": "ok"}
	}
	if snap == nil {
		ok = false
		check("index", errNotLoaded)
		check("timeline", errNotLoaded)
	} else {
		ok = snap.IndexErr == nil
		check("index", snap.IndexErr)
		check("timeline", snap.TimelineErr)
	}

	status, statusCode := "ready", http.StatusOK
	if !ok {
		status, statusCode = "not_ready", http.StatusServiceUnavailable
	}
	writeJSON(w, statusCode, map[string]any{
		"ok":     ok,
		"status": status,
		"checks": checks,
	})
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	format := export.FormatPDF
	if strings.HasSuffix(r.URL.Path, ".html") {
		format = export.FormatHTML
	}
	query := r.URL.Query()
	title := query.Get("title")
	query.Del("title")

	result, err := s.service.Export(r.Context(), export.Request{
		Format: format,
		Title:  title,
		Query:  query.Encode(),
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}

	// Return as downloadable file
	w.Header().Set("Content-Disposition", "attachment; filename=\""+result.Filename+"\"")
	w.Header().Set("Content-Type", result.MimeType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Data)
}

// authorize enforces basic auth when users are configured. It writes the
// 401 itself and reports whether the request may continue.
func (s *HTTPServer) authorize(w http.ResponseWriter, r *http.Request) bool {
	users := s.service.Users()
	if users == nil || publicPaths[r.URL.Path] {
		return true
	}
	enabled, err := users.Enabled(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return false
	}
	if !enabled {
		return true
	}

	name, password, ok := r.BasicAuth()
	if ok {
		err = users.SignIn(r.Context(), name, password)
		if err == nil {
			return true
		}
		if !errors.Is(err, authpw.ErrInvalidCredentials) {
			s.fail(w, r, err)
			return false
		}
	}
	w.Header().Set("WWW-Authenticate", `Basic realm="`+authRealm+`", charset="UTF-8"`)
	writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
	return false
}

func (s *HTTPServer) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message, details := mapError(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("request_id", requestID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	writeError(w, status, code, message, details)
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = util.NewID("req")
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", id)

		next.ServeHTTP(writer, r)

		elapsed := time.Since(started)
		s.service.Metrics().observeRequest(r.Method, routeName(r.URL.Path), writer.status, elapsed)
		s.logger.Info("request",
			zap.String("request_id", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", writer.status),
			zap.Duration("duration", elapsed),
		)
	})
}

type requestIDKey struct{}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// routeName keeps metric label cardinality bounded.
func routeName(path string) string {
	switch path {
	case "/", "/dashboard", "/api/health", "/api/ready", "/metrics", "/api/specs", "/api/facets",
		"/api/stats", "/api/timeline", "/timeline.svg", "/export.pdf", "/export.html":
		return path
	}
	if strings.HasPrefix(path, "/api/") {
		return "/api/unknown"
	}
	return "static"
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,HEAD,OPTIONS")
	header.Set("Cache-Control", "no-store")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}
