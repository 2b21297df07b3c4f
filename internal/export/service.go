package export

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// PageSource renders the dashboard page for a view query.
type PageSource interface {
	DashboardPage(ctx context.Context, query string) (string, error)
}

// Service provides dashboard export functionality
type Service struct {
	source  PageSource
	printer Printer
	logger  *zap.Logger
	now     func() time.Time
}

// NewService creates a new export service. A nil printer means headless
// Chrome from PATH.
func NewService(source PageSource, printer Printer, logger *zap.Logger) *Service {
	if printer == nil {
		printer = ChromePrinter{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{source: source, printer: printer, logger: logger, now: time.Now}
}

// Export generates an export in the requested format
func (s *Service) Export(ctx context.Context, req Request) (*Result, error) {
	format, err := ParseFormat(string(req.Format))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, req.Format)
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = defaultTitle
	}

	page, err := s.source.DashboardPage(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrContentUnavailable, err)
	}
	html, err := decorate(page, TemplateData{Title: title, GeneratedAt: s.now(), Filters: req.Query})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrContentUnavailable, err)
	}

	switch format {
	case FormatHTML:
		return &Result{
			Data:     []byte(html),
			Filename: sanitizeFilename(title) + ".html",
			MimeType: "text/html; charset=utf-8",
		}, nil
	default:
		started := time.Now()
		data, err := s.printer.Print(ctx, html, Letter)
		if err != nil {
			if !errors.Is(err, ErrPDFDependencyMissing) {
				s.logger.Error("pdf export failed", zap.Error(err))
			}
			return nil, err
		}
		s.logger.Info("pdf exported",
			zap.Int("bytes", len(data)),
			zap.Duration("duration", time.Since(started)),
		)
		return &Result{
			Data:     data,
			Filename: sanitizeFilename(title) + ".pdf",
			MimeType: "application/pdf",
		}, nil
	}
}

// decorate strips scripts, adds the print stylesheet and puts a title
// header at the top of the body.
func decorate(page string, data TemplateData) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("parse dashboard page: %w", err)
	}
	styles, err := renderBlock("styles", data)
	if err != nil {
		return "", fmt.Errorf("render print styles: %w", err)
	}
	header, err := renderBlock("header", data)
	if err != nil {
		return "", fmt.Errorf("render print header: %w", err)
	}

	doc.Find("script, .no-print").Remove()
	doc.Find("head").AppendHtml(styles)
	doc.Find("body").PrependHtml(header)
	return doc.Html()
}
