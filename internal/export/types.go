// Package export renders the dashboard into downloadable documents: a
// self-contained HTML snapshot or a PDF printed by headless Chrome.
package export

import (
	"errors"
	"time"
)

// Format represents the export output format
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatHTML Format = "html"
)

// ParseFormat accepts "pdf" and "html"; empty means PDF.
func ParseFormat(value string) (Format, error) {
	switch Format(value) {
	case "", FormatPDF:
		return FormatPDF, nil
	case FormatHTML:
		return FormatHTML, nil
	default:
		return "", ErrUnsupportedFormat
	}
}

// Request contains parameters for an export operation
type Request struct {
	Format Format
	// Title names the document and the download; empty means the default.
	Title string
	// Query is the dashboard view state, as a URL query, to render.
	Query string
}

// Result contains the export output
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

// Paper is the PDF page setup in inches.
type Paper struct {
	Width, Height float64
	Margin        float64
}

// Letter is US letter with 0.75in margins.
var Letter = Paper{Width: 8.5, Height: 11, Margin: 0.75}

const (
	defaultTitle   = "NextPM Spec Dashboard"
	defaultTimeout = 30 * time.Second
)

var (
	// ErrContentUnavailable indicates the dashboard could not be rendered for export.
	ErrContentUnavailable = errors.New("export content unavailable")
	// ErrPDFDependencyMissing indicates PDF export runtime dependencies are unavailable.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
	// ErrUnsupportedFormat is returned for formats other than pdf and html.
	ErrUnsupportedFormat = errors.New("export format unsupported")
)
