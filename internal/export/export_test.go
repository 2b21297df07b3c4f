package export

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type stubSource struct {
	page  string
	err   error
	query string
}

func (s *stubSource) DashboardPage(_ context.Context, query string) (string, error) {
	s.query = query
	return s.page, s.err
}

type stubPrinter struct {
	html  string
	paper Paper
	err   error
}

func (p *stubPrinter) Print(_ context.Context, html string, paper Paper) ([]byte, error) {
	p.html, p.paper = html, paper
	if p.err != nil {
		return nil, p.err
	}
	return []byte("%PDF-1.7"), nil
}

const dashboardPage = `<html><head><title>NextPM</title></head><body>
<div class="search-controls no-print"><input id="spec-search"></div>
<table><tbody id="specs-table-body"><tr><td>Alpha</td></tr></tbody></table>
<script>console.log("x")</script>
</body></html>`

func newTestService(source PageSource, printer Printer) *Service {
	svc := NewService(source, printer, nil)
	svc.now = func() time.Time { return time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC) }
	return svc
}

func TestExportPDF(t *testing.T) {
	source := &stubSource{page: dashboardPage}
	printer := &stubPrinter{}
	svc := newTestService(source, printer)

	result, err := svc.Export(context.Background(), Request{Format: FormatPDF, Query: "status=completed"})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if result.MimeType != "application/pdf" || result.Filename != "NextPM-Spec-Dashboard.pdf" {
		t.Errorf("unexpected result %q %q", result.MimeType, result.Filename)
	}
	if string(result.Data) != "%PDF-1.7" {
		t.Errorf("unexpected data %q", result.Data)
	}
	if source.query != "status=completed" {
		t.Errorf("expected the view query to reach the source, got %q", source.query)
	}
	if printer.paper != Letter {
		t.Errorf("expected letter paper, got %+v", printer.paper)
	}
	for _, want := range []string{`<style media="print">`, "Generated Mar 1, 2024 09:30", "status=completed", "Alpha"} {
		if !strings.Contains(printer.html, want) {
			t.Errorf("printed page missing %q", want)
		}
	}
	for _, unwanted := range []string{"<script", "spec-search"} {
		if strings.Contains(printer.html, unwanted) {
			t.Errorf("printed page should not contain %q", unwanted)
		}
	}
}

func TestExportHTML(t *testing.T) {
	svc := newTestService(&stubSource{page: dashboardPage}, &stubPrinter{err: errors.New("must not print")})

	result, err := svc.Export(context.Background(), Request{Format: FormatHTML, Title: "Q1 Review"})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if result.Filename != "Q1-Review.html" || !strings.HasPrefix(result.MimeType, "text/html") {
		t.Errorf("unexpected result %q %q", result.Filename, result.MimeType)
	}
	if !strings.Contains(string(result.Data), "<h1>Q1 Review</h1>") {
		t.Error("expected the print header")
	}
}

func TestExportErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("unsupported format", func(t *testing.T) {
		_, err := newTestService(&stubSource{page: dashboardPage}, &stubPrinter{}).Export(ctx, Request{Format: "docx"})
		if !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("expected ErrUnsupportedFormat, got %v", err)
		}
	})

	t.Run("source failure", func(t *testing.T) {
		_, err := newTestService(&stubSource{err: errors.New("no snapshot")}, &stubPrinter{}).Export(ctx, Request{})
		if !errors.Is(err, ErrContentUnavailable) {
			t.Errorf("expected ErrContentUnavailable, got %v", err)
		}
	})

	t.Run("missing chrome", func(t *testing.T) {
		printer := &stubPrinter{err: ErrPDFDependencyMissing}
		_, err := newTestService(&stubSource{page: dashboardPage}, printer).Export(ctx, Request{})
		if !errors.Is(err, ErrPDFDependencyMissing) {
			t.Errorf("expected ErrPDFDependencyMissing, got %v", err)
		}
	})
}

func TestChromePrinterMissingBinary(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	_, err := ChromePrinter{}.Print(context.Background(), "<p>x</p>", Letter)
	if !errors.Is(err, ErrPDFDependencyMissing) {
		t.Fatalf("expected ErrPDFDependencyMissing, got %v", err)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hello World", "Hello-World"},
		{"My Document v1.2", "My-Document-v12"},
		{"Special!@#$%Chars", "SpecialChars"},
		{"", "document"},
		{"Very Long Title That Exceeds Fifty Characters Limit", "Very-Long-Title-That-Exceeds-Fifty-Characters-Limi"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := sanitizeFilename(tt.input)
			if result != tt.expected {
				t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestDataURL(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"hello world", "hello%20world"},
		{"test+sign", "test%2Bsign"},
		{"special<>", "special%3C%3E"},
		{"normal-text.txt", "normal-text.txt"},
		{"é", "%C3%A9"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := strings.TrimPrefix(dataURL(tt.input), "data:text/html;charset=utf-8,")
			if result != tt.expected {
				t.Errorf("dataURL(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat(""); err != nil || f != FormatPDF {
		t.Errorf("ParseFormat(\"\") = %q, %v", f, err)
	}
	if f, err := ParseFormat("html"); err != nil || f != FormatHTML {
		t.Errorf("ParseFormat(html) = %q, %v", f, err)
	}
}
