package export

import (
	"bytes"
	"embed"
	"html/template"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

var printTemplate *template.Template

func init() {
	funcMap := template.FuncMap{
		"formatDate": func(t time.Time, layout string) string {
			return t.Format(layout)
		},
	}

	templateContent, err := templateFS.ReadFile("templates/print.html")
	if err != nil {
		// Fallback to built-in template if file not found
		printTemplate = template.Must(template.New("print").Funcs(funcMap).Parse(fallbackTemplate))
		return
	}

	printTemplate = template.Must(template.New("print").Funcs(funcMap).Parse(string(templateContent)))
}

// TemplateData holds data for the print decorations
type TemplateData struct {
	Title       string
	GeneratedAt time.Time
	// Filters describes a non-default view, empty otherwise.
	Filters string
}

func renderBlock(name string, data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := printTemplate.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// fallbackTemplate is used if the embedded template fails to load
const fallbackTemplate = `{{define "styles"}}<style media="print">body { print-color-adjust: exact; }</style>{{end}}
{{define "header"}}<header class="print-header"><h1>{{.Title}}</h1><p class="print-meta">Generated {{formatDate .GeneratedAt "Jan 2, 2006 15:04"}}</p></header>{{end}}`
