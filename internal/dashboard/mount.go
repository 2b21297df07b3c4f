package dashboard

import (
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var optionTargets = map[string]bool{
	IDStatusFilter:   true,
	IDPriorityFilter: true,
	IDCategoryFilter: true,
}

// Mount fills the host page with the fragments and returns the page. Any
// element the page does not carry is skipped.
func Mount(host io.Reader, frags Fragments) (string, error) {
	doc, err := goquery.NewDocumentFromReader(host)
	if err != nil {
		return "", fmt.Errorf("parse host page: %w", err)
	}

	if input := byID(doc, IDSearchInput); input.Length() > 0 {
		input.SetAttr("value", frags.View.Search.Query)
	}
	if clear := byID(doc, IDClearSearch); clear.Length() > 0 {
		clear.SetAttr("href", "?")
	}

	for id, fragment := range frags.Sections {
		target := byID(doc, id)
		if target.Length() == 0 {
			continue
		}
		switch {
		case optionTargets[id]:
			mountOptions(target, fragment)
		case id == IDSearchStats:
			target.SetText(fragment)
		default:
			target.SetHtml(fragment)
		}
	}

	doc.Find(SortableSelector).Each(func(_ int, th *goquery.Selection) {
		column, _ := th.Attr(sortAttribute)
		th.RemoveClass("sort-asc", "sort-desc")
		if indicator := frags.View.Sort.Indicator(column); indicator != "" {
			th.AddClass(indicator)
		}
		link := th.Find("a")
		if link.Length() == 0 {
			th.WrapInnerHtml(`<a></a>`)
			link = th.Find("a")
		}
		link.First().SetAttr("href", frags.View.SortHref(column))
	})

	return doc.Html()
}

// mountOptions keeps the leading "all" option and replaces the rest.
func mountOptions(sel *goquery.Selection, options string) {
	existing := sel.Children()
	if existing.Length() == 0 {
		sel.AppendHtml(`<option value="all">All</option>`)
	} else if existing.Length() > 1 {
		existing.Slice(1, goquery.ToEnd).Remove()
	}
	sel.AppendHtml(options)
}

func byID(doc *goquery.Document, id string) *goquery.Selection {
	return doc.Find("#" + id)
}

// MountString is Mount over an in-memory host page; an empty page means
// the built-in one.
func MountString(host string, frags Fragments) (string, error) {
	if strings.TrimSpace(host) == "" {
		host = DefaultHostPage
	}
	return Mount(strings.NewReader(host), frags)
}

// Placeholder renders a single message block, used when the whole
// dashboard cannot be produced.
func Placeholder(class, message string) string {
	return fmt.Sprintf(`<div class="%s">%s</div>`, html.EscapeString(class), html.EscapeString(message))
}
