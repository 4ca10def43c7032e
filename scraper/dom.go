package scraper

import (
	"log/slog"
	nurl "net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"

	"github.com/use-agent/fraudlens/models"
)

// Selectors compiled once and shared by every DOM pass.
var (
	alertSelector  = cascadia.MustCompile(`.alert, [role="alert"], .popup, .modal`)
	buttonSelector = cascadia.MustCompile(`button, input[type="submit"], input[type="button"]`)
	inputSelector  = cascadia.MustCompile(`input, select, textarea`)
)

// ParseDOM extracts the structured fields of a PageSnapshot from rendered
// HTML. pageURL is the final page URL; it resolves relative links and form
// actions and decides which links are external. BodyText is the visible
// text of the document.
func ParseDOM(rawHTML, pageURL string) *models.PageSnapshot {
	snap := &models.PageSnapshot{
		URL:     pageURL,
		Forms:   []models.Form{},
		Links:   []models.Link{},
		Buttons: []string{},
		Alerts:  []string{},
	}

	base, _ := nurl.Parse(pageURL)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		slog.Warn("dom: parse failed", "url", pageURL, "error", err)
		return snap
	}

	snap.Title = collapseSpace(doc.Find("title").First().Text())
	snap.BodyText = VisibleText(rawHTML)
	snap.Forms = extractForms(doc, base)
	snap.Links = extractLinks(doc, base)

	doc.FindMatcher(buttonSelector).Each(func(_ int, s *goquery.Selection) {
		label := s.Text()
		if goquery.NodeName(s) == "input" {
			label = s.AttrOr("value", "")
		}
		if label = collapseSpace(label); label != "" {
			snap.Buttons = append(snap.Buttons, label)
		}
	})

	doc.FindMatcher(alertSelector).Each(func(_ int, s *goquery.Selection) {
		if text := collapseSpace(s.Text()); text != "" {
			snap.Alerts = append(snap.Alerts, text)
		}
	})

	snap.Metadata = extractMetadata(doc)
	if snap.Metadata.Description == "" || snap.Metadata.Author == "" || snap.Metadata.SiteName == "" {
		fillFromReadability(&snap.Metadata, rawHTML, base)
	}

	return snap
}

func extractForms(doc *goquery.Document, base *nurl.URL) []models.Form {
	forms := []models.Form{}
	doc.Find("form").Each(func(_ int, s *goquery.Selection) {
		method := strings.ToLower(strings.TrimSpace(s.AttrOr("method", "")))
		if method == "" {
			method = "get"
		}
		form := models.Form{
			Action: resolve(base, s.AttrOr("action", "")),
			Method: method,
			Inputs: []models.Input{},
		}
		s.FindMatcher(inputSelector).Each(func(_ int, in *goquery.Selection) {
			form.Inputs = append(form.Inputs, models.Input{
				Type:        inputType(in),
				Name:        in.AttrOr("name", ""),
				Placeholder: in.AttrOr("placeholder", ""),
			})
		})
		forms = append(forms, form)
	})
	return forms
}

// inputType mirrors the DOM's reflected type property.
func inputType(s *goquery.Selection) string {
	switch goquery.NodeName(s) {
	case "select":
		if _, multiple := s.Attr("multiple"); multiple {
			return "select-multiple"
		}
		return "select-one"
	case "textarea":
		return "textarea"
	}
	t := strings.ToLower(strings.TrimSpace(s.AttrOr("type", "")))
	if t == "" {
		return "text"
	}
	return t
}

func extractLinks(doc *goquery.Document, base *nurl.URL) []models.Link {
	links := []models.Link{}
	pageHost := ""
	if base != nil {
		pageHost = strings.ToLower(base.Hostname())
	}
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := resolve(base, s.AttrOr("href", ""))
		if href == "" {
			return
		}
		external := false
		if u, err := nurl.Parse(href); err == nil && u.Hostname() != "" {
			external = strings.ToLower(u.Hostname()) != pageHost
		}
		links = append(links, models.Link{
			Href:       href,
			Text:       collapseSpace(s.Text()),
			IsExternal: external,
		})
	})
	return links
}

func extractMetadata(doc *goquery.Document) models.Metadata {
	meta := func(name string) string {
		sel := doc.Find(`meta[name="` + name + `"], meta[property="` + name + `"]`).First()
		return strings.TrimSpace(sel.AttrOr("content", ""))
	}

	desc := meta("description")
	if desc == "" {
		desc = meta("og:description")
	}
	return models.Metadata{
		Description: desc,
		Keywords:    meta("keywords"),
		Author:      meta("author"),
		SiteName:    meta("og:site_name"),
	}
}

// fillFromReadability fills empty metadata fields from the readability
// article (excerpt, byline, site name).
func fillFromReadability(m *models.Metadata, rawHTML string, base *nurl.URL) {
	if base == nil {
		return
	}
	article, err := readability.FromReader(strings.NewReader(rawHTML), base)
	if err != nil {
		slog.Debug("dom: readability metadata fallback failed", "url", base.String(), "error", err)
		return
	}
	if m.Description == "" {
		m.Description = strings.TrimSpace(article.Excerpt)
	}
	if m.Author == "" {
		m.Author = strings.TrimSpace(article.Byline)
	}
	if m.SiteName == "" {
		m.SiteName = strings.TrimSpace(article.SiteName)
	}
}

// resolve returns ref as an absolute URL against base. Unparsable refs are
// returned trimmed but otherwise untouched.
func resolve(base *nurl.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if base == nil {
		return ref
	}
	u, err := nurl.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}

// skipText lists elements whose text never renders.
var skipText = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"head":     true,
	"svg":      true,
	"iframe":   true,
}

// VisibleText returns the human-visible text of an HTML document, one line
// per text run. It stands in for innerText when scripts are disabled.
func VisibleText(rawHTML string) string {
	z := html.NewTokenizer(strings.NewReader(rawHTML))
	var (
		b     strings.Builder
		depth int
	)
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(b.String())
		case html.StartTagToken:
			name, _ := z.TagName()
			if skipText[string(name)] {
				depth++
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if skipText[string(name)] && depth > 0 {
				depth--
			}
		case html.TextToken:
			if depth > 0 {
				continue
			}
			if text := collapseSpace(string(z.Text())); text != "" {
				if b.Len() > 0 {
					b.WriteByte('\n')
				}
				b.WriteString(text)
			}
		}
	}
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
