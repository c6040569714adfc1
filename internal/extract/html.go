package extract

import (
	"bytes"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/user/extraction-pipeline/internal/entity"
	"github.com/user/extraction-pipeline/pkg/utils"
)

// HTMLProfile declares how records sit inside an HTML listing page.
type HTMLProfile struct {
	// Container selects one record element per match.
	Container string
	Fields    []Field
	// NextPage strategies resolve the next page link, usually an href.
	NextPage []Strategy
}

// HTMLExtractor extracts records from HTML documents with goquery.
type HTMLExtractor struct {
	profile HTMLProfile
}

// NewHTMLExtractor builds an extractor over a listing profile.
func NewHTMLExtractor(profile HTMLProfile) *HTMLExtractor {
	return &HTMLExtractor{profile: profile}
}

// Extract parses the document and walks every container match. Parse failure
// or an unexpected root yields no records and no next-page signal.
func (x *HTMLExtractor) Extract(body []byte, cur entity.PageCursor) ([]entity.RawRecord, *entity.PageCursor) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		slog.Debug("HTML parse failed", "page_url", cur.URL, "error", err)
		return nil, nil
	}

	var records []entity.RawRecord
	doc.Find(x.profile.Container).Each(func(i int, sel *goquery.Selection) {
		fields := make(map[string]string, len(x.profile.Fields))
		for _, f := range x.profile.Fields {
			if value := firstMatch(sel, f.Strategies); value != "" {
				fields[f.Name] = value
			}
		}
		if len(fields) == 0 {
			return
		}
		records = append(records, entity.RawRecord{
			Fields: fields,
			Source: entity.Provenance{PageURL: cur.URL, Page: cur.Page},
		})
	})

	return records, x.nextCursor(doc, cur)
}

// nextCursor resolves the next-page link against the current page URL.
func (x *HTMLExtractor) nextCursor(doc *goquery.Document, cur entity.PageCursor) *entity.PageCursor {
	href := firstMatch(doc.Selection, x.profile.NextPage)
	if href == "" {
		return nil
	}

	next := href
	if base, err := url.Parse(cur.URL); err == nil && cur.URL != "" {
		if abs, err := utils.ToAbsoluteURL(base, href); err == nil {
			next = abs
		}
	}
	if next == cur.URL {
		// A next link pointing at the current page is an end marker in
		// disguise; following it would loop forever.
		return nil
	}
	return &entity.PageCursor{URL: next, Page: cur.Page + 1}
}

// firstMatch evaluates strategies in order and returns the first non-empty
// value.
func firstMatch(sel *goquery.Selection, strategies []Strategy) string {
	for _, s := range strategies {
		target := sel
		if s.Selector != "" {
			target = sel.Find(s.Selector).First()
		}
		if target.Length() == 0 {
			continue
		}
		var value string
		if s.Attr != "" {
			value, _ = target.Attr(s.Attr)
		} else {
			value = target.Text()
		}
		if value = strings.TrimSpace(value); value != "" {
			return value
		}
	}
	return ""
}
