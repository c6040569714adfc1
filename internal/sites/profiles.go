// Package sites holds declarative extraction profiles: selector tables with
// ordered fallbacks per field, compiled into site extractors. Profiles are the
// per-target collaborator the pipeline core stays agnostic about.
package sites

import (
	"net/url"
	"strconv"

	"github.com/user/extraction-pipeline/internal/entity"
	"github.com/user/extraction-pipeline/internal/extract"
	"github.com/user/extraction-pipeline/internal/validate"
)

// Profile binds everything target-specific: the extractor, validation rules,
// extra headers and the failure-advance hook for numbered sources.
type Profile struct {
	Name      string
	Extractor extract.SiteExtractor
	Rules     validate.Rules
	Headers   map[string]string

	// AdvanceOnFailure derives the next cursor for a dead page on numbered
	// sources; nil for token-paginated ones.
	AdvanceOnFailure func(cur entity.PageCursor) *entity.PageCursor

	// FieldOrder fixes CSV column order for the output writer.
	FieldOrder []string
}

// Registry returns the built-in profiles by name.
func Registry() map[string]Profile {
	return map[string]Profile{
		"listing": ProductListing(),
		"reviews": ReviewsAPI(),
	}
}

// ProductListing covers marketplace search result pages: one container per
// item, lazily loaded images, a rel-next pagination link, prices with
// currency noise. Each field tries its primary selector first and falls back
// through known markup variants.
func ProductListing() Profile {
	extractor := extract.NewHTMLExtractor(extract.HTMLProfile{
		Container: "li.s-item, div.s-item, [data-listing-id]",
		Fields: []extract.Field{
			{Name: "title", Strategies: []extract.Strategy{
				{Selector: ".s-item__title span"},
				{Selector: ".s-item__title"},
				{Selector: "h3"},
				{Selector: "a", Attr: "title"},
			}},
			{Name: "url", Strategies: []extract.Strategy{
				{Selector: "a.s-item__link", Attr: "href"},
				{Selector: "a", Attr: "href"},
			}},
			{Name: "price", Strategies: []extract.Strategy{
				{Selector: ".s-item__price"},
				{Selector: "[itemprop=price]", Attr: "content"},
				{Selector: ".price"},
			}},
			{Name: "condition", Strategies: []extract.Strategy{
				{Selector: ".SECONDARY_INFO"},
				{Selector: ".s-item__subtitle"},
			}},
			{Name: "shipping", Strategies: []extract.Strategy{
				{Selector: ".s-item__shipping"},
				{Selector: ".s-item__freeXDays"},
			}},
			{Name: "image", Strategies: []extract.Strategy{
				{Selector: "img", Attr: "data-src"},
				{Selector: "img", Attr: "src"},
			}},
		},
		NextPage: []extract.Strategy{
			{Selector: "a.pagination__next", Attr: "href"},
			{Selector: "a[rel=next]", Attr: "href"},
			{Selector: "link[rel=next]", Attr: "href"},
		},
	})
	return Profile{
		Name:      "listing",
		Extractor: extractor,
		Rules: validate.Rules{
			IDFields: []string{"url"},
			Required: []string{"title", "url"},
			Numeric:  []string{"price"},
		},
		AdvanceOnFailure: advanceByPageParam("_pgn"),
		FieldOrder:       []string{"title", "url", "price", "condition", "shipping", "image"},
	}
}

// ReviewsAPI covers JSON review feeds: a reviews array, per-review stable ids,
// a continuation token for the next page.
func ReviewsAPI() Profile {
	extractor := extract.NewJSONExtractor(extract.JSONProfile{
		RecordsPath: []string{"reviews"},
		Fields: []extract.Field{
			{Name: "id", Strategies: []extract.Strategy{
				{Path: []string{"id"}},
				{Path: []string{"reviewId"}},
			}},
			{Name: "title", Strategies: []extract.Strategy{
				{Path: []string{"title"}},
				{Path: []string{"headline"}},
			}},
			{Name: "rating", Strategies: []extract.Strategy{
				{Path: []string{"rating"}},
				{Path: []string{"stars"}},
			}},
			{Name: "text", Strategies: []extract.Strategy{
				{Path: []string{"text"}},
				{Path: []string{"body"}},
			}},
			{Name: "date", Strategies: []extract.Strategy{
				{Path: []string{"dates", "publishedDate"}},
				{Path: []string{"publishedAt"}},
			}},
		},
		NextTokenPath: []string{"nextPage"},
		NextURL: func(cur entity.PageCursor, token string) string {
			return withQueryParam(cur.URL, "page", token)
		},
	})
	return Profile{
		Name:      "reviews",
		Extractor: extractor,
		Rules: validate.Rules{
			IDFields: []string{"id"},
			Required: []string{"id", "text"},
			Numeric:  []string{"rating"},
		},
		Headers:    map[string]string{"Accept": "application/json"},
		FieldOrder: []string{"id", "title", "rating", "text", "date"},
	}
}

// advanceByPageParam bumps a numeric page query parameter, for sources where
// page N+1 does not depend on page N's body.
func advanceByPageParam(param string) func(cur entity.PageCursor) *entity.PageCursor {
	return func(cur entity.PageCursor) *entity.PageCursor {
		if cur.URL == "" {
			return nil
		}
		nextPage := cur.Page + 1
		return &entity.PageCursor{
			URL:  withQueryParam(cur.URL, param, strconv.Itoa(nextPage)),
			Page: nextPage,
		}
	}
}

func withQueryParam(raw, key, value string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}
