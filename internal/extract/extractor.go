// Package extract converts fetched page content into candidate records. Every
// target field carries an ordered list of extraction strategies; the first one
// that yields a non-empty value wins, and a field with no successful strategy
// is recorded as absent rather than failing the record. A page that does not
// parse at all yields zero records, which the orchestrator counts as drift,
// not as an error.
package extract

import (
	"github.com/user/extraction-pipeline/internal/entity"
)

// Strategy is one way to pull a field out of a page. For HTML pages Selector
// and Attr apply; for JSON payloads Path applies.
type Strategy struct {
	Selector string   // CSS selector relative to the record container
	Attr     string   // attribute to read; empty means element text
	Path     []string // key path inside a JSON record object
}

// Field names a target field and its fallback chain.
type Field struct {
	Name       string
	Strategies []Strategy
}

// SiteExtractor is the per-target collaborator: it turns page content into raw
// records and reports whether the page indicates more results. A nil next
// cursor means the source gave no next-page signal.
type SiteExtractor interface {
	Extract(body []byte, cur entity.PageCursor) (records []entity.RawRecord, next *entity.PageCursor)
}
