package entity

// PageCursor is the continuation state of a paginated source: where the next
// request goes plus counts so far. Only the pagination controller mutates it,
// and only once per successfully fetched page.
type PageCursor struct {
	URL   string // next page URL; empty once exhausted
	Page  int    // 1-based page number
	Token string // opaque continuation token for token-paginated sources

	PagesFetched   int
	RecordsEmitted int
}
