package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/extraction-pipeline/internal/entity"
)

func listingProfile() HTMLProfile {
	return HTMLProfile{
		Container: "li.item",
		Fields: []Field{
			{Name: "title", Strategies: []Strategy{
				{Selector: "h3.heading"},
				{Selector: "a", Attr: "title"},
			}},
			{Name: "url", Strategies: []Strategy{
				{Selector: "a.link", Attr: "href"},
				{Selector: "a", Attr: "href"},
			}},
			{Name: "price", Strategies: []Strategy{
				{Selector: "span.price"},
			}},
		},
		NextPage: []Strategy{
			{Selector: "a.next", Attr: "href"},
			{Selector: "a[rel=next]", Attr: "href"},
		},
	}
}

func TestExtractWalksContainersInDocumentOrder(t *testing.T) {
	page := `<html><body><ul>
		<li class="item"><h3 class="heading">First</h3><a class="link" href="/p/1"></a><span class="price">$10</span></li>
		<li class="item"><h3 class="heading">Second</h3><a class="link" href="/p/2"></a><span class="price">$20</span></li>
	</ul></body></html>`

	x := NewHTMLExtractor(listingProfile())
	records, next := x.Extract([]byte(page), entity.PageCursor{URL: "https://shop.test/search", Page: 1})

	require.Len(t, records, 2)
	assert.Equal(t, "First", records[0].Fields["title"])
	assert.Equal(t, "/p/1", records[0].Fields["url"])
	assert.Equal(t, "$10", records[0].Fields["price"])
	assert.Equal(t, "Second", records[1].Fields["title"])
	assert.Equal(t, 1, records[0].Source.Page)
	assert.Nil(t, next)
}

func TestFallbackStrategiesApplyInOrder(t *testing.T) {
	// No h3.heading: the title falls back to the anchor's title attribute.
	page := `<html><body>
		<li class="item"><a href="/p/9" title="Fallback Title"></a><span class="price">€1.234,00</span></li>
	</body></html>`

	x := NewHTMLExtractor(listingProfile())
	records, _ := x.Extract([]byte(page), entity.PageCursor{Page: 1})

	require.Len(t, records, 1)
	assert.Equal(t, "Fallback Title", records[0].Fields["title"])
	assert.Equal(t, "/p/9", records[0].Fields["url"], "url fell through to the bare anchor")
}

func TestMissingFieldIsAbsentNotFatal(t *testing.T) {
	page := `<html><body>
		<li class="item"><h3 class="heading">No price here</h3></li>
	</body></html>`

	x := NewHTMLExtractor(listingProfile())
	records, _ := x.Extract([]byte(page), entity.PageCursor{Page: 1})

	require.Len(t, records, 1)
	_, ok := records[0].Fields["price"]
	assert.False(t, ok)
}

func TestNextPageLinkResolvesAgainstCurrentURL(t *testing.T) {
	page := `<html><body>
		<li class="item"><h3 class="heading">x</h3></li>
		<a class="next" href="?page=2">More</a>
	</body></html>`

	x := NewHTMLExtractor(listingProfile())
	_, next := x.Extract([]byte(page), entity.PageCursor{URL: "https://shop.test/search?page=1", Page: 1})

	require.NotNil(t, next)
	assert.Equal(t, "https://shop.test/search?page=2", next.URL)
	assert.Equal(t, 2, next.Page)
}

func TestSelfReferencingNextLinkEndsPagination(t *testing.T) {
	page := `<html><body>
		<li class="item"><h3 class="heading">x</h3></li>
		<a class="next" href="https://shop.test/search?page=3">More</a>
	</body></html>`

	x := NewHTMLExtractor(listingProfile())
	_, next := x.Extract([]byte(page), entity.PageCursor{URL: "https://shop.test/search?page=3", Page: 3})
	assert.Nil(t, next)
}

func TestUnrecognizableContentYieldsNothing(t *testing.T) {
	x := NewHTMLExtractor(listingProfile())

	records, next := x.Extract([]byte(`{"this": "is json"}`), entity.PageCursor{Page: 1})
	assert.Empty(t, records)
	assert.Nil(t, next)
}
