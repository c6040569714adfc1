package fetch

import (
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/extraction-pipeline/internal/entity"
)

const gzipPage = `<html><body><ul>
	<li class="item">one</li>
	<li class="item">two</li>
</ul></body></html>`

func TestFetchDecodesGzipResponses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			w.Write([]byte(gzipPage))
			return
		}
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		gz.Write([]byte(gzipPage))
		gz.Close()
	}))
	defer srv.Close()

	transport := NewHTTPTransport(5 * time.Second)
	status, body, err := transport.Fetch(context.Background(), entity.FetchRequest{URL: srv.URL, Attempt: 1})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, gzipPage, string(body), "body must be the decoded page, not compressed bytes")
	assert.True(t, plausibleBody(body))
}

func TestFetchSendsBrowserHeadersAndOverrides(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Write([]byte(gzipPage))
	}))
	defer srv.Close()

	transport := NewHTTPTransport(5 * time.Second)
	_, _, err := transport.Fetch(context.Background(), entity.FetchRequest{
		URL:     srv.URL,
		Headers: map[string]string{"Accept": "application/json"},
		Attempt: 1,
	})

	require.NoError(t, err)
	assert.Equal(t, "application/json", got.Get("Accept"), "request headers override the defaults")
	assert.Equal(t, "en-US,en;q=0.5", got.Get("Accept-Language"))
	assert.NotEmpty(t, got.Get("User-Agent"))
}
