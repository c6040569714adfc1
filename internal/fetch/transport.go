package fetch

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/user/extraction-pipeline/internal/entity"
)

// Transport performs the raw page fetch. The pipeline is agnostic to whether
// this is a plain HTTP client or a headless browser.
type Transport interface {
	Fetch(ctx context.Context, req entity.FetchRequest) (status int, body []byte, err error)
}

// maxBodySize caps how much of a response is read into memory.
const maxBodySize = 10 << 20 // 10 MiB

// defaultHeaders mirror what a desktop browser sends. Request-specific headers
// override them. Accept-Encoding is deliberately absent: net/http negotiates
// gzip itself, and only decompresses transparently when it set the header.
var defaultHeaders = map[string]string{
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
	"Accept-Language":           "en-US,en;q=0.5",
	"Connection":                "keep-alive",
	"Upgrade-Insecure-Requests": "1",
}

// HTTPTransport fetches pages with net/http, building one client per proxy
// identity so connection pools stay separated per egress.
type HTTPTransport struct {
	timeout time.Duration
	agents  *AgentRotator

	mu      sync.Mutex
	clients map[string]*http.Client // keyed by proxy address, "" = direct
}

// NewHTTPTransport builds an HTTP transport with a per-attempt timeout.
func NewHTTPTransport(timeout time.Duration) *HTTPTransport {
	return &HTTPTransport{
		timeout: timeout,
		agents:  NewAgentRotator(nil),
		clients: make(map[string]*http.Client),
	}
}

// Fetch performs exactly one HTTP request. Transport-level failures are
// returned as errors for the executor to classify; HTTP error statuses are
// returned as statuses, not errors.
func (t *HTTPTransport) Fetch(ctx context.Context, req entity.FetchRequest) (int, []byte, error) {
	client, err := t.clientFor(req.ProxyAddr)
	if err != nil {
		return 0, nil, err
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}

	for k, v := range defaultHeaders {
		httpReq.Header.Set(k, v)
	}
	httpReq.Header.Set("User-Agent", t.agents.Next())
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read body: %w", err)
	}
	return resp.StatusCode, body, nil
}

// clientFor returns the cached client for a proxy address, creating it on
// first use.
func (t *HTTPTransport) clientFor(proxyAddr string) (*http.Client, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if client, ok := t.clients[proxyAddr]; ok {
		return client, nil
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   t.timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: t.timeout / 2,
	}
	if proxyAddr != "" {
		proxyURL, err := url.Parse(proxyAddr)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy address %q: %w", proxyAddr, err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   t.timeout,
	}
	t.clients[proxyAddr] = client
	return client, nil
}
