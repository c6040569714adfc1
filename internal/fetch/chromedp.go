package fetch

import (
	"context"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/user/extraction-pipeline/internal/entity"
)

// ChromedpTransport fetches pages through a headless browser, for targets that
// assemble their markup with JavaScript. One exec allocator is kept per proxy
// identity, since the proxy is an allocator-level option.
type ChromedpTransport struct {
	timeout time.Duration
	agents  *AgentRotator

	mu         sync.Mutex
	allocators map[string]context.Context // keyed by proxy address, "" = direct
	cancels    []context.CancelFunc
}

// NewChromedpTransport builds a browser-backed transport.
func NewChromedpTransport(timeout time.Duration) *ChromedpTransport {
	return &ChromedpTransport{
		timeout:    timeout,
		agents:     NewAgentRotator(nil),
		allocators: make(map[string]context.Context),
	}
}

// Fetch navigates to the URL and returns the rendered document. The status
// code of the main document is captured from network events; a page that never
// produces one reports status 0 and lets the executor classify the error.
func (t *ChromedpTransport) Fetch(ctx context.Context, req entity.FetchRequest) (int, []byte, error) {
	allocCtx := t.allocatorFor(req.ProxyAddr)

	taskCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()
	taskCtx, cancelTimeout := context.WithTimeout(taskCtx, t.timeout)
	defer cancelTimeout()

	var (
		statusMu sync.Mutex
		status   int
	)
	chromedp.ListenTarget(taskCtx, func(ev interface{}) {
		resp, ok := ev.(*network.EventResponseReceived)
		if !ok || resp.Type != network.ResourceTypeDocument {
			return
		}
		statusMu.Lock()
		if status == 0 {
			status = int(resp.Response.Status)
		}
		statusMu.Unlock()
	})

	var html string
	err := chromedp.Run(taskCtx, navigationTasks(req.URL, t.agents.Next(), &html))

	statusMu.Lock()
	finalStatus := status
	statusMu.Unlock()

	if err != nil {
		return finalStatus, nil, err
	}
	return finalStatus, []byte(html), nil
}

// allocatorFor returns the exec allocator for a proxy address, creating it on
// first use.
func (t *ChromedpTransport) allocatorFor(proxyAddr string) context.Context {
	t.mu.Lock()
	defer t.mu.Unlock()

	if allocCtx, ok := t.allocators[proxyAddr]; ok {
		return allocCtx
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if proxyAddr != "" {
		opts = append(opts, chromedp.ProxyServer(proxyAddr))
	}

	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	t.allocators[proxyAddr] = allocCtx
	t.cancels = append(t.cancels, cancel)
	return allocCtx
}

// navigationTasks is the CDP task sequence for one page fetch. The user agent
// is overridden per navigation; allocators are shared across requests, so an
// allocator-level agent would pin one identity per proxy for the whole run.
func navigationTasks(url, userAgent string, html *string) chromedp.Tasks {
	return chromedp.Tasks{
		network.Enable(),
		emulation.SetUserAgentOverride(userAgent),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", html),
	}
}

// Close tears down every browser allocator.
func (t *ChromedpTransport) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, cancel := range t.cancels {
		cancel()
	}
	t.cancels = nil
	t.allocators = make(map[string]context.Context)
}
