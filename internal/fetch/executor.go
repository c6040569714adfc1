package fetch

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/user/extraction-pipeline/internal/entity"
	"github.com/user/extraction-pipeline/pkg/metrics"
)

// hardFailureThreshold is how many consecutive transport errors against the
// same identity it takes before an error stops being worth a proxy rotation.
const hardFailureThreshold = 3

// Executor performs exactly one network attempt per Execute call and
// classifies the result. It never retries internally; retrying is the policy
// loop's job.
type Executor struct {
	transport Transport
	timeout   time.Duration

	mu          sync.Mutex
	consecutive map[string]int // transport errors per identity scope
}

// NewExecutor wraps a transport with outcome classification and a per-attempt
// deadline.
func NewExecutor(transport Transport, timeout time.Duration) *Executor {
	return &Executor{
		transport:   transport,
		timeout:     timeout,
		consecutive: make(map[string]int),
	}
}

// Execute runs one fetch attempt and classifies it:
//
//   - 2xx with a non-empty, structurally plausible body → Success
//   - 403/429/503, or an empty body where content was expected → SoftFailure
//   - connection/DNS/TLS errors and timeouts → SoftFailure until the same
//     identity has failed hardFailureThreshold times in a row, then HardFailure
//   - other client errors (bad request, auth) → HardFailure
//
// Elapsed time is recorded for observability only; it never influences the
// classification.
func (e *Executor) Execute(ctx context.Context, req entity.FetchRequest) entity.FetchOutcome {
	attemptCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	status, body, err := e.transport.Fetch(attemptCtx, req)
	elapsed := time.Since(start)

	outcome := e.classify(req, status, body, err)
	outcome.Elapsed = elapsed

	metrics.FetchAttemptsTotal.WithLabelValues(outcome.Class.String()).Inc()
	metrics.FetchDuration.WithLabelValues(hostOf(req.URL)).Observe(elapsed.Seconds())

	slog.Debug("Fetch attempt classified",
		"url", req.URL, "attempt", req.Attempt, "proxy", req.ProxyAddr,
		"status", status, "outcome", outcome.Class.String(), "elapsed_ms", elapsed.Milliseconds())
	return outcome
}

func (e *Executor) classify(req entity.FetchRequest, status int, body []byte, err error) entity.FetchOutcome {
	scope := req.ProxyAddr
	if err != nil {
		count := e.bumpConsecutive(scope)
		class := entity.SoftFailure
		reason := fmt.Sprintf("transport error: %v", err)
		if count >= hardFailureThreshold {
			class = entity.HardFailure
			reason = fmt.Sprintf("transport error (%d consecutive): %v", count, err)
		}
		return entity.FetchOutcome{Class: class, StatusCode: status, Reason: reason}
	}
	e.resetConsecutive(scope)

	switch {
	case status >= 200 && status < 300:
		if !plausibleBody(body) {
			return entity.FetchOutcome{
				Class:      entity.SoftFailure,
				StatusCode: status,
				Reason:     "empty or implausible body on 2xx",
			}
		}
		return entity.FetchOutcome{Class: entity.Success, StatusCode: status, Body: body}
	case status == 403 || status == 429 || status == 503:
		return entity.FetchOutcome{
			Class:      entity.SoftFailure,
			StatusCode: status,
			Reason:     fmt.Sprintf("blocked or throttled: HTTP %d", status),
		}
	case status >= 500:
		return entity.FetchOutcome{
			Class:      entity.SoftFailure,
			StatusCode: status,
			Reason:     fmt.Sprintf("server error: HTTP %d", status),
		}
	default:
		return entity.FetchOutcome{
			Class:      entity.HardFailure,
			StatusCode: status,
			Reason:     fmt.Sprintf("non-retryable client response: HTTP %d", status),
		}
	}
}

func (e *Executor) bumpConsecutive(scope string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.consecutive[scope]++
	return e.consecutive[scope]
}

func (e *Executor) resetConsecutive(scope string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.consecutive, scope)
}

// plausibleBody checks that a 2xx response actually carries content: non-blank
// and starting like either markup or JSON.
func plausibleBody(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return false
	}
	switch trimmed[0] {
	case '<', '{', '[':
		return true
	}
	// Some endpoints return bare text payloads; accept anything substantial.
	return len(trimmed) >= 64
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return u.Hostname()
}
