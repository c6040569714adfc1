package fetch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/extraction-pipeline/internal/entity"
	"github.com/user/extraction-pipeline/pkg/metrics"
)

func TestMain(m *testing.M) {
	metrics.Init()
	m.Run()
}

// scriptedTransport replays a fixed sequence of responses.
type scriptedTransport struct {
	responses []scripted
	calls     int
}

type scripted struct {
	status int
	body   string
	err    error
}

func (s *scriptedTransport) Fetch(ctx context.Context, req entity.FetchRequest) (int, []byte, error) {
	r := s.responses[s.calls%len(s.responses)]
	s.calls++
	return r.status, []byte(r.body), r.err
}

const htmlBody = `<html><body><div class="item">x</div></body></html>`

func newTestExecutor(responses ...scripted) *Executor {
	return NewExecutor(&scriptedTransport{responses: responses}, time.Second)
}

func request(proxy string) entity.FetchRequest {
	return entity.FetchRequest{URL: "https://example.com/search?q=x", ProxyAddr: proxy, Attempt: 1}
}

func TestClassifySuccess(t *testing.T) {
	e := newTestExecutor(scripted{status: 200, body: htmlBody})

	out := e.Execute(context.Background(), request(""))
	assert.Equal(t, entity.Success, out.Class)
	assert.Equal(t, 200, out.StatusCode)
	assert.Equal(t, []byte(htmlBody), out.Body)
}

func TestClassifyEmptyBodyAsSoftFailure(t *testing.T) {
	e := newTestExecutor(scripted{status: 200, body: "   "})

	out := e.Execute(context.Background(), request(""))
	assert.Equal(t, entity.SoftFailure, out.Class)
	assert.Contains(t, out.Reason, "implausible body")
}

func TestClassifyBlockingStatuses(t *testing.T) {
	for _, status := range []int{403, 429, 503} {
		e := newTestExecutor(scripted{status: status, body: htmlBody})
		out := e.Execute(context.Background(), request(""))
		assert.Equal(t, entity.SoftFailure, out.Class, "status %d", status)
		if status != 503 {
			assert.True(t, out.Blocked(), "status %d should look like blocking", status)
		}
	}
}

func TestClassifyServerErrorAsSoftFailure(t *testing.T) {
	e := newTestExecutor(scripted{status: 502, body: "bad gateway"})

	out := e.Execute(context.Background(), request(""))
	assert.Equal(t, entity.SoftFailure, out.Class)
}

func TestClassifyClientErrorAsHardFailure(t *testing.T) {
	e := newTestExecutor(scripted{status: 404, body: "not found"})

	out := e.Execute(context.Background(), request(""))
	assert.Equal(t, entity.HardFailure, out.Class)
}

func TestTransportErrorsEscalateAfterConsecutiveThreshold(t *testing.T) {
	e := newTestExecutor(scripted{err: errors.New("connection refused")})
	req := request("http://p1:8000")

	for i := 1; i < hardFailureThreshold; i++ {
		out := e.Execute(context.Background(), req)
		assert.Equal(t, entity.SoftFailure, out.Class, "error %d should still rotate", i)
	}
	out := e.Execute(context.Background(), req)
	assert.Equal(t, entity.HardFailure, out.Class)
	assert.Contains(t, out.Reason, "consecutive")
}

func TestConsecutiveCountIsPerIdentityAndResetBySuccess(t *testing.T) {
	boom := errors.New("tls handshake failure")
	e := newTestExecutor(
		scripted{err: boom},
		scripted{err: boom},
		scripted{status: 200, body: htmlBody},
		scripted{err: boom},
	)

	// Two errors against p1, then an error against p2: p2 starts fresh.
	assert.Equal(t, entity.SoftFailure, e.Execute(context.Background(), request("http://p1:8000")).Class)
	assert.Equal(t, entity.SoftFailure, e.Execute(context.Background(), request("http://p1:8000")).Class)
	assert.Equal(t, entity.Success, e.Execute(context.Background(), request("http://p2:8000")).Class)
	assert.Equal(t, entity.SoftFailure, e.Execute(context.Background(), request("http://p2:8000")).Class)
}

func TestTimingIsRecordedButNeverClassifies(t *testing.T) {
	e := newTestExecutor(scripted{status: 200, body: htmlBody})

	out := e.Execute(context.Background(), request(""))
	require.Equal(t, entity.Success, out.Class)
	assert.GreaterOrEqual(t, out.Elapsed, time.Duration(0))
}

func TestPlausibleBody(t *testing.T) {
	assert.True(t, plausibleBody([]byte(`<html></html>`)))
	assert.True(t, plausibleBody([]byte(`{"items":[]}`)))
	assert.True(t, plausibleBody([]byte(`[1,2,3]`)))
	assert.False(t, plausibleBody(nil))
	assert.False(t, plausibleBody([]byte("  \n\t ")))
	assert.False(t, plausibleBody([]byte("ok")))
}
