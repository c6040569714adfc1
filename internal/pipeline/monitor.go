package pipeline

import (
	"log/slog"
	"time"

	"github.com/user/extraction-pipeline/internal/entity"
)

const (
	degradedSuccessRate = 0.8
	slowResponseAvg     = 5 * time.Second
)

// monitor keeps a rolling window of attempt outcomes and warns when the
// target starts fighting back, so operators can add proxies or slow down
// before the run degrades into give-ups.
type monitor struct {
	window    int
	outcomes  []bool
	durations []time.Duration
	pos       int
	filled    bool
	warned    bool
}

func newMonitor(window int) *monitor {
	return &monitor{
		window:    window,
		outcomes:  make([]bool, window),
		durations: make([]time.Duration, window),
	}
}

// track records one attempt. Called from the single driver goroutine.
func (m *monitor) track(outcome entity.FetchOutcome) {
	m.outcomes[m.pos] = outcome.Class == entity.Success
	m.durations[m.pos] = outcome.Elapsed
	m.pos = (m.pos + 1) % m.window
	if m.pos == 0 {
		m.filled = true
	}
	if !m.filled || m.warned {
		return
	}

	successes := 0
	var total time.Duration
	for i := 0; i < m.window; i++ {
		if m.outcomes[i] {
			successes++
		}
		total += m.durations[i]
	}
	rate := float64(successes) / float64(m.window)
	avg := total / time.Duration(m.window)

	if rate < degradedSuccessRate {
		slog.Warn("Success rate degraded; consider more proxies or a lower request rate",
			"success_rate", rate, "window", m.window)
		m.warned = true
	}
	if avg > slowResponseAvg {
		slog.Warn("Responses are slow", "avg_response", avg, "window", m.window)
		m.warned = true
	}
}
