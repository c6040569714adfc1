package retry

import (
	"math/rand"
	"time"

	"github.com/user/extraction-pipeline/internal/entity"
)

const jitterFactor = 0.2 // up to +20% on every computed delay

// Decision is what the policy wants done about a failed attempt.
type Decision struct {
	Retry       bool
	After       time.Duration
	RotateProxy bool
	Reason      string // set when giving up
}

// Policy turns a classified outcome and an attempt count into a Decision. It
// is a pure value: no clock, no network, trivially testable.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration

	// Jitter is swappable for deterministic tests; nil uses math/rand.
	Jitter func() float64
}

// Decide applies the policy to the outcome of the attempt-th try (1-based).
// Success outcomes are never passed here; the caller breaks out on success.
//
// Hard failures and exhausted attempts give up. Soft failures retry with
// exponential backoff (base × 2^(attempt-1), capped, plus jitter), rotating
// the proxy whenever the failure looks like blocking.
func (p Policy) Decide(outcome entity.FetchOutcome, attempt int) Decision {
	if outcome.Class == entity.HardFailure {
		return Decision{Reason: "hard failure: " + outcome.Reason}
	}
	if attempt >= p.MaxAttempts {
		return Decision{Reason: "attempt ceiling reached"}
	}

	delay := p.MaxDelay
	if shift := attempt - 1; shift < 32 {
		if d := p.BaseDelay << shift; d > 0 && d < p.MaxDelay {
			delay = d
		}
	}
	delay += time.Duration(float64(delay) * jitterFactor * p.jitter())

	return Decision{
		Retry:       true,
		After:       delay,
		RotateProxy: outcome.Blocked(),
	}
}

func (p Policy) jitter() float64 {
	if p.Jitter != nil {
		return p.Jitter()
	}
	return rand.Float64()
}
