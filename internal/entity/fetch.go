package entity

import "time"

// OutcomeClass is the classification of a single fetch attempt.
type OutcomeClass int

const (
	// Success is a 2xx response carrying a structurally plausible body.
	Success OutcomeClass = iota
	// SoftFailure is retryable: blocking, throttling or transient unavailability.
	SoftFailure
	// HardFailure is not worth retrying with the same strategy.
	HardFailure
)

func (c OutcomeClass) String() string {
	return [...]string{"success", "soft_failure", "hard_failure"}[c]
}

// FetchRequest describes one page fetch. Immutable once issued; a retry is a
// new request with an incremented Attempt.
type FetchRequest struct {
	URL       string
	Method    string
	Headers   map[string]string
	ProxyAddr string // empty means a direct fetch
	Attempt   int    // 1-based
}

// FetchOutcome is the classified result of exactly one fetch attempt. Every
// attempt produces one; none are silently dropped.
type FetchOutcome struct {
	Class      OutcomeClass
	StatusCode int
	Body       []byte
	Reason     string
	Elapsed    time.Duration
}

// Blocked reports whether the outcome looks like active blocking, which calls
// for proxy rotation rather than a plain delay.
func (o FetchOutcome) Blocked() bool {
	return o.StatusCode == 403 || o.StatusCode == 429
}

// Retryable reports whether the retry policy may act on this outcome at all.
func (o FetchOutcome) Retryable() bool {
	return o.Class == SoftFailure
}
