package ratelimit

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// GlobalScope is the scope shared by every request of a run, regardless of
// which proxy identity carries it.
const GlobalScope = "global"

// Governor decides when the next request against a scope may fire. Each scope
// keeps its own next-allowed-time clock, advanced by a random interval drawn
// from [minDelay, maxDelay] so the request pattern carries no fixed period.
//
// Concurrent callers against the same scope are serialized: each Wait reserves
// its slot under the lock, then sleeps outside it, so worker overlap increases
// waiting, never request density.
type Governor struct {
	mu       sync.Mutex
	minDelay time.Duration
	maxDelay time.Duration
	next     map[string]time.Time
	rng      *rand.Rand

	// now is swappable for tests.
	now func() time.Time
}

// NewGovernor builds a governor with the given jitter bounds. Inverted or
// negative bounds are a configuration error and fail fast here.
func NewGovernor(minDelay, maxDelay time.Duration) (*Governor, error) {
	if minDelay < 0 || maxDelay < 0 {
		return nil, fmt.Errorf("ratelimit: negative delay bounds [%s, %s]", minDelay, maxDelay)
	}
	if minDelay > maxDelay {
		return nil, fmt.Errorf("ratelimit: inverted delay bounds [%s, %s]", minDelay, maxDelay)
	}
	return &Governor{
		minDelay: minDelay,
		maxDelay: maxDelay,
		next:     make(map[string]time.Time),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		now:      time.Now,
	}, nil
}

// Wait blocks until a request against scope is permitted or ctx is done.
// It never errors for rate reasons; the only error is ctx.Err().
func (g *Governor) Wait(ctx context.Context, scope string) error {
	g.mu.Lock()
	now := g.now()
	wakeAt := g.next[scope]
	if wakeAt.Before(now) {
		wakeAt = now
	}
	g.next[scope] = wakeAt.Add(g.interval())
	g.mu.Unlock()

	delay := wakeAt.Sub(now)
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// interval draws the next inter-request gap. Caller holds the lock.
func (g *Governor) interval() time.Duration {
	if g.maxDelay == g.minDelay {
		return g.minDelay
	}
	return g.minDelay + time.Duration(g.rng.Int63n(int64(g.maxDelay-g.minDelay)))
}
