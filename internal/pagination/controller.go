// Package pagination drives a sequence of page requests to completion. The
// controller decides whether to continue across pages; retrying a single page
// belongs to the fetch/retry loop and never happens here.
package pagination

import (
	"fmt"

	"github.com/user/extraction-pipeline/internal/entity"
)

// State of the controller's page machine.
type State int

const (
	Idle State = iota
	FetchingPage
	HasMore
	Exhausted
	Stopped
)

func (s State) String() string {
	return [...]string{"idle", "fetching_page", "has_more", "exhausted", "stopped"}[s]
}

// StopReason explains a terminal Stopped state.
type StopReason string

const (
	CapReached StopReason = "cap_reached"
	Aborted    StopReason = "aborted"
	Cancelled  StopReason = "cancelled"
)

// Controller is the per-run pagination state machine. It owns the cursor and
// advances it at most once per successful page fetch.
type Controller struct {
	state      State
	stopReason StopReason
	cursor     entity.PageCursor

	maxPages   int // 0 = uncapped
	maxRecords int // 0 = uncapped
}

// NewController builds an idle controller with the given caps.
func NewController(maxPages, maxRecords int) *Controller {
	return &Controller{state: Idle, maxPages: maxPages, maxRecords: maxRecords}
}

// Start arms the controller with the initial cursor. Valid only from Idle.
func (c *Controller) Start(initial entity.PageCursor) error {
	if c.state != Idle {
		return fmt.Errorf("pagination: start from state %s", c.state)
	}
	c.cursor = initial
	c.state = FetchingPage
	return nil
}

// Next returns the cursor to fetch and whether a fetch should happen at all.
// It moves HasMore back into FetchingPage, enforcing the page cap on the way.
func (c *Controller) Next() (entity.PageCursor, bool) {
	switch c.state {
	case FetchingPage:
		return c.cursor, true
	case HasMore:
		if c.capReached() {
			c.stop(CapReached)
			return c.cursor, false
		}
		c.state = FetchingPage
		return c.cursor, true
	default:
		return c.cursor, false
	}
}

// PageSucceeded records a fetched-and-extracted page: how many records it
// emitted and the next cursor the site extractor reported (nil = no signal).
// Zero records with no signal is the one implicit end-of-results heuristic.
func (c *Controller) PageSucceeded(emitted int, next *entity.PageCursor) {
	if c.state != FetchingPage {
		return
	}
	c.cursor.PagesFetched++
	c.cursor.RecordsEmitted += emitted

	if next == nil {
		// No continuation signal: the source ended, whether or not this last
		// page still carried records. Numbered sources synthesize their next
		// cursor, so absence of a signal always means end-of-results.
		c.state = Exhausted
		return
	}

	c.cursor.URL = next.URL
	c.cursor.Token = next.Token
	c.cursor.Page = next.Page

	if c.capReached() {
		c.stop(CapReached)
		return
	}
	c.state = HasMore
}

// PageFailed records that the retry loop gave up on the current page.
// The run is aborted; recording the failure and moving on is the
// orchestrator's call, made before reporting here.
func (c *Controller) PageFailed() {
	if c.state != FetchingPage {
		return
	}
	c.stop(Aborted)
}

// PageFailedAdvance records a permanently failed page but lets the sequence
// continue on a numbered source, where page N+1 does not depend on N's body.
func (c *Controller) PageFailedAdvance(next *entity.PageCursor) {
	if c.state != FetchingPage {
		return
	}
	c.cursor.PagesFetched++
	if next == nil {
		c.stop(Aborted)
		return
	}
	c.cursor.URL = next.URL
	c.cursor.Token = next.Token
	c.cursor.Page = next.Page
	if c.capReached() {
		c.stop(CapReached)
		return
	}
	c.state = HasMore
}

// Cancel moves any non-terminal state to Stopped(Cancelled).
func (c *Controller) Cancel() {
	if c.state == Exhausted || c.state == Stopped {
		return
	}
	c.stop(Cancelled)
}

func (c *Controller) stop(reason StopReason) {
	c.state = Stopped
	c.stopReason = reason
}

func (c *Controller) capReached() bool {
	if c.maxPages > 0 && c.cursor.PagesFetched >= c.maxPages {
		return true
	}
	if c.maxRecords > 0 && c.cursor.RecordsEmitted >= c.maxRecords {
		return true
	}
	return false
}

// RecordBudget returns how many more records may be emitted before the record
// cap truncates the run. Negative means uncapped.
func (c *Controller) RecordBudget() int {
	if c.maxRecords <= 0 {
		return -1
	}
	return c.maxRecords - c.cursor.RecordsEmitted
}

// State returns the current machine state.
func (c *Controller) State() State { return c.state }

// Reason returns the stop reason; empty unless Stopped.
func (c *Controller) Reason() StopReason { return c.stopReason }

// Cursor returns a copy of the current cursor.
func (c *Controller) Cursor() entity.PageCursor { return c.cursor }

// Done reports whether the machine is terminal.
func (c *Controller) Done() bool {
	return c.state == Exhausted || c.state == Stopped
}
