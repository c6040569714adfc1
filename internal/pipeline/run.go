package pipeline

import (
	"sync"

	"github.com/user/extraction-pipeline/internal/entity"
)

// Run is the handle to one in-flight pipeline run: a finite, non-restartable
// record sequence plus the run's accounting.
type Run struct {
	records chan entity.ValidatedRecord

	mu      sync.Mutex
	summary entity.RunSummary
}

func newRun() *Run {
	return &Run{records: make(chan entity.ValidatedRecord)}
}

// Records is the lazy output sequence. It closes when the run terminates for
// any reason; a cancelled run closes it after a valid partial summary is in
// place. Partial or corrupt records are never sent.
func (r *Run) Records() <-chan entity.ValidatedRecord {
	return r.records
}

// Summary returns a consistent snapshot of the run counters. Counts are
// monotonically non-decreasing across successive calls; after Records closes
// the snapshot is final.
func (r *Run) Summary() entity.RunSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.summary
}

// update applies one mutation under the counter lock.
func (r *Run) update(fn func(*entity.RunSummary)) {
	r.mu.Lock()
	fn(&r.summary)
	r.mu.Unlock()
}
