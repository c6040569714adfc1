package entity

// RunSummary is the accounting of one pipeline run. Counts are monotonically
// non-decreasing while the run is live; the orchestrator hands out immutable
// snapshots.
type RunSummary struct {
	Attempts     int
	Successes    int
	SoftFailures int
	HardFailures int

	PagesFetched int
	PagesFailed  int

	RecordsExtracted    int
	RecordsEmitted      int
	RecordsRejected     int
	RecordsDeduplicated int

	// Pages that fetched fine but yielded no recognizable record structure.
	ExtractionDrift int

	StopReason string
}

// SuccessRate is the fraction of attempts that were classified Success.
// Returns 1 when no attempts were made.
func (s RunSummary) SuccessRate() float64 {
	if s.Attempts == 0 {
		return 1
	}
	return float64(s.Successes) / float64(s.Attempts)
}
