package entity

import "time"

// FailedPage mirrors the `failed_pages` PostgreSQL table schema. It records a
// page the pipeline gave up on, so the failure survives the run.
type FailedPage struct {
	ID             int64
	URL            string
	Page           int
	FailureReason  string
	HTTPStatusCode int
	Attempts       int
	LastAttemptAt  time.Time
}
