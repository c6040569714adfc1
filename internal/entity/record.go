package entity

import "time"

// Provenance points a record back at the page it came from, for debugging.
type Provenance struct {
	PageURL string
	Page    int
}

// RawRecord is extractor output before validation: raw string fields keyed by
// name. A field a site extractor could not resolve is simply absent.
type RawRecord struct {
	Fields map[string]string
	Source Provenance
}

// ValidatedRecord is a RawRecord that passed required-field and type checks.
// Numeric fields are coerced to float64; everything else stays a string.
type ValidatedRecord struct {
	ID          string
	Fingerprint string
	Fields      map[string]any
	Source      Provenance
	ValidatedAt time.Time
}
