package repository

import (
	"context"
	"time"
)

// FingerprintStore is the optional cross-run deduplication store: fingerprints
// seen within the expiry window are treated as duplicates in later runs too.
type FingerprintStore interface {
	// Seen reports whether the fingerprint was marked within its expiry.
	Seen(ctx context.Context, fingerprint string) (bool, error)
	// Mark records the fingerprint with the given expiry.
	Mark(ctx context.Context, fingerprint string, expiry time.Duration) error
}
