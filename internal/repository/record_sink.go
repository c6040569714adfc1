package repository

import (
	"context"

	"github.com/user/extraction-pipeline/internal/entity"
)

// RecordSink persists validated records. Serialization to files is the CLI's
// business; this interface covers durable stores.
type RecordSink interface {
	// Save stores one validated record. Saving an already stored fingerprint
	// is a no-op, not an error.
	Save(ctx context.Context, record *entity.ValidatedRecord) error
}

// FailedPageStore keeps pages the pipeline permanently gave up on.
type FailedPageStore interface {
	// SaveOrUpdate creates or updates the record for a failed page URL.
	SaveOrUpdate(ctx context.Context, page *entity.FailedPage) error
}
