package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/extraction-pipeline/internal/entity"
)

// FailedPageStoreImpl implements repository.FailedPageStore on PostgreSQL.
type FailedPageStoreImpl struct {
	db *pgxpool.Pool
}

// NewFailedPageStore creates a new instance of FailedPageStoreImpl.
func NewFailedPageStore(db *pgxpool.Pool) *FailedPageStoreImpl {
	return &FailedPageStoreImpl{db: db}
}

// SaveOrUpdate creates or updates the record for a failed page URL,
// incrementing the attempt counter on conflict.
func (r *FailedPageStoreImpl) SaveOrUpdate(ctx context.Context, page *entity.FailedPage) error {
	query := `
		INSERT INTO failed_pages (url, page, failure_reason, http_status_code, attempts, last_attempt_at)
		VALUES ($1, $2, $3, $4, 1, $5)
		ON CONFLICT (url) DO UPDATE SET
			failure_reason = EXCLUDED.failure_reason,
			http_status_code = EXCLUDED.http_status_code,
			attempts = failed_pages.attempts + 1,
			last_attempt_at = EXCLUDED.last_attempt_at;
	`
	_, err := r.db.Exec(ctx, query,
		page.URL,
		page.Page,
		page.FailureReason,
		page.HTTPStatusCode,
		page.LastAttemptAt,
	)
	return err
}
