package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/extraction-pipeline/internal/entity"
)

// RecordSinkImpl implements repository.RecordSink on PostgreSQL, storing the
// record's fields as JSONB keyed by fingerprint.
type RecordSinkImpl struct {
	db *pgxpool.Pool
}

// NewRecordSink creates a new instance of RecordSinkImpl.
func NewRecordSink(db *pgxpool.Pool) *RecordSinkImpl {
	return &RecordSinkImpl{db: db}
}

// Save stores one validated record. A fingerprint conflict is a no-op, which
// makes the sink idempotent under at-least-once delivery.
func (r *RecordSinkImpl) Save(ctx context.Context, record *entity.ValidatedRecord) error {
	fields, err := json.Marshal(record.Fields)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO scraped_records (fingerprint, item_id, fields, source_url, source_page, validated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (fingerprint) DO NOTHING;
	`
	_, err = r.db.Exec(ctx, query,
		record.Fingerprint,
		record.ID,
		fields,
		record.Source.PageURL,
		record.Source.Page,
		record.ValidatedAt,
	)
	return err
}
