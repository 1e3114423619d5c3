// Package persistence provides database adapters implementing outbound ports.
package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"assistant_server/core/domain"
	"assistant_server/pkg/apperr"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// IngestionAdapter implements out.IngestionRepository using PostgreSQL.
// The dedup identity is the (external_id, user_id) unique constraint; all
// atomicity lives in the database, never in application locks.
type IngestionAdapter struct {
	db *sqlx.DB
}

func NewIngestionAdapter(db *sqlx.DB) *IngestionAdapter {
	return &IngestionAdapter{db: db}
}

type ingestionRow struct {
	ID               int64     `db:"id"`
	ExternalID       string    `db:"external_id"`
	UserID           uuid.UUID `db:"user_id"`
	WebhookProcessed bool      `db:"webhook_processed"`
	CreatedAt        time.Time `db:"created_at"`
}

func (r *ingestionRow) toDomain() *domain.IngestionRecord {
	return &domain.IngestionRecord{
		ID:               r.ID,
		ExternalID:       r.ExternalID,
		UserID:           r.UserID,
		WebhookProcessed: r.WebhookProcessed,
		CreatedAt:        r.CreatedAt,
	}
}

const tryIngestQuery = `
	INSERT INTO ingestion_records (external_id, user_id)
	VALUES ($1, $2)
	ON CONFLICT (external_id, user_id) DO NOTHING
	RETURNING id, external_id, user_id, webhook_processed, created_at`

const fetchIngestionQuery = `
	SELECT id, external_id, user_id, webhook_processed, created_at
	FROM ingestion_records
	WHERE external_id = $1 AND user_id = $2`

// TryIngest inserts the dedup row or fetches the existing one. The insert and
// the conflict check are a single statement, so two racing callers for the
// same key cannot both observe created=true.
func (a *IngestionAdapter) TryIngest(ctx context.Context, userID uuid.UUID, msg *domain.InboundMessage) (*domain.IngestionRecord, bool, error) {
	var row ingestionRow
	err := a.db.GetContext(ctx, &row, tryIngestQuery, msg.ExternalID, userID)
	if err == nil {
		return row.toDomain(), true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, apperr.DatabaseError("ingest message", err)
	}

	// Conflict path: the row already exists, fetch it.
	err = a.db.GetContext(ctx, &row, fetchIngestionQuery, msg.ExternalID, userID)
	if err != nil {
		return nil, false, apperr.DatabaseError("fetch ingestion record", err)
	}
	return row.toDomain(), false, nil
}

const markProcessedQuery = `
	UPDATE ingestion_records
	SET webhook_processed = TRUE
	WHERE id = $1 AND webhook_processed = FALSE`

// MarkWebhookProcessed flips the processed flag. The WHERE guard makes the
// flip observable exactly once.
func (a *IngestionAdapter) MarkWebhookProcessed(ctx context.Context, id int64) (bool, error) {
	res, err := a.db.ExecContext(ctx, markProcessedQuery, id)
	if err != nil {
		return false, apperr.DatabaseError("mark webhook processed", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, apperr.DatabaseError("mark webhook processed", err)
	}
	return affected == 1, nil
}
