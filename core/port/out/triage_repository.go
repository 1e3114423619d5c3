package out

import (
	"context"

	"assistant_server/core/domain"

	"github.com/google/uuid"
)

// IngestionRepository is the idempotent ingestion gate. TryIngest must be a
// single atomic insert-or-fetch: under concurrent calls for the same
// (external_id, user_id) exactly one caller observes created=true and all
// callers receive the same record.
type IngestionRepository interface {
	TryIngest(ctx context.Context, userID uuid.UUID, msg *domain.InboundMessage) (rec *domain.IngestionRecord, created bool, err error)

	// MarkWebhookProcessed flips webhook_processed false -> true and reports
	// whether this call performed the flip. At most one caller ever gets
	// flipped=true for a record.
	MarkWebhookProcessed(ctx context.Context, id int64) (flipped bool, err error)
}

// SettingsRepository reads per-user preferences and provider credentials.
type SettingsRepository interface {
	GetByUser(ctx context.Context, userID uuid.UUID) (*domain.UserSettings, error)
}

// MessageBodyStore holds full message bodies keyed by (user_id, external_id).
// Push notifications often carry only a snippet; the triage worker hydrates
// the body from here before classification.
type MessageBodyStore interface {
	Save(ctx context.Context, userID uuid.UUID, externalID, body string) error
	Get(ctx context.Context, userID uuid.UUID, externalID string) (string, error)
}
