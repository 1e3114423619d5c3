package out

import (
	"context"
	"time"

	"assistant_server/core/domain"
)

// MailClient is the per-request mail provider surface the triage core needs.
// Instances are built fresh for one request/user and discarded afterwards.
type MailClient interface {
	// CreateDraft stores a reply draft on the provider, threaded to the
	// original message when threadID is non-empty.
	CreateDraft(ctx context.Context, threadID, to, subject, body string) (draftID string, err error)
}

// CalendarClient exposes the availability query the scheduling pipeline needs.
type CalendarClient interface {
	// BusyIntervals returns the user's blocked spans between from and to.
	BusyIntervals(ctx context.Context, from, to time.Time) ([]domain.BusyInterval, error)
}

// DraftGenerator produces a context-informed reply body. Out-of-scope
// rendering lives behind this narrow contract.
type DraftGenerator interface {
	DraftReply(ctx context.Context, msg *domain.InboundMessage) (string, error)
}
