package domain

import (
	"time"

	"github.com/google/uuid"
)

// InboundMessage is a provider-supplied email event. Immutable once ingested;
// the dedup identity is (ExternalID, UserID).
type InboundMessage struct {
	ExternalID string    `json:"external_id"`
	ThreadID   string    `json:"thread_id,omitempty"`
	Subject    string    `json:"subject"`
	From       string    `json:"from"`
	To         []string  `json:"to"`
	Body       string    `json:"body"`
	ReceivedAt time.Time `json:"received_at"`
}

// IngestionRecord marks that a message has been considered for a user.
// One row per (external_id, user_id); never deleted. WebhookProcessed flips
// false -> true exactly once.
type IngestionRecord struct {
	ID               int64     `json:"id"`
	ExternalID       string    `json:"external_id"`
	UserID           uuid.UUID `json:"user_id"`
	WebhookProcessed bool      `json:"webhook_processed"`
	CreatedAt        time.Time `json:"created_at"`
}

// OutcomeStatus is the per-message result within a batch run.
type OutcomeStatus string

const (
	OutcomeSuccess   OutcomeStatus = "success"
	OutcomeSkipped   OutcomeStatus = "skipped"
	OutcomeDuplicate OutcomeStatus = "duplicate"
	OutcomeError     OutcomeStatus = "error"
)

// MessageOutcome reports what happened to one message in a batch.
// Outcomes are tagged by MessageID; callers must not assume input order.
type MessageOutcome struct {
	MessageID string        `json:"message_id"`
	Status    OutcomeStatus `json:"status"`
	Route     Route         `json:"route,omitempty"`
	Reason    string        `json:"reason,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// BatchSummary aggregates a batch run.
type BatchSummary struct {
	BatchID    uuid.UUID        `json:"batch_id"`
	UserID     uuid.UUID        `json:"user_id"`
	Total      int              `json:"total"`
	Succeeded  int              `json:"succeeded"`
	Skipped    int              `json:"skipped"`
	Duplicates int              `json:"duplicates"`
	Errors     int              `json:"errors"`
	Outcomes   []MessageOutcome `json:"outcomes"`
}

// Summarize builds a BatchSummary from outcomes.
func Summarize(batchID, userID uuid.UUID, outcomes []MessageOutcome) *BatchSummary {
	s := &BatchSummary{
		BatchID:  batchID,
		UserID:   userID,
		Total:    len(outcomes),
		Outcomes: outcomes,
	}
	for _, o := range outcomes {
		switch o.Status {
		case OutcomeSuccess:
			s.Succeeded++
		case OutcomeSkipped:
			s.Skipped++
		case OutcomeDuplicate:
			s.Duplicates++
		case OutcomeError:
			s.Errors++
		}
	}
	return s
}
