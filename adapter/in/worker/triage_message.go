// Package worker consumes the triage job stream and runs messages through
// the pipeline in the background.
package worker

import (
	"time"

	"github.com/google/uuid"
)

// JobType represents the type of a job.
type JobType = string

const (
	JobTriageMessage JobType = "triage.message"
)

type Message struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Payload   map[string]any `json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
	Retries   int            `json:"retries"`
}

func NewMessage(jobType string, payload map[string]any) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Type:      jobType,
		Payload:   payload,
		CreatedAt: time.Now(),
		Retries:   0,
	}
}

// TriagePayload is the triage.message job body. The email body is not carried
// on the stream; workers hydrate it from the body store.
type TriagePayload struct {
	UserID     string    `json:"user_id"`
	ExternalID string    `json:"external_id"`
	ThreadID   string    `json:"thread_id,omitempty"`
	Subject    string    `json:"subject"`
	From       string    `json:"from"`
	To         []string  `json:"to,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}
