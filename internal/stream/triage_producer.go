package stream

import (
	"context"
	"time"

	"assistant_server/core/domain"

	"github.com/google/uuid"
)

type Producer struct {
	stream *RedisStream
}

func NewProducer(stream *RedisStream) *Producer {
	return &Producer{stream: stream}
}

type Job struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Payload   map[string]any `json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
}

// PublishTriage enqueues one webhook-received message for the triage workers.
// The body is not included; workers hydrate it from the body store so stream
// entries stay small.
func (p *Producer) PublishTriage(ctx context.Context, userID uuid.UUID, msg *domain.InboundMessage) (string, error) {
	job := &Job{
		ID:   uuid.New().String(),
		Type: "triage.message",
		Payload: map[string]any{
			"user_id":     userID.String(),
			"external_id": msg.ExternalID,
			"thread_id":   msg.ThreadID,
			"subject":     msg.Subject,
			"from":        msg.From,
			"to":          msg.To,
			"received_at": msg.ReceivedAt.Format(time.RFC3339),
		},
		CreatedAt: time.Now(),
	}
	return p.stream.Publish(ctx, StreamTriage, job)
}
