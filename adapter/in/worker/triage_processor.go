package worker

import (
	"context"
	"fmt"
	"time"

	"assistant_server/core/domain"
	"assistant_server/core/port/out"
	"assistant_server/core/service/batch"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// OrchestratorBuilder constructs a request-scoped triage orchestrator for one
// user. The worker builds a fresh one per job for the same reason the HTTP
// layer does: provider clients hold per-user credentials.
type OrchestratorBuilder interface {
	BuildOrchestrator(ctx context.Context, userID uuid.UUID) (*batch.Orchestrator, error)
}

// Handler processes jobs from the stream.
type Handler struct {
	bodies   out.MessageBodyStore
	services OrchestratorBuilder
	log      zerolog.Logger
}

func NewHandler(bodies out.MessageBodyStore, services OrchestratorBuilder, log zerolog.Logger) *Handler {
	return &Handler{
		bodies:   bodies,
		services: services,
		log:      log.With().Str("component", "triage_handler").Logger(),
	}
}

// Process dispatches one job. A returned error means the job is retryable;
// permanent per-message failures are already absorbed into outcomes by the
// orchestrator.
func (h *Handler) Process(ctx context.Context, msg *Message) error {
	switch msg.Type {
	case JobTriageMessage:
		return h.processTriage(ctx, msg)
	default:
		h.log.Warn().Str("job_type", msg.Type).Msg("unknown job type, dropping")
		return nil
	}
}

func (h *Handler) processTriage(ctx context.Context, msg *Message) error {
	payload, err := decodePayload(msg.Payload)
	if err != nil {
		// Malformed payloads never become parseable; drop instead of retrying.
		h.log.Error().Err(err).Str("job_id", msg.ID).Msg("malformed triage payload, dropping")
		return nil
	}

	userID, err := uuid.Parse(payload.UserID)
	if err != nil {
		h.log.Error().Err(err).Str("job_id", msg.ID).Msg("invalid user id in payload, dropping")
		return nil
	}

	inbound := &domain.InboundMessage{
		ExternalID: payload.ExternalID,
		ThreadID:   payload.ThreadID,
		Subject:    payload.Subject,
		From:       payload.From,
		To:         payload.To,
		ReceivedAt: payload.ReceivedAt,
	}

	// Stream entries carry only headers; pull the full body from the store.
	body, err := h.bodies.Get(ctx, userID, payload.ExternalID)
	if err != nil {
		h.log.Warn().Err(err).Str("external_id", payload.ExternalID).
			Msg("body not hydrated, classifying from subject only")
	} else {
		inbound.Body = body
	}

	orch, err := h.services.BuildOrchestrator(ctx, userID)
	if err != nil {
		return fmt.Errorf("build services for %s: %w", userID, err)
	}

	start := time.Now()
	outcomes := orch.ProcessBatch(ctx, []*domain.InboundMessage{inbound}, userID, 1)

	outcome := outcomes[0]
	h.log.Info().
		Str("external_id", outcome.MessageID).
		Str("status", string(outcome.Status)).
		Str("route", string(outcome.Route)).
		Dur("elapsed", time.Since(start)).
		Msg("triage job finished")

	if outcome.Status == domain.OutcomeError {
		return fmt.Errorf("triage failed: %s", outcome.Error)
	}
	return nil
}

func decodePayload(raw map[string]any) (*TriagePayload, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var payload TriagePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	if payload.ExternalID == "" || payload.UserID == "" {
		return nil, fmt.Errorf("payload missing external_id or user_id")
	}
	return &payload, nil
}
