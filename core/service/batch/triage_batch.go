// Package batch fans a list of inbound messages through the triage pipeline
// with bounded concurrency.
package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"assistant_server/core/domain"
	"assistant_server/core/port/out"
	"assistant_server/pkg/logger"

	"github.com/google/uuid"
)

// DefaultChunkPause is the delay between chunks, giving downstream APIs room
// between bursts.
const DefaultChunkPause = 500 * time.Millisecond

// MessageClassifier is the verdict producer. Classify must not return nil.
type MessageClassifier interface {
	Classify(ctx context.Context, msg *domain.InboundMessage) *domain.ClassificationResult
}

// RouteDecider maps a verdict onto a route.
type RouteDecider interface {
	Decide(c *domain.ClassificationResult) domain.RoutingDecision
}

// MeetingProposer is the scheduling pipeline entry.
type MeetingProposer interface {
	ProposeMeetingTime(ctx context.Context, result *domain.ClassificationResult, settings *domain.UserSettings) (*domain.MeetingProposal, error)
}

// ReplyDrafter is the generic-draft pipeline entry.
type ReplyDrafter interface {
	CreateReplyDraft(ctx context.Context, msg *domain.InboundMessage) (string, error)
}

// Orchestrator processes one user's batch. It is request-scoped: built fresh
// per request together with the provider-facing services it dispatches to.
type Orchestrator struct {
	gate       out.IngestionRepository
	classifier MessageClassifier
	router     RouteDecider
	scheduler  MeetingProposer
	drafter    ReplyDrafter
	settings   *domain.UserSettings

	chunkPause time.Duration
	log        *logger.Logger
}

type OrchestratorOption func(*Orchestrator)

func WithChunkPause(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) { o.chunkPause = d }
}

func NewOrchestrator(
	gate out.IngestionRepository,
	classifier MessageClassifier,
	router RouteDecider,
	scheduler MeetingProposer,
	drafter ReplyDrafter,
	settings *domain.UserSettings,
	opts ...OrchestratorOption,
) *Orchestrator {
	o := &Orchestrator{
		gate:       gate,
		classifier: classifier,
		router:     router,
		scheduler:  scheduler,
		drafter:    drafter,
		settings:   settings,
		chunkPause: DefaultChunkPause,
		log:        logger.Default().WithField("component", "batch"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ProcessBatch runs every message through the pipeline in chunks of limit.
// Within a chunk all messages run concurrently and the chunk fully settles
// before the next begins, so peak concurrency is bounded by limit. The result
// always carries exactly one outcome per input message, tagged by ExternalID;
// order is not guaranteed.
func (o *Orchestrator) ProcessBatch(ctx context.Context, msgs []*domain.InboundMessage, userID uuid.UUID, limit int) []domain.MessageOutcome {
	if limit < 1 {
		limit = 1
	}

	outcomes := make([]domain.MessageOutcome, 0, len(msgs))
	var mu sync.Mutex

	for start := 0; start < len(msgs); start += limit {
		end := start + limit
		if end > len(msgs) {
			end = len(msgs)
		}
		chunk := msgs[start:end]

		var wg sync.WaitGroup
		for _, msg := range chunk {
			wg.Add(1)
			go func(msg *domain.InboundMessage) {
				defer wg.Done()
				outcome := o.processOne(ctx, msg, userID)
				mu.Lock()
				outcomes = append(outcomes, outcome)
				mu.Unlock()
			}(msg)
		}
		wg.Wait()

		if end < len(msgs) {
			o.pause(ctx)
		}
	}

	return outcomes
}

// processOne runs the full pipeline for a single message. A panic anywhere in
// the body becomes an error outcome; sibling messages are unaffected.
func (o *Orchestrator) processOne(ctx context.Context, msg *domain.InboundMessage, userID uuid.UUID) (outcome domain.MessageOutcome) {
	outcome = domain.MessageOutcome{MessageID: msg.ExternalID}

	defer func() {
		if r := recover(); r != nil {
			o.log.WithField("message_id", msg.ExternalID).
				Error("panic while processing message: %v", r)
			outcome.Status = domain.OutcomeError
			outcome.Error = fmt.Sprintf("panic: %v", r)
		}
	}()

	rec, created, err := o.gate.TryIngest(ctx, userID, msg)
	if err != nil {
		outcome.Status = domain.OutcomeError
		outcome.Error = err.Error()
		return outcome
	}
	if !created {
		if rec.WebhookProcessed {
			outcome.Status = domain.OutcomeDuplicate
			outcome.Reason = "already processed"
		} else {
			outcome.Status = domain.OutcomeSkipped
			outcome.Reason = "already ingested, processing pending elsewhere"
		}
		return outcome
	}

	result := o.classifier.Classify(ctx, msg)
	decision := o.router.Decide(result)
	outcome.Route = decision.Route

	switch decision.Route {
	case domain.RouteScheduling:
		proposal, err := o.scheduler.ProposeMeetingTime(ctx, result, o.settings)
		if err != nil {
			outcome.Status = domain.OutcomeError
			outcome.Error = err.Error()
			return outcome
		}
		outcome.Status = domain.OutcomeSuccess
		outcome.Reason = proposalReason(proposal)

	case domain.RouteDraft:
		draftID, err := o.drafter.CreateReplyDraft(ctx, msg)
		if err != nil {
			outcome.Status = domain.OutcomeError
			outcome.Error = err.Error()
			return outcome
		}
		outcome.Status = domain.OutcomeSuccess
		outcome.Reason = "draft " + draftID

	default:
		// Skip is a final disposition too; mark the record processed below so
		// a later re-ingestion of the same message reports duplicate.
		outcome.Status = domain.OutcomeSkipped
		outcome.Reason = decision.Reasoning
	}

	if _, err := o.gate.MarkWebhookProcessed(ctx, rec.ID); err != nil {
		// The pipeline already succeeded; losing the processed flag only
		// risks a later duplicate reporting as skipped.
		o.log.WithError(err).WithField("message_id", msg.ExternalID).
			Warn("failed to mark ingestion record processed")
	}
	return outcome
}

func proposalReason(p *domain.MeetingProposal) string {
	if p.Tentative {
		return fmt.Sprintf("tentative proposal %s (%s)", p.Start.Format(time.RFC3339), p.ZoneID)
	}
	return fmt.Sprintf("proposed %s (%s)", p.Start.Format(time.RFC3339), p.ZoneID)
}

func (o *Orchestrator) pause(ctx context.Context) {
	timer := time.NewTimer(o.chunkPause)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
