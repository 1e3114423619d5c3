package http

import (
	"context"
	"errors"
	"time"

	"assistant_server/core/domain"
	"assistant_server/core/service/batch"
	"assistant_server/pkg/apperr"
	"assistant_server/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	defaultBatchConcurrency = 5
	maxBatchSize            = 200
)

// OrchestratorBuilder constructs a request-scoped orchestrator bundle for one
// user. Construction failure (missing provider credentials, no settings) is a
// request-level error; no partial batch runs.
type OrchestratorBuilder interface {
	BuildOrchestrator(ctx context.Context, userID uuid.UUID) (*batch.Orchestrator, error)
}

// BatchHandler exposes the manual batch triage entry point.
type BatchHandler struct {
	services OrchestratorBuilder
	log      *logger.Logger
}

func NewBatchHandler(services OrchestratorBuilder) *BatchHandler {
	return &BatchHandler{
		services: services,
		log:      logger.Default().WithField("component", "batch_api"),
	}
}

func (h *BatchHandler) Register(router fiber.Router) {
	router.Post("/triage/batch", h.ProcessBatch)
}

type batchMessage struct {
	ExternalID string    `json:"external_id"`
	ThreadID   string    `json:"thread_id"`
	Subject    string    `json:"subject"`
	From       string    `json:"from"`
	To         []string  `json:"to"`
	Body       string    `json:"body"`
	ReceivedAt time.Time `json:"received_at"`
}

type batchRequest struct {
	Messages    []batchMessage `json:"messages"`
	Concurrency int            `json:"concurrency"`
}

func (h *BatchHandler) ProcessBatch(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}

	var req batchRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}
	if len(req.Messages) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "messages is empty")
	}
	if len(req.Messages) > maxBatchSize {
		return fiber.NewError(fiber.StatusBadRequest, "too many messages in one batch")
	}
	for _, m := range req.Messages {
		if m.ExternalID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "every message needs an external_id")
		}
	}

	concurrency := req.Concurrency
	if concurrency < 1 {
		concurrency = defaultBatchConcurrency
	}

	// The bundle is built per request and dies with it; see the worker path
	// for the same construction.
	orch, err := h.services.BuildOrchestrator(c.Context(), userID)
	if err != nil {
		var appErr *apperr.AppError
		if errors.As(err, &appErr) {
			return fiber.NewError(appErr.HTTPStatus(), appErr.Message)
		}
		return fiber.NewError(fiber.StatusInternalServerError, "failed to prepare services")
	}

	msgs := make([]*domain.InboundMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		msgs = append(msgs, &domain.InboundMessage{
			ExternalID: m.ExternalID,
			ThreadID:   m.ThreadID,
			Subject:    m.Subject,
			From:       m.From,
			To:         m.To,
			Body:       m.Body,
			ReceivedAt: m.ReceivedAt,
		})
	}

	start := time.Now()
	outcomes := orch.ProcessBatch(c.Context(), msgs, userID, concurrency)
	summary := domain.Summarize(uuid.New(), userID, outcomes)

	h.log.WithContext(c.Context()).WithDuration(time.Since(start)).WithFields(map[string]any{
		"total":      summary.Total,
		"succeeded":  summary.Succeeded,
		"skipped":    summary.Skipped,
		"duplicates": summary.Duplicates,
		"errors":     summary.Errors,
	}).Info("batch triage finished")

	return c.JSON(summary)
}
