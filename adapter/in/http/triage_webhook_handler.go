package http

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"assistant_server/core/domain"
	"assistant_server/core/port/out"
	"assistant_server/internal/stream"
	"assistant_server/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// IdempotencyTTL is how long a webhook delivery is remembered for dedup.
// Providers redeliver within minutes; the durable ingestion gate catches
// anything older.
const IdempotencyTTL = 5 * time.Minute

// dedupStore is the slice of the Redis API the short-window dedup needs.
type dedupStore interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// triagePublisher enqueues one message for the workers.
type triagePublisher interface {
	PublishTriage(ctx context.Context, userID uuid.UUID, msg *domain.InboundMessage) (string, error)
}

// WebhookHandler receives provider push notifications, stores the message
// body, and enqueues a triage job. It does no triage work inline: provider
// webhooks have tight response deadlines.
type WebhookHandler struct {
	dedup    dedupStore
	bodies   out.MessageBodyStore
	producer triagePublisher
	metrics  WebhookMetrics
	log      *logger.Logger
}

type WebhookMetrics struct {
	Received   int64 `json:"received"`
	Duplicates int64 `json:"duplicates"`
	Enqueued   int64 `json:"enqueued"`
	Failures   int64 `json:"failures"`
}

func NewWebhookHandler(redisClient *redis.Client, bodies out.MessageBodyStore, producer *stream.Producer) *WebhookHandler {
	h := &WebhookHandler{
		bodies:   bodies,
		producer: producer,
		log:      logger.Default().WithField("component", "webhook"),
	}
	if redisClient != nil {
		h.dedup = redisClient
	}
	return h
}

func (h *WebhookHandler) Register(app *fiber.App) {
	app.Post("/webhook/mail", h.ReceiveMail)
	app.Get("/webhook/metrics", h.Metrics)
}

type webhookMailRequest struct {
	UserID     string    `json:"user_id"`
	ExternalID string    `json:"external_id"`
	ThreadID   string    `json:"thread_id"`
	Subject    string    `json:"subject"`
	From       string    `json:"from"`
	To         []string  `json:"to"`
	Body       string    `json:"body"`
	ReceivedAt time.Time `json:"received_at"`
}

// ReceiveMail handles one provider notification. Short-window duplicates are
// dropped via SetNX before anything touches durable storage.
func (h *WebhookHandler) ReceiveMail(c *fiber.Ctx) error {
	atomic.AddInt64(&h.metrics.Received, 1)

	var req webhookMailRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}
	if req.ExternalID == "" || req.UserID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing external_id or user_id")
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid user_id")
	}

	ctx := c.Context()
	dedupKey := deliveryKey(userID, req.ExternalID)
	if h.isDuplicateDelivery(ctx, dedupKey) {
		atomic.AddInt64(&h.metrics.Duplicates, 1)
		return c.JSON(fiber.Map{"status": "duplicate"})
	}

	if req.Body != "" {
		if err := h.bodies.Save(ctx, userID, req.ExternalID, req.Body); err != nil {
			// Workers can still classify from the subject; don't fail the
			// delivery over the cache write.
			h.log.WithError(err).WithField("message_id", req.ExternalID).
				Warn("failed to store message body")
		}
	}

	msg := &domain.InboundMessage{
		ExternalID: req.ExternalID,
		ThreadID:   req.ThreadID,
		Subject:    req.Subject,
		From:       req.From,
		To:         req.To,
		ReceivedAt: req.ReceivedAt,
	}
	if _, err := h.producer.PublishTriage(ctx, userID, msg); err != nil {
		// Release the dedup key: the message was never enqueued, so the
		// provider's redelivery must not be dropped as a duplicate.
		h.releaseDelivery(ctx, dedupKey)
		atomic.AddInt64(&h.metrics.Failures, 1)
		h.log.WithError(err).WithField("message_id", req.ExternalID).
			Error("failed to enqueue triage job")
		return fiber.NewError(fiber.StatusServiceUnavailable, "enqueue failed")
	}

	atomic.AddInt64(&h.metrics.Enqueued, 1)
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "queued"})
}

func (h *WebhookHandler) Metrics(c *fiber.Ctx) error {
	return c.JSON(WebhookMetrics{
		Received:   atomic.LoadInt64(&h.metrics.Received),
		Duplicates: atomic.LoadInt64(&h.metrics.Duplicates),
		Enqueued:   atomic.LoadInt64(&h.metrics.Enqueued),
		Failures:   atomic.LoadInt64(&h.metrics.Failures),
	})
}

func deliveryKey(userID uuid.UUID, externalID string) string {
	return fmt.Sprintf("webhook:idempotent:%s:%s", userID, externalID)
}

func (h *WebhookHandler) isDuplicateDelivery(ctx context.Context, key string) bool {
	if h.dedup == nil {
		return false
	}
	ok, err := h.dedup.SetNX(ctx, key, "1", IdempotencyTTL).Result()
	return err == nil && !ok
}

func (h *WebhookHandler) releaseDelivery(ctx context.Context, key string) {
	if h.dedup == nil {
		return
	}
	if err := h.dedup.Del(ctx, key).Err(); err != nil {
		h.log.WithError(err).WithField("key", key).Warn("failed to release webhook dedup key")
	}
}
