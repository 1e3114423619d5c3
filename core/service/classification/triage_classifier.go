// Package classification decides whether an inbound message asks to schedule
// something, and how confident that call is.
package classification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"assistant_server/core/domain"
	"assistant_server/core/port/out"
	"assistant_server/pkg/logger"

	"github.com/goccy/go-json"
)

const (
	// DefaultMaxAttempts is how many LLM calls the classifier makes before
	// giving up and running the keyword fallback.
	DefaultMaxAttempts = 3

	// DefaultAttemptTimeout bounds each individual LLM call.
	DefaultAttemptTimeout = 8 * time.Second
)

// Classifier produces a ClassificationResult for an inbound message. It never
// returns an error: when the LLM is unreachable or keeps returning garbage,
// the deterministic keyword fallback takes over so triage always proceeds.
type Classifier struct {
	llm            out.LLMPort
	maxAttempts    int
	attemptTimeout time.Duration
	log            *logger.Logger

	// sleep is swapped out in tests so retries don't take wall-clock time.
	sleep func(ctx context.Context, d time.Duration)
}

type ClassifierOption func(*Classifier)

func WithMaxAttempts(n int) ClassifierOption {
	return func(c *Classifier) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

func WithAttemptTimeout(d time.Duration) ClassifierOption {
	return func(c *Classifier) {
		if d > 0 {
			c.attemptTimeout = d
		}
	}
}

func NewClassifier(llm out.LLMPort, opts ...ClassifierOption) *Classifier {
	c := &Classifier{
		llm:            llm,
		maxAttempts:    DefaultMaxAttempts,
		attemptTimeout: DefaultAttemptTimeout,
		log:            logger.Default().WithField("component", "classifier"),
		sleep:          sleepCtx,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

const classifySystemPrompt = `You analyze a single email and decide whether the sender is asking to schedule a meeting, call, or appointment with the recipient.

Respond with ONLY a JSON object, no other text:
{
  "is_scheduling_request": true or false,
  "confidence": 0-100,
  "reasoning": "one short sentence",
  "meeting_type": "video_call" | "phone_call" | "in_person" | "coffee" | "lunch" | "unknown" | null,
  "urgency": "high" | "medium" | "low" | null,
  "time_frame": "today" | "tomorrow" | "this_week" | "next_week" | "flexible" | null,
  "extracted_time_mentions": ["verbatim time phrases from the email"]
}

Rules:
- meeting_type, urgency, and time_frame must be null when is_scheduling_request is false.
- extracted_time_mentions contains phrases exactly as written, e.g. "tomorrow at 2pm", "next Tuesday morning".
- Mentions of past meetings or declined invitations are not scheduling requests.`

// Classify analyzes the message, retrying the LLM with escalating model tiers
// and backing off between attempts. The final attempt runs on the strong tier.
// On total failure the keyword fallback result is returned instead.
func (c *Classifier) Classify(ctx context.Context, msg *domain.InboundMessage) *domain.ClassificationResult {
	userPrompt := buildClassifyPrompt(msg)

	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			// Exponential backoff: 2s, 4s, 8s...
			c.sleep(ctx, time.Duration(1<<attempt)*time.Second)
			if ctx.Err() != nil {
				break
			}
		}

		tier := out.TierEfficient
		if attempt == c.maxAttempts-1 {
			tier = out.TierStrong
		}

		result, err := c.classifyOnce(ctx, tier, userPrompt)
		if err == nil {
			result.Normalize()
			return result
		}
		lastErr = err
		c.log.WithError(err).WithFields(map[string]any{
			"message_id": msg.ExternalID,
			"attempt":    attempt + 1,
		}).Warn("llm classification attempt failed")
	}

	c.log.WithError(lastErr).WithField("message_id", msg.ExternalID).
		Warn("llm classification exhausted, using keyword fallback")
	return ClassifyByKeywords(msg)
}

func (c *Classifier) classifyOnce(ctx context.Context, tier out.ModelTier, userPrompt string) (*domain.ClassificationResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
	defer cancel()

	raw, err := c.llm.CompleteJSON(callCtx, tier, classifySystemPrompt, userPrompt)
	if err != nil {
		return nil, err
	}
	return parseVerdict(raw)
}

func buildClassifyPrompt(msg *domain.InboundMessage) string {
	var b strings.Builder
	b.WriteString("From: ")
	b.WriteString(msg.From)
	b.WriteString("\nSubject: ")
	b.WriteString(msg.Subject)
	b.WriteString("\n\n")
	b.WriteString(truncateBody(msg.Body, 4000))
	return b.String()
}

func truncateBody(body string, max int) string {
	if len(body) <= max {
		return body
	}
	return body[:max]
}

// verdict mirrors the JSON shape the model is told to produce. Pointer fields
// distinguish "absent" from zero values so a malformed reply fails validation
// instead of silently classifying as non-scheduling.
type verdict struct {
	IsSchedulingRequest *bool    `json:"is_scheduling_request"`
	Confidence          *float64 `json:"confidence"`
	Reasoning           string   `json:"reasoning"`
	MeetingType         *string  `json:"meeting_type"`
	Urgency             *string  `json:"urgency"`
	TimeFrame           *string  `json:"time_frame"`
	ExtractedTimes      []string `json:"extracted_time_mentions"`
}

func parseVerdict(raw string) (*domain.ClassificationResult, error) {
	cleaned := stripCodeFence(raw)

	var v verdict
	if err := json.Unmarshal([]byte(cleaned), &v); err != nil {
		return nil, fmt.Errorf("parse verdict: %w", err)
	}
	if v.IsSchedulingRequest == nil {
		return nil, fmt.Errorf("verdict missing is_scheduling_request")
	}
	if v.Confidence == nil {
		return nil, fmt.Errorf("verdict missing confidence")
	}
	if strings.TrimSpace(v.Reasoning) == "" {
		return nil, fmt.Errorf("verdict missing reasoning")
	}

	result := &domain.ClassificationResult{
		IsSchedulingRequest:   *v.IsSchedulingRequest,
		Confidence:            domain.ClampConfidence(int(*v.Confidence)),
		Reasoning:             strings.TrimSpace(v.Reasoning),
		ExtractedTimeMentions: v.ExtractedTimes,
	}

	if v.MeetingType != nil {
		mt := domain.MeetingType(*v.MeetingType)
		result.MeetingType = &mt
	}
	if v.Urgency != nil {
		u := domain.UrgencyLevel(*v.Urgency)
		result.UrgencyLevel = &u
	}
	if v.TimeFrame != nil {
		tf := domain.TimeFrame(*v.TimeFrame)
		result.TimeFrame = &tf
	}

	return result, nil
}

// stripCodeFence removes a surrounding markdown fence some models insist on
// emitting even in JSON mode.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func sleepCtx(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
