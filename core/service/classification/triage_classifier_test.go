package classification

import (
	"context"
	"errors"
	"testing"
	"time"

	"assistant_server/core/domain"
	"assistant_server/core/port/out"
)

// fakeLLM scripts CompleteJSON responses per call.
type fakeLLM struct {
	responses []fakeResponse
	calls     int
	tiers     []out.ModelTier
}

type fakeResponse struct {
	body string
	err  error
}

func (f *fakeLLM) CompleteJSON(_ context.Context, tier out.ModelTier, _, _ string) (string, error) {
	f.tiers = append(f.tiers, tier)
	if f.calls >= len(f.responses) {
		return "", errors.New("no scripted response")
	}
	r := f.responses[f.calls]
	f.calls++
	return r.body, r.err
}

func (f *fakeLLM) Complete(_ context.Context, _ string) (string, error) {
	return "", errors.New("not scripted")
}

func noSleep(c *Classifier) { c.sleep = func(context.Context, time.Duration) {} }

func testMessage(subject, body string) *domain.InboundMessage {
	return &domain.InboundMessage{
		ExternalID: "msg-1",
		Subject:    subject,
		From:       "alice@example.com",
		Body:       body,
	}
}

func TestClassifyValidVerdict(t *testing.T) {
	llm := &fakeLLM{responses: []fakeResponse{
		{body: `{"is_scheduling_request": true, "confidence": 85, "reasoning": "explicit meeting request", "meeting_type": "video_call", "urgency": "medium", "time_frame": "tomorrow", "extracted_time_mentions": ["tomorrow at 2pm"]}`},
	}}
	c := NewClassifier(llm)
	noSleep(c)

	result := c.Classify(context.Background(), testMessage("Quick sync?", "Can we meet tomorrow at 2pm?"))

	if !result.IsSchedulingRequest {
		t.Fatal("expected scheduling request")
	}
	if result.Confidence != 85 {
		t.Errorf("confidence = %d, want 85", result.Confidence)
	}
	if result.UsedFallback {
		t.Error("fallback should not be used on first success")
	}
	if result.MeetingType == nil || *result.MeetingType != domain.MeetingVideoCall {
		t.Errorf("meeting type = %v, want video_call", result.MeetingType)
	}
	if len(result.ExtractedTimeMentions) != 1 || result.ExtractedTimeMentions[0] != "tomorrow at 2pm" {
		t.Errorf("time mentions = %v", result.ExtractedTimeMentions)
	}
	if llm.calls != 1 {
		t.Errorf("llm calls = %d, want 1", llm.calls)
	}
}

func TestClassifyRetriesThenEscalates(t *testing.T) {
	llm := &fakeLLM{responses: []fakeResponse{
		{err: errors.New("timeout")},
		{body: "not json at all"},
		{body: `{"is_scheduling_request": false, "confidence": 90, "reasoning": "newsletter"}`},
	}}
	c := NewClassifier(llm)
	noSleep(c)

	result := c.Classify(context.Background(), testMessage("Weekly digest", "Here is your news."))

	if result.IsSchedulingRequest {
		t.Error("expected non-scheduling verdict")
	}
	if result.UsedFallback {
		t.Error("third attempt succeeded, fallback must not be flagged")
	}
	if llm.calls != 3 {
		t.Fatalf("llm calls = %d, want 3", llm.calls)
	}
	if llm.tiers[0] != out.TierEfficient || llm.tiers[1] != out.TierEfficient {
		t.Errorf("early attempts should use the efficient tier, got %v", llm.tiers)
	}
	if llm.tiers[2] != out.TierStrong {
		t.Errorf("final attempt should escalate to the strong tier, got %v", llm.tiers[2])
	}
}

func TestClassifyFallbackNeverErrors(t *testing.T) {
	llm := &fakeLLM{responses: []fakeResponse{
		{err: errors.New("backend down")},
		{err: errors.New("backend down")},
		{err: errors.New("backend down")},
	}}
	c := NewClassifier(llm)
	noSleep(c)

	result := c.Classify(context.Background(), testMessage(
		"Lunch next week?",
		"Would love to grab lunch and catch up. Are you free Tuesday at noon?"))

	if result == nil {
		t.Fatal("classify must never return nil")
	}
	if !result.UsedFallback {
		t.Error("exhausted retries must flag the fallback")
	}
	if !result.IsSchedulingRequest {
		t.Error("lunch invitation with a time should classify as scheduling")
	}
	if result.Confidence > fallbackConfidenceCap {
		t.Errorf("fallback confidence %d exceeds cap %d", result.Confidence, fallbackConfidenceCap)
	}
}

func TestClassifyNonSchedulingNilsEnums(t *testing.T) {
	llm := &fakeLLM{responses: []fakeResponse{
		{body: `{"is_scheduling_request": false, "confidence": 95, "reasoning": "order confirmation", "meeting_type": "video_call", "urgency": "high", "time_frame": "today"}`},
	}}
	c := NewClassifier(llm)
	noSleep(c)

	result := c.Classify(context.Background(), testMessage("Your order shipped", "Tracking number inside."))

	if result.MeetingType != nil || result.UrgencyLevel != nil || result.TimeFrame != nil {
		t.Error("non-scheduling verdict must carry nil detail enums")
	}
}

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
		check   func(t *testing.T, r *domain.ClassificationResult)
	}{
		{
			name: "fenced json is unwrapped",
			raw:  "```json\n{\"is_scheduling_request\": true, \"confidence\": 70, \"reasoning\": \"ok\"}\n```",
			check: func(t *testing.T, r *domain.ClassificationResult) {
				if !r.IsSchedulingRequest || r.Confidence != 70 {
					t.Errorf("got %+v", r)
				}
			},
		},
		{
			name: "confidence above range is clamped",
			raw:  `{"is_scheduling_request": true, "confidence": 140, "reasoning": "ok"}`,
			check: func(t *testing.T, r *domain.ClassificationResult) {
				if r.Confidence != 100 {
					t.Errorf("confidence = %d, want 100", r.Confidence)
				}
			},
		},
		{
			name: "negative confidence is clamped",
			raw:  `{"is_scheduling_request": false, "confidence": -5, "reasoning": "ok"}`,
			check: func(t *testing.T, r *domain.ClassificationResult) {
				if r.Confidence != 0 {
					t.Errorf("confidence = %d, want 0", r.Confidence)
				}
			},
		},
		{
			name:    "missing verdict flag is rejected",
			raw:     `{"confidence": 70, "reasoning": "ok"}`,
			wantErr: true,
		},
		{
			name:    "missing confidence is rejected",
			raw:     `{"is_scheduling_request": true, "reasoning": "ok"}`,
			wantErr: true,
		},
		{
			name:    "blank reasoning is rejected",
			raw:     `{"is_scheduling_request": true, "confidence": 70, "reasoning": "  "}`,
			wantErr: true,
		},
		{
			name:    "non-json is rejected",
			raw:     "I think this is a meeting request.",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseVerdict(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tt.check(t, result)
		})
	}
}

func TestClassifyByKeywords(t *testing.T) {
	tests := []struct {
		name           string
		subject        string
		body           string
		wantScheduling bool
		wantMinConf    int
		wantMaxConf    int
	}{
		{
			name:           "meeting request with time indicator",
			subject:        "Meeting request",
			body:           "Can we schedule a call tomorrow at 3pm to sync on the launch?",
			wantScheduling: true,
			wantMinConf:    60,
			wantMaxConf:    fallbackConfidenceCap,
		},
		{
			name:           "two keywords without time stays below bar",
			subject:        "About that call",
			body:           "The meeting notes are attached.",
			wantScheduling: false,
		},
		{
			name:           "plain newsletter",
			subject:        "Weekly digest",
			body:           "Top stories this week in tech.",
			wantScheduling: false,
		},
		{
			name:           "coffee catch up with weekday",
			subject:        "Coffee?",
			body:           "Want to catch up over coffee on Thursday? Check my calendar for availability.",
			wantScheduling: true,
			wantMinConf:    60,
			wantMaxConf:    fallbackConfidenceCap,
		},
		{
			name:           "empty message",
			subject:        "",
			body:           "",
			wantScheduling: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ClassifyByKeywords(testMessage(tt.subject, tt.body))

			if !result.UsedFallback {
				t.Error("keyword path must always set UsedFallback")
			}
			if result.IsSchedulingRequest != tt.wantScheduling {
				t.Errorf("scheduling = %v, want %v (conf %d, reasoning %q)",
					result.IsSchedulingRequest, tt.wantScheduling, result.Confidence, result.Reasoning)
			}
			if result.Confidence < 0 || result.Confidence > 100 {
				t.Errorf("confidence %d out of range", result.Confidence)
			}
			if tt.wantScheduling {
				if result.Confidence < tt.wantMinConf || result.Confidence > tt.wantMaxConf {
					t.Errorf("confidence = %d, want within [%d,%d]", result.Confidence, tt.wantMinConf, tt.wantMaxConf)
				}
			} else if result.MeetingType != nil {
				t.Error("negative verdict must not carry a meeting type")
			}
			if result.Reasoning == "" {
				t.Error("reasoning must never be empty")
			}
		})
	}
}
