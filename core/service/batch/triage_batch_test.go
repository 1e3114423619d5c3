package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"assistant_server/core/domain"

	"github.com/google/uuid"
)

// memoryGate is an in-memory ingestion gate with the same atomicity contract
// as the real one.
type memoryGate struct {
	mu      sync.Mutex
	nextID  int64
	records map[string]*domain.IngestionRecord
	err     error
}

func newMemoryGate() *memoryGate {
	return &memoryGate{records: make(map[string]*domain.IngestionRecord)}
}

func (g *memoryGate) TryIngest(_ context.Context, userID uuid.UUID, msg *domain.InboundMessage) (*domain.IngestionRecord, bool, error) {
	if g.err != nil {
		return nil, false, g.err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	key := msg.ExternalID + "/" + userID.String()
	if rec, ok := g.records[key]; ok {
		return rec, false, nil
	}
	g.nextID++
	rec := &domain.IngestionRecord{
		ID:         g.nextID,
		ExternalID: msg.ExternalID,
		UserID:     userID,
		CreatedAt:  time.Now(),
	}
	g.records[key] = rec
	return rec, true, nil
}

func (g *memoryGate) MarkWebhookProcessed(_ context.Context, id int64) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, rec := range g.records {
		if rec.ID == id && !rec.WebhookProcessed {
			rec.WebhookProcessed = true
			return true, nil
		}
	}
	return false, nil
}

type stubClassifier struct {
	scheduling bool
	confidence int
	panicOn    map[string]bool
}

func (s *stubClassifier) Classify(_ context.Context, msg *domain.InboundMessage) *domain.ClassificationResult {
	if s.panicOn[msg.ExternalID] {
		panic("classifier exploded on " + msg.ExternalID)
	}
	return &domain.ClassificationResult{
		IsSchedulingRequest:   s.scheduling,
		Confidence:            s.confidence,
		Reasoning:             "stub",
		ExtractedTimeMentions: []string{"tomorrow at 2pm"},
	}
}

type stubRouter struct{ route domain.Route }

func (s *stubRouter) Decide(c *domain.ClassificationResult) domain.RoutingDecision {
	return domain.RoutingDecision{Route: s.route, Reasoning: "stub route", Confidence: c.Confidence}
}

type stubScheduler struct{ err error }

func (s *stubScheduler) ProposeMeetingTime(_ context.Context, _ *domain.ClassificationResult, _ *domain.UserSettings) (*domain.MeetingProposal, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &domain.MeetingProposal{Start: time.Now(), End: time.Now().Add(30 * time.Minute), ZoneID: "UTC"}, nil
}

type stubDrafter struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (s *stubDrafter) CreateReplyDraft(_ context.Context, _ *domain.InboundMessage) (string, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	return "d-1", nil
}

func messages(n int) []*domain.InboundMessage {
	msgs := make([]*domain.InboundMessage, n)
	for i := range msgs {
		msgs[i] = &domain.InboundMessage{
			ExternalID: fmt.Sprintf("msg-%d", i),
			Subject:    "hello",
			From:       "peer@example.com",
			Body:       "let's meet tomorrow at 2pm",
		}
	}
	return msgs
}

func newTestOrchestrator(gate *memoryGate, classifier MessageClassifier, route domain.Route) *Orchestrator {
	return NewOrchestrator(
		gate,
		classifier,
		&stubRouter{route: route},
		&stubScheduler{},
		&stubDrafter{},
		&domain.UserSettings{DefaultTimezone: "UTC"},
		WithChunkPause(time.Millisecond),
	)
}

func outcomeByID(t *testing.T, outcomes []domain.MessageOutcome, id string) domain.MessageOutcome {
	t.Helper()
	for _, o := range outcomes {
		if o.MessageID == id {
			return o
		}
	}
	t.Fatalf("no outcome for %s", id)
	return domain.MessageOutcome{}
}

func TestProcessBatchCompleteness(t *testing.T) {
	// Some messages panic mid-pipeline; the batch must still settle with one
	// outcome per input and the siblings unaffected.
	classifier := &stubClassifier{
		scheduling: true,
		confidence: 90,
		panicOn:    map[string]bool{"msg-2": true, "msg-5": true},
	}
	orch := newTestOrchestrator(newMemoryGate(), classifier, domain.RouteScheduling)

	msgs := messages(8)
	outcomes := orch.ProcessBatch(context.Background(), msgs, uuid.New(), 3)

	if len(outcomes) != len(msgs) {
		t.Fatalf("got %d outcomes, want %d", len(outcomes), len(msgs))
	}
	for _, msg := range msgs {
		o := outcomeByID(t, outcomes, msg.ExternalID)
		if classifier.panicOn[msg.ExternalID] {
			if o.Status != domain.OutcomeError {
				t.Errorf("%s: status = %s, want error", msg.ExternalID, o.Status)
			}
			if o.Error == "" {
				t.Errorf("%s: error outcome must carry a reason", msg.ExternalID)
			}
		} else if o.Status != domain.OutcomeSuccess {
			t.Errorf("%s: status = %s, want success", msg.ExternalID, o.Status)
		}
	}
}

func TestProcessBatchDuplicates(t *testing.T) {
	gate := newMemoryGate()
	classifier := &stubClassifier{scheduling: false, confidence: 90}
	orch := newTestOrchestrator(gate, classifier, domain.RouteDraft)
	userID := uuid.New()
	msgs := messages(3)

	first := orch.ProcessBatch(context.Background(), msgs, userID, 2)
	for _, o := range first {
		if o.Status != domain.OutcomeSuccess {
			t.Fatalf("first run %s: status = %s, want success", o.MessageID, o.Status)
		}
	}

	// Re-running the same batch must not reprocess anything.
	second := orch.ProcessBatch(context.Background(), msgs, userID, 2)
	if len(second) != len(msgs) {
		t.Fatalf("got %d outcomes, want %d", len(second), len(msgs))
	}
	for _, o := range second {
		if o.Status != domain.OutcomeDuplicate {
			t.Errorf("second run %s: status = %s, want duplicate", o.MessageID, o.Status)
		}
	}
}

func TestProcessBatchSkipsPendingIngestion(t *testing.T) {
	gate := newMemoryGate()
	userID := uuid.New()
	msgs := messages(1)

	// Record exists (webhook ingress saw it) but nothing processed it yet.
	if _, created, err := gate.TryIngest(context.Background(), userID, msgs[0]); err != nil || !created {
		t.Fatalf("seed ingest: created=%v err=%v", created, err)
	}

	orch := newTestOrchestrator(gate, &stubClassifier{confidence: 90}, domain.RouteDraft)
	outcomes := orch.ProcessBatch(context.Background(), msgs, userID, 1)

	if outcomes[0].Status != domain.OutcomeSkipped {
		t.Errorf("status = %s, want skipped", outcomes[0].Status)
	}
}

func TestProcessBatchSkipRoute(t *testing.T) {
	orch := newTestOrchestrator(newMemoryGate(), &stubClassifier{confidence: 10}, domain.RouteSkip)
	outcomes := orch.ProcessBatch(context.Background(), messages(1), uuid.New(), 1)

	o := outcomes[0]
	if o.Status != domain.OutcomeSkipped {
		t.Errorf("status = %s, want skipped", o.Status)
	}
	if o.Route != domain.RouteSkip {
		t.Errorf("route = %s, want skip", o.Route)
	}
	if o.Reason == "" {
		t.Error("skip outcome must carry the router's reasoning")
	}
}

func TestProcessBatchSkipRouteMarksProcessed(t *testing.T) {
	// A skip is a final disposition: re-submitting the same message later must
	// report duplicate, not a perpetually pending record.
	gate := newMemoryGate()
	userID := uuid.New()
	msgs := messages(1)
	orch := newTestOrchestrator(gate, &stubClassifier{confidence: 10}, domain.RouteSkip)

	first := orch.ProcessBatch(context.Background(), msgs, userID, 1)
	if first[0].Status != domain.OutcomeSkipped {
		t.Fatalf("first run status = %s, want skipped", first[0].Status)
	}

	second := orch.ProcessBatch(context.Background(), msgs, userID, 1)
	if second[0].Status != domain.OutcomeDuplicate {
		t.Errorf("second run status = %s, want duplicate", second[0].Status)
	}
}

func TestProcessBatchGateError(t *testing.T) {
	gate := newMemoryGate()
	gate.err = errors.New("storage unavailable")
	orch := newTestOrchestrator(gate, &stubClassifier{confidence: 90}, domain.RouteDraft)

	outcomes := orch.ProcessBatch(context.Background(), messages(2), uuid.New(), 2)
	for _, o := range outcomes {
		if o.Status != domain.OutcomeError {
			t.Errorf("%s: status = %s, want error", o.MessageID, o.Status)
		}
	}
}

// trackingClassifier records peak concurrent Classify calls.
type trackingClassifier struct {
	mu      sync.Mutex
	current int
	peak    int
}

func (c *trackingClassifier) Classify(_ context.Context, _ *domain.InboundMessage) *domain.ClassificationResult {
	c.mu.Lock()
	c.current++
	if c.current > c.peak {
		c.peak = c.current
	}
	c.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	c.mu.Lock()
	c.current--
	c.mu.Unlock()
	return &domain.ClassificationResult{Confidence: 90, Reasoning: "stub"}
}

func TestProcessBatchBoundsConcurrency(t *testing.T) {
	classifier := &trackingClassifier{}
	orch := newTestOrchestrator(newMemoryGate(), classifier, domain.RouteDraft)

	orch.ProcessBatch(context.Background(), messages(12), uuid.New(), 4)

	if classifier.peak > 4 {
		t.Errorf("peak concurrency %d exceeds limit 4", classifier.peak)
	}
	if classifier.peak == 0 {
		t.Error("classifier never ran")
	}
}

func TestProcessBatchConcurrentGateRace(t *testing.T) {
	// Two orchestrators racing over the same message: the gate must let
	// exactly one through.
	gate := newMemoryGate()
	userID := uuid.New()
	msg := messages(1)

	var wg sync.WaitGroup
	results := make([]domain.MessageOutcome, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			orch := newTestOrchestrator(gate, &stubClassifier{confidence: 90}, domain.RouteDraft)
			out := orch.ProcessBatch(context.Background(), msg, userID, 1)
			results[i] = out[0]
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, o := range results {
		if o.Status == domain.OutcomeSuccess {
			succeeded++
		}
	}
	if succeeded != 1 {
		t.Errorf("exactly one racer should succeed, got %d (%+v)", succeeded, results)
	}
}
