package draft

import (
	"context"
	"errors"
	"testing"

	"assistant_server/core/domain"
)

type fakeGenerator struct {
	body string
	err  error
}

func (f *fakeGenerator) DraftReply(_ context.Context, _ *domain.InboundMessage) (string, error) {
	return f.body, f.err
}

type fakeMail struct {
	draftID  string
	err      error
	threadID string
	to       string
	subject  string
	body     string
}

func (f *fakeMail) CreateDraft(_ context.Context, threadID, to, subject, body string) (string, error) {
	f.threadID, f.to, f.subject, f.body = threadID, to, subject, body
	return f.draftID, f.err
}

func TestCreateReplyDraft(t *testing.T) {
	msg := &domain.InboundMessage{
		ExternalID: "msg-1",
		ThreadID:   "thread-9",
		Subject:    "Project update",
		From:       "bob@example.com",
		Body:       "How is the rollout going?",
	}

	t.Run("threads the draft to the original message", func(t *testing.T) {
		mail := &fakeMail{draftID: "d-42"}
		svc := NewService(&fakeGenerator{body: "Going well, details below."}, mail)

		id, err := svc.CreateReplyDraft(context.Background(), msg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if id != "d-42" {
			t.Errorf("draft id = %q, want d-42", id)
		}
		if mail.threadID != "thread-9" {
			t.Errorf("threadID = %q", mail.threadID)
		}
		if mail.to != "bob@example.com" {
			t.Errorf("to = %q", mail.to)
		}
		if mail.subject != "Re: Project update" {
			t.Errorf("subject = %q", mail.subject)
		}
	})

	t.Run("generator failure propagates", func(t *testing.T) {
		svc := NewService(&fakeGenerator{err: errors.New("backend down")}, &fakeMail{})
		if _, err := svc.CreateReplyDraft(context.Background(), msg); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("provider failure propagates", func(t *testing.T) {
		svc := NewService(&fakeGenerator{body: "ok"}, &fakeMail{err: errors.New("quota")})
		if _, err := svc.CreateReplyDraft(context.Background(), msg); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestReplySubject(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Project update", "Re: Project update"},
		{"Re: Project update", "Re: Project update"},
		{"RE: shouting", "RE: shouting"},
		{"", "Re:"},
	}
	for _, tt := range tests {
		if got := replySubject(tt.in); got != tt.want {
			t.Errorf("replySubject(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
