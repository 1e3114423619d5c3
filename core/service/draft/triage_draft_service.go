// Package draft generates reply drafts and stores them on the mail provider.
package draft

import (
	"context"
	"fmt"
	"strings"

	"assistant_server/core/domain"
	"assistant_server/core/port/out"
	"assistant_server/pkg/apperr"
	"assistant_server/pkg/logger"
)

// Generator produces reply bodies with the language model. It implements
// out.DraftGenerator.
type Generator struct {
	llm out.LLMPort
}

func NewGenerator(llm out.LLMPort) *Generator {
	return &Generator{llm: llm}
}

func (g *Generator) DraftReply(ctx context.Context, msg *domain.InboundMessage) (string, error) {
	prompt := buildDraftPrompt(msg)
	body, err := g.llm.Complete(ctx, prompt)
	if err != nil {
		return "", apperr.ExternalError("llm", err)
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return "", apperr.ExternalError("llm", fmt.Errorf("empty draft body"))
	}
	return body, nil
}

func buildDraftPrompt(msg *domain.InboundMessage) string {
	var b strings.Builder
	b.WriteString("Write a short, polite reply to the email below. ")
	b.WriteString("Match the sender's tone, answer what was asked, and do not invent facts or commitments. ")
	b.WriteString("Output only the reply body, no subject line and no signature.\n\n")
	b.WriteString("From: ")
	b.WriteString(msg.From)
	b.WriteString("\nSubject: ")
	b.WriteString(msg.Subject)
	b.WriteString("\n\n")
	b.WriteString(msg.Body)
	return b.String()
}

// Service runs the generic-draft pipeline: generate a reply body and save it
// as a provider draft threaded to the original message.
type Service struct {
	generator out.DraftGenerator
	mail      out.MailClient
	log       *logger.Logger
}

func NewService(generator out.DraftGenerator, mail out.MailClient) *Service {
	return &Service{
		generator: generator,
		mail:      mail,
		log:       logger.Default().WithField("component", "draft"),
	}
}

// CreateReplyDraft generates and stores a draft for the message, returning
// the provider's draft id.
func (s *Service) CreateReplyDraft(ctx context.Context, msg *domain.InboundMessage) (string, error) {
	body, err := s.generator.DraftReply(ctx, msg)
	if err != nil {
		return "", err
	}

	subject := replySubject(msg.Subject)
	draftID, err := s.mail.CreateDraft(ctx, msg.ThreadID, msg.From, subject, body)
	if err != nil {
		return "", apperr.ExternalError("mail provider", err)
	}

	s.log.WithContext(ctx).WithField("message_id", msg.ExternalID).
		WithField("draft_id", draftID).Info("reply draft created")
	return draftID, nil
}

func replySubject(subject string) string {
	if subject == "" {
		return "Re:"
	}
	if strings.HasPrefix(strings.ToLower(subject), "re:") {
		return subject
	}
	return "Re: " + subject
}
