// Package provider implements per-request mail and calendar clients.
package provider

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// GmailAdapter implements out.MailClient against the Gmail API. One instance
// per request and user: it carries that user's token and is discarded when
// the request ends, so authenticated state never crosses requests.
type GmailAdapter struct {
	oauthConfig *oauth2.Config
	token       *oauth2.Token
}

func NewGmailAdapter(oauthConfig *oauth2.Config, token *oauth2.Token) *GmailAdapter {
	return &GmailAdapter{oauthConfig: oauthConfig, token: token}
}

func (a *GmailAdapter) service(ctx context.Context) (*gmail.Service, error) {
	client := a.oauthConfig.Client(ctx, a.token)
	return gmail.NewService(ctx, option.WithHTTPClient(client))
}

// CreateDraft stores a reply draft, threaded to the original message when
// threadID is non-empty.
func (a *GmailAdapter) CreateDraft(ctx context.Context, threadID, to, subject, body string) (string, error) {
	svc, err := a.service(ctx)
	if err != nil {
		return "", fmt.Errorf("create gmail service: %w", err)
	}

	raw := buildRawMessage(to, subject, body)
	draft := &gmail.Draft{
		Message: &gmail.Message{
			Raw:      base64.URLEncoding.EncodeToString([]byte(raw)),
			ThreadId: threadID,
		},
	}

	var created *gmail.Draft
	err = executeWithBreaker(gmailBreaker, func() error {
		var callErr error
		created, callErr = svc.Users.Drafts.Create("me", draft).Context(ctx).Do()
		return callErr
	})
	if err != nil {
		return "", fmt.Errorf("create draft: %w", err)
	}
	return created.Id, nil
}

func buildRawMessage(to, subject, body string) string {
	var b strings.Builder
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return b.String()
}
