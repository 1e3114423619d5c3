package bootstrap

import (
	"context"

	"assistant_server/adapter/out/provider"
	"assistant_server/core/service/batch"
	"assistant_server/core/service/draft"
	"assistant_server/core/service/schedule"
	"assistant_server/pkg/apperr"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// ServiceFactory builds the request-scoped service bundle. Mail and calendar
// clients hold one user's OAuth token, so a fresh set is constructed for
// every request and worker job and discarded afterwards; sharing one across
// concurrent users would let authenticated state leak between them.
type ServiceFactory struct {
	deps *Dependencies
}

func NewServiceFactory(deps *Dependencies) *ServiceFactory {
	return &ServiceFactory{deps: deps}
}

// BuildOrchestrator assembles the full triage pipeline for one user. Missing
// settings or provider credentials fail here, before any message is touched.
func (f *ServiceFactory) BuildOrchestrator(ctx context.Context, userID uuid.UUID) (*batch.Orchestrator, error) {
	settings, err := f.deps.SettingsRepo.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !settings.HasProviderToken() {
		return nil, apperr.Unauthorized("no provider credentials for user")
	}

	token := &oauth2.Token{
		AccessToken:  settings.AccessToken,
		RefreshToken: settings.RefreshToken,
		Expiry:       settings.TokenExpiry,
		TokenType:    "Bearer",
	}

	mail := provider.NewGmailAdapter(f.deps.OAuthConfig, token)
	calendar := provider.NewGoogleCalendarAdapter(f.deps.OAuthConfig, token)

	scheduler := schedule.NewService(calendar)
	drafter := draft.NewService(draft.NewGenerator(f.deps.LLM), mail)

	return batch.NewOrchestrator(
		f.deps.IngestionRepo,
		f.deps.Classifier,
		f.deps.Router,
		scheduler,
		drafter,
		settings,
		batch.WithChunkPause(f.deps.Config.BatchChunkPause()),
	), nil
}
