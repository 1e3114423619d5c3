// Package bootstrap wires configuration, storage, and services into runnable
// API and worker processes.
package bootstrap

import (
	"context"

	"assistant_server/adapter/out/mongodb"
	"assistant_server/adapter/out/persistence"
	"assistant_server/config"
	"assistant_server/core/agent/llm"
	"assistant_server/core/port/out"
	"assistant_server/core/service/classification"
	"assistant_server/core/service/routing"
	"assistant_server/infra/database"
	"assistant_server/internal/stream"
	"assistant_server/pkg/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// streamGroup is the consumer group shared by all triage workers.
const streamGroup = "triage-workers"

// Dependencies holds the process-wide singletons. Everything here is safe to
// share across requests; anything carrying per-user credentials is built per
// request by the ServiceFactory instead.
type Dependencies struct {
	Config *config.Config
	DB     *pgxpool.Pool
	SQLDB  *sqlx.DB
	Redis  *redis.Client

	IngestionRepo out.IngestionRepository
	SettingsRepo  out.SettingsRepository
	BodyStore     out.MessageBodyStore

	LLM        *llm.Client
	Classifier *classification.Classifier
	Router     *routing.Router

	OAuthConfig *oauth2.Config

	Stream   *stream.RedisStream
	Producer *stream.Producer
}

func NewDependencies(cfg *config.Config) (*Dependencies, func(), error) {
	pool, sqlDB, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}

	redisClient, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}

	mongoDB, err := mongodb.Connect(cfg.MongoDBURL, cfg.MongoDBName)
	if err != nil {
		pool.Close()
		redisClient.Close()
		return nil, nil, err
	}

	llmClient := llm.NewClient(llm.ClientConfig{
		APIKey:      cfg.OpenAIAPIKey,
		Model:       cfg.LLMModel,
		ModelStrong: cfg.LLMModelStrong,
		MaxTokens:   cfg.LLMMaxTokens,
		Temperature: cfg.LLMTemperature,
	})

	classifier := classification.NewClassifier(llmClient,
		classification.WithMaxAttempts(cfg.LLMMaxAttempts),
		classification.WithAttemptTimeout(cfg.LLMTimeout()),
	)

	bodyStore := mongodb.NewBodyAdapter(mongoDB)
	if err := bodyStore.EnsureIndexes(context.Background()); err != nil {
		logger.WithError(err).Warn("failed to ensure message body indexes")
	}

	redisStream := stream.NewRedisStream(redisClient, streamGroup)

	deps := &Dependencies{
		Config: cfg,
		DB:     pool,
		SQLDB:  sqlDB,
		Redis:  redisClient,

		IngestionRepo: persistence.NewIngestionAdapter(sqlDB),
		SettingsRepo:  persistence.NewSettingsAdapter(sqlDB),
		BodyStore:     bodyStore,

		LLM:        llmClient,
		Classifier: classifier,
		Router:     routing.NewRouter(cfg.RouteSchedulingMinConfidence, cfg.RouteDraftMinConfidence),

		OAuthConfig: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
			Endpoint:     google.Endpoint,
			Scopes: []string{
				"https://www.googleapis.com/auth/gmail.compose",
				"https://www.googleapis.com/auth/calendar.readonly",
			},
		},

		Stream:   redisStream,
		Producer: stream.NewProducer(redisStream),
	}

	cleanup := func() {
		pool.Close()
		if err := redisClient.Close(); err != nil {
			logger.WithError(err).Warn("error closing redis client")
		}
		if err := mongoDB.Client().Disconnect(context.Background()); err != nil {
			logger.WithError(err).Warn("error disconnecting mongodb")
		}
	}

	return deps, cleanup, nil
}
