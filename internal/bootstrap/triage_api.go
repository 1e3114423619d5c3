package bootstrap

import (
	"time"

	triagehttp "assistant_server/adapter/in/http"
	"assistant_server/config"
	"assistant_server/infra/middleware"
	"assistant_server/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// NewAPI builds the HTTP process: webhook ingress plus the authenticated
// batch triage API.
func NewAPI(cfg *config.Config) (*fiber.App, func(), error) {
	logLevel := logger.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = logger.LevelDebug
	}
	logger.Init(logger.Config{
		Level:   logLevel,
		Service: "assistant-api",
	})

	deps, cleanup, err := NewDependencies(cfg)
	if err != nil {
		logger.WithError(err).Error("failed to initialize dependencies")
		return nil, nil, err
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: cfg.IsProduction(),
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          60 * time.Second,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		ErrorHandler:          middleware.ErrorHandler(),
	})

	app.Use(recover.New())
	app.Use(compress.New())
	app.Use(cors.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.RequestLogger())

	// Unauthenticated surface: health probes and provider webhooks.
	triagehttp.NewHealthHandler(deps.DB, deps.Redis).Register(app)
	triagehttp.NewWebhookHandler(deps.Redis, deps.BodyStore, deps.Producer).Register(app)

	// Authenticated API.
	api := app.Group("/api/v1", middleware.JWTAuth(cfg.JWTSecret))
	triagehttp.NewBatchHandler(NewServiceFactory(deps)).Register(api)

	return app, cleanup, nil
}
