package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// generateWorkerID creates a unique worker ID using hostname and PID
func generateWorkerID() string {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "triage"
	}
	return fmt.Sprintf("%s-%d", hostname, os.Getpid())
}

type Config struct {
	Port        string
	Environment string

	// Database
	DatabaseURL string
	MongoDBURL  string
	MongoDBName string
	RedisURL    string

	// JWT
	JWTSecret string

	// OpenAI
	OpenAIAPIKey    string
	LLMModel        string // cost-efficient tier
	LLMModelStrong  string // escalation tier
	LLMMaxTokens    int
	LLMTemperature  float64
	LLMTimeoutSec   int // per-attempt wall clock, keep single-digit
	LLMMaxAttempts  int

	// Routing thresholds
	RouteSchedulingMinConfidence int // scheduling=true below this routes to draft
	RouteDraftMinConfidence      int // scheduling=false below this routes to skip

	// OAuth - Google
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	// Batch
	BatchChunkPauseMS int

	// Worker
	WorkerID        string
	WorkerMax       int
	WorkerQueueSize int
	WorkerBatchSize int
}

func Load() (*Config, error) {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENV", "development"),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", ""),
		MongoDBURL:  getEnv("MONGODB_URL", ""),
		MongoDBName: getEnv("MONGODB_DATABASE", "assistant"),
		RedisURL:    getEnv("REDIS_URL", ""),

		// JWT
		JWTSecret: getEnv("JWT_SECRET", ""),

		// OpenAI
		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		LLMModel:       getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMModelStrong: getEnv("LLM_MODEL_STRONG", "gpt-4o"),
		LLMMaxTokens:   getEnvInt("LLM_MAX_TOKENS", 512),
		LLMTemperature: getEnvFloat("LLM_TEMPERATURE", 0.2),
		LLMTimeoutSec:  getEnvInt("LLM_TIMEOUT_SEC", 8),
		LLMMaxAttempts: getEnvInt("LLM_MAX_ATTEMPTS", 3),

		// Routing
		RouteSchedulingMinConfidence: getEnvInt("ROUTE_SCHEDULING_MIN_CONFIDENCE", 60),
		RouteDraftMinConfidence:      getEnvInt("ROUTE_DRAFT_MIN_CONFIDENCE", 70),

		// OAuth - Google
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", ""),

		// Batch
		BatchChunkPauseMS: getEnvInt("BATCH_CHUNK_PAUSE_MS", 500),

		// Worker
		WorkerID:        getEnv("WORKER_ID", generateWorkerID()),
		WorkerMax:       getEnvInt("WORKER_MAX", 10),
		WorkerQueueSize: getEnvInt("WORKER_QUEUE_SIZE", 1000),
		WorkerBatchSize: getEnvInt("WORKER_BATCH_SIZE", 10),
	}, nil
}

// LLMTimeout returns the per-attempt classification timeout.
func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLMTimeoutSec) * time.Second
}

// BatchChunkPause returns the pause inserted between batch chunks.
func (c *Config) BatchChunkPause() time.Duration {
	return time.Duration(c.BatchChunkPauseMS) * time.Millisecond
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
