// Package llm wraps the OpenAI chat API behind the core's LLM port.
package llm

import (
	"context"
	"fmt"
	"time"

	"assistant_server/core/port/out"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
)

// Client implements out.LLMPort with two model tiers and a circuit breaker.
// The breaker trips after a run of consecutive failures so a dead backend
// fails fast instead of burning the per-attempt timeout on every message.
type Client struct {
	client      *openai.Client
	model       string
	modelStrong string
	maxTokens   int
	temperature float32
	breaker     *gobreaker.CircuitBreaker
}

type ClientConfig struct {
	APIKey      string
	Model       string
	ModelStrong string
	MaxTokens   int
	Temperature float64
}

const (
	DefaultModel       = "gpt-4o-mini"
	DefaultModelStrong = "gpt-4o"
)

func NewClient(cfg ClientConfig) *Client {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	modelStrong := cfg.ModelStrong
	if modelStrong == "" {
		modelStrong = DefaultModelStrong
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 512
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "llm",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Client{
		client:      openai.NewClient(cfg.APIKey),
		model:       model,
		modelStrong: modelStrong,
		maxTokens:   maxTokens,
		temperature: float32(cfg.Temperature),
		breaker:     breaker,
	}
}

func (c *Client) modelFor(tier out.ModelTier) string {
	if tier == out.TierStrong {
		return c.modelStrong
	}
	return c.model
}

// CompleteJSON requests a strictly-JSON completion on the given tier.
func (c *Client) CompleteJSON(ctx context.Context, tier out.ModelTier, systemPrompt, userPrompt string) (string, error) {
	result, err := c.breaker.Execute(func() (any, error) {
		resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       c.modelFor(tier),
			MaxTokens:   c.maxTokens,
			Temperature: c.temperature,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: systemPrompt,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: userPrompt,
				},
			},
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		})
		if err != nil {
			return nil, err
		}
		if len(resp.Choices) == 0 {
			return nil, fmt.Errorf("empty completion response")
		}
		return resp.Choices[0].Message.Content, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

// Complete requests a plain-text completion on the efficient tier.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	result, err := c.breaker.Execute(func() (any, error) {
		resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       c.model,
			Temperature: c.temperature,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
		})
		if err != nil {
			return nil, err
		}
		if len(resp.Choices) == 0 {
			return nil, fmt.Errorf("empty completion response")
		}
		return resp.Choices[0].Message.Content, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}
