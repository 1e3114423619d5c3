package out

import "context"

// ModelTier selects between the cost-efficient model and the stronger model
// used when the cheap tier keeps failing.
type ModelTier int

const (
	TierEfficient ModelTier = iota
	TierStrong
)

// LLMPort is the pluggable language-model backend. Implementations must honor
// the context deadline; the classifier applies its own per-attempt timeout.
type LLMPort interface {
	// CompleteJSON requests a strictly-JSON completion.
	CompleteJSON(ctx context.Context, tier ModelTier, systemPrompt, userPrompt string) (string, error)

	// Complete requests a plain-text completion on the efficient tier.
	Complete(ctx context.Context, prompt string) (string, error)
}
