package llm

import (
	"context"
	"time"
)

// Client defines the interface for LLM providers.
type Client interface {
	// Complete sends a prompt to the provider and returns the raw text of
	// the completion. Transport failures and non-2xx responses surface as
	// errors wrapping common.ErrAIUnavailable or common.ErrRateLimit.
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// CompletionRequest carries one completion call's inputs.
type CompletionRequest struct {
	System string
	Prompt string
	// MaxTokens overrides the client default when > 0.
	MaxTokens int
}

// Config holds configuration for LLM clients.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	MaxRetries  int
	RetryDelay  time.Duration
	RateLimit   int
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}
