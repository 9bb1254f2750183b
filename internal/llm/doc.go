// Package llm provides language model clients for the assistant pipeline.
// It supports multiple providers including OpenAI and Anthropic, with retry
// logic and rate limiting. The rest of the application treats a completion
// as an opaque prompt-to-text call; all structured parsing happens in the
// components that own the prompts.
package llm
