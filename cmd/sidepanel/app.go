package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rapmendoza/ai-side-panel/internal/assistant"
	"github.com/rapmendoza/ai-side-panel/internal/conversation"
	"github.com/rapmendoza/ai-side-panel/internal/llm"
	"github.com/rapmendoza/ai-side-panel/internal/service"
	"github.com/rapmendoza/ai-side-panel/internal/storage"
	"github.com/spf13/viper"
)

// app bundles the wired-up pipeline for the serve and chat commands. The
// caller owns Close.
type app struct {
	assistant *assistant.Assistant
	storage   *storage.SQLiteStorage
	limiter   *llm.RateLimiter
}

func (a *app) Close() error {
	a.limiter.Close()
	return a.storage.Close()
}

// buildApp constructs storage, the LLM client, and the assistant pipeline
// from viper configuration.
func buildApp(ctx context.Context) (*app, error) {
	dbPath, err := databasePath()
	if err != nil {
		return nil, err
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	client, llmCfg, err := createLLMClient()
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	limiter := llm.NewRateLimiter(llmCfg.RateLimit)

	cfg := assistant.DefaultConfig()
	if steps := viper.GetInt("assistant.max_clarification_steps"); steps > 0 {
		cfg.MaxClarificationSteps = steps
	}
	if window := viper.GetInt("assistant.context_window"); window > 0 {
		cfg.ContextWindow = window
	}
	if timeout := viper.GetDuration("assistant.turn_timeout"); timeout > 0 {
		cfg.TurnTimeout = timeout
	}
	cfg.Retry = service.RetryOptions{
		MaxAttempts:  llmCfg.MaxRetries,
		InitialDelay: llmCfg.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}

	conversations := conversation.NewStore(cfg.ContextWindow)

	a := assistant.New(client, limiter, store, conversations, slog.Default(), cfg)

	return &app{
		assistant: a,
		storage:   store,
		limiter:   limiter,
	}, nil
}
