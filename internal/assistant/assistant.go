package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rapmendoza/ai-side-panel/internal/common"
	"github.com/rapmendoza/ai-side-panel/internal/conversation"
	"github.com/rapmendoza/ai-side-panel/internal/llm"
	"github.com/rapmendoza/ai-side-panel/internal/model"
	"github.com/rapmendoza/ai-side-panel/internal/service"
)

// Result type constants for TurnResult.Type.
const (
	ResultResponse      = "response"
	ResultClarification = "clarification"
)

// knownNamesLimit bounds how many record names are injected into prompts.
const knownNamesLimit = 25

// Config holds configuration options for the assistant.
type Config struct {
	MaxClarificationSteps int
	ContextWindow         int
	TurnTimeout           time.Duration
	ActionTimeout         time.Duration
	Scoring               ScoringPolicy
	Retry                 service.RetryOptions
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		MaxClarificationSteps: DefaultMaxClarificationSteps,
		ContextWindow:         conversation.DefaultWindow,
		TurnTimeout:           60 * time.Second,
		ActionTimeout:         defaultActionTimeout,
		Scoring:               DefaultScoringPolicy(),
	}
}

// TurnResult is the outcome of processing one inbound message.
type TurnResult struct {
	Type                 string                       `json:"type"`
	Message              string                       `json:"message"`
	ConversationID       string                       `json:"conversationId"`
	Classification       model.IntentClassification   `json:"classification"`
	Extraction           model.EntityExtractionResult `json:"extraction"`
	SuggestedActions     []model.SuggestedAction      `json:"suggestedActions"`
	ExecutedActions      []model.ExecutedOperation    `json:"executedActions"`
	Confidence           float64                      `json:"confidence"`
	RequiresConfirmation bool                         `json:"requiresConfirmation"`
	NeedsClarification   bool                         `json:"needsClarification"`
}

// Assistant wires the pipeline: classify, extract, clarify, plan, gate,
// execute. One instance serves all conversations; per-conversation state
// lives in the conversation store, and turns for the same conversation are
// serialized through it.
type Assistant struct {
	classifier    *Classifier
	extractor     *Extractor
	clarifier     *ClarificationManager
	planner       *Planner
	executor      *Executor
	storage       service.Storage
	conversations *conversation.Store
	logger        *slog.Logger
	cfg           Config
}

// New constructs the assistant from its collaborators. This is the
// composition root for the pipeline; nothing here is a package-level
// singleton.
func New(client llm.Client, limiter *llm.RateLimiter, storage service.Storage, conversations *conversation.Store, logger *slog.Logger, cfg Config) *Assistant {
	if cfg.TurnTimeout <= 0 {
		cfg.TurnTimeout = 60 * time.Second
	}
	if cfg.Scoring == (ScoringPolicy{}) {
		cfg.Scoring = DefaultScoringPolicy()
	}

	classifier := NewClassifier(client, limiter, logger, cfg.Retry)
	extractor := NewExtractor(client, limiter, logger, cfg.Scoring, cfg.Retry)

	return &Assistant{
		classifier:    classifier,
		extractor:     extractor,
		clarifier:     NewClarificationManager(classifier, extractor, logger, cfg.MaxClarificationSteps),
		planner:       NewPlanner(client, limiter, logger, cfg.Retry),
		executor:      NewExecutor(storage, logger, cfg.ActionTimeout),
		storage:       storage,
		conversations: conversations,
		logger:        logger,
		cfg:           cfg,
	}
}

// ProcessMessage runs the full pipeline for one inbound message. If the
// conversation has an open clarification, the message is treated as the
// clarifying answer.
func (a *Assistant) ProcessMessage(ctx context.Context, ownerID, conversationID, message string) (*TurnResult, error) {
	if strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("%w: message must be a non-empty string", common.ErrInvalidInput)
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.TurnTimeout)
	defer cancel()

	handle := a.conversations.Acquire(conversationID)
	defer handle.Release()

	handle.Append(model.RoleUser, message)

	if cc := handle.Clarification(); cc != nil {
		return a.resumeClarification(ctx, ownerID, handle, cc, message)
	}

	pctx := a.buildPromptContext(ctx, ownerID, handle)

	classification, err := a.classifier.Classify(ctx, message, pctx)
	if err != nil {
		return nil, err
	}

	pctx.IntentConfidence = classification.Confidence
	extraction, err := a.extractor.Extract(ctx, message, classification.Intent, pctx)
	if err != nil {
		return nil, err
	}

	if classification.RequiresClarification || len(extraction.MissingRequiredFields) > 0 {
		cc := a.clarifier.Open(message, classification, extraction)
		handle.SetClarification(cc)

		question := a.clarifier.FirstQuestion(cc)
		handle.Append(model.RoleAssistant, question)

		return &TurnResult{
			Type:               ResultClarification,
			Message:            question,
			ConversationID:     handle.ID(),
			Classification:     classification,
			Extraction:         extraction,
			NeedsClarification: true,
		}, nil
	}

	return a.planAndExecute(ctx, ownerID, handle, message, classification, extraction, pctx)
}

// ProcessClarification feeds an answer into an open clarification exchange.
func (a *Assistant) ProcessClarification(ctx context.Context, ownerID, conversationID, answer string) (*TurnResult, error) {
	if strings.TrimSpace(answer) == "" {
		return nil, fmt.Errorf("%w: answer must be a non-empty string", common.ErrInvalidInput)
	}
	if conversationID == "" {
		return nil, fmt.Errorf("%w: conversationId is required", common.ErrInvalidInput)
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.TurnTimeout)
	defer cancel()

	handle := a.conversations.Acquire(conversationID)
	defer handle.Release()

	cc := handle.Clarification()
	if cc == nil {
		return nil, fmt.Errorf("%w: conversation has no open clarification", common.ErrInvalidInput)
	}

	handle.Append(model.RoleUser, answer)
	return a.resumeClarification(ctx, ownerID, handle, cc, answer)
}

// ClearConversation removes a conversation and its clarification state.
func (a *Assistant) ClearConversation(id string) bool {
	return a.conversations.Delete(id)
}

// Conversation returns a snapshot of a conversation's history.
func (a *Assistant) Conversation(id string) (model.Conversation, bool) {
	return a.conversations.Get(id)
}

func (a *Assistant) resumeClarification(ctx context.Context, ownerID string, handle *conversation.Handle, cc *model.ClarificationContext, answer string) (*TurnResult, error) {
	pctx := a.buildPromptContext(ctx, ownerID, handle)

	outcome, err := a.clarifier.Resume(ctx, cc, answer, pctx)
	if err != nil {
		return nil, err
	}

	switch outcome.State {
	case ClarificationResolved:
		handle.ClearClarification()
		augmented := cc.OriginalMessage + "\n" + strings.Join(cc.Answers, "\n")
		return a.planAndExecute(ctx, ownerID, handle, augmented, outcome.Classification, outcome.Extraction, pctx)

	case ClarificationAbandoned:
		handle.ClearClarification()
		handle.Append(model.RoleAssistant, outcome.Message)
		return &TurnResult{
			Type:             ResultResponse,
			Message:          outcome.Message,
			ConversationID:   handle.ID(),
			Classification:   cc.Classification,
			SuggestedActions: []model.SuggestedAction{},
			ExecutedActions:  []model.ExecutedOperation{},
		}, nil

	default: // ClarificationAwaiting
		handle.Append(model.RoleAssistant, outcome.Question)
		return &TurnResult{
			Type:               ResultClarification,
			Message:            outcome.Question,
			ConversationID:     handle.ID(),
			Classification:     cc.Classification,
			NeedsClarification: true,
		}, nil
	}
}

// planAndExecute runs the planner, applies the execution gate, and executes
// when allowed.
func (a *Assistant) planAndExecute(ctx context.Context, ownerID string, handle *conversation.Handle, message string, classification model.IntentClassification, extraction model.EntityExtractionResult, pctx *PromptContext) (*TurnResult, error) {
	plan, err := a.planner.Plan(ctx, message, classification, extraction, pctx)
	if err != nil {
		return nil, err
	}

	executed := []model.ExecutedOperation{}
	if plan.AutoExecutable() && len(plan.Actions) > 0 {
		executed = a.executor.Execute(ctx, ownerID, plan.Actions)
	}

	handle.Append(model.RoleAssistant, plan.Message)

	return &TurnResult{
		Type:                 ResultResponse,
		Message:              plan.Message,
		ConversationID:       handle.ID(),
		Classification:       classification,
		Extraction:           extraction,
		SuggestedActions:     plan.Actions,
		ExecutedActions:      executed,
		Confidence:           plan.Confidence,
		RequiresConfirmation: plan.RequiresConfirmation,
	}, nil
}

// buildPromptContext fetches known payee and category names for biasing.
// The two lookups are independent and read-only, so they run concurrently.
// Failures are logged and ignored; biasing context is best-effort.
func (a *Assistant) buildPromptContext(ctx context.Context, ownerID string, handle *conversation.Handle) *PromptContext {
	pctx := &PromptContext{
		RecentMessages: handle.RecentWindow(),
	}

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		payees, err := a.storage.GetPayees(ctx, ownerID, service.PayeeFilter{Limit: knownNamesLimit})
		if err != nil {
			a.logger.Warn("failed to load payee names for context", "error", err)
			return
		}
		names := make([]string, len(payees))
		for i, p := range payees {
			names[i] = p.Name
		}
		pctx.KnownPayees = names
	}()

	go func() {
		defer wg.Done()
		categories, err := a.storage.GetCategories(ctx, ownerID, service.CategoryFilter{Limit: knownNamesLimit})
		if err != nil {
			a.logger.Warn("failed to load category names for context", "error", err)
			return
		}
		names := make([]string, len(categories))
		for i, c := range categories {
			names[i] = c.Name
		}
		pctx.KnownCategories = names
	}()

	wg.Wait()
	return pctx
}
