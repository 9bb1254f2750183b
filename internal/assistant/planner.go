package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rapmendoza/ai-side-panel/internal/common"
	"github.com/rapmendoza/ai-side-panel/internal/llm"
	"github.com/rapmendoza/ai-side-panel/internal/model"
	"github.com/rapmendoza/ai-side-panel/internal/service"
)

const fallbackPlanMessage = "I need a little more time to process that. Could you confirm what you'd like me to do?"

// lowCompletenessThreshold: a create action proposed from an extraction this
// uncertain is not executed without confirmation.
const lowCompletenessThreshold = 0.5

// Planner turns a resolved (intent, entities) pair into a natural-language
// message plus zero or more proposed CRUD actions, and decides whether
// explicit confirmation is required before execution.
type Planner struct {
	client    llm.Client
	limiter   *llm.RateLimiter
	logger    *slog.Logger
	retryOpts service.RetryOptions
}

// NewPlanner creates a planner backed by the given LLM client.
func NewPlanner(client llm.Client, limiter *llm.RateLimiter, logger *slog.Logger, retryOpts service.RetryOptions) *Planner {
	return &Planner{
		client:    client,
		limiter:   limiter,
		logger:    logger,
		retryOpts: retryOpts,
	}
}

// Plan synthesizes the response plan for a resolved turn. Malformed model
// output fails soft to a no-action plan with confirmation forced on and
// confidence pinned low, so the auto-execution gate can never fire on a
// fallback. Completion service unavailability surfaces as an error.
func (p *Planner) Plan(ctx context.Context, message string, classification model.IntentClassification, extraction model.EntityExtractionResult, pctx *PromptContext) (model.ResponsePlan, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return model.ResponsePlan{}, fmt.Errorf("rate limit error: %w", err)
		}
	}

	prompt := p.buildPrompt(message, classification, extraction, pctx)

	var raw string
	err := common.WithRetry(ctx, func() error {
		response, completeErr := p.client.Complete(ctx, llm.CompletionRequest{
			System: plannerSystemPrompt,
			Prompt: prompt,
		})
		if completeErr != nil {
			p.logger.Warn("planning attempt failed", "error", completeErr, "intent", classification.Intent)
			return &common.RetryableError{Err: completeErr, Retryable: common.IsRetryable(completeErr)}
		}
		raw = response
		return nil
	}, p.retryOpts)

	if err != nil {
		return model.ResponsePlan{}, fmt.Errorf("planning failed: %w", err)
	}

	plan, ok := parsePlan(raw)
	if !ok {
		p.logger.Warn("malformed plan response, failing soft",
			"error", common.ErrMalformedResponse,
			"intent", classification.Intent)
		return fallbackPlan(), nil
	}

	plan = p.enforceInvariants(plan, extraction)

	p.logger.Debug("plan produced",
		"intent", classification.Intent,
		"action_count", len(plan.Actions),
		"requires_confirmation", plan.RequiresConfirmation,
		"confidence", plan.Confidence,
		"auto_executable", plan.AutoExecutable())

	return plan, nil
}

// fallbackPlan is the safe default for unparseable model output. Confidence
// is deliberately low but non-zero, and confirmation is deliberately forced
// true, so the execution gate never fires on a fallback.
func fallbackPlan() model.ResponsePlan {
	return model.ResponsePlan{
		Message:              fallbackPlanMessage,
		Actions:              []model.SuggestedAction{},
		RequiresConfirmation: true,
		Confidence:           0.1,
	}
}

// enforceInvariants applies the safety rules the model is not trusted with:
// destructive actions always require confirmation, creates from thin data
// require confirmation, invalid action shapes are dropped, and every action
// gets a fresh id.
func (p *Planner) enforceInvariants(plan model.ResponsePlan, extraction model.EntityExtractionResult) model.ResponsePlan {
	plan.Confidence = clamp01(plan.Confidence)
	if plan.Actions == nil {
		plan.Actions = []model.SuggestedAction{}
	}

	kept := plan.Actions[:0]
	for _, action := range plan.Actions {
		if !validActionShape(action) {
			p.logger.Warn("dropping invalid suggested action",
				"type", action.Type, "entity", action.Entity)
			continue
		}
		action.ID = uuid.New().String()
		kept = append(kept, action)

		switch action.Type {
		case model.ActionDelete, model.ActionUpdate:
			plan.RequiresConfirmation = true
		case model.ActionCreate:
			if extraction.Confidence < lowCompletenessThreshold {
				plan.RequiresConfirmation = true
			}
		case model.ActionRead:
			// Reads are safe.
		}
	}
	plan.Actions = kept

	if plan.Message == "" {
		plan.Message = fallbackPlanMessage
		plan.RequiresConfirmation = true
	}

	return plan
}

func validActionShape(action model.SuggestedAction) bool {
	switch action.Type {
	case model.ActionCreate, model.ActionRead, model.ActionUpdate, model.ActionDelete:
	default:
		return false
	}
	switch action.Entity {
	case model.KindPayee, model.KindCategory:
	default:
		return false
	}
	return true
}

// parsePlan decodes a model completion into a response plan. Returns false
// when the content is not a usable structured response.
func parsePlan(content string) (model.ResponsePlan, bool) {
	content = llm.CleanMarkdownWrapper(content)

	var wire struct {
		Message string `json:"message"`
		Actions []struct {
			Type        string `json:"type"`
			Entity      string `json:"entity"`
			Description string `json:"description"`
			Data        struct {
				Name        string `json:"name"`
				Email       string `json:"email"`
				Phone       string `json:"phone"`
				Address     string `json:"address"`
				Category    string `json:"category"`
				Description string `json:"description"`
				Search      string `json:"search"`
				Type        string `json:"type"`
				ID          any    `json:"id"`
			} `json:"data"`
		} `json:"actions"`
		RequiresConfirmation bool    `json:"requiresConfirmation"`
		Confidence           float64 `json:"confidence"`
	}

	if err := json.Unmarshal([]byte(content), &wire); err != nil {
		embedded := llm.ExtractJSONObject(content)
		if embedded == "" {
			return model.ResponsePlan{}, false
		}
		if err := json.Unmarshal([]byte(embedded), &wire); err != nil {
			return model.ResponsePlan{}, false
		}
	}

	if wire.Message == "" && len(wire.Actions) == 0 {
		return model.ResponsePlan{}, false
	}

	plan := model.ResponsePlan{
		Message:              wire.Message,
		Actions:              make([]model.SuggestedAction, 0, len(wire.Actions)),
		RequiresConfirmation: wire.RequiresConfirmation,
		Confidence:           wire.Confidence,
	}

	for _, a := range wire.Actions {
		plan.Actions = append(plan.Actions, model.SuggestedAction{
			Type:        model.ActionType(strings.ToLower(a.Type)),
			Entity:      model.EntityKind(strings.ToLower(a.Entity)),
			Description: a.Description,
			Payload: model.ActionPayload{
				Name:        a.Data.Name,
				Email:       a.Data.Email,
				Phone:       a.Data.Phone,
				Address:     a.Data.Address,
				Category:    a.Data.Category,
				Description: a.Data.Description,
				Search:      a.Data.Search,
				Type:        model.CategoryType(strings.ToLower(a.Data.Type)),
				ID:          coerceID(a.Data.ID),
			},
		})
	}

	return plan, true
}

// coerceID accepts the id as either a JSON number or a numeric string;
// models use both.
func coerceID(v any) int64 {
	switch id := v.(type) {
	case float64:
		return int64(id)
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}

const plannerSystemPrompt = "You are an action planner for an accounting assistant that manages payees and categories. You MUST respond with ONLY a valid JSON object, no markdown fences or commentary."

// buildPrompt creates the prompt for action planning.
func (p *Planner) buildPrompt(message string, classification model.IntentClassification, extraction model.EntityExtractionResult, pctx *PromptContext) string {
	entityDetails := ""
	for _, e := range extraction.Entities {
		entityDetails += fmt.Sprintf("- %s: %s (confidence %.2f)\n", e.Type, e.Value, e.Confidence)
	}
	if entityDetails == "" {
		entityDetails = "- none\n"
	}

	contextDetails := ""
	if pctx != nil {
		if len(pctx.KnownPayees) > 0 {
			contextDetails += fmt.Sprintf("Known payees: %s\n", strings.Join(pctx.KnownPayees, ", "))
		}
		if len(pctx.KnownCategories) > 0 {
			contextDetails += fmt.Sprintf("Known categories: %s\n", strings.Join(pctx.KnownCategories, ", "))
		}
	}

	return fmt.Sprintf(`Plan the response for a user request that was classified as "%s" (confidence %.2f).

User message: %s

Extracted entities:
%s
%s
Produce a short friendly acknowledgment and the CRUD actions to perform. For "help" or a read with no parameters, actions may be empty. Never propose actions for data the user did not provide.

Respond with this exact JSON shape:
{
  "message": "<acknowledgment for the user>",
  "actions": [{
    "type": "<create|read|update|delete>",
    "entity": "<payee|category>",
    "description": "<one line describing the action>",
    "data": {"name": "", "email": "", "phone": "", "address": "", "category": "", "description": "", "search": "", "type": "<income|expense, categories only>", "id": 0}
  }],
  "requiresConfirmation": <true when the user should approve before execution>,
  "confidence": <0.0-1.0>
}`,
		classification.Intent,
		classification.Confidence,
		message,
		entityDetails,
		contextDetails)
}
