package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rapmendoza/ai-side-panel/internal/common"
	"github.com/rapmendoza/ai-side-panel/internal/llm"
	"github.com/rapmendoza/ai-side-panel/internal/model"
	"github.com/rapmendoza/ai-side-panel/internal/service"
)

// Extractor pulls structured field values out of user text for a known
// intent. It is a pure function of its inputs plus the completion call.
type Extractor struct {
	client    llm.Client
	limiter   *llm.RateLimiter
	logger    *slog.Logger
	policy    ScoringPolicy
	retryOpts service.RetryOptions
}

// NewExtractor creates an extractor backed by the given LLM client.
func NewExtractor(client llm.Client, limiter *llm.RateLimiter, logger *slog.Logger, policy ScoringPolicy, retryOpts service.RetryOptions) *Extractor {
	return &Extractor{
		client:    client,
		limiter:   limiter,
		logger:    logger,
		policy:    policy,
		retryOpts: retryOpts,
	}
}

// Extract returns the typed entities found in the message together with the
// intent's unmet required fields. Malformed model output fails soft to an
// empty result that reports the full required-field set; only completion
// service unavailability surfaces as an error.
func (e *Extractor) Extract(ctx context.Context, message string, intent model.Intent, pctx *PromptContext) (model.EntityExtractionResult, error) {
	required := intent.RequiredFields()

	// Control intents have nothing to extract.
	if intent.IsControl() {
		return model.EntityExtractionResult{
			Entities:              []model.ExtractedEntity{},
			AmbiguousEntities:     []string{},
			MissingRequiredFields: []string{},
		}, nil
	}

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return model.EntityExtractionResult{}, fmt.Errorf("rate limit error: %w", err)
		}
	}

	prompt := e.buildPrompt(message, intent, pctx)

	var raw string
	err := common.WithRetry(ctx, func() error {
		response, completeErr := e.client.Complete(ctx, llm.CompletionRequest{
			System: extractorSystemPrompt,
			Prompt: prompt,
		})
		if completeErr != nil {
			e.logger.Warn("extraction attempt failed", "error", completeErr, "intent", intent)
			return &common.RetryableError{Err: completeErr, Retryable: common.IsRetryable(completeErr)}
		}
		raw = response
		return nil
	}, e.retryOpts)

	if err != nil {
		return model.EntityExtractionResult{}, fmt.Errorf("extraction failed: %w", err)
	}

	entities, ambiguous, ok := parseExtraction(raw)
	if !ok {
		e.logger.Warn("malformed extraction response, failing soft",
			"error", common.ErrMalformedResponse,
			"intent", intent)
		return failSoftExtraction(required), nil
	}

	result := e.assemble(intent, entities, ambiguous)

	intentConfidence := 0.0
	if pctx != nil {
		intentConfidence = pctx.IntentConfidence
	}
	result.Confidence = e.policy.Blend(intentConfidence, result.Entities, len(result.MissingRequiredFields))

	e.logger.Debug("entities extracted",
		"intent", intent,
		"entity_count", len(result.Entities),
		"missing_fields", result.MissingRequiredFields,
		"confidence", result.Confidence)

	return result, nil
}

// assemble computes the structural missing-field diff for the intent. A
// field counts as present only when an entity of that type carries a
// non-empty value.
func (e *Extractor) assemble(intent model.Intent, entities []model.ExtractedEntity, ambiguous []string) model.EntityExtractionResult {
	result := model.EntityExtractionResult{
		Entities:              entities,
		AmbiguousEntities:     ambiguous,
		MissingRequiredFields: []string{},
	}
	if result.Entities == nil {
		result.Entities = []model.ExtractedEntity{}
	}
	if result.AmbiguousEntities == nil {
		result.AmbiguousEntities = []string{}
	}

	present := result.PresentFields()
	for _, field := range intent.RequiredFields() {
		if !present[field] {
			result.MissingRequiredFields = append(result.MissingRequiredFields, string(field))
		}
	}

	return result
}

// failSoftExtraction is the safe default for unparseable model output: no
// entities, zero confidence, and every required field reported missing.
func failSoftExtraction(required []model.EntityType) model.EntityExtractionResult {
	missing := make([]string, len(required))
	for i, f := range required {
		missing[i] = string(f)
	}
	return model.EntityExtractionResult{
		Entities:              []model.ExtractedEntity{},
		AmbiguousEntities:     []string{},
		MissingRequiredFields: missing,
		Confidence:            0,
	}
}

// parseExtraction decodes a model completion into entities. Returns false
// when the content is not a usable structured response.
func parseExtraction(content string) (entities []model.ExtractedEntity, ambiguous []string, ok bool) {
	content = llm.CleanMarkdownWrapper(content)

	var wire struct {
		Entities          []model.ExtractedEntity `json:"entities"`
		AmbiguousEntities []string                `json:"ambiguousEntities"`
	}

	if err := json.Unmarshal([]byte(content), &wire); err != nil {
		embedded := llm.ExtractJSONObject(content)
		if embedded == "" {
			return nil, nil, false
		}
		if err := json.Unmarshal([]byte(embedded), &wire); err != nil {
			return nil, nil, false
		}
	}

	// Drop entities of unrecognized types; the type space is closed.
	valid := wire.Entities[:0]
	for _, ent := range wire.Entities {
		switch ent.Type {
		case model.EntityName, model.EntityEmail, model.EntityPhone, model.EntityAddress,
			model.EntityCategory, model.EntityID, model.EntityDescription:
			ent.Confidence = clamp01(ent.Confidence)
			valid = append(valid, ent)
		}
	}

	return valid, wire.AmbiguousEntities, true
}

const extractorSystemPrompt = "You are an entity extractor for an accounting assistant. You MUST respond with ONLY a valid JSON object, no markdown fences or commentary."

// buildPrompt creates the prompt for entity extraction.
func (e *Extractor) buildPrompt(message string, intent model.Intent, pctx *PromptContext) string {
	contextDetails := ""
	if pctx != nil {
		if len(pctx.KnownPayees) > 0 {
			contextDetails += fmt.Sprintf("Known payees: %s\n", strings.Join(pctx.KnownPayees, ", "))
		}
		if len(pctx.KnownCategories) > 0 {
			contextDetails += fmt.Sprintf("Known categories: %s\n", strings.Join(pctx.KnownCategories, ", "))
		}
	}

	required := intent.RequiredFields()
	requiredList := make([]string, len(required))
	for i, f := range required {
		requiredList[i] = string(f)
	}

	return fmt.Sprintf(`Extract structured entities from the user's message for the intent "%s".

Entity types: name, email, phone, address, category, id, description.
Required for this intent: [%s]

%s
User message: %s

Rules:
- Only extract values actually present in the message; never invent values.
- If a value could refer to more than one known record, list it in ambiguousEntities.
- "id" is a numeric record identifier when the user mentions one.

Respond with this exact JSON shape:
{
  "entities": [{"type": "<entity type>", "value": "<extracted text>", "confidence": <0.0-1.0>, "context": "<surrounding phrase, optional>"}],
  "ambiguousEntities": ["<value that matched multiple known records>"]
}`,
		intent,
		strings.Join(requiredList, ", "),
		contextDetails,
		message)
}
