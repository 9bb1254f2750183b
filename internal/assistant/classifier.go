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

// genericRephraseQuestion is the clarification question used whenever the
// model's output cannot be trusted.
const genericRephraseQuestion = "I didn't quite catch that. Could you rephrase what you'd like to do with your payees or categories?"

// PromptContext carries optional read-only context that biases a
// classification or extraction call. It never changes the intent vocabulary.
type PromptContext struct {
	KnownPayees      []string
	KnownCategories  []string
	RecentMessages   []model.ChatMessage
	IntentConfidence float64
}

// Classifier maps raw user text to one of a fixed set of intents with a
// confidence score and optional clarification questions.
type Classifier struct {
	client    llm.Client
	limiter   *llm.RateLimiter
	logger    *slog.Logger
	retryOpts service.RetryOptions
}

// NewClassifier creates a classifier backed by the given LLM client.
func NewClassifier(client llm.Client, limiter *llm.RateLimiter, logger *slog.Logger, retryOpts service.RetryOptions) *Classifier {
	return &Classifier{
		client:    client,
		limiter:   limiter,
		logger:    logger,
		retryOpts: retryOpts,
	}
}

// Classify determines the user's intent from free text. Malformed model
// output never surfaces as an error: it degrades to the unknown intent with
// clarification required. An unavailable completion service does surface,
// wrapping common.ErrAIUnavailable, so callers can distinguish an outage
// from user ambiguity.
func (c *Classifier) Classify(ctx context.Context, message string, pctx *PromptContext) (model.IntentClassification, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return model.IntentClassification{}, fmt.Errorf("rate limit error: %w", err)
		}
	}

	prompt := c.buildPrompt(message, pctx)

	var raw string
	err := common.WithRetry(ctx, func() error {
		response, completeErr := c.client.Complete(ctx, llm.CompletionRequest{
			System: classifierSystemPrompt,
			Prompt: prompt,
		})
		if completeErr != nil {
			c.logger.Warn("classification attempt failed", "error", completeErr)
			return &common.RetryableError{Err: completeErr, Retryable: common.IsRetryable(completeErr)}
		}
		raw = response
		return nil
	}, c.retryOpts)

	if err != nil {
		return model.IntentClassification{}, fmt.Errorf("classification failed: %w", err)
	}

	classification, ok := parseClassification(raw)
	if !ok {
		c.logger.Warn("malformed classification response, failing soft",
			"error", common.ErrMalformedResponse,
			"response_length", len(raw))
		return failSoftClassification(), nil
	}

	classification = normalizeClassification(classification)

	c.logger.Debug("message classified",
		"intent", classification.Intent,
		"confidence", classification.Confidence,
		"entity_count", len(classification.Entities),
		"requires_clarification", classification.RequiresClarification)

	return classification, nil
}

// failSoftClassification is the safe default returned when the model's
// output cannot be parsed. It guarantees the pipeline asks for clarification
// instead of acting on garbage.
func failSoftClassification() model.IntentClassification {
	return model.IntentClassification{
		Intent:                 model.IntentUnknown,
		Confidence:             0,
		Entities:               []model.ExtractedEntity{},
		RequiresClarification:  true,
		ClarificationQuestions: []string{genericRephraseQuestion},
	}
}

// parseClassification decodes a model completion into a classification.
// Returns false when the content is not a usable structured response.
func parseClassification(content string) (model.IntentClassification, bool) {
	content = llm.CleanMarkdownWrapper(content)

	var wire struct {
		Intent                 string                  `json:"intent"`
		Confidence             float64                 `json:"confidence"`
		Entities               []model.ExtractedEntity `json:"entities"`
		RequiresClarification  bool                    `json:"requiresClarification"`
		ClarificationQuestions []string                `json:"clarificationQuestions"`
	}

	if err := json.Unmarshal([]byte(content), &wire); err != nil {
		// Models occasionally wrap the JSON in commentary; try to recover
		// the first balanced object before giving up.
		embedded := llm.ExtractJSONObject(content)
		if embedded == "" {
			return model.IntentClassification{}, false
		}
		if err := json.Unmarshal([]byte(embedded), &wire); err != nil {
			return model.IntentClassification{}, false
		}
	}

	intent := model.Intent(strings.ToLower(strings.TrimSpace(wire.Intent)))
	if !intent.IsValid() {
		return model.IntentClassification{}, false
	}

	return model.IntentClassification{
		Intent:                 intent,
		Confidence:             wire.Confidence,
		Entities:               wire.Entities,
		RequiresClarification:  wire.RequiresClarification,
		ClarificationQuestions: wire.ClarificationQuestions,
	}, true
}

// normalizeClassification enforces the output invariants: confidence bounds,
// non-nil slices, and clarification always flagged for the clarify intent.
func normalizeClassification(c model.IntentClassification) model.IntentClassification {
	c.Confidence = clamp01(c.Confidence)

	if c.Entities == nil {
		c.Entities = []model.ExtractedEntity{}
	}
	for i := range c.Entities {
		c.Entities[i].Confidence = clamp01(c.Entities[i].Confidence)
	}

	if c.Intent == model.IntentClarify || c.Intent == model.IntentUnknown {
		c.RequiresClarification = true
	}
	if c.RequiresClarification && len(c.ClarificationQuestions) == 0 {
		c.ClarificationQuestions = []string{genericRephraseQuestion}
	}

	return c
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

const classifierSystemPrompt = "You are an intent classifier for an accounting assistant that manages payees and categories. You MUST respond with ONLY a valid JSON object. Do not include any explanatory text, markdown formatting, or commentary before or after the JSON. Start your response directly with { and end with }."

// buildPrompt creates the prompt for intent classification.
func (c *Classifier) buildPrompt(message string, pctx *PromptContext) string {
	contextDetails := ""
	if pctx != nil {
		if len(pctx.KnownPayees) > 0 {
			contextDetails += fmt.Sprintf("Known payees: %s\n", strings.Join(pctx.KnownPayees, ", "))
		}
		if len(pctx.KnownCategories) > 0 {
			contextDetails += fmt.Sprintf("Known categories: %s\n", strings.Join(pctx.KnownCategories, ", "))
		}
		if len(pctx.RecentMessages) > 0 {
			contextDetails += "Recent conversation:\n"
			for _, msg := range pctx.RecentMessages {
				contextDetails += fmt.Sprintf("%s: %s\n", msg.Role, msg.Content)
			}
		}
	}

	intentList := make([]string, len(model.AllIntents))
	for i, intent := range model.AllIntents {
		intentList[i] = string(intent)
	}

	return fmt.Sprintf(`Classify the user's message into exactly one intent.

Valid intents: %s

Payees are vendors or people money is paid to or received from. Categories group income or expenses. Words like "vendor", "supplier", "contact" refer to payees.

%s
User message: %s

Respond with this exact JSON shape:
{
  "intent": "<one of the valid intents>",
  "confidence": <0.0-1.0>,
  "entities": [{"type": "<name|email|phone|address|category|id|description>", "value": "<extracted text>", "confidence": <0.0-1.0>}],
  "requiresClarification": <true if the message is ambiguous or incomplete>,
  "clarificationQuestions": ["<question to ask the user, if any>"]
}

Use the "clarify" intent when the user clearly wants something but you cannot tell whether they mean a payee or a category. Use "unknown" when the message is unrelated to payees or categories. Ask a question that offers the payee/category choice when that is the ambiguity.`,
		strings.Join(intentList, ", "),
		contextDetails,
		message)
}
