package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/rapmendoza/ai-side-panel/internal/common"
	"github.com/rapmendoza/ai-side-panel/internal/model"
)

// DefaultMaxClarificationSteps bounds the clarification loop. The loop must
// terminate with an apology rather than asking forever.
const DefaultMaxClarificationSteps = 3

const (
	genericFollowUpQuestion = "Could you give me a bit more detail?"
	abandonMessage          = "I'm sorry, I couldn't gather enough information to complete this. Let's start over - tell me again what you'd like to do."
)

// ClarificationState is the state of a clarification exchange after a turn.
type ClarificationState int

// Clarification states.
const (
	// ClarificationResolved means required fields are satisfied; the caller
	// proceeds to planning with the merged data.
	ClarificationResolved ClarificationState = iota
	// ClarificationAwaiting means the user must answer another question.
	ClarificationAwaiting
	// ClarificationAbandoned means the turn budget ran out.
	ClarificationAbandoned
)

// ClarificationOutcome is the result of feeding one answer into the state
// machine.
type ClarificationOutcome struct {
	Question       string
	Message        string
	Classification model.IntentClassification
	Extraction     model.EntityExtractionResult
	State          ClarificationState
}

// ClarificationManager accumulates clarifying answers across turns until the
// original intent's required fields are satisfied or the turn budget is
// exhausted. It never hard-fails; its worst case is the abandon message.
type ClarificationManager struct {
	classifier *Classifier
	extractor  *Extractor
	logger     *slog.Logger
	maxSteps   int
}

// NewClarificationManager creates a clarification manager. maxSteps <= 0
// selects the default cap.
func NewClarificationManager(classifier *Classifier, extractor *Extractor, logger *slog.Logger, maxSteps int) *ClarificationManager {
	if maxSteps <= 0 {
		maxSteps = DefaultMaxClarificationSteps
	}
	return &ClarificationManager{
		classifier: classifier,
		extractor:  extractor,
		logger:     logger,
		maxSteps:   maxSteps,
	}
}

// Open creates a clarification context for a turn that needs follow-up,
// seeding the collected data with whatever was already extracted.
func (m *ClarificationManager) Open(message string, classification model.IntentClassification, extraction model.EntityExtractionResult) *model.ClarificationContext {
	collected := make(map[model.EntityType]string)
	for _, e := range extraction.Entities {
		if e.Value != "" && collected[e.Type] == "" {
			collected[e.Type] = e.Value
		}
	}
	for _, e := range classification.Entities {
		if e.Value != "" && collected[e.Type] == "" {
			collected[e.Type] = e.Value
		}
	}

	return &model.ClarificationContext{
		OriginalMessage:  message,
		Classification:   classification,
		Collected:        collected,
		PendingQuestions: classification.ClarificationQuestions,
		Step:             1,
	}
}

// FirstQuestion returns the opening question for a newly opened context.
func (m *ClarificationManager) FirstQuestion(cc *model.ClarificationContext) string {
	if len(cc.PendingQuestions) > 0 {
		return cc.PendingQuestions[0]
	}
	if missing := cc.Missing(); len(missing) > 0 {
		return missingFieldQuestion(cc.Classification.Intent, missing[0])
	}
	return genericFollowUpQuestion
}

// Resume feeds one clarifying answer into the state machine. The answer is
// merged by re-running the extractor against the original message augmented
// with every answer so far, then filling remaining gaps with keyword
// heuristics. The manager mutates cc in place.
func (m *ClarificationManager) Resume(ctx context.Context, cc *model.ClarificationContext, answer string, pctx *PromptContext) (ClarificationOutcome, error) {
	cc.Answers = append(cc.Answers, answer)
	augmented := cc.OriginalMessage + "\n" + strings.Join(cc.Answers, "\n")

	// A control intent means we never figured out what the user wants;
	// re-classify with the accumulated text before extracting.
	if cc.Classification.Intent.IsControl() {
		reclassified, err := m.classifier.Classify(ctx, augmented, pctx)
		if err != nil {
			return ClarificationOutcome{}, err
		}
		if !reclassified.Intent.IsControl() {
			m.logger.Debug("clarification resolved intent",
				"intent", reclassified.Intent,
				"confidence", reclassified.Confidence)
			cc.Classification = reclassified
			for _, e := range reclassified.Entities {
				if e.Value != "" && cc.Collected[e.Type] == "" {
					cc.Collected[e.Type] = e.Value
				}
			}
		}
	}

	var extraction model.EntityExtractionResult
	if !cc.Classification.Intent.IsControl() {
		if pctx == nil {
			pctx = &PromptContext{}
		}
		pctx.IntentConfidence = cc.Classification.Confidence

		var err error
		extraction, err = m.extractor.Extract(ctx, augmented, cc.Classification.Intent, pctx)
		if err != nil {
			return ClarificationOutcome{}, err
		}
		for _, e := range extraction.Entities {
			if e.Value != "" {
				cc.Collected[e.Type] = e.Value
			}
		}
	}

	// Keyword heuristics fill whatever the extractor left open.
	m.mergeHeuristics(cc, answer)

	if !cc.Classification.Intent.IsControl() && cc.Satisfied() {
		return ClarificationOutcome{
			State:          ClarificationResolved,
			Classification: cc.Classification,
			Extraction:     m.resolvedExtraction(cc, extraction),
		}, nil
	}

	cc.Step++
	if cc.Step > m.maxSteps {
		m.logger.Info("clarification abandoned",
			"error", common.ErrClarificationExhausted,
			"steps", cc.Step-1,
			"intent", cc.Classification.Intent)
		return ClarificationOutcome{
			State:   ClarificationAbandoned,
			Message: abandonMessage,
		}, nil
	}

	return ClarificationOutcome{
		State:    ClarificationAwaiting,
		Question: m.nextQuestion(cc),
	}, nil
}

// resolvedExtraction rebuilds the extraction result from the collected data
// so the planner sees every field gathered across turns.
func (m *ClarificationManager) resolvedExtraction(cc *model.ClarificationContext, last model.EntityExtractionResult) model.EntityExtractionResult {
	entities := make([]model.ExtractedEntity, 0, len(cc.Collected))
	for entityType, value := range cc.Collected {
		confidence := 0.9
		for _, e := range last.Entities {
			if e.Type == entityType && e.Value == value {
				confidence = e.Confidence
				break
			}
		}
		entities = append(entities, model.ExtractedEntity{
			Type:       entityType,
			Value:      value,
			Confidence: confidence,
		})
	}

	result := model.EntityExtractionResult{
		Entities:              entities,
		AmbiguousEntities:     last.AmbiguousEntities,
		MissingRequiredFields: []string{},
		Confidence:            last.Confidence,
	}
	if result.AmbiguousEntities == nil {
		result.AmbiguousEntities = []string{}
	}
	if result.Confidence == 0 {
		result.Confidence = m.extractor.policy.Blend(cc.Classification.Confidence, entities, 0)
	}
	return result
}

// nextQuestion picks the pending question for the current step, falling back
// to a targeted missing-field question and then to the generic follow-up.
func (m *ClarificationManager) nextQuestion(cc *model.ClarificationContext) string {
	if idx := cc.Step - 1; idx >= 0 && idx < len(cc.PendingQuestions) {
		return cc.PendingQuestions[idx]
	}
	if missing := cc.Missing(); len(missing) > 0 {
		return missingFieldQuestion(cc.Classification.Intent, missing[0])
	}
	return genericFollowUpQuestion
}

var (
	quotedValuePattern = regexp.MustCompile(`["'\x60]([^"'\x60]+)["'\x60]`)
	// Words that never make sense as a name guess.
	nameStopwords = map[string]bool{
		"a": true, "an": true, "the": true, "it": true, "its": true,
		"is": true, "was": true, "called": true, "named": true, "name": true,
		"payee": true, "payees": true, "vendor": true, "vendors": true,
		"category": true, "categories": true, "income": true, "expense": true,
		"new": true, "add": true, "create": true, "please": true, "yes": true,
		"no": true, "want": true, "i": true, "to": true, "my": true, "for": true,
	}
)

// mergeHeuristics applies the low-precision keyword fallbacks to one answer.
// Entity-kind and category-type keywords are both recorded when present, and
// entity-kind detection takes precedence over name guessing: the words
// "payee" and "category" are never consumed as candidate names.
func (m *ClarificationManager) mergeHeuristics(cc *model.ClarificationContext, answer string) {
	lower := strings.ToLower(answer)

	// Entity-kind keywords upgrade an unresolved intent.
	kindPayee := strings.Contains(lower, "payee") || strings.Contains(lower, "vendor") || strings.Contains(lower, "supplier")
	kindCategory := strings.Contains(lower, "category") || strings.Contains(lower, "categories")

	if cc.Classification.Intent.IsControl() && kindPayee != kindCategory {
		if kindPayee {
			cc.Classification.Intent = model.IntentCreatePayee
		} else {
			cc.Classification.Intent = model.IntentCreateCategory
		}
		cc.Classification.RequiresClarification = false
	}

	// Category-type keywords are recorded alongside the kind.
	if strings.Contains(lower, "income") {
		cc.Collected["categoryType"] = string(model.CategoryTypeIncome)
	} else if strings.Contains(lower, "expense") {
		cc.Collected["categoryType"] = string(model.CategoryTypeExpense)
	}

	if cc.Collected[model.EntityName] != "" {
		return
	}

	// Quoted substrings are the strongest name signal.
	if match := quotedValuePattern.FindStringSubmatch(answer); len(match) == 2 {
		if name := strings.TrimSpace(match[1]); name != "" {
			cc.Collected[model.EntityName] = name
			return
		}
	}

	// Last resort: the first token that is not a stopword or kind keyword.
	for _, token := range strings.Fields(answer) {
		cleaned := strings.Trim(token, `.,!?:;"'`)
		if cleaned == "" || nameStopwords[strings.ToLower(cleaned)] {
			continue
		}
		cc.Collected[model.EntityName] = cleaned
		return
	}
}

// missingFieldQuestion phrases a targeted question for one missing field.
func missingFieldQuestion(intent model.Intent, field model.EntityType) string {
	kind := "record"
	if k, ok := intent.EntityKind(); ok {
		kind = string(k)
	}
	switch field {
	case model.EntityName:
		return fmt.Sprintf("What is the name of the %s?", kind)
	case model.EntityID:
		return fmt.Sprintf("Which %s do you mean? A name or id would help.", kind)
	default:
		return fmt.Sprintf("What %s should I use for the %s?", field, kind)
	}
}
