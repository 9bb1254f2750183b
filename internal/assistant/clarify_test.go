package assistant

import (
	"context"
	"testing"

	"github.com/rapmendoza/ai-side-panel/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClarifier(client *stubClient, maxSteps int) *ClarificationManager {
	classifier := NewClassifier(client, nil, testLogger(), fastRetry())
	extractor := NewExtractor(client, nil, testLogger(), DefaultScoringPolicy(), fastRetry())
	return NewClarificationManager(classifier, extractor, testLogger(), maxSteps)
}

func TestOpenSeedsCollectedData(t *testing.T) {
	m := newTestClarifier(&stubClient{}, 0)

	classification := model.IntentClassification{
		Intent:                 model.IntentCreatePayee,
		Confidence:             0.7,
		RequiresClarification:  true,
		ClarificationQuestions: []string{"What email should I use?"},
		Entities: []model.ExtractedEntity{
			{Type: model.EntityEmail, Value: "a@b.com", Confidence: 0.8},
		},
	}
	extraction := model.EntityExtractionResult{
		Entities: []model.ExtractedEntity{
			{Type: model.EntityName, Value: "Acme", Confidence: 0.9},
		},
	}

	cc := m.Open("add Acme, email a@b.com", classification, extraction)

	assert.Equal(t, "Acme", cc.Collected[model.EntityName])
	assert.Equal(t, "a@b.com", cc.Collected[model.EntityEmail])
	assert.Equal(t, 1, cc.Step)
	assert.Equal(t, "What email should I use?", m.FirstQuestion(cc))
}

func TestFirstQuestionFallsBackToMissingField(t *testing.T) {
	m := newTestClarifier(&stubClient{}, 0)

	cc := m.Open("add a payee", model.IntentClassification{
		Intent:                model.IntentCreatePayee,
		RequiresClarification: true,
	}, model.EntityExtractionResult{})

	assert.Equal(t, "What is the name of the payee?", m.FirstQuestion(cc))
}

func TestResumeResolvesWithQuotedName(t *testing.T) {
	// The quoted-name heuristic must fill the gap even when the extractor
	// returns nothing useful.
	client := &stubClient{extractorJSON: `{"entities": [], "ambiguousEntities": []}`}
	m := newTestClarifier(client, 0)

	cc := m.Open("add a new payee", model.IntentClassification{
		Intent:                model.IntentCreatePayee,
		Confidence:            0.8,
		RequiresClarification: true,
	}, model.EntityExtractionResult{MissingRequiredFields: []string{"name"}})

	outcome, err := m.Resume(context.Background(), cc, `it's called "Acme Corp"`, nil)
	require.NoError(t, err)

	assert.Equal(t, ClarificationResolved, outcome.State)
	assert.Equal(t, "Acme Corp", cc.Collected[model.EntityName])

	var name string
	for _, e := range outcome.Extraction.Entities {
		if e.Type == model.EntityName {
			name = e.Value
		}
	}
	assert.Equal(t, "Acme Corp", name)
	assert.Empty(t, outcome.Extraction.MissingRequiredFields)
}

func TestResumePrefersExtractorOverHeuristics(t *testing.T) {
	client := &stubClient{
		extractorJSON: `{"entities": [{"type": "name", "value": "Globex Industries", "confidence": 0.95}], "ambiguousEntities": []}`,
	}
	m := newTestClarifier(client, 0)

	cc := m.Open("add a new payee", model.IntentClassification{
		Intent:                model.IntentCreatePayee,
		Confidence:            0.8,
		RequiresClarification: true,
	}, model.EntityExtractionResult{MissingRequiredFields: []string{"name"}})

	outcome, err := m.Resume(context.Background(), cc, "Globex Industries please", nil)
	require.NoError(t, err)

	assert.Equal(t, ClarificationResolved, outcome.State)
	assert.Equal(t, "Globex Industries", cc.Collected[model.EntityName])
}

func TestResumeTieBreakRecordsKindAndType(t *testing.T) {
	// When the answer names both the entity kind and a category type, both
	// are recorded, and the kind keyword is never consumed as a name.
	client := &stubClient{
		classifierJSON: `{"intent": "unknown", "confidence": 0.2, "requiresClarification": true}`,
		extractorJSON:  `{"entities": [], "ambiguousEntities": []}`,
	}
	m := newTestClarifier(client, 0)

	cc := m.Open("add Consulting", model.IntentClassification{
		Intent:                model.IntentClarify,
		Confidence:            0.4,
		RequiresClarification: true,
	}, model.EntityExtractionResult{})

	outcome, err := m.Resume(context.Background(), cc, `an income category called "Consulting"`, nil)
	require.NoError(t, err)

	assert.Equal(t, model.IntentCreateCategory, cc.Classification.Intent)
	assert.Equal(t, string(model.CategoryTypeIncome), cc.Collected["categoryType"])
	assert.Equal(t, "Consulting", cc.Collected[model.EntityName])
	assert.NotEqual(t, "category", cc.Collected[model.EntityName])
	assert.Equal(t, ClarificationResolved, outcome.State)
}

func TestResumeKindKeywordUpgradesControlIntent(t *testing.T) {
	client := &stubClient{
		classifierJSON: `{"intent": "clarify", "confidence": 0.3, "requiresClarification": true}`,
		extractorJSON:  `{"entities": [], "ambiguousEntities": []}`,
	}
	m := newTestClarifier(client, 0)

	cc := m.Open("add Acme", model.IntentClassification{
		Intent:                model.IntentClarify,
		Confidence:            0.4,
		RequiresClarification: true,
		Entities: []model.ExtractedEntity{
			{Type: model.EntityName, Value: "Acme", Confidence: 0.8},
		},
	}, model.EntityExtractionResult{})

	outcome, err := m.Resume(context.Background(), cc, "a payee", nil)
	require.NoError(t, err)

	assert.Equal(t, model.IntentCreatePayee, cc.Classification.Intent)
	assert.Equal(t, "Acme", cc.Collected[model.EntityName], "kind keyword must not overwrite the name")
	assert.Equal(t, ClarificationResolved, outcome.State)
}

func TestResumeReclassifiesControlIntent(t *testing.T) {
	client := &stubClient{
		classifierJSON: `{"intent": "create_payee", "confidence": 0.85, "entities": [{"type": "name", "value": "Initech", "confidence": 0.9}]}`,
		extractorJSON:  `{"entities": [{"type": "name", "value": "Initech", "confidence": 0.9}], "ambiguousEntities": []}`,
	}
	m := newTestClarifier(client, 0)

	cc := m.Open("do the thing", model.IntentClassification{
		Intent:                model.IntentUnknown,
		RequiresClarification: true,
	}, model.EntityExtractionResult{})

	outcome, err := m.Resume(context.Background(), cc, "add Initech as a payee", nil)
	require.NoError(t, err)

	assert.Equal(t, model.IntentCreatePayee, cc.Classification.Intent)
	assert.Equal(t, ClarificationResolved, outcome.State)
	assert.Equal(t, "Initech", cc.Collected[model.EntityName])
}

func TestResumeAwaitsWhenStillIncomplete(t *testing.T) {
	client := &stubClient{extractorJSON: `{"entities": [], "ambiguousEntities": []}`}
	m := newTestClarifier(client, 3)

	cc := m.Open("update the payee", model.IntentClassification{
		Intent:                model.IntentUpdatePayee,
		Confidence:            0.8,
		RequiresClarification: true,
	}, model.EntityExtractionResult{MissingRequiredFields: []string{"name", "id"}})

	outcome, err := m.Resume(context.Background(), cc, `the one called "Acme"`, nil)
	require.NoError(t, err)

	// Name is collected but the id is still missing.
	assert.Equal(t, ClarificationAwaiting, outcome.State)
	assert.NotEmpty(t, outcome.Question)
	assert.Equal(t, 2, cc.Step)
}

func TestResumeAbandonsAfterMaxSteps(t *testing.T) {
	client := &stubClient{extractorJSON: `{"entities": [], "ambiguousEntities": []}`}
	m := newTestClarifier(client, 2)

	cc := m.Open("update the payee", model.IntentClassification{
		Intent:                model.IntentUpdatePayee,
		Confidence:            0.8,
		RequiresClarification: true,
	}, model.EntityExtractionResult{MissingRequiredFields: []string{"name", "id"}})

	outcome, err := m.Resume(context.Background(), cc, "hmm", nil)
	require.NoError(t, err)
	require.Equal(t, ClarificationAwaiting, outcome.State)

	outcome, err = m.Resume(context.Background(), cc, "not sure", nil)
	require.NoError(t, err)

	assert.Equal(t, ClarificationAbandoned, outcome.State)
	assert.Equal(t, abandonMessage, outcome.Message)
}

func TestNextQuestionWalksPendingList(t *testing.T) {
	m := newTestClarifier(&stubClient{}, 0)

	cc := &model.ClarificationContext{
		Classification: model.IntentClassification{Intent: model.IntentCreatePayee},
		Collected:      map[model.EntityType]string{},
		PendingQuestions: []string{
			"First question?",
			"Second question?",
		},
		Step: 2,
	}

	assert.Equal(t, "Second question?", m.nextQuestion(cc))

	cc.Step = 3
	assert.Equal(t, "What is the name of the payee?", m.nextQuestion(cc))
}
