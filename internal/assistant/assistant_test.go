package assistant

import (
	"context"
	"errors"
	"testing"

	"github.com/rapmendoza/ai-side-panel/internal/common"
	"github.com/rapmendoza/ai-side-panel/internal/conversation"
	"github.com/rapmendoza/ai-side-panel/internal/llm"
	"github.com/rapmendoza/ai-side-panel/internal/model"
	"github.com/rapmendoza/ai-side-panel/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAssistant(client *stubClient, store *memStorage) *Assistant {
	cfg := DefaultConfig()
	cfg.Retry = fastRetry()
	return New(client, nil, store, conversation.NewStore(0), testLogger(), cfg)
}

func TestProcessMessageRejectsEmptyInput(t *testing.T) {
	a := newTestAssistant(&stubClient{}, newMemStorage())

	for _, message := range []string{"", "   ", "\n\t"} {
		_, err := a.ProcessMessage(context.Background(), testOwner, "", message)
		require.Error(t, err)
		assert.True(t, errors.Is(err, common.ErrInvalidInput))
	}
}

func TestProcessMessageCreatePayeeEndToEnd(t *testing.T) {
	client := &stubClient{
		classifierJSON: `{"intent": "create_payee", "confidence": 0.95, "entities": [{"type": "name", "value": "Acme Corp", "confidence": 0.95}]}`,
		extractorJSON:  `{"entities": [{"type": "name", "value": "Acme Corp", "confidence": 0.95}], "ambiguousEntities": []}`,
		plannerJSON: `{
			"message": "Added Acme Corp to your payees.",
			"actions": [{"type": "create", "entity": "payee", "description": "Create payee Acme Corp", "data": {"name": "Acme Corp"}}],
			"requiresConfirmation": false,
			"confidence": 0.95
		}`,
	}
	store := newMemStorage()
	a := newTestAssistant(client, store)

	result, err := a.ProcessMessage(context.Background(), testOwner, "", "add Acme Corp as a payee")
	require.NoError(t, err)

	assert.Equal(t, ResultResponse, result.Type)
	assert.NotEmpty(t, result.ConversationID, "a conversation id is minted when none is supplied")
	assert.False(t, result.NeedsClarification)
	require.Len(t, result.ExecutedActions, 1)
	assert.True(t, result.ExecutedActions[0].Success)

	payees, err := store.GetPayees(context.Background(), testOwner, service.PayeeFilter{})
	require.NoError(t, err)
	require.Len(t, payees, 1)
	assert.Equal(t, "Acme Corp", payees[0].Name)

	conv, ok := a.Conversation(result.ConversationID)
	require.True(t, ok)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, model.RoleUser, conv.Messages[0].Role)
	assert.Equal(t, model.RoleAssistant, conv.Messages[1].Role)
}

func TestProcessMessageClarificationRoundTrip(t *testing.T) {
	client := &stubClient{
		classifierJSON: `{
			"intent": "create_payee",
			"confidence": 0.9,
			"entities": [],
			"requiresClarification": true,
			"clarificationQuestions": ["What is the payee's name?"]
		}`,
		extractorJSON: `{"entities": [{"type": "name", "value": "Acme Corp", "confidence": 0.95}], "ambiguousEntities": []}`,
		plannerJSON: `{
			"message": "Added it.",
			"actions": [{"type": "create", "entity": "payee", "description": "Create payee", "data": {"name": "Acme Corp"}}],
			"requiresConfirmation": false,
			"confidence": 0.95
		}`,
	}
	store := newMemStorage()
	a := newTestAssistant(client, store)

	first, err := a.ProcessMessage(context.Background(), testOwner, "", "add a new payee")
	require.NoError(t, err)

	assert.Equal(t, ResultClarification, first.Type)
	assert.True(t, first.NeedsClarification)
	assert.Equal(t, "What is the payee's name?", first.Message)

	// The follow-up message on the same conversation is treated as the
	// clarifying answer. The quoted name resolves the exchange.
	second, err := a.ProcessMessage(context.Background(), testOwner, first.ConversationID, `it's called "Acme Corp"`)
	require.NoError(t, err)

	assert.Equal(t, ResultResponse, second.Type)
	assert.False(t, second.NeedsClarification)
	require.Len(t, second.ExecutedActions, 1)
	assert.True(t, second.ExecutedActions[0].Success)

	payees, err := store.GetPayees(context.Background(), testOwner, service.PayeeFilter{})
	require.NoError(t, err)
	require.Len(t, payees, 1)
}

func TestProcessClarificationValidation(t *testing.T) {
	a := newTestAssistant(&stubClient{}, newMemStorage())

	t.Run("empty answer", func(t *testing.T) {
		_, err := a.ProcessClarification(context.Background(), testOwner, "conv-1", "  ")
		assert.True(t, errors.Is(err, common.ErrInvalidInput))
	})

	t.Run("missing conversation id", func(t *testing.T) {
		_, err := a.ProcessClarification(context.Background(), testOwner, "", "Acme")
		assert.True(t, errors.Is(err, common.ErrInvalidInput))
	})

	t.Run("no open clarification", func(t *testing.T) {
		_, err := a.ProcessClarification(context.Background(), testOwner, "conv-x", "Acme")
		assert.True(t, errors.Is(err, common.ErrInvalidInput))
	})
}

func TestProcessMessageDeleteRequiresConfirmation(t *testing.T) {
	client := &stubClient{
		classifierJSON: `{"intent": "delete_payee", "confidence": 0.99, "entities": [{"type": "name", "value": "Acme", "confidence": 0.95}, {"type": "id", "value": "3", "confidence": 0.9}]}`,
		extractorJSON:  `{"entities": [{"type": "name", "value": "Acme", "confidence": 0.95}, {"type": "id", "value": "3", "confidence": 0.9}], "ambiguousEntities": []}`,
		plannerJSON: `{
			"message": "This will delete Acme.",
			"actions": [{"type": "delete", "entity": "payee", "description": "Delete payee Acme", "data": {"id": 3}}],
			"requiresConfirmation": false,
			"confidence": 0.99
		}`,
	}
	store := newMemStorage()
	_, err := store.CreatePayee(context.Background(), &model.Payee{OwnerID: testOwner, Name: "Acme"})
	require.NoError(t, err)

	a := newTestAssistant(client, store)

	result, err := a.ProcessMessage(context.Background(), testOwner, "", "delete payee Acme, id 3")
	require.NoError(t, err)

	assert.True(t, result.RequiresConfirmation,
		"a delete must never auto-execute, even at 0.99 confidence")
	assert.Empty(t, result.ExecutedActions)
	require.Len(t, result.SuggestedActions, 1)

	payees, err := store.GetPayees(context.Background(), testOwner, service.PayeeFilter{})
	require.NoError(t, err)
	assert.Len(t, payees, 1, "the payee must still exist")
}

func TestProcessMessageSurfacesAIOutage(t *testing.T) {
	client := &stubClient{
		completeFn: func(_ context.Context, _ llm.CompletionRequest) (string, error) {
			return "", common.ErrAIUnavailable
		},
	}
	a := newTestAssistant(client, newMemStorage())

	_, err := a.ProcessMessage(context.Background(), testOwner, "", "add Acme")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrAIUnavailable))
}

func TestClearConversation(t *testing.T) {
	client := &stubClient{
		classifierJSON: `{"intent": "help", "confidence": 1.0}`,
		extractorJSON:  `{"entities": [], "ambiguousEntities": []}`,
		plannerJSON:    `{"message": "I can manage payees and categories for you.", "actions": [], "requiresConfirmation": false, "confidence": 1.0}`,
	}
	a := newTestAssistant(client, newMemStorage())

	result, err := a.ProcessMessage(context.Background(), testOwner, "", "help")
	require.NoError(t, err)

	assert.True(t, a.ClearConversation(result.ConversationID))
	assert.False(t, a.ClearConversation(result.ConversationID), "second delete reports absence")

	_, ok := a.Conversation(result.ConversationID)
	assert.False(t, ok)
}

func TestProcessMessageAbandonsAfterBudget(t *testing.T) {
	client := &stubClient{
		classifierJSON: `{"intent": "unknown", "confidence": 0.1, "requiresClarification": true}`,
		extractorJSON:  `{"entities": [], "ambiguousEntities": []}`,
	}
	cfg := DefaultConfig()
	cfg.Retry = fastRetry()
	cfg.MaxClarificationSteps = 2
	a := New(client, nil, newMemStorage(), conversation.NewStore(0), testLogger(), cfg)

	first, err := a.ProcessMessage(context.Background(), testOwner, "", "zzzzz")
	require.NoError(t, err)
	require.Equal(t, ResultClarification, first.Type)

	second, err := a.ProcessMessage(context.Background(), testOwner, first.ConversationID, "the")
	require.NoError(t, err)
	require.Equal(t, ResultClarification, second.Type)

	third, err := a.ProcessMessage(context.Background(), testOwner, first.ConversationID, "a")
	require.NoError(t, err)

	assert.Equal(t, ResultResponse, third.Type)
	assert.Equal(t, abandonMessage, third.Message)
	assert.Empty(t, third.ExecutedActions)

	// The slate is clean: the next message starts a fresh exchange.
	fourth, err := a.ProcessMessage(context.Background(), testOwner, first.ConversationID, "zzzzz")
	require.NoError(t, err)
	assert.Equal(t, ResultClarification, fourth.Type)
}
