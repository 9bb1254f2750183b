package model

import "time"

// MessageRole identifies the author of a chat message.
type MessageRole string

// Message role constants.
const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// ChatMessage is a single turn in a conversation.
type ChatMessage struct {
	CreatedAt time.Time   `json:"createdAt"`
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
}

// Conversation holds the ordered, append-only message history for one chat
// session. Only a bounded recent window is ever fed back into prompts.
type Conversation struct {
	LastActivity time.Time     `json:"lastActivity"`
	ID           string        `json:"id"`
	Messages     []ChatMessage `json:"messages"`
}

// RecentWindow returns up to n of the most recent messages in order.
func (c *Conversation) RecentWindow(n int) []ChatMessage {
	if n <= 0 || len(c.Messages) == 0 {
		return nil
	}
	if len(c.Messages) <= n {
		out := make([]ChatMessage, len(c.Messages))
		copy(out, c.Messages)
		return out
	}
	out := make([]ChatMessage, n)
	copy(out, c.Messages[len(c.Messages)-n:])
	return out
}

// ClarificationContext accumulates answers across turns until the original
// intent's required fields are satisfied or the turn budget runs out. Each
// conversation owns at most one live context.
type ClarificationContext struct {
	Collected        map[EntityType]string
	OriginalMessage  string
	Classification   IntentClassification
	PendingQuestions []string
	Answers          []string
	Step             int
}

// Satisfied reports whether every required field of the original intent has
// a non-empty collected value.
func (cc *ClarificationContext) Satisfied() bool {
	for _, field := range cc.Classification.Intent.RequiredFields() {
		if cc.Collected[field] == "" {
			return false
		}
	}
	return true
}

// Missing returns the required fields that still have no collected value.
func (cc *ClarificationContext) Missing() []EntityType {
	var missing []EntityType
	for _, field := range cc.Classification.Intent.RequiredFields() {
		if cc.Collected[field] == "" {
			missing = append(missing, field)
		}
	}
	return missing
}
