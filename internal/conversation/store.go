// Package conversation provides the process-local store for chat histories
// and their clarification state. Each conversation is single-writer: turns
// for the same id are serialized through the store's per-conversation lock.
package conversation

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rapmendoza/ai-side-panel/internal/model"
)

// DefaultWindow is the number of recent messages fed back into prompts.
const DefaultWindow = 10

type entry struct {
	conv          model.Conversation
	clarification *model.ClarificationContext
	mu            sync.Mutex
}

// Store maps conversation ids to their message history and at most one live
// clarification context each.
type Store struct {
	entries map[string]*entry
	window  int
	mu      sync.Mutex
}

// NewStore creates an empty store. window <= 0 selects the default recent
// window size.
func NewStore(window int) *Store {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Store{
		entries: make(map[string]*entry),
		window:  window,
	}
}

// Handle is exclusive access to one conversation. Callers must Release it
// when the turn is done; holding the handle is what prevents two turns of
// the same conversation from interleaving.
type Handle struct {
	entry *entry
	store *Store
}

// Acquire locks the conversation with the given id, creating it first if
// needed. An empty id allocates a fresh conversation.
func (s *Store) Acquire(id string) *Handle {
	if id == "" {
		id = uuid.New().String()
	}

	s.mu.Lock()
	e, ok := s.entries[id]
	if !ok {
		e = &entry{
			conv: model.Conversation{
				ID:           id,
				LastActivity: time.Now(),
			},
		}
		s.entries[id] = e
	}
	s.mu.Unlock()

	e.mu.Lock()
	return &Handle{entry: e, store: s}
}

// Release unlocks the conversation.
func (h *Handle) Release() {
	h.entry.mu.Unlock()
}

// ID returns the conversation id.
func (h *Handle) ID() string {
	return h.entry.conv.ID
}

// Append adds a message to the history and bumps the activity timestamp.
func (h *Handle) Append(role model.MessageRole, content string) {
	now := time.Now()
	h.entry.conv.Messages = append(h.entry.conv.Messages, model.ChatMessage{
		Role:      role,
		Content:   content,
		CreatedAt: now,
	})
	h.entry.conv.LastActivity = now
}

// RecentWindow returns the bounded recent context for prompt building.
func (h *Handle) RecentWindow() []model.ChatMessage {
	return h.entry.conv.RecentWindow(h.store.window)
}

// MessageCount returns the total number of messages in the conversation.
func (h *Handle) MessageCount() int {
	return len(h.entry.conv.Messages)
}

// Clarification returns the live clarification context, or nil.
func (h *Handle) Clarification() *model.ClarificationContext {
	return h.entry.clarification
}

// SetClarification installs a clarification context, replacing any existing
// one. A conversation owns at most one.
func (h *Handle) SetClarification(cc *model.ClarificationContext) {
	h.entry.clarification = cc
}

// ClearClarification destroys the clarification context.
func (h *Handle) ClearClarification() {
	h.entry.clarification = nil
}

// Get returns a snapshot of the conversation, if it exists.
func (s *Store) Get(id string) (model.Conversation, bool) {
	s.mu.Lock()
	e, ok := s.entries[id]
	s.mu.Unlock()
	if !ok {
		return model.Conversation{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	snapshot := e.conv
	snapshot.Messages = make([]model.ChatMessage, len(e.conv.Messages))
	copy(snapshot.Messages, e.conv.Messages)
	return snapshot, true
}

// Delete removes a conversation and its clarification state.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.entries[id]
	delete(s.entries, id)
	return ok
}

// Len returns the number of live conversations.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
