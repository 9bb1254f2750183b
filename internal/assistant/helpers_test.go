package assistant

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rapmendoza/ai-side-panel/internal/common"
	"github.com/rapmendoza/ai-side-panel/internal/llm"
	"github.com/rapmendoza/ai-side-panel/internal/model"
	"github.com/rapmendoza/ai-side-panel/internal/service"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fastRetry keeps retry backoff out of test runtime.
func fastRetry() service.RetryOptions {
	return service.RetryOptions{
		MaxAttempts:  2,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

// stubClient returns canned completions. completeFn, when set, wins; otherwise
// responses are routed by the system prompt so one stub can serve the whole
// pipeline in end-to-end tests.
type stubClient struct {
	completeFn     func(ctx context.Context, req llm.CompletionRequest) (string, error)
	classifierJSON string
	extractorJSON  string
	plannerJSON    string

	mu    sync.Mutex
	calls []llm.CompletionRequest
}

func (s *stubClient) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, req)
	s.mu.Unlock()

	if s.completeFn != nil {
		return s.completeFn(ctx, req)
	}

	switch {
	case strings.Contains(req.System, "intent classifier"):
		return s.classifierJSON, nil
	case strings.Contains(req.System, "entity extractor"):
		return s.extractorJSON, nil
	case strings.Contains(req.System, "action planner"):
		return s.plannerJSON, nil
	default:
		return "", fmt.Errorf("unexpected system prompt: %s", req.System)
	}
}

func (s *stubClient) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// memStorage is an in-memory service.Storage for tests that need real CRUD
// behavior without SQLite.
type memStorage struct {
	mu         sync.Mutex
	payees     map[int64]*model.Payee
	categories map[int64]*model.Category
	nextID     int64

	failCreatePayee error
}

func newMemStorage() *memStorage {
	return &memStorage{
		payees:     make(map[int64]*model.Payee),
		categories: make(map[int64]*model.Category),
		nextID:     1,
	}
}

func (m *memStorage) CreatePayee(_ context.Context, payee *model.Payee) (*model.Payee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failCreatePayee != nil {
		return nil, m.failCreatePayee
	}
	for _, p := range m.payees {
		if p.OwnerID == payee.OwnerID && strings.EqualFold(p.Name, payee.Name) {
			return nil, fmt.Errorf("payee %q: %w", payee.Name, common.ErrDuplicateEntry)
		}
	}

	stored := *payee
	stored.ID = m.nextID
	m.nextID++
	m.payees[stored.ID] = &stored

	out := stored
	return &out, nil
}

func (m *memStorage) GetPayee(_ context.Context, ownerID string, id int64) (*model.Payee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.payees[id]
	if !ok || p.OwnerID != ownerID {
		return nil, common.ErrNotFound
	}
	out := *p
	return &out, nil
}

func (m *memStorage) GetPayees(_ context.Context, ownerID string, filter service.PayeeFilter) ([]model.Payee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []model.Payee
	for _, p := range m.payees {
		if p.OwnerID != ownerID {
			continue
		}
		if filter.Name != "" && !strings.EqualFold(p.Name, filter.Name) {
			continue
		}
		if filter.Category != "" && !strings.EqualFold(p.Category, filter.Category) {
			continue
		}
		if filter.Search != "" &&
			!strings.Contains(strings.ToLower(p.Name), strings.ToLower(filter.Search)) &&
			!strings.Contains(strings.ToLower(p.Description), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, *p)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

func (m *memStorage) UpdatePayee(_ context.Context, payee *model.Payee) (*model.Payee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.payees[payee.ID]
	if !ok || existing.OwnerID != payee.OwnerID {
		return nil, common.ErrNotFound
	}
	stored := *payee
	m.payees[payee.ID] = &stored

	out := stored
	return &out, nil
}

func (m *memStorage) DeletePayee(_ context.Context, ownerID string, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.payees[id]
	if !ok || p.OwnerID != ownerID {
		return common.ErrNotFound
	}
	delete(m.payees, id)
	return nil
}

func (m *memStorage) CreateCategory(_ context.Context, category *model.Category) (*model.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.categories {
		if c.OwnerID == category.OwnerID && strings.EqualFold(c.Name, category.Name) && c.IsActive {
			return nil, fmt.Errorf("category %q: %w", category.Name, common.ErrDuplicateEntry)
		}
	}

	stored := *category
	stored.ID = m.nextID
	stored.IsActive = true
	if stored.Type == "" {
		stored.Type = model.CategoryTypeExpense
	}
	m.nextID++
	m.categories[stored.ID] = &stored

	out := stored
	return &out, nil
}

func (m *memStorage) GetCategory(_ context.Context, ownerID string, id int64) (*model.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.categories[id]
	if !ok || c.OwnerID != ownerID || !c.IsActive {
		return nil, common.ErrNotFound
	}
	out := *c
	return &out, nil
}

func (m *memStorage) GetCategories(_ context.Context, ownerID string, filter service.CategoryFilter) ([]model.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []model.Category
	for _, c := range m.categories {
		if c.OwnerID != ownerID || !c.IsActive {
			continue
		}
		if filter.Name != "" && !strings.EqualFold(c.Name, filter.Name) {
			continue
		}
		if filter.Type != "" && c.Type != filter.Type {
			continue
		}
		if filter.Search != "" &&
			!strings.Contains(strings.ToLower(c.Name), strings.ToLower(filter.Search)) &&
			!strings.Contains(strings.ToLower(c.Description), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, *c)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

func (m *memStorage) UpdateCategory(_ context.Context, category *model.Category) (*model.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.categories[category.ID]
	if !ok || existing.OwnerID != category.OwnerID || !existing.IsActive {
		return nil, common.ErrNotFound
	}
	stored := *category
	stored.IsActive = true
	m.categories[category.ID] = &stored

	out := stored
	return &out, nil
}

func (m *memStorage) DeleteCategory(_ context.Context, ownerID string, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.categories[id]
	if !ok || c.OwnerID != ownerID || !c.IsActive {
		return common.ErrNotFound
	}
	c.IsActive = false
	return nil
}

func (m *memStorage) Migrate(_ context.Context) error { return nil }

func (m *memStorage) Close() error { return nil }
