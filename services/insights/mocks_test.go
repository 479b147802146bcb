package insights

import (
	"context"
	"sync"

	"github.com/dupatihari/azure-rag-demo/models"
	"github.com/dupatihari/azure-rag-demo/services/providers"
	"github.com/dupatihari/azure-rag-demo/services/search"
	"github.com/stretchr/testify/mock"
)

type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) Name() string { return "mock-search" }

func (m *MockBackend) Search(ctx context.Context, query string, top int) ([]search.Record, error) {
	args := m.Called(ctx, query, top)
	if v := args.Get(0); v != nil {
		return v.([]search.Record), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBackend) Factory() search.Factory {
	return func(ctx context.Context) (search.Backend, error) { return m, nil }
}

type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Name() string { return "mock-llm" }

func (m *MockProvider) ChatCompletion(ctx context.Context, req *providers.ChatRequest) (*providers.ChatResponse, error) {
	args := m.Called(ctx, req)
	if v := args.Get(0); v != nil {
		return v.(*providers.ChatResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProvider) Factory() providers.Factory {
	return func(ctx context.Context) (providers.Provider, error) { return m, nil }
}

func reply(content string) *providers.ChatResponse {
	return &providers.ChatResponse{
		Provider: "mock-llm",
		Choices:  []providers.Choice{{Message: providers.Message{Role: providers.RoleAssistant, Content: content}}},
		Usage:    providers.Usage{PromptTokens: 100, CompletionTokens: 20, TotalTokens: 120},
	}
}

type fakeResolver struct {
	urls map[string]string
	err  error
}

func (f fakeResolver) Resolve(ctx context.Context, source string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.urls[source], nil
}

type recordingAuditor struct {
	mu      sync.Mutex
	records []*models.InsightAudit
}

func (r *recordingAuditor) LogInsight(record *models.InsightAudit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, record)
	return nil
}
