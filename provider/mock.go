package provider

import (
	"context"
	"sync"

	"github.com/poiesic/scout/core"
)

// MockProvider is a test double for Provider.
type MockProvider struct {
	ProviderName string

	// SearchFunc is called by Search if set. If nil, Search returns Results.
	SearchFunc func(ctx context.Context, query string, filters Filters) ([]core.RawResult, error)
	Results    []core.RawResult

	mu      sync.Mutex
	queries []string
}

var _ Provider = (*MockProvider)(nil)

// NewMockProvider creates a mock returning a fixed result list.
func NewMockProvider(name string, results ...core.RawResult) *MockProvider {
	return &MockProvider{ProviderName: name, Results: results}
}

// Name implements Provider.
func (m *MockProvider) Name() string {
	return m.ProviderName
}

// Search implements Provider.
func (m *MockProvider) Search(ctx context.Context, query string, filters Filters) ([]core.RawResult, error) {
	m.mu.Lock()
	m.queries = append(m.queries, query)
	m.mu.Unlock()

	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, query, filters)
	}
	return append([]core.RawResult(nil), m.Results...), nil
}

// CallCount returns how many searches were made.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queries)
}

// Queries returns the queries received, in call order.
func (m *MockProvider) Queries() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.queries...)
}
