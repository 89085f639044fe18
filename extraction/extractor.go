package extraction

import (
	"context"
	"sync"

	"github.com/poiesic/scout/core"
)

// Extractor turns a URL into an event candidate. Fields that were not found
// are left empty or nil. Failures should wrap core.ErrExtractionFailed.
type Extractor interface {
	Extract(ctx context.Context, url string) (*core.EventCandidate, error)
}

// MockExtractor is a test double for Extractor.
type MockExtractor struct {
	// ExtractFunc is called by Extract if set. Otherwise Candidates is consulted
	// and unknown URLs fail with core.ErrExtractionFailed.
	ExtractFunc func(ctx context.Context, url string) (*core.EventCandidate, error)
	Candidates  map[string]*core.EventCandidate

	mu   sync.Mutex
	urls []string
}

var _ Extractor = (*MockExtractor)(nil)

// Extract implements Extractor. Candidates are returned as copies.
func (m *MockExtractor) Extract(ctx context.Context, url string) (*core.EventCandidate, error) {
	m.mu.Lock()
	m.urls = append(m.urls, url)
	m.mu.Unlock()

	if m.ExtractFunc != nil {
		return m.ExtractFunc(ctx, url)
	}
	c, ok := m.Candidates[url]
	if !ok {
		return nil, core.ErrExtractionFailed
	}
	cp := *c
	cp.Speakers = append([]core.Person(nil), c.Speakers...)
	cp.Sponsors = append([]string(nil), c.Sponsors...)
	cp.Partners = append([]string(nil), c.Partners...)
	cp.Competitors = append([]string(nil), c.Competitors...)
	return &cp, nil
}

// URLs returns the URLs requested so far, in call order.
func (m *MockExtractor) URLs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.urls...)
}
