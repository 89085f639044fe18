package mock

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/poiesic/scout/ai"
)

// MockRelevanceClassifier is a test double for ai.RelevanceClassifier.
// It allows custom behavior injection via function fields.
type MockRelevanceClassifier struct {
	// ClassifyFunc is called by ClassifyRelevance if set.
	// If nil, items are scored by the share of query words found in URL and title.
	ClassifyFunc func(ctx context.Context, query string, items []ai.RelevanceItem) ([]ai.Judgement, error)

	callCount atomic.Int64
}

// NewMockRelevanceClassifier creates a mock classifier with default behavior.
func NewMockRelevanceClassifier() *MockRelevanceClassifier {
	return &MockRelevanceClassifier{}
}

// ClassifyRelevance implements ai.RelevanceClassifier.
func (m *MockRelevanceClassifier) ClassifyRelevance(ctx context.Context, query string, items []ai.RelevanceItem) ([]ai.Judgement, error) {
	m.callCount.Add(1)

	if m.ClassifyFunc != nil {
		return m.ClassifyFunc(ctx, query, items)
	}

	words := strings.Fields(strings.ToLower(query))
	out := make([]ai.Judgement, 0, len(items))
	for _, item := range items {
		text := strings.ToLower(item.URL + " " + item.Title)
		hits := 0
		for _, w := range words {
			if strings.Contains(text, w) {
				hits++
			}
		}
		score := 0.0
		if len(words) > 0 {
			score = float64(hits) / float64(len(words))
		}
		out = append(out, ai.Judgement{Index: item.Index, Score: score, Keep: score > 0})
	}
	return out, nil
}

// CallCount returns the number of times ClassifyRelevance was called.
func (m *MockRelevanceClassifier) CallCount() int {
	return int(m.callCount.Load())
}

// Reset clears the call count and custom functions.
func (m *MockRelevanceClassifier) Reset() {
	m.callCount.Store(0)
	m.ClassifyFunc = nil
}
