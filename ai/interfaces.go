// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ai

import "context"

// Embedder generates vector embeddings used by the reranker's base relevance score.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates embeddings for multiple texts in one call.
	// The returned slice is in the same order as the input.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// RelevanceClassifier judges whether candidate URLs are event pages matching a query.
type RelevanceClassifier interface {
	// ClassifyRelevance returns exactly one Judgement per item.
	// A response that cannot be parsed or does not cover every item is an error
	// wrapping core.ErrProviderMalformedResponse; callers fall back rather than fail.
	ClassifyRelevance(ctx context.Context, query string, items []RelevanceItem) ([]Judgement, error)
}

// RelevanceItem is one URL presented to a RelevanceClassifier.
type RelevanceItem struct {
	Index   int
	URL     string
	Title   string
	Snippet string
}

// Judgement is the classifier's verdict for one RelevanceItem.
type Judgement struct {
	Index  int
	Score  float64 // 0..1
	Keep   bool
	Reason string
}

// AIProvider provides access to the AI collaborators.
type AIProvider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// RelevanceClassifier returns the URL relevance classifier.
	// The returned RelevanceClassifier is safe for concurrent use.
	RelevanceClassifier() RelevanceClassifier

	// Close releases resources held by the provider and its services.
	Close() error
}
