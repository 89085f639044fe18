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

// Package rerank suppresses aggregator domains and reorders discovered URLs
// by relevance to the request.
package rerank

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/poiesic/scout/ai"
	"github.com/poiesic/scout/core"
)

// Seen records which aggregator domains have been logged during one run and
// how many URLs each contributed.
type Seen struct {
	mu      sync.Mutex
	domains map[string]int
}

// NewSeen creates an empty per-run domain log.
func NewSeen() *Seen {
	return &Seen{domains: make(map[string]int)}
}

// mark counts a URL and reports whether this is the domain's first sighting.
func (s *Seen) mark(domain string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.domains[domain]++
	return s.domains[domain] == 1
}

// Domains returns the per-domain counts.
func (s *Seen) Domains() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.domains))
	for k, v := range s.domains {
		out[k] = v
	}
	return out
}

// Reranker is the CandidateFilterRerank stage.
type Reranker struct {
	config   Config
	embedder ai.Embedder
	logger   *slog.Logger
}

// Option configures a Reranker.
type Option func(*Reranker)

// WithEmbedder sets the model used for base relevance. Without one, the
// provider scores are used.
func WithEmbedder(e ai.Embedder) Option {
	return func(r *Reranker) {
		r.embedder = e
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reranker) {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
	}
}

// New creates a Reranker.
func New(cfg Config, opts ...Option) (*Reranker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := &Reranker{config: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "rerank")
	return r, nil
}

// aggregatorFor returns the configured aggregator domain matching host, or "".
func (r *Reranker) aggregatorFor(host string) string {
	for _, domain := range r.config.Aggregators {
		if core.HostMatches(host, domain) {
			return domain
		}
	}
	return ""
}

// Filter removes aggregator URLs. When fewer than MinNonAggregators URLs
// remain, the best-scoring BackstopCount aggregator URLs are kept anyway.
// seen may be shared across calls of one run; nil logs per call.
func (r *Reranker) Filter(urls []core.CandidateURL, seen *Seen) (kept []core.CandidateURL, droppedAggregators int) {
	if seen == nil {
		seen = NewSeen()
	}

	var aggregators []core.CandidateURL
	for _, u := range urls {
		domain := r.aggregatorFor(core.Host(u.URL))
		if domain == "" {
			kept = append(kept, u)
			continue
		}
		aggregators = append(aggregators, u)
		if seen.mark(domain) {
			r.logger.Info("filtering aggregator domain", "domain", domain)
		}
	}

	if len(kept) < r.config.MinNonAggregators && len(aggregators) > 0 {
		sort.SliceStable(aggregators, func(i, j int) bool {
			if aggregators[i].Score != aggregators[j].Score {
				return aggregators[i].Score > aggregators[j].Score
			}
			return aggregators[i].Order < aggregators[j].Order
		})
		n := min(r.config.BackstopCount, len(aggregators))
		for _, u := range aggregators[:n] {
			r.logger.Debug("re-admitting aggregator as backstop", "url", u.URL, "kept", len(kept))
		}
		kept = append(kept, aggregators[:n]...)
		aggregators = aggregators[n:]
		sort.SliceStable(kept, func(i, j int) bool { return kept[i].Order < kept[j].Order })
	}
	return kept, len(aggregators)
}

// Rerank scores urls against the request and returns them best first.
// Legal pages and file downloads are dropped. Score holds the final value.
func (r *Reranker) Rerank(ctx context.Context, urls []core.CandidateURL, req core.SearchRequest) []core.CandidateURL {
	candidates := make([]core.CandidateURL, 0, len(urls))
	for _, u := range urls {
		if excludedPath(core.URLPath(u.URL)) {
			r.logger.Debug("excluding url by path", "url", u.URL)
			continue
		}
		candidates = append(candidates, u)
	}
	if len(candidates) == 0 {
		return candidates
	}

	base := r.baseScores(ctx, candidates, req)
	tlds := make(map[string]bool)
	for _, code := range req.Countries() {
		tlds[core.TLDForCountry(code)] = true
	}
	term := core.Fold(req.Term)

	for i := range candidates {
		c := &candidates[i]
		p := core.URLPath(c.URL)
		score := base[i]
		if tlds[core.TopLevelDomain(core.Host(c.URL))] {
			score += r.config.CountryTLDBonus
		}
		if programPath(p) {
			score += r.config.ProgramPathBonus
		}
		if term != "" && mentions(term, c) {
			score += r.config.TermMatchBonus
		}
		if penalizedPath(p) {
			score -= r.config.PathPenalty
		}
		c.Score = score
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if da, db := a.PathDepth(), b.PathDepth(); da != db {
			return da < db
		}
		return a.Order < b.Order
	})
	return candidates
}

// baseScores returns a relevance in [0, 1] for each candidate, from embeddings
// when available and from normalized provider scores otherwise.
func (r *Reranker) baseScores(ctx context.Context, candidates []core.CandidateURL, req core.SearchRequest) []float64 {
	if r.embedder != nil {
		scores, err := r.embeddingScores(ctx, candidates, req)
		if err == nil {
			return scores
		}
		r.logger.Warn("embedding rerank failed, using provider scores", "err", err)
	}

	var maxScore float64
	for _, c := range candidates {
		maxScore = max(maxScore, c.Score)
	}
	scores := make([]float64, len(candidates))
	for i, c := range candidates {
		if maxScore > 0 {
			scores[i] = max(c.Score, 0) / maxScore
		}
	}
	return scores
}

func (r *Reranker) embeddingScores(ctx context.Context, candidates []core.CandidateURL, req core.SearchRequest) ([]float64, error) {
	texts := make([]string, 0, len(candidates)+1)
	texts = append(texts, queryText(req))
	for _, c := range candidates {
		texts = append(texts, strings.Join([]string{c.Title, c.Snippet, c.URL}, " "))
	}
	vectors, err := r.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, core.ErrProviderMalformedResponse
	}
	scores := make([]float64, len(candidates))
	for i := range candidates {
		scores[i] = max(cosine(vectors[0], vectors[i+1]), 0)
	}
	return scores, nil
}

func queryText(req core.SearchRequest) string {
	parts := []string{req.Term}
	parts = append(parts, req.Industry...)
	parts = append(parts, core.CanonicalEventType, "conference")
	return strings.TrimSpace(strings.Join(parts, " "))
}

// mentions reports whether the folded term appears in the URL or title.
func mentions(term string, c *core.CandidateURL) bool {
	haystack := core.Fold(c.URL + " " + c.Title)
	if strings.Contains(haystack, term) {
		return true
	}
	// URLs often hyphenate multi-word terms.
	return strings.Contains(haystack, strings.ReplaceAll(term, " ", "-"))
}
