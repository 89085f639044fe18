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

// Package prioritize makes the final keep/drop decision for reranked URLs.
//
// URLs are scored in small batches by a primary Scorer, normally an LLM
// classifier, under a strict per-batch timeout. A batch whose primary call
// times out or returns something unusable is scored by the lexical scorer
// instead. Degradation is per batch, and every URL always ends up scored.
package prioritize

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"github.com/poiesic/scout/core"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// BatchState is a step in a batch's scoring lifecycle:
// pending → llm_attempt → scored, or
// pending → llm_attempt → timeout → lexical_fallback → scored.
type BatchState string

const (
	StatePending         BatchState = "pending"
	StateLLMAttempt      BatchState = "llm_attempt"
	StateTimeout         BatchState = "timeout"
	StateLexicalFallback BatchState = "lexical_fallback"
	StateScored          BatchState = "scored"
)

// BatchTrace records how one batch was scored.
type BatchTrace struct {
	Index  int
	Size   int
	States []BatchState
	Method core.ScoreMethod
	Err    error // Primary failure that caused the fallback, if any
}

func (b *BatchTrace) to(s BatchState) {
	b.States = append(b.States, s)
}

// Fallback reports whether the batch was scored by the fallback scorer.
func (b *BatchTrace) Fallback() bool {
	return b.Method == core.ScoreMethodLexical
}

// Result is the output of one Prioritize call.
type Result struct {
	Scored          []core.ScoredURL // Kept first, then by priority
	Skipped         int              // URLs beyond MaxURLs
	Batches         []BatchTrace
	FallbackBatches int
}

// Prioritizer runs the primary/fallback scorer pair over batches.
type Prioritizer struct {
	primary  Scorer
	fallback Scorer
	config   Config
	logger   *slog.Logger
}

// Option configures a Prioritizer.
type Option func(*Prioritizer) error

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option {
	return func(p *Prioritizer) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		p.config = cfg
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Prioritizer) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// New creates a Prioritizer. A nil primary scores everything lexically.
func New(primary Scorer, opts ...Option) (*Prioritizer, error) {
	p := &Prioritizer{
		primary: primary,
		config:  DefaultConfig(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	p.fallback = NewLexicalScorer(p.config.KeepThreshold)
	p.logger = p.logger.With("component", "prioritize")
	return p, nil
}

// Prioritize scores up to MaxURLs of urls, which should already be in rerank
// order. It only fails if the fallback scorer itself fails.
func (p *Prioritizer) Prioritize(ctx context.Context, urls []core.CandidateURL, req core.SearchRequest) (*Result, error) {
	res := &Result{}
	if len(urls) > p.config.MaxURLs {
		res.Skipped = len(urls) - p.config.MaxURLs
		urls = urls[:p.config.MaxURLs]
	}
	if len(urls) == 0 {
		return res, nil
	}

	batches := lo.Chunk(urls, p.config.BatchSize)
	scored := make([][]core.ScoredURL, len(batches))
	res.Batches = make([]BatchTrace, len(batches))

	var g errgroup.Group
	g.SetLimit(p.config.Concurrency)
	for i, batch := range batches {
		g.Go(func() error {
			trace := &res.Batches[i]
			trace.Index = i
			trace.Size = len(batch)
			out, err := p.scoreBatch(ctx, req, batch, trace)
			if err != nil {
				return err
			}
			scored[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i := range res.Batches {
		if res.Batches[i].Fallback() {
			res.FallbackBatches++
		}
	}
	res.Scored = lo.Flatten(scored)
	sort.SliceStable(res.Scored, func(i, j int) bool {
		a, b := res.Scored[i], res.Scored[j]
		if a.Keep != b.Keep {
			return a.Keep
		}
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if da, db := a.PathDepth(), b.PathDepth(); da != db {
			return da < db
		}
		return a.Order < b.Order
	})

	if res.FallbackBatches > 0 {
		p.logger.Info("prioritization degraded",
			"fallbackBatches", res.FallbackBatches,
			"batches", len(res.Batches))
	}
	return res, nil
}

type primaryOutcome struct {
	scored []core.ScoredURL
	err    error
}

func (p *Prioritizer) scoreBatch(ctx context.Context, req core.SearchRequest, batch []core.CandidateURL, trace *BatchTrace) ([]core.ScoredURL, error) {
	trace.to(StatePending)

	if p.primary != nil {
		trace.to(StateLLMAttempt)
		out, err := p.race(ctx, req, batch)
		if err == nil {
			trace.Method = core.ScoreMethodLLM
			trace.to(StateScored)
			return out, nil
		}
		trace.Err = err
		trace.to(StateTimeout)
		p.logger.Warn("primary scorer failed, using lexical fallback",
			"batch", trace.Index,
			"size", len(batch),
			"err", err)
	}

	trace.to(StateLexicalFallback)
	// The fallback runs even if ctx is done: no batch may stay unscored.
	out, err := p.fallback.Score(context.WithoutCancel(ctx), req, batch)
	if err != nil {
		return nil, err
	}
	if len(out) != len(batch) {
		return nil, errors.New("fallback scorer returned a partial batch")
	}
	trace.Method = core.ScoreMethodLexical
	trace.to(StateScored)
	return out, nil
}

// race runs the primary scorer against the batch timeout. A scorer that
// ignores its context is abandoned when the timeout fires.
func (p *Prioritizer) race(ctx context.Context, req core.SearchRequest, batch []core.CandidateURL) ([]core.ScoredURL, error) {
	bctx, cancel := context.WithTimeout(ctx, p.config.BatchTimeout)
	defer cancel()

	done := make(chan primaryOutcome, 1)
	go func() {
		out, err := p.primary.Score(bctx, req, batch)
		done <- primaryOutcome{scored: out, err: err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			if bctx.Err() != nil {
				return nil, core.ErrProviderTimeout
			}
			return nil, o.err
		}
		if len(o.scored) != len(batch) {
			return nil, core.ErrProviderMalformedResponse
		}
		return o.scored, nil
	case <-bctx.Done():
		return nil, core.ErrProviderTimeout
	}
}
