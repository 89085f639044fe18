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

package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/scout/ai"
	"github.com/poiesic/scout/core"
	"github.com/poiesic/scout/discovery"
	"github.com/poiesic/scout/extraction"
	"github.com/poiesic/scout/prioritize"
	"github.com/poiesic/scout/quality"
	"github.com/poiesic/scout/rerank"
	"github.com/poiesic/scout/storage"
)

// persistTimeout bounds saving a finished run.
const persistTimeout = 10 * time.Second

// Discoverer is the discovery stage. *discovery.Fanout implements it.
type Discoverer interface {
	Discover(ctx context.Context, req core.SearchRequest, window core.WindowTag) (*discovery.Result, error)
}

// Orchestrator runs the full pipeline for one request at a time; it is safe
// for concurrent runs.
type Orchestrator struct {
	discoverer  Discoverer
	extractor   extraction.Extractor
	scorer      prioritize.Scorer
	embedder    ai.Embedder
	runs        storage.RunRepository
	config      Config
	reranker    *rerank.Reranker
	prioritizer *prioritize.Prioritizer
	gate        *quality.Gate
	validator   *extraction.Validator
	pool        *ants.Pool
	now         func() time.Time
	logger      *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator) error

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option {
	return func(o *Orchestrator) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		o.config = cfg
		return nil
	}
}

// WithScorer sets the primary prioritization scorer. Without one, every
// batch is scored lexically.
func WithScorer(s prioritize.Scorer) Option {
	return func(o *Orchestrator) error {
		o.scorer = s
		return nil
	}
}

// WithEmbedder sets the embedding model used for reranking.
func WithEmbedder(e ai.Embedder) Option {
	return func(o *Orchestrator) error {
		o.embedder = e
		return nil
	}
}

// WithRunRepository persists every finished run.
func WithRunRepository(runs storage.RunRepository) Option {
	return func(o *Orchestrator) error {
		o.runs = runs
		return nil
	}
}

// WithClock replaces the time source used for run timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) error {
		if now != nil {
			o.now = now
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
		return nil
	}
}

// NewOrchestrator creates an orchestrator over a discovery stage and an
// extraction collaborator. Call Release when done.
func NewOrchestrator(discoverer Discoverer, extractor extraction.Extractor, opts ...Option) (*Orchestrator, error) {
	if discoverer == nil {
		return nil, ErrDiscovererRequired
	}
	if extractor == nil {
		return nil, ErrExtractorRequired
	}

	o := &Orchestrator{
		discoverer: discoverer,
		extractor:  extractor,
		config:     DefaultConfig(),
		now:        time.Now,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}

	var err error
	rerankOpts := []rerank.Option{rerank.WithLogger(o.logger)}
	if o.embedder != nil {
		rerankOpts = append(rerankOpts, rerank.WithEmbedder(o.embedder))
	}
	if o.reranker, err = rerank.New(o.config.Rerank, rerankOpts...); err != nil {
		return nil, err
	}
	if o.prioritizer, err = prioritize.New(o.scorer,
		prioritize.WithConfig(o.config.Prioritize),
		prioritize.WithLogger(o.logger)); err != nil {
		return nil, err
	}
	if o.gate, err = quality.New(o.config.Quality, quality.WithLogger(o.logger)); err != nil {
		return nil, err
	}
	if o.validator, err = extraction.NewValidator(o.config.Validation,
		extraction.WithClock(o.now),
		extraction.WithLogger(o.logger)); err != nil {
		return nil, err
	}
	if o.pool, err = ants.NewPool(o.config.ExtractionConcurrency); err != nil {
		return nil, err
	}
	o.logger = o.logger.With("component", "search")
	return o, nil
}

// Release stops the extraction pool. The Orchestrator must not be used afterwards.
func (o *Orchestrator) Release() {
	if o.pool != nil {
		o.pool.Release()
	}
}

// Config returns the configuration in use.
func (o *Orchestrator) Config() Config {
	return o.config
}

// Run executes one orchestration run.
func (o *Orchestrator) Run(ctx context.Context, req core.SearchRequest) (*core.RunResult, error) {
	return o.RunWithMonitor(ctx, req, nil)
}

// run is the state of one orchestration run.
type run struct {
	meta     core.RunMetadata
	seen     map[string]bool
	domains  *rerank.Seen
	accepted []*core.EventCandidate
	monitor  RunMonitor

	// Request-level counters the metadata does not carry.
	lateVariants int
	fallbacks    int
	dropped      int
	capped       int
	degradedAt   map[string]bool
}

func (r *run) degrade(msg string) {
	if r.degradedAt[msg] {
		return
	}
	r.degradedAt[msg] = true
	r.meta.Degraded = append(r.meta.Degraded, msg)
}

// RunWithMonitor executes one run, reporting each stage to monitor.
//
// The caller receives a possibly empty ranked list plus a summary of degraded
// stages. An error is returned for an invalid request, or when nothing usable
// was found at all: core.ErrDeadlineExceeded if the deadline passed and
// core.ErrNoResults otherwise.
func (o *Orchestrator) RunWithMonitor(ctx context.Context, req core.SearchRequest, monitor RunMonitor) (*core.RunResult, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	req, err := core.ValidateSearchRequest(req)
	if err != nil {
		return nil, err
	}
	if o.config.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.config.Deadline)
		defer cancel()
	}

	r := &run{
		meta: core.RunMetadata{
			ID:           uuid.NewString(),
			Request:      req,
			StartedAt:    o.now(),
			WindowCounts: make(map[string]int),
		},
		seen:       make(map[string]bool),
		domains:    rerank.NewSeen(),
		monitor:    monitor,
		degradedAt: make(map[string]bool),
	}
	logger := o.logger.With("run", r.meta.ID)
	monitor.Start(r.meta.ID, req)
	logger.Info("starting run",
		"term", req.Term,
		"country", req.Country,
		"from", req.From.Format("2006-01-02"),
		"to", req.To.Format("2006-01-02"))

	window := req
	for step := 0; ; step++ {
		tag := core.WindowTag(step)
		o.runWindow(ctx, r, window, tag, logger)

		if len(r.accepted) >= o.config.Expansion.MinResults {
			break
		}
		if step >= o.config.Expansion.MaxSteps {
			break
		}
		if ctx.Err() != nil {
			r.degrade("window expansion skipped: deadline exceeded")
			break
		}
		window = o.widen(req, step+1)
		logger.Info("too few results, widening date window",
			"accepted", len(r.accepted),
			"window", core.WindowTag(step+1).String(),
			"from", window.From.Format("2006-01-02"),
			"to", window.To.Format("2006-01-02"))
		monitor.WindowExpanded(core.WindowTag(step+1), window)
	}

	o.summarize(r)
	r.meta.FinishedAt = o.now()

	if len(r.accepted) == 0 {
		switch {
		case ctx.Err() != nil:
			logger.Warn("run found nothing before the deadline")
			return nil, fmt.Errorf("%w: nothing usable found", core.ErrDeadlineExceeded)
		case r.meta.Discovered == 0 && r.meta.CacheHits == 0:
			logger.Warn("run found nothing", "variants", r.meta.Variants, "providerFailures", r.meta.ProviderFailures)
			return nil, core.ErrNoResults
		}
	}

	sortCandidates(r.accepted)
	result := &core.RunResult{Metadata: r.meta, Candidates: r.accepted}
	o.persist(ctx, result, logger)

	logger.Info("run complete",
		"candidates", len(result.Candidates),
		"cacheHitRatio", result.Metadata.CacheHitRatio(),
		"degraded", len(result.Metadata.Degraded),
		"elapsed", result.Metadata.FinishedAt.Sub(result.Metadata.StartedAt))
	monitor.Finish(result)
	return result, nil
}

// widen returns the request for expansion step n, widened on both sides.
func (o *Orchestrator) widen(req core.SearchRequest, n int) core.SearchRequest {
	delta := o.config.Expansion.step(req.WindowLength(), n)
	return req.WithWindow(req.From.Add(-delta), req.To.Add(delta))
}

// runWindow runs every stage for one date window. Failures are absorbed into
// the run's degraded summary.
func (o *Orchestrator) runWindow(ctx context.Context, r *run, req core.SearchRequest, tag core.WindowTag, logger *slog.Logger) {
	logger = logger.With("window", tag.String())

	res, err := o.discoverer.Discover(ctx, req, tag)
	if res != nil {
		o.addDiscoveryStats(r, res.Stats)
	}
	if err != nil {
		logger.Warn("discovery produced nothing", "err", err)
		return
	}

	fresh := make([]core.CandidateURL, 0, len(res.Candidates))
	for _, c := range res.Candidates {
		key := c.Normalized
		if key == "" {
			key = core.NormalizeURL(c.URL)
		}
		if r.seen[key] {
			continue
		}
		r.seen[key] = true
		fresh = append(fresh, c)
	}
	r.meta.Discovered += len(fresh)
	r.monitor.AfterDiscovery(tag, fresh, res.Stats)
	if len(fresh) == 0 {
		logger.Debug("no new urls in window")
		return
	}

	kept, dropped := o.reranker.Filter(fresh, r.domains)
	r.meta.DroppedAggregators += dropped
	r.monitor.AfterFilter(tag, kept, dropped)
	ranked := o.reranker.Rerank(ctx, kept, req)

	pres, err := o.prioritizer.Prioritize(ctx, ranked, req)
	if err != nil {
		logger.Error("prioritization failed", "err", err)
		r.degrade("prioritization failed: " + err.Error())
		return
	}
	r.meta.Prioritized += len(pres.Scored)
	r.meta.TotalBatches += len(pres.Batches)
	r.meta.FallbackBatches += pres.FallbackBatches
	r.capped += pres.Skipped
	r.monitor.AfterPrioritize(tag, pres)

	var targets []core.ScoredURL
	for _, s := range pres.Scored {
		if s.Keep {
			targets = append(targets, s)
		}
	}
	if len(targets) == 0 {
		logger.Debug("prioritizer kept nothing")
		return
	}

	extracted, failures := o.extractAll(ctx, targets, tag, logger)
	r.meta.Extracted += len(extracted)
	r.meta.ExtractionFailures += failures
	r.monitor.AfterExtraction(tag, extracted, failures)

	for _, c := range extracted {
		o.validator.Apply(c)
	}
	merged := o.validator.MergeDuplicates(extracted)

	var accepted, rejected []*core.EventCandidate
	for _, c := range merged {
		v, err := o.gate.Evaluate(c, req)
		if err != nil {
			logger.Warn("quality gate could not evaluate candidate", "url", c.SourceURL, "err", err)
			continue
		}
		if !v.Pass {
			logger.Debug("candidate rejected", "url", c.SourceURL, "reason", quality.Rejection(v))
			rejected = append(rejected, c)
			continue
		}
		accepted = append(accepted, c)
	}
	r.meta.Accepted += len(accepted)
	r.meta.Rejected += len(rejected)
	r.meta.WindowCounts[tag.String()] += len(accepted)
	r.accepted = append(r.accepted, accepted...)
	r.monitor.AfterValidation(tag, accepted, rejected)
}

func (o *Orchestrator) addDiscoveryStats(r *run, s discovery.Stats) {
	r.meta.Variants += s.Variants
	r.meta.CacheLookups += s.CacheLookups
	r.meta.CacheHits += s.CacheHits
	r.meta.ProviderCalls += s.ProviderCalls
	r.meta.ProviderFailures += s.ProviderFailures
	r.lateVariants += s.LateVariants
	r.fallbacks += s.Fallbacks
	r.dropped += s.DroppedVariants
}

// extractAll extracts every target on the extraction pool. Extraction
// failures are counted, not returned.
func (o *Orchestrator) extractAll(ctx context.Context, targets []core.ScoredURL, tag core.WindowTag, logger *slog.Logger) ([]*core.EventCandidate, int) {
	out := make([]*core.EventCandidate, len(targets))
	errs := make([]error, len(targets))

	var wg sync.WaitGroup
	for i, s := range targets {
		wg.Add(1)
		err := o.pool.Submit(func() {
			defer wg.Done()
			out[i], errs[i] = o.extractOne(ctx, s, tag)
		})
		if err != nil {
			wg.Done()
			errs[i] = err
		}
	}
	wg.Wait()

	candidates := make([]*core.EventCandidate, 0, len(targets))
	failures := 0
	for i, c := range out {
		if errs[i] != nil {
			failures++
			logger.Warn("extraction failed", "url", targets[i].URL, "err", errs[i])
			continue
		}
		candidates = append(candidates, c)
	}
	return candidates, failures
}

func (o *Orchestrator) extractOne(ctx context.Context, s core.ScoredURL, tag core.WindowTag) (*core.EventCandidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrExtractionFailed, err)
	}
	ectx, cancel := context.WithTimeout(ctx, o.config.ExtractionTimeout)
	defer cancel()

	c, err := o.extractor.Extract(ectx, s.URL)
	if err != nil {
		if !errors.Is(err, core.ErrExtractionFailed) {
			err = fmt.Errorf("%w: %w", core.ErrExtractionFailed, err)
		}
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("%w: no candidate for %s", core.ErrExtractionFailed, s.URL)
	}
	if c.SourceURL == "" {
		c.SourceURL = s.URL
	}
	c.Window = tag
	c.Priority = s.Priority
	c.Order = s.Order
	return c, nil
}

// summarize records which stages ran degraded.
func (o *Orchestrator) summarize(r *run) {
	m := &r.meta
	if m.FallbackBatches > 0 {
		r.degrade(fmt.Sprintf("prioritization used fallback scoring for %d of %d batches",
			m.FallbackBatches, m.TotalBatches))
	}
	if r.capped > 0 {
		r.degrade(fmt.Sprintf("prioritization skipped %d urls beyond the cap", r.capped))
	}
	if r.dropped > 0 {
		r.degrade(fmt.Sprintf("discovery dropped %d of %d query variants", r.dropped, m.Variants))
	}
	if r.lateVariants > 0 {
		r.degrade(fmt.Sprintf("discovery discarded %d variants that finished after the deadline", r.lateVariants))
	}
	if r.fallbacks > 0 {
		r.degrade(fmt.Sprintf("discovery used the secondary provider for %d variants", r.fallbacks))
	}
	if m.ExtractionFailures > 0 {
		r.degrade(fmt.Sprintf("extraction failed for %d of %d urls",
			m.ExtractionFailures, m.Extracted+m.ExtractionFailures))
	}
}

// persist saves the run when a repository is configured. A failure is
// logged and reported as degraded; the result is still returned.
func (o *Orchestrator) persist(ctx context.Context, result *core.RunResult, logger *slog.Logger) {
	if o.runs == nil {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if err := o.runs.SaveRun(pctx, result); err != nil {
		logger.Error("failed to persist run", "err", err)
		result.Metadata.Degraded = append(result.Metadata.Degraded, "run was not persisted: "+err.Error())
	}
}

// sortCandidates orders the final list: original window first, then higher
// priority, higher quality, shallower path and earlier discovery.
func sortCandidates(cs []*core.EventCandidate) {
	sort.SliceStable(cs, func(i, j int) bool {
		a, b := cs[i], cs[j]
		if a.Window != b.Window {
			return a.Window < b.Window
		}
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if qa, qb := verdictScore(a), verdictScore(b); qa != qb {
			return qa > qb
		}
		if da, db := core.PathDepth(a.SourceURL), core.PathDepth(b.SourceURL); da != db {
			return da < db
		}
		return a.Order < b.Order
	})
}

func verdictScore(c *core.EventCandidate) float64 {
	if c.Verdict == nil {
		return 0
	}
	return c.Verdict.Score
}
