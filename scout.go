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

// Package scout wires the discovery engine's stores, providers and AI
// services into one Engine.
package scout

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/poiesic/scout/ai"
	"github.com/poiesic/scout/ai/openai"
	"github.com/poiesic/scout/cache"
	"github.com/poiesic/scout/core"
	"github.com/poiesic/scout/discovery"
	"github.com/poiesic/scout/extraction"
	"github.com/poiesic/scout/extraction/web"
	"github.com/poiesic/scout/prioritize"
	"github.com/poiesic/scout/provider"
	"github.com/poiesic/scout/ratelimit"
	"github.com/poiesic/scout/search"
	"github.com/poiesic/scout/storage/badger"
	"github.com/poiesic/scout/storage/postgres"
)

// ErrPrimaryProviderRequired is returned when neither a search endpoint nor a
// primary provider was configured.
var ErrPrimaryProviderRequired = errors.New("a search endpoint or primary provider is required")

// Engine owns every long-lived resource of the discovery pipeline.
type Engine struct {
	backend      *badger.Backend
	l1           *cache.Memory
	l2           *postgres.CacheTier
	l3           *badger.CacheTier
	cache        *cache.MultiTier
	runs         *badger.RunRepository
	limiter      *ratelimit.Limiter
	fanout       *discovery.Fanout
	aiProvider   ai.AIProvider
	orchestrator *search.Orchestrator
	logger       *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	config         search.Config
	inMemory       bool
	postgresURL    string
	searchEndpoint string
	feedTemplate   string
	noFeed         bool
	aiConfig       *ai.Config
	aiProvider     ai.AIProvider
	primary        provider.Provider
	secondary      provider.Provider
	extractor      extraction.Extractor
	httpClient     *http.Client
	logger         *slog.Logger
}

// WithConfig replaces the default orchestration configuration.
func WithConfig(cfg search.Config) EngineOption {
	return func(o *engineOptions) {
		o.config = cfg
	}
}

// WithInMemory keeps the durable tier and run history in memory.
func WithInMemory() EngineOption {
	return func(o *engineOptions) {
		o.inMemory = true
	}
}

// WithPostgres enables the shared L2 cache tier.
func WithPostgres(dbURL string) EngineOption {
	return func(o *engineOptions) {
		o.postgresURL = dbURL
	}
}

// WithSearchEndpoint sets the base URL of the JSON web-search API used as
// primary provider.
func WithSearchEndpoint(endpoint string) EngineOption {
	return func(o *engineOptions) {
		o.searchEndpoint = endpoint
	}
}

// WithFeedTemplate sets the RSS search URL template of the secondary provider.
func WithFeedTemplate(template string) EngineOption {
	return func(o *engineOptions) {
		o.feedTemplate = template
	}
}

// WithoutFeed disables the RSS secondary provider.
func WithoutFeed() EngineOption {
	return func(o *engineOptions) {
		o.noFeed = true
	}
}

// WithAI enables LLM prioritization and embedding rerank.
func WithAI(cfg *ai.Config) EngineOption {
	return func(o *engineOptions) {
		o.aiConfig = cfg
	}
}

// WithAIProvider uses an existing AI provider. The Engine closes it.
func WithAIProvider(p ai.AIProvider) EngineOption {
	return func(o *engineOptions) {
		o.aiProvider = p
	}
}

// WithProviders replaces the discovery providers. secondary may be nil.
func WithProviders(primary, secondary provider.Provider) EngineOption {
	return func(o *engineOptions) {
		o.primary = primary
		o.secondary = secondary
	}
}

// WithExtractor replaces the web page extractor.
func WithExtractor(x extraction.Extractor) EngineOption {
	return func(o *engineOptions) {
		o.extractor = x
	}
}

// WithHTTPClient sets the client shared by providers and the extractor.
func WithHTTPClient(client *http.Client) EngineOption {
	return func(o *engineOptions) {
		o.httpClient = client
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) EngineOption {
	return func(o *engineOptions) {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
	}
}

// Open builds an Engine storing its durable cache tier and run history at
// dbPath. Call Close when done.
func Open(ctx context.Context, dbPath string, opts ...EngineOption) (*Engine, error) {
	options := &engineOptions{
		config: search.DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}
	if err := options.config.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{logger: options.logger.With("component", "engine")}
	if err := e.open(ctx, dbPath, options); err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}

func (e *Engine) open(ctx context.Context, dbPath string, o *engineOptions) error {
	cfg := o.config
	var err error

	e.backend, err = badger.OpenBackend(dbPath, o.inMemory, badger.WithLogger(o.logger))
	if err != nil {
		return err
	}
	e.l3 = badger.NewCacheTier(e.backend)
	e.runs = badger.NewRunRepository(e.backend)
	e.l1 = cache.NewMemory(cfg.Cache.L1Shards, cfg.Cache.L1Capacity)

	tiers := []cache.Tier{e.l1, e.l3}
	if o.postgresURL != "" {
		if e.l2, err = postgres.NewCacheTier(ctx, o.postgresURL); err != nil {
			return err
		}
		if err = e.l2.EnsureSchema(ctx); err != nil {
			return err
		}
		tiers = append(tiers, e.l2)
	}
	cacheOpts := append(cfg.Cache.Options(), cache.WithLogger(o.logger))
	if e.cache, err = cache.NewMultiTier(tiers, cacheOpts...); err != nil {
		return err
	}

	primary, secondary, err := providers(o)
	if err != nil {
		return err
	}
	e.limiter = ratelimit.New(append(cfg.LimiterOptions(), ratelimit.WithLogger(o.logger))...)

	// The cache settings own entry lifetime and freshness.
	dcfg := cfg.Discovery
	dcfg.CacheTTL = cfg.Cache.TTL
	dcfg.Freshness = cfg.Cache.Freshness
	fanoutOpts := []discovery.Option{
		discovery.WithConfig(dcfg),
		discovery.WithCache(e.cache),
		discovery.WithLogger(o.logger),
	}
	if secondary != nil {
		fanoutOpts = append(fanoutOpts, discovery.WithSecondary(secondary))
	}
	if e.fanout, err = discovery.NewFanout(primary, e.limiter, fanoutOpts...); err != nil {
		return err
	}

	e.aiProvider = o.aiProvider
	if e.aiProvider == nil && o.aiConfig != nil {
		if e.aiProvider, err = openai.NewProvider(o.aiConfig); err != nil {
			return err
		}
	}

	extractor := o.extractor
	if extractor == nil {
		webOpts := []web.Option{web.WithLogger(o.logger)}
		if o.httpClient != nil {
			webOpts = append(webOpts, web.WithHTTPClient(o.httpClient))
		}
		extractor = web.New(webOpts...)
	}

	searchOpts := []search.Option{
		search.WithConfig(cfg),
		search.WithRunRepository(e.runs),
		search.WithLogger(o.logger),
	}
	if e.aiProvider != nil {
		searchOpts = append(searchOpts,
			search.WithScorer(prioritize.NewLLMScorer(e.aiProvider.RelevanceClassifier())),
			search.WithEmbedder(e.aiProvider.Embedder()))
	}
	e.orchestrator, err = search.NewOrchestrator(e.fanout, extractor, searchOpts...)
	return err
}

func providers(o *engineOptions) (primary, secondary provider.Provider, err error) {
	primary, secondary = o.primary, o.secondary
	if primary == nil {
		if o.searchEndpoint == "" {
			return nil, nil, ErrPrimaryProviderRequired
		}
		if primary, err = provider.NewSearchAPI("searx", o.searchEndpoint, o.httpClient); err != nil {
			return nil, nil, err
		}
		if !o.noFeed {
			secondary = provider.NewFeed("rss", o.feedTemplate, o.httpClient)
		}
	}
	return primary, secondary, nil
}

// Close releases every resource. It is safe on a partially opened Engine.
func (e *Engine) Close() error {
	if e.orchestrator != nil {
		e.orchestrator.Release()
	}
	if e.fanout != nil {
		e.fanout.Release()
	}
	if e.aiProvider != nil {
		if err := e.aiProvider.Close(); err != nil {
			e.logger.Error("error closing AI provider", "err", err)
		}
	}
	if e.l2 != nil {
		e.l2.Close()
	}
	if e.backend != nil {
		if err := e.backend.Close(); err != nil {
			e.logger.Error("error closing backend storage", "err", err)
			return err
		}
	}
	return nil
}

// Discover runs the full pipeline for req.
func (e *Engine) Discover(ctx context.Context, req core.SearchRequest) (*core.RunResult, error) {
	return e.orchestrator.Run(ctx, req)
}

// DiscoverWithMonitor runs the full pipeline for req, reporting each stage.
func (e *Engine) DiscoverWithMonitor(ctx context.Context, req core.SearchRequest, monitor search.RunMonitor) (*core.RunResult, error) {
	return e.orchestrator.RunWithMonitor(ctx, req, monitor)
}

// GetRun returns a stored run.
func (e *Engine) GetRun(ctx context.Context, id string) (*core.RunResult, error) {
	return e.runs.GetRun(ctx, id)
}

// ListRuns returns the most recent runs, newest first.
func (e *Engine) ListRuns(ctx context.Context, limit int) ([]core.RunMetadata, error) {
	return e.runs.ListRuns(ctx, limit)
}

// DeleteRun removes a stored run.
func (e *Engine) DeleteRun(ctx context.Context, id string) error {
	return e.runs.DeleteRun(ctx, id)
}

// PurgeCache empties every cache tier. Stored runs are kept.
func (e *Engine) PurgeCache(ctx context.Context) error {
	e.l1.Purge()
	if err := e.l3.Purge(); err != nil {
		return err
	}
	if e.l2 != nil {
		if err := e.l2.Purge(ctx); err != nil {
			return err
		}
	}
	e.logger.Info("cache purged", "tiers", len(e.cache.Tiers()))
	return nil
}

// CacheStats returns the cache counters since Open.
func (e *Engine) CacheStats() cache.Stats {
	return e.cache.Stats()
}

// Config returns the orchestration configuration in use.
func (e *Engine) Config() search.Config {
	return e.orchestrator.Config()
}
