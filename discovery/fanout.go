package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/scout/cache"
	"github.com/poiesic/scout/core"
	"github.com/poiesic/scout/provider"
	"github.com/poiesic/scout/storage"
	"golang.org/x/sync/semaphore"
)

// Limiter is the admission control consulted before every provider call.
type Limiter interface {
	Admit(provider string) (allowed bool, waitHint time.Duration)
	RecordResponse(provider string, latency time.Duration, success bool)
}

// Stats counts what one Discover call did.
type Stats struct {
	Variants         int
	CacheLookups     int
	CacheHits        int
	ProviderCalls    int // Individual attempts, retries included
	ProviderFailures int // Provider exhaustions, after retries
	Fallbacks        int // Variants answered by the secondary provider
	DroppedVariants  int // Variants that produced nothing usable
	LateVariants     int // Variants still running when the deadline passed
}

// Result is the merged output of one fan-out.
type Result struct {
	Candidates []core.CandidateURL
	Stats      Stats
}

// Fanout dispatches query variants to providers concurrently.
type Fanout struct {
	primary   provider.Provider
	secondary provider.Provider
	limiter   Limiter
	cache     cache.Cache
	fresh     cache.FreshnessFilter
	config    Config
	pool      *ants.Pool
	sems      map[string]*semaphore.Weighted
	now       func() time.Time
	logger    *slog.Logger
}

// Option configures a Fanout.
type Option func(*Fanout) error

// WithSecondary sets the provider used when the primary is exhausted for a variant.
func WithSecondary(p provider.Provider) Option {
	return func(f *Fanout) error {
		f.secondary = p
		return nil
	}
}

// WithCache enables read-through caching of provider responses.
func WithCache(c cache.Cache) Option {
	return func(f *Fanout) error {
		f.cache = c
		return nil
	}
}

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option {
	return func(f *Fanout) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		f.config = cfg
		return nil
	}
}

// WithClock replaces the time source used for freshness checks.
func WithClock(now func() time.Time) Option {
	return func(f *Fanout) error {
		if now != nil {
			f.now = now
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fanout) error {
		if logger == nil {
			logger = slog.Default()
		}
		f.logger = logger
		return nil
	}
}

// NewFanout creates a fan-out over a primary provider.
// Call Release when done to stop the worker pool.
func NewFanout(primary provider.Provider, limiter Limiter, opts ...Option) (*Fanout, error) {
	if primary == nil {
		return nil, ErrProviderRequired
	}
	if limiter == nil {
		return nil, ErrLimiterRequired
	}

	f := &Fanout{
		primary: primary,
		limiter: limiter,
		config:  DefaultConfig(),
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(f); err != nil {
			return nil, err
		}
	}
	f.logger = f.logger.With("component", "discovery")
	f.fresh = cache.MaxAge(f.config.Freshness)

	pool, err := ants.NewPool(f.config.Concurrency)
	if err != nil {
		return nil, err
	}
	f.pool = pool

	f.sems = map[string]*semaphore.Weighted{
		primary.Name(): semaphore.NewWeighted(int64(f.config.PerProviderConcurrency)),
	}
	if f.secondary != nil {
		if _, dup := f.sems[f.secondary.Name()]; !dup {
			f.sems[f.secondary.Name()] = semaphore.NewWeighted(int64(f.config.PerProviderConcurrency))
		}
	}
	return f, nil
}

// Release stops the worker pool. The Fanout must not be used afterwards.
func (f *Fanout) Release() {
	if f.pool != nil {
		f.pool.Release()
	}
}

// variantOutcome is what one variant produced.
type variantOutcome struct {
	results  []core.RawResult
	provider string
	hit      bool
	lookup   bool
	calls    int
	failures int
	fallback bool
	err      error
}

// collector gathers outcomes until the request deadline. Outcomes that arrive
// after it is sealed are discarded.
type collector struct {
	mu       sync.Mutex
	outcomes []*variantOutcome
	sealed   bool
}

func (c *collector) set(i int, o *variantOutcome) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sealed {
		return false
	}
	c.outcomes[i] = o
	return true
}

func (c *collector) seal() []*variantOutcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sealed = true
	return append([]*variantOutcome(nil), c.outcomes...)
}

// Discover fans the request out and returns deduplicated candidates tagged
// with window. Individual variant failures are absorbed. An error is returned
// only when nothing was found and nothing came from the cache.
func (f *Fanout) Discover(ctx context.Context, req core.SearchRequest, window core.WindowTag) (*Result, error) {
	variants := ExpandVariants(req, f.config.MaxVariants)
	col := &collector{outcomes: make([]*variantOutcome, len(variants))}

	var wg sync.WaitGroup
	for i, v := range variants {
		wg.Add(1)
		err := f.pool.Submit(func() {
			defer wg.Done()
			out := f.runVariant(ctx, req, v)
			if !col.set(i, out) {
				f.logger.Debug("discarding late variant result", "variant", v.Query, "provider", out.provider)
			}
		})
		if err != nil {
			wg.Done()
			f.logger.Warn("failed to submit variant", "variant", v.Query, "err", err)
			col.set(i, &variantOutcome{err: err})
		}
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
	outcomes := col.seal()

	res := &Result{Stats: Stats{Variants: len(variants)}}
	res.Candidates = merge(variants, outcomes, window)
	for _, o := range outcomes {
		if o == nil {
			res.Stats.LateVariants++
			res.Stats.DroppedVariants++
			continue
		}
		if o.lookup {
			res.Stats.CacheLookups++
		}
		if o.hit {
			res.Stats.CacheHits++
		}
		if o.fallback {
			res.Stats.Fallbacks++
		}
		res.Stats.ProviderCalls += o.calls
		res.Stats.ProviderFailures += o.failures
		if o.err != nil {
			res.Stats.DroppedVariants++
		}
	}

	f.logger.Debug("fan-out complete",
		"window", window.String(),
		"variants", res.Stats.Variants,
		"candidates", len(res.Candidates),
		"cacheHits", res.Stats.CacheHits,
		"providerCalls", res.Stats.ProviderCalls,
		"dropped", res.Stats.DroppedVariants)

	if len(res.Candidates) == 0 && res.Stats.CacheHits == 0 {
		if ctx.Err() != nil {
			return res, fmt.Errorf("%w: discovery found nothing before the deadline", core.ErrDeadlineExceeded)
		}
		return res, core.ErrNoResults
	}
	return res, nil
}

func (f *Fanout) runVariant(ctx context.Context, req core.SearchRequest, v core.QueryVariant) *variantOutcome {
	out := &variantOutcome{}
	filters := provider.Filters{
		Language: v.Language,
		From:     req.From,
		To:       req.To,
		Limit:    f.config.ResultsPerQuery,
	}
	if countries := req.Countries(); len(countries) == 1 {
		filters.Country = countries[0]
	}

	providers := []provider.Provider{f.primary}
	if f.secondary != nil {
		providers = append(providers, f.secondary)
	}

	if f.cache != nil {
		out.lookup = true
		for _, p := range providers {
			if results, ok := f.cached(ctx, p, req, v); ok {
				out.hit = true
				out.results = results
				out.provider = p.Name()
				return out
			}
		}
	}

	for i, p := range providers {
		results, calls, err := f.call(ctx, p, v, filters)
		out.calls += calls
		if err == nil {
			out.results = results
			out.provider = p.Name()
			out.fallback = i > 0
			out.err = nil
			f.store(ctx, p, req, v, results)
			return out
		}
		out.err = err
		if errors.Is(err, errAdmissionDenied) || ctx.Err() != nil {
			f.logger.Info("dropping variant", "provider", p.Name(), "variant", v.Query, "err", err)
			return out
		}
		out.failures++
		f.logger.Warn("provider exhausted for variant", "provider", p.Name(), "variant", v.Query, "err", err)
	}
	return out
}

func (f *Fanout) keyFor(p provider.Provider, req core.SearchRequest, v core.QueryVariant) string {
	return cache.Key(cache.KeyInput{
		Provider: p.Name(),
		Query:    v.Query,
		Country:  req.Country,
		Language: v.Language,
		From:     req.From,
		To:       req.To,
	})
}

func (f *Fanout) cached(ctx context.Context, p provider.Provider, req core.SearchRequest, v core.QueryVariant) ([]core.RawResult, bool) {
	key := f.keyFor(p, req, v)
	entry, tier := f.cache.Get(ctx, key)
	if entry == nil {
		return nil, false
	}
	if !f.fresh(entry, f.now()) {
		f.logger.Debug("cache hit too old", "provider", p.Name(), "variant", v.Query, "tier", tier.String())
		return nil, false
	}
	results, err := storage.UnmarshalRawResults(entry.Value)
	if err != nil {
		f.logger.Warn("dropping undecodable cache entry", "provider", p.Name(), "tier", tier.String(), "err", err)
		if err := f.cache.Invalidate(ctx, key); err != nil {
			f.logger.Debug("failed to invalidate cache entry", "err", err)
		}
		return nil, false
	}
	return results, true
}

func (f *Fanout) store(ctx context.Context, p provider.Provider, req core.SearchRequest, v core.QueryVariant, results []core.RawResult) {
	if f.cache == nil {
		return
	}
	payload := storage.MarshalRawResults(results)
	if err := f.cache.Put(context.WithoutCancel(ctx), f.keyFor(p, req, v), payload, f.config.CacheTTL); err != nil {
		f.logger.Warn("failed to cache provider response", "provider", p.Name(), "err", err)
	}
}

// call runs one provider query under admission control and the retry policy.
// It returns the number of attempts made.
func (f *Fanout) call(ctx context.Context, p provider.Provider, v core.QueryVariant, filters provider.Filters) ([]core.RawResult, int, error) {
	name := p.Name()
	sem := f.sems[name]
	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, 0, err
	}
	defer sem.Release(1)

	if err := f.admit(ctx, name); err != nil {
		return nil, 0, err
	}

	var results []core.RawResult
	calls := 0
	err := provider.RetryWithBackoff(ctx, f.config.Policy, func(actx context.Context) error {
		var err error
		results, err = p.Search(actx, v.Query, filters)
		return err
	}, func(a provider.Attempt) {
		calls++
		f.limiter.RecordResponse(name, a.Latency, !hardFailure(a.Err))
		if a.Err != nil {
			f.logger.Debug("provider attempt failed",
				"provider", name,
				"variant", v.Query,
				"attempt", a.Number,
				"latency", a.Latency,
				"err", a.Err)
		}
	})
	if err != nil {
		return nil, calls, err
	}
	return results, calls, nil
}

// admit waits for the limiter. A variant whose wait would overrun the request
// deadline, or MaxAdmitWait when there is none, is dropped.
func (f *Fanout) admit(ctx context.Context, name string) error {
	var waited time.Duration
	for {
		allowed, wait := f.limiter.Admit(name)
		if allowed {
			return nil
		}
		if deadline, ok := ctx.Deadline(); ok {
			if time.Now().Add(wait).After(deadline) {
				return errAdmissionDenied
			}
		} else if waited+wait > f.config.MaxAdmitWait {
			return errAdmissionDenied
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		waited += wait
	}
}

// hardFailure reports errors that count against a provider's latency profile.
func hardFailure(err error) bool {
	if err == nil {
		return false
	}
	var se *provider.StatusError
	if errors.As(err, &se) {
		return se.Code >= http.StatusInternalServerError || provider.IsRetryable(err)
	}
	return provider.IsRetryable(err)
}

// merge deduplicates results by normalized URL in variant order, keeping the
// best score for each URL and the provenance of its first sighting.
func merge(variants []core.QueryVariant, outcomes []*variantOutcome, window core.WindowTag) []core.CandidateURL {
	var out []core.CandidateURL
	index := make(map[string]int)
	for i, o := range outcomes {
		if o == nil || o.err != nil {
			continue
		}
		for _, r := range o.results {
			norm := core.NormalizeURL(r.URL)
			if norm == "" {
				continue
			}
			if j, ok := index[norm]; ok {
				if r.Score > out[j].Score {
					out[j].Score = r.Score
				}
				if out[j].Title == "" {
					out[j].Title = r.Title
				}
				if out[j].Snippet == "" {
					out[j].Snippet = r.Snippet
				}
				continue
			}
			index[norm] = len(out)
			out = append(out, core.CandidateURL{
				URL:        r.URL,
				Normalized: norm,
				Title:      r.Title,
				Snippet:    r.Snippet,
				Provider:   o.provider,
				Variant:    variants[i].Query,
				Score:      r.Score,
				Window:     window,
				Order:      len(out),
			})
		}
	}
	return out
}
