package search

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/scout/core"
	"github.com/poiesic/scout/discovery"
	"github.com/poiesic/scout/extraction"
	"github.com/poiesic/scout/prioritize"
	"github.com/poiesic/scout/provider"
	"github.com/poiesic/scout/ratelimit"
	"github.com/poiesic/scout/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := day(y, m, d)
	return &t
}

func kartellrechtRequest() core.SearchRequest {
	return core.SearchRequest{
		Term:     "Kartellrecht",
		Country:  "DE",
		From:     day(2025, 11, 15),
		To:       day(2025, 11, 29),
		Industry: []string{"Legal", "Compliance"},
	}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.RateLimit.InitialRate = 100
	cfg.RateLimit.MaxRate = 200
	cfg.RateLimit.Burst = 50
	cfg.Discovery.MaxVariants = 6
	cfg.Discovery.Policy = provider.Policy{
		Timeout:    time.Second,
		MaxRetries: 1,
		BaseDelay:  time.Millisecond,
		MaxDelay:   2 * time.Millisecond,
	}
	cfg.Prioritize.BatchTimeout = 50 * time.Millisecond
	cfg.Deadline = 10 * time.Second
	return cfg
}

func newTestOrchestrator(t *testing.T, d Discoverer, x extraction.Extractor, opts ...Option) *Orchestrator {
	t.Helper()
	opts = append([]Option{WithConfig(testConfig())}, opts...)
	o, err := NewOrchestrator(d, x, opts...)
	require.NoError(t, err)
	t.Cleanup(o.Release)
	return o
}

func newTestFanout(t *testing.T, p provider.Provider) *discovery.Fanout {
	t.Helper()
	cfg := testConfig()
	limiter := ratelimit.New(cfg.LimiterOptions()...)
	f, err := discovery.NewFanout(p, limiter, discovery.WithConfig(cfg.Discovery))
	require.NoError(t, err)
	t.Cleanup(f.Release)
	return f
}

// fakeDiscoverer serves fixed candidates per window and records the requests.
type fakeDiscoverer struct {
	mu       sync.Mutex
	byWindow map[core.WindowTag][]core.CandidateURL
	err      error
	requests []core.SearchRequest
}

func (d *fakeDiscoverer) Discover(ctx context.Context, req core.SearchRequest, window core.WindowTag) (*discovery.Result, error) {
	d.mu.Lock()
	d.requests = append(d.requests, req)
	d.mu.Unlock()

	res := &discovery.Result{Stats: discovery.Stats{Variants: 1}}
	if d.err != nil {
		return res, d.err
	}
	if ctx.Err() != nil {
		return res, core.ErrDeadlineExceeded
	}
	for i, c := range d.byWindow[window] {
		c.Normalized = core.NormalizeURL(c.URL)
		c.Window = window
		c.Order = i
		res.Candidates = append(res.Candidates, c)
	}
	res.Stats.CacheLookups = 1
	if len(res.Candidates) == 0 {
		return res, core.ErrNoResults
	}
	return res, nil
}

func goodEvent(start *time.Time, city string, speakers ...string) *core.EventCandidate {
	c := &core.EventCandidate{
		Title:     "Kartellrecht Konferenz",
		StartDate: start,
		City:      city,
		Country:   "DE",
		Organizer: "Kartellrecht Forum e.V.",
	}
	for _, s := range speakers {
		c.Speakers = append(c.Speakers, core.Person{Name: s})
	}
	return c
}

func TestNewOrchestrator(t *testing.T) {
	d := &fakeDiscoverer{}
	x := &extraction.MockExtractor{}

	t.Run("valid configuration", func(t *testing.T) {
		o, err := NewOrchestrator(d, x)
		require.NoError(t, err)
		defer o.Release()
		assert.Equal(t, ConfigVersion, o.Config().Version)
	})

	t.Run("with nil logger falls back to default", func(t *testing.T) {
		o, err := NewOrchestrator(d, x, WithLogger(nil))
		require.NoError(t, err)
		o.Release()
	})

	t.Run("nil discoverer", func(t *testing.T) {
		_, err := NewOrchestrator(nil, x)
		assert.Equal(t, ErrDiscovererRequired, err)
	})

	t.Run("nil extractor", func(t *testing.T) {
		_, err := NewOrchestrator(d, nil)
		assert.Equal(t, ErrExtractorRequired, err)
	})

	t.Run("unknown config version", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Version = 2
		_, err := NewOrchestrator(d, x, WithConfig(cfg))
		assert.ErrorIs(t, err, ErrUnsupportedConfigVersion)
	})

	t.Run("too many expansion steps", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Expansion.MaxSteps = 3
		_, err := NewOrchestrator(d, x, WithConfig(cfg))
		assert.Error(t, err)
	})
}

func TestRun_InvalidRequest(t *testing.T) {
	o := newTestOrchestrator(t, &fakeDiscoverer{}, &extraction.MockExtractor{})
	req := kartellrechtRequest()
	req.To = req.From.AddDate(0, 0, -1)

	_, err := o.Run(context.Background(), req)
	assert.ErrorIs(t, err, core.ErrInvalidRequest)
}

func TestRun_KartellrechtEndToEnd(t *testing.T) {
	const (
		conference = "https://www.kartellrecht-konferenz.de/programm"
		aggregator = "https://www.eventbrite.de/e/kartellrecht-123"
		summit     = "https://compliance-summit.de/"
		tag        = "https://kartellrechtstag.de/"
		generic    = "https://generic-compliance.com/events"
		tagged     = tag + "?utm_source=news"
	)
	p := provider.NewMockProvider("web",
		core.RawResult{URL: conference, Title: "Kartellrecht Konferenz 2025 - Programm", Score: 0.6},
		core.RawResult{URL: summit, Title: "Compliance Summit 2025", Score: 0.9},
		core.RawResult{URL: aggregator, Title: "Kartellrecht Seminar", Score: 0.8},
		core.RawResult{URL: tagged, Title: "Kartellrechtstag 2025 Berlin", Score: 0.5},
		core.RawResult{URL: generic, Title: "Compliance Events", Score: 0.7},
	)
	x := &extraction.MockExtractor{Candidates: map[string]*core.EventCandidate{
		conference: goodEvent(datePtr(2025, 11, 20), "Berlin", "Dr. Andrea Müller", "Hans Weber", "Reserve Seat"),
		summit:     goodEvent(datePtr(2025, 11, 18), "Hamburg", "Anna Schmidt", "Peter Klein", "Maria Vogel"),
		tagged:     goodEvent(datePtr(2025, 11, 27), "München", "Julia Wagner"),
	}}

	o := newTestOrchestrator(t, newTestFanout(t, p), x)
	res, err := o.Run(context.Background(), kartellrechtRequest())
	require.NoError(t, err)

	require.Len(t, res.Candidates, 3)
	assert.Equal(t, conference, res.Candidates[0].SourceURL)
	assert.Equal(t, tagged, res.Candidates[1].SourceURL)
	assert.Equal(t, summit, res.Candidates[2].SourceURL)
	for _, c := range res.Candidates {
		assert.Equal(t, core.WindowOriginal, c.Window)
		require.NotNil(t, c.Verdict)
		assert.True(t, c.Verdict.Pass)
		assert.NotEmpty(t, c.ID)
	}
	assert.Len(t, res.Candidates[0].Speakers, 2, "non-person entries are dropped")

	md := res.Metadata
	assert.NotEmpty(t, md.ID)
	assert.Equal(t, 5, md.Discovered)
	assert.Equal(t, 0, md.DroppedAggregators, "the only aggregator is re-admitted as backstop")
	assert.Equal(t, 5, md.Prioritized)
	assert.Equal(t, 3, md.Extracted)
	assert.Equal(t, 1, md.ExtractionFailures)
	assert.Equal(t, 3, md.Accepted)
	assert.Equal(t, map[string]int{"original": 3}, md.WindowCounts)
	assert.Contains(t, md.Degraded, "extraction failed for 1 of 4 urls")
	assert.Contains(t, md.Degraded, "prioritization used fallback scoring for 2 of 2 batches")
	assert.NotContains(t, x.URLs(), generic, "low-priority urls are not extracted")
}

// blockingScorer never answers before its context is done.
type blockingScorer struct{}

func (blockingScorer) Score(ctx context.Context, _ core.SearchRequest, _ []core.CandidateURL) ([]core.ScoredURL, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestRun_PrioritizerTimeoutFallsBack(t *testing.T) {
	d := &fakeDiscoverer{byWindow: map[core.WindowTag][]core.CandidateURL{
		core.WindowOriginal: {
			{URL: "https://kartellrecht-a.de/konferenz", Title: "Kartellrecht Konferenz 2025"},
			{URL: "https://kartellrecht-b.de/tagung", Title: "Kartellrecht Tagung 2025"},
		},
	}}
	x := &extraction.MockExtractor{Candidates: map[string]*core.EventCandidate{
		"https://kartellrecht-a.de/konferenz": goodEvent(datePtr(2025, 11, 20), "Berlin", "Hans Weber"),
		"https://kartellrecht-b.de/tagung":    goodEvent(datePtr(2025, 11, 21), "Bonn", "Anna Schmidt"),
	}}
	cfg := testConfig()
	cfg.Expansion.MinResults = 1
	o := newTestOrchestrator(t, d, x, WithConfig(cfg), WithScorer(blockingScorer{}))

	res, err := o.Run(context.Background(), kartellrechtRequest())
	require.NoError(t, err)
	assert.Len(t, res.Candidates, 2)
	assert.Equal(t, 1, res.Metadata.TotalBatches)
	assert.Equal(t, 1, res.Metadata.FallbackBatches)
	assert.Contains(t, res.Metadata.Degraded, "prioritization used fallback scoring for 1 of 1 batches")
}

func TestRun_ReportsPrioritizerCap(t *testing.T) {
	d := &fakeDiscoverer{byWindow: map[core.WindowTag][]core.CandidateURL{
		core.WindowOriginal: {
			{URL: "https://kartellrecht-a.de/konferenz", Title: "Kartellrecht Konferenz 2025"},
			{URL: "https://kartellrecht-b.de/tagung", Title: "Kartellrecht Tagung 2025"},
		},
	}}
	x := &extraction.MockExtractor{Candidates: map[string]*core.EventCandidate{
		"https://kartellrecht-a.de/konferenz": goodEvent(datePtr(2025, 11, 20), "Berlin", "Hans Weber"),
		"https://kartellrecht-b.de/tagung":    goodEvent(datePtr(2025, 11, 21), "Bonn", "Anna Schmidt"),
	}}
	cfg := testConfig()
	cfg.Expansion.MinResults = 1
	cfg.Prioritize.MaxURLs = 1
	o := newTestOrchestrator(t, d, x, WithConfig(cfg))

	res, err := o.Run(context.Background(), kartellrechtRequest())
	require.NoError(t, err)
	assert.Len(t, res.Candidates, 1)
	assert.Equal(t, 1, res.Metadata.Prioritized)
	assert.Contains(t, res.Metadata.Degraded, "prioritization skipped 1 urls beyond the cap")
}

func TestRun_ExpandsWindowForLowRecall(t *testing.T) {
	const (
		a = "https://kartellrecht-a.de/konferenz"
		b = "https://kartellrecht-b.de/konferenz"
		c = "https://kartellrecht-c.de/konferenz"
	)
	d := &fakeDiscoverer{byWindow: map[core.WindowTag][]core.CandidateURL{
		core.WindowOriginal:  {{URL: a, Title: "Kartellrecht Konferenz 2025"}},
		core.WindowExpanded1: {{URL: a + "/", Title: "Kartellrecht Konferenz 2025"}, {URL: b, Title: "Kartellrecht Konferenz 2025"}},
		core.WindowExpanded2: {{URL: c, Title: "Kartellrecht Konferenz 2025"}},
	}}
	x := &extraction.MockExtractor{Candidates: map[string]*core.EventCandidate{
		a: goodEvent(datePtr(2025, 11, 20), "Berlin", "Hans Weber"),
		b: goodEvent(datePtr(2025, 12, 5), "Berlin", "Anna Schmidt"),
		c: goodEvent(datePtr(2025, 12, 20), "Berlin", "Julia Wagner"),
	}}
	var trace bytes.Buffer
	o := newTestOrchestrator(t, d, x)

	res, err := o.RunWithMonitor(context.Background(), kartellrechtRequest(), NewWriterMonitor(&trace))
	require.NoError(t, err)

	require.Len(t, d.requests, 3)
	assert.Equal(t, day(2025, 11, 1), d.requests[1].From)
	assert.Equal(t, day(2025, 12, 13), d.requests[1].To)
	assert.Equal(t, day(2025, 10, 18), d.requests[2].From)
	assert.Equal(t, day(2025, 12, 27), d.requests[2].To)

	require.Len(t, res.Candidates, 3)
	assert.Equal(t, a, res.Candidates[0].SourceURL)
	assert.Equal(t, core.WindowOriginal, res.Candidates[0].Window)
	assert.Equal(t, b, res.Candidates[1].SourceURL)
	assert.Equal(t, core.WindowExpanded1, res.Candidates[1].Window)
	assert.Equal(t, c, res.Candidates[2].SourceURL)
	assert.Equal(t, core.WindowExpanded2, res.Candidates[2].Window)
	assert.Equal(t, map[string]int{"original": 1, "expanded-1": 1, "expanded-2": 1}, res.Metadata.WindowCounts)
	assert.Equal(t, 3, res.Metadata.Discovered, "urls seen in an earlier window are skipped")

	assert.Contains(t, trace.String(), "expanding to expanded-1: 2025-11-01..2025-12-13")
	assert.Contains(t, trace.String(), "expanding to expanded-2")
	assert.Contains(t, trace.String(), "finished: 3 candidates")
}

func TestRun_StopsExpandingWhenEnoughResults(t *testing.T) {
	d := &fakeDiscoverer{byWindow: map[core.WindowTag][]core.CandidateURL{
		core.WindowOriginal: {{URL: "https://kartellrecht-a.de/konferenz", Title: "Kartellrecht Konferenz 2025"}},
	}}
	x := &extraction.MockExtractor{Candidates: map[string]*core.EventCandidate{
		"https://kartellrecht-a.de/konferenz": goodEvent(datePtr(2025, 11, 20), "Berlin", "Hans Weber"),
	}}
	cfg := testConfig()
	cfg.Expansion.MinResults = 1
	o := newTestOrchestrator(t, d, x, WithConfig(cfg))

	_, err := o.Run(context.Background(), kartellrechtRequest())
	require.NoError(t, err)
	assert.Len(t, d.requests, 1)
}

func TestRun_RejectedCandidatesAreNotReturned(t *testing.T) {
	d := &fakeDiscoverer{byWindow: map[core.WindowTag][]core.CandidateURL{
		core.WindowOriginal: {{URL: "https://kartellrecht.com/konferenz", Title: "Kartellrecht Konferenz 2025"}},
	}}
	x := &extraction.MockExtractor{Candidates: map[string]*core.EventCandidate{
		"https://kartellrecht.com/konferenz": {Title: "Kartellrecht Konferenz", StartDate: datePtr(2025, 10, 6)},
	}}
	cfg := testConfig()
	cfg.Expansion.MaxSteps = 0
	o := newTestOrchestrator(t, d, x, WithConfig(cfg))

	res, err := o.Run(context.Background(), kartellrechtRequest())
	require.NoError(t, err, "discovered but rejected is an empty result, not an error")
	assert.Empty(t, res.Candidates)
	assert.Equal(t, 1, res.Metadata.Rejected)
}

func TestRun_NothingFound(t *testing.T) {
	d := &fakeDiscoverer{err: core.ErrNoResults}
	o := newTestOrchestrator(t, d, &extraction.MockExtractor{})

	_, err := o.Run(context.Background(), kartellrechtRequest())
	assert.ErrorIs(t, err, core.ErrNoResults)
	assert.Len(t, d.requests, 3, "expansion is still attempted")
}

func TestRun_DeadlineWithNothingUsable(t *testing.T) {
	d := &fakeDiscoverer{byWindow: map[core.WindowTag][]core.CandidateURL{}}
	o := newTestOrchestrator(t, d, &extraction.MockExtractor{})

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	_, err := o.Run(ctx, kartellrechtRequest())
	assert.ErrorIs(t, err, core.ErrDeadlineExceeded)
	assert.Len(t, d.requests, 1, "no expansion after the deadline")
}

func TestRun_PersistsRun(t *testing.T) {
	_, runs, backend, err := badger.NewMemoryStores()
	require.NoError(t, err)
	defer backend.Close()

	d := &fakeDiscoverer{byWindow: map[core.WindowTag][]core.CandidateURL{
		core.WindowOriginal: {{URL: "https://kartellrecht-a.de/konferenz", Title: "Kartellrecht Konferenz 2025"}},
	}}
	x := &extraction.MockExtractor{Candidates: map[string]*core.EventCandidate{
		"https://kartellrecht-a.de/konferenz": goodEvent(datePtr(2025, 11, 20), "Berlin", "Hans Weber"),
	}}
	cfg := testConfig()
	cfg.Expansion.MinResults = 1
	now := time.Date(2025, 11, 1, 9, 0, 0, 0, time.UTC)
	o := newTestOrchestrator(t, d, x, WithConfig(cfg), WithRunRepository(runs),
		WithClock(func() time.Time { return now }))

	res, err := o.Run(context.Background(), kartellrechtRequest())
	require.NoError(t, err)

	stored, err := runs.GetRun(context.Background(), res.Metadata.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Metadata.ID, stored.Metadata.ID)
	assert.True(t, now.Equal(stored.Metadata.StartedAt))
	require.Len(t, stored.Candidates, 1)
	assert.Equal(t, "https://kartellrecht-a.de/konferenz", stored.Candidates[0].SourceURL)
}

func TestSortCandidates(t *testing.T) {
	verdict := func(score float64) *core.QualityVerdict { return &core.QualityVerdict{Score: score, Pass: true} }
	cs := []*core.EventCandidate{
		{SourceURL: "https://e.de/a/b", Window: core.WindowExpanded1, Priority: 1, Verdict: verdict(0.9)},
		{SourceURL: "https://d.de/a/b", Priority: 0.5, Verdict: verdict(0.5), Order: 2},
		{SourceURL: "https://c.de/a", Priority: 0.5, Verdict: verdict(0.5), Order: 3},
		{SourceURL: "https://b.de/a", Priority: 0.5, Verdict: verdict(0.8), Order: 4},
		{SourceURL: "https://a.de/a", Priority: 0.9, Verdict: verdict(0.4), Order: 5},
		{SourceURL: "https://f.de/a/b", Priority: 0.5, Verdict: verdict(0.5), Order: 1},
	}

	sortCandidates(cs)
	var got []string
	for _, c := range cs {
		got = append(got, c.SourceURL)
	}
	assert.Equal(t, []string{
		"https://a.de/a",
		"https://b.de/a",
		"https://c.de/a",
		"https://f.de/a/b",
		"https://d.de/a/b",
		"https://e.de/a/b",
	}, got)
}

func TestConfig_LimiterOptions(t *testing.T) {
	cfg := DefaultConfig()
	slow := ratelimit.DefaultProfile()
	slow.InitialRate = 0.5
	cfg.ProviderRateLimits = map[string]ratelimit.Profile{"rss": slow}
	require.NoError(t, cfg.Validate())

	l := ratelimit.New(cfg.LimiterOptions()...)
	assert.Equal(t, 0.5, l.Rate("rss"))
	assert.Equal(t, cfg.RateLimit.InitialRate, l.Rate("web"))
}

var _ prioritize.Scorer = blockingScorer{}
