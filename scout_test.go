package scout

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/scout/ai/mock"
	"github.com/poiesic/scout/core"
	"github.com/poiesic/scout/extraction"
	"github.com/poiesic/scout/provider"
	"github.com/poiesic/scout/search"
	"github.com/poiesic/scout/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const forumURL = "https://www.kartellrecht-forum.de/programm"

func testConfig() search.Config {
	cfg := search.DefaultConfig()
	cfg.RateLimit.InitialRate = 100
	cfg.RateLimit.MaxRate = 200
	cfg.RateLimit.Burst = 50
	cfg.Discovery.MaxVariants = 4
	cfg.Discovery.Policy = provider.Policy{
		Timeout:    time.Second,
		MaxRetries: 1,
		BaseDelay:  time.Millisecond,
		MaxDelay:   2 * time.Millisecond,
	}
	cfg.Expansion.MinResults = 1
	cfg.Deadline = 10 * time.Second
	return cfg
}

func testRequest() core.SearchRequest {
	return core.SearchRequest{
		Term:    "Kartellrecht",
		Country: "DE",
		From:    time.Date(2025, 11, 15, 0, 0, 0, 0, time.UTC),
		To:      time.Date(2025, 11, 29, 0, 0, 0, 0, time.UTC),
	}
}

func testExtractor() *extraction.MockExtractor {
	start := time.Date(2025, 11, 20, 0, 0, 0, 0, time.UTC)
	return &extraction.MockExtractor{Candidates: map[string]*core.EventCandidate{
		forumURL: {
			Title:     "Kartellrecht Forum 2025",
			StartDate: &start,
			City:      "Berlin",
			Country:   "DE",
			Organizer: "Kartellrecht Forum GmbH",
			Speakers:  []core.Person{{Name: "Dr. Andrea Müller", Organization: "Bundeskartellamt"}},
		},
	}}
}

func openTestEngine(t *testing.T, p provider.Provider, opts ...EngineOption) *Engine {
	t.Helper()
	opts = append([]EngineOption{
		WithInMemory(),
		WithConfig(testConfig()),
		WithProviders(p, nil),
		WithExtractor(testExtractor()),
	}, opts...)
	e, err := Open(context.Background(), "", opts...)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func TestOpen(t *testing.T) {
	t.Run("on disk", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "scout_db")
		e, err := Open(context.Background(), dir, WithProviders(provider.NewMockProvider("web"), nil))
		require.NoError(t, err)
		require.NotNil(t, e)

		assert.NotNil(t, e.backend)
		assert.NotNil(t, e.runs)
		assert.Len(t, e.cache.Tiers(), 2)
		assert.Nil(t, e.l2)
		assert.NoError(t, e.Close())
	})

	t.Run("error with invalid path", func(t *testing.T) {
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		require.NoError(t, os.WriteFile(tmpFile, []byte("test"), 0644))

		e, err := Open(context.Background(), tmpFile, WithProviders(provider.NewMockProvider("web"), nil))
		assert.Error(t, err)
		assert.Nil(t, e)
	})

	t.Run("requires a primary provider", func(t *testing.T) {
		_, err := Open(context.Background(), "", WithInMemory())
		assert.ErrorIs(t, err, ErrPrimaryProviderRequired)
	})

	t.Run("search endpoint builds both providers", func(t *testing.T) {
		o := &engineOptions{searchEndpoint: "http://localhost:8888"}
		primary, secondary, err := providers(o)
		require.NoError(t, err)
		assert.Equal(t, "searx", primary.Name())
		require.NotNil(t, secondary)
		assert.Equal(t, "rss", secondary.Name())

		o.noFeed = true
		_, secondary, err = providers(o)
		require.NoError(t, err)
		assert.Nil(t, secondary)
	})

	t.Run("rejects invalid config", func(t *testing.T) {
		cfg := search.DefaultConfig()
		cfg.Version = 0
		_, err := Open(context.Background(), "", WithInMemory(), WithConfig(cfg),
			WithProviders(provider.NewMockProvider("web"), nil))
		assert.ErrorIs(t, err, search.ErrUnsupportedConfigVersion)
	})
}

func TestEngine_DiscoverPersistsAndCaches(t *testing.T) {
	p := provider.NewMockProvider("web",
		core.RawResult{URL: forumURL, Title: "Kartellrecht Forum 2025 Programm", Score: 0.8})
	e := openTestEngine(t, p)
	ctx := context.Background()

	first, err := e.Discover(ctx, testRequest())
	require.NoError(t, err)
	require.Len(t, first.Candidates, 1)
	assert.Equal(t, "Bundeskartellamt", first.Candidates[0].Speakers[0].NormalizedOrganization)
	assert.Equal(t, "Kartellrecht Forum", first.Candidates[0].Organizer)
	calls := p.CallCount()
	assert.Positive(t, calls)

	second, err := e.Discover(ctx, testRequest())
	require.NoError(t, err)
	assert.Equal(t, calls, p.CallCount(), "second run is served from cache")
	assert.Equal(t, second.Metadata.CacheLookups, second.Metadata.CacheHits)
	assert.Equal(t, 1.0, second.Metadata.CacheHitRatio())

	stored, err := e.GetRun(ctx, first.Metadata.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Candidates[0].SourceURL, stored.Candidates[0].SourceURL)

	runs, err := e.ListRuns(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	require.NoError(t, e.DeleteRun(ctx, first.Metadata.ID))
	_, err = e.GetRun(ctx, first.Metadata.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestEngine_PurgeCache(t *testing.T) {
	p := provider.NewMockProvider("web",
		core.RawResult{URL: forumURL, Title: "Kartellrecht Forum 2025 Programm", Score: 0.8})
	e := openTestEngine(t, p)
	ctx := context.Background()

	_, err := e.Discover(ctx, testRequest())
	require.NoError(t, err)
	calls := p.CallCount()

	require.NoError(t, e.PurgeCache(ctx))
	res, err := e.Discover(ctx, testRequest())
	require.NoError(t, err)
	assert.Greater(t, p.CallCount(), calls, "purged entries are fetched again")
	assert.Zero(t, res.Metadata.CacheHits)
}

func TestEngine_WithAIProvider(t *testing.T) {
	p := provider.NewMockProvider("web",
		core.RawResult{URL: forumURL, Title: "Kartellrecht Forum 2025 Programm", Score: 0.8})
	embedder := mock.NewMockEmbedder()
	classifier := mock.NewMockRelevanceClassifier()
	e := openTestEngine(t, p, WithAIProvider(mock.NewMockProviderWithServices(embedder, classifier)))

	res, err := e.Discover(context.Background(), testRequest())
	require.NoError(t, err)
	require.Len(t, res.Candidates, 1)
	assert.Positive(t, classifier.CallCount())
	assert.Positive(t, embedder.CallCount())
	assert.Zero(t, res.Metadata.FallbackBatches)
}

func TestEngine_DiscoverWithMonitor(t *testing.T) {
	p := provider.NewMockProvider("web")
	e := openTestEngine(t, p)

	var trace bytes.Buffer
	_, err := e.DiscoverWithMonitor(context.Background(), testRequest(), search.NewWriterMonitor(&trace))
	assert.ErrorIs(t, err, core.ErrNoResults)
	assert.Equal(t, 2, strings.Count(trace.String(), "expanding to"))
}
