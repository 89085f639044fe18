package prioritize

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/scout/ai"
	"github.com/poiesic/scout/ai/mock"
	"github.com/poiesic/scout/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRequest() core.SearchRequest {
	return core.SearchRequest{
		Term:    "Kartellrecht",
		Country: "DE",
		From:    time.Date(2025, 11, 15, 0, 0, 0, 0, time.UTC),
		To:      time.Date(2025, 11, 29, 0, 0, 0, 0, time.UTC),
	}
}

func urls(n int) []core.CandidateURL {
	out := make([]core.CandidateURL, n)
	for i := range out {
		u := fmt.Sprintf("https://example%d.de/kartellrecht-konferenz-2025", i)
		out[i] = core.CandidateURL{URL: u, Normalized: core.NormalizeURL(u), Order: i}
	}
	return out
}

func newPrioritizer(t *testing.T, primary Scorer, cfg Config) *Prioritizer {
	t.Helper()
	p, err := New(primary, WithConfig(cfg))
	require.NoError(t, err)
	return p
}

func TestPrioritize_LLMPath(t *testing.T) {
	classifier := mock.NewMockRelevanceClassifier()
	p := newPrioritizer(t, NewLLMScorer(classifier), DefaultConfig())

	res, err := p.Prioritize(context.Background(), urls(7), testRequest())
	require.NoError(t, err)
	require.Len(t, res.Scored, 7)
	assert.Len(t, res.Batches, 3)
	assert.Zero(t, res.FallbackBatches)
	assert.Equal(t, 3, classifier.CallCount())

	for _, s := range res.Scored {
		assert.Equal(t, core.ScoreMethodLLM, s.Method)
	}
	for _, b := range res.Batches {
		assert.Equal(t, []BatchState{StatePending, StateLLMAttempt, StateScored}, b.States)
	}
}

func TestPrioritize_CapsURLs(t *testing.T) {
	p := newPrioritizer(t, nil, DefaultConfig())
	res, err := p.Prioritize(context.Background(), urls(20), testRequest())
	require.NoError(t, err)
	assert.Len(t, res.Scored, 12)
	assert.Equal(t, 8, res.Skipped)
	assert.Len(t, res.Batches, 4)
}

func TestPrioritize_TimedOutBatchFallsBack(t *testing.T) {
	var calls atomic.Int32
	classifier := mock.NewMockRelevanceClassifier()
	classifier.ClassifyFunc = func(ctx context.Context, query string, items []ai.RelevanceItem) ([]ai.Judgement, error) {
		if calls.Add(1) == 1 {
			// Ignores its context entirely.
			time.Sleep(200 * time.Millisecond)
		}
		out := make([]ai.Judgement, len(items))
		for i, it := range items {
			out[i] = ai.Judgement{Index: it.Index, Score: 0.9, Keep: true}
		}
		return out, nil
	}
	cfg := DefaultConfig()
	cfg.BatchTimeout = 20 * time.Millisecond
	cfg.Concurrency = 1
	p := newPrioritizer(t, NewLLMScorer(classifier), cfg)

	input := urls(6)
	res, err := p.Prioritize(context.Background(), input, testRequest())
	require.NoError(t, err)
	require.Len(t, res.Scored, len(input), "every URL is scored")
	assert.Equal(t, 1, res.FallbackBatches)

	first := res.Batches[0]
	assert.Equal(t, []BatchState{StatePending, StateLLMAttempt, StateTimeout, StateLexicalFallback, StateScored}, first.States)
	assert.ErrorIs(t, first.Err, core.ErrProviderTimeout)
	assert.Equal(t, core.ScoreMethodLexical, first.Method)
	assert.Equal(t, core.ScoreMethodLLM, res.Batches[1].Method)

	lexical := 0
	for _, s := range res.Scored {
		if s.Method == core.ScoreMethodLexical {
			lexical++
			assert.Positive(t, s.Priority)
		}
	}
	assert.Equal(t, 3, lexical)
}

func TestPrioritize_MalformedOutputFallsBack(t *testing.T) {
	classifier := mock.NewMockRelevanceClassifier()
	classifier.ClassifyFunc = func(context.Context, string, []ai.RelevanceItem) ([]ai.Judgement, error) {
		return []ai.Judgement{{Index: 0, Score: 1, Keep: true}}, nil
	}
	p := newPrioritizer(t, NewLLMScorer(classifier), DefaultConfig())

	res, err := p.Prioritize(context.Background(), urls(3), testRequest())
	require.NoError(t, err)
	assert.Len(t, res.Scored, 3)
	assert.Equal(t, 1, res.FallbackBatches)
	assert.ErrorIs(t, res.Batches[0].Err, core.ErrProviderMalformedResponse)
}

func TestPrioritize_CancelledContextStillScores(t *testing.T) {
	classifier := mock.NewMockRelevanceClassifier()
	p := newPrioritizer(t, NewLLMScorer(classifier), DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	classifier.ClassifyFunc = func(ctx context.Context, _ string, _ []ai.RelevanceItem) ([]ai.Judgement, error) {
		return nil, ctx.Err()
	}
	res, err := p.Prioritize(ctx, urls(4), testRequest())
	require.NoError(t, err)
	assert.Len(t, res.Scored, 4)
	assert.Equal(t, 2, res.FallbackBatches)
}

func TestPrioritize_Ordering(t *testing.T) {
	classifier := mock.NewMockRelevanceClassifier()
	classifier.ClassifyFunc = func(_ context.Context, _ string, items []ai.RelevanceItem) ([]ai.Judgement, error) {
		out := make([]ai.Judgement, len(items))
		for i, it := range items {
			score := 0.5
			if it.Index == 1 {
				score = 0.9
			}
			out[i] = ai.Judgement{Index: it.Index, Score: score, Keep: it.Index != 0}
		}
		return out, nil
	}
	p := newPrioritizer(t, NewLLMScorer(classifier), DefaultConfig())

	res, err := p.Prioritize(context.Background(), urls(3), testRequest())
	require.NoError(t, err)
	require.Len(t, res.Scored, 3)
	assert.Equal(t, 1, res.Scored[0].Order)
	assert.Equal(t, 2, res.Scored[1].Order)
	assert.Equal(t, 0, res.Scored[2].Order, "dropped URLs sort last")
	assert.False(t, res.Scored[2].Keep)
}

func TestPrioritize_Empty(t *testing.T) {
	p := newPrioritizer(t, nil, DefaultConfig())
	res, err := p.Prioritize(context.Background(), nil, testRequest())
	require.NoError(t, err)
	assert.Empty(t, res.Scored)
	assert.Empty(t, res.Batches)
}

func TestLexicalScorer(t *testing.T) {
	s := NewLexicalScorer(0.3)
	batch := []core.CandidateURL{
		{URL: "https://kartell-forum.de/konferenz-2025", Title: "Kartellrecht Konferenz"},
		{URL: "https://compliance.com/blog", Title: "Compliance news"},
		{URL: "https://example.com/", Title: ""},
	}
	out, err := s.Score(context.Background(), testRequest(), batch)
	require.NoError(t, err)
	require.Len(t, out, 3)

	assert.InDelta(t, 1.0, out[0].Priority, 1e-9)
	assert.True(t, out[0].Keep)
	assert.Equal(t, "term,event,location,year", out[0].Reason)

	assert.Greater(t, out[0].Priority, out[1].Priority)
	assert.False(t, out[2].Keep)
	assert.Zero(t, out[2].Priority)
	for _, o := range out {
		assert.Equal(t, core.ScoreMethodLexical, o.Method)
	}
}

func TestLexicalScorer_UsesIndustryWithoutTerm(t *testing.T) {
	s := NewLexicalScorer(0.3)
	req := testRequest()
	req.Term = ""
	req.Industry = []string{"Compliance"}
	out, err := s.Score(context.Background(), req, []core.CandidateURL{{URL: "https://compliance.com/blog"}})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, out[0].Priority, 1e-9)
}

func TestLLMScorer_MissingJudgement(t *testing.T) {
	classifier := mock.NewMockRelevanceClassifier()
	classifier.ClassifyFunc = func(context.Context, string, []ai.RelevanceItem) ([]ai.Judgement, error) {
		return []ai.Judgement{{Index: 5}}, nil
	}
	_, err := NewLLMScorer(classifier).Score(context.Background(), testRequest(), urls(1))
	assert.ErrorIs(t, err, core.ErrProviderMalformedResponse)
}

func TestDescribe(t *testing.T) {
	req := testRequest()
	req.Industry = []string{"Legal"}
	assert.Equal(t, "Kartellrecht events for Legal in DE between 2025-11-15 and 2025-11-29", describe(req))
	assert.Equal(t, "professional events", describe(core.SearchRequest{}))
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
	cfg := DefaultConfig()
	cfg.BatchSize = 0
	assert.Error(t, cfg.Validate())
	_, err := New(nil, WithConfig(cfg))
	assert.Error(t, err)
}
