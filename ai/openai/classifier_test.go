package openai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/poiesic/scout/ai"
	"github.com/poiesic/scout/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

// fakeModel is an llms.Model returning canned content.
type fakeModel struct {
	content string
	err     error
	prompts []string
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	for _, m := range messages {
		for _, p := range m.Parts {
			if tp, ok := p.(llms.TextContent); ok {
				f.prompts = append(f.prompts, tp.Text)
			}
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.content}}}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, _ ...llms.CallOption) (string, error) {
	return f.content, f.err
}

var testItems = []ai.RelevanceItem{
	{Index: 0, URL: "https://kartellrechtstag.de/programm", Title: "Kartellrechtstag 2025"},
	{Index: 1, URL: "https://compliance.example/news", Title: "Compliance News", Snippet: "weekly roundup"},
}

func TestClassifyRelevance(t *testing.T) {
	ctx := context.Background()

	t.Run("well-formed response", func(t *testing.T) {
		model := &fakeModel{content: `{"results":[{"index":1,"score":0.1,"keep":false,"reason":"news"},{"index":0,"score":0.9,"keep":true}]}`}
		c := newRelevanceClassifierWithModel(model, 256)

		got, err := c.ClassifyRelevance(ctx, "Kartellrecht", testItems)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, ai.Judgement{Index: 0, Score: 0.9, Keep: true}, got[0])
		assert.Equal(t, ai.Judgement{Index: 1, Score: 0.1, Keep: false, Reason: "news"}, got[1])

		prompt := strings.Join(model.prompts, "\n")
		assert.Contains(t, prompt, `Search topic: "Kartellrecht"`)
		assert.Contains(t, prompt, "[1] https://compliance.example/news | Compliance News | weekly roundup")
	})

	t.Run("repairable response", func(t *testing.T) {
		model := &fakeModel{content: "Here you go:\n{\"results\":[{\"index\":0,\"score\":1.7,\"keep\":true},{\"index\":1,\"score\":-1,\"keep\":false},]}"}
		got, err := newRelevanceClassifierWithModel(model, 256).ClassifyRelevance(ctx, "x", testItems)
		require.NoError(t, err)
		assert.Equal(t, 1.0, got[0].Score)
		assert.Equal(t, 0.0, got[1].Score)
	})

	t.Run("missing judgement is malformed", func(t *testing.T) {
		model := &fakeModel{content: `{"results":[{"index":0,"score":0.9,"keep":true}]}`}
		_, err := newRelevanceClassifierWithModel(model, 256).ClassifyRelevance(ctx, "x", testItems)
		assert.ErrorIs(t, err, core.ErrProviderMalformedResponse)
	})

	t.Run("missing field is malformed", func(t *testing.T) {
		model := &fakeModel{content: `{"results":[{"index":0,"keep":true},{"index":1,"score":0.2,"keep":false}]}`}
		_, err := newRelevanceClassifierWithModel(model, 256).ClassifyRelevance(ctx, "x", testItems)
		assert.ErrorIs(t, err, core.ErrProviderMalformedResponse)
	})

	t.Run("garbage is malformed", func(t *testing.T) {
		model := &fakeModel{content: "I cannot help with that."}
		_, err := newRelevanceClassifierWithModel(model, 256).ClassifyRelevance(ctx, "x", testItems)
		assert.ErrorIs(t, err, core.ErrProviderMalformedResponse)
	})

	t.Run("model error is returned", func(t *testing.T) {
		model := &fakeModel{err: errors.New("connection refused")}
		_, err := newRelevanceClassifierWithModel(model, 256).ClassifyRelevance(ctx, "x", testItems)
		assert.Error(t, err)
	})

	t.Run("expired context reports timeout", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		model := &fakeModel{err: context.Canceled}
		_, err := newRelevanceClassifierWithModel(model, 256).ClassifyRelevance(cctx, "x", testItems)
		assert.ErrorIs(t, err, core.ErrProviderTimeout)
	})

	t.Run("empty batch", func(t *testing.T) {
		model := &fakeModel{}
		got, err := newRelevanceClassifierWithModel(model, 256).ClassifyRelevance(ctx, "x", nil)
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.Empty(t, model.prompts)
	})
}

func TestCompactText(t *testing.T) {
	assert.Equal(t, "a b c", compactText("  a \n b\tc ", 10))
	assert.Equal(t, "abc…", compactText("abcdef", 3))
	assert.Equal(t, "Müll…", compactText("Müller", 4))
}
