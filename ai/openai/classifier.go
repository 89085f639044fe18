package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/poiesic/scout/ai"
	"github.com/poiesic/scout/core"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// RelevanceClassifier implements ai.RelevanceClassifier using OpenAI-compatible chat APIs.
type RelevanceClassifier struct {
	client    llms.Model
	maxTokens int
	logger    *slog.Logger
}

// judgement matches the structure expected from the LLM.
type judgement struct {
	Index  *int     `json:"index"`
	Score  *float64 `json:"score"`
	Keep   *bool    `json:"keep"`
	Reason string   `json:"reason"`
}

type relevanceResponse struct {
	Results []judgement `json:"results"`
}

func newRelevanceClassifier(config *ai.Config, httpClient *http.Client) (*RelevanceClassifier, error) {
	client, err := newLLM(config.ClassifierHost, config, httpClient,
		openai.WithModel(config.ClassifierModel))
	if err != nil {
		return nil, err
	}
	return newRelevanceClassifierWithModel(client, config.MaxResponseTokens), nil
}

func newRelevanceClassifierWithModel(model llms.Model, maxTokens int) *RelevanceClassifier {
	return &RelevanceClassifier{
		client:    model,
		maxTokens: maxTokens,
		logger:    slog.Default().With("component", "openai-classifier"),
	}
}

// NewRelevanceClassifier validates config and returns a standalone classifier.
func NewRelevanceClassifier(config *ai.Config) (ai.RelevanceClassifier, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return newRelevanceClassifier(config, nil)
}

// ClassifyRelevance sends one batch to the model. There is no retry: the caller
// owns the time budget and falls back on any error.
func (c *RelevanceClassifier) ClassifyRelevance(ctx context.Context, query string, items []ai.RelevanceItem) ([]ai.Judgement, error) {
	if len(items) == 0 {
		return nil, nil
	}

	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(buildSystemPrompt())},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(buildUserPrompt(query, items))},
		},
	}

	response, err := c.client.GenerateContent(ctx, content,
		llms.WithTemperature(0.0),
		llms.WithMaxTokens(c.maxTokens),
		llms.WithJSONMode(),
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", core.ErrProviderTimeout, err)
		}
		return nil, err
	}
	if len(response.Choices) < 1 {
		return nil, fmt.Errorf("%w: no choices returned", core.ErrProviderMalformedResponse)
	}

	judgements, err := parseJudgements(response.Choices[0].Content, items)
	if err != nil {
		c.logger.Warn("unusable classifier response", "items", len(items), "err", err)
		return nil, err
	}
	return judgements, nil
}

// parseJudgements repairs and decodes a response, requiring one judgement per item.
func parseJudgements(raw string, items []ai.RelevanceItem) ([]ai.Judgement, error) {
	text := repairJSON(raw)

	var resp relevanceResponse
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrProviderMalformedResponse, err)
	}

	want := make(map[int]bool, len(items))
	for _, item := range items {
		want[item.Index] = true
	}

	byIndex := make(map[int]ai.Judgement, len(items))
	for _, j := range resp.Results {
		if j.Index == nil || j.Score == nil || j.Keep == nil {
			return nil, fmt.Errorf("%w: judgement missing required field", core.ErrProviderMalformedResponse)
		}
		if !want[*j.Index] {
			continue
		}
		byIndex[*j.Index] = ai.Judgement{
			Index:  *j.Index,
			Score:  clamp01(*j.Score),
			Keep:   *j.Keep,
			Reason: strings.TrimSpace(j.Reason),
		}
	}

	out := make([]ai.Judgement, 0, len(items))
	for _, item := range items {
		j, ok := byIndex[item.Index]
		if !ok {
			return nil, fmt.Errorf("%w: no judgement for item %d", core.ErrProviderMalformedResponse, item.Index)
		}
		out = append(out, j)
	}
	return out, nil
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
