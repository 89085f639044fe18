package openai

import (
	"log/slog"
	"net/http"

	"github.com/poiesic/scout/ai"
	"github.com/tmc/langchaingo/llms/openai"
)

// Provider implements ai.AIProvider on top of OpenAI-compatible servers.
// Both services share one HTTP client so connection reuse and the request
// timeout apply to the classifier and the embedder alike.
type Provider struct {
	httpClient *http.Client
	embedder   *Embedder
	classifier *RelevanceClassifier
	logger     *slog.Logger
}

// NewProvider validates config and builds the embedder and classifier.
func NewProvider(config *ai.Config) (ai.AIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	httpClient := &http.Client{Timeout: config.RequestTimeout}

	embedder, err := newEmbedder(config, httpClient)
	if err != nil {
		return nil, err
	}
	classifier, err := newRelevanceClassifier(config, httpClient)
	if err != nil {
		return nil, err
	}

	return &Provider{
		httpClient: httpClient,
		embedder:   embedder,
		classifier: classifier,
		logger:     slog.Default().With("component", "openai-provider"),
	}, nil
}

// newLLM builds a langchaingo client for one service endpoint.
func newLLM(host string, config *ai.Config, httpClient *http.Client, opts ...openai.Option) (*openai.LLM, error) {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.RequestTimeout}
	}
	opts = append([]openai.Option{
		openai.WithBaseURL(host),
		openai.WithToken(config.Token),
		openai.WithHTTPClient(httpClient),
	}, opts...)
	return openai.New(opts...)
}

func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

func (p *Provider) RelevanceClassifier() ai.RelevanceClassifier {
	return p.classifier
}

// Close drops idle connections to the AI servers.
func (p *Provider) Close() error {
	p.logger.Debug("closing OpenAI provider")
	p.httpClient.CloseIdleConnections()
	return nil
}
