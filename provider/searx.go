package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/poiesic/scout/core"
)

// SearchAPI queries a SearXNG-compatible JSON search endpoint.
type SearchAPI struct {
	name     string
	endpoint string
	client   *http.Client
}

var _ Provider = (*SearchAPI)(nil)

type searchAPIResponse struct {
	Results []struct {
		URL     string  `json:"url"`
		Title   string  `json:"title"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

// NewSearchAPI creates a provider for the given base URL, e.g. "http://localhost:8888".
// A nil client gets a default one; per-call timeouts come from the context.
func NewSearchAPI(name, endpoint string, client *http.Client) (*SearchAPI, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, ErrEndpointRequired
	}
	if client == nil {
		client = &http.Client{}
	}
	if name == "" {
		name = "searx"
	}
	return &SearchAPI{
		name:     name,
		endpoint: strings.TrimSuffix(endpoint, "/"),
		client:   client,
	}, nil
}

// Name implements Provider.
func (s *SearchAPI) Name() string {
	return s.name
}

// Search implements Provider.
func (s *SearchAPI) Search(ctx context.Context, query string, filters Filters) ([]core.RawResult, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	if lang := localeTag(filters.Language, filters.Country); lang != "" {
		params.Set("language", lang)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{Provider: s.name, Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var decoded searchAPIResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", core.ErrProviderMalformedResponse, s.name, err)
	}

	limit := limitOrDefault(filters.Limit)
	out := make([]core.RawResult, 0, min(limit, len(decoded.Results)))
	for _, r := range decoded.Results {
		if len(out) >= limit {
			break
		}
		if strings.TrimSpace(r.URL) == "" {
			continue
		}
		out = append(out, core.RawResult{
			URL:     strings.TrimSpace(r.URL),
			Title:   strings.TrimSpace(r.Title),
			Snippet: strings.TrimSpace(r.Content),
			Score:   r.Score,
		})
	}
	return out, nil
}

// localeTag builds "de-DE" style tags from whatever hints are present.
func localeTag(lang, country string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	country = strings.ToUpper(strings.TrimSpace(country))
	switch {
	case lang != "" && len(country) == 2:
		return lang + "-" + country
	case lang != "":
		return lang
	default:
		return ""
	}
}
