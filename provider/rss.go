package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/mmcdole/gofeed"
	"github.com/poiesic/scout/core"
)

// GoogleNewsRSS is the default feed template: query, hl, gl, ceid.
const GoogleNewsRSS = "https://news.google.com/rss/search?q=%s&hl=%s&gl=%s&ceid=%s"

// Feed queries an RSS or Atom search feed. It is the secondary provider used
// when the primary is exhausted.
type Feed struct {
	name     string
	template string
	client   *http.Client
}

var _ Provider = (*Feed)(nil)

// NewFeed creates a feed provider. The template takes four %s verbs:
// the escaped query, the host language (de-DE), the country (DE) and the
// edition id (DE:de). An empty template uses GoogleNewsRSS.
func NewFeed(name, template string, client *http.Client) *Feed {
	if template == "" {
		template = GoogleNewsRSS
	}
	if client == nil {
		client = &http.Client{}
	}
	if name == "" {
		name = "rss"
	}
	return &Feed{name: name, template: template, client: client}
}

// Name implements Provider.
func (f *Feed) Name() string {
	return f.name
}

// Search implements Provider. Feeds carry no relevance score, so results get a
// rank-derived score in (0, 1].
func (f *Feed) Search(ctx context.Context, query string, filters Filters) ([]core.RawResult, error) {
	lang := strings.ToLower(filters.Language)
	if lang == "" {
		lang = "en"
	}
	country := strings.ToUpper(filters.Country)
	if len(country) != 2 {
		country = "US"
	}
	u := fmt.Sprintf(f.template,
		url.QueryEscape(query),
		url.QueryEscape(lang+"-"+country),
		url.QueryEscape(country),
		url.QueryEscape(country+":"+lang),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, text/xml;q=0.8, */*;q=0.1")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{Provider: f.name, Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	feed, err := gofeed.NewParser().Parse(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", core.ErrProviderMalformedResponse, f.name, err)
	}

	limit := limitOrDefault(filters.Limit)
	out := make([]core.RawResult, 0, min(limit, len(feed.Items)))
	for _, item := range feed.Items {
		if len(out) >= limit {
			break
		}
		link := strings.TrimSpace(item.Link)
		if link == "" {
			continue
		}
		out = append(out, core.RawResult{
			URL:     link,
			Title:   strings.TrimSpace(item.Title),
			Snippet: strings.TrimSpace(item.Description),
		})
	}
	for i := range out {
		out[i].Score = 1 - float64(i)/float64(len(out)+1)
	}
	return out, nil
}
