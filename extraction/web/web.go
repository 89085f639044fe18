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

// Package web extracts event candidates from event pages over HTTP.
//
// schema.org Event objects embedded as JSON-LD are preferred. Fields they do
// not provide are filled from the page markup: Open Graph tags, <time>
// elements, common speaker and sponsor blocks, and links to a speakers page.
package web

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/poiesic/scout/core"
	"github.com/poiesic/scout/extraction"
)

const (
	MethodJSONLD = "json-ld"
	MethodHTML   = "html"

	jsonLDConfidence  = 0.8
	htmlConfidence    = 0.5
	minimalConfidence = 0.3

	defaultMaxBodyBytes = 8 << 20
	defaultTimeout      = 20 * time.Second
	defaultUserAgent    = "Mozilla/5.0 (compatible; scout/0.1; +https://github.com/poiesic/scout)"
)

// Extractor fetches a page and builds an EventCandidate from it.
type Extractor struct {
	client       *http.Client
	userAgent    string
	maxBodyBytes int64
	logger       *slog.Logger
}

var _ extraction.Extractor = (*Extractor)(nil)

// Option configures an Extractor.
type Option func(*Extractor)

// WithHTTPClient sets the client used for page fetches.
func WithHTTPClient(client *http.Client) Option {
	return func(e *Extractor) {
		if client != nil {
			e.client = client
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(e *Extractor) {
		if ua != "" {
			e.userAgent = ua
		}
	}
}

// WithMaxBodyBytes bounds how much of a page is read.
func WithMaxBodyBytes(n int64) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.maxBodyBytes = n
		}
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
	}
}

// New creates an Extractor.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		client:       &http.Client{Timeout: defaultTimeout},
		userAgent:    defaultUserAgent,
		maxBodyBytes: defaultMaxBodyBytes,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "extraction.web")
	return e
}

// Extract implements extraction.Extractor.
func (e *Extractor) Extract(ctx context.Context, pageURL string) (*core.EventCandidate, error) {
	base, err := url.Parse(pageURL)
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("%w: invalid url %q", core.ErrExtractionFailed, pageURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrExtractionFailed, err)
	}
	req.Header.Set("User-Agent", e.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching %s: %w", core.ErrExtractionFailed, pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: fetching %s: status %d", core.ErrExtractionFailed, pageURL, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, e.maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %w", core.ErrExtractionFailed, pageURL, err)
	}
	if resp.Request != nil && resp.Request.URL != nil {
		base = resp.Request.URL
	}
	return e.extractDocument(doc, pageURL, base), nil
}

// extractDocument builds the candidate from a parsed page.
func (e *Extractor) extractDocument(doc *goquery.Document, pageURL string, base *url.URL) *core.EventCandidate {
	c := &core.EventCandidate{SourceURL: pageURL}

	events := findEvents(doc)
	if len(events) > 0 {
		fromJSONLD(c, events[0])
		c.ExtractionMethod = MethodJSONLD
		c.Confidence = jsonLDConfidence
		if len(events) > 1 {
			e.logger.Debug("page has several events, using the first", "url", pageURL, "events", len(events))
		}
	}

	fromHTML(c, doc, base)

	if c.ExtractionMethod == "" {
		c.ExtractionMethod = MethodHTML
		c.Confidence = minimalConfidence
		if c.Title != "" && c.StartDate != nil {
			c.Confidence = htmlConfidence
		}
	}
	e.logger.Debug("extracted page",
		"url", pageURL,
		"method", c.ExtractionMethod,
		"speakers", len(c.Speakers),
		"hasDate", c.StartDate != nil)
	return c
}
