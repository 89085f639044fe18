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

package core

import (
	"strings"
	"time"
)

// SearchRequest identifies one orchestration run.
// It is treated as immutable once issued; window expansion derives a copy.
type SearchRequest struct {
	Term     string    `json:"term,omitempty"`     // Free-text user term, optional
	Country  string    `json:"country,omitempty"`  // ISO 3166-1 alpha-2 code or a named country group
	From     time.Time `json:"from"`               // Inclusive window start
	To       time.Time `json:"to"`                 // Inclusive window end
	Industry []string  `json:"industry,omitempty"` // Profile-derived terms
}

// WindowLength returns the length of the requested date window.
func (r SearchRequest) WindowLength() time.Duration {
	return r.To.Sub(r.From)
}

// WithWindow returns a copy of the request with a different date window.
func (r SearchRequest) WithWindow(from, to time.Time) SearchRequest {
	cp := r
	cp.Industry = append([]string(nil), r.Industry...)
	cp.From = from
	cp.To = to
	return cp
}

// Countries returns the ISO codes covered by the request's country field.
// Country groups expand to their members; an empty country yields nil.
func (r SearchRequest) Countries() []string {
	code := strings.ToUpper(strings.TrimSpace(r.Country))
	if code == "" {
		return nil
	}
	if members, ok := CountryGroups[code]; ok {
		return members
	}
	return []string{code}
}

// WindowTag records which date window produced a result.
type WindowTag int

const (
	// WindowOriginal is the window the caller asked for.
	WindowOriginal WindowTag = iota
	// WindowExpanded1 is the first widened window.
	WindowExpanded1
	// WindowExpanded2 is the second and last widened window.
	WindowExpanded2
)

// String returns the tag as used in run metadata.
func (w WindowTag) String() string {
	switch w {
	case WindowOriginal:
		return "original"
	case WindowExpanded1:
		return "expanded-1"
	case WindowExpanded2:
		return "expanded-2"
	default:
		return "unknown"
	}
}

// QueryVariant is a provider-specific query derived from a SearchRequest.
// Variants only live for the duration of a fan-out.
type QueryVariant struct {
	Query    string // Full query string sent to the provider
	Primary  string // Primary clause; always leads Query
	Provider string // Provider hint; empty means the fan-out's primary provider
	Language string // Locale hint passed to providers (e.g. "de")
}

// RawResult is a single hit returned by a discovery provider.
type RawResult struct {
	URL     string
	Title   string
	Snippet string
	Score   float64 // Provider relevance, 0 when the provider does not report one
}

// CandidateURL is a discovered URL with provenance.
type CandidateURL struct {
	URL        string    `json:"url"`
	Normalized string    `json:"normalized"`
	Title      string    `json:"title,omitempty"`
	Snippet    string    `json:"snippet,omitempty"`
	Provider   string    `json:"provider"`
	Variant    string    `json:"variant"`
	Score      float64   `json:"score"`
	Window     WindowTag `json:"window"`
	Order      int       `json:"order"` // Insertion order, used as the final tie-break
}

// PathDepth returns the number of non-empty path segments of the normalized URL.
func (c CandidateURL) PathDepth() int {
	return PathDepth(c.Normalized)
}

// ScoreMethod identifies which scorer produced a ScoredURL.
type ScoreMethod string

const (
	ScoreMethodLLM     ScoreMethod = "llm"
	ScoreMethodLexical ScoreMethod = "lexical"
)

// ScoredURL is a prioritized candidate with a keep/drop decision.
type ScoredURL struct {
	CandidateURL
	Priority float64     `json:"priority"`
	Keep     bool        `json:"keep"`
	Method   ScoreMethod `json:"method"`
	Reason   string      `json:"reason,omitempty"`
}

// Person is a speaker listed on an event page.
// A Person belongs to exactly one EventCandidate.
type Person struct {
	Name                   string `json:"name"`
	Title                  string `json:"title,omitempty"`
	Organization           string `json:"organization,omitempty"`
	NormalizedOrganization string `json:"normalized_organization,omitempty"`
	ProfileURL             string `json:"profile_url,omitempty"`
}

// EventCandidate is an extracted event. Empty strings and nil dates mean "not found".
type EventCandidate struct {
	ID               string          `json:"id"`
	Title            string          `json:"title,omitempty"`
	StartDate        *time.Time      `json:"start_date"`
	EndDate          *time.Time      `json:"end_date"`
	City             string          `json:"city,omitempty"`
	Country          string          `json:"country,omitempty"`
	Venue            string          `json:"venue,omitempty"`
	Organizer        string          `json:"organizer,omitempty"`
	Speakers         []Person        `json:"speakers,omitempty"`
	Sponsors         []string        `json:"sponsors,omitempty"`
	Partners         []string        `json:"partners,omitempty"`
	Competitors      []string        `json:"competitors,omitempty"`
	SpeakersPageURL  string          `json:"speakers_page_url,omitempty"`
	Confidence       float64         `json:"confidence"`
	SourceURL        string          `json:"source_url"`
	ExtractionMethod string          `json:"extraction_method,omitempty"`
	Window           WindowTag       `json:"window"`
	Priority         float64         `json:"priority"`
	Order            int             `json:"order"`
	Verdict          *QualityVerdict `json:"verdict,omitempty"`
}

// ClearDates marks the candidate's dates as unknown.
func (c *EventCandidate) ClearDates() {
	c.StartDate = nil
	c.EndDate = nil
}

// DateStatus classifies a candidate date against the requested window.
type DateStatus string

const (
	DateWithinRange     DateStatus = "within-range"
	DateWithinTolerance DateStatus = "within-tolerance"
	DateExtractionError DateStatus = "extraction-error"
	DateMissing         DateStatus = "missing"
)

// QualityVerdict is the per-candidate result of the quality gate.
type QualityVerdict struct {
	DateStatus    DateStatus `json:"date_status"`
	LocationMatch bool       `json:"location_match"`
	SpeakerCount  int        `json:"speaker_count"`
	Completeness  float64    `json:"completeness"`
	Score         float64    `json:"score"`
	Pass          bool       `json:"pass"`
	Reasons       []string   `json:"reasons,omitempty"`
}

// CacheTier identifies a cache layer.
type CacheTier int

const (
	TierNone CacheTier = iota
	TierL1
	TierL2
	TierL3
)

func (t CacheTier) String() string {
	switch t {
	case TierL1:
		return "L1"
	case TierL2:
		return "L2"
	case TierL3:
		return "L3"
	default:
		return "none"
	}
}

// CacheEntry is a cached provider response payload.
type CacheEntry struct {
	Key        string
	Value      []byte
	Tier       CacheTier
	TTL        time.Duration
	InsertedAt time.Time
}

// ExpiresAt returns when the entry stops being served.
func (e *CacheEntry) ExpiresAt() time.Time {
	return e.InsertedAt.Add(e.TTL)
}

// Expired reports whether the entry is past its TTL at the given instant.
func (e *CacheEntry) Expired(now time.Time) bool {
	return e.TTL > 0 && !now.Before(e.ExpiresAt())
}

// RunMetadata summarizes one orchestration run.
type RunMetadata struct {
	ID                 string         `json:"id"`
	Request            SearchRequest  `json:"request"`
	StartedAt          time.Time      `json:"started_at"`
	FinishedAt         time.Time      `json:"finished_at"`
	Variants           int            `json:"variants"`
	CacheLookups       int            `json:"cache_lookups"`
	CacheHits          int            `json:"cache_hits"`
	ProviderCalls      int            `json:"provider_calls"`
	ProviderFailures   int            `json:"provider_failures"`
	Discovered         int            `json:"discovered"`
	DroppedAggregators int            `json:"dropped_aggregators"`
	Prioritized        int            `json:"prioritized"`
	TotalBatches       int            `json:"total_batches"`
	FallbackBatches    int            `json:"fallback_batches"`
	Extracted          int            `json:"extracted"`
	ExtractionFailures int            `json:"extraction_failures"`
	Accepted           int            `json:"accepted"`
	Rejected           int            `json:"rejected"`
	WindowCounts       map[string]int `json:"window_counts"`
	Degraded           []string       `json:"degraded,omitempty"`
}

// CacheHitRatio returns hits over lookups, or 0 when nothing was looked up.
func (m *RunMetadata) CacheHitRatio() float64 {
	if m.CacheLookups == 0 {
		return 0
	}
	return float64(m.CacheHits) / float64(m.CacheLookups)
}

// RunResult is the final output of one orchestration run.
type RunResult struct {
	Metadata   RunMetadata       `json:"metadata"`
	Candidates []*EventCandidate `json:"candidates"`
}
