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

// Package quality validates extracted event candidates against the request.
//
// The gate is lenient on purpose: ambiguous candidates pass. It always
// produces a verdict and only fails on malformed input.
package quality

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/poiesic/scout/core"
)

const day = 24 * time.Hour

// Gate is the QualityGate.
type Gate struct {
	config Config
	logger *slog.Logger
}

// Option configures a Gate.
type Option func(*Gate)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) {
		if logger == nil {
			logger = slog.Default()
		}
		g.logger = logger
	}
}

// New creates a Gate.
func New(cfg Config, opts ...Option) (*Gate, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	g := &Gate{config: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With("component", "quality")
	return g, nil
}

// Tolerance returns the date slack for a window: the larger of the floor and
// ToleranceFactor times the window length.
func (g *Gate) Tolerance(window time.Duration) time.Duration {
	return max(g.config.ToleranceFloor, time.Duration(g.config.ToleranceFactor*float64(window)))
}

// Evaluate judges c against req, attaches the verdict to c and returns it.
// Dates classified as extraction errors are cleared on c.
func (g *Gate) Evaluate(c *core.EventCandidate, req core.SearchRequest) (*core.QualityVerdict, error) {
	if c == nil {
		return nil, core.ErrInvalidCandidate
	}
	if req.From.IsZero() || req.To.IsZero() || req.To.Before(req.From) {
		return nil, fmt.Errorf("%w: invalid date window", core.ErrInvalidRequest)
	}

	v := &core.QualityVerdict{}
	v.DateStatus = g.dateStatus(c, req)
	if v.DateStatus == core.DateExtractionError {
		g.logger.Debug("clearing implausible date", "url", c.SourceURL, "start", c.StartDate)
		c.ClearDates()
		v.Reasons = append(v.Reasons, "date outside tolerance")
	}
	if v.DateStatus == core.DateMissing {
		v.Reasons = append(v.Reasons, "no date")
	}

	v.LocationMatch = locationMatches(c, req)
	if !v.LocationMatch {
		v.Reasons = append(v.Reasons, "location mismatch")
	}

	v.SpeakerCount = len(c.Speakers)
	evidence := v.SpeakerCount >= g.config.MinSpeakers || c.SpeakersPageURL != ""
	if !evidence {
		v.Reasons = append(v.Reasons, "no speaker evidence")
	}

	v.Completeness = completeness(c)
	v.Score = g.config.DateWeight*dateConfidence(v.DateStatus) +
		g.config.LocationWeight*boolScore(v.LocationMatch) +
		g.config.SpeakerWeight*g.speakerScore(v.SpeakerCount, c.SpeakersPageURL != "") +
		g.config.CompletenessWeight*v.Completeness
	v.Score /= g.weightSum()

	weakDate := v.DateStatus == core.DateMissing || v.DateStatus == core.DateExtractionError
	v.Pass = v.Score >= g.config.Floor
	switch {
	case !evidence && weakDate:
		v.Pass = false
	case !v.LocationMatch && (weakDate || !evidence):
		v.Pass = false
	}
	if v.Score < g.config.Floor {
		v.Reasons = append(v.Reasons, fmt.Sprintf("score %.2f below floor %.2f", v.Score, g.config.Floor))
	}

	c.Verdict = v
	return v, nil
}

// Rejection returns an error wrapping core.ErrQualityRejected describing why
// v failed, or nil when it passed.
func Rejection(v *core.QualityVerdict) error {
	if v == nil || v.Pass {
		return nil
	}
	return fmt.Errorf("%w: %s", core.ErrQualityRejected, strings.Join(v.Reasons, "; "))
}

func (g *Gate) weightSum() float64 {
	return g.config.DateWeight + g.config.LocationWeight + g.config.SpeakerWeight + g.config.CompletenessWeight
}

func (g *Gate) dateStatus(c *core.EventCandidate, req core.SearchRequest) core.DateStatus {
	if c.StartDate == nil && c.EndDate == nil {
		return core.DateMissing
	}
	start, end := c.StartDate, c.EndDate
	if start == nil {
		start = end
	}
	if end == nil || end.Before(*start) {
		end = start
	}

	from := civilDay(req.From)
	to := civilDay(req.To).Add(day) // inclusive of the last day
	s, e := civilDay(*start), civilDay(*end)

	var distance time.Duration
	switch {
	case e.Before(from):
		distance = from.Sub(e)
	case !s.Before(to):
		distance = s.Sub(to) + day
	default:
		return core.DateWithinRange
	}
	if distance <= g.Tolerance(req.To.Sub(req.From)) {
		return core.DateWithinTolerance
	}
	return core.DateExtractionError
}

// civilDay maps t to midnight UTC of its own calendar date, so a date keeps
// the day it was written with regardless of its zone offset.
func civilDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func dateConfidence(s core.DateStatus) float64 {
	switch s {
	case core.DateWithinRange:
		return 1
	case core.DateWithinTolerance:
		return 0.6
	case core.DateMissing:
		return 0.3
	default:
		return 0
	}
}

func (g *Gate) speakerScore(count int, page bool) float64 {
	switch {
	case count >= 3:
		return 1
	case count >= g.config.MinSpeakers:
		return 0.7
	case page:
		return 0.5
	default:
		return 0
	}
}

func boolScore(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// completeness is the fraction of expected fields that were found.
func completeness(c *core.EventCandidate) float64 {
	fields := []bool{
		c.Title != "",
		c.StartDate != nil,
		c.EndDate != nil,
		c.City != "" || c.Country != "",
		c.Venue != "",
		c.Organizer != "",
		len(c.Speakers) > 0 || c.SpeakersPageURL != "",
	}
	found := 0
	for _, f := range fields {
		if f {
			found++
		}
	}
	return float64(found) / float64(len(fields))
}

// locationMatches accepts a candidate when its source domain, country or
// city belongs to the requested region. No region means any location.
func locationMatches(c *core.EventCandidate, req core.SearchRequest) bool {
	countries := req.Countries()
	if len(countries) == 0 {
		return true
	}
	tld := core.TopLevelDomain(core.Host(c.SourceURL))
	country := core.Fold(c.Country)
	city := core.Tokens(c.City)
	venue := core.Tokens(c.Venue)

	for _, code := range countries {
		if tld != "" && tld == core.TLDForCountry(code) {
			return true
		}
		if country != "" && strings.EqualFold(country, code) {
			return true
		}
		info := core.Countries[code]
		for _, name := range info.Names {
			if country != "" && country == core.Fold(name) {
				return true
			}
		}
		for _, name := range info.Cities {
			words := core.Tokens(name)
			if containsWords(city, words) || containsWords(venue, words) {
				return true
			}
		}
	}
	return false
}

// containsWords reports whether words appears as a contiguous run in tokens.
func containsWords(tokens, words []string) bool {
	if len(words) == 0 {
		return false
	}
	for i := 0; i+len(words) <= len(tokens); i++ {
		if slices.Equal(tokens[i:i+len(words)], words) {
			return true
		}
	}
	return false
}
