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

package extraction

import (
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/scout/core"
	"github.com/xrash/smetrics"
)

// Validator is the ExtractionValidator.
type Validator struct {
	config  Config
	aliases map[string]string
	now     func() time.Time
	logger  *slog.Logger
}

// Option configures a Validator.
type Option func(*Validator)

// WithAliases adds organization aliases, keyed by any spelling of the name.
func WithAliases(aliases map[string]string) Option {
	return func(v *Validator) {
		for k, canonical := range aliases {
			v.aliases[core.Fold(k)] = canonical
		}
	}
}

// WithClock replaces the time source used for fallback identifiers.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) {
		if now != nil {
			v.now = now
		}
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(v *Validator) {
		if logger == nil {
			logger = slog.Default()
		}
		v.logger = logger
	}
}

// NewValidator creates a Validator with DefaultAliases.
func NewValidator(cfg Config, opts ...Option) (*Validator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	v := &Validator{
		config:  cfg,
		aliases: make(map[string]string, len(DefaultAliases)),
		now:     time.Now,
		logger:  slog.Default(),
	}
	for k, canonical := range DefaultAliases {
		v.aliases[k] = canonical
	}
	for _, opt := range opts {
		opt(v)
	}
	v.logger = v.logger.With("component", "extraction")
	return v, nil
}

// Apply runs every per-candidate check on c: placeholder scrubbing, speaker
// validation, organization normalization and speaker merging.
func (v *Validator) Apply(c *core.EventCandidate) {
	if c == nil {
		return
	}
	ScrubPlaceholders(c)
	c.Speakers = v.MergeSpeakers(v.ValidateSpeakers(c.Speakers))
	if c.Organizer != "" {
		c.Organizer = v.NormalizeOrg(c.Organizer)
	}
	c.Sponsors = v.normalizeOrgList(c.Sponsors)
	c.Partners = v.normalizeOrgList(c.Partners)
	c.Competitors = v.normalizeOrgList(c.Competitors)
}

// ValidateSpeakers drops entries whose name is not a plausible person name.
// Kept entries get their organization normalized; names are not altered.
func (v *Validator) ValidateSpeakers(raw []core.Person) []core.Person {
	out := make([]core.Person, 0, len(raw))
	for _, p := range raw {
		p.Name = strings.Join(strings.Fields(p.Name), " ")
		if !IsPersonName(p.Name, v.config.MaxNameLength) {
			v.logger.Debug("dropping non-person speaker entry", "name", p.Name)
			continue
		}
		if p.Organization != "" {
			p.NormalizedOrganization = v.NormalizeOrg(p.Organization)
		}
		out = append(out, p)
	}
	return out
}

// NormalizeOrg strips legal-entity suffixes and maps known aliases to their
// canonical name. Unknown names are only suffix-stripped.
func (v *Validator) NormalizeOrg(name string) string {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return ""
	}
	stripped := stripLegalSuffixes(name)
	if canonical, ok := v.aliases[core.Fold(stripped)]; ok {
		return canonical
	}
	if canonical, ok := v.aliases[core.Fold(name)]; ok {
		return canonical
	}
	return stripped
}

func (v *Validator) normalizeOrgList(names []string) []string {
	if len(names) == 0 {
		return names
	}
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = v.NormalizeOrg(n)
		key := core.Fold(n)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, n)
	}
	return out
}

// NameSimilarity is 1 minus the Levenshtein distance of the folded names
// over the longer name's length. Honorifics are ignored.
func NameSimilarity(a, b string) float64 {
	a, b = comparableName(a), comparableName(b)
	if a == "" && b == "" {
		return 1
	}
	longest := max(len(a), len(b))
	d := smetrics.WagnerFischer(a, b, 1, 1, 1)
	return 1 - float64(d)/float64(longest)
}

// OrgSimilarity is the token-set overlap of the normalized organizations.
func (v *Validator) OrgSimilarity(a, b string) float64 {
	return tokenOverlap(orgTokens(v.NormalizeOrg(a)), orgTokens(v.NormalizeOrg(b)))
}

// SamePerson reports whether two speaker records describe the same person.
func (v *Validator) SamePerson(a, b core.Person) bool {
	return NameSimilarity(a.Name, b.Name) >= v.config.NameSimilarity &&
		v.OrgSimilarity(a.Organization, b.Organization) >= v.config.OrgOverlap
}

// MergeSpeakers folds duplicate speaker records together, keeping the more
// complete record and filling its gaps from the other.
func (v *Validator) MergeSpeakers(people []core.Person) []core.Person {
	out := make([]core.Person, 0, len(people))
	for _, p := range people {
		merged := false
		for i := range out {
			if v.SamePerson(out[i], p) {
				out[i] = mergePerson(out[i], p)
				merged = true
				break
			}
		}
		if !merged {
			out = append(out, p)
		}
	}
	return out
}

func personFields(p core.Person) int {
	n := 0
	for _, f := range []string{p.Name, p.Title, p.Organization, p.ProfileURL} {
		if f != "" {
			n++
		}
	}
	return n
}

func mergePerson(a, b core.Person) core.Person {
	if personFields(b) > personFields(a) {
		a, b = b, a
	}
	fill(&a.Title, b.Title)
	fill(&a.Organization, b.Organization)
	fill(&a.NormalizedOrganization, b.NormalizedOrganization)
	fill(&a.ProfileURL, b.ProfileURL)
	return a
}

func fill(dst *string, src string) {
	if *dst == "" {
		*dst = src
	}
}

// MergeDuplicates collapses candidates describing the same event. Identity is
// the normalized source URL, or the candidate ID when there is no URL.
// Candidates without an ID get one derived from a hash of the normalized URL.
// The result keeps first-seen order.
func (v *Validator) MergeDuplicates(candidates []*core.EventCandidate) []*core.EventCandidate {
	now := v.now()
	out := make([]*core.EventCandidate, 0, len(candidates))
	index := make(map[string]int, len(candidates))
	for i, c := range candidates {
		if c == nil {
			continue
		}
		norm := ""
		if c.SourceURL != "" {
			norm = core.NormalizeURL(c.SourceURL)
		}
		if c.ID == "" {
			c.ID = core.CandidateID(norm, now, i)
		}
		key := norm
		if key == "" {
			key = "id:" + c.ID
		}
		if j, ok := index[key]; ok {
			out[j] = v.mergeCandidates(out[j], c)
			continue
		}
		index[key] = len(out)
		out = append(out, c)
	}
	return out
}

func candidateFields(c *core.EventCandidate) int {
	n := 0
	for _, f := range []bool{
		c.Title != "", c.StartDate != nil, c.EndDate != nil, c.City != "", c.Country != "",
		c.Venue != "", c.Organizer != "", len(c.Speakers) > 0, len(c.Sponsors) > 0,
		c.SpeakersPageURL != "",
	} {
		if f {
			n++
		}
	}
	return n
}

// mergeCandidates keeps the more complete candidate and fills its gaps.
func (v *Validator) mergeCandidates(a, b *core.EventCandidate) *core.EventCandidate {
	if candidateFields(b) > candidateFields(a) {
		a, b = b, a
	}
	fill(&a.Title, b.Title)
	fill(&a.City, b.City)
	fill(&a.Country, b.Country)
	fill(&a.Venue, b.Venue)
	fill(&a.Organizer, b.Organizer)
	fill(&a.SpeakersPageURL, b.SpeakersPageURL)
	fill(&a.ExtractionMethod, b.ExtractionMethod)
	if a.StartDate == nil {
		a.StartDate = b.StartDate
	}
	if a.EndDate == nil {
		a.EndDate = b.EndDate
	}
	a.Speakers = v.MergeSpeakers(append(a.Speakers, b.Speakers...))
	a.Sponsors = unionFolded(a.Sponsors, b.Sponsors)
	a.Partners = unionFolded(a.Partners, b.Partners)
	a.Competitors = unionFolded(a.Competitors, b.Competitors)
	a.Confidence = max(a.Confidence, b.Confidence)
	a.Priority = max(a.Priority, b.Priority)
	a.Window = min(a.Window, b.Window)
	a.Order = min(a.Order, b.Order)
	return a
}

func unionFolded(a, b []string) []string {
	if len(b) == 0 {
		return a
	}
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range append(append([]string(nil), a...), b...) {
		key := core.Fold(s)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}
