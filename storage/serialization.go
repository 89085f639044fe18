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

package storage

import (
	"time"

	"github.com/poiesic/scout/core"
)

// Record format versions. A version mismatch is reported as ErrSerializationFailed.
const (
	cacheEntryVersion = 1
	rawResultsVersion = 1
	runResultVersion  = 1
)

// MarshalCacheEntry serializes a CacheEntry to bytes.
func MarshalCacheEntry(entry *core.CacheEntry) []byte {
	return encode(func(w *writer) {
		w.count(cacheEntryVersion)
		w.str(entry.Key)
		w.str(string(entry.Value))
		w.int(int(entry.Tier))
		w.int64(int64(entry.TTL))
		w.time(entry.InsertedAt)
	})
}

// UnmarshalCacheEntry deserializes a CacheEntry from bytes.
func UnmarshalCacheEntry(data []byte) (*core.CacheEntry, error) {
	r := &reader{bs: data}
	if v := r.count(); r.err == nil && v != cacheEntryVersion {
		return nil, versionError("cache entry", v)
	}
	entry := &core.CacheEntry{
		Key:   r.str(),
		Value: []byte(r.str()),
		Tier:  core.CacheTier(r.int()),
		TTL:   time.Duration(r.int64()),
	}
	entry.InsertedAt = r.time()
	if err := r.done(); err != nil {
		return nil, err
	}
	return entry, nil
}

// MarshalRawResults serializes a provider response payload.
func MarshalRawResults(results []core.RawResult) []byte {
	return encode(func(w *writer) {
		w.count(rawResultsVersion)
		w.count(len(results))
		for _, res := range results {
			w.str(res.URL)
			w.str(res.Title)
			w.str(res.Snippet)
			w.float64(res.Score)
		}
	})
}

// UnmarshalRawResults deserializes a provider response payload.
func UnmarshalRawResults(data []byte) ([]core.RawResult, error) {
	r := &reader{bs: data}
	if v := r.count(); r.err == nil && v != rawResultsVersion {
		return nil, versionError("raw results", v)
	}
	n := r.count()
	results := make([]core.RawResult, 0, n)
	for i := 0; i < n && r.err == nil; i++ {
		results = append(results, core.RawResult{
			URL:     r.str(),
			Title:   r.str(),
			Snippet: r.str(),
			Score:   r.float64(),
		})
	}
	if err := r.done(); err != nil {
		return nil, err
	}
	return results, nil
}

// MarshalRunResult serializes a completed run.
func MarshalRunResult(run *core.RunResult) []byte {
	return encode(func(w *writer) {
		w.count(runResultVersion)
		writeMetadata(w, &run.Metadata)
		w.count(len(run.Candidates))
		for _, c := range run.Candidates {
			writeCandidate(w, c)
		}
	})
}

// UnmarshalRunResult deserializes a completed run.
func UnmarshalRunResult(data []byte) (*core.RunResult, error) {
	r := &reader{bs: data}
	if v := r.count(); r.err == nil && v != runResultVersion {
		return nil, versionError("run result", v)
	}
	run := &core.RunResult{Metadata: readMetadata(r)}
	n := r.count()
	run.Candidates = make([]*core.EventCandidate, 0, n)
	for i := 0; i < n && r.err == nil; i++ {
		run.Candidates = append(run.Candidates, readCandidate(r))
	}
	if err := r.done(); err != nil {
		return nil, err
	}
	return run, nil
}

func writeRequest(w *writer, req *core.SearchRequest) {
	w.str(req.Term)
	w.str(req.Country)
	w.time(req.From)
	w.time(req.To)
	w.strs(req.Industry)
}

func readRequest(r *reader) core.SearchRequest {
	req := core.SearchRequest{Term: r.str(), Country: r.str()}
	req.From = r.time()
	req.To = r.time()
	req.Industry = r.strs()
	return req
}

func writeMetadata(w *writer, m *core.RunMetadata) {
	w.str(m.ID)
	writeRequest(w, &m.Request)
	w.time(m.StartedAt)
	w.time(m.FinishedAt)
	for _, v := range metadataCounters(m) {
		w.int(*v)
	}
	w.count(len(m.WindowCounts))
	for _, tag := range []core.WindowTag{core.WindowOriginal, core.WindowExpanded1, core.WindowExpanded2} {
		if n, ok := m.WindowCounts[tag.String()]; ok {
			w.str(tag.String())
			w.int(n)
		}
	}
	w.strs(m.Degraded)
}

func readMetadata(r *reader) core.RunMetadata {
	m := core.RunMetadata{ID: r.str()}
	m.Request = readRequest(r)
	m.StartedAt = r.time()
	m.FinishedAt = r.time()
	for _, v := range metadataCounters(&m) {
		*v = r.int()
	}
	n := r.count()
	m.WindowCounts = make(map[string]int, n)
	for i := 0; i < n && r.err == nil; i++ {
		tag := r.str()
		m.WindowCounts[tag] = r.int()
	}
	m.Degraded = r.strs()
	return m
}

// metadataCounters fixes the on-disk order of the integer counters.
func metadataCounters(m *core.RunMetadata) []*int {
	return []*int{
		&m.Variants, &m.CacheLookups, &m.CacheHits, &m.ProviderCalls, &m.ProviderFailures,
		&m.Discovered, &m.DroppedAggregators, &m.Prioritized, &m.TotalBatches, &m.FallbackBatches,
		&m.Extracted, &m.ExtractionFailures, &m.Accepted, &m.Rejected,
	}
}

func writeCandidate(w *writer, c *core.EventCandidate) {
	w.str(c.ID)
	w.str(c.Title)
	w.timePtr(c.StartDate)
	w.timePtr(c.EndDate)
	w.str(c.City)
	w.str(c.Country)
	w.str(c.Venue)
	w.str(c.Organizer)
	w.count(len(c.Speakers))
	for _, p := range c.Speakers {
		w.str(p.Name)
		w.str(p.Title)
		w.str(p.Organization)
		w.str(p.NormalizedOrganization)
		w.str(p.ProfileURL)
	}
	w.strs(c.Sponsors)
	w.strs(c.Partners)
	w.strs(c.Competitors)
	w.str(c.SpeakersPageURL)
	w.float64(c.Confidence)
	w.str(c.SourceURL)
	w.str(c.ExtractionMethod)
	w.int(int(c.Window))
	w.float64(c.Priority)
	w.int(c.Order)
	w.bool(c.Verdict != nil)
	if v := c.Verdict; v != nil {
		w.str(string(v.DateStatus))
		w.bool(v.LocationMatch)
		w.int(v.SpeakerCount)
		w.float64(v.Completeness)
		w.float64(v.Score)
		w.bool(v.Pass)
		w.strs(v.Reasons)
	}
}

func readCandidate(r *reader) *core.EventCandidate {
	c := &core.EventCandidate{ID: r.str(), Title: r.str()}
	c.StartDate = r.timePtr()
	c.EndDate = r.timePtr()
	c.City = r.str()
	c.Country = r.str()
	c.Venue = r.str()
	c.Organizer = r.str()
	if n := r.count(); n > 0 {
		c.Speakers = make([]core.Person, 0, n)
		for i := 0; i < n && r.err == nil; i++ {
			c.Speakers = append(c.Speakers, core.Person{
				Name:                   r.str(),
				Title:                  r.str(),
				Organization:           r.str(),
				NormalizedOrganization: r.str(),
				ProfileURL:             r.str(),
			})
		}
	}
	c.Sponsors = r.strs()
	c.Partners = r.strs()
	c.Competitors = r.strs()
	c.SpeakersPageURL = r.str()
	c.Confidence = r.float64()
	c.SourceURL = r.str()
	c.ExtractionMethod = r.str()
	c.Window = core.WindowTag(r.int())
	c.Priority = r.float64()
	c.Order = r.int()
	if r.bool() {
		c.Verdict = &core.QualityVerdict{
			DateStatus:    core.DateStatus(r.str()),
			LocationMatch: r.bool(),
			SpeakerCount:  r.int(),
			Completeness:  r.float64(),
			Score:         r.float64(),
			Pass:          r.bool(),
		}
		c.Verdict.Reasons = r.strs()
	}
	return c
}
