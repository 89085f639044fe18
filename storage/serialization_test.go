package storage

import (
	"testing"
	"time"

	"github.com/poiesic/scout/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRun() *core.RunResult {
	from := time.Date(2025, 11, 15, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 11, 29, 0, 0, 0, 0, time.UTC)
	start := time.Date(2025, 11, 20, 9, 0, 0, 0, time.UTC)
	return &core.RunResult{
		Metadata: core.RunMetadata{
			ID:                 "run-1",
			Request:            core.SearchRequest{Term: "Kartellrecht", Country: "DE", From: from, To: to, Industry: []string{"legal"}},
			StartedAt:          time.Date(2025, 11, 1, 10, 0, 0, 123000, time.UTC),
			FinishedAt:         time.Date(2025, 11, 1, 10, 0, 42, 0, time.UTC),
			Variants:           12,
			CacheLookups:       12,
			CacheHits:          3,
			ProviderCalls:      9,
			ProviderFailures:   1,
			Discovered:         40,
			DroppedAggregators: 7,
			Prioritized:        12,
			TotalBatches:       4,
			FallbackBatches:    2,
			Extracted:          10,
			ExtractionFailures: 2,
			Accepted:           6,
			Rejected:           4,
			WindowCounts:       map[string]int{"original": 4, "expanded-1": 2},
			Degraded:           []string{"prioritization used fallback scoring for 2 of 4 batches"},
		},
		Candidates: []*core.EventCandidate{
			{
				ID:        "abc",
				Title:     "Kartellrechtstag 2025",
				StartDate: &start,
				City:      "Berlin",
				Country:   "DE",
				Speakers: []core.Person{
					{Name: "Andrea Müller", Title: "Partnerin", Organization: "Müller GmbH", NormalizedOrganization: "Müller"},
				},
				Sponsors:         []string{"Acme"},
				Confidence:       0.8,
				SourceURL:        "https://kartellrechtstag.de/programm",
				ExtractionMethod: "json-ld",
				Window:           core.WindowExpanded1,
				Priority:         0.91,
				Order:            3,
				Verdict: &core.QualityVerdict{
					DateStatus:    core.DateWithinRange,
					LocationMatch: true,
					SpeakerCount:  1,
					Completeness:  0.75,
					Score:         0.86,
					Pass:          true,
				},
			},
			{ID: "def", SourceURL: "https://example.org/event"},
		},
	}
}

func TestRunResultCodec(t *testing.T) {
	run := sampleRun()

	decoded, err := UnmarshalRunResult(MarshalRunResult(run))
	require.NoError(t, err)
	assert.Equal(t, run.Metadata, decoded.Metadata)
	require.Len(t, decoded.Candidates, 2)
	assert.Equal(t, run.Candidates[0], decoded.Candidates[0])

	// Absent fields stay absent rather than becoming placeholders.
	sparse := decoded.Candidates[1]
	assert.Nil(t, sparse.StartDate)
	assert.Nil(t, sparse.EndDate)
	assert.Nil(t, sparse.Speakers)
	assert.Nil(t, sparse.Verdict)
	assert.Empty(t, sparse.City)
}

func TestCacheEntryCodec(t *testing.T) {
	entry := &core.CacheEntry{
		Key:        "0123abcd",
		Value:      MarshalRawResults([]core.RawResult{{URL: "https://a.de", Title: "A", Score: 0.5}}),
		Tier:       core.TierL3,
		TTL:        30 * time.Minute,
		InsertedAt: time.Date(2025, 11, 1, 10, 0, 0, 0, time.UTC),
	}

	decoded, err := UnmarshalCacheEntry(MarshalCacheEntry(entry))
	require.NoError(t, err)
	assert.Equal(t, entry, decoded)

	results, err := UnmarshalRawResults(decoded.Value)
	require.NoError(t, err)
	assert.Equal(t, []core.RawResult{{URL: "https://a.de", Title: "A", Score: 0.5}}, results)
}

func TestRawResultsCodec_Empty(t *testing.T) {
	results, err := UnmarshalRawResults(MarshalRawResults(nil))
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestUnmarshal_Invalid(t *testing.T) {
	full := MarshalRunResult(sampleRun())

	tests := []struct {
		name string
		fn   func() error
	}{
		{"empty run", func() error { _, err := UnmarshalRunResult(nil); return err }},
		{"truncated run", func() error { _, err := UnmarshalRunResult(full[:len(full)/2]); return err }},
		{"trailing bytes", func() error { _, err := UnmarshalRunResult(append(full, 0x01)); return err }},
		{"empty entry", func() error { _, err := UnmarshalCacheEntry([]byte{}); return err }},
		{"wrong version", func() error {
			data := MarshalRawResults(nil)
			data[0] = 9
			_, err := UnmarshalRawResults(data)
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.fn(), ErrSerializationFailed)
		})
	}
}
