package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"same content produces same ID", "test content"},
		{"empty string", ""},
		{"long content", "This is a much longer piece of content that should still hash consistently"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, IDFromContent(tt.content), IDFromContent(tt.content))
		})
	}

	assert.NotEqual(t, IDFromContent("a"), IDFromContent("b"))
	assert.Len(t, IDFromContent("x").Hex(), 16)
}

func TestCandidateID(t *testing.T) {
	ts := time.Date(2025, 11, 1, 12, 0, 0, 0, time.UTC)

	t.Run("url based ids are stable", func(t *testing.T) {
		a := CandidateID("https://example.de/event", ts, 0)
		b := CandidateID("https://example.de/event", ts.Add(time.Hour), 7)
		assert.Equal(t, a, b)
		assert.Len(t, a, 32)
	})

	t.Run("same tick different index differs", func(t *testing.T) {
		a := CandidateID("", ts, 0)
		b := CandidateID("", ts, 1)
		assert.NotEqual(t, a, b)
	})

	t.Run("url and timestamp ids never collide", func(t *testing.T) {
		assert.NotEqual(t, CandidateID("https://a.de", ts, 0), CandidateID("", ts, 0))
	})
}

func TestWindowTagString(t *testing.T) {
	assert.Equal(t, "original", WindowOriginal.String())
	assert.Equal(t, "expanded-1", WindowExpanded1.String())
	assert.Equal(t, "expanded-2", WindowExpanded2.String())
}

func TestSearchRequestCountries(t *testing.T) {
	assert.Nil(t, SearchRequest{}.Countries())
	assert.Equal(t, []string{"DE"}, SearchRequest{Country: "de"}.Countries())
	assert.Equal(t, []string{"DE", "AT", "CH"}, SearchRequest{Country: "DACH"}.Countries())
}

func TestWithWindowCopiesIndustry(t *testing.T) {
	r := SearchRequest{Industry: []string{"legal"}}
	cp := r.WithWindow(time.Now(), time.Now())
	cp.Industry[0] = "changed"
	assert.Equal(t, "legal", r.Industry[0])
}

func TestCacheEntryExpired(t *testing.T) {
	now := time.Now()
	e := &CacheEntry{TTL: time.Minute, InsertedAt: now.Add(-2 * time.Minute)}
	assert.True(t, e.Expired(now))

	e.InsertedAt = now
	assert.False(t, e.Expired(now.Add(30*time.Second)))

	forever := &CacheEntry{InsertedAt: now.Add(-time.Hour)}
	assert.False(t, forever.Expired(now))
}

func TestCacheHitRatio(t *testing.T) {
	m := &RunMetadata{}
	assert.Zero(t, m.CacheHitRatio())
	m.CacheLookups, m.CacheHits = 4, 1
	assert.InDelta(t, 0.25, m.CacheHitRatio(), 1e-9)
}
