package extraction

import (
	"strings"

	"github.com/poiesic/scout/core"
)

// placeholders are values extractors emit for "not found". Compared after folding.
var placeholders = func() map[string]bool {
	set := make(map[string]bool)
	for _, s := range []string{
		"", "-", "--", "n/a", "na", "tbd", "tba", "tbc", "unknown", "null", "none", "nil",
		"not found", "not available", "to be announced", "to be confirmed",
		"k.a.", "k. a.", "keine angabe", "unbekannt",
	} {
		set[core.Fold(s)] = true
	}
	return set
}()

// IsPlaceholder reports whether s is an empty or "not found" marker.
func IsPlaceholder(s string) bool {
	return placeholders[core.Fold(s)]
}

func scrub(s string) string {
	s = strings.TrimSpace(s)
	if IsPlaceholder(s) {
		return ""
	}
	return s
}

func scrubList(items []string) []string {
	if len(items) == 0 {
		return items
	}
	out := items[:0]
	for _, s := range items {
		if s = scrub(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ScrubPlaceholders replaces placeholder strings in c with the empty value.
func ScrubPlaceholders(c *core.EventCandidate) {
	c.Title = scrub(c.Title)
	c.City = scrub(c.City)
	c.Country = scrub(c.Country)
	c.Venue = scrub(c.Venue)
	c.Organizer = scrub(c.Organizer)
	c.SpeakersPageURL = scrub(c.SpeakersPageURL)
	c.Sponsors = scrubList(c.Sponsors)
	c.Partners = scrubList(c.Partners)
	c.Competitors = scrubList(c.Competitors)

	people := c.Speakers[:0]
	for _, p := range c.Speakers {
		p.Name = scrub(p.Name)
		if p.Name == "" {
			continue
		}
		p.Title = scrub(p.Title)
		p.Organization = scrub(p.Organization)
		p.ProfileURL = scrub(p.ProfileURL)
		people = append(people, p)
	}
	c.Speakers = people
}
