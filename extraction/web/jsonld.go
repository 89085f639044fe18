package web

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/poiesic/scout/core"
)

type ldObject = map[string]any

// findEvents returns every schema.org Event object in the page's JSON-LD
// blocks, in document order. Malformed blocks are skipped.
func findEvents(doc *goquery.Document) []ldObject {
	var events []ldObject
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var v any
		if err := json.Unmarshal([]byte(strings.TrimSpace(s.Text())), &v); err != nil {
			return
		}
		events = collectEvents(v, events)
	})
	return events
}

func collectEvents(v any, out []ldObject) []ldObject {
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			out = collectEvents(item, out)
		}
	case map[string]any:
		if graph, ok := t["@graph"]; ok {
			out = collectEvents(graph, out)
		}
		if isEvent(t) {
			out = append(out, t)
		}
	}
	return out
}

func ldTypes(o ldObject) []string {
	var types []string
	for _, v := range asSlice(o["@type"]) {
		if s, ok := v.(string); ok {
			types = append(types, s)
		}
	}
	return types
}

func hasType(o ldObject, name string) bool {
	for _, t := range ldTypes(o) {
		if t == name {
			return true
		}
	}
	return false
}

// isEvent matches Event and its subtypes such as BusinessEvent.
func isEvent(o ldObject) bool {
	for _, t := range ldTypes(o) {
		if strings.HasSuffix(t, "Event") {
			return true
		}
	}
	return false
}

func asSlice(v any) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		return t
	default:
		return []any{t}
	}
}

// ldString reads a text value. Objects yield their name, lists their first
// non-empty entry.
func ldString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.Join(strings.Fields(t), " ")
	case map[string]any:
		return ldString(t["name"])
	case []any:
		for _, item := range t {
			if s := ldString(item); s != "" {
				return s
			}
		}
	}
	return ""
}

func ldStrings(v any) []string {
	var out []string
	for _, item := range asSlice(v) {
		if s := ldString(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseDate reads an ISO 8601 date or date-time and keeps the calendar day
// as written on the page.
func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		return &day
	}
	return nil
}

// countryCode maps an ISO code or a known country name to its ISO code.
func countryCode(s string) string {
	s = strings.TrimSpace(s)
	if len(s) == 2 {
		return strings.ToUpper(s)
	}
	folded := core.Fold(s)
	for code, info := range core.Countries {
		for _, name := range info.Names {
			if core.Fold(name) == folded {
				return code
			}
		}
	}
	return s
}

func fromJSONLD(c *core.EventCandidate, ev ldObject) {
	c.Title = ldString(ev["name"])
	c.StartDate = parseDate(ldString(ev["startDate"]))
	c.EndDate = parseDate(ldString(ev["endDate"]))

	for _, item := range asSlice(ev["location"]) {
		loc, ok := item.(map[string]any)
		if !ok {
			if s := ldString(item); s != "" && c.Venue == "" {
				c.Venue = s
			}
			continue
		}
		if hasType(loc, "VirtualLocation") {
			continue
		}
		if c.Venue == "" {
			c.Venue = ldString(loc["name"])
		}
		if addr, ok := loc["address"].(map[string]any); ok {
			if c.City == "" {
				c.City = ldString(addr["addressLocality"])
			}
			if c.Country == "" {
				c.Country = countryCode(ldString(addr["addressCountry"]))
			}
		}
	}

	if orgs := ldStrings(ev["organizer"]); len(orgs) > 0 {
		c.Organizer = orgs[0]
	}

	for _, item := range asSlice(ev["performer"]) {
		switch p := item.(type) {
		case string:
			c.Speakers = append(c.Speakers, core.Person{Name: ldString(p)})
		case map[string]any:
			if hasType(p, "Organization") {
				c.Partners = append(c.Partners, ldString(p["name"]))
				continue
			}
			org := ldString(p["affiliation"])
			if org == "" {
				org = ldString(p["worksFor"])
			}
			c.Speakers = append(c.Speakers, core.Person{
				Name:         ldString(p["name"]),
				Title:        ldString(p["jobTitle"]),
				Organization: org,
				ProfileURL:   ldString(p["url"]),
			})
		}
	}

	c.Sponsors = append(ldStrings(ev["sponsor"]), ldStrings(ev["funder"])...)
}
