package core

import "strings"

// EventTypeSynonyms lists event-type words per language, most common first.
var EventTypeSynonyms = map[string][]string{
	"en": {"conference", "summit", "congress", "forum", "symposium", "convention"},
	"de": {"Konferenz", "Kongress", "Tagung", "Fachtagung", "Forum", "Gipfel"},
	"fr": {"conférence", "congrès", "colloque", "sommet", "forum"},
}

// CanonicalEventType is the token every event-type synonym normalizes to.
const CanonicalEventType = "event"

var eventTypeIndex = func() map[string]bool {
	idx := map[string]bool{
		"event": true, "events": true, "veranstaltung": true, "veranstaltungen": true,
		"meetup": true, "expo": true, "salon": true, "fachkonferenz": true, "jahrestagung": true,
		"conferences": true, "summits": true, "congresses": true, "konferenzen": true,
		"kongresse": true, "tagungen": true, "symposia": true, "symposiums": true,
	}
	for _, words := range EventTypeSynonyms {
		for _, w := range words {
			idx[strings.ToLower(w)] = true
		}
	}
	return idx
}()

// IsEventTypeSynonym reports whether a lowercase token names an event type.
func IsEventTypeSynonym(token string) bool {
	return eventTypeIndex[token]
}

// MonthNames holds month names per language, January first.
var MonthNames = map[string][12]string{
	"en": {"January", "February", "March", "April", "May", "June", "July", "August", "September", "October", "November", "December"},
	"de": {"Januar", "Februar", "März", "April", "Mai", "Juni", "Juli", "August", "September", "Oktober", "November", "Dezember"},
	"fr": {"janvier", "février", "mars", "avril", "mai", "juin", "juillet", "août", "septembre", "octobre", "novembre", "décembre"},
}

// LanguagesFor returns the query languages for a set of ISO country codes,
// primary language first and English always included.
func LanguagesFor(countries []string) []string {
	seen := map[string]bool{}
	var out []string
	add := func(lang string) {
		if !seen[lang] {
			seen[lang] = true
			out = append(out, lang)
		}
	}
	for _, code := range countries {
		if info, ok := Countries[code]; ok {
			for _, lang := range info.Languages {
				add(lang)
			}
		}
	}
	add("en")
	return out
}
