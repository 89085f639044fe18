package discovery

import (
	"strconv"
	"strings"

	"github.com/poiesic/scout/core"
)

// synonymsPerLanguage is how many event-type synonyms each language contributes.
const synonymsPerLanguage = 3

// ExpandVariants derives up to limit query variants from a request.
//
// The primary clause is the quoted user term when present, otherwise the first
// industry term, otherwise a bare event-type word. It leads every variant.
func ExpandVariants(req core.SearchRequest, limit int) []core.QueryVariant {
	if limit <= 0 {
		return nil
	}
	countries := req.Countries()
	langs := core.LanguagesFor(countries)
	primary := primaryClause(req)
	industry := secondaryIndustry(req)
	year := strconv.Itoa(req.From.Year())

	var out []core.QueryVariant
	seen := make(map[string]bool)
	add := func(lang string, parts ...string) bool {
		if len(out) >= limit {
			return false
		}
		terms := []string{primary}
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				terms = append(terms, p)
			}
		}
		q := strings.Join(terms, " ")
		key := strings.ToLower(q)
		if !seen[key] {
			seen[key] = true
			out = append(out, core.QueryVariant{Query: q, Primary: primary, Language: lang})
		}
		return len(out) < limit
	}

	// Synonym x language, with the country name and the year.
	for _, lang := range langs {
		location := locationTerm(req.Country, countries, lang)
		for _, syn := range firstN(core.EventTypeSynonyms[lang], synonymsPerLanguage) {
			if !add(lang, syn, industry, location, year) {
				return out
			}
		}
	}

	// Major cities, in the primary language.
	lang := langs[0]
	syn := firstN(core.EventTypeSynonyms[lang], 1)
	for _, city := range cities(countries, 3) {
		if !add(lang, strings.Join(syn, ""), city, year) {
			return out
		}
	}

	// Month names for the window, in each language.
	for _, lang := range langs {
		months := monthTerms(req, lang)
		if months == "" {
			continue
		}
		if !add(lang, strings.Join(firstN(core.EventTypeSynonyms[lang], 1), ""), months, year) {
			return out
		}
	}

	// Speaker and agenda phrasing surfaces program pages directly.
	for _, extra := range []string{"speakers agenda", "programme"} {
		if !add("en", "conference", extra, year) {
			return out
		}
	}
	return out
}

func primaryClause(req core.SearchRequest) string {
	if term := strings.TrimSpace(req.Term); term != "" {
		return quote(term)
	}
	for _, ind := range req.Industry {
		if ind = strings.TrimSpace(ind); ind != "" {
			return quote(ind)
		}
	}
	return "event"
}

// secondaryIndustry returns the industry terms that did not become the primary clause.
func secondaryIndustry(req core.SearchRequest) string {
	var terms []string
	skipFirst := strings.TrimSpace(req.Term) == ""
	for _, ind := range req.Industry {
		ind = strings.TrimSpace(ind)
		if ind == "" {
			continue
		}
		if skipFirst {
			skipFirst = false
			continue
		}
		terms = append(terms, ind)
		if len(terms) == 2 {
			break
		}
	}
	return strings.Join(terms, " ")
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, "") + `"`
}

// locationTerm names the requested region in the given language.
func locationTerm(raw string, countries []string, lang string) string {
	if len(countries) != 1 {
		return strings.ToUpper(strings.TrimSpace(raw))
	}
	info, ok := core.Countries[countries[0]]
	if !ok || len(info.Names) == 0 {
		return countries[0]
	}
	if len(info.Languages) > 0 && info.Languages[0] == lang {
		return info.Names[0]
	}
	return info.Names[len(info.Names)-1]
}

func cities(countries []string, n int) []string {
	var out []string
	for _, code := range countries {
		for _, city := range core.Countries[code].Cities {
			if len(out) == n {
				return out
			}
			out = append(out, city)
		}
	}
	return out
}

// monthTerms returns the month names spanned by the window, at most two.
func monthTerms(req core.SearchRequest, lang string) string {
	names, ok := core.MonthNames[lang]
	if !ok || req.From.IsZero() {
		return ""
	}
	first := names[req.From.Month()-1]
	if req.To.IsZero() || req.To.Month() == req.From.Month() {
		return first
	}
	return first + " " + names[req.To.Month()-1]
}

func firstN(words []string, n int) []string {
	if len(words) > n {
		return words[:n]
	}
	return words
}
