package rerank

import (
	"path"
	"strings"
)

var programSegments = []string{
	"program", "programm", "programme", "agenda", "speakers", "speaker", "referenten",
	"sprecher", "redner", "schedule", "sessions", "intervenants", "line-up", "lineup",
}

var legalSegments = map[string]bool{
	"impressum": true, "imprint": true, "datenschutz": true, "privacy": true, "privacy-policy": true,
	"terms": true, "terms-of-service": true, "tos": true, "legal": true, "agb": true,
	"cookies": true, "cookie-policy": true, "disclaimer": true, "mentions-legales": true,
}

var docSegments = map[string]bool{
	"docs": true, "documentation": true, "help": true, "support": true, "wiki": true,
	"faq": true, "manual": true, "api": true,
}

var profileSegments = map[string]bool{
	"profile": true, "profiles": true, "people": true, "person": true, "author": true,
	"authors": true, "user": true, "users": true, "in": true, "team": true, "staff": true,
}

var downloadExts = map[string]bool{
	".pdf": true, ".doc": true, ".docx": true, ".ppt": true, ".pptx": true,
	".xls": true, ".xlsx": true, ".zip": true, ".ics": true,
}

func segments(p string) []string {
	var out []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// excludedPath reports legal pages and file downloads.
func excludedPath(p string) bool {
	if downloadExts[strings.ToLower(path.Ext(p))] {
		return true
	}
	for _, s := range segments(p) {
		if legalSegments[s] {
			return true
		}
	}
	return false
}

// penalizedPath reports documentation and person-profile pages.
func penalizedPath(p string) bool {
	segs := segments(p)
	for i, s := range segs {
		if docSegments[s] || profileSegments[s] {
			return true
		}
		// A single speaker's page, as opposed to the speakers list.
		if s == "speaker" && i+1 < len(segs) {
			return true
		}
	}
	return false
}

func programPath(p string) bool {
	segs := segments(p)
	for i, s := range segs {
		if s == "speaker" && i+1 < len(segs) {
			continue
		}
		for _, want := range programSegments {
			if s == want || strings.HasPrefix(s, want+"-") || strings.HasSuffix(s, "-"+want) {
				return true
			}
		}
	}
	return false
}
