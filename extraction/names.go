package extraction

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/poiesic/scout/core"
)

// honorifics are stripped before a name is checked or compared.
var honorifics = map[string]bool{
	"dr": true, "prof": true, "mr": true, "mrs": true, "ms": true, "mx": true, "sir": true,
	"dame": true, "herr": true, "frau": true, "mag": true, "dipl": true, "ing": true,
	"dr-ing": true, "dipl-ing": true, "ra": true, "rain": true, "me": true, "mme": true,
	"m": true, "hon": true, "rev": true, "phd": true, "mba": true, "llm": true,
}

// particles may appear in lowercase inside a name.
var particles = map[string]bool{
	"von": true, "van": true, "der": true, "den": true, "de": true, "del": true,
	"della": true, "di": true, "da": true, "du": true, "la": true, "le": true,
	"zu": true, "ter": true, "ten": true, "bin": true, "al": true,
}

// denyWords mark call-to-action phrases, UI labels, event titles and
// organizational terms. Compared after folding.
var denyWords = map[string]bool{
	"register": true, "registration": true, "reserve": true, "seat": true, "seats": true,
	"ticket": true, "tickets": true, "buy": true, "now": true, "join": true,
	"learn": true, "more": true, "login": true, "contact": true,
	"subscribe": true, "download": true, "apply": true, "submit": true, "save": true,
	"date": true, "view": true, "all": true, "click": true, "here": true,
	"privacy": true, "policy": true, "cookie": true, "cookies": true, "terms": true,
	"session": true, "sessions": true, "panel": true, "keynote": true, "workshop": true,
	"agenda": true, "program": true, "programme": true, "speaker": true, "speakers": true,
	"sponsor": true, "sponsors": true, "partner": true, "partners": true, "exhibitor": true,
	"team": true, "about": true, "menu": true, "news": true, "blog": true,
	"award": true, "awards": true, "week": true, "night": true, "opening": true,
	"closing": true, "welcome": true, "lunch": true, "break": true, "networking": true,
	"association": true, "institute": true, "university": true, "universitat": true,
	"group": true, "company": true, "gmbh": true, "inc": true, "ltd": true, "llc": true,
	"ag": true, "foundation": true, "council": true, "committee": true,
	"anmelden": true, "anmeldung": true, "jetzt": true, "erfahren": true,
	"kontakt": true, "datenschutz": true, "impressum": true, "tbd": true, "tba": true,
	"inscription": true, "programm": true, "referenten": true, "online": true,
	"up": true, "info": true, "infos": true, "stream": true, "livestream": true, "member": true,
	"members": true,
}

// ambiguousWords are UI labels that are also real surnames ("Lisa Day",
// "Klaus Mehr"). They reject a name only next to another deny-listed or
// ambiguous word, as in "Show All" or "Sign Up".
var ambiguousWords = map[string]bool{
	"day": true, "read": true, "book": true, "show": true, "home": true,
	"board": true, "sign": true, "mehr": true, "live": true,
}

func nameTokens(name string) []string {
	return strings.Fields(strings.TrimSpace(name))
}

// honorificKey reduces "Dr." or "Dipl.-Ing." to a lookup key.
func honorificKey(tok string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimRight(tok, ".,"), ".", ""))
}

// stripHonorifics drops leading and trailing titles and degrees.
func stripHonorifics(tokens []string) []string {
	for len(tokens) > 0 && honorifics[honorificKey(tokens[0])] {
		tokens = tokens[1:]
	}
	for len(tokens) > 0 {
		last := strings.TrimRight(tokens[len(tokens)-1], ",")
		if !honorifics[honorificKey(last)] {
			break
		}
		tokens = tokens[:len(tokens)-1]
	}
	if len(tokens) > 0 {
		tokens[len(tokens)-1] = strings.TrimRight(tokens[len(tokens)-1], ",")
	}
	return tokens
}

// IsPersonName reports whether s looks like a person's name: two to four
// capitalized words of letters, hyphens and apostrophes, no deny-listed word,
// at most one ambiguous word, and at most maxLen characters. Honorifics are
// ignored for the check.
func IsPersonName(s string, maxLen int) bool {
	s = strings.TrimSpace(s)
	if s == "" || utf8.RuneCountInString(s) > maxLen {
		return false
	}
	tokens := stripHonorifics(nameTokens(s))
	capitalized, ambiguous := 0, 0
	for _, tok := range tokens {
		if !validNameToken(tok) {
			return false
		}
		folded := core.Fold(tok)
		if denyWords[folded] || core.IsEventTypeSynonym(folded) {
			return false
		}
		if ambiguousWords[folded] {
			ambiguous++
		}
		first, _ := utf8.DecodeRuneInString(tok)
		switch {
		case unicode.IsUpper(first):
			capitalized++
		case particles[tok]:
		default:
			return false
		}
	}
	return capitalized >= 2 && len(tokens) <= 4 && ambiguous < 2
}

func validNameToken(tok string) bool {
	if tok == "" {
		return false
	}
	for _, r := range tok {
		if unicode.IsLetter(r) || r == '-' || r == '\'' || r == '’' {
			continue
		}
		return false
	}
	return true
}

// comparableName is the folded name without honorifics.
func comparableName(name string) string {
	return core.Fold(strings.Join(stripHonorifics(nameTokens(name)), " "))
}
