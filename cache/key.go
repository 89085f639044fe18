package cache

import (
	"encoding/hex"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/go-crypt/x/blake2b"
	"github.com/poiesic/scout/core"
)

// keyVersion is bumped whenever the normalization rules change so old entries stop matching.
const keyVersion = "k1"

// KeyInput is everything that distinguishes one provider response from another.
type KeyInput struct {
	Provider string
	Query    string
	Country  string
	Language string
	From     time.Time
	To       time.Time
}

// Key returns the cache fingerprint for a provider call.
// Semantically equivalent queries produce the same key: see NormalizeQuery.
// The date window is bucketed to whole UTC days.
func Key(in KeyInput) string {
	var sb strings.Builder
	sb.WriteString(keyVersion)
	sb.WriteByte('|')
	sb.WriteString(strings.ToLower(strings.TrimSpace(in.Provider)))
	sb.WriteByte('|')
	sb.WriteString(strings.ToUpper(strings.TrimSpace(in.Country)))
	sb.WriteByte('|')
	sb.WriteString(strings.ToLower(strings.TrimSpace(in.Language)))
	sb.WriteByte('|')
	sb.WriteString(dayBucket(in.From))
	sb.WriteByte('|')
	sb.WriteString(dayBucket(in.To))
	sb.WriteByte('|')
	sb.WriteString(NormalizeQuery(in.Query))

	h, _ := blake2b.New(16, nil)
	h.Write([]byte(sb.String()))
	return hex.EncodeToString(h.Sum(nil))
}

func dayBucket(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format("2006-01-02")
}

// NormalizeQuery canonicalizes a query string:
//   - lowercase, whitespace collapsed, punctuation outside quotes dropped
//   - quoted phrases kept as single terms
//   - event-type synonyms mapped to one canonical token
//   - terms lightly stemmed, deduplicated and sorted inside each OR clause
//   - OR clauses deduplicated and sorted
func NormalizeQuery(q string) string {
	clauses := splitClauses(strings.ToLower(q))
	seen := make(map[string]bool, len(clauses))
	out := make([]string, 0, len(clauses))
	for _, clause := range clauses {
		norm := normalizeClause(clause)
		if norm == "" || seen[norm] {
			continue
		}
		seen[norm] = true
		out = append(out, norm)
	}
	sort.Strings(out)
	return strings.Join(out, " or ")
}

// splitClauses splits on the OR operator outside quoted phrases.
func splitClauses(q string) []string {
	var clauses []string
	var cur []string
	for _, term := range tokenize(q) {
		if term == "or" || term == "|" {
			clauses = append(clauses, strings.Join(cur, "\x00"))
			cur = nil
			continue
		}
		cur = append(cur, term)
	}
	return append(clauses, strings.Join(cur, "\x00"))
}

// tokenize splits on whitespace while keeping "quoted phrases" intact (quotes retained).
func tokenize(q string) []string {
	var terms []string
	var sb strings.Builder
	inQuote := false
	flush := func() {
		if sb.Len() > 0 {
			terms = append(terms, sb.String())
			sb.Reset()
		}
	}
	for _, r := range q {
		switch {
		case r == '"':
			if inQuote {
				sb.WriteRune(r)
				flush()
			} else {
				flush()
				sb.WriteRune(r)
			}
			inQuote = !inQuote
		case unicode.IsSpace(r) && !inQuote:
			flush()
		default:
			sb.WriteRune(r)
		}
	}
	if inQuote {
		// Unterminated quote: close it.
		sb.WriteRune('"')
	}
	flush()
	return terms
}

func normalizeClause(clause string) string {
	if clause == "" {
		return ""
	}
	seen := map[string]bool{}
	var terms []string
	for _, raw := range strings.Split(clause, "\x00") {
		term := normalizeTerm(raw)
		if term == "" || term == "and" || term == "&" || seen[term] {
			continue
		}
		seen[term] = true
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return strings.Join(terms, " ")
}

func normalizeTerm(raw string) string {
	if strings.HasPrefix(raw, `"`) && strings.HasSuffix(raw, `"`) && len(raw) >= 2 {
		inner := strings.Fields(raw[1 : len(raw)-1])
		for i, w := range inner {
			inner[i] = strings.TrimFunc(w, isTrimmable)
		}
		phrase := strings.Join(inner, " ")
		if phrase == "" {
			return ""
		}
		if !strings.Contains(phrase, " ") {
			return stem(phrase)
		}
		return `"` + phrase + `"`
	}
	term := strings.TrimFunc(raw, isTrimmable)
	if term == "" {
		return ""
	}
	return stem(term)
}

func isTrimmable(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// stem maps event-type synonyms to the canonical token and strips simple plural endings.
func stem(term string) string {
	if core.IsEventTypeSynonym(term) {
		return core.CanonicalEventType
	}
	switch {
	case len(term) > 4 && strings.HasSuffix(term, "ies"):
		term = term[:len(term)-3] + "y"
	case len(term) > 4 && strings.HasSuffix(term, "s") && !strings.HasSuffix(term, "ss"):
		term = term[:len(term)-1]
	}
	if core.IsEventTypeSynonym(term) {
		return core.CanonicalEventType
	}
	return term
}
