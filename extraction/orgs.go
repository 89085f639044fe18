package extraction

import (
	"strings"

	"github.com/poiesic/scout/core"
)

// legalSuffixes are matched against the trailing tokens of an organization
// name, compared lowercase with dots removed. Longer suffixes come first.
var legalSuffixes = [][]string{
	{"gmbh", "&", "co", "kgaa"},
	{"gmbh", "&", "co", "kg"},
	{"ag", "&", "co", "kg"},
	{"pty", "ltd"},
	{"sà", "rl"},
	{"gmbh"}, {"mbh"}, {"ggmbh"}, {"ug"}, {"ag"}, {"kgaa"}, {"kg"}, {"ohg"}, {"ev"}, {"se"},
	{"inc"}, {"incorporated"}, {"corp"}, {"corporation"}, {"co"}, {"company"},
	{"ltd"}, {"limited"}, {"llc"}, {"llp"}, {"lp"}, {"plc"},
	{"bv"}, {"nv"}, {"sa"}, {"sas"}, {"sarl"}, {"spa"}, {"srl"},
	{"oy"}, {"ab"}, {"as"}, {"a/s"}, {"aps"},
}

// DefaultAliases maps folded organization names to their canonical form.
var DefaultAliases = aliasMap([][2]string{
	{"alphabet", "Google"},
	{"google", "Google"},
	{"meta platforms", "Meta"},
	{"facebook", "Meta"},
	{"pricewaterhousecoopers", "PwC"},
	{"pwc", "PwC"},
	{"ernst & young", "EY"},
	{"ernst young", "EY"},
	{"ey", "EY"},
	{"deloitte touche tohmatsu", "Deloitte"},
	{"deloitte", "Deloitte"},
	{"kpmg", "KPMG"},
	{"international business machines", "IBM"},
	{"ibm", "IBM"},
	{"amazon web services", "AWS"},
	{"aws", "AWS"},
	{"federal cartel office", "Bundeskartellamt"},
	{"bundeskartellamt", "Bundeskartellamt"},
	{"eu commission", "European Commission"},
	{"european commission", "European Commission"},
})

func aliasMap(pairs [][2]string) map[string]string {
	m := make(map[string]string, len(pairs))
	for _, p := range pairs {
		m[core.Fold(p[0])] = p[1]
	}
	return m
}

func suffixKey(tok string) string {
	return strings.ToLower(strings.Trim(strings.ReplaceAll(tok, ".", ""), ","))
}

// stripLegalSuffixes removes trailing legal-entity designators. It never
// strips a name down to nothing.
func stripLegalSuffixes(name string) string {
	tokens := strings.Fields(name)
	for {
		stripped := false
		for _, suffix := range legalSuffixes {
			n := len(suffix)
			if len(tokens) <= n {
				continue
			}
			match := true
			for i, want := range suffix {
				if suffixKey(tokens[len(tokens)-n+i]) != want {
					match = false
					break
				}
			}
			if match {
				tokens = tokens[:len(tokens)-n]
				stripped = true
				break
			}
		}
		// Drop dangling connectors left behind ("Foo &", "Bar,").
		for len(tokens) > 1 {
			last := strings.TrimRight(tokens[len(tokens)-1], ",")
			if last != "" && last != "&" && last != "-" && last != "und" && last != "and" {
				tokens[len(tokens)-1] = last
				break
			}
			tokens = tokens[:len(tokens)-1]
			stripped = true
		}
		if !stripped {
			break
		}
	}
	return strings.Join(tokens, " ")
}

// orgTokens is the folded token set of a normalized organization name.
func orgTokens(name string) map[string]bool {
	set := make(map[string]bool)
	for _, t := range core.Tokens(name) {
		set[t] = true
	}
	return set
}

// tokenOverlap is |a ∩ b| / min(|a|, |b|). Two unknown organizations count as
// a full match and one unknown as a weak one.
func tokenOverlap(a, b map[string]bool) float64 {
	switch {
	case len(a) == 0 && len(b) == 0:
		return 1
	case len(a) == 0 || len(b) == 0:
		return unknownOrgOverlap
	}
	common := 0
	for t := range a {
		if b[t] {
			common++
		}
	}
	return float64(common) / float64(min(len(a), len(b)))
}

// unknownOrgOverlap is the overlap assumed when only one side names an organization.
const unknownOrgOverlap = 0.6
