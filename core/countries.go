package core

// CountryGroups maps named groups to member ISO codes.
var CountryGroups = map[string][]string{
	"DACH":    {"DE", "AT", "CH"},
	"BENELUX": {"BE", "NL", "LU"},
	"NORDICS": {"DK", "FI", "IS", "NO", "SE"},
	"EU": {"AT", "BE", "BG", "HR", "CY", "CZ", "DK", "EE", "FI", "FR", "DE", "GR", "HU",
		"IE", "IT", "LV", "LT", "LU", "MT", "NL", "PL", "PT", "RO", "SK", "SI", "ES", "SE"},
}

// CountryTLDs maps ISO codes to their country-code top-level domain.
// Only codes whose ccTLD differs from the lowercase ISO code are listed.
var CountryTLDs = map[string]string{
	"GB": "uk",
}

// TLDForCountry returns the ccTLD for an ISO code.
func TLDForCountry(code string) string {
	if tld, ok := CountryTLDs[code]; ok {
		return tld
	}
	b := []byte(code)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// CountryInfo carries the names and languages used for query expansion and location checks.
type CountryInfo struct {
	Names     []string // Endonym first, then English
	Languages []string // Primary language first
	Cities    []string // Major event cities
}

// Countries holds the countries the engine knows about in detail.
// Unknown codes fall back to English queries and ccTLD-only location checks.
var Countries = map[string]CountryInfo{
	"DE": {Names: []string{"Deutschland", "Germany"}, Languages: []string{"de", "en"},
		Cities: []string{"Berlin", "München", "Munich", "Frankfurt", "Hamburg", "Köln", "Cologne", "Düsseldorf", "Stuttgart", "Leipzig", "Hannover", "Nürnberg", "Bonn"}},
	"AT": {Names: []string{"Österreich", "Austria"}, Languages: []string{"de", "en"},
		Cities: []string{"Wien", "Vienna", "Graz", "Salzburg", "Linz", "Innsbruck"}},
	"CH": {Names: []string{"Schweiz", "Switzerland"}, Languages: []string{"de", "fr", "en"},
		Cities: []string{"Zürich", "Zurich", "Genf", "Geneva", "Genève", "Basel", "Bern", "Lausanne"}},
	"FR": {Names: []string{"France"}, Languages: []string{"fr", "en"},
		Cities: []string{"Paris", "Lyon", "Marseille", "Lille", "Toulouse", "Nice", "Bordeaux"}},
	"GB": {Names: []string{"United Kingdom", "UK"}, Languages: []string{"en"},
		Cities: []string{"London", "Manchester", "Edinburgh", "Birmingham", "Glasgow"}},
	"US": {Names: []string{"United States", "USA"}, Languages: []string{"en"},
		Cities: []string{"New York", "San Francisco", "Washington", "Chicago", "Boston", "Las Vegas", "Austin"}},
	"NL": {Names: []string{"Nederland", "Netherlands"}, Languages: []string{"en"},
		Cities: []string{"Amsterdam", "Rotterdam", "Den Haag", "The Hague", "Utrecht"}},
	"BE": {Names: []string{"Belgique", "Belgium"}, Languages: []string{"fr", "en"},
		Cities: []string{"Brussels", "Bruxelles", "Brüssel", "Antwerp", "Ghent"}},
}
