package rerank

import "errors"

// DefaultAggregators are listing and directory sites that aggregate events
// organized by others.
var DefaultAggregators = []string{
	"eventbrite.com", "eventbrite.de", "eventbrite.co.uk", "eventbrite.fr",
	"meetup.com", "allevents.in", "10times.com", "conferenceindex.org",
	"conference-service.com", "eventseye.com", "conferencealerts.com",
	"eventyco.com", "lanyrd.com", "xing.com", "linkedin.com", "facebook.com",
	"twitter.com", "x.com", "youtube.com", "wikipedia.org", "veranstaltungen.de",
	"eventfinder.de", "auma.de", "allconferencealert.com", "waset.org",
}

// Config holds the filter and rerank weights.
type Config struct {
	// Aggregators is the set of suppressed domains. Subdomains match.
	Aggregators []string

	// MinNonAggregators is the floor below which the backstop kicks in.
	MinNonAggregators int

	// BackstopCount is how many aggregator URLs are re-admitted, best score first.
	BackstopCount int

	CountryTLDBonus  float64 // Host ccTLD matches the requested region
	ProgramPathBonus float64 // Path names a program, agenda or speakers page
	TermMatchBonus   float64 // User term appears in the URL or title
	PathPenalty      float64 // Documentation and person-profile paths
}

// DefaultConfig returns the default filter and rerank settings.
func DefaultConfig() Config {
	return Config{
		Aggregators:       DefaultAggregators,
		MinNonAggregators: 6,
		BackstopCount:     1,
		CountryTLDBonus:   0.15,
		ProgramPathBonus:  0.2,
		TermMatchBonus:    0.25,
		PathPenalty:       0.3,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.MinNonAggregators < 0 {
		return errors.New("minimum non-aggregator count must not be negative")
	}
	if c.BackstopCount < 1 {
		return errors.New("backstop count must be at least 1")
	}
	if c.CountryTLDBonus < 0 || c.ProgramPathBonus < 0 || c.TermMatchBonus < 0 || c.PathPenalty < 0 {
		return errors.New("rerank bonuses and penalties must not be negative")
	}
	return nil
}
