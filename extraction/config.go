package extraction

import "errors"

// Config holds the validator thresholds.
type Config struct {
	// NameSimilarity is the minimum edit-distance ratio for two speakers to be
	// considered the same person.
	NameSimilarity float64

	// OrgOverlap is the minimum token-set overlap of their organizations.
	OrgOverlap float64

	// MaxNameLength bounds a plausible person name, honorifics included.
	MaxNameLength int
}

// DefaultConfig returns the validator defaults.
func DefaultConfig() Config {
	return Config{
		NameSimilarity: 0.8,
		OrgOverlap:     0.6,
		MaxNameLength:  50,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.NameSimilarity <= 0 || c.NameSimilarity > 1 {
		return errors.New("name similarity must be in (0, 1]")
	}
	if c.OrgOverlap < 0 || c.OrgOverlap > 1 {
		return errors.New("org overlap must be in [0, 1]")
	}
	if c.MaxNameLength < 1 {
		return errors.New("max name length must be positive")
	}
	return nil
}
