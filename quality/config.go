package quality

import (
	"errors"
	"time"
)

// Config holds the gate's tolerance and weights.
type Config struct {
	// ToleranceFloor is the minimum date slack outside the window.
	ToleranceFloor time.Duration

	// ToleranceFactor scales the window length into the date slack.
	ToleranceFactor float64

	// MinSpeakers is the speaker count that counts as evidence on its own.
	MinSpeakers int

	// Floor is the composite score a solid hit must reach.
	Floor float64

	DateWeight         float64
	LocationWeight     float64
	SpeakerWeight      float64
	CompletenessWeight float64
}

// DefaultConfig returns the gate defaults. The floor is deliberately low.
func DefaultConfig() Config {
	return Config{
		ToleranceFloor:     30 * 24 * time.Hour,
		ToleranceFactor:    2,
		MinSpeakers:        1,
		Floor:              0.35,
		DateWeight:         0.35,
		LocationWeight:     0.2,
		SpeakerWeight:      0.25,
		CompletenessWeight: 0.2,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.ToleranceFloor < 0 || c.ToleranceFactor < 0 {
		return errors.New("date tolerance must not be negative")
	}
	if c.MinSpeakers < 1 {
		return errors.New("min speakers must be at least 1")
	}
	if c.Floor < 0 || c.Floor > 1 {
		return errors.New("quality floor must be between 0 and 1")
	}
	weights := []float64{c.DateWeight, c.LocationWeight, c.SpeakerWeight, c.CompletenessWeight}
	var sum float64
	for _, w := range weights {
		if w < 0 {
			return errors.New("quality weights must not be negative")
		}
		sum += w
	}
	if sum <= 0 {
		return errors.New("quality weights must not all be zero")
	}
	return nil
}
