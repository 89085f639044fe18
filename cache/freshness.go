package cache

import (
	"time"

	"github.com/poiesic/scout/core"
)

// FreshnessFilter reports whether a hit is recent enough to use.
// It is independent of TTL: an entry can be unexpired and still too old for a caller.
type FreshnessFilter func(entry *core.CacheEntry, now time.Time) bool

// MaxAge returns a filter accepting entries inserted less than maxAge ago.
// A non-positive maxAge accepts everything.
func MaxAge(maxAge time.Duration) FreshnessFilter {
	return func(entry *core.CacheEntry, now time.Time) bool {
		if entry == nil {
			return false
		}
		if maxAge <= 0 {
			return true
		}
		return now.Sub(entry.InsertedAt) < maxAge
	}
}
