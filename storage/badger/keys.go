package badger

import (
	"encoding/binary"
	"time"
)

// Key prefixes for different data types
const (
	cacheEntryPrefix = "cache:"
	runRecordPrefix  = "run:"
	runStartedPrefix = "runts:"
)

// makeCacheKey generates a key for a cache entry by fingerprint.
func makeCacheKey(key string) []byte {
	return []byte(cacheEntryPrefix + key)
}

// makeRunKey generates a key for a run record by ID.
func makeRunKey(id string) []byte {
	return []byte(runRecordPrefix + id)
}

// makeRunStartedKey generates a composite key for the start-time index.
// Format: prefix + timestamp + id
func makeRunStartedKey(startedAt time.Time, id string) []byte {
	buf := make([]byte, len(runStartedPrefix)+8+len(id))
	offset := copy(buf, runStartedPrefix)
	// BigEndian so lexicographic order is chronological
	binary.BigEndian.PutUint64(buf[offset:], uint64(startedAt.UnixMicro()))
	offset += 8
	copy(buf[offset:], id)
	return buf
}
