package core

import (
	"encoding/binary"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a compact content-derived identifier.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Hex returns the ID as a fixed-width hex string.
func (id ID) Hex() string {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(id))
	return hex.EncodeToString(buf[:])
}

// CandidateID derives a fallback identifier for an event candidate that has no durable ID.
// The normalized source URL is hashed when present. Otherwise the nanosecond timestamp
// and the candidate's index within its batch are hashed together, so candidates created
// within the same clock tick still get distinct identifiers.
func CandidateID(normalizedURL string, ts time.Time, index int) string {
	h, _ := blake2b.New(16, nil)
	if normalizedURL != "" {
		h.Write([]byte("url:"))
		h.Write([]byte(normalizedURL))
	} else {
		h.Write([]byte("ts:"))
		h.Write([]byte(strconv.FormatInt(ts.UnixNano(), 10)))
		h.Write([]byte{':'})
		h.Write([]byte(strconv.Itoa(index)))
	}
	return hex.EncodeToString(h.Sum(nil))
}
