package textutil

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// Hash computes a SHA-256 hex hash of a string for deduplication.
func Hash(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

// Bucket maps s onto [0, n) using the leading bytes of its SHA-256 sum.
// The mapping is stable across runs and platforms.
func Bucket(s string, n int) int {
	if n <= 0 {
		return 0
	}
	h := sha256.Sum256([]byte(s))
	return int(binary.BigEndian.Uint64(h[:8]) % uint64(n))
}

// Truncate shortens a string to maxLen bytes, appending "..." if truncated.
// It never cuts a multi-byte rune in half.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !runeStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

func runeStart(b byte) bool { return b&0xC0 != 0x80 }
