package bucket

import (
	"crypto/sha256"
	"encoding/binary"
)

// maxSafeInt caps hash values at 2^53-1 so they survive JSON encoding and
// any IEEE-754 double consumer without losing precision. Decision hashes
// cross service boundaries as plain numbers.
const maxSafeInt = 1<<53 - 1

// HashString maps an arbitrary string to a stable unsigned integer. It takes
// the first 8 bytes of the SHA-256 digest as a big-endian integer reduced to
// the safe-integer range. The result depends only on the input, never on the
// process, platform, or Go version.
func HashString(input string) uint64 {
	sum := sha256.Sum256([]byte(input))
	return binary.BigEndian.Uint64(sum[:8]) % maxSafeInt
}

// Bucket reduces HashString(input) to [0, modulo). A non-positive modulo
// yields 0 rather than an error so callers never branch on bucket failure.
func Bucket(input string, modulo int) int {
	if modulo <= 0 {
		return 0
	}
	return int(HashString(input) % uint64(modulo))
}
