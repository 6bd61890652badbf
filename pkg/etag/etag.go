package etag

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"time"
)

// Make derives a weak ETag from an arbitrary value string. The token is
// deterministic, so it can be recomputed from entity state on every request
// instead of being stored.
func Make(value string) string {
	sum := sha1.Sum([]byte(value))
	return `W/"` + hex.EncodeToString(sum[:]) + `"`
}

// Fingerprint derives the optimistic-concurrency token for an entity from
// its identity and last-modified time. Any successful mutation touches the
// timestamp, so the token changes on every write.
func Fingerprint(entityID string, lastModified time.Time) string {
	return Make(fmt.Sprintf("%s:%s", entityID, lastModified.UTC().Format(time.RFC3339Nano)))
}

// Matches reports whether any presented token equals the current one. No
// presented tokens means no match: a client that never observed the entity
// cannot mutate it.
func Matches(current string, presented ...string) bool {
	for _, token := range presented {
		if token != "" && token == current {
			return true
		}
	}
	return false
}
