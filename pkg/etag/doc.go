// Package etag implements optimistic concurrency fingerprints for admin
// mutations.
//
// Every feature and rule read returns a weak ETag derived from the entity's
// identity and last-modified timestamp. A mutation must present the token it
// last observed; a mismatch means another operator changed the entity in the
// meantime and the mutation is rejected with a precondition failure before
// any write happens. Because the token is a pure function of entity state it
// is recomputed on demand and never stored.
package etag
