// Package bucket provides the stable hashing primitives behind deterministic
// feature rollouts.
//
// Percentage rollouts and variant assignment both rely on mapping a subject
// key to a stable integer: the same input must land in the same bucket across
// process restarts, replicas, and client implementations in other languages.
// The package therefore derives buckets from a fixed-width prefix of a
// SHA-256 digest rather than from any runtime-seeded hash.
//
// Usage:
//
//	// Does subject fall inside a 25% rollout of the checkout feature?
//	enabled := bucket.Bucket("checkout_new_ui:user-42", 100) < 25
//
// HashString is also used unreduced as a cheap reproducibility fingerprint
// for evaluation decisions.
package bucket
