// Package feature holds the feature-flag domain: environment-scoped
// features, their typed rules, the pure rule evaluator, the rule store
// interface with in-memory and Postgres implementations, and the mutation
// coordinator that keeps cached decisions consistent with rule edits.
//
// # Rules
//
// A feature owns an ordered list of rules. Each rule passes through a gate
// pipeline when evaluated: a schedule gate, a condition gate, then its
// type-specific semantics (global, segment, percentage, variant). Gate
// failures skip the rule; any type-specific outcome, enabled or not, is
// final. This split is deliberate: a high-priority rule that decides
// "disabled" must not be overridden by a lower-priority rule.
//
// # Cache consistency
//
// Every feature carries a monotonically increasing rules version. The
// Manager bumps it, atomically inside the store, on every mutation to the
// feature or any of its rules. The evaluation engine embeds the version in
// its cache keys, so a bump strands all previously cached decisions without
// any eviction traffic; they simply age out on their TTL.
//
// # Concurrent edits
//
// Reads expose a fingerprint derived from entity identity and last-modified
// time. Guarded mutations must present the fingerprint they last observed
// and are rejected with ErrPreconditionFailed when it is stale.
package feature
