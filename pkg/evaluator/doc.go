// Package evaluator implements the feature decision engine and its
// version-keyed decision cache.
//
// # Evaluation
//
// Engine.Evaluate resolves (featureKey, environment, subject) to a decision:
// enabled or not, an optional variant, the matched rule, and a reason code.
// Rules are walked in priority order; the first rule whose schedule and
// condition gates pass decides the outcome, even a disabled one. Evaluation
// always returns a decision — unknown features, archived features, and an
// unreachable store all resolve to reason codes, never to errors.
//
// # Cache consistency without eviction
//
// Decisions are cached under keys embedding the feature's rules version:
//
//	eval:{featureKey}:{environment}:{subjectKey}:{rulesVersion}
//
// Mutating a feature's rules bumps the version, which moves all subsequent
// lookups to a fresh key space. Previously cached decisions are never
// deleted; they are simply unreachable and age out on their jittered TTL.
// That removes any need for an invalidation push between the admin side and
// the evaluation replicas, keeping the evaluation path fully stateless.
//
// Cache trouble is never fatal: a cache outage degrades every call to a
// recompute but does not change a single decision.
package evaluator
