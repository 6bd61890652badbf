// Package conditions implements declarative subject targeting for feature
// rules.
//
// A rule may carry a condition set restricting it to certain subjects:
// recognized fields (userId, tenantId, country, plan) plus an open attrs bag
// keyed by attribute name. Each operand is either a single scalar (exact
// match) or a list of scalars (match-any). All present fields combine with
// logical AND.
//
// Matching is pure and total: a nil condition set matches everything, a
// subject missing a required field simply does not match, and an empty list
// operand matches nothing. Loose rule payloads are validated once when they
// are decoded at the store boundary, not re-interpreted during evaluation.
package conditions
