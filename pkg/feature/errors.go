package feature

import "errors"

// Predefined errors for the feature package.
var (
	// ErrFeatureNotFound indicates that the requested feature does not exist.
	ErrFeatureNotFound = errors.New("feature not found")

	// ErrRuleNotFound indicates that the requested rule does not exist on
	// the addressed feature.
	ErrRuleNotFound = errors.New("rule not found")

	// ErrFeatureExists indicates a (key, environment) uniqueness violation.
	ErrFeatureExists = errors.New("feature key already exists in this environment")

	// ErrPreconditionFailed indicates that the presented fingerprint does
	// not match the entity's current state; the mutation was not applied.
	ErrPreconditionFailed = errors.New("entity fingerprint does not match current state")

	// ErrInvalidFeature indicates invalid feature parameters.
	ErrInvalidFeature = errors.New("invalid feature parameters")

	// ErrInvalidRule indicates invalid rule parameters.
	ErrInvalidRule = errors.New("invalid rule parameters")
)
