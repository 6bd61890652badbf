package feature

import "context"

// Store is the authoritative rule store. Implementations must provide atomic
// create semantics with a uniqueness constraint on (key, environment) and an
// atomic rules-version increment; everything else is plain CRUD.
type Store interface {
	// CreateFeature persists a new feature. Returns ErrFeatureExists when
	// (key, environment) is already taken.
	CreateFeature(ctx context.Context, in CreateFeatureInput) (Feature, error)

	// GetFeature returns a feature by id, or ErrFeatureNotFound.
	GetFeature(ctx context.Context, id string) (Feature, error)

	// GetFeatureByKey returns a feature by (key, environment), or
	// ErrFeatureNotFound.
	GetFeatureByKey(ctx context.Context, key string, env Environment) (Feature, error)

	// ListFeatures returns all features, newest first.
	ListFeatures(ctx context.Context) ([]Feature, error)

	// UpdateFeature applies a partial update and returns the new state.
	UpdateFeature(ctx context.Context, id string, patch FeaturePatch) (Feature, error)

	// BumpRulesVersion atomically increments the feature's rules version and
	// returns the new value. The increment must happen inside the store, not
	// as a read-modify-write from application memory.
	BumpRulesVersion(ctx context.Context, featureID string) (int64, error)

	// CreateRule persists a new rule owned by the feature.
	CreateRule(ctx context.Context, featureID string, in RuleInput) (Rule, error)

	// GetRule returns a rule by id scoped to the feature, or ErrRuleNotFound.
	GetRule(ctx context.Context, featureID, ruleID string) (Rule, error)

	// ListRules returns all the feature's rules in evaluation order:
	// priority descending, then most recently updated, then id descending.
	ListRules(ctx context.Context, featureID string) ([]Rule, error)

	// ListEnabledRules is ListRules restricted to enabled rules. This is the
	// sequence the evaluation engine walks.
	ListEnabledRules(ctx context.Context, featureID string) ([]Rule, error)

	// UpdateRule applies a partial update and returns the new state.
	UpdateRule(ctx context.Context, featureID, ruleID string, patch RulePatch) (Rule, error)

	// DeleteRule removes the rule.
	DeleteRule(ctx context.Context, featureID, ruleID string) error

	// CreateEvaluation appends a historical evaluation record.
	CreateEvaluation(ctx context.Context, rec Evaluation) error
}
