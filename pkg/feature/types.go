package feature

import (
	"time"

	"github.com/dmitrymomot/flagkit/pkg/conditions"
	"github.com/dmitrymomot/flagkit/pkg/etag"
)

// Environment scopes a feature key. The same key may exist independently in
// every environment.
type Environment string

const (
	EnvDev     Environment = "dev"
	EnvStaging Environment = "staging"
	EnvProd    Environment = "prod"
)

// Valid reports whether the environment is one of the recognized values.
func (e Environment) Valid() bool {
	switch e {
	case EnvDev, EnvStaging, EnvProd:
		return true
	}
	return false
}

// RuleType selects the type-specific evaluation semantics of a rule.
type RuleType string

const (
	// RuleGlobal enables the feature outright, unless rolloutPercent is
	// explicitly set to 0.
	RuleGlobal RuleType = "global"
	// RulePercentage enables the feature for a stable fraction of subjects.
	RulePercentage RuleType = "percentage"
	// RuleSegment enables the feature for every subject passing the
	// condition gate.
	RuleSegment RuleType = "segment"
	// RuleVariant assigns one of several weighted variants.
	RuleVariant RuleType = "variant"
)

// Valid reports whether the rule type is recognized.
func (t RuleType) Valid() bool {
	switch t {
	case RuleGlobal, RulePercentage, RuleSegment, RuleVariant:
		return true
	}
	return false
}

// Feature is a named, environment-scoped flag. (Key, Environment) is unique.
// RulesVersion is a monotonic counter bumped exactly once per mutation to the
// feature or any of its rules; it is embedded into evaluation cache keys so
// that stale cached decisions become unreachable without explicit eviction.
type Feature struct {
	ID           string      `json:"id"`
	Key          string      `json:"key"`
	Environment  Environment `json:"environment"`
	Description  string      `json:"description,omitempty"`
	Archived     bool        `json:"isArchived"`
	RulesVersion int64       `json:"rulesVersion"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// Fingerprint returns the optimistic-concurrency token for the feature's
// current state.
func (f Feature) Fingerprint() string {
	return etag.Fingerprint(f.ID, f.UpdatedAt)
}

// Variant is one weighted arm of a variant rule. Weights are relative, not
// percentages; assignment is proportional to weight over the rule's total.
type Variant struct {
	Key    string `json:"key"`
	Weight int    `json:"weight"`
}

// Schedule restricts a rule to a time window. Either bound may be absent;
// the boundaries themselves are eligible.
type Schedule struct {
	StartAt *time.Time `json:"startAt,omitempty"`
	EndAt   *time.Time `json:"endAt,omitempty"`
}

// Allows reports whether now falls within the window.
func (s *Schedule) Allows(now time.Time) bool {
	if s == nil {
		return true
	}
	if s.StartAt != nil && now.Before(*s.StartAt) {
		return false
	}
	if s.EndAt != nil && now.After(*s.EndAt) {
		return false
	}
	return true
}

// Rule is an ordered, typed predicate attached to a feature. Higher priority
// evaluates first; ties break by most recent update, then by identity.
type Rule struct {
	ID             string                 `json:"id"`
	FeatureID      string                 `json:"featureId"`
	Priority       int                    `json:"priority"`
	Type           RuleType               `json:"ruleType"`
	Enabled        bool                   `json:"enabled"`
	RolloutPercent *int                   `json:"rolloutPercent,omitempty"`
	Variants       []Variant              `json:"variants,omitempty"`
	Conditions     *conditions.Conditions `json:"conditions,omitempty"`
	Schedule       *Schedule              `json:"schedule,omitempty"`
	CreatedAt      time.Time              `json:"createdAt"`
	UpdatedAt      time.Time              `json:"updatedAt"`
}

// Fingerprint returns the optimistic-concurrency token for the rule's
// current state.
func (r Rule) Fingerprint() string {
	return etag.Fingerprint(r.ID, r.UpdatedAt)
}

// Evaluation is an append-only historical record of a computed decision.
// It feeds analytics and audits; the evaluation path never reads it back.
type Evaluation struct {
	FeatureKey    string             `json:"featureKey"`
	Environment   Environment        `json:"environment"`
	SubjectKey    string             `json:"subjectKey"`
	Subject       conditions.Subject `json:"subject"`
	ResultEnabled bool               `json:"resultEnabled"`
	VariantKey    string             `json:"variantKey,omitempty"`
	MatchedRuleID string             `json:"matchedRuleId,omitempty"`
	Reason        string             `json:"reason"`
	DecisionHash  uint64             `json:"decisionHash"`
	CreatedAt     time.Time          `json:"createdAt"`
}
