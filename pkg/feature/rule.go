package feature

import (
	"fmt"
	"time"

	"github.com/dmitrymomot/flagkit/pkg/bucket"
	"github.com/dmitrymomot/flagkit/pkg/conditions"
)

// Reason codes explain every decision the engine can produce. They are part
// of the API surface: clients and analytics key off them.
const (
	ReasonSchedule          = "schedule"
	ReasonConditions        = "conditions"
	ReasonGlobal            = "global"
	ReasonSegment           = "segment"
	ReasonPercentage        = "percentage"
	ReasonVariant           = "variant"
	ReasonVariantEmpty      = "variant_empty"
	ReasonVariantWeightZero = "variant_weight_zero"
	ReasonVariantFallback   = "variant_fallback"
	ReasonUnknown           = "unknown"
	ReasonNoRule            = "no_rule"
	ReasonFeatureNotFound   = "feature_not_found"
	ReasonFeatureArchived   = "feature_archived"
	ReasonFailOpen          = "fail_open"
	ReasonStoreUnavailable  = "db_unavailable"
)

// Outcome is the result of evaluating a single rule against a subject.
type Outcome struct {
	Enabled    bool
	VariantKey string
	Reason     string
}

// Gated reports whether the rule never applied to the subject (schedule or
// condition gate failed). Gated rules are skipped during selection; every
// other outcome, including a disabled one, stops the walk and becomes the
// feature's decision.
func (o Outcome) Gated() bool {
	return o.Reason == ReasonSchedule || o.Reason == ReasonConditions
}

// EvaluateRule applies one rule's semantics to a subject at a point in time.
// It is pure: same inputs, same outcome, on every replica.
//
// Percentage rules bucket on "{featureKey}:{subjectKey}" without the rule id,
// so a subject keeps its rollout position when the rule is edited or
// re-created. Variant rules include the rule id, so different variant rules
// on the same feature assign independently. The asymmetry is intentional.
func EvaluateRule(f Feature, r Rule, subject conditions.Subject, now time.Time) Outcome {
	if !r.Schedule.Allows(now) {
		return Outcome{Reason: ReasonSchedule}
	}

	if !conditions.Matches(subject, r.Conditions) {
		return Outcome{Reason: ReasonConditions}
	}

	switch r.Type {
	case RuleGlobal:
		enabled := r.RolloutPercent == nil || *r.RolloutPercent > 0
		return Outcome{Enabled: enabled, Reason: ReasonGlobal}

	case RuleSegment:
		return Outcome{Enabled: true, Reason: ReasonSegment}

	case RulePercentage:
		percent := 0
		if r.RolloutPercent != nil {
			percent = *r.RolloutPercent
		}
		value := bucket.Bucket(fmt.Sprintf("%s:%s", f.Key, subject.Key), 100)
		return Outcome{Enabled: value < percent, Reason: ReasonPercentage}

	case RuleVariant:
		if len(r.Variants) == 0 {
			return Outcome{Reason: ReasonVariantEmpty}
		}
		total := 0
		for _, v := range r.Variants {
			total += v.Weight
		}
		if total <= 0 {
			return Outcome{Reason: ReasonVariantWeightZero}
		}
		value := bucket.Bucket(fmt.Sprintf("%s:%s:%s", f.Key, subject.Key, r.ID), total)
		cursor := 0
		for _, v := range r.Variants {
			cursor += v.Weight
			if value < cursor {
				return Outcome{Enabled: true, VariantKey: v.Key, Reason: ReasonVariant}
			}
		}
		// Unreachable while value < total holds; kept so a selection bug
		// degrades to a disabled decision instead of a wrong variant.
		return Outcome{Reason: ReasonVariantFallback}
	}

	return Outcome{Reason: ReasonUnknown}
}
