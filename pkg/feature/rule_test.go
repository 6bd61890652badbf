package feature_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/flagkit/pkg/bucket"
	"github.com/dmitrymomot/flagkit/pkg/conditions"
	"github.com/dmitrymomot/flagkit/pkg/feature"
)

func intPtr(v int) *int { return &v }

func timePtr(t time.Time) *time.Time { return &t }

func TestEvaluateRuleSchedule(t *testing.T) {
	t.Parallel()

	f := feature.Feature{Key: "checkout_new_ui"}
	subject := conditions.Subject{Key: "user-1"}
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	t.Run("BeforeWindow", func(t *testing.T) {
		t.Parallel()
		rule := feature.Rule{Type: feature.RuleGlobal, Schedule: &feature.Schedule{
			StartAt: timePtr(now.Add(time.Hour)),
		}}
		out := feature.EvaluateRule(f, rule, subject, now)
		assert.False(t, out.Enabled)
		assert.Equal(t, feature.ReasonSchedule, out.Reason)
		assert.True(t, out.Gated())
	})

	t.Run("AfterWindow", func(t *testing.T) {
		t.Parallel()
		rule := feature.Rule{Type: feature.RuleGlobal, Schedule: &feature.Schedule{
			EndAt: timePtr(now.Add(-time.Hour)),
		}}
		out := feature.EvaluateRule(f, rule, subject, now)
		assert.Equal(t, feature.ReasonSchedule, out.Reason)
	})

	t.Run("InclusiveBoundaries", func(t *testing.T) {
		t.Parallel()
		rule := feature.Rule{Type: feature.RuleGlobal, Schedule: &feature.Schedule{
			StartAt: timePtr(now),
			EndAt:   timePtr(now),
		}}
		out := feature.EvaluateRule(f, rule, subject, now)
		assert.True(t, out.Enabled)
		assert.Equal(t, feature.ReasonGlobal, out.Reason)
	})

	t.Run("OpenEnded", func(t *testing.T) {
		t.Parallel()
		rule := feature.Rule{Type: feature.RuleGlobal, Schedule: &feature.Schedule{
			StartAt: timePtr(now.Add(-time.Hour)),
		}}
		out := feature.EvaluateRule(f, rule, subject, now)
		assert.True(t, out.Enabled)
	})
}

func TestEvaluateRuleConditions(t *testing.T) {
	t.Parallel()

	f := feature.Feature{Key: "beta_dashboard"}
	now := time.Now()

	plan := conditions.Exact("pro")
	rule := feature.Rule{
		Type:       feature.RuleSegment,
		Conditions: &conditions.Conditions{Plan: &plan},
	}

	t.Run("PassingSubject", func(t *testing.T) {
		t.Parallel()
		subject := conditions.Subject{Key: "s", Attributes: map[string]any{"plan": "pro"}}
		out := feature.EvaluateRule(f, rule, subject, now)
		assert.True(t, out.Enabled)
		assert.Equal(t, feature.ReasonSegment, out.Reason)
	})

	t.Run("FailingSubjectIsGated", func(t *testing.T) {
		t.Parallel()
		subject := conditions.Subject{Key: "s", Attributes: map[string]any{"plan": "free"}}
		out := feature.EvaluateRule(f, rule, subject, now)
		assert.False(t, out.Enabled)
		assert.Equal(t, feature.ReasonConditions, out.Reason)
		assert.True(t, out.Gated())
	})
}

func TestEvaluateRuleGlobal(t *testing.T) {
	t.Parallel()

	f := feature.Feature{Key: "f"}
	subject := conditions.Subject{Key: "s"}
	now := time.Now()

	t.Run("NoRolloutPercent", func(t *testing.T) {
		t.Parallel()
		out := feature.EvaluateRule(f, feature.Rule{Type: feature.RuleGlobal}, subject, now)
		assert.True(t, out.Enabled)
		assert.Equal(t, feature.ReasonGlobal, out.Reason)
	})

	t.Run("ExplicitZeroDisables", func(t *testing.T) {
		t.Parallel()
		rule := feature.Rule{Type: feature.RuleGlobal, RolloutPercent: intPtr(0)}
		out := feature.EvaluateRule(f, rule, subject, now)
		assert.False(t, out.Enabled)
		assert.Equal(t, feature.ReasonGlobal, out.Reason)
		assert.False(t, out.Gated(), "a disabled global outcome is final, not skipped")
	})

	t.Run("PositivePercentEnables", func(t *testing.T) {
		t.Parallel()
		rule := feature.Rule{Type: feature.RuleGlobal, RolloutPercent: intPtr(1)}
		out := feature.EvaluateRule(f, rule, subject, now)
		assert.True(t, out.Enabled)
	})
}

func TestEvaluateRulePercentage(t *testing.T) {
	t.Parallel()

	f := feature.Feature{Key: "checkout_new_ui"}
	now := time.Now()

	t.Run("FullRollout", func(t *testing.T) {
		t.Parallel()
		rule := feature.Rule{Type: feature.RulePercentage, RolloutPercent: intPtr(100)}
		out := feature.EvaluateRule(f, rule, conditions.Subject{Key: "user-1"}, now)
		assert.True(t, out.Enabled)
		assert.Equal(t, feature.ReasonPercentage, out.Reason)
	})

	t.Run("ZeroRollout", func(t *testing.T) {
		t.Parallel()
		rule := feature.Rule{Type: feature.RulePercentage, RolloutPercent: intPtr(0)}
		out := feature.EvaluateRule(f, rule, conditions.Subject{Key: "user-1"}, now)
		assert.False(t, out.Enabled)
	})

	t.Run("MissingPercentMeansZero", func(t *testing.T) {
		t.Parallel()
		rule := feature.Rule{Type: feature.RulePercentage}
		out := feature.EvaluateRule(f, rule, conditions.Subject{Key: "user-1"}, now)
		assert.False(t, out.Enabled)
	})

	t.Run("Deterministic", func(t *testing.T) {
		t.Parallel()
		rule := feature.Rule{Type: feature.RulePercentage, RolloutPercent: intPtr(40)}
		subject := conditions.Subject{Key: "user-7"}
		want := feature.EvaluateRule(f, rule, subject, now)
		for range 20 {
			assert.Equal(t, want, feature.EvaluateRule(f, rule, subject, now))
		}
	})

	t.Run("BucketIgnoresRuleID", func(t *testing.T) {
		t.Parallel()
		// Two percentage rules on the same feature bucket identically for
		// the same subject: the rollout identity survives rule edits.
		left := feature.Rule{ID: "rule-a", Type: feature.RulePercentage, RolloutPercent: intPtr(50)}
		right := feature.Rule{ID: "rule-b", Type: feature.RulePercentage, RolloutPercent: intPtr(50)}
		for i := range 100 {
			subject := conditions.Subject{Key: fmt.Sprintf("user-%d", i)}
			assert.Equal(t,
				feature.EvaluateRule(f, left, subject, now).Enabled,
				feature.EvaluateRule(f, right, subject, now).Enabled)
		}
	})

	t.Run("MatchesBucketContract", func(t *testing.T) {
		t.Parallel()
		rule := feature.Rule{Type: feature.RulePercentage, RolloutPercent: intPtr(37)}
		subject := conditions.Subject{Key: "user-42"}
		out := feature.EvaluateRule(f, rule, subject, now)
		want := bucket.Bucket("checkout_new_ui:user-42", 100) < 37
		assert.Equal(t, want, out.Enabled)
	})
}

func TestEvaluateRuleVariant(t *testing.T) {
	t.Parallel()

	f := feature.Feature{Key: "pricing_page"}
	now := time.Now()

	t.Run("EmptyVariants", func(t *testing.T) {
		t.Parallel()
		rule := feature.Rule{Type: feature.RuleVariant}
		out := feature.EvaluateRule(f, rule, conditions.Subject{Key: "s"}, now)
		assert.False(t, out.Enabled)
		assert.Equal(t, feature.ReasonVariantEmpty, out.Reason)
	})

	t.Run("ZeroTotalWeight", func(t *testing.T) {
		t.Parallel()
		rule := feature.Rule{Type: feature.RuleVariant, Variants: []feature.Variant{
			{Key: "a", Weight: 0}, {Key: "b", Weight: 0},
		}}
		out := feature.EvaluateRule(f, rule, conditions.Subject{Key: "s"}, now)
		assert.False(t, out.Enabled)
		assert.Equal(t, feature.ReasonVariantWeightZero, out.Reason)
	})

	t.Run("AssignsStableVariant", func(t *testing.T) {
		t.Parallel()
		rule := feature.Rule{ID: "rule-1", Type: feature.RuleVariant, Variants: []feature.Variant{
			{Key: "control", Weight: 50}, {Key: "treatment", Weight: 50},
		}}
		subject := conditions.Subject{Key: "user-3"}
		first := feature.EvaluateRule(f, rule, subject, now)
		assert.True(t, first.Enabled)
		assert.Equal(t, feature.ReasonVariant, first.Reason)
		assert.NotEmpty(t, first.VariantKey)
		for range 20 {
			assert.Equal(t, first, feature.EvaluateRule(f, rule, subject, now))
		}
	})

	t.Run("BucketIncludesRuleID", func(t *testing.T) {
		t.Parallel()
		// Unlike percentage rules, two variant rules assign independently.
		variants := []feature.Variant{{Key: "a", Weight: 50}, {Key: "b", Weight: 50}}
		left := feature.Rule{ID: "rule-a", Type: feature.RuleVariant, Variants: variants}
		right := feature.Rule{ID: "rule-b", Type: feature.RuleVariant, Variants: variants}

		diverged := false
		for i := range 200 {
			subject := conditions.Subject{Key: fmt.Sprintf("user-%d", i)}
			if feature.EvaluateRule(f, left, subject, now).VariantKey !=
				feature.EvaluateRule(f, right, subject, now).VariantKey {
				diverged = true
				break
			}
		}
		assert.True(t, diverged, "independent rules should assign differently for some subject")
	})

	t.Run("WeightConservation", func(t *testing.T) {
		t.Parallel()
		rule := feature.Rule{ID: "rule-w", Type: feature.RuleVariant, Variants: []feature.Variant{
			{Key: "A", Weight: 70}, {Key: "B", Weight: 30},
		}}

		countA, countB := 0, 0
		for i := range 1000 {
			out := feature.EvaluateRule(f, rule, conditions.Subject{Key: fmt.Sprintf("subject-%d", i)}, now)
			switch out.VariantKey {
			case "A":
				countA++
			case "B":
				countB++
			}
		}
		assert.Equal(t, 1000, countA+countB)
		// Loose sanity bounds around the expected 70/30 split.
		assert.GreaterOrEqual(t, countA, 550)
		assert.LessOrEqual(t, countA, 850)
	})
}

func TestEvaluateRuleUnknownType(t *testing.T) {
	t.Parallel()

	out := feature.EvaluateRule(feature.Feature{Key: "f"},
		feature.Rule{Type: feature.RuleType("experimental")},
		conditions.Subject{Key: "s"}, time.Now())
	assert.False(t, out.Enabled)
	assert.Equal(t, feature.ReasonUnknown, out.Reason)
	assert.False(t, out.Gated())
}
