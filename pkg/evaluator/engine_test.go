package evaluator_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/flagkit/pkg/conditions"
	"github.com/dmitrymomot/flagkit/pkg/evaluator"
	"github.com/dmitrymomot/flagkit/pkg/feature"
)

func intPtr(v int) *int { return &v }

type testEnv struct {
	store  *feature.MemoryStore
	cache  *evaluator.MemoryCache
	engine *evaluator.Engine
	mgr    *feature.Manager
}

func newTestEnv(t *testing.T, opts ...evaluator.Option) *testEnv {
	t.Helper()
	store := feature.NewMemoryStore()
	cache := evaluator.NewMemoryCache()
	return &testEnv{
		store:  store,
		cache:  cache,
		engine: evaluator.New(store, cache, opts...),
		mgr:    feature.NewManager(store, feature.WithMirror(cache)),
	}
}

func (te *testEnv) createFeature(t *testing.T, key string) feature.Feature {
	t.Helper()
	f, err := te.store.CreateFeature(context.Background(), feature.CreateFeatureInput{
		Key: key, Environment: feature.EnvDev,
	})
	require.NoError(t, err)
	return f
}

func TestEvaluateTerminalReasons(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	subject := conditions.Subject{Key: "user-1"}

	t.Run("FeatureNotFound", func(t *testing.T) {
		t.Parallel()
		te := newTestEnv(t)
		res := te.engine.Evaluate(ctx, "missing", feature.EnvDev, subject)
		assert.False(t, res.Decision.Enabled)
		assert.Equal(t, feature.ReasonFeatureNotFound, res.Decision.Reason)
	})

	t.Run("WrongEnvironment", func(t *testing.T) {
		t.Parallel()
		te := newTestEnv(t)
		te.createFeature(t, "f")
		res := te.engine.Evaluate(ctx, "f", feature.EnvProd, subject)
		assert.Equal(t, feature.ReasonFeatureNotFound, res.Decision.Reason)
	})

	t.Run("Archived", func(t *testing.T) {
		t.Parallel()
		te := newTestEnv(t)
		f := te.createFeature(t, "f")
		_, err := te.store.CreateRule(ctx, f.ID, feature.RuleInput{Priority: 1, Type: feature.RuleGlobal})
		require.NoError(t, err)
		_, err = te.mgr.ArchiveFeature(ctx, f.ID)
		require.NoError(t, err)

		res := te.engine.Evaluate(ctx, "f", feature.EnvDev, subject)
		assert.False(t, res.Decision.Enabled)
		assert.Equal(t, feature.ReasonFeatureArchived, res.Decision.Reason)
	})

	t.Run("NoRules", func(t *testing.T) {
		t.Parallel()
		te := newTestEnv(t)
		te.createFeature(t, "f")
		res := te.engine.Evaluate(ctx, "f", feature.EnvDev, subject)
		assert.False(t, res.Decision.Enabled)
		assert.Equal(t, feature.ReasonNoRule, res.Decision.Reason)
		assert.Empty(t, res.MatchedRuleID)
	})
}

type unavailableStore struct {
	feature.Store
}

func (unavailableStore) GetFeatureByKey(ctx context.Context, key string, env feature.Environment) (feature.Feature, error) {
	return feature.Feature{}, errors.New("connection refused")
}

func TestEvaluateFailPolicy(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	subject := conditions.Subject{Key: "user-1"}

	t.Run("FailClosedByDefault", func(t *testing.T) {
		t.Parallel()
		engine := evaluator.New(unavailableStore{}, evaluator.NewMemoryCache())
		res := engine.Evaluate(ctx, "f", feature.EnvDev, subject)
		assert.False(t, res.Decision.Enabled)
		assert.Equal(t, feature.ReasonStoreUnavailable, res.Decision.Reason)
	})

	t.Run("FailOpen", func(t *testing.T) {
		t.Parallel()
		engine := evaluator.New(unavailableStore{}, evaluator.NewMemoryCache(),
			evaluator.WithConfig(evaluator.Config{MinTTLSeconds: 30, MaxTTLSeconds: 120, FailOpen: true}))
		res := engine.Evaluate(ctx, "f", feature.EnvDev, subject)
		assert.True(t, res.Decision.Enabled)
		assert.Equal(t, feature.ReasonFailOpen, res.Decision.Reason)
	})
}

func TestEvaluateRuleSelection(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	subject := conditions.Subject{Key: "user-1"}

	t.Run("HighestPriorityWins", func(t *testing.T) {
		t.Parallel()
		te := newTestEnv(t)
		f := te.createFeature(t, "f")

		// Created first, but lower priority.
		_, err := te.store.CreateRule(ctx, f.ID, feature.RuleInput{
			Priority: 50, Type: feature.RulePercentage, RolloutPercent: intPtr(0),
		})
		require.NoError(t, err)
		high, err := te.store.CreateRule(ctx, f.ID, feature.RuleInput{Priority: 100, Type: feature.RuleGlobal})
		require.NoError(t, err)

		res := te.engine.Evaluate(ctx, "f", feature.EnvDev, subject)
		assert.True(t, res.Decision.Enabled)
		assert.Equal(t, feature.ReasonGlobal, res.Decision.Reason)
		assert.Equal(t, high.ID, res.MatchedRuleID)
	})

	t.Run("GatedRuleSkipped", func(t *testing.T) {
		t.Parallel()
		te := newTestEnv(t)
		f := te.createFeature(t, "f")

		plan := conditions.Exact("enterprise")
		_, err := te.store.CreateRule(ctx, f.ID, feature.RuleInput{
			Priority: 100, Type: feature.RuleSegment,
			Conditions: &conditions.Conditions{Plan: &plan},
		})
		require.NoError(t, err)
		fallback, err := te.store.CreateRule(ctx, f.ID, feature.RuleInput{Priority: 50, Type: feature.RuleGlobal})
		require.NoError(t, err)

		res := te.engine.Evaluate(ctx, "f", feature.EnvDev, subject)
		assert.True(t, res.Decision.Enabled)
		assert.Equal(t, fallback.ID, res.MatchedRuleID)
	})

	t.Run("DisabledOutcomeStops", func(t *testing.T) {
		t.Parallel()
		te := newTestEnv(t)
		f := te.createFeature(t, "f")

		// The zero-percent rule matches its gates and decides "disabled";
		// the lower-priority always-on rule must not override it.
		zero, err := te.store.CreateRule(ctx, f.ID, feature.RuleInput{
			Priority: 100, Type: feature.RulePercentage, RolloutPercent: intPtr(0),
		})
		require.NoError(t, err)
		_, err = te.store.CreateRule(ctx, f.ID, feature.RuleInput{Priority: 50, Type: feature.RuleGlobal})
		require.NoError(t, err)

		res := te.engine.Evaluate(ctx, "f", feature.EnvDev, subject)
		assert.False(t, res.Decision.Enabled)
		assert.Equal(t, feature.ReasonPercentage, res.Decision.Reason)
		assert.Equal(t, zero.ID, res.MatchedRuleID)
	})

	t.Run("VariantDecision", func(t *testing.T) {
		t.Parallel()
		te := newTestEnv(t)
		f := te.createFeature(t, "f")

		_, err := te.store.CreateRule(ctx, f.ID, feature.RuleInput{
			Priority: 1, Type: feature.RuleVariant,
			Variants: []feature.Variant{{Key: "control", Weight: 1}, {Key: "treatment", Weight: 1}},
		})
		require.NoError(t, err)

		res := te.engine.Evaluate(ctx, "f", feature.EnvDev, subject)
		assert.True(t, res.Decision.Enabled)
		assert.Equal(t, feature.ReasonVariant, res.Decision.Reason)
		require.NotNil(t, res.Decision.Variant)
		assert.Contains(t, []string{"control", "treatment"}, res.Decision.Variant.Key)
	})
}

func TestEvaluateCaching(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	subject := conditions.Subject{Key: "user-1"}

	t.Run("SecondCallServedFromCache", func(t *testing.T) {
		t.Parallel()
		te := newTestEnv(t)
		f := te.createFeature(t, "f")
		_, err := te.store.CreateRule(ctx, f.ID, feature.RuleInput{Priority: 1, Type: feature.RuleGlobal})
		require.NoError(t, err)

		first := te.engine.Evaluate(ctx, "f", feature.EnvDev, subject)
		require.False(t, first.CacheHit)

		second := te.engine.Evaluate(ctx, "f", feature.EnvDev, subject)
		assert.True(t, second.CacheHit)
		assert.Equal(t, first.Decision, second.Decision)
		assert.Equal(t, first.MatchedRuleID, second.MatchedRuleID)
	})

	t.Run("VersionBumpStrandsCachedDecision", func(t *testing.T) {
		t.Parallel()
		te := newTestEnv(t)
		f := te.createFeature(t, "checkout_new_ui")
		r, err := te.store.CreateRule(ctx, f.ID, feature.RuleInput{
			Priority: 100, Type: feature.RulePercentage, RolloutPercent: intPtr(100),
		})
		require.NoError(t, err)

		first := te.engine.Evaluate(ctx, "checkout_new_ui", feature.EnvDev, subject)
		assert.True(t, first.Decision.Enabled)
		assert.Equal(t, feature.ReasonPercentage, first.Decision.Reason)

		// Warm the cache, then flip the rollout to zero through the manager
		// so the rules version bumps.
		cached := te.engine.Evaluate(ctx, "checkout_new_ui", feature.EnvDev, subject)
		require.True(t, cached.CacheHit)
		entriesBefore := te.cache.Len()

		_, err = te.mgr.UpdateRule(ctx, f.ID, r.ID, feature.RulePatch{RolloutPercent: intPtr(0)}, r.Fingerprint())
		require.NoError(t, err)

		after := te.engine.Evaluate(ctx, "checkout_new_ui", feature.EnvDev, subject)
		assert.False(t, after.CacheHit, "version bump must force a recompute")
		assert.False(t, after.Decision.Enabled)

		// The stale entry is stranded, not deleted.
		assert.Greater(t, te.cache.Len(), entriesBefore)
	})

	t.Run("TTLWithinConfiguredWindow", func(t *testing.T) {
		t.Parallel()
		te := newTestEnv(t, evaluator.WithConfig(evaluator.Config{MinTTLSeconds: 10, MaxTTLSeconds: 20}))
		te.createFeature(t, "f")

		for range 50 {
			res := te.engine.Evaluate(ctx, "f", feature.EnvDev, conditions.Subject{Key: "u"})
			if res.CacheHit {
				continue
			}
			assert.GreaterOrEqual(t, res.Decision.TTLSeconds, 10)
			assert.LessOrEqual(t, res.Decision.TTLSeconds, 20)
		}
	})

	t.Run("InvalidTTLWindowFallsBack", func(t *testing.T) {
		t.Parallel()
		te := newTestEnv(t, evaluator.WithConfig(evaluator.Config{MinTTLSeconds: 120, MaxTTLSeconds: 30}))
		te.createFeature(t, "f")

		res := te.engine.Evaluate(ctx, "f", feature.EnvDev, subject)
		assert.Equal(t, 60, res.Decision.TTLSeconds)
	})
}

type brokenCache struct{}

func (brokenCache) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, errors.New("cache down")
}

func (brokenCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return errors.New("cache down")
}

func (brokenCache) SetValue(ctx context.Context, key, value string) error {
	return errors.New("cache down")
}

func TestEvaluateCacheOutage(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := feature.NewMemoryStore()
	f, err := store.CreateFeature(ctx, feature.CreateFeatureInput{Key: "f", Environment: feature.EnvDev})
	require.NoError(t, err)
	_, err = store.CreateRule(ctx, f.ID, feature.RuleInput{Priority: 1, Type: feature.RuleGlobal})
	require.NoError(t, err)

	engine := evaluator.New(store, brokenCache{})

	// A dead cache degrades every call to a recompute but never changes the
	// decision.
	for range 3 {
		res := engine.Evaluate(ctx, "f", feature.EnvDev, conditions.Subject{Key: "u"})
		assert.True(t, res.Decision.Enabled)
		assert.Equal(t, feature.ReasonGlobal, res.Decision.Reason)
		assert.False(t, res.CacheHit)
	}
}

func TestEvaluateDeterminism(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	// Two independent engines over stores with identical content must agree
	// on every decision, as replicas do in production.
	build := func(t *testing.T) *evaluator.Engine {
		store := feature.NewMemoryStore()
		f, err := store.CreateFeature(ctx, feature.CreateFeatureInput{Key: "rollout", Environment: feature.EnvProd})
		require.NoError(t, err)
		_, err = store.CreateRule(ctx, f.ID, feature.RuleInput{
			Priority: 1, Type: feature.RulePercentage, RolloutPercent: intPtr(42),
		})
		require.NoError(t, err)
		return evaluator.New(store, nil)
	}

	left, right := build(t), build(t)
	for i := range 200 {
		subject := conditions.Subject{Key: fmt.Sprintf("user-%d", i)}
		l := left.Evaluate(ctx, "rollout", feature.EnvProd, subject)
		r := right.Evaluate(ctx, "rollout", feature.EnvProd, subject)
		assert.Equal(t, l.Decision.Enabled, r.Decision.Enabled, "subject %d", i)
	}
}

func TestEvaluateRecordsHistory(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	te := newTestEnv(t)
	f := te.createFeature(t, "f")
	_, err := te.store.CreateRule(ctx, f.ID, feature.RuleInput{Priority: 1, Type: feature.RuleGlobal})
	require.NoError(t, err)

	res := te.engine.Evaluate(ctx, "f", feature.EnvDev, conditions.Subject{Key: "user-9", UserID: "user-9"})
	require.NotZero(t, res.DecisionHash)

	require.Eventually(t, func() bool {
		return len(te.store.Evaluations()) == 1
	}, time.Second, 10*time.Millisecond)

	rec := te.store.Evaluations()[0]
	assert.Equal(t, "f", rec.FeatureKey)
	assert.Equal(t, "user-9", rec.SubjectKey)
	assert.True(t, rec.ResultEnabled)
	assert.Equal(t, feature.ReasonGlobal, rec.Reason)
	assert.Equal(t, res.DecisionHash, rec.DecisionHash)
	assert.Equal(t, res.MatchedRuleID, rec.MatchedRuleID)
}

func TestDecisionHashStability(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	te := newTestEnv(t)
	f := te.createFeature(t, "f")
	_, err := te.store.CreateRule(ctx, f.ID, feature.RuleInput{Priority: 1, Type: feature.RuleGlobal})
	require.NoError(t, err)

	// Separate engine without a cache so every call recomputes the hash.
	engine := evaluator.New(te.store, nil)
	first := engine.Evaluate(ctx, "f", feature.EnvDev, conditions.Subject{Key: "u"})
	second := engine.Evaluate(ctx, "f", feature.EnvDev, conditions.Subject{Key: "u"})
	assert.Equal(t, first.DecisionHash, second.DecisionHash)

	other := engine.Evaluate(ctx, "f", feature.EnvDev, conditions.Subject{Key: "someone-else"})
	assert.NotEqual(t, first.DecisionHash, other.DecisionHash)
}
