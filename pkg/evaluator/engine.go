package evaluator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/dmitrymomot/flagkit/pkg/bucket"
	"github.com/dmitrymomot/flagkit/pkg/conditions"
	"github.com/dmitrymomot/flagkit/pkg/feature"
)

// Variant is the variant arm reported in a decision.
type Variant struct {
	Key string `json:"key"`
}

// Decision is what an evaluation resolves to. It is the unit stored in the
// cache, so its JSON shape is part of the cache contract.
type Decision struct {
	Enabled    bool     `json:"enabled"`
	Variant    *Variant `json:"variant"`
	RuleID     string   `json:"ruleId,omitempty"`
	Reason     string   `json:"reason"`
	TTLSeconds int      `json:"ttlSeconds"`
}

// Result wraps a decision with the engine-side context the caller needs for
// logging and audit: the matched rule and the reproducibility hash.
type Result struct {
	Decision      Decision
	MatchedRuleID string
	DecisionHash  uint64
	CacheHit      bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig overrides the default engine configuration.
func WithConfig(cfg Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// WithLogger sets the engine's logger.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithMetrics plugs in a metrics sink.
func WithMetrics(m Metrics) Option {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithClock overrides the engine's time source. Test helper.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithRecordTimeout bounds the asynchronous evaluation-record write.
func WithRecordTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.recordTimeout = d
		}
	}
}

// Engine computes feature decisions. It is stateless and safe for unbounded
// concurrent use; all shared state lives in the store and the cache.
type Engine struct {
	store         feature.Store
	cache         Cache
	cfg           Config
	log           *slog.Logger
	metrics       Metrics
	now           func() time.Time
	recordTimeout time.Duration
}

// New creates an evaluation engine over a rule store and a decision cache.
// A nil cache is valid and simply disables caching.
func New(store feature.Store, cache Cache, opts ...Option) *Engine {
	e := &Engine{
		store: store,
		cache: cache,
		cfg: Config{
			MinTTLSeconds: 30,
			MaxTTLSeconds: 120,
		},
		log:           slog.Default(),
		metrics:       nopMetrics{},
		now:           time.Now,
		recordTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate decides whether the feature is enabled for the subject and which
// variant, if any, applies. It always returns a decision: business outcomes
// that cannot be computed (unknown feature, archived feature, unreachable
// store) resolve to a decision with an explanatory reason, never an error.
func (e *Engine) Evaluate(ctx context.Context, featureKey string, env feature.Environment, subject conditions.Subject) Result {
	start := e.now()
	e.metrics.IncEvaluations()

	f, err := e.store.GetFeatureByKey(ctx, featureKey, env)
	if err != nil {
		if errors.Is(err, feature.ErrFeatureNotFound) {
			return Result{Decision: disabled(feature.ReasonFeatureNotFound)}
		}
		return e.failPolicy(ctx, featureKey, err)
	}
	if f.Archived {
		return Result{Decision: disabled(feature.ReasonFeatureArchived)}
	}

	rules, err := e.store.ListEnabledRules(ctx, f.ID)
	if err != nil {
		return e.failPolicy(ctx, featureKey, err)
	}

	ttl := e.ttlSeconds()
	cacheKey := fmt.Sprintf("eval:%s:%s:%s:%d", f.Key, f.Environment, subject.Key, f.RulesVersion)

	if cached, ok := e.cacheGet(ctx, cacheKey); ok {
		e.metrics.IncCacheHits()
		e.metrics.ObserveLatency(e.now().Sub(start))
		return Result{Decision: cached, MatchedRuleID: cached.RuleID, CacheHit: true}
	}

	// First rule whose gates pass wins, even when its type-specific outcome
	// is "disabled". Gated rules are skipped and never count as matched.
	var (
		matchedRuleID string
		variantKey    string
		enabled       bool
		reason        = feature.ReasonNoRule
	)
	now := e.now()
	for _, r := range rules {
		out := feature.EvaluateRule(f, r, subject, now)
		if out.Gated() {
			continue
		}
		matchedRuleID = r.ID
		enabled = out.Enabled
		variantKey = out.VariantKey
		reason = out.Reason
		e.metrics.IncRuleMatches()
		break
	}

	hash := bucket.HashString(fmt.Sprintf("%s:%s:%s:%t:%s:%s",
		f.Key, env, subject.Key, enabled, variantKey, matchedRuleID))

	decision := Decision{
		Enabled:    enabled,
		RuleID:     matchedRuleID,
		Reason:     reason,
		TTLSeconds: ttl,
	}
	if variantKey != "" {
		decision.Variant = &Variant{Key: variantKey}
	}

	e.cacheSet(ctx, cacheKey, decision)
	e.persistRecord(ctx, f, subject, decision, hash)

	e.metrics.ObserveLatency(e.now().Sub(start))
	return Result{Decision: decision, MatchedRuleID: matchedRuleID, DecisionHash: hash}
}

// failPolicy resolves a rule-store failure into a fast, bounded decision.
// No inline retries: a flaky store must degrade evaluation latency by at
// most one round trip.
func (e *Engine) failPolicy(ctx context.Context, featureKey string, err error) Result {
	e.log.WarnContext(ctx, "rule store unavailable during evaluation",
		slog.String("feature_key", featureKey), slog.Any("error", err))
	if e.cfg.FailOpen {
		return Result{Decision: Decision{Enabled: true, Reason: feature.ReasonFailOpen}}
	}
	return Result{Decision: disabled(feature.ReasonStoreUnavailable)}
}

// ttlSeconds draws a TTL uniformly from the configured window. The jitter
// spreads out cache expiry for decisions computed in the same burst.
func (e *Engine) ttlSeconds() int {
	min, max := e.cfg.MinTTLSeconds, e.cfg.MaxTTLSeconds
	if min <= 0 || max <= min {
		return fallbackTTLSeconds
	}
	return min + rand.IntN(max-min+1)
}

func (e *Engine) cacheGet(ctx context.Context, key string) (Decision, bool) {
	if e.cache == nil {
		return Decision{}, false
	}
	payload, err := e.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			e.log.WarnContext(ctx, "cache get failed", slog.Any("error", err))
		}
		return Decision{}, false
	}
	var d Decision
	if err := json.Unmarshal(payload, &d); err != nil {
		e.log.WarnContext(ctx, "cached decision is malformed", slog.Any("error", err))
		return Decision{}, false
	}
	return d, true
}

func (e *Engine) cacheSet(ctx context.Context, key string, d Decision) {
	if e.cache == nil {
		return
	}
	payload, err := json.Marshal(d)
	if err != nil {
		e.log.WarnContext(ctx, "decision encoding failed", slog.Any("error", err))
		return
	}
	if err := e.cache.Set(ctx, key, payload, time.Duration(d.TTLSeconds)*time.Second); err != nil {
		e.log.WarnContext(ctx, "cache set failed", slog.Any("error", err))
	}
}

// persistRecord appends the evaluation to history off the request path.
// History feeds analytics only; losing a record never affects the decision.
func (e *Engine) persistRecord(ctx context.Context, f feature.Feature, subject conditions.Subject, d Decision, hash uint64) {
	rec := feature.Evaluation{
		FeatureKey:    f.Key,
		Environment:   f.Environment,
		SubjectKey:    subject.Key,
		Subject:       subject,
		ResultEnabled: d.Enabled,
		MatchedRuleID: d.RuleID,
		Reason:        d.Reason,
		DecisionHash:  hash,
		CreatedAt:     e.now(),
	}
	if d.Variant != nil {
		rec.VariantKey = d.Variant.Key
	}

	// Detached from the request context: the record should land even when
	// the caller has already gone away.
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.recordTimeout)
	go func() {
		defer cancel()
		if err := e.store.CreateEvaluation(recordCtx, rec); err != nil {
			e.log.WarnContext(recordCtx, "evaluation record persist failed", slog.Any("error", err))
		}
	}()
}

func disabled(reason string) Decision {
	return Decision{Enabled: false, Reason: reason}
}
