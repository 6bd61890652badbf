package feature

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store implementation. It backs tests and
// single-process setups; production deployments use PostgresStore.
type MemoryStore struct {
	mu          sync.RWMutex
	features    map[string]*Feature
	rules       map[string]*Rule
	evaluations []Evaluation
	now         func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		features: make(map[string]*Feature),
		rules:    make(map[string]*Rule),
		now:      time.Now,
	}
}

// SetClock overrides the store's time source. Test helper.
func (m *MemoryStore) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *MemoryStore) CreateFeature(ctx context.Context, in CreateFeatureInput) (Feature, error) {
	if err := in.Validate(); err != nil {
		return Feature{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, f := range m.features {
		if f.Key == in.Key && f.Environment == in.Environment {
			return Feature{}, ErrFeatureExists
		}
	}

	now := m.now()
	f := &Feature{
		ID:           uuid.NewString(),
		Key:          in.Key,
		Environment:  in.Environment,
		Description:  in.Description,
		Archived:     in.Archived,
		RulesVersion: 1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.features[f.ID] = f
	return *f, nil
}

func (m *MemoryStore) GetFeature(ctx context.Context, id string) (Feature, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	f, ok := m.features[id]
	if !ok {
		return Feature{}, ErrFeatureNotFound
	}
	return *f, nil
}

func (m *MemoryStore) GetFeatureByKey(ctx context.Context, key string, env Environment) (Feature, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, f := range m.features {
		if f.Key == key && f.Environment == env {
			return *f, nil
		}
	}
	return Feature{}, ErrFeatureNotFound
}

func (m *MemoryStore) ListFeatures(ctx context.Context) ([]Feature, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Feature, 0, len(m.features))
	for _, f := range m.features {
		out = append(out, *f)
	}
	slices.SortFunc(out, func(a, b Feature) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
	return out, nil
}

func (m *MemoryStore) UpdateFeature(ctx context.Context, id string, patch FeaturePatch) (Feature, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.features[id]
	if !ok {
		return Feature{}, ErrFeatureNotFound
	}
	if patch.Description != nil {
		f.Description = *patch.Description
	}
	if patch.Archived != nil {
		f.Archived = *patch.Archived
	}
	f.UpdatedAt = m.now()
	return *f, nil
}

func (m *MemoryStore) BumpRulesVersion(ctx context.Context, featureID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.features[featureID]
	if !ok {
		return 0, ErrFeatureNotFound
	}
	f.RulesVersion++
	f.UpdatedAt = m.now()
	return f.RulesVersion, nil
}

func (m *MemoryStore) CreateRule(ctx context.Context, featureID string, in RuleInput) (Rule, error) {
	if err := in.Validate(); err != nil {
		return Rule{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.features[featureID]; !ok {
		return Rule{}, ErrFeatureNotFound
	}

	enabled := true
	if in.Enabled != nil {
		enabled = *in.Enabled
	}

	now := m.now()
	r := &Rule{
		ID:             uuid.NewString(),
		FeatureID:      featureID,
		Priority:       in.Priority,
		Type:           in.Type,
		Enabled:        enabled,
		RolloutPercent: in.RolloutPercent,
		Variants:       slices.Clone(in.Variants),
		Conditions:     in.Conditions,
		Schedule:       in.Schedule,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	m.rules[r.ID] = r
	return *r, nil
}

func (m *MemoryStore) GetRule(ctx context.Context, featureID, ruleID string) (Rule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.rules[ruleID]
	if !ok || r.FeatureID != featureID {
		return Rule{}, ErrRuleNotFound
	}
	return *r, nil
}

func (m *MemoryStore) ListRules(ctx context.Context, featureID string) ([]Rule, error) {
	return m.listRules(featureID, false), nil
}

func (m *MemoryStore) ListEnabledRules(ctx context.Context, featureID string) ([]Rule, error) {
	return m.listRules(featureID, true), nil
}

func (m *MemoryStore) listRules(featureID string, enabledOnly bool) []Rule {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Rule, 0)
	for _, r := range m.rules {
		if r.FeatureID != featureID {
			continue
		}
		if enabledOnly && !r.Enabled {
			continue
		}
		out = append(out, *r)
	}
	// Evaluation order: priority desc, updatedAt desc, id desc. The id
	// tie-break makes selection deterministic even with duplicate priorities.
	slices.SortFunc(out, func(a, b Rule) int {
		if a.Priority != b.Priority {
			return b.Priority - a.Priority
		}
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
	return out
}

func (m *MemoryStore) UpdateRule(ctx context.Context, featureID, ruleID string, patch RulePatch) (Rule, error) {
	if err := patch.Validate(); err != nil {
		return Rule{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rules[ruleID]
	if !ok || r.FeatureID != featureID {
		return Rule{}, ErrRuleNotFound
	}
	if patch.Priority != nil {
		r.Priority = *patch.Priority
	}
	if patch.Type != nil {
		r.Type = *patch.Type
	}
	if patch.Enabled != nil {
		r.Enabled = *patch.Enabled
	}
	if patch.RolloutPercent != nil {
		r.RolloutPercent = patch.RolloutPercent
	}
	if patch.Variants != nil {
		r.Variants = slices.Clone(patch.Variants)
	}
	if patch.Conditions != nil {
		r.Conditions = patch.Conditions
	}
	if patch.Schedule != nil {
		r.Schedule = patch.Schedule
	}
	r.UpdatedAt = m.now()
	return *r, nil
}

func (m *MemoryStore) DeleteRule(ctx context.Context, featureID, ruleID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rules[ruleID]
	if !ok || r.FeatureID != featureID {
		return ErrRuleNotFound
	}
	delete(m.rules, ruleID)
	return nil
}

func (m *MemoryStore) CreateEvaluation(ctx context.Context, rec Evaluation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = m.now()
	}
	m.evaluations = append(m.evaluations, rec)
	return nil
}

// Evaluations returns a copy of the recorded evaluation history. Test helper.
func (m *MemoryStore) Evaluations() []Evaluation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.evaluations)
}
