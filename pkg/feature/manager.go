package feature

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/dmitrymomot/flagkit/pkg/etag"
)

// Mirror is the side channel the manager publishes fresh rules versions to,
// so external consumers can watch version changes without hitting the store.
// Typically backed by the same Redis the evaluation cache lives in.
type Mirror interface {
	SetValue(ctx context.Context, key, value string) error
}

// Auditor records admin actions. Failures are the auditor's problem; the
// manager never lets audit trouble fail a mutation.
type Auditor interface {
	Record(ctx context.Context, action, entityType, entityID string, metadata map[string]any)
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithMirror publishes rules versions to the given side cache.
func WithMirror(m Mirror) ManagerOption {
	return func(mgr *Manager) { mgr.mirror = m }
}

// WithAuditor records every mutation with the given auditor.
func WithAuditor(a Auditor) ManagerOption {
	return func(mgr *Manager) { mgr.audit = a }
}

// WithLogger sets the manager's logger.
func WithLogger(log *slog.Logger) ManagerOption {
	return func(mgr *Manager) { mgr.log = log }
}

// Manager coordinates admin mutations against the rule store. Every write
// that changes a feature's rule set bumps the feature's rules version as
// part of the same logical operation, which implicitly invalidates all
// cached decisions computed under the previous version. Updates are guarded
// by entity fingerprints so concurrent operator edits cannot silently
// overwrite each other.
type Manager struct {
	store  Store
	mirror Mirror
	audit  Auditor
	log    *slog.Logger
}

// NewManager creates a mutation coordinator over the given store.
func NewManager(store Store, opts ...ManagerOption) *Manager {
	m := &Manager{
		store: store,
		log:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CreateFeature registers a new feature. New features start at rules
// version 1 with no rules.
func (m *Manager) CreateFeature(ctx context.Context, in CreateFeatureInput) (Feature, error) {
	f, err := m.store.CreateFeature(ctx, in)
	if err != nil {
		return Feature{}, err
	}
	m.record(ctx, "feature.create", "feature", f.ID, map[string]any{
		"key": f.Key, "environment": f.Environment,
	})
	return f, nil
}

// GetFeature returns a feature by id.
func (m *Manager) GetFeature(ctx context.Context, id string) (Feature, error) {
	return m.store.GetFeature(ctx, id)
}

// ListFeatures returns all features, newest first.
func (m *Manager) ListFeatures(ctx context.Context) ([]Feature, error) {
	return m.store.ListFeatures(ctx)
}

// UpdateFeature applies a guarded partial update. The presented fingerprint
// must match the feature's current state or the update is rejected with
// ErrPreconditionFailed before anything is written.
func (m *Manager) UpdateFeature(ctx context.Context, id string, patch FeaturePatch, presented ...string) (Feature, error) {
	current, err := m.store.GetFeature(ctx, id)
	if err != nil {
		return Feature{}, err
	}
	if !etag.Matches(current.Fingerprint(), presented...) {
		return Feature{}, ErrPreconditionFailed
	}

	updated, err := m.store.UpdateFeature(ctx, id, patch)
	if err != nil {
		return Feature{}, err
	}
	if updated, err = m.bump(ctx, updated); err != nil {
		return Feature{}, err
	}

	m.record(ctx, "feature.update", "feature", updated.ID, map[string]any{"key": updated.Key})
	return updated, nil
}

// ArchiveFeature archives the feature. Archived features evaluate to
// disabled regardless of their rules. Not guarded: archiving is idempotent.
func (m *Manager) ArchiveFeature(ctx context.Context, id string) (Feature, error) {
	archived := true
	updated, err := m.store.UpdateFeature(ctx, id, FeaturePatch{Archived: &archived})
	if err != nil {
		return Feature{}, err
	}
	if updated, err = m.bump(ctx, updated); err != nil {
		return Feature{}, err
	}

	m.record(ctx, "feature.archive", "feature", updated.ID, map[string]any{"key": updated.Key})
	return updated, nil
}

// CreateRule attaches a new rule to the feature.
func (m *Manager) CreateRule(ctx context.Context, featureID string, in RuleInput) (Rule, error) {
	f, err := m.store.GetFeature(ctx, featureID)
	if err != nil {
		return Rule{}, err
	}

	r, err := m.store.CreateRule(ctx, featureID, in)
	if err != nil {
		return Rule{}, err
	}
	if _, err := m.bump(ctx, f); err != nil {
		return Rule{}, err
	}

	m.record(ctx, "rule.create", "rule", r.ID, map[string]any{"featureId": featureID})
	return r, nil
}

// GetRule returns a rule scoped to the feature.
func (m *Manager) GetRule(ctx context.Context, featureID, ruleID string) (Rule, error) {
	return m.store.GetRule(ctx, featureID, ruleID)
}

// ListRules returns the feature's rules in evaluation order.
func (m *Manager) ListRules(ctx context.Context, featureID string) ([]Rule, error) {
	if _, err := m.store.GetFeature(ctx, featureID); err != nil {
		return nil, err
	}
	return m.store.ListRules(ctx, featureID)
}

// UpdateRule applies a guarded partial update to a rule.
func (m *Manager) UpdateRule(ctx context.Context, featureID, ruleID string, patch RulePatch, presented ...string) (Rule, error) {
	current, err := m.store.GetRule(ctx, featureID, ruleID)
	if err != nil {
		return Rule{}, err
	}
	if !etag.Matches(current.Fingerprint(), presented...) {
		return Rule{}, ErrPreconditionFailed
	}

	updated, err := m.store.UpdateRule(ctx, featureID, ruleID, patch)
	if err != nil {
		return Rule{}, err
	}
	if err := m.bumpByID(ctx, featureID); err != nil {
		return Rule{}, err
	}

	m.record(ctx, "rule.update", "rule", updated.ID, map[string]any{"featureId": featureID})
	return updated, nil
}

// DisableRule turns a rule off without deleting it.
func (m *Manager) DisableRule(ctx context.Context, featureID, ruleID string) (Rule, error) {
	disabled := false
	updated, err := m.store.UpdateRule(ctx, featureID, ruleID, RulePatch{Enabled: &disabled})
	if err != nil {
		return Rule{}, err
	}
	if err := m.bumpByID(ctx, featureID); err != nil {
		return Rule{}, err
	}

	m.record(ctx, "rule.disable", "rule", updated.ID, map[string]any{"featureId": featureID})
	return updated, nil
}

// DeleteRule removes a rule permanently.
func (m *Manager) DeleteRule(ctx context.Context, featureID, ruleID string) error {
	if err := m.store.DeleteRule(ctx, featureID, ruleID); err != nil {
		return err
	}
	if err := m.bumpByID(ctx, featureID); err != nil {
		return err
	}

	m.record(ctx, "rule.delete", "rule", ruleID, map[string]any{"featureId": featureID})
	return nil
}

// bump increments the feature's rules version and mirrors the new value to
// the side cache. The increment is mandatory; the mirror is best-effort.
func (m *Manager) bump(ctx context.Context, f Feature) (Feature, error) {
	version, err := m.store.BumpRulesVersion(ctx, f.ID)
	if err != nil {
		return Feature{}, err
	}

	// Re-read so callers get the post-bump state; the bump touches both the
	// version and the last-modified timestamp the fingerprint derives from.
	f, err = m.store.GetFeature(ctx, f.ID)
	if err != nil {
		return Feature{}, err
	}

	if m.mirror != nil {
		key := fmt.Sprintf("rulesVersion:%s:%s", f.Key, f.Environment)
		if err := m.mirror.SetValue(ctx, key, strconv.FormatInt(version, 10)); err != nil {
			m.log.WarnContext(ctx, "rules version mirror failed",
				slog.String("feature_key", f.Key), slog.Any("error", err))
		}
	}
	return f, nil
}

func (m *Manager) bumpByID(ctx context.Context, featureID string) error {
	f, err := m.store.GetFeature(ctx, featureID)
	if err != nil {
		return err
	}
	_, err = m.bump(ctx, f)
	return err
}

func (m *Manager) record(ctx context.Context, action, entityType, entityID string, metadata map[string]any) {
	if m.audit != nil {
		m.audit.Record(ctx, action, entityType, entityID, metadata)
	}
}
