package feature

import (
	"errors"
	"fmt"

	"github.com/dmitrymomot/flagkit/pkg/conditions"
)

// CreateFeatureInput carries the caller-supplied part of a new feature.
type CreateFeatureInput struct {
	Key         string      `json:"key"`
	Environment Environment `json:"environment"`
	Description string      `json:"description,omitempty"`
	Archived    bool        `json:"isArchived,omitempty"`
}

// Validate checks the input at the store boundary.
func (in CreateFeatureInput) Validate() error {
	if in.Key == "" {
		return errors.Join(ErrInvalidFeature, errors.New("key is required"))
	}
	if !in.Environment.Valid() {
		return errors.Join(ErrInvalidFeature,
			fmt.Errorf("environment %q must be one of %q, %q, %q", in.Environment, EnvDev, EnvStaging, EnvProd))
	}
	return nil
}

// FeaturePatch is a partial feature update; nil fields stay unchanged.
type FeaturePatch struct {
	Description *string `json:"description,omitempty"`
	Archived    *bool   `json:"isArchived,omitempty"`
}

// RuleInput carries the caller-supplied part of a new rule. Enabled defaults
// to true when absent.
type RuleInput struct {
	Priority       int                    `json:"priority"`
	Type           RuleType               `json:"ruleType"`
	Enabled        *bool                  `json:"enabled,omitempty"`
	RolloutPercent *int                   `json:"rolloutPercent,omitempty"`
	Variants       []Variant              `json:"variants,omitempty"`
	Conditions     *conditions.Conditions `json:"conditions,omitempty"`
	Schedule       *Schedule              `json:"schedule,omitempty"`
}

// Validate checks the dynamic parts of a rule payload once, at the boundary,
// so the evaluator never has to re-interpret them.
func (in RuleInput) Validate() error {
	if !in.Type.Valid() {
		return errors.Join(ErrInvalidRule, fmt.Errorf("unknown rule type %q", in.Type))
	}
	if err := validateRolloutPercent(in.RolloutPercent); err != nil {
		return err
	}
	if err := validateVariants(in.Variants); err != nil {
		return err
	}
	return validateSchedule(in.Schedule)
}

// RulePatch is a partial rule update; nil fields stay unchanged.
type RulePatch struct {
	Priority       *int                   `json:"priority,omitempty"`
	Type           *RuleType              `json:"ruleType,omitempty"`
	Enabled        *bool                  `json:"enabled,omitempty"`
	RolloutPercent *int                   `json:"rolloutPercent,omitempty"`
	Variants       []Variant              `json:"variants,omitempty"`
	Conditions     *conditions.Conditions `json:"conditions,omitempty"`
	Schedule       *Schedule              `json:"schedule,omitempty"`
}

// Validate checks the fields present in the patch.
func (p RulePatch) Validate() error {
	if p.Type != nil && !p.Type.Valid() {
		return errors.Join(ErrInvalidRule, fmt.Errorf("unknown rule type %q", *p.Type))
	}
	if err := validateRolloutPercent(p.RolloutPercent); err != nil {
		return err
	}
	if err := validateVariants(p.Variants); err != nil {
		return err
	}
	return validateSchedule(p.Schedule)
}

func validateRolloutPercent(p *int) error {
	if p != nil && (*p < 0 || *p > 100) {
		return errors.Join(ErrInvalidRule, fmt.Errorf("rolloutPercent %d must be within [0, 100]", *p))
	}
	return nil
}

func validateVariants(variants []Variant) error {
	for i, v := range variants {
		if v.Key == "" {
			return errors.Join(ErrInvalidRule, fmt.Errorf("variant %d is missing a key", i))
		}
		if v.Weight < 0 {
			return errors.Join(ErrInvalidRule, fmt.Errorf("variant %q has a negative weight", v.Key))
		}
	}
	return nil
}

func validateSchedule(s *Schedule) error {
	if s != nil && s.StartAt != nil && s.EndAt != nil && s.EndAt.Before(*s.StartAt) {
		return errors.Join(ErrInvalidRule, errors.New("schedule endAt precedes startAt"))
	}
	return nil
}
