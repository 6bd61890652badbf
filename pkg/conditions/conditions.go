package conditions

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Subject is the evaluation-time entity a feature is evaluated for. It is
// never persisted as its own record; only its key (and a serialized snapshot
// on evaluation history) outlives the request.
type Subject struct {
	Key        string         `json:"key"`
	UserID     string         `json:"userId,omitempty"`
	TenantID   string         `json:"tenantId,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Validate checks the subject shape at the API boundary: a bucketing key is
// required and attribute values must be JSON scalars.
func (s Subject) Validate() error {
	if s.Key == "" {
		return errors.Join(ErrInvalidSubject, errors.New("subject key is required"))
	}
	for name, value := range s.Attributes {
		if !isScalar(value) {
			return errors.Join(ErrInvalidSubject,
				fmt.Errorf("attribute %q must be a string, number, or boolean", name))
		}
	}
	return nil
}

// attribute returns the subject field addressed by a condition, or nil when
// the subject does not carry it. A missing field never matches a condition.
func (s Subject) attribute(name string) any {
	switch name {
	case "userId":
		if s.UserID == "" {
			return nil
		}
		return s.UserID
	case "tenantId":
		if s.TenantID == "" {
			return nil
		}
		return s.TenantID
	default:
		return s.Attributes[name]
	}
}

// Value is a condition operand: a single JSON scalar for an exact match, or
// a list of scalars for a match-any. It decodes from either form, so rule
// payloads can say "plan": "pro" and "country": ["de", "fr"] alike.
type Value struct {
	members []any
	list    bool
}

// Exact creates a single-scalar value.
func Exact(v any) Value {
	return Value{members: []any{normalize(v)}}
}

// AnyOf creates a match-any list value. An empty list never matches.
func AnyOf(vs ...any) Value {
	members := make([]any, len(vs))
	for i, v := range vs {
		members[i] = normalize(v)
	}
	return Value{members: members, list: true}
}

// Match reports whether the subject-side value satisfies this operand.
func (v Value) Match(actual any) bool {
	actual = normalize(actual)
	if v.list {
		for _, m := range v.members {
			if m == actual {
				return true
			}
		}
		return false
	}
	return len(v.members) == 1 && v.members[0] == actual
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.list {
		return json.Marshal(v.members)
	}
	if len(v.members) != 1 {
		return nil, ErrInvalidCondition
	}
	return json.Marshal(v.members[0])
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Join(ErrInvalidCondition, err)
	}
	switch typed := raw.(type) {
	case []any:
		for _, m := range typed {
			if !isScalar(m) {
				return errors.Join(ErrInvalidCondition,
					errors.New("list members must be strings, numbers, or booleans"))
			}
		}
		*v = Value{members: typed, list: true}
		return nil
	default:
		if !isScalar(raw) {
			return errors.Join(ErrInvalidCondition,
				errors.New("value must be a scalar or a list of scalars"))
		}
		*v = Value{members: []any{raw}}
		return nil
	}
}

// Conditions is the declarative gate attached to a rule: recognized subject
// fields plus an open attribute bag. All present fields must match.
type Conditions struct {
	UserID   *Value           `json:"userId,omitempty"`
	TenantID *Value           `json:"tenantId,omitempty"`
	Country  *Value           `json:"country,omitempty"`
	Plan     *Value           `json:"plan,omitempty"`
	Attrs    map[string]Value `json:"attrs,omitempty"`
}

// Matches tests a subject against a condition set. Nil conditions always
// match; a required field missing from the subject is a non-match, never an
// error.
func Matches(subject Subject, conds *Conditions) bool {
	if conds == nil {
		return true
	}
	if conds.UserID != nil && !conds.UserID.Match(subject.attribute("userId")) {
		return false
	}
	if conds.TenantID != nil && !conds.TenantID.Match(subject.attribute("tenantId")) {
		return false
	}
	if conds.Country != nil && !conds.Country.Match(subject.Attributes["country"]) {
		return false
	}
	if conds.Plan != nil && !conds.Plan.Match(subject.Attributes["plan"]) {
		return false
	}
	for name, value := range conds.Attrs {
		if !value.Match(subject.Attributes[name]) {
			return false
		}
	}
	return true
}

func isScalar(v any) bool {
	switch v.(type) {
	case string, bool, float64, int, int64:
		return true
	default:
		return false
	}
}

// normalize widens integer scalars to float64 so values compare equal
// regardless of whether they arrived via JSON decoding or Go literals.
func normalize(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return v
	}
}
