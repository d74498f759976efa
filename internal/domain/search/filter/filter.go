// Package filter provides metadata pre-filtering for index searches.
// The predicate set is closed: exact match on a scalar metadata key,
// set-membership on a scalar key, and tag presence. Conditions are ANDed.
package filter

import (
	"fmt"

	"github.com/swali-ai/retrieval/internal/domain/document"
)

// MaxConditions is the maximum number of conditions per expression.
const MaxConditions = 32

// KnownKeys is the closed set of scalar metadata keys that may be filtered on.
var KnownKeys = map[string]struct{}{
	"difficulty": {},
	"type":       {},
	"source":     {},
	"pattern":    {},
}

// Expression is a conjunction of filter conditions.
type Expression struct {
	conditions []Condition
}

// NewExpression validates and creates a filter Expression.
func NewExpression(conditions ...Condition) (Expression, error) {
	if len(conditions) > MaxConditions {
		return Expression{}, fmt.Errorf("too many filter conditions (max %d)", MaxConditions)
	}
	return Expression{conditions: conditions}, nil
}

// Conditions returns the conjunct conditions.
func (e Expression) Conditions() []Condition { return e.conditions }

// IsEmpty reports whether the expression has no conditions.
func (e Expression) IsEmpty() bool { return len(e.conditions) == 0 }

// Validate rejects conditions on metadata keys outside the supported set.
func (e Expression) Validate() error {
	for _, c := range e.conditions {
		if c.kind == kindHasTag {
			continue
		}
		if _, ok := KnownKeys[c.key]; !ok {
			return fmt.Errorf("unknown filter key %q", c.key)
		}
	}
	return nil
}

// Matches reports whether the document satisfies every condition.
func (e Expression) Matches(doc *document.Document) bool {
	for _, c := range e.conditions {
		if !c.matches(doc) {
			return false
		}
	}
	return true
}

type conditionKind int

const (
	kindMatch conditionKind = iota
	kindIn
	kindHasTag
)

// Condition is a single filter clause.
type Condition struct {
	kind  conditionKind
	key   string
	match string
	anyOf []string
	tag   string
}

// NewMatch creates an exact metadata match condition.
func NewMatch(key, value string) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	if value == "" {
		return Condition{}, fmt.Errorf("match value is required for key %q", key)
	}
	return Condition{kind: kindMatch, key: key, match: value}, nil
}

// NewIn creates a set-membership condition: meta[key] must equal one of values.
func NewIn(key string, values []string) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	if len(values) == 0 {
		return Condition{}, fmt.Errorf("at least one value is required for key %q", key)
	}
	return Condition{kind: kindIn, key: key, anyOf: values}, nil
}

// NewHasTag creates a tag-presence condition.
func NewHasTag(tag string) (Condition, error) {
	if tag == "" {
		return Condition{}, fmt.Errorf("tag is required")
	}
	return Condition{kind: kindHasTag, tag: tag}, nil
}

// Key returns the metadata key (empty for tag conditions).
func (c Condition) Key() string { return c.key }

// Match returns the exact match value.
func (c Condition) Match() string { return c.match }

// AnyOf returns the membership set.
func (c Condition) AnyOf() []string { return c.anyOf }

// Tag returns the required tag.
func (c Condition) Tag() string { return c.tag }

// IsMatch reports whether this is an exact match condition.
func (c Condition) IsMatch() bool { return c.kind == kindMatch }

// IsIn reports whether this is a set-membership condition.
func (c Condition) IsIn() bool { return c.kind == kindIn }

// IsHasTag reports whether this is a tag-presence condition.
func (c Condition) IsHasTag() bool { return c.kind == kindHasTag }

func (c Condition) matches(doc *document.Document) bool {
	switch c.kind {
	case kindMatch:
		return doc.Meta()[c.key] == c.match
	case kindIn:
		v, ok := doc.Meta()[c.key]
		if !ok {
			return false
		}
		for _, want := range c.anyOf {
			if v == want {
				return true
			}
		}
		return false
	case kindHasTag:
		return doc.HasTag(c.tag)
	}
	return false
}
