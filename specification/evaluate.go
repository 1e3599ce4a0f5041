package specification

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/goliatone/go-persistence/entity"
	"github.com/goliatone/go-persistence/query"
)

// IsSatisfiedBy evaluates the specification against a candidate entity in
// memory: every leaf filter must match and every group must match under its
// logical operator. This is the reference evaluator used for tests and
// in-process filtering; production queries go through QueryParams and a
// storage adapter.
func (s Specification) IsSatisfiedBy(candidate any) bool {
	if candidate == nil {
		return false
	}
	acc := entity.Access(candidate)

	for _, f := range s.params.Filters {
		if !matchFilter(acc, f) {
			return false
		}
	}

	for _, g := range s.params.Groups {
		if !matchGroup(acc, g) {
			return false
		}
	}

	return true
}

func matchGroup(acc entity.FieldAccessor, g query.FilterGroup) bool {
	if g.Operator == query.LogicalOr {
		for _, f := range g.Filters {
			if matchFilter(acc, f) {
				return true
			}
		}
		return false
	}
	for _, f := range g.Filters {
		if !matchFilter(acc, f) {
			return false
		}
	}
	return true
}

func matchFilter(acc entity.FieldAccessor, f query.Filter) bool {
	value, ok := acc.GetField(f.Field)

	switch f.Operator {
	case query.OpIsNull:
		return !ok || isNil(value)
	case query.OpIsNotNull:
		return ok && !isNil(value)
	}

	if !ok {
		return false
	}
	value = deref(value)

	switch f.Operator {
	case query.OpEqual:
		return equalValues(value, f.Value)
	case query.OpNotEqual:
		return !equalValues(value, f.Value)
	case query.OpGreaterThan:
		cmp, ordered := query.Compare(value, f.Value)
		return ordered && cmp > 0
	case query.OpGreaterOrEqual:
		cmp, ordered := query.Compare(value, f.Value)
		return ordered && cmp >= 0
	case query.OpLessThan:
		cmp, ordered := query.Compare(value, f.Value)
		return ordered && cmp < 0
	case query.OpLessOrEqual:
		cmp, ordered := query.Compare(value, f.Value)
		return ordered && cmp <= 0

	case query.OpLike:
		return matchPattern(value, f.Value, false)
	case query.OpNotLike:
		return !matchPattern(value, f.Value, false)
	case query.OpILike:
		return matchPattern(value, f.Value, true)
	case query.OpStartsWith:
		s, p, ok := stringPair(value, f.Value)
		return ok && strings.HasPrefix(s, p)
	case query.OpEndsWith:
		s, p, ok := stringPair(value, f.Value)
		return ok && strings.HasSuffix(s, p)
	case query.OpContains:
		s, p, ok := stringPair(value, f.Value)
		return ok && strings.Contains(s, p)
	case query.OpRegex:
		s, p, ok := stringPair(value, f.Value)
		if !ok {
			return false
		}
		re, err := regexp.Compile(p)
		return err == nil && re.MatchString(s)

	case query.OpIn:
		return containsValue(elements(f.Value), value)
	case query.OpNotIn:
		return !containsValue(elements(f.Value), value)

	case query.OpBetween:
		r, ok := f.Value.(query.Range)
		if !ok {
			if rp, okp := f.Value.(*query.Range); okp && rp != nil {
				r = *rp
			} else {
				return false
			}
		}
		low, lowOrdered := query.Compare(value, r.Start)
		high, highOrdered := query.Compare(value, r.End)
		return lowOrdered && highOrdered && low >= 0 && high <= 0

	case query.OpArrayContains:
		field := elements(value)
		for _, want := range elements(f.Value) {
			if !containsValue(field, want) {
				return false
			}
		}
		return true
	case query.OpArrayContainedBy:
		allowed := elements(f.Value)
		for _, have := range elements(value) {
			if !containsValue(allowed, have) {
				return false
			}
		}
		return true
	case query.OpArrayOverlaps:
		field := elements(value)
		for _, want := range elements(f.Value) {
			if containsValue(field, want) {
				return true
			}
		}
		return false
	case query.OpArrayEmpty:
		return len(elements(value)) == 0
	case query.OpArrayNotEmpty:
		return len(elements(value)) > 0

	case query.OpJSONHasKey:
		key, _ := f.Value.(string)
		m, ok := asStringMap(value)
		if !ok {
			return false
		}
		_, has := m[key]
		return has
	case query.OpJSONContains:
		doc, ok := f.Value.(map[string]any)
		if !ok {
			return false
		}
		m, ok := asStringMap(value)
		if !ok {
			return false
		}
		for k, want := range doc {
			have, exists := m[k]
			if !exists || !equalValues(have, want) {
				return false
			}
		}
		return true
	}

	return false
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		return rv.IsNil()
	}
	return false
}

func deref(v any) any {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil
	}
	return rv.Interface()
}

func equalValues(a, b any) bool {
	if reflect.DeepEqual(a, b) {
		return true
	}
	cmp, ordered := query.Compare(a, b)
	return ordered && cmp == 0
}

func stringPair(value, pattern any) (string, string, bool) {
	s, ok := value.(string)
	if !ok {
		return "", "", false
	}
	p, ok := pattern.(string)
	if !ok {
		return "", "", false
	}
	return s, p, true
}

// matchPattern evaluates a SQL LIKE pattern (% and _ wildcards) against a
// string value.
func matchPattern(value, pattern any, caseInsensitive bool) bool {
	s, p, ok := stringPair(value, pattern)
	if !ok {
		return false
	}
	re, err := regexp.Compile(likeToRegexp(p, caseInsensitive))
	if err != nil {
		return false
	}
	return re.MatchString(s)
}

func likeToRegexp(pattern string, caseInsensitive bool) string {
	var b strings.Builder
	if caseInsensitive {
		b.WriteString("(?is)")
	} else {
		b.WriteString("(?s)")
	}
	b.WriteString("^")
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return b.String()
}

func elements(v any) []any {
	v = deref(v)
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = rv.Index(i).Interface()
		}
		return out
	}
	return nil
}

func containsValue(list []any, v any) bool {
	for _, candidate := range list {
		if equalValues(deref(candidate), v) {
			return true
		}
	}
	return false
}

func asStringMap(v any) (map[string]any, bool) {
	if m, ok := v.(map[string]any); ok {
		return m, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}
