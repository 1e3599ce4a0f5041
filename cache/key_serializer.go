package cache

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/goliatone/go-persistence/internal/strcase"
	"github.com/goliatone/go-persistence/query"
)

// KeySeparator delimits cache key segments.
const KeySeparator = "::"

// KeySerializer builds deterministic cache keys from an entity type, an
// operation name and either an entity id or query params. Implementations
// must produce stable keys across runs for equal inputs.
type KeySerializer interface {
	// EntityKey addresses a single-entity read: ns::op::id:<id>.
	EntityKey(entityType, operation, id string) string
	// QueryKey addresses a query-shaped read using the full canonical
	// serialization of the params: ns::op::q:<canonical>.
	QueryKey(entityType, operation string, params query.Params) string
	// DigestKey addresses aggregate and windowed read shapes with an
	// xxhash digest of the canonical serialization: ns::op::q:<digest>.
	DigestKey(entityType, operation string, params query.Params) string
	// IDPattern matches every cached entry for one entity id across
	// operations.
	IDPattern(entityType, id string) string
	// QueryPattern matches every query-shaped entry for the entity type.
	QueryPattern(entityType string) string
}

// defaultKeySerializer canonicalizes query params with sorted filters and
// deterministic map ordering, falling back to JSON for complex values.
type defaultKeySerializer struct{}

// NewDefaultKeySerializer creates the default serializer.
func NewDefaultKeySerializer() KeySerializer {
	return &defaultKeySerializer{}
}

func namespace(entityType string) string {
	return strcase.Snake(entityType)
}

func (s *defaultKeySerializer) EntityKey(entityType, operation, id string) string {
	return strings.Join([]string{namespace(entityType), operation, "id:" + id}, KeySeparator)
}

func (s *defaultKeySerializer) QueryKey(entityType, operation string, params query.Params) string {
	return strings.Join([]string{namespace(entityType), operation, "q:" + s.canonicalize(params)}, KeySeparator)
}

func (s *defaultKeySerializer) DigestKey(entityType, operation string, params query.Params) string {
	digest := xxhash.Sum64String(s.canonicalize(params))
	return strings.Join([]string{namespace(entityType), operation, fmt.Sprintf("q:%016x", digest)}, KeySeparator)
}

func (s *defaultKeySerializer) IDPattern(entityType, id string) string {
	return strings.Join([]string{namespace(entityType), "*", "id:" + id}, KeySeparator)
}

func (s *defaultKeySerializer) QueryPattern(entityType string) string {
	return strings.Join([]string{namespace(entityType), "*", "q:*"}, KeySeparator)
}

// canonicalize renders params as a stable string: filters sorted by
// field/operator/value, groups and sorts in declared order, pagination and
// aggregation appended last.
func (s *defaultKeySerializer) canonicalize(params query.Params) string {
	var parts []string

	filters := append([]query.Filter(nil), params.Filters...)
	sort.Slice(filters, func(i, j int) bool {
		if filters[i].Field != filters[j].Field {
			return filters[i].Field < filters[j].Field
		}
		if filters[i].Operator != filters[j].Operator {
			return filters[i].Operator < filters[j].Operator
		}
		return s.serializeValue(filters[i].Value) < s.serializeValue(filters[j].Value)
	})
	for _, f := range filters {
		parts = append(parts, fmt.Sprintf("f(%s %s %s)", f.Field, f.Operator, s.serializeValue(f.Value)))
	}

	for _, g := range params.Groups {
		inner := make([]string, len(g.Filters))
		for i, f := range g.Filters {
			inner[i] = fmt.Sprintf("%s %s %s", f.Field, f.Operator, s.serializeValue(f.Value))
		}
		sort.Strings(inner)
		parts = append(parts, fmt.Sprintf("g[%s](%s)", g.Operator, strings.Join(inner, ",")))
	}

	for _, so := range params.Sorts {
		parts = append(parts, fmt.Sprintf("s(%s %s)", so.Field, so.Direction))
	}

	if params.Page != nil {
		parts = append(parts, fmt.Sprintf("p(%d,%d)", params.Page.Page, params.Page.Size))
	}

	if len(params.Fields) > 0 {
		parts = append(parts, "sel("+strings.Join(params.Fields, ",")+")")
	}
	if len(params.GroupBy) > 0 {
		parts = append(parts, "gb("+strings.Join(params.GroupBy, ",")+")")
	}
	for _, st := range params.Statistics {
		parts = append(parts, fmt.Sprintf("agg(%s %s %s %v)", st.Func, st.Field, st.Label(), st.Distinct))
	}
	for _, h := range params.Having {
		parts = append(parts, fmt.Sprintf("h(%s %s %s)", h.Field, h.Operator, s.serializeValue(h.Value)))
	}

	return strings.Join(parts, ";")
}

// serializeValue handles individual filter value serialization based on
// type. It produces stable output across runs by handling slices, maps and
// structs deterministically.
func (s *defaultKeySerializer) serializeValue(v any) string {
	if v == nil {
		return "nil"
	}

	rv := reflect.ValueOf(v)
	rt := reflect.TypeOf(v)

	if rt.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return "nil"
		}
		return s.serializeValue(rv.Elem().Interface())
	}

	if rt.Kind() == reflect.Slice || rt.Kind() == reflect.Array {
		if rt.Kind() == reflect.Slice && rv.IsNil() {
			return "slice:nil"
		}
		parts := make([]string, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			parts[i] = s.serializeValue(rv.Index(i).Interface())
		}
		return fmt.Sprintf("[%s]", strings.Join(parts, ","))
	}

	// Maps get sorted key-value pairs for determinism.
	if rt.Kind() == reflect.Map {
		if rv.IsNil() {
			return "map:nil"
		}
		keys := rv.MapKeys()
		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, fmt.Sprintf("%s=%s",
				s.serializeValue(k.Interface()),
				s.serializeValue(rv.MapIndex(k).Interface())))
		}
		sort.Strings(pairs)
		return fmt.Sprintf("{%s}", strings.Join(pairs, ","))
	}

	if rt.Kind() == reflect.Struct {
		// query.Range and time values are the common cases; JSON keeps
		// them stable without per-type code.
		return s.jsonFallback(v)
	}

	if s.isBasicType(rt.Kind()) {
		return fmt.Sprintf("%v", v)
	}

	return s.jsonFallback(v)
}

// isBasicType checks if a kind represents a basic Go type.
func (s *defaultKeySerializer) isBasicType(kind reflect.Kind) bool {
	switch kind {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128,
		reflect.String:
		return true
	default:
		return false
	}
}

// jsonFallback provides JSON serialization as a last resort. encoding/json
// sorts map keys, keeping the output deterministic.
func (s *defaultKeySerializer) jsonFallback(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("fallback:%T", v)
	}
	return "json:" + string(data)
}
