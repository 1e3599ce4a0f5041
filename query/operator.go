package query

import "strings"

// Operator identifies one comparison applied to a single field.
type Operator string

const (
	OpEqual          Operator = "eq"
	OpNotEqual       Operator = "neq"
	OpGreaterThan    Operator = "gt"
	OpGreaterOrEqual Operator = "gte"
	OpLessThan       Operator = "lt"
	OpLessOrEqual    Operator = "lte"

	OpLike       Operator = "like"
	OpNotLike    Operator = "not_like"
	OpILike      Operator = "ilike"
	OpStartsWith Operator = "starts_with"
	OpEndsWith   Operator = "ends_with"
	OpContains   Operator = "contains"
	OpRegex      Operator = "regex"

	OpIn    Operator = "in"
	OpNotIn Operator = "not_in"

	OpBetween Operator = "between"

	OpIsNull    Operator = "is_null"
	OpIsNotNull Operator = "is_not_null"

	OpArrayContains    Operator = "array_contains"
	OpArrayContainedBy Operator = "array_contained_by"
	OpArrayOverlaps    Operator = "array_overlaps"
	OpArrayEmpty       Operator = "array_empty"
	OpArrayNotEmpty    Operator = "array_not_empty"

	OpJSONHasKey   Operator = "json_has_key"
	OpJSONContains Operator = "json_contains"
)

// LogicalOperator combines filters inside a FilterGroup.
type LogicalOperator string

const (
	LogicalAnd LogicalOperator = "AND"
	LogicalOr  LogicalOperator = "OR"
)

// operatorAliases maps the accepted string spellings to their canonical
// operator. Lookups are case-insensitive and whitespace around the token is
// ignored. The table is closed: anything absent is an error, never a
// fallback.
var operatorAliases = map[string]Operator{
	"=":            OpEqual,
	"==":           OpEqual,
	"eq":           OpEqual,
	"equals":       OpEqual,
	"!=":           OpNotEqual,
	"<>":           OpNotEqual,
	"neq":          OpNotEqual,
	"not_equals":   OpNotEqual,
	">":            OpGreaterThan,
	"gt":           OpGreaterThan,
	">=":           OpGreaterOrEqual,
	"gte":          OpGreaterOrEqual,
	"<":            OpLessThan,
	"lt":           OpLessThan,
	"<=":           OpLessOrEqual,
	"lte":          OpLessOrEqual,
	"like":         OpLike,
	"not like":     OpNotLike,
	"not_like":     OpNotLike,
	"ilike":        OpILike,
	"starts_with":  OpStartsWith,
	"starts with":  OpStartsWith,
	"prefix":       OpStartsWith,
	"ends_with":    OpEndsWith,
	"ends with":    OpEndsWith,
	"suffix":       OpEndsWith,
	"contains":     OpContains,
	"regex":        OpRegex,
	"~":            OpRegex,
	"in":           OpIn,
	"not in":       OpNotIn,
	"not_in":       OpNotIn,
	"nin":          OpNotIn,
	"between":      OpBetween,
	"is null":      OpIsNull,
	"is_null":      OpIsNull,
	"null":         OpIsNull,
	"is not null":  OpIsNotNull,
	"is_not_null":  OpIsNotNull,
	"not_null":     OpIsNotNull,
	"array_contains":     OpArrayContains,
	"@>":                 OpArrayContains,
	"array_contained_by": OpArrayContainedBy,
	"<@":                 OpArrayContainedBy,
	"array_overlaps":     OpArrayOverlaps,
	"&&":                 OpArrayOverlaps,
	"array_empty":        OpArrayEmpty,
	"array_not_empty":    OpArrayNotEmpty,
	"json_has_key":       OpJSONHasKey,
	"json_contains":      OpJSONContains,
}

// ParseOperator resolves a string operator (as accepted by
// Builder.Where) to its canonical Operator. Unknown spellings return a
// validation error.
func ParseOperator(s string) (Operator, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	if op, ok := operatorAliases[normalized]; ok {
		return op, nil
	}
	return "", errValidation("unknown operator %q", s)
}

// Valid reports whether op is one of the canonical operators.
func (op Operator) Valid() bool {
	switch op {
	case OpEqual, OpNotEqual, OpGreaterThan, OpGreaterOrEqual, OpLessThan,
		OpLessOrEqual, OpLike, OpNotLike, OpILike, OpStartsWith, OpEndsWith,
		OpContains, OpRegex, OpIn, OpNotIn, OpBetween, OpIsNull, OpIsNotNull,
		OpArrayContains, OpArrayContainedBy, OpArrayOverlaps, OpArrayEmpty,
		OpArrayNotEmpty, OpJSONHasKey, OpJSONContains:
		return true
	}
	return false
}

// IsText reports whether op compares against string values (LIKE family,
// prefix/suffix/contains and regex).
func (op Operator) IsText() bool {
	switch op {
	case OpLike, OpNotLike, OpILike, OpStartsWith, OpEndsWith, OpContains, OpRegex:
		return true
	}
	return false
}

// RequiresIterable reports whether op expects a slice/array value.
func (op Operator) RequiresIterable() bool {
	switch op {
	case OpIn, OpNotIn, OpArrayContains, OpArrayContainedBy, OpArrayOverlaps:
		return true
	}
	return false
}

// ForbidsValue reports whether op takes no value at all.
func (op Operator) ForbidsValue() bool {
	switch op {
	case OpIsNull, OpIsNotNull, OpArrayEmpty, OpArrayNotEmpty:
		return true
	}
	return false
}

func (op Operator) String() string { return string(op) }

// Valid reports whether lo is AND or OR.
func (lo LogicalOperator) Valid() bool {
	return lo == LogicalAnd || lo == LogicalOr
}
