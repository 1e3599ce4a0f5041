package query

import (
	"reflect"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Range bounds a BETWEEN comparison. Start and End must be orderable and
// Start must not exceed End.
type Range struct {
	Start any `json:"start"`
	End   any `json:"end"`
}

// Filter is one leaf query condition: a field, an operator and an
// operator-shaped value. Construct through NewFilter so the operator/value
// rules are enforced exactly once regardless of entry point.
type Filter struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Value    any      `json:"value,omitempty"`
}

// NewFilter builds a validated Filter.
func NewFilter(field string, op Operator, value any) (Filter, error) {
	f := Filter{Field: field, Operator: op, Value: value}
	if err := f.Validate(); err != nil {
		return Filter{}, err
	}
	return f, nil
}

// MustFilter is NewFilter for statically known-good filters; it panics on
// validation failure and is intended for tests and package literals.
func MustFilter(field string, op Operator, value any) Filter {
	f, err := NewFilter(field, op, value)
	if err != nil {
		panic(err)
	}
	return f
}

// Validate checks the field, the operator and the operator-specific value
// shape.
func (f Filter) Validate() error {
	if err := validation.ValidateStruct(&f,
		validation.Field(&f.Field, validation.Required),
		validation.Field(&f.Operator, validation.Required),
	); err != nil {
		return errValidation("invalid filter: %v", err)
	}
	if !f.Operator.Valid() {
		return errValidation("invalid filter: unknown operator %q", f.Operator)
	}
	return validateOperatorValue(f.Field, f.Operator, f.Value)
}

// validateOperatorValue holds the operator/value shape rules shared by
// Filter and Having.
func validateOperatorValue(field string, op Operator, value any) error {
	switch {
	case op.ForbidsValue():
		if value != nil {
			return errValidation("operator %s on field %q does not take a value", op, field)
		}
		return nil

	case op.IsText():
		s, ok := value.(string)
		if !ok {
			return errValidation("operator %s on field %q requires a string value, got %T", op, field, value)
		}
		if op == OpRegex {
			if _, err := regexp.Compile(s); err != nil {
				return errValidation("operator %s on field %q: invalid pattern: %v", op, field, err)
			}
		}
		return nil

	case op.RequiresIterable():
		if value == nil {
			return errValidation("operator %s on field %q requires a slice value", op, field)
		}
		if _, isString := value.(string); isString {
			return errValidation("operator %s on field %q requires a slice value, got string", op, field)
		}
		if reflect.TypeOf(value).Kind() == reflect.Map {
			return errValidation("operator %s on field %q requires a slice value, got map", op, field)
		}
		if !isIterable(value) {
			return errValidation("operator %s on field %q requires a slice value, got %T", op, field, value)
		}
		return nil

	case op == OpBetween:
		r, ok := asRange(value)
		if !ok {
			return errValidation("operator between on field %q requires a query.Range value, got %T", field, value)
		}
		if r.Start == nil || r.End == nil {
			return errValidation("operator between on field %q requires both start and end", field)
		}
		if cmp, ordered := Compare(r.Start, r.End); ordered && cmp > 0 {
			return errValidation("operator between on field %q: start exceeds end", field)
		}
		return nil

	case op == OpJSONHasKey:
		if _, ok := value.(string); !ok {
			return errValidation("operator %s on field %q requires a string key, got %T", op, field, value)
		}
		return nil
	}

	return nil
}

func asRange(value any) (Range, bool) {
	switch r := value.(type) {
	case Range:
		return r, true
	case *Range:
		if r != nil {
			return *r, true
		}
	}
	return Range{}, false
}

// FilterGroup combines one or more filters under a single logical operator.
type FilterGroup struct {
	Filters  []Filter        `json:"filters"`
	Operator LogicalOperator `json:"operator"`
}

// NewFilterGroup builds a validated FilterGroup. The filter list must be
// non-empty and the operator AND or OR.
func NewFilterGroup(op LogicalOperator, filters ...Filter) (FilterGroup, error) {
	g := FilterGroup{Filters: filters, Operator: op}
	if err := g.Validate(); err != nil {
		return FilterGroup{}, err
	}
	return g, nil
}

// Validate checks group shape; each member filter is assumed to have been
// validated at its own construction.
func (g FilterGroup) Validate() error {
	if len(g.Filters) == 0 {
		return errValidation("filter group requires at least one filter")
	}
	if !g.Operator.Valid() {
		return errValidation("filter group: invalid logical operator %q", g.Operator)
	}
	return nil
}
