package query

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// AggregateFunc identifies one aggregate computation.
type AggregateFunc string

const (
	AggCount       AggregateFunc = "count"
	AggSum         AggregateFunc = "sum"
	AggAvg         AggregateFunc = "avg"
	AggMin         AggregateFunc = "min"
	AggMax         AggregateFunc = "max"
	AggGroupConcat AggregateFunc = "group_concat"
)

// DefaultSeparator joins values for group_concat when none is configured.
const DefaultSeparator = ","

// Statistic is one aggregate term: a function applied to a field, optionally
// aliased, de-duplicated, or (for group_concat) joined with a separator.
type Statistic struct {
	Func      AggregateFunc `json:"func"`
	Field     string        `json:"field"`
	Alias     string        `json:"alias,omitempty"`
	Distinct  bool          `json:"distinct,omitempty"`
	Separator string        `json:"separator,omitempty"`
}

// NewStatistic builds a validated Statistic. For group_concat the separator
// defaults to DefaultSeparator; for every other function a separator is an
// error.
func NewStatistic(fn AggregateFunc, field string) (Statistic, error) {
	s := Statistic{Func: fn, Field: field}
	if fn == AggGroupConcat {
		s.Separator = DefaultSeparator
	}
	if err := s.Validate(); err != nil {
		return Statistic{}, err
	}
	return s, nil
}

// WithAlias returns a copy of s reporting under the given alias.
func (s Statistic) WithAlias(alias string) Statistic {
	s.Alias = alias
	return s
}

// WithDistinct returns a copy of s aggregating distinct values only.
func (s Statistic) WithDistinct() Statistic {
	s.Distinct = true
	return s
}

// WithSeparator returns a copy of s using the given group_concat separator.
// Validate rejects the result for any other function.
func (s Statistic) WithSeparator(sep string) Statistic {
	s.Separator = sep
	return s
}

// Validate checks the function, field and separator rules.
func (s Statistic) Validate() error {
	if err := validation.ValidateStruct(&s,
		validation.Field(&s.Field, validation.Required),
		validation.Field(&s.Func, validation.Required,
			validation.In(AggCount, AggSum, AggAvg, AggMin, AggMax, AggGroupConcat)),
	); err != nil {
		return errValidation("invalid statistic: %v", err)
	}
	if s.Separator != "" && s.Func != AggGroupConcat {
		return errValidation("invalid statistic: separator is only valid for %s", AggGroupConcat)
	}
	return nil
}

// Label returns the name the aggregate reports under: the alias when set,
// otherwise func_field.
func (s Statistic) Label() string {
	if s.Alias != "" {
		return s.Alias
	}
	return string(s.Func) + "_" + s.Field
}

// Having is a post-aggregation filter. It shares the operator/value shape
// rules with Filter.
type Having struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Value    any      `json:"value,omitempty"`
}

// NewHaving builds a validated Having clause.
func NewHaving(field string, op Operator, value any) (Having, error) {
	h := Having{Field: field, Operator: op, Value: value}
	if err := h.Validate(); err != nil {
		return Having{}, err
	}
	return h, nil
}

// Validate applies the same operator rules as Filter.Validate.
func (h Having) Validate() error {
	if err := validation.ValidateStruct(&h,
		validation.Field(&h.Field, validation.Required),
		validation.Field(&h.Operator, validation.Required),
	); err != nil {
		return errValidation("invalid having: %v", err)
	}
	if !h.Operator.Valid() {
		return errValidation("invalid having: unknown operator %q", h.Operator)
	}
	return validateOperatorValue(h.Field, h.Operator, h.Value)
}
