// Package specification provides the typed criteria layer, the fluent
// builder and the immutable Specification the storage ports consume.
package specification

import (
	"time"

	errors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-persistence/query"
)

// Clock supplies "now" to temporal criteria. Tests inject a frozen clock;
// production code leaves it nil and gets time.Now.
type Clock func() time.Time

// Criterion is a typed condition that renders itself as one query.Filter.
type Criterion interface {
	Filter() (query.Filter, error)
}

// GroupCriterion is a composite condition that renders as one
// query.FilterGroup. Composite And/Or values implement it.
type GroupCriterion interface {
	FilterGroup() (query.FilterGroup, error)
}

// filterCriterion is the leaf implementation backing the typed
// constructors. Validation happens inside query.NewFilter at render time, so
// every constructor shares one set of operator rules.
type filterCriterion struct {
	field string
	op    query.Operator
	value any
}

func (c filterCriterion) Filter() (query.Filter, error) {
	return query.NewFilter(c.field, c.op, c.value)
}

// Equals matches field == value.
func Equals(field string, value any) Criterion {
	return filterCriterion{field, query.OpEqual, value}
}

// NotEquals matches field != value.
func NotEquals(field string, value any) Criterion {
	return filterCriterion{field, query.OpNotEqual, value}
}

// GreaterThan matches field > value.
func GreaterThan(field string, value any) Criterion {
	return filterCriterion{field, query.OpGreaterThan, value}
}

// GreaterOrEqual matches field >= value.
func GreaterOrEqual(field string, value any) Criterion {
	return filterCriterion{field, query.OpGreaterOrEqual, value}
}

// LessThan matches field < value.
func LessThan(field string, value any) Criterion {
	return filterCriterion{field, query.OpLessThan, value}
}

// LessOrEqual matches field <= value.
func LessOrEqual(field string, value any) Criterion {
	return filterCriterion{field, query.OpLessOrEqual, value}
}

// Like matches a SQL pattern (% and _ wildcards), case-sensitive.
func Like(field, pattern string) Criterion {
	return filterCriterion{field, query.OpLike, pattern}
}

// NotLike negates Like.
func NotLike(field, pattern string) Criterion {
	return filterCriterion{field, query.OpNotLike, pattern}
}

// ILike matches a SQL pattern case-insensitively.
func ILike(field, pattern string) Criterion {
	return filterCriterion{field, query.OpILike, pattern}
}

// StartsWith matches values beginning with prefix. Case-insensitive matching
// renders as an ILIKE prefix pattern so adapters need no extra operator.
func StartsWith(field, prefix string, caseSensitive bool) Criterion {
	if caseSensitive {
		return filterCriterion{field, query.OpStartsWith, prefix}
	}
	return filterCriterion{field, query.OpILike, prefix + "%"}
}

// EndsWith matches values ending with suffix.
func EndsWith(field, suffix string, caseSensitive bool) Criterion {
	if caseSensitive {
		return filterCriterion{field, query.OpEndsWith, suffix}
	}
	return filterCriterion{field, query.OpILike, "%" + suffix}
}

// Contains matches values containing the substring.
func Contains(field, substring string) Criterion {
	return filterCriterion{field, query.OpContains, substring}
}

// Regex matches values against a Go regular expression.
func Regex(field, pattern string) Criterion {
	return filterCriterion{field, query.OpRegex, pattern}
}

// In matches when the field value is one of values.
func In[T any](field string, values []T) Criterion {
	return filterCriterion{field, query.OpIn, values}
}

// NotIn negates In.
func NotIn[T any](field string, values []T) Criterion {
	return filterCriterion{field, query.OpNotIn, values}
}

// Between matches start <= field <= end.
func Between(field string, start, end any) Criterion {
	return filterCriterion{field, query.OpBetween, query.Range{Start: start, End: end}}
}

// IsNull matches absent values.
func IsNull(field string) Criterion {
	return filterCriterion{field, query.OpIsNull, nil}
}

// IsNotNull matches present values.
func IsNotNull(field string) Criterion {
	return filterCriterion{field, query.OpIsNotNull, nil}
}

// ArrayContains matches array fields containing every one of values.
func ArrayContains[T any](field string, values []T) Criterion {
	return filterCriterion{field, query.OpArrayContains, values}
}

// ArrayContainedBy matches array fields whose elements all appear in values.
func ArrayContainedBy[T any](field string, values []T) Criterion {
	return filterCriterion{field, query.OpArrayContainedBy, values}
}

// ArrayOverlaps matches array fields sharing at least one element with
// values.
func ArrayOverlaps[T any](field string, values []T) Criterion {
	return filterCriterion{field, query.OpArrayOverlaps, values}
}

// ArrayEmpty matches empty array fields.
func ArrayEmpty(field string) Criterion {
	return filterCriterion{field, query.OpArrayEmpty, nil}
}

// ArrayNotEmpty matches non-empty array fields.
func ArrayNotEmpty(field string) Criterion {
	return filterCriterion{field, query.OpArrayNotEmpty, nil}
}

// JSONHasKey matches JSON fields exposing the given top-level key.
func JSONHasKey(field, key string) Criterion {
	return filterCriterion{field, query.OpJSONHasKey, key}
}

// JSONContains matches JSON fields containing the given document.
func JSONContains(field string, doc map[string]any) Criterion {
	return filterCriterion{field, query.OpJSONContains, doc}
}

// OnOrAfter matches field >= t.
func OnOrAfter(field string, t time.Time) Criterion {
	return filterCriterion{field, query.OpGreaterOrEqual, t}
}

// OnOrBefore matches field <= t.
func OnOrBefore(field string, t time.Time) Criterion {
	return filterCriterion{field, query.OpLessOrEqual, t}
}

type temporalKind int

const (
	temporalLastNDays temporalKind = iota
	temporalNextNDays
	temporalToday
	temporalThisWeek
	temporalThisMonth
)

// TemporalCriterion resolves a date-relative window to concrete boundaries
// when Filter runs, capturing "now" at render time. Chain WithClock to make
// rendering deterministic in tests.
type TemporalCriterion struct {
	field string
	kind  temporalKind
	n     int
	clock Clock
}

// WithClock returns a copy rendering against the given clock.
func (c TemporalCriterion) WithClock(clock Clock) TemporalCriterion {
	c.clock = clock
	return c
}

// Filter renders the window as a BETWEEN filter.
func (c TemporalCriterion) Filter() (query.Filter, error) {
	now := time.Now()
	if c.clock != nil {
		now = c.clock()
	}

	var start, end time.Time
	switch c.kind {
	case temporalLastNDays:
		if c.n < 1 {
			return query.Filter{}, errors.New("last-n-days window requires n >= 1", errors.CategoryValidation)
		}
		start, end = now.AddDate(0, 0, -c.n), now
	case temporalNextNDays:
		if c.n < 1 {
			return query.Filter{}, errors.New("next-n-days window requires n >= 1", errors.CategoryValidation)
		}
		start, end = now, now.AddDate(0, 0, c.n)
	case temporalToday:
		start = startOfDay(now)
		end = start.AddDate(0, 0, 1).Add(-time.Nanosecond)
	case temporalThisWeek:
		start = startOfWeek(now)
		end = start.AddDate(0, 0, 7).Add(-time.Nanosecond)
	case temporalThisMonth:
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		end = start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	}

	return query.NewFilter(c.field, query.OpBetween, query.Range{Start: start, End: end})
}

// LastNDays matches timestamps within the trailing n-day window ending now.
func LastNDays(field string, n int) TemporalCriterion {
	return TemporalCriterion{field: field, kind: temporalLastNDays, n: n}
}

// NextNDays matches timestamps within the leading n-day window starting now.
func NextNDays(field string, n int) TemporalCriterion {
	return TemporalCriterion{field: field, kind: temporalNextNDays, n: n}
}

// Today matches timestamps within the current calendar day.
func Today(field string) TemporalCriterion {
	return TemporalCriterion{field: field, kind: temporalToday}
}

// ThisWeek matches timestamps within the current Monday-based week.
func ThisWeek(field string) TemporalCriterion {
	return TemporalCriterion{field: field, kind: temporalThisWeek}
}

// ThisMonth matches timestamps within the current calendar month.
func ThisMonth(field string) TemporalCriterion {
	return TemporalCriterion{field: field, kind: temporalThisMonth}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func startOfWeek(t time.Time) time.Time {
	day := startOfDay(t)
	weekday := int(day.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday belongs to the week that started the prior Monday
	}
	return day.AddDate(0, 0, 1-weekday)
}

// Composite joins child criteria under one logical operator and renders as a
// single flattened FilterGroup. Nested composites are flattened into the
// parent group.
type Composite struct {
	operator query.LogicalOperator
	children []Criterion
}

// And combines criteria so every member must match.
func And(criteria ...Criterion) Composite {
	return Composite{operator: query.LogicalAnd, children: criteria}
}

// Or combines criteria so at least one member must match.
func Or(criteria ...Criterion) Composite {
	return Composite{operator: query.LogicalOr, children: criteria}
}

// Append returns a copy of c with extra children.
func (c Composite) Append(criteria ...Criterion) Composite {
	children := make([]Criterion, 0, len(c.children)+len(criteria))
	children = append(children, c.children...)
	children = append(children, criteria...)
	c.children = children
	return c
}

// FilterGroup renders the composite, flattening nested composites into one
// group.
func (c Composite) FilterGroup() (query.FilterGroup, error) {
	filters, err := c.flatten()
	if err != nil {
		return query.FilterGroup{}, err
	}
	return query.NewFilterGroup(c.operator, filters...)
}

// Filter satisfies Criterion for call sites that only accept leaves; a
// composite cannot collapse to one filter, so this always errors. The
// builder recognizes GroupCriterion first and never hits this path.
func (c Composite) Filter() (query.Filter, error) {
	return query.Filter{}, errors.New("composite criterion renders a filter group, not a single filter", errors.CategoryValidation)
}

func (c Composite) flatten() ([]query.Filter, error) {
	var filters []query.Filter
	for _, child := range c.children {
		if nested, ok := child.(Composite); ok {
			inner, err := nested.flatten()
			if err != nil {
				return nil, err
			}
			filters = append(filters, inner...)
			continue
		}
		f, err := child.Filter()
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	return filters, nil
}
