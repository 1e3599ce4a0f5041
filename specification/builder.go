package specification

import (
	stderrors "errors"

	errors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-persistence/query"
)

// Builder is a mutable accumulator of criteria, sorts, paging, field
// selection, grouping and aggregation. Methods record validation failures
// instead of returning them; Build surfaces everything at once.
type Builder struct {
	criteria  []Criterion
	groups    []query.FilterGroup
	sorts     []query.Sort
	page      *query.PageParams
	fields    []string
	includes  []string
	joins     []query.Join
	groupBy   []string
	stats     []query.Statistic
	having    []query.Having
	openGroup *openGroup
	errs      []error
}

type openGroup struct {
	operator query.LogicalOperator
	criteria []Criterion
}

// New creates an empty Builder.
func New() *Builder {
	return &Builder{}
}

// Where adds a condition using a string operator resolved against the
// canonical table (case-insensitive). A BETWEEN value given as a two-element
// slice is converted to a Range; no-value operators ignore the value
// argument.
func (b *Builder) Where(field, op string, value any) *Builder {
	operator, err := query.ParseOperator(op)
	if err != nil {
		b.errs = append(b.errs, err)
		return b
	}

	if operator == query.OpBetween {
		value = coerceRange(value)
	}
	if operator.ForbidsValue() {
		value = nil
	}

	return b.append(filterCriterion{field: field, op: operator, value: value})
}

// coerceRange converts the two-element slice shorthand accepted by Where
// into a query.Range. Anything else passes through for filter validation to
// judge.
func coerceRange(value any) any {
	switch v := value.(type) {
	case query.Range, *query.Range:
		return v
	case []any:
		if len(v) == 2 {
			return query.Range{Start: v[0], End: v[1]}
		}
	case [2]any:
		return query.Range{Start: v[0], End: v[1]}
	}
	return value
}

// Equals adds field == value.
func (b *Builder) Equals(field string, value any) *Builder {
	return b.append(filterCriterion{field: field, op: query.OpEqual, value: value})
}

// Between adds start <= field <= end.
func (b *Builder) Between(field string, start, end any) *Builder {
	return b.append(filterCriterion{field: field, op: query.OpBetween, value: query.Range{Start: start, End: end}})
}

// InList adds field IN values.
func (b *Builder) InList(field string, values ...any) *Builder {
	return b.append(filterCriterion{field: field, op: query.OpIn, value: values})
}

// IsNull adds field IS NULL.
func (b *Builder) IsNull(field string) *Builder {
	return b.append(filterCriterion{field: field, op: query.OpIsNull})
}

// Contains adds a substring condition on a text field.
func (b *Builder) Contains(field, substring string) *Builder {
	return b.append(filterCriterion{field: field, op: query.OpContains, value: substring})
}

// AddCriterion accumulates a typed criterion. Composites are promoted to
// filter groups at build time.
func (b *Builder) AddCriterion(c Criterion) *Builder {
	if c == nil {
		b.errs = append(b.errs, errors.New("nil criterion", errors.CategoryValidation))
		return b
	}
	return b.append(c)
}

func (b *Builder) append(c Criterion) *Builder {
	if b.openGroup != nil {
		if _, isGroup := c.(GroupCriterion); isGroup {
			b.errs = append(b.errs, errors.New("cannot add a composite criterion inside an open group", errors.CategoryValidation))
			return b
		}
		b.openGroup.criteria = append(b.openGroup.criteria, c)
		return b
	}
	b.criteria = append(b.criteria, c)
	return b
}

// Group opens a logical group; subsequent conditions accumulate inside it
// until EndGroup. Only one group may be open at a time.
func (b *Builder) Group(op query.LogicalOperator) *Builder {
	if b.openGroup != nil {
		b.errs = append(b.errs, errors.New("a filter group is already open", errors.CategoryValidation))
		return b
	}
	if !op.Valid() {
		b.errs = append(b.errs, errors.New("invalid logical operator for group", errors.CategoryValidation))
		return b
	}
	b.openGroup = &openGroup{operator: op}
	return b
}

// EndGroup closes the open group. Closing an empty group is silently
// dropped; closing when no group is open is an error.
func (b *Builder) EndGroup() *Builder {
	if b.openGroup == nil {
		b.errs = append(b.errs, errors.New("no open filter group to close", errors.CategoryValidation))
		return b
	}
	group := b.openGroup
	b.openGroup = nil

	if len(group.criteria) == 0 {
		return b
	}

	filters := make([]query.Filter, 0, len(group.criteria))
	for _, c := range group.criteria {
		f, err := c.Filter()
		if err != nil {
			b.errs = append(b.errs, err)
			continue
		}
		filters = append(filters, f)
	}
	if len(filters) == 0 {
		return b
	}

	fg, err := query.NewFilterGroup(group.operator, filters...)
	if err != nil {
		b.errs = append(b.errs, err)
		return b
	}
	b.groups = append(b.groups, fg)
	return b
}

// OrderBy appends a sort term.
func (b *Builder) OrderBy(field string, direction query.Direction) *Builder {
	s, err := query.NewSort(field, direction)
	if err != nil {
		b.errs = append(b.errs, err)
		return b
	}
	b.sorts = append(b.sorts, s)
	return b
}

// Paginate sets the page window.
func (b *Builder) Paginate(page, size int) *Builder {
	p, err := query.NewPageParams(page, size)
	if err != nil {
		b.errs = append(b.errs, err)
		return b
	}
	b.page = &p
	return b
}

// Select restricts the projected fields.
func (b *Builder) Select(fields ...string) *Builder {
	b.fields = append(b.fields, fields...)
	return b
}

// Include requests eager-loaded relations.
func (b *Builder) Include(relations ...string) *Builder {
	b.includes = append(b.includes, relations...)
	return b
}

// Join requests an explicit relation join.
func (b *Builder) Join(relation string, joinType query.JoinType) *Builder {
	b.joins = append(b.joins, query.Join{Relation: relation, Type: joinType})
	return b
}

// GroupBy appends grouping fields.
func (b *Builder) GroupBy(fields ...string) *Builder {
	b.groupBy = append(b.groupBy, fields...)
	return b
}

// Statistic appends a pre-built aggregate term.
func (b *Builder) Statistic(s query.Statistic) *Builder {
	if err := s.Validate(); err != nil {
		b.errs = append(b.errs, err)
		return b
	}
	b.stats = append(b.stats, s)
	return b
}

// Count adds a COUNT aggregate over field.
func (b *Builder) Count(field string) *Builder { return b.aggregate(query.AggCount, field) }

// Sum adds a SUM aggregate over field.
func (b *Builder) Sum(field string) *Builder { return b.aggregate(query.AggSum, field) }

// Avg adds an AVG aggregate over field.
func (b *Builder) Avg(field string) *Builder { return b.aggregate(query.AggAvg, field) }

// Min adds a MIN aggregate over field.
func (b *Builder) Min(field string) *Builder { return b.aggregate(query.AggMin, field) }

// Max adds a MAX aggregate over field.
func (b *Builder) Max(field string) *Builder { return b.aggregate(query.AggMax, field) }

func (b *Builder) aggregate(fn query.AggregateFunc, field string) *Builder {
	s, err := query.NewStatistic(fn, field)
	if err != nil {
		b.errs = append(b.errs, err)
		return b
	}
	b.stats = append(b.stats, s)
	return b
}

// Having adds a post-aggregation condition using a string operator.
func (b *Builder) Having(field, op string, value any) *Builder {
	operator, err := query.ParseOperator(op)
	if err != nil {
		b.errs = append(b.errs, err)
		return b
	}
	h, err := query.NewHaving(field, operator, value)
	if err != nil {
		b.errs = append(b.errs, err)
		return b
	}
	b.having = append(b.having, h)
	return b
}

// Build renders the accumulated state into an immutable Specification. It
// fails when a group is left open or when any accumulated condition failed
// validation.
func (b *Builder) Build() (Specification, error) {
	errs := append([]error(nil), b.errs...)

	if b.openGroup != nil {
		errs = append(errs, errors.New("filter group left open at build time", errors.CategoryValidation))
	}

	params := query.Params{
		Groups:     append([]query.FilterGroup(nil), b.groups...),
		Sorts:      append([]query.Sort(nil), b.sorts...),
		Fields:     append([]string(nil), b.fields...),
		Includes:   append([]string(nil), b.includes...),
		Joins:      append([]query.Join(nil), b.joins...),
		GroupBy:    append([]string(nil), b.groupBy...),
		Statistics: append([]query.Statistic(nil), b.stats...),
		Having:     append([]query.Having(nil), b.having...),
	}
	if b.page != nil {
		page := *b.page
		params.Page = &page
	}

	for _, c := range b.criteria {
		if composite, ok := c.(GroupCriterion); ok {
			fg, err := composite.FilterGroup()
			if err != nil {
				errs = append(errs, err)
				continue
			}
			params.Groups = append(params.Groups, fg)
			continue
		}
		f, err := c.Filter()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		params.Filters = append(params.Filters, f)
	}

	if len(errs) > 0 {
		return Specification{}, stderrors.Join(errs...)
	}
	return Specification{params: params}, nil
}
