package query

// JoinType selects the join flavor requested for a relation.
type JoinType string

const (
	JoinInner JoinType = "inner"
	JoinLeft  JoinType = "left"
	JoinRight JoinType = "right"
)

// Join describes one relation join requested by the caller. The storage
// adapter decides how (or whether) to honor it.
type Join struct {
	Relation string   `json:"relation"`
	Type     JoinType `json:"type"`
	On       string   `json:"on,omitempty"`
}

// Params is the structured export of a specification and the only
// representation a storage adapter is allowed to depend on. A zero Params
// selects everything.
type Params struct {
	Filters    []Filter      `json:"filters,omitempty"`
	Groups     []FilterGroup `json:"groups,omitempty"`
	Sorts      []Sort        `json:"sorts,omitempty"`
	Page       *PageParams   `json:"page,omitempty"`
	Fields     []string      `json:"fields,omitempty"`
	Includes   []string      `json:"includes,omitempty"`
	Joins      []Join        `json:"joins,omitempty"`
	GroupBy    []string      `json:"group_by,omitempty"`
	Statistics []Statistic   `json:"statistics,omitempty"`
	Having     []Having      `json:"having,omitempty"`
}

// IsZero reports whether p constrains the query at all.
func (p Params) IsZero() bool {
	return len(p.Filters) == 0 && len(p.Groups) == 0 && len(p.Sorts) == 0 &&
		p.Page == nil && len(p.Fields) == 0 && len(p.Includes) == 0 &&
		len(p.Joins) == 0 && len(p.GroupBy) == 0 && len(p.Statistics) == 0 &&
		len(p.Having) == 0
}

// Clone returns a deep-enough copy of p: every slice is copied so mutating
// the clone never aliases the original. Filter values themselves are shared;
// they are treated as immutable after construction.
func (p Params) Clone() Params {
	out := Params{}
	if len(p.Filters) > 0 {
		out.Filters = append([]Filter(nil), p.Filters...)
	}
	if len(p.Groups) > 0 {
		out.Groups = make([]FilterGroup, len(p.Groups))
		for i, g := range p.Groups {
			out.Groups[i] = FilterGroup{
				Filters:  append([]Filter(nil), g.Filters...),
				Operator: g.Operator,
			}
		}
	}
	if len(p.Sorts) > 0 {
		out.Sorts = append([]Sort(nil), p.Sorts...)
	}
	if p.Page != nil {
		page := *p.Page
		out.Page = &page
	}
	if len(p.Fields) > 0 {
		out.Fields = append([]string(nil), p.Fields...)
	}
	if len(p.Includes) > 0 {
		out.Includes = append([]string(nil), p.Includes...)
	}
	if len(p.Joins) > 0 {
		out.Joins = append([]Join(nil), p.Joins...)
	}
	if len(p.GroupBy) > 0 {
		out.GroupBy = append([]string(nil), p.GroupBy...)
	}
	if len(p.Statistics) > 0 {
		out.Statistics = append([]Statistic(nil), p.Statistics...)
	}
	if len(p.Having) > 0 {
		out.Having = append([]Having(nil), p.Having...)
	}
	return out
}
