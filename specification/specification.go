package specification

import (
	"encoding/json"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/goliatone/go-persistence/query"
)

// Specification is the final, engine-agnostic query description. It is
// immutable: every combinator returns a new instance, so a base
// specification can be safely extended by multiple call sites.
type Specification struct {
	params query.Params
}

// FromParams wraps pre-built params in a Specification. The params are
// cloned so later caller mutations cannot leak in.
func FromParams(p query.Params) Specification {
	return Specification{params: p.Clone()}
}

// QueryParams exports the structured query description. This is the only
// representation a storage adapter is allowed to depend on. The returned
// value is a copy.
func (s Specification) QueryParams() query.Params {
	return s.params.Clone()
}

// IsZero reports whether the specification constrains anything.
func (s Specification) IsZero() bool {
	return s.params.IsZero()
}

// And returns a specification requiring both receivers' conditions. Filters
// and groups concatenate; sorts, paging and projection come from the
// receiver, falling back to other where the receiver leaves them unset.
func (s Specification) And(other Specification) Specification {
	merged := s.params.Clone()
	op := other.params.Clone()

	merged.Filters = append(merged.Filters, op.Filters...)
	merged.Groups = append(merged.Groups, op.Groups...)
	merged.GroupBy = append(merged.GroupBy, op.GroupBy...)
	merged.Statistics = append(merged.Statistics, op.Statistics...)
	merged.Having = append(merged.Having, op.Having...)
	merged.Includes = append(merged.Includes, op.Includes...)
	merged.Joins = append(merged.Joins, op.Joins...)

	if len(merged.Sorts) == 0 {
		merged.Sorts = op.Sorts
	}
	if merged.Page == nil {
		merged.Page = op.Page
	}
	if len(merged.Fields) == 0 {
		merged.Fields = op.Fields
	}

	return Specification{params: merged}
}

// Or returns a specification satisfied when either side's leaf filters
// match. Both sides' filters collapse into a single OR group; existing
// groups carry over unchanged. Sorts, paging and projection follow the same
// receiver-first rule as And.
func (s Specification) Or(other Specification) Specification {
	merged := s.params.Clone()
	op := other.params.Clone()

	var orFilters []query.Filter
	orFilters = append(orFilters, merged.Filters...)
	orFilters = append(orFilters, op.Filters...)
	merged.Filters = nil

	if len(orFilters) > 0 {
		if fg, err := query.NewFilterGroup(query.LogicalOr, orFilters...); err == nil {
			merged.Groups = append(merged.Groups, fg)
		}
	}
	merged.Groups = append(merged.Groups, op.Groups...)

	if len(merged.Sorts) == 0 {
		merged.Sorts = op.Sorts
	}
	if merged.Page == nil {
		merged.Page = op.Page
	}
	if len(merged.Fields) == 0 {
		merged.Fields = op.Fields
	}

	return Specification{params: merged}
}

// WithFilters returns a copy with extra filters appended.
func (s Specification) WithFilters(filters ...query.Filter) Specification {
	p := s.params.Clone()
	p.Filters = append(p.Filters, filters...)
	return Specification{params: p}
}

// WithSorts returns a copy with the sort order replaced.
func (s Specification) WithSorts(sorts ...query.Sort) Specification {
	p := s.params.Clone()
	p.Sorts = append([]query.Sort(nil), sorts...)
	return Specification{params: p}
}

// WithPage returns a copy with the page window replaced.
func (s Specification) WithPage(page query.PageParams) Specification {
	p := s.params.Clone()
	p.Page = &page
	return Specification{params: p}
}

// Digest returns a stable hash of the canonical serialization, used for
// cache keys covering aggregate and windowed read shapes. Struct field order
// is fixed and encoding/json sorts map keys, so equal specifications hash
// equally across runs.
func (s Specification) Digest() uint64 {
	data, err := json.Marshal(s.params)
	if err != nil {
		// Marshal only fails for exotic filter values (channels, funcs);
		// fall back to the formatted value rather than colliding on zero.
		data = []byte(fmt.Sprintf("%+v", s.params))
	}
	return xxhash.Sum64(data)
}
