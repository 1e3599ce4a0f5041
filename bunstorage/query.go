package bunstorage

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/dialect/pgdialect"

	"github.com/goliatone/go-persistence/query"
)

// applyParams translates query params onto a bun select. Pagination is
// applied separately by the caller when it needs the unpaginated count.
func applyParams(q *bun.SelectQuery, p *query.Params, name dialect.Name, withPage bool) (*bun.SelectQuery, error) {
	if p == nil {
		return q, nil
	}

	if len(p.Fields) > 0 {
		q = q.Column(p.Fields...)
	}
	for _, rel := range p.Includes {
		q = q.Relation(rel)
	}
	for _, j := range p.Joins {
		q = applyJoin(q, j)
	}

	var err error
	if q, err = applyFilters(q, p, name); err != nil {
		return nil, err
	}

	for _, col := range p.GroupBy {
		// Group keys must be selectable alongside the aggregates.
		if len(p.Fields) == 0 {
			q = q.ColumnExpr("?", bun.Ident(col))
		}
		q = q.Group(col)
	}
	if q, err = applyStatistics(q, p.Statistics, name); err != nil {
		return nil, err
	}
	for _, h := range p.Having {
		expr, args, err := filterExpr(query.Filter(h), name)
		if err != nil {
			return nil, err
		}
		q = q.Having(expr, args...)
	}

	for _, s := range p.Sorts {
		if s.Direction == query.Descending {
			q = q.OrderExpr("? DESC", bun.Ident(s.Field))
		} else {
			q = q.OrderExpr("? ASC", bun.Ident(s.Field))
		}
	}

	if withPage && p.Page != nil {
		q = q.Limit(p.Page.Limit()).Offset(p.Page.Offset())
	}
	return q, nil
}

func applyFilters(q *bun.SelectQuery, p *query.Params, name dialect.Name) (*bun.SelectQuery, error) {
	for _, f := range p.Filters {
		expr, args, err := filterExpr(f, name)
		if err != nil {
			return nil, err
		}
		q = q.Where(expr, args...)
	}

	for _, g := range p.Groups {
		group := g
		var groupErr error
		q = q.WhereGroup(" AND ", func(sub *bun.SelectQuery) *bun.SelectQuery {
			for _, f := range group.Filters {
				expr, args, err := filterExpr(f, name)
				if err != nil {
					groupErr = err
					return sub
				}
				if group.Operator == query.LogicalOr {
					sub = sub.WhereOr(expr, args...)
				} else {
					sub = sub.Where(expr, args...)
				}
			}
			return sub
		})
		if groupErr != nil {
			return nil, groupErr
		}
	}
	return q, nil
}

func applyJoin(q *bun.SelectQuery, j query.Join) *bun.SelectQuery {
	kind := "JOIN"
	switch j.Type {
	case query.JoinLeft:
		kind = "LEFT JOIN"
	case query.JoinRight:
		kind = "RIGHT JOIN"
	}
	if j.On != "" {
		return q.Join(kind+" ? ON "+j.On, bun.Ident(j.Relation))
	}
	return q.Join(kind+" ?", bun.Ident(j.Relation))
}

func applyStatistics(q *bun.SelectQuery, stats []query.Statistic, name dialect.Name) (*bun.SelectQuery, error) {
	for _, st := range stats {
		label := bun.Ident(st.Label())
		col := bun.Ident(st.Field)
		switch st.Func {
		case query.AggCount:
			if st.Distinct {
				q = q.ColumnExpr("count(DISTINCT ?) AS ?", col, label)
			} else {
				q = q.ColumnExpr("count(?) AS ?", col, label)
			}
		case query.AggSum:
			q = q.ColumnExpr("sum(?) AS ?", col, label)
		case query.AggAvg:
			q = q.ColumnExpr("avg(?) AS ?", col, label)
		case query.AggMin:
			q = q.ColumnExpr("min(?) AS ?", col, label)
		case query.AggMax:
			q = q.ColumnExpr("max(?) AS ?", col, label)
		case query.AggGroupConcat:
			sep := st.Separator
			if sep == "" {
				sep = query.DefaultSeparator
			}
			if name == dialect.PG {
				q = q.ColumnExpr("string_agg(?::text, ?) AS ?", col, sep, label)
			} else {
				q = q.ColumnExpr("group_concat(?, ?) AS ?", col, sep, label)
			}
		default:
			return nil, fmt.Errorf("bunstorage: unsupported aggregate %q", st.Func)
		}
	}
	return q, nil
}

// filterExpr renders one filter as a bun where expression. Array and JSON
// operators need postgres; requesting them on another dialect is an error,
// never a silent fallback.
func filterExpr(f query.Filter, name dialect.Name) (string, []any, error) {
	col := bun.Ident(f.Field)

	switch f.Operator {
	case query.OpEqual:
		return "? = ?", []any{col, f.Value}, nil
	case query.OpNotEqual:
		return "? <> ?", []any{col, f.Value}, nil
	case query.OpGreaterThan:
		return "? > ?", []any{col, f.Value}, nil
	case query.OpGreaterOrEqual:
		return "? >= ?", []any{col, f.Value}, nil
	case query.OpLessThan:
		return "? < ?", []any{col, f.Value}, nil
	case query.OpLessOrEqual:
		return "? <= ?", []any{col, f.Value}, nil

	case query.OpLike:
		return "? LIKE ?", []any{col, f.Value}, nil
	case query.OpNotLike:
		return "? NOT LIKE ?", []any{col, f.Value}, nil
	case query.OpILike:
		if name == dialect.PG {
			return "? ILIKE ?", []any{col, f.Value}, nil
		}
		return "lower(?) LIKE lower(?)", []any{col, f.Value}, nil
	case query.OpStartsWith:
		return "? LIKE ?", []any{col, likePattern(f.Value, false, true)}, nil
	case query.OpEndsWith:
		return "? LIKE ?", []any{col, likePattern(f.Value, true, false)}, nil
	case query.OpContains:
		return "? LIKE ?", []any{col, likePattern(f.Value, true, true)}, nil
	case query.OpRegex:
		if name == dialect.PG {
			return "? ~ ?", []any{col, f.Value}, nil
		}
		return "? REGEXP ?", []any{col, f.Value}, nil

	case query.OpIn:
		return "? IN (?)", []any{col, bun.In(f.Value)}, nil
	case query.OpNotIn:
		return "? NOT IN (?)", []any{col, bun.In(f.Value)}, nil

	case query.OpBetween:
		r, ok := f.Value.(query.Range)
		if !ok {
			return "", nil, fmt.Errorf("bunstorage: between filter on %q carries %T, want query.Range", f.Field, f.Value)
		}
		return "? BETWEEN ? AND ?", []any{col, r.Start, r.End}, nil

	case query.OpIsNull:
		return "? IS NULL", []any{col}, nil
	case query.OpIsNotNull:
		return "? IS NOT NULL", []any{col}, nil

	case query.OpArrayContains:
		return pgOnly(name, f, "? @> ?", []any{col, pgdialect.Array(f.Value)})
	case query.OpArrayContainedBy:
		return pgOnly(name, f, "? <@ ?", []any{col, pgdialect.Array(f.Value)})
	case query.OpArrayOverlaps:
		return pgOnly(name, f, "? && ?", []any{col, pgdialect.Array(f.Value)})
	case query.OpArrayEmpty:
		return pgOnly(name, f, "cardinality(?) = 0", []any{col})
	case query.OpArrayNotEmpty:
		return pgOnly(name, f, "cardinality(?) > 0", []any{col})

	case query.OpJSONHasKey:
		return pgOnly(name, f, "jsonb_exists(?, ?)", []any{col, f.Value})
	case query.OpJSONContains:
		doc, err := json.Marshal(f.Value)
		if err != nil {
			return "", nil, fmt.Errorf("bunstorage: json filter on %q: %w", f.Field, err)
		}
		return pgOnly(name, f, "? @> ?::jsonb", []any{col, string(doc)})
	}

	return "", nil, fmt.Errorf("bunstorage: unsupported operator %q", f.Operator)
}

func pgOnly(name dialect.Name, f query.Filter, expr string, args []any) (string, []any, error) {
	if name != dialect.PG {
		return "", nil, fmt.Errorf("bunstorage: operator %q on %q requires the postgres dialect", f.Operator, f.Field)
	}
	return expr, args, nil
}

func likePattern(v any, prefix, suffix bool) string {
	s := fmt.Sprint(v)
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	if prefix {
		s = "%" + s
	}
	if suffix {
		s += "%"
	}
	return s
}
