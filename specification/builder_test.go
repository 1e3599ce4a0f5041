package specification

import (
	"testing"

	"github.com/goliatone/go-persistence/query"
)

func TestBuilderWhereRoundTrip(t *testing.T) {
	spec, err := New().Where("status", "=", "active").Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	params := spec.QueryParams()
	if len(params.Filters) != 1 {
		t.Fatalf("expected exactly one filter, got %d", len(params.Filters))
	}
	f := params.Filters[0]
	if f.Field != "status" || f.Operator != query.OpEqual || f.Value != "active" {
		t.Errorf("unexpected filter: %+v", f)
	}
}

func TestBuilderWhereUnknownOperator(t *testing.T) {
	_, err := New().Where("status", "resembles", "active").Build()
	if err == nil {
		t.Fatal("expected error for unknown operator")
	}
}

func TestBuilderWhereSpecialCases(t *testing.T) {
	spec, err := New().
		Where("qty", "between", []any{1, 10}).
		Where("deleted_at", "is null", "ignored value").
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	params := spec.QueryParams()
	if len(params.Filters) != 2 {
		t.Fatalf("expected two filters, got %d", len(params.Filters))
	}

	r, ok := params.Filters[0].Value.(query.Range)
	if !ok {
		t.Fatalf("between slice shorthand not converted: %T", params.Filters[0].Value)
	}
	if r.Start != 1 || r.End != 10 {
		t.Errorf("range = %+v", r)
	}

	if params.Filters[1].Operator != query.OpIsNull || params.Filters[1].Value != nil {
		t.Errorf("is null should drop the value: %+v", params.Filters[1])
	}
}

func TestBuilderTypedShorthands(t *testing.T) {
	spec, err := New().
		Equals("status", "active").
		Between("qty", 1, 100).
		InList("region", "eu", "us").
		IsNull("deleted_at").
		Contains("name", "pump").
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := len(spec.QueryParams().Filters); got != 5 {
		t.Errorf("expected 5 filters, got %d", got)
	}
}

func TestBuilderGroupLifecycle(t *testing.T) {
	spec, err := New().
		Equals("tenant", "t1").
		Group(query.LogicalOr).
		Equals("status", "active").
		Equals("status", "pending").
		EndGroup().
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	params := spec.QueryParams()
	if len(params.Filters) != 1 {
		t.Errorf("expected 1 top-level filter, got %d", len(params.Filters))
	}
	if len(params.Groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(params.Groups))
	}
	g := params.Groups[0]
	if g.Operator != query.LogicalOr || len(g.Filters) != 2 {
		t.Errorf("unexpected group: %+v", g)
	}
}

func TestBuilderEmptyGroupSilentlyDropped(t *testing.T) {
	spec, err := New().
		Group(query.LogicalAnd).
		EndGroup().
		Equals("status", "active").
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := len(spec.QueryParams().Groups); got != 0 {
		t.Errorf("empty group should be dropped, got %d groups", got)
	}
}

func TestBuilderEndGroupWithoutGroup(t *testing.T) {
	if _, err := New().EndGroup().Build(); err == nil {
		t.Error("expected error for EndGroup without Group")
	}
}

func TestBuilderOpenGroupAtBuild(t *testing.T) {
	if _, err := New().Group(query.LogicalAnd).Equals("a", 1).Build(); err == nil {
		t.Error("expected error for open group at build time")
	}
}

func TestBuilderDoubleGroup(t *testing.T) {
	if _, err := New().Group(query.LogicalAnd).Group(query.LogicalOr).Build(); err == nil {
		t.Error("expected error for nested Group calls")
	}
}

func TestBuilderCompositePromotedToGroup(t *testing.T) {
	spec, err := New().
		AddCriterion(Or(
			Equals("status", "active"),
			And(Equals("status", "pending"), GreaterThan("priority", 3)),
		)).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	params := spec.QueryParams()
	if len(params.Groups) != 1 {
		t.Fatalf("expected composite to render one group, got %d", len(params.Groups))
	}
	// nested And flattens into the parent OR group
	if got := len(params.Groups[0].Filters); got != 3 {
		t.Errorf("expected flattened group of 3 filters, got %d", got)
	}
}

func TestBuilderAggregatesAndHaving(t *testing.T) {
	spec, err := New().
		GroupBy("region").
		Count("id").
		Sum("amount").
		Having("sum_amount", ">", 1000).
		OrderBy("region", query.Ascending).
		Paginate(2, 50).
		Select("region").
		Include("warehouse").
		Join("warehouse", query.JoinLeft).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	params := spec.QueryParams()
	if len(params.Statistics) != 2 {
		t.Errorf("expected 2 statistics, got %d", len(params.Statistics))
	}
	if len(params.Having) != 1 {
		t.Errorf("expected 1 having, got %d", len(params.Having))
	}
	if params.Page == nil || params.Page.Offset() != 50 {
		t.Errorf("unexpected page: %+v", params.Page)
	}
	if len(params.GroupBy) != 1 || params.GroupBy[0] != "region" {
		t.Errorf("unexpected group by: %v", params.GroupBy)
	}
	if len(params.Joins) != 1 || params.Joins[0].Type != query.JoinLeft {
		t.Errorf("unexpected joins: %v", params.Joins)
	}
}

func TestBuilderInvalidFilterSurfacesAtBuild(t *testing.T) {
	_, err := New().Where("name", "like", 42).Build()
	if err == nil {
		t.Fatal("expected validation error at build time")
	}
}
