package specification

import (
	"testing"
	"time"

	"github.com/goliatone/go-persistence/query"
)

type product struct {
	ID        string
	Name      string
	Status    string
	Price     float64
	Stock     int
	Tags      []string
	Metadata  map[string]any
	DeletedAt *time.Time
}

func mustBuild(t *testing.T, b *Builder) Specification {
	t.Helper()
	spec, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return spec
}

func TestIsSatisfiedByFilters(t *testing.T) {
	p := &product{
		ID:     "p1",
		Name:   "Hydraulic Pump",
		Status: "active",
		Price:  149.99,
		Stock:  12,
		Tags:   []string{"hydraulics", "industrial"},
		Metadata: map[string]any{
			"region": "eu",
			"tier":   "a",
		},
	}

	tests := []struct {
		name    string
		builder *Builder
		want    bool
	}{
		{"equals match", New().Equals("status", "active"), true},
		{"equals miss", New().Equals("status", "archived"), false},
		{"numeric compare across int kinds", New().Where("stock", ">", 10), true},
		{"between inclusive", New().Between("price", 149.99, 200), true},
		{"like pattern", New().Where("name", "like", "%Pump"), true},
		{"like pattern case miss", New().Where("name", "like", "%pump"), false},
		{"ilike pattern", New().Where("name", "ilike", "%pump"), true},
		{"contains", New().Contains("name", "draul"), true},
		{"regex", New().Where("id", "regex", "^p[0-9]+$"), true},
		{"in list", New().InList("status", "active", "pending"), true},
		{"not in", New().Where("status", "not in", []string{"archived"}), true},
		{"is null hit", New().IsNull("deleted_at"), true},
		{"is not null miss", New().Where("deleted_at", "is not null", nil), false},
		{"array contains", New().Where("tags", "array_contains", []string{"industrial"}), true},
		{"array overlaps", New().Where("tags", "&&", []string{"nope", "hydraulics"}), true},
		{"array not empty", New().Where("tags", "array_not_empty", nil), true},
		{"json has key", New().Where("metadata", "json_has_key", "region"), true},
		{"json contains", New().Where("metadata", "json_contains", map[string]any{"region": "eu"}), true},
		{"json contains miss", New().Where("metadata", "json_contains", map[string]any{"region": "us"}), false},
		{"missing field", New().Equals("no_such_field", 1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := mustBuild(t, tt.builder)
			if got := spec.IsSatisfiedBy(p); got != tt.want {
				t.Errorf("IsSatisfiedBy = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsSatisfiedByGroups(t *testing.T) {
	p := &product{Status: "pending", Stock: 3}

	spec := mustBuild(t, New().
		Group(query.LogicalOr).
		Equals("status", "active").
		Equals("status", "pending").
		EndGroup())
	if !spec.IsSatisfiedBy(p) {
		t.Error("OR group should match on second branch")
	}

	spec = mustBuild(t, New().
		Group(query.LogicalAnd).
		Equals("status", "pending").
		Where("stock", ">", 5).
		EndGroup())
	if spec.IsSatisfiedBy(p) {
		t.Error("AND group should fail on stock")
	}
}

func TestCombinatorsReturnNewInstances(t *testing.T) {
	base := mustBuild(t, New().Equals("status", "active"))

	extended := base.WithFilters(query.MustFilter("stock", query.OpGreaterThan, 0)).
		WithSorts(query.Sort{Field: "name", Direction: query.Ascending}).
		WithPage(query.PageParams{Page: 2, Size: 10})

	if got := len(base.QueryParams().Filters); got != 1 {
		t.Errorf("base mutated: %d filters", got)
	}
	if base.QueryParams().Page != nil {
		t.Error("base page mutated")
	}

	ep := extended.QueryParams()
	if len(ep.Filters) != 2 || ep.Page == nil || len(ep.Sorts) != 1 {
		t.Errorf("extended params wrong: %+v", ep)
	}
}

func TestAndOrCombinators(t *testing.T) {
	active := mustBuild(t, New().Equals("status", "active"))
	inStock := mustBuild(t, New().Where("stock", ">", 0))

	both := active.And(inStock)
	if got := len(both.QueryParams().Filters); got != 2 {
		t.Errorf("And filters = %d, want 2", got)
	}

	either := active.Or(inStock)
	ep := either.QueryParams()
	if len(ep.Filters) != 0 {
		t.Errorf("Or should collapse leaf filters into a group, got %d", len(ep.Filters))
	}
	if len(ep.Groups) != 1 || ep.Groups[0].Operator != query.LogicalOr {
		t.Fatalf("Or groups = %+v", ep.Groups)
	}

	out := &product{Status: "archived", Stock: 5}
	if !either.IsSatisfiedBy(out) {
		t.Error("Or should match on the stock branch")
	}
	if both.IsSatisfiedBy(out) {
		t.Error("And should not match an archived product")
	}
}

func TestDigestStability(t *testing.T) {
	a := mustBuild(t, New().Equals("status", "active").Paginate(1, 20))
	b := mustBuild(t, New().Equals("status", "active").Paginate(1, 20))
	c := mustBuild(t, New().Equals("status", "active").Paginate(2, 20))

	if a.Digest() != b.Digest() {
		t.Error("equal specifications should hash equally")
	}
	if a.Digest() == c.Digest() {
		t.Error("different pages should hash differently")
	}
}

func TestQueryParamsCopyIsolated(t *testing.T) {
	spec := mustBuild(t, New().Equals("status", "active"))
	p := spec.QueryParams()
	p.Filters[0] = query.MustFilter("status", query.OpEqual, "tampered")

	if spec.QueryParams().Filters[0].Value != "active" {
		t.Error("QueryParams must return an isolated copy")
	}
}
