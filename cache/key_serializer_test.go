package cache

import (
	"strings"
	"testing"

	"github.com/goliatone/go-persistence/query"
)

func TestEntityKeyLayout(t *testing.T) {
	s := NewDefaultKeySerializer()

	key := s.EntityKey("InventoryItem", "get", "42")
	if key != "inventory_item::get::id:42" {
		t.Errorf("EntityKey = %q", key)
	}
}

func TestQueryKeyIsOrderIndependent(t *testing.T) {
	s := NewDefaultKeySerializer()

	a := query.Params{Filters: []query.Filter{
		{Field: "status", Operator: query.OpEqual, Value: "active"},
		{Field: "quantity", Operator: query.OpLessThan, Value: 10},
	}}
	b := query.Params{Filters: []query.Filter{
		{Field: "quantity", Operator: query.OpLessThan, Value: 10},
		{Field: "status", Operator: query.OpEqual, Value: "active"},
	}}

	if s.QueryKey("Item", "list", a) != s.QueryKey("Item", "list", b) {
		t.Error("logically equal params should produce the same key")
	}
}

func TestQueryKeyDistinguishesParams(t *testing.T) {
	s := NewDefaultKeySerializer()

	a := query.Params{Filters: []query.Filter{{Field: "status", Operator: query.OpEqual, Value: "active"}}}
	b := query.Params{Filters: []query.Filter{{Field: "status", Operator: query.OpEqual, Value: "archived"}}}

	if s.QueryKey("Item", "list", a) == s.QueryKey("Item", "list", b) {
		t.Error("different filter values must not collide")
	}
}

func TestQueryKeyIncludesPagination(t *testing.T) {
	s := NewDefaultKeySerializer()

	base := query.Params{Filters: []query.Filter{{Field: "status", Operator: query.OpEqual, Value: "active"}}}
	paged := base.Clone()
	paged.Page = &query.PageParams{Page: 2, Size: 25}

	if s.QueryKey("Item", "list", base) == s.QueryKey("Item", "list", paged) {
		t.Error("pagination must be part of the key")
	}
}

func TestDigestKeyShape(t *testing.T) {
	s := NewDefaultKeySerializer()

	params := query.Params{
		GroupBy:    []string{"category"},
		Statistics: []query.Statistic{{Func: query.AggCount, Field: "id"}},
	}
	key := s.DigestKey("InventoryItem", "aggregate", params)

	segs := strings.Split(key, KeySeparator)
	if len(segs) != 3 {
		t.Fatalf("expected 3 segments, got %q", key)
	}
	if segs[0] != "inventory_item" || segs[1] != "aggregate" {
		t.Errorf("unexpected prefix segments in %q", key)
	}
	if !strings.HasPrefix(segs[2], "q:") || len(segs[2]) != len("q:")+16 {
		t.Errorf("digest segment should be q:<16 hex chars>, got %q", segs[2])
	}

	if key != s.DigestKey("InventoryItem", "aggregate", params.Clone()) {
		t.Error("digest must be stable for equal params")
	}
}

func TestInvalidationPatterns(t *testing.T) {
	s := NewDefaultKeySerializer()

	if got := s.IDPattern("InventoryItem", "7"); got != "inventory_item::*::id:7" {
		t.Errorf("IDPattern = %q", got)
	}
	if got := s.QueryPattern("InventoryItem"); got != "inventory_item::*::q:*" {
		t.Errorf("QueryPattern = %q", got)
	}
}

func TestSerializeValueDeterminism(t *testing.T) {
	s := &defaultKeySerializer{}

	m := map[string]any{"b": 2, "a": 1, "c": 3}
	first := s.serializeValue(m)
	for i := 0; i < 20; i++ {
		if s.serializeValue(m) != first {
			t.Fatal("map serialization must be order independent")
		}
	}

	if s.serializeValue(nil) != "nil" {
		t.Error("nil should serialize as nil")
	}
	n := 5
	if s.serializeValue(&n) != s.serializeValue(5) {
		t.Error("pointers should serialize as their pointee")
	}
	if s.serializeValue([]string{"a", "b"}) == s.serializeValue([]string{"b", "a"}) {
		t.Error("slice order is significant")
	}
}
