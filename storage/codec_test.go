package storage

import (
	"testing"
)

type codecItem struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Version int64  `json:"version"`
}

func TestEncodeDecodeSingleEntity(t *testing.T) {
	in := Result{Entity: &codecItem{ID: 7, Name: "bolt", Version: 2}}

	enc, err := EncodeResult(in)
	if err != nil {
		t.Fatalf("EncodeResult: %v", err)
	}
	out, err := enc.Decode((*codecItem)(nil))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	got, ok := out.Entity.(*codecItem)
	if !ok {
		t.Fatalf("decoded entity type %T, want *codecItem", out.Entity)
	}
	if got.ID != 7 || got.Name != "bolt" || got.Version != 2 {
		t.Errorf("decoded entity = %+v", got)
	}
}

func TestEncodeFlattensSlicePointerIntoEntities(t *testing.T) {
	list := []*codecItem{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}}
	in := Result{Entity: &list, Total: 2}

	enc, err := EncodeResult(in)
	if err != nil {
		t.Fatalf("EncodeResult: %v", err)
	}
	if len(enc.Entity) != 0 {
		t.Errorf("slice pointer should be flattened, got entity payload %s", enc.Entity)
	}
	if len(enc.Entities) != 2 {
		t.Fatalf("entities = %d, want 2", len(enc.Entities))
	}

	out, err := enc.Decode(&codecItem{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if out.Total != 2 || len(out.Entities) != 2 {
		t.Fatalf("decoded result = %+v", out)
	}
	second, ok := out.Entities[1].(*codecItem)
	if !ok || second.ID != 2 || second.Name != "b" {
		t.Errorf("decoded element = %#v", out.Entities[1])
	}
}

func TestDecodeRowsOnlyNeedsNoPrototype(t *testing.T) {
	in := Result{Rows: []map[string]any{{"total": float64(5)}}}

	enc, err := EncodeResult(in)
	if err != nil {
		t.Fatalf("EncodeResult: %v", err)
	}
	out, err := enc.Decode(nil)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(out.Rows) != 1 || out.Rows[0]["total"] != float64(5) {
		t.Errorf("decoded rows = %+v", out.Rows)
	}
}

func TestDecodeRejectsNonPointerPrototype(t *testing.T) {
	enc, err := EncodeResult(Result{Entity: &codecItem{ID: 1}})
	if err != nil {
		t.Fatalf("EncodeResult: %v", err)
	}
	if _, err := enc.Decode(codecItem{}); err == nil {
		t.Fatal("value prototype should be rejected")
	}
	if _, err := enc.Decode(nil); err == nil {
		t.Fatal("nil prototype should be rejected when entities are present")
	}
}
