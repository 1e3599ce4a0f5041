package storage

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// EncodedResult is the serialized form of a Result for cache backends that
// round-trip values through a byte encoding. Entity payloads stay as raw
// JSON so the read path can decode them back into the operation's entity
// type instead of generic maps.
type EncodedResult struct {
	Entity       json.RawMessage   `json:"entity,omitempty"`
	Entities     []json.RawMessage `json:"entities,omitempty"`
	Rows         []map[string]any  `json:"rows,omitempty"`
	Total        int               `json:"total,omitempty"`
	RowsAffected int64             `json:"rows_affected,omitempty"`
}

// EncodeResult serializes res. A pointer-to-slice Entity, the shape list
// scans echo back, is flattened into Entities so decoding only ever needs
// the element type.
func EncodeResult(res Result) (EncodedResult, error) {
	enc := EncodedResult{
		Rows:         res.Rows,
		Total:        res.Total,
		RowsAffected: res.RowsAffected,
	}

	single := res.Entity
	many := res.Entities
	if single != nil {
		if elems, ok := sliceElements(single); ok {
			many = elems
			single = nil
		}
	}

	if single != nil {
		data, err := json.Marshal(single)
		if err != nil {
			return EncodedResult{}, err
		}
		enc.Entity = data
	}
	for _, e := range many {
		data, err := json.Marshal(e)
		if err != nil {
			return EncodedResult{}, err
		}
		enc.Entities = append(enc.Entities, data)
	}
	return enc, nil
}

// Decode rebuilds a Result, unmarshaling entity payloads into fresh values
// of prototype's pointed-to type. prototype is only consulted when the
// encoded result carries entities; a typed nil pointer is fine.
func (e EncodedResult) Decode(prototype any) (Result, error) {
	res := Result{
		Rows:         e.Rows,
		Total:        e.Total,
		RowsAffected: e.RowsAffected,
	}
	if len(e.Entity) == 0 && len(e.Entities) == 0 {
		return res, nil
	}

	t := reflect.TypeOf(prototype)
	if t == nil || t.Kind() != reflect.Pointer {
		return Result{}, fmt.Errorf("storage: decoding entities needs a pointer prototype, got %T", prototype)
	}

	alloc := func(raw json.RawMessage) (any, error) {
		v := reflect.New(t.Elem()).Interface()
		if err := json.Unmarshal(raw, v); err != nil {
			return nil, err
		}
		return v, nil
	}

	if len(e.Entity) > 0 {
		v, err := alloc(e.Entity)
		if err != nil {
			return Result{}, err
		}
		res.Entity = v
	}
	for _, raw := range e.Entities {
		v, err := alloc(raw)
		if err != nil {
			return Result{}, err
		}
		res.Entities = append(res.Entities, v)
	}
	return res, nil
}

// sliceElements unpacks a pointer-to-slice into its elements.
func sliceElements(v any) ([]any, bool) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Slice {
		return nil, false
	}
	slice := rv.Elem()
	out := make([]any, slice.Len())
	for i := range out {
		out[i] = slice.Index(i).Interface()
	}
	return out, true
}
