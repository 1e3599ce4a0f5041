// Package entity defines how the middleware reads and writes named
// persistence fields (audit stamps, soft-delete flags, version counters) on
// caller-supplied entities.
//
// Entities can opt into fast, reflection-free access by implementing
// FieldAccessor, typically by embedding Audited, Versioned or SoftDeletable.
// Plain structs fall back to a reflection resolver that matches bun and json
// column tags as well as snake_cased field names.
package entity

import (
	"fmt"
	"reflect"
	"strings"

	errors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-persistence/internal/strcase"
)

// FieldAccessor exposes named persistence fields without reflection.
// GetField returns the current value and whether the field exists; SetField
// mutates it in place.
type FieldAccessor interface {
	GetField(name string) (any, bool)
	SetField(name string, value any) error
}

// Access adapts any entity to FieldAccessor. Entities implementing the
// interface are used directly; everything else goes through the reflection
// resolver. Pass a pointer when fields need to be settable.
func Access(e any) FieldAccessor {
	if fa, ok := e.(FieldAccessor); ok {
		return fa
	}
	return &reflectAccessor{target: e}
}

// TypeName returns the snake_cased struct type name used as the entity
// namespace in cache keys and interceptor contexts.
func TypeName(e any) string {
	t := reflect.TypeOf(e)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil {
		return ""
	}
	name := t.Name()
	if idx := strings.IndexByte(name, '['); idx >= 0 {
		name = name[:idx]
	}
	return strcase.Snake(name)
}

// reflectAccessor resolves fields by bun tag, json tag or snake_cased field
// name, traversing embedded structs.
type reflectAccessor struct {
	target any
}

func (r *reflectAccessor) GetField(name string) (any, bool) {
	v := reflect.ValueOf(r.target)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil, false
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil, false
	}
	field, ok := resolveField(v, name)
	if !ok || !field.CanInterface() {
		return nil, false
	}
	return field.Interface(), true
}

func (r *reflectAccessor) SetField(name string, value any) error {
	v := reflect.ValueOf(r.target)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return errors.New(
			fmt.Sprintf("cannot set field %q: entity must be a non-nil pointer", name),
			errors.CategoryValidation,
		)
	}
	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return errors.New(
			fmt.Sprintf("cannot set field %q: entity must point to a struct", name),
			errors.CategoryValidation,
		)
	}

	field, ok := resolveField(v, name)
	if !ok {
		return errors.New(
			fmt.Sprintf("field %q not found on %T", name, r.target),
			errors.CategoryValidation,
		)
	}
	if !field.CanSet() {
		return errors.New(
			fmt.Sprintf("field %q on %T is not settable", name, r.target),
			errors.CategoryValidation,
		)
	}

	return assign(field, value)
}

// assign sets field to value, converting compatible types and allocating
// pointers for non-pointer values where needed.
func assign(field reflect.Value, value any) error {
	if value == nil {
		field.Set(reflect.Zero(field.Type()))
		return nil
	}

	rv := reflect.ValueOf(value)

	if rv.Type().AssignableTo(field.Type()) {
		field.Set(rv)
		return nil
	}

	// *T field, T value
	if field.Kind() == reflect.Ptr && rv.Type().AssignableTo(field.Type().Elem()) {
		ptr := reflect.New(field.Type().Elem())
		ptr.Elem().Set(rv)
		field.Set(ptr)
		return nil
	}

	// T field, *T value
	if rv.Kind() == reflect.Ptr && !rv.IsNil() && rv.Elem().Type().AssignableTo(field.Type()) {
		field.Set(rv.Elem())
		return nil
	}

	if rv.Type().ConvertibleTo(field.Type()) {
		field.Set(rv.Convert(field.Type()))
		return nil
	}

	return errors.New(
		fmt.Sprintf("cannot assign %T to field of type %s", value, field.Type()),
		errors.CategoryValidation,
	)
}

// resolveField locates the struct field matching name, checking bun tags,
// json tags and snake_cased field names, recursing into embedded structs.
func resolveField(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}

		if sf.Anonymous {
			embedded := v.Field(i)
			if embedded.Kind() == reflect.Ptr {
				if embedded.IsNil() {
					continue
				}
				embedded = embedded.Elem()
			}
			if embedded.Kind() == reflect.Struct {
				if f, ok := resolveField(embedded, name); ok {
					return f, true
				}
			}
			continue
		}

		if fieldMatches(sf, name) {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

func fieldMatches(sf reflect.StructField, name string) bool {
	if column := tagColumn(sf.Tag.Get("bun")); column != "" && column == name {
		return true
	}
	if column := tagColumn(sf.Tag.Get("json")); column != "" && column == name {
		return true
	}
	return strcase.Snake(sf.Name) == name
}

// tagColumn extracts the column name from a bun/json struct tag, dropping
// options after the first comma.
func tagColumn(tag string) string {
	if tag == "" || tag == "-" {
		return ""
	}
	if idx := strings.IndexByte(tag, ','); idx >= 0 {
		tag = tag[:idx]
	}
	return tag
}
