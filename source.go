package mortar

import (
	"reflect"
)

// FieldSource provides named field values to [Encode]. Field reports false
// when the request has no such field.
type FieldSource interface {
	Field(name string) (any, bool)
}

// Fields maps field names to typed accessors for a request type R. Build it
// once per request shape and [Fields.Bind] it to each request.
type Fields[R any] map[string]func(R) any

// Bind returns a [FieldSource] reading the fields of r.
func (f Fields[R]) Bind(r R) FieldSource {
	return boundFields[R]{accessors: f, request: r}
}

type boundFields[R any] struct {
	accessors Fields[R]
	request   R
}

func (b boundFields[R]) Field(name string) (any, bool) {
	get, ok := b.accessors[name]
	if !ok || get == nil {
		return nil, false
	}
	return get(b.request), true
}

// sourceOf returns a FieldSource for request. Structs are read by their form
// tags and maps by their string keys; anything else has no fields.
func sourceOf(request any) FieldSource {
	if s, ok := request.(FieldSource); ok {
		return s
	}

	rv := reflect.ValueOf(request)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return emptySource{}
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Struct:
		// Fields must be addressable to reach pointer receiver marshalers.
		if !rv.CanAddr() {
			addr := reflect.New(rv.Type()).Elem()
			addr.Set(rv)
			rv = addr
		}
		return structSource{rv}
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			return mapSource{rv}
		}
	}
	return emptySource{}
}

type emptySource struct{}

func (emptySource) Field(string) (any, bool) { return nil, false }

type structSource struct {
	v reflect.Value
}

func (s structSource) Field(name string) (any, bool) {
	i, t := fieldIndex(s.v.Type(), name)
	if i < 0 {
		return nil, false
	}
	fv := s.v.Field(i)
	if t.Omit && isEmptyValue(fv) {
		return nil, false
	}
	if fv.CanAddr() && needsAddr(fv.Type()) {
		return fv.Addr().Interface(), true
	}
	return fv.Interface(), true
}

// needsAddr reports whether t only marshals itself through a pointer
// receiver.
func needsAddr(t reflect.Type) bool {
	if t.Kind() == reflect.Pointer || t.Kind() == reflect.Interface {
		return false
	}
	pt := reflect.PointerTo(t)
	if !t.Implements(marshalerType) && pt.Implements(marshalerType) {
		return true
	}
	return !t.Implements(textMarshalerType) && pt.Implements(textMarshalerType)
}

type mapSource struct {
	v reflect.Value
}

func (s mapSource) Field(name string) (any, bool) {
	key := reflect.ValueOf(name).Convert(s.v.Type().Key())
	mv := s.v.MapIndex(key)
	if !mv.IsValid() {
		return nil, false
	}
	return mv.Interface(), true
}

// isAbsent reports whether v stands for a missing value: nil, or a nil
// pointer, map, slice, interface, channel or function.
func isAbsent(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Chan, reflect.Func:
		return rv.IsNil()
	}
	return false
}

func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.Interface, reflect.Pointer:
		return v.IsZero()
	}
	return false
}
