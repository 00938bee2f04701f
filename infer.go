package mortar

import (
	"encoding"
	"fmt"
	"io"
	"reflect"
)

var (
	marshalerType     = reflect.TypeOf((*Marshaler)(nil)).Elem()
	textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
	readerType        = reflect.TypeOf((*io.Reader)(nil)).Elem()
	fileType          = reflect.TypeOf(File{})
)

// CommandsOf derives a command table from the form tags of the struct v, in
// field declaration order. A tag option of append, each or json picks the
// command explicitly; otherwise it is inferred from the field type:
//
//   - slices and arrays of files, readers or byte slices are appended element
//     by element;
//   - other slices and arrays, structs and maps are encoded as JSON;
//   - everything else, including values implementing [Marshaler] or
//     [encoding.TextMarshaler], is appended as a single value.
func CommandsOf(v any) (Commands, error) {
	var tt reflect.Type
	if rt, ok := v.(reflect.Type); ok {
		tt = rt
	} else {
		tt = reflect.TypeOf(v)
	}
	for tt != nil && tt.Kind() == reflect.Pointer {
		tt = tt.Elem()
	}
	if tt == nil || tt.Kind() != reflect.Struct {
		return nil, fmt.Errorf("form: commands can only be derived from a struct, got %v", tt)
	}

	var commands Commands
	for i, t := range tags(tt) {
		if t.Ignore || t.Name == "" {
			continue
		}
		cmd := t.Command
		if !cmd.valid() {
			cmd = inferCommand(tt.Field(i).Type)
		}
		commands = append(commands, FieldCommand{Name: t.Name, Command: cmd})
	}
	return commands, nil
}

func inferCommand(t reflect.Type) Command {
	if isSingle(t) {
		return AppendSingle
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	switch t.Kind() {
	case reflect.Slice, reflect.Array:
		if isFileLike(t.Elem()) {
			return AppendEach
		}
		return EncodeAsJSON
	case reflect.Struct, reflect.Map:
		return EncodeAsJSON
	default:
		return AppendSingle
	}
}

// isSingle reports whether values of t are sent as a single form value
// regardless of their kind.
func isSingle(t reflect.Type) bool {
	if t.Implements(marshalerType) || reflect.PointerTo(t).Implements(marshalerType) {
		return true
	}
	if t.Implements(textMarshalerType) || reflect.PointerTo(t).Implements(textMarshalerType) {
		return true
	}
	return isFileLike(t)
}

func isFileLike(t reflect.Type) bool {
	switch {
	case t == fileType, t.Kind() == reflect.Pointer && t.Elem() == fileType:
		return true
	case t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8:
		return true
	case t.Implements(readerType):
		return true
	}
	return false
}
