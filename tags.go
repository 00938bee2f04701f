package mortar

import (
	"reflect"
	"strings"
	"sync"
)

// cache of struct tags to avoid repeated parsing of the same struct type across
// multiple calls to tags. The key is the [reflect.Type] of the struct, and the
// value is a slice of *tag, one for each field on the struct.
//
// This cache is safe for concurrent use.
var structTagCache sync.Map

type tag struct {
	Name    string
	Omit    bool
	Ignore  bool
	Command Command // zero when the tag does not name one
}

func tags(tt reflect.Type) []*tag {
	if tt.Kind() != reflect.Struct {
		return []*tag{}
	}

	// Check the cache first.
	if cached, ok := structTagCache.Load(tt); ok {
		return cached.([]*tag)
	}

	tags := make([]*tag, tt.NumField())
	for i := 0; i < tt.NumField(); i++ {
		f := tt.Field(i)
		tag := parseTag(f.Tag.Get("form"))
		if !f.IsExported() {
			tag.Ignore = true
		}
		if !tag.Ignore && tag.Name == "" {
			tag.Name = f.Name
		}
		tags[i] = tag
	}

	structTagCache.Store(tt, tags)
	return tags
}

// fieldIndex returns the index of the struct field encoded under name, or -1.
func fieldIndex(tt reflect.Type, name string) (int, *tag) {
	for i, t := range tags(tt) {
		if !t.Ignore && t.Name == name {
			return i, t
		}
	}
	return -1, nil
}

func parseTag(str string) *tag {
	str = strings.TrimSpace(str)
	if str == "-" {
		return &tag{Ignore: true}
	}

	parts := strings.Split(str, ",")
	t := &tag{}

	// The first part of the tag is the name of the field. If the first part is
	// a hyphen, then the field should be ignored.
	switch name := strings.TrimSpace(parts[0]); name {
	case "-":
		t.Ignore = true
	default:
		t.Name = name
	}

	// The remaining parts of the tag are flags that modify the behaviour of the
	// field.
	for _, p := range parts[1:] {
		switch p = strings.TrimSpace(p); p {
		case "omitempty":
			t.Omit = true
		case "ignore":
			t.Ignore = true
		case "append", "each", "json":
			t.Command, _ = ParseCommand(p)
		}
	}

	return t
}
