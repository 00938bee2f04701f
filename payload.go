package mortar

import (
	"encoding"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"net/url"
	"reflect"
	"strconv"
	"strings"
)

// ErrBinaryValue is returned when a file is written somewhere only text
// values are allowed.
var ErrBinaryValue = errors.New("form: binary value cannot be url encoded")

// Marshaler is the interface implemented by types that can marshal themselves
// into a form value.
type Marshaler interface {
	MarshalForm() (string, error)
}

// Pair is a single form field.
type Pair struct {
	Name  string
	Value any
}

// Payload is an ordered list of form fields. A name may occur more than once.
type Payload []Pair

// Get returns the first value of the named field.
func (p Payload) Get(name string) (any, bool) {
	for _, pair := range p {
		if pair.Name == name {
			return pair.Value, true
		}
	}
	return nil, false
}

// Values returns every value of the named field in payload order.
func (p Payload) Values(name string) []any {
	var values []any
	for _, pair := range p {
		if pair.Name == name {
			values = append(values, pair.Value)
		}
	}
	return values
}

// Names returns the distinct field names in order of first appearance.
func (p Payload) Names() []string {
	var names []string
	seen := make(map[string]bool)
	for _, pair := range p {
		if !seen[pair.Name] {
			seen[pair.Name] = true
			names = append(names, pair.Name)
		}
	}
	return names
}

// URLValues returns the payload as [url.Values]. Files, readers and byte
// slices cannot be represented and produce [ErrBinaryValue].
func (p Payload) URLValues() (url.Values, error) {
	values := url.Values{}
	for _, pair := range p {
		switch pair.Value.(type) {
		case File, *File, io.Reader, []byte:
			return nil, fmt.Errorf("%w: field %q", ErrBinaryValue, pair.Name)
		}
		s, err := formValue(pair.Value)
		if err != nil {
			return nil, fmt.Errorf("form: field %q: %w", pair.Name, err)
		}
		values.Add(pair.Name, s)
	}
	return values, nil
}

// WriteMultipart writes every field of the payload to mw as its own part, in
// payload order. mw is not closed.
func (p Payload) WriteMultipart(mw *multipart.Writer) error {
	for _, pair := range p {
		if err := writePart(mw, pair); err != nil {
			return fmt.Errorf("form: field %q: %w", pair.Name, err)
		}
	}
	return nil
}

// File is a binary form value sent as a file part.
type File struct {
	Filename    string
	ContentType string
	Content     io.Reader
}

// defaultFilename is used for file parts that do not carry a name, matching
// what browsers send for anonymous blobs.
const defaultFilename = "blob"

func writePart(mw *multipart.Writer, pair Pair) error {
	switch v := pair.Value.(type) {
	case File:
		return writeFile(mw, pair.Name, v)
	case *File:
		if v == nil {
			return nil
		}
		return writeFile(mw, pair.Name, *v)
	case []byte:
		w, err := mw.CreateFormField(pair.Name)
		if err != nil {
			return err
		}
		_, err = w.Write(v)
		return err
	case io.Reader:
		return writeFile(mw, pair.Name, File{Content: v})
	}

	s, err := formValue(pair.Value)
	if err != nil {
		return err
	}
	return mw.WriteField(pair.Name, s)
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func writeFile(mw *multipart.Writer, name string, f File) error {
	filename := f.Filename
	if filename == "" {
		filename = defaultFilename
	}
	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(name), quoteEscaper.Replace(filename)))
	h.Set("Content-Type", contentType)

	w, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	if f.Content == nil {
		return nil
	}
	_, err = io.Copy(w, f.Content)
	return err
}

// formValue renders a text form value.
func formValue(v any) (string, error) {
	switch v := v.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case Marshaler:
		return v.MarshalForm()
	case encoding.TextMarshaler:
		b, err := v.MarshalText()
		if err != nil {
			return "", err
		}
		return string(b), nil
	case fmt.Stringer:
		return v.String(), nil
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return "", nil
		}
		rv = rv.Elem()
	}
	if m, ok := asMarshaler(rv); ok {
		return m.MarshalForm()
	}
	if rv.CanAddr() {
		if m, ok := rv.Addr().Interface().(encoding.TextMarshaler); ok {
			b, err := m.MarshalText()
			if err != nil {
				return "", err
			}
			return string(b), nil
		}
	}
	return getScalar(rv)
}

func asMarshaler(v reflect.Value) (Marshaler, bool) {
	if !v.IsValid() || !v.CanInterface() {
		return nil, false
	}
	if v.CanAddr() {
		if m, ok := v.Addr().Interface().(Marshaler); ok {
			return m, true
		}
	}
	if m, ok := v.Interface().(Marshaler); ok {
		return m, true
	}
	return nil, false
}

func getScalar(v reflect.Value) (string, error) {
	switch v.Kind() {
	case reflect.String:
		return v.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10), nil
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'f', -1, v.Type().Bits()), nil
	case reflect.Bool:
		return strconv.FormatBool(v.Bool()), nil
	case reflect.Invalid:
		return "", nil
	default:
		return "", fmt.Errorf("unsupported type %s", v.Type())
	}
}
