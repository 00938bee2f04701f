package mortar

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/gowebpki/jcs"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"
)

// jsonAPI encodes values for EncodeAsJSON fields. HTML characters are left as
// they are and map keys are sorted so that identical requests always produce
// identical payloads.
var jsonAPI = jsoniter.Config{
	EscapeHTML:             false,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
}.Froze()

// ErrDuplicateField is reported when a command table names a field more than
// once.
var ErrDuplicateField = errors.New("form: field named more than once")

// ErrNotSequence is reported when an AppendEach field does not hold a slice or
// array.
var ErrNotSequence = errors.New("form: value is not a sequence")

// FieldError describes a field that was dropped from a payload because its
// value or command was malformed. It is only returned in strict mode.
type FieldError struct {
	Field   string
	Command Command
	Err     error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("form: field %q (%s): %v", e.Field, e.Command, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// FormTransformer is implemented by requests that build their own payload.
// [Encode] calls TransformForm instead of consulting the command table.
type FormTransformer interface {
	TransformForm() (Payload, error)
}

// Option configures [Encode] and [Encoder].
type Option func(*config)

// WithLogger logs a warning for every field dropped because of a malformed
// value, an unknown command or a duplicate table entry.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithStrict makes fields dropped because of a malformed value, an unknown
// command or a duplicate table entry an error. Missing and nil fields are
// never an error.
func WithStrict() Option {
	return func(c *config) {
		c.strict = true
	}
}

// WithCanonicalJSON encodes JSON fields in the RFC 8785 canonical form.
func WithCanonicalJSON() Option {
	return func(c *config) {
		c.canonical = true
	}
}

type config struct {
	logger    zerolog.Logger
	strict    bool
	canonical bool
}

func newConfig(opts []Option) *config {
	c := &config{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Encode builds the form payload of request according to commands. Fields are
// visited in table order; fields that are missing or nil are skipped, as are
// fields of request that the table does not name.
//
// request may be a [FieldSource], a struct (fields are matched by their form
// tag or Go name), or a map with string keys. A request implementing
// [FormTransformer] builds its own payload.
//
// The only error outside strict mode is a failure to encode a JSON field.
func Encode(request any, commands Commands, opts ...Option) (Payload, error) {
	return newConfig(opts).encode(request, commands)
}

func (c *config) encode(request any, commands Commands) (Payload, error) {
	if isAbsent(request) {
		return Payload{}, nil
	}
	if t, ok := request.(FormTransformer); ok {
		return t.TransformForm()
	}

	src := sourceOf(request)
	payload := Payload{}

	var dropped []error
	seen := make(map[string]bool, len(commands))
	for _, fc := range commands {
		if seen[fc.Name] {
			dropped = c.drop(dropped, fc, nil, ErrDuplicateField)
			continue
		}
		seen[fc.Name] = true

		value, ok := src.Field(fc.Name)
		if !ok || isAbsent(value) {
			continue
		}

		switch fc.Command {
		case AppendEach:
			elems, ok := sequence(value)
			if !ok {
				dropped = c.drop(dropped, fc, value, ErrNotSequence)
				continue
			}
			for _, elem := range elems {
				if isAbsent(elem) {
					continue
				}
				payload = append(payload, Pair{Name: fc.Name, Value: elem})
			}
		case AppendSingle:
			payload = append(payload, Pair{Name: fc.Name, Value: value})
		case EncodeAsJSON:
			text, err := c.marshalJSON(value)
			if err != nil {
				return nil, fmt.Errorf("form: field %q: %w", fc.Name, err)
			}
			payload = append(payload, Pair{Name: fc.Name, Value: text})
		default:
			dropped = c.drop(dropped, fc, value, ErrUnknownCommand)
		}
	}

	if len(dropped) > 0 {
		return nil, errors.Join(dropped...)
	}
	return payload, nil
}

func (c *config) drop(dropped []error, fc FieldCommand, value any, reason error) []error {
	c.logger.Warn().
		Str("field", fc.Name).
		Str("command", fc.Command.String()).
		Str("type", fmt.Sprintf("%T", value)).
		Err(reason).
		Msg("form: field dropped")

	if !c.strict {
		return dropped
	}
	return append(dropped, &FieldError{Field: fc.Name, Command: fc.Command, Err: reason})
}

func (c *config) marshalJSON(v any) (string, error) {
	b, err := jsonAPI.Marshal(v)
	if err != nil {
		return "", err
	}
	if c.canonical {
		if b, err = jcs.Transform(b); err != nil {
			return "", err
		}
	}
	return string(b), nil
}

// sequence returns the elements of a slice or array. Byte slices are binary
// values, not sequences.
func sequence(v any) ([]any, bool) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return nil, false
		}
	case reflect.Array:
	default:
		return nil, false
	}

	elems := make([]any, rv.Len())
	for i := range elems {
		elems[i] = rv.Index(i).Interface()
	}
	return elems, true
}
