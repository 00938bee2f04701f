package mortar

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Command is the instruction used to encode a single request field.
type Command int

const (
	// AppendSingle appends the field value unchanged as one form value.
	AppendSingle Command = iota + 1
	// AppendEach appends every element of a sequence as its own form value.
	AppendEach
	// EncodeAsJSON appends the JSON encoding of the field value.
	EncodeAsJSON
)

// ErrUnknownCommand is reported for commands outside the known set.
var ErrUnknownCommand = errors.New("form: unknown command")

// ParseCommand parses the wire name of a command ("Append", "ArrayAppend" or
// "JSON") or its struct tag spelling ("append", "each" or "json").
func ParseCommand(s string) (Command, error) {
	switch strings.TrimSpace(s) {
	case "Append", "append":
		return AppendSingle, nil
	case "ArrayAppend", "each":
		return AppendEach, nil
	case "JSON", "json":
		return EncodeAsJSON, nil
	}
	return 0, fmt.Errorf("%w %q", ErrUnknownCommand, s)
}

// String returns the wire name of the command.
func (c Command) String() string {
	switch c {
	case AppendSingle:
		return "Append"
	case AppendEach:
		return "ArrayAppend"
	case EncodeAsJSON:
		return "JSON"
	default:
		return fmt.Sprintf("Command(%d)", int(c))
	}
}

func (c Command) valid() bool {
	return c >= AppendSingle && c <= EncodeAsJSON
}

// MarshalText implements [encoding.TextMarshaler].
func (c Command) MarshalText() ([]byte, error) {
	if !c.valid() {
		return nil, fmt.Errorf("%w %d", ErrUnknownCommand, int(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (c *Command) UnmarshalText(b []byte) error {
	cmd, err := ParseCommand(string(b))
	if err != nil {
		return err
	}
	*c = cmd
	return nil
}

// FieldCommand names a request field and how to encode it.
type FieldCommand struct {
	Name    string
	Command Command
}

// Commands is an ordered command table. Only the fields it names are encoded,
// and they are encoded in table order. A name should appear once; when it
// appears again, [Encode] uses the first entry and drops the rest.
type Commands []FieldCommand

// Lookup returns the command for the named field.
func (c Commands) Lookup(name string) (Command, bool) {
	for _, fc := range c {
		if fc.Name == name {
			return fc.Command, true
		}
	}
	return 0, false
}

// Set replaces the command for name in place, or appends it to the end of the
// table if name is not yet present.
func (c *Commands) Set(name string, cmd Command) {
	for i := range *c {
		if (*c)[i].Name == name {
			(*c)[i].Command = cmd
			return
		}
	}
	*c = append(*c, FieldCommand{Name: name, Command: cmd})
}

// Names returns the field names in table order.
func (c Commands) Names() []string {
	names := make([]string, len(c))
	for i, fc := range c {
		names[i] = fc.Name
	}
	return names
}

// LoadCommands reads a command table from a YAML mapping of field names to
// command names. Document order is kept.
func LoadCommands(r io.Reader) (Commands, error) {
	var c Commands
	if err := yaml.NewDecoder(r).Decode(&c); err != nil {
		if errors.Is(err, io.EOF) {
			return Commands{}, nil
		}
		return nil, fmt.Errorf("form: failed to load commands: %w", err)
	}
	return c, nil
}

// UnmarshalYAML implements [yaml.Unmarshaler]. A plain map would lose the
// order of the document, so the mapping node is walked directly.
func (c *Commands) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: commands must be a mapping", value.Line)
	}

	table := make(Commands, 0, len(value.Content)/2)
	seen := make(map[string]bool, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		key, val := value.Content[i], value.Content[i+1]

		var name string
		if err := key.Decode(&name); err != nil {
			return err
		}
		if seen[name] {
			return fmt.Errorf("line %d: duplicate field %q", key.Line, name)
		}
		seen[name] = true

		var text string
		if err := val.Decode(&text); err != nil {
			return fmt.Errorf("line %d: field %q: %w", val.Line, name, err)
		}
		cmd, err := ParseCommand(text)
		if err != nil {
			return fmt.Errorf("line %d: field %q: %w", val.Line, name, err)
		}
		table = append(table, FieldCommand{Name: name, Command: cmd})
	}

	*c = table
	return nil
}

// MarshalYAML implements [yaml.Marshaler], writing the table as an ordered
// mapping.
func (c Commands) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, fc := range c {
		text, err := fc.Command.MarshalText()
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", fc.Name, err)
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: fc.Name},
			&yaml.Node{Kind: yaml.ScalarNode, Value: string(text)},
		)
	}
	return node, nil
}

// String renders the table as YAML.
func (c Commands) String() string {
	var b bytes.Buffer
	enc := yaml.NewEncoder(&b)
	if err := enc.Encode(c); err != nil {
		return fmt.Sprintf("Commands(%d)", len(c))
	}
	_ = enc.Close()
	return b.String()
}
