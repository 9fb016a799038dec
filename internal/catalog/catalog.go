// Package catalog describes the platform operations the gateway exposes as
// named, schema-described commands.
package catalog

import (
	"encoding/json"
	"fmt"
)

// ParamType is the declared type of a command parameter.
type ParamType string

const (
	TypeString     ParamType = "string"
	TypeInteger    ParamType = "integer"
	TypeBoolean    ParamType = "boolean"
	TypeStringMap  ParamType = "string_map"
	TypeStringList ParamType = "string_list"
)

// ParameterSpec declares one command parameter.
type ParameterSpec struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Required    bool      `json:"required"`
	Type        ParamType `json:"type"`
}

// CommandSpec declares a command: its unique name, a human description and
// its parameters in a stable order.
type CommandSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []ParameterSpec `json:"parameters"`
}

// Parameter returns the parameter with the given name.
func (c CommandSpec) Parameter(name string) (ParameterSpec, bool) {
	for _, p := range c.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return ParameterSpec{}, false
}

// MissingRequired returns the first required parameter, in declaration order,
// that args does not carry a usable value for.
func (c CommandSpec) MissingRequired(args Args) (string, bool) {
	for _, p := range c.Parameters {
		if p.Required && !args.Has(p.Name) {
			return p.Name, true
		}
	}
	return "", false
}

// JSONSchema returns the parameters as a JSON Schema object, the shape both
// model tool definitions and MCP tools expect.
func (c CommandSpec) JSONSchema() map[string]any {
	props := make(map[string]any, len(c.Parameters))
	required := []string{}
	for _, p := range c.Parameters {
		prop := typeSchema(p.Type)
		prop["description"] = p.Description
		props[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

// RawSchema is JSONSchema encoded as JSON.
func (c CommandSpec) RawSchema() json.RawMessage {
	b, err := json.Marshal(c.JSONSchema())
	if err != nil {
		// Schemas are built from plain maps and strings; this cannot fail.
		panic(fmt.Sprintf("catalog: encoding schema for %s: %v", c.Name, err))
	}
	return b
}

func typeSchema(t ParamType) map[string]any {
	switch t {
	case TypeInteger:
		return map[string]any{"type": "integer"}
	case TypeBoolean:
		return map[string]any{"type": "boolean"}
	case TypeStringMap:
		return map[string]any{
			"type":                 "object",
			"additionalProperties": map[string]any{"type": "string"},
		}
	case TypeStringList:
		return map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		}
	default:
		return map[string]any{"type": "string"}
	}
}

// Catalog is an ordered, read-only set of commands with unique names.
type Catalog struct {
	commands []CommandSpec
	index    map[string]int
}

// New builds a catalog, rejecting empty or duplicate command names and
// duplicate parameter names within a command.
func New(commands ...CommandSpec) (*Catalog, error) {
	c := &Catalog{
		commands: make([]CommandSpec, 0, len(commands)),
		index:    make(map[string]int, len(commands)),
	}
	for _, cmd := range commands {
		if cmd.Name == "" {
			return nil, fmt.Errorf("command with empty name")
		}
		if _, dup := c.index[cmd.Name]; dup {
			return nil, fmt.Errorf("duplicate command %q", cmd.Name)
		}
		seen := make(map[string]bool, len(cmd.Parameters))
		for _, p := range cmd.Parameters {
			if p.Name == "" {
				return nil, fmt.Errorf("command %q: parameter with empty name", cmd.Name)
			}
			if seen[p.Name] {
				return nil, fmt.Errorf("command %q: duplicate parameter %q", cmd.Name, p.Name)
			}
			seen[p.Name] = true
		}
		cmd.Parameters = append([]ParameterSpec(nil), cmd.Parameters...)
		c.index[cmd.Name] = len(c.commands)
		c.commands = append(c.commands, cmd)
	}
	return c, nil
}

// Lookup returns the command with the given name.
func (c *Catalog) Lookup(name string) (CommandSpec, bool) {
	i, ok := c.index[name]
	if !ok {
		return CommandSpec{}, false
	}
	return c.commands[i], true
}

// Commands returns the commands in catalog order. The slice is a copy.
func (c *Catalog) Commands() []CommandSpec {
	return append([]CommandSpec(nil), c.commands...)
}

// Names returns the command names in catalog order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.commands))
	for i, cmd := range c.commands {
		names[i] = cmd.Name
	}
	return names
}

// Len returns the number of commands.
func (c *Catalog) Len() int { return len(c.commands) }
