package catalog

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ArgError reports a parameter whose value does not match its declared type.
type ArgError struct {
	Param  string
	Reason string
}

func (e *ArgError) Error() string {
	return fmt.Sprintf("parameter %s: %s", e.Param, e.Reason)
}

// Args carries command arguments by parameter name. Values arrive either
// decoded from JSON (float64, bool, string, []any, map[string]any) or from
// Go callers and CLI flags (int, []string, map[string]string, strings).
type Args map[string]any

// Has reports whether name carries a usable value. Absent keys, nil values
// and empty strings count as absent.
func (a Args) Has(name string) bool {
	v, ok := a[name]
	if !ok || v == nil {
		return false
	}
	if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
		return false
	}
	return true
}

// String returns a string argument, or "" when absent.
func (a Args) String(name string) (string, error) {
	if !a.Has(name) {
		return "", nil
	}
	switch v := a[name].(type) {
	case string:
		return strings.TrimSpace(v), nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		return "", &ArgError{Param: name, Reason: fmt.Sprintf("expected string, got %T", v)}
	}
}

// OptionalInt returns an integer argument, or nil when absent. A nil result
// means "leave the attribute unchanged", never zero.
func (a Args) OptionalInt(name string) (*int, error) {
	if !a.Has(name) {
		return nil, nil
	}
	var n int
	switch v := a[name].(type) {
	case int:
		n = v
	case int32:
		n = int(v)
	case int64:
		n = int(v)
	case float64:
		if v != math.Trunc(v) {
			return nil, &ArgError{Param: name, Reason: fmt.Sprintf("expected integer, got %v", v)}
		}
		n = int(v)
	case json.Number:
		i, err := v.Int64()
		if err != nil {
			return nil, &ArgError{Param: name, Reason: fmt.Sprintf("expected integer, got %q", v.String())}
		}
		n = int(i)
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, &ArgError{Param: name, Reason: fmt.Sprintf("expected integer, got %q", v)}
		}
		n = i
	default:
		return nil, &ArgError{Param: name, Reason: fmt.Sprintf("expected integer, got %T", v)}
	}
	if n < 0 {
		return nil, &ArgError{Param: name, Reason: "must not be negative"}
	}
	return &n, nil
}

// OptionalBool returns a boolean argument, or nil when absent.
func (a Args) OptionalBool(name string) (*bool, error) {
	if !a.Has(name) {
		return nil, nil
	}
	switch v := a[name].(type) {
	case bool:
		return &v, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return nil, &ArgError{Param: name, Reason: fmt.Sprintf("expected boolean, got %q", v)}
		}
		return &b, nil
	default:
		return nil, &ArgError{Param: name, Reason: fmt.Sprintf("expected boolean, got %T", v)}
	}
}

// StringMap returns a string-to-string mapping argument. Scalar values are
// formatted as strings; nested objects and lists are rejected.
func (a Args) StringMap(name string) (map[string]string, error) {
	if !a.Has(name) {
		return nil, nil
	}
	switch v := a[name].(type) {
	case map[string]string:
		out := make(map[string]string, len(v))
		for k, val := range v {
			out[k] = val
		}
		return out, nil
	case map[string]any:
		out := make(map[string]string, len(v))
		for k, val := range v {
			switch s := val.(type) {
			case string:
				out[k] = s
			case float64, bool, int, int64, json.Number:
				out[k] = fmt.Sprint(s)
			default:
				return nil, &ArgError{Param: name, Reason: fmt.Sprintf("value for key %q must be a string, got %T", k, val)}
			}
		}
		return out, nil
	case string:
		// JSON text, as passed on a command line.
		var out map[string]string
		if err := json.Unmarshal([]byte(v), &out); err != nil {
			return nil, &ArgError{Param: name, Reason: "expected an object of string values"}
		}
		return out, nil
	default:
		return nil, &ArgError{Param: name, Reason: fmt.Sprintf("expected object, got %T", v)}
	}
}

// StringList returns an ordered list-of-strings argument.
func (a Args) StringList(name string) ([]string, error) {
	if !a.Has(name) {
		return nil, nil
	}
	switch v := a[name].(type) {
	case []string:
		return append([]string(nil), v...), nil
	case []any:
		out := make([]string, 0, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, &ArgError{Param: name, Reason: fmt.Sprintf("item %d must be a string, got %T", i, item)}
			}
			out = append(out, s)
		}
		return out, nil
	case string:
		var out []string
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out, nil
	default:
		return nil, &ArgError{Param: name, Reason: fmt.Sprintf("expected list, got %T", v)}
	}
}

// ParseArgs decodes a JSON object of arguments, as sent by a model tool call
// or an HTTP body. An empty input yields empty Args.
func ParseArgs(raw string) (Args, error) {
	args := Args{}
	if strings.TrimSpace(raw) == "" {
		return args, nil
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("decoding arguments: %w", err)
	}
	return args, nil
}
