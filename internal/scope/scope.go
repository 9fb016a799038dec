// Package scope resolves the organization and space a command runs against.
package scope

import "strings"

// Scope is the (organization, space) pair a dispatch is bound to. An empty
// field means the platform default applies. Scope is a value type: it is
// built per invocation and copied, never shared or mutated.
type Scope struct {
	Org   string `json:"org"`
	Space string `json:"space"`
}

// Resolve builds a Scope from raw caller input. It does not check that the
// organization or space exist; the platform reports that at dispatch time.
func Resolve(org, space string) Scope {
	return Scope{
		Org:   strings.TrimSpace(org),
		Space: strings.TrimSpace(space),
	}
}

// IsZero reports whether neither field is set.
func (s Scope) IsZero() bool {
	return s.Org == "" && s.Space == ""
}

// WithDefaults fills empty fields from the given defaults.
func (s Scope) WithDefaults(org, space string) Scope {
	if s.Org == "" {
		s.Org = org
	}
	if s.Space == "" {
		s.Space = space
	}
	return s
}

func (s Scope) String() string {
	org, space := s.Org, s.Space
	if org == "" {
		org = "<default>"
	}
	if space == "" {
		space = "<default>"
	}
	return org + "/" + space
}
