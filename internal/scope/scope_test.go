package scope

import "testing"

func TestResolve(t *testing.T) {
	tests := []struct {
		name       string
		org, space string
		want       Scope
	}{
		{"both", "acme", "dev", Scope{Org: "acme", Space: "dev"}},
		{"trimmed", "  acme ", "\tdev\n", Scope{Org: "acme", Space: "dev"}},
		{"empty", "", "", Scope{}},
		{"org only", "acme", "", Scope{Org: "acme"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.org, tt.space)
			if got != tt.want {
				t.Errorf("Resolve(%q, %q) = %+v, want %+v", tt.org, tt.space, got, tt.want)
			}
		})
	}
}

func TestIsZero(t *testing.T) {
	if !Resolve(" ", "").IsZero() {
		t.Error("expected whitespace-only scope to be zero")
	}
	if Resolve("acme", "").IsZero() {
		t.Error("expected org-only scope to be non-zero")
	}
}

func TestWithDefaultsDoesNotMutateOriginal(t *testing.T) {
	s := Resolve("", "dev")
	filled := s.WithDefaults("acme", "prod")

	if filled.Org != "acme" || filled.Space != "dev" {
		t.Errorf("WithDefaults = %+v, want acme/dev", filled)
	}
	if s.Org != "" {
		t.Errorf("original scope mutated: %+v", s)
	}
}

func TestString(t *testing.T) {
	if got := Resolve("acme", "").String(); got != "acme/<default>" {
		t.Errorf("String() = %q", got)
	}
}
