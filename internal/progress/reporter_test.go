package progress

import (
	"bytes"
	"strings"
	"testing"
)

func TestCIReporter(t *testing.T) {
	var buf bytes.Buffer
	r := NewCIReporter(&buf)
	r.Start("push joke")
	r.Step("uploading")
	r.Finish(true, "joke pushed")

	out := buf.String()
	for _, want := range []string{"push joke\n", "  uploading\n", "ok joke pushed ("} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestCIReporterFailure(t *testing.T) {
	var buf bytes.Buffer
	r := NewCIReporter(&buf)
	r.Start("scale")
	r.Finish(false, "not_found: no application joke")
	if !strings.Contains(buf.String(), "failed not_found: no application joke") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}
}

func TestTerminalReporterWritesSummary(t *testing.T) {
	var buf bytes.Buffer
	r := &TerminalReporter{out: &buf}
	r.Start("list-apps")
	r.Step("waiting")
	r.Finish(true, "2 apps")
	if !strings.Contains(buf.String(), "ok 2 apps") {
		t.Errorf("summary missing:\n%s", buf.String())
	}
}

func TestNewReporterInCI(t *testing.T) {
	t.Setenv("CI", "true")
	if _, ok := NewReporter().(*CIReporter); !ok {
		t.Error("expected CIReporter when CI is set")
	}
}
