package diag

import (
	"strings"
	"testing"

	"github.com/bpetrakis/lacec/pkg/ast"
)

func TestHasErrorsOnlyAfterErrorOrFatal(t *testing.T) {
	c := New()
	sp := ast.NewSpan("test.lc", 1, 1)

	c.Notef(sp, "just a note")
	c.Warnf(sp, "just a warning")
	if c.HasErrors() {
		t.Error("notes and warnings should not count as errors")
	}

	c.Errorf(sp, "something went wrong")
	if !c.HasErrors() {
		t.Error("an Error diagnostic should make HasErrors true")
	}
}

func TestFatalfReturnsFatalError(t *testing.T) {
	c := New()
	sp := ast.NewSpan("test.lc", 2, 3)

	err := c.Fatalf(sp, "boom: %d", 42)
	if err == nil {
		t.Fatal("Fatalf should return a non-nil error")
	}
	fe, ok := err.(*FatalError)
	if !ok {
		t.Fatalf("expected *FatalError, got %T", err)
	}
	if fe.Diag.Severity != Fatal {
		t.Errorf("expected Fatal severity, got %s", fe.Diag.Severity)
	}
	if !strings.Contains(fe.Error(), "boom: 42") {
		t.Errorf("expected message to contain formatted text, got %q", fe.Error())
	}
}

func TestWriteToPrintsEveryDiagnostic(t *testing.T) {
	c := New()
	sp := ast.NewSpan("test.lc", 5, 1)
	c.Errorf(sp, "first")
	c.Warnf(sp, "second")

	var buf strings.Builder
	c.WriteTo(&buf)
	out := buf.String()

	if !strings.Contains(out, "first") || !strings.Contains(out, "second") {
		t.Errorf("expected both diagnostics written, got:\n%s", out)
	}
	if strings.Count(out, "\n") != 2 {
		t.Errorf("expected one line per diagnostic, got:\n%s", out)
	}
}

func TestDiagnosticStringOmitsSpanWhenFileEmpty(t *testing.T) {
	d := Diagnostic{Severity: Error, Message: "oops"}
	if got := d.String(); got != "error: oops" {
		t.Errorf("String() = %q, want %q", got, "error: oops")
	}
}
