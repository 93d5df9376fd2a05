// Package diag implements the diagnostics context threaded through every
// pass. No pass consults a package-level sink; each receives a *Context
// explicitly.
package diag

import (
	"fmt"
	"io"

	"github.com/bpetrakis/lacec/pkg/ast"
)

// Severity is one of the four diagnostic levels.
type Severity int

const (
	Note Severity = iota
	Warn
	Error
	Fatal
)

func (s Severity) String() string {
	return [...]string{"note", "warn", "error", "fatal"}[s]
}

// Diagnostic is one reported message.
type Diagnostic struct {
	Severity Severity
	Span     ast.Span
	Message  string
}

func (d Diagnostic) String() string {
	if d.Span.File == "" {
		return fmt.Sprintf("%s: %s", d.Severity, d.Message)
	}
	return fmt.Sprintf("%s: %s: %s", d.Span, d.Severity, d.Message)
}

// FatalError is returned by a pass's entry point when a Fatal diagnostic was
// raised; the CLI driver (cmd/lacec) treats it like any other error a pass
// returns and exits with status 1.
type FatalError struct {
	Diag Diagnostic
}

func (e *FatalError) Error() string { return e.Diag.String() }

// Context accumulates diagnostics for one compilation. It is fatal-on-
// first-error: the first Error or Fatal report makes HasErrors true, and
// Fatalf returns immediately with a *FatalError the caller must
// propagate.
type Context struct {
	diags []Diagnostic
}

// New creates an empty diagnostics context.
func New() *Context { return &Context{} }

func (c *Context) report(sev Severity, span ast.Span, format string, args ...any) Diagnostic {
	d := Diagnostic{Severity: sev, Span: span, Message: fmt.Sprintf(format, args...)}
	c.diags = append(c.diags, d)
	return d
}

func (c *Context) Notef(span ast.Span, format string, args ...any) {
	c.report(Note, span, format, args...)
}

func (c *Context) Warnf(span ast.Span, format string, args ...any) {
	c.report(Warn, span, format, args...)
}

func (c *Context) Errorf(span ast.Span, format string, args ...any) {
	c.report(Error, span, format, args...)
}

// Fatalf reports a fatal diagnostic and returns an error the caller must
// propagate up to abort the current pass; there is no error recovery
// within one translation unit.
func (c *Context) Fatalf(span ast.Span, format string, args ...any) error {
	d := c.report(Fatal, span, format, args...)
	return &FatalError{Diag: d}
}

// HasErrors reports whether any Error or Fatal diagnostic was recorded.
func (c *Context) HasErrors() bool {
	for _, d := range c.diags {
		if d.Severity >= Error {
			return true
		}
	}
	return false
}

// Diagnostics returns every diagnostic recorded so far, in report order.
func (c *Context) Diagnostics() []Diagnostic { return c.diags }

// WriteTo prints every diagnostic to w, one per line.
func (c *Context) WriteTo(w io.Writer) {
	for _, d := range c.diags {
		fmt.Fprintln(w, d.String())
	}
}
