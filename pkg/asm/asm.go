// Package asm models the final GNU AT&T x86-64 assembly text as a small
// AST, separating "what the program looks like on the page" from the
// machine-instruction selection that pkg/select performs.
// pkg/asmgen builds this tree from a machir.Segment; Printer renders it.
package asm

// Directive is one assembler directive line (.file, .section, .align, ...).
type Directive struct {
	Name string
	Args []string
}

// Label marks a position in the instruction stream.
type Label struct {
	Name string
}

// Instr is one rendered instruction: a mnemonic and its AT&T-order operand
// strings (source(s) before destination).
type Instr struct {
	Mnemonic string
	Operands []string
}

// Line is one line of output: exactly one of Directive/Label/Instr/Comment
// is non-nil, or Blank is true for a spacer line.
type Line struct {
	Directive *Directive
	Label     *Label
	Instr     *Instr
	Comment   string
	Blank     bool
}

// File is the whole translation unit's rendered assembly.
type File struct {
	Lines []Line
}

// Directive appends one assembler directive line (".section", ".align", …
// callers include the leading dot themselves; Printer renders name verbatim).
func (f *File) Directive(name string, args ...string) {
	f.Lines = append(f.Lines, Line{Directive: &Directive{Name: name, Args: args}})
}

// Label appends a label line.
func (f *File) Label(name string) {
	f.Lines = append(f.Lines, Line{Label: &Label{Name: name}})
}

// Instr appends one rendered instruction line.
func (f *File) Instr(mnemonic string, operands ...string) {
	f.Lines = append(f.Lines, Line{Instr: &Instr{Mnemonic: mnemonic, Operands: operands}})
}

// Blank appends a spacer line.
func (f *File) Blank() {
	f.Lines = append(f.Lines, Line{Blank: true})
}
